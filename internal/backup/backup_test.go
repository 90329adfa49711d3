package backup

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/brutalist/internal/domain"
	"github.com/roach88/brutalist/internal/state"
)

func fixture() domain.Snapshot {
	return domain.Snapshot{
		Orders: []domain.Order{{
			ID:           "#1",
			Client:       "Ana",
			Deadline:     domain.NewDate(2024, time.March, 10),
			CreatedAt:    time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
			Status:       domain.StatusPending,
			Origin:       domain.OriginOnline,
			ShippingCost: 50,
			TotalValue:   530,
			Items: []domain.OrderItem{
				{ProductID: "p1", ProductName: "Mesa", Quantity: 2, UnitPrice: 240, Total: 480},
			},
		}},
		Products: []domain.Product{
			{ID: "p1", Name: "Mesa", SKU: "MSA-1", Materials: []string{"Madeira: 2"}, Cost: 120.5, Stock: 4},
		},
		Materials: []domain.Material{
			{ID: "m1", Name: "Verniz", Unit: "l", CostPerUnit: 35, Stock: 12, MinStock: 4},
		},
		Settings: domain.DefaultSettings(),
	}
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "backup-2024-03-07.json", FileName(time.Date(2024, 3, 7, 23, 59, 0, 0, time.UTC)))

	// Late evening west of UTC is already the next day.
	brt := time.FixedZone("BRT", -3*3600)
	assert.Equal(t, "backup-2024-03-02.json", FileName(time.Date(2024, 3, 1, 22, 30, 0, 0, brt)))
}

func TestEncode_Golden(t *testing.T) {
	data, err := Encode(fixture())
	require.NoError(t, err)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "backup", data)
}

func TestExportImport_RoundTrip(t *testing.T) {
	snap := domain.Seed(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))
	data, err := Encode(snap)
	require.NoError(t, err)

	st := state.New(domain.Snapshot{})
	require.True(t, Import(st, data))
	assert.Equal(t, snap, st.Snapshot())
}

func TestImport_OnlyPresentKeys(t *testing.T) {
	original := fixture()
	st := state.New(original)

	ok := Import(st, []byte(`{"orders": []}`))
	require.True(t, ok)

	got := st.Snapshot()
	assert.Empty(t, got.Orders)
	assert.Equal(t, original.Products, got.Products)
	assert.Equal(t, original.Materials, got.Materials)
	assert.Equal(t, original.Settings, got.Settings)
}

func TestImport_NullKeysIgnored(t *testing.T) {
	original := fixture()
	st := state.New(original)

	require.True(t, Import(st, []byte(`{"orders": null, "unrelated": 1}`)))
	assert.Equal(t, original, st.Snapshot())
	assert.Equal(t, int64(0), st.Revision(), "nothing to replace means no new revision")
}

func TestImport_Rejects(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{name: "not json", data: `{"orders": [`},
		{name: "top-level null", data: `null`},
		{name: "top-level array", data: `[]`},
		{name: "wrong shape for present key", data: `{"orders": [], "products": {"id": "x"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			original := fixture()
			st := state.New(original)

			assert.False(t, Import(st, []byte(tt.data)))
			assert.Equal(t, original, st.Snapshot(), "rejected import leaves the store untouched")
		})
	}
}

func TestWrite(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	path, err := Write(dir, fixture(), time.Date(2024, 3, 7, 8, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "backup-2024-03-07.json"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	want, err := Encode(fixture())
	require.NoError(t, err)
	assert.Equal(t, want, data)
}
