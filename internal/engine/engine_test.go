package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/brutalist/internal/domain"
	"github.com/roach88/brutalist/internal/events"
	"github.com/roach88/brutalist/internal/remote"
	"github.com/roach88/brutalist/internal/remote/remotetest"
	"github.com/roach88/brutalist/internal/session"
	"github.com/roach88/brutalist/internal/snapshot"
	"github.com/roach88/brutalist/internal/state"
	"github.com/roach88/brutalist/internal/testutil"
)

type harness struct {
	eng    *Engine
	st     *state.Store
	remote *remotetest.Service
	kv     *snapshot.MemoryKV
	codec  *snapshot.Codec
	events *events.Recorder
	logs   *testutil.LogBuffer
}

func newHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()
	logger, logs := testutil.NewLogger()
	h := &harness{
		st:     state.New(domain.Snapshot{}),
		remote: remotetest.New(),
		kv:     snapshot.NewMemoryKV(),
		events: &events.Recorder{},
		logs:   logs,
	}
	h.codec = snapshot.NewCodec(h.kv, logger)
	base := []Option{
		WithRemote(h.remote),
		WithCache(h.codec),
		WithPublisher(h.events),
		WithLogger(logger),
		WithIDGenerator(testutil.NewSequentialIDs("id")),
		WithClock(testutil.Frozen(testutil.Epoch)),
	}
	h.eng = New(h.st, append(base, opts...)...)
	t.Cleanup(h.eng.Close)
	require.NoError(t, h.eng.Load(context.Background()))
	return h
}

func (h *harness) signIn(t *testing.T, userID string) {
	t.Helper()
	h.eng.HandleSessionChange(context.Background(), session.Change{
		Event:    session.SignedIn,
		Identity: &session.Identity{ID: userID, Email: userID + "@example.com"},
	})
	require.True(t, h.eng.Remote())
}

func (h *harness) product(t *testing.T, id string) domain.Product {
	t.Helper()
	p, ok := h.st.Product(id)
	require.True(t, ok, "product %s", id)
	return p
}

func newOrder(id string, status domain.OrderStatus, items ...domain.OrderItem) domain.Order {
	return domain.Order{
		ID:       id,
		Client:   "Cliente",
		Deadline: domain.NewDate(2024, time.March, 20),
		Status:   status,
		Origin:   domain.OriginOnline,
		Items:    items,
	}
}

func line(productID string, qty int) domain.OrderItem {
	return domain.OrderItem{ProductID: productID, ProductName: "x", Quantity: qty, UnitPrice: 10, Total: float64(qty) * 10}
}

func TestLoad_LocalModeUsesSeed(t *testing.T) {
	h := newHarness(t)

	assert.Equal(t, domain.Seed(testutil.Epoch), h.st.Snapshot())
	assert.False(t, h.eng.Remote())
	assert.Empty(t, h.remote.Calls(), "local mode never touches the backend")
}

func TestLoad_LocalModeUsesSnapshot(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.eng.AddMaterial(ctx, domain.Material{Name: "Cera", Unit: "kg", Stock: 2, MinStock: 1})
	require.NoError(t, err)

	// A second engine over the same cache picks the change up.
	st := state.New(domain.Snapshot{})
	other := New(st, WithCache(h.codec), WithClock(testutil.Frozen(testutil.Epoch)))
	defer other.Close()
	require.NoError(t, other.Load(ctx))

	assert.Equal(t, h.st.Snapshot(), st.Snapshot())
}

func TestPersist_EveryChangeIsSaved(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, _, err := h.eng.CreateOrder(ctx, newOrder("#9000", domain.StatusPending, line("1", 1)))
	require.NoError(t, err)

	saved := h.codec.Load(ctx, domain.Snapshot{})
	assert.Equal(t, h.st.Snapshot(), saved)
	assert.Equal(t, "#9000", saved.Orders[0].ID)
}

func TestCreateOrder_FillsDefaults(t *testing.T) {
	h := newHarness(t)

	o, _, err := h.eng.CreateOrder(context.Background(), domain.Order{
		Client: "  Ana ",
		Origin: domain.OriginPhysical,
		Items:  []domain.OrderItem{line("1", 1)},
	})
	require.NoError(t, err)

	assert.Equal(t, "id-1", o.ID)
	assert.Equal(t, "Ana", o.Client)
	assert.Equal(t, domain.StatusPending, o.Status)
	assert.True(t, o.CreatedAt.Equal(testutil.Epoch))
	assert.Equal(t, o, h.st.Orders()[0], "new orders go to the head of the list")
}

func TestCreateOrder_Rejected(t *testing.T) {
	h := newHarness(t)
	before := h.st.Snapshot()

	_, _, err := h.eng.CreateOrder(context.Background(), newOrder("bad", domain.StatusPending, line("1", 0)))
	assert.True(t, IsInvalid(err))

	_, _, err = h.eng.CreateOrder(context.Background(), newOrder("#5023", domain.StatusPending, line("1", 1)))
	assert.True(t, IsInvalid(err), "duplicate id")

	assert.Equal(t, before, h.st.Snapshot())
	assert.Empty(t, h.events.Events())
}

func TestCreateOrder_InconsistentTotalWarns(t *testing.T) {
	h := newHarness(t)
	o := newOrder("#9001", domain.StatusPending, line("1", 1))
	o.TotalValue = 999

	_, _, err := h.eng.CreateOrder(context.Background(), o)
	require.NoError(t, err)
	assert.True(t, h.logs.Contains(`"level":"warn"`, "order total does not match"))
	assert.False(t, h.logs.Contains("line total does not match"))
}

func TestCreateOrder_LineTotalMismatchWarns(t *testing.T) {
	h := newHarness(t)
	bad := line("2", 2)
	bad.Total = 15
	o := newOrder("#9002", domain.StatusPending, line("1", 1), bad)
	o.TotalValue = o.ExpectedTotal()

	created, _, err := h.eng.CreateOrder(context.Background(), o)
	require.NoError(t, err)
	assert.Equal(t, 15.0, created.Items[1].Total, "totals are never re-derived")
	assert.True(t, h.logs.Contains(`"level":"warn"`, "line total does not match quantity times unit price",
		`"item":1`, `"product":"2"`, `"expected":20`))
	assert.False(t, h.logs.Contains("order total does not match"))
}

func TestStock_CreateThenDeleteRestores(t *testing.T) {
	for _, status := range []domain.OrderStatus{domain.StatusPending, domain.StatusLate} {
		t.Run(string(status), func(t *testing.T) {
			h := newHarness(t)
			ctx := context.Background()
			before := h.st.Products()

			_, _, err := h.eng.CreateOrder(ctx, newOrder("#9100", status, line("1", 3), line("4", 2)))
			require.NoError(t, err)
			assert.Equal(t, 12, h.product(t, "1").Stock)
			assert.Equal(t, 6, h.product(t, "4").Stock)

			_, err = h.eng.DeleteOrder(ctx, "#9100")
			require.NoError(t, err)
			assert.Equal(t, before, h.st.Products())
		})
	}
}

func TestStock_CompletedDeleteKeepsStock(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, _, err := h.eng.CreateOrder(ctx, newOrder("#9200", domain.StatusPending, line("2", 1)))
	require.NoError(t, err)
	_, err = h.eng.UpdateOrderStatus(ctx, "#9200", domain.StatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, 3, h.product(t, "2").Stock, "status change does not move stock")

	journal, err := h.eng.DeleteOrder(ctx, "#9200")
	require.NoError(t, err)
	assert.Empty(t, journal.Applied)
	assert.Equal(t, 3, h.product(t, "2").Stock)
}

func TestStock_FlooredAtZero(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, journal, err := h.eng.CreateOrder(ctx, newOrder("#9300", domain.StatusPending, line("3", 5)))
	require.NoError(t, err)
	assert.Equal(t, 0, h.product(t, "3").Stock)
	require.Len(t, journal.Applied, 1)
	assert.Equal(t, 0, journal.Applied[0].Stock)

	// Restoring adds the full quantity back, not the amount actually removed.
	_, err = h.eng.DeleteOrder(ctx, "#9300")
	require.NoError(t, err)
	assert.Equal(t, 5, h.product(t, "3").Stock)
}

func TestStock_MissingProductIsSkipped(t *testing.T) {
	h := newHarness(t)

	o, journal, err := h.eng.CreateOrder(context.Background(),
		newOrder("#9400", domain.StatusPending, line("ghost", 1), line("1", 1)))
	require.NoError(t, err)

	assert.Equal(t, "#9400", o.ID)
	assert.Equal(t, "ghost", journal.Missing[0].ProductID)
	assert.Equal(t, 14, h.product(t, "1").Stock)
	assert.True(t, h.logs.Contains("product not found", `"product":"ghost"`))
}

func TestAdjustProductStock(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	p, err := h.eng.AdjustProductStock(ctx, "4", -3)
	require.NoError(t, err)
	assert.Equal(t, 5, p.Stock)

	p, err = h.eng.AdjustProductStock(ctx, "4", -100)
	require.NoError(t, err)
	assert.Equal(t, 0, p.Stock)

	_, err = h.eng.AdjustProductStock(ctx, "nope", 1)
	assert.True(t, IsNotFound(err))
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDeleteOrder_Unknown(t *testing.T) {
	h := newHarness(t)
	h.signIn(t, "u1")
	h.remote.ResetCalls()

	_, err := h.eng.DeleteOrder(context.Background(), "nope")
	assert.True(t, IsNotFound(err))
	assert.Empty(t, h.remote.Calls(), "unknown id is rejected before any remote call")
}

func TestUpdateOrderStatus_Invalid(t *testing.T) {
	h := newHarness(t)

	_, err := h.eng.UpdateOrderStatus(context.Background(), "#5026", "SHIPPED")
	assert.True(t, IsInvalid(err))
	_, err = h.eng.UpdateOrderStatus(context.Background(), "nope", domain.StatusLate)
	assert.True(t, IsNotFound(err))
}

func TestProducts_CRUD(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	p, err := h.eng.AddProduct(ctx, domain.Product{Name: "Cômoda", SKU: "CMD-01", Stock: 2, Materials: []string{"Madeira: 4"}})
	require.NoError(t, err)
	assert.Equal(t, "id-1", p.ID)
	assert.Equal(t, p, h.st.Products()[len(h.st.Products())-1], "new products go to the end")

	p.Cost = 700
	_, err = h.eng.UpdateProduct(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, 700.0, h.product(t, p.ID).Cost)

	require.NoError(t, h.eng.DeleteProduct(ctx, p.ID))
	_, ok := h.st.Product(p.ID)
	assert.False(t, ok)

	_, err = h.eng.UpdateProduct(ctx, domain.Product{ID: "nope", Name: "x"})
	assert.True(t, IsNotFound(err))
	assert.True(t, IsNotFound(h.eng.DeleteProduct(ctx, "nope")))

	assert.Equal(t, []events.Type{events.ProductCreated, events.ProductUpdated, events.ProductDeleted}, h.events.Types())
}

func TestMaterials_CRUD(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	m, err := h.eng.AddMaterial(ctx, domain.Material{Name: "Cera", Unit: "kg", Stock: 1, MinStock: 2})
	require.NoError(t, err)

	low := h.eng.LowStockMaterials()
	require.Len(t, low, 2)
	assert.Equal(t, m.ID, low[1].ID)

	m.Stock = 10
	_, err = h.eng.UpdateMaterial(ctx, m)
	require.NoError(t, err)
	assert.Len(t, h.eng.LowStockMaterials(), 1)

	require.NoError(t, h.eng.DeleteMaterial(ctx, m.ID))
	assert.True(t, IsNotFound(h.eng.DeleteMaterial(ctx, m.ID)))

	_, err = h.eng.AddMaterial(ctx, domain.Material{Name: "Neg", Stock: -1})
	assert.True(t, IsInvalid(err))
}

func TestUpdateSettings_Merges(t *testing.T) {
	h := newHarness(t)

	merged, err := h.eng.UpdateSettings(context.Background(), domain.SettingsPatch{
		Appearance: &domain.AppearancePatch{Theme: domain.Ptr("Claro")},
	})
	require.NoError(t, err)

	want := domain.DefaultSettings()
	want.Appearance.Theme = "Claro"
	assert.Equal(t, want, merged)
	assert.Equal(t, want, h.st.Settings())
}

func TestUpdateSettings_EmptyPatchIsNoop(t *testing.T) {
	h := newHarness(t)
	h.signIn(t, "u1")

	got, err := h.eng.UpdateSettings(context.Background(), domain.SettingsPatch{})
	require.NoError(t, err)

	assert.Equal(t, domain.DefaultSettings(), got)
	assert.Equal(t, domain.DefaultSettings(), h.st.Settings())
	assert.Empty(t, h.remote.Writes(), "nothing to upsert")
	assert.Empty(t, h.events.Events())
}

func TestEvents_PublishFailureDoesNotUndo(t *testing.T) {
	h := newHarness(t)
	h.events.FailWith(assert.AnError)

	_, err := h.eng.AddMaterial(context.Background(), domain.Material{ID: "m9", Name: "Cera"})
	require.NoError(t, err)

	_, ok := h.st.Material("m9")
	assert.True(t, ok)
	assert.True(t, h.logs.Contains("publish event failed"))
}

func TestExportImport_RoundTrip(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, _, err := h.eng.CreateOrder(ctx, newOrder("#9500", domain.StatusLate, line("2", 1)))
	require.NoError(t, err)
	want := h.st.Snapshot()

	name, data, err := h.eng.Export()
	require.NoError(t, err)
	assert.Equal(t, "backup-2024-03-01.json", name)

	require.NoError(t, h.eng.Reset(ctx))
	assert.Equal(t, domain.Seed(testutil.Epoch), h.st.Snapshot())

	assert.True(t, h.eng.Import(data))
	assert.Equal(t, want, h.st.Snapshot())
}

func TestImport_RejectedLeavesStore(t *testing.T) {
	h := newHarness(t)
	before := h.st.Snapshot()

	assert.False(t, h.eng.Import([]byte("not json")))
	assert.Equal(t, before, h.st.Snapshot())
	assert.True(t, h.logs.Contains("backup rejected"))
}

func TestReset_ClearsSnapshot(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	require.NoError(t, h.eng.DeleteMaterial(ctx, "1"))
	require.NoError(t, h.eng.Reset(ctx))

	assert.Equal(t, domain.SeedMaterials(), h.st.Materials())
	_, ok, err := h.kv.Get(ctx, snapshot.KeyMaterials)
	require.NoError(t, err)
	assert.True(t, ok, "reloaded seed is persisted again")
}

func TestRemote_OwnerIsAttached(t *testing.T) {
	h := newHarness(t)
	h.signIn(t, "u1")
	ctx := context.Background()

	_, err := h.eng.AddProduct(ctx, domain.Product{ID: "p1", Name: "Mesa", Stock: 3})
	require.NoError(t, err)
	_, _, err = h.eng.CreateOrder(ctx, newOrder("o1", domain.StatusPending, line("p1", 1)))
	require.NoError(t, err)

	rows, err := h.remote.Products().SelectAll(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 2, rows[0].Stock, "stock adjustment is written remotely")

	for _, c := range h.remote.Writes() {
		assert.Equal(t, "u1", c.Owner, "%s %s", c.Op, c.Table)
	}
	evs := h.events.Events()
	require.NotEmpty(t, evs)
	assert.Equal(t, "u1", evs[0].Owner)
}

func TestRemote_StatusUpdateWritesOnlyStatus(t *testing.T) {
	h := newHarness(t)
	h.signIn(t, "u1")
	ctx := context.Background()

	_, _, err := h.eng.CreateOrder(ctx, newOrder("o1", domain.StatusPending))
	require.NoError(t, err)
	h.remote.ResetCalls()

	_, err = h.eng.UpdateOrderStatus(ctx, "o1", domain.StatusCompleted)
	require.NoError(t, err)

	writes := h.remote.Writes()
	require.Len(t, writes, 1)
	assert.Equal(t, "update", writes[0].Op)
	assert.Equal(t, []string{remote.ColStatus}, writes[0].Columns)
}

func TestRemote_SettingsFlattened(t *testing.T) {
	h := newHarness(t)
	h.signIn(t, "u1")
	ctx := context.Background()

	_, err := h.eng.UpdateSettings(ctx, domain.SettingsPatch{
		Company: &domain.CompanyPatch{TaxID: domain.Ptr("12.345.678/0001-90")},
	})
	require.NoError(t, err)

	row, err := h.remote.Settings().Fetch(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "12.345.678/0001-90", row.CompanyTaxID)
	assert.Equal(t, "MARCENARIA BRUTAL", row.CompanyName, "the merged record is written, not the patch")
	assert.True(t, row.NotifLowStock)
}
