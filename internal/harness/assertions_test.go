package harness

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/brutalist/internal/domain"
	"github.com/roach88/brutalist/internal/remote"
	"github.com/roach88/brutalist/internal/remote/remotetest"
	"github.com/roach88/brutalist/internal/state"
	"github.com/roach88/brutalist/internal/testutil"
)

func seededContext(t *testing.T) *AssertionContext {
	t.Helper()
	return &AssertionContext{
		State:  state.New(domain.Seed(testutil.Epoch)),
		Remote: remotetest.New(),
		Events: []string{"order.created", "stock.adjusted"},
	}
}

func TestEvaluateAssertions_Pass(t *testing.T) {
	actx := seededContext(t)

	assertions := []Assertion{
		{Type: AssertStock, ID: "1", Value: 15},
		{Type: AssertMaterialStock, ID: "5", Value: 100},
		{Type: AssertMaterialStock, ID: "1", Value: 50.0},
		{Type: AssertCount, Collection: "orders", Value: 5},
		{Type: AssertCount, Collection: "products", Value: 4},
		{Type: AssertExists, Collection: "orders", ID: "#5025"},
		{Type: AssertAbsent, Collection: "products", ID: "99"},
		{Type: AssertField, Collection: "orders", ID: "#5025", Field: "status", Value: "LATE"},
		{Type: AssertField, Collection: "settings", Field: "company.slogan", Value: "Painel de Controle"},
		{Type: AssertField, Collection: "settings", Field: "notifications.deadlines", Value: true},
		{Type: AssertEvents, Events: []string{"order.created", "stock.adjusted"}},
		{Type: AssertRemoteWrites, Value: 0},
	}

	assert.Empty(t, EvaluateAssertions(assertions, actx))
}

func TestEvaluateAssertions_Failures(t *testing.T) {
	actx := seededContext(t)

	tests := []struct {
		name      string
		assertion Assertion
		wantErr   string
	}{
		{"stock mismatch", Assertion{Type: AssertStock, ID: "1", Value: 14}, "expected 1 = 14, got 15"},
		{"unknown product", Assertion{Type: AssertStock, ID: "nope", Value: 1}, "no such product"},
		{"unknown material", Assertion{Type: AssertMaterialStock, ID: "nope", Value: 1}, "no such material"},
		{"count mismatch", Assertion{Type: AssertCount, Collection: "materials", Value: 2}, "got 6"},
		{"unknown collection", Assertion{Type: AssertCount, Collection: "invoices", Value: 0}, `unknown collection "invoices"`},
		{"exists", Assertion{Type: AssertExists, Collection: "orders", ID: "#9999"}, "orders #9999 exists"},
		{"absent", Assertion{Type: AssertAbsent, Collection: "orders", ID: "#5023"}, "orders #5023 absent"},
		{"field mismatch", Assertion{Type: AssertField, Collection: "products", ID: "2", Field: "sku", Value: "X"}, "products 2.sku = X"},
		{"missing field", Assertion{Type: AssertField, Collection: "settings", Field: "company.motto", Value: "x"}, "field company.motto"},
		{"field on scalar", Assertion{Type: AssertField, Collection: "products", ID: "2", Field: "name.first", Value: "x"}, "object at first"},
		{"field on missing entity", Assertion{Type: AssertField, Collection: "materials", ID: "0", Field: "name", Value: "x"}, "not found"},
		{"events", Assertion{Type: AssertEvents, Events: []string{"order.created"}}, "expected [order.created]"},
		{"remote writes", Assertion{Type: AssertRemoteWrites, Value: 1}, "got 0"},
		{"unknown type", Assertion{Type: "vibes"}, `unknown assertion type "vibes"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := EvaluateAssertions([]Assertion{tt.assertion}, actx)
			require.Len(t, errs, 1)
			assert.Contains(t, errs[0], tt.wantErr)
		})
	}
}

func TestEvaluateAssertions_RemoteWritesCountFailures(t *testing.T) {
	actx := seededContext(t)
	ctx := context.Background()

	_, err := actx.Remote.Products().Insert(ctx, "u1", remote.ProductRow{ID: "p1", Name: "Mesa"})
	require.NoError(t, err)
	actx.Remote.Fail("delete", remote.TableProducts, errors.New("down"))
	require.Error(t, actx.Remote.Products().Delete(ctx, "u1", "p1"))
	_, err = actx.Remote.Products().SelectAll(ctx, "u1")
	require.NoError(t, err)

	assert.Empty(t, EvaluateAssertions([]Assertion{{Type: AssertRemoteWrites, Value: 2}}, actx))
}

func TestAssertionError_Format(t *testing.T) {
	err := &AssertionError{Type: AssertStock, Expected: "1 = 3", Actual: "4"}
	assert.Equal(t, "assertion failed: stock: expected 1 = 3, got 4", err.Error())
}
