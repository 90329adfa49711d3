// Package ledger derives product stock movements from order lifecycle events
// and posts them one product at a time.
//
// Creating an order reserves its quantities. Deleting an order releases them
// unless the order was COMPLETED. Status changes never move stock. Stock is
// clamped at zero on the way down and never clamped on the way up.
package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/brutalist/internal/domain"
)

// Delta is a signed stock movement for one product.
type Delta struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// Reserve returns one negative delta per order item, in item order.
func Reserve(o domain.Order) []Delta {
	out := make([]Delta, 0, len(o.Items))
	for _, it := range o.Items {
		out = append(out, Delta{ProductID: it.ProductID, Quantity: -it.Quantity})
	}
	return out
}

// Release returns one positive delta per order item, or nil when the order is
// COMPLETED and its goods have left the workshop. LATE and PENDING orders
// both release.
func Release(o domain.Order) []Delta {
	if o.Status == domain.StatusCompleted {
		return nil
	}
	out := make([]Delta, 0, len(o.Items))
	for _, it := range o.Items {
		out = append(out, Delta{ProductID: it.ProductID, Quantity: it.Quantity})
	}
	return out
}

// Apply returns stock moved by delta, floored at zero.
func Apply(stock, delta int) int {
	return max(0, stock+delta)
}

// Adjuster moves one product's stock by delta and returns the updated product.
// It must return an error wrapping domain.ErrNotFound for unknown products.
type Adjuster interface {
	AdjustProductStock(ctx context.Context, productID string, delta int) (domain.Product, error)
}

// Entry records one posted delta and the stock it produced.
type Entry struct {
	Delta Delta `json:"delta"`
	Stock int   `json:"stock"`
}

// Journal is the outcome of posting a batch of deltas.
type Journal struct {
	Applied []Entry `json:"applied"`
	// Missing holds deltas whose product no longer exists. They are skipped
	// and the batch continues.
	Missing []Delta `json:"missing,omitempty"`
	// Failed is the delta whose adjustment errored. Posting stops there.
	Failed *Delta `json:"failed,omitempty"`
	// Skipped holds the deltas after Failed that were never attempted.
	Skipped []Delta `json:"skipped,omitempty"`
}

// Complete reports whether every delta was either applied or missing.
func (j Journal) Complete() bool {
	return j.Failed == nil
}

// PartialError is returned when a batch stopped part way. Adjustments
// recorded in Journal.Applied stay in effect.
type PartialError struct {
	Journal Journal
	Err     error
}

func (e *PartialError) Error() string {
	return fmt.Sprintf("stock adjustment stopped after %d of %d deltas at product %s: %v",
		len(e.Journal.Applied), e.total(), e.Journal.Failed.ProductID, e.Err)
}

func (e *PartialError) Unwrap() error {
	return e.Err
}

func (e *PartialError) total() int {
	return len(e.Journal.Applied) + len(e.Journal.Missing) + 1 + len(e.Journal.Skipped)
}

// IsPartial reports whether err wraps a *PartialError.
func IsPartial(err error) bool {
	var pe *PartialError
	return errors.As(err, &pe)
}

// Post applies deltas sequentially through adj. Unknown products are recorded
// as missing. The first other failure stops the batch and is returned as a
// *PartialError carrying the journal so far.
func Post(ctx context.Context, adj Adjuster, deltas []Delta) (Journal, error) {
	journal := Journal{Applied: []Entry{}}
	for i, d := range deltas {
		err := ctx.Err()
		var p domain.Product
		if err == nil {
			p, err = adj.AdjustProductStock(ctx, d.ProductID, d.Quantity)
		}
		switch {
		case err == nil:
			journal.Applied = append(journal.Applied, Entry{Delta: d, Stock: p.Stock})
		case errors.Is(err, domain.ErrNotFound):
			journal.Missing = append(journal.Missing, d)
		default:
			journal.Failed = &d
			journal.Skipped = append([]Delta(nil), deltas[i+1:]...)
			return journal, &PartialError{Journal: journal, Err: err}
		}
	}
	return journal, nil
}
