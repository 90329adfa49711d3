package engine

import (
	"context"

	"github.com/roach88/brutalist/internal/domain"
	"github.com/roach88/brutalist/internal/events"
	"github.com/roach88/brutalist/internal/ledger"
	"github.com/roach88/brutalist/internal/remote"
)

// CreateOrder adds o at the head of the order list and reserves its item
// quantities. Missing id, creation time and status are filled in.
//
// When the order is applied but a stock delta fails, the order is returned
// together with a *ledger.PartialError.
func (e *Engine) CreateOrder(ctx context.Context, o domain.Order) (domain.Order, ledger.Journal, error) {
	o = o.Normalized()
	if o.ID == "" {
		o.ID = e.ids.Generate()
	}
	if o.CreatedAt.IsZero() {
		o.CreatedAt = e.now().UTC().Round(0)
	}
	if o.Status == "" {
		o.Status = domain.StatusPending
	}
	if err := o.Validate(); err != nil {
		return domain.Order{}, ledger.Journal{}, newInvalidError("create", remote.TableOrders, o.ID, err)
	}
	if _, exists := e.state.Order(o.ID); exists {
		return domain.Order{}, ledger.Journal{}, newInvalidError("create", remote.TableOrders, o.ID, errDuplicateID)
	}
	if !o.TotalConsistent() {
		e.logger.Warn().Str("id", o.ID).Float64("total_value", o.TotalValue).
			Float64("expected", o.ExpectedTotal()).Msg("order total does not match items plus shipping")
	}
	for _, i := range o.MismatchedLines() {
		it := o.Items[i]
		e.logger.Warn().Str("id", o.ID).Int("item", i).Str("product", it.ProductID).Float64("total", it.Total).
			Float64("expected", domain.LineTotal(it.Quantity, it.UnitPrice)).Msg("line total does not match quantity times unit price")
	}

	err := e.writeRemote("create", remote.TableOrders, o.ID, func(owner string) error {
		row, err := remote.OrderToRow(o)
		if err != nil {
			return err
		}
		_, err = e.remote.Orders().Insert(ctx, owner, row)
		return err
	})
	if err != nil {
		return domain.Order{}, ledger.Journal{}, err
	}

	e.state.PrependOrder(o)
	e.publish(ctx, events.OrderCreated, o.ID, o)

	journal, err := e.postStock(ctx, o.ID, ledger.Reserve(o))
	return o, journal, err
}

// DeleteOrder removes an order and, unless it was COMPLETED, returns its
// item quantities to stock.
func (e *Engine) DeleteOrder(ctx context.Context, id string) (ledger.Journal, error) {
	o, ok := e.state.Order(id)
	if !ok {
		return ledger.Journal{}, newNotFoundError("delete", remote.TableOrders, id)
	}

	err := e.writeRemote("delete", remote.TableOrders, id, func(owner string) error {
		return e.remote.Orders().Delete(ctx, owner, id)
	})
	if err != nil {
		return ledger.Journal{}, err
	}

	e.state.RemoveOrder(id)
	e.publish(ctx, events.OrderDeleted, id, o)

	return e.postStock(ctx, id, ledger.Release(o))
}

// UpdateOrderStatus changes only the status of an order. Stock is not moved.
func (e *Engine) UpdateOrderStatus(ctx context.Context, id string, status domain.OrderStatus) (domain.Order, error) {
	if !status.Valid() {
		return domain.Order{}, newInvalidError("update_status", remote.TableOrders, id,
			&domain.ValidationError{Field: "status", Message: "unknown status " + string(status)})
	}
	if _, ok := e.state.Order(id); !ok {
		return domain.Order{}, newNotFoundError("update_status", remote.TableOrders, id)
	}

	err := e.writeRemote("update_status", remote.TableOrders, id, func(owner string) error {
		_, err := e.remote.Orders().Update(ctx, owner, id, remote.OrderRow{Status: string(status)}, remote.ColStatus)
		return err
	})
	if err != nil {
		return domain.Order{}, err
	}

	o, _ := e.state.UpdateOrder(id, func(o *domain.Order) { o.Status = status })
	e.publish(ctx, events.OrderStatusChanged, id, map[string]string{"status": string(status)})
	return o, nil
}

func (e *Engine) postStock(ctx context.Context, orderID string, deltas []ledger.Delta) (ledger.Journal, error) {
	journal, err := ledger.Post(ctx, e, deltas)
	for _, d := range journal.Missing {
		e.logger.Warn().Str("order", orderID).Str("product", d.ProductID).Int("delta", d.Quantity).
			Msg("stock adjustment skipped, product not found")
	}
	if err != nil {
		e.logger.Error().Err(err).Str("order", orderID).Msg("stock adjustment incomplete")
	}
	return journal, err
}
