package engine

import (
	"context"
	"errors"

	"github.com/roach88/brutalist/internal/domain"
	"github.com/roach88/brutalist/internal/events"
	"github.com/roach88/brutalist/internal/ledger"
	"github.com/roach88/brutalist/internal/remote"
)

var errDuplicateID = errors.New("id already exists")

// AddProduct appends p to the catalog, assigning an id when empty.
func (e *Engine) AddProduct(ctx context.Context, p domain.Product) (domain.Product, error) {
	p = p.Normalized()
	if p.ID == "" {
		p.ID = e.ids.Generate()
	}
	if err := p.Validate(); err != nil {
		return domain.Product{}, newInvalidError("create", remote.TableProducts, p.ID, err)
	}
	if _, exists := e.state.Product(p.ID); exists {
		return domain.Product{}, newInvalidError("create", remote.TableProducts, p.ID, errDuplicateID)
	}

	err := e.writeRemote("create", remote.TableProducts, p.ID, func(owner string) error {
		row, err := remote.ProductToRow(p)
		if err != nil {
			return err
		}
		_, err = e.remote.Products().Insert(ctx, owner, row)
		return err
	})
	if err != nil {
		return domain.Product{}, err
	}

	e.state.AppendProduct(p)
	e.publish(ctx, events.ProductCreated, p.ID, p)
	return p, nil
}

// UpdateProduct replaces every field of an existing product.
func (e *Engine) UpdateProduct(ctx context.Context, p domain.Product) (domain.Product, error) {
	p = p.Normalized()
	if _, ok := e.state.Product(p.ID); !ok {
		return domain.Product{}, newNotFoundError("update", remote.TableProducts, p.ID)
	}
	if err := p.Validate(); err != nil {
		return domain.Product{}, newInvalidError("update", remote.TableProducts, p.ID, err)
	}

	err := e.writeRemote("update", remote.TableProducts, p.ID, func(owner string) error {
		row, err := remote.ProductToRow(p)
		if err != nil {
			return err
		}
		_, err = e.remote.Products().Update(ctx, owner, p.ID, row)
		return err
	})
	if err != nil {
		return domain.Product{}, err
	}

	e.state.PutProduct(p)
	e.publish(ctx, events.ProductUpdated, p.ID, p)
	return p, nil
}

// DeleteProduct removes a product. Orders referring to it are left as they are.
func (e *Engine) DeleteProduct(ctx context.Context, id string) error {
	if _, ok := e.state.Product(id); !ok {
		return newNotFoundError("delete", remote.TableProducts, id)
	}

	err := e.writeRemote("delete", remote.TableProducts, id, func(owner string) error {
		return e.remote.Products().Delete(ctx, owner, id)
	})
	if err != nil {
		return err
	}

	e.state.RemoveProduct(id)
	e.publish(ctx, events.ProductDeleted, id, nil)
	return nil
}

// AdjustProductStock moves one product's stock by delta, flooring at zero.
// Only the stock column is written remotely. It implements ledger.Adjuster.
func (e *Engine) AdjustProductStock(ctx context.Context, id string, delta int) (domain.Product, error) {
	p, ok := e.state.Product(id)
	if !ok {
		return domain.Product{}, newNotFoundError("adjust_stock", remote.TableProducts, id)
	}
	stock := ledger.Apply(p.Stock, delta)

	err := e.writeRemote("adjust_stock", remote.TableProducts, id, func(owner string) error {
		_, err := e.remote.Products().Update(ctx, owner, id, remote.ProductRow{Stock: stock}, remote.ColStock)
		return err
	})
	if err != nil {
		return domain.Product{}, err
	}

	p, _ = e.state.SetProductStock(id, stock)
	e.publish(ctx, events.StockAdjusted, id, ledger.Delta{ProductID: id, Quantity: delta})
	return p, nil
}

var _ ledger.Adjuster = (*Engine)(nil)

// AddMaterial appends m to the material list, assigning an id when empty.
func (e *Engine) AddMaterial(ctx context.Context, m domain.Material) (domain.Material, error) {
	m = m.Normalized()
	if m.ID == "" {
		m.ID = e.ids.Generate()
	}
	if err := m.Validate(); err != nil {
		return domain.Material{}, newInvalidError("create", remote.TableMaterials, m.ID, err)
	}
	if _, exists := e.state.Material(m.ID); exists {
		return domain.Material{}, newInvalidError("create", remote.TableMaterials, m.ID, errDuplicateID)
	}

	err := e.writeRemote("create", remote.TableMaterials, m.ID, func(owner string) error {
		_, err := e.remote.Materials().Insert(ctx, owner, remote.MaterialToRow(m))
		return err
	})
	if err != nil {
		return domain.Material{}, err
	}

	e.state.AppendMaterial(m)
	e.publish(ctx, events.MaterialCreated, m.ID, m)
	return m, nil
}

// UpdateMaterial replaces every field of an existing material.
func (e *Engine) UpdateMaterial(ctx context.Context, m domain.Material) (domain.Material, error) {
	m = m.Normalized()
	if _, ok := e.state.Material(m.ID); !ok {
		return domain.Material{}, newNotFoundError("update", remote.TableMaterials, m.ID)
	}
	if err := m.Validate(); err != nil {
		return domain.Material{}, newInvalidError("update", remote.TableMaterials, m.ID, err)
	}

	err := e.writeRemote("update", remote.TableMaterials, m.ID, func(owner string) error {
		_, err := e.remote.Materials().Update(ctx, owner, m.ID, remote.MaterialToRow(m))
		return err
	})
	if err != nil {
		return domain.Material{}, err
	}

	e.state.PutMaterial(m)
	e.publish(ctx, events.MaterialUpdated, m.ID, m)
	return m, nil
}

// DeleteMaterial removes a material.
func (e *Engine) DeleteMaterial(ctx context.Context, id string) error {
	if _, ok := e.state.Material(id); !ok {
		return newNotFoundError("delete", remote.TableMaterials, id)
	}

	err := e.writeRemote("delete", remote.TableMaterials, id, func(owner string) error {
		return e.remote.Materials().Delete(ctx, owner, id)
	})
	if err != nil {
		return err
	}

	e.state.RemoveMaterial(id)
	e.publish(ctx, events.MaterialDeleted, id, nil)
	return nil
}

// LowStockMaterials lists materials at or below their reorder threshold.
func (e *Engine) LowStockMaterials() []domain.Material {
	return domain.LowStockMaterials(e.state.Materials())
}
