package domain

import (
	"errors"
	"slices"
	"time"
)

// ErrNotFound is returned when an intent references an entity id that is not
// present in the store.
var ErrNotFound = errors.New("entity not found")

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	StatusPending   OrderStatus = "PENDING"
	StatusLate      OrderStatus = "LATE"
	StatusCompleted OrderStatus = "COMPLETED"
)

// Valid reports whether s is one of the known statuses.
func (s OrderStatus) Valid() bool {
	switch s {
	case StatusPending, StatusLate, StatusCompleted:
		return true
	}
	return false
}

// Origin records the sales channel an order came from.
type Origin string

const (
	OriginPhysical Origin = "PHYSICAL"
	OriginOnline   Origin = "ONLINE"
)

// Valid reports whether o is one of the known origins.
func (o Origin) Valid() bool {
	return o == OriginPhysical || o == OriginOnline
}

// OrderItem is one line of an order. Total is stored as entered and is not
// recomputed from Quantity and UnitPrice.
type OrderItem struct {
	ProductID   string  `json:"productId"`
	ProductName string  `json:"productName"`
	Quantity    int     `json:"quantity"`
	UnitPrice   float64 `json:"unitPrice"`
	Total       float64 `json:"total"`
}

// Order is a customer order.
type Order struct {
	ID           string      `json:"id"`
	Client       string      `json:"client"`
	Deadline     Date        `json:"deadline"`
	CreatedAt    time.Time   `json:"createdAt"`
	Status       OrderStatus `json:"status"`
	Origin       Origin      `json:"origin"`
	ShippingCost float64     `json:"shippingCost"`
	TotalValue   float64     `json:"totalValue"`
	Items        []OrderItem `json:"items"`
}

// Clone returns a deep copy of o.
func (o Order) Clone() Order {
	o.Items = slices.Clone(o.Items)
	return o
}

// Product is a finished good with an integer stock count.
type Product struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	SKU       string   `json:"sku"`
	Materials []string `json:"materials"`
	Cost      float64  `json:"cost"`
	Stock     int      `json:"stock"`
	Image     string   `json:"image,omitempty"`
}

// Clone returns a deep copy of p.
func (p Product) Clone() Product {
	p.Materials = slices.Clone(p.Materials)
	return p
}

// Material is a raw input tracked in its own unit of measure.
type Material struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Unit        string  `json:"unit"`
	CostPerUnit float64 `json:"costPerUnit"`
	Stock       float64 `json:"stock"`
	MinStock    float64 `json:"minStock"`
}

// LowStock reports whether the material is at or below its reorder threshold.
func (m Material) LowStock() bool {
	return m.Stock <= m.MinStock
}

// LowStockMaterials returns the materials at or below their reorder threshold,
// in input order.
func LowStockMaterials(materials []Material) []Material {
	out := []Material{}
	for _, m := range materials {
		if m.LowStock() {
			out = append(out, m)
		}
	}
	return out
}

// Snapshot is the full state of one tenant: the four collections the engine
// keeps in memory and persists.
type Snapshot struct {
	Orders    []Order    `json:"orders"`
	Products  []Product  `json:"products"`
	Materials []Material `json:"materials"`
	Settings  Settings   `json:"settings"`
}

// Clone returns a deep copy of s. Nil collections stay nil.
func (s Snapshot) Clone() Snapshot {
	return Snapshot{
		Orders:    CloneOrders(s.Orders),
		Products:  CloneProducts(s.Products),
		Materials: slices.Clone(s.Materials),
		Settings:  s.Settings,
	}
}

// CloneOrders deep-copies a slice of orders.
func CloneOrders(in []Order) []Order {
	if in == nil {
		return nil
	}
	out := make([]Order, len(in))
	for i, o := range in {
		out[i] = o.Clone()
	}
	return out
}

// CloneProducts deep-copies a slice of products.
func CloneProducts(in []Product) []Product {
	if in == nil {
		return nil
	}
	out := make([]Product, len(in))
	for i, p := range in {
		out[i] = p.Clone()
	}
	return out
}

// Ptr returns a pointer to v. Handy when building patches.
func Ptr[T any](v T) *T {
	return &v
}
