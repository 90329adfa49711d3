package remote

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/roach88/brutalist/internal/domain"
)

// Column names shared by the SQL tables, the fake and partial updates.
const (
	ColID           = "id"
	ColUserID       = "user_id"
	ColCreatedAt    = "created_at"
	ColClient       = "client"
	ColDeadline     = "deadline"
	ColStatus       = "status"
	ColOrigin       = "origin"
	ColShippingCost = "shipping_cost"
	ColTotalValue   = "total_value"
	ColItems        = "items"
	ColName         = "name"
	ColSKU          = "sku"
	ColMaterials    = "materials"
	ColCost         = "cost"
	ColStock        = "stock"
	ColImage        = "image"
	ColUnit         = "unit"
	ColCostPerUnit  = "cost_per_unit"
	ColMinStock     = "min_stock"
)

// OrderRow is an order as stored remotely. Items is a JSON array.
type OrderRow struct {
	ID           string
	UserID       string
	Client       string
	Deadline     string
	CreatedAt    time.Time
	Status       string
	Origin       string
	ShippingCost float64
	TotalValue   float64
	Items        string
}

// ProductRow is a product as stored remotely. Materials is a JSON array of
// descriptor strings.
type ProductRow struct {
	ID        string
	UserID    string
	Name      string
	SKU       string
	Materials string
	Cost      float64
	Stock     int
	Image     string
	CreatedAt time.Time
}

// MaterialRow is a raw material as stored remotely.
type MaterialRow struct {
	ID          string
	UserID      string
	Name        string
	Unit        string
	CostPerUnit float64
	Stock       float64
	MinStock    float64
	CreatedAt   time.Time
}

// SettingsRow is the flattened settings record.
type SettingsRow struct {
	UserID         string
	CompanyName    string
	CompanySlogan  string
	CompanyTaxID   string
	CompanyContact string
	CompanyLogo    string
	NotifLowStock  bool
	NotifDeadlines bool
	Theme          string
	Density        string
	LayoutMode     string
	UpdatedAt      time.Time
}

// OrderToRow flattens o for storage.
func OrderToRow(o domain.Order) (OrderRow, error) {
	items := o.Items
	if items == nil {
		items = []domain.OrderItem{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return OrderRow{}, fmt.Errorf("encode items of order %s: %w", o.ID, err)
	}
	return OrderRow{
		ID:           o.ID,
		Client:       o.Client,
		Deadline:     o.Deadline.String(),
		CreatedAt:    o.CreatedAt,
		Status:       string(o.Status),
		Origin:       string(o.Origin),
		ShippingCost: o.ShippingCost,
		TotalValue:   o.TotalValue,
		Items:        string(data),
	}, nil
}

// OrderFromRow rebuilds an order from storage.
func OrderFromRow(r OrderRow) (domain.Order, error) {
	o := domain.Order{
		ID:           r.ID,
		Client:       r.Client,
		CreatedAt:    r.CreatedAt.UTC(),
		Status:       domain.OrderStatus(r.Status),
		Origin:       domain.Origin(r.Origin),
		ShippingCost: r.ShippingCost,
		TotalValue:   r.TotalValue,
	}
	if r.Deadline != "" {
		d, err := domain.ParseDate(r.Deadline)
		if err != nil {
			return domain.Order{}, fmt.Errorf("order %s: %w", r.ID, err)
		}
		o.Deadline = d
	}
	if err := decodeJSONColumn(r.Items, &o.Items); err != nil {
		return domain.Order{}, fmt.Errorf("decode items of order %s: %w", r.ID, err)
	}
	return o, nil
}

// ProductToRow flattens p for storage.
func ProductToRow(p domain.Product) (ProductRow, error) {
	materials := p.Materials
	if materials == nil {
		materials = []string{}
	}
	data, err := json.Marshal(materials)
	if err != nil {
		return ProductRow{}, fmt.Errorf("encode materials of product %s: %w", p.ID, err)
	}
	return ProductRow{
		ID:        p.ID,
		Name:      p.Name,
		SKU:       p.SKU,
		Materials: string(data),
		Cost:      p.Cost,
		Stock:     p.Stock,
		Image:     p.Image,
	}, nil
}

// ProductFromRow rebuilds a product from storage.
func ProductFromRow(r ProductRow) (domain.Product, error) {
	p := domain.Product{
		ID:    r.ID,
		Name:  r.Name,
		SKU:   r.SKU,
		Cost:  r.Cost,
		Stock: r.Stock,
		Image: r.Image,
	}
	if err := decodeJSONColumn(r.Materials, &p.Materials); err != nil {
		return domain.Product{}, fmt.Errorf("decode materials of product %s: %w", r.ID, err)
	}
	return p, nil
}

// MaterialToRow maps a material to its table row.
func MaterialToRow(m domain.Material) MaterialRow {
	return MaterialRow{
		ID:          m.ID,
		Name:        m.Name,
		Unit:        m.Unit,
		CostPerUnit: m.CostPerUnit,
		Stock:       m.Stock,
		MinStock:    m.MinStock,
	}
}

// MaterialFromRow is the inverse of MaterialToRow.
func MaterialFromRow(r MaterialRow) domain.Material {
	return domain.Material{
		ID:          r.ID,
		Name:        r.Name,
		Unit:        r.Unit,
		CostPerUnit: r.CostPerUnit,
		Stock:       r.Stock,
		MinStock:    r.MinStock,
	}
}

// SettingsToRow flattens the nested settings record into company_*, notif_*
// and appearance columns.
func SettingsToRow(s domain.Settings) SettingsRow {
	return SettingsRow{
		CompanyName:    s.Company.Name,
		CompanySlogan:  s.Company.Slogan,
		CompanyTaxID:   s.Company.TaxID,
		CompanyContact: s.Company.Contact,
		CompanyLogo:    s.Company.Logo,
		NotifLowStock:  s.Notifications.LowStock,
		NotifDeadlines: s.Notifications.Deadlines,
		Theme:          s.Appearance.Theme,
		Density:        s.Appearance.Density,
		LayoutMode:     s.Appearance.LayoutMode,
	}
}

// SettingsFromRow is the inverse of SettingsToRow.
func SettingsFromRow(r SettingsRow) domain.Settings {
	return domain.Settings{
		Company: domain.Company{
			Name:    r.CompanyName,
			Slogan:  r.CompanySlogan,
			TaxID:   r.CompanyTaxID,
			Contact: r.CompanyContact,
			Logo:    r.CompanyLogo,
		},
		Notifications: domain.Notifications{
			LowStock:  r.NotifLowStock,
			Deadlines: r.NotifDeadlines,
		},
		Appearance: domain.Appearance{
			Theme:      r.Theme,
			Density:    r.Density,
			LayoutMode: r.LayoutMode,
		},
	}
}

func decodeJSONColumn(raw string, dst any) error {
	if raw == "" || raw == "null" {
		return nil
	}
	return json.Unmarshal([]byte(raw), dst)
}
