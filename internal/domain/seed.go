package domain

import "time"

// DefaultSettings is the settings record a new tenant starts with.
func DefaultSettings() Settings {
	return Settings{
		Company: Company{
			Name:   "MARCENARIA BRUTAL",
			Slogan: "Painel de Controle",
		},
		Notifications: Notifications{LowStock: true, Deadlines: true},
		Appearance: Appearance{
			Theme:      "Escuro",
			Density:    "COMPACTO",
			LayoutMode: "FLUIDO",
		},
	}
}

// Seed returns the demonstration data used when no local snapshot exists.
// Dates are relative to now.
//
// The seed deliberately includes orders whose totalValue does not equal
// items plus shipping (#5025 and #5027).
func Seed(now time.Time) Snapshot {
	return Snapshot{
		Orders:    SeedOrders(now),
		Products:  SeedProducts(),
		Materials: SeedMaterials(),
		Settings:  DefaultSettings(),
	}
}

// SeedMaterials returns the demonstration raw materials.
func SeedMaterials() []Material {
	return []Material{
		{ID: "1", Name: "Madeira Maciça (M²)", Unit: "m²", CostPerUnit: 150, Stock: 50, MinStock: 10},
		{ID: "2", Name: "Barra de Ferro (3m)", Unit: "un", CostPerUnit: 45, Stock: 30, MinStock: 5},
		{ID: "3", Name: "Verniz Fosco (L)", Unit: "l", CostPerUnit: 35, Stock: 12, MinStock: 4},
		{ID: "4", Name: "Cola p/ Madeira (kg)", Unit: "kg", CostPerUnit: 22, Stock: 3, MinStock: 5},
		{ID: "5", Name: "Lixa Grão 100", Unit: "un", CostPerUnit: 2.5, Stock: 100, MinStock: 20},
		{ID: "6", Name: "Parafusos 50mm (cx)", Unit: "cx", CostPerUnit: 15, Stock: 8, MinStock: 5},
	}
}

// SeedProducts returns the demonstration products.
func SeedProducts() []Product {
	return []Product{
		{ID: "1", Name: "Cadeira Eames Wood", SKU: "CDR-EAM", Materials: []string{"Madeira: 1", "Plastico: 1"}, Cost: 120, Stock: 15,
			Image: unsplash("1567538096630-e0c55bd6374c")},
		{ID: "2", Name: "Mesa Industrial", SKU: "MSA-IND", Materials: []string{"Ferro: 4", "Madeira Maciça: 2"}, Cost: 450, Stock: 4,
			Image: unsplash("1577140917170-285929db55cc")},
		{ID: "3", Name: "Banco de Jardim", SKU: "BNC-JRD", Materials: []string{"Madeira Maciça: 3", "Verniz: 1"}, Cost: 200, Stock: 2,
			Image: unsplash("1592078615290-033ee584e267")},
		{ID: "4", Name: "Estante Modular", SKU: "EST-MOD", Materials: []string{"Madeira Maciça: 5", "Parafusos: 1"}, Cost: 600, Stock: 8,
			Image: unsplash("1594620302200-9a762244a156")},
	}
}

// SeedOrders returns the demonstration orders, newest last as entered.
func SeedOrders(now time.Time) []Order {
	now = now.UTC().Round(0)
	daysAgo := func(n int) time.Time { return now.AddDate(0, 0, -n) }
	day := func(n int) Date { return DateOf(now.AddDate(0, 0, n)) }

	return []Order{
		{ID: "#5023", Client: "Roberto Almeida", Deadline: day(-2), CreatedAt: daysAgo(5),
			Status: StatusCompleted, Origin: OriginPhysical, ShippingCost: 0, TotalValue: 2400,
			Items: []OrderItem{{ProductID: "1", ProductName: "Cadeira Eames Wood", Quantity: 10, UnitPrice: 240, Total: 2400}}},
		{ID: "#5024", Client: "Ana Souza Design", Deadline: day(-1), CreatedAt: daysAgo(3),
			Status: StatusCompleted, Origin: OriginOnline, ShippingCost: 150, TotalValue: 1050,
			Items: []OrderItem{{ProductID: "2", ProductName: "Mesa Industrial", Quantity: 1, UnitPrice: 900, Total: 900}}},
		{ID: "#5025", Client: "Café do Centro", Deadline: day(-1), CreatedAt: daysAgo(2),
			Status: StatusLate, Origin: OriginPhysical, ShippingCost: 50, TotalValue: 800,
			Items: []OrderItem{{ProductID: "3", ProductName: "Banco de Jardim", Quantity: 2, UnitPrice: 400, Total: 800}}},
		{ID: "#5026", Client: "Mariana Luz", Deadline: day(5), CreatedAt: daysAgo(0),
			Status: StatusPending, Origin: OriginOnline, ShippingCost: 80, TotalValue: 1440,
			Items: []OrderItem{
				{ProductID: "1", ProductName: "Cadeira Eames Wood", Quantity: 4, UnitPrice: 240, Total: 960},
				{ProductID: "4", ProductName: "Estante Modular", Quantity: 1, UnitPrice: 400, Total: 400},
			}},
		{ID: "#5027", Client: "Escritório Tech", Deadline: day(10), CreatedAt: daysAgo(0),
			Status: StatusPending, Origin: OriginOnline, ShippingCost: 200, TotalValue: 4500,
			Items: []OrderItem{{ProductID: "2", ProductName: "Mesa Industrial", Quantity: 5, UnitPrice: 900, Total: 4500}}},
	}
}

func unsplash(photo string) string {
	return "https://images.unsplash.com/photo-" + photo + "?auto=format&fit=crop&w=600&q=80"
}
