package domain

import (
	"errors"
	"fmt"
)

// ValidationError reports a field that violates an entity rule.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// IsValidation reports whether err wraps a *ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// Validate checks the order's enums, amounts and line items.
func (o Order) Validate() error {
	if o.ID == "" {
		return invalid("id", "must not be empty")
	}
	if !o.Status.Valid() {
		return invalid("status", "unknown status %q", o.Status)
	}
	if !o.Origin.Valid() {
		return invalid("origin", "unknown origin %q", o.Origin)
	}
	if o.ShippingCost < 0 {
		return invalid("shippingCost", "must be >= 0")
	}
	for i, it := range o.Items {
		if it.ProductID == "" {
			return invalid(fmt.Sprintf("items[%d].productId", i), "must not be empty")
		}
		if it.Quantity <= 0 {
			return invalid(fmt.Sprintf("items[%d].quantity", i), "must be > 0")
		}
		if it.UnitPrice < 0 {
			return invalid(fmt.Sprintf("items[%d].unitPrice", i), "must be >= 0")
		}
	}
	return nil
}

// Validate checks the product's identity and stock.
func (p Product) Validate() error {
	if p.ID == "" {
		return invalid("id", "must not be empty")
	}
	if p.Name == "" {
		return invalid("name", "must not be empty")
	}
	if p.Stock < 0 {
		return invalid("stock", "must be >= 0")
	}
	if p.Cost < 0 {
		return invalid("cost", "must be >= 0")
	}
	return nil
}

// Validate checks the material's identity and quantities.
func (m Material) Validate() error {
	if m.ID == "" {
		return invalid("id", "must not be empty")
	}
	if m.Name == "" {
		return invalid("name", "must not be empty")
	}
	if m.Stock < 0 {
		return invalid("stock", "must be >= 0")
	}
	if m.MinStock < 0 {
		return invalid("minStock", "must be >= 0")
	}
	if m.CostPerUnit < 0 {
		return invalid("costPerUnit", "must be >= 0")
	}
	return nil
}
