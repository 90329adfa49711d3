package domain

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// NormalizeText trims surrounding whitespace and converts s to NFC so that
// names typed on different keyboards compare equal.
func NormalizeText(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

// Normalized returns o with client and product names in canonical form.
func (o Order) Normalized() Order {
	o = o.Clone()
	o.Client = NormalizeText(o.Client)
	for i := range o.Items {
		o.Items[i].ProductName = NormalizeText(o.Items[i].ProductName)
	}
	return o
}

// Normalized returns p with name, SKU and material descriptors in canonical form.
func (p Product) Normalized() Product {
	p = p.Clone()
	p.Name = NormalizeText(p.Name)
	p.SKU = NormalizeText(p.SKU)
	for i := range p.Materials {
		p.Materials[i] = NormalizeText(p.Materials[i])
	}
	return p
}

// Normalized returns m with name and unit in canonical form.
func (m Material) Normalized() Material {
	m.Name = NormalizeText(m.Name)
	m.Unit = NormalizeText(m.Unit)
	return m
}
