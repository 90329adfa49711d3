// Package domain defines the workshop entities managed by the sync engine:
// orders, products, raw materials and the tenant settings record.
//
// Values in this package are plain data. Every collection accessor in the
// rest of the module hands out copies produced by the Clone helpers here, so
// callers may mutate what they receive without affecting shared state.
package domain
