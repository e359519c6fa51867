package domain

import "github.com/shopspring/decimal"

// Catalog entities are read-only collaborators of the reconciliation core.
// They are maintained by the surrounding CRUD layer; this service only looks
// them up (and, for products, decrements stock inside the order transaction).

type User struct {
	ID    int64
	Email string
	Name  string
}

type Product struct {
	ID    int64
	Name  string
	Price decimal.Decimal
	Stock int
}

type PaymentMethod struct {
	ID            int64
	Name          string
	CommissionPct decimal.Decimal // zero when the method carries no commission
}

type ShippingMethod struct {
	ID    int64
	Name  string
	Price decimal.Decimal
}
