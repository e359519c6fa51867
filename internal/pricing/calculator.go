package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/GG-IM/tiendas-mass-orders/internal/domain"
)

// LineItem is one priced cart entry. UnitPrice is the catalog price captured
// by the caller, not re-read here.
type LineItem struct {
	ProductID int64
	Quantity  int
	UnitPrice decimal.Decimal
}

// Quote holds every stage of the total computation. Each stage is rounded to
// 2 decimal places before feeding the next one; the order of operations is
// part of the contract because clients recompute and compare the total.
type Quote struct {
	Subtotal   decimal.Decimal
	Tax        decimal.Decimal
	Shipping   decimal.Decimal
	Base       decimal.Decimal
	Commission decimal.Decimal
	Total      decimal.Decimal
}

// Calculator computes order totals. TaxRate is a fraction (0.08 for 8%).
type Calculator struct {
	TaxRate decimal.Decimal
}

func NewCalculator(taxRate decimal.Decimal) *Calculator {
	return &Calculator{TaxRate: taxRate}
}

// Quote prices an order. Shipping is forced to zero for pickup orders no
// matter what shipping method was supplied. decimal.Round rounds half away
// from zero, matching currency semantics.
func (c *Calculator) Quote(
	items []LineItem,
	deliveryType domain.DeliveryType,
	shippingMethod *domain.ShippingMethod,
	paymentMethod *domain.PaymentMethod,
) Quote {

	subtotal := decimal.Zero
	for _, item := range items {
		subtotal = subtotal.Add(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	subtotal = subtotal.Round(2)

	tax := subtotal.Mul(c.TaxRate).Round(2)

	shipping := decimal.Zero
	if deliveryType == domain.DeliveryTypeDelivery && shippingMethod != nil {
		shipping = shippingMethod.Price
	}

	base := subtotal.Add(tax).Add(shipping)

	commission := decimal.Zero
	if paymentMethod != nil && !paymentMethod.CommissionPct.IsZero() {
		commission = base.Mul(paymentMethod.CommissionPct.Div(decimal.NewFromInt(100))).Round(2)
	}

	total := base.Add(commission).Round(2)

	return Quote{
		Subtotal:   subtotal,
		Tax:        tax,
		Shipping:   shipping,
		Base:       base,
		Commission: commission,
		Total:      total,
	}
}

// WithinTolerance reports whether a client-submitted total matches a computed
// total within 0.01 currency units. The client value is validated, never
// stored.
func WithinTolerance(submitted, computed decimal.Decimal) bool {
	tolerance := decimal.New(1, -2) // 0.01
	return submitted.Sub(computed).Abs().LessThanOrEqual(tolerance)
}
