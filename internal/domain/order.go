package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "PENDING"
	OrderStatusConfirmed OrderStatus = "CONFIRMED"
	OrderStatusShipped   OrderStatus = "SHIPPED"
	OrderStatusDelivered OrderStatus = "DELIVERED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

type DeliveryType string

const (
	DeliveryTypeDelivery DeliveryType = "delivery"
	DeliveryTypePickup   DeliveryType = "pickup"
)

// OrderItem is a line item with the unit price captured at order time.
// It never changes after creation, regardless of later catalog price updates.
type OrderItem struct {
	ID        int64           `json:"id"`
	OrderID   uuid.UUID       `json:"order_id"`
	ProductID int64           `json:"product_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

type Order struct {
	ID               uuid.UUID
	UserID           int64
	ShippingAddress  string
	PaymentMethodID  int64
	ShippingMethodID *int64 // nil for pickup orders
	DeliveryType     DeliveryType
	Status           OrderStatus
	PaymentStatus    PaymentStatus
	Total            decimal.Decimal
	Items            []OrderItem
	CreatedAt        time.Time
	ShippedAt        *time.Time
}

// PaymentReference is the persisted order <-> gateway mapping. The preference
// id is known as soon as a hosted checkout is created; the payment id is bound
// later, when the first gateway notification for the order arrives.
type PaymentReference struct {
	OrderID      uuid.UUID
	PreferenceID string
	PaymentID    *string
	CreatedAt    time.Time
}
