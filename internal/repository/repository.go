package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/GG-IM/tiendas-mass-orders/internal/domain"
)

var (
	ErrUserNotFound           = errors.New("user not found")
	ErrProductNotFound        = errors.New("product not found")
	ErrOrderNotFound          = errors.New("order not found")
	ErrPaymentMethodNotFound  = errors.New("payment method not found")
	ErrShippingMethodNotFound = errors.New("shipping method not found")
	ErrReferenceNotFound      = errors.New("payment reference not found")
	ErrDuplicatePreference    = errors.New("preference already registered")
)

// InsufficientStockError names the offending product so order creation
// failures can surface a specific message to the buyer.
type InsufficientStockError struct {
	ProductID   int64
	ProductName string
	Requested   int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %q (id %d, requested %d)", e.ProductName, e.ProductID, e.Requested)
}

type Credentials struct {
	Host              string
	Port              int
	User              string
	Password          string
	DBName            string
	MigrationsDirPath string
}

// CatalogReader is the read-only view of the catalog tables. The surrounding
// CRUD layer owns writes to them.
type CatalogReader interface {
	GetUser(ctx context.Context, id int64) (*domain.User, error)
	GetProduct(ctx context.Context, id int64) (*domain.Product, error)
	GetPaymentMethod(ctx context.Context, id int64) (*domain.PaymentMethod, error)
	GetShippingMethod(ctx context.Context, id int64) (*domain.ShippingMethod, error)
	// GetDefaultShippingMethod returns the lowest-id method, the fallback
	// used when a delivery order names no method.
	GetDefaultShippingMethod(ctx context.Context) (*domain.ShippingMethod, error)
}

// OrderStore persists orders and their payment reconciliation state.
type OrderStore interface {
	// CreateOrder writes the order row, all line items and the stock
	// decrements in one transaction. Stock is decremented with a
	// conditional update; the whole transaction rolls back when any item
	// has insufficient stock, returning *InsufficientStockError.
	CreateOrder(ctx context.Context, order *domain.Order) error
	GetOrderByID(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	// ApplyPaymentStatus moves the order's payment status PENDING ->
	// target. Returns false when the order is already in a terminal state
	// (stale or duplicate notification) without touching the row.
	ApplyPaymentStatus(ctx context.Context, id uuid.UUID, target domain.PaymentStatus) (bool, error)

	SavePaymentReference(ctx context.Context, ref *domain.PaymentReference) error
	BindPaymentID(ctx context.Context, orderID uuid.UUID, paymentID string) error
	GetReferenceByPreferenceID(ctx context.Context, preferenceID string) (*domain.PaymentReference, error)
}

type OutboxEvent struct {
	ID          int64
	AggregateID string
	EventType   string
	Payload     []byte
	CreatedAt   time.Time
}

// OutboxStore feeds the Kafka publisher. Events are enqueued in the same
// transaction as the state change they describe.
type OutboxStore interface {
	GetUnprocessedEvents(ctx context.Context, limit int) ([]*OutboxEvent, error)
	MarkEventAsProcessed(ctx context.Context, id int64) error
}
