package service

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/GG-IM/tiendas-mass-orders/internal/domain"
	"github.com/GG-IM/tiendas-mass-orders/internal/gateway"
	"github.com/GG-IM/tiendas-mass-orders/internal/pricing"
	"github.com/GG-IM/tiendas-mass-orders/internal/repository"
)

// GatewayClient is the outbound payment provider surface used by the service.
type GatewayClient interface {
	CreatePreference(ctx context.Context, orderID uuid.UUID, payerEmail string, items []gateway.PreferenceItem) (*gateway.Preference, error)
	GetPayment(ctx context.Context, paymentID string) (*gateway.Payment, error)
	UseSandbox() bool
}

type OrderService struct {
	catalog repository.CatalogReader
	orders  repository.OrderStore
	gateway GatewayClient
	calc    *pricing.Calculator

	// confirm-by-preference polling bounds
	pollAttempts int
	pollInterval time.Duration
}

func NewOrderService(
	catalog repository.CatalogReader,
	orders repository.OrderStore,
	gw GatewayClient,
	calc *pricing.Calculator,
) *OrderService {
	return &OrderService{
		catalog:      catalog,
		orders:       orders,
		gateway:      gw,
		calc:         calc,
		pollAttempts: 5,
		pollInterval: time.Second,
	}
}

type CreateOrderItem struct {
	ProductID int64
	Quantity  int
}

type CreateOrderRequest struct {
	UserID           int64
	ShippingAddress  string
	PaymentMethodID  int64
	ShippingMethodID *int64
	DeliveryType     domain.DeliveryType
	SubmittedTotal   decimal.Decimal
	Items            []CreateOrderItem
}

// CreateOrder validates the request, recomputes the total server-side and
// persists the order. Validation makes no writes; the persisted total is
// always the computed one. The transactional write re-checks stock per item
// with a conditional update, so a concurrent order racing past the validation
// pass rolls this one back instead of driving stock negative.
func (s *OrderService) CreateOrder(ctx context.Context, req *CreateOrderRequest) (*domain.Order, error) {
	if len(req.Items) == 0 {
		return nil, ErrEmptyOrder
	}
	if req.DeliveryType != domain.DeliveryTypeDelivery && req.DeliveryType != domain.DeliveryTypePickup {
		return nil, ErrInvalidDeliveryType
	}

	if _, err := s.catalog.GetUser(ctx, req.UserID); err != nil {
		return nil, err
	}

	paymentMethod, err := s.catalog.GetPaymentMethod(ctx, req.PaymentMethodID)
	if err != nil {
		return nil, err
	}

	var shippingMethod *domain.ShippingMethod
	var shippingMethodID *int64
	if req.DeliveryType == domain.DeliveryTypeDelivery {
		if req.ShippingMethodID != nil {
			shippingMethod, err = s.catalog.GetShippingMethod(ctx, *req.ShippingMethodID)
		} else {
			shippingMethod, err = s.catalog.GetDefaultShippingMethod(ctx)
		}
		if err != nil {
			return nil, err
		}
		shippingMethodID = &shippingMethod.ID
	}

	// Check-only pass: resolve products, verify stock and snapshot unit
	// prices. The authoritative stock check happens again inside the
	// transaction.
	lineItems := make([]pricing.LineItem, 0, len(req.Items))
	orderItems := make([]domain.OrderItem, 0, len(req.Items))
	for _, item := range req.Items {
		if item.Quantity <= 0 {
			return nil, ErrInvalidQuantity
		}
		product, prodErr := s.catalog.GetProduct(ctx, item.ProductID)
		if prodErr != nil {
			return nil, prodErr
		}
		if product.Stock < item.Quantity {
			return nil, &repository.InsufficientStockError{
				ProductID:   product.ID,
				ProductName: product.Name,
				Requested:   item.Quantity,
			}
		}
		lineItems = append(lineItems, pricing.LineItem{
			ProductID: product.ID,
			Quantity:  item.Quantity,
			UnitPrice: product.Price,
		})
		orderItems = append(orderItems, domain.OrderItem{
			ProductID: product.ID,
			Quantity:  item.Quantity,
			UnitPrice: product.Price,
		})
	}

	quote := s.calc.Quote(lineItems, req.DeliveryType, shippingMethod, paymentMethod)

	if !pricing.WithinTolerance(req.SubmittedTotal, quote.Total) {
		log.Printf("amount mismatch: submitted %s, computed %s", req.SubmittedTotal, quote.Total)
		return nil, ErrAmountMismatch
	}

	order := &domain.Order{
		ID:               uuid.New(),
		UserID:           req.UserID,
		ShippingAddress:  req.ShippingAddress,
		PaymentMethodID:  req.PaymentMethodID,
		ShippingMethodID: shippingMethodID,
		DeliveryType:     req.DeliveryType,
		Status:           domain.OrderStatusPending,
		PaymentStatus:    domain.PaymentStatusPending,
		Total:            quote.Total,
		Items:            orderItems,
	}

	if err := s.orders.CreateOrder(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}

func (s *OrderService) GetOrder(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	return s.orders.GetOrderByID(ctx, id)
}

// CreateCheckoutPreference opens a hosted checkout for an existing order and
// records the order<->preference mapping. Retried checkouts create a fresh
// preference row each time; the binding step later picks the newest one.
func (s *OrderService) CreateCheckoutPreference(ctx context.Context, orderID uuid.UUID, payerEmail string, items []gateway.PreferenceItem) (*gateway.Preference, error) {
	if _, err := s.orders.GetOrderByID(ctx, orderID); err != nil {
		return nil, err
	}

	pref, err := s.gateway.CreatePreference(ctx, orderID, payerEmail, items)
	if err != nil {
		return nil, err
	}

	ref := &domain.PaymentReference{OrderID: orderID, PreferenceID: pref.ID}
	if saveErr := s.orders.SavePaymentReference(ctx, ref); saveErr != nil {
		if errors.Is(saveErr, repository.ErrDuplicatePreference) {
			log.Printf("preference %s already registered for order %s", pref.ID, orderID)
		} else {
			// The buyer already has a checkout URL; losing the mapping
			// only degrades confirm-by-preference to gateway polling.
			log.Printf("failed to save payment reference for order %s: %v", orderID, saveErr)
		}
	}

	return pref, nil
}

// UpdatePaymentStatusFromLabel applies an administrative payment-status
// update given as free text. Labels map case-insensitively; anything
// unrecognized maps to PENDING, which is a no-op. The same monotonic
// transition rule applies: terminal orders are never rewritten.
func (s *OrderService) UpdatePaymentStatusFromLabel(ctx context.Context, orderID uuid.UUID, label string) (*domain.Order, error) {
	target := domain.MapAdminLabel(label)

	if target != domain.PaymentStatusPending {
		applied, err := s.orders.ApplyPaymentStatus(ctx, orderID, target)
		if err != nil {
			return nil, err
		}
		if !applied {
			log.Printf("payment status update to %s ignored for order %s: already terminal", target, orderID)
		}
	}

	return s.orders.GetOrderByID(ctx, orderID)
}
