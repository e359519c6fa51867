package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/GG-IM/tiendas-mass-orders/internal/domain"
	"github.com/GG-IM/tiendas-mass-orders/internal/gateway"
	"github.com/GG-IM/tiendas-mass-orders/internal/repository"
)

// MockCatalog implements repository.CatalogReader for testing
type MockCatalog struct {
	Users           map[int64]*domain.User
	Products        map[int64]*domain.Product
	PaymentMethods  map[int64]*domain.PaymentMethod
	ShippingMethods map[int64]*domain.ShippingMethod
	Err             error
}

func (m *MockCatalog) GetUser(_ context.Context, id int64) (*domain.User, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	u, ok := m.Users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	return u, nil
}

func (m *MockCatalog) GetProduct(_ context.Context, id int64) (*domain.Product, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	p, ok := m.Products[id]
	if !ok {
		return nil, repository.ErrProductNotFound
	}
	return p, nil
}

func (m *MockCatalog) GetPaymentMethod(_ context.Context, id int64) (*domain.PaymentMethod, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	pm, ok := m.PaymentMethods[id]
	if !ok {
		return nil, repository.ErrPaymentMethodNotFound
	}
	return pm, nil
}

func (m *MockCatalog) GetShippingMethod(_ context.Context, id int64) (*domain.ShippingMethod, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	sm, ok := m.ShippingMethods[id]
	if !ok {
		return nil, repository.ErrShippingMethodNotFound
	}
	return sm, nil
}

func (m *MockCatalog) GetDefaultShippingMethod(_ context.Context) (*domain.ShippingMethod, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	var lowest *domain.ShippingMethod
	for _, sm := range m.ShippingMethods {
		if lowest == nil || sm.ID < lowest.ID {
			lowest = sm
		}
	}
	if lowest == nil {
		return nil, repository.ErrShippingMethodNotFound
	}
	return lowest, nil
}

// MockOrderStore implements repository.OrderStore for testing. Its
// ApplyPaymentStatus mirrors the real CAS semantics so reconciliation tests
// exercise the monotonic transition.
type MockOrderStore struct {
	Orders        map[uuid.UUID]*domain.Order
	References    map[string]*domain.PaymentReference
	BoundPayments map[uuid.UUID]string

	CreateErr    error
	CreatedOrder *domain.Order
	ApplyCalls   int
	GetCalls     int
	// GetOrderHook runs before each GetOrderByID, letting tests flip the
	// order state mid-poll.
	GetOrderHook func(calls int)
}

func NewMockOrderStore() *MockOrderStore {
	return &MockOrderStore{
		Orders:        make(map[uuid.UUID]*domain.Order),
		References:    make(map[string]*domain.PaymentReference),
		BoundPayments: make(map[uuid.UUID]string),
	}
}

func (m *MockOrderStore) CreateOrder(_ context.Context, order *domain.Order) error {
	if m.CreateErr != nil {
		return m.CreateErr
	}
	m.CreatedOrder = order
	m.Orders[order.ID] = order
	return nil
}

func (m *MockOrderStore) GetOrderByID(_ context.Context, id uuid.UUID) (*domain.Order, error) {
	m.GetCalls++
	if m.GetOrderHook != nil {
		m.GetOrderHook(m.GetCalls)
	}
	o, ok := m.Orders[id]
	if !ok {
		return nil, repository.ErrOrderNotFound
	}
	return o, nil
}

func (m *MockOrderStore) ApplyPaymentStatus(_ context.Context, id uuid.UUID, target domain.PaymentStatus) (bool, error) {
	m.ApplyCalls++
	o, ok := m.Orders[id]
	if !ok {
		return false, repository.ErrOrderNotFound
	}
	if !domain.CanTransitionTo(o.PaymentStatus, target) {
		return false, nil
	}
	o.PaymentStatus = target
	return true, nil
}

func (m *MockOrderStore) SavePaymentReference(_ context.Context, ref *domain.PaymentReference) error {
	if _, exists := m.References[ref.PreferenceID]; exists {
		return repository.ErrDuplicatePreference
	}
	m.References[ref.PreferenceID] = ref
	return nil
}

func (m *MockOrderStore) BindPaymentID(_ context.Context, orderID uuid.UUID, paymentID string) error {
	m.BoundPayments[orderID] = paymentID
	return nil
}

func (m *MockOrderStore) GetReferenceByPreferenceID(_ context.Context, preferenceID string) (*domain.PaymentReference, error) {
	ref, ok := m.References[preferenceID]
	if !ok {
		return nil, repository.ErrReferenceNotFound
	}
	return ref, nil
}

// MockGateway implements GatewayClient for testing
type MockGateway struct {
	Preference    *gateway.Preference
	PreferenceErr error
	Payments      map[string]*gateway.Payment
	PaymentErr    error
	GetCalls      int
}

func (m *MockGateway) CreatePreference(_ context.Context, _ uuid.UUID, _ string, _ []gateway.PreferenceItem) (*gateway.Preference, error) {
	if m.PreferenceErr != nil {
		return nil, m.PreferenceErr
	}
	return m.Preference, nil
}

func (m *MockGateway) GetPayment(_ context.Context, paymentID string) (*gateway.Payment, error) {
	m.GetCalls++
	if m.PaymentErr != nil {
		return nil, m.PaymentErr
	}
	p, ok := m.Payments[paymentID]
	if !ok {
		return nil, fmt.Errorf("%w: payment %s not found", gateway.ErrGateway, paymentID)
	}
	return p, nil
}

func (m *MockGateway) UseSandbox() bool {
	return true
}
