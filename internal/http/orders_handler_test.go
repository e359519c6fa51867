package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GG-IM/tiendas-mass-orders/internal/domain"
	"github.com/GG-IM/tiendas-mass-orders/internal/repository"
	"github.com/GG-IM/tiendas-mass-orders/internal/service"
)

// --- mocks ---

type orderServiceMock struct {
	order      *domain.Order
	err        error
	gotRequest *service.CreateOrderRequest
	gotLabel   string
}

func (m *orderServiceMock) CreateOrder(_ context.Context, req *service.CreateOrderRequest) (*domain.Order, error) {
	m.gotRequest = req
	if m.err != nil {
		return nil, m.err
	}
	return m.order, nil
}

func (m *orderServiceMock) GetOrder(_ context.Context, _ uuid.UUID) (*domain.Order, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.order, nil
}

func (m *orderServiceMock) UpdatePaymentStatusFromLabel(_ context.Context, _ uuid.UUID, label string) (*domain.Order, error) {
	m.gotLabel = label
	if m.err != nil {
		return nil, m.err
	}
	return m.order, nil
}

type catalogMock struct {
	paymentMethod  *domain.PaymentMethod
	shippingMethod *domain.ShippingMethod
}

func (m *catalogMock) GetUser(context.Context, int64) (*domain.User, error) {
	return nil, repository.ErrUserNotFound
}

func (m *catalogMock) GetProduct(context.Context, int64) (*domain.Product, error) {
	return nil, repository.ErrProductNotFound
}

func (m *catalogMock) GetPaymentMethod(context.Context, int64) (*domain.PaymentMethod, error) {
	if m.paymentMethod == nil {
		return nil, repository.ErrPaymentMethodNotFound
	}
	return m.paymentMethod, nil
}

func (m *catalogMock) GetShippingMethod(context.Context, int64) (*domain.ShippingMethod, error) {
	if m.shippingMethod == nil {
		return nil, repository.ErrShippingMethodNotFound
	}
	return m.shippingMethod, nil
}

func (m *catalogMock) GetDefaultShippingMethod(ctx context.Context) (*domain.ShippingMethod, error) {
	return m.GetShippingMethod(ctx, 0)
}

// --- helpers ---

func withOrderID(r *http.Request, id string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", id)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func dec(s string) decimal.Decimal {
	d, _ := decimal.NewFromString(s)
	return d
}

func sampleOrder() *domain.Order {
	shippingID := int64(1)
	return &domain.Order{
		ID:               uuid.New(),
		UserID:           1,
		ShippingAddress:  "Av. Siempre Viva 742",
		PaymentMethodID:  1,
		ShippingMethodID: &shippingID,
		DeliveryType:     domain.DeliveryTypeDelivery,
		Status:           domain.OrderStatusPending,
		PaymentStatus:    domain.PaymentStatusPending,
		Total:            dec("27.40"),
		Items: []domain.OrderItem{
			{ID: 1, ProductID: 10, Quantity: 2, UnitPrice: dec("10.00")},
		},
		CreatedAt: time.Date(2026, 2, 12, 10, 0, 0, 0, time.UTC),
	}
}

func newOrdersHandler(svc *orderServiceMock) *OrdersHandler {
	catalog := &catalogMock{
		paymentMethod:  &domain.PaymentMethod{ID: 1, Name: "Tarjeta", CommissionPct: dec("3")},
		shippingMethod: &domain.ShippingMethod{ID: 1, Name: "Standard", Price: dec("5.00")},
	}
	return NewOrdersHandler(svc, catalog, 5*time.Second)
}

// --- CreateOrder tests ---

const createBody = `{
	"usuarioId": 1,
	"direccionEnvio": "Av. Siempre Viva 742",
	"metodoPagoId": 1,
	"deliveryType": "delivery",
	"montoTotal": 27.40,
	"detalles": [{"productoId": 10, "cantidad": 2}]
}`

func TestCreateOrder_Created(t *testing.T) {
	mock := &orderServiceMock{order: sampleOrder()}
	handler := newOrdersHandler(mock)

	recorder := httptest.NewRecorder()
	request := httptest.NewRequest("POST", "/api/v1/orders", strings.NewReader(createBody))

	handler.CreateOrder(recorder, request)

	require.Equal(t, http.StatusCreated, recorder.Code)

	var resp CreateOrderResponseDTO
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&resp))
	assert.Equal(t, mock.order.ID.String(), resp.PedidoID)
	assert.Equal(t, "PENDING", resp.EstadoPago)

	require.NotNil(t, mock.gotRequest)
	assert.Equal(t, int64(1), mock.gotRequest.UserID)
	assert.True(t, mock.gotRequest.SubmittedTotal.Equal(dec("27.4")))
	require.Len(t, mock.gotRequest.Items, 1)
	assert.Equal(t, 2, mock.gotRequest.Items[0].Quantity)
}

func TestCreateOrder_InvalidJSON(t *testing.T) {
	handler := newOrdersHandler(&orderServiceMock{})

	recorder := httptest.NewRecorder()
	request := httptest.NewRequest("POST", "/api/v1/orders", strings.NewReader("{not json"))

	handler.CreateOrder(recorder, request)

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestCreateOrder_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"user missing", repository.ErrUserNotFound, http.StatusNotFound, "not_found"},
		{"bad payment method", repository.ErrPaymentMethodNotFound, http.StatusBadRequest, "invalid_input"},
		{"amount mismatch", service.ErrAmountMismatch, http.StatusUnprocessableEntity, "amount_mismatch"},
		{
			"insufficient stock",
			&repository.InsufficientStockError{ProductID: 10, ProductName: "Arroz 1kg", Requested: 99},
			http.StatusConflict,
			"insufficient_stock",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := newOrdersHandler(&orderServiceMock{err: tt.err})

			recorder := httptest.NewRecorder()
			request := httptest.NewRequest("POST", "/api/v1/orders", strings.NewReader(createBody))

			handler.CreateOrder(recorder, request)

			assert.Equal(t, tt.wantStatus, recorder.Code)

			var resp ErrorResponse
			require.NoError(t, json.NewDecoder(recorder.Body).Decode(&resp))
			assert.Equal(t, tt.wantCode, resp.Code)
		})
	}
}

func TestCreateOrder_StockErrorNamesProduct(t *testing.T) {
	handler := newOrdersHandler(&orderServiceMock{
		err: &repository.InsufficientStockError{ProductID: 10, ProductName: "Arroz 1kg", Requested: 99},
	})

	recorder := httptest.NewRecorder()
	request := httptest.NewRequest("POST", "/api/v1/orders", strings.NewReader(createBody))

	handler.CreateOrder(recorder, request)

	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&resp))
	assert.Contains(t, resp.Error, "Arroz 1kg")
}

// --- GetOrder tests ---

func TestGetOrder_Success(t *testing.T) {
	order := sampleOrder()
	handler := newOrdersHandler(&orderServiceMock{order: order})

	recorder := httptest.NewRecorder()
	request := withOrderID(httptest.NewRequest("GET", "/api/v1/orders/"+order.ID.String(), nil), order.ID.String())

	handler.GetOrder(recorder, request)

	require.Equal(t, http.StatusOK, recorder.Code)

	var resp map[string]interface{}
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&resp))

	// both spellings carry the payment status for client compatibility
	assert.Equal(t, "PENDING", resp["estado_pago"])
	assert.Equal(t, "PENDING", resp["estadoPago"])
	assert.Equal(t, order.ID.String(), resp["id"])

	metodoPago, ok := resp["metodoPago"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "Tarjeta", metodoPago["nombre"])

	metodoEnvio, ok := resp["metodoEnvio"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, 5.0, metodoEnvio["precio"])

	detalles, ok := resp["detalles"].([]interface{})
	require.True(t, ok)
	require.Len(t, detalles, 1)
}

func TestGetOrder_BadID(t *testing.T) {
	handler := newOrdersHandler(&orderServiceMock{})

	recorder := httptest.NewRecorder()
	request := withOrderID(httptest.NewRequest("GET", "/api/v1/orders/nope", nil), "nope")

	handler.GetOrder(recorder, request)

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestGetOrder_NotFound(t *testing.T) {
	handler := newOrdersHandler(&orderServiceMock{err: repository.ErrOrderNotFound})

	id := uuid.New().String()
	recorder := httptest.NewRecorder()
	request := withOrderID(httptest.NewRequest("GET", "/api/v1/orders/"+id, nil), id)

	handler.GetOrder(recorder, request)

	assert.Equal(t, http.StatusNotFound, recorder.Code)
}

// --- UpdatePaymentStatus tests ---

func TestUpdatePaymentStatus(t *testing.T) {
	order := sampleOrder()
	order.PaymentStatus = domain.PaymentStatusCompleted
	mock := &orderServiceMock{order: order}
	handler := newOrdersHandler(mock)

	recorder := httptest.NewRecorder()
	request := withOrderID(httptest.NewRequest(
		"PATCH", "/api/v1/orders/"+order.ID.String()+"/payment-status",
		strings.NewReader(`{"estadoPago":"Completado"}`)), order.ID.String())

	handler.UpdatePaymentStatus(recorder, request)

	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "Completado", mock.gotLabel)

	var resp map[string]interface{}
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&resp))
	assert.Equal(t, "COMPLETED", resp["estado_pago"])
}
