package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/GG-IM/tiendas-mass-orders/internal/domain"
	"github.com/GG-IM/tiendas-mass-orders/internal/repository"
	"github.com/GG-IM/tiendas-mass-orders/internal/service"
)

// OrderService is the slice of the service layer the order endpoints use.
type OrderService interface {
	CreateOrder(ctx context.Context, req *service.CreateOrderRequest) (*domain.Order, error)
	GetOrder(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	UpdatePaymentStatusFromLabel(ctx context.Context, id uuid.UUID, label string) (*domain.Order, error)
}

type OrdersHandler struct {
	svc     OrderService
	catalog repository.CatalogReader
	timeout time.Duration
}

func NewOrdersHandler(svc OrderService, catalog repository.CatalogReader, timeout time.Duration) *OrdersHandler {
	return &OrdersHandler{
		svc:     svc,
		catalog: catalog,
		timeout: timeout,
	}
}

// Wire DTOs keep the Spanish field names of the original storefront API.

type DetalleDTO struct {
	ProductoID int64 `json:"productoId"`
	Cantidad   int   `json:"cantidad"`
}

type CreateOrderRequestDTO struct {
	UsuarioID      int64        `json:"usuarioId"`
	DireccionEnvio string       `json:"direccionEnvio"`
	MetodoPagoID   int64        `json:"metodoPagoId"`
	MetodoEnvioID  *int64       `json:"metodoEnvioId"`
	DeliveryType   string       `json:"deliveryType"`
	MontoTotal     float64      `json:"montoTotal"`
	Detalles       []DetalleDTO `json:"detalles"`
}

type CreateOrderResponseDTO struct {
	Mensaje    string `json:"mensaje"`
	PedidoID   string `json:"pedidoId"`
	EstadoPago string `json:"estado_pago"`
}

type MetodoPagoDTO struct {
	ID       int64   `json:"id"`
	Nombre   string  `json:"nombre"`
	Comision float64 `json:"comision"`
}

type MetodoEnvioDTO struct {
	ID     int64   `json:"id"`
	Nombre string  `json:"nombre"`
	Precio float64 `json:"precio"`
}

type DetalleResponseDTO struct {
	ID             int64   `json:"id"`
	ProductoID     int64   `json:"productoId"`
	Cantidad       int     `json:"cantidad"`
	PrecioUnitario float64 `json:"precioUnitario"`
}

// OrderResponseDTO duplicates the payment status under both estado_pago and
// estadoPago; existing storefront polling code reads each spelling in
// different places.
type OrderResponseDTO struct {
	ID             string               `json:"id"`
	UsuarioID      int64                `json:"usuarioId"`
	DireccionEnvio string               `json:"direccionEnvio"`
	DeliveryType   string               `json:"deliveryType"`
	Estado         string               `json:"estado"`
	EstadoPagoSnk  string               `json:"estado_pago"`
	EstadoPago     string               `json:"estadoPago"`
	MontoTotal     float64              `json:"montoTotal"`
	MetodoPago     *MetodoPagoDTO       `json:"metodoPago,omitempty"`
	MetodoEnvio    *MetodoEnvioDTO      `json:"metodoEnvio,omitempty"`
	Detalles       []DetalleResponseDTO `json:"detalles"`
	CreatedAt      string               `json:"createdAt"`
}

// POST /api/v1/orders
func (h *OrdersHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req CreateOrderRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.UsuarioID <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_input", "usuarioId must be positive")
		return
	}

	items := make([]service.CreateOrderItem, 0, len(req.Detalles))
	for _, d := range req.Detalles {
		items = append(items, service.CreateOrderItem{
			ProductID: d.ProductoID,
			Quantity:  d.Cantidad,
		})
	}

	order, err := h.svc.CreateOrder(ctx, &service.CreateOrderRequest{
		UserID:           req.UsuarioID,
		ShippingAddress:  req.DireccionEnvio,
		PaymentMethodID:  req.MetodoPagoID,
		ShippingMethodID: req.MetodoEnvioID,
		DeliveryType:     domain.DeliveryType(req.DeliveryType),
		SubmittedTotal:   decimal.NewFromFloat(req.MontoTotal),
		Items:            items,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, CreateOrderResponseDTO{
		Mensaje:    "pedido creado",
		PedidoID:   order.ID.String(),
		EstadoPago: string(order.PaymentStatus),
	})
}

// GET /api/v1/orders/{id}
func (h *OrdersHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_order_id", "order id must be a UUID")
		return
	}

	order, err := h.svc.GetOrder(ctx, id)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, h.convertOrder(ctx, order))
}

// PATCH /api/v1/orders/{id}/payment-status
func (h *OrdersHandler) UpdatePaymentStatus(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_order_id", "order id must be a UUID")
		return
	}

	var req struct {
		EstadoPago string `json:"estadoPago"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	order, err := h.svc.UpdatePaymentStatusFromLabel(ctx, id, req.EstadoPago)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, h.convertOrder(ctx, order))
}

func (h *OrdersHandler) convertOrder(ctx context.Context, order *domain.Order) OrderResponseDTO {
	dto := OrderResponseDTO{
		ID:             order.ID.String(),
		UsuarioID:      order.UserID,
		DireccionEnvio: order.ShippingAddress,
		DeliveryType:   string(order.DeliveryType),
		Estado:         string(order.Status),
		EstadoPagoSnk:  string(order.PaymentStatus),
		EstadoPago:     string(order.PaymentStatus),
		MontoTotal:     order.Total.InexactFloat64(),
		Detalles:       make([]DetalleResponseDTO, 0, len(order.Items)),
		CreatedAt:      order.CreatedAt.Format(time.RFC3339),
	}

	for _, item := range order.Items {
		dto.Detalles = append(dto.Detalles, DetalleResponseDTO{
			ID:             item.ID,
			ProductoID:     item.ProductID,
			Cantidad:       item.Quantity,
			PrecioUnitario: item.UnitPrice.InexactFloat64(),
		})
	}

	// Nested method details are best-effort; a missing row just leaves the
	// field out of the payload.
	if method, err := h.catalog.GetPaymentMethod(ctx, order.PaymentMethodID); err == nil {
		dto.MetodoPago = &MetodoPagoDTO{
			ID:       method.ID,
			Nombre:   method.Name,
			Comision: method.CommissionPct.InexactFloat64(),
		}
	}
	if order.ShippingMethodID != nil {
		if method, err := h.catalog.GetShippingMethod(ctx, *order.ShippingMethodID); err == nil {
			dto.MetodoEnvio = &MetodoEnvioDTO{
				ID:     method.ID,
				Nombre: method.Name,
				Precio: method.Price.InexactFloat64(),
			}
		}
	}

	return dto
}
