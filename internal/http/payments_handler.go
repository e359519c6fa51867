package http

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/GG-IM/tiendas-mass-orders/internal/gateway"
	"github.com/GG-IM/tiendas-mass-orders/internal/service"
)

// PaymentService is the slice of the service layer the payment endpoints use.
type PaymentService interface {
	CreateCheckoutPreference(ctx context.Context, orderID uuid.UUID, payerEmail string, items []gateway.PreferenceItem) (*gateway.Preference, error)
	ApplyNotification(ctx context.Context, notificationType, paymentID string) error
	ConfirmPayment(ctx context.Context, id string) (*service.ConfirmResult, error)
}

type PaymentsHandler struct {
	svc        PaymentService
	useSandbox bool
	timeout    time.Duration
}

func NewPaymentsHandler(svc PaymentService, useSandbox bool, timeout time.Duration) *PaymentsHandler {
	return &PaymentsHandler{
		svc:        svc,
		useSandbox: useSandbox,
		timeout:    timeout,
	}
}

type CreatePreferenceRequestDTO struct {
	OrderID    string                   `json:"orderId"`
	PayerEmail string                   `json:"payerEmail"`
	Items      []gateway.PreferenceItem `json:"items"`
}

type PreferenceResponseDTO struct {
	ID               string `json:"id"`
	InitPoint        string `json:"init_point"`
	SandboxInitPoint string `json:"sandbox_init_point"`
	UseSandbox       bool   `json:"useSandbox"`
}

type ConfirmRequestDTO struct {
	PaymentID    string `json:"paymentId"`
	PreferenceID string `json:"preferenceId"`
}

type ConfirmResponseDTO struct {
	PaymentID    string `json:"paymentId"`
	StatusMp     string `json:"statusMp"`
	StatusDetail string `json:"statusDetail"`
	OrderID      string `json:"orderId"`
}

// POST /api/v1/payments/preference
func (h *PaymentsHandler) CreatePreference(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req CreatePreferenceRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	orderID, err := uuid.Parse(req.OrderID)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_order_id", "orderId must be a UUID")
		return
	}
	if len(req.Items) == 0 {
		respondError(w, http.StatusBadRequest, "invalid_input", "items must not be empty")
		return
	}

	pref, err := h.svc.CreateCheckoutPreference(ctx, orderID, req.PayerEmail, req.Items)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, PreferenceResponseDTO{
		ID:               pref.ID,
		InitPoint:        pref.InitPoint,
		SandboxInitPoint: pref.SandboxInitPoint,
		UseSandbox:       h.useSandbox,
	})
}

// Webhook handles POST and GET gateway notifications. It always answers 200:
// a non-2xx here would put the gateway into its own retry storm, and the
// polling confirm path covers anything that fails internally.
func (h *PaymentsHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	notificationType, paymentID := extractNotification(r)

	if err := h.svc.ApplyNotification(ctx, notificationType, paymentID); err != nil {
		log.Printf("webhook processing failed (type=%q id=%q request=%s): %v",
			notificationType, paymentID, getRequestID(r.Context()), err)
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// extractNotification pulls the notification type and payment id from the
// query string or, for POST, from the JSON body. The gateway uses both
// `type`/`data.id` and the older `topic`/`id` spellings.
func extractNotification(r *http.Request) (string, string) {
	q := r.URL.Query()

	notificationType := q.Get("type")
	if notificationType == "" {
		notificationType = q.Get("topic")
	}
	paymentID := q.Get("data.id")
	if paymentID == "" {
		paymentID = q.Get("id")
	}

	if notificationType != "" && paymentID != "" {
		return notificationType, paymentID
	}

	if r.Method == http.MethodPost && r.Body != nil {
		var body struct {
			Type string `json:"type"`
			Data struct {
				ID string `json:"id"`
			} `json:"data"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err == nil {
			if notificationType == "" {
				notificationType = body.Type
			}
			if paymentID == "" {
				paymentID = body.Data.ID
			}
		}
	}

	return notificationType, paymentID
}

// POST /api/v1/payments/confirm
func (h *PaymentsHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req ConfirmRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	id := req.PaymentID
	if id == "" {
		id = req.PreferenceID
	}
	if id == "" {
		respondError(w, http.StatusBadRequest, "invalid_input", "paymentId or preferenceId is required")
		return
	}

	result, err := h.svc.ConfirmPayment(ctx, id)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, ConfirmResponseDTO{
		PaymentID:    result.PaymentID,
		StatusMp:     result.GatewayStatus,
		StatusDetail: result.StatusDetail,
		OrderID:      result.OrderID,
	})
}
