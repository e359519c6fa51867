package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/GG-IM/tiendas-mass-orders/internal/gateway"
	"github.com/GG-IM/tiendas-mass-orders/internal/repository"
	"github.com/GG-IM/tiendas-mass-orders/internal/service"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

func respondError(w http.ResponseWriter, status int, code, details string) {
	respondJSON(w, status, ErrorResponse{
		Error:   details,
		Code:    code,
		Details: details,
	})
}

// handleServiceError maps domain and repository errors onto the HTTP error
// taxonomy: not-found 404, invalid input 400, insufficient stock 409, amount
// mismatch 422, gateway failures 502, everything else 500.
func handleServiceError(w http.ResponseWriter, err error) {
	var stockErr *repository.InsufficientStockError

	switch {
	case errors.Is(err, repository.ErrUserNotFound),
		errors.Is(err, repository.ErrOrderNotFound),
		errors.Is(err, repository.ErrProductNotFound):
		respondError(w, http.StatusNotFound, "not_found", err.Error())

	case errors.Is(err, repository.ErrPaymentMethodNotFound),
		errors.Is(err, repository.ErrShippingMethodNotFound),
		errors.Is(err, service.ErrEmptyOrder),
		errors.Is(err, service.ErrInvalidQuantity),
		errors.Is(err, service.ErrInvalidDeliveryType):
		respondError(w, http.StatusBadRequest, "invalid_input", err.Error())

	case errors.As(err, &stockErr):
		respondError(w, http.StatusConflict, "insufficient_stock", stockErr.Error())

	case errors.Is(err, service.ErrAmountMismatch):
		respondError(w, http.StatusUnprocessableEntity, "amount_mismatch", err.Error())

	case errors.Is(err, gateway.ErrGateway):
		respondError(w, http.StatusBadGateway, "gateway_error", err.Error())

	default:
		log.Printf("internal error: %v", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
