package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/GG-IM/tiendas-mass-orders/internal/domain"
	"github.com/GG-IM/tiendas-mass-orders/internal/repository"
)

// ConfirmResult is the synchronous confirmation verdict returned to the
// storefront's polling loop.
type ConfirmResult struct {
	PaymentID     string
	GatewayStatus string
	StatusDetail  string
	OrderID       string
	PaymentStatus domain.PaymentStatus
}

// ConfirmPayment resolves the given identifier against the persisted
// order<->gateway mapping instead of guessing its kind from its shape. A
// known preference id waits on the local order to settle (the webhook is the
// writer); anything else is treated as a gateway payment id and reconciled
// directly.
func (s *OrderService) ConfirmPayment(ctx context.Context, id string) (*ConfirmResult, error) {
	ref, err := s.orders.GetReferenceByPreferenceID(ctx, id)
	if err == nil {
		return s.awaitLocalSettlement(ctx, ref)
	}
	if !errors.Is(err, repository.ErrReferenceNotFound) {
		return nil, err
	}

	return s.confirmByPaymentID(ctx, id)
}

// awaitLocalSettlement polls the stored order, bounded to pollAttempts at
// pollInterval spacing, and reports a pending verdict when time runs out.
// The client keeps its own longer polling loop on top of this.
func (s *OrderService) awaitLocalSettlement(ctx context.Context, ref *domain.PaymentReference) (*ConfirmResult, error) {
	paymentID := ""
	if ref.PaymentID != nil {
		paymentID = *ref.PaymentID
	}

	var order *domain.Order
	for attempt := 0; attempt < s.pollAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(s.pollInterval):
			}
		}

		var err error
		order, err = s.orders.GetOrderByID(ctx, ref.OrderID)
		if err != nil {
			return nil, err
		}
		if order.PaymentStatus.IsTerminal() {
			break
		}
	}

	result := &ConfirmResult{
		PaymentID:     paymentID,
		OrderID:       ref.OrderID.String(),
		PaymentStatus: order.PaymentStatus,
	}
	switch order.PaymentStatus {
	case domain.PaymentStatusCompleted:
		result.GatewayStatus = "approved"
	case domain.PaymentStatusFailed:
		result.GatewayStatus = "rejected"
	default:
		result.GatewayStatus = "pending"
	}
	return result, nil
}

// confirmByPaymentID queries the gateway directly and applies the outcome,
// serving as the fallback path when webhook delivery is delayed or lost.
func (s *OrderService) confirmByPaymentID(ctx context.Context, paymentID string) (*ConfirmResult, error) {
	payment, err := s.gateway.GetPayment(ctx, paymentID)
	if err != nil {
		return nil, err
	}

	orderID, err := payment.OrderID()
	if err != nil {
		return nil, err
	}

	mapped := domain.MapGatewayStatus(payment.Status)
	if mapped.IsTerminal() {
		if _, applyErr := s.orders.ApplyPaymentStatus(ctx, orderID, mapped); applyErr != nil {
			return nil, applyErr
		}
	}
	if bindErr := s.orders.BindPaymentID(ctx, orderID, fmt.Sprint(payment.ID)); bindErr != nil {
		return nil, bindErr
	}

	return &ConfirmResult{
		PaymentID:     fmt.Sprint(payment.ID),
		GatewayStatus: payment.Status,
		StatusDetail:  payment.StatusDetail,
		OrderID:       orderID.String(),
		PaymentStatus: mapped,
	}, nil
}
