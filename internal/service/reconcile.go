package service

import (
	"context"
	"log"

	"github.com/GG-IM/tiendas-mass-orders/internal/domain"
)

// ApplyNotification processes one gateway webhook delivery. Notifications
// other than payment events are ignored. The mapped status is applied through
// the monotonic PENDING -> COMPLETED|FAILED transition, so re-delivering the
// same notification, or delivering a stale one after the order settled, is
// harmless.
//
// The webhook handler always answers 200 regardless of what happens here;
// errors returned from this method are logged, not surfaced to the gateway.
func (s *OrderService) ApplyNotification(ctx context.Context, notificationType, paymentID string) error {
	if notificationType != "payment" || paymentID == "" {
		log.Printf("ignoring notification type=%q id=%q", notificationType, paymentID)
		return nil
	}

	payment, err := s.gateway.GetPayment(ctx, paymentID)
	if err != nil {
		return err
	}

	orderID, err := payment.OrderID()
	if err != nil {
		return err
	}

	if bindErr := s.orders.BindPaymentID(ctx, orderID, paymentID); bindErr != nil {
		// Binding is best-effort; reconciliation itself keys on the order id.
		log.Printf("failed to bind payment %s to order %s: %v", paymentID, orderID, bindErr)
	}

	mapped := domain.MapGatewayStatus(payment.Status)
	if mapped == domain.PaymentStatusPending {
		log.Printf("payment %s for order %s still %s (%s), nothing to apply",
			paymentID, orderID, payment.Status, payment.StatusDetail)
		return nil
	}

	applied, err := s.orders.ApplyPaymentStatus(ctx, orderID, mapped)
	if err != nil {
		return err
	}
	if !applied {
		log.Printf("notification for order %s ignored: payment status already terminal", orderID)
		return nil
	}

	log.Printf("order %s payment status -> %s (gateway: %s/%s)",
		orderID, mapped, payment.Status, payment.StatusDetail)
	return nil
}
