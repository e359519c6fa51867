package domain

import "strings"

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "PENDING"
	PaymentStatusCompleted PaymentStatus = "COMPLETED"
	PaymentStatusFailed    PaymentStatus = "FAILED"
)

func (s PaymentStatus) IsTerminal() bool {
	return s == PaymentStatusCompleted || s == PaymentStatusFailed
}

// String representation (for logging)
func (s PaymentStatus) String() string {
	return string(s)
}

// CanTransitionTo reports whether moving from s to target is a legal payment
// transition. Only PENDING may move, and only to a terminal state; a terminal
// state never changes again, so stale or duplicate gateway notifications
// cannot regress a completed payment.
func CanTransitionTo(s, target PaymentStatus) bool {
	if s.IsTerminal() {
		return false
	}
	return target == PaymentStatusCompleted || target == PaymentStatusFailed
}

// MapAdminLabel maps the free-text status used by the admin dashboard,
// case-insensitively. Unrecognized labels map to PENDING.
func MapAdminLabel(label string) PaymentStatus {
	switch strings.ToUpper(strings.TrimSpace(label)) {
	case "COMPLETADO":
		return PaymentStatusCompleted
	case "FALLIDO", "RECHAZADO":
		return PaymentStatusFailed
	default:
		return PaymentStatusPending
	}
}

// MapGatewayStatus maps a raw gateway status string to the internal payment
// status. Unknown strings stay PENDING so that a newly introduced gateway
// status can never finalize an order by accident.
func MapGatewayStatus(status string) PaymentStatus {
	switch status {
	case "approved", "accredited":
		return PaymentStatusCompleted
	case "rejected", "cancelled", "canceled":
		return PaymentStatusFailed
	default:
		return PaymentStatusPending
	}
}
