package gateway

import (
	"fmt"

	"github.com/google/uuid"
)

// PreferenceItem is one line of the hosted checkout shown to the buyer.
type PreferenceItem struct {
	Title     string  `json:"title"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
}

type payer struct {
	Email string `json:"email"`
}

type backURLs struct {
	Success string `json:"success"`
	Failure string `json:"failure"`
	Pending string `json:"pending"`
}

type preferenceRequest struct {
	Items             []PreferenceItem       `json:"items"`
	Payer             payer                  `json:"payer"`
	ExternalReference string                 `json:"external_reference"`
	Metadata          map[string]interface{} `json:"metadata"`
	NotificationURL   string                 `json:"notification_url,omitempty"`
	BackURLs          backURLs               `json:"back_urls"`
	AutoReturn        string                 `json:"auto_return,omitempty"`
	BinaryMode        bool                   `json:"binary_mode"`
}

// Preference is the hosted checkout session created by the gateway.
type Preference struct {
	ID               string `json:"id"`
	InitPoint        string `json:"init_point"`
	SandboxInitPoint string `json:"sandbox_init_point"`
}

// Payment is the gateway's view of one payment attempt.
type Payment struct {
	ID                int64                  `json:"id"`
	Status            string                 `json:"status"`
	StatusDetail      string                 `json:"status_detail"`
	ExternalReference string                 `json:"external_reference"`
	Metadata          map[string]interface{} `json:"metadata"`
}

// OrderID extracts the order id the preference round-trip carried, preferring
// metadata and falling back to external_reference. The gateway lower-cases
// metadata keys, so both spellings are checked.
func (p *Payment) OrderID() (uuid.UUID, error) {
	for _, key := range []string{"order_id", "orderId"} {
		if v, ok := p.Metadata[key]; ok {
			if s, ok := v.(string); ok && s != "" {
				return uuid.Parse(s)
			}
		}
	}
	if p.ExternalReference != "" {
		return uuid.Parse(p.ExternalReference)
	}
	return uuid.Nil, fmt.Errorf("payment %d carries no order reference", p.ID)
}
