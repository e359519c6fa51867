package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker/v2"
)

// ErrGateway wraps every failure talking to the payment provider so callers
// can treat the whole class uniformly.
var ErrGateway = errors.New("payment gateway error")

type Config struct {
	AccessToken string
	BaseURL     string
	// PublicBaseURL is this service's externally reachable address, used to
	// build the webhook notification URL.
	PublicBaseURL string
	SuccessURL    string
	FailureURL    string
	PendingURL    string
	BinaryMode    bool
	UseSandbox    bool
	Timeout       time.Duration
}

type Client struct {
	cfg     Config
	http    *http.Client
	breaker *gobreaker.CircuitBreaker[[]byte]
}

func NewClient(cfg Config) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	breaker := gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:    "payment-gateway",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})
	return &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.Timeout},
		breaker: breaker,
	}
}

func (c *Client) UseSandbox() bool {
	return c.cfg.UseSandbox
}

// CreatePreference opens a hosted checkout for the order. The order id rides
// along as both external_reference and metadata so it survives the gateway
// round-trip into webhook notifications.
func (c *Client) CreatePreference(ctx context.Context, orderID uuid.UUID, payerEmail string, items []PreferenceItem) (*Preference, error) {
	req := preferenceRequest{
		Items:             items,
		Payer:             payer{Email: payerEmail},
		ExternalReference: orderID.String(),
		Metadata:          map[string]interface{}{"order_id": orderID.String()},
		BackURLs: backURLs{
			Success: c.cfg.SuccessURL,
			Failure: c.cfg.FailureURL,
			Pending: c.cfg.PendingURL,
		},
		AutoReturn: "approved",
		BinaryMode: c.cfg.BinaryMode,
	}
	if c.cfg.PublicBaseURL != "" {
		req.NotificationURL = c.cfg.PublicBaseURL + "/api/v1/payments/webhook"
	}

	body, err := c.do(ctx, http.MethodPost, "/checkout/preferences", req)
	if err != nil {
		return nil, err
	}

	var pref Preference
	if err := json.Unmarshal(body, &pref); err != nil {
		return nil, fmt.Errorf("%w: decode preference response: %v", ErrGateway, err)
	}
	if pref.ID == "" {
		return nil, fmt.Errorf("%w: preference response missing id", ErrGateway)
	}
	return &pref, nil
}

// GetPayment fetches a payment by its gateway id.
func (c *Client) GetPayment(ctx context.Context, paymentID string) (*Payment, error) {
	body, err := c.do(ctx, http.MethodGet, "/v1/payments/"+paymentID, nil)
	if err != nil {
		return nil, err
	}

	var payment Payment
	if err := json.Unmarshal(body, &payment); err != nil {
		return nil, fmt.Errorf("%w: decode payment response: %v", ErrGateway, err)
	}
	return &payment, nil
}

func (c *Client) do(ctx context.Context, method, path string, payload interface{}) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("%w: marshal request: %v", ErrGateway, err)
		}
		reqBody = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", ErrGateway, err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.cfg.AccessToken)
	if payload != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	body, err := c.breaker.Execute(func() ([]byte, error) {
		resp, doErr := c.http.Do(httpReq)
		if doErr != nil {
			return nil, doErr
		}
		defer resp.Body.Close()

		data, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return nil, readErr
		}
		if resp.StatusCode >= 400 {
			return nil, fmt.Errorf("status %d: %s", resp.StatusCode, truncate(data, 256))
		}
		return data, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %v", ErrGateway, method, path, err)
	}
	return body, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
