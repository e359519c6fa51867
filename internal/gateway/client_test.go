package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(baseURL string) *Client {
	return NewClient(Config{
		AccessToken:   "test-token",
		BaseURL:       baseURL,
		PublicBaseURL: "https://shop.example.com",
		SuccessURL:    "https://shop.example.com/pago/exito",
		FailureURL:    "https://shop.example.com/pago/error",
		PendingURL:    "https://shop.example.com/pago/pendiente",
		BinaryMode:    true,
	})
}

func TestCreatePreference(t *testing.T) {
	orderID := uuid.New()
	var captured preferenceRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/checkout/preferences", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))

		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		_ = json.NewEncoder(w).Encode(Preference{
			ID:               "pref-abc",
			InitPoint:        "https://gw/init",
			SandboxInitPoint: "https://gw/sandbox",
		})
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	items := []PreferenceItem{{Title: "Arroz 1kg", Quantity: 2, UnitPrice: 10.0}}

	pref, err := client.CreatePreference(context.Background(), orderID, "ana@example.com", items)

	require.NoError(t, err)
	assert.Equal(t, "pref-abc", pref.ID)
	assert.Equal(t, "https://gw/init", pref.InitPoint)

	// the order id must survive the round-trip in both carriers
	assert.Equal(t, orderID.String(), captured.ExternalReference)
	assert.Equal(t, orderID.String(), captured.Metadata["order_id"])
	assert.Equal(t, "ana@example.com", captured.Payer.Email)
	assert.Equal(t, "https://shop.example.com/api/v1/payments/webhook", captured.NotificationURL)
	assert.True(t, captured.BinaryMode)
	require.Len(t, captured.Items, 1)
	assert.Equal(t, "Arroz 1kg", captured.Items[0].Title)
}

func TestCreatePreference_MissingID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.CreatePreference(context.Background(), uuid.New(), "a@b.c", nil)

	assert.ErrorIs(t, err, ErrGateway)
}

func TestGetPayment(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/payments/9001", r.URL.Path)
		_ = json.NewEncoder(w).Encode(Payment{
			ID:                9001,
			Status:            "approved",
			StatusDetail:      "accredited",
			ExternalReference: "some-order",
		})
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	payment, err := client.GetPayment(context.Background(), "9001")

	require.NoError(t, err)
	assert.Equal(t, int64(9001), payment.ID)
	assert.Equal(t, "approved", payment.Status)
}

func TestGetPayment_GatewayFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"not found"}`, http.StatusNotFound)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.GetPayment(context.Background(), "missing")

	assert.ErrorIs(t, err, ErrGateway)
}

func TestPaymentOrderID(t *testing.T) {
	orderID := uuid.New()

	tests := []struct {
		name    string
		payment Payment
		wantErr bool
	}{
		{"metadata order_id", Payment{Metadata: map[string]interface{}{"order_id": orderID.String()}}, false},
		{"metadata orderId", Payment{Metadata: map[string]interface{}{"orderId": orderID.String()}}, false},
		{"external reference fallback", Payment{ExternalReference: orderID.String()}, false},
		{"no reference at all", Payment{}, true},
		{"garbage reference", Payment{ExternalReference: "not-a-uuid"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.payment.OrderID()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, orderID, got)
		})
	}
}
