package paymentprovider

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BekzhanK1/moodlog-backend/internal/config"
	"github.com/BekzhanK1/moodlog-backend/internal/models"
)

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := config.Gateway{
		GatewayAPIURL:    srv.URL + "/",
		GatewayAPIKey:    "test-key",
		CashboxID:        "cashbox-1",
		GatewayTimeout:   time.Second,
		ReturnURL:        "https://moodlog.kz/payment/success",
		CancelURL:        "https://moodlog.kz/payment/cancel",
		BreakerFailures:  3,
		BreakerOpenDelay: time.Minute,
	}
	return NewClient(cfg, "KZT", newNoopLogger()), srv
}

func TestClient_CreateSession(t *testing.T) {
	var got createOrderRequest
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/orders/create", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"order_id":"order-1","payment_url":"https://pay.webkassa.kz/o/1","status":"pending"}`))
	})

	session, err := client.CreateSession(context.Background(), SessionRequest{
		OrderID: "order-1",
		UserUID: "user-1",
		Email:   "user@example.com",
		Plan:    models.PlanProMonth,
		Amount:  1990,
	})
	require.NoError(t, err)
	assert.Equal(t, "https://pay.webkassa.kz/o/1", session.PaymentURL)
	assert.Equal(t, "order-1", session.ExternalOrderID)

	assert.Equal(t, "cashbox-1", got.CashboxID)
	assert.Equal(t, "order-1", got.OrderID)
	assert.Equal(t, int64(1990), got.Amount)
	assert.Equal(t, "KZT", got.Currency)
	assert.Equal(t, "user@example.com", got.CustomerEmail)
	assert.Equal(t, "https://moodlog.kz/payment/success", got.ReturnURL)
	assert.Equal(t, "https://moodlog.kz/payment/cancel", got.CancelURL)
	assert.Contains(t, got.Description, "pro_month")
}

func TestClient_CreateSession_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{name: "server error", status: http.StatusBadGateway, body: `oops`, wantErr: models.ErrGatewayUnavailable},
		{name: "bad request", status: http.StatusBadRequest, body: `{"error":"bad cashbox"}`, wantErr: models.ErrGatewayRejected},
		{name: "empty payment url", status: http.StatusOK, body: `{"order_id":"o"}`, wantErr: models.ErrGatewayRejected},
		{name: "invalid json", status: http.StatusOK, body: `not json`, wantErr: models.ErrGatewayRejected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})
			_, err := client.CreateSession(context.Background(), SessionRequest{OrderID: "o", Plan: models.PlanProYear, Amount: 19100})
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestClient_Timeout(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(3 * time.Second):
		case <-r.Context().Done():
		}
		w.WriteHeader(http.StatusOK)
	})

	start := time.Now()
	_, err := client.CreateSession(context.Background(), SessionRequest{OrderID: "o", Plan: models.PlanProMonth})
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrGatewayUnavailable)
	assert.Less(t, time.Since(start), 3*time.Second)
}

func TestClient_BreakerOpensAfterConsecutiveFailures(t *testing.T) {
	var calls atomic.Int32
	client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	for range 3 {
		_, err := client.CheckStatus(context.Background(), "order-1")
		require.ErrorIs(t, err, models.ErrGatewayUnavailable)
	}
	require.Equal(t, int32(3), calls.Load())

	_, err := client.CheckStatus(context.Background(), "order-1")
	require.ErrorIs(t, err, models.ErrGatewayUnavailable)
	assert.Equal(t, int32(3), calls.Load(), "open breaker must not reach the gateway")
}

func TestClient_RejectionsDoNotTripBreaker(t *testing.T) {
	var calls atomic.Int32
	client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	})

	for range 5 {
		_, err := client.CheckStatus(context.Background(), "order-1")
		require.ErrorIs(t, err, models.ErrGatewayRejected)
	}
	assert.Equal(t, int32(5), calls.Load())
}

func TestClient_CheckStatus(t *testing.T) {
	tests := []struct {
		gatewayStatus string
		want          models.PaymentStatus
	}{
		{"success", models.PaymentSucceeded},
		{"pending", models.PaymentPending},
		{"failed", models.PaymentFailed},
		{"cancelled", models.PaymentCancelled},
	}

	for _, tt := range tests {
		t.Run(tt.gatewayStatus, func(t *testing.T) {
			client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodGet, r.Method)
				assert.Equal(t, "/orders/order%2F1/status", r.URL.EscapedPath())
				_, _ = w.Write([]byte(`{"order_id":"order/1","status":"` + tt.gatewayStatus + `"}`))
			})
			res, err := client.CheckStatus(context.Background(), "order/1")
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.Outcome)
			assert.Equal(t, tt.gatewayStatus, res.GatewayStatus)
		})
	}
}

func TestClient_IssueReceipt(t *testing.T) {
	var got issueReceiptRequest
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/receipts/issue", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"receipt_id":"RC-42"}`))
	})

	id, err := client.IssueReceipt(context.Background(), "order-9", 19100, "a@b.kz")
	require.NoError(t, err)
	assert.Equal(t, "RC-42", id)
	assert.Equal(t, issueReceiptRequest{CashboxID: "cashbox-1", OrderID: "order-9", Amount: 19100, CustomerEmail: "a@b.kz"}, got)
}
