// Package paymentprovider изолирует протокол платёжного шлюза Webkassa.kz:
// открытие сессии оплаты, запрос статуса, выпуск фискального чека,
// разбор и проверку подписи уведомлений. Остальной код работает только
// с нормализованными типами этого пакета.
package paymentprovider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/BekzhanK1/moodlog-backend/internal/config"
	"github.com/BekzhanK1/moodlog-backend/internal/lib/metrics"
	"github.com/BekzhanK1/moodlog-backend/internal/models"
)

// Name имя шлюза в пути webhook.
const Name = "webkassa"

const maxResponseBody = 1 << 20

// rejectedError ответ 4xx: запрос отклонён, повтор не поможет и breaker не срабатывает.
type rejectedError struct {
	status int
	body   string
}

func (e *rejectedError) Error() string {
	return fmt.Sprintf("%s: status %d: %s", models.ErrGatewayRejected, e.status, e.body)
}

func (e *rejectedError) Unwrap() error { return models.ErrGatewayRejected }

// Client клиент Webkassa с ограниченным таймаутом и circuit breaker.
type Client struct {
	apiURL     string
	apiKey     string
	cashboxID  string
	currency   string
	returnURL  string
	cancelURL  string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker[[]byte]
	log        *slog.Logger
}

// NewClient создаёт клиент Webkassa.
func NewClient(cfg config.Gateway, currency string, log *slog.Logger) *Client {
	failures := cfg.BreakerFailures
	if failures == 0 {
		failures = 5
	}
	timeout := cfg.GatewayTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	c := &Client{
		apiURL:     strings.TrimRight(cfg.GatewayAPIURL, "/"),
		apiKey:     cfg.GatewayAPIKey,
		cashboxID:  cfg.CashboxID,
		currency:   currency,
		returnURL:  cfg.ReturnURL,
		cancelURL:  cfg.CancelURL,
		httpClient: &http.Client{Timeout: timeout},
		log:        log,
	}
	c.breaker = gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        Name,
		MaxRequests: 1,
		Timeout:     cfg.BreakerOpenDelay,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.GatewayBreakerState.Set(float64(to))
			log.Warn("gateway circuit breaker state changed",
				slog.String("gateway", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
		},
		IsSuccessful: func(err error) bool {
			var rejected *rejectedError
			return err == nil || errors.As(err, &rejected)
		},
	})
	return c
}

// CreateSession открывает заказ в Webkassa и возвращает ссылку на оплату.
func (c *Client) CreateSession(ctx context.Context, req SessionRequest) (*Session, error) {
	const op = "paymentprovider.CreateSession"

	body := createOrderRequest{
		CashboxID:     c.cashboxID,
		OrderID:       req.OrderID,
		Amount:        req.Amount,
		Currency:      c.currency,
		Description:   fmt.Sprintf("Подписка %s - Moodlog", req.Plan),
		CustomerEmail: req.Email,
		ReturnURL:     c.returnURL,
		CancelURL:     c.cancelURL,
	}
	var resp createOrderResponse
	if err := c.do(ctx, "create_order", http.MethodPost, "/orders/create", body, &resp); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if resp.PaymentURL == "" {
		return nil, fmt.Errorf("%s: %w: empty payment_url", op, models.ErrGatewayRejected)
	}

	orderID := resp.OrderID
	if orderID == "" {
		orderID = req.OrderID
	}
	return &Session{PaymentURL: resp.PaymentURL, ExternalOrderID: orderID}, nil
}

// CheckStatus запрашивает текущий статус заказа.
func (c *Client) CheckStatus(ctx context.Context, orderID string) (*StatusResult, error) {
	const op = "paymentprovider.CheckStatus"

	var resp orderStatusResponse
	path := "/orders/" + url.PathEscape(orderID) + "/status"
	if err := c.do(ctx, "check_status", http.MethodGet, path, nil, &resp); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	outcome, ok := mapStatus(resp.Status)
	if !ok {
		return nil, fmt.Errorf("%s: %w: unknown status %q", op, models.ErrGatewayRejected, resp.Status)
	}
	return &StatusResult{Outcome: outcome, GatewayStatus: resp.Status}, nil
}

// IssueReceipt выпускает фискальный чек по оплаченному заказу.
func (c *Client) IssueReceipt(ctx context.Context, orderID string, amount int64, email string) (string, error) {
	const op = "paymentprovider.IssueReceipt"

	body := issueReceiptRequest{
		CashboxID:     c.cashboxID,
		OrderID:       orderID,
		Amount:        amount,
		CustomerEmail: email,
	}
	var resp issueReceiptResponse
	if err := c.do(ctx, "issue_receipt", http.MethodPost, "/receipts/issue", body, &resp); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if resp.ReceiptID == "" {
		return "", fmt.Errorf("%s: %w: empty receipt_id", op, models.ErrGatewayRejected)
	}
	return resp.ReceiptID, nil
}

func (c *Client) do(ctx context.Context, operation, method, path string, in, out any) error {
	start := time.Now()
	raw, err := c.breaker.Execute(func() ([]byte, error) {
		return c.roundTrip(ctx, method, path, in)
	})
	metrics.GatewayRequestDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.GatewayRequestsTotal.WithLabelValues(operation, "error").Inc()
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return fmt.Errorf("%w: %v", models.ErrGatewayUnavailable, err)
		}
		return err
	}
	metrics.GatewayRequestsTotal.WithLabelValues(operation, "ok").Inc()

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: invalid response body: %v", models.ErrGatewayRejected, err)
	}
	return nil
}

func (c *Client) roundTrip(ctx context.Context, method, path string, in any) ([]byte, error) {
	var reqBody io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return nil, err
		}
		reqBody = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.apiURL+path, reqBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrGatewayUnavailable, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrGatewayUnavailable, err)
	}

	switch {
	case resp.StatusCode >= http.StatusInternalServerError:
		return nil, fmt.Errorf("%w: status %d", models.ErrGatewayUnavailable, resp.StatusCode)
	case resp.StatusCode >= http.StatusBadRequest:
		return nil, &rejectedError{status: resp.StatusCode, body: strings.TrimSpace(string(body))}
	}
	return body, nil
}
