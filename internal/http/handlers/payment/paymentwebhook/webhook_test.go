package paymentwebhook

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/BekzhanK1/moodlog-backend/internal/models"
	"github.com/BekzhanK1/moodlog-backend/internal/paymentprovider"
	"github.com/BekzhanK1/moodlog-backend/internal/services/payment"
)

type MockService struct{ mock.Mock }

func (m *MockService) ProcessNotification(ctx context.Context, raw []byte) (payment.Result, error) {
	args := m.Called(ctx, raw)
	return args.Get(0).(payment.Result), args.Error(1)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func TestWebhookHandler_ServeHTTP(t *testing.T) {
	signer := paymentprovider.NewSigner("whsec")
	body := []byte(`{"order_id":"ord-1","status":"success"}`)

	tests := []struct {
		name           string
		gateway        string
		signature      string
		setupMocks     func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name:      "processed",
			gateway:   "webkassa",
			signature: signer.Sign(body),
			setupMocks: func(s *MockService) {
				s.On("ProcessNotification", mock.Anything, body).Return(payment.ResultProcessed, nil).Once()
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `{"status":"OK","data":{"result":"processed"}}`,
		},
		{
			name:      "duplicate is acknowledged",
			gateway:   "webkassa",
			signature: signer.Sign(body),
			setupMocks: func(s *MockService) {
				s.On("ProcessNotification", mock.Anything, body).Return(payment.ResultDuplicate, nil).Once()
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `{"status":"OK","data":{"result":"duplicate"}}`,
		},
		{
			name:      "unknown payment is acknowledged",
			gateway:   "webkassa",
			signature: signer.Sign(body),
			setupMocks: func(s *MockService) {
				s.On("ProcessNotification", mock.Anything, body).Return(payment.ResultUnknown, nil).Once()
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `{"status":"OK","data":{"result":"unknown"}}`,
		},
		{
			name:           "unknown gateway",
			gateway:        "stripe",
			signature:      signer.Sign(body),
			setupMocks:     func(*MockService) {},
			expectedStatus: http.StatusNotFound,
			expectedBody:   `{"status":"Error","error":"unknown payment gateway"}`,
		},
		{
			name:           "bad signature",
			gateway:        "webkassa",
			signature:      paymentprovider.NewSigner("other").Sign(body),
			setupMocks:     func(*MockService) {},
			expectedStatus: http.StatusUnauthorized,
			expectedBody:   `{"status":"Error","error":"invalid notification signature"}`,
		},
		{
			name:           "missing signature",
			gateway:        "webkassa",
			setupMocks:     func(*MockService) {},
			expectedStatus: http.StatusUnauthorized,
			expectedBody:   `{"status":"Error","error":"invalid notification signature"}`,
		},
		{
			name:      "malformed",
			gateway:   "webkassa",
			signature: signer.Sign(body),
			setupMocks: func(s *MockService) {
				s.On("ProcessNotification", mock.Anything, body).
					Return(payment.Result(""), fmt.Errorf("x: %w", models.ErrMalformedNotification)).Once()
			},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `{"status":"Error","error":"malformed gateway notification"}`,
		},
		{
			name:      "storage failure asks for redelivery",
			gateway:   "webkassa",
			signature: signer.Sign(body),
			setupMocks: func(s *MockService) {
				s.On("ProcessNotification", mock.Anything, body).Return(payment.Result(""), errors.New("db down")).Once()
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   `{"status":"Error","error":"internal error"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockService)
			tt.setupMocks(svc)

			r := chi.NewRouter()
			r.Post("/webhook/{gateway}", New(newNoopLogger(), svc, signer).ServeHTTP)

			req := httptest.NewRequest(http.MethodPost, "/webhook/"+tt.gateway, bytes.NewReader(body))
			if tt.signature != "" {
				req.Header.Set(paymentprovider.SignatureHeader, tt.signature)
			}
			rr := httptest.NewRecorder()
			r.ServeHTTP(rr, req)

			assert.Equal(t, tt.expectedStatus, rr.Code)
			assert.JSONEq(t, tt.expectedBody, rr.Body.String())
			svc.AssertExpectations(t)
		})
	}
}
