package paymentlist

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/BekzhanK1/moodlog-backend/internal/http/middlewarectx"
	"github.com/BekzhanK1/moodlog-backend/internal/models"
)

type MockService struct{ mock.Mock }

func (m *MockService) ListPayments(ctx context.Context, userUID string, limit int) ([]*models.Payment, error) {
	args := m.Called(ctx, userUID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Payment), args.Error(1)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func TestListHandler_ServeHTTP(t *testing.T) {
	created := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name           string
		query          string
		userUID        string
		setupMocks     func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name:    "list",
			query:   "?limit=5",
			userUID: "user-1",
			setupMocks: func(s *MockService) {
				s.On("ListPayments", mock.Anything, "user-1", 5).Return([]*models.Payment{{
					ID: "p1", UserUID: "user-1", OrderID: "o1", Plan: models.PlanProYear, Amount: 19100,
					Currency: "KZT", Status: models.PaymentSucceeded, CreatedAt: created,
				}}, nil).Once()
			},
			expectedStatus: http.StatusOK,
			expectedBody: `{"payments":[{"id":"p1","order_id":"o1","plan":"pro_year","amount":19100,"currency":"KZT",
				"status":"succeeded","created_at":"2025-03-01T09:00:00Z"}],"total":1}`,
		},
		{
			name:           "bad limit",
			query:          "?limit=abc",
			userUID:        "user-1",
			setupMocks:     func(*MockService) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `{"status":"Error","error":"limit must be between 1 and 100"}`,
		},
		{
			name:           "missing user",
			setupMocks:     func(*MockService) {},
			expectedStatus: http.StatusUnauthorized,
			expectedBody:   `{"status":"Error","error":"unauthorized"}`,
		},
		{
			name:    "storage failure",
			userUID: "user-1",
			setupMocks: func(s *MockService) {
				s.On("ListPayments", mock.Anything, "user-1", 0).Return(nil, errors.New("db down")).Once()
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   `{"status":"Error","error":"internal error"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockService)
			tt.setupMocks(svc)

			req := httptest.NewRequest(http.MethodGet, "/api/v1/subscriptions/payments"+tt.query, nil)
			if tt.userUID != "" {
				req = req.WithContext(middlewarectx.WithUser(req.Context(), tt.userUID, ""))
			}
			rr := httptest.NewRecorder()
			New(newNoopLogger(), svc).ServeHTTP(rr, req)

			assert.Equal(t, tt.expectedStatus, rr.Code)
			assert.JSONEq(t, tt.expectedBody, rr.Body.String())
			svc.AssertExpectations(t)
		})
	}
}
