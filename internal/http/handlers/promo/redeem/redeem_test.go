package redeem

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
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
	"github.com/BekzhanK1/moodlog-backend/internal/services/ledger"
)

type MockService struct{ mock.Mock }

func (m *MockService) Redeem(ctx context.Context, userUID, code string) (*ledger.PlanState, error) {
	args := m.Called(ctx, userUID, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.PlanState), args.Error(1)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func TestRedeemHandler_ServeHTTP(t *testing.T) {
	expires := time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)

	tests := []struct {
		name           string
		requestBody    any
		setupMocks     func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name:        "redeemed",
			requestBody: Request{Code: "spring25"},
			setupMocks: func(s *MockService) {
				s.On("Redeem", mock.Anything, "user-1", "spring25").
					Return(&ledger.PlanState{Plan: models.PlanProYear, Status: models.StatusActive, ExpiresAt: &expires}, nil).Once()
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `{"message":"promo code redeemed","plan":"pro_year","expires_at":"2026-06-01T08:00:00Z"}`,
		},
		{
			name:           "empty code",
			requestBody:    Request{},
			setupMocks:     func(*MockService) {},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody:   `{"status":"Error","error":"field Code is a required field"}`,
		},
		{
			name:        "not found",
			requestBody: Request{Code: "NOPE"},
			setupMocks: func(s *MockService) {
				s.On("Redeem", mock.Anything, "user-1", "NOPE").Return(nil, fmt.Errorf("promo.Redeem: %w", models.ErrPromoNotFound)).Once()
			},
			expectedStatus: http.StatusNotFound,
			expectedBody:   `{"status":"Error","error":"promo code not found"}`,
		},
		{
			name:        "already used",
			requestBody: Request{Code: "USED01"},
			setupMocks: func(s *MockService) {
				s.On("Redeem", mock.Anything, "user-1", "USED01").Return(nil, models.ErrPromoAlreadyUsed).Once()
			},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `{"status":"Error","error":"promo code already used"}`,
		},
		{
			name:        "expired",
			requestBody: Request{Code: "OLD001"},
			setupMocks: func(s *MockService) {
				s.On("Redeem", mock.Anything, "user-1", "OLD001").Return(nil, models.ErrPromoExpired).Once()
			},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `{"status":"Error","error":"promo code expired"}`,
		},
		{
			name:        "ineligible",
			requestBody: Request{Code: "SPRING25"},
			setupMocks: func(s *MockService) {
				s.On("Redeem", mock.Anything, "user-1", "SPRING25").Return(nil, models.ErrIneligibleUser).Once()
			},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `{"status":"Error","error":"user is not eligible for this promo code"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockService)
			tt.setupMocks(svc)

			body, _ := json.Marshal(tt.requestBody)
			req := httptest.NewRequest(http.MethodPost, "/api/v1/promo-codes/redeem", bytes.NewReader(body))
			req = req.WithContext(middlewarectx.WithUser(req.Context(), "user-1", ""))
			rr := httptest.NewRecorder()
			New(newNoopLogger(), svc).ServeHTTP(rr, req)

			assert.Equal(t, tt.expectedStatus, rr.Code)
			assert.JSONEq(t, tt.expectedBody, rr.Body.String())
			svc.AssertExpectations(t)
		})
	}
}
