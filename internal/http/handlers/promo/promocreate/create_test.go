package promocreate

import (
	"bytes"
	"context"
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

func (m *MockService) Create(ctx context.Context, adminUID string, plan models.Plan, code string, expiresAt *time.Time) (*models.PromoCode, error) {
	args := m.Called(ctx, adminUID, plan, code, expiresAt)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PromoCode), args.Error(1)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func TestCreateHandler_ServeHTTP(t *testing.T) {
	created := time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC)
	expires := time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name           string
		body           string
		setupMocks     func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name: "generated code",
			body: `{"plan":"pro_month"}`,
			setupMocks: func(s *MockService) {
				s.On("Create", mock.Anything, "admin-1", models.PlanProMonth, "", (*time.Time)(nil)).Return(&models.PromoCode{
					ID: "p1", Code: "ABCDEFGHJKLM", Plan: models.PlanProMonth, CreatedBy: "admin-1", CreatedAt: created,
				}, nil).Once()
			},
			expectedStatus: http.StatusCreated,
			expectedBody: `{"id":"p1","code":"ABCDEFGHJKLM","plan":"pro_month","created_by":"admin-1","is_used":false,
				"created_at":"2025-01-10T12:00:00Z"}`,
		},
		{
			name: "custom code with expiry",
			body: `{"plan":"pro_year","code":"welcome","expires_at":"2025-12-31T00:00:00Z"}`,
			setupMocks: func(s *MockService) {
				s.On("Create", mock.Anything, "admin-1", models.PlanProYear, "welcome", &expires).Return(&models.PromoCode{
					ID: "p2", Code: "WELCOME", Plan: models.PlanProYear, CreatedBy: "admin-1", ExpiresAt: &expires, CreatedAt: created,
				}, nil).Once()
			},
			expectedStatus: http.StatusCreated,
			expectedBody: `{"id":"p2","code":"WELCOME","plan":"pro_year","created_by":"admin-1","is_used":false,
				"expires_at":"2025-12-31T00:00:00Z","created_at":"2025-01-10T12:00:00Z"}`,
		},
		{
			name: "code taken",
			body: `{"plan":"pro_year","code":"WELCOME"}`,
			setupMocks: func(s *MockService) {
				s.On("Create", mock.Anything, "admin-1", models.PlanProYear, "WELCOME", (*time.Time)(nil)).
					Return(nil, models.ErrPromoCodeExists).Once()
			},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `{"status":"Error","error":"promo code already exists"}`,
		},
		{
			name: "free plan",
			body: `{"plan":"free"}`,
			setupMocks: func(s *MockService) {
				s.On("Create", mock.Anything, "admin-1", models.PlanFree, "", (*time.Time)(nil)).Return(nil, models.ErrInvalidPlan).Once()
			},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `{"status":"Error","error":"invalid plan"}`,
		},
		{
			name:           "missing plan",
			body:           `{}`,
			setupMocks:     func(*MockService) {},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody:   `{"status":"Error","error":"field Plan is a required field"}`,
		},
		{
			name:           "code too long",
			body:           `{"plan":"pro_year","code":"ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"}`,
			setupMocks:     func(*MockService) {},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody:   `{"status":"Error","error":"field Code must be at most 32 characters"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockService)
			tt.setupMocks(svc)

			req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/promo-codes", bytes.NewBufferString(tt.body))
			req = req.WithContext(middlewarectx.WithUser(req.Context(), "admin-1", "admin"))
			rr := httptest.NewRecorder()
			New(newNoopLogger(), svc).ServeHTTP(rr, req)

			assert.Equal(t, tt.expectedStatus, rr.Code)
			assert.JSONEq(t, tt.expectedBody, rr.Body.String())
			svc.AssertExpectations(t)
		})
	}
}
