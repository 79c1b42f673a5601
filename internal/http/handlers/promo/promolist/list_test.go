package promolist

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/BekzhanK1/moodlog-backend/internal/http/middlewarectx"
	"github.com/BekzhanK1/moodlog-backend/internal/models"
)

type MockService struct{ mock.Mock }

func (m *MockService) List(ctx context.Context, adminUID string, includeUsed bool, limit int) ([]*models.PromoCode, error) {
	args := m.Called(ctx, adminUID, includeUsed, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.PromoCode), args.Error(1)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func TestListHandler_ServeHTTP(t *testing.T) {
	tests := []struct {
		name           string
		query          string
		setupMocks     func(*MockService)
		expectedStatus int
		expectedTotal  string
	}{
		{
			name:  "defaults",
			query: "",
			setupMocks: func(s *MockService) {
				s.On("List", mock.Anything, "admin-1", false, 0).Return([]*models.PromoCode{{ID: "a"}, {ID: "b"}}, nil).Once()
			},
			expectedStatus: http.StatusOK,
			expectedTotal:  `"total":2`,
		},
		{
			name:  "include used with limit",
			query: "?include_used=true&limit=20",
			setupMocks: func(s *MockService) {
				s.On("List", mock.Anything, "admin-1", true, 20).Return([]*models.PromoCode{}, nil).Once()
			},
			expectedStatus: http.StatusOK,
			expectedTotal:  `"total":0`,
		},
		{
			name:           "limit out of range",
			query:          "?limit=0",
			setupMocks:     func(*MockService) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "bad include_used",
			query:          "?include_used=maybe",
			setupMocks:     func(*MockService) {},
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockService)
			tt.setupMocks(svc)

			req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/promo-codes"+tt.query, nil)
			req = req.WithContext(middlewarectx.WithUser(req.Context(), "admin-1", "admin"))
			rr := httptest.NewRecorder()
			New(newNoopLogger(), svc).ServeHTTP(rr, req)

			assert.Equal(t, tt.expectedStatus, rr.Code)
			if tt.expectedTotal != "" {
				assert.Contains(t, rr.Body.String(), tt.expectedTotal)
			}
			svc.AssertExpectations(t)
		})
	}
}
