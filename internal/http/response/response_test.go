package response

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/go-playground/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BekzhanK1/moodlog-backend/internal/models"
)

func TestStatusOKWithData(t *testing.T) {
	data := map[string]string{"key": "value"}
	resp := StatusOKWithData(data)

	assert.Equal(t, StatusOK, resp.Status)
	assert.Empty(t, resp.Error)
	assert.Equal(t, data, resp.Data)
}

func TestError(t *testing.T) {
	resp := Error("something went wrong")

	assert.Equal(t, StatusError, resp.Status)
	assert.Equal(t, "something went wrong", resp.Error)
}

func TestValidationError(t *testing.T) {
	type request struct {
		Plan string `validate:"required,oneof=pro_month pro_year"`
		Code string `validate:"min=6"`
		ID   string `validate:"uuid"`
	}

	err := validator.New().Struct(request{Plan: "gold", Code: "abc", ID: "nope"})
	require.Error(t, err)

	resp := ValidationError(err.(validator.ValidationErrors))
	assert.Equal(t, StatusError, resp.Status)
	assert.Contains(t, resp.Error, "field Plan must be one of: pro_month pro_year")
	assert.Contains(t, resp.Error, "field Code must be at least 6 characters")
	assert.Contains(t, resp.Error, "field ID can contain only uuid")
}

func TestFromError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantMsg    string
	}{
		{"wrapped not found", fmt.Errorf("promo.Redeem: %w", models.ErrPromoNotFound), http.StatusNotFound, "promo code not found"},
		{"trial used", fmt.Errorf("ledger.StartTrial: %w", models.ErrTrialAlreadyUsed), http.StatusBadRequest, "trial already used"},
		{"gateway down", fmt.Errorf("a: b: %w: dial tcp", models.ErrGatewayUnavailable), http.StatusServiceUnavailable, "payment gateway unavailable"},
		{"gateway rejected", models.ErrGatewayRejected, http.StatusBadGateway, "payment gateway rejected the request"},
		{"signature", models.ErrInvalidSignature, http.StatusUnauthorized, "invalid notification signature"},
		{"unexpected", errors.New("pq: connection refused"), http.StatusInternalServerError, "internal error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := FromError(tt.err)
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, StatusError, body.Status)
			assert.Equal(t, tt.wantMsg, body.Error)
		})
	}
}
