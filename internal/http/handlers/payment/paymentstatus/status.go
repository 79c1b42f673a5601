// Package paymentstatus отдаёт статус платежа пользователя.
package paymentstatus

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/google/uuid"

	"github.com/BekzhanK1/moodlog-backend/internal/http/middlewarectx"
	"github.com/BekzhanK1/moodlog-backend/internal/http/response"
	"github.com/BekzhanK1/moodlog-backend/internal/lib/sl"
	"github.com/BekzhanK1/moodlog-backend/internal/models"
)

// Service чтение статуса с опросом шлюза для pending.
type Service interface {
	RefreshStatus(ctx context.Context, userUID, paymentID string) (*models.Payment, error)
}

// Response статус платежа.
type Response struct {
	PaymentID  string               `json:"payment_id"`
	OrderID    string               `json:"order_id"`
	Status     models.PaymentStatus `json:"status"`
	Plan       models.Plan          `json:"plan"`
	Amount     int64                `json:"amount"`
	ReceiptID  *string              `json:"receipt_id,omitempty"`
	ResolvedAt *time.Time           `json:"resolved_at,omitempty"`
}

// Handler обработчик статуса.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создаёт обработчик.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Статус платежа
// @Description Для платежа в статусе pending статус дополнительно запрашивается у шлюза
// @Tags Payments
// @Produce json
// @Param id path string true "ID платежа"
// @Success 200 {object} Response
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 404 {object} response.ErrorResponse "Платёж не найден"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка"
// @Router /subscriptions/payment/{id}/status [get]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.payment.status"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	userUID, ok := middlewarectx.UserUIDFrom(r.Context())
	if !ok {
		log.Error("user UID not found in context")
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	paymentID := chi.URLParam(r, "id")
	if _, err := uuid.Parse(paymentID); err != nil {
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, response.Error(models.ErrPaymentNotFound.Error()))
		return
	}

	p, err := h.service.RefreshStatus(r.Context(), userUID, paymentID)
	if err != nil {
		log.Error("failed to get payment status", slog.String("payment_id", paymentID), sl.Err(err))
		status, body := response.FromError(err)
		render.Status(r, status)
		render.JSON(w, r, body)
		return
	}

	render.JSON(w, r, Response{
		PaymentID:  p.ID,
		OrderID:    p.OrderID,
		Status:     p.Status,
		Plan:       p.Plan,
		Amount:     p.Amount,
		ReceiptID:  p.ReceiptID,
		ResolvedAt: p.ResolvedAt,
	})
}
