// Package paymentlist отдаёт платежи пользователя.
package paymentlist

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/BekzhanK1/moodlog-backend/internal/http/middlewarectx"
	"github.com/BekzhanK1/moodlog-backend/internal/http/response"
	"github.com/BekzhanK1/moodlog-backend/internal/lib/sl"
	"github.com/BekzhanK1/moodlog-backend/internal/models"
)

// Service список платежей.
type Service interface {
	ListPayments(ctx context.Context, userUID string, limit int) ([]*models.Payment, error)
}

// Response платежи, новые первыми.
type Response struct {
	Payments []*models.Payment `json:"payments"`
	Total    int               `json:"total"`
}

// Handler обработчик списка.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создаёт обработчик.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Список платежей
// @Tags Payments
// @Produce json
// @Param limit query int false "Сколько записей вернуть (1..100)"
// @Success 200 {object} Response
// @Failure 400 {object} response.ErrorResponse "Некорректный limit"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка"
// @Router /subscriptions/payments [get]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.payment.list"
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

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 100 {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error("limit must be between 1 and 100"))
			return
		}
		limit = n
	}

	list, err := h.service.ListPayments(r.Context(), userUID, limit)
	if err != nil {
		log.Error("failed to list payments", slog.String("user_uid", userUID), sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal error"))
		return
	}

	render.JSON(w, r, Response{Payments: list, Total: len(list)})
}
