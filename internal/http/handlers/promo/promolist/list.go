// Package promolist список промокодов администратора.
package promolist

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

// Service список кодов.
type Service interface {
	List(ctx context.Context, adminUID string, includeUsed bool, limit int) ([]*models.PromoCode, error)
}

// Response коды, новые первыми.
type Response struct {
	PromoCodes []*models.PromoCode `json:"promo_codes"`
	Total      int                 `json:"total"`
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
// @Summary Промокоды администратора
// @Tags Admin
// @Produce json
// @Param include_used query bool false "Включать использованные"
// @Param limit query int false "Сколько записей вернуть (1..100)"
// @Success 200 {object} Response
// @Failure 400 {object} response.ErrorResponse "Некорректные параметры"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 403 {object} response.ErrorResponse "Нужна роль администратора"
// @Router /admin/promo-codes [get]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.promo.list"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	adminUID, ok := middlewarectx.UserUIDFrom(r.Context())
	if !ok {
		log.Error("user UID not found in context")
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	q := r.URL.Query()
	includeUsed := false
	if raw := q.Get("include_used"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error("include_used must be a boolean"))
			return
		}
		includeUsed = v
	}
	limit := 0
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 100 {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error("limit must be between 1 and 100"))
			return
		}
		limit = n
	}

	list, err := h.service.List(r.Context(), adminUID, includeUsed, limit)
	if err != nil {
		log.Error("failed to list promo codes", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal error"))
		return
	}

	render.JSON(w, r, Response{PromoCodes: list, Total: len(list)})
}
