// Package promodelete удаление неиспользованного промокода.
package promodelete

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/google/uuid"

	"github.com/BekzhanK1/moodlog-backend/internal/http/response"
	"github.com/BekzhanK1/moodlog-backend/internal/lib/sl"
	"github.com/BekzhanK1/moodlog-backend/internal/models"
)

// Service удаление кода.
type Service interface {
	Delete(ctx context.Context, id string) error
}

// Handler обработчик удаления.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создаёт обработчик.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Удалить промокод
// @Tags Admin
// @Param id path string true "ID промокода"
// @Success 204
// @Failure 400 {object} response.ErrorResponse "Код уже использован"
// @Failure 403 {object} response.ErrorResponse "Нужна роль администратора"
// @Failure 404 {object} response.ErrorResponse "Код не найден"
// @Router /admin/promo-codes/{id} [delete]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.promo.delete"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, response.Error(models.ErrPromoNotFound.Error()))
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		log.Warn("failed to delete promo code", slog.String("promo_id", id), sl.Err(err))
		status, body := response.FromError(err)
		render.Status(r, status)
		render.JSON(w, r, body)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
