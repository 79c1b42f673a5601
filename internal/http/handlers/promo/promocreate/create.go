// Package promocreate выпуск промокода администратором.
package promocreate

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/BekzhanK1/moodlog-backend/internal/http/middlewarectx"
	"github.com/BekzhanK1/moodlog-backend/internal/http/response"
	"github.com/BekzhanK1/moodlog-backend/internal/lib/sl"
	"github.com/BekzhanK1/moodlog-backend/internal/models"
)

// Request тело запроса. Без code код генерируется.
type Request struct {
	Plan      string     `json:"plan" validate:"required" example:"pro_year"`
	Code      string     `json:"code,omitempty" validate:"omitempty,max=32" example:"WELCOME2025"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// Service выпуск промокодов.
type Service interface {
	Create(ctx context.Context, adminUID string, plan models.Plan, code string, expiresAt *time.Time) (*models.PromoCode, error)
}

// Handler обработчик выпуска.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// New создаёт обработчик.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Создать промокод
// @Tags Admin
// @Accept json
// @Produce json
// @Param request body Request true "Параметры кода"
// @Success 201 {object} models.PromoCode
// @Failure 400 {object} response.ErrorResponse "Некорректный тариф, код занят или слишком короткий"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 403 {object} response.ErrorResponse "Нужна роль администратора"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Router /admin/promo-codes [post]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.promo.create"
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

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		log.Error("validation failed", sl.Err(err))
		render.Status(r, http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	created, err := h.service.Create(r.Context(), adminUID, models.Plan(req.Plan), req.Code, req.ExpiresAt)
	if err != nil {
		log.Error("failed to create promo code", sl.Err(err))
		status, body := response.FromError(err)
		render.Status(r, status)
		render.JSON(w, r, body)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, created)
}
