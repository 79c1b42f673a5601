// Package redeem погашение промокода пользователем.
package redeem

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
	"github.com/BekzhanK1/moodlog-backend/internal/services/ledger"
)

// Request тело запроса.
type Request struct {
	Code string `json:"code" validate:"required,max=64" example:"SPRING2025"`
}

// Response применённый тариф.
type Response struct {
	Message   string      `json:"message"`
	Plan      models.Plan `json:"plan"`
	ExpiresAt *time.Time  `json:"expires_at"`
}

// Service погашение кода.
type Service interface {
	Redeem(ctx context.Context, userUID, code string) (*ledger.PlanState, error)
}

// Handler обработчик погашения.
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
// @Summary Погасить промокод
// @Description Код регистронезависим. Недоступно при активном платном тарифе
// @Tags PromoCodes
// @Accept json
// @Produce json
// @Param request body Request true "Промокод"
// @Success 200 {object} Response
// @Failure 400 {object} response.ErrorResponse "Код использован, истёк или пользователь не подходит"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 404 {object} response.ErrorResponse "Код не найден"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 429 {object} response.ErrorResponse "Слишком много попыток"
// @Router /promo-codes/redeem [post]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.promo.redeem"
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

	state, err := h.service.Redeem(r.Context(), userUID, req.Code)
	if err != nil {
		log.Warn("promo redemption rejected", slog.String("user_uid", userUID), sl.Err(err))
		status, body := response.FromError(err)
		render.Status(r, status)
		render.JSON(w, r, body)
		return
	}

	render.JSON(w, r, Response{
		Message:   "promo code redeemed",
		Plan:      state.Plan,
		ExpiresAt: state.ExpiresAt,
	})
}
