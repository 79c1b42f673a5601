// Package current отдаёт текущий тариф пользователя.
package current

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/BekzhanK1/moodlog-backend/internal/http/middlewarectx"
	"github.com/BekzhanK1/moodlog-backend/internal/http/response"
	"github.com/BekzhanK1/moodlog-backend/internal/lib/sl"
	"github.com/BekzhanK1/moodlog-backend/internal/models"
	"github.com/BekzhanK1/moodlog-backend/internal/services/gate"
	"github.com/BekzhanK1/moodlog-backend/internal/services/ledger"
)

// Service источник тарифа пользователя.
type Service interface {
	CurrentStatus(ctx context.Context, userUID string) (*ledger.PlanState, error)
}

// Response текущий тариф с эффективным статусом.
type Response struct {
	Plan      models.Plan   `json:"plan"`
	PlanName  string        `json:"plan_name"`
	Status    models.Status `json:"status"`
	StartedAt *time.Time    `json:"started_at"`
	ExpiresAt *time.Time    `json:"expires_at"`
	TrialUsed bool          `json:"trial_used"`
	IsActive  bool          `json:"is_active"`
	Features  gate.Features `json:"features"`
}

// FromState собирает ответ из состояния тарифа.
func FromState(s *ledger.PlanState) Response {
	name := string(s.Plan)
	if info, ok := gate.Lookup(s.Plan); ok {
		name = info.Name
	}
	return Response{
		Plan:      s.Plan,
		PlanName:  name,
		Status:    s.Status,
		StartedAt: s.StartedAt,
		ExpiresAt: s.ExpiresAt,
		TrialUsed: s.TrialUsed,
		IsActive:  s.IsActive(),
		Features:  s.Features,
	}
}

// Handler обработчик текущего тарифа.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создаёт обработчик.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Текущий тариф
// @Description Тариф пользователя; истёкший срок отражается сразу, даже если в базе ещё active
// @Tags Subscriptions
// @Produce json
// @Success 200 {object} Response
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 404 {object} response.ErrorResponse "Пользователь не найден"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка"
// @Router /subscriptions/current [get]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.current"
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

	state, err := h.service.CurrentStatus(r.Context(), userUID)
	if err != nil {
		log.Error("failed to get current plan", slog.String("user_uid", userUID), sl.Err(err))
		status, body := response.FromError(err)
		render.Status(r, status)
		render.JSON(w, r, body)
		return
	}

	render.JSON(w, r, FromState(state))
}
