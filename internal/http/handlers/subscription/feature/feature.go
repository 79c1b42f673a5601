// Package feature проверяет доступ пользователя к функции. Используется
// сервисами дневника и AI перед выполнением платных действий.
package feature

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/BekzhanK1/moodlog-backend/internal/http/middlewarectx"
	"github.com/BekzhanK1/moodlog-backend/internal/http/response"
	"github.com/BekzhanK1/moodlog-backend/internal/lib/sl"
	"github.com/BekzhanK1/moodlog-backend/internal/services/gate"
	"github.com/BekzhanK1/moodlog-backend/internal/services/ledger"
)

// Service источник тарифа пользователя.
type Service interface {
	CurrentStatus(ctx context.Context, userUID string) (*ledger.PlanState, error)
}

// Response результат проверки.
type Response struct {
	Feature           gate.Feature `json:"feature"`
	Allowed           bool         `json:"allowed"`
	AIQuestionsPerDay *int         `json:"ai_questions_per_day"`
}

// Handler обработчик проверки функции.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создаёт обработчик.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Проверка доступа к функции
// @Description Отвечает, доступна ли функция на текущем тарифе. ai_questions_per_day равен null без ограничения
// @Tags Subscriptions
// @Produce json
// @Param feature path string true "Функция" Enums(themes, weekly_insights, monthly_insights, voice_recording, visual_themes, visual_effects)
// @Success 200 {object} Response
// @Failure 400 {object} response.ErrorResponse "Неизвестная функция"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка"
// @Router /subscriptions/features/{feature} [get]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.feature"
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

	f, ok := gate.ParseFeature(chi.URLParam(r, "feature"))
	if !ok {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("unknown feature"))
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

	render.JSON(w, r, Response{
		Feature:           f,
		Allowed:           gate.Allows(state.Features, f),
		AIQuestionsPerDay: state.Features.AIQuestionsPerDay,
	})
}
