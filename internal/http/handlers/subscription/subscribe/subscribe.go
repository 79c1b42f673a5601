// Package subscribe начинает оплату платного тарифа.
package subscribe

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/BekzhanK1/moodlog-backend/internal/http/middlewarectx"
	"github.com/BekzhanK1/moodlog-backend/internal/http/response"
	"github.com/BekzhanK1/moodlog-backend/internal/lib/sl"
	"github.com/BekzhanK1/moodlog-backend/internal/models"
	"github.com/BekzhanK1/moodlog-backend/internal/services/payment"
)

// Request тело запроса.
type Request struct {
	Plan string `json:"plan" validate:"required" example:"pro_month"`
}

// Response данные для перехода на страницу оплаты.
type Response struct {
	PaymentID  string      `json:"payment_id"`
	OrderID    string      `json:"order_id"`
	PaymentURL string      `json:"payment_url"`
	Plan       models.Plan `json:"plan"`
	Amount     int64       `json:"amount"`
	Currency   string      `json:"currency"`
}

// Service создание платежа.
type Service interface {
	Subscribe(ctx context.Context, userUID string, plan models.Plan) (*payment.SubscribeResult, error)
}

// Handler обработчик подписки.
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
// @Summary Оформить платный тариф
// @Description Создаёт платёж в статусе pending и возвращает ссылку на оплату в Webkassa
// @Tags Subscriptions
// @Accept json
// @Produce json
// @Param request body Request true "Тариф"
// @Success 200 {object} Response
// @Failure 400 {object} response.ErrorResponse "Некорректный тариф или уже активен платный тариф"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 502 {object} response.ErrorResponse "Шлюз отклонил запрос"
// @Failure 503 {object} response.ErrorResponse "Шлюз недоступен"
// @Router /subscriptions/subscribe [post]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.subscribe"
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

	res, err := h.service.Subscribe(r.Context(), userUID, models.Plan(req.Plan))
	if err != nil {
		log.Error("failed to start payment", slog.String("user_uid", userUID), sl.Err(err))
		status, body := response.FromError(err)
		render.Status(r, status)
		render.JSON(w, r, body)
		return
	}

	log.Info("payment started", slog.String("user_uid", userUID), slog.String("payment_id", res.PaymentID))
	render.JSON(w, r, Response{
		PaymentID:  res.PaymentID,
		OrderID:    res.OrderID,
		PaymentURL: res.PaymentURL,
		Plan:       res.Plan,
		Amount:     res.Amount,
		Currency:   res.Currency,
	})
}
