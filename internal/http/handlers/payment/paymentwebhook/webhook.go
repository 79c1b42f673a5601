// Package paymentwebhook принимает уведомления платёжного шлюза.
package paymentwebhook

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/BekzhanK1/moodlog-backend/internal/http/response"
	"github.com/BekzhanK1/moodlog-backend/internal/lib/sl"
	"github.com/BekzhanK1/moodlog-backend/internal/models"
	"github.com/BekzhanK1/moodlog-backend/internal/paymentprovider"
	"github.com/BekzhanK1/moodlog-backend/internal/services/payment"
)

const maxBodySize = 64 << 10

// Service обработка уведомления.
type Service interface {
	ProcessNotification(ctx context.Context, raw []byte) (payment.Result, error)
}

// Verifier проверка подписи уведомления.
type Verifier interface {
	VerifySignature(body []byte, signature string) error
}

// Result ответ шлюзу.
type Result struct {
	Result payment.Result `json:"result"`
}

// Handler обработчик webhook.
type Handler struct {
	log      *slog.Logger
	service  Service
	verifier Verifier
}

// New создаёт обработчик.
func New(log *slog.Logger, service Service, verifier Verifier) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		verifier: verifier,
	}
}

// ServeHTTP godoc
// @Summary Уведомление платёжного шлюза
// @Description Принимает подписанное уведомление о статусе заказа. Повторная доставка не меняет состояние
// @Tags Payments
// @Accept json
// @Produce json
// @Param gateway path string true "Шлюз" Enums(webkassa)
// @Param X-Webkassa-Signature header string true "base64(HMAC-SHA256(secret, body))"
// @Success 200 {object} response.Response "processed, duplicate, unknown или pending"
// @Failure 400 {object} response.ErrorResponse "Некорректное уведомление"
// @Failure 401 {object} response.ErrorResponse "Неверная подпись"
// @Failure 404 {object} response.ErrorResponse "Неизвестный шлюз"
// @Failure 500 {object} response.ErrorResponse "Ошибка хранилища, шлюз повторит доставку"
// @Router /subscriptions/webhook/{gateway} [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.payment.webhook"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	if gateway := chi.URLParam(r, "gateway"); gateway != paymentprovider.Name {
		log.Warn("notification for unknown gateway", slog.String("gateway", gateway))
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, response.Error(models.ErrUnknownGateway.Error()))
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		log.Error("failed to read webhook body", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	if err := h.verifier.VerifySignature(body, r.Header.Get(paymentprovider.SignatureHeader)); err != nil {
		log.Warn("invalid or missing webhook signature", sl.Err(err))
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, response.Error(models.ErrInvalidSignature.Error()))
		return
	}

	result, err := h.service.ProcessNotification(r.Context(), body)
	if err != nil {
		if errors.Is(err, models.ErrMalformedNotification) {
			log.Warn("malformed notification", sl.Err(err))
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error(models.ErrMalformedNotification.Error()))
			return
		}
		log.Error("failed to process notification", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal error"))
		return
	}

	log.Info("webhook processed", slog.String("result", string(result)))
	render.JSON(w, r, response.StatusOKWithData(Result{Result: result}))
}
