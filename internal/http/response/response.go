// Package response содержит вспомогательные типы и функции для формирования
// унифицированных JSON‑ответов HTTP‑обработчиков и отображения доменных
// ошибок в HTTP-статусы.
package response

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator"

	"github.com/BekzhanK1/moodlog-backend/internal/models"
)

// Response описывает стандартную структуру JSON‑ответа сервера.
// Поле Status: статус запроса ("OK" или "Error").
// Поле Error: текст ошибки (опционально, при неуспехе).
// Поле Data: данные ответа (опционально, при успехе).
type Response struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
	Data   any    `json:"data,omitempty"`
}

// ErrorResponse структура ошибки для Swagger-документации.
// Используется в аннотациях @Failure как возвращаемый тип ошибки.
type ErrorResponse struct {
	Status string `json:"status" example:"Error"`
	Error  string `json:"error" example:"invalid request body"`
}

const (
	// StatusOK значение статуса для успешного ответа.
	StatusOK = "OK"
	// StatusError значение статуса для ответа с ошибкой.
	StatusError = "Error"
)

// StatusOKWithData возвращает успешный Response с переданными данными.
func StatusOKWithData(data any) Response {
	return Response{
		Status: StatusOK,
		Data:   data,
	}
}

// Error возвращает Response с ошибкой и переданным сообщением.
func Error(msg string) ErrorResponse {
	return ErrorResponse{
		Status: StatusError,
		Error:  msg,
	}
}

// ValidationError формирует Response со статусом Error на основе ошибок валидации.
// Каждое нарушение формируется в человеко‑читаемый текст, объединённый через запятую.
func ValidationError(errs validator.ValidationErrors) Response {
	var errsMsgs []string

	for _, err := range errs {
		switch err.ActualTag() {
		case "required":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s is a required field", err.Field()))
		case "oneof":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s must be one of: %s", err.Field(), err.Param()))
		case "uuid":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s can contain only uuid", err.Field()))
		case "min":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s must be at least %s characters", err.Field(), err.Param()))
		case "max":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s must be at most %s characters", err.Field(), err.Param()))
		default:
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s is not a valid", err.Field()))
		}
	}
	return Response{
		Status: StatusError,
		Error:  strings.Join(errsMsgs, ", "),
	}
}

var errorStatuses = []struct {
	err    error
	status int
}{
	{models.ErrUserNotFound, http.StatusNotFound},
	{models.ErrPaymentNotFound, http.StatusNotFound},
	{models.ErrPromoNotFound, http.StatusNotFound},
	{models.ErrUnknownGateway, http.StatusNotFound},

	{models.ErrInvalidPlan, http.StatusBadRequest},
	{models.ErrTrialAlreadyUsed, http.StatusBadRequest},
	{models.ErrNotEligible, http.StatusBadRequest},
	{models.ErrIneligibleUpgrade, http.StatusBadRequest},
	{models.ErrMalformedNotification, http.StatusBadRequest},
	{models.ErrPromoAlreadyUsed, http.StatusBadRequest},
	{models.ErrPromoExpired, http.StatusBadRequest},
	{models.ErrIneligibleUser, http.StatusBadRequest},
	{models.ErrPromoCodeExists, http.StatusBadRequest},
	{models.ErrPromoCodeTooShort, http.StatusBadRequest},
	{models.ErrPromoCodeInUse, http.StatusBadRequest},

	{models.ErrInvalidSignature, http.StatusUnauthorized},
	{models.ErrGatewayRejected, http.StatusBadGateway},
	{models.ErrGatewayUnavailable, http.StatusServiceUnavailable},
}

// FromError возвращает HTTP-статус и текст для доменной ошибки. Неизвестные
// ошибки дают 500 и общий текст, детали остаются в логе.
func FromError(err error) (int, ErrorResponse) {
	for _, e := range errorStatuses {
		if errors.Is(err, e.err) {
			return e.status, Error(e.err.Error())
		}
	}
	return http.StatusInternalServerError, Error("internal error")
}
