// Package plans отдаёт каталог тарифов.
package plans

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"github.com/BekzhanK1/moodlog-backend/internal/services/gate"
)

// Response каталог тарифов.
type Response struct {
	Plans    []gate.PlanInfo `json:"plans"`
	Currency string          `json:"currency"`
}

// Handler обработчик каталога.
type Handler struct {
	log      *slog.Logger
	currency string
}

// New создаёт обработчик.
func New(log *slog.Logger, currency string) *Handler {
	return &Handler{log: log, currency: currency}
}

// ServeHTTP godoc
// @Summary Каталог тарифов
// @Description Возвращает тарифы с ценой, длительностью и набором функций
// @Tags Subscriptions
// @Produce json
// @Success 200 {object} Response
// @Router /subscriptions/plans [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, Response{
		Plans:    gate.Catalog(h.currency),
		Currency: h.currency,
	})
}
