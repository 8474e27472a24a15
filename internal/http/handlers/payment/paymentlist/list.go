// Package paymentlist реализует HTTP-обработчик для получения истории платежей студента.
package paymentlist

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/tuition-billing/internal/http/response"
	"github.com/magabrotheeeer/tuition-billing/internal/lib/sl"
	"github.com/magabrotheeeer/tuition-billing/internal/models"
)

// Handler обрабатывает запросы на получение платежей студента.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс бизнес-логики истории платежей.
type Service interface {
	FindPayments(ctx context.Context, studentUID string) ([]*models.PaymentRecord, error)
}

// New создает новый Handler с переданным логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary История платежей студента
// @Description Возвращает все платежи студента, новые раньше.
// @Tags Payments
// @Produce  json
// @Param uid path string true "UID студента"
// @Success 200 {object} map[string]any "Список платежей"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /students/{uid}/payments [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.payment.list"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	uid := chi.URLParam(r, "uid")
	res, err := h.service.FindPayments(r.Context(), uid)
	if err != nil {
		log.Error("failed to find payments", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not find payments"))
		return
	}

	log.Info("success to find payments",
		slog.String("uid", uid), slog.Int("count", len(res)))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"payments": res,
		"count":    len(res),
	}))
}
