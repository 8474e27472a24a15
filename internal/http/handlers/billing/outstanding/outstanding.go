// Package outstanding реализует HTTP-обработчик расчёта задолженности студента.
//
// Handler возвращает самый ранний неоплаченный период и сумму к оплате:
// погашение строго последовательное, нельзя оплатить пятый период,
// пока не оплачен третий.
package outstanding

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/tuition-billing/internal/http/response"
	"github.com/magabrotheeeer/tuition-billing/internal/lib/period"
	"github.com/magabrotheeeer/tuition-billing/internal/lib/sl"
	"github.com/magabrotheeeer/tuition-billing/internal/models"
	services "github.com/magabrotheeeer/tuition-billing/internal/services/billing"
)

// Handler обрабатывает запросы на расчёт задолженности.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс бизнес-логики расчёта задолженности.
type Service interface {
	ResolveOutstanding(ctx context.Context, studentUID string, asOf time.Time) (*models.Outstanding, error)
}

// New создает новый Handler с переданным логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Задолженность студента
// @Description Возвращает самый ранний неоплаченный период и сумму к оплате на указанную дату.
// @Tags Billing
// @Produce  json
// @Param uid path string true "UID студента"
// @Param as_of query string false "Дата расчёта в формате 2006-01-02, по умолчанию сегодня"
// @Success 200 {object} map[string]any "Неоплаченный период и сумма"
// @Failure 400 {object} response.ErrorResponse "Некорректная дата"
// @Failure 404 {object} response.ErrorResponse "Задолженности нет"
// @Failure 409 {object} response.ErrorResponse "Профиль студента заморожен"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /students/{uid}/outstanding [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.billing.outstanding"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	uid := chi.URLParam(r, "uid")

	asOf := period.Day(time.Now().UTC())
	if raw := r.URL.Query().Get("as_of"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			log.Error("failed to parse as_of", sl.Err(err))
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error("as_of must be a date in format 2006-01-02"))
			return
		}
		asOf = parsed
	}

	res, err := h.service.ResolveOutstanding(r.Context(), uid, asOf)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrNothingDue):
			log.Info("nothing due", slog.String("uid", uid))
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("nothing due"))
		case errors.Is(err, services.ErrProfileInactive):
			log.Info("profile inactive", slog.String("uid", uid))
			w.WriteHeader(http.StatusConflict)
			render.JSON(w, r, response.Error("student profile is inactive"))
		default:
			log.Error("failed to resolve outstanding", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("could not resolve outstanding"))
		}
		return
	}

	log.Info("success to resolve outstanding",
		slog.String("uid", uid), slog.String("period_key", res.PeriodKey.String()))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"period_key": res.PeriodKey.String(),
		"amount_due": res.AmountDue,
	}))
}
