// Package studentreactivate реализует HTTP-обработчик реактивации отчисленного студента.
//
// Дата реактивации становится новым якорем: нумерация расчётных периодов
// начинается заново с нулевого порядкового номера.
package studentreactivate

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/tuition-billing/internal/http/response"
	"github.com/magabrotheeeer/tuition-billing/internal/lib/sl"
	"github.com/magabrotheeeer/tuition-billing/internal/models"
	services "github.com/magabrotheeeer/tuition-billing/internal/services/student"
)

// Handler обрабатывает запросы на реактивацию студента.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Service описывает интерфейс бизнес-логики реактивации.
type Service interface {
	Reactivate(ctx context.Context, uid string, req models.DummyReactivate) error
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Реактивировать студента
// @Description Снимает отчисление. Дата реактивации становится новым якорем для расчёта периодов.
// @Tags Students
// @Accept  json
// @Produce  json
// @Param uid path string true "UID студента"
// @Param request body models.DummyReactivate true "Дата реактивации"
// @Success 200 {object} map[string]any "Студент реактивирован"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 409 {object} response.ErrorResponse "Студент не отчислен"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /students/{uid}/reactivate [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.student.reactivate"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	uid := chi.URLParam(r, "uid")

	var req models.DummyReactivate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	if err := h.validate.Struct(req); err != nil {
		log.Error("validation failed", sl.Err(err))
		w.WriteHeader(http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	if err := h.service.Reactivate(r.Context(), uid, req); err != nil {
		if errors.Is(err, services.ErrNotDroppedOut) {
			log.Error("student is not dropped out", slog.String("uid", uid))
			w.WriteHeader(http.StatusConflict)
			render.JSON(w, r, response.Error("student is not dropped out"))
			return
		}
		log.Error("failed to reactivate student", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not reactivate student"))
		return
	}

	log.Info("success to reactivate student", slog.String("uid", uid))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"uid": uid,
	}))
}
