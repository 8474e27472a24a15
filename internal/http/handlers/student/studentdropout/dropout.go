// Package studentdropout реализует HTTP-обработчик отчисления студента.
//
// После отчисления новые расчётные периоды не открываются, а неоплаченные
// периоды до даты отчисления замораживаются и не подлежат взысканию.
package studentdropout

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

// Handler обрабатывает запросы на отчисление студента.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Service описывает интерфейс бизнес-логики отчисления.
type Service interface {
	Dropout(ctx context.Context, uid string, req models.DummyDropout) error
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
// @Summary Отчислить студента
// @Description Отмечает отчисление студента с указанной даты. Повторное отчисление возвращает конфликт.
// @Tags Students
// @Accept  json
// @Produce  json
// @Param uid path string true "UID студента"
// @Param request body models.DummyDropout true "Дата и причина отчисления"
// @Success 200 {object} map[string]any "Студент отчислен"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 409 {object} response.ErrorResponse "Студент уже отчислен"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /students/{uid}/dropout [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.student.dropout"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	uid := chi.URLParam(r, "uid")

	var req models.DummyDropout
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

	if err := h.service.Dropout(r.Context(), uid, req); err != nil {
		if errors.Is(err, services.ErrAlreadyDroppedOut) {
			log.Error("student already dropped out", slog.String("uid", uid))
			w.WriteHeader(http.StatusConflict)
			render.JSON(w, r, response.Error("student already dropped out"))
			return
		}
		log.Error("failed to dropout student", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not dropout student"))
		return
	}

	log.Info("success to dropout student", slog.String("uid", uid))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"uid": uid,
	}))
}
