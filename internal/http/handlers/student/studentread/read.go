// Package studentread реализует HTTP-обработчик для получения профиля студента по UID.
//
// Handler извлекает UID из URL-параметров, вызывает бизнес-логику чтения профиля
// и возвращает данные студента в JSON-формате.
package studentread

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/tuition-billing/internal/http/response"
	"github.com/magabrotheeeer/tuition-billing/internal/lib/sl"
	"github.com/magabrotheeeer/tuition-billing/internal/models"
	"github.com/magabrotheeeer/tuition-billing/internal/storage/repository"
)

// Handler обрабатывает запросы на получение профиля студента по UID.
type Handler struct {
	log     *slog.Logger // Логгер для записи информации и ошибок
	service Service      // Сервис бизнес-логики профилей студентов
}

// Service описывает интерфейс бизнес-логики чтения профиля.
type Service interface {
	Read(ctx context.Context, uid string) (*models.StudentProfile, error)
}

// New создает новый Handler с переданным логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Получить профиль студента
// @Description Возвращает профиль студента по UID.
// @Tags Students
// @Produce  json
// @Param uid path string true "UID студента"
// @Success 200 {object} map[string]any "Профиль студента"
// @Failure 404 {object} response.ErrorResponse "Студент не найден"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /students/{uid} [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.student.read"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	uid := chi.URLParam(r, "uid")
	res, err := h.service.Read(r.Context(), uid)
	if err != nil {
		if errors.Is(err, repository.ErrStudentNotFound) {
			log.Error("student not found", slog.String("uid", uid))
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("student not found"))
			return
		}
		log.Error("failed to read student", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not read student"))
		return
	}

	log.Info("success to read student", slog.String("uid", uid))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"student": res,
	}))
}
