// Package studentlist реализует HTTP-обработчик для получения списка студентов с пагинацией.
package studentlist

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/tuition-billing/internal/http/response"
	"github.com/magabrotheeeer/tuition-billing/internal/lib/sl"
	"github.com/magabrotheeeer/tuition-billing/internal/models"
)

// Handler обрабатывает запросы на получение списка студентов.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс бизнес-логики списка студентов.
type Service interface {
	List(ctx context.Context, limit, offset int) ([]*models.StudentProfile, error)
}

// New создает новый Handler с переданным логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Список студентов
// @Description Возвращает список студентов с пагинацией через query-параметры limit и offset.
// @Tags Students
// @Produce  json
// @Param limit query int false "Максимум записей, по умолчанию 20"
// @Param offset query int false "Смещение, по умолчанию 0"
// @Success 200 {object} map[string]any "Список студентов"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /students/list [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.student.list"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	offset := 0
	if raw := r.URL.Query().Get("offset"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed >= 0 {
			offset = parsed
		}
	}

	res, err := h.service.List(r.Context(), limit, offset)
	if err != nil {
		log.Error("failed to list students", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not list students"))
		return
	}

	log.Info("success to list students", slog.Int("count", len(res)))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"students": res,
		"count":    len(res),
	}))
}
