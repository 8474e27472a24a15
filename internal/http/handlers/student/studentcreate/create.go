// Package studentcreate реализует HTTP-обработчик зачисления новых студентов.
//
// Handler принимает JSON-запрос с данными профиля, валидирует их,
// вызывает бизнес-логику создания профиля и возвращает UID созданного студента.
//
// В случае ошибок формируются соответствующие HTTP-ответы с описанием проблемы.
package studentcreate

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/tuition-billing/internal/http/response"
	"github.com/magabrotheeeer/tuition-billing/internal/lib/sl"
	"github.com/magabrotheeeer/tuition-billing/internal/models"
)

// Handler управляет HTTP-запросами на зачисление студентов.
type Handler struct {
	log      *slog.Logger        // Логгер для записи информации и ошибок
	service  Service             // Сервис бизнес-логики профилей студентов
	validate *validator.Validate // Валидатор структуры входящих данных
}

// Service описывает интерфейс бизнес-логики создания профиля.
type Service interface {
	Create(ctx context.Context, req models.DummyStudent) (string, error)
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
// @Summary Зачислить нового студента
// @Description Создает профиль студента с якорной датой и схемой оплаты. Возвращает UID.
// @Tags Students
// @Accept  json
// @Produce  json
// @Param request body models.DummyStudent true "Данные нового студента"
// @Success 200 {object} map[string]any "Успешное зачисление"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера при создании профиля"
// @Router /students [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.student.create"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req models.DummyStudent
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}
	log.Info("request body decoded", slog.Any("request", req))

	if err := h.validate.Struct(req); err != nil {
		log.Error("validation failed", sl.Err(err))
		w.WriteHeader(http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}
	log.Info("all fields are validated")

	uid, err := h.service.Create(r.Context(), req)
	if err != nil {
		log.Error("failed to create student", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not create student"))
		return
	}

	log.Info("success to create student", slog.String("uid", uid))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"uid": uid,
	}))
}
