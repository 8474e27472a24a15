// Package tuitionbilling предоставляет маршруты для основного приложения.
package tuitionbilling

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/magabrotheeeer/tuition-billing/internal/http/handlers/auth/login"
	"github.com/magabrotheeeer/tuition-billing/internal/http/handlers/auth/register"
	"github.com/magabrotheeeer/tuition-billing/internal/http/handlers/billing/outstanding"
	"github.com/magabrotheeeer/tuition-billing/internal/http/handlers/health"
	"github.com/magabrotheeeer/tuition-billing/internal/http/handlers/payment/paymentlist"
	"github.com/magabrotheeeer/tuition-billing/internal/http/handlers/student/studentcreate"
	"github.com/magabrotheeeer/tuition-billing/internal/http/handlers/student/studentdropout"
	"github.com/magabrotheeeer/tuition-billing/internal/http/handlers/student/studentlist"
	"github.com/magabrotheeeer/tuition-billing/internal/http/handlers/student/studentread"
	"github.com/magabrotheeeer/tuition-billing/internal/http/handlers/student/studentreactivate"
	"github.com/magabrotheeeer/tuition-billing/internal/http/middlewarectx"
	authservice "github.com/magabrotheeeer/tuition-billing/internal/services/auth"
	billingservice "github.com/magabrotheeeer/tuition-billing/internal/services/billing"
	studentservice "github.com/magabrotheeeer/tuition-billing/internal/services/student"
	"github.com/magabrotheeeer/tuition-billing/internal/storage/repository"
	"github.com/magabrotheeeer/tuition-billing/internal/ws"
)

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger,
	authService *authservice.AuthService,
	studentService *studentservice.StudentService,
	billingService *billingservice.BillingService,
	storage *repository.Storage,
	wsServer *ws.Server) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
		middleware.URLFormat,
	)

	r.Route("/api/v1", func(r chi.Router) {
		// Открытые конечные точки
		r.Post("/register", register.New(logger, authService).ServeHTTP)
		r.Post("/login", login.New(logger, authService).ServeHTTP)
		r.Get("/health", health.New(logger).ServeHTTP)

		// Группа с JWT аутентификацией, доступная только операторам
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.JWTMiddleware(authService, logger))
			r.Use(middlewarectx.RoleMiddleware("operator", logger))
			r.Use(middlewarectx.RateLimitMiddleware(logger))
			r.Post("/students", studentcreate.New(logger, studentService).ServeHTTP)
			r.Get("/students/list", studentlist.New(logger, studentService).ServeHTTP)
			r.Get("/students/{uid}", studentread.New(logger, studentService).ServeHTTP)
			r.Post("/students/{uid}/dropout", studentdropout.New(logger, studentService).ServeHTTP)
			r.Post("/students/{uid}/reactivate", studentreactivate.New(logger, studentService).ServeHTTP)
			r.Get("/students/{uid}/outstanding", outstanding.New(logger, billingService).ServeHTTP)
			r.Get("/students/{uid}/payments", paymentlist.New(logger, storage).ServeHTTP)
		})
	})

	// Вебсокет-транспорт рукопожатия: аутентификация оператора выполняется
	// внутри обработчика по query-параметру token.
	wsHandler := wsServer.Handler()
	r.Handle("/ws/student", wsHandler)
	r.Handle("/ws/operator", wsHandler)

	r.Handle("/metrics", promhttp.Handler())
	// Swagger docs endpoint
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
