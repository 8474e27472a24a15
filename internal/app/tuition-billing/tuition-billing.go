// Package tuitionbilling собирает основное приложение: HTTP API,
// вебсокет-транспорт подтверждения оплаты и зависимости сервисов.
package tuitionbilling

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"

	"github.com/magabrotheeeer/tuition-billing/internal/cache"
	"github.com/magabrotheeeer/tuition-billing/internal/config"
	"github.com/magabrotheeeer/tuition-billing/internal/lib/jwt"
	"github.com/magabrotheeeer/tuition-billing/internal/migrations"
	authservice "github.com/magabrotheeeer/tuition-billing/internal/services/auth"
	billingservice "github.com/magabrotheeeer/tuition-billing/internal/services/billing"
	studentservice "github.com/magabrotheeeer/tuition-billing/internal/services/student"
	"github.com/magabrotheeeer/tuition-billing/internal/session"
	"github.com/magabrotheeeer/tuition-billing/internal/storage/repository"
	"github.com/magabrotheeeer/tuition-billing/internal/ws"
)

type App struct {
	server *http.Server
	logger *slog.Logger
	db     *repository.Storage
	cache  *cache.Cache
}

func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, err
	}
	if err = migrations.Run(db.DB, "./migrations"); err != nil {
		return nil, err
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		return nil, err
	}

	jwtMaker := jwt.NewJWTMaker(cfg.JWTSecretKey, cfg.TokenTTL)
	authService := authservice.NewAuthService(db, jwtMaker)
	studentService := studentservice.NewStudentService(db, cacheRedis, logger)
	billingService := billingservice.NewBillingService(db, cacheRedis, logger)

	// Концентратор операторов создаётся раньше менеджера сессий: менеджер
	// публикует в него события об открытии и закрытии сессий.
	hub := ws.NewOperatorHub(logger)
	sessionManager := session.NewManager(billingService, db, hub, cfg.SessionWindows, logger)
	wsServer := ws.NewServer(sessionManager, hub, authService, logger)

	router := chi.NewRouter()

	RegisterRoutes(router, logger, authService, studentService, billingService, db, wsServer)

	srv := &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &App{
		server: srv,
		logger: logger,
		db:     db,
		cache:  cacheRedis,
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err := a.server.Shutdown(timeoutCtx)
		if closeErr := a.db.DB.Close(); closeErr != nil {
			a.logger.Error("failed to close database", slog.Any("err", closeErr))
		}
		return err
	}
}
