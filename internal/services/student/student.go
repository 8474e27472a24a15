// Package services содержит бизнес-логику управления профилями студентов:
// зачисление, отчисление и реактивацию с переносом якорной даты.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/tuition-billing/internal/models"
)

// ErrAlreadyDroppedOut означает, что студент уже отчислен.
var ErrAlreadyDroppedOut = errors.New("student already dropped out")

// ErrNotDroppedOut означает, что реактивировать можно только отчисленного студента.
var ErrNotDroppedOut = errors.New("student is not dropped out")

// StudentRepository определяет методы для работы с профилями студентов в хранилище.
type StudentRepository interface {
	// CreateStudent добавляет нового студента и возвращает его ID.
	CreateStudent(ctx context.Context, profile models.StudentProfile) (int, error)
	// ReadStudent возвращает профиль студента по UID.
	ReadStudent(ctx context.Context, uid string) (*models.StudentProfile, error)
	// ListStudents возвращает список студентов с пагинацией.
	ListStudents(ctx context.Context, limit, offset int) ([]*models.StudentProfile, error)
	// DropoutStudent отмечает отчисление, возвращает количество изменённых строк.
	DropoutStudent(ctx context.Context, uid string, req models.StudentDropout) (int, error)
	// ReactivateStudent снимает отчисление и ставит новый якорь.
	ReactivateStudent(ctx context.Context, uid string, req models.StudentReactivation) (int, error)
}

// Cache описывает методы для кэширования данных.
type Cache interface {
	Get(key string, result any) (bool, error)
	Set(key string, value any, expiration time.Duration) error
	Invalidate(key string) error
}

// StudentService реализует бизнес-логику работы с профилями студентов.
type StudentService struct {
	repo  StudentRepository
	cache Cache
	log   *slog.Logger
}

// NewStudentService создает новый экземпляр StudentService.
func NewStudentService(repo StudentRepository, cache Cache, log *slog.Logger) *StudentService {
	return &StudentService{
		repo:  repo,
		cache: cache,
		log:   log,
	}
}

// Create создает профиль студента из запроса и возвращает его UID.
func (s *StudentService) Create(ctx context.Context, req models.DummyStudent) (string, error) {
	enrollmentDate, err := time.Parse("2006-01-02", req.EnrollmentDate)
	if err != nil {
		return "", fmt.Errorf("invalid enrollment date: %w", err)
	}
	scheme, err := models.ParseScheme(req.Scheme)
	if err != nil {
		return "", err
	}

	profile := models.StudentProfile{
		UID:            uuid.New().String(),
		FullName:       req.FullName,
		Email:          req.Email,
		EnrollmentDate: enrollmentDate,
		Scheme:         scheme,
		FeeAmount:      req.FeeAmount,
	}

	if _, err := s.repo.CreateStudent(ctx, profile); err != nil {
		return "", err
	}
	s.log.Info("created new student", slog.String("uid", profile.UID))

	return profile.UID, nil
}

// Read возвращает профиль студента, используя кеш или репозиторий.
func (s *StudentService) Read(ctx context.Context, uid string) (*models.StudentProfile, error) {
	var result *models.StudentProfile
	cacheKey := fmt.Sprintf("student:%s", uid)
	found, err := s.cache.Get(cacheKey, &result)
	if err != nil {
		s.log.Warn("failed to read from cache", slog.String("key", cacheKey), slog.Any("err", err))
	}
	if found && result != nil {
		return result, nil
	}
	result, err = s.repo.ReadStudent(ctx, uid)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(cacheKey, result, 10*time.Minute); err != nil {
		s.log.Warn("failed to cache student", slog.String("key", cacheKey), slog.Any("err", err))
	}
	return result, nil
}

// List возвращает список студентов с пагинацией.
func (s *StudentService) List(ctx context.Context, limit, offset int) ([]*models.StudentProfile, error) {
	return s.repo.ListStudents(ctx, limit, offset)
}

// Dropout отмечает отчисление студента и инвалидирует кеш профиля.
// Периоды после даты отчисления больше не открываются.
func (s *StudentService) Dropout(ctx context.Context, uid string, req models.DummyDropout) error {
	dropoutDate, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return fmt.Errorf("invalid dropout date: %w", err)
	}

	count, err := s.repo.DropoutStudent(ctx, uid, models.StudentDropout{
		Date:   dropoutDate,
		Reason: req.Reason,
	})
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrAlreadyDroppedOut
	}

	s.invalidateProfile(uid)
	s.log.Info("student dropped out", slog.String("uid", uid), slog.String("reason", req.Reason))
	return nil
}

// Reactivate снимает отчисление: дата запроса становится новым якорем,
// нумерация периодов начинается заново, периоды до реактивации заморожены.
func (s *StudentService) Reactivate(ctx context.Context, uid string, req models.DummyReactivate) error {
	anchorDate, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return fmt.Errorf("invalid reactivation date: %w", err)
	}

	count, err := s.repo.ReactivateStudent(ctx, uid, models.StudentReactivation{Date: anchorDate})
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrNotDroppedOut
	}

	s.invalidateProfile(uid)
	s.log.Info("student reactivated", slog.String("uid", uid), slog.String("new_anchor", req.Date))
	return nil
}

func (s *StudentService) invalidateProfile(uid string) {
	cacheKey := fmt.Sprintf("student:%s", uid)
	if err := s.cache.Invalidate(cacheKey); err != nil {
		s.log.Warn("failed to invalidate cache", slog.String("key", cacheKey), slog.Any("err", err))
	}
}
