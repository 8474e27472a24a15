// Package services содержит бизнес-логику расчёта задолженности студента.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/tuition-billing/internal/lib/period"
	"github.com/magabrotheeeer/tuition-billing/internal/models"
)

// ErrNothingDue означает, что все открытые периоды студента оплачены.
var ErrNothingDue = errors.New("nothing due")

// ErrProfileInactive означает, что студент отчислен и не реактивирован:
// задолженность для замороженного профиля не рассчитывается.
var ErrProfileInactive = errors.New("student profile is inactive")

// StudentRepository определяет методы хранилища, нужные для расчёта задолженности.
type StudentRepository interface {
	// ReadStudent возвращает платёжный профиль студента.
	ReadStudent(ctx context.Context, uid string) (*models.StudentProfile, error)
	// FindPaidPeriodKeys возвращает ключи оплаченных периодов студента.
	FindPaidPeriodKeys(ctx context.Context, studentUID string) ([]string, error)
}

// Cache описывает методы для кэширования данных.
type Cache interface {
	// Get пытается получить значение из кеша по ключу.
	Get(key string, result any) (bool, error)
	// Set сохраняет значение в кеш с временем жизни.
	Set(key string, value any, expiration time.Duration) error
	// Invalidate удаляет значение из кеша по ключу.
	Invalidate(key string) error
}

// BillingService реализует расчёт задолженности: какие периоды открыты,
// какие уже оплачены и какой период нужно оплатить следующим.
type BillingService struct {
	repo  StudentRepository
	cache Cache
	log   *slog.Logger
}

// NewBillingService создает новый экземпляр BillingService.
func NewBillingService(repo StudentRepository, cache Cache, log *slog.Logger) *BillingService {
	return &BillingService{
		repo:  repo,
		cache: cache,
		log:   log,
	}
}

// ResolveOutstanding возвращает самый ранний неоплаченный период студента
// и сумму к оплате на дату asOf. Оплата строго последовательная: пока не
// погашен ранний период, более поздние не предлагаются.
//
// Возвращает ErrNothingDue, если все открытые периоды оплачены, и
// ErrProfileInactive, если студент отчислен и дата asOf позже даты отчисления.
func (s *BillingService) ResolveOutstanding(ctx context.Context, studentUID string, asOf time.Time) (*models.Outstanding, error) {
	profile, err := s.loadProfile(ctx, studentUID)
	if err != nil {
		return nil, err
	}

	asOf = period.Day(asOf)
	if profile.DropoutDate != nil && asOf.After(period.Day(*profile.DropoutDate)) {
		return nil, ErrProfileInactive
	}

	open := period.Open(profile.EnrollmentDate, profile.Scheme, profile.DropoutDate, asOf)
	if len(open) == 0 {
		return nil, ErrNothingDue
	}

	paidKeys, err := s.repo.FindPaidPeriodKeys(ctx, studentUID)
	if err != nil {
		return nil, err
	}
	paid := make(map[string]struct{}, len(paidKeys))
	for _, key := range paidKeys {
		paid[key] = struct{}{}
	}

	for _, key := range open {
		if _, ok := paid[key.String()]; !ok {
			return &models.Outstanding{
				PeriodKey: key,
				AmountDue: profile.FeeAmount,
			}, nil
		}
	}
	return nil, ErrNothingDue
}

// loadProfile возвращает профиль студента, используя кеш или репозиторий.
func (s *BillingService) loadProfile(ctx context.Context, studentUID string) (*models.StudentProfile, error) {
	var profile *models.StudentProfile
	cacheKey := fmt.Sprintf("student:%s", studentUID)
	found, err := s.cache.Get(cacheKey, &profile)
	if err != nil {
		s.log.Warn("failed to read from cache", slog.String("key", cacheKey), slog.Any("err", err))
	}
	if found && profile != nil {
		return profile, nil
	}

	profile, err = s.repo.ReadStudent(ctx, studentUID)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(cacheKey, profile, 10*time.Minute); err != nil {
		s.log.Warn("failed to cache student profile", slog.String("key", cacheKey), slog.Any("err", err))
	}
	return profile, nil
}
