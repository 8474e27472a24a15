// Package services реализует планировщик просрочек: периодический обход
// активных студентов, пометка неоплаченных прошедших периодов и публикация
// уведомлений в очередь.
package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/tuition-billing/internal/lib/period"
	"github.com/magabrotheeeer/tuition-billing/internal/lib/sl"
	"github.com/magabrotheeeer/tuition-billing/internal/models"
	"github.com/magabrotheeeer/tuition-billing/internal/rabbitmq"
)

// StudentRepository определяет выборку студентов для обхода планировщиком.
type StudentRepository interface {
	ListActiveStudents(ctx context.Context) ([]*models.StudentProfile, error)
}

// PaymentRepository определяет операции с платежами, нужные планировщику.
type PaymentRepository interface {
	FindPaidPeriodKeys(ctx context.Context, studentUID string) ([]string, error)
	MarkOverdue(ctx context.Context, studentUID, periodKey string, amount int) error
}

// OverdueService находит у активных студентов закрывшиеся неоплаченные периоды,
// помечает их просроченными и публикует OverdueNotice в очередь уведомлений.
type OverdueService struct {
	students StudentRepository
	payments PaymentRepository
	log      *slog.Logger
}

// NewOverdueService создает новый экземпляр OverdueService.
func NewOverdueService(students StudentRepository, payments PaymentRepository, log *slog.Logger) *OverdueService {
	return &OverdueService{
		students: students,
		payments: payments,
		log:      log,
	}
}

// FindOverduePeriods запускает обход сразу и далее раз в 24 часа.
func (s *OverdueService) FindOverduePeriods(ctx context.Context, channel *amqp.Channel) {
	s.runFindOverduePeriods(ctx, channel)

	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runFindOverduePeriods(ctx, channel)
		}
	}
}

func (s *OverdueService) runFindOverduePeriods(ctx context.Context, channel *amqp.Channel) {
	s.log.Info("starting service to find overdue periods")
	students, err := s.students.ListActiveStudents(ctx)
	if err != nil {
		s.log.Error("failed to list active students", sl.Err(err))
		return
	}
	if len(students) == 0 {
		s.log.Info("no active students found")
		return
	}

	now := period.Day(time.Now().UTC())
	var marked int
	for _, student := range students {
		notices, err := s.collectOverdue(ctx, student, now)
		if err != nil {
			s.log.Error("failed to collect overdue periods",
				slog.String("uid", student.UID), sl.Err(err))
			continue
		}
		for _, notice := range notices {
			if err := rabbitmq.PublishMessage(channel, "notifications", "overdue", notice); err != nil {
				s.log.Error("failed to publish message", sl.Err(err))
			}
			marked++
		}
	}
	s.log.Info("overdue scan finished", slog.Int("marked", marked))
}

// collectOverdue помечает просроченными все полностью закрывшиеся
// неоплаченные периоды студента и возвращает уведомления по ним.
// Период считается просроченным, только когда его конец уже позади.
func (s *OverdueService) collectOverdue(ctx context.Context, student *models.StudentProfile, asOf time.Time) ([]models.OverdueNotice, error) {
	keys := period.Open(student.EnrollmentDate, student.Scheme, student.DropoutDate, asOf)
	if len(keys) == 0 {
		return nil, nil
	}

	paidKeys, err := s.payments.FindPaidPeriodKeys(ctx, student.UID)
	if err != nil {
		return nil, err
	}
	paid := make(map[string]struct{}, len(paidKeys))
	for _, k := range paidKeys {
		paid[k] = struct{}{}
	}

	var notices []models.OverdueNotice
	for _, key := range keys {
		if key.End().After(asOf) {
			break
		}
		canonical := key.String()
		if _, ok := paid[canonical]; ok {
			continue
		}
		if err := s.payments.MarkOverdue(ctx, student.UID, canonical, student.FeeAmount); err != nil {
			return notices, err
		}
		notices = append(notices, models.OverdueNotice{
			Email:     student.Email,
			FullName:  student.FullName,
			PeriodKey: canonical,
			AmountDue: student.FeeAmount,
		})
	}
	return notices, nil
}
