package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/tuition-billing/internal/models"
)

type StudentsMock struct{ mock.Mock }

func (m *StudentsMock) ListActiveStudents(ctx context.Context) ([]*models.StudentProfile, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.StudentProfile), args.Error(1)
}

type PaymentsMock struct{ mock.Mock }

func (m *PaymentsMock) FindPaidPeriodKeys(ctx context.Context, studentUID string) ([]string, error) {
	args := m.Called(ctx, studentUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *PaymentsMock) MarkOverdue(ctx context.Context, studentUID, periodKey string, amount int) error {
	return m.Called(ctx, studentUID, periodKey, amount).Error(0)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func weeklyStudent() *models.StudentProfile {
	return &models.StudentProfile{
		UID:            "uid-1",
		FullName:       "Alice Student",
		Email:          "alice@example.com",
		EnrollmentDate: date(2024, 1, 1),
		Scheme:         models.SchemeWeekly,
		FeeAmount:      300,
	}
}

func TestOverdueService_CollectOverdue(t *testing.T) {
	tests := []struct {
		name       string
		student    *models.StudentProfile
		paidKeys   []string
		asOf       time.Time
		wantMarked []string
	}{
		{
			// К 2024-01-20 закрылись недели #0 и #1, неделя #2 ещё идёт.
			name:       "closed unpaid periods marked",
			student:    weeklyStudent(),
			paidKeys:   []string{},
			asOf:       date(2024, 1, 20),
			wantMarked: []string{"2024-01-01#0", "2024-01-01#1"},
		},
		{
			name:       "paid periods skipped",
			student:    weeklyStudent(),
			paidKeys:   []string{"2024-01-01#0"},
			asOf:       date(2024, 1, 20),
			wantMarked: []string{"2024-01-01#1"},
		},
		{
			name:       "nothing closed yet",
			student:    weeklyStudent(),
			paidKeys:   []string{},
			asOf:       date(2024, 1, 3),
			wantMarked: nil,
		},
		{
			name:       "all closed periods paid",
			student:    weeklyStudent(),
			paidKeys:   []string{"2024-01-01#0", "2024-01-01#1"},
			asOf:       date(2024, 1, 20),
			wantMarked: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			students := new(StudentsMock)
			payments := new(PaymentsMock)
			if tt.asOf.After(tt.student.EnrollmentDate) {
				payments.On("FindPaidPeriodKeys", mock.Anything, "uid-1").Return(tt.paidKeys, nil).Once()
			}
			for _, key := range tt.wantMarked {
				payments.On("MarkOverdue", mock.Anything, "uid-1", key, 300).Return(nil).Once()
			}

			svc := NewOverdueService(students, payments, newNoopLogger())
			notices, err := svc.collectOverdue(context.Background(), tt.student, tt.asOf)
			require.NoError(t, err)

			var gotKeys []string
			for _, n := range notices {
				gotKeys = append(gotKeys, n.PeriodKey)
				assert.Equal(t, "alice@example.com", n.Email)
				assert.Equal(t, 300, n.AmountDue)
			}
			assert.Equal(t, tt.wantMarked, gotKeys)
			payments.AssertExpectations(t)
		})
	}
}

func TestOverdueService_CollectOverdue_DropoutLimitsScan(t *testing.T) {
	dropout := date(2024, 1, 10)
	student := weeklyStudent()
	student.DropoutDate = &dropout

	students := new(StudentsMock)
	payments := new(PaymentsMock)
	payments.On("FindPaidPeriodKeys", mock.Anything, "uid-1").Return([]string{}, nil).Once()
	// Открыты периоды #0 и #1, но к 2024-03-01 оба уже закрылись.
	payments.On("MarkOverdue", mock.Anything, "uid-1", "2024-01-01#0", 300).Return(nil).Once()
	payments.On("MarkOverdue", mock.Anything, "uid-1", "2024-01-01#1", 300).Return(nil).Once()

	svc := NewOverdueService(students, payments, newNoopLogger())
	notices, err := svc.collectOverdue(context.Background(), student, date(2024, 3, 1))
	require.NoError(t, err)
	require.Len(t, notices, 2)
	payments.AssertExpectations(t)
}

func TestOverdueService_CollectOverdue_MarkError(t *testing.T) {
	students := new(StudentsMock)
	payments := new(PaymentsMock)
	payments.On("FindPaidPeriodKeys", mock.Anything, "uid-1").Return([]string{}, nil).Once()
	payments.On("MarkOverdue", mock.Anything, "uid-1", "2024-01-01#0", 300).
		Return(errors.New("db error")).Once()

	svc := NewOverdueService(students, payments, newNoopLogger())
	_, err := svc.collectOverdue(context.Background(), weeklyStudent(), date(2024, 1, 20))
	require.Error(t, err)
}

func TestOverdueService_RunFindOverduePeriods(t *testing.T) {
	t.Run("repository error only logged", func(t *testing.T) {
		students := new(StudentsMock)
		payments := new(PaymentsMock)
		students.On("ListActiveStudents", mock.Anything).Return(nil, errors.New("db error")).Once()

		svc := NewOverdueService(students, payments, newNoopLogger())
		svc.runFindOverduePeriods(context.Background(), nil)
		students.AssertExpectations(t)
	})

	t.Run("no active students", func(t *testing.T) {
		students := new(StudentsMock)
		payments := new(PaymentsMock)
		students.On("ListActiveStudents", mock.Anything).Return([]*models.StudentProfile{}, nil).Once()

		svc := NewOverdueService(students, payments, newNoopLogger())
		svc.runFindOverduePeriods(context.Background(), nil)
		students.AssertExpectations(t)
	})
}
