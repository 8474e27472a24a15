package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/magabrotheeeer/tuition-billing/internal/models"
)

// CreatePayment фиксирует подтверждённую оплату периода и возвращает ID записи.
// Повторное подтверждение уже оплаченного периода возвращает ErrDuplicatePayment —
// двойное списание исключено на уровне уникального ключа (student_uid, period_key).
// Запись со статусом pending или overdue при подтверждении переводится в paid.
func (s *Storage) CreatePayment(ctx context.Context, record models.PaymentRecord) (int, error) {
	const op = "storage.CreatePayment"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO payments (student_uid, period_key, amount, status, paid_at, operator_username)
			  VALUES ($1, $2, $3, $4, $5, $6)
			  ON CONFLICT (student_uid, period_key) DO UPDATE
			  SET amount = EXCLUDED.amount, status = EXCLUDED.status,
			      paid_at = EXCLUDED.paid_at, operator_username = EXCLUDED.operator_username
			  WHERE payments.status <> 'paid'
			  RETURNING id`
	var newID int
	err := s.DB.QueryRowContext(ctx, query,
		record.StudentUID, record.PeriodKey, record.Amount, string(models.PaymentPaid),
		record.PaidAt, record.OperatorUsername).Scan(&newID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("%s: %w", op, ErrDuplicatePayment)
	}
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return newID, nil
}

// FindPayments возвращает все платежи студента, новые раньше.
func (s *Storage) FindPayments(ctx context.Context, studentUID string) ([]*models.PaymentRecord, error) {
	const op = "storage.FindPayments"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, student_uid, period_key, amount, status, paid_at, operator_username, created_at
			  FROM payments
			  WHERE student_uid = $1
			  ORDER BY created_at DESC`
	rows, err := s.DB.QueryContext(ctx, query, studentUID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = rows.Close() }()

	var result []*models.PaymentRecord
	for rows.Next() {
		var record models.PaymentRecord
		var status string
		var operator sql.NullString
		if err := rows.Scan(&record.ID, &record.StudentUID, &record.PeriodKey, &record.Amount,
			&status, &record.PaidAt, &operator, &record.CreatedAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		record.Status = models.PaymentStatus(status)
		record.OperatorUsername = operator.String
		result = append(result, &record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// FindPaidPeriodKeys возвращает ключи периодов студента со статусом paid.
// Записи pending и overdue не считаются погашенными.
func (s *Storage) FindPaidPeriodKeys(ctx context.Context, studentUID string) ([]string, error) {
	const op = "storage.FindPaidPeriodKeys"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT period_key FROM payments
			  WHERE student_uid = $1 AND status = 'paid'`
	rows, err := s.DB.QueryContext(ctx, query, studentUID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = rows.Close() }()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return keys, nil
}

// MarkOverdue помечает период просроченным, если по нему ещё нет записи.
// Существующие записи (в том числе paid) не затрагиваются.
func (s *Storage) MarkOverdue(ctx context.Context, studentUID, periodKey string, amount int) error {
	const op = "storage.MarkOverdue"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO payments (student_uid, period_key, amount, status)
			  VALUES ($1, $2, $3, $4)
			  ON CONFLICT (student_uid, period_key) DO NOTHING`
	if _, err := s.DB.ExecContext(ctx, query, studentUID, periodKey, amount,
		string(models.PaymentOverdue)); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
