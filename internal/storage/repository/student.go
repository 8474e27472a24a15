package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/magabrotheeeer/tuition-billing/internal/models"
)

// CreateStudent вставляет новый профиль студента и возвращает его ID.
func (s *Storage) CreateStudent(ctx context.Context, profile models.StudentProfile) (int, error) {
	const op = "storage.CreateStudent"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO students (uid, full_name, email, enrollment_date, scheme, fee_amount)
			  VALUES ($1, $2, $3, $4, $5, $6)
			  RETURNING id`
	var newID int
	err := s.DB.QueryRowContext(ctx, query,
		profile.UID, profile.FullName, profile.Email, profile.EnrollmentDate,
		string(profile.Scheme), profile.FeeAmount).Scan(&newID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return newID, nil
}

// ReadStudent возвращает платёжный профиль студента по его UID.
func (s *Storage) ReadStudent(ctx context.Context, uid string) (*models.StudentProfile, error) {
	const op = "storage.ReadStudent"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT uid, full_name, email, enrollment_date, scheme, fee_amount,
				dropout_date, dropout_reason, reactivated_at
			  FROM students WHERE uid = $1`
	row := s.DB.QueryRowContext(ctx, query, uid)

	var result models.StudentProfile
	var scheme string
	var dropoutReason sql.NullString
	if err := row.Scan(&result.UID, &result.FullName, &result.Email, &result.EnrollmentDate,
		&scheme, &result.FeeAmount, &result.DropoutDate, &dropoutReason,
		&result.ReactivatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, ErrStudentNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	result.Scheme = models.Scheme(scheme)
	result.DropoutReason = dropoutReason.String
	return &result, nil
}

// ListStudents возвращает профили студентов с пагинацией.
func (s *Storage) ListStudents(ctx context.Context, limit, offset int) ([]*models.StudentProfile, error) {
	const op = "storage.ListStudents"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT uid, full_name, email, enrollment_date, scheme, fee_amount,
				dropout_date, dropout_reason, reactivated_at
			  FROM students
			  ORDER BY full_name
			  LIMIT $1 OFFSET $2`
	rows, err := s.DB.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = rows.Close() }()

	var result []*models.StudentProfile
	for rows.Next() {
		var profile models.StudentProfile
		var scheme string
		var dropoutReason sql.NullString
		if err := rows.Scan(&profile.UID, &profile.FullName, &profile.Email, &profile.EnrollmentDate,
			&scheme, &profile.FeeAmount, &profile.DropoutDate, &dropoutReason,
			&profile.ReactivatedAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		profile.Scheme = models.Scheme(scheme)
		profile.DropoutReason = dropoutReason.String
		result = append(result, &profile)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// DropoutStudent отмечает отчисление студента. Возвращает количество изменённых строк:
// ноль означает, что студент не найден или уже отчислен.
func (s *Storage) DropoutStudent(ctx context.Context, uid string, req models.StudentDropout) (int, error) {
	const op = "storage.DropoutStudent"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE students
			  SET dropout_date = $2, dropout_reason = $3
			  WHERE uid = $1 AND dropout_date IS NULL`
	result, err := s.DB.ExecContext(ctx, query, uid, req.Date, req.Reason)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(rowsAffected), nil
}

// ReactivateStudent снимает отметку об отчислении и устанавливает новую якорную дату.
// Возвращает количество изменённых строк: ноль означает, что студент не отчислен.
func (s *Storage) ReactivateStudent(ctx context.Context, uid string, req models.StudentReactivation) (int, error) {
	const op = "storage.ReactivateStudent"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE students
			  SET enrollment_date = $2, reactivated_at = $2,
			      dropout_date = NULL, dropout_reason = NULL
			  WHERE uid = $1 AND dropout_date IS NOT NULL`
	result, err := s.DB.ExecContext(ctx, query, uid, req.Date)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(rowsAffected), nil
}

// ListActiveStudents возвращает всех студентов без отметки об отчислении.
// Используется планировщиком просрочек.
func (s *Storage) ListActiveStudents(ctx context.Context) ([]*models.StudentProfile, error) {
	const op = "storage.ListActiveStudents"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT uid, full_name, email, enrollment_date, scheme, fee_amount
			  FROM students
			  WHERE dropout_date IS NULL`
	rows, err := s.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = rows.Close() }()

	var result []*models.StudentProfile
	for rows.Next() {
		var profile models.StudentProfile
		var scheme string
		if err := rows.Scan(&profile.UID, &profile.FullName, &profile.Email,
			&profile.EnrollmentDate, &scheme, &profile.FeeAmount); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		profile.Scheme = models.Scheme(scheme)
		result = append(result, &profile)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
