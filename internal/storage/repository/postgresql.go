// Package repository реализует хранилище данных на основе PostgreSQL
// для управления студентами, платежами и учётными записями операторов.
// Предоставляет методы создания, чтения и обновления записей.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	// Регистрация драйвера pgx для использования с database/sql.
	_ "github.com/jackc/pgx/v5/stdlib"
)

// ErrDuplicatePayment возвращается при попытке повторно подтвердить
// уже оплаченный период. Наружу отдаётся как конфликт, повтор не выполняется.
var ErrDuplicatePayment = errors.New("payment for period already confirmed")

// ErrStudentNotFound возвращается, когда студент с указанным идентификатором отсутствует.
var ErrStudentNotFound = errors.New("student not found")

// Storage инкапсулирует соединение с базой данных PostgreSQL
// и реализует методы работы со студентами, платежами и пользователями.
type Storage struct {
	DB *sql.DB
}

// New создаёт подключение к PostgreSQL и проверяет его доступность.
func New(storageConnectionString string) (*Storage, error) {
	const op = "storage.New"

	db, err := sql.Open("pgx", storageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err = db.PingContext(context.Background()); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Storage{
		DB: db,
	}, nil
}

// CheckDatabaseReady проверяет готовность базы данных.
func CheckDatabaseReady(storage *Storage) error {
	var exists bool
	err := storage.DB.QueryRow(`SELECT EXISTS (
        SELECT FROM information_schema.tables 
        WHERE table_name = 'payments'
    )`).Scan(&exists)
	if err != nil || !exists {
		return fmt.Errorf("required table payments missing or query error: %w", err)
	}
	return nil
}
