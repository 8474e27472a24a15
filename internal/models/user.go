// Package models содержит доменную модель пользователя системы —
// оператора или администратора, подтверждающих оплату.
package models

import "time"

// User представляет учётную запись оператора или администратора.
type User struct {
	UID          string    // Уникальный идентификатор пользователя
	Email        string    // Электронная почта
	Username     string    // Имя пользователя (уникальное)
	PasswordHash string    // Хэш пароля пользователя
	Role         string    // Роль пользователя, admin или operator
	CreatedAt    time.Time // Дата создания учётной записи
}

// DummyRegister используется для приёма данных из JSON-запроса регистрации.
type DummyRegister struct {
	Email    string `json:"email" validate:"required,email"`       // Электронная почта
	Username string `json:"username" validate:"required,alphanum"` // Имя пользователя
	Password string `json:"password" validate:"required,min=8"`    // Пароль
}

// DummyLogin используется для приёма данных из JSON-запроса входа.
type DummyLogin struct {
	Username string `json:"username" validate:"required"` // Имя пользователя
	Password string `json:"password" validate:"required"` // Пароль
}
