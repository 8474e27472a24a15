// Package models содержит доменные структуры системы оплаты обучения:
// профили студентов, платежи, расчётные периоды и пользователей-операторов,
// а также вспомогательные типы для приёма данных из внешних источников (JSON-запросы).
package models

import "fmt"

// Scheme определяет схему оплаты — длину расчётного периода студента.
type Scheme string

const (
	// SchemeDaily — оплата за каждый день.
	SchemeDaily Scheme = "daily"
	// SchemeWeekly — оплата раз в 7 дней.
	SchemeWeekly Scheme = "weekly"
	// SchemeBiweekly — оплата раз в 14 дней.
	SchemeBiweekly Scheme = "biweekly"
	// SchemeEvery28 — оплата раз в 28 дней.
	SchemeEvery28 Scheme = "every28"
)

// SpanDays возвращает длину периода схемы в календарных днях.
func (s Scheme) SpanDays() int {
	switch s {
	case SchemeDaily:
		return 1
	case SchemeWeekly:
		return 7
	case SchemeBiweekly:
		return 14
	case SchemeEvery28:
		return 28
	}
	return 0
}

// Valid сообщает, является ли значение одной из известных схем оплаты.
func (s Scheme) Valid() bool {
	return s.SpanDays() > 0
}

// ParseScheme преобразует строку в Scheme, возвращает ошибку для неизвестных значений.
func ParseScheme(raw string) (Scheme, error) {
	s := Scheme(raw)
	if !s.Valid() {
		return "", fmt.Errorf("unknown payment scheme: %q", raw)
	}
	return s, nil
}
