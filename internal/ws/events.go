// Package ws реализует вебсокет-транспорт рукопожатия подтверждения оплаты.
//
// Устройство студента открывает сессию и ждёт терминального исхода, операторы
// получают широковещательные события об ожидающих оплатах и отвечают
// захватом и решением. Доставка упорядочена в пределах одного соединения,
// порядок между клиентами не гарантируется, повторная доставка кадров
// допустима: менеджер сессий обрабатывает дубликаты идемпотентно.
package ws

import "encoding/json"

// Типы кадров протокола.
const (
	// Студент → сервер.
	frameOpenSession = "billing.open-session"
	frameCancel      = "billing.cancel"

	// Оператор → сервер.
	frameClaim  = "billing.claim"
	frameDecide = "billing.decide"

	// Сервер → студент.
	frameSessionOpened = "billing.session-opened"
	frameOutcome       = "billing.outcome"

	// Сервер → операторы.
	framePendingCharge = "billing.pending-charge"
	frameSessionClosed = "billing.session-closed"

	// Сервер → любой клиент.
	frameAck   = "billing.ack"
	frameError = "billing.error"
)

// Коды ошибок протокола.
const (
	codeInvalidArgument  = "INVALID_ARGUMENT"
	codeNothingDue       = "NOTHING_DUE"
	codeProfileInactive  = "PROFILE_INACTIVE"
	codeAlreadyClaimed   = "ALREADY_CLAIMED"
	codeNotClaimant      = "NOT_CLAIMANT"
	codeSessionClosed    = "SESSION_CLOSED"
	codeCancelNotAllowed = "CANCEL_NOT_ALLOWED"
	codeConflict         = "CONFLICT"
	codeInternal         = "INTERNAL"
)

// Frame — единица обмена по вебсокету.
type Frame struct {
	Type      string          `json:"type"`
	RequestID string          `json:"request_id,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// OpenSessionPayload — запрос студента на открытие сессии.
type OpenSessionPayload struct {
	StudentUID string `json:"student_uid"`
	AsOf       string `json:"as_of,omitempty"` // YYYY-MM-DD, по умолчанию сегодня
}

// SessionOpenedPayload — подтверждение открытия сессии студенту.
type SessionOpenedPayload struct {
	SessionID string `json:"session_id"`
	PeriodKey string `json:"period_key"`
	AmountDue int    `json:"amount_due"`
}

// CancelPayload — отзыв сессии студентом.
type CancelPayload struct {
	SessionID string `json:"session_id"`
}

// ClaimPayload — захват сессии оператором.
type ClaimPayload struct {
	SessionID string `json:"session_id"`
}

// DecidePayload — решение захватившего оператора.
type DecidePayload struct {
	SessionID string `json:"session_id"`
	Approve   bool   `json:"approve"`
}

// PendingChargePayload — событие об ожидающей оплате для операторов.
type PendingChargePayload struct {
	SessionID  string `json:"session_id"`
	StudentUID string `json:"student_uid"`
	PeriodKey  string `json:"period_key"`
	AmountDue  int    `json:"amount_due"`
}

// OutcomePayload — терминальный исход сессии для студента.
type OutcomePayload struct {
	SessionID string `json:"session_id"`
	Outcome   string `json:"outcome"` // confirmed | rejected | expired | canceled | error
	PeriodKey string `json:"period_key,omitempty"`
}

// SessionClosedPayload — уведомление операторов о закрытии сессии.
type SessionClosedPayload struct {
	SessionID string `json:"session_id"`
}

// AckPayload — подтверждение успешной операции.
type AckPayload struct {
	Status string `json:"status"`
}

// ErrorPayload — ошибка в ответ на кадр клиента.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
