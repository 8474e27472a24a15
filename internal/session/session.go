// Package session реализует рукопожатие подтверждения оплаты между
// устройством студента и оператором.
//
// Одна сессия живёт от сканирования до терминального исхода и управляется
// конечным автоматом: AwaitingOperator → Claimed → {Confirmed | Rejected},
// с выходами Expired по таймауту, Canceled по отзыву студентом и Errored
// при обрыве соединения. Все мутации одной сессии сериализованы её мьютексом,
// разные сессии независимы.
package session

import (
	"sync"
	"time"

	"github.com/magabrotheeeer/tuition-billing/internal/models"
)

// State — закрытое множество состояний сессии рукопожатия.
type State string

const (
	// StateAwaitingOperator — сумма к оплате вычислена и разослана операторам,
	// сессия ждёт захвата.
	StateAwaitingOperator State = "awaiting_operator"
	// StateClaimed — сессию захватил ровно один оператор, решение за ним.
	StateClaimed State = "claimed"
	// StateConfirmed — оператор подтвердил оплату, платёж записан.
	StateConfirmed State = "confirmed"
	// StateRejected — оператор отклонил оплату.
	StateRejected State = "rejected"
	// StateExpired — оператор не успел захватить или решить в отведённое окно.
	StateExpired State = "expired"
	// StateCanceled — студент отозвал сессию до захвата.
	StateCanceled State = "canceled"
	// StateErrored — обрыв соединения до терминального решения.
	StateErrored State = "errored"
)

// Terminal сообщает, является ли состояние конечным.
func (s State) Terminal() bool {
	switch s {
	case StateConfirmed, StateRejected, StateExpired, StateCanceled, StateErrored:
		return true
	default:
		return false
	}
}

// Outcome — исход сессии, доставляемый устройству студента.
// Студент различает отказ, таймаут и ошибку соединения как три разных исхода.
type Outcome string

const (
	// OutcomeConfirmed — оплата подтверждена, платёж записан.
	OutcomeConfirmed Outcome = "confirmed"
	// OutcomeRejected — оператор отклонил оплату.
	OutcomeRejected Outcome = "rejected"
	// OutcomeExpired — время ожидания истекло.
	OutcomeExpired Outcome = "expired"
	// OutcomeCanceled — студент отозвал запрос.
	OutcomeCanceled Outcome = "canceled"
	// OutcomeError — соединение оборвалось, нужно открыть новую сессию.
	OutcomeError Outcome = "error"
)

// Result — терминальный исход, отправляемый в канал наблюдателя сессии.
type Result struct {
	SessionID string
	Outcome   Outcome
	PeriodKey string
}

// Session хранит состояние одного рукопожатия. Все поля после создания
// меняются только под mu.
type Session struct {
	mu sync.Mutex

	ID           string
	StudentUID   string
	PeriodKey    models.PeriodKey
	AmountDue    int
	State        State
	Operator     string // пусто до захвата
	CreatedAt    time.Time
	LastActivity time.Time

	// result буферизован на один элемент: терминальный исход пишется ровно
	// один раз и не блокирует автора даже без читателя.
	result chan Result
	timer  *time.Timer
}

// Snapshot — копия наблюдаемых полей сессии без внутренней синхронизации.
type Snapshot struct {
	ID         string
	StudentUID string
	PeriodKey  string
	AmountDue  int
	State      State
	Operator   string
}

// Snapshot возвращает согласованную копию состояния сессии.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		ID:         s.ID,
		StudentUID: s.StudentUID,
		PeriodKey:  s.PeriodKey.String(),
		AmountDue:  s.AmountDue,
		State:      s.State,
		Operator:   s.Operator,
	}
}

// Result возвращает канал, в который будет записан терминальный исход сессии.
func (s *Session) Result() <-chan Result {
	return s.result
}

// deliver пишет терминальный исход. Вызывается под mu ровно один раз,
// запись платежа к этому моменту уже выполнена.
func (s *Session) deliver(outcome Outcome) {
	s.result <- Result{
		SessionID: s.ID,
		Outcome:   outcome,
		PeriodKey: s.PeriodKey.String(),
	}
}

func (s *Session) stopTimer() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}
