package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/tuition-billing/internal/config"
	"github.com/magabrotheeeer/tuition-billing/internal/lib/sl"
	"github.com/magabrotheeeer/tuition-billing/internal/metrics"
	"github.com/magabrotheeeer/tuition-billing/internal/models"
)

// ErrAlreadyClaimed возвращается второму оператору при попытке захвата
// уже занятой сессии.
var ErrAlreadyClaimed = errors.New("session already claimed by another operator")

// ErrNotClaimant возвращается, когда решение пытается принять не тот оператор,
// который захватил сессию.
var ErrNotClaimant = errors.New("operator is not the claimant of this session")

// ErrSessionClosed возвращается для завершённых или неизвестных сессий.
var ErrSessionClosed = errors.New("session is closed")

// ErrCancelNotAllowed возвращается на отмену после захвата: завершить
// захваченную сессию может только решение оператора или таймаут.
var ErrCancelNotAllowed = errors.New("cancel is not allowed after claim")

// BalanceResolver вычисляет ближайший неоплаченный период студента.
type BalanceResolver interface {
	ResolveOutstanding(ctx context.Context, studentUID string, asOf time.Time) (*models.Outstanding, error)
}

// PaymentWriter записывает подтверждённый платёж в хранилище.
type PaymentWriter interface {
	CreatePayment(ctx context.Context, record models.PaymentRecord) (int, error)
}

// OperatorBroadcaster рассылает событие о новой ожидающей оплате всем
// подключённым операторам.
type OperatorBroadcaster interface {
	BroadcastPendingCharge(sessionID, studentUID, periodKey string, amountDue int)
	BroadcastSessionClosed(sessionID string)
}

// Manager владеет множеством активных сессий. Это единственная общая
// изменяемая структура: карта id → сессия, записи удаляются ровно один раз
// при терминальном переходе. Мьютекс карты защищает только вставку, поиск
// и удаление, переходы состояний сериализуются мьютексом самой сессии.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	resolver    BalanceResolver
	payments    PaymentWriter
	broadcaster OperatorBroadcaster
	windows     config.SessionWindows
	log         *slog.Logger
}

// NewManager создает новый экземпляр Manager.
func NewManager(resolver BalanceResolver, payments PaymentWriter,
	broadcaster OperatorBroadcaster, windows config.SessionWindows, log *slog.Logger) *Manager {
	return &Manager{
		sessions:    make(map[string]*Session),
		resolver:    resolver,
		payments:    payments,
		broadcaster: broadcaster,
		windows:     windows,
		log:         log,
	}
}

// Open вычисляет задолженность студента и открывает сессию подтверждения.
// Ошибки резолвера (ErrNothingDue, ErrProfileInactive) возвращаются как есть.
// Открытая сессия сразу публикуется операторам и ждёт захвата не дольше
// ClaimWindow.
func (m *Manager) Open(ctx context.Context, studentUID string, asOf time.Time) (*Session, error) {
	const op = "session.Open"

	outstanding, err := m.resolver.ResolveOutstanding(ctx, studentUID, asOf)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	now := time.Now()
	s := &Session{
		ID:           uuid.New().String(),
		StudentUID:   studentUID,
		PeriodKey:    outstanding.PeriodKey,
		AmountDue:    outstanding.AmountDue,
		State:        StateAwaitingOperator,
		CreatedAt:    now,
		LastActivity: now,
		result:       make(chan Result, 1),
	}
	s.timer = time.AfterFunc(m.windows.ClaimWindow, func() { m.expire(s.ID) })

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()

	metrics.SessionsOpened.Inc()
	metrics.SessionsActive.Inc()

	m.broadcaster.BroadcastPendingCharge(s.ID, s.StudentUID, s.PeriodKey.String(), s.AmountDue)
	m.log.Info("session opened",
		slog.String("session_id", s.ID),
		slog.String("student_uid", studentUID),
		slog.String("period_key", s.PeriodKey.String()))
	return s, nil
}

// Claim захватывает сессию для оператора. Первый захват выигрывает, повторный
// захват тем же оператором идемпотентен, захват чужой сессии возвращает
// ErrAlreadyClaimed. После захвата окно ожидания сменяется окном решения.
func (m *Manager) Claim(sessionID, operator string) error {
	s, ok := m.lookup(sessionID)
	if !ok {
		return ErrSessionClosed
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case s.State.Terminal():
		return ErrSessionClosed
	case s.State == StateClaimed && s.Operator == operator:
		// Повторная доставка того же claim, переход уже выполнен.
		return nil
	case s.State == StateClaimed:
		metrics.ClaimConflicts.Inc()
		return ErrAlreadyClaimed
	}

	s.State = StateClaimed
	s.Operator = operator
	s.LastActivity = time.Now()
	s.stopTimer()
	s.timer = time.AfterFunc(m.windows.DecisionWindow, func() { m.expire(s.ID) })

	m.log.Info("session claimed",
		slog.String("session_id", sessionID),
		slog.String("operator", operator))
	return nil
}

// Decide принимает решение захватившего оператора. При подтверждении платёж
// записывается в хранилище до перехода в Confirmed и до уведомления студента:
// если запись не удалась, сессия остаётся Claimed и решение можно повторить.
func (m *Manager) Decide(ctx context.Context, sessionID, operator string, approve bool) error {
	const op = "session.Decide"

	s, ok := m.lookup(sessionID)
	if !ok {
		return ErrSessionClosed
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.State.Terminal() {
		return ErrSessionClosed
	}
	if s.State != StateClaimed || s.Operator != operator {
		return ErrNotClaimant
	}

	if approve {
		paidAt := time.Now()
		record := models.PaymentRecord{
			StudentUID:       s.StudentUID,
			PeriodKey:        s.PeriodKey.String(),
			Amount:           s.AmountDue,
			Status:           models.PaymentPaid,
			PaidAt:           &paidAt,
			OperatorUsername: operator,
		}
		if _, err := m.payments.CreatePayment(ctx, record); err != nil {
			m.log.Error("failed to persist payment, session stays claimed",
				slog.String("session_id", sessionID), sl.Err(err))
			return fmt.Errorf("%s: %w", op, err)
		}
		m.finishLocked(s, StateConfirmed, OutcomeConfirmed)
	} else {
		m.finishLocked(s, StateRejected, OutcomeRejected)
	}

	m.log.Info("session decided",
		slog.String("session_id", sessionID),
		slog.String("operator", operator),
		slog.Bool("approve", approve))
	return nil
}

// Cancel отзывает сессию по инициативе студента. Разрешён только до захвата.
func (m *Manager) Cancel(sessionID string) error {
	s, ok := m.lookup(sessionID)
	if !ok {
		return ErrSessionClosed
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.State.Terminal() {
		return ErrSessionClosed
	}
	if s.State == StateClaimed {
		return ErrCancelNotAllowed
	}

	m.finishLocked(s, StateCanceled, OutcomeCanceled)
	m.log.Info("session canceled", slog.String("session_id", sessionID))
	return nil
}

// Fail переводит сессию в Errored при обрыве соединения. Платёж не пишется,
// студенту, если он ещё доступен, доставляется исход error.
func (m *Manager) Fail(sessionID string) {
	s, ok := m.lookup(sessionID)
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.State.Terminal() {
		return
	}
	m.finishLocked(s, StateErrored, OutcomeError)
	m.log.Warn("session errored on transport failure", slog.String("session_id", sessionID))
}

// expire срабатывает по таймеру окна захвата или окна решения.
func (m *Manager) expire(sessionID string) {
	s, ok := m.lookup(sessionID)
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.State.Terminal() {
		return
	}
	m.finishLocked(s, StateExpired, OutcomeExpired)
	m.log.Info("session expired", slog.String("session_id", sessionID))
}

// finishLocked выполняет терминальный переход: доставляет исход студенту,
// убирает сессию из арены и извещает операторов. Вызывается под s.mu,
// платёж при подтверждении уже записан.
func (m *Manager) finishLocked(s *Session, state State, outcome Outcome) {
	s.State = state
	s.LastActivity = time.Now()
	s.stopTimer()
	s.deliver(outcome)

	m.mu.Lock()
	delete(m.sessions, s.ID)
	m.mu.Unlock()

	metrics.SessionsActive.Dec()
	metrics.SessionsResolved.WithLabelValues(string(outcome)).Inc()
	m.broadcaster.BroadcastSessionClosed(s.ID)
}

// ActiveCount возвращает число сессий, ещё не достигших терминального состояния.
func (m *Manager) ActiveCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

func (m *Manager) lookup(sessionID string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[sessionID]
	return s, ok
}
