package ws

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/websocket"

	"github.com/magabrotheeeer/tuition-billing/internal/config"
	"github.com/magabrotheeeer/tuition-billing/internal/lib/jwt"
	"github.com/magabrotheeeer/tuition-billing/internal/models"
	billing "github.com/magabrotheeeer/tuition-billing/internal/services/billing"
	"github.com/magabrotheeeer/tuition-billing/internal/session"
)

type ResolverMock struct{ mock.Mock }

func (m *ResolverMock) ResolveOutstanding(ctx context.Context, studentUID string, asOf time.Time) (*models.Outstanding, error) {
	args := m.Called(ctx, studentUID, asOf)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Outstanding), args.Error(1)
}

type PaymentsMock struct{ mock.Mock }

func (m *PaymentsMock) CreatePayment(ctx context.Context, record models.PaymentRecord) (int, error) {
	args := m.Called(ctx, record)
	return args.Int(0), args.Error(1)
}

type fakeValidator struct{}

func (fakeValidator) ValidateToken(_ context.Context, token string) (*jwt.CustomClaims, error) {
	// Токен вида "role:username" достаточно для проверки маршрутизации.
	role, username, ok := strings.Cut(token, ":")
	if !ok {
		return nil, errors.New("bad token")
	}
	return &jwt.CustomClaims{Username: username, Role: role}, nil
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func newTestServer(t *testing.T) (*httptest.Server, *ResolverMock, *PaymentsMock) {
	t.Helper()
	log := newNoopLogger()
	resolver := new(ResolverMock)
	payments := new(PaymentsMock)
	hub := NewOperatorHub(log)
	mgr := session.NewManager(resolver, payments, hub, config.SessionWindows{
		ClaimWindow:    5 * time.Second,
		DecisionWindow: 5 * time.Second,
	}, log)
	server := NewServer(mgr, hub, fakeValidator{}, log)

	srv := httptest.NewServer(server.Handler())
	t.Cleanup(srv.Close)
	return srv, resolver, payments
}

func dialWS(t *testing.T, srv *httptest.Server, path string) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + path
	conn, err := websocket.Dial(wsURL, "", srv.URL)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func writeFrame(t *testing.T, conn *websocket.Conn, frameType, requestID string, payload any) {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	err = json.NewEncoder(conn).Encode(Frame{Type: frameType, RequestID: requestID, Payload: raw})
	require.NoError(t, err)
}

func readFrame(t *testing.T, conn *websocket.Conn) Frame {
	t.Helper()
	_ = conn.SetDeadline(time.Now().Add(3 * time.Second))
	var got Frame
	require.NoError(t, json.NewDecoder(conn).Decode(&got))
	return got
}

func testOutstanding() *models.Outstanding {
	return &models.Outstanding{
		PeriodKey: models.PeriodKey{
			Anchor:  time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			Ordinal: 2,
			Scheme:  models.SchemeEvery28,
		},
		AmountDue: 760,
	}
}

func openStudentSession(t *testing.T, conn *websocket.Conn) SessionOpenedPayload {
	t.Helper()
	writeFrame(t, conn, "billing.open-session", "req-open-1", OpenSessionPayload{
		StudentUID: "uid-1",
		AsOf:       "2024-03-15",
	})
	got := readFrame(t, conn)
	require.Equal(t, "billing.session-opened", got.Type)

	var opened SessionOpenedPayload
	require.NoError(t, json.Unmarshal(got.Payload, &opened))
	require.NotEmpty(t, opened.SessionID)
	return opened
}

func TestOperatorEndpointRequiresToken(t *testing.T) {
	srv, _, _ := newTestServer(t)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/operator"
	_, err := websocket.Dial(wsURL, "", srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad status")
}

func TestOperatorEndpointRejectsWrongRole(t *testing.T) {
	srv, _, _ := newTestServer(t)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/operator?token=student:alice"
	_, err := websocket.Dial(wsURL, "", srv.URL)
	require.Error(t, err)
}

func TestStudentOpenSession_NothingDue(t *testing.T) {
	srv, resolver, _ := newTestServer(t)
	resolver.On("ResolveOutstanding", mock.Anything, "uid-1", mock.Anything).
		Return(nil, billing.ErrNothingDue).Once()

	conn := dialWS(t, srv, "/ws/student")
	writeFrame(t, conn, "billing.open-session", "req-1", OpenSessionPayload{
		StudentUID: "uid-1", AsOf: "2024-03-15",
	})

	got := readFrame(t, conn)
	assert.Equal(t, "billing.error", got.Type)
	assert.Contains(t, string(got.Payload), "NOTHING_DUE")
}

func TestHandshake_EndToEnd(t *testing.T) {
	srv, resolver, payments := newTestServer(t)

	resolver.On("ResolveOutstanding", mock.Anything, "uid-1", mock.Anything).
		Return(testOutstanding(), nil).Once()
	payments.On("CreatePayment", mock.Anything, mock.MatchedBy(func(r models.PaymentRecord) bool {
		return r.StudentUID == "uid-1" &&
			r.PeriodKey == "2024-01-01#2" &&
			r.Amount == 760 &&
			r.OperatorUsername == "operatorA"
	})).Return(1, nil).Once()

	operatorA := dialWS(t, srv, "/ws/operator?token=operator:operatorA")
	operatorB := dialWS(t, srv, "/ws/operator?token=operator:operatorB")
	student := dialWS(t, srv, "/ws/student")

	opened := openStudentSession(t, student)
	assert.Equal(t, "2024-01-01#2", opened.PeriodKey)
	assert.Equal(t, 760, opened.AmountDue)

	// Оба оператора получают событие об ожидающей оплате.
	pendingA := readFrame(t, operatorA)
	require.Equal(t, "billing.pending-charge", pendingA.Type)
	var pending PendingChargePayload
	require.NoError(t, json.Unmarshal(pendingA.Payload, &pending))
	assert.Equal(t, opened.SessionID, pending.SessionID)
	assert.Equal(t, 760, pending.AmountDue)

	pendingB := readFrame(t, operatorB)
	require.Equal(t, "billing.pending-charge", pendingB.Type)

	// Первый захват выигрывает, второй получает ALREADY_CLAIMED.
	writeFrame(t, operatorA, "billing.claim", "req-claim-a", ClaimPayload{SessionID: opened.SessionID})
	ack := readFrame(t, operatorA)
	require.Equal(t, "billing.ack", ack.Type)

	writeFrame(t, operatorB, "billing.claim", "req-claim-b", ClaimPayload{SessionID: opened.SessionID})
	conflict := readFrame(t, operatorB)
	require.Equal(t, "billing.error", conflict.Type)
	assert.Contains(t, string(conflict.Payload), "ALREADY_CLAIMED")

	// Решение захватившего оператора записывает платёж и завершает сессию.
	// Рассылка session-closed выполняется внутри перехода, поэтому оператор
	// получает её раньше собственного ack.
	writeFrame(t, operatorA, "billing.decide", "req-decide-a", DecidePayload{
		SessionID: opened.SessionID, Approve: true,
	})
	closedA := readFrame(t, operatorA)
	require.Equal(t, "billing.session-closed", closedA.Type)
	decideAck := readFrame(t, operatorA)
	require.Equal(t, "billing.ack", decideAck.Type)

	outcome := readFrame(t, student)
	require.Equal(t, "billing.outcome", outcome.Type)
	var res OutcomePayload
	require.NoError(t, json.Unmarshal(outcome.Payload, &res))
	assert.Equal(t, "confirmed", res.Outcome)
	assert.Equal(t, "2024-01-01#2", res.PeriodKey)

	payments.AssertExpectations(t)
}

func TestHandshake_RejectOutcome(t *testing.T) {
	srv, resolver, payments := newTestServer(t)
	resolver.On("ResolveOutstanding", mock.Anything, "uid-1", mock.Anything).
		Return(testOutstanding(), nil).Once()

	operator := dialWS(t, srv, "/ws/operator?token=operator:operatorA")
	student := dialWS(t, srv, "/ws/student")

	opened := openStudentSession(t, student)
	_ = readFrame(t, operator) // pending-charge

	writeFrame(t, operator, "billing.claim", "req-1", ClaimPayload{SessionID: opened.SessionID})
	require.Equal(t, "billing.ack", readFrame(t, operator).Type)

	writeFrame(t, operator, "billing.decide", "req-2", DecidePayload{
		SessionID: opened.SessionID, Approve: false,
	})
	require.Equal(t, "billing.session-closed", readFrame(t, operator).Type)
	require.Equal(t, "billing.ack", readFrame(t, operator).Type)

	outcome := readFrame(t, student)
	var res OutcomePayload
	require.NoError(t, json.Unmarshal(outcome.Payload, &res))
	assert.Equal(t, "rejected", res.Outcome)
	payments.AssertNotCalled(t, "CreatePayment", mock.Anything, mock.Anything)
}

func TestStudentCancelBeforeClaim(t *testing.T) {
	srv, resolver, _ := newTestServer(t)
	resolver.On("ResolveOutstanding", mock.Anything, "uid-1", mock.Anything).
		Return(testOutstanding(), nil).Once()

	student := dialWS(t, srv, "/ws/student")
	opened := openStudentSession(t, student)

	writeFrame(t, student, "billing.cancel", "req-cancel-1", CancelPayload{SessionID: opened.SessionID})

	// Приходят ack отмены и терминальный исход canceled, порядок кадров
	// в пределах соединения сохраняется, но исход пишет другая горутина.
	var sawAck, sawOutcome bool
	for range 2 {
		got := readFrame(t, student)
		switch got.Type {
		case "billing.ack":
			sawAck = true
		case "billing.outcome":
			var res OutcomePayload
			require.NoError(t, json.Unmarshal(got.Payload, &res))
			assert.Equal(t, "canceled", res.Outcome)
			sawOutcome = true
		}
	}
	assert.True(t, sawAck)
	assert.True(t, sawOutcome)
}

func TestUnsupportedFrameReturnsError(t *testing.T) {
	srv, _, _ := newTestServer(t)
	student := dialWS(t, srv, "/ws/student")

	writeFrame(t, student, "billing.unknown", "req-1", map[string]any{})
	got := readFrame(t, student)
	assert.Equal(t, "billing.error", got.Type)
	assert.Contains(t, string(got.Payload), "INVALID_ARGUMENT")
}
