package ws

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/net/websocket"

	"github.com/magabrotheeeer/tuition-billing/internal/lib/jwt"
	"github.com/magabrotheeeer/tuition-billing/internal/lib/period"
	"github.com/magabrotheeeer/tuition-billing/internal/lib/sl"
	billing "github.com/magabrotheeeer/tuition-billing/internal/services/billing"
	"github.com/magabrotheeeer/tuition-billing/internal/session"
	"github.com/magabrotheeeer/tuition-billing/internal/storage/repository"
)

// TokenValidator проверяет JWT оператора.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (*jwt.CustomClaims, error)
}

type operatorIdentityKey struct{}

// Server связывает вебсокет-соединения с менеджером сессий.
// Эндпоинт студента открыт: устройство сканирования не имеет учётной записи.
// Эндпоинт оператора требует JWT с ролью operator.
type Server struct {
	manager *session.Manager
	hub     *OperatorHub
	auth    TokenValidator
	log     *slog.Logger
}

// NewServer создает новый экземпляр Server.
func NewServer(manager *session.Manager, hub *OperatorHub, auth TokenValidator, log *slog.Logger) *Server {
	return &Server{
		manager: manager,
		hub:     hub,
		auth:    auth,
		log:     log,
	}
}

// Hub возвращает концентратор операторов для регистрации в менеджере сессий.
func (s *Server) Hub() *OperatorHub {
	return s.hub
}

// Handler возвращает маршруты вебсокет-транспорта.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	studentHandler := websocket.Handler(s.handleStudentConn)
	mux.HandleFunc("/ws/student", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		studentHandler.ServeHTTP(w, r)
	})

	operatorHandler := websocket.Handler(s.handleOperatorConn)
	mux.HandleFunc("/ws/operator", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		token := r.URL.Query().Get("token")
		if token == "" {
			http.Error(w, "authentication required", http.StatusUnauthorized)
			return
		}
		claims, err := s.auth.ValidateToken(r.Context(), token)
		if err != nil {
			s.log.Warn("operator websocket auth failed", sl.Err(err))
			http.Error(w, "authentication required", http.StatusUnauthorized)
			return
		}
		if claims.Role != "operator" {
			http.Error(w, "operator role required", http.StatusForbidden)
			return
		}

		ctx := context.WithValue(r.Context(), operatorIdentityKey{}, claims.Username)
		operatorHandler.ServeHTTP(w, r.WithContext(ctx))
	})

	return mux
}

// handleStudentConn обслуживает устройство студента: одна сессия на
// соединение, терминальный исход доставляется единственным кадром outcome,
// после чего соединение закрывается. Обрыв до исхода переводит сессию
// в Errored без записи платежа.
func (s *Server) handleStudentConn(conn *websocket.Conn) {
	defer func() { _ = conn.Close() }()

	// Дедлайны HTTP-запроса остаются на соединении после апгрейда,
	// для долгоживущего вебсокета их нужно снять.
	_ = conn.SetDeadline(time.Time{})

	decoder := json.NewDecoder(conn)
	peer := NewPeer(json.NewEncoder(conn))

	var active *session.Session
	defer func() {
		if active != nil {
			s.manager.Fail(active.ID)
		}
	}()

	for {
		var frame Frame
		if err := decoder.Decode(&frame); err != nil {
			if !errors.Is(err, io.EOF) {
				s.log.Debug("student connection closed", sl.Err(err))
			}
			return
		}

		switch frame.Type {
		case frameOpenSession:
			if active != nil {
				peer.writeError(frame.RequestID, codeInvalidArgument, "session already open on this connection")
				continue
			}
			opened := s.handleOpenSession(conn, peer, frame)
			if opened == nil {
				continue
			}
			active = opened

			// Терминальный исход пишет отдельная горутина, основной цикл
			// продолжает читать кадры отмены. Соединение закрывает клиент.
			go func(sess *session.Session) {
				res := <-sess.Result()
				_ = peer.WriteFrame(Frame{
					Type: frameOutcome,
					Payload: mustJSON(OutcomePayload{
						SessionID: res.SessionID,
						Outcome:   string(res.Outcome),
						PeriodKey: res.PeriodKey,
					}),
				})
			}(active)

		case frameCancel:
			var payload CancelPayload
			if err := json.Unmarshal(frame.Payload, &payload); err != nil {
				peer.writeError(frame.RequestID, codeInvalidArgument, "invalid cancel payload")
				continue
			}
			if active == nil || payload.SessionID != active.ID {
				peer.writeError(frame.RequestID, codeInvalidArgument, "unknown session")
				continue
			}
			switch err := s.manager.Cancel(payload.SessionID); {
			case err == nil:
				peer.writeAck(frame.RequestID)
			case errors.Is(err, session.ErrCancelNotAllowed):
				peer.writeError(frame.RequestID, codeCancelNotAllowed, "session already claimed")
			case errors.Is(err, session.ErrSessionClosed):
				peer.writeError(frame.RequestID, codeSessionClosed, "session is closed")
			default:
				peer.writeError(frame.RequestID, codeInternal, "cancel failed")
			}

		default:
			peer.writeError(frame.RequestID, codeInvalidArgument, "unsupported frame type")
		}
	}
}

func (s *Server) handleOpenSession(conn *websocket.Conn, peer *Peer, frame Frame) *session.Session {
	var payload OpenSessionPayload
	if err := json.Unmarshal(frame.Payload, &payload); err != nil {
		peer.writeError(frame.RequestID, codeInvalidArgument, "invalid open-session payload")
		return nil
	}
	if payload.StudentUID == "" {
		peer.writeError(frame.RequestID, codeInvalidArgument, "student_uid is required")
		return nil
	}

	asOf := period.Day(time.Now().UTC())
	if payload.AsOf != "" {
		parsed, err := time.Parse("2006-01-02", payload.AsOf)
		if err != nil {
			peer.writeError(frame.RequestID, codeInvalidArgument, "as_of must be YYYY-MM-DD")
			return nil
		}
		asOf = parsed
	}

	ctx := conn.Request().Context()
	sess, err := s.manager.Open(ctx, payload.StudentUID, asOf)
	switch {
	case err == nil:
	case errors.Is(err, billing.ErrNothingDue):
		peer.writeError(frame.RequestID, codeNothingDue, "no outstanding balance")
		return nil
	case errors.Is(err, billing.ErrProfileInactive):
		peer.writeError(frame.RequestID, codeProfileInactive, "student profile is inactive")
		return nil
	default:
		s.log.Error("failed to open session", sl.Err(err))
		peer.writeError(frame.RequestID, codeInternal, "failed to open session")
		return nil
	}

	snap := sess.Snapshot()
	_ = peer.WriteFrame(Frame{
		Type:      frameSessionOpened,
		RequestID: frame.RequestID,
		Payload: mustJSON(SessionOpenedPayload{
			SessionID: snap.ID,
			PeriodKey: snap.PeriodKey,
			AmountDue: snap.AmountDue,
		}),
	})
	return sess
}

// handleOperatorConn обслуживает клиента оператора: регистрирует его
// в концентраторе и принимает кадры claim и decide.
func (s *Server) handleOperatorConn(conn *websocket.Conn) {
	defer func() { _ = conn.Close() }()

	_ = conn.SetDeadline(time.Time{})

	operator, _ := conn.Request().Context().Value(operatorIdentityKey{}).(string)
	if operator == "" {
		return
	}

	decoder := json.NewDecoder(conn)
	peer := NewPeer(json.NewEncoder(conn))

	s.hub.Join(peer)
	defer s.hub.Leave(peer)

	for {
		var frame Frame
		if err := decoder.Decode(&frame); err != nil {
			if !errors.Is(err, io.EOF) {
				s.log.Debug("operator connection closed",
					slog.String("operator", operator), sl.Err(err))
			}
			return
		}

		switch frame.Type {
		case frameClaim:
			var payload ClaimPayload
			if err := json.Unmarshal(frame.Payload, &payload); err != nil {
				peer.writeError(frame.RequestID, codeInvalidArgument, "invalid claim payload")
				continue
			}
			switch err := s.manager.Claim(payload.SessionID, operator); {
			case err == nil:
				peer.writeAck(frame.RequestID)
			case errors.Is(err, session.ErrAlreadyClaimed):
				peer.writeError(frame.RequestID, codeAlreadyClaimed, "session already claimed")
			case errors.Is(err, session.ErrSessionClosed):
				peer.writeError(frame.RequestID, codeSessionClosed, "session is closed")
			default:
				peer.writeError(frame.RequestID, codeInternal, "claim failed")
			}

		case frameDecide:
			var payload DecidePayload
			if err := json.Unmarshal(frame.Payload, &payload); err != nil {
				peer.writeError(frame.RequestID, codeInvalidArgument, "invalid decide payload")
				continue
			}
			ctx := conn.Request().Context()
			switch err := s.manager.Decide(ctx, payload.SessionID, operator, payload.Approve); {
			case err == nil:
				peer.writeAck(frame.RequestID)
			case errors.Is(err, session.ErrNotClaimant):
				peer.writeError(frame.RequestID, codeNotClaimant, "session is claimed by another operator")
			case errors.Is(err, session.ErrSessionClosed):
				peer.writeError(frame.RequestID, codeSessionClosed, "session is closed")
			case errors.Is(err, repository.ErrDuplicatePayment):
				peer.writeError(frame.RequestID, codeConflict, "period is already paid")
			default:
				s.log.Error("decide failed", slog.String("operator", operator), sl.Err(err))
				peer.writeError(frame.RequestID, codeInternal, "decide failed")
			}

		default:
			peer.writeError(frame.RequestID, codeInvalidArgument, "unsupported frame type")
		}
	}
}
