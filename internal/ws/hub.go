package ws

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/magabrotheeeer/tuition-billing/internal/lib/sl"
)

// Peer — одно вебсокет-соединение. Кадры пишутся через общий json.Encoder,
// запись сериализуется мьютексом, поэтому в пределах соединения порядок
// кадров сохраняется.
type Peer struct {
	mu      sync.Mutex
	encoder *json.Encoder
}

// NewPeer создает нового Peer поверх энкодера соединения.
func NewPeer(encoder *json.Encoder) *Peer {
	return &Peer{encoder: encoder}
}

// WriteFrame отправляет кадр клиенту.
func (p *Peer) WriteFrame(frame Frame) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.encoder.Encode(frame)
}

func (p *Peer) writeError(requestID, code, message string) {
	_ = p.WriteFrame(Frame{
		Type:      frameError,
		RequestID: requestID,
		Payload:   mustJSON(ErrorPayload{Code: code, Message: message}),
	})
}

func (p *Peer) writeAck(requestID string) {
	_ = p.WriteFrame(Frame{
		Type:      frameAck,
		RequestID: requestID,
		Payload:   mustJSON(AckPayload{Status: "ok"}),
	})
}

// OperatorHub хранит подключённых операторов и рассылает им события
// жизненного цикла сессий. Доставка негарантированная: упавшая запись
// логируется, соединение оператор восстанавливает сам.
type OperatorHub struct {
	mu    sync.Mutex
	peers map[*Peer]struct{}
	log   *slog.Logger
}

// NewOperatorHub создает новый экземпляр OperatorHub.
func NewOperatorHub(log *slog.Logger) *OperatorHub {
	return &OperatorHub{
		peers: make(map[*Peer]struct{}),
		log:   log,
	}
}

// Join регистрирует соединение оператора.
func (h *OperatorHub) Join(peer *Peer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.peers[peer] = struct{}{}
}

// Leave убирает соединение оператора.
func (h *OperatorHub) Leave(peer *Peer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.peers, peer)
}

// BroadcastPendingCharge рассылает операторам событие об ожидающей оплате.
func (h *OperatorHub) BroadcastPendingCharge(sessionID, studentUID, periodKey string, amountDue int) {
	h.broadcast(Frame{
		Type: framePendingCharge,
		Payload: mustJSON(PendingChargePayload{
			SessionID:  sessionID,
			StudentUID: studentUID,
			PeriodKey:  periodKey,
			AmountDue:  amountDue,
		}),
	})
}

// BroadcastSessionClosed извещает операторов, что сессия завершена.
func (h *OperatorHub) BroadcastSessionClosed(sessionID string) {
	h.broadcast(Frame{
		Type:    frameSessionClosed,
		Payload: mustJSON(SessionClosedPayload{SessionID: sessionID}),
	})
}

func (h *OperatorHub) broadcast(frame Frame) {
	h.mu.Lock()
	peers := make([]*Peer, 0, len(h.peers))
	for peer := range h.peers {
		peers = append(peers, peer)
	}
	h.mu.Unlock()

	for _, peer := range peers {
		if err := peer.WriteFrame(frame); err != nil {
			h.log.Warn("failed to deliver frame to operator", sl.Err(err))
		}
	}
}

func mustJSON(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return b
}
