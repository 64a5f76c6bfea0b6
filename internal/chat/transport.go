package chat

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/bangunrumah/konsultasi-engine/internal/models"
)

// Reserved 2-byte textual heartbeat pair. These frames never reach message
// processing.
const (
	pingFrame = "PI"
	pongFrame = "PO"
)

type TransportState string

const (
	StateIdle       TransportState = "idle"
	StateConnecting TransportState = "connecting"
	StateConnected  TransportState = "connected"
	StateClosing    TransportState = "closing"
)

var (
	// ErrAuthRejected: kredensial ditolak saat handshake. Jangan retry
	// sebelum autentikasi ulang.
	ErrAuthRejected = errors.New("authorization rejected")
	// ErrNotConnected: Send hanya sah pada state connected.
	ErrNotConnected = errors.New("transport not connected")
	// ErrClosed: transport sudah di-teardown.
	ErrClosed = errors.New("transport closed")
)

type TransportConfig struct {
	WSBaseURL   string
	LocalUserID string

	HeartbeatInterval time.Duration // default 30s
	ReconnectDelay    time.Duration // default 5s

	Dialer *websocket.Dialer
}

// Transport maintains the single logical channel to one room:
// idle → connecting → connected → {closing → idle | connecting}.
// An unexpected close reconnects after a fixed delay; a caller-initiated
// Close suppresses any reconnect, including one already scheduled.
type Transport struct {
	cfg TransportConfig

	mu     sync.Mutex
	wmu    sync.Mutex // gorilla: satu penulis per koneksi
	state  TransportState
	conn   *websocket.Conn
	roomID string
	token  string
	closed bool

	reconnectTimer *time.Timer
	hbStop         chan struct{}

	inbound chan models.Message
}

func NewTransport(cfg TransportConfig) *Transport {
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = 30 * time.Second
	}
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = 5 * time.Second
	}
	if cfg.Dialer == nil {
		cfg.Dialer = websocket.DefaultDialer
	}
	return &Transport{
		cfg:     cfg,
		state:   StateIdle,
		inbound: make(chan models.Message, 256),
	}
}

// Inbound delivers counterparty messages. Frames from the local user id are
// dropped: the optimistic echo already represents them.
func (t *Transport) Inbound() <-chan models.Message { return t.inbound }

func (t *Transport) State() TransportState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Open establishes the connection for one room. An expired or rejected
// credential is fatal (no retry loop); the caller must re-authenticate.
func (t *Transport) Open(ctx context.Context, roomID, token string) error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return ErrClosed
	}
	if t.state != StateIdle {
		t.mu.Unlock()
		return errors.New("transport already open")
	}
	t.state = StateConnecting
	t.roomID = roomID
	t.token = token
	t.mu.Unlock()

	if tokenExpired(token, time.Now()) {
		t.setIdle()
		return ErrAuthRejected
	}

	conn, err := t.dial(ctx)
	if err != nil {
		t.setIdle()
		return err
	}

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		conn.Close()
		return ErrClosed
	}
	t.attach(conn)
	t.mu.Unlock()
	return nil
}

func (t *Transport) dial(ctx context.Context) (*websocket.Conn, error) {
	header := http.Header{"Authorization": {"Bearer " + t.token}}
	conn, resp, err := t.cfg.Dialer.DialContext(ctx, t.cfg.WSBaseURL+"/ws/rooms/"+t.roomID, header)
	if err != nil {
		if resp != nil && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
			return nil, ErrAuthRejected
		}
		return nil, err
	}
	return conn, nil
}

// attach wires a live connection; caller holds t.mu.
func (t *Transport) attach(conn *websocket.Conn) {
	t.conn = conn
	t.state = StateConnected
	t.hbStop = make(chan struct{})
	go t.readLoop(conn)
	go t.heartbeat(conn, t.hbStop)
}

func (t *Transport) setIdle() {
	t.mu.Lock()
	t.state = StateIdle
	t.mu.Unlock()
}

// Send transmits one outbound envelope. Only legal while connected; the
// caller is responsible for the optimistic echo before calling Send.
func (t *Transport) Send(env models.Envelope) error {
	t.mu.Lock()
	if t.state != StateConnected {
		t.mu.Unlock()
		return ErrNotConnected
	}
	conn := t.conn
	t.mu.Unlock()

	t.wmu.Lock()
	defer t.wmu.Unlock()
	conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return conn.WriteJSON(env)
}

// Close tears the transport down. Idempotent: stops the heartbeat, cancels a
// scheduled reconnect and marks any in-flight connection stale so its close
// event cannot trigger another dial.
func (t *Transport) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	t.state = StateClosing
	if t.reconnectTimer != nil {
		t.reconnectTimer.Stop()
		t.reconnectTimer = nil
	}
	if t.hbStop != nil {
		close(t.hbStop)
		t.hbStop = nil
	}
	conn := t.conn
	t.conn = nil
	t.mu.Unlock()

	if conn != nil {
		t.wmu.Lock()
		conn.SetWriteDeadline(time.Now().Add(time.Second))
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		t.wmu.Unlock()
		conn.Close()
	}

	t.mu.Lock()
	t.state = StateIdle
	t.mu.Unlock()
	return nil
}

type inboundFrame struct {
	ID         string             `json:"id,omitempty"`
	Sender     string             `json:"sender"`
	SenderRole models.SenderRole  `json:"senderRole"`
	Content    string             `json:"content"`
	Type       models.MessageType `json:"type"`
	SentAt     time.Time          `json:"sentAt"`
}

func (t *Transport) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.handleDisconnect(conn, err)
			return
		}

		// heartbeat dulu, sebelum parsing pesan
		switch string(data) {
		case pingFrame:
			t.wmu.Lock()
			conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			conn.WriteMessage(websocket.TextMessage, []byte(pongFrame))
			t.wmu.Unlock()
			continue
		case pongFrame:
			continue
		}

		var frame inboundFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			// satu frame rusak tidak mematikan koneksi
			log.Printf("chat: frame tidak valid, diabaikan: %v", err)
			continue
		}

		if frame.Sender == t.cfg.LocalUserID {
			// sudah terwakili oleh echo optimis
			continue
		}

		msg := models.Message{
			ID:         frame.ID,
			RoomID:     t.roomID,
			Sender:     frame.Sender,
			SenderRole: frame.SenderRole,
			Content:    frame.Content,
			Type:       frame.Type,
			CreatedAt:  frame.SentAt,
		}
		if msg.ID == "" {
			msg.ID = uuid.NewString()
		}

		select {
		case t.inbound <- msg:
		default:
			log.Printf("chat: inbound penuh, pesan %s dibuang", msg.ID)
		}
	}
}

// handleDisconnect decides between a clean stop and a reconnect. Events from
// a stale connection (already replaced or torn down) are ignored.
func (t *Transport) handleDisconnect(conn *websocket.Conn, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed || conn != t.conn {
		return
	}
	t.conn = nil
	if t.hbStop != nil {
		close(t.hbStop)
		t.hbStop = nil
	}

	if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
		// penutupan normal oleh server, tidak perlu reconnect
		t.state = StateIdle
		return
	}

	log.Printf("chat: koneksi room %s terputus: %v", t.roomID, err)
	t.state = StateConnecting
	t.reconnectTimer = time.AfterFunc(t.cfg.ReconnectDelay, t.reopen)
}

func (t *Transport) reopen() {
	t.mu.Lock()
	if t.closed || t.state != StateConnecting {
		t.mu.Unlock()
		return
	}
	t.mu.Unlock()

	conn, err := t.dial(context.Background())
	if err != nil {
		if errors.Is(err, ErrAuthRejected) {
			log.Printf("chat: reconnect room %s ditolak, berhenti", t.roomID)
			t.setIdle()
			return
		}
		log.Printf("chat: reconnect room %s gagal: %v", t.roomID, err)
		t.mu.Lock()
		if !t.closed {
			t.reconnectTimer = time.AfterFunc(t.cfg.ReconnectDelay, t.reopen)
		}
		t.mu.Unlock()
		return
	}

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		conn.Close()
		return
	}
	t.attach(conn)
	t.mu.Unlock()
	log.Printf("chat: room %s tersambung kembali", t.roomID)
}

// heartbeat sends the textual ping on a fixed interval. A missed pong is not
// fatal by itself; the read loop owns disconnect handling.
func (t *Transport) heartbeat(conn *websocket.Conn, stop <-chan struct{}) {
	ticker := time.NewTicker(t.cfg.HeartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			t.wmu.Lock()
			conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			err := conn.WriteMessage(websocket.TextMessage, []byte(pingFrame))
			t.wmu.Unlock()
			if err != nil {
				return
			}
		}
	}
}

// tokenExpired inspects the credential's exp claim without verifying the
// signature. Verification belongs to the backend; this only short-circuits
// the obvious fatal case before dialing.
func tokenExpired(token string, now time.Time) bool {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return false // biarkan server yang memutuskan
	}
	return claims.ExpiresAt != nil && claims.ExpiresAt.Before(now)
}
