package chat

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"

	"github.com/bangunrumah/konsultasi-engine/internal/models"
)

var testUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// chatServer runs a websocket fixture; handler gets the dial count and the
// upgraded connection.
func chatServer(t *testing.T, handler func(n int64, conn *websocket.Conn)) (*httptest.Server, string, *int64) {
	t.Helper()
	var dials int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		handler(atomic.AddInt64(&dials, 1), conn)
	}))
	return srv, "ws" + strings.TrimPrefix(srv.URL, "http"), &dials
}

func newTestTransport(wsURL string) *Transport {
	return NewTransport(TransportConfig{
		WSBaseURL:         wsURL,
		LocalUserID:       "user-1",
		HeartbeatInterval: 50 * time.Millisecond,
		ReconnectDelay:    50 * time.Millisecond,
	})
}

func TestTransportOpenSendReceive(t *testing.T) {
	received := make(chan models.Envelope, 1)
	srv, wsURL, _ := chatServer(t, func(n int64, conn *websocket.Conn) {
		defer conn.Close()
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if string(data) == pingFrame || string(data) == pongFrame {
				continue
			}
			var env models.Envelope
			if json.Unmarshal(data, &env) == nil {
				received <- env
				// balas dari lawan bicara
				conn.WriteJSON(map[string]interface{}{
					"id":         "srv-1",
					"sender":     "arch-1",
					"senderRole": "architect",
					"content":    "Baik, saya cek dulu denahnya",
					"type":       "TEXT",
					"sentAt":     time.Now(),
				})
			}
		}
	})
	defer srv.Close()

	tr := newTestTransport(wsURL)
	if got := tr.State(); got != StateIdle {
		t.Fatalf("state awal = %s", got)
	}
	if err := tr.Open(context.Background(), "room-1", "token"); err != nil {
		t.Fatal(err)
	}
	defer tr.Close()
	if got := tr.State(); got != StateConnected {
		t.Fatalf("state = %s, want connected", got)
	}

	env := models.Envelope{
		Sender:     "user-1",
		SenderRole: models.RoleUser,
		Content:    "Halo pak",
		Type:       models.MessageText,
		SentAt:     time.Now(),
	}
	if err := tr.Send(env); err != nil {
		t.Fatal(err)
	}

	select {
	case got := <-received:
		if got.Content != "Halo pak" || got.SenderRole != models.RoleUser {
			t.Fatalf("server menerima %+v", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("server tidak menerima envelope")
	}

	select {
	case msg := <-tr.Inbound():
		if msg.Sender != "arch-1" || msg.ID != "srv-1" || msg.RoomID != "room-1" {
			t.Fatalf("inbound = %+v", msg)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("balasan tidak sampai")
	}
}

func TestTransportDropsOwnSenderEcho(t *testing.T) {
	srv, wsURL, _ := chatServer(t, func(n int64, conn *websocket.Conn) {
		defer conn.Close()
		// echo dari device lain milik user yang sama: harus dibuang
		conn.WriteJSON(map[string]interface{}{
			"sender": "user-1", "senderRole": "user", "content": "echo", "type": "TEXT",
		})
		conn.WriteJSON(map[string]interface{}{
			"sender": "arch-1", "senderRole": "architect", "content": "asli", "type": "TEXT",
		})
		time.Sleep(time.Second)
	})
	defer srv.Close()

	tr := newTestTransport(wsURL)
	if err := tr.Open(context.Background(), "room-1", "token"); err != nil {
		t.Fatal(err)
	}
	defer tr.Close()

	select {
	case msg := <-tr.Inbound():
		if msg.Sender != "arch-1" {
			t.Fatalf("pesan sender sendiri lolos: %+v", msg)
		}
		if msg.ID == "" {
			t.Fatal("frame tanpa id harus diberi display id")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("pesan lawan bicara tidak sampai")
	}
}

func TestTransportHeartbeatFiltered(t *testing.T) {
	gotPong := make(chan struct{}, 1)
	srv, wsURL, _ := chatServer(t, func(n int64, conn *websocket.Conn) {
		defer conn.Close()
		conn.WriteMessage(websocket.TextMessage, []byte(pingFrame))
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if string(data) == pongFrame {
				select {
				case gotPong <- struct{}{}:
				default:
				}
			}
		}
	})
	defer srv.Close()

	tr := newTestTransport(wsURL)
	if err := tr.Open(context.Background(), "room-1", "token"); err != nil {
		t.Fatal(err)
	}
	defer tr.Close()

	select {
	case <-gotPong:
	case <-time.After(2 * time.Second):
		t.Fatal("ping server tidak dibalas pong")
	}

	// frame heartbeat tidak boleh bocor ke pemrosesan pesan
	select {
	case msg := <-tr.Inbound():
		t.Fatalf("heartbeat bocor sebagai pesan: %+v", msg)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestTransportMalformedFrameDropped(t *testing.T) {
	srv, wsURL, _ := chatServer(t, func(n int64, conn *websocket.Conn) {
		defer conn.Close()
		conn.WriteMessage(websocket.TextMessage, []byte("{rusak"))
		conn.WriteJSON(map[string]interface{}{
			"sender": "arch-1", "senderRole": "architect", "content": "masih hidup", "type": "TEXT",
		})
		time.Sleep(time.Second)
	})
	defer srv.Close()

	tr := newTestTransport(wsURL)
	if err := tr.Open(context.Background(), "room-1", "token"); err != nil {
		t.Fatal(err)
	}
	defer tr.Close()

	// koneksi tidak boleh mati gara-gara satu frame rusak
	select {
	case msg := <-tr.Inbound():
		if msg.Content != "masih hidup" {
			t.Fatalf("inbound = %+v", msg)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("koneksi mati setelah frame rusak")
	}
}

func TestTransportReconnectAfterUnexpectedDrop(t *testing.T) {
	srv, wsURL, dials := chatServer(t, func(n int64, conn *websocket.Conn) {
		if n == 1 {
			// putus mendadak tanpa close frame
			conn.Close()
			return
		}
		defer conn.Close()
		time.Sleep(2 * time.Second)
	})
	defer srv.Close()

	tr := newTestTransport(wsURL)
	if err := tr.Open(context.Background(), "room-1", "token"); err != nil {
		t.Fatal(err)
	}
	defer tr.Close()

	deadline := time.Now().Add(3 * time.Second)
	for atomic.LoadInt64(dials) < 2 && time.Now().Before(deadline) {
		time.Sleep(20 * time.Millisecond)
	}
	if got := atomic.LoadInt64(dials); got < 2 {
		t.Fatalf("dials = %d, want >= 2", got)
	}

	deadline = time.Now().Add(2 * time.Second)
	for tr.State() != StateConnected && time.Now().Before(deadline) {
		time.Sleep(20 * time.Millisecond)
	}
	if got := tr.State(); got != StateConnected {
		t.Fatalf("state = %s, want connected setelah reconnect", got)
	}
}

func TestTransportCloseSuppressesReconnect(t *testing.T) {
	srv, wsURL, dials := chatServer(t, func(n int64, conn *websocket.Conn) {
		defer conn.Close()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})
	defer srv.Close()

	tr := newTestTransport(wsURL)
	if err := tr.Open(context.Background(), "room-1", "token"); err != nil {
		t.Fatal(err)
	}

	if err := tr.Close(); err != nil {
		t.Fatal(err)
	}
	if err := tr.Close(); err != nil {
		t.Fatal("Close harus idempoten")
	}
	if got := tr.State(); got != StateIdle {
		t.Fatalf("state = %s, want idle", got)
	}

	// event close dari koneksi basi tidak boleh memicu reconnect
	time.Sleep(300 * time.Millisecond)
	if got := atomic.LoadInt64(dials); got != 1 {
		t.Fatalf("dials = %d setelah Close, want 1", got)
	}

	if err := tr.Send(models.Envelope{Content: "x"}); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("Send setelah Close: err = %v", err)
	}
	if err := tr.Open(context.Background(), "room-1", "token"); !errors.Is(err, ErrClosed) {
		t.Fatalf("Open setelah Close: err = %v", err)
	}
}

func TestTransportSendRequiresConnected(t *testing.T) {
	tr := newTestTransport("ws://127.0.0.1:0")
	if err := tr.Send(models.Envelope{Content: "x"}); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("err = %v, want ErrNotConnected", err)
	}
}

func TestTransportAuthRejectedFatal(t *testing.T) {
	var dials int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&dials, 1)
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}))
	defer srv.Close()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")

	tr := newTestTransport(wsURL)
	if err := tr.Open(context.Background(), "room-1", "token"); !errors.Is(err, ErrAuthRejected) {
		t.Fatalf("err = %v, want ErrAuthRejected", err)
	}
	if got := tr.State(); got != StateIdle {
		t.Fatalf("state = %s, want idle", got)
	}

	// fatal: tidak ada retry loop
	time.Sleep(200 * time.Millisecond)
	if got := atomic.LoadInt64(&dials); got != 1 {
		t.Fatalf("dials = %d, want 1", got)
	}
}

func TestTransportExpiredTokenFatalWithoutDial(t *testing.T) {
	srv, wsURL, dials := chatServer(t, func(n int64, conn *websocket.Conn) { conn.Close() })
	defer srv.Close()

	claims := jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("rahasia"))
	if err != nil {
		t.Fatal(err)
	}

	tr := newTestTransport(wsURL)
	if err := tr.Open(context.Background(), "room-1", token); !errors.Is(err, ErrAuthRejected) {
		t.Fatalf("err = %v, want ErrAuthRejected", err)
	}
	if got := atomic.LoadInt64(dials); got != 0 {
		t.Fatalf("dials = %d, token kedaluwarsa harus gagal sebelum dial", got)
	}
}
