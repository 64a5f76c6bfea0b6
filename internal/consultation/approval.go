package consultation

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

type ApprovalKind string

const (
	ApprovalApproved ApprovalKind = "APPROVED"
	ApprovalRejected ApprovalKind = "REJECTED"
	// ApprovalConnectionLost is not a decision: the subscription dropped and
	// is being retried. Callers should offer manual status polling instead
	// of assuming a rejection.
	ApprovalConnectionLost ApprovalKind = "CONNECTION_LOST"
)

type ApprovalEvent struct {
	Kind    ApprovalKind
	Message string // terisi untuk REJECTED
}

// ApprovalWatcher follows one consultation while it sits in
// waiting-for-confirmation and reports the admin's decision live.
type ApprovalWatcher struct {
	WSBaseURL      string
	ReconnectDelay time.Duration
	Dialer         *websocket.Dialer
}

func NewApprovalWatcher(wsBaseURL string, reconnectDelay time.Duration) *ApprovalWatcher {
	if reconnectDelay <= 0 {
		reconnectDelay = 5 * time.Second
	}
	return &ApprovalWatcher{
		WSBaseURL:      wsBaseURL,
		ReconnectDelay: reconnectDelay,
		Dialer:         websocket.DefaultDialer,
	}
}

type approvalFrame struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// Watch opens the live subscription for one consultation. The returned
// channel carries connection-lost notices and exactly one terminal event,
// then closes. Cancelling ctx closes the underlying connection and the
// channel without waiting for a decision.
func (w *ApprovalWatcher) Watch(ctx context.Context, consultationID, token string) <-chan ApprovalEvent {
	events := make(chan ApprovalEvent, 8)

	go func() {
		defer close(events)
		for {
			terminal, err := w.follow(ctx, consultationID, token, events)
			if terminal || ctx.Err() != nil {
				return
			}
			log.Printf("approval: koneksi terputus untuk %s: %v", consultationID, err)
			select {
			case events <- ApprovalEvent{Kind: ApprovalConnectionLost}:
			default:
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(w.ReconnectDelay):
			}
		}
	}()

	return events
}

// follow runs one connection until a terminal frame, an error, or ctx
// cancellation. Returns terminal=true once a decision was delivered.
func (w *ApprovalWatcher) follow(ctx context.Context, consultationID, token string, events chan<- ApprovalEvent) (bool, error) {
	header := http.Header{"Authorization": {"Bearer " + token}}
	conn, _, err := w.Dialer.DialContext(ctx, w.WSBaseURL+"/ws/approval/"+consultationID, header)
	if err != nil {
		return false, err
	}
	defer conn.Close()

	// tutup koneksi saat caller batal, supaya ReadMessage tidak menggantung
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return false, err
		}

		var frame approvalFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			log.Printf("approval: frame tidak valid, diabaikan: %v", err)
			continue
		}

		switch ApprovalKind(frame.Status) {
		case ApprovalApproved:
			events <- ApprovalEvent{Kind: ApprovalApproved}
			return true, nil
		case ApprovalRejected:
			events <- ApprovalEvent{Kind: ApprovalRejected, Message: frame.Message}
			return true, nil
		default:
			// frame lain (mis. keep-alive) diabaikan
		}
	}
}
