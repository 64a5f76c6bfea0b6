package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type MessageType string

const (
	MessageText  MessageType = "TEXT"
	MessageImage MessageType = "IMAGE"
	MessageFile  MessageType = "FILE"
)

type SenderRole string

const (
	RoleUser      SenderRole = "user"
	RoleArchitect SenderRole = "architect"
)

// localIDPrefix marks ids minted on this device before the server has
// confirmed the message. A local id is never reused once replaced.
const localIDPrefix = "local-"

// Message represents one chat entry in a room. Content is plain text for
// TEXT, or a hosted URL for IMAGE/FILE once the upload finished.
type Message struct {
	ID         string      `json:"id"`
	RoomID     string      `json:"room_id"`
	Sender     string      `json:"sender"`
	SenderRole SenderRole  `json:"sender_role"`
	Content    string      `json:"content"`
	Type       MessageType `json:"type"`
	CreatedAt  time.Time   `json:"created_at"`

	// Pending menandai pesan optimis yang belum dikonfirmasi server
	Pending bool `json:"-"`
}

// NewLocalID mints a temporary message id.
func NewLocalID() string {
	return localIDPrefix + uuid.NewString()
}

// IsLocalID reports whether id was minted by NewLocalID.
func IsLocalID(id string) bool {
	return strings.HasPrefix(id, localIDPrefix)
}

// Envelope is the outbound wire frame for one chat message.
type Envelope struct {
	Sender     string      `json:"sender"`
	SenderRole SenderRole  `json:"senderRole"`
	Content    string      `json:"content"`
	Type       MessageType `json:"type"`
	SentAt     time.Time   `json:"sentAt"`
}
