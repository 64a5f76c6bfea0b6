package models

import "time"

type ConsultationStatus string

const (
	StatusWaitingPayment      ConsultationStatus = "waiting-for-payment"      // Menunggu Pembayaran
	StatusWaitingConfirmation ConsultationStatus = "waiting-for-confirmation" // Menunggu Konfirmasi Admin
	StatusScheduled           ConsultationStatus = "scheduled"                // Terjadwal
	StatusInProgress          ConsultationStatus = "in-progress"              // Sedang Berlangsung
	StatusEnded               ConsultationStatus = "ended"                    // Selesai
	StatusCancelled           ConsultationStatus = "cancelled"                // Dibatalkan
)

// Terminal reports whether the status is absorbing.
func (s ConsultationStatus) Terminal() bool {
	return s == StatusEnded || s == StatusCancelled
}

type ConsultationType string

const (
	TypeOnline  ConsultationType = "online"  // konsultasi chat
	TypeOffline ConsultationType = "offline" // tatap muka
)

// Cancellation reasons recognised by the recovery policy. The backend may
// send other free-text reasons; those all map to contact-support.
const (
	ReasonExpired              = "expired"
	ReasonInvalidProof         = "invalid_proof"
	ReasonArchitectUnavailable = "architect_unavailable"
)

type Consultation struct {
	ID          string           `json:"id"`
	UserID      string           `json:"user_id"`
	ArchitectID string           `json:"architect_id"`
	RoomID      string           `json:"room_id,omitempty"` // kosong sampai scheduled
	Type        ConsultationType `json:"type"`

	// Total dalam satuan Rupiah terkecil
	Total int64 `json:"total"`

	Status ConsultationStatus `json:"status"`
	Reason string             `json:"reason,omitempty"` // hanya terisi saat cancelled

	// PaymentAttempt naik setiap re-upload bukti bayar, tidak pernah turun
	PaymentAttempt int `json:"payment_attempt"`

	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
	CreatedAt time.Time `json:"created_at"`

	// hanya untuk type offline
	Location            string `json:"location,omitempty"`
	LocationDescription string `json:"location_description,omitempty"`
}

type RecoveryAction string

const (
	RecoveryReupload       RecoveryAction = "reupload"        // upload ulang bukti bayar
	RecoveryReschedule     RecoveryAction = "reschedule"      // pilih jadwal baru, tanpa bayar ulang
	RecoveryContactSupport RecoveryAction = "contact_support" // hubungi CS
	RecoveryStartOver      RecoveryAction = "start_over"      // buat booking baru
)

type ChatStatus string

const (
	ChatWaiting ChatStatus = "waiting"
	ChatActive  ChatStatus = "active"
	ChatEnded   ChatStatus = "ended"
)
