package consultation

import (
	"errors"
	"fmt"
	"time"

	"github.com/bangunrumah/konsultasi-engine/internal/models"
)

// ErrInvalidTransition is returned when a requested status change is not on
// the lifecycle graph from the current status.
var ErrInvalidTransition = errors.New("invalid consultation transition")

// maxPaymentAttempts caps automatic proof re-uploads for one consultation.
const maxPaymentAttempts = 2

// Lifecycle owns the single source-of-truth Consultation record. All status,
// reason and payment-attempt mutation goes through its methods; everything
// else only reads the record.
type Lifecycle struct {
	c *models.Consultation
}

func NewLifecycle(c *models.Consultation) *Lifecycle {
	return &Lifecycle{c: c}
}

// Consultation returns the owned record.
func (l *Lifecycle) Consultation() *models.Consultation { return l.c }

func (l *Lifecycle) transition(from, to models.ConsultationStatus) error {
	if l.c.Status != from {
		return fmt.Errorf("%w: %s -> %s (saat ini %s)", ErrInvalidTransition, from, to, l.c.Status)
	}
	l.c.Status = to
	return nil
}

// SubmitProof records that proof-of-payment reached the backend; the booking
// now waits for admin review.
func (l *Lifecycle) SubmitProof() error {
	return l.transition(models.StatusWaitingPayment, models.StatusWaitingConfirmation)
}

// Expire cancels an unpaid booking after the payment window lapsed.
func (l *Lifecycle) Expire() error {
	if err := l.transition(models.StatusWaitingPayment, models.StatusCancelled); err != nil {
		return err
	}
	l.c.Reason = models.ReasonExpired
	return nil
}

// Approve moves an admin-approved booking onto the calendar.
func (l *Lifecycle) Approve() error {
	return l.transition(models.StatusWaitingConfirmation, models.StatusScheduled)
}

// Reject cancels a booking under admin review. Reason should be one of the
// recognised rejection reasons; anything else still cancels but maps to the
// contact-support recovery path.
func (l *Lifecycle) Reject(reason string) error {
	if err := l.transition(models.StatusWaitingConfirmation, models.StatusCancelled); err != nil {
		return err
	}
	l.c.Reason = reason
	return nil
}

// Begin marks the session window as entered.
func (l *Lifecycle) Begin() error {
	return l.transition(models.StatusScheduled, models.StatusInProgress)
}

// Finish ends a session that ran. Valid from scheduled (window passed without
// the client observing in-progress) or in-progress.
func (l *Lifecycle) Finish() error {
	if l.c.Status != models.StatusScheduled && l.c.Status != models.StatusInProgress {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, l.c.Status, models.StatusEnded)
	}
	l.c.Status = models.StatusEnded
	return nil
}

// Cancel cancels a scheduled or running session (admin or user initiated).
func (l *Lifecycle) Cancel(reason string) error {
	if l.c.Status.Terminal() {
		return fmt.Errorf("%w: %s sudah terminal", ErrInvalidTransition, l.c.Status)
	}
	l.c.Status = models.StatusCancelled
	l.c.Reason = reason
	return nil
}

// ReuploadProof re-opens payment after an invalid-proof rejection. Allowed
// at most once: the attempt counter only ever goes up. CreatedAt is reset so
// a fresh PaymentWindow starts from now.
func (l *Lifecycle) ReuploadProof(clock Clock) error {
	if ComputeRecoveryAction(l.c) != models.RecoveryReupload {
		return fmt.Errorf("%w: re-upload tidak tersedia (reason=%q, attempt=%d)",
			ErrInvalidTransition, l.c.Reason, l.c.PaymentAttempt)
	}
	l.c.Status = models.StatusWaitingPayment
	l.c.Reason = ""
	l.c.PaymentAttempt++
	l.c.CreatedAt = clock.Now()
	return nil
}

// Reschedule books new dates on the same architect after an
// architect-unavailable rejection. No new payment step.
func (l *Lifecycle) Reschedule(start, end time.Time) error {
	if ComputeRecoveryAction(l.c) != models.RecoveryReschedule {
		return fmt.Errorf("%w: reschedule tidak tersedia (reason=%q)", ErrInvalidTransition, l.c.Reason)
	}
	l.c.Status = models.StatusScheduled
	l.c.Reason = ""
	l.c.StartDate = start
	l.c.EndDate = end
	return nil
}

// ComputeRecoveryAction maps a cancelled consultation to the single recovery
// action offered to the user.
func ComputeRecoveryAction(c *models.Consultation) models.RecoveryAction {
	if c.Status != models.StatusCancelled {
		return models.RecoveryContactSupport
	}
	switch c.Reason {
	case models.ReasonInvalidProof:
		if c.PaymentAttempt < maxPaymentAttempts {
			return models.RecoveryReupload
		}
		return models.RecoveryStartOver
	case models.ReasonArchitectUnavailable:
		return models.RecoveryReschedule
	default:
		// expired, dibatalkan user, dibatalkan sistem, dan alasan lain
		return models.RecoveryContactSupport
	}
}

// RecoveryMessage renders the cancellation reason for the user.
func RecoveryMessage(c *models.Consultation) string {
	switch c.Reason {
	case models.ReasonExpired:
		return "Waktu pembayaran habis. Silakan hubungi CS atau buat booking baru."
	case models.ReasonInvalidProof:
		if c.PaymentAttempt < maxPaymentAttempts {
			return "Bukti pembayaran tidak valid. Silakan upload ulang bukti pembayaran."
		}
		return "Bukti pembayaran tidak valid. Silakan buat booking baru."
	case models.ReasonArchitectUnavailable:
		return "Arsitek tidak tersedia pada jadwal tersebut. Silakan pilih jadwal baru."
	default:
		if c.Reason != "" {
			return c.Reason
		}
		return "Konsultasi dibatalkan."
	}
}
