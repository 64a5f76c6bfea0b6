package chat

import (
	"time"

	"github.com/bangunrumah/konsultasi-engine/internal/models"
)

// offlineLeadTime opens the room early for in-person sessions so both sides
// can coordinate arrival.
const offlineLeadTime = time.Hour

// DeriveChatStatus decides whether the room of a consultation accepts
// messages at the given instant. Pure function of the record plus the clock;
// callers re-evaluate it on every timer tick and detail refresh.
func DeriveChatStatus(c *models.Consultation, now time.Time) models.ChatStatus {
	switch c.Status {
	case models.StatusEnded, models.StatusCancelled:
		return models.ChatEnded
	case models.StatusInProgress:
		return models.ChatActive
	case models.StatusScheduled:
		open := c.StartDate
		if c.Type == models.TypeOffline {
			open = open.Add(-offlineLeadTime)
		}
		switch {
		case !now.Before(c.EndDate):
			return models.ChatEnded
		case !now.Before(open):
			return models.ChatActive
		default:
			return models.ChatWaiting
		}
	default:
		// waiting-for-payment, waiting-for-confirmation
		return models.ChatWaiting
	}
}
