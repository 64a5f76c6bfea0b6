package chat

import (
	"testing"
	"time"

	"github.com/bangunrumah/konsultasi-engine/internal/models"
)

func scheduledConsultation(ctype models.ConsultationType, start, end time.Time) *models.Consultation {
	return &models.Consultation{
		ID:        "csl-1",
		RoomID:    "room-1",
		Type:      ctype,
		Status:    models.StatusScheduled,
		StartDate: start,
		EndDate:   end,
	}
}

func at(hour, minute int) time.Time {
	return time.Date(2026, 3, 9, hour, minute, 0, 0, time.UTC)
}

func TestDeriveChatStatusOnline(t *testing.T) {
	c := scheduledConsultation(models.TypeOnline, at(10, 0), at(11, 0))

	tests := []struct {
		now  time.Time
		want models.ChatStatus
	}{
		{at(9, 59), models.ChatWaiting},
		{at(10, 0), models.ChatActive},
		{at(10, 59), models.ChatActive},
		{at(11, 0), models.ChatEnded},
		{at(13, 0), models.ChatEnded},
	}
	for _, tt := range tests {
		if got := DeriveChatStatus(c, tt.now); got != tt.want {
			t.Errorf("online %s: got %s, want %s", tt.now.Format("15:04"), got, tt.want)
		}
	}
}

func TestDeriveChatStatusOfflinePreWindow(t *testing.T) {
	// offline dibuka 1 jam sebelum jadwal
	c := scheduledConsultation(models.TypeOffline, at(14, 0), at(15, 0))

	tests := []struct {
		now  time.Time
		want models.ChatStatus
	}{
		{at(12, 59), models.ChatWaiting},
		{at(13, 0), models.ChatActive},
		{at(14, 30), models.ChatActive},
		{at(15, 0), models.ChatEnded},
	}
	for _, tt := range tests {
		if got := DeriveChatStatus(c, tt.now); got != tt.want {
			t.Errorf("offline %s: got %s, want %s", tt.now.Format("15:04"), got, tt.want)
		}
	}
}

func TestDeriveChatStatusByConsultationStatus(t *testing.T) {
	now := at(10, 30)
	tests := []struct {
		status models.ConsultationStatus
		want   models.ChatStatus
	}{
		{models.StatusWaitingPayment, models.ChatWaiting},
		{models.StatusWaitingConfirmation, models.ChatWaiting},
		{models.StatusInProgress, models.ChatActive},
		{models.StatusEnded, models.ChatEnded},
		{models.StatusCancelled, models.ChatEnded},
	}
	for _, tt := range tests {
		c := scheduledConsultation(models.TypeOnline, at(10, 0), at(11, 0))
		c.Status = tt.status
		if got := DeriveChatStatus(c, now); got != tt.want {
			t.Errorf("status %s: got %s, want %s", tt.status, got, tt.want)
		}
	}
}
