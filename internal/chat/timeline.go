package chat

import (
	"sort"
	"time"

	"github.com/bangunrumah/konsultasi-engine/internal/models"
)

type EntryKind string

const (
	EntryDate    EntryKind = "date"
	EntryMessage EntryKind = "message"
)

// Entry is one display row: either a synthetic date separator or a message
// with its rendering hint.
type Entry struct {
	Kind  EntryKind
	Label string // hanya untuk EntryDate

	Message models.Message // hanya untuk EntryMessage
	// FirstFromSender is true when the previous message in the same date
	// group came from a different sender. Rendering hint only.
	FirstFromSender bool
}

var bulanIndonesia = [...]string{
	"Januari", "Februari", "Maret", "April", "Mei", "Juni",
	"Juli", "Agustus", "September", "Oktober", "November", "Desember",
}

// DateLabel renders a calendar day for the separator row.
func DateLabel(day, now time.Time) string {
	today := truncateDay(now)
	d := truncateDay(day)
	if d.Equal(today) {
		return "Hari ini"
	}
	if d.Equal(today.AddDate(0, 0, -1)) {
		return "Kemarin"
	}
	return formatTanggal(day)
}

func formatTanggal(t time.Time) string {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location()).
		Format("2 ") + bulanIndonesia[t.Month()-1] + t.Format(" 2006")
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// BuildTimeline turns an unordered message set into the display sequence:
// ascending sort, a separator whenever the calendar day changes, the
// first-from-sender hint per group, then the whole thing reversed so
// consumers render newest-first. Rebuilding from scratch is the refresh
// operation; the same input always yields the same output.
func BuildTimeline(msgs []models.Message, now time.Time) []Entry {
	sorted := make([]models.Message, len(msgs))
	copy(sorted, msgs)
	// stable: pesan dengan timestamp sama mempertahankan urutan masuknya
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
	})

	loc := now.Location()
	var entries []Entry
	var currentDay time.Time
	var prevSender string

	for _, m := range sorted {
		day := truncateDay(m.CreatedAt.In(loc))
		if !day.Equal(currentDay) {
			entries = append(entries, Entry{Kind: EntryDate, Label: DateLabel(day, now)})
			currentDay = day
			prevSender = ""
		}
		entries = append(entries, Entry{
			Kind:            EntryMessage,
			Message:         m,
			FirstFromSender: m.Sender != prevSender,
		})
		prevSender = m.Sender
	}

	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	return entries
}
