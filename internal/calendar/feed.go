package calendar

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"corkboard/api/internal/board"
)

const icsDateLayout = "20060102"

// RenderFeed renders a board's deadline-bearing cards as a VCALENDAR. Cards
// without a deadline do not appear; a card's reminder becomes a VALARM on
// its event.
func RenderFeed(b *board.Board) []byte {
	var sb strings.Builder
	line := func(format string, args ...any) {
		sb.WriteString(fmt.Sprintf(format, args...))
		sb.WriteString("\r\n")
	}

	line("BEGIN:VCALENDAR")
	line("VERSION:2.0")
	line("PRODID:-//Corkboard//Board Calendar//EN")
	line("CALSCALE:GREGORIAN")
	line("X-WR-CALNAME:%s", escapeText(b.Title))

	cards := make([]*board.Card, 0, len(b.Cards))
	for _, card := range b.Cards {
		if card.Deadline != "" {
			cards = append(cards, card)
		}
	}
	sort.Slice(cards, func(i, j int) bool {
		if cards[i].Deadline != cards[j].Deadline {
			return cards[i].Deadline < cards[j].Deadline
		}
		return cards[i].ID < cards[j].ID
	})

	for _, card := range cards {
		deadline, err := time.Parse(board.DeadlineLayout, card.Deadline)
		if err != nil {
			continue
		}
		column := ""
		if col, ok := b.Column(card.ColumnID); ok {
			column = col.Title
		}

		line("BEGIN:VEVENT")
		line("UID:%s-%s@corkboard", b.UID, card.ID)
		line("DTSTAMP:%s", card.UpdatedAt.UTC().Format("20060102T150405Z"))
		// All-day event: DTEND is exclusive.
		line("DTSTART;VALUE=DATE:%s", deadline.Format(icsDateLayout))
		line("DTEND;VALUE=DATE:%s", deadline.AddDate(0, 0, 1).Format(icsDateLayout))
		line("SUMMARY:%s", escapeText(card.Title))
		if desc := summaryDescription(card, column); desc != "" {
			line("DESCRIPTION:%s", escapeText(desc))
		}
		if card.Reminder != "" && board.ValidReminder(card.Reminder) {
			line("BEGIN:VALARM")
			line("ACTION:DISPLAY")
			line("DESCRIPTION:%s", escapeText(card.Title))
			line("TRIGGER:%s", alarmTrigger(card.Reminder))
			line("END:VALARM")
		}
		line("END:VEVENT")
	}

	line("END:VCALENDAR")
	return []byte(sb.String())
}

func summaryDescription(card *board.Card, column string) string {
	parts := make([]string, 0, 2)
	if column != "" {
		parts = append(parts, "Column: "+column)
	}
	if card.Description != "" {
		parts = append(parts, card.Description)
	}
	return strings.Join(parts, "\n")
}

// alarmTrigger renders the reminder offset as a negative ISO-8601 duration
// relative to the event start. ON_DEADLINE fires at the start itself.
func alarmTrigger(reminder string) string {
	offset := board.ReminderOffset(reminder)
	if offset == 0 {
		return "PT0S"
	}
	days := int(offset / (24 * time.Hour))
	return fmt.Sprintf("-P%dD", days)
}

// escapeText applies RFC 5545 TEXT escaping.
func escapeText(s string) string {
	r := strings.NewReplacer(
		"\\", "\\\\",
		";", "\\;",
		",", "\\,",
		"\n", "\\n",
		"\r", "",
	)
	return r.Replace(s)
}
