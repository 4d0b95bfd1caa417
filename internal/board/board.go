// Package board holds the board aggregate: the single document describing one
// board's columns, cards, members and labels. Everything in here is pure data
// and pure transforms; persistence and authorization live elsewhere.
package board

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Privilege is the access level a member holds on a board.
type Privilege string

const (
	PrivilegeNone  Privilege = "none"
	PrivilegeRead  Privilege = "read"
	PrivilegeWrite Privilege = "write"
)

// Satisfies reports whether p meets the required privilege. A read requirement
// is met by either privilege; a write requirement only by write.
func (p Privilege) Satisfies(required Privilege) bool {
	switch required {
	case PrivilegeRead:
		return p == PrivilegeRead || p == PrivilegeWrite
	case PrivilegeWrite:
		return p == PrivilegeWrite
	default:
		return false
	}
}

// Valid reports whether p is a grantable privilege.
func (p Privilege) Valid() bool {
	return p == PrivilegeRead || p == PrivilegeWrite
}

// Member is a user's membership on a board, identified by lower-cased email.
type Member struct {
	Email     string    `json:"email"`
	Privilege Privilege `json:"privilege"`
}

// Column is an ordered lane of card ids.
type Column struct {
	ID      string   `json:"id"`
	Title   string   `json:"title"`
	CardIDs []string `json:"cardIds"`
}

// ChecklistItem is a single entry of a card's checklist.
type ChecklistItem struct {
	ID   string `json:"id"`
	Text string `json:"text"`
	Done bool   `json:"done"`
}

// CardLink is a titled URL attached to a card.
type CardLink struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	URL   string `json:"url"`
}

// ActivityEntry is a free-text log line a user explicitly authored on a card.
type ActivityEntry struct {
	ID        string    `json:"id"`
	Author    string    `json:"author"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}

// Reminder offsets relative to a card's deadline date.
const (
	ReminderOnDeadline    = "ON_DEADLINE"
	ReminderOneDayBefore  = "ONE_DAY_BEFORE"
	ReminderTwoDaysBefore = "TWO_DAYS_BEFORE"
	ReminderOneWeekBefore = "ONE_WEEK_BEFORE"
)

var reminderOffsets = map[string]time.Duration{
	ReminderOnDeadline:    0,
	ReminderOneDayBefore:  24 * time.Hour,
	ReminderTwoDaysBefore: 48 * time.Hour,
	ReminderOneWeekBefore: 7 * 24 * time.Hour,
}

// ValidReminder reports whether value is a known reminder offset.
func ValidReminder(value string) bool {
	_, ok := reminderOffsets[value]
	return ok
}

// ReminderOffset returns the duration before the deadline at which the
// reminder fires. Unknown values return zero.
func ReminderOffset(value string) time.Duration {
	return reminderOffsets[value]
}

// DeadlineLayout is the calendar-date format used for card deadlines.
// Deadlines are dates, not timestamps.
const DeadlineLayout = "2006-01-02"

// Card is one unit of work. ColumnID always matches the column whose CardIDs
// contains the card's id; MoveCard keeps the two in sync.
type Card struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	ColumnID    string          `json:"columnId"`
	Assignee    string          `json:"assignee,omitempty"`
	Deadline    string          `json:"deadline,omitempty"`
	Reminder    string          `json:"reminder,omitempty"`
	Checklist   []ChecklistItem `json:"checklist,omitempty"`
	Links       []CardLink      `json:"links,omitempty"`
	Activity    []ActivityEntry `json:"activity,omitempty"`
	LabelIDs    []string        `json:"labelIds,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// Label is a board-owned tag referenced by id from cards.
type Label struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

// Palette is the fixed set of label colors a board accepts.
var Palette = []string{
	"green", "yellow", "orange", "red", "purple",
	"blue", "sky", "lime", "pink", "slate",
}

// ValidColor reports whether color is in the fixed palette.
func ValidColor(color string) bool {
	for _, c := range Palette {
		if c == color {
			return true
		}
	}
	return false
}

// Board is the persisted aggregate. UpdatedAt is the sole version marker;
// there is no monotonic counter and no optimistic lock.
type Board struct {
	UID         string           `json:"uid"`
	Title       string           `json:"title"`
	Description string           `json:"description,omitempty"`
	OwnerID     string           `json:"ownerId"`
	Members     []Member         `json:"members"`
	Columns     []Column         `json:"columns"`
	Cards       map[string]*Card `json:"cards"`
	Labels      []Label          `json:"labels,omitempty"`
	CreatedAt   time.Time        `json:"createdAt"`
	UpdatedAt   time.Time        `json:"updatedAt"`
}

// New creates a board owned by ownerID with the owner as sole write member
// and a single starter column.
func New(uid, title, description, ownerID, ownerEmail, columnID string, now time.Time) *Board {
	return &Board{
		UID:         uid,
		Title:       title,
		Description: description,
		OwnerID:     ownerID,
		Members: []Member{
			{Email: NormalizeEmail(ownerEmail), Privilege: PrivilegeWrite},
		},
		Columns: []Column{
			{ID: columnID, Title: "To do", CardIDs: []string{}},
		},
		Cards:     make(map[string]*Card),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NormalizeEmail lower-cases and trims an email; member identity is
// case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Touch refreshes the board's version marker.
func (b *Board) Touch(now time.Time) {
	b.UpdatedAt = now
}

// Column returns the column with the given id.
func (b *Board) Column(id string) (*Column, bool) {
	for i := range b.Columns {
		if b.Columns[i].ID == id {
			return &b.Columns[i], true
		}
	}
	return nil, false
}

// columnIndex returns the position of the column holding id, or -1.
func (b *Board) columnIndex(id string) int {
	for i := range b.Columns {
		if b.Columns[i].ID == id {
			return i
		}
	}
	return -1
}

// MemberPrivilege resolves a member's privilege by case-insensitive email.
// Non-members get PrivilegeNone.
func (b *Board) MemberPrivilege(email string) Privilege {
	email = NormalizeEmail(email)
	for _, m := range b.Members {
		if m.Email == email {
			return m.Privilege
		}
	}
	return PrivilegeNone
}

// ValidateAssignee normalizes an assignee email. Empty clears the assignee;
// anything else must belong to a current member.
func (b *Board) ValidateAssignee(raw string) (string, error) {
	email := NormalizeEmail(raw)
	if email == "" {
		return "", nil
	}
	if b.MemberPrivilege(email) == PrivilegeNone {
		return "", fmt.Errorf("assignee %s is not a board member", email)
	}
	return email, nil
}

// ValidateLabelIDs checks that every id references a board label and drops
// duplicates while preserving order.
func (b *Board) ValidateLabelIDs(ids []string) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	known := make(map[string]bool, len(b.Labels))
	for _, l := range b.Labels {
		known[l.ID] = true
	}
	out := make([]string, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if !known[id] {
			return nil, fmt.Errorf("unknown label %s", id)
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out, nil
}

// Clone returns a deep copy of the board. The client reconciliation engine
// snapshots boards before optimistic mutations, so shared slices would leak
// edits across copies.
func (b *Board) Clone() *Board {
	if b == nil {
		return nil
	}
	copied := *b
	copied.Members = append([]Member(nil), b.Members...)
	copied.Labels = append([]Label(nil), b.Labels...)
	copied.Columns = make([]Column, len(b.Columns))
	for i, col := range b.Columns {
		copied.Columns[i] = col
		copied.Columns[i].CardIDs = append([]string(nil), col.CardIDs...)
	}
	copied.Cards = make(map[string]*Card, len(b.Cards))
	for id, card := range b.Cards {
		c := *card
		c.Checklist = append([]ChecklistItem(nil), card.Checklist...)
		c.Links = append([]CardLink(nil), card.Links...)
		c.Activity = append([]ActivityEntry(nil), card.Activity...)
		c.LabelIDs = append([]string(nil), card.LabelIDs...)
		copied.Cards[id] = &c
	}
	return &copied
}

// Validate checks the aggregate invariants: every id in every column's CardIDs
// exists in Cards, appears exactly once across all columns, every card's
// ColumnID matches the column holding it, the card map has no orphans, and
// the board keeps at least one column and one member.
func (b *Board) Validate() error {
	if len(b.Columns) == 0 {
		return fmt.Errorf("board %s has no columns", b.UID)
	}
	if len(b.Members) == 0 {
		return fmt.Errorf("board %s has no members", b.UID)
	}
	seen := make(map[string]string, len(b.Cards))
	for _, col := range b.Columns {
		for _, id := range col.CardIDs {
			if prev, dup := seen[id]; dup {
				return fmt.Errorf("card %s listed in columns %s and %s", id, prev, col.ID)
			}
			seen[id] = col.ID
			card, ok := b.Cards[id]
			if !ok {
				return fmt.Errorf("column %s references unknown card %s", col.ID, id)
			}
			if card.ColumnID != col.ID {
				return fmt.Errorf("card %s claims column %s but lives in %s", id, card.ColumnID, col.ID)
			}
		}
	}
	if len(seen) != len(b.Cards) {
		orphans := make([]string, 0)
		for id := range b.Cards {
			if _, ok := seen[id]; !ok {
				orphans = append(orphans, id)
			}
		}
		sort.Strings(orphans)
		return fmt.Errorf("cards not referenced by any column: %s", strings.Join(orphans, ", "))
	}
	return nil
}
