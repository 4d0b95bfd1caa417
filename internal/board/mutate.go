package board

import (
	"errors"
	"strings"
)

// Sentinel conditions raised by aggregate transforms. The gateway maps these
// to caller-facing error kinds; "column not empty" is a domain-specific
// rejection distinct from generic validation.
var (
	ErrCardNotFound    = errors.New("card not found")
	ErrColumnNotFound  = errors.New("column not found")
	ErrColumnNotEmpty  = errors.New("column not empty")
	ErrLastColumn      = errors.New("last column cannot be deleted")
	ErrMemberNotFound  = errors.New("member not found")
	ErrIndexOutOfRange = errors.New("index out of range")
)

// Direction of a column reorder.
type Direction string

const (
	DirectionLeft  Direction = "left"
	DirectionRight Direction = "right"
)

// AddCard appends a card to the end of its column. The card's ColumnID must
// reference an existing column.
func (b *Board) AddCard(card *Card) error {
	col, ok := b.Column(card.ColumnID)
	if !ok {
		return ErrColumnNotFound
	}
	col.CardIDs = append(col.CardIDs, card.ID)
	b.Cards[card.ID] = card
	return nil
}

// DeleteCard removes a card from the card map and from its column's sequence.
func (b *Board) DeleteCard(cardID string) error {
	card, ok := b.Cards[cardID]
	if !ok {
		return ErrCardNotFound
	}
	if col, ok := b.Column(card.ColumnID); ok {
		col.CardIDs = removeID(col.CardIDs, cardID)
	}
	delete(b.Cards, cardID)
	return nil
}

// MoveCard splices a card out of its source column and inserts it at
// targetIndex in the target column, updating the card's ColumnID. Same-column
// reorders and cross-column moves share this path: the removal happens first,
// so a same-column targetIndex addresses the shortened sequence. A drop onto
// the card's own current position is a no-op and returns moved=false, letting
// callers skip the write entirely.
func (b *Board) MoveCard(cardID, targetColumnID string, targetIndex int) (moved bool, err error) {
	card, ok := b.Cards[cardID]
	if !ok {
		return false, ErrCardNotFound
	}
	target, ok := b.Column(targetColumnID)
	if !ok {
		return false, ErrColumnNotFound
	}
	source, ok := b.Column(card.ColumnID)
	if !ok {
		return false, ErrColumnNotFound
	}

	if source.ID == target.ID && indexOf(source.CardIDs, cardID) == targetIndex {
		return false, nil
	}
	if targetIndex < 0 {
		return false, ErrIndexOutOfRange
	}

	source.CardIDs = removeID(source.CardIDs, cardID)
	if targetIndex > len(target.CardIDs) {
		targetIndex = len(target.CardIDs)
	}
	target.CardIDs = insertID(target.CardIDs, cardID, targetIndex)
	card.ColumnID = target.ID
	return true, nil
}

// AddColumn appends a column to the board's sequence.
func (b *Board) AddColumn(col Column) {
	if col.CardIDs == nil {
		col.CardIDs = []string{}
	}
	b.Columns = append(b.Columns, col)
}

// DeleteColumn removes an empty column. Columns holding cards and the last
// remaining column are protected.
func (b *Board) DeleteColumn(columnID string) error {
	idx := b.columnIndex(columnID)
	if idx < 0 {
		return ErrColumnNotFound
	}
	if len(b.Columns[idx].CardIDs) > 0 {
		return ErrColumnNotEmpty
	}
	if len(b.Columns) == 1 {
		return ErrLastColumn
	}
	b.Columns = append(b.Columns[:idx], b.Columns[idx+1:]...)
	return nil
}

// SwapColumn swaps a column with its immediate neighbor. At either boundary
// the call is a no-op and returns swapped=false.
func (b *Board) SwapColumn(columnID string, dir Direction) (swapped bool, err error) {
	idx := b.columnIndex(columnID)
	if idx < 0 {
		return false, ErrColumnNotFound
	}
	other := idx - 1
	if dir == DirectionRight {
		other = idx + 1
	}
	if other < 0 || other >= len(b.Columns) {
		return false, nil
	}
	b.Columns[idx], b.Columns[other] = b.Columns[other], b.Columns[idx]
	return true, nil
}

// AddMember adds a member or, if the email is already a member, updates the
// existing member's privilege.
func (b *Board) AddMember(email string, privilege Privilege) {
	email = NormalizeEmail(email)
	for i := range b.Members {
		if b.Members[i].Email == email {
			b.Members[i].Privilege = privilege
			return
		}
	}
	b.Members = append(b.Members, Member{Email: email, Privilege: privilege})
}

// RemoveMember deletes a membership record. When the removed member owns the
// board and other members remain, ownership passes to a write member if one
// exists, else to an arbitrary remaining member, before the record is
// dropped. lastMember reports that no members remain, which means the board
// itself must be deleted by the caller.
func (b *Board) RemoveMember(email, ownerEmail string, resolveOwner func(email string) (userID string, ok bool)) (lastMember bool, err error) {
	email = NormalizeEmail(email)
	idx := -1
	for i := range b.Members {
		if b.Members[i].Email == email {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false, ErrMemberNotFound
	}

	remaining := make([]Member, 0, len(b.Members)-1)
	remaining = append(remaining, b.Members[:idx]...)
	remaining = append(remaining, b.Members[idx+1:]...)

	if len(remaining) == 0 {
		b.Members = remaining
		return true, nil
	}

	if NormalizeEmail(ownerEmail) == email {
		heir := remaining[0]
		for _, m := range remaining {
			if m.Privilege == PrivilegeWrite {
				heir = m
				break
			}
		}
		if resolveOwner != nil {
			if userID, ok := resolveOwner(heir.Email); ok {
				b.OwnerID = userID
			}
		}
	}

	b.Members = remaining
	return false, nil
}

// AddLabel adds a label unless a label with the same case-insensitive name
// already exists, in which case the existing label is returned unchanged.
func (b *Board) AddLabel(label Label) (Label, bool) {
	for _, existing := range b.Labels {
		if strings.EqualFold(existing.Name, label.Name) {
			return existing, false
		}
	}
	b.Labels = append(b.Labels, label)
	return label, true
}

func indexOf(ids []string, id string) int {
	for i, v := range ids {
		if v == id {
			return i
		}
	}
	return -1
}

func removeID(ids []string, id string) []string {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

func insertID(ids []string, id string, index int) []string {
	ids = append(ids, "")
	copy(ids[index+1:], ids[index:])
	ids[index] = id
	return ids
}
