package client

import (
	"fmt"
	"strings"

	"corkboard/api/internal/board"
)

// Mutation is one optimistic local change plus enough bookkeeping to
// reconcile it later.
//
// Transform applies the change to the local copy. FieldGroup names the set
// of fields the change touches (e.g. "card:crd_1:position"); Extract reads
// the canonical encoding of that group out of any board snapshot, so a later
// refresh can tell our own echo apart from an external edit. NoOp marks a
// mutation that would change nothing; the engine drops it without touching
// the gateway.
//
// Name and Payload describe the gateway call; the concrete Gateway maps
// them onto API requests.
type Mutation struct {
	Name       string
	Payload    any
	FieldGroup string
	NoOp       bool
	Transform  func(b *board.Board) error
	Extract    func(b *board.Board) string
}

// MoveCard builds the mutation for dragging a card to (columnID, index).
// Dropping a card exactly where it already sits is a no-op: no local change,
// no gateway call.
func MoveCard(b *board.Board, cardID, columnID string, index int) Mutation {
	group := "card:" + cardID + ":position"
	extract := func(b *board.Board) string {
		for _, col := range b.Columns {
			for i, id := range col.CardIDs {
				if id == cardID {
					return fmt.Sprintf("%s/%d", col.ID, i)
				}
			}
		}
		return ""
	}

	noop := extract(b) == fmt.Sprintf("%s/%d", columnID, index)

	return Mutation{
		Name: "card.move",
		Payload: map[string]any{
			"cardId":   cardID,
			"columnId": columnID,
			"position": index,
		},
		FieldGroup: group,
		NoOp:       noop,
		Transform: func(b *board.Board) error {
			_, err := b.MoveCard(cardID, columnID, index)
			return err
		},
		Extract: extract,
	}
}

// SetCardTitle builds the mutation for renaming a card.
func SetCardTitle(cardID, title string) Mutation {
	group := "card:" + cardID + ":title"
	return Mutation{
		Name:       "card.update",
		Payload:    map[string]any{"cardId": cardID, "title": title},
		FieldGroup: group,
		NoOp:       strings.TrimSpace(title) == "",
		Transform: func(b *board.Board) error {
			card, ok := b.Cards[cardID]
			if !ok {
				return fmt.Errorf("card %s not found", cardID)
			}
			card.Title = title
			return nil
		},
		Extract: func(b *board.Board) string {
			if card, ok := b.Cards[cardID]; ok {
				return card.Title
			}
			return ""
		},
	}
}

// SetCardDescription builds the mutation for editing a card's description.
func SetCardDescription(cardID, description string) Mutation {
	group := "card:" + cardID + ":description"
	return Mutation{
		Name:       "card.update",
		Payload:    map[string]any{"cardId": cardID, "description": description},
		FieldGroup: group,
		Transform: func(b *board.Board) error {
			card, ok := b.Cards[cardID]
			if !ok {
				return fmt.Errorf("card %s not found", cardID)
			}
			card.Description = description
			return nil
		},
		Extract: func(b *board.Board) string {
			if card, ok := b.Cards[cardID]; ok {
				return card.Description
			}
			return ""
		},
	}
}

// SetBoardTitle builds the mutation for renaming the board.
func SetBoardTitle(title string) Mutation {
	return Mutation{
		Name:       "board.update",
		Payload:    map[string]any{"title": title},
		FieldGroup: "board:title",
		NoOp:       strings.TrimSpace(title) == "",
		Transform: func(b *board.Board) error {
			b.Title = title
			return nil
		},
		Extract: func(b *board.Board) string { return b.Title },
	}
}
