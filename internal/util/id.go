package util

import (
	"crypto/rand"
	"encoding/hex"

	"github.com/google/uuid"
)

// NewID returns a prefixed random hex id, used for board-owned entities
// (cards, columns, labels, checklist entries).
func NewID(prefix string) string {
	bytes := make([]byte, 16)
	_, _ = rand.Read(bytes)
	if prefix == "" {
		return hex.EncodeToString(bytes)
	}
	return prefix + "_" + hex.EncodeToString(bytes)
}

// NewBoardUID returns a board's globally unique, immutable identifier.
func NewBoardUID() string {
	return uuid.NewString()
}
