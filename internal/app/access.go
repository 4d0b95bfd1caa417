package app

import (
	"context"
	"errors"

	"corkboard/api/internal/board"
	"corkboard/api/internal/store"
)

// loadBoardFor loads a board and enforces the caller's privilege on it in one
// step. Privilege is always resolved from the freshly loaded member list,
// never cached across requests. Non-members get NOT_FOUND rather than
// FORBIDDEN so board uids leak nothing.
func (s *Service) loadBoardFor(ctx context.Context, session Session, boardUID string, required board.Privilege) (*board.Board, board.Privilege, error) {
	if session.Email == "" {
		return nil, board.PrivilegeNone, errUnauthorized()
	}

	b, err := s.store.LoadBoard(ctx, boardUID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, board.PrivilegeNone, errNotFound("Board")
		}
		return nil, board.PrivilegeNone, err
	}

	priv := b.MemberPrivilege(session.Email)
	if priv == board.PrivilegeNone {
		return nil, board.PrivilegeNone, errNotFound("Board")
	}
	if !priv.Satisfies(required) {
		return nil, priv, errForbidden()
	}
	return b, priv, nil
}

// streamPrivilege is the cheap membership check used where the full document
// is not needed (stream open, calendar feed). Same visibility rules as
// loadBoardFor.
func (s *Service) streamPrivilege(ctx context.Context, boardUID, email string, required board.Privilege) error {
	if email == "" {
		return errUnauthorized()
	}
	priv, err := s.store.MemberPrivilege(ctx, boardUID, board.NormalizeEmail(email))
	if err != nil {
		return err
	}
	if priv == board.PrivilegeNone {
		return errNotFound("Board")
	}
	if !priv.Satisfies(required) {
		return errForbidden()
	}
	return nil
}
