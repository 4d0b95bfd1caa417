package app

import (
	"context"
	"errors"
	"net/http"

	"corkboard/api/internal/board"
	"corkboard/api/internal/calendar"
	"corkboard/api/internal/export"
	"corkboard/api/internal/store"
)

func (s *Service) ExportBoard(ctx context.Context, session Session, boardUID string, format export.Format) (*export.Result, error) {
	b, _, err := s.loadBoardFor(ctx, session, boardUID, board.PrivilegeRead)
	if err != nil {
		return nil, err
	}
	if s.exporter == nil {
		return nil, domainError(http.StatusServiceUnavailable, "EXPORT_UNAVAILABLE", "Export is not configured", nil)
	}
	return s.exporter.Export(ctx, b, format)
}

// MintCalendarToken issues the stable capability token for a board's iCal
// feed. The token never expires; removal from the board revokes it because
// CalendarFeed re-checks membership on every fetch.
func (s *Service) MintCalendarToken(ctx context.Context, session Session, boardUID string) (string, error) {
	if err := s.streamPrivilege(ctx, boardUID, session.Email, board.PrivilegeRead); err != nil {
		return "", err
	}
	return s.calendar.Mint(boardUID, board.NormalizeEmail(session.Email))
}

func (s *Service) CalendarFeed(ctx context.Context, token string) ([]byte, error) {
	claims, err := s.calendar.Parse(token)
	if err != nil {
		return nil, errUnauthorized()
	}
	if err := s.streamPrivilege(ctx, claims.BoardUID, claims.Email, board.PrivilegeRead); err != nil {
		return nil, err
	}
	b, err := s.store.LoadBoard(ctx, claims.BoardUID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, errNotFound("Board")
		}
		return nil, err
	}
	return calendar.RenderFeed(b), nil
}
