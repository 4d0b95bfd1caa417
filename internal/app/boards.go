package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"corkboard/api/internal/board"
	"corkboard/api/internal/events"
	"corkboard/api/internal/search"
	"corkboard/api/internal/store"
	"corkboard/api/internal/util"
)

const (
	maxBoardTitleLen  = 120
	maxCardTitleLen   = 200
	maxDescriptionLen = 2000
	maxColumnTitleLen = 50
	maxLabelNameLen   = 30
)

type CreateBoardInput struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

type UpdateBoardInput struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
}

type CreateCardInput struct {
	ColumnID    string   `json:"columnId"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Assignee    string   `json:"assignee"`
	Deadline    string   `json:"deadline"`
	Reminder    string   `json:"reminder"`
	LabelIDs    []string `json:"labelIds"`
}

// UpdateCardInput is a partial update: nil fields are untouched. Deadline and
// Reminder clear on empty string. Comment appends one activity entry.
type UpdateCardInput struct {
	Title       *string                `json:"title"`
	Description *string                `json:"description"`
	ColumnID    *string                `json:"columnId"`
	Position    *int                   `json:"position"`
	Assignee    *string                `json:"assignee"`
	Deadline    *string                `json:"deadline"`
	Reminder    *string                `json:"reminder"`
	Checklist   *[]board.ChecklistItem `json:"checklist"`
	Links       *[]board.CardLink      `json:"links"`
	LabelIDs    *[]string              `json:"labelIds"`
	Comment     *string                `json:"comment"`
}

type ColumnInput struct {
	Title string `json:"title"`
}

type ReorderColumnInput struct {
	Direction string `json:"direction"`
}

type AddMemberInput struct {
	Email     string `json:"email"`
	Privilege string `json:"privilege"`
}

type AddLabelInput struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

// publish fans the invalidation out to every open stream for the board.
// ActorID lets each stream drop the publishing user's own echo.
func (s *Service) publish(boardUID string, session Session) {
	s.hub.Publish(boardUID, events.Event{BoardUID: boardUID, ActorID: session.UserID})
}

func (s *Service) CreateBoard(ctx context.Context, session Session, input CreateBoardInput) (*board.Board, error) {
	if session.Email == "" {
		return nil, errUnauthorized()
	}
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, errValidation("title is required")
	}
	if len(title) > maxBoardTitleLen {
		return nil, errValidation(fmt.Sprintf("title exceeds %d characters", maxBoardTitleLen))
	}
	description := strings.TrimSpace(input.Description)
	if len(description) > maxDescriptionLen {
		return nil, errValidation(fmt.Sprintf("description exceeds %d characters", maxDescriptionLen))
	}

	b := board.New(util.NewBoardUID(), title, description, session.UserID, session.Email, util.NewID("col"), time.Now())
	if err := s.store.SaveBoard(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

func (s *Service) GetBoard(ctx context.Context, session Session, boardUID string) (*board.Board, error) {
	b, _, err := s.loadBoardFor(ctx, session, boardUID, board.PrivilegeRead)
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (s *Service) ListBoards(ctx context.Context, session Session) ([]store.BoardSummary, error) {
	if session.Email == "" {
		return nil, errUnauthorized()
	}
	return s.store.ListBoardsForUser(ctx, board.NormalizeEmail(session.Email))
}

func (s *Service) UpdateBoard(ctx context.Context, session Session, boardUID string, input UpdateBoardInput) (*board.Board, error) {
	b, _, err := s.loadBoardFor(ctx, session, boardUID, board.PrivilegeWrite)
	if err != nil {
		return nil, err
	}

	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return nil, errValidation("title is required")
		}
		if len(title) > maxBoardTitleLen {
			return nil, errValidation(fmt.Sprintf("title exceeds %d characters", maxBoardTitleLen))
		}
		b.Title = title
	}
	if input.Description != nil {
		description := strings.TrimSpace(*input.Description)
		if len(description) > maxDescriptionLen {
			return nil, errValidation(fmt.Sprintf("description exceeds %d characters", maxDescriptionLen))
		}
		b.Description = description
	}

	b.Touch(time.Now())
	if err := s.store.SaveBoard(ctx, b); err != nil {
		return nil, err
	}
	s.publish(boardUID, session)
	return b, nil
}

// DeleteBoard is owner-only. Members leave through RemoveMember; the board
// dies with its last member there.
func (s *Service) DeleteBoard(ctx context.Context, session Session, boardUID string) error {
	b, _, err := s.loadBoardFor(ctx, session, boardUID, board.PrivilegeRead)
	if err != nil {
		return err
	}
	if b.OwnerID != session.UserID {
		return errForbidden()
	}
	if err := s.store.DeleteBoard(ctx, boardUID); err != nil {
		return err
	}
	s.dropBoardFromIndex(b)
	s.publish(boardUID, session)
	return nil
}

func (s *Service) CreateCard(ctx context.Context, session Session, boardUID string, input CreateCardInput) (*board.Board, error) {
	b, _, err := s.loadBoardFor(ctx, session, boardUID, board.PrivilegeWrite)
	if err != nil {
		return nil, err
	}

	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, errValidation("title is required")
	}
	if len(title) > maxCardTitleLen {
		return nil, errValidation(fmt.Sprintf("title exceeds %d characters", maxCardTitleLen))
	}
	description := strings.TrimSpace(input.Description)
	if len(description) > maxDescriptionLen {
		return nil, errValidation(fmt.Sprintf("description exceeds %d characters", maxDescriptionLen))
	}
	assignee, err := b.ValidateAssignee(input.Assignee)
	if err != nil {
		return nil, errValidation(err.Error())
	}
	deadline := strings.TrimSpace(input.Deadline)
	if deadline != "" {
		if _, err := time.Parse(board.DeadlineLayout, deadline); err != nil {
			return nil, errValidation("deadline must be a YYYY-MM-DD date")
		}
	}
	reminder := strings.TrimSpace(input.Reminder)
	if reminder != "" {
		if !board.ValidReminder(reminder) {
			return nil, errValidation("unknown reminder offset")
		}
		if deadline == "" {
			return nil, errValidation("a reminder requires a deadline")
		}
	}
	labelIDs, err := b.ValidateLabelIDs(input.LabelIDs)
	if err != nil {
		return nil, errValidation(err.Error())
	}

	now := time.Now()
	card := &board.Card{
		ID:          util.NewID("crd"),
		Title:       title,
		Description: description,
		ColumnID:    input.ColumnID,
		Assignee:    assignee,
		Deadline:    deadline,
		Reminder:    reminder,
		LabelIDs:    labelIDs,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := b.AddCard(card); err != nil {
		if errors.Is(err, board.ErrColumnNotFound) {
			return nil, errNotFound("Column")
		}
		return nil, err
	}

	b.Touch(now)
	if err := s.store.SaveBoard(ctx, b); err != nil {
		return nil, err
	}
	s.indexCard(b, card)
	s.publish(boardUID, session)
	return b, nil
}

func (s *Service) UpdateCard(ctx context.Context, session Session, boardUID, cardID string, input UpdateCardInput) (*board.Board, error) {
	b, _, err := s.loadBoardFor(ctx, session, boardUID, board.PrivilegeWrite)
	if err != nil {
		return nil, err
	}
	card, ok := b.Cards[cardID]
	if !ok {
		return nil, errNotFound("Card")
	}

	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return nil, errValidation("title is required")
		}
		if len(title) > maxCardTitleLen {
			return nil, errValidation(fmt.Sprintf("title exceeds %d characters", maxCardTitleLen))
		}
		card.Title = title
	}
	if input.Description != nil {
		description := strings.TrimSpace(*input.Description)
		if len(description) > maxDescriptionLen {
			return nil, errValidation(fmt.Sprintf("description exceeds %d characters", maxDescriptionLen))
		}
		card.Description = description
	}
	if input.Assignee != nil {
		assignee, err := b.ValidateAssignee(*input.Assignee)
		if err != nil {
			return nil, errValidation(err.Error())
		}
		card.Assignee = assignee
	}
	if input.Deadline != nil {
		deadline := strings.TrimSpace(*input.Deadline)
		if deadline != "" {
			if _, err := time.Parse(board.DeadlineLayout, deadline); err != nil {
				return nil, errValidation("deadline must be a YYYY-MM-DD date")
			}
		}
		card.Deadline = deadline
		if deadline == "" {
			card.Reminder = ""
		}
	}
	if input.Reminder != nil {
		reminder := strings.TrimSpace(*input.Reminder)
		if reminder != "" {
			if !board.ValidReminder(reminder) {
				return nil, errValidation("unknown reminder offset")
			}
			if card.Deadline == "" {
				return nil, errValidation("a reminder requires a deadline")
			}
		}
		card.Reminder = reminder
	}
	if input.Checklist != nil {
		items := *input.Checklist
		for i := range items {
			items[i].Text = strings.TrimSpace(items[i].Text)
			if items[i].Text == "" {
				return nil, errValidation("checklist items need text")
			}
			if items[i].ID == "" {
				items[i].ID = util.NewID("chk")
			}
		}
		card.Checklist = items
	}
	if input.Links != nil {
		links := *input.Links
		for i := range links {
			links[i].URL = strings.TrimSpace(links[i].URL)
			if links[i].URL == "" {
				return nil, errValidation("links need a url")
			}
			if links[i].Title == "" {
				links[i].Title = links[i].URL
			}
			if links[i].ID == "" {
				links[i].ID = util.NewID("lnk")
			}
		}
		card.Links = links
	}
	if input.LabelIDs != nil {
		labelIDs, err := b.ValidateLabelIDs(*input.LabelIDs)
		if err != nil {
			return nil, errValidation(err.Error())
		}
		card.LabelIDs = labelIDs
	}

	now := time.Now()
	if input.Comment != nil {
		text := strings.TrimSpace(*input.Comment)
		if text == "" {
			return nil, errValidation("comment needs text")
		}
		card.Activity = append(card.Activity, board.ActivityEntry{
			ID:        util.NewID("act"),
			Author:    session.Name,
			Text:      text,
			CreatedAt: now,
		})
	}

	if input.ColumnID != nil || input.Position != nil {
		targetColumn := card.ColumnID
		if input.ColumnID != nil {
			targetColumn = *input.ColumnID
		}
		targetIndex := -1
		if input.Position != nil {
			targetIndex = *input.Position
		}
		if targetIndex < 0 {
			// Column change without an index appends.
			if col, ok := b.Column(targetColumn); ok {
				targetIndex = len(col.CardIDs)
			}
		}
		if _, err := b.MoveCard(cardID, targetColumn, targetIndex); err != nil {
			if errors.Is(err, board.ErrColumnNotFound) {
				return nil, errNotFound("Column")
			}
			return nil, err
		}
	}

	card.UpdatedAt = now
	b.Touch(now)
	if err := s.store.SaveBoard(ctx, b); err != nil {
		return nil, err
	}
	s.indexCard(b, card)
	s.publish(boardUID, session)
	return b, nil
}

func (s *Service) DeleteCard(ctx context.Context, session Session, boardUID, cardID string) (*board.Board, error) {
	b, _, err := s.loadBoardFor(ctx, session, boardUID, board.PrivilegeWrite)
	if err != nil {
		return nil, err
	}
	if err := b.DeleteCard(cardID); err != nil {
		if errors.Is(err, board.ErrCardNotFound) {
			return nil, errNotFound("Card")
		}
		return nil, err
	}

	b.Touch(time.Now())
	if err := s.store.SaveBoard(ctx, b); err != nil {
		return nil, err
	}
	if s.index != nil {
		if err := s.index.DeleteCard(boardUID, cardID); err != nil {
			s.log.WithError(err).Warn("search deindex failed")
		}
	}
	s.publish(boardUID, session)
	return b, nil
}

func (s *Service) CreateColumn(ctx context.Context, session Session, boardUID string, input ColumnInput) (*board.Board, error) {
	b, _, err := s.loadBoardFor(ctx, session, boardUID, board.PrivilegeWrite)
	if err != nil {
		return nil, err
	}
	title, err := validateColumnTitle(input.Title)
	if err != nil {
		return nil, err
	}

	b.AddColumn(board.Column{ID: util.NewID("col"), Title: title})
	b.Touch(time.Now())
	if err := s.store.SaveBoard(ctx, b); err != nil {
		return nil, err
	}
	s.publish(boardUID, session)
	return b, nil
}

func (s *Service) UpdateColumn(ctx context.Context, session Session, boardUID, columnID string, input ColumnInput) (*board.Board, error) {
	b, _, err := s.loadBoardFor(ctx, session, boardUID, board.PrivilegeWrite)
	if err != nil {
		return nil, err
	}
	col, ok := b.Column(columnID)
	if !ok {
		return nil, errNotFound("Column")
	}
	title, err := validateColumnTitle(input.Title)
	if err != nil {
		return nil, err
	}

	col.Title = title
	b.Touch(time.Now())
	if err := s.store.SaveBoard(ctx, b); err != nil {
		return nil, err
	}
	s.publish(boardUID, session)
	return b, nil
}

func (s *Service) DeleteColumn(ctx context.Context, session Session, boardUID, columnID string) (*board.Board, error) {
	b, _, err := s.loadBoardFor(ctx, session, boardUID, board.PrivilegeWrite)
	if err != nil {
		return nil, err
	}
	if err := b.DeleteColumn(columnID); err != nil {
		switch {
		case errors.Is(err, board.ErrColumnNotFound):
			return nil, errNotFound("Column")
		case errors.Is(err, board.ErrColumnNotEmpty):
			return nil, errColumnNotEmpty()
		case errors.Is(err, board.ErrLastColumn):
			return nil, errValidation("the last column cannot be deleted")
		default:
			return nil, err
		}
	}

	b.Touch(time.Now())
	if err := s.store.SaveBoard(ctx, b); err != nil {
		return nil, err
	}
	s.publish(boardUID, session)
	return b, nil
}

// ReorderColumn swaps a column with its left or right neighbour. Pushing
// past the edge is a quiet no-op: nothing saved, nothing published.
func (s *Service) ReorderColumn(ctx context.Context, session Session, boardUID, columnID string, input ReorderColumnInput) (*board.Board, error) {
	b, _, err := s.loadBoardFor(ctx, session, boardUID, board.PrivilegeWrite)
	if err != nil {
		return nil, err
	}

	var dir board.Direction
	switch strings.ToLower(strings.TrimSpace(input.Direction)) {
	case "left":
		dir = board.DirectionLeft
	case "right":
		dir = board.DirectionRight
	default:
		return nil, errValidation("direction must be left or right")
	}

	swapped, err := b.SwapColumn(columnID, dir)
	if err != nil {
		if errors.Is(err, board.ErrColumnNotFound) {
			return nil, errNotFound("Column")
		}
		return nil, err
	}
	if !swapped {
		return b, nil
	}

	b.Touch(time.Now())
	if err := s.store.SaveBoard(ctx, b); err != nil {
		return nil, err
	}
	s.publish(boardUID, session)
	return b, nil
}

func (s *Service) AddMember(ctx context.Context, session Session, boardUID string, input AddMemberInput) (*board.Board, error) {
	b, _, err := s.loadBoardFor(ctx, session, boardUID, board.PrivilegeWrite)
	if err != nil {
		return nil, err
	}

	memberEmail := board.NormalizeEmail(input.Email)
	if memberEmail == "" || !strings.Contains(memberEmail, "@") {
		return nil, errValidation("a valid email is required")
	}
	privilege := board.Privilege(strings.ToLower(strings.TrimSpace(input.Privilege)))
	if !privilege.Valid() || privilege == board.PrivilegeNone {
		return nil, errValidation("privilege must be read or write")
	}

	b.AddMember(memberEmail, privilege)
	b.Touch(time.Now())
	if err := s.store.SaveBoard(ctx, b); err != nil {
		return nil, err
	}
	s.publish(boardUID, session)
	s.sendInvitation(memberEmail, session.Name, b)
	return b, nil
}

// RemoveMember handles self-removal (any member) and removal of others
// (write only). Removing the last member deletes the board; removing the
// owner hands ownership to another write member first.
func (s *Service) RemoveMember(ctx context.Context, session Session, boardUID, memberEmail string) (*board.Board, error) {
	memberEmail = board.NormalizeEmail(memberEmail)
	required := board.PrivilegeRead
	if memberEmail != board.NormalizeEmail(session.Email) {
		required = board.PrivilegeWrite
	}
	b, _, err := s.loadBoardFor(ctx, session, boardUID, required)
	if err != nil {
		return nil, err
	}

	ownerEmail := ""
	if owner, err := s.store.GetUserByID(ctx, b.OwnerID); err == nil {
		ownerEmail = owner.Email
	}

	lastMember, err := b.RemoveMember(memberEmail, ownerEmail, func(email string) (string, bool) {
		user, err := s.store.GetUserByEmail(ctx, email)
		if err != nil {
			return "", false
		}
		return user.ID, true
	})
	if err != nil {
		if errors.Is(err, board.ErrMemberNotFound) {
			return nil, errNotFound("Member")
		}
		return nil, err
	}

	if lastMember {
		if err := s.store.DeleteBoard(ctx, boardUID); err != nil {
			return nil, err
		}
		s.dropBoardFromIndex(b)
		s.publish(boardUID, session)
		return nil, nil
	}

	b.Touch(time.Now())
	if err := s.store.SaveBoard(ctx, b); err != nil {
		return nil, err
	}
	s.publish(boardUID, session)
	return b, nil
}

func (s *Service) AddLabel(ctx context.Context, session Session, boardUID string, input AddLabelInput) (*board.Board, error) {
	b, _, err := s.loadBoardFor(ctx, session, boardUID, board.PrivilegeWrite)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, errValidation("name is required")
	}
	if len(name) > maxLabelNameLen {
		return nil, errValidation(fmt.Sprintf("name exceeds %d characters", maxLabelNameLen))
	}
	if !board.ValidColor(input.Color) {
		return nil, errValidation("color is not in the palette")
	}

	_, created := b.AddLabel(board.Label{ID: util.NewID("lbl"), Name: name, Color: input.Color})
	if !created {
		// Same name already exists; dedupe without touching the document.
		return b, nil
	}

	b.Touch(time.Now())
	if err := s.store.SaveBoard(ctx, b); err != nil {
		return nil, err
	}
	s.publish(boardUID, session)
	return b, nil
}

func (s *Service) SearchCards(ctx context.Context, session Session, text string, limit int) ([]search.Result, int, error) {
	if session.Email == "" {
		return nil, 0, errUnauthorized()
	}
	if s.index == nil {
		return nil, 0, domainError(503, "SEARCH_UNAVAILABLE", "Search is not configured", nil)
	}
	summaries, err := s.store.ListBoardsForUser(ctx, board.NormalizeEmail(session.Email))
	if err != nil {
		return nil, 0, err
	}
	uids := make([]string, 0, len(summaries))
	for _, summary := range summaries {
		uids = append(uids, summary.UID)
	}
	if len(uids) == 0 {
		return []search.Result{}, 0, nil
	}
	return s.index.Search(search.Query{Text: text, BoardUIDs: uids, Limit: limit})
}

func validateColumnTitle(raw string) (string, error) {
	title := strings.TrimSpace(raw)
	if title == "" {
		return "", errValidation("title is required")
	}
	if len(title) > maxColumnTitleLen {
		return "", errValidation(fmt.Sprintf("title exceeds %d characters", maxColumnTitleLen))
	}
	return title, nil
}

func (s *Service) indexCard(b *board.Board, card *board.Card) {
	if s.index == nil {
		return
	}
	columnTitle := ""
	if col, ok := b.Column(card.ColumnID); ok {
		columnTitle = col.Title
	}
	err := s.index.IndexCard(search.CardRecord{
		ID:          b.UID + ":" + card.ID,
		CardID:      card.ID,
		BoardUID:    b.UID,
		BoardTitle:  b.Title,
		ColumnTitle: columnTitle,
		Title:       card.Title,
		Description: card.Description,
		Assignee:    card.Assignee,
		Deadline:    card.Deadline,
	})
	if err != nil {
		s.log.WithError(err).Warn("search index failed")
	}
}

func (s *Service) dropBoardFromIndex(b *board.Board) {
	if s.index == nil {
		return
	}
	cardIDs := make([]string, 0, len(b.Cards))
	for id := range b.Cards {
		cardIDs = append(cardIDs, id)
	}
	if err := s.index.DeleteBoard(b.UID, cardIDs); err != nil {
		s.log.WithError(err).Warn("search deindex failed")
	}
}

// sendInvitation is best effort; a mail failure never fails the mutation.
func (s *Service) sendInvitation(to, inviterName string, b *board.Board) {
	if s.mail == nil || !s.mail.IsConfigured() {
		return
	}
	boardURL := strings.TrimRight(s.cfg.BaseURL, "/") + "/boards/" + b.UID
	if err := s.mail.SendBoardInvitation(to, inviterName, b.Title, boardURL); err != nil {
		s.log.WithError(err).WithField("to", to).Warn("invitation email failed")
	}
}
