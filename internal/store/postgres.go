package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"corkboard/api/internal/board"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// ---- users ----

func (s *PostgresStore) CreateUser(ctx context.Context, user User) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, display_name, email, password_hash, is_email_verified, verification_token)
		VALUES ($1, $2, LOWER($3), $4, $5, $6)
	`, user.ID, user.DisplayName, user.Email, user.PasswordHash, user.IsEmailVerified, user.VerificationToken)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (User, error) {
	var user User
	err := s.db.QueryRowContext(ctx, `
		SELECT id, display_name, email, password_hash, is_email_verified
		FROM users WHERE email = LOWER($1)
	`, email).Scan(&user.ID, &user.DisplayName, &user.Email, &user.PasswordHash, &user.IsEmailVerified)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("lookup user by email: %w", err)
	}
	return user, nil
}

func (s *PostgresStore) GetUserByID(ctx context.Context, userID string) (User, error) {
	var user User
	err := s.db.QueryRowContext(ctx, `
		SELECT id, display_name, email, password_hash, is_email_verified
		FROM users WHERE id = $1
	`, userID).Scan(&user.ID, &user.DisplayName, &user.Email, &user.PasswordHash, &user.IsEmailVerified)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("lookup user by id: %w", err)
	}
	return user, nil
}

func (s *PostgresStore) UpdateUserVerificationToken(ctx context.Context, userID, token string, expiresAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE users SET verification_token=$2, verification_expires_at=$3, updated_at=NOW()
		WHERE id=$1
	`, userID, token, expiresAt)
	if err != nil {
		return fmt.Errorf("update verification token: %w", err)
	}
	return nil
}

func (s *PostgresStore) VerifyUserEmail(ctx context.Context, token string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE users
		SET is_email_verified=TRUE, verification_token='', verification_expires_at=NULL, updated_at=NOW()
		WHERE verification_token=$1 AND verification_expires_at > NOW()
	`, token)
	if err != nil {
		return fmt.Errorf("verify email: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("verify email result: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) UpdateUserPassword(ctx context.Context, userID, passwordHash string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE users SET password_hash=$2, updated_at=NOW() WHERE id=$1
	`, userID, passwordHash)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

func (s *PostgresStore) CreatePasswordReset(ctx context.Context, userID, token string, expiresAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO password_resets (token, user_id, expires_at)
		VALUES ($1, $2, $3)
	`, token, userID, expiresAt)
	if err != nil {
		return fmt.Errorf("create password reset: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetPasswordReset(ctx context.Context, token string) (string, error) {
	var userID string
	err := s.db.QueryRowContext(ctx, `
		SELECT user_id FROM password_resets
		WHERE token=$1 AND used_at IS NULL AND expires_at > NOW()
	`, token).Scan(&userID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("lookup password reset: %w", err)
	}
	return userID, nil
}

func (s *PostgresStore) MarkPasswordResetUsed(ctx context.Context, token string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE password_resets SET used_at=NOW() WHERE token=$1`, token)
	if err != nil {
		return fmt.Errorf("mark password reset used: %w", err)
	}
	return nil
}

// ---- refresh sessions ----

func (s *PostgresStore) SaveRefreshSession(ctx context.Context, tokenHash string, user User, expiresAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO refresh_sessions (token_hash, user_id, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (token_hash) DO UPDATE SET user_id=EXCLUDED.user_id, expires_at=EXCLUDED.expires_at, revoked_at=NULL
	`, tokenHash, user.ID, expiresAt)
	if err != nil {
		return fmt.Errorf("save refresh session: %w", err)
	}
	return nil
}

func (s *PostgresStore) LookupRefreshSession(ctx context.Context, tokenHash string) (User, error) {
	const query = `
		SELECT u.id, u.display_name, u.email, u.is_email_verified
		FROM refresh_sessions rs
		JOIN users u ON u.id = rs.user_id
		WHERE rs.token_hash = $1
			AND rs.revoked_at IS NULL
			AND rs.expires_at > NOW()
	`
	var user User
	err := s.db.QueryRowContext(ctx, query, tokenHash).Scan(&user.ID, &user.DisplayName, &user.Email, &user.IsEmailVerified)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("lookup refresh session: %w", err)
	}
	return user, nil
}

func (s *PostgresStore) RevokeRefreshSession(ctx context.Context, tokenHash string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE refresh_sessions SET revoked_at=NOW() WHERE token_hash=$1`, tokenHash)
	if err != nil {
		return fmt.Errorf("revoke refresh session: %w", err)
	}
	return nil
}

func (s *PostgresStore) RevokeAccessToken(ctx context.Context, jti string, exp time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO revoked_access_tokens (jti, expires_at)
		VALUES ($1, $2)
		ON CONFLICT (jti) DO NOTHING
	`, jti, exp)
	if err != nil {
		return fmt.Errorf("revoke access token: %w", err)
	}
	return nil
}

func (s *PostgresStore) IsAccessTokenRevoked(ctx context.Context, jti string) (bool, error) {
	var revoked bool
	err := s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM revoked_access_tokens WHERE jti=$1)`, jti).Scan(&revoked)
	if err != nil {
		return false, fmt.Errorf("check revoked token: %w", err)
	}
	return revoked, nil
}

// ---- boards ----

// SaveBoard replaces the whole board document and rewrites the member and
// card projections in the same transaction. There is no version check: two
// concurrent saves of the same board race and the later one wins in full.
func (s *PostgresStore) SaveBoard(ctx context.Context, b *board.Board) error {
	doc, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("marshal board %s: %w", b.UID, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save board: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO boards (uid, owner_id, doc, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (uid) DO UPDATE SET owner_id=EXCLUDED.owner_id, doc=EXCLUDED.doc, updated_at=EXCLUDED.updated_at
	`, b.UID, b.OwnerID, doc, b.UpdatedAt); err != nil {
		return fmt.Errorf("save board %s: %w", b.UID, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM board_members WHERE board_uid=$1`, b.UID); err != nil {
		return fmt.Errorf("clear member projection: %w", err)
	}
	for _, m := range b.Members {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO board_members (board_uid, email, privilege) VALUES ($1, $2, $3)
		`, b.UID, m.Email, string(m.Privilege)); err != nil {
			return fmt.Errorf("write member projection: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM board_cards WHERE board_uid=$1`, b.UID); err != nil {
		return fmt.Errorf("clear card projection: %w", err)
	}
	for _, card := range b.Cards {
		columnTitle := ""
		if col, ok := b.Column(card.ColumnID); ok {
			columnTitle = col.Title
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO board_cards (board_uid, card_id, title, description, column_title)
			VALUES ($1, $2, $3, $4, $5)
		`, b.UID, card.ID, card.Title, card.Description, columnTitle); err != nil {
			return fmt.Errorf("write card projection: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save board %s: %w", b.UID, err)
	}
	return nil
}

func (s *PostgresStore) LoadBoard(ctx context.Context, uid string) (*board.Board, error) {
	var doc []byte
	err := s.db.QueryRowContext(ctx, `SELECT doc FROM boards WHERE uid=$1`, uid).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load board %s: %w", uid, err)
	}
	var b board.Board
	if err := json.Unmarshal(doc, &b); err != nil {
		return nil, fmt.Errorf("unmarshal board %s: %w", uid, err)
	}
	if b.Cards == nil {
		b.Cards = make(map[string]*board.Card)
	}
	return &b, nil
}

func (s *PostgresStore) BoardExists(ctx context.Context, uid string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM boards WHERE uid=$1)`, uid).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check board %s: %w", uid, err)
	}
	return exists, nil
}

func (s *PostgresStore) DeleteBoard(ctx context.Context, uid string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM boards WHERE uid=$1`, uid)
	if err != nil {
		return fmt.Errorf("delete board %s: %w", uid, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete board result: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// MemberPrivilege resolves a user's privilege on a board from the member
// projection. Missing membership (or a missing board) yields PrivilegeNone.
func (s *PostgresStore) MemberPrivilege(ctx context.Context, boardUID, email string) (board.Privilege, error) {
	var privilege string
	err := s.db.QueryRowContext(ctx, `
		SELECT privilege FROM board_members WHERE board_uid=$1 AND email=LOWER($2)
	`, boardUID, email).Scan(&privilege)
	if errors.Is(err, sql.ErrNoRows) {
		return board.PrivilegeNone, nil
	}
	if err != nil {
		return board.PrivilegeNone, fmt.Errorf("lookup privilege: %w", err)
	}
	return board.Privilege(privilege), nil
}

// ListBoardsForUser returns summaries of every board the email is a member of,
// most recently updated first.
func (s *PostgresStore) ListBoardsForUser(ctx context.Context, email string) ([]BoardSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT b.uid, b.doc, bm.privilege
		FROM boards b
		JOIN board_members bm ON bm.board_uid = b.uid
		WHERE bm.email = LOWER($1)
		ORDER BY b.updated_at DESC
	`, email)
	if err != nil {
		return nil, fmt.Errorf("list boards: %w", err)
	}
	defer rows.Close()

	summaries := make([]BoardSummary, 0)
	for rows.Next() {
		var (
			uid       string
			doc       []byte
			privilege string
		)
		if err := rows.Scan(&uid, &doc, &privilege); err != nil {
			return nil, fmt.Errorf("scan board row: %w", err)
		}
		var b board.Board
		if err := json.Unmarshal(doc, &b); err != nil {
			return nil, fmt.Errorf("unmarshal board %s: %w", uid, err)
		}
		summaries = append(summaries, BoardSummary{
			UID:       b.UID,
			Title:     b.Title,
			OwnerID:   b.OwnerID,
			Privilege: board.Privilege(privilege),
			Columns:   len(b.Columns),
			Cards:     len(b.Cards),
			UpdatedAt: b.UpdatedAt,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate boards: %w", err)
	}
	return summaries, nil
}
