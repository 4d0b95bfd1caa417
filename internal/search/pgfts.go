package search

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// PgFTS implements Searcher against the board_cards projection table as a
// fallback when Meilisearch is down.
type PgFTS struct {
	db *sql.DB
}

// NewPgFTS creates a PostgreSQL FTS searcher.
func NewPgFTS(db *sql.DB) *PgFTS {
	return &PgFTS{db: db}
}

// Healthy always returns true. If Postgres is down, the whole app is down.
func (p *PgFTS) Healthy() bool {
	return true
}

// Search runs plainto_tsquery over the card projection, restricted to the
// caller's boards, ranked by ts_rank with ts_headline snippets.
func (p *PgFTS) Search(q Query) ([]Result, int, error) {
	if strings.TrimSpace(q.Text) == "" || len(q.BoardUIDs) == 0 {
		return nil, 0, nil
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}

	ctx := context.Background()
	// The pgx stdlib driver binds []string as text[].
	args := []any{q.Text, q.BoardUIDs}

	var total int
	if err := p.db.QueryRowContext(ctx, `
		SELECT count(*)
		FROM board_cards c
		WHERE c.fts @@ plainto_tsquery('english', $1)
		  AND c.board_uid = ANY($2)`, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("pgfts count: %w", err)
	}

	rows, err := p.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT c.board_uid, c.card_id, c.title, c.column_title,
			coalesce(b.doc->>'title', '') AS board_title,
			ts_headline('english', coalesce(c.description, ''), plainto_tsquery('english', $1), 'MaxFragments=1,MaxWords=30') AS snippet,
			ts_rank(c.fts, plainto_tsquery('english', $1)) AS rank
		FROM board_cards c
		JOIN boards b ON b.uid = c.board_uid
		WHERE c.fts @@ plainto_tsquery('english', $1)
		  AND c.board_uid = ANY($2)
		ORDER BY rank DESC
		LIMIT %d OFFSET %d`, limit, offset), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("pgfts query: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var r Result
		if err := rows.Scan(&r.BoardUID, &r.CardID, &r.Title, &r.ColumnTitle, &r.BoardTitle, &r.Snippet, new(float64)); err != nil {
			return nil, 0, fmt.Errorf("pgfts scan: %w", err)
		}
		r.ID = RecordID(r.BoardUID, r.CardID)
		results = append(results, r)
	}

	return results, total, rows.Err()
}

// LoadAllRecords returns every indexed card for full reindexing.
func (p *PgFTS) LoadAllRecords(ctx context.Context) ([]CardRecord, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT c.board_uid, c.card_id, c.title, c.description, c.column_title,
			coalesce(b.doc->>'title', '') AS board_title
		FROM board_cards c
		JOIN boards b ON b.uid = c.board_uid
	`)
	if err != nil {
		return nil, fmt.Errorf("load cards: %w", err)
	}
	defer rows.Close()

	records := make([]CardRecord, 0)
	for rows.Next() {
		var rec CardRecord
		if err := rows.Scan(&rec.BoardUID, &rec.CardID, &rec.Title, &rec.Description, &rec.ColumnTitle, &rec.BoardTitle); err != nil {
			return nil, fmt.Errorf("scan card: %w", err)
		}
		rec.ID = RecordID(rec.BoardUID, rec.CardID)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cards: %w", err)
	}

	return records, nil
}
