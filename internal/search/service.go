// Package search indexes card text for cross-board lookup. Meilisearch is
// the primary engine; Postgres full-text search over the board_cards
// projection covers for it when it is down.
package search

import (
	"context"

	"github.com/sirupsen/logrus"
)

// Service is the facade that tries Meilisearch first and falls back to PG FTS.
type Service struct {
	meili *Meili
	pgfts *PgFTS
	log   *logrus.Logger
}

// NewService creates a search service. meili may be nil when Meilisearch is
// not configured.
func NewService(meili *Meili, pgfts *PgFTS, log *logrus.Logger) *Service {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Service{meili: meili, pgfts: pgfts, log: log}
}

// Healthy reports whether the primary engine is up. The fallback keeps
// search working either way.
func (s *Service) Healthy() bool {
	return s.meili != nil && s.meili.Healthy()
}

// Search tries Meilisearch if healthy, otherwise falls back to PG FTS.
func (s *Service) Search(q Query) ([]Result, int, error) {
	if s.meili != nil && s.meili.Healthy() {
		results, total, err := s.meili.Search(q)
		if err == nil {
			return nonNil(results), total, nil
		}
		s.log.WithError(err).Warn("meilisearch error, falling back to pgfts")
	}

	results, total, err := s.pgfts.Search(q)
	if err != nil {
		return nil, 0, err
	}
	return nonNil(results), total, nil
}

// IndexCard pushes one card into Meilisearch. Postgres needs no push: the
// board_cards projection is rewritten by every board save.
func (s *Service) IndexCard(rec CardRecord) error {
	if s.meili == nil || !s.meili.Healthy() {
		return nil
	}
	return s.meili.IndexCard(rec)
}

// DeleteCard removes one card from Meilisearch.
func (s *Service) DeleteCard(boardUID, cardID string) error {
	if s.meili == nil || !s.meili.Healthy() {
		return nil
	}
	return s.meili.DeleteCard(boardUID, cardID)
}

// DeleteBoard removes every indexed card of a board.
func (s *Service) DeleteBoard(boardUID string, cardIDs []string) error {
	if s.meili == nil || !s.meili.Healthy() {
		return nil
	}
	var firstErr error
	for _, cardID := range cardIDs {
		if err := s.meili.DeleteCard(boardUID, cardID); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// ReindexAllFromPG reads every card from Postgres and pushes them to
// Meilisearch. Called at boot when the primary engine is healthy.
func (s *Service) ReindexAllFromPG(ctx context.Context) {
	if s.meili == nil || !s.meili.Healthy() || s.pgfts == nil {
		return
	}
	records, err := s.pgfts.LoadAllRecords(ctx)
	if err != nil {
		s.log.WithError(err).Warn("search reindex load failed")
		return
	}
	if len(records) == 0 {
		return
	}
	if err := s.meili.IndexCards(records); err != nil {
		s.log.WithError(err).Warn("search reindex failed")
	}
}

func nonNil(r []Result) []Result {
	if r == nil {
		return []Result{}
	}
	return r
}
