package search

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	meili "github.com/meilisearch/meilisearch-go"
	"github.com/sirupsen/logrus"
)

const idxCards = "corkboard_cards"

// Meili implements Searcher and Indexer via Meilisearch.
type Meili struct {
	client  meili.ServiceManager
	healthy atomic.Bool
	done    chan struct{}
	log     *logrus.Logger
}

// NewMeili creates a Meilisearch client and configures the card index. An
// unreachable instance is tolerated: the health loop reconfigures it when it
// comes back.
func NewMeili(url, apiKey string, log *logrus.Logger) *Meili {
	if log == nil {
		log = logrus.StandardLogger()
	}
	client := meili.New(url, meili.WithAPIKey(apiKey))

	m := &Meili{
		client: client,
		done:   make(chan struct{}),
		log:    log,
	}

	if _, err := client.Health(); err != nil {
		log.WithError(err).Warnf("meilisearch unavailable at %s", url)
		m.healthy.Store(false)
	} else {
		m.healthy.Store(true)
		m.configureIndex()
	}

	go m.healthLoop()
	return m
}

func (m *Meili) configureIndex() {
	if _, err := m.client.CreateIndex(&meili.IndexConfig{
		Uid:        idxCards,
		PrimaryKey: "id",
	}); err != nil {
		m.log.WithError(err).Debugf("create index %s (may already exist)", idxCards)
	}

	index := m.client.Index(idxCards)
	filterable := []interface{}{"boardUid", "assignee"}
	if _, err := index.UpdateFilterableAttributes(&filterable); err != nil {
		m.log.WithError(err).Warnf("update filterable attrs for %s", idxCards)
	}
	searchable := []string{"title", "description", "boardTitle", "columnTitle"}
	if _, err := index.UpdateSearchableAttributes(&searchable); err != nil {
		m.log.WithError(err).Warnf("update searchable attrs for %s", idxCards)
	}
}

func (m *Meili) healthLoop() {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			_, err := m.client.Health()
			wasHealthy := m.healthy.Load()
			m.healthy.Store(err == nil)
			if err == nil && !wasHealthy {
				m.log.Info("meilisearch recovered, reconfiguring index")
				m.configureIndex()
			}
		}
	}
}

// Close stops the background health monitor.
func (m *Meili) Close() {
	close(m.done)
}

// Healthy reports whether Meilisearch is reachable.
func (m *Meili) Healthy() bool {
	return m.healthy.Load()
}

// Search queries the card index restricted to the caller's boards.
func (m *Meili) Search(q Query) ([]Result, int, error) {
	if !m.healthy.Load() {
		return nil, 0, fmt.Errorf("meilisearch unhealthy")
	}
	if len(q.BoardUIDs) == 0 {
		return nil, 0, nil
	}

	limit := int64(q.Limit)
	if limit <= 0 {
		limit = 20
	}

	quoted := make([]string, 0, len(q.BoardUIDs))
	for _, uid := range q.BoardUIDs {
		quoted = append(quoted, fmt.Sprintf("%q", uid))
	}
	filter := fmt.Sprintf("boardUid IN [%s]", strings.Join(quoted, ", "))

	resp, err := m.client.Index(idxCards).Search(q.Text, &meili.SearchRequest{
		Limit:                 limit,
		Offset:                int64(q.Offset),
		Filter:                filter,
		AttributesToHighlight: []string{"*"},
		HighlightPreTag:       "<mark>",
		HighlightPostTag:      "</mark>",
	})
	if err != nil {
		m.healthy.Store(false)
		return nil, 0, fmt.Errorf("meilisearch search: %w", err)
	}

	results := make([]Result, 0, len(resp.Hits))
	for _, hit := range resp.Hits {
		results = append(results, hitToResult(hit))
	}
	return results, int(resp.EstimatedTotalHits), nil
}

func hitToResult(hit meili.Hit) Result {
	return Result{
		ID:          decodeString(hit, "id"),
		CardID:      decodeString(hit, "cardId"),
		BoardUID:    decodeString(hit, "boardUid"),
		BoardTitle:  decodeString(hit, "boardTitle"),
		ColumnTitle: decodeString(hit, "columnTitle"),
		Title:       firstNonBlank(decodeFormattedString(hit, "title"), decodeString(hit, "title")),
		Snippet:     firstNonBlank(decodeFormattedString(hit, "description"), decodeString(hit, "description")),
		Assignee:    decodeString(hit, "assignee"),
		Deadline:    decodeString(hit, "deadline"),
	}
}

func decodeString(hit meili.Hit, key string) string {
	raw, ok := hit[key]
	if !ok {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return ""
}

func decodeFormattedString(hit meili.Hit, key string) string {
	raw, ok := hit["_formatted"]
	if !ok {
		return ""
	}
	var formatted map[string]string
	if err := json.Unmarshal(raw, &formatted); err != nil {
		return ""
	}
	return strings.TrimSpace(formatted[key])
}

func firstNonBlank(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}

// IndexCard adds or updates one card in the search index.
func (m *Meili) IndexCard(rec CardRecord) error {
	_, err := m.client.Index(idxCards).AddDocuments([]CardRecord{rec}, nil)
	return err
}

// IndexCards bulk-indexes cards.
func (m *Meili) IndexCards(recs []CardRecord) error {
	if len(recs) == 0 {
		return nil
	}
	_, err := m.client.Index(idxCards).AddDocuments(recs, nil)
	return err
}

// DeleteCard removes one card from the search index.
func (m *Meili) DeleteCard(boardUID, cardID string) error {
	_, err := m.client.Index(idxCards).DeleteDocument(RecordID(boardUID, cardID), nil)
	return err
}
