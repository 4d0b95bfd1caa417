package search

// Result is a single card hit returned to the caller.
type Result struct {
	ID          string `json:"id"`
	CardID      string `json:"cardId"`
	BoardUID    string `json:"boardUid"`
	BoardTitle  string `json:"boardTitle"`
	ColumnTitle string `json:"columnTitle"`
	Title       string `json:"title"`
	Snippet     string `json:"snippet"`
	Assignee    string `json:"assignee,omitempty"`
	Deadline    string `json:"deadline,omitempty"`
}

// Query describes a search request. BoardUIDs is the caller's membership set
// and is the only visibility boundary: an empty set matches nothing.
type Query struct {
	Text      string
	BoardUIDs []string
	Limit     int
	Offset    int
}

// Searcher can execute a full-text search.
type Searcher interface {
	Search(q Query) ([]Result, int, error)
	Healthy() bool
}

// Indexer can push card records into a search index.
type Indexer interface {
	IndexCard(rec CardRecord) error
	IndexCards(recs []CardRecord) error
	DeleteCard(boardUID, cardID string) error
}

// CardRecord is the data we index per card. ID is boardUID:cardID so card ids
// stay unique across boards.
type CardRecord struct {
	ID          string `json:"id"`
	CardID      string `json:"cardId"`
	BoardUID    string `json:"boardUid"`
	BoardTitle  string `json:"boardTitle"`
	ColumnTitle string `json:"columnTitle"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Assignee    string `json:"assignee"`
	Deadline    string `json:"deadline"`
}

// RecordID builds the composite index id for a card.
func RecordID(boardUID, cardID string) string {
	return boardUID + ":" + cardID
}
