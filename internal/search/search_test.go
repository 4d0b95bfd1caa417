package search

import (
	"encoding/json"
	"testing"

	meili "github.com/meilisearch/meilisearch-go"
)

func rawHit(t *testing.T, fields map[string]any) meili.Hit {
	t.Helper()
	hit := make(meili.Hit, len(fields))
	for key, value := range fields {
		raw, err := json.Marshal(value)
		if err != nil {
			t.Fatalf("marshal %s: %v", key, err)
		}
		hit[key] = raw
	}
	return hit
}

func TestRecordID(t *testing.T) {
	if got := RecordID("brd-ab12", "crd_7"); got != "brd-ab12:crd_7" {
		t.Fatalf("RecordID = %q", got)
	}
}

func TestHitToResultPrefersHighlights(t *testing.T) {
	hit := rawHit(t, map[string]any{
		"id":          "brd-ab12:crd_7",
		"cardId":      "crd_7",
		"boardUid":    "brd-ab12",
		"boardTitle":  "Launch",
		"columnTitle": "To do",
		"title":       "Ship the release",
		"description": "Cut and publish",
		"assignee":    "owner@example.com",
		"deadline":    "2026-09-15",
		"_formatted": map[string]string{
			"title":       "Ship the <mark>release</mark>",
			"description": "Cut and <mark>publish</mark>",
		},
	})

	result := hitToResult(hit)
	if result.ID != "brd-ab12:crd_7" || result.CardID != "crd_7" || result.BoardUID != "brd-ab12" {
		t.Fatalf("result = %+v", result)
	}
	if result.Title != "Ship the <mark>release</mark>" {
		t.Fatalf("title = %q, want highlighted form", result.Title)
	}
	if result.Snippet != "Cut and <mark>publish</mark>" {
		t.Fatalf("snippet = %q", result.Snippet)
	}
	if result.Deadline != "2026-09-15" || result.Assignee != "owner@example.com" {
		t.Fatalf("result = %+v", result)
	}
}

func TestHitToResultFallsBackToPlainFields(t *testing.T) {
	hit := rawHit(t, map[string]any{
		"id":    "brd-ab12:crd_8",
		"title": "Plain title",
	})

	result := hitToResult(hit)
	if result.Title != "Plain title" {
		t.Fatalf("title = %q", result.Title)
	}
	if result.Snippet != "" || result.BoardTitle != "" {
		t.Fatalf("result = %+v", result)
	}
}

func TestDecodeStringIgnoresNonStrings(t *testing.T) {
	hit := rawHit(t, map[string]any{"count": 7})
	if got := decodeString(hit, "count"); got != "" {
		t.Fatalf("decodeString = %q, want empty for non-string", got)
	}
	if got := decodeString(hit, "missing"); got != "" {
		t.Fatalf("decodeString = %q for missing key", got)
	}
}

func TestFirstNonBlank(t *testing.T) {
	if got := firstNonBlank("", "  ", "value", "later"); got != "value" {
		t.Fatalf("firstNonBlank = %q", got)
	}
	if got := firstNonBlank("", "  "); got != "" {
		t.Fatalf("firstNonBlank = %q, want empty", got)
	}
}
