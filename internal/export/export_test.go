package export

import (
	"context"
	"strings"
	"testing"
	"time"

	"corkboard/api/internal/board"
)

func exportBoard(t *testing.T) *board.Board {
	t.Helper()
	now := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	b := board.New("brd-exp1", "Launch <plan>", "Everything for Q3", "usr_1", "owner@example.com", "col_todo", now)
	b.Columns[0].Title = "To do"
	b.AddColumn(board.Column{ID: "col_done", Title: "Done"})
	b.Labels = []board.Label{{ID: "lbl_1", Name: "Urgent", Color: "red"}}

	card := &board.Card{
		ID:          "crd_1",
		Title:       "Write announcement",
		Description: "Draft & review",
		ColumnID:    "col_todo",
		Assignee:    "owner@example.com",
		Deadline:    "2026-09-01",
		LabelIDs:    []string{"lbl_1"},
		Checklist: []board.ChecklistItem{
			{ID: "chk_1", Text: "Draft", Done: true},
			{ID: "chk_2", Text: "Review", Done: false},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := b.AddCard(card); err != nil {
		t.Fatalf("AddCard: %v", err)
	}
	return b
}

func TestExportHTML(t *testing.T) {
	svc := NewService()
	result, err := svc.Export(context.Background(), exportBoard(t), FormatHTML)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}

	if result.MimeType != "text/html; charset=utf-8" {
		t.Fatalf("mime = %q", result.MimeType)
	}
	if !strings.HasSuffix(result.Filename, ".html") {
		t.Fatalf("filename = %q", result.Filename)
	}

	html := string(result.Data)
	// html/template escapes the raw title.
	if !strings.Contains(html, "Launch &lt;plan&gt;") {
		t.Fatal("title not escaped into the document")
	}
	for _, want := range []string{
		"Write announcement",
		"Assignee: owner@example.com",
		"Due: 2026-09-01",
		"Checklist: 1/2 done",
		"label-red",
		"Urgent",
	} {
		if !strings.Contains(html, want) {
			t.Fatalf("export missing %q", want)
		}
	}

	// Empty columns render a placeholder, and column order is preserved.
	if !strings.Contains(html, "No cards") {
		t.Fatal("empty column placeholder missing")
	}
	if strings.Index(html, "To do") > strings.Index(html, "Done") {
		t.Fatal("columns out of order")
	}
}

func TestExportUnknownFormat(t *testing.T) {
	svc := NewService()
	if _, err := svc.Export(context.Background(), exportBoard(t), Format("docx")); err == nil {
		t.Fatal("unknown format accepted")
	}
}

func TestSanitizeFilename(t *testing.T) {
	cases := map[string]string{
		"Launch plan": "Launch-plan",
		"report_2026": "report_2026",
		"":            "board",
		"///":         "board",
	}
	for in, want := range cases {
		if got := sanitizeFilename(in); got != want {
			t.Errorf("sanitizeFilename(%q) = %q, want %q", in, got, want)
		}
	}
}
