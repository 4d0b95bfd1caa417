package export

import (
	"context"
	"fmt"

	"corkboard/api/internal/board"
)

// Service renders board snapshots for download.
type Service struct{}

func NewService() *Service {
	return &Service{}
}

// Export renders the board in the requested format. The board passed in is
// the snapshot: no further loading happens here.
func (s *Service) Export(ctx context.Context, b *board.Board, format Format) (*Result, error) {
	data := TemplateData{
		Title:       b.Title,
		Description: b.Description,
		UpdatedAt:   b.UpdatedAt,
		Columns:     make([]TemplateColumn, 0, len(b.Columns)),
	}

	labels := make(map[string]board.Label, len(b.Labels))
	for _, label := range b.Labels {
		labels[label.ID] = label
	}

	for _, col := range b.Columns {
		tc := TemplateColumn{Title: col.Title, Cards: make([]TemplateCard, 0, len(col.CardIDs))}
		for _, cardID := range col.CardIDs {
			card, ok := b.Cards[cardID]
			if !ok {
				continue
			}
			tc.Cards = append(tc.Cards, templateCard(card, labels))
		}
		data.Columns = append(data.Columns, tc)
	}

	html, err := RenderBoardHTML(data)
	if err != nil {
		return nil, fmt.Errorf("render template: %w", err)
	}

	switch format {
	case FormatHTML:
		return &Result{
			Data:     []byte(html),
			Filename: sanitizeFilename(b.Title) + ".html",
			MimeType: "text/html; charset=utf-8",
		}, nil
	case FormatPDF:
		return exportPDF(ctx, html, b.Title)
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}

func templateCard(card *board.Card, labels map[string]board.Label) TemplateCard {
	tc := TemplateCard{
		Title:       card.Title,
		Description: card.Description,
		Assignee:    card.Assignee,
		Deadline:    card.Deadline,
	}
	for _, labelID := range card.LabelIDs {
		if label, ok := labels[labelID]; ok {
			tc.Labels = append(tc.Labels, TemplateLabel{Name: label.Name, Color: label.Color})
		}
	}
	if len(card.Checklist) > 0 {
		done := 0
		for _, item := range card.Checklist {
			if item.Done {
				done++
			}
		}
		tc.Checklist = fmt.Sprintf("%d/%d done", done, len(card.Checklist))
	}
	return tc
}
