package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/teamhub/kb-api/internal/authz"
	"github.com/teamhub/kb-api/internal/models"
	appErrors "github.com/teamhub/kb-api/pkg/errors"
	"github.com/teamhub/kb-api/pkg/export"
)

type pageReader interface {
	Get(ctx context.Context, principal authz.Principal, id string) (*models.Page, error)
}

type activityFeeder interface {
	Feed(ctx context.Context, query FeedQuery) ([]models.Activity, error)
}

type pdfRenderer interface {
	Render(article export.Article) ([]byte, error)
}

type csvRenderer interface {
	Render(headers []string, records [][]string) ([]byte, error)
}

// ExportService renders pages as printable PDFs and activity feeds as CSV.
type ExportService struct {
	pages      pageReader
	activities activityFeeder
	pdf        pdfRenderer
	csv        csvRenderer
	logger     *zap.Logger
}

// NewExportService constructs an ExportService.
func NewExportService(pages pageReader, activities activityFeeder, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		pages:      pages,
		activities: activities,
		pdf:        export.NewPDFExporter(),
		csv:        export.NewCSVExporter(),
		logger:     logger,
	}
}

// PagePDF renders a page the principal may view as a PDF. Returns the
// payload together with a download filename derived from the slug.
func (s *ExportService) PagePDF(ctx context.Context, principal authz.Principal, pageID string) ([]byte, string, error) {
	page, err := s.pages.Get(ctx, principal, pageID)
	if err != nil {
		return nil, "", err
	}

	article := export.Article{
		Title:   page.Title,
		Content: page.Content,
	}
	if page.Space != nil {
		article.Subtitle = fmt.Sprintf("%s (%s)", page.Space.Name, page.Space.Key)
	}
	if page.Author != nil {
		article.Meta = append(article.Meta, "Author: "+page.Author.Name)
	}
	if len(page.Tags) > 0 {
		article.Meta = append(article.Meta, "Tags: "+strings.Join(page.Tags, ", "))
	}
	article.Meta = append(article.Meta, "Updated: "+page.UpdatedAt.Format("2006-01-02 15:04"))

	payload, err := s.pdf.Render(article)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render page pdf")
	}

	filename := page.Slug
	if filename == "" {
		filename = page.ID
	}
	return payload, filename + ".pdf", nil
}

// ActivitiesCSV renders the principal's activity feed as CSV.
func (s *ExportService) ActivitiesCSV(ctx context.Context, query FeedQuery) ([]byte, string, error) {
	activities, err := s.activities.Feed(ctx, query)
	if err != nil {
		return nil, "", err
	}

	headers := []string{"timestamp", "user", "action", "target", "title", "space"}
	records := make([][]string, 0, len(activities))
	for _, a := range activities {
		userName := a.UserID
		if a.User != nil {
			userName = a.User.Name
		}
		spaceName := ""
		if a.Space != nil {
			spaceName = a.Space.Name
		}
		records = append(records, []string{
			a.CreatedAt.Format(time.RFC3339),
			userName,
			string(a.Action),
			string(a.Target),
			a.TargetTitle,
			spaceName,
		})
	}

	payload, err := s.csv.Render(headers, records)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render activities csv")
	}

	filename := fmt.Sprintf("activities-%s.csv", time.Now().UTC().Format("20060102"))
	return payload, filename, nil
}
