package publisher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"blogflow/imagegen"
)

// SheetHeaders is the fixed column order of the "posts" worksheet. Rows are
// written positionally against it.
var SheetHeaders = []string{
	"name", "slug", "excerpt_page", "excerpt_featured",
	"reading_time", "body_html", "image_url", "draft", "created_at",
}

// RowStore abstracts the spreadsheet values API so tests can fake it.
type RowStore interface {
	// SlugRows maps each existing slug to its 1-based sheet row index.
	SlugRows(ctx context.Context) (map[string]int, error)
	UpdateRow(ctx context.Context, row int, values []interface{}) error
	AppendRow(ctx context.Context, values []interface{}) error
}

// ImageUploader hosts image bytes somewhere public and returns the URL.
type ImageUploader interface {
	Upload(ctx context.Context, data []byte) (string, error)
}

// Sheets publishes posts as rows of a spreadsheet, upserting by slug.
// Image handling depends on the configured sub-variant: with no uploader the
// image_url column stays empty; with one, bytes are uploaded and the hosted
// URL recorded.
type Sheets struct {
	store            RowStore
	uploader         ImageUploader
	publishedURLBase string
	logger           *slog.Logger
	now              func() time.Time
}

// NewSheets wires the spreadsheet target. uploader may be nil.
func NewSheets(store RowStore, uploader ImageUploader, publishedURLBase string, logger *slog.Logger) (*Sheets, error) {
	if store == nil {
		return nil, errors.New("row store is required")
	}
	return &Sheets{
		store:            store,
		uploader:         uploader,
		publishedURLBase: publishedURLBase,
		logger:           logger,
		now:              time.Now,
	}, nil
}

func (s *Sheets) Name() string { return "sheets" }

func (s *Sheets) SupportsImages() bool { return s.uploader != nil }

func (s *Sheets) PostURL(slug string) string { return s.publishedURLBase + slug }

// Publish maps the payload onto the fixed column list and upserts the row:
// an existing slug's row is overwritten in place, otherwise a new row is
// appended. Returns the slug as the publication identifier.
func (s *Sheets) Publish(ctx context.Context, p *Payload, image *imagegen.Asset) (string, error) {
	imageURL := ""
	if s.uploader != nil && image != nil {
		hosted, err := s.uploader.Upload(ctx, image.Bytes)
		if err != nil {
			s.logger.Warn("image upload failed, leaving image_url empty", "error", err)
		} else {
			imageURL = hosted
		}
	}

	values := []interface{}{
		p.Title,
		p.Slug,
		p.ExcerptPage,
		p.ExcerptFeatured,
		p.ReadingTime,
		p.BodyHTML,
		imageURL,
		strings.ToUpper(strconv.FormatBool(p.Draft)),
		s.now().UTC().Format(time.RFC3339),
	}

	rows, err := s.store.SlugRows(ctx)
	if err != nil {
		return "", fmt.Errorf("read sheet rows: %w", err)
	}

	if row, ok := rows[p.Slug]; ok {
		if err := s.store.UpdateRow(ctx, row, values); err != nil {
			return "", fmt.Errorf("update row %d: %w", row, err)
		}
		s.logger.Info("updated existing sheet row", "slug", p.Slug, "row", row)
	} else {
		if err := s.store.AppendRow(ctx, values); err != nil {
			return "", fmt.Errorf("append row: %w", err)
		}
		s.logger.Info("appended new sheet row", "slug", p.Slug)
	}
	return p.Slug, nil
}
