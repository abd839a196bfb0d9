package publisher

import (
	"bytes"
	"log/slog"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"

	"blogflow/generator"
)

// fallbackSlug is used when a title reduces to nothing slug-safe.
const fallbackSlug = "untitled-post"

// Payload is the provider-agnostic record both back ends translate to their
// own wire format.
type Payload struct {
	Slug            string
	Title           string
	BodyHTML        string
	ExcerptPage     string
	ExcerptFeatured string
	ReadingTime     int
	Draft           bool
	Featured        bool

	// Image reference; set only through SetImage so the two fields are
	// always both present or both absent.
	ImageAssetID string
	ImageURL     string
}

// SetImage records the hosted image reference. It refuses half-populated
// pairs and reports whether the image was set.
func (p *Payload) SetImage(assetID, hostedURL string) bool {
	if assetID == "" || hostedURL == "" {
		return false
	}
	p.ImageAssetID = assetID
	p.ImageURL = hostedURL
	return true
}

// HasImage reports whether a complete image reference is present.
func (p *Payload) HasImage() bool {
	return p.ImageAssetID != "" && p.ImageURL != ""
}

var (
	slugInvalid  = regexp.MustCompile(`[^a-z0-9-]`)
	slugCollapse = regexp.MustCompile(`-{2,}`)
)

// Slugify derives the URL-safe identifier from a post title: lowercase,
// spaces to hyphens, everything else stripped, runs of hyphens collapsed.
// An all-punctuation title falls back to a fixed default. Idempotent.
func Slugify(title string) string {
	s := strings.ToLower(strings.TrimSpace(title))
	s = strings.ReplaceAll(s, " ", "-")
	s = slugInvalid.ReplaceAllString(s, "")
	s = slugCollapse.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if s == "" {
		return fallbackSlug
	}
	return s
}

// Assemble builds the normalized payload for one cycle. The Markdown body is
// converted to HTML with newlines stripped per back-end convention; a
// conversion failure falls back to the raw Markdown with a warning.
func Assemble(markdownBody string, meta generator.Metadata, slug string, draft, featured bool, logger *slog.Logger) *Payload {
	meta = meta.WithDefaults()

	html, err := mdToHTML(markdownBody)
	if err != nil {
		logger.Warn("markdown conversion failed, sending raw markdown", "error", err)
		html = markdownBody
	} else {
		html = strings.ReplaceAll(html, "\n", "")
	}

	return &Payload{
		Slug:            slug,
		Title:           meta.Title,
		BodyHTML:        html,
		ExcerptPage:     meta.ExcerptPage,
		ExcerptFeatured: meta.ExcerptFeatured,
		ReadingTime:     meta.ReadingTime,
		Draft:           draft,
		Featured:        featured,
	}
}

func mdToHTML(md string) (string, error) {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(md), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}
