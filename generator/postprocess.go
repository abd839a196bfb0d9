package generator

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/tidwall/gjson"
)

// stripFences removes a leading/trailing Markdown code fence when the model
// wrapped its whole answer in one.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		if idx := strings.IndexByte(s, '\n'); idx >= 0 {
			s = s[idx+1:]
		} else {
			s = strings.TrimPrefix(s, "```")
		}
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// parseMetadata extracts the typed metadata record from the model's JSON
// answer. Invalid JSON is a hard failure; missing keys only warn, because
// downstream consumers supply defaults.
func parseMetadata(raw string, logger *slog.Logger) (Metadata, error) {
	raw = stripFences(raw)
	if !gjson.Valid(raw) {
		return Metadata{}, fmt.Errorf("%w: %q", ErrBadMetadata, truncate(raw, 120))
	}
	doc := gjson.Parse(raw)

	var missing []string
	get := func(key string) gjson.Result {
		r := doc.Get(key)
		if !r.Exists() {
			missing = append(missing, key)
		}
		return r
	}

	meta := Metadata{
		Title:            get("title").String(),
		ExcerptPage:      get("excerpt_page").String(),
		ExcerptFeatured:  get("excerpt_featured").String(),
		ReadingTime:      int(get("reading_time").Int()),
		ImageDescription: get("image_description").String(),
	}
	if len(missing) > 0 {
		logger.Warn("metadata response missing expected keys", "keys", missing)
	}
	return meta, nil
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit]
}
