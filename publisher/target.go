// Package publisher normalizes generated content into a provider-agnostic
// payload and dispatches it to one of two interchangeable back ends: a
// structured CMS (Webflow) or a spreadsheet-backed store.
package publisher

import (
	"context"

	"blogflow/imagegen"
)

// Target is the capability a publish back end exposes. Implementations accept
// the normalized payload plus optional image bytes and return the publication
// identifier. Each Publish call is a single best-effort operation; targets
// never retry internally.
type Target interface {
	Name() string
	Publish(ctx context.Context, p *Payload, image *imagegen.Asset) (string, error)
	// SupportsImages reports whether the target can host an uploaded image.
	SupportsImages() bool
	// PostURL returns the public URL a post with the given slug is published
	// under; the duplication ledger records this value.
	PostURL(slug string) string
}
