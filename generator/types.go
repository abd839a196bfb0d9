package generator

import (
	"errors"
	"strings"

	"blogflow/ledger"
)

// Metadata is the structured record extracted from a generated post body.
// Fields may be empty when the model omitted them; consumers apply defaults
// via WithDefaults rather than propagating missing values downstream.
type Metadata struct {
	Title            string
	ExcerptPage      string
	ExcerptFeatured  string
	ReadingTime      int
	ImageDescription string
}

// WithDefaults fills safe placeholders for required fields.
func (m Metadata) WithDefaults() Metadata {
	if strings.TrimSpace(m.Title) == "" {
		m.Title = "Untitled Post"
	}
	if m.ReadingTime <= 0 {
		m.ReadingTime = 1
	}
	return m
}

// Reference is a handle to a document uploaded to the generation service.
type Reference struct {
	ID       string
	Filename string
	MIMEType string
}

// RunContext carries one run's shared generation state: the reference
// handles uploaded at startup and the rolling list of prior post summaries.
// The orchestrator owns it and appends to Prior after each publish.
type RunContext struct {
	References []Reference
	Prior      []ledger.Entry
}

// ErrNoContent reports that the service returned no candidates or no content
// parts, which usually signals a content-safety rejection. Never retried.
var ErrNoContent = errors.New("model returned no content")

// ErrBadMetadata reports that the metadata response was not valid JSON.
var ErrBadMetadata = errors.New("metadata response is not valid JSON")
