package generator

import "context"

// ChatClient abstracts the generative text service so tests can substitute it.
type ChatClient interface {
	Complete(ctx context.Context, req ChatRequest) (string, error)
}

// ChatRequest is one generation call.
type ChatRequest struct {
	System      string
	User        string
	FileIDs     []string
	Temperature float64
	// JSONOnly asks the service to constrain output to a valid JSON object.
	JSONOnly bool
}

// FileClient uploads local documents for use as attached generation context.
type FileClient interface {
	Upload(ctx context.Context, path string) (Reference, error)
}

// Temperatures tunes each generation call; quality knobs, not contract.
type Temperatures struct {
	Body     float64
	Metadata float64
	Social   float64
}
