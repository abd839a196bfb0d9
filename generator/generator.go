// Package generator produces post bodies, structured metadata, and social
// drafts from a remote generative-text service, steering novelty with prior
// post summaries and uploaded reference documents.
package generator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"blogflow/retry"
)

// metadataSnippetLimit bounds how much of the body is sent with the metadata
// request to keep the call well under request-size limits.
const metadataSnippetLimit = 4000

// Generator drives all content-generation calls for a run.
type Generator struct {
	chat       ChatClient
	files      FileClient
	basePrompt string
	temps      Temperatures
	policy     retry.Policy
	logger     *slog.Logger
}

// New wires a Generator. files may be nil when no reference documents are
// configured.
func New(chat ChatClient, files FileClient, basePrompt string, temps Temperatures, policy retry.Policy, logger *slog.Logger) (*Generator, error) {
	if chat == nil {
		return nil, errors.New("chat client is required")
	}
	if basePrompt == "" {
		basePrompt = DefaultBasePrompt
	}
	return &Generator{
		chat:       chat,
		files:      files,
		basePrompt: basePrompt,
		temps:      temps,
		policy:     policy,
		logger:     logger,
	}, nil
}

// UploadReferences uploads each existing local document and returns the
// collected handles. A missing or failed file is logged and skipped; the
// boolean is true only when every file succeeded. Callers proceed with
// whatever context uploaded, rather than aborting the run.
func (g *Generator) UploadReferences(ctx context.Context, paths []string) ([]Reference, bool) {
	if g.files == nil && len(paths) > 0 {
		g.logger.Warn("no file client configured, skipping reference uploads", "count", len(paths))
		return nil, false
	}

	refs := make([]Reference, 0, len(paths))
	allOK := true
	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			g.logger.Error("reference document not found locally", "path", path, "error", err)
			allOK = false
			continue
		}
		ref, err := g.files.Upload(ctx, path)
		if err != nil {
			g.logger.Error("reference upload failed", "path", path, "error", err)
			allOK = false
			continue
		}
		g.logger.Info("uploaded reference document", "path", path, "id", ref.ID)
		refs = append(refs, ref)
	}
	return refs, allOK
}

// GenerateBody produces the Markdown post body for one cycle, combining the
// base prompt, prior post summaries, and the run's reference handles.
func (g *Generator) GenerateBody(ctx context.Context, run *RunContext) (string, error) {
	prompt := bodyPrompt(g.basePrompt, run.Prior, len(run.References) > 0)
	ids := make([]string, 0, len(run.References))
	for _, ref := range run.References {
		ids = append(ids, ref.ID)
	}

	g.logger.Info("generating post body", "references", len(ids), "prior_posts", len(run.Prior))
	raw, err := retry.Do(ctx, g.logger, "generate body", g.policy, func() (string, error) {
		out, err := g.chat.Complete(ctx, ChatRequest{
			System:      systemPrompt,
			User:        prompt,
			FileIDs:     ids,
			Temperature: g.temps.Body,
		})
		return out, classify(err)
	})
	if err != nil {
		return "", fmt.Errorf("generate body: %w", err)
	}

	body := stripFences(raw)
	if body == "" {
		return "", fmt.Errorf("generate body: %w", ErrNoContent)
	}
	return body, nil
}

// GenerateMetadata derives the structured metadata record from a bounded
// prefix of the body. A JSON parse failure is terminal, not retried.
func (g *Generator) GenerateMetadata(ctx context.Context, body string) (Metadata, error) {
	if body == "" {
		return Metadata{}, errors.New("generate metadata: empty body")
	}

	prompt := metadataPrompt(truncate(body, metadataSnippetLimit))
	g.logger.Info("generating metadata")
	raw, err := retry.Do(ctx, g.logger, "generate metadata", g.policy, func() (string, error) {
		out, err := g.chat.Complete(ctx, ChatRequest{
			User:        prompt,
			Temperature: g.temps.Metadata,
			JSONOnly:    true,
		})
		return out, classify(err)
	})
	if err != nil {
		return Metadata{}, fmt.Errorf("generate metadata: %w", err)
	}

	meta, err := parseMetadata(raw, g.logger)
	if err != nil {
		return Metadata{}, fmt.Errorf("generate metadata: %w", err)
	}
	return meta, nil
}

// GenerateSocialDraft rewrites the post as a short promotional text pointing
// at the published URL. Both inputs are required; validation happens before
// any remote call.
func (g *Generator) GenerateSocialDraft(ctx context.Context, snippet, publishedURL string, interlinks []string) (string, error) {
	if snippet == "" {
		return "", errors.New("generate social draft: empty content snippet")
	}
	if publishedURL == "" {
		return "", errors.New("generate social draft: empty published URL")
	}

	prompt := socialPrompt(snippet, publishedURL, interlinks)
	g.logger.Info("generating social draft", "url", publishedURL)
	raw, err := retry.Do(ctx, g.logger, "generate social draft", g.policy, func() (string, error) {
		out, err := g.chat.Complete(ctx, ChatRequest{
			User:        prompt,
			Temperature: g.temps.Social,
		})
		return out, classify(err)
	})
	if err != nil {
		return "", fmt.Errorf("generate social draft: %w", err)
	}
	return stripFences(raw), nil
}

// classify marks rate-limit and conflict responses as transient so the retry
// executor backs off; every other error aborts immediately.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if transientAPIError(err) {
		return retry.Transient(err)
	}
	return err
}
