package workflow

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/fatih/color"

	"blogflow/generator"
	"blogflow/imagegen"
	"blogflow/ledger"
	"blogflow/publisher"
)

// socialSnippetLimit bounds how much of the body is handed to the social
// draft prompt.
const socialSnippetLimit = 2000

// ContentGenerator is the text-generation surface the orchestrator drives.
type ContentGenerator interface {
	UploadReferences(ctx context.Context, paths []string) ([]generator.Reference, bool)
	GenerateBody(ctx context.Context, run *generator.RunContext) (string, error)
	GenerateMetadata(ctx context.Context, body string) (generator.Metadata, error)
	GenerateSocialDraft(ctx context.Context, snippet, publishedURL string, interlinks []string) (string, error)
}

// ImageGenerator produces the post's main image.
type ImageGenerator interface {
	Generate(ctx context.Context, description, slug string) (*imagegen.Asset, error)
}

// Deps are the collaborators a run needs.
type Deps struct {
	Generator ContentGenerator
	Images    ImageGenerator
	Target    publisher.Target
	Logger    *slog.Logger
}

// Options are the per-run knobs.
type Options struct {
	Cycles      int
	SocialDraft bool
	Auto        bool
	Cooldown    time.Duration
	Draft       bool
	Featured    bool
	ChatbotURL  string
	LedgerPath  string
}

// Workflow runs generate-and-publish cycles against one target. A failed
// cycle is logged and the run moves on; only setup errors abort the run.
type Workflow struct {
	deps Deps
	opts Options

	in   *bufio.Reader
	out  io.Writer
	clip func(string) error
}

func New(deps Deps, opts Options) (*Workflow, error) {
	if deps.Generator == nil || deps.Target == nil {
		return nil, errors.New("generator and target are required")
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if opts.Cycles <= 0 {
		opts.Cycles = 1
	}
	return &Workflow{
		deps: deps,
		opts: opts,
		in:   bufio.NewReader(os.Stdin),
		out:  os.Stdout,
		clip: clipboard.WriteAll,
	}, nil
}

// Run executes the configured number of cycles and reports how many
// published. Reference documents are uploaded once and shared by every cycle.
func (w *Workflow) Run(ctx context.Context, refPaths []string) error {
	refs, ok := w.deps.Generator.UploadReferences(ctx, refPaths)
	if !ok {
		w.deps.Logger.Warn("some reference documents were not uploaded", "requested", len(refPaths), "uploaded", len(refs))
	}

	prior, err := ledger.Load(w.opts.LedgerPath, w.deps.Logger)
	if err != nil {
		return fmt.Errorf("load summary ledger: %w", err)
	}
	run := &generator.RunContext{References: refs, Prior: prior}

	published := 0
	for i := 1; i <= w.opts.Cycles; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		color.New(color.FgCyan, color.Bold).Fprintf(w.out, "\n=== Cycle %d/%d ===\n", i, w.opts.Cycles)

		ok, err := w.runCycle(ctx, run)
		if err != nil {
			w.deps.Logger.Error("cycle failed", "cycle", i, "error", err)
		} else if ok {
			published++
		}

		if i < w.opts.Cycles && w.opts.Cooldown > 0 {
			w.deps.Logger.Info("cooling down before next cycle", "wait", w.opts.Cooldown)
			select {
			case <-time.After(w.opts.Cooldown):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	color.New(color.FgGreen).Fprintf(w.out, "\nRun complete: %d/%d cycles published\n", published, w.opts.Cycles)
	return nil
}

// runCycle drives one post end to end. It reports whether the post was
// published; a confirm-gate rejection is a skip, not an error.
func (w *Workflow) runCycle(ctx context.Context, run *generator.RunContext) (bool, error) {
	body, err := w.deps.Generator.GenerateBody(ctx, run)
	if err != nil {
		return false, fmt.Errorf("generate body: %w", err)
	}
	interlinks := ExtractInterlinks(body)

	meta, err := w.deps.Generator.GenerateMetadata(ctx, body)
	if err != nil {
		return false, fmt.Errorf("generate metadata: %w", err)
	}
	slug := publisher.Slugify(meta.Title)

	var asset *imagegen.Asset
	if meta.ImageDescription != "" && w.deps.Images != nil && w.deps.Target.SupportsImages() {
		asset, err = w.deps.Images.Generate(ctx, meta.ImageDescription, slug)
		if err != nil {
			w.deps.Logger.Warn("image generation failed, publishing without image", "error", err)
			asset = nil
		}
	}

	payload := publisher.Assemble(body, meta, slug, w.opts.Draft, w.opts.Featured, w.deps.Logger)

	if !w.opts.Auto && !w.confirm(payload.Title) {
		w.deps.Logger.Info("publication declined, skipping cycle", "slug", slug)
		return false, nil
	}

	id, err := w.deps.Target.Publish(ctx, payload, asset)
	if err != nil {
		return false, fmt.Errorf("publish to %s: %w", w.deps.Target.Name(), err)
	}
	postURL := w.deps.Target.PostURL(slug)
	w.deps.Logger.Info("post published", "target", w.deps.Target.Name(), "id", id, "url", postURL)

	if meta.ExcerptPage == "" {
		w.deps.Logger.Warn("metadata has no page excerpt, skipping ledger entry", "slug", slug)
	} else {
		entry := ledger.Entry{Summary: meta.ExcerptPage, URL: postURL}
		if err := ledger.Append(w.opts.LedgerPath, entry, w.deps.Logger); err != nil {
			w.deps.Logger.Warn("ledger append failed", "error", err)
		}
		run.Prior = append(run.Prior, entry)
	}

	if w.opts.SocialDraft {
		w.socialDraft(ctx, body, postURL, interlinks)
	}
	return true, nil
}

// confirm asks for a y/n on stdin. Anything but an explicit yes declines.
func (w *Workflow) confirm(title string) bool {
	color.New(color.FgYellow).Fprintf(w.out, "Publish %q? [y/N]: ", title)
	line, err := w.in.ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}

// socialDraft generates, prints, and best-effort copies the announcement
// text. Failures here never fail the cycle.
func (w *Workflow) socialDraft(ctx context.Context, body, postURL string, interlinks []string) {
	snippet := body
	if len(snippet) > socialSnippetLimit {
		snippet = snippet[:socialSnippetLimit]
	}

	draft, err := w.deps.Generator.GenerateSocialDraft(ctx, snippet, postURL, interlinks)
	if err != nil {
		w.deps.Logger.Warn("social draft generation failed", "error", err)
		return
	}
	if w.opts.ChatbotURL != "" {
		draft = strings.ReplaceAll(draft, "[CHATBOT_URL]", w.opts.ChatbotURL)
	}

	color.New(color.FgMagenta, color.Bold).Fprintln(w.out, "\n--- Social media draft ---")
	fmt.Fprintln(w.out, draft)
	if err := w.clip(draft); err != nil {
		w.deps.Logger.Warn("could not copy social draft to clipboard", "error", err)
	} else {
		fmt.Fprintln(w.out, "(copied to clipboard)")
	}
}

var interlinkPattern = regexp.MustCompile(`\[[^\]]*\]\((https?://[^)]+)\)`)

// ExtractInterlinks collects the distinct URLs of Markdown links in the
// body, in order of first appearance.
func ExtractInterlinks(markdown string) []string {
	matches := interlinkPattern.FindAllStringSubmatch(markdown, -1)
	if len(matches) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(matches))
	var urls []string
	for _, m := range matches {
		if _, dup := seen[m[1]]; dup {
			continue
		}
		seen[m[1]] = struct{}{}
		urls = append(urls, m[1])
	}
	return urls
}
