package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"blogflow/config"
	"blogflow/generator"
	"blogflow/imagegen"
	"blogflow/logging"
	"blogflow/publisher"
	"blogflow/retry"
	"blogflow/workflow"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	cycles := flag.Int("n", 1, "number of generate-and-publish cycles")
	social := flag.Bool("social", false, "generate a social media draft after each publish")
	auto := flag.Bool("auto", false, "publish without the confirmation prompt")
	provider := flag.String("provider", config.ProviderWebflow, "publish target: webflow or sheets")
	flag.Parse()

	// .env is optional; real env vars win either way.
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := cfg.Validate(*provider); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger := logging.New(cfg.Logging.Level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	w, err := build(ctx, cfg, *provider, *cycles, *social, *auto, logger)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if err := w.Run(ctx, cfg.References); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func build(ctx context.Context, cfg config.Config, provider string, cycles int, social, auto bool, logger *slog.Logger) (*workflow.Workflow, error) {
	policy := retry.Policy{
		MaxAttempts: cfg.Retry.MaxAttempts,
		Delay:       cfg.Retry.Backoff.Std(),
	}

	llm, err := generator.NewOpenAIClient(generator.OpenAISettings{
		Model:   cfg.LLM.Model,
		APIKey:  cfg.LLM.APIKey,
		BaseURL: cfg.LLM.BaseURL,
	})
	if err != nil {
		return nil, err
	}

	basePrompt := generator.DefaultBasePrompt
	if cfg.LLM.PromptPath != "" {
		raw, err := os.ReadFile(cfg.LLM.PromptPath)
		if err != nil {
			return nil, fmt.Errorf("read prompt file: %w", err)
		}
		basePrompt = string(raw)
	}

	gen, err := generator.New(llm, llm, basePrompt, generator.Temperatures{
		Body:     cfg.LLM.BodyTemperature,
		Metadata: cfg.LLM.MetadataTemperature,
		Social:   cfg.LLM.SocialTemperature,
	}, policy, logger)
	if err != nil {
		return nil, err
	}

	imgClient, err := imagegen.NewOpenAIImages(cfg.LLM.APIKey, cfg.LLM.BaseURL, cfg.Image.Model, cfg.Image.Size)
	if err != nil {
		return nil, err
	}
	images, err := imagegen.New(imgClient, policy, logger)
	if err != nil {
		return nil, err
	}

	target, err := buildTarget(ctx, cfg, provider, logger)
	if err != nil {
		return nil, err
	}

	return workflow.New(workflow.Deps{
		Generator: gen,
		Images:    images,
		Target:    target,
		Logger:    logger,
	}, workflow.Options{
		Cycles:      cycles,
		SocialDraft: social,
		Auto:        auto,
		Cooldown:    cfg.Workflow.Cooldown.Std(),
		Draft:       cfg.Workflow.Draft,
		Featured:    cfg.Workflow.Featured,
		ChatbotURL:  cfg.Workflow.ChatbotURL,
		LedgerPath:  cfg.LedgerPath,
	})
}

func buildTarget(ctx context.Context, cfg config.Config, provider string, logger *slog.Logger) (publisher.Target, error) {
	switch provider {
	case config.ProviderWebflow:
		return publisher.NewWebflow(publisher.WebflowOptions{
			Token:            cfg.Webflow.Token,
			SiteID:           cfg.Webflow.SiteID,
			CollectionID:     cfg.Webflow.CollectionID,
			CategoryID:       cfg.Webflow.CategoryID,
			AuthorID:         cfg.Webflow.AuthorID,
			APIBaseURL:       cfg.Webflow.APIBaseURL,
			PublishedURLBase: cfg.Webflow.PublishedURLBase,
		}, nil, logger)
	case config.ProviderSheets:
		store, err := publisher.NewGoogleSheetStore(ctx, cfg.Sheets.DocID, cfg.Sheets.Worksheet, cfg.Sheets.CredentialsFile)
		if err != nil {
			return nil, err
		}
		var uploader publisher.ImageUploader
		if cfg.S3.Bucket != "" {
			up, err := publisher.NewS3Uploader(ctx, cfg.S3.Bucket, cfg.S3.Region)
			if err != nil {
				return nil, err
			}
			uploader = up
		}
		return publisher.NewSheets(store, uploader, cfg.Sheets.PublishedURLBase, logger)
	default:
		return nil, fmt.Errorf("unknown provider %q", provider)
	}
}
