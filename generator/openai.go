package generator

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

// OpenAIClient implements ChatClient and FileClient using the official
// openai-go SDK (chat completions + files).
type OpenAIClient struct {
	client openai.Client
	model  string
}

// OpenAISettings provides the base configuration for the concrete client.
type OpenAISettings struct {
	Model   string
	APIKey  string
	BaseURL string
}

// NewOpenAIClient validates settings and builds the SDK client.
func NewOpenAIClient(cfg OpenAISettings) (*OpenAIClient, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai api key missing")
	}
	if cfg.Model == "" {
		return nil, errors.New("llm model is required")
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &OpenAIClient{client: openai.NewClient(opts...), model: cfg.Model}, nil
}

// Complete sends one chat-completion request. Uploaded reference documents
// are attached as file content parts ahead of the user prompt.
func (c *OpenAIClient) Complete(ctx context.Context, req ChatRequest) (string, error) {
	var msgs []openai.ChatCompletionMessageParamUnion
	if req.System != "" {
		msgs = append(msgs, openai.SystemMessage(req.System))
	}

	if len(req.FileIDs) == 0 {
		msgs = append(msgs, openai.UserMessage(req.User))
	} else {
		parts := make([]openai.ChatCompletionContentPartUnionParam, 0, len(req.FileIDs)+1)
		for _, id := range req.FileIDs {
			parts = append(parts, openai.FileContentPart(openai.ChatCompletionContentPartFileFileParam{
				FileID: openai.String(id),
			}))
		}
		parts = append(parts, openai.TextContentPart(req.User))
		msgs = append(msgs, openai.UserMessage(parts))
	}

	params := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(c.model),
		Messages:    msgs,
		Temperature: openai.Float(req.Temperature),
	}
	if req.JSONOnly {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		}
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", ErrNoContent
	}
	return resp.Choices[0].Message.Content, nil
}

// Upload pushes one local document to the Files API and returns its handle.
func (c *OpenAIClient) Upload(ctx context.Context, path string) (Reference, error) {
	f, err := os.Open(path)
	if err != nil {
		return Reference{}, fmt.Errorf("open reference %s: %w", path, err)
	}
	defer f.Close()

	file, err := c.client.Files.New(ctx, openai.FileNewParams{
		File:    f,
		Purpose: openai.FilePurposeUserData,
	})
	if err != nil {
		return Reference{}, fmt.Errorf("upload reference %s: %w", path, err)
	}
	if file.ID == "" {
		return Reference{}, fmt.Errorf("upload reference %s: service returned no file id", path)
	}

	return Reference{
		ID:       file.ID,
		Filename: filepath.Base(path),
		MIMEType: mime.TypeByExtension(filepath.Ext(path)),
	}, nil
}

// transientAPIError reports whether err is a rate-limit or conflict response,
// the only remote failures classified as safe to retry.
func transientAPIError(err error) bool {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusTooManyRequests ||
			apiErr.StatusCode == http.StatusConflict
	}
	return false
}
