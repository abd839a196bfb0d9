package imagegen

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"blogflow/retry"
)

// OpenAIImages implements Client using the openai-go image API.
type OpenAIImages struct {
	client openai.Client
	model  string
	size   string
}

// NewOpenAIImages builds the concrete image client.
func NewOpenAIImages(apiKey, baseURL, model, size string) (*OpenAIImages, error) {
	if apiKey == "" {
		return nil, errors.New("openai api key missing")
	}
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &OpenAIImages{client: openai.NewClient(opts...), model: model, size: size}, nil
}

// Generate requests one image and decodes its base64 payload. Rate limiting
// is marked transient for the retry executor; all other API errors, and any
// decode failure, are terminal.
func (c *OpenAIImages) Generate(ctx context.Context, description string) ([]byte, error) {
	resp, err := c.client.Images.Generate(ctx, openai.ImageGenerateParams{
		Model:  openai.ImageModel(c.model),
		Prompt: description,
		N:      openai.Int(1),
		Size:   openai.ImageGenerateParamsSize(c.size),
	})
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusTooManyRequests {
			return nil, retry.Transient(err)
		}
		return nil, err
	}

	if len(resp.Data) == 0 || resp.Data[0].B64JSON == "" {
		return nil, errors.New("image service returned no image data")
	}
	raw, err := base64.StdEncoding.DecodeString(resp.Data[0].B64JSON)
	if err != nil {
		return nil, fmt.Errorf("decode base64 image data: %w", err)
	}
	return raw, nil
}
