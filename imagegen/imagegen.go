// Package imagegen produces the illustrative image for a post: one remote
// generation call, then lossless re-encoding and a content hash for the
// upload protocol.
package imagegen

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"log/slog"

	_ "image/jpeg"

	"blogflow/retry"
)

// maxSlugLen keeps derived filenames within back-end limits.
const maxSlugLen = 90

// Asset is a generated, compressed image ready for upload.
type Asset struct {
	Bytes []byte
	// Hash is the MD5 hex digest of Bytes; the structured-CMS upload
	// protocol consumes it as an integrity/idempotency token.
	Hash     string
	Filename string
}

// Client abstracts the generative image service. Generate returns decoded
// image bytes.
type Client interface {
	Generate(ctx context.Context, description string) ([]byte, error)
}

// Generator wraps the remote call with the retry policy and post-processing.
type Generator struct {
	client Client
	policy retry.Policy
	logger *slog.Logger
}

// New wires an image Generator.
func New(client Client, policy retry.Policy, logger *slog.Logger) (*Generator, error) {
	if client == nil {
		return nil, errors.New("image client is required")
	}
	return &Generator{client: client, policy: policy, logger: logger}, nil
}

// Generate produces the asset for one cycle. Rate-limit responses are
// retried; any other failure, including a decode failure, is terminal for
// the cycle (the caller degrades to publishing without an image).
func (g *Generator) Generate(ctx context.Context, description, slug string) (*Asset, error) {
	if description == "" {
		return nil, errors.New("image description is empty")
	}

	g.logger.Info("generating image", "description", description)
	raw, err := retry.Do(ctx, g.logger, "generate image", g.policy, func() ([]byte, error) {
		return g.client.Generate(ctx, description)
	})
	if err != nil {
		return nil, fmt.Errorf("generate image: %w", err)
	}

	final, err := reencode(raw)
	if err != nil {
		// Decode failures are terminal; encode failures fall back to the
		// original bytes.
		var encErr *encodeError
		if !errors.As(err, &encErr) {
			return nil, fmt.Errorf("process image: %w", err)
		}
		g.logger.Warn("image re-encode failed, using original bytes", "error", err)
		final = raw
	} else {
		g.logger.Info("image compressed",
			"original_kb", len(raw)/1024, "compressed_kb", len(final)/1024)
	}

	sum := md5.Sum(final)
	return &Asset{
		Bytes:    final,
		Hash:     hex.EncodeToString(sum[:]),
		Filename: Filename(slug),
	}, nil
}

// Filename derives the upload filename from the post slug, truncating long
// slugs to respect back-end filename limits.
func Filename(slug string) string {
	if len(slug) > maxSlugLen {
		slug = slug[:maxSlugLen]
	}
	return slug + "-main.png"
}

type encodeError struct{ err error }

func (e *encodeError) Error() string { return e.err.Error() }
func (e *encodeError) Unwrap() error { return e.err }

// reencode normalizes the color mode and re-encodes the image as an
// optimized PNG, matching what downstream hosts expect.
func reencode(raw []byte) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	normalized := image.NewNRGBA(img.Bounds())
	draw.Draw(normalized, normalized.Bounds(), img, img.Bounds().Min, draw.Src)

	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.BestCompression}
	if err := enc.Encode(&buf, normalized); err != nil {
		return nil, &encodeError{err: err}
	}
	return buf.Bytes(), nil
}
