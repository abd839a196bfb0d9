package publisher

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strconv"
	"strings"
	"time"

	"blogflow/imagegen"
)

// WebflowOptions wires the structured-CMS target.
type WebflowOptions struct {
	Token            string
	SiteID           string
	CollectionID     string
	CategoryID       string
	AuthorID         string
	APIBaseURL       string
	PublishedURLBase string
}

// Webflow publishes posts to a Webflow CMS collection: a two-phase asset
// upload followed by a single item-creation call.
type Webflow struct {
	opts   WebflowOptions
	client *http.Client
	logger *slog.Logger
}

// NewWebflow validates options and builds the target.
func NewWebflow(opts WebflowOptions, client *http.Client, logger *slog.Logger) (*Webflow, error) {
	if opts.Token == "" {
		return nil, errors.New("webflow token is required")
	}
	if opts.SiteID == "" || opts.CollectionID == "" {
		return nil, errors.New("webflow site and collection ids are required")
	}
	if opts.APIBaseURL == "" {
		opts.APIBaseURL = "https://api.webflow.com/v2"
	}
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	return &Webflow{opts: opts, client: client, logger: logger}, nil
}

func (w *Webflow) Name() string { return "webflow" }

func (w *Webflow) SupportsImages() bool { return true }

func (w *Webflow) PostURL(slug string) string { return w.opts.PublishedURLBase + slug }

// Publish uploads the image asset (when present) and creates the collection
// item. An asset-upload failure degrades to publishing without an image; it
// never fails the publish itself.
func (w *Webflow) Publish(ctx context.Context, p *Payload, image *imagegen.Asset) (string, error) {
	if image != nil {
		assetID, hostedURL, err := w.uploadAsset(ctx, image)
		if err != nil {
			w.logger.Warn("asset upload failed, publishing without image", "error", err)
		} else if !p.SetImage(assetID, hostedURL) {
			w.logger.Warn("asset upload returned incomplete reference, omitting image",
				"asset_id", assetID, "hosted_url", hostedURL)
		}
	}
	return w.createItem(ctx, p)
}

type assetRegistration struct {
	UploadURL     string            `json:"uploadUrl"`
	UploadDetails map[string]string `json:"uploadDetails"`
	ID            string            `json:"id"`
	HostedURL     string            `json:"hostedUrl"`
}

// uploadAsset runs the two-phase protocol: register filename+hash with the
// CMS to obtain a pre-signed upload location, then transfer the bytes there.
func (w *Webflow) uploadAsset(ctx context.Context, image *imagegen.Asset) (string, string, error) {
	reg, err := w.registerAsset(ctx, image.Filename, image.Hash)
	if err != nil {
		return "", "", err
	}
	if reg.UploadURL == "" || len(reg.UploadDetails) == 0 {
		return "", "", errors.New("asset registration missing uploadUrl or uploadDetails")
	}
	w.logger.Info("asset registered", "asset_id", reg.ID, "file", image.Filename)

	if err := w.transferAsset(ctx, reg, image); err != nil {
		return "", "", err
	}
	return reg.ID, reg.HostedURL, nil
}

func (w *Webflow) registerAsset(ctx context.Context, filename, hash string) (*assetRegistration, error) {
	body, err := json.Marshal(map[string]string{
		"fileName": filename,
		"fileHash": hash,
	})
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/sites/%s/assets", w.opts.APIBaseURL, w.opts.SiteID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+w.opts.Token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("register asset: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("register asset: %s: %s", resp.Status, readErrorBody(resp.Body))
	}

	var reg assetRegistration
	if err := json.NewDecoder(resp.Body).Decode(&reg); err != nil {
		return nil, fmt.Errorf("decode asset registration: %w", err)
	}
	return &reg, nil
}

// transferAsset posts the file to the pre-signed location as multipart form
// data, with every uploadDetails entry as a form field ahead of the file.
// Success is judged by the expected status the registration step returned,
// falling back to a generic 2xx check when that status is unparseable.
func (w *Webflow) transferAsset(ctx context.Context, reg *assetRegistration, image *imagegen.Asset) error {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	for key, value := range reg.UploadDetails {
		if err := writer.WriteField(key, value); err != nil {
			return err
		}
	}

	contentType := reg.UploadDetails["content-type"]
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name="file"; filename="%s"`, image.Filename))
	header.Set("Content-Type", contentType)
	part, err := writer.CreatePart(header)
	if err != nil {
		return err
	}
	if _, err := part.Write(image.Bytes); err != nil {
		return err
	}
	if err := writer.Close(); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reg.UploadURL, &body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("transfer asset: %w", err)
	}
	defer resp.Body.Close()

	expectedRaw, ok := reg.UploadDetails["success_action_status"]
	if !ok {
		expectedRaw = "201"
	}
	expected, convErr := strconv.Atoi(expectedRaw)
	if convErr != nil {
		w.logger.Warn("unparseable success_action_status, accepting any 2xx", "value", expectedRaw)
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return fmt.Errorf("transfer asset: unexpected status %s: %s", resp.Status, readErrorBody(resp.Body))
		}
		return nil
	}
	if resp.StatusCode != expected {
		return fmt.Errorf("transfer asset: expected status %d, got %d: %s",
			expected, resp.StatusCode, readErrorBody(resp.Body))
	}
	return nil
}

type imageRef struct {
	FileID string `json:"fileId"`
	Alt    string `json:"alt"`
	URL    string `json:"url"`
}

type itemFieldData struct {
	Name            string    `json:"name"`
	Slug            string    `json:"slug"`
	PostBody        string    `json:"post-body"`
	ExcerptPage     string    `json:"post-excerpt-post-page"`
	ExcerptFeatured string    `json:"post-excerpt-post-featured"`
	ReadingTime     int       `json:"post-reading-time-minutes"`
	Category        string    `json:"post-category,omitempty"`
	Author          string    `json:"post-author,omitempty"`
	Featured        bool      `json:"post-featured"`
	MainImage       *imageRef `json:"post-main-image,omitempty"`
	Thumbnail       *imageRef `json:"post-main-image-thumbnail,omitempty"`
}

type createItemPayload struct {
	IsArchived bool          `json:"isArchived"`
	IsDraft    bool          `json:"isDraft"`
	FieldData  itemFieldData `json:"fieldData"`
}

type createItemResp struct {
	ID string `json:"id"`
}

func (w *Webflow) createItem(ctx context.Context, p *Payload) (string, error) {
	fields := itemFieldData{
		Name:            p.Title,
		Slug:            p.Slug,
		PostBody:        p.BodyHTML,
		ExcerptPage:     p.ExcerptPage,
		ExcerptFeatured: p.ExcerptFeatured,
		ReadingTime:     p.ReadingTime,
		Category:        w.opts.CategoryID,
		Author:          w.opts.AuthorID,
		Featured:        p.Featured,
	}
	// Image fields are included only when both halves of the reference
	// exist; otherwise they are omitted entirely, never sent as null.
	if p.HasImage() {
		fields.MainImage = &imageRef{FileID: p.ImageAssetID, Alt: p.Title, URL: p.ImageURL}
		fields.Thumbnail = &imageRef{FileID: p.ImageAssetID, Alt: p.Title + " Thumbnail", URL: p.ImageURL}
	}

	body, err := json.Marshal(createItemPayload{
		IsArchived: false,
		IsDraft:    p.Draft,
		FieldData:  fields,
	})
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s/collections/%s/items", w.opts.APIBaseURL, w.opts.CollectionID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+w.opts.Token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("create item: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated, http.StatusAccepted:
	default:
		return "", fmt.Errorf("create item: %s: %s", resp.Status, readErrorBody(resp.Body))
	}

	var data createItemResp
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return "", fmt.Errorf("decode create item response: %w", err)
	}
	if data.ID == "" {
		return "", errors.New("create item: response contained no item id")
	}
	w.logger.Info("webflow item created", "item_id", data.ID, "slug", p.Slug)
	return data.ID, nil
}

func readErrorBody(r io.Reader) string {
	raw, _ := io.ReadAll(io.LimitReader(r, 1024))
	return strings.TrimSpace(string(raw))
}
