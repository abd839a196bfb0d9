package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blogflow/imagegen"
)

func testAsset() *imagegen.Asset {
	return &imagegen.Asset{
		Bytes:    []byte("png-bytes"),
		Hash:     "d41d8cd98f00b204e9800998ecf8427e",
		Filename: "my-post-main.png",
	}
}

func testPayload() *Payload {
	return &Payload{
		Slug:            "my-post",
		Title:           "My Post",
		BodyHTML:        "<p>body</p>",
		ExcerptPage:     "page",
		ExcerptFeatured: "featured",
		ReadingTime:     3,
		Draft:           true,
		Featured:        true,
	}
}

func newTestWebflow(t *testing.T, apiURL string) *Webflow {
	t.Helper()
	w, err := NewWebflow(WebflowOptions{
		Token:            "token",
		SiteID:           "site-1",
		CollectionID:     "coll-1",
		CategoryID:       "cat-1",
		AuthorID:         "author-1",
		APIBaseURL:       apiURL,
		PublishedURLBase: "https://example.com/post/",
	}, nil, slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	return w
}

func TestWebflowPublishWithImage(t *testing.T) {
	var itemFields itemFieldData
	var itemDraft bool
	var transferHits int

	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	mux.HandleFunc("POST /sites/site-1/assets", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "my-post-main.png", body["fileName"])
		assert.Equal(t, "d41d8cd98f00b204e9800998ecf8427e", body["fileHash"])
		assert.Equal(t, "Bearer token", r.Header.Get("Authorization"))

		json.NewEncoder(w).Encode(assetRegistration{
			UploadURL: srv.URL + "/bucket-upload",
			UploadDetails: map[string]string{
				"key":                   "assets/my-post-main.png",
				"content-type":          "image/png",
				"success_action_status": "201",
			},
			ID:        "asset-123",
			HostedURL: "https://assets.example.com/my-post-main.png",
		})
	})

	mux.HandleFunc("POST /bucket-upload", func(w http.ResponseWriter, r *http.Request) {
		transferHits++
		require.NoError(t, r.ParseMultipartForm(1 << 20))
		assert.Equal(t, "assets/my-post-main.png", r.FormValue("key"))

		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "my-post-main.png", header.Filename)
		assert.Equal(t, "image/png", header.Header.Get("Content-Type"))
		data, err := io.ReadAll(file)
		require.NoError(t, err)
		assert.Equal(t, []byte("png-bytes"), data)

		w.WriteHeader(http.StatusCreated)
	})

	mux.HandleFunc("POST /collections/coll-1/items", func(w http.ResponseWriter, r *http.Request) {
		var body createItemPayload
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		itemFields = body.FieldData
		itemDraft = body.IsDraft
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(createItemResp{ID: "item-456"})
	})

	wf := newTestWebflow(t, srv.URL)
	id, err := wf.Publish(context.Background(), testPayload(), testAsset())

	require.NoError(t, err)
	assert.Equal(t, "item-456", id)
	assert.Equal(t, 1, transferHits)
	assert.True(t, itemDraft)
	assert.Equal(t, "My Post", itemFields.Name)
	assert.Equal(t, "my-post", itemFields.Slug)
	assert.Equal(t, "cat-1", itemFields.Category)
	assert.Equal(t, "author-1", itemFields.Author)
	require.NotNil(t, itemFields.MainImage)
	require.NotNil(t, itemFields.Thumbnail)
	assert.Equal(t, "asset-123", itemFields.MainImage.FileID)
	assert.Equal(t, "https://assets.example.com/my-post-main.png", itemFields.MainImage.URL)
	assert.Equal(t, "My Post Thumbnail", itemFields.Thumbnail.Alt)
}

func TestWebflowPublishContinuesWhenAssetUploadFails(t *testing.T) {
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	mux.HandleFunc("POST /sites/site-1/assets", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream sad", http.StatusInternalServerError)
	})

	var rawFields map[string]json.RawMessage
	mux.HandleFunc("POST /collections/coll-1/items", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			FieldData map[string]json.RawMessage `json:"fieldData"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		rawFields = body.FieldData
		json.NewEncoder(w).Encode(createItemResp{ID: "item-789"})
	})

	wf := newTestWebflow(t, srv.URL)
	id, err := wf.Publish(context.Background(), testPayload(), testAsset())

	require.NoError(t, err)
	assert.Equal(t, "item-789", id)
	assert.NotContains(t, rawFields, "post-main-image")
	assert.NotContains(t, rawFields, "post-main-image-thumbnail")
}

func TestWebflowTransferUnparseableStatusAcceptsAny2xx(t *testing.T) {
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	mux.HandleFunc("POST /sites/site-1/assets", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(assetRegistration{
			UploadURL: srv.URL + "/bucket-upload",
			UploadDetails: map[string]string{
				"success_action_status": "created",
			},
			ID:        "asset-1",
			HostedURL: "https://assets.example.com/a.png",
		})
	})
	mux.HandleFunc("POST /bucket-upload", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("POST /collections/coll-1/items", func(w http.ResponseWriter, r *http.Request) {
		var body createItemPayload
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.NotNil(t, body.FieldData.MainImage)
		json.NewEncoder(w).Encode(createItemResp{ID: "item-1"})
	})

	wf := newTestWebflow(t, srv.URL)
	id, err := wf.Publish(context.Background(), testPayload(), testAsset())

	require.NoError(t, err)
	assert.Equal(t, "item-1", id)
}

func TestWebflowTransferStatusMismatchDropsImage(t *testing.T) {
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	mux.HandleFunc("POST /sites/site-1/assets", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(assetRegistration{
			UploadURL: srv.URL + "/bucket-upload",
			UploadDetails: map[string]string{
				"success_action_status": "201",
			},
			ID:        "asset-1",
			HostedURL: "https://assets.example.com/a.png",
		})
	})
	mux.HandleFunc("POST /bucket-upload", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK) // registration demanded 201
	})
	mux.HandleFunc("POST /collections/coll-1/items", func(w http.ResponseWriter, r *http.Request) {
		var body createItemPayload
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Nil(t, body.FieldData.MainImage)
		json.NewEncoder(w).Encode(createItemResp{ID: "item-1"})
	})

	wf := newTestWebflow(t, srv.URL)
	_, err := wf.Publish(context.Background(), testPayload(), testAsset())
	require.NoError(t, err)
}

func TestWebflowCreateItemMissingID(t *testing.T) {
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	mux.HandleFunc("POST /collections/coll-1/items", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{}`)
	})

	wf := newTestWebflow(t, srv.URL)
	_, err := wf.Publish(context.Background(), testPayload(), nil)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "no item id")
}

func TestWebflowRequiresCredentials(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)

	_, err := NewWebflow(WebflowOptions{SiteID: "s", CollectionID: "c"}, nil, logger)
	assert.Error(t, err)

	_, err = NewWebflow(WebflowOptions{Token: "t"}, nil, logger)
	assert.Error(t, err)
}

func TestWebflowPostURL(t *testing.T) {
	wf := newTestWebflow(t, "https://api.webflow.com/v2")
	assert.Equal(t, "https://example.com/post/my-post", wf.PostURL("my-post"))
}
