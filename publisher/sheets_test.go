package publisher

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blogflow/imagegen"
)

type fakeRowStore struct {
	rows     map[string]int
	readErr  error
	updated  map[int][]interface{}
	appended [][]interface{}
}

func (f *fakeRowStore) SlugRows(ctx context.Context) (map[string]int, error) {
	return f.rows, f.readErr
}

func (f *fakeRowStore) UpdateRow(ctx context.Context, row int, values []interface{}) error {
	if f.updated == nil {
		f.updated = make(map[int][]interface{})
	}
	f.updated[row] = values
	return nil
}

func (f *fakeRowStore) AppendRow(ctx context.Context, values []interface{}) error {
	f.appended = append(f.appended, values)
	return nil
}

type fakeUploader struct {
	url   string
	err   error
	calls int
}

func (f *fakeUploader) Upload(ctx context.Context, data []byte) (string, error) {
	f.calls++
	return f.url, f.err
}

func newTestSheets(t *testing.T, store RowStore, uploader ImageUploader) *Sheets {
	t.Helper()
	s, err := NewSheets(store, uploader, "https://example.com/post/", slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	s.now = func() time.Time {
		return time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	}
	return s
}

func TestSheetsAppendsNewSlug(t *testing.T) {
	store := &fakeRowStore{rows: map[string]int{"other-post": 2}}
	s := newTestSheets(t, store, nil)

	id, err := s.Publish(context.Background(), testPayload(), nil)

	require.NoError(t, err)
	assert.Equal(t, "my-post", id)
	assert.Empty(t, store.updated)
	require.Len(t, store.appended, 1)
	assert.Equal(t, []interface{}{
		"My Post", "my-post", "page", "featured", 3,
		"<p>body</p>", "", "TRUE", "2026-03-14T09:26:53Z",
	}, store.appended[0])
}

func TestSheetsOverwritesExistingSlugInPlace(t *testing.T) {
	store := &fakeRowStore{rows: map[string]int{"my-post": 5, "other-post": 6}}
	s := newTestSheets(t, store, nil)

	p := testPayload()
	p.Draft = false
	_, err := s.Publish(context.Background(), p, nil)

	require.NoError(t, err)
	assert.Empty(t, store.appended)
	require.Contains(t, store.updated, 5)
	assert.Equal(t, "FALSE", store.updated[5][7])
}

func TestSheetsUploadsImageWhenConfigured(t *testing.T) {
	store := &fakeRowStore{}
	up := &fakeUploader{url: "https://cdn.example.com/img.png"}
	s := newTestSheets(t, store, up)

	asset := &imagegen.Asset{Bytes: []byte("png"), Hash: "abc", Filename: "my-post-main.png"}
	_, err := s.Publish(context.Background(), testPayload(), asset)

	require.NoError(t, err)
	assert.Equal(t, 1, up.calls)
	require.Len(t, store.appended, 1)
	assert.Equal(t, "https://cdn.example.com/img.png", store.appended[0][6])
}

func TestSheetsSkipsImageWithoutUploader(t *testing.T) {
	store := &fakeRowStore{}
	s := newTestSheets(t, store, nil)
	assert.False(t, s.SupportsImages())

	asset := &imagegen.Asset{Bytes: []byte("png"), Hash: "abc", Filename: "my-post-main.png"}
	_, err := s.Publish(context.Background(), testPayload(), asset)

	require.NoError(t, err)
	require.Len(t, store.appended, 1)
	assert.Equal(t, "", store.appended[0][6])
}

func TestSheetsUploadFailureLeavesImageURLEmpty(t *testing.T) {
	store := &fakeRowStore{}
	up := &fakeUploader{err: errors.New("bucket gone")}
	s := newTestSheets(t, store, up)

	asset := &imagegen.Asset{Bytes: []byte("png"), Hash: "abc", Filename: "my-post-main.png"}
	_, err := s.Publish(context.Background(), testPayload(), asset)

	require.NoError(t, err)
	require.Len(t, store.appended, 1)
	assert.Equal(t, "", store.appended[0][6])
}

func TestSheetsRowReadFailure(t *testing.T) {
	store := &fakeRowStore{readErr: errors.New("quota exceeded")}
	s := newTestSheets(t, store, nil)

	_, err := s.Publish(context.Background(), testPayload(), nil)
	assert.Error(t, err)
}

func TestSheetsRequiresStore(t *testing.T) {
	_, err := NewSheets(nil, nil, "", slog.New(slog.DiscardHandler))
	assert.Error(t, err)
}
