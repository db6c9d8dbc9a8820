package storage

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/url"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingUploader struct {
	objects map[string][]byte
	types   map[string]string
	fail    error
}

func newRecordingUploader() *recordingUploader {
	return &recordingUploader{objects: map[string][]byte{}, types: map[string]string{}}
}

func (u *recordingUploader) Upload(ctx context.Context, key, contentType string, reader io.Reader) (*UploadResult, error) {
	if u.fail != nil {
		return nil, u.fail
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}
	u.objects[key] = body
	u.types[key] = contentType
	return &UploadResult{Key: key, Location: u.GetPublicURL(key)}, nil
}

func (u *recordingUploader) Delete(ctx context.Context, key string) error {
	delete(u.objects, key)
	return nil
}

func (u *recordingUploader) GetPublicURL(key string) string {
	return "https://cdn.example.com/" + key
}

func TestResultsArchive_Publish(t *testing.T) {
	uploader := newRecordingUploader()
	archive := NewResultsArchive(uploader)

	key, err := archive.Publish(context.Background(), 7, map[string]int{"winner_id": 3})
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^tournaments/7/results-[0-9a-f-]{36}\.json$`), key)
	assert.Equal(t, "application/json", uploader.types[key])

	var decoded map[string]int
	require.NoError(t, json.Unmarshal(uploader.objects[key], &decoded))
	assert.Equal(t, 3, decoded["winner_id"])

	require.NotNil(t, archive.URL(&key))
	assert.Equal(t, "https://cdn.example.com/"+key, *archive.URL(&key))

	require.NoError(t, archive.Remove(context.Background(), key))
	assert.Empty(t, uploader.objects)
}

func TestResultsArchive_UploadFailure(t *testing.T) {
	uploader := newRecordingUploader()
	uploader.fail = errors.New("bucket unavailable")
	archive := NewResultsArchive(uploader)

	key, err := archive.Publish(context.Background(), 1, struct{}{})
	require.Error(t, err)
	assert.Empty(t, key)
}

func TestResultsArchive_NilIsDisabled(t *testing.T) {
	archive := NewResultsArchive(nil)
	assert.Nil(t, archive)

	key, err := archive.Publish(context.Background(), 1, struct{}{})
	require.NoError(t, err)
	assert.Empty(t, key)
	assert.NoError(t, archive.Remove(context.Background(), "anything"))
	assert.Nil(t, archive.URL(&key))
}

func TestPublicURL(t *testing.T) {
	withPath, _ := url.Parse("https://pub.example.com/assets")
	bare, _ := url.Parse("https://pub.example.com")

	assert.Equal(t, "https://pub.example.com/assets/tournaments/1/a.json", publicURL(withPath, "tournaments/1/a.json"))
	assert.Equal(t, "https://pub.example.com/tournaments/1/a.json", publicURL(bare, "/tournaments/1/a.json"))
	assert.Empty(t, publicURL(bare, ""))
	assert.Empty(t, publicURL(nil, "x"))
}
