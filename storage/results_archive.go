package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

const resultsContentType = "application/json"

// ResultsArchive uploads the final bracket of a finished tournament as a JSON document.
// A nil *ResultsArchive is valid and archives nothing.
type ResultsArchive struct {
	uploader FileUploader
}

func NewResultsArchive(uploader FileUploader) *ResultsArchive {
	if uploader == nil {
		return nil
	}
	return &ResultsArchive{uploader: uploader}
}

func ResultsKey(tournamentID int) string {
	return fmt.Sprintf("tournaments/%d/results-%s.json", tournamentID, uuid.NewString())
}

// Publish stores payload under a fresh key and returns that key.
func (a *ResultsArchive) Publish(ctx context.Context, tournamentID int, payload any) (string, error) {
	if a == nil {
		return "", nil
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to encode results of tournament %d: %w", tournamentID, err)
	}
	key := ResultsKey(tournamentID)
	if _, err := a.uploader.Upload(ctx, key, resultsContentType, bytes.NewReader(body)); err != nil {
		return "", err
	}
	return key, nil
}

func (a *ResultsArchive) Remove(ctx context.Context, key string) error {
	if a == nil || key == "" {
		return nil
	}
	return a.uploader.Delete(ctx, key)
}

func (a *ResultsArchive) URL(key *string) *string {
	if a == nil || key == nil || *key == "" {
		return nil
	}
	u := a.uploader.GetPublicURL(*key)
	if u == "" {
		return nil
	}
	return &u
}
