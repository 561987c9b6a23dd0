// Package history persists which documents were already screened, so
// repeat runs skip them. Only successfully scored documents are
// recorded; failures stay eligible for the next run.
package history

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"time"

	"github.com/vtikhonov/cv-screener/internal/batch"
)

// Entry records the outcome for one screened document, keyed by
// content fingerprint rather than filename.
type Entry struct {
	Fingerprint string    `json:"fingerprint"`
	Name        string    `json:"name"`
	Fit         bool      `json:"fit"`
	Score       float64   `json:"score"`
	Reason      string    `json:"reason,omitempty"`
	ScreenedAt  time.Time `json:"screened_at"`
}

type History struct {
	Items []*Entry
}

// FromFile loads history from path. A missing or empty file yields an
// empty history.
func FromFile(path string) (*History, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &History{}, nil
		}
		return nil, err
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return nil, err
	}

	if stat.Size() == 0 {
		return &History{}, nil
	}

	var history History
	if err := json.NewDecoder(file).Decode(&history); err != nil {
		return nil, err
	}
	return &history, nil
}

func (h *History) ToFile(path string) error {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(h); err != nil {
		return err
	}
	return nil
}

func (h *History) Append(entries ...*Entry) {
	h.Items = append(h.Items, entries...)
}

func (h *History) Len() int {
	return len(h.Items)
}

func (h *History) Fingerprints() []string {
	fingerprints := make([]string, 0, len(h.Items))
	for _, entry := range h.Items {
		fingerprints = append(fingerprints, entry.Fingerprint)
	}
	return fingerprints
}

func (h *History) FindByFingerprint(fingerprint string) *Entry {
	for _, entry := range h.Items {
		if entry.Fingerprint == fingerprint {
			return entry
		}
	}
	return nil
}

// EntriesFromItems converts successfully scored work items into history
// entries. Items with error results are skipped.
func EntriesFromItems(items []*batch.Item) []*Entry {
	var entries []*Entry
	for _, item := range items {
		if item.Result == nil || item.Result.Failed() {
			continue
		}

		entries = append(entries, &Entry{
			Fingerprint: item.Doc.Fingerprint,
			Name:        item.Doc.Name,
			Fit:         item.Result.Fit,
			Score:       item.Result.Score,
			Reason:      item.Result.Reason,
			ScreenedAt:  time.Now().UTC(),
		})
	}
	return entries
}
