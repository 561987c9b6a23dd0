package candidate

import (
	"context"
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// intakeConcurrency caps parallel file reads during intake.
const intakeConcurrency = 8

var supportedExtensions = map[string]bool{
	".txt":  true,
	".md":   true,
	".json": true,
	".html": true,
	".htm":  true,
	".pdf":  true,
}

// LoadDir reads every supported document from dir (non-recursive) and
// returns them as a Set in filename order. File contents are loaded
// concurrently; any unreadable file fails the whole intake.
func LoadDir(ctx context.Context, dir string) (*Set, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading documents directory %q: %w", dir, err)
	}

	// os.ReadDir returns entries sorted by filename, which fixes the
	// input order for the whole run.
	docs := make([]*Document, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		if !supportedExtensions[strings.ToLower(filepath.Ext(entry.Name()))] {
			continue
		}

		docs = append(docs, &Document{
			ID:   uuid.NewString(),
			Name: entry.Name(),
			Path: filepath.Join(dir, entry.Name()),
		})
	}

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(intakeConcurrency)

	for _, doc := range docs {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			data, err := os.ReadFile(doc.Path)
			if err != nil {
				return fmt.Errorf("reading document %q: %w", doc.Path, err)
			}

			doc.Data = data
			doc.Size = int64(len(data))
			doc.Fingerprint = fmt.Sprintf("%x", sha256.Sum256(data))
			doc.LoadedAt = time.Now().UTC()

			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}

	return &Set{Items: docs}, nil
}
