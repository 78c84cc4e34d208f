// Package file provides file-based persistence for sessions and suspended threads.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dukex/docflow/pkg/persistence"
)

const (
	sessionsDir  = "sessions"
	snapshotsDir = "snapshots"
)

// Persistence implements the persistence.Persistence interface using the file system.
// Each record is a pretty-printed JSON document named after its identifier.
type Persistence struct {
	root         string
	sessionRepo  *SessionRepository
	snapshotRepo *SnapshotRepository
}

// NewPersistence creates a new instance of Persistence with the specified root directory.
func NewPersistence(root string) *Persistence {
	cleanRoot := strings.Replace(root, "file://", "", 1)

	return &Persistence{
		root:         cleanRoot,
		sessionRepo:  NewSessionRepository(filepath.Join(cleanRoot, sessionsDir)),
		snapshotRepo: NewSnapshotRepository(filepath.Join(cleanRoot, snapshotsDir)),
	}
}

func (fp *Persistence) Sessions() persistence.SessionRepository {
	return fp.sessionRepo
}

func (fp *Persistence) Snapshots() persistence.SnapshotRepository {
	return fp.snapshotRepo
}

// Close performs any necessary cleanup. For file-based persistence, there is nothing to clean up.
func (fp *Persistence) Close(_ context.Context) error {
	return nil
}

// HealthCheck checks if the file persistence layer is healthy by verifying the root directory exists.
func (fp *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(fp.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

func writeJSON(dir, id string, v any) error {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dir, id+".json"), data, 0600); err != nil {
		return fmt.Errorf("failed to write record file: %w", err)
	}

	return nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path) // #nosec G304 -- path is built from a validated id or globbed within the store directory
	if err != nil {
		return err
	}

	return json.Unmarshal(data, v)
}

func recordFiles(dir string) ([]string, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("failed to glob records in %s: %w", dir, err)
	}

	return files, nil
}
