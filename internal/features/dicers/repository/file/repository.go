package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"dicers-bot/internal/features/dicers/models"
	"dicers-bot/internal/features/dicers/repository"
)

const corruptSuffix = ".corrupt"

type fileRepository struct {
	mu   sync.Mutex
	path string
}

// NewFileSnapshotRepository keeps the snapshot in a JSON file. Writes go to a
// temporary file first and are renamed into place.
func NewFileSnapshotRepository(path string) repository.SnapshotRepository {
	return &fileRepository{path: path}
}

func (r *fileRepository) Load(_ context.Context) (*models.Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := os.ReadFile(r.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, repository.ErrNoSnapshot
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}
	var snapshot models.Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		// Move the file aside so the next save does not destroy it.
		if renameErr := os.Rename(r.path, r.path+corruptSuffix); renameErr != nil {
			return nil, fmt.Errorf("%w: %v (keeping file: %v)", repository.ErrCorruptSnapshot, err, renameErr)
		}
		return nil, fmt.Errorf("%w: %v", repository.ErrCorruptSnapshot, err)
	}
	return &snapshot, nil
}

func (r *fileRepository) Save(_ context.Context, snapshot *models.Snapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	if dir := filepath.Dir(r.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	tmp := r.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, r.path)
}

func (r *fileRepository) Ping(_ context.Context) error {
	dir := filepath.Dir(r.path)
	info, err := os.Stat(dir)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}
	return nil
}
