// Package state persists the in-memory host between CLI runs.
package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"tokenswap/internal/ledger"
	"tokenswap/internal/model"
)

// Snapshot is the full contents of the in-memory ledger and pool store.
type Snapshot struct {
	Accounts  []ledger.Account `json:"accounts"`
	Pools     []model.Pool     `json:"pools"`
	UpdatedAt string           `json:"updated_at"`
}

// FileStore persists snapshots to disk.
type FileStore struct {
	path    string
	enabled bool
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path, enabled: path != ""}
}

func (f *FileStore) Load() (Snapshot, bool, error) {
	if !f.enabled {
		return Snapshot{}, false, nil
	}

	stat, err := os.Stat(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return Snapshot{}, false, nil
		}
		return Snapshot{}, false, fmt.Errorf("stat state file: %w", err)
	}
	if stat.IsDir() {
		return Snapshot{}, false, fmt.Errorf("state path is a directory")
	}

	data, err := os.ReadFile(f.path)
	if err != nil {
		return Snapshot{}, false, fmt.Errorf("read state file: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, false, fmt.Errorf("parse state file: %w", err)
	}

	return snap, true, nil
}

// Save writes the snapshot atomically via a temporary file and rename.
func (f *FileStore) Save(snap Snapshot) error {
	if !f.enabled {
		return nil
	}

	dir := filepath.Dir(f.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create state dir: %w", err)
		}
	}

	snap.UpdatedAt = time.Now().UTC().Format(time.RFC3339Nano)
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	tmpPath := f.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write state tmp: %w", err)
	}
	if err := os.Rename(tmpPath, f.path); err != nil {
		return fmt.Errorf("rename state: %w", err)
	}

	return nil
}
