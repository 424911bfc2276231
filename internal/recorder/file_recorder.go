// Package recorder implements a file-backed bridge-transaction recorder.
// The latest receipt is written to a well-known JSON file so external
// consumers (a dashboard poller, an explorer link) can pick it up without
// talking to the agent.
package recorder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/signalvault/vaultagent/internal/domain"
)

// FileRecorder implements domain.BridgeTxRecorder on a single JSON file.
// Writes go through a temp file and rename so readers never observe a
// partial document.
type FileRecorder struct {
	mu   sync.Mutex
	path string
}

// NewFileRecorder creates a FileRecorder writing to path. The parent
// directory is created on first Record.
func NewFileRecorder(path string) *FileRecorder {
	return &FileRecorder{path: path}
}

// Record overwrites the file with the given receipt.
func (f *FileRecorder) Record(ctx context.Context, receipt domain.BridgeReceipt) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return fmt.Errorf("recorder: mkdir %s: %w", filepath.Dir(f.path), err)
	}

	data, err := json.MarshalIndent(receipt, "", "  ")
	if err != nil {
		return fmt.Errorf("recorder: marshal receipt: %w", err)
	}

	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("recorder: write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("recorder: rename %s: %w", f.path, err)
	}
	return nil
}

// Latest reads the most recently recorded receipt, or ErrNotFound when no
// bridge has run yet.
func (f *FileRecorder) Latest(ctx context.Context) (domain.BridgeReceipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return domain.BridgeReceipt{}, domain.ErrNotFound
		}
		return domain.BridgeReceipt{}, fmt.Errorf("recorder: read %s: %w", f.path, err)
	}

	var receipt domain.BridgeReceipt
	if err := json.Unmarshal(data, &receipt); err != nil {
		return domain.BridgeReceipt{}, fmt.Errorf("recorder: unmarshal %s: %w", f.path, err)
	}
	return receipt, nil
}

// Compile-time interface check.
var _ domain.BridgeTxRecorder = (*FileRecorder)(nil)
