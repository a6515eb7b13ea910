// Package persistence implements the crash-recoverable position store and
// PnL ledger, both using whole-file-replace semantics: every
// mutation serializes the full in-memory state and renames a temp file over
// the target, so a crash mid-write can never leave a torn record.
package persistence

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"
)

// PositionRecord is the persisted view of one open position.
type PositionRecord struct {
	Symbol         string  `json:"symbol"`
	SizeUSD        float64 `json:"size_usd"`
	Direction      string  `json:"direction"`
	PrimaryFilled  float64 `json:"primary_filled"`
	HedgeFilled    float64 `json:"hedge_filled"`
	PrimaryEntryPx float64 `json:"primary_entry_px"`
	HedgeEntryPx   float64 `json:"hedge_entry_px"`
	IsBalanced     bool    `json:"is_balanced"`
}

// PositionStore persists the open-position map to a single JSON file.
type PositionStore struct {
	path string
}

// NewPositionStore constructs a store backed by path. path defaults to
// ".positions.json" when empty.
func NewPositionStore(path string) *PositionStore {
	if path == "" {
		path = ".positions.json"
	}
	return &PositionStore{path: path}
}

// Save writes positions to disk with whole-file-replace semantics. Errors
// are logged, never raised: a failed save must not crash the controller's
// tick.
func (s *PositionStore) Save(positions map[string]PositionRecord) {
	if err := writeJSONAtomic(s.path, positions); err != nil {
		log.Printf("[PositionStore] failed to save positions to %s: %v", s.path, err)
	}
}

// Load reads the position file. A missing file or a parse failure both
// return an empty map; a corrupted file is logged as critical, not
// propagated.
func (s *PositionStore) Load() map[string]PositionRecord {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("[PositionStore] failed to read %s: %v", s.path, err)
		}
		return make(map[string]PositionRecord)
	}

	var positions map[string]PositionRecord
	if err := json.Unmarshal(data, &positions); err != nil {
		log.Printf("[PositionStore] CRITICAL: corrupt position file %s, treating as empty: %v", s.path, err)
		return make(map[string]PositionRecord)
	}
	if positions == nil {
		positions = make(map[string]PositionRecord)
	}
	return positions
}

// Clear removes the position file, if present.
func (s *PositionStore) Clear() error {
	err := os.Remove(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// writeJSONAtomic marshals v and renames a temp file over path, making the
// replace atomic on POSIX filesystems.
func writeJSONAtomic(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // no-op once renamed

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpPath, path)
}
