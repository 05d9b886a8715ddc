package pipeline

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"

	"ghostbuild/internal/build"
)

// Spec echoes the inputs of a run
type Spec struct {
	Champion string `json:"champion,omitempty"`
	Mode     string `json:"mode"`
	Tier     string `json:"tier"`
	Window   string `json:"window"`
	Source   string `json:"source,omitempty"`
}

// Build is the recommended loadout
type Build struct {
	Boots string   `json:"boots"`
	Order []string `json:"order"`
}

// Record is the persisted output of one run
type Record struct {
	Spec      Spec            `json:"spec"`
	Build     Build           `json:"build"`
	Rationale build.Rationale `json:"rationale"`
}

// Key rebuilds the run key from the record
func (r *Record) Key() Key {
	return Key{Champion: r.Spec.Champion, Mode: r.Spec.Mode, Tier: r.Spec.Tier, Window: r.Spec.Window}
}

// WriteJSON encodes rec with two-space indentation and returns the SHA-256
// of the bytes written
func WriteJSON(w io.Writer, rec *Record) (string, error) {
	hasher := sha256.New()
	enc := json.NewEncoder(io.MultiWriter(w, hasher))
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(rec); err != nil {
		return "", fmt.Errorf("failed to encode record: %w", err)
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// RecordPath is where SaveRecord writes rec under dir
func RecordPath(dir string, key Key) string {
	return filepath.Join(dir, key.Base()+"_build.json")
}

// SaveRecord writes rec to path, creating parent directories
func SaveRecord(path string, rec *Record) (string, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	sum, err := WriteJSON(f, rec)
	if err != nil {
		return "", err
	}
	return sum, f.Close()
}

// ReadRecord loads a record written by SaveRecord
func ReadRecord(path string) (*Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read record: %w", err)
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to parse record %s: %w", path, err)
	}
	return &rec, nil
}
