package itemmap

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

var csvHeader = []string{"item_id", "en_name", "local_name", "tags", "ddragon_version"}

// WriteCSV writes the map ordered by item ID
func (r *Registry) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, it := range r.Items() {
		row := []string{strconv.Itoa(it.ID), it.English, it.Local, strings.Join(it.Tags, ","), it.Version}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV replaces the registry contents with a map written by WriteCSV.
// The third column may carry any local-name header, e.g. zh_tw_name.
func (r *Registry) ReadCSV(rd io.Reader) error {
	cr := csv.NewReader(rd)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return fmt.Errorf("failed to read item map header: %w", err)
	}
	if len(header) < 3 || strings.TrimSpace(header[0]) != "item_id" {
		return fmt.Errorf("unexpected item map header %v", header)
	}

	var items []Item
	version := ""
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read item map: %w", err)
		}
		id, err := strconv.Atoi(strings.TrimSpace(rec[0]))
		if err != nil {
			continue
		}
		it := Item{ID: id, English: field(rec, 1), Local: field(rec, 2)}
		if tags := field(rec, 3); tags != "" {
			it.Tags = strings.Split(tags, ",")
		}
		it.Version = field(rec, 4)
		if version == "" {
			version = it.Version
		}
		items = append(items, it)
	}

	r.replace(items, version, "")
	return nil
}

func field(rec []string, i int) string {
	if i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

// Meta describes a saved item map
type Meta struct {
	Version     string `json:"ddragon_version"`
	Lang        string `json:"lang"`
	GeneratedAt string `json:"generated_at"`
	RowCount    int    `json:"row_count"`
}

// Save writes items_map_<version>.csv, a latest copy items_map.csv and
// items_map_meta.json under dir. It returns the versioned path.
func (r *Registry) Save(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create item map directory: %w", err)
	}

	versioned := filepath.Join(dir, fmt.Sprintf("items_map_%s.csv", r.Version()))
	for _, path := range []string{versioned, filepath.Join(dir, "items_map.csv")} {
		if err := r.writeCSVFile(path); err != nil {
			return "", err
		}
	}

	r.mu.RLock()
	meta := Meta{
		Version:     r.version,
		Lang:        r.lang,
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
		RowCount:    len(r.items),
	}
	r.mu.RUnlock()

	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(filepath.Join(dir, "items_map_meta.json"), data, 0644); err != nil {
		return "", fmt.Errorf("failed to write item map meta: %w", err)
	}
	return versioned, nil
}

func (r *Registry) writeCSVFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()
	if err := r.WriteCSV(f); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}

// LoadFile reads a saved item map CSV
func (r *Registry) LoadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open item map: %w", err)
	}
	defer f.Close()
	return r.ReadCSV(f)
}
