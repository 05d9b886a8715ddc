// Package render turns build records and loadout tables into Markdown and HTML.
package render

import (
	"fmt"
	"html"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"ghostbuild/internal/build"
	"ghostbuild/internal/pipeline"
)

const imgStyle = `width="32" height="32" style="margin-right:4px;border:1px solid #666;border-radius:4px;"`

// IconFunc returns an image URL for an item name, or "" when none is known
type IconFunc func(name string) string

// MapIcons resolves icons from a name → URL map
func MapIcons(m map[string]string) IconFunc {
	return func(name string) string { return m[name] }
}

// CardPath is where a record's card sits next to its JSON
func CardPath(dir string, key pipeline.Key) string {
	return filepath.Join(dir, key.Base()+"_build.md")
}

// BuildCard renders one record as a Markdown card
func BuildCard(rec *pipeline.Record) string {
	var b strings.Builder
	spec := rec.Spec

	title := spec.Champion
	if title == "" {
		title = "Build"
	}
	fmt.Fprintf(&b, "# %s\n\n", title)
	fmt.Fprintf(&b, "`%s` · `%s` · `%s`\n\n", spec.Mode, spec.Tier, spec.Window)
	if spec.Source != "" {
		fmt.Fprintf(&b, "Source: %s\n\n", spec.Source)
	}

	fmt.Fprintf(&b, "**鞋子**：%s\n\n", rec.Build.Boots)
	b.WriteString("## 出裝順序\n\n")
	for i, item := range rec.Build.Order {
		fmt.Fprintf(&b, "%d. %s\n", i+1, item)
	}
	if rec.Rationale.Degenerate {
		b.WriteString("\n> Fewer than five distinct items were available; the order repeats.\n")
	}

	th := rec.Rationale.Thresholds
	b.WriteString("\n## Thresholds\n\n")
	b.WriteString("| Key | Value |\n|---|---:|\n")
	rows := []struct {
		k string
		v float64
	}{
		{"P25", th.P25}, {"P50", th.P50}, {"P75", th.P75},
		{"W50", th.W50}, {"W75", th.W75},
		{"GlobalAvgWin", th.GlobalAvgWin},
		{"PickCut", th.PickCut}, {"WinCut", th.WinCut},
		{"max_pick", th.MaxPick}, {"Tau", th.Tau},
	}
	for _, r := range rows {
		fmt.Fprintf(&b, "| %s | %.4f |\n", r.k, r.v)
	}
	fmt.Fprintf(&b, "| tier | %s |\n", th.Tier)
	fmt.Fprintf(&b, "| top_sets_used | %d |\n", rec.Rationale.TopSetsUsed)

	if len(rec.Rationale.Supports) > 0 {
		parts := make([]string, len(rec.Rationale.Supports))
		for i, s := range rec.Rationale.Supports {
			parts[i] = fmt.Sprintf("%.3f", s)
		}
		fmt.Fprintf(&b, "\nSupports: %s\n", strings.Join(parts, ", "))
	}
	return b.String()
}

// SetsTable renders the best topK loadouts by win rate then games.
// topK <= 0 keeps every set.
func SetsTable(sets []build.BuiltSet, topK int, icons IconFunc) string {
	sorted := make([]build.BuiltSet, 0, len(sets))
	for _, s := range sets {
		if len(s.Items) == 5 {
			sorted = append(sorted, s)
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].SetWinRate != sorted[j].SetWinRate {
			return sorted[i].SetWinRate > sorted[j].SetWinRate
		}
		return sorted[i].SetSampleSize > sorted[j].SetSampleSize
	})
	if topK > 0 && len(sorted) > topK {
		sorted = sorted[:topK]
	}

	var b strings.Builder
	b.WriteString("| Set | Win | Pick | Games |\n")
	b.WriteString("|---|---:|---:|---:|\n")
	for _, s := range sorted {
		fmt.Fprintf(&b, "| %s | %.2f%% | %.2f%% | %d |\n",
			setCell(s.Items, icons), s.SetWinRate*100, s.SetPickRate*100, s.SetSampleSize)
	}
	return b.String()
}

func setCell(items []string, icons IconFunc) string {
	if icons != nil {
		var tags []string
		for _, name := range items {
			if u := icons(name); u != "" {
				tags = append(tags, fmt.Sprintf(`<img src="%s" alt="%s" %s />`,
					html.EscapeString(u), html.EscapeString(name), imgStyle))
			}
		}
		if len(tags) > 0 {
			return strings.Join(tags, "")
		}
	}
	return strings.Join(items, " / ")
}

// IndexEntry is one line of the index page
type IndexEntry struct {
	Champion string
	Boots    string
	Order    []string
	Card     string
}

// EntryFor builds the index entry of a record whose card is named card
func EntryFor(rec *pipeline.Record, card string) IndexEntry {
	return IndexEntry{
		Champion: rec.Spec.Champion,
		Boots:    rec.Build.Boots,
		Order:    rec.Build.Order,
		Card:     card,
	}
}

// Index renders the list of build cards under a heading
func Index(title string, entries []IndexEntry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", title)
	for _, e := range entries {
		fmt.Fprintf(&b, "- **%s**｜鞋：%s｜順序：`%s` ｜ [卡片](%s)\n",
			e.Champion, e.Boots, strings.Join(e.Order, " → "), e.Card)
	}
	return b.String()
}

// CollectIndex reads every *_build.json record in dir, sorted by file name
func CollectIndex(dir string) ([]IndexEntry, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*_build.json"))
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	sort.Strings(paths)

	entries := make([]IndexEntry, 0, len(paths))
	for _, p := range paths {
		rec, err := pipeline.ReadRecord(p)
		if err != nil {
			return nil, err
		}
		card := strings.TrimSuffix(filepath.Base(p), ".json") + ".md"
		entries = append(entries, EntryFor(rec, card))
	}
	return entries, nil
}

// WriteFile writes content to path, creating parent directories
func WriteFile(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	return os.WriteFile(path, []byte(content), 0644)
}

