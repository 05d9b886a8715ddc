package loader

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/gjson"

	"ghostbuild/internal/build"
	"ghostbuild/internal/pipeline"
)

var (
	requiredWinning = []string{"name", "win_rate", "pick_rate", "sample_size"}
	requiredSets    = []string{"items", "set_win_rate", "set_pick_rate", "set_sample_size"}
)

// LoadSnapshot reads winning.json, sets.json and the optional meta.json of
// an offline snapshot directory. Each payload may be a list of rows, an
// object with a "data" list, or a single row object.
func (l *Loader) LoadSnapshot(dir string) (pipeline.Tables, Reports, error) {
	var reps Reports
	if _, err := os.Stat(dir); err != nil {
		return pipeline.Tables{}, reps, fmt.Errorf("snapshot directory not found: %w", err)
	}

	winRecs, err := readRecords(filepath.Join(dir, "winning.json"), requiredWinning)
	if err != nil {
		return pipeline.Tables{}, reps, err
	}
	setRecs, err := readRecords(filepath.Join(dir, "sets.json"), requiredSets)
	if err != nil {
		return pipeline.Tables{}, reps, err
	}

	icons := make(map[string]string)
	winning, rep := l.snapshotWinning(winRecs, icons)
	reps.Winning = rep
	sets, rep := l.snapshotSets(setRecs, icons)
	reps.Sets = rep

	tables := pipeline.Tables{
		Winning: winning,
		Sets:    sets,
		Source:  snapshotSource(dir),
	}
	if len(icons) > 0 {
		tables.Icons = icons
	}
	return tables, reps, nil
}

// LoadSnapshot reads a snapshot directory with default rules
func LoadSnapshot(dir string) (pipeline.Tables, Reports, error) {
	return New().LoadSnapshot(dir)
}

func readRecords(path string, required []string) ([]gjson.Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("snapshot missing %s: %w", filepath.Base(path), err)
	}
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("%s: %w: invalid JSON", filepath.Base(path), ErrUnsupportedPayload)
	}

	root := gjson.ParseBytes(data)
	var recs []gjson.Result
	switch {
	case root.IsArray():
		recs = root.Array()
	case root.IsObject() && root.Get("data").IsArray():
		recs = root.Get("data").Array()
	case root.IsObject():
		recs = []gjson.Result{root}
	default:
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), ErrUnsupportedPayload)
	}

	// a column exists when any row carries it
	var missing []string
	for _, key := range required {
		found := false
		for _, r := range recs {
			if r.Get(key).Exists() {
				found = true
				break
			}
		}
		if !found && len(recs) > 0 {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%s: %w: %s", filepath.Base(path), ErrMissingColumn, strings.Join(missing, ", "))
	}
	return recs, nil
}

func jsonRate(v gjson.Result) (float64, error) {
	switch v.Type {
	case gjson.Number:
		return normalizeRate(v.Float()), nil
	case gjson.String:
		return parseRate(v.Str)
	default:
		return 0, errors.New("missing value")
	}
}

func jsonCount(v gjson.Result) (int, error) {
	switch v.Type {
	case gjson.Number:
		return int(v.Float()), nil
	case gjson.String:
		return parseCount(v.Str)
	default:
		return 0, nil
	}
}

func jsonStrings(v gjson.Result) []string {
	if v.IsArray() {
		var out []string
		for _, it := range v.Array() {
			if s := strings.TrimSpace(it.String()); s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	return splitItems(v.String())
}

func (l *Loader) snapshotWinning(recs []gjson.Result, icons map[string]string) ([]build.WinningItem, Report) {
	rep := Report{Table: "winning"}
	seen := newDedupe(len(recs))
	var out []build.WinningItem
	for i, r := range recs {
		rep.Rows++
		line := i + 1

		win, err := jsonRate(r.Get("win_rate"))
		if err != nil {
			rep.reject(line, "win_rate: %v", err)
			continue
		}
		pick, err := jsonRate(r.Get("pick_rate"))
		if err != nil {
			rep.reject(line, "pick_rate: %v", err)
			continue
		}
		samples, err := jsonCount(r.Get("sample_size"))
		if err != nil {
			rep.reject(line, "sample_size: %v", err)
			continue
		}

		wr := winningRow{Name: l.name(strings.TrimSpace(r.Get("name").String())), WinRate: win, PickRate: pick, SampleSize: samples}
		if err := l.validate.Struct(wr); err != nil {
			rep.reject(line, "%s", describe(err))
			continue
		}
		if !seen.first(wr.Name) {
			rep.Duplicates++
			continue
		}
		if img := r.Get("img").String(); img != "" {
			icons[wr.Name] = img
		}
		out = append(out, wr.item())
		rep.Accepted++
	}
	l.logReport(rep)
	return out, rep
}

func (l *Loader) snapshotSets(recs []gjson.Result, icons map[string]string) ([]build.BuiltSet, Report) {
	rep := Report{Table: "sets"}
	var out []build.BuiltSet
	for i, r := range recs {
		rep.Rows++
		line := i + 1

		items := jsonStrings(r.Get("items"))
		for j := range items {
			items[j] = l.name(items[j])
		}
		win, err := jsonRate(r.Get("set_win_rate"))
		if err != nil {
			rep.reject(line, "set_win_rate: %v", err)
			continue
		}
		pick, err := jsonRate(r.Get("set_pick_rate"))
		if err != nil {
			rep.reject(line, "set_pick_rate: %v", err)
			continue
		}
		samples, err := jsonCount(r.Get("set_sample_size"))
		if err != nil {
			rep.reject(line, "set_sample_size: %v", err)
			continue
		}

		sr := setRow{Items: items, SetWinRate: win, SetPickRate: pick, SetSampleSize: samples}
		if err := l.validate.Struct(sr); err != nil {
			rep.reject(line, "%s", describe(err))
			continue
		}

		imgs := jsonStrings(r.Get("items_img"))
		for j, img := range imgs {
			if j < len(items) {
				if _, ok := icons[items[j]]; !ok {
					icons[items[j]] = img
				}
			}
		}
		out = append(out, sr.set())
		rep.Accepted++
	}
	l.logReport(rep)
	return out, rep
}

// snapshotSource prefers meta.source, then the compact meta object, then
// the raw meta text, then the directory path
func snapshotSource(dir string) string {
	data, err := os.ReadFile(filepath.Join(dir, "meta.json"))
	if err != nil {
		return dir
	}
	if !gjson.ValidBytes(data) {
		return strings.TrimSpace(string(data))
	}
	meta := gjson.ParseBytes(data)
	if !meta.IsObject() {
		return dir
	}
	if src := meta.Get("source"); src.Exists() && src.String() != "" {
		return src.String()
	}
	return gjson.GetBytes(data, "@ugly").Raw
}
