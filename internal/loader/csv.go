package loader

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"ghostbuild/internal/build"
)

var (
	nameAliases    = []string{"name", "item", "item_name", "物品", "道具", "裝備"}
	winAliases     = []string{"win_rate", "winrate", "win%", "wr", "勝率"}
	pickAliases    = []string{"pick_rate", "pickrate", "pick%", "pr", "選用率", "出場率", "選取率", "登場率"}
	sampleAliases  = []string{"sample_size", "games", "matches", "count", "對局數", "場次"}
	itemsAliases   = []string{"items", "set", "build", "combo", "組合", "套裝", "出裝"}
	setWinAliases  = append([]string{"set_win_rate", "set_winrate"}, winAliases...)
	setPickAliases = append([]string{"set_pick_rate", "set_pickrate"}, pickAliases...)
	setSampAliases = append([]string{"set_sample_size"}, sampleAliases...)
)

var itemColRe = regexp.MustCompile(`^item[_ ]?(\d+)$`)

type table struct {
	header []string
	index  map[string]int
	rows   [][]string
	lines  []int
}

func readTable(r io.Reader) (*table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: empty table", ErrMissingColumn)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	t := &table{index: make(map[string]int, len(header))}
	for i, h := range header {
		h = normalizeHeader(h)
		t.header = append(t.header, h)
		if _, dup := t.index[h]; !dup {
			t.index[h] = i
		}
	}

	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row: %w", err)
		}
		line, _ := cr.FieldPos(0)
		t.rows = append(t.rows, rec)
		t.lines = append(t.lines, line)
	}
	return t, nil
}

// col returns the index of the first alias present, or -1
func (t *table) col(aliases []string) int {
	for _, a := range aliases {
		if i, ok := t.index[strings.ToLower(a)]; ok {
			return i
		}
	}
	return -1
}

func (t *table) require(label string, aliases []string) (int, error) {
	i := t.col(aliases)
	if i < 0 {
		return -1, fmt.Errorf("%w: %s (accepted headers: %s)", ErrMissingColumn, label, strings.Join(aliases, ", "))
	}
	return i, nil
}

// itemColumns returns item1..itemN columns in numeric order
func (t *table) itemColumns() []int {
	type numbered struct{ n, idx int }
	var cols []numbered
	for i, h := range t.header {
		if m := itemColRe.FindStringSubmatch(h); m != nil {
			n, _ := strconv.Atoi(m[1])
			cols = append(cols, numbered{n, i})
		}
	}
	sort.Slice(cols, func(a, b int) bool { return cols[a].n < cols[b].n })
	out := make([]int, len(cols))
	for i, c := range cols {
		out[i] = c.idx
	}
	return out
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// ReadWinningCSV reads a winning-items table. Duplicate names keep their
// first row.
func (l *Loader) ReadWinningCSV(r io.Reader) ([]build.WinningItem, Report, error) {
	rep := Report{Table: "winning"}
	t, err := readTable(r)
	if err != nil {
		return nil, rep, err
	}

	nameCol, err := t.require("name", nameAliases)
	if err != nil {
		return nil, rep, err
	}
	winCol, err := t.require("win_rate", winAliases)
	if err != nil {
		return nil, rep, err
	}
	pickCol, err := t.require("pick_rate", pickAliases)
	if err != nil {
		return nil, rep, err
	}
	sampleCol := t.col(sampleAliases)

	seen := newDedupe(len(t.rows))
	var out []build.WinningItem
	for i, row := range t.rows {
		rep.Rows++
		line := t.lines[i]

		win, err := parseRate(cell(row, winCol))
		if err != nil {
			rep.reject(line, "win_rate: %v", err)
			continue
		}
		pick, err := parseRate(cell(row, pickCol))
		if err != nil {
			rep.reject(line, "pick_rate: %v", err)
			continue
		}
		samples, err := parseCount(cell(row, sampleCol))
		if err != nil {
			rep.reject(line, "sample_size: %v", err)
			continue
		}

		wr := winningRow{Name: l.name(cell(row, nameCol)), WinRate: win, PickRate: pick, SampleSize: samples}
		if err := l.validate.Struct(wr); err != nil {
			rep.reject(line, "%s", describe(err))
			continue
		}
		if !seen.first(wr.Name) {
			rep.Duplicates++
			continue
		}
		out = append(out, wr.item())
		rep.Accepted++
	}

	l.logReport(rep)
	return out, rep, nil
}

// ReadSetsCSV reads a built-sets table. Items come from one delimited
// column or from item1..item5 columns.
func (l *Loader) ReadSetsCSV(r io.Reader) ([]build.BuiltSet, Report, error) {
	rep := Report{Table: "sets"}
	t, err := readTable(r)
	if err != nil {
		return nil, rep, err
	}

	itemsCol := t.col(itemsAliases)
	itemCols := t.itemColumns()
	if itemsCol < 0 && len(itemCols) == 0 {
		return nil, rep, fmt.Errorf("%w: items (accepted headers: %s, item1..item5)", ErrMissingColumn, strings.Join(itemsAliases, ", "))
	}
	winCol, err := t.require("set_win_rate", setWinAliases)
	if err != nil {
		return nil, rep, err
	}
	pickCol, err := t.require("set_pick_rate", setPickAliases)
	if err != nil {
		return nil, rep, err
	}
	sampleCol := t.col(setSampAliases)

	var out []build.BuiltSet
	for i, row := range t.rows {
		rep.Rows++
		line := t.lines[i]

		var items []string
		if itemsCol >= 0 {
			items = splitItems(cell(row, itemsCol))
		} else {
			for _, c := range itemCols {
				if v := cell(row, c); v != "" {
					items = append(items, v)
				}
			}
		}
		for j := range items {
			items[j] = l.name(items[j])
		}

		win, err := parseRate(cell(row, winCol))
		if err != nil {
			rep.reject(line, "set_win_rate: %v", err)
			continue
		}
		pick, err := parseRate(cell(row, pickCol))
		if err != nil {
			rep.reject(line, "set_pick_rate: %v", err)
			continue
		}
		samples, err := parseCount(cell(row, sampleCol))
		if err != nil {
			rep.reject(line, "set_sample_size: %v", err)
			continue
		}

		sr := setRow{Items: items, SetWinRate: win, SetPickRate: pick, SetSampleSize: samples}
		if err := l.validate.Struct(sr); err != nil {
			rep.reject(line, "%s", describe(err))
			continue
		}
		out = append(out, sr.set())
		rep.Accepted++
	}

	l.logReport(rep)
	return out, rep, nil
}

// ReadWinningCSV reads a winning-items table with default rules
func ReadWinningCSV(r io.Reader) ([]build.WinningItem, Report, error) {
	return New().ReadWinningCSV(r)
}

// ReadSetsCSV reads a built-sets table with default rules
func ReadSetsCSV(r io.Reader) ([]build.BuiltSet, Report, error) {
	return New().ReadSetsCSV(r)
}
