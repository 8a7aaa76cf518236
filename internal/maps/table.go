// Package maps assembles decoded map scenes from a disc image.
package maps

import (
	"errors"
	"fmt"
	"path"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Faultbox/fftmap/pkg/disc"
)

// Map number range.
const (
	MinMap = 1
	MaxMap = 119
)

// Table errors.
var (
	ErrUnknownMap   = errors.New("unknown map")
	ErrMapRange     = errors.New("map number out of range")
	ErrDuplicateMap = errors.New("duplicate map number")
)

// Entry locates one map's GNS directory.
type Entry struct {
	Map    int    `yaml:"map"`
	Sector int    `yaml:"sector"`
	Length int    `yaml:"length,omitempty"` // GNS byte length; zero means one sector
	Name   string `yaml:"name,omitempty"`
}

// Table maps map numbers to GNS directory sectors. It is read-only once
// built and safe for concurrent use.
type Table struct {
	entries map[int]Entry
}

// TableFromEntries builds a table from explicit entries.
func TableFromEntries(entries []Entry) (*Table, error) {
	t := &Table{entries: make(map[int]Entry, len(entries))}
	for _, e := range entries {
		if e.Map < MinMap || e.Map > MaxMap {
			return nil, fmt.Errorf("%w: %d", ErrMapRange, e.Map)
		}
		if _, ok := t.entries[e.Map]; ok {
			return nil, fmt.Errorf("%w: %d", ErrDuplicateMap, e.Map)
		}
		t.entries[e.Map] = e
	}
	return t, nil
}

// TableFromYAML builds a table from a YAML list of entries.
func TableFromYAML(data []byte) (*Table, error) {
	var entries []Entry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parsing map table: %w", err)
	}
	return TableFromEntries(entries)
}

// MarshalYAML writes the table as a sorted entry list.
func (t *Table) MarshalYAML() (any, error) {
	return t.Entries(), nil
}

// Entries returns every entry ordered by map number.
func (t *Table) Entries() []Entry {
	out := make([]Entry, 0, len(t.entries))
	for _, m := range t.Maps() {
		out = append(out, t.entries[m])
	}
	return out
}

// TableFromISO scans dir on the image for MAPnnn.GNS files.
func TableFromISO(img *disc.Image, dir string) (*Table, error) {
	files, err := img.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", dir, err)
	}

	var entries []Entry
	for _, f := range files {
		n, ok := parseGNSName(f.Name)
		if !ok || f.Dir || n < MinMap || n > MaxMap {
			continue
		}
		entries = append(entries, Entry{
			Map:    n,
			Sector: f.Sector,
			Length: f.Size,
			Name:   path.Join(dir, f.Name),
		})
	}
	return TableFromEntries(entries)
}

// parseGNSName extracts nnn from "MAPnnn.GNS".
func parseGNSName(name string) (int, bool) {
	upper := strings.ToUpper(name)
	if !strings.HasPrefix(upper, "MAP") || !strings.HasSuffix(upper, ".GNS") {
		return 0, false
	}
	n, err := strconv.Atoi(upper[3 : len(upper)-4])
	if err != nil {
		return 0, false
	}
	return n, true
}

// Lookup returns the entry for a map number.
func (t *Table) Lookup(m int) (Entry, error) {
	e, ok := t.entries[m]
	if !ok {
		return Entry{}, fmt.Errorf("%w: %d", ErrUnknownMap, m)
	}
	return e, nil
}

// Maps returns every known map number in ascending order.
func (t *Table) Maps() []int {
	out := make([]int, 0, len(t.entries))
	for m := range t.entries {
		out = append(out, m)
	}
	sort.Ints(out)
	return out
}

// Len returns the number of maps in the table.
func (t *Table) Len() int {
	return len(t.entries)
}
