package tags

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/dmitrijs2005/flogger/internal/client/models"
)

// DateLayout is how entry dates are written to the index file.
const DateLayout = "2006-01-02T15:04:05.000Z07:00"

var headingLine = regexp.MustCompile(`(?m)^# (.*)$`)

// Map is tag -> document path -> dates of the entries carrying the tag.
// Paths are normalised; date slices are sorted and free of duplicates.
type Map map[string]map[string][]time.Time

// Extract returns the tags of one entry: every whitespace-separated word of
// every "# " heading line, first occurrence order, without duplicates.
func Extract(text string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, m := range headingLine.FindAllStringSubmatch(text, -1) {
		for _, tag := range strings.Fields(m[1]) {
			if _, ok := seen[tag]; ok {
				continue
			}
			seen[tag] = struct{}{}
			out = append(out, tag)
		}
	}
	return out
}

// Recompute builds the contribution of doc alone.
func Recompute(doc *models.Document) Map {
	path := models.NormalizePath(doc.Path)
	out := make(Map)
	for _, e := range doc.Entries {
		for _, tag := range Extract(e.Text) {
			docs, ok := out[tag]
			if !ok {
				docs = make(map[string][]time.Time)
				out[tag] = docs
			}
			docs[path] = append(docs[path], e.Date)
		}
	}
	for _, docs := range out {
		docs[path] = uniqueDates(docs[path])
	}
	return out
}

// Merge returns existing with the contribution of path replaced by perDoc.
// Tags that lose their last document are removed. Neither input is modified.
func Merge(existing, perDoc Map, path string) Map {
	key := models.PathKey(path)
	out := make(Map, len(existing)+len(perDoc))
	for tag, docs := range existing {
		kept := make(map[string][]time.Time, len(docs))
		for p, dates := range docs {
			if models.PathKey(p) == key {
				continue
			}
			kept[p] = append([]time.Time(nil), dates...)
		}
		if len(kept) > 0 {
			out[tag] = kept
		}
	}
	for tag, docs := range perDoc {
		for p, dates := range docs {
			if models.PathKey(p) != key || len(dates) == 0 {
				continue
			}
			if out[tag] == nil {
				out[tag] = make(map[string][]time.Time)
			}
			out[tag][models.NormalizePath(p)] = uniqueDates(dates)
		}
	}
	return out
}

// Normalize folds paths that differ only in case or form, unions their
// dates and drops empty tags.
func Normalize(m Map) Map {
	out := make(Map, len(m))
	for tag, docs := range m {
		byKey := make(map[string]string)
		folded := make(map[string][]time.Time)
		for p, dates := range docs {
			key := models.PathKey(p)
			name, ok := byKey[key]
			if !ok {
				name = models.NormalizePath(p)
				byKey[key] = name
			}
			folded[name] = append(folded[name], dates...)
		}
		for name, dates := range folded {
			if len(dates) == 0 {
				delete(folded, name)
				continue
			}
			folded[name] = uniqueDates(dates)
		}
		if len(folded) > 0 {
			out[tag] = folded
		}
	}
	return out
}

// Clone returns a deep copy of m.
func (m Map) Clone() Map {
	out := make(Map, len(m))
	for tag, docs := range m {
		c := make(map[string][]time.Time, len(docs))
		for p, dates := range docs {
			c[p] = append([]time.Time(nil), dates...)
		}
		out[tag] = c
	}
	return out
}

// MarshalJSON writes the tuple form
// [["tag", [["/path", ["2024-01-01T10:00:00.000Z"]]]]] sorted by tag and path.
func (m Map) MarshalJSON() ([]byte, error) {
	out := make([]any, 0, len(m))
	for _, tag := range sortedKeys(m) {
		docs := m[tag]
		pairs := make([]any, 0, len(docs))
		for _, p := range sortedKeys(docs) {
			dates := make([]string, 0, len(docs[p]))
			for _, d := range docs[p] {
				dates = append(dates, d.UTC().Format(DateLayout))
			}
			pairs = append(pairs, []any{p, dates})
		}
		out = append(out, []any{tag, pairs})
	}
	return json.Marshal(out)
}

type pair [2]json.RawMessage

// UnmarshalJSON reads the tuple form. Repeated tags or paths are merged.
func (m *Map) UnmarshalJSON(data []byte) error {
	var tuples []pair
	if err := json.Unmarshal(data, &tuples); err != nil {
		return err
	}
	raw := make(Map, len(tuples))
	for i, t := range tuples {
		var tag string
		if err := json.Unmarshal(t[0], &tag); err != nil {
			return fmt.Errorf("tag %d: %w", i, err)
		}
		var docs []pair
		if err := json.Unmarshal(t[1], &docs); err != nil {
			return fmt.Errorf("tag %q: %w", tag, err)
		}
		if raw[tag] == nil {
			raw[tag] = make(map[string][]time.Time)
		}
		for _, d := range docs {
			var p string
			var dates []string
			if err := json.Unmarshal(d[0], &p); err != nil {
				return fmt.Errorf("tag %q: path: %w", tag, err)
			}
			if err := json.Unmarshal(d[1], &dates); err != nil {
				return fmt.Errorf("tag %q: %s: %w", tag, p, err)
			}
			for _, s := range dates {
				ts, err := time.Parse(time.RFC3339Nano, s)
				if err != nil {
					return fmt.Errorf("tag %q: %s: %w", tag, p, err)
				}
				raw[tag][p] = append(raw[tag][p], ts)
			}
		}
	}
	*m = Normalize(raw)
	return nil
}

func uniqueDates(dates []time.Time) []time.Time {
	out := append([]time.Time(nil), dates...)
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	n := 0
	for i, d := range out {
		if i > 0 && d.Equal(out[n-1]) {
			continue
		}
		out[n] = d
		n++
	}
	return out[:n]
}

func sameDay(a, b time.Time) bool {
	a = a.In(b.Location())
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
