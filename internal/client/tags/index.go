// Package tags maintains the tag index: which documents carry which heading
// tags, and on which entry dates. The index is derived data stored next to
// the journals; losing an update is tolerated.
package tags

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/flogger/internal/client/models"
	"github.com/dmitrijs2005/flogger/internal/client/store"
	"github.com/dmitrijs2005/flogger/internal/common"
	"github.com/dmitrijs2005/flogger/internal/logging"
)

// Documents is the subset of the document store the index persists through.
type Documents interface {
	Load(ctx context.Context, path string) (store.Content, error)
	Save(ctx context.Context, path, rev, content string) (string, error)
	Create(ctx context.Context, path, content string) (string, error)
}

type Index struct {
	docs Documents
	path string
	log  logging.Logger

	// update serialises recompute-merge-persist chains.
	update sync.Mutex

	mu   sync.RWMutex
	rev  string
	tags Map
}

// New returns an empty index persisted at path ("" means the default).
func New(docs Documents, path string, log logging.Logger) *Index {
	if path == "" {
		path = common.TagIndexPath
	}
	if log == nil {
		log = logging.Nop{}
	}
	return &Index{
		docs: docs,
		path: models.NormalizePath(path),
		log:  log.With("component", "tags"),
		tags: Map{},
	}
}

func (x *Index) Path() string { return x.path }

// Revision is the revision of the index file last read or written, or "".
func (x *Index) Revision() string {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.rev
}

// Load reads the index file, creating an empty one when it is missing. A
// corrupt file is logged and replaced by an empty map on the next persist.
func (x *Index) Load(ctx context.Context) error {
	x.update.Lock()
	defer x.update.Unlock()
	return x.load(ctx)
}

// load runs with update held.
func (x *Index) load(ctx context.Context) error {
	c, err := x.docs.Load(ctx, x.path)
	if errors.Is(err, common.ErrorNotFound) {
		rev, cerr := x.docs.Create(ctx, x.path, "[]")
		if cerr != nil {
			return fmt.Errorf("create tag index: %w", cerr)
		}
		x.log.Info(ctx, "created tag index", "path", x.path)
		x.set(rev, Map{})
		return nil
	}
	if err != nil {
		return fmt.Errorf("load tag index: %w", err)
	}

	m := Map{}
	if strings.TrimSpace(c.Body) != "" {
		if err := json.Unmarshal([]byte(c.Body), &m); err != nil {
			x.log.Warn(ctx, "tag index unreadable, starting empty", "path", x.path, "err", err)
			m = Map{}
		}
	}
	x.set(c.Revision, m)
	x.log.Debug(ctx, "tag index loaded", "tags", len(m))
	return nil
}

// Persist writes m at the held revision and adopts the new one. Without a
// held revision nothing is written.
func (x *Index) Persist(ctx context.Context, m Map) error {
	rev := x.Revision()
	if rev == "" {
		x.log.Debug(ctx, "tag index not loaded, skipping persist")
		return nil
	}
	body, err := json.MarshalIndent(m, "", "\t")
	if err != nil {
		return fmt.Errorf("encode tag index: %w", err)
	}
	newRev, err := x.docs.Save(ctx, x.path, rev, string(body))
	if err != nil {
		return fmt.Errorf("persist tag index: %w", err)
	}
	x.mu.Lock()
	x.rev = newRev
	x.mu.Unlock()
	return nil
}

// Update recomputes the contribution of doc, merges it into the in-memory
// map and persists the result. The merged map is kept even if the write
// fails.
func (x *Index) Update(ctx context.Context, doc *models.Document) error {
	x.update.Lock()
	defer x.update.Unlock()
	return x.apply(ctx, Recompute(doc), doc.Path)
}

// Forget drops the contribution of path, e.g. after the document is deleted.
func (x *Index) Forget(ctx context.Context, path string) error {
	x.update.Lock()
	defer x.update.Unlock()
	return x.apply(ctx, nil, path)
}

// apply replaces the contribution of path with perDoc and persists. When
// another writer changed the file, the index is reloaded, perDoc merged into
// the fresh map and the write attempted once more. Runs with update held.
func (x *Index) apply(ctx context.Context, perDoc Map, path string) error {
	x.mu.Lock()
	merged := Merge(x.tags, perDoc, path)
	x.tags = merged
	x.mu.Unlock()

	err := x.Persist(ctx, merged)
	if !errors.Is(err, common.ErrVersionConflict) {
		return err
	}

	x.log.Info(ctx, "tag index changed elsewhere, reloading", "path", x.path)
	if lerr := x.load(ctx); lerr != nil {
		return errors.Join(err, lerr)
	}
	x.mu.Lock()
	merged = Merge(x.tags, perDoc, path)
	x.tags = merged
	x.mu.Unlock()
	return x.Persist(ctx, merged)
}

// Reset clears the map and the held revision.
func (x *Index) Reset() { x.set("", Map{}) }

// Snapshot returns a copy of the current map.
func (x *Index) Snapshot() Map {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.tags.Clone()
}

// Tags lists every known tag, sorted.
func (x *Index) Tags() []string {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return sortedKeys(x.tags)
}

// TagsForDocument lists the tags path carries, sorted.
func (x *Index) TagsForDocument(path string) []string {
	return x.collect(path, func([]time.Time) bool { return true })
}

// TagsForDocumentEntryDate lists the tags path carries on the calendar day
// of date, in date's location.
func (x *Index) TagsForDocumentEntryDate(path string, date time.Time) []string {
	return x.collect(path, func(dates []time.Time) bool { return hasDay(dates, date) })
}

// DocumentHasTagOnDate reports whether path has an entry tagged tag on the
// calendar day of date.
func (x *Index) DocumentHasTagOnDate(tag, path string, date time.Time) bool {
	x.mu.RLock()
	defer x.mu.RUnlock()
	key := models.PathKey(path)
	for p, dates := range x.tags[tag] {
		if models.PathKey(p) == key && hasDay(dates, date) {
			return true
		}
	}
	return false
}

// DocumentsForTags returns, for every document carrying any of tags, the
// union of the tagged entry dates.
func (x *Index) DocumentsForTags(tags ...string) map[string][]time.Time {
	x.mu.RLock()
	defer x.mu.RUnlock()
	out := make(map[string][]time.Time)
	for _, tag := range tags {
		for p, dates := range x.tags[tag] {
			out[p] = append(out[p], dates...)
		}
	}
	for p, dates := range out {
		out[p] = uniqueDates(dates)
	}
	return out
}

func (x *Index) collect(path string, match func([]time.Time) bool) []string {
	x.mu.RLock()
	defer x.mu.RUnlock()
	key := models.PathKey(path)
	var out []string
	for tag, docs := range x.tags {
		for p, dates := range docs {
			if models.PathKey(p) == key && match(dates) {
				out = append(out, tag)
				break
			}
		}
	}
	sort.Strings(out)
	return out
}

func (x *Index) set(rev string, m Map) {
	x.mu.Lock()
	x.rev = rev
	x.tags = m
	x.mu.Unlock()
}

func hasDay(dates []time.Time, day time.Time) bool {
	for _, d := range dates {
		if sameDay(d, day) {
			return true
		}
	}
	return false
}
