// Package flogs composes the document store, the entry codec and the tag
// index into the document-level operations the CLI works with.
package flogs

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/flogger/internal/client/codec"
	"github.com/dmitrijs2005/flogger/internal/client/models"
	"github.com/dmitrijs2005/flogger/internal/client/store"
	"github.com/dmitrijs2005/flogger/internal/common"
	"github.com/dmitrijs2005/flogger/internal/logging"
	"github.com/google/uuid"
)

// Documents is the document store as seen by the aggregator.
type Documents interface {
	List(ctx context.Context) (models.Listing, error)
	Load(ctx context.Context, path string) (store.Content, error)
	Save(ctx context.Context, path, rev, content string) (string, error)
	Create(ctx context.Context, path, content string) (string, error)
	Delete(ctx context.Context, path, rev string) error
	Available() []*models.Document
	AvailableTemplates() []*models.Document
	OnAvailableChange(fn func([]*models.Document)) (cancel func())
	ResetAvailable()
}

// Index is the tag index as seen by the aggregator.
type Index interface {
	Load(ctx context.Context) error
	Update(ctx context.Context, doc *models.Document) error
	Forget(ctx context.Context, path string) error
	Reset()
}

// Connection reports connection changes.
type Connection interface {
	HasConnection() bool
	OnConnectionChange(fn func(bool)) (cancel func())
}

type Options struct {
	Documents  Documents
	Index      Index
	Connection Connection
	Codec      *codec.Codec
	Log        logging.Logger
}

type Aggregator struct {
	docs  Documents
	index Index
	conn  Connection
	codec *codec.Codec
	log   logging.Logger

	newID func() string
	now   func() time.Time

	// work runs index upkeep and reconnect listings in submission order.
	work queue

	mu       sync.Mutex
	open     []*models.Document
	cancels  []func()
	startCtx context.Context
}

func New(opts Options) *Aggregator {
	log := opts.Log
	if log == nil {
		log = logging.Nop{}
	}
	c := opts.Codec
	if c == nil {
		c = codec.New(nil)
	}
	return &Aggregator{
		docs:  opts.Documents,
		index: opts.Index,
		conn:  opts.Connection,
		codec: c,
		log:   log.With("component", "flogs"),
		newID: uuid.NewString,
		now:   time.Now,
	}
}

// Start subscribes to connection and availability changes. If already
// connected it loads the tag index and lists documents before returning.
func (a *Aggregator) Start(ctx context.Context) error {
	a.mu.Lock()
	a.startCtx = ctx
	a.cancels = append(a.cancels,
		a.conn.OnConnectionChange(a.connectionChanged),
		a.docs.OnAvailableChange(a.availableChanged),
	)
	a.mu.Unlock()

	if !a.conn.HasConnection() {
		return nil
	}
	return a.connected(ctx)
}

// Stop removes the subscriptions made by Start and waits for background work.
func (a *Aggregator) Stop() {
	a.mu.Lock()
	cancels := a.cancels
	a.cancels = nil
	a.mu.Unlock()
	for _, c := range cancels {
		c()
	}
	a.Flush()
}

// Flush waits for pending background work.
func (a *Aggregator) Flush() { a.work.wait() }

func (a *Aggregator) connectionChanged(connected bool) {
	if !connected {
		a.index.Reset()
		a.docs.ResetAvailable()
		a.closeAll()
		return
	}
	a.mu.Lock()
	ctx := a.startCtx
	a.mu.Unlock()
	a.background(ctx, func(ctx context.Context) {
		if err := a.connected(ctx); err != nil {
			a.log.Warn(ctx, "initial listing failed", "err", err)
		}
	})
}

func (a *Aggregator) connected(ctx context.Context) error {
	if err := a.index.Load(ctx); err != nil {
		a.log.Warn(ctx, "tag index load failed", "err", err)
	}
	_, err := a.Refresh(ctx)
	return err
}

// Refresh relists the store.
func (a *Aggregator) Refresh(ctx context.Context) (models.Listing, error) {
	return a.docs.List(ctx)
}

// LoadEntries downloads and parses doc in place. When the document is
// missing or does not parse, Status becomes StatusParseError and the entries
// are left as they were.
func (a *Aggregator) LoadEntries(ctx context.Context, doc *models.Document) error {
	c, err := a.docs.Load(ctx, doc.Path)
	if err != nil {
		doc.Status = models.StatusParseError
		return err
	}
	doc.RawContent = c.Body

	parsed, err := a.codec.Parse(c.Body, doc.Name())
	if err != nil {
		doc.Status = models.StatusParseError
		return fmt.Errorf("%s: %w", doc.Path, err)
	}
	doc.Revision = c.Revision
	doc.Entries = parsed.Entries
	doc.Pretext = parsed.Pretext
	doc.Status = models.StatusLoaded
	return nil
}

// SaveEntries writes doc at its current revision and adopts the new one.
// A document whose last load failed is never written. The tag index is updated in the background; its failures are logged only.
func (a *Aggregator) SaveEntries(ctx context.Context, doc *models.Document) error {
	if doc.ReadOnly {
		return fmt.Errorf("%s: %w", doc.Path, common.ErrReadOnly)
	}
	if doc.Status == models.StatusParseError {
		return fmt.Errorf("%s: refusing to overwrite unparsed content: %w", doc.Path, common.ErrParse)
	}
	content := a.codec.Serialize(doc.Entries, doc.Pretext)
	rev, err := a.docs.Save(ctx, doc.Path, doc.Revision, content)
	if err != nil {
		return err
	}
	doc.Revision = rev
	doc.RawContent = content
	doc.Status = models.StatusLoaded

	snapshot := &models.Document{Path: doc.Path, Entries: append([]models.Entry(nil), doc.Entries...)}
	a.background(ctx, func(ctx context.Context) {
		if err := a.index.Update(ctx, snapshot); err != nil {
			a.log.Warn(ctx, "tag index update failed", "path", snapshot.Path, "err", err)
		}
	})
	return nil
}

// DocumentPath turns a user supplied name into a storage path carrying the
// document suffix.
func DocumentPath(name string) string {
	p := models.NormalizePath(name)
	if !store.IsDocumentPath(p) {
		p += common.DocumentSuffix
	}
	return p
}

// AddDocument creates doc remotely and refreshes the listing.
func (a *Aggregator) AddDocument(ctx context.Context, doc *models.Document) error {
	doc.Path = models.NormalizePath(doc.Path)
	content := a.codec.Serialize(doc.Entries, doc.Pretext)
	rev, err := a.docs.Create(ctx, doc.Path, content)
	if err != nil {
		return err
	}
	doc.Revision = rev
	doc.RawContent = content
	doc.Status = models.StatusLoaded
	a.log.Info(ctx, "document created", "path", doc.Path)

	if _, err := a.Refresh(ctx); err != nil {
		a.log.Warn(ctx, "refresh after create failed", "err", err)
	}
	return nil
}

// DeleteDocument removes doc at its current revision, drops its tags and
// refreshes the listing.
func (a *Aggregator) DeleteDocument(ctx context.Context, doc *models.Document) error {
	if doc.ReadOnly {
		return fmt.Errorf("%s: %w", doc.Path, common.ErrReadOnly)
	}
	if err := a.docs.Delete(ctx, doc.Path, doc.Revision); err != nil {
		return err
	}
	a.log.Info(ctx, "document deleted", "path", doc.Path)
	a.Close(doc.Path)

	path := doc.Path
	a.background(ctx, func(ctx context.Context) {
		if err := a.index.Forget(ctx, path); err != nil {
			a.log.Warn(ctx, "tag index update failed", "path", path, "err", err)
		}
	})
	if _, err := a.Refresh(ctx); err != nil {
		a.log.Warn(ctx, "refresh after delete failed", "err", err)
	}
	return nil
}

// AddEntry prepends an entry dated now and saves doc.
func (a *Aggregator) AddEntry(ctx context.Context, doc *models.Document, text string) (models.Entry, error) {
	e := models.Entry{
		ID:   a.newID(),
		Date: a.now().In(a.codec.Location).Truncate(time.Second),
		Text: text,
	}
	err := a.mutate(ctx, doc, func() error {
		doc.Entries = append([]models.Entry{e}, doc.Entries...)
		return nil
	})
	if err != nil {
		return models.Entry{}, err
	}
	return e, nil
}

// EditEntry replaces the text of entry id and saves doc.
func (a *Aggregator) EditEntry(ctx context.Context, doc *models.Document, id, text string) error {
	return a.mutate(ctx, doc, func() error {
		i := doc.EntryIndex(id)
		if i < 0 {
			return fmt.Errorf("entry %s: %w", id, common.ErrorNotFound)
		}
		doc.Entries[i].Text = text
		return nil
	})
}

// DeleteEntry removes entry id and saves doc.
func (a *Aggregator) DeleteEntry(ctx context.Context, doc *models.Document, id string) error {
	return a.mutate(ctx, doc, func() error {
		i := doc.EntryIndex(id)
		if i < 0 {
			return fmt.Errorf("entry %s: %w", id, common.ErrorNotFound)
		}
		doc.Entries = append(doc.Entries[:i:i], doc.Entries[i+1:]...)
		return nil
	})
}

// UpdatePretext replaces the text above the first entry and saves doc.
func (a *Aggregator) UpdatePretext(ctx context.Context, doc *models.Document, pretext string) error {
	return a.mutate(ctx, doc, func() error {
		doc.Pretext = strings.TrimRight(pretext, "\n")
		return nil
	})
}

// mutate applies change and saves. On failure doc is restored.
func (a *Aggregator) mutate(ctx context.Context, doc *models.Document, change func() error) error {
	if doc.ReadOnly {
		return fmt.Errorf("%s: %w", doc.Path, common.ErrReadOnly)
	}
	if doc.Status != models.StatusLoaded {
		return fmt.Errorf("%s: not loaded", doc.Path)
	}
	entries := append([]models.Entry(nil), doc.Entries...)
	pretext := doc.Pretext

	if err := change(); err != nil {
		return err
	}
	if err := a.SaveEntries(ctx, doc); err != nil {
		doc.Entries = entries
		doc.Pretext = pretext
		return err
	}
	return nil
}

// Open loads the available document or template at path and adds it to the
// open list. Documents already open are returned as they are. A document
// that fails to parse is still opened so its raw content can be shown.
func (a *Aggregator) Open(ctx context.Context, path string) (*models.Document, error) {
	key := models.PathKey(path)
	if doc := a.findOpen(key); doc != nil {
		return doc, nil
	}

	listed := find(a.docs.Available(), key)
	if listed == nil {
		listed = find(a.docs.AvailableTemplates(), key)
	}
	if listed == nil {
		return nil, fmt.Errorf("%s: %w", models.NormalizePath(path), common.ErrorNotFound)
	}

	doc := &models.Document{
		Path:         listed.Path,
		Revision:     listed.Revision,
		LastModified: listed.LastModified,
		ReadOnly:     listed.ReadOnly,
	}
	err := a.LoadEntries(ctx, doc)
	if err != nil && !errors.Is(err, common.ErrParse) {
		return nil, err
	}

	a.mu.Lock()
	if existing := find(a.open, key); existing != nil {
		a.mu.Unlock()
		return existing, nil
	}
	a.open = append(a.open, doc)
	a.mu.Unlock()
	return doc, err
}

// Close removes path from the open list and reports whether it was open.
func (a *Aggregator) Close(path string) bool {
	key := models.PathKey(path)
	a.mu.Lock()
	defer a.mu.Unlock()
	for i, d := range a.open {
		if d.Key() == key {
			a.open = append(a.open[:i], a.open[i+1:]...)
			return true
		}
	}
	return false
}

// OpenDocuments returns the open documents in the order they were opened.
func (a *Aggregator) OpenDocuments() []*models.Document {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]*models.Document(nil), a.open...)
}

// availableChanged closes open documents that are no longer listed.
func (a *Aggregator) availableChanged(docs []*models.Document) {
	keep := make(map[string]struct{}, len(docs))
	for _, d := range docs {
		keep[d.Key()] = struct{}{}
	}
	for _, d := range a.docs.AvailableTemplates() {
		keep[d.Key()] = struct{}{}
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	kept := a.open[:0]
	for _, d := range a.open {
		if _, ok := keep[d.Key()]; ok {
			kept = append(kept, d)
		}
	}
	clear(a.open[len(kept):])
	a.open = kept
}

func (a *Aggregator) closeAll() {
	a.mu.Lock()
	a.open = nil
	a.mu.Unlock()
}

func (a *Aggregator) findOpen(key string) *models.Document {
	a.mu.Lock()
	defer a.mu.Unlock()
	return find(a.open, key)
}

func (a *Aggregator) background(ctx context.Context, fn func(ctx context.Context)) {
	a.work.submit(ctx, fn)
}

func find(docs []*models.Document, key string) *models.Document {
	for _, d := range docs {
		if d.Key() == key {
			return d
		}
	}
	return nil
}
