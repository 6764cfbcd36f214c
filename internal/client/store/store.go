// Package store presents a flat remote folder as a typed collection of
// journal documents with revision-checked writes.
package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/dmitrijs2005/flogger/internal/client/models"
	"github.com/dmitrijs2005/flogger/internal/client/provider"
	"github.com/dmitrijs2005/flogger/internal/client/templates"
	"github.com/dmitrijs2005/flogger/internal/common"
	"github.com/dmitrijs2005/flogger/internal/logging"
	"github.com/dmitrijs2005/flogger/internal/observe"
)

// Document name suffixes, matched case-insensitively.
var suffixes = []string{common.DocumentSuffix, common.LegacyDocumentSuffix}

// Connection is what the store needs from the connection manager.
type Connection interface {
	HasConnection() bool
	EnsureFresh(ctx context.Context) error
	ClearConnection(ctx context.Context)
}

type Options struct {
	Provider   provider.Provider
	Connection Connection
	Templates  []templates.Template
	// DefaultDocument is created empty when the listing lacks it.
	DefaultDocument string
	// Root is the folder listed recursively; "" means the storage root.
	Root string
	Log  logging.Logger
}

// Content is a downloaded document body with its revision.
type Content struct {
	Revision string
	Body     string
}

type Store struct {
	p          provider.Provider
	conn       Connection
	templates  []templates.Template
	defaultDoc string
	root       string
	log        logging.Logger

	available          *observe.Value[[]*models.Document]
	availableTemplates *observe.Value[[]*models.Document]
}

func New(opts Options) *Store {
	log := opts.Log
	if log == nil {
		log = logging.Nop{}
	}
	def := opts.DefaultDocument
	if def == "" {
		def = common.DefaultDocumentPath
	}
	return &Store{
		p:                  opts.Provider,
		conn:               opts.Connection,
		templates:          opts.Templates,
		defaultDoc:         models.NormalizePath(def),
		root:               opts.Root,
		log:                log.With("component", "store"),
		available:          observe.NewValue[[]*models.Document](nil),
		availableTemplates: observe.NewValue[[]*models.Document](nil),
	}
}

// IsDocumentPath reports whether p carries a journal suffix.
func IsDocumentPath(p string) bool {
	lp := strings.ToLower(p)
	for _, s := range suffixes {
		if strings.HasSuffix(lp, s) {
			return true
		}
	}
	return false
}

// List lists the remote folder, partitions it into user documents and
// templates, seeds missing templates and creates the default document when
// absent. On any failure the connection is cleared and an empty listing is
// returned along with the error; this includes a seeding write that dropped
// the connection.
func (s *Store) List(ctx context.Context) (models.Listing, error) {
	if err := s.conn.EnsureFresh(ctx); err != nil {
		s.resetAvailable()
		return models.Listing{}, fmt.Errorf("list: %w", err)
	}

	entries, err := s.p.ListFolder(ctx, s.root, true)
	if err != nil {
		s.log.Warn(ctx, "list failed", "err", err)
		s.conn.ClearConnection(ctx)
		s.resetAvailable()
		return models.Listing{}, fmt.Errorf("list: %w", err)
	}

	templateKeys := make(map[string]struct{}, len(s.templates))
	for _, t := range s.templates {
		templateKeys[models.PathKey(t.Path)] = struct{}{}
	}

	var listing models.Listing
	for _, e := range entries {
		if e.Tag != provider.TagFile {
			continue
		}
		doc := &models.Document{
			Path:         models.NormalizePath(e.Path),
			Revision:     e.Revision,
			LastModified: e.ServerModified,
		}
		if _, isTemplate := templateKeys[doc.Key()]; isTemplate {
			doc.ReadOnly = true
			listing.Templates = append(listing.Templates, doc)
			continue
		}
		if IsDocumentPath(doc.Path) {
			listing.Documents = append(listing.Documents, doc)
		}
	}

	listing.Templates = append(listing.Templates, s.Seed(ctx, listing.Templates, s.templates)...)

	if !containsPath(listing.Documents, s.defaultDoc) {
		if doc := s.createDefault(ctx); doc != nil {
			listing.Documents = append(listing.Documents, doc)
		}
	}

	// Seeding goes through the same failure policy as any write and may
	// have dropped the connection.
	if !s.conn.HasConnection() {
		s.resetAvailable()
		return models.Listing{}, fmt.Errorf("list: connection dropped while preparing documents: %w", common.ErrorUnauthorized)
	}

	sortByPath(listing.Documents)
	sortByPath(listing.Templates)
	s.availableTemplates.Set(listing.Templates)
	s.available.Set(listing.Documents)

	s.log.Debug(ctx, "listed", "documents", len(listing.Documents), "templates", len(listing.Templates))
	return listing, nil
}

func (s *Store) createDefault(ctx context.Context) *models.Document {
	rev, err := s.Create(ctx, s.defaultDoc, "")
	if err != nil {
		s.log.Warn(ctx, "create default document", "path", s.defaultDoc, "err", err)
		return nil
	}
	s.log.Info(ctx, "created default document", "path", s.defaultDoc)
	return &models.Document{Path: s.defaultDoc, Revision: rev, Status: models.StatusLoaded}
}

// Load downloads path. A missing document yields an error matching
// common.ErrorNotFound and leaves the connection alone.
func (s *Store) Load(ctx context.Context, path string) (Content, error) {
	if err := s.conn.EnsureFresh(ctx); err != nil {
		return Content{}, fmt.Errorf("load %s: %w", path, err)
	}
	f, err := s.p.Download(ctx, models.NormalizePath(path))
	if err != nil {
		return Content{}, s.fail(ctx, "load", path, err)
	}
	return Content{Revision: f.Revision, Body: string(f.Content)}, nil
}

// Save overwrites path if its remote revision still equals rev and returns
// the new revision. A mismatch is returned as *common.ConflictError and is
// never retried.
func (s *Store) Save(ctx context.Context, path, rev, content string) (string, error) {
	if rev == "" {
		return "", &common.ConflictError{Path: path, Message: "document has no revision, load it first"}
	}
	if err := s.conn.EnsureFresh(ctx); err != nil {
		return "", fmt.Errorf("save %s: %w", path, err)
	}
	newRev, err := s.p.Upload(ctx, models.NormalizePath(path), []byte(content), provider.Update(rev))
	if err != nil {
		return "", s.fail(ctx, "save", path, err)
	}
	return newRev, nil
}

// Create adds path and fails with a conflict if it already exists.
func (s *Store) Create(ctx context.Context, path, content string) (string, error) {
	if err := s.conn.EnsureFresh(ctx); err != nil {
		return "", fmt.Errorf("create %s: %w", path, err)
	}
	rev, err := s.p.Upload(ctx, models.NormalizePath(path), []byte(content), provider.Add())
	if err != nil {
		return "", s.fail(ctx, "create", path, err)
	}
	return rev, nil
}

// Delete removes path if its remote revision equals rev.
func (s *Store) Delete(ctx context.Context, path, rev string) error {
	if err := s.conn.EnsureFresh(ctx); err != nil {
		return fmt.Errorf("delete %s: %w", path, err)
	}
	if err := s.p.Delete(ctx, models.NormalizePath(path), rev); err != nil {
		return s.fail(ctx, "delete", path, err)
	}
	return nil
}

// fail logs err and clears the connection for auth and transport failures.
// Conflicts and missing documents are expected outcomes and pass through.
func (s *Store) fail(ctx context.Context, op, path string, err error) error {
	switch {
	case errors.Is(err, common.ErrorUnauthorized), errors.Is(err, common.ErrUnavailable):
		s.log.Warn(ctx, op+" failed, dropping connection", "path", path, "err", err)
		s.conn.ClearConnection(ctx)
	case errors.Is(err, common.ErrVersionConflict):
		s.log.Info(ctx, op+" conflict", "path", path, "err", err)
	case errors.Is(err, common.ErrorNotFound):
	default:
		s.log.Error(ctx, op+" failed", "path", path, "err", err)
	}
	return fmt.Errorf("%s %s: %w", op, path, err)
}

// Available returns the user documents from the last successful listing.
func (s *Store) Available() []*models.Document { return s.available.Get() }

// AvailableTemplates returns the templates from the last successful listing.
func (s *Store) AvailableTemplates() []*models.Document { return s.availableTemplates.Get() }

// OnAvailableChange calls fn with every new set of user documents. The
// template set is already updated when fn runs.
func (s *Store) OnAvailableChange(fn func([]*models.Document)) (cancel func()) {
	return s.available.Subscribe(fn)
}

// ResetAvailable empties both available sets, e.g. after a disconnect.
func (s *Store) ResetAvailable() { s.resetAvailable() }

func (s *Store) resetAvailable() {
	if len(s.availableTemplates.Get()) > 0 {
		s.availableTemplates.Set(nil)
	}
	if len(s.available.Get()) > 0 {
		s.available.Set(nil)
	}
}

func containsPath(docs []*models.Document, p string) bool {
	key := models.PathKey(p)
	for _, d := range docs {
		if d.Key() == key {
			return true
		}
	}
	return false
}

func sortByPath(docs []*models.Document) {
	sort.Slice(docs, func(i, j int) bool { return docs[i].Key() < docs[j].Key() })
}
