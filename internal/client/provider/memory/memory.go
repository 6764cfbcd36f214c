// Package memory is an in-process Provider. It backs tests and the
// "memory" provider setting for trying the CLI without an account.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/flogger/internal/client/models"
	"github.com/dmitrijs2005/flogger/internal/client/provider"
	"github.com/dmitrijs2005/flogger/internal/common"
)

type file struct {
	path     string
	rev      string
	content  []byte
	modified time.Time
}

// Op records one mutating call for inspection in tests.
type Op struct {
	Kind string // "upload" or "delete"
	Path string
	Mode provider.WriteMode
}

// Provider stores files in a map keyed by case-folded path. Revisions are a
// process-wide counter, so every write yields a new value.
type Provider struct {
	mu      sync.Mutex
	files   map[string]*file
	nextRev int
	ops     []Op
	failing map[string]error
	account provider.Account
	now     func() time.Time
}

func New() *Provider {
	return &Provider{
		files:   make(map[string]*file),
		failing: make(map[string]error),
		account: provider.Account{Email: "owner@example.com", DisplayName: "Local Owner"},
		now:     time.Now,
	}
}

// Put writes content without revision checks and returns the revision.
func (p *Provider) Put(path string, content string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.write(path, []byte(content))
}

// Content returns the stored bytes for path.
func (p *Provider) Content(path string) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	f, ok := p.files[models.PathKey(path)]
	if !ok {
		return "", false
	}
	return string(f.content), true
}

// Ops returns a copy of the mutating calls made so far.
func (p *Provider) Ops() []Op {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Op(nil), p.ops...)
}

// FailWith makes every later call of method ("list", "download", "upload",
// "delete", "account") return err, until cleared with a nil err.
func (p *Provider) FailWith(method string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err == nil {
		delete(p.failing, method)
		return
	}
	p.failing[method] = err
}

func (p *Provider) SetAccount(a provider.Account) {
	p.mu.Lock()
	p.account = a
	p.mu.Unlock()
}

func (p *Provider) ListFolder(ctx context.Context, path string, recursive bool) ([]provider.Entry, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.check(ctx, "list"); err != nil {
		return nil, err
	}

	prefix := strings.TrimSuffix(models.PathKey(path), "/") + "/"
	out := make([]provider.Entry, 0, len(p.files))
	for key, f := range p.files {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		if !recursive && strings.Contains(key[len(prefix):], "/") {
			continue
		}
		out = append(out, provider.Entry{Path: f.path, Revision: f.rev, Tag: provider.TagFile, ServerModified: f.modified})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

func (p *Provider) Download(ctx context.Context, path string) (provider.File, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.check(ctx, "download"); err != nil {
		return provider.File{}, err
	}

	f, ok := p.files[models.PathKey(path)]
	if !ok {
		return provider.File{}, fmt.Errorf("download %s: %w", path, common.ErrorNotFound)
	}
	return provider.File{Revision: f.rev, Content: append([]byte(nil), f.content...)}, nil
}

func (p *Provider) Upload(ctx context.Context, path string, content []byte, mode provider.WriteMode) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ops = append(p.ops, Op{Kind: "upload", Path: models.NormalizePath(path), Mode: mode})
	if err := p.check(ctx, "upload"); err != nil {
		return "", err
	}

	existing, exists := p.files[models.PathKey(path)]
	switch {
	case !mode.Update && exists:
		return "", &common.ConflictError{Path: path, Message: "path/conflict/file/"}
	case mode.Update && !exists:
		return "", &common.ConflictError{Path: path, Revision: mode.Revision, Message: "path/not_found/"}
	case mode.Update && existing.rev != mode.Revision:
		return "", &common.ConflictError{Path: path, Revision: mode.Revision, Message: "path/conflict/file/"}
	}
	return p.write(path, content), nil
}

func (p *Provider) Delete(ctx context.Context, path, parentRev string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ops = append(p.ops, Op{Kind: "delete", Path: models.NormalizePath(path), Mode: provider.Update(parentRev)})
	if err := p.check(ctx, "delete"); err != nil {
		return err
	}

	key := models.PathKey(path)
	f, ok := p.files[key]
	if !ok {
		return fmt.Errorf("delete %s: %w", path, common.ErrorNotFound)
	}
	if parentRev != "" && f.rev != parentRev {
		return &common.ConflictError{Path: path, Revision: parentRev, Message: "path_lookup/conflict/"}
	}
	delete(p.files, key)
	return nil
}

func (p *Provider) CurrentAccount(ctx context.Context) (provider.Account, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.check(ctx, "account"); err != nil {
		return provider.Account{}, err
	}
	return p.account, nil
}

func (p *Provider) check(ctx context.Context, method string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return p.failing[method]
}

// write stores content and returns the new revision. Caller holds mu.
func (p *Provider) write(path string, content []byte) string {
	p.nextRev++
	rev := strconv.Itoa(p.nextRev)
	key := models.PathKey(path)
	display := models.NormalizePath(path)
	if f, ok := p.files[key]; ok {
		display = f.path
	}
	p.files[key] = &file{path: display, rev: rev, content: append([]byte(nil), content...), modified: p.now().UTC()}
	return rev
}
