package cli

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/flogger/internal/client/flogs"
	"github.com/dmitrijs2005/flogger/internal/client/models"
	"github.com/dmitrijs2005/flogger/internal/common"
)

var errNoDocument = errors.New("no document is open, use 'open' first")

// report prints err for the user and returns it.
func (a *App) report(ctx context.Context, op string, err error) error {
	var ce *common.ConflictError
	switch {
	case errors.As(err, &ce):
		fmt.Fprintf(a.out, "Conflict: %s. The document changed elsewhere; reopen it before editing.\n", ce.Message)
	case errors.Is(err, common.ErrorUnauthorized), errors.Is(err, common.ErrUnavailable):
		fmt.Fprintf(a.out, "Error: %v. Type 'connect' to reconnect.\n", err)
	default:
		fmt.Fprintf(a.out, "Error: %v\n", err)
	}
	a.log.Debug(ctx, op+" failed", "err", err)
	return err
}

func (a *App) Connect(ctx context.Context) error {
	if a.conn.HasConnection() {
		fmt.Fprintln(a.out, "Already connected.")
		return nil
	}
	if err := a.connect(ctx); err != nil {
		return a.report(ctx, "connect", err)
	}
	fmt.Fprintln(a.out, "Connected.")
	return nil
}

func (a *App) Disconnect(ctx context.Context) error {
	a.conn.ClearConnection(ctx)
	a.current = nil
	a.listed = nil
	fmt.Fprintln(a.out, "Disconnected.")
	return nil
}

func (a *App) WhoAmI(ctx context.Context) error {
	owner, err := a.conn.AccountOwner(ctx, a.provider)
	if err != nil {
		return a.report(ctx, "whoami", err)
	}
	fmt.Fprintln(a.out, owner)
	return nil
}

func (a *App) List(ctx context.Context) error {
	listing, err := a.flogs.Refresh(ctx)
	if err != nil {
		return a.report(ctx, "list", err)
	}
	a.listed = listing.Documents
	if len(a.listed) == 0 {
		fmt.Fprintln(a.out, "No documents.")
	}
	for i, d := range a.listed {
		fmt.Fprintf(a.out, "%d) %s\n", i+1, d.Path)
	}
	return nil
}

func (a *App) Templates(ctx context.Context) error {
	ts := a.store.AvailableTemplates()
	if len(ts) == 0 {
		listing, err := a.flogs.Refresh(ctx)
		if err != nil {
			return a.report(ctx, "templates", err)
		}
		ts = listing.Templates
	}
	for _, d := range ts {
		fmt.Fprintf(a.out, "%s (read-only)\n", d.Path)
	}
	return nil
}

// resolve maps a listing number or a name to a storage path. Numbers refer
// to the last 'list' output, or to the current listing before any.
func (a *App) resolve(arg string) string {
	listed := a.listed
	if len(listed) == 0 {
		listed = a.store.Available()
	}
	if n, err := strconv.Atoi(arg); err == nil && n >= 1 && n <= len(listed) {
		return listed[n-1].Path
	}
	key := models.PathKey(arg)
	for _, set := range [][]*models.Document{a.store.Available(), a.store.AvailableTemplates()} {
		for _, d := range set {
			if d.Key() == key {
				return d.Path
			}
		}
	}
	return flogs.DocumentPath(arg)
}

func (a *App) Open(ctx context.Context, arg string) error {
	doc, err := a.flogs.Open(ctx, a.resolve(arg))
	if doc == nil {
		return a.report(ctx, "open", err)
	}
	a.current = doc
	if err != nil {
		fmt.Fprintf(a.out, "Warning: %s could not be parsed; showing raw content.\n", doc.Path)
		return err
	}
	suffix := ""
	if doc.ReadOnly {
		suffix = ", read-only"
	}
	fmt.Fprintf(a.out, "Opened %s (%d entries%s)\n", doc.Path, len(doc.Entries), suffix)
	return nil
}

func (a *App) CloseDocument(ctx context.Context, arg string) error {
	path := ""
	switch {
	case arg != "":
		path = a.resolve(arg)
	case a.current != nil:
		path = a.current.Path
	default:
		return a.report(ctx, "close", errNoDocument)
	}
	if !a.flogs.Close(path) {
		return a.report(ctx, "close", fmt.Errorf("%s is not open", path))
	}
	if a.current != nil && a.current.Key() == models.PathKey(path) {
		a.current = nil
		if open := a.flogs.OpenDocuments(); len(open) > 0 {
			a.current = open[len(open)-1]
		}
	}
	fmt.Fprintf(a.out, "Closed %s\n", path)
	return nil
}

// document returns the open document named by arg, or the current one.
func (a *App) document(arg string) (*models.Document, error) {
	if arg == "" {
		if a.current == nil {
			return nil, errNoDocument
		}
		return a.current, nil
	}
	key := models.PathKey(a.resolve(arg))
	for _, d := range a.flogs.OpenDocuments() {
		if d.Key() == key {
			return d, nil
		}
	}
	return nil, fmt.Errorf("%s is not open", arg)
}

func (a *App) Show(ctx context.Context, arg string) error {
	doc, err := a.document(arg)
	if err != nil {
		return a.report(ctx, "show", err)
	}
	a.flogs.Flush()
	fmt.Fprintf(a.out, "== %s (rev %s)\n", doc.Path, doc.Revision)
	if doc.Status == models.StatusParseError {
		fmt.Fprintln(a.out, doc.RawContent)
		return nil
	}
	if doc.Pretext != "" {
		fmt.Fprintln(a.out, doc.Pretext)
		fmt.Fprintln(a.out)
	}
	for i, e := range doc.Entries {
		line := fmt.Sprintf("#%d %s", i+1, a.codec.FormatDate(e.Date))
		if ts := a.index.TagsForDocumentEntryDate(doc.Path, e.Date); len(ts) > 0 {
			line += " [" + strings.Join(ts, " ") + "]"
		}
		fmt.Fprintln(a.out, line)
		fmt.Fprintln(a.out, e.Text)
		fmt.Fprintln(a.out)
	}
	return nil
}

// entryID maps a 1-based entry number to its id; anything else is taken as
// an id.
func entryID(doc *models.Document, arg string) string {
	if n, err := strconv.Atoi(arg); err == nil && n >= 1 && n <= len(doc.Entries) {
		return doc.Entries[n-1].ID
	}
	return arg
}

func (a *App) Add(ctx context.Context) error {
	if a.current == nil {
		return a.report(ctx, "add", errNoDocument)
	}
	text, err := GetMultiline(a.reader, "Entry text", a.prompts)
	if err != nil {
		return a.report(ctx, "add", err)
	}
	if text == "" {
		fmt.Fprintln(a.out, "Nothing to add.")
		return nil
	}
	e, err := a.flogs.AddEntry(ctx, a.current, text)
	if err != nil {
		return a.report(ctx, "add", err)
	}
	fmt.Fprintf(a.out, "Added entry %s\n", a.codec.FormatDate(e.Date))
	return nil
}

func (a *App) Edit(ctx context.Context, arg string) error {
	if a.current == nil {
		return a.report(ctx, "edit", errNoDocument)
	}
	text, err := GetMultiline(a.reader, "New entry text", a.prompts)
	if err != nil {
		return a.report(ctx, "edit", err)
	}
	if err := a.flogs.EditEntry(ctx, a.current, entryID(a.current, arg), text); err != nil {
		return a.report(ctx, "edit", err)
	}
	fmt.Fprintln(a.out, "Saved.")
	return nil
}

func (a *App) Remove(ctx context.Context, arg string) error {
	if a.current == nil {
		return a.report(ctx, "rm", errNoDocument)
	}
	if err := a.flogs.DeleteEntry(ctx, a.current, entryID(a.current, arg)); err != nil {
		return a.report(ctx, "rm", err)
	}
	fmt.Fprintln(a.out, "Removed.")
	return nil
}

func (a *App) Pretext(ctx context.Context) error {
	if a.current == nil {
		return a.report(ctx, "pretext", errNoDocument)
	}
	text, err := GetMultiline(a.reader, "Text above the entries", a.prompts)
	if err != nil {
		return a.report(ctx, "pretext", err)
	}
	if err := a.flogs.UpdatePretext(ctx, a.current, text); err != nil {
		return a.report(ctx, "pretext", err)
	}
	fmt.Fprintln(a.out, "Saved.")
	return nil
}

// New creates a document, asking for its name when none is given.
func (a *App) New(ctx context.Context, name string) error {
	if name == "" {
		var err error
		if name, err = GetSimpleText(a.reader, "Document name", a.prompts); err != nil {
			return a.report(ctx, "new", err)
		}
		if name == "" {
			fmt.Fprintln(a.out, "Nothing created.")
			return nil
		}
	}
	doc := &models.Document{Path: flogs.DocumentPath(name)}
	if err := a.flogs.AddDocument(ctx, doc); err != nil {
		return a.report(ctx, "new", err)
	}
	fmt.Fprintf(a.out, "Created %s\n", doc.Path)
	return a.Open(ctx, doc.Path)
}

func (a *App) Delete(ctx context.Context, arg string) error {
	path := a.resolve(arg)
	doc, err := a.document(path)
	if err != nil {
		if doc, err = a.flogs.Open(ctx, path); doc == nil {
			return a.report(ctx, "delete", err)
		}
	}
	if err := a.flogs.DeleteDocument(ctx, doc); err != nil {
		return a.report(ctx, "delete", err)
	}
	if a.current != nil && a.current.Key() == doc.Key() {
		a.current = nil
	}
	a.listed = a.store.Available()
	fmt.Fprintf(a.out, "Deleted %s\n", doc.Path)
	return nil
}

func (a *App) Tags(ctx context.Context, arg string) error {
	a.flogs.Flush()
	var ts []string
	if arg == "" {
		ts = a.index.Tags()
	} else {
		ts = a.index.TagsForDocument(a.resolve(arg))
	}
	if len(ts) == 0 {
		fmt.Fprintln(a.out, "No tags.")
		return nil
	}
	fmt.Fprintln(a.out, strings.Join(ts, " "))
	return nil
}

func (a *App) Tagged(ctx context.Context, tag string) error {
	a.flogs.Flush()
	docs := a.index.DocumentsForTags(strings.Fields(tag)...)
	if len(docs) == 0 {
		fmt.Fprintln(a.out, "Nothing tagged", tag)
		return nil
	}
	paths := make([]string, 0, len(docs))
	for p := range docs {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	for _, p := range paths {
		dates := make([]string, 0, len(docs[p]))
		for _, d := range docs[p] {
			dates = append(dates, a.codec.FormatDate(d))
		}
		fmt.Fprintf(a.out, "%s: %s\n", p, strings.Join(dates, ", "))
	}
	return nil
}
