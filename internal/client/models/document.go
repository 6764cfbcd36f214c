// Package models defines the typed view of journal documents ("flogs") and
// their dated entries.
package models

import (
	"path"
	"strings"
	"time"
)

// Status describes the outcome of the last load of a Document.
type Status string

const (
	// StatusUnloaded is the zero value: listed but never loaded.
	StatusUnloaded   Status = ""
	StatusLoaded     Status = "loaded"
	StatusParseError Status = "parse_error"
)

// Document is one journal file in remote storage.
//
// Path is unique per store, compared case-insensitively. Revision is the
// storage provider's opaque version token; it is empty for documents that
// have not been created yet. A Document is owned by whichever caller is
// editing it; no component copies it.
type Document struct {
	Path         string
	Revision     string
	RawContent   string
	Entries      []Entry
	Pretext      string
	Status       Status
	LastModified time.Time
	ReadOnly     bool
}

// Entry is one dated block of text. ID is assigned at load time and exists
// only so in-memory operations can address an entry; it is never persisted.
type Entry struct {
	ID   string
	Date time.Time
	Text string
}

// Name returns the file name without the directory.
func (d *Document) Name() string {
	return path.Base(d.Path)
}

// Key is the case-folded path used for identity comparisons.
func (d *Document) Key() string {
	return PathKey(d.Path)
}

// EntryIndex returns the position of the entry with id, or -1.
func (d *Document) EntryIndex(id string) int {
	for i := range d.Entries {
		if d.Entries[i].ID == id {
			return i
		}
	}
	return -1
}

// NormalizePath ensures a single leading slash and no trailing slash.
func NormalizePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	return path.Clean("/" + strings.TrimLeft(p, "/"))
}

// PathKey is NormalizePath folded to lower case.
func PathKey(p string) string {
	return strings.ToLower(NormalizePath(p))
}

// Listing is the partitioned result of listing remote storage.
type Listing struct {
	Documents []*Document
	Templates []*Document
}
