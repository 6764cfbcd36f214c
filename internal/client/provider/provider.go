// Package provider defines the remote file API the document store talks to.
// Implementations map their transport failures onto the common sentinels:
// common.ErrorNotFound, *common.ConflictError, common.ErrorUnauthorized and
// common.ErrUnavailable.
package provider

import (
	"context"
	"time"
)

// Provider is a flat remote folder of files with per-file revisions.
type Provider interface {
	// ListFolder lists files under path. Recursive includes subfolders.
	ListFolder(ctx context.Context, path string, recursive bool) ([]Entry, error)
	Download(ctx context.Context, path string) (File, error)
	// Upload writes content and returns the new revision.
	Upload(ctx context.Context, path string, content []byte, mode WriteMode) (string, error)
	// Delete removes path if its current revision is parentRev.
	Delete(ctx context.Context, path, parentRev string) error
	CurrentAccount(ctx context.Context) (Account, error)
}

// Tag distinguishes files from folders in a listing.
type Tag string

const (
	TagFile   Tag = "file"
	TagFolder Tag = "folder"
)

// Entry is one item of a folder listing.
type Entry struct {
	Path           string
	Revision       string
	Tag            Tag
	ServerModified time.Time
}

// File is downloaded content together with its revision.
type File struct {
	Revision string
	Content  []byte
}

// Account identifies the storage account owner.
type Account struct {
	Email       string
	DisplayName string
}

// WriteMode selects between create-only and revision-checked overwrite.
type WriteMode struct {
	// Update is false for Add: the upload fails when the path already exists.
	Update   bool
	Revision string
}

// Add creates a new file and fails with a conflict if one exists.
func Add() WriteMode { return WriteMode{} }

// Update overwrites a file whose current revision is rev.
func Update(rev string) WriteMode { return WriteMode{Update: true, Revision: rev} }

func (m WriteMode) String() string {
	if m.Update {
		return "update(" + m.Revision + ")"
	}
	return "add"
}
