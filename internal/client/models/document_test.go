package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePath(t *testing.T) {
	tests := map[string]string{
		"journal.flogger.txt":      "/journal.flogger.txt",
		"/journal.flogger.txt":     "/journal.flogger.txt",
		"//a//b.flogger":           "/a/b.flogger",
		" README.txt ":             "/README.txt",
		"":                         "/",
		"/Work/Notes.flogger.txt/": "/Work/Notes.flogger.txt",
	}
	for in, want := range tests {
		assert.Equal(t, want, NormalizePath(in), in)
	}
}

func TestPathKey_CaseInsensitive(t *testing.T) {
	assert.Equal(t, PathKey("/README.txt"), PathKey("readme.TXT"))
	assert.NotEqual(t, PathKey("/a.flogger"), PathKey("/b.flogger"))
}

func TestDocument_NameAndEntryIndex(t *testing.T) {
	d := &Document{
		Path:    "/Work/Daily.flogger.txt",
		Entries: []Entry{{ID: "x_0"}, {ID: "x_1"}},
	}
	assert.Equal(t, "Daily.flogger.txt", d.Name())
	assert.Equal(t, "/work/daily.flogger.txt", d.Key())
	assert.Equal(t, 1, d.EntryIndex("x_1"))
	assert.Equal(t, -1, d.EntryIndex("nope"))
}
