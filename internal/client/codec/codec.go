// Package codec converts between the plain-text journal format and a list
// of dated entries.
//
// A document looks like:
//
//	optional pretext
//
//	1/2/2024 3:04:05 PM
//	newest entry text
//
//	12/31/2023 9:00:00 AM
//	older entry text
//
// Files written before times were recorded use a date-only header
// ("1/2/2024"), which Parse still accepts.
package codec

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/dmitrijs2005/flogger/internal/client/models"
	"github.com/dmitrijs2005/flogger/internal/common"
)

const (
	dateTimeLayout = "1/2/2006 3:04:05 PM"

	datePattern     = `[0-1]?[0-9]/[0-3]?[0-9]/(?:[0-9]{4}|[0-9]{2})`
	dateTimePattern = datePattern + ` 1?[0-9]:[0-9]{2}:[0-9]{2} [AP]M`
)

var (
	dateTimeDelim = regexp.MustCompile(`(?:^|\n\n)(` + dateTimePattern + `)\n`)
	legacyDelim   = regexp.MustCompile(`(?:^|\n\n)(` + datePattern + `)\n`)

	dateTimeLayouts = []string{dateTimeLayout, "1/2/06 3:04:05 PM"}
	legacyLayouts   = []string{"1/2/2006", "1/2/06"}
)

// Codec parses and serialises documents. Dates are read and written in Location.
type Codec struct {
	Location *time.Location
}

// New returns a Codec for loc; nil means time.Local.
func New(loc *time.Location) *Codec {
	if loc == nil {
		loc = time.Local
	}
	return &Codec{Location: loc}
}

// Parsed is the structured content of a document.
type Parsed struct {
	Pretext string
	Entries []models.Entry
}

// Parse splits raw into pretext and entries. Entry IDs are "<idPrefix>_<n>".
// A header that has the right shape but is not a calendar date (13/32/2024)
// yields an error matching common.ErrParse.
func (c *Codec) Parse(raw, idPrefix string) (Parsed, error) {
	layouts := dateTimeLayouts
	locs := dateTimeDelim.FindAllStringSubmatchIndex(raw, -1)
	if len(locs) == 0 {
		layouts = legacyLayouts
		locs = legacyDelim.FindAllStringSubmatchIndex(raw, -1)
	}
	if len(locs) == 0 {
		return Parsed{Pretext: raw}, nil
	}

	out := Parsed{
		Pretext: raw[:locs[0][0]],
		Entries: make([]models.Entry, 0, len(locs)),
	}
	for i, loc := range locs {
		header := raw[loc[2]:loc[3]]
		date, err := c.parseDate(header, layouts)
		if err != nil {
			return Parsed{}, fmt.Errorf("%w: entry %d header %q: %v", common.ErrParse, i, header, err)
		}

		end := len(raw)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		out.Entries = append(out.Entries, models.Entry{
			ID:   fmt.Sprintf("%s_%d", idPrefix, i),
			Date: date,
			Text: raw[loc[1]:end],
		})
	}
	return out, nil
}

func (c *Codec) parseDate(s string, layouts []string) (time.Time, error) {
	var firstErr error
	for _, layout := range layouts {
		t, err := time.ParseInLocation(layout, s, c.loc())
		if err == nil {
			return t, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return time.Time{}, firstErr
}

// Serialize renders entries in order, preceded by pretext when non-empty.
func (c *Codec) Serialize(entries []models.Entry, pretext string) string {
	var b strings.Builder
	if pretext != "" {
		b.WriteString(pretext)
		b.WriteString("\n\n")
	}
	for i, e := range entries {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(c.FormatDate(e.Date))
		b.WriteByte('\n')
		b.WriteString(e.Text)
	}
	return b.String()
}

// FormatDate renders t as an entry header.
func (c *Codec) FormatDate(t time.Time) string {
	return t.In(c.loc()).Format(dateTimeLayout)
}

func (c *Codec) loc() *time.Location {
	if c.Location == nil {
		return time.Local
	}
	return c.Location
}
