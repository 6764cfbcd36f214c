package codec

import (
	"errors"
	"testing"
	"time"

	"github.com/dmitrijs2005/flogger/internal/client/models"
	"github.com/dmitrijs2005/flogger/internal/common"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func utcCodec() *Codec { return New(time.UTC) }

func at(y int, m time.Month, d, hh, mm, ss int) time.Time {
	return time.Date(y, m, d, hh, mm, ss, 0, time.UTC)
}

func TestSerialize_Format(t *testing.T) {
	c := utcCodec()
	entries := []models.Entry{
		{Date: at(2024, 1, 2, 15, 4, 5), Text: "# work urgent\nDid X"},
		{Date: at(2023, 12, 31, 9, 0, 0), Text: "older"},
	}

	got := c.Serialize(entries, "about this journal")
	want := "about this journal\n\n" +
		"1/2/2024 3:04:05 PM\n# work urgent\nDid X\n\n" +
		"12/31/2023 9:00:00 AM\nolder"
	assert.Equal(t, want, got)

	assert.Equal(t, "1/2/2024 3:04:05 PM\n# work urgent\nDid X\n\n12/31/2023 9:00:00 AM\nolder",
		c.Serialize(entries, ""))
}

func TestParse_RoundTrip(t *testing.T) {
	c := utcCodec()

	cases := []struct {
		name    string
		pretext string
		entries []models.Entry
	}{
		{name: "single", entries: []models.Entry{{Date: at(2024, 1, 1, 10, 0, 0), Text: "# work urgent\nDid X"}}},
		{name: "with pretext", pretext: "Intro line\nsecond line", entries: []models.Entry{
			{Date: at(2024, 3, 9, 23, 59, 59), Text: "late"},
			{Date: at(2024, 3, 9, 0, 0, 1), Text: "early\n\nwith a blank line inside"},
		}},
		{name: "empty text kept", entries: []models.Entry{
			{Date: at(2024, 5, 5, 12, 0, 0), Text: ""},
			{Date: at(2024, 5, 4, 12, 0, 0), Text: "after empty"},
		}},
		{name: "trailing newline in text", entries: []models.Entry{
			{Date: at(2024, 6, 1, 8, 30, 0), Text: "line\n"},
			{Date: at(2024, 5, 31, 8, 30, 0), Text: "prev"},
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			raw := c.Serialize(tc.entries, tc.pretext)
			got, err := c.Parse(raw, "load")
			require.NoError(t, err)

			assert.Equal(t, tc.pretext, got.Pretext)
			assert.Empty(t, cmp.Diff(tc.entries, got.Entries, cmpopts.IgnoreFields(models.Entry{}, "ID")))
		})
	}
}

func TestParse_AssignsIDs(t *testing.T) {
	c := utcCodec()
	got, err := c.Parse("1/1/2024 1:00:00 AM\na\n\n1/1/2024 2:00:00 AM\nb", "1700000000000")
	require.NoError(t, err)
	require.Len(t, got.Entries, 2)
	assert.Equal(t, "1700000000000_0", got.Entries[0].ID)
	assert.Equal(t, "1700000000000_1", got.Entries[1].ID)
}

func TestParse_NoEntriesIsAllPretext(t *testing.T) {
	c := utcCodec()
	got, err := c.Parse("just some notes\nwithout dates", "x")
	require.NoError(t, err)
	assert.Equal(t, "just some notes\nwithout dates", got.Pretext)
	assert.Empty(t, got.Entries)

	got, err = c.Parse("", "x")
	require.NoError(t, err)
	assert.Empty(t, got.Pretext)
	assert.Empty(t, got.Entries)
}

func TestParse_LegacyDateOnly(t *testing.T) {
	c := utcCodec()
	raw := "preface\n\n8/22/2024\nfirst\n\n8/21/24\nsecond"

	got, err := c.Parse(raw, "p")
	require.NoError(t, err)
	assert.Equal(t, "preface", got.Pretext)
	require.Len(t, got.Entries, 2)
	assert.Equal(t, time.Date(2024, 8, 22, 0, 0, 0, 0, time.UTC), got.Entries[0].Date)
	assert.Equal(t, "first", got.Entries[0].Text)
	assert.Equal(t, time.Date(2024, 8, 21, 0, 0, 0, 0, time.UTC), got.Entries[1].Date)
}

func TestParse_DateTimeTakesPrecedenceOverLegacy(t *testing.T) {
	c := utcCodec()
	raw := "1/2/2024 3:04:05 PM\nmentions 1/1/2024\n\nin text"
	got, err := c.Parse(raw, "p")
	require.NoError(t, err)
	require.Len(t, got.Entries, 1)
	assert.Equal(t, "mentions 1/1/2024\n\nin text", got.Entries[0].Text)
}

func TestParse_InvalidCalendarDate(t *testing.T) {
	c := utcCodec()
	_, err := c.Parse("19/39/2024 1:00:00 PM\ntext", "p")
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrParse))
}

func TestParse_UsesLocation(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*60*60)
	c := New(loc)
	got, err := c.Parse("1/2/2024 3:04:05 PM\nx", "p")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 2, 12, 4, 5, 0, time.UTC), got.Entries[0].Date.UTC())

	assert.Equal(t, "1/2/2024 3:04:05 PM", c.FormatDate(time.Date(2024, 1, 2, 12, 4, 5, 0, time.UTC)))
}
