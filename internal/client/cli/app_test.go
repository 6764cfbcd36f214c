package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/dmitrijs2005/flogger/internal/client/config"
	"github.com/dmitrijs2005/flogger/internal/client/provider/memory"
	"github.com/dmitrijs2005/flogger/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(provider string) *config.Config {
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.Provider = provider
	cfg.LogLevel = "error"
	return cfg
}

func newMemoryApp(t *testing.T, script ...string) (*App, *memory.Provider, *bytes.Buffer) {
	t.Helper()
	captureOutput(t)

	var out bytes.Buffer
	in := strings.NewReader(strings.Join(script, "\n") + "\n")
	a, err := NewApp(context.Background(), testConfig(config.ProviderMemory), in, &out, false)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	p, ok := a.provider.(*memory.Provider)
	require.True(t, ok)
	return a, p, &out
}

func TestApp_JournalSession(t *testing.T) {
	a, p, out := newMemoryApp(t,
		"list",
		"new work",
		"add",
		"# work urgent",
		"Did X",
		"",
		"show",
		"tags",
		"tagged work",
		"tags /work.flogger.txt",
		"exit",
	)
	require.NoError(t, a.Run(context.Background()))

	got := out.String()
	assert.Contains(t, got, "1) "+common.DefaultDocumentPath)
	assert.Contains(t, got, "Created /work.flogger.txt")
	assert.Contains(t, got, "Opened /work.flogger.txt (0 entries)")
	assert.Contains(t, got, "Added entry")
	assert.Contains(t, got, "[urgent work]")
	assert.Contains(t, got, "urgent work\n")
	assert.Contains(t, got, "/work.flogger.txt: ")

	content, ok := p.Content("/work.flogger.txt")
	require.True(t, ok)
	assert.True(t, strings.HasSuffix(content, "\n# work urgent\nDid X"), content)

	_, ok = p.Content("/README.txt")
	assert.True(t, ok, "template seeded on start")
}

func TestApp_EditRemovePretext(t *testing.T) {
	a, p, out := newMemoryApp(t,
		"open 1",
		"add",
		"first",
		"",
		"edit 1",
		"first, edited",
		"",
		"pretext",
		"About this journal",
		"",
		"add",
		"second",
		"",
		"rm 1",
		"show",
		"exit",
	)
	require.NoError(t, a.Run(context.Background()))

	require.NotNil(t, a.current)
	require.Len(t, a.current.Entries, 1)
	assert.Equal(t, "first, edited", a.current.Entries[0].Text)

	content, _ := p.Content(common.DefaultDocumentPath)
	assert.True(t, strings.HasPrefix(content, "About this journal\n\n"), content)
	assert.NotContains(t, content, "second")
	assert.Contains(t, out.String(), "Removed.")
}

func TestApp_OpenCloseShow(t *testing.T) {
	a, _, out := newMemoryApp(t, "list", "open 1", "close", "show", "exit")
	require.NoError(t, a.Run(context.Background()))

	got := out.String()
	assert.Contains(t, got, "Opened "+common.DefaultDocumentPath)
	assert.Contains(t, got, "Closed "+common.DefaultDocumentPath)
	assert.Contains(t, got, "Error: "+errNoDocument.Error())
	assert.Nil(t, a.current)
}

func TestApp_ConflictIsReported(t *testing.T) {
	ctx := context.Background()
	a, p, out := newMemoryApp(t)
	require.NoError(t, a.flogs.Start(ctx))
	defer a.flogs.Stop()

	require.NoError(t, a.Open(ctx, common.DefaultDocumentPath))
	p.Put(common.DefaultDocumentPath, "edited on another device")

	a.reader = rdr("lost\n\n")
	err := a.Add(ctx)
	require.ErrorIs(t, err, common.ErrVersionConflict)
	assert.Contains(t, out.String(), "Conflict:")

	content, _ := p.Content(common.DefaultDocumentPath)
	assert.Equal(t, "edited on another device", content)
}

func TestApp_DisconnectAndReconnect(t *testing.T) {
	a, _, out := newMemoryApp(t, "disconnect", "list", "connect", "whoami", "list", "exit")
	require.NoError(t, a.Run(context.Background()))

	got := out.String()
	assert.Contains(t, got, "Disconnected.")
	assert.Contains(t, got, "Type 'connect' to reconnect.")
	assert.Contains(t, got, "Connected.")
	assert.Contains(t, got, "owner@example.com")
	assert.Equal(t, "owner@example.com", a.status())
}

func TestApp_DeleteDocument(t *testing.T) {
	a, p, out := newMemoryApp(t, "new scratch", "delete scratch", "list", "exit")
	require.NoError(t, a.Run(context.Background()))

	_, ok := p.Content("/scratch.flogger.txt")
	assert.False(t, ok)
	assert.Contains(t, out.String(), "Deleted /scratch.flogger.txt")
	assert.Nil(t, a.current)
}

func TestApp_NewPromptsForName(t *testing.T) {
	a, p, out := newMemoryApp(t, "new", "prompted", "exit")
	require.NoError(t, a.Run(context.Background()))

	_, ok := p.Content("/prompted.flogger.txt")
	assert.True(t, ok)
	assert.Contains(t, out.String(), "Created /prompted.flogger.txt")
}

func TestApp_TemplatesAreReadOnly(t *testing.T) {
	a, _, out := newMemoryApp(t, "templates", "open /README.txt", "add", "nope", "", "exit")
	require.NoError(t, a.Run(context.Background()))

	got := out.String()
	assert.Contains(t, got, "/README.txt (read-only)")
	assert.Contains(t, got, ", read-only)")
	assert.Contains(t, got, common.ErrReadOnly.Error())
}

func TestNewApp_Dropbox(t *testing.T) {
	cfg := testConfig(config.ProviderDropbox)
	cfg.OAuthClientID = "client"
	a, err := NewApp(context.Background(), cfg, strings.NewReader(""), &bytes.Buffer{}, true)
	require.NoError(t, err)
	defer a.Close()

	assert.NotNil(t, a.callback)
	assert.False(t, a.isConnected())
	assert.Equal(t, "offline", a.status())
}

func TestNewApp_UnknownProvider(t *testing.T) {
	_, err := NewApp(context.Background(), testConfig("ftp"), strings.NewReader(""), &bytes.Buffer{}, false)
	require.Error(t, err)
}
