package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/dmitrijs2005/flogger/internal/client/provider"
	"github.com/dmitrijs2005/flogger/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProvider_ImplementsInterface(t *testing.T) {
	var _ provider.Provider = New()
}

func TestUpload_AddThenUpdate(t *testing.T) {
	ctx := context.Background()
	p := New()

	rev1, err := p.Upload(ctx, "/a.flogger.txt", []byte("one"), provider.Add())
	require.NoError(t, err)

	_, err = p.Upload(ctx, "/A.FLOGGER.TXT", []byte("dup"), provider.Add())
	require.ErrorIs(t, err, common.ErrVersionConflict, "add on existing path, case-insensitive")

	rev2, err := p.Upload(ctx, "/a.flogger.txt", []byte("two"), provider.Update(rev1))
	require.NoError(t, err)
	assert.NotEqual(t, rev1, rev2)

	_, err = p.Upload(ctx, "/a.flogger.txt", []byte("stale"), provider.Update(rev1))
	var ce *common.ConflictError
	require.True(t, errors.As(err, &ce))

	content, _ := p.Content("/a.flogger.txt")
	assert.Equal(t, "two", content)
}

func TestDownload_NotFound(t *testing.T) {
	_, err := New().Download(context.Background(), "/missing")
	require.ErrorIs(t, err, common.ErrorNotFound)
}

func TestListFolder_RecursiveAndFlat(t *testing.T) {
	ctx := context.Background()
	p := New()
	p.Put("/top.flogger.txt", "")
	p.Put("/sub/inner.flogger", "")

	all, err := p.ListFolder(ctx, "", true)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "/sub/inner.flogger", all[0].Path)
	assert.Equal(t, provider.TagFile, all[0].Tag)

	flat, err := p.ListFolder(ctx, "/", false)
	require.NoError(t, err)
	require.Len(t, flat, 1)
	assert.Equal(t, "/top.flogger.txt", flat[0].Path)
}

func TestDelete_RevisionChecked(t *testing.T) {
	ctx := context.Background()
	p := New()
	rev := p.Put("/d.flogger", "x")

	require.ErrorIs(t, p.Delete(ctx, "/d.flogger", "bogus"), common.ErrVersionConflict)
	require.NoError(t, p.Delete(ctx, "/d.flogger", rev))
	require.ErrorIs(t, p.Delete(ctx, "/d.flogger", rev), common.ErrorNotFound)

	ops := p.Ops()
	require.Len(t, ops, 3)
	assert.Equal(t, "delete", ops[0].Kind)
}

func TestFailWith(t *testing.T) {
	ctx := context.Background()
	p := New()
	p.FailWith("account", common.ErrorUnauthorized)

	_, err := p.CurrentAccount(ctx)
	require.ErrorIs(t, err, common.ErrorUnauthorized)

	p.FailWith("account", nil)
	acc, err := p.CurrentAccount(ctx)
	require.NoError(t, err)
	assert.Equal(t, "owner@example.com", acc.Email)
}
