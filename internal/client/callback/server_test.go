package callback

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/flogger/internal/client/connection"
	"github.com/dmitrijs2005/flogger/internal/common"
)

type fakeCompleter struct {
	mu   sync.Mutex
	got  []connection.Redirect
	fail bool
}

func (f *fakeCompleter) CompleteConnectionFromRedirect(_ context.Context, r connection.Redirect) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.got = append(f.got, r)
	if f.fail {
		return common.ErrAuthorization
	}
	return nil
}

func TestCallback_Success(t *testing.T) {
	fc := &fakeCompleter{}
	s := New(fc, nil)

	req := httptest.NewRequest(http.MethodGet, "/auth-callback/?code=abc&state=xyz", nil)
	resp, err := s.App().Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "window.close()")
	assert.Contains(t, string(body), "Connected")

	require.Len(t, fc.got, 1)
	assert.Equal(t, connection.Redirect{Code: "abc", State: "xyz"}, fc.got[0])
}

func TestCallback_Failure(t *testing.T) {
	fc := &fakeCompleter{fail: true}
	s := New(fc, nil)

	resp, err := s.App().Test(httptest.NewRequest(http.MethodGet, "/auth-callback/?error=access_denied&state=s", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Len(t, fc.got, 1)
	assert.Equal(t, "access_denied", fc.got[0].Error)
}

func TestCallback_MissingCode(t *testing.T) {
	fc := &fakeCompleter{}
	s := New(fc, nil)

	resp, err := s.App().Test(httptest.NewRequest(http.MethodGet, "/auth-callback/", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Empty(t, fc.got)
}

func TestCallback_StartAndShutdown(t *testing.T) {
	fc := &fakeCompleter{}
	s := New(fc, nil)
	ctx := context.Background()

	addr, err := s.Start(ctx, "127.0.0.1:0")
	require.NoError(t, err)

	var resp *http.Response
	require.Eventually(t, func() bool {
		resp, err = http.Get("http://" + addr + "/auth-callback/?code=live&state=s")
		return err == nil
	}, 2*time.Second, 20*time.Millisecond)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	sctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	require.NoError(t, s.Shutdown(sctx))
}
