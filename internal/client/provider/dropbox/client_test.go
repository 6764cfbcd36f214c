package dropbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dmitrijs2005/flogger/internal/client/provider"
	"github.com/dmitrijs2005/flogger/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(srv.Client(), Options{APIURL: srv.URL, ContentURL: srv.URL}, nil)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestListFolder_FollowsCursor(t *testing.T) {
	var calls []string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, r.URL.Path)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		switch r.URL.Path {
		case "/2/files/list_folder":
			assert.Equal(t, "", body["path"])
			assert.Equal(t, true, body["recursive"])
			writeJSON(w, 200, map[string]any{
				"entries": []map[string]any{
					{".tag": "file", "path_display": "/Journal.flogger.txt", "rev": "a1", "server_modified": "2024-01-01T10:00:00Z"},
					{".tag": "folder", "path_display": "/Archive"},
				},
				"cursor":   "c1",
				"has_more": true,
			})
		case "/2/files/list_folder/continue":
			assert.Equal(t, "c1", body["cursor"])
			writeJSON(w, 200, map[string]any{
				"entries":  []map[string]any{{".tag": "file", "path_lower": "/archive/old.flogger", "rev": "b2"}},
				"has_more": false,
			})
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	})

	entries, err := c.ListFolder(context.Background(), "/", true)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, []string{"/2/files/list_folder", "/2/files/list_folder/continue"}, calls)

	assert.Equal(t, provider.Entry{
		Path: "/Journal.flogger.txt", Revision: "a1", Tag: provider.TagFile,
		ServerModified: time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC),
	}, entries[0])
	assert.Equal(t, provider.TagFolder, entries[1].Tag)
	assert.Equal(t, "/archive/old.flogger", entries[2].Path)
}

func TestDownload_ReadsRevisionFromHeader(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/2/files/download", r.URL.Path)
		var arg map[string]string
		require.NoError(t, json.Unmarshal([]byte(r.Header.Get(apiArgHeader)), &arg))
		assert.Equal(t, "/journal.flogger.txt", arg["path"])

		w.Header().Set(apiResultHeader, `{"rev":"015f","path_display":"/journal.flogger.txt"}`)
		_, _ = io.WriteString(w, "1/1/2024 10:00:00 AM\nhello")
	})

	f, err := c.Download(context.Background(), "/journal.flogger.txt")
	require.NoError(t, err)
	assert.Equal(t, "015f", f.Revision)
	assert.Equal(t, "1/1/2024 10:00:00 AM\nhello", string(f.Content))
}

func TestUpload_Modes(t *testing.T) {
	var lastArg map[string]any
	var lastBody string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/2/files/upload", r.URL.Path)
		assert.Equal(t, "application/octet-stream", r.Header.Get("Content-Type"))
		lastArg = nil
		require.NoError(t, json.Unmarshal([]byte(r.Header.Get(apiArgHeader)), &lastArg))
		b, _ := io.ReadAll(r.Body)
		lastBody = string(b)
		writeJSON(w, 200, map[string]any{"rev": "new-rev"})
	})
	ctx := context.Background()

	rev, err := c.Upload(ctx, "/a.flogger.txt", []byte("x"), provider.Add())
	require.NoError(t, err)
	assert.Equal(t, "new-rev", rev)
	assert.Equal(t, "add", lastArg["mode"])
	assert.Equal(t, false, lastArg["autorename"])
	assert.Equal(t, "x", lastBody)

	_, err = c.Upload(ctx, "/a.flogger.txt", []byte("y"), provider.Update("r1"))
	require.NoError(t, err)
	assert.Equal(t, map[string]any{".tag": "update", "update": "r1"}, lastArg["mode"])
}

func TestUpload_ConflictCarriesSummary(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusConflict, map[string]any{"error_summary": "path/conflict/file/.."})
	})

	_, err := c.Upload(context.Background(), "/a.flogger.txt", []byte("x"), provider.Update("stale"))
	require.ErrorIs(t, err, common.ErrVersionConflict)

	var ce *common.ConflictError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "path/conflict/file/..", ce.Message)
	assert.Equal(t, "/a.flogger.txt", ce.Path)
	assert.Equal(t, "stale", ce.Revision)
}

func TestDelete_SendsParentRev(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/2/files/delete_v2", r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "r9", body["parent_rev"])
		writeJSON(w, 200, map[string]any{"metadata": map[string]any{}})
	})
	require.NoError(t, c.Delete(context.Background(), "/gone.flogger", "r9"))
}

func TestCurrentAccount(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/2/users/get_current_account", r.URL.Path)
		b, _ := io.ReadAll(r.Body)
		assert.Equal(t, "null", string(b))
		writeJSON(w, 200, map[string]any{"email": "me@example.com", "name": map[string]any{"display_name": "Me"}})
	})

	a, err := c.CurrentAccount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, provider.Account{Email: "me@example.com", DisplayName: "Me"}, a)
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   any
		want   error
	}{
		{name: "unauthorized", status: 401, body: map[string]any{"error_summary": "expired_access_token/"}, want: common.ErrorUnauthorized},
		{name: "not found", status: 409, body: map[string]any{"error_summary": "path/not_found/.."}, want: common.ErrorNotFound},
		{name: "conflict", status: 409, body: map[string]any{"error_summary": "path/conflict/file/"}, want: common.ErrVersionConflict},
		{name: "rate limited", status: 429, body: map[string]any{"error_summary": "too_many_requests/"}, want: common.ErrUnavailable},
		{name: "server error", status: 503, body: "down", want: common.ErrUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, tt.status, tt.body)
			})
			_, err := c.Download(context.Background(), "/x")
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestTransportError_RefreshFailureIsUnauthorized(t *testing.T) {
	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 400, map[string]any{"error": "invalid_grant"})
	}))
	defer tokenSrv.Close()

	conf := &oauth2.Config{ClientID: "id", Endpoint: oauth2.Endpoint{TokenURL: tokenSrv.URL}}
	expired := &oauth2.Token{AccessToken: "old", RefreshToken: "r", Expiry: time.Now().Add(-time.Hour)}
	hc := oauth2.NewClient(context.Background(), conf.TokenSource(context.Background(), expired))

	c := New(hc, Options{APIURL: "http://127.0.0.1:1", ContentURL: "http://127.0.0.1:1"}, nil)
	_, err := c.ListFolder(context.Background(), "", true)
	require.ErrorIs(t, err, common.ErrorUnauthorized)
}

type rejectingTransport struct{}

func (rejectingTransport) RoundTrip(*http.Request) (*http.Response, error) {
	return nil, fmt.Errorf("%w: not connected", common.ErrorUnauthorized)
}

func TestTransportError_MissingTokenIsUnauthorized(t *testing.T) {
	c := New(&http.Client{Transport: rejectingTransport{}}, Options{APIURL: "http://127.0.0.1:1", ContentURL: "http://127.0.0.1:1"}, nil)
	_, err := c.CurrentAccount(context.Background())
	require.ErrorIs(t, err, common.ErrorUnauthorized)
	require.NotErrorIs(t, err, common.ErrUnavailable)
}

func TestTransportError_Unreachable(t *testing.T) {
	c := New(nil, Options{APIURL: "http://127.0.0.1:1", ContentURL: "http://127.0.0.1:1"}, nil)
	_, err := c.CurrentAccount(context.Background())
	require.ErrorIs(t, err, common.ErrUnavailable)
}

func TestHeaderJSON_EscapesNonASCII(t *testing.T) {
	got, err := headerJSON(map[string]string{"path": "/día 😀.flogger"})
	require.NoError(t, err)
	assert.Equal(t, `{"path":"/d\u00eda \ud83d\ude00.flogger"}`, got)

	var back map[string]string
	require.NoError(t, json.Unmarshal([]byte(got), &back))
	assert.Equal(t, "/día 😀.flogger", back["path"])
}

func TestAPIPath(t *testing.T) {
	assert.Equal(t, "", apiPath("/"))
	assert.Equal(t, "", apiPath(""))
	assert.Equal(t, "/a", apiPath("a"))
	assert.Equal(t, "/a", apiPath("/a"))
}
