// Package dropbox implements provider.Provider over the Dropbox HTTP API v2.
// Authentication is left to the *http.Client, normally the one returned by
// connection.Manager.Client, which attaches a fresh bearer token per request.
package dropbox

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/flogger/internal/client/provider"
	"github.com/dmitrijs2005/flogger/internal/logging"
)

const (
	DefaultAPIURL     = "https://api.dropboxapi.com"
	DefaultContentURL = "https://content.dropboxapi.com"

	apiArgHeader    = "Dropbox-API-Arg"
	apiResultHeader = "Dropbox-API-Result"
)

type Options struct {
	APIURL     string
	ContentURL string
}

type Client struct {
	http       *http.Client
	apiURL     string
	contentURL string
	log        logging.Logger
}

func New(hc *http.Client, opts Options, log logging.Logger) *Client {
	if hc == nil {
		hc = http.DefaultClient
	}
	if opts.APIURL == "" {
		opts.APIURL = DefaultAPIURL
	}
	if opts.ContentURL == "" {
		opts.ContentURL = DefaultContentURL
	}
	if log == nil {
		log = logging.Nop{}
	}
	return &Client{
		http:       hc,
		apiURL:     strings.TrimRight(opts.APIURL, "/"),
		contentURL: strings.TrimRight(opts.ContentURL, "/"),
		log:        log.With("provider", "dropbox"),
	}
}

type metadata struct {
	Tag            string    `json:".tag"`
	PathDisplay    string    `json:"path_display"`
	PathLower      string    `json:"path_lower"`
	Rev            string    `json:"rev"`
	ServerModified time.Time `json:"server_modified"`
}

func (m metadata) entry() provider.Entry {
	tag := provider.TagFile
	if m.Tag == "folder" {
		tag = provider.TagFolder
	}
	path := m.PathDisplay
	if path == "" {
		path = m.PathLower
	}
	return provider.Entry{Path: path, Revision: m.Rev, Tag: tag, ServerModified: m.ServerModified}
}

type listFolderResult struct {
	Entries []metadata `json:"entries"`
	Cursor  string     `json:"cursor"`
	HasMore bool       `json:"has_more"`
}

func (c *Client) ListFolder(ctx context.Context, path string, recursive bool) ([]provider.Entry, error) {
	var res listFolderResult
	err := c.rpc(ctx, "/2/files/list_folder", map[string]any{
		"path":      apiPath(path),
		"recursive": recursive,
	}, &res)
	if err != nil {
		return nil, fmt.Errorf("list_folder: %w", err)
	}

	out := make([]provider.Entry, 0, len(res.Entries))
	for {
		for _, m := range res.Entries {
			out = append(out, m.entry())
		}
		if !res.HasMore {
			break
		}
		cursor := res.Cursor
		res = listFolderResult{}
		if err := c.rpc(ctx, "/2/files/list_folder/continue", map[string]string{"cursor": cursor}, &res); err != nil {
			return nil, fmt.Errorf("list_folder/continue: %w", err)
		}
	}

	c.log.Debug(ctx, "listed folder", "path", path, "count", len(out))
	return out, nil
}

func (c *Client) Download(ctx context.Context, path string) (provider.File, error) {
	resp, err := c.content(ctx, "/2/files/download", map[string]string{"path": apiPath(path)}, nil)
	if err != nil {
		return provider.File{}, fmt.Errorf("download %s: %w", path, err)
	}
	defer resp.Body.Close()

	var meta metadata
	if h := resp.Header.Get(apiResultHeader); h != "" {
		if err := json.Unmarshal([]byte(h), &meta); err != nil {
			return provider.File{}, fmt.Errorf("download %s: decode result header: %w", path, err)
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return provider.File{}, fmt.Errorf("download %s: %w", path, unavailable(err))
	}
	return provider.File{Revision: meta.Rev, Content: body}, nil
}

func (c *Client) Upload(ctx context.Context, path string, content []byte, mode provider.WriteMode) (string, error) {
	arg := map[string]any{
		"path":       apiPath(path),
		"mode":       "add",
		"autorename": false,
		"mute":       true,
	}
	if mode.Update {
		arg["mode"] = map[string]string{".tag": "update", "update": mode.Revision}
	}

	resp, err := c.content(ctx, "/2/files/upload", arg, content)
	if err != nil {
		return "", fmt.Errorf("upload %s (%s): %w", path, mode, withConflictPath(err, path, mode.Revision))
	}
	defer resp.Body.Close()

	var meta metadata
	if err := json.NewDecoder(resp.Body).Decode(&meta); err != nil {
		return "", fmt.Errorf("upload %s: decode: %w", path, err)
	}
	c.log.Debug(ctx, "uploaded", "path", path, "mode", mode.String(), "rev", meta.Rev)
	return meta.Rev, nil
}

func (c *Client) Delete(ctx context.Context, path, parentRev string) error {
	arg := map[string]string{"path": apiPath(path)}
	if parentRev != "" {
		arg["parent_rev"] = parentRev
	}
	if err := c.rpc(ctx, "/2/files/delete_v2", arg, nil); err != nil {
		return fmt.Errorf("delete %s: %w", path, withConflictPath(err, path, parentRev))
	}
	return nil
}

type account struct {
	Email string `json:"email"`
	Name  struct {
		DisplayName string `json:"display_name"`
	} `json:"name"`
}

func (c *Client) CurrentAccount(ctx context.Context) (provider.Account, error) {
	var a account
	if err := c.rpc(ctx, "/2/users/get_current_account", nil, &a); err != nil {
		return provider.Account{}, fmt.Errorf("get_current_account: %w", err)
	}
	return provider.Account{Email: a.Email, DisplayName: a.Name.DisplayName}, nil
}

// rpc performs an RPC-style endpoint call: JSON in, JSON out. A nil arg sends
// the literal "null" body the API expects for argument-less calls.
func (c *Client) rpc(ctx context.Context, endpoint string, arg any, out any) error {
	body := []byte("null")
	if arg != nil {
		b, err := json.Marshal(arg)
		if err != nil {
			return err
		}
		body = b
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", endpoint, err)
	}
	return nil
}

// content performs a content endpoint call: the argument travels in the
// Dropbox-API-Arg header and the body is raw bytes. The caller closes the
// response body.
func (c *Client) content(ctx context.Context, endpoint string, arg any, payload []byte) (*http.Response, error) {
	header, err := headerJSON(arg)
	if err != nil {
		return nil, err
	}

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.contentURL+endpoint, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set(apiArgHeader, header)
	if payload != nil {
		req.Header.Set("Content-Type", "application/octet-stream")
	}

	return c.do(req)
}

func (c *Client) do(req *http.Request) (*http.Response, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, mapTransportError(err)
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}
	defer resp.Body.Close()
	return nil, mapStatus(resp)
}

// apiPath converts a slash-rooted path to the API form, where the root
// folder is the empty string.
func apiPath(p string) string {
	if p == "/" {
		return ""
	}
	if p != "" && !strings.HasPrefix(p, "/") {
		return "/" + p
	}
	return p
}

// headerJSON marshals v for use in an HTTP header. Non-ASCII runes are
// escaped as \uXXXX since header values must be ASCII.
func headerJSON(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	for _, r := range string(b) {
		if r < 0x80 {
			sb.WriteRune(r)
			continue
		}
		if r > 0xFFFF {
			r1, r2 := surrogates(r)
			fmt.Fprintf(&sb, `\u%04x\u%04x`, r1, r2)
			continue
		}
		fmt.Fprintf(&sb, `\u%04x`, r)
	}
	return sb.String(), nil
}

func surrogates(r rune) (rune, rune) {
	r -= 0x10000
	return 0xD800 + (r>>10)&0x3FF, 0xDC00 + r&0x3FF
}
