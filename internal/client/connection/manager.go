package connection

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"github.com/dmitrijs2005/flogger/internal/client/provider"
	"github.com/dmitrijs2005/flogger/internal/client/session"
	"github.com/dmitrijs2005/flogger/internal/common"
	"github.com/dmitrijs2005/flogger/internal/logging"
	"github.com/dmitrijs2005/flogger/internal/observe"
)

var allKeys = []string{
	common.SessionKeyAccessToken,
	common.SessionKeyExpiresIn,
	common.SessionKeyRefreshToken,
	common.SessionKeyCodeVerifier,
	common.SessionKeyState,
}

// Redirect carries the query parameters of the OAuth redirect.
type Redirect struct {
	Code  string
	State string
	Error string
}

// AccountFetcher returns the identity behind the current token.
type AccountFetcher interface {
	CurrentAccount(ctx context.Context) (provider.Account, error)
}

type Options struct {
	OAuth   *oauth2.Config
	Session session.Store
	Log     logging.Logger
	// HTTPClient is used for code exchange and refresh. Nil means
	// http.DefaultClient.
	HTTPClient *http.Client
}

// Manager is the process-wide connection state. Construct one per process
// and share it.
type Manager struct {
	conf *oauth2.Config
	sess session.Store
	log  logging.Logger
	hc   *http.Client

	connected *observe.Value[bool]
	owner     *observe.Value[string]

	// mu serialises redirect handling and token refresh. Observers are
	// never notified while it is held.
	mu       sync.Mutex
	redeemed map[string]error

	waitMu  sync.Mutex
	waiters []chan error
}

// New builds a Manager and reads the initial connection state from the
// session store.
func New(ctx context.Context, opts Options) (*Manager, error) {
	if opts.OAuth == nil || opts.Session == nil {
		return nil, errors.New("connection: oauth config and session store are required")
	}
	log := opts.Log
	if log == nil {
		log = logging.Nop{}
	}

	m := &Manager{
		conf:      opts.OAuth,
		sess:      opts.Session,
		log:       log.With("component", "connection"),
		hc:        opts.HTTPClient,
		connected: observe.NewValue(false),
		owner:     observe.NewValue(""),
		redeemed:  make(map[string]error),
	}

	tok, _, err := opts.Session.Get(ctx, common.SessionKeyAccessToken)
	if err != nil {
		return nil, fmt.Errorf("read session: %w", err)
	}
	m.connected.Set(tok != "")
	return m, nil
}

func (m *Manager) HasConnection() bool {
	return m.connected.Get()
}

// OnConnectionChange calls fn whenever the connection flag changes.
func (m *Manager) OnConnectionChange(fn func(bool)) (cancel func()) {
	return m.connected.Subscribe(fn)
}

// BeginConnection starts a fresh grant and navigates w to the authorization
// URL. Failures are logged, the connection is cleared, and false returned.
func (m *Manager) BeginConnection(ctx context.Context, w Window) bool {
	m.ClearConnection(ctx)

	verifier := oauth2.GenerateVerifier()
	state, err := common.MakeRandHexString(16)
	if err != nil {
		m.log.Error(ctx, "generate oauth state", "err", err)
		m.ClearConnection(ctx)
		return false
	}

	if err := m.sess.SetMany(ctx, map[string]string{
		common.SessionKeyCodeVerifier: verifier,
		common.SessionKeyState:        state,
	}); err != nil {
		m.log.Error(ctx, "store pkce verifier", "err", err)
		m.ClearConnection(ctx)
		return false
	}

	url := m.conf.AuthCodeURL(state,
		oauth2.S256ChallengeOption(verifier),
		oauth2.SetAuthURLParam("token_access_type", "offline"),
	)
	if err := w.Navigate(ctx, url); err != nil {
		m.log.Error(ctx, "navigate to authorization url", "err", err)
		m.ClearConnection(ctx)
		return false
	}

	m.log.Info(ctx, "awaiting authorization redirect")
	return true
}

// CompleteConnectionFromRedirect redeems the authorization code in r. Each
// code is redeemed at most once per process; repeated calls return the
// first outcome. A redirect without code or error is ignored.
func (m *Manager) CompleteConnectionFromRedirect(ctx context.Context, r Redirect) error {
	if r.Code == "" && r.Error == "" {
		return nil
	}

	key := "code:" + r.Code
	if r.Code == "" {
		key = "error:" + r.Error + ":" + r.State
	}

	m.mu.Lock()
	if outcome, done := m.redeemed[key]; done {
		m.mu.Unlock()
		return outcome
	}
	err := m.redeem(ctx, r)
	m.redeemed[key] = err
	m.mu.Unlock()

	if err != nil {
		m.log.Warn(ctx, "authorization failed", "err", err)
		if derr := m.sess.Delete(ctx, common.SessionKeyCodeVerifier, common.SessionKeyState); derr != nil {
			m.log.Error(ctx, "remove pkce verifier", "err", derr)
		}
	} else {
		m.connected.Set(true)
	}
	m.notify(err)
	return err
}

func (m *Manager) redeem(ctx context.Context, r Redirect) error {
	if r.Error != "" {
		return fmt.Errorf("%w: provider returned %q", common.ErrAuthorization, r.Error)
	}

	verifier, ok, err := m.sess.Get(ctx, common.SessionKeyCodeVerifier)
	if err != nil {
		return fmt.Errorf("%w: read verifier: %v", common.ErrAuthorization, err)
	}
	if !ok || verifier == "" {
		return fmt.Errorf("%w: no pending authorization", common.ErrAuthorization)
	}
	state, _, err := m.sess.Get(ctx, common.SessionKeyState)
	if err != nil {
		return fmt.Errorf("%w: read state: %v", common.ErrAuthorization, err)
	}
	if state != r.State {
		return fmt.Errorf("%w: state mismatch", common.ErrAuthorization)
	}

	tok, err := m.conf.Exchange(m.httpContext(ctx), r.Code, oauth2.VerifierOption(verifier))
	if err != nil {
		return fmt.Errorf("%w: exchange code: %v", common.ErrAuthorization, err)
	}

	if err := m.storeToken(ctx, tok); err != nil {
		return fmt.Errorf("%w: %v", common.ErrAuthorization, err)
	}
	if err := m.sess.Delete(ctx, common.SessionKeyCodeVerifier, common.SessionKeyState); err != nil {
		m.log.Error(ctx, "remove pkce verifier", "err", err)
	}

	m.log.Info(ctx, "connected", "expires", tok.Expiry)
	return nil
}

// AwaitConnection blocks until the next redirect is handled and returns its
// outcome, or ctx.Err() if ctx ends first.
func (m *Manager) AwaitConnection(ctx context.Context) error {
	ch := make(chan error, 1)
	m.waitMu.Lock()
	m.waiters = append(m.waiters, ch)
	m.waitMu.Unlock()

	select {
	case err := <-ch:
		return err
	case <-ctx.Done():
		m.waitMu.Lock()
		for i, w := range m.waiters {
			if w == ch {
				m.waiters = append(m.waiters[:i], m.waiters[i+1:]...)
				break
			}
		}
		m.waitMu.Unlock()
		return ctx.Err()
	}
}

func (m *Manager) notify(err error) {
	m.waitMu.Lock()
	waiters := m.waiters
	m.waiters = nil
	m.waitMu.Unlock()

	for _, ch := range waiters {
		ch <- err
	}
}

// ClearConnection removes every connection key and resets observers.
// Calling it while disconnected is a no-op apart from the key removal.
func (m *Manager) ClearConnection(ctx context.Context) {
	if err := m.sess.Delete(ctx, allKeys...); err != nil {
		m.log.Error(ctx, "clear session", "err", err)
	}
	m.owner.Set("")
	if m.connected.Get() {
		m.connected.Set(false)
		m.log.Info(ctx, "disconnected")
	}
}

// Token returns the stored token without refreshing it.
func (m *Manager) Token(ctx context.Context) (*oauth2.Token, error) {
	access, _, err := m.sess.Get(ctx, common.SessionKeyAccessToken)
	if err != nil {
		return nil, fmt.Errorf("read session: %w", err)
	}
	if access == "" {
		return nil, common.ErrorUnauthorized
	}
	refresh, _, err := m.sess.Get(ctx, common.SessionKeyRefreshToken)
	if err != nil {
		return nil, fmt.Errorf("read session: %w", err)
	}
	tok := &oauth2.Token{AccessToken: access, TokenType: "Bearer", RefreshToken: refresh}

	exp, _, err := m.sess.Get(ctx, common.SessionKeyExpiresIn)
	if err != nil {
		return nil, fmt.Errorf("read session: %w", err)
	}
	if exp != "" {
		t, err := time.Parse(time.RFC3339, exp)
		if err != nil {
			return nil, fmt.Errorf("parse token expiry: %w", err)
		}
		tok.Expiry = t
	}
	return tok, nil
}

// EnsureFresh makes sure a usable token is stored, refreshing it if it has
// expired. When no token exists or the refresh fails the connection is
// cleared and an error matching common.ErrorUnauthorized is returned.
func (m *Manager) EnsureFresh(ctx context.Context) error {
	_, err := m.fresh(ctx)
	return err
}

func (m *Manager) fresh(ctx context.Context) (*oauth2.Token, error) {
	m.mu.Lock()
	tok, broken, err := m.freshLocked(ctx)
	m.mu.Unlock()

	if broken {
		m.ClearConnection(ctx)
	}
	return tok, err
}

// freshLocked runs with mu held. broken reports that the stored grant is
// unusable and the connection must be cleared.
func (m *Manager) freshLocked(ctx context.Context) (tok *oauth2.Token, broken bool, err error) {
	tok, err = m.Token(ctx)
	if err != nil {
		return nil, errors.Is(err, common.ErrorUnauthorized), err
	}
	if tok.Valid() {
		return tok, false, nil
	}
	if tok.RefreshToken == "" {
		return nil, true, fmt.Errorf("%w: token expired", common.ErrorUnauthorized)
	}

	next, err := m.conf.TokenSource(m.httpContext(ctx), tok).Token()
	if err != nil {
		m.log.Warn(ctx, "token refresh failed", "err", err)
		return nil, true, fmt.Errorf("%w: refresh: %v", common.ErrorUnauthorized, err)
	}
	if next.RefreshToken == "" {
		next.RefreshToken = tok.RefreshToken
	}
	if err := m.storeToken(ctx, next); err != nil {
		return nil, false, err
	}
	m.log.Debug(ctx, "token refreshed", "expires", next.Expiry)
	return next, false, nil
}

// Client returns an HTTP client that authorises every request with the
// currently stored token, refreshing it under the request's context. There
// is no token cache besides the session store, so a cleared or replaced
// connection takes effect on the next request. base supplies the timeout
// and transport; nil means http.DefaultClient.
func (m *Manager) Client(base *http.Client) *http.Client {
	if base == nil {
		base = http.DefaultClient
	}
	rt := base.Transport
	if rt == nil {
		rt = http.DefaultTransport
	}
	return &http.Client{
		Transport:     &transport{m: m, base: rt},
		Timeout:       base.Timeout,
		Jar:           base.Jar,
		CheckRedirect: base.CheckRedirect,
	}
}

type transport struct {
	m    *Manager
	base http.RoundTripper
}

func (t *transport) RoundTrip(req *http.Request) (*http.Response, error) {
	tok, err := t.m.fresh(req.Context())
	if err != nil {
		if req.Body != nil {
			_ = req.Body.Close()
		}
		return nil, err
	}
	r := req.Clone(req.Context())
	tok.SetAuthHeader(r)
	return t.base.RoundTrip(r)
}

// AccountOwner fetches the display identity behind the token. A failure is
// treated as a broken connection.
func (m *Manager) AccountOwner(ctx context.Context, f AccountFetcher) (string, error) {
	acc, err := f.CurrentAccount(ctx)
	if err != nil {
		m.log.Warn(ctx, "fetch account owner", "err", err)
		m.ClearConnection(ctx)
		return "", err
	}
	m.owner.Set(acc.Email)
	return acc.Email, nil
}

// Owner returns the last fetched account owner, or "".
func (m *Manager) Owner() string {
	return m.owner.Get()
}

func (m *Manager) storeToken(ctx context.Context, tok *oauth2.Token) error {
	kv := map[string]string{
		common.SessionKeyAccessToken: tok.AccessToken,
		common.SessionKeyExpiresIn:   "",
	}
	if !tok.Expiry.IsZero() {
		kv[common.SessionKeyExpiresIn] = tok.Expiry.UTC().Format(time.RFC3339)
	}
	if tok.RefreshToken != "" {
		kv[common.SessionKeyRefreshToken] = tok.RefreshToken
	}
	if err := m.sess.SetMany(ctx, kv); err != nil {
		return fmt.Errorf("store token: %w", err)
	}
	return nil
}

func (m *Manager) httpContext(ctx context.Context) context.Context {
	if m.hc == nil {
		return ctx
	}
	return context.WithValue(ctx, oauth2.HTTPClient, m.hc)
}
