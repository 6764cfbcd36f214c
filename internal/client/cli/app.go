package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dmitrijs2005/flogger/internal/client/callback"
	"github.com/dmitrijs2005/flogger/internal/client/codec"
	"github.com/dmitrijs2005/flogger/internal/client/config"
	"github.com/dmitrijs2005/flogger/internal/client/connection"
	"github.com/dmitrijs2005/flogger/internal/client/flogs"
	"github.com/dmitrijs2005/flogger/internal/client/models"
	"github.com/dmitrijs2005/flogger/internal/client/provider"
	"github.com/dmitrijs2005/flogger/internal/client/provider/dropbox"
	"github.com/dmitrijs2005/flogger/internal/client/provider/memory"
	"github.com/dmitrijs2005/flogger/internal/client/provider/s3"
	"github.com/dmitrijs2005/flogger/internal/client/session"
	"github.com/dmitrijs2005/flogger/internal/client/store"
	"github.com/dmitrijs2005/flogger/internal/client/tags"
	"github.com/dmitrijs2005/flogger/internal/client/templates"
	"github.com/dmitrijs2005/flogger/internal/common"
	"github.com/dmitrijs2005/flogger/internal/logging"
	"golang.org/x/oauth2"
)

// connectTimeout bounds how long connect waits for the browser redirect.
const connectTimeout = 5 * time.Minute

// connector is the connection surface shared by *connection.Manager and
// *connection.Static.
type connector interface {
	HasConnection() bool
	OnConnectionChange(fn func(bool)) (cancel func())
	EnsureFresh(ctx context.Context) error
	ClearConnection(ctx context.Context)
	AccountOwner(ctx context.Context, f connection.AccountFetcher) (string, error)
	Owner() string
}

type App struct {
	cfg *config.Config
	log logging.Logger

	conn     connector
	connect  func(ctx context.Context) error
	provider provider.Provider
	store    *store.Store
	index    *tags.Index
	flogs    *flogs.Aggregator
	codec    *codec.Codec
	callback *callback.Server

	reader  *bufio.Reader
	out     io.Writer
	prompts io.Writer

	current *models.Document
	listed  []*models.Document

	closers []func() error
}

// NewApp wires configuration, logging, the session store, the storage
// provider and the document layers. Prompts are written to out only when
// interactive is true.
func NewApp(ctx context.Context, cfg *config.Config, in io.Reader, out io.Writer, interactive bool) (*App, error) {
	log, closeLog, err := logging.New(logging.Options{
		Backend: cfg.LogBackend,
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
		File:    cfg.LogFile,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("logging: %w", err)
	}

	a := &App{
		cfg:     cfg,
		log:     log,
		codec:   codec.New(nil),
		reader:  bufio.NewReader(in),
		out:     out,
		prompts: io.Discard,
		closers: []func() error{closeLog},
	}
	if interactive {
		a.prompts = out
	}

	if err := a.wireConnection(ctx); err != nil {
		_ = a.Close()
		return nil, err
	}

	ts, err := loadTemplates(cfg.TemplateDir)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	a.store = store.New(store.Options{
		Provider:        a.provider,
		Connection:      a.conn,
		Templates:       ts,
		DefaultDocument: cfg.DefaultDocument,
		Log:             log,
	})
	a.index = tags.New(a.store, cfg.TagIndexPath, log)
	a.flogs = flogs.New(flogs.Options{
		Documents:  a.store,
		Index:      a.index,
		Connection: a.conn,
		Codec:      a.codec,
		Log:        log,
	})
	return a, nil
}

func (a *App) wireConnection(ctx context.Context) error {
	cfg := a.cfg
	switch cfg.Provider {
	case config.ProviderDropbox:
		sess, err := a.openSession(ctx)
		if err != nil {
			return err
		}
		hc := &http.Client{Timeout: cfg.RequestTimeout}
		mgr, err := connection.New(ctx, connection.Options{
			OAuth: &oauth2.Config{
				ClientID:    cfg.OAuthClientID,
				RedirectURL: cfg.OAuthRedirectURI,
				Endpoint:    oauth2.Endpoint{AuthURL: cfg.OAuthAuthURL, TokenURL: cfg.OAuthTokenURL},
			},
			Session:    sess,
			Log:        a.log,
			HTTPClient: hc,
		})
		if err != nil {
			return err
		}

		api := mgr.Client(hc)

		a.conn = mgr
		a.provider = dropbox.New(api, dropbox.Options{APIURL: cfg.DropboxAPIURL, ContentURL: cfg.DropboxContentURL}, a.log)
		a.callback = callback.New(mgr, a.log)
		a.connect = func(ctx context.Context) error {
			w := connection.BrowserWindow{Fallback: connection.PrintWindow{W: a.out}}
			if !mgr.BeginConnection(ctx, w) {
				return fmt.Errorf("%w: could not start authorization", common.ErrAuthorization)
			}
			fmt.Fprintln(a.out, "Waiting for authorization in the browser...")
			ctx, cancel := context.WithTimeout(ctx, connectTimeout)
			defer cancel()
			return mgr.AwaitConnection(ctx)
		}
		return nil

	case config.ProviderS3:
		b, err := s3.New(ctx, s3.Options{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
			Prefix:          cfg.S3Prefix,
		}, a.log)
		if err != nil {
			return err
		}
		a.provider = b
		a.useStatic()
		return nil

	case config.ProviderMemory:
		a.provider = memory.New()
		a.useStatic()
		return nil
	}
	return fmt.Errorf("unknown provider %q", cfg.Provider)
}

func (a *App) useStatic() {
	st := connection.NewStatic()
	a.conn = st
	a.connect = func(ctx context.Context) error {
		st.Connect()
		_, err := st.AccountOwner(ctx, a.provider)
		return err
	}
}

func (a *App) openSession(ctx context.Context) (session.Store, error) {
	if a.cfg.SessionDSN == "" {
		return session.NewMemoryStore(), nil
	}
	s, db, err := session.OpenSQLite(ctx, a.cfg.SessionDSN)
	if err != nil {
		return nil, fmt.Errorf("open session store: %w", err)
	}
	a.closers = append(a.closers, db.Close)
	return s, nil
}

func loadTemplates(dir string) ([]templates.Template, error) {
	if dir == "" {
		return templates.Embedded()
	}
	ts, err := templates.FromDir(dir)
	if err != nil {
		return nil, fmt.Errorf("templates from %s: %w", dir, err)
	}
	return ts, nil
}

// Run starts the callback endpoint when the provider needs one, loads the
// initial listing and runs the REPL until the user exits.
func (a *App) Run(ctx context.Context) error {
	if a.callback != nil {
		if _, err := a.callback.Start(ctx, a.cfg.CallbackAddr); err != nil {
			return err
		}
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := a.callback.Shutdown(sctx); err != nil {
				a.log.Warn(sctx, "callback shutdown", "err", err)
			}
		}()
	}

	if err := a.flogs.Start(ctx); err != nil {
		a.log.Warn(ctx, "initial listing failed", "err", err)
	}
	defer a.flogs.Stop()

	fmt.Fprintln(a.out, "flogger (type 'help' for commands)")
	if !a.conn.HasConnection() {
		fmt.Fprintln(a.out, "Not connected. Type 'connect' to link your storage.")
	}
	runREPL(ctx, a, a.status, a.reader)
	return nil
}

// Close releases the session database and log file.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func (a *App) isConnected() bool {
	return a.conn.HasConnection()
}

func (a *App) status() string {
	s := "offline"
	if a.conn.HasConnection() {
		s = "connected"
		if owner := a.conn.Owner(); owner != "" {
			s = owner
		}
	}
	if a.current != nil {
		s += " " + a.current.Name()
	}
	return s
}
