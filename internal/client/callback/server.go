// Package callback serves the OAuth redirect target on the loopback
// interface. The registered redirect URI must point at
// http://<addr>/auth-callback/.
package callback

import (
	"context"
	"fmt"
	"html/template"
	"net"

	"github.com/gofiber/fiber/v2"

	"github.com/dmitrijs2005/flogger/internal/client/connection"
	"github.com/dmitrijs2005/flogger/internal/logging"
)

const Path = "/auth-callback/"

// Completer redeems a redirect. *connection.Manager satisfies it.
type Completer interface {
	CompleteConnectionFromRedirect(ctx context.Context, r connection.Redirect) error
}

type Server struct {
	app *fiber.App
	log logging.Logger
}

var page = template.Must(template.New("callback").Parse(`<!doctype html>
<html><head><meta charset="utf-8"><title>flogger</title></head>
<body>
<p>{{.}}</p>
<script>window.close()</script>
</body></html>
`))

func New(c Completer, log logging.Logger) *Server {
	if log == nil {
		log = logging.Nop{}
	}
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		AppName:               "flogger-callback",
	})

	s := &Server{app: app, log: log.With("component", "callback")}
	app.Get(Path, s.handle(c))
	return s
}

// App exposes the fiber app, mainly for app.Test.
func (s *Server) App() *fiber.App {
	return s.app
}

func (s *Server) handle(c Completer) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		r := connection.Redirect{
			Code:  ctx.Query("code"),
			State: ctx.Query("state"),
			Error: ctx.Query("error"),
		}
		if r.Code == "" && r.Error == "" {
			return s.render(ctx, fiber.StatusBadRequest, "Missing authorization code.")
		}

		if err := c.CompleteConnectionFromRedirect(ctx.UserContext(), r); err != nil {
			s.log.Warn(ctx.UserContext(), "redirect rejected", "err", err)
			return s.render(ctx, fiber.StatusUnauthorized, "Connection failed. Close this window and try again.")
		}
		return s.render(ctx, fiber.StatusOK, "Connected. You can close this window.")
	}
}

func (s *Server) render(ctx *fiber.Ctx, status int, msg string) error {
	ctx.Status(status)
	ctx.Type("html", "utf-8")
	return page.Execute(ctx.Response().BodyWriter(), msg)
}

// Start listens on addr and serves in the background. It returns the bound
// address, which differs from addr when addr uses port 0.
func (s *Server) Start(ctx context.Context, addr string) (string, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return "", fmt.Errorf("listen %s: %w", addr, err)
	}
	go func() {
		if err := s.app.Listener(ln); err != nil {
			s.log.Error(ctx, "callback server stopped", "err", err)
		}
	}()
	s.log.Info(ctx, "callback server listening", "addr", ln.Addr().String())
	return ln.Addr().String(), nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}
