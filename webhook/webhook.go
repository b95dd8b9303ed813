// Package webhook implements the HTTP push counterpart to longpoll: a
// single POST endpoint accepting one update per request, decoding and
// dispatching it, and always answering 200 {"ok": true} so the platform
// never retries a request this bot has already accepted.
package webhook

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/hrygo/maxbot/bot"
	"github.com/hrygo/maxbot/updates"
)

// DefaultPath is the receiver's default route when none is configured.
const DefaultPath = "/"

// Handler is the sink decoded updates are pushed to, satisfied by
// *dispatcher.Dispatcher.
type Handler interface {
	Handle(ctx context.Context, u *updates.Update) error
}

// Server wraps an echo.Echo exposing the update receiver plus any
// extra routes registered via Post.
type Server struct {
	echo    *echo.Echo
	bot     bot.Client
	handler Handler

	// AutoRequests enriches every update with its full Chat and, where
	// derivable, the acting User before dispatch, at the cost of one or
	// two extra platform API calls per update.
	AutoRequests bool
}

// New builds a Server. Call Listen(path) to attach the update receiver,
// and Post to attach any additional platform-initiated webhooks (e.g.
// payment callbacks) before starting it with Start.
func New(client bot.Client, handler Handler) *Server {
	return &Server{echo: echo.New(), bot: client, handler: handler}
}

// Listen registers the update receiver at path, defaulting to
// DefaultPath.
func (s *Server) Listen(path string) *Server {
	if path == "" {
		path = DefaultPath
	}
	s.echo.POST(path, s.receive)
	return s
}

// Post attaches an extra POST route whose handler is invoked directly —
// an escape hatch for platform webhooks outside the update stream
// (e.g. payment notifications), mirroring the upstream framework's
// webhook_post decorator.
func (s *Server) Post(path string, fn echo.HandlerFunc) *Server {
	s.echo.POST(path, fn)
	return s
}

// Start serves HTTP on addr until ctx is cancelled. It first logs the
// platform's currently registered webhook subscriptions, a sanity check
// that this instance is actually the one they point at.
func (s *Server) Start(ctx context.Context, addr string) error {
	s.logSubscriptions(ctx)

	errCh := make(chan error, 1)
	go func() { errCh <- s.echo.Start(addr) }()

	select {
	case <-ctx.Done():
		return s.echo.Shutdown(context.Background())
	case err := <-errCh:
		return err
	}
}

type okResponse struct {
	OK bool `json:"ok"`
}

func (s *Server) logSubscriptions(ctx context.Context) {
	subs, err := s.bot.GetSubscriptions(ctx)
	if err != nil {
		slog.Warn("webhook: failed to list registered subscriptions", "error", err)
		return
	}
	if len(subs) == 0 {
		slog.Warn("webhook: bot has no registered webhook subscriptions")
		return
	}
	for _, sub := range subs {
		slog.Info("webhook: registered subscription", "url", sub.URL, "update_types", sub.UpdateTypes)
	}
}

func (s *Server) receive(c echo.Context) error {
	raw, err := io.ReadAll(c.Request().Body)
	if err != nil {
		slog.Warn("webhook: failed to read body", "error", err)
		return c.JSON(http.StatusOK, okResponse{OK: true})
	}

	u, err := updates.Decode(raw)
	if err != nil {
		slog.Warn("webhook: failed to decode update", "error", err)
		return c.JSON(http.StatusOK, okResponse{OK: true})
	}
	if u == updates.Skipped {
		return c.JSON(http.StatusOK, okResponse{OK: true})
	}
	u.Attach(s.bot)
	if s.AutoRequests {
		u.Enrich(c.Request().Context())
	}

	if err := s.handler.Handle(c.Request().Context(), u); err != nil {
		slog.Error("webhook: handler failed", "error", err)
	}
	return c.JSON(http.StatusOK, okResponse{OK: true})
}
