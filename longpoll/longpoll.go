// Package longpoll drives the long-poll ingestion loop: call GetUpdates,
// decode and dispatch whatever comes back, and retry through transient
// failures without ever busy-looping or silently dying.
package longpoll

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hrygo/maxbot/bot"
	"github.com/hrygo/maxbot/maxerr"
	"github.com/hrygo/maxbot/updates"
)

const (
	connectionRetryDelay = 30 * time.Second
	apiErrorRetryDelay   = 5 * time.Second
	pollTimeoutSeconds   = 30
)

// Handler is the sink updates are pushed to, satisfied by
// *dispatcher.Dispatcher.
type Handler interface {
	Handle(ctx context.Context, u *updates.Update) error
}

// Driver runs the long-poll loop against a bot.Client, pushing decoded
// updates into a Handler.
type Driver struct {
	Bot     bot.Client
	Handler Handler
	Types   []string // empty means every update type

	// SkipUpdates discards updates timestamped before the loop started,
	// avoiding a backlog replay on first connect. Applies only to the
	// first GetUpdates batch; later batches are never this stale.
	SkipUpdates bool

	// AutoRequests enriches every update with its full Chat and, where
	// derivable, the acting User before dispatch, at the cost of one or
	// two extra platform API calls per update.
	AutoRequests bool

	// Concurrent dispatches each update on its own goroutine instead of
	// awaiting Handle before fetching the next batch, bounded by
	// MaxConcurrent in-flight goroutines (0 means unbounded).
	Concurrent    bool
	MaxConcurrent int

	stop chan struct{}
}

// New builds a Driver.
func New(client bot.Client, handler Handler) *Driver {
	return &Driver{Bot: client, Handler: handler, stop: make(chan struct{})}
}

// Stop requests the Run loop to exit after its current iteration.
// Cooperative, not preemptive: in-flight handler calls are not
// cancelled.
func (d *Driver) Stop() {
	select {
	case <-d.stop:
	default:
		close(d.stop)
	}
}

// Run checks the bot's identity, then loops GetUpdates/dispatch until
// ctx is cancelled, Stop is called, or an authentication failure makes
// the loop unrecoverable (in which case Run returns the error).
func (d *Driver) Run(ctx context.Context) error {
	me, err := d.Bot.GetMe(ctx)
	if err != nil {
		return err
	}
	slog.Info("longpoll: bot ready", "username", me.Username, "user_id", me.UserID)

	startMs := time.Now().UnixMilli()
	firstBatch := true

	var marker *int64
	var group *errgroup.Group
	if d.Concurrent {
		group, ctx = errgroup.WithContext(ctx)
		if d.MaxConcurrent > 0 {
			group.SetLimit(d.MaxConcurrent)
		}
	}

	for {
		select {
		case <-ctx.Done():
			return waitGroup(group)
		case <-d.stop:
			return waitGroup(group)
		default:
		}

		raw, nextMarker, err := d.Bot.GetUpdates(ctx, marker, pollTimeoutSeconds, d.Types)
		if err != nil {
			switch {
			case errors.Is(ctx.Err(), context.Canceled):
				return waitGroup(group)
			case isTimeout(err):
				continue
			case isTransport(err):
				slog.Warn("longpoll: connection error, retrying", "error", err, "retry_in", connectionRetryDelay)
				if !sleep(ctx, connectionRetryDelay) {
					return waitGroup(group)
				}
				continue
			case isInvalidToken(err):
				slog.Error("longpoll: invalid token, stopping")
				return err
			case isPlatformError(err):
				slog.Info("longpoll: platform error, retrying", "error", err, "retry_in", apiErrorRetryDelay)
				if !sleep(ctx, apiErrorRetryDelay) {
					return waitGroup(group)
				}
				continue
			default:
				slog.Error("longpoll: unexpected error, retrying", "error", err, "retry_in", apiErrorRetryDelay)
				if !sleep(ctx, apiErrorRetryDelay) {
					return waitGroup(group)
				}
				continue
			}
		}

		marker = nextMarker

		for _, r := range raw {
			u, err := updates.Decode(r)
			if err != nil {
				slog.Warn("longpoll: failed to decode update", "error", err)
				continue
			}
			if u == updates.Skipped {
				continue
			}
			u.Attach(d.Bot)

			if d.SkipUpdates && firstBatch && u.Timestamp < startMs {
				slog.Debug("longpoll: skipping stale update", "update_type", u.Kind)
				continue
			}

			if d.AutoRequests {
				u.Enrich(ctx)
			}

			if d.Concurrent {
				u := u
				group.Go(func() error {
					if err := d.Handler.Handle(ctx, u); err != nil {
						slog.Error("longpoll: handler failed", "error", err)
					}
					return nil
				})
			} else if err := d.Handler.Handle(ctx, u); err != nil {
				slog.Error("longpoll: handler failed", "error", err)
			}
		}
		firstBatch = false
	}
}

func waitGroup(g *errgroup.Group) error {
	if g == nil {
		return nil
	}
	return g.Wait()
}

func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func isTimeout(err error) bool {
	var netErr interface{ Timeout() bool }
	return errors.As(err, &netErr) && netErr.Timeout()
}

func isTransport(err error) bool {
	var te *maxerr.TransportError
	return errors.As(err, &te)
}

func isInvalidToken(err error) bool {
	var ite *maxerr.InvalidTokenError
	if errors.As(err, &ite) {
		return true
	}
	var pe *maxerr.PlatformError
	return errors.As(err, &pe) && pe.IsAuthFailure()
}

func isPlatformError(err error) bool {
	var pe *maxerr.PlatformError
	return errors.As(err, &pe)
}
