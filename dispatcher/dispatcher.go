// Package dispatcher implements the router tree that decides, for each
// decoded update, which single handler (if any) processes it: router
// filters gate a whole router's handlers, each handler's own filters and
// FSM state gate it further, and the first match wins.
package dispatcher

import (
	"context"
	"log/slog"
	"time"

	"github.com/hrygo/maxbot/chats"
	"github.com/hrygo/maxbot/fsm"
	"github.com/hrygo/maxbot/maxerr"
	"github.com/hrygo/maxbot/updates"
)

// Metrics receives dispatch-lifecycle observations. Implemented by the
// metrics package; nil-safe no-op when not wired.
type Metrics interface {
	ObserveHandlerDuration(routerID string, d time.Duration)
	IncHandlerFailure(routerID string)
	IncUpdateProcessed(updateType string)
}

type noopMetrics struct{}

func (noopMetrics) ObserveHandlerDuration(string, time.Duration) {}
func (noopMetrics) IncHandlerFailure(string)                     {}
func (noopMetrics) IncUpdateProcessed(string)                    {}

// HandleFunc is the shape of Dispatcher.Handle itself: decode-to-dispatch
// for one update, start to finish.
type HandleFunc func(ctx context.Context, u *updates.Update) error

// GlobalMiddleware wraps the entire router-tree traversal for every
// update the Dispatcher handles — the outermost of the three middleware
// scopes, above router-level (outer/inner) and handler-level middleware.
// Those two only run once a handler in their router has matched, and both
// wrap that matched handler's invocation (router-level outermost); they do
// not wrap handler selection and do not run when no handler in the router
// matches. It has no Args: nothing has matched a handler yet at this scope.
type GlobalMiddleware func(next HandleFunc) HandleFunc

// Dispatcher is the root Router plus every router included into it. Per
// the upstream traversal order, the Dispatcher's own handlers are
// evaluated LAST, after every included child router — Include appends
// children; the Dispatcher itself is appended to the traversal list by
// allRouters, not by Include.
type Dispatcher struct {
	*Router
	children []*Router
	storage  fsm.Storage
	metrics  Metrics
	globalMW []GlobalMiddleware
	ready    bool
}

// New builds a Dispatcher backed by storage for FSM context lookups.
func New(storage fsm.Storage) *Dispatcher {
	return &Dispatcher{Router: NewRouter(), storage: storage, metrics: noopMetrics{}}
}

// Use registers Dispatcher-global middleware, appended so it runs after
// any global middleware already registered but still around the whole
// traversal, not any single router or handler.
func (d *Dispatcher) Use(mw GlobalMiddleware) *Dispatcher {
	d.globalMW = append(d.globalMW, mw)
	return d
}

// UseMetrics wires a Metrics recorder, replacing the no-op default.
func (d *Dispatcher) UseMetrics(m Metrics) *Dispatcher {
	if m != nil {
		d.metrics = m
	}
	return d
}

// Include adds child routers, evaluated before the Dispatcher's own
// handlers, in the order given.
func (d *Dispatcher) Include(routers ...*Router) *Dispatcher {
	d.children = append(d.children, routers...)
	return d
}

// Ready runs every router's on_started hook, in traversal order, and
// marks the Dispatcher ready. The host program (cmd/maxbot) calls this
// once before starting an ingestion driver; the drivers do not call it,
// and Handle does not check it.
func (d *Dispatcher) Ready(ctx context.Context) error {
	for _, r := range d.allRouters() {
		if r.onStarted == nil {
			continue
		}
		if err := r.onStarted(ctx); err != nil {
			return err
		}
	}
	d.ready = true
	return nil
}

// allRouters returns children followed by the Dispatcher's own router,
// which is always evaluated last.
func (d *Dispatcher) allRouters() []*Router {
	return append(append([]*Router{}, d.children...), d.Router)
}

// Handle routes one decoded update through the router tree, wrapped by
// every Dispatcher-global middleware registered via Use. Exactly one
// handler runs, or none if nothing matches; a handler error is wrapped
// into a maxerr.HandlerFailureError and returned, never panicking the
// caller's ingestion loop.
func (d *Dispatcher) Handle(ctx context.Context, u *updates.Update) error {
	return globalChain(d.globalMW, d.handle)(ctx, u)
}

func (d *Dispatcher) handle(ctx context.Context, u *updates.Update) error {
	d.metrics.IncUpdateProcessed(string(u.Kind))

	key := u.StorageKey()
	fsmCtx := fsm.New(d.storage, key)
	currentState, err := fsmCtx.State(ctx)
	if err != nil {
		return err
	}

	processInfo := processInfo(u, key)

	for _, router := range d.allRouters() {
		handled, err := d.tryRouter(ctx, router, u, fsmCtx, currentState, processInfo)
		if err != nil {
			return err
		}
		if handled {
			return nil
		}
	}
	slog.Debug("dispatcher: no handler matched", "process_info", processInfo)
	return nil
}

// globalChain builds outer-to-inner around fn, mirroring
// router.go's middlewareChain but over HandleFunc rather than
// HandlerFunc: the first registered middleware is outermost.
func globalChain(mws []GlobalMiddleware, fn HandleFunc) HandleFunc {
	wrapped := fn
	for i := len(mws) - 1; i >= 0; i-- {
		wrapped = mws[i](wrapped)
	}
	return wrapped
}

func (d *Dispatcher) tryRouter(ctx context.Context, router *Router, u *updates.Update, fsmCtx *fsm.Context, currentState, processInfo string) (bool, error) {
	extra := map[string]any{}
	for _, f := range router.filters {
		ok, contributed, err := f.Evaluate(ctx, u, fsmCtx)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
		for k, v := range contributed {
			extra[k] = v
		}
	}

	for _, handler := range router.handlersFor(u.Kind) {
		ok, handlerExtra, err := handler.matches(ctx, u, fsmCtx, currentState)
		if err != nil {
			return false, err
		}
		if !ok {
			continue
		}

		args := &Args{Context: fsmCtx, Extra: map[string]any{}}
		for k, v := range extra {
			args.Extra[k] = v
		}
		for k, v := range handlerExtra {
			args.Extra[k] = v
		}
		if payload, ok := args.Extra["payload"].(map[string]string); ok {
			args.Payload = payload
		}
		if cmd, ok := args.Extra["command"].(string); ok {
			args.Command = cmd
		}

		chain := middlewareChain(router.outerMW, middlewareChain(router.innerMW, middlewareChain(handler.Middlewares, handler.Fn)))

		start := time.Now()
		err = chain(ctx, u, args)
		d.metrics.ObserveHandlerDuration(router.id, time.Since(start))
		if err != nil {
			d.metrics.IncHandlerFailure(router.id)
			snapshot := maxerr.StateSnapshot{State: stateSnapshotPtr(currentState)}
			if data, dataErr := fsmCtx.Data(ctx); dataErr == nil {
				snapshot.Data = data
			}
			return true, &maxerr.HandlerFailureError{
				HandlerTitle: handler.Title,
				RouterID:     router.id,
				ProcessInfo:  processInfo,
				Snapshot:     snapshot,
				Cause:        err,
			}
		}
		return true, nil
	}
	return false, nil
}

func processInfo(u *updates.Update, key chats.StorageKey) string {
	return string(u.Kind) + " | chat_id: " + key.String()
}

func stateSnapshotPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
