package dispatcher

import (
	"context"
	"log/slog"

	"github.com/lithammer/shortuuid/v4"

	"github.com/hrygo/maxbot/updates"
)

// Router groups handlers that share filters and middleware, and can be
// included into a Dispatcher. A Dispatcher is itself a Router — the root
// one, always evaluated last — so the two share this one type.
type Router struct {
	id         string
	filters    []Filter
	outerMW    []Middleware
	innerMW    []Middleware
	handlers   []*Handler
	onStarted  func(ctx context.Context) error
	deprecated map[updates.Kind]bool
}

// NewRouter builds a Router with a generated id, used to attribute
// handler/middleware failures to the router that owned them.
func NewRouter() *Router {
	return &Router{id: shortuuid.New(), deprecated: map[updates.Kind]bool{}}
}

// ID returns the router's identifier.
func (r *Router) ID() string { return r.id }

// Filter adds a router-level filter, evaluated once per update before
// any of this router's handlers are even looked up.
func (r *Router) Filter(f Filter) *Router {
	r.filters = append(r.filters, f)
	return r
}

// OuterMiddleware prepends middleware, so it runs before every other
// middleware already registered, router-level and handler-level alike.
func (r *Router) OuterMiddleware(mw Middleware) *Router {
	r.outerMW = append([]Middleware{mw}, r.outerMW...)
	return r
}

// Middleware appends middleware, run after router filters pass but
// before the matched handler's own middleware.
func (r *Router) Middleware(mw Middleware) *Router {
	r.innerMW = append(r.innerMW, mw)
	return r
}

// On registers h on this router. Handlers for a kind the platform has
// deprecated still dispatch, but log a one-time warning at registration.
func (r *Router) On(h *Handler) *Router {
	if updates.DeprecatedKinds[h.Kind] && !r.deprecated[h.Kind] {
		r.deprecated[h.Kind] = true
		slog.Warn("dispatcher: registering handler for a deprecated update kind",
			"update_type", h.Kind, "handler", h.Title, "router_id", r.id)
	}
	r.handlers = append(r.handlers, h)
	return r
}

// OnStarted registers a hook that Dispatcher.Ready runs once, in router
// traversal order, before the ingestion driver starts pulling updates.
// A later call replaces the earlier hook.
func (r *Router) OnStarted(fn func(ctx context.Context) error) *Router {
	r.onStarted = fn
	return r
}

// handlersFor returns this router's handlers matching kind, in
// registration order.
func (r *Router) handlersFor(kind updates.Kind) []*Handler {
	var out []*Handler
	for _, h := range r.handlers {
		if h.Kind == kind {
			out = append(out, h)
		}
	}
	return out
}

// middlewareChain wraps fn in mws, matching build_middleware_chain's
// functools.partial composition: mws[0] is outermost and runs first, the
// last entry runs just before fn. Nested calls build outer -> inner ->
// handler's own middleware.
func middlewareChain(mws []Middleware, fn HandlerFunc) HandlerFunc {
	wrapped := fn
	for i := len(mws) - 1; i >= 0; i-- {
		wrapped = mws[i](wrapped)
	}
	return wrapped
}
