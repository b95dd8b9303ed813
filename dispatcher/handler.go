package dispatcher

import (
	"context"

	"github.com/hrygo/maxbot/fsm"
	"github.com/hrygo/maxbot/updates"
)

// Args is what a Handler or Middleware receives alongside the update
// itself: the FSM context bound to this update's routing key, any
// decoded callback payload fields, the parsed command name, and
// whatever extra values filters contributed. This replaces the upstream
// framework's kwarg-injection-via-function-annotations with one typed
// struct; a handler reads only the fields it declared interest in by
// simply not looking at the rest.
type Args struct {
	Context *fsm.Context
	Payload map[string]string
	Command string
	Extra   map[string]any
}

// HandlerFunc is one registered callback.
type HandlerFunc func(ctx context.Context, u *updates.Update, args *Args) error

// Middleware wraps a HandlerFunc, observing or short-circuiting the call.
type Middleware func(next HandlerFunc) HandlerFunc

// Filter is re-exported at the call site as filters.Filter; declared
// here as an alias-free interface to avoid every caller importing both
// dispatcher and filters just to build a Handler.
type Filter interface {
	Evaluate(ctx context.Context, u *updates.Update, fsmCtx *fsm.Context) (bool, map[string]any, error)
}

// Handler binds a HandlerFunc to one update Kind, an optional FSM state
// gate, a filter list, and its own middleware chain.
type Handler struct {
	Title       string
	Kind        updates.Kind
	State       fsm.State
	Filters     []Filter
	Middlewares []Middleware
	Fn          HandlerFunc
}

// matches evaluates the handler's state gate and filters against the
// current update, merging any filter-contributed extras.
func (h *Handler) matches(ctx context.Context, u *updates.Update, fsmCtx *fsm.Context, currentState string) (bool, map[string]any, error) {
	if !h.State.IsZero() && h.State.Name() != currentState {
		return false, nil, nil
	}

	extra := map[string]any{}
	for _, f := range h.Filters {
		ok, contributed, err := f.Evaluate(ctx, u, fsmCtx)
		if err != nil {
			return false, nil, err
		}
		if !ok {
			return false, nil, nil
		}
		for k, v := range contributed {
			extra[k] = v
		}
	}
	return true, extra, nil
}
