// Package filters provides the predicates a Router or Handler evaluates
// against an incoming update before selecting it: state matching,
// declarative CEL expressions ("magic filters"), and command parsing.
package filters

import (
	"context"

	"github.com/hrygo/maxbot/fsm"
	"github.com/hrygo/maxbot/updates"
)

// Filter decides whether an update matches, optionally contributing
// extra values (e.g. parsed command arguments) the dispatcher folds into
// the handler's Args. fsmCtx is the context bound to this update's
// routing key, so state-matching filters can be evaluated per-update
// rather than bound at registration time.
type Filter interface {
	Evaluate(ctx context.Context, u *updates.Update, fsmCtx *fsm.Context) (bool, map[string]any, error)
}

// FilterFunc adapts a plain function to Filter.
type FilterFunc func(ctx context.Context, u *updates.Update, fsmCtx *fsm.Context) (bool, map[string]any, error)

func (f FilterFunc) Evaluate(ctx context.Context, u *updates.Update, fsmCtx *fsm.Context) (bool, map[string]any, error) {
	return f(ctx, u, fsmCtx)
}

// All combines filters with AND semantics, short-circuiting on the first
// non-match or error.
func All(fs ...Filter) Filter {
	return FilterFunc(func(ctx context.Context, u *updates.Update, fsmCtx *fsm.Context) (bool, map[string]any, error) {
		merged := map[string]any{}
		for _, f := range fs {
			ok, extra, err := f.Evaluate(ctx, u, fsmCtx)
			if err != nil {
				return false, nil, err
			}
			if !ok {
				return false, nil, nil
			}
			for k, v := range extra {
				merged[k] = v
			}
		}
		return true, merged, nil
	})
}

// UpdateKind filters by the update's Kind alone.
func UpdateKind(kind updates.Kind) Filter {
	return FilterFunc(func(_ context.Context, u *updates.Update, _ *fsm.Context) (bool, map[string]any, error) {
		return u.Kind == kind, nil, nil
	})
}
