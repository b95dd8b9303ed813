package filters

import (
	"context"

	"github.com/hrygo/maxbot/fsm"
	"github.com/hrygo/maxbot/updates"
)

// StateIs matches when the update's bound FSM context is currently in
// state s. The zero State (no state registered on the handler) matches
// unconditionally, including when no FSM context is bound at all.
func StateIs(s fsm.State) Filter {
	return FilterFunc(func(ctx context.Context, _ *updates.Update, fsmCtx *fsm.Context) (bool, map[string]any, error) {
		if s.IsZero() {
			return true, nil, nil
		}
		if fsmCtx == nil {
			return false, nil, nil
		}
		current, err := fsmCtx.State(ctx)
		if err != nil {
			return false, nil, err
		}
		return current == s.Name(), nil, nil
	})
}
