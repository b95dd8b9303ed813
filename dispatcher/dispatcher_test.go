package dispatcher

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/maxbot/filters"
	"github.com/hrygo/maxbot/fsm"
	"github.com/hrygo/maxbot/fsm/memory"
	"github.com/hrygo/maxbot/maxerr"
	"github.com/hrygo/maxbot/updates"
)

func mustDecode(t *testing.T, raw string) *updates.Update {
	t.Helper()
	u, err := updates.Decode([]byte(raw))
	require.NoError(t, err)
	return u
}

const messageCreatedJSON = `{"update_type":"message_created","timestamp":1,"message":{"sender":{"user_id":1,"first_name":"A"},"recipient":{"chat_id":1,"chat_type":"dialog"},"body":{"mid":"m","seq":1,"text":"/start"},"timestamp":1}}`

func TestHandleRunsFirstMatchingHandler(t *testing.T) {
	d := New(memory.New())
	var ran []string

	d.On(&Handler{
		Title: "first",
		Kind:  updates.KindMessageCreated,
		Fn: func(_ context.Context, _ *updates.Update, _ *Args) error {
			ran = append(ran, "first")
			return nil
		},
	})
	d.On(&Handler{
		Title: "second",
		Kind:  updates.KindMessageCreated,
		Fn: func(_ context.Context, _ *updates.Update, _ *Args) error {
			ran = append(ran, "second")
			return nil
		},
	})

	u := mustDecode(t, messageCreatedJSON)
	require.NoError(t, d.Handle(context.Background(), u))
	assert.Equal(t, []string{"first"}, ran)
}

func TestHandleSkipsUnmatchedRouterAndTriesNext(t *testing.T) {
	d := New(memory.New())
	childA := NewRouter().Filter(filters.UpdateKind(updates.KindBotAdded))
	childA.On(&Handler{Title: "a", Kind: updates.KindMessageCreated, Fn: func(context.Context, *updates.Update, *Args) error { return nil }})
	childB := NewRouter()
	var ranB bool
	childB.On(&Handler{Title: "b", Kind: updates.KindMessageCreated, Fn: func(context.Context, *updates.Update, *Args) error {
		ranB = true
		return nil
	}})
	d.Include(childA, childB)

	u := mustDecode(t, messageCreatedJSON)
	require.NoError(t, d.Handle(context.Background(), u))
	assert.True(t, ranB)
}

func TestDispatcherHandlersRunAfterChildren(t *testing.T) {
	d := New(memory.New())
	child := NewRouter()
	var order []string
	child.On(&Handler{Title: "child", Kind: updates.KindMessageCreated, Fn: func(context.Context, *updates.Update, *Args) error {
		order = append(order, "child")
		return nil
	}})
	d.Include(child)
	d.On(&Handler{Title: "self", Kind: updates.KindMessageCreated, Fn: func(context.Context, *updates.Update, *Args) error {
		order = append(order, "self")
		return nil
	}})

	u := mustDecode(t, messageCreatedJSON)
	require.NoError(t, d.Handle(context.Background(), u))
	assert.Equal(t, []string{"child"}, order)
}

func TestMiddlewareOrderOuterThenInnerThenHandler(t *testing.T) {
	d := New(memory.New())
	var order []string
	d.OuterMiddleware(func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, u *updates.Update, args *Args) error {
			order = append(order, "outer")
			return next(ctx, u, args)
		}
	})
	d.Middleware(func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, u *updates.Update, args *Args) error {
			order = append(order, "inner")
			return next(ctx, u, args)
		}
	})
	d.On(&Handler{
		Title: "h",
		Kind:  updates.KindMessageCreated,
		Middlewares: []Middleware{func(next HandlerFunc) HandlerFunc {
			return func(ctx context.Context, u *updates.Update, args *Args) error {
				order = append(order, "handler-mw")
				return next(ctx, u, args)
			}
		}},
		Fn: func(context.Context, *updates.Update, *Args) error {
			order = append(order, "handler")
			return nil
		},
	})

	u := mustDecode(t, messageCreatedJSON)
	require.NoError(t, d.Handle(context.Background(), u))
	assert.Equal(t, []string{"outer", "inner", "handler-mw", "handler"}, order)
}

func TestGlobalMiddlewareWrapsWholeTraversal(t *testing.T) {
	d := New(memory.New())
	var order []string
	d.Use(func(next HandleFunc) HandleFunc {
		return func(ctx context.Context, u *updates.Update) error {
			order = append(order, "global-before")
			err := next(ctx, u)
			order = append(order, "global-after")
			return err
		}
	})
	d.OuterMiddleware(func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, u *updates.Update, args *Args) error {
			order = append(order, "outer")
			return next(ctx, u, args)
		}
	})
	d.On(&Handler{
		Title: "h",
		Kind:  updates.KindMessageCreated,
		Fn: func(context.Context, *updates.Update, *Args) error {
			order = append(order, "handler")
			return nil
		},
	})

	u := mustDecode(t, messageCreatedJSON)
	require.NoError(t, d.Handle(context.Background(), u))
	assert.Equal(t, []string{"global-before", "outer", "handler", "global-after"}, order)
}

func TestGlobalMiddlewareCanShortCircuit(t *testing.T) {
	d := New(memory.New())
	var handlerRan bool
	d.Use(func(next HandleFunc) HandleFunc {
		return func(ctx context.Context, u *updates.Update) error {
			return assert.AnError
		}
	})
	d.On(&Handler{
		Title: "h",
		Kind:  updates.KindMessageCreated,
		Fn: func(context.Context, *updates.Update, *Args) error {
			handlerRan = true
			return nil
		},
	})

	u := mustDecode(t, messageCreatedJSON)
	err := d.Handle(context.Background(), u)
	require.ErrorIs(t, err, assert.AnError)
	assert.False(t, handlerRan, "handler must not run once global middleware short-circuits")
}

func TestHandlerErrorWrappedAsHandlerFailure(t *testing.T) {
	d := New(memory.New())
	d.On(&Handler{
		Title: "boom",
		Kind:  updates.KindMessageCreated,
		Fn: func(context.Context, *updates.Update, *Args) error {
			return assert.AnError
		},
	})

	u := mustDecode(t, messageCreatedJSON)
	err := d.Handle(context.Background(), u)
	require.Error(t, err)
	var hfe *maxerr.HandlerFailureError
	require.ErrorAs(t, err, &hfe)
	assert.Equal(t, "boom", hfe.HandlerTitle)
}

func TestStateGatedHandlerOnlyRunsInItsState(t *testing.T) {
	storage := memory.New()
	d := New(storage)
	group, states := fsm.NewStatesGroup("Form", "waiting")
	_ = group
	var ran bool
	d.On(&Handler{
		Title: "gated",
		Kind:  updates.KindMessageCreated,
		State: states[0],
		Fn: func(context.Context, *updates.Update, *Args) error {
			ran = true
			return nil
		},
	})

	u := mustDecode(t, messageCreatedJSON)
	require.NoError(t, d.Handle(context.Background(), u))
	assert.False(t, ran, "handler must not run outside its gated state")

	fsmCtx := fsm.New(storage, u.StorageKey())
	require.NoError(t, fsmCtx.SetState(context.Background(), states[0]))

	require.NoError(t, d.Handle(context.Background(), u))
	assert.True(t, ran)
}

func TestArgsCarriesCommandAndArgs(t *testing.T) {
	d := New(memory.New())
	isCmd, provide := filters.Command(filters.CommandOptions{}, "start")
	var gotArgs *Args
	d.On(&Handler{
		Title:   "start",
		Kind:    updates.KindMessageCreated,
		Filters: []Filter{isCmd, provide},
		Fn: func(_ context.Context, _ *updates.Update, args *Args) error {
			gotArgs = args
			return nil
		},
	})

	u := mustDecode(t, messageCreatedJSON)
	require.NoError(t, d.Handle(context.Background(), u))
	require.NotNil(t, gotArgs)
	assert.Equal(t, "start", gotArgs.Command)
	assert.Equal(t, []string{}, gotArgs.Extra["args"])
}
