package filters

import (
	"context"
	"encoding/json"

	"github.com/google/cel-go/cel"
	"github.com/pkg/errors"

	"github.com/hrygo/maxbot/fsm"
	"github.com/hrygo/maxbot/updates"
)

// Magic is a declarative filter compiling a CEL expression against the
// decoded update, reused as the replacement for the Python original's
// dynamic magic_filter attribute-path DSL (e.g.
// "message.body.text.startswith('/')"). Exposed variables are documented
// on magicEnv.
type Magic struct {
	expr    string
	program cel.Program
}

// magicEnv declares the CEL variables a Magic expression may reference:
// the update re-exposed as a dynamic map (so expressions can write
// "message.body.text" the same way a handler would index the decoded
// JSON), plus the top-level update_type string.
var magicEnv = func() *cel.Env {
	env, err := cel.NewEnv(
		cel.Variable("update_type", cel.StringType),
		cel.Variable("message", cel.DynType),
		cel.Variable("callback", cel.DynType),
	)
	if err != nil {
		panic(errors.Wrap(err, "filters: build CEL environment"))
	}
	return env
}()

// NewMagic compiles expr once at registration time. A compile error is
// returned immediately rather than surfacing at dispatch time.
func NewMagic(expr string) (*Magic, error) {
	ast, issues := magicEnv.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, errors.Wrapf(issues.Err(), "filters: invalid magic filter %q", expr)
	}
	program, err := magicEnv.Program(ast)
	if err != nil {
		return nil, errors.Wrapf(err, "filters: build program for %q", expr)
	}
	return &Magic{expr: expr, program: program}, nil
}

// MustMagic panics on a compile error; convenient for filters declared as
// package-level variables.
func MustMagic(expr string) *Magic {
	m, err := NewMagic(expr)
	if err != nil {
		panic(err)
	}
	return m
}

func (m *Magic) Evaluate(_ context.Context, u *updates.Update, _ *fsm.Context) (bool, map[string]any, error) {
	vars, err := magicVars(u)
	if err != nil {
		return false, nil, err
	}
	out, _, err := m.program.Eval(vars)
	if err != nil {
		// Missing fields (e.g. "message" on a non-message update)
		// evaluate to CEL's "no such key" error; treated as a non-match
		// rather than a dispatch failure.
		return false, nil, nil
	}
	matched, ok := out.Value().(bool)
	if !ok {
		return false, nil, errors.Errorf("filters: magic filter %q did not evaluate to bool", m.expr)
	}
	return matched, nil, nil
}

var _ Filter = (*Magic)(nil)

// magicVars re-marshals the update's message/callback variant through
// JSON into a plain map so CEL's dynamic type can index it the same way
// the platform's own field names read in the wire payload.
func magicVars(u *updates.Update) (map[string]any, error) {
	vars := map[string]any{"update_type": string(u.Kind)}

	toMap := func(v any) (map[string]any, error) {
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, errors.Wrap(err, "filters: encode magic filter variable")
		}
		var m map[string]any
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, errors.Wrap(err, "filters: decode magic filter variable")
		}
		return m, nil
	}

	switch u.Kind {
	case updates.KindMessageCreated:
		m, err := toMap(u.MessageCreated.Message)
		if err != nil {
			return nil, err
		}
		vars["message"] = m
	case updates.KindMessageEdited:
		m, err := toMap(u.MessageEdited.Message)
		if err != nil {
			return nil, err
		}
		vars["message"] = m
	case updates.KindMessageCallback:
		m, err := toMap(u.MessageCallback.Callback)
		if err != nil {
			return nil, err
		}
		vars["callback"] = m
	}
	return vars, nil
}
