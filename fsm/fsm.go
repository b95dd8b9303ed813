// Package fsm defines the Storage interface backing per-(chat, user)
// conversation state and scratch data, and the Context facade handlers use
// to read and mutate it.
package fsm

import (
	"context"

	"github.com/hrygo/maxbot/chats"
)

// Storage is implemented by every FSM backend (memory, redis, sql). All
// methods key off a chats.StorageKey; state is a plain string (the
// canonical State.Name()) and data is an arbitrary JSON-able map.
type Storage interface {
	// GetState returns the stored state name for key, or "" if unset.
	GetState(ctx context.Context, key chats.StorageKey) (string, error)
	// SetState overwrites the stored state name for key. An empty name
	// clears it.
	SetState(ctx context.Context, key chats.StorageKey, state string) error

	// GetData returns a copy of the stored data map for key, or an empty
	// map if unset.
	GetData(ctx context.Context, key chats.StorageKey) (map[string]any, error)
	// SetData overwrites the stored data map for key.
	SetData(ctx context.Context, key chats.StorageKey, data map[string]any) error
	// UpdateData atomically applies fn to the current data map for key and
	// persists the result, returning it. Backends must serialize
	// concurrent UpdateData calls for the same key.
	UpdateData(ctx context.Context, key chats.StorageKey, fn func(map[string]any) map[string]any) (map[string]any, error)

	// Clear removes both state and data for key.
	Clear(ctx context.Context, key chats.StorageKey) error

	// Close releases any resources (connections, file handles) held by
	// the backend.
	Close() error
}

// Context is the thin facade handlers and middleware use to manipulate
// the current update's FSM record. It holds no data itself — every read
// and write passes through to the backing Storage — so every backend
// shares this one code path.
type Context struct {
	storage Storage
	key     chats.StorageKey
}

// New builds a Context bound to storage and key.
func New(storage Storage, key chats.StorageKey) *Context {
	return &Context{storage: storage, key: key}
}

// Key returns the bound storage key.
func (c *Context) Key() chats.StorageKey { return c.key }

// State returns the current state's name, or "" if unset.
func (c *Context) State(ctx context.Context) (string, error) {
	return c.storage.GetState(ctx, c.key)
}

// SetState transitions to s. Passing the zero State clears it.
func (c *Context) SetState(ctx context.Context, s State) error {
	return c.storage.SetState(ctx, c.key, s.Name())
}

// ClearState clears the current state, leaving data untouched.
func (c *Context) ClearState(ctx context.Context) error {
	return c.storage.SetState(ctx, c.key, "")
}

// Data returns a copy of the current scratch data.
func (c *Context) Data(ctx context.Context) (map[string]any, error) {
	return c.storage.GetData(ctx, c.key)
}

// SetData overwrites the scratch data wholesale.
func (c *Context) SetData(ctx context.Context, data map[string]any) error {
	return c.storage.SetData(ctx, c.key, data)
}

// UpdateData atomically mutates the scratch data via fn, returning the
// result. fn receives a copy it may mutate and return in place, or a
// replacement map entirely.
func (c *Context) UpdateData(ctx context.Context, fn func(map[string]any) map[string]any) (map[string]any, error) {
	return c.storage.UpdateData(ctx, c.key, fn)
}

// Clear removes both state and data for the bound key.
func (c *Context) Clear(ctx context.Context) error {
	return c.storage.Clear(ctx, c.key)
}
