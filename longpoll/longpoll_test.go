package longpoll

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/maxbot/bot"
	"github.com/hrygo/maxbot/chats"
	"github.com/hrygo/maxbot/maxerr"
	"github.com/hrygo/maxbot/updates"
)

type fakeClient struct {
	batches []fakeBatch
	call    int
}

type fakeBatch struct {
	raw []json.RawMessage
	err error
}

func (f *fakeClient) Token() string { return "tok" }
func (f *fakeClient) GetMe(context.Context) (*bot.Me, error) {
	return &bot.Me{UserID: 1, Username: "bot"}, nil
}
func (f *fakeClient) GetUpdates(ctx context.Context, marker *int64, timeout int, types []string) ([]json.RawMessage, *int64, error) {
	if f.call >= len(f.batches) {
		// Simulates the long-poll call returning with nothing new after
		// its timeout elapses, rather than hanging forever, so the loop
		// promptly re-checks ctx/Stop.
		time.Sleep(5 * time.Millisecond)
		next := int64(f.call)
		return nil, &next, nil
	}
	b := f.batches[f.call]
	f.call++
	if b.err != nil {
		return nil, nil, b.err
	}
	next := int64(f.call)
	return b.raw, &next, nil
}
func (f *fakeClient) GetSubscriptions(context.Context) ([]bot.Subscription, error) { return nil, nil }
func (f *fakeClient) GetChatByID(context.Context, int64) (*chats.Chat, error)      { return nil, nil }
func (f *fakeClient) GetChatMember(context.Context, int64, int64) (*chats.User, error) {
	return nil, nil
}

type recordingHandler struct {
	kinds []updates.Kind
}

func (h *recordingHandler) Handle(_ context.Context, u *updates.Update) error {
	h.kinds = append(h.kinds, u.Kind)
	return nil
}

func rawMessageCreated() json.RawMessage {
	return json.RawMessage(`{"update_type":"message_created","timestamp":1,"message":{"recipient":{"chat_type":"dialog"},"body":{"mid":"m","seq":1},"timestamp":1}}`)
}

func TestRunDispatchesDecodedUpdates(t *testing.T) {
	client := &fakeClient{batches: []fakeBatch{
		{raw: []json.RawMessage{rawMessageCreated()}},
	}}
	handler := &recordingHandler{}
	d := New(client, handler)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	_ = d.Run(ctx)

	require.Len(t, handler.kinds, 1)
	assert.Equal(t, updates.KindMessageCreated, handler.kinds[0])
}

func TestRunStopsOnInvalidToken(t *testing.T) {
	client := &fakeClient{batches: []fakeBatch{
		{err: maxerr.NewInvalidToken(assert.AnError)},
	}}
	d := New(client, &recordingHandler{})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	err := d.Run(ctx)
	require.Error(t, err)
}

func TestStopEndsLoopCooperatively(t *testing.T) {
	client := &fakeClient{}
	d := New(client, &recordingHandler{})

	var done int32
	go func() {
		_ = d.Run(context.Background())
		atomic.StoreInt32(&done, 1)
	}()

	time.Sleep(50 * time.Millisecond)
	d.Stop()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(1), atomic.LoadInt32(&done))
}
