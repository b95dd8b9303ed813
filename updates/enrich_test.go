package updates

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/maxbot/chats"
)

type memberKey struct {
	chatID, userID int64
}

type fakeBot struct {
	chatsByID map[int64]*chats.Chat
	members   map[memberKey]*chats.User
}

func (f *fakeBot) Token() string { return "tok" }

func (f *fakeBot) GetChatByID(_ context.Context, chatID int64) (*chats.Chat, error) {
	if c, ok := f.chatsByID[chatID]; ok {
		return c, nil
	}
	return nil, assert.AnError
}

func (f *fakeBot) GetChatMember(_ context.Context, chatID, userID int64) (*chats.User, error) {
	if u, ok := f.members[memberKey{chatID, userID}]; ok {
		return u, nil
	}
	return nil, assert.AnError
}

func TestEnrichIsNoOpWithoutAttachedBot(t *testing.T) {
	raw := []byte(`{"update_type": "dialog_cleared", "timestamp": 5, "chat_id": 10, "user": {"user_id": 20, "first_name": "Ada"}}`)
	u, err := Decode(raw)
	require.NoError(t, err)

	u.Enrich(context.Background())
	assert.Nil(t, u.Chat)
}

func TestEnrichAttachesChatForDialogCleared(t *testing.T) {
	raw := []byte(`{"update_type": "dialog_cleared", "timestamp": 5, "chat_id": 10, "user": {"user_id": 20, "first_name": "Ada"}}`)
	u, err := Decode(raw)
	require.NoError(t, err)

	chat := &chats.Chat{ChatID: 10}
	u.Attach(&fakeBot{chatsByID: map[int64]*chats.Chat{10: chat}})
	u.Enrich(context.Background())

	require.NotNil(t, u.Chat)
	assert.EqualValues(t, 10, u.Chat.ChatID)
	assert.Nil(t, u.FromUser, "dialog_cleared has no member-lookup enrichment in the original")
}

func TestEnrichFromUserDerivedDirectlyForUserAdded(t *testing.T) {
	raw := []byte(`{"update_type": "user_added", "timestamp": 5, "chat_id": 10, "user": {"user_id": 20, "first_name": "Ada"}, "inviter_id": 99, "is_channel": false}`)
	u, err := Decode(raw)
	require.NoError(t, err)

	chat := &chats.Chat{ChatID: 10}
	u.Attach(&fakeBot{chatsByID: map[int64]*chats.Chat{10: chat}})
	u.Enrich(context.Background())

	require.NotNil(t, u.FromUser)
	assert.EqualValues(t, 20, u.FromUser.UserID, "UserAdded.from_user is the added user, not the inviter")
}

func TestEnrichSwallowsLookupFailure(t *testing.T) {
	raw := []byte(`{"update_type": "bot_stopped", "timestamp": 5, "chat_id": 10, "user": {"user_id": 20, "first_name": "Ada"}}`)
	u, err := Decode(raw)
	require.NoError(t, err)

	u.Attach(&fakeBot{})
	u.Enrich(context.Background())

	assert.Nil(t, u.Chat)
}
