package updates

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeMessageCreated(t *testing.T) {
	raw := []byte(`{
		"update_type": "message_created",
		"timestamp": 1700000000000,
		"message": {
			"sender": {"user_id": 42, "first_name": "Ada"},
			"recipient": {"chat_id": 7, "chat_type": "dialog"},
			"body": {"mid": "m1", "seq": 1, "text": "hi"},
			"timestamp": 1700000000000
		}
	}`)

	u, err := Decode(raw)
	require.NoError(t, err)
	require.Equal(t, KindMessageCreated, u.Kind)
	require.NotNil(t, u.MessageCreated)
	assert.Equal(t, "hi", *u.MessageCreated.Message.Body.Text)

	chatID, userID := u.GetIDs()
	require.NotNil(t, chatID)
	require.NotNil(t, userID)
	assert.EqualValues(t, 7, *chatID)
	assert.EqualValues(t, 42, *userID)
}

func TestDecodeUnknownKindIsSkippedNotError(t *testing.T) {
	raw := []byte(`{"update_type": "some_future_update", "timestamp": 1}`)

	u, err := Decode(raw)
	require.NoError(t, err)
	assert.Same(t, Skipped, u)
}

func TestDecodeRejectsNonPositiveTimestamp(t *testing.T) {
	raw := []byte(`{"update_type": "dialog_cleared", "timestamp": 0, "chat_id": 1, "user": {"user_id": 2, "first_name": "Ada"}}`)

	_, err := Decode(raw)
	require.ErrorIs(t, err, ErrInvalidTimestamp)
}

func TestDecodeDialogCleared(t *testing.T) {
	raw := []byte(`{"update_type": "dialog_cleared", "timestamp": 5, "chat_id": 10, "user": {"user_id": 20, "first_name": "Ada"}}`)

	u, err := Decode(raw)
	require.NoError(t, err)
	chatID, userID := u.GetIDs()
	require.NotNil(t, chatID)
	require.NotNil(t, userID)
	assert.EqualValues(t, 10, *chatID)
	assert.EqualValues(t, 20, *userID)
}

func TestMessageCallbackDerivesUserFromCallback(t *testing.T) {
	raw := []byte(`{
		"update_type": "message_callback",
		"timestamp": 5,
		"callback": {"callback_id": "c1", "payload": "x", "user": {"user_id": 99, "first_name": "Bo"}}
	}`)

	u, err := Decode(raw)
	require.NoError(t, err)
	chatID, userID := u.GetIDs()
	assert.Nil(t, chatID)
	require.NotNil(t, userID)
	assert.EqualValues(t, 99, *userID)
}

func TestIsDeprecated(t *testing.T) {
	raw := []byte(`{"update_type": "message_chat_created", "timestamp": 5, "chat": {"chat_id": 1, "type": "chat", "status": "active", "owner_id": 9}}`)

	u, err := Decode(raw)
	require.NoError(t, err)
	assert.True(t, u.IsDeprecated())

	chatID, userID := u.GetIDs()
	require.NotNil(t, chatID)
	require.NotNil(t, userID)
	assert.EqualValues(t, 1, *chatID)
	assert.EqualValues(t, 9, *userID)
}
