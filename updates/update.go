// Package updates decodes MAX platform update payloads into a typed,
// discriminated union and derives the (chat, user) routing key the
// dispatcher and FSM context store key off of.
package updates

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/pkg/errors"

	"github.com/hrygo/maxbot/chats"
)

// BotRef is the bot back-reference an Update carries for best-effort
// auto_requests enrichment: fetching the full Chat and resolving the
// acting user via a chat-member lookup. It is satisfied by bot.Client
// without updates importing the bot package, keeping the decode path free
// of any network dependency until Enrich is explicitly called.
type BotRef interface {
	Token() string
	GetChatByID(ctx context.Context, chatID int64) (*chats.Chat, error)
	GetChatMember(ctx context.Context, chatID, userID int64) (*chats.User, error)
}

// envelope captures only the two fields every update shares, used to pick
// the concrete variant before a second full unmarshal.
type envelope struct {
	Kind      Kind  `json:"update_type"`
	Timestamp int64 `json:"timestamp"`
}

// Update is the decoded, tagged-union representation of one MAX platform
// update. Exactly one of the variant fields is non-nil, selected by Kind.
type Update struct {
	Kind      Kind
	Timestamp int64

	MessageCreated     *MessageCreated
	MessageEdited      *MessageEdited
	MessageRemoved     *MessageRemoved
	MessageCallback    *MessageCallback
	MessageChatCreated *MessageChatCreated
	BotAdded           *BotAdded
	BotRemoved         *BotRemoved
	BotStarted         *BotStarted
	BotStopped         *BotStopped
	UserAdded          *UserAdded
	UserRemoved        *UserRemoved
	ChatTitleChanged   *ChatTitleChanged
	DialogCleared      *DialogCleared
	DialogMuted        *DialogMuted
	DialogUnmuted      *DialogUnmuted
	DialogRemoved      *DialogRemoved

	// Chat and FromUser are populated by Enrich, when auto_requests is
	// enabled, with the full Chat object and the resolved acting user.
	// Both are nil until Enrich runs and succeeds.
	Chat     *chats.Chat
	FromUser *chats.User

	// Bot is attached by the ingestion driver after decode, before
	// dispatch, so handlers and auto_requests enrichment can reach the
	// platform API. Nil until attached.
	Bot BotRef
}

// ErrInvalidTimestamp is returned when an update's "timestamp" field is
// not a positive integer.
var ErrInvalidTimestamp = errors.New("update: timestamp must be > 0")

// Skipped is returned by Decode, alongside a nil error, when the payload's
// update_type is not one this core recognizes. This is NOT an error
// condition: new update types are expected to appear over the platform's
// lifetime, and a bot must keep processing the update stream rather than
// failing on them. Decode itself logs one warning naming the update_type,
// so callers only need to skip the update.
var Skipped = &Update{Kind: ""}

// Decode parses a single update JSON payload. An unrecognized update_type
// yields (Skipped, nil) rather than an error, preserving forward
// compatibility with new platform update kinds.
func Decode(raw []byte) (*Update, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, errors.Wrap(err, "updates: decode envelope")
	}
	if !knownKinds[env.Kind] {
		slog.Warn("updates: skipping unrecognized update_type", "update_type", env.Kind)
		return Skipped, nil
	}
	if env.Timestamp <= 0 {
		return nil, ErrInvalidTimestamp
	}

	u := &Update{Kind: env.Kind, Timestamp: env.Timestamp}

	var err error
	switch env.Kind {
	case KindMessageCreated:
		u.MessageCreated, err = decodeVariant[MessageCreated](raw)
	case KindMessageEdited:
		u.MessageEdited, err = decodeVariant[MessageEdited](raw)
	case KindMessageRemoved:
		u.MessageRemoved, err = decodeVariant[MessageRemoved](raw)
	case KindMessageCallback:
		u.MessageCallback, err = decodeVariant[MessageCallback](raw)
	case KindMessageChatCreated:
		u.MessageChatCreated, err = decodeVariant[MessageChatCreated](raw)
	case KindBotAdded:
		u.BotAdded, err = decodeVariant[BotAdded](raw)
	case KindBotRemoved:
		u.BotRemoved, err = decodeVariant[BotRemoved](raw)
	case KindBotStarted:
		u.BotStarted, err = decodeVariant[BotStarted](raw)
	case KindBotStopped:
		u.BotStopped, err = decodeVariant[BotStopped](raw)
	case KindUserAdded:
		u.UserAdded, err = decodeVariant[UserAdded](raw)
	case KindUserRemoved:
		u.UserRemoved, err = decodeVariant[UserRemoved](raw)
	case KindChatTitleChanged:
		u.ChatTitleChanged, err = decodeVariant[ChatTitleChanged](raw)
	case KindDialogCleared:
		u.DialogCleared, err = decodeVariant[DialogCleared](raw)
	case KindDialogMuted:
		u.DialogMuted, err = decodeVariant[DialogMuted](raw)
	case KindDialogUnmuted:
		u.DialogUnmuted, err = decodeVariant[DialogUnmuted](raw)
	case KindDialogRemoved:
		u.DialogRemoved, err = decodeVariant[DialogRemoved](raw)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "updates: decode %s", env.Kind)
	}
	return u, nil
}

func decodeVariant[T any](raw []byte) (*T, error) {
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// GetIDs derives the (chat_id, user_id) routing key this update maps to.
// Either may be nil when the underlying variant carries no such id.
func (u *Update) GetIDs() (chatID, userID *int64) {
	switch u.Kind {
	case KindMessageCreated:
		return idsFromMessage(&u.MessageCreated.Message)
	case KindMessageEdited:
		return idsFromMessage(&u.MessageEdited.Message)
	case KindMessageRemoved:
		return ptr(u.MessageRemoved.ChatID), ptr(u.MessageRemoved.UserID)
	case KindMessageCallback:
		var chat *int64
		if u.MessageCallback.Message != nil {
			chat = u.MessageCallback.Message.Recipient.ChatID
		}
		return chat, ptr(u.MessageCallback.Callback.User.UserID)
	case KindMessageChatCreated:
		return ptr(u.MessageChatCreated.Chat.ChatID), u.MessageChatCreated.Chat.OwnerID
	case KindBotAdded:
		return ptr(u.BotAdded.ChatID), ptr(u.BotAdded.User.UserID)
	case KindBotRemoved:
		return ptr(u.BotRemoved.ChatID), ptr(u.BotRemoved.User.UserID)
	case KindBotStarted:
		return ptr(u.BotStarted.ChatID), ptr(u.BotStarted.User.UserID)
	case KindBotStopped:
		return ptr(u.BotStopped.ChatID), ptr(u.BotStopped.User.UserID)
	case KindUserAdded:
		return ptr(u.UserAdded.ChatID), u.UserAdded.InviterID
	case KindUserRemoved:
		return ptr(u.UserRemoved.ChatID), ptr(u.UserRemoved.User.UserID)
	case KindChatTitleChanged:
		return ptr(u.ChatTitleChanged.ChatID), ptr(u.ChatTitleChanged.User.UserID)
	case KindDialogCleared:
		return ptr(u.DialogCleared.ChatID), ptr(u.DialogCleared.User.UserID)
	case KindDialogMuted:
		return ptr(u.DialogMuted.ChatID), ptr(u.DialogMuted.User.UserID)
	case KindDialogUnmuted:
		return ptr(u.DialogUnmuted.ChatID), ptr(u.DialogUnmuted.User.UserID)
	case KindDialogRemoved:
		return ptr(u.DialogRemoved.ChatID), ptr(u.DialogRemoved.User.UserID)
	default:
		return nil, nil
	}
}

// idsFromMessage derives (chat, user) from a message: the chat from its
// recipient, the user from its sender when present, falling back to the
// recipient's user_id for dialog messages sent by the bot itself.
func idsFromMessage(m *chats.Message) (*int64, *int64) {
	chat := m.Recipient.ChatID
	if m.Sender != nil {
		return chat, ptr(m.Sender.UserID)
	}
	return chat, m.Recipient.UserID
}

func ptr(v int64) *int64 { return &v }
