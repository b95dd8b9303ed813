package updates

import (
	"context"
	"log/slog"

	"github.com/hrygo/maxbot/chats"
)

// StorageKey derives the FSM routing key for this update. Best-effort: an
// update whose variant carries neither id yields a key with both
// components absent, which storage backends treat as a distinct bucket
// rather than an error.
func (u *Update) StorageKey() chats.StorageKey {
	chatID, userID := u.GetIDs()
	return chats.NewStorageKey(chatID, userID)
}

// Attach records the bot back-reference used by auto_requests enrichment.
// Called by the ingestion driver immediately after Decode, before the
// update reaches the dispatcher.
func (u *Update) Attach(bot BotRef) {
	u.Bot = bot
}

// IsDeprecated reports whether this update's kind is scheduled for
// removal by the platform but still dispatches.
func (u *Update) IsDeprecated() bool {
	return DeprecatedKinds[u.Kind]
}

// Enrich attaches the full Chat object and, where derivable, the acting
// User — taken from the update itself, or looked up with GetChatMember
// for message_removed and user_removed — mirroring enrich_event. It is
// best-effort: a failed lookup is logged at debug level and otherwise
// ignored rather than blocking dispatch. Enrich is a no-op if no bot has
// been Attach-ed yet.
func (u *Update) Enrich(ctx context.Context) {
	if u.Bot == nil {
		return
	}

	switch u.Kind {
	case KindMessageCreated:
		u.enrichChat(ctx, u.MessageCreated.Message.Recipient.ChatID)
		u.FromUser = u.MessageCreated.Message.Sender
	case KindMessageEdited:
		u.enrichChat(ctx, u.MessageEdited.Message.Recipient.ChatID)
		u.FromUser = u.MessageEdited.Message.Sender
	case KindMessageCallback:
		if u.MessageCallback.Message != nil {
			u.enrichChat(ctx, u.MessageCallback.Message.Recipient.ChatID)
			u.FromUser = u.MessageCallback.Message.Sender
		}

	case KindMessageRemoved:
		chatID := u.MessageRemoved.ChatID
		u.enrichChat(ctx, &chatID)
		u.enrichUser(ctx, chatID, u.MessageRemoved.UserID)

	case KindUserRemoved:
		chatID := u.UserRemoved.ChatID
		u.enrichChat(ctx, &chatID)
		if u.UserRemoved.AdminID != nil {
			u.enrichUser(ctx, chatID, *u.UserRemoved.AdminID)
		}

	case KindUserAdded:
		chatID := u.UserAdded.ChatID
		u.enrichChat(ctx, &chatID)
		u.FromUser = &u.UserAdded.User

	case KindBotAdded:
		chatID := u.BotAdded.ChatID
		u.enrichChat(ctx, &chatID)
		u.FromUser = &u.BotAdded.User
	case KindBotRemoved:
		chatID := u.BotRemoved.ChatID
		u.enrichChat(ctx, &chatID)
		u.FromUser = &u.BotRemoved.User
	case KindBotStarted:
		chatID := u.BotStarted.ChatID
		u.enrichChat(ctx, &chatID)
		u.FromUser = &u.BotStarted.User
	case KindChatTitleChanged:
		chatID := u.ChatTitleChanged.ChatID
		u.enrichChat(ctx, &chatID)
		u.FromUser = &u.ChatTitleChanged.User

	case KindBotStopped:
		chatID := u.BotStopped.ChatID
		u.enrichChat(ctx, &chatID)

	case KindDialogCleared:
		chatID := u.DialogCleared.ChatID
		u.enrichChat(ctx, &chatID)
	case KindDialogMuted:
		chatID := u.DialogMuted.ChatID
		u.enrichChat(ctx, &chatID)
	case KindDialogUnmuted:
		chatID := u.DialogUnmuted.ChatID
		u.enrichChat(ctx, &chatID)
	case KindDialogRemoved:
		chatID := u.DialogRemoved.ChatID
		u.enrichChat(ctx, &chatID)

	// MessageChatCreated already carries a full Chat object; nothing to
	// enrich.
	default:
	}
}

func (u *Update) enrichChat(ctx context.Context, chatID *int64) {
	if chatID == nil {
		return
	}
	chat, err := u.Bot.GetChatByID(ctx, *chatID)
	if err != nil {
		slog.Debug("updates: chat enrichment failed", "chat_id", *chatID, "error", err)
		return
	}
	u.Chat = chat
}

func (u *Update) enrichUser(ctx context.Context, chatID, userID int64) {
	user, err := u.Bot.GetChatMember(ctx, chatID, userID)
	if err != nil {
		slog.Debug("updates: user enrichment failed", "chat_id", chatID, "user_id", userID, "error", err)
		return
	}
	u.FromUser = user
}
