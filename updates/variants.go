package updates

import "github.com/hrygo/maxbot/chats"

// MessageCreated fires for every incoming chat message.
type MessageCreated struct {
	Message chats.Message `json:"message"`
}

// MessageEdited fires when a previously sent message is edited.
type MessageEdited struct {
	Message chats.Message `json:"message"`
}

// MessageRemoved fires when a message is deleted.
type MessageRemoved struct {
	MessageID string `json:"message_id"`
	ChatID    int64  `json:"chat_id"`
	UserID    int64  `json:"user_id"`
}

// MessageCallback fires on an inline-button press.
type MessageCallback struct {
	Callback   chats.Callback `json:"callback"`
	Message    *chats.Message `json:"message,omitempty"`
	UserLocale *string        `json:"user_locale,omitempty"`
}

// MessageChatCreated fires once for the system message announcing a new
// chat's creation. Deprecated by the platform; kept for backward
// compatibility.
type MessageChatCreated struct {
	Chat         chats.Chat `json:"chat"`
	Title        *string    `json:"title,omitempty"`
	MessageID    *string    `json:"message_id,omitempty"`
	StartPayload *string    `json:"start_payload,omitempty"`
}

// BotAdded fires when the bot is added to a chat.
type BotAdded struct {
	ChatID    int64     `json:"chat_id"`
	User      chats.User `json:"user"`
	IsChannel bool      `json:"is_channel"`
}

// BotRemoved fires when the bot is removed from a chat.
type BotRemoved struct {
	ChatID    int64     `json:"chat_id"`
	User      chats.User `json:"user"`
	IsChannel bool      `json:"is_channel"`
}

// BotStarted fires when a user starts a dialog with the bot.
type BotStarted struct {
	ChatID     int64      `json:"chat_id"`
	User       chats.User `json:"user"`
	Payload    *string    `json:"payload,omitempty"`
	UserLocale *string    `json:"user_locale,omitempty"`
}

// BotStopped fires when a user blocks/stops the bot.
type BotStopped struct {
	ChatID int64      `json:"chat_id"`
	User   chats.User `json:"user"`
}

// UserAdded fires when a user joins a chat the bot is in.
type UserAdded struct {
	ChatID    int64      `json:"chat_id"`
	User      chats.User `json:"user"`
	InviterID *int64     `json:"inviter_id,omitempty"`
	IsChannel bool       `json:"is_channel"`
}

// UserRemoved fires when a user leaves or is removed from a chat.
type UserRemoved struct {
	ChatID   int64      `json:"chat_id"`
	User     chats.User `json:"user"`
	AdminID  *int64     `json:"admin_id,omitempty"`
	IsChannel bool      `json:"is_channel"`
}

// ChatTitleChanged fires when a chat's title changes.
type ChatTitleChanged struct {
	ChatID int64      `json:"chat_id"`
	User   chats.User `json:"user"`
	Title  string     `json:"title"`
}

// DialogCleared fires when a dialog's history is cleared.
type DialogCleared struct {
	ChatID     int64      `json:"chat_id"`
	User       chats.User `json:"user"`
	UserLocale *string    `json:"user_locale,omitempty"`
}

// DialogMuted fires when a dialog is muted.
type DialogMuted struct {
	ChatID     int64      `json:"chat_id"`
	MutedUntil int64      `json:"muted_until"`
	User       chats.User `json:"user"`
	UserLocale *string    `json:"user_locale,omitempty"`
}

// DialogUnmuted fires when a dialog is unmuted.
type DialogUnmuted struct {
	ChatID     int64      `json:"chat_id"`
	User       chats.User `json:"user"`
	UserLocale *string    `json:"user_locale,omitempty"`
}

// DialogRemoved fires when a dialog with the bot is removed entirely.
type DialogRemoved struct {
	ChatID     int64      `json:"chat_id"`
	User       chats.User `json:"user"`
	UserLocale *string    `json:"user_locale,omitempty"`
}
