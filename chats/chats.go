// Package chats holds the immutable value objects decoded from MAX JSON
// payloads: chats, users, messages and callback buttons.
package chats

import (
	"fmt"
	"time"
)

// ChatType is the kind of chat a message belongs to.
type ChatType string

const (
	ChatTypeDialog  ChatType = "dialog"
	ChatTypeChat    ChatType = "chat"
	ChatTypeChannel ChatType = "channel"
)

// ChatStatus is the bot's membership status within a chat.
type ChatStatus string

const (
	ChatStatusActive  ChatStatus = "active"
	ChatStatusRemoved ChatStatus = "removed"
	ChatStatusLeft    ChatStatus = "left"
	ChatStatusKicked  ChatStatus = "kicked"
)

// Icon is a chat's avatar image.
type Icon struct {
	URL string `json:"url"`
}

// Chat is a MAX chat (dialog, group chat or channel).
type Chat struct {
	ChatID            int64          `json:"chat_id"`
	Type              ChatType       `json:"type"`
	Status            ChatStatus     `json:"status"`
	Title             *string        `json:"title,omitempty"`
	Icon              *Icon          `json:"icon,omitempty"`
	LastEventTimeMs   int64          `json:"last_event_time"`
	ParticipantsCount int            `json:"participants_count"`
	OwnerID           *int64         `json:"owner_id,omitempty"`
	Participants      map[string]int64 `json:"participants,omitempty"`
	IsPublic          bool           `json:"is_public"`
	Link              *string        `json:"link,omitempty"`
	Description       *string        `json:"description,omitempty"`
	DialogWithUser    *User          `json:"dialog_with_user,omitempty"`
	MessagesCount     *int           `json:"messages_count,omitempty"`
}

// LastEventTime converts LastEventTimeMs to a wall-clock time on read.
func (c *Chat) LastEventTime() time.Time {
	return msToTime(c.LastEventTimeMs)
}

// User is a MAX platform user (or bot identity).
type User struct {
	UserID       int64   `json:"user_id"`
	FirstName    string  `json:"first_name"`
	LastName     *string `json:"last_name,omitempty"`
	Username     *string `json:"username,omitempty"`
	IsBot        bool    `json:"is_bot"`
	LastActivity *int64  `json:"last_activity_time,omitempty"`
}

// Recipient identifies the destination of a Message: a chat, its type and
// optionally a specific user (for dialogs).
type Recipient struct {
	ChatID   *int64   `json:"chat_id,omitempty"`
	ChatType ChatType `json:"chat_type"`
	UserID   *int64   `json:"user_id,omitempty"`
}

// Attachment is a generic message attachment; the concrete payload shape is
// outside this core's scope (peripheral per spec), so it is kept opaque.
type Attachment struct {
	Type    string          `json:"type"`
	Payload map[string]any  `json:"payload,omitempty"`
}

// Markup describes an inline keyboard attached to a message body; button
// construction is peripheral, so only the raw element grid is kept.
type Markup [][]map[string]any

// Body is the content of a Message.
type Body struct {
	MID         string       `json:"mid"`
	Seq         int64        `json:"seq"`
	Text        *string      `json:"text,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`
	Markup      Markup       `json:"markup,omitempty"`
}

// Message is a MAX chat message.
type Message struct {
	Sender      *User     `json:"sender,omitempty"`
	Recipient   Recipient `json:"recipient"`
	Body        Body      `json:"body"`
	TimestampMs int64     `json:"timestamp"`
}

// Timestamp converts TimestampMs to a wall-clock time on read.
func (m *Message) Timestamp() time.Time {
	return msToTime(m.TimestampMs)
}

// Callback is the payload of an inline-button press.
type Callback struct {
	CallbackID string  `json:"callback_id"`
	Payload    *string `json:"payload,omitempty"`
	User       User    `json:"user"`
}

func msToTime(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

// StorageKey is the (chat_id, user_id) pair addressing one FSM record.
// Either component may be absent when an update cannot derive it. The type
// is a plain comparable struct (no pointer fields) so it can be used
// directly as a map key by storage backends.
type StorageKey struct {
	ChatID   int64
	HasChat  bool
	UserID   int64
	HasUser  bool
}

// NewStorageKey builds a StorageKey from possibly-nil ids.
func NewStorageKey(chatID, userID *int64) StorageKey {
	k := StorageKey{}
	if chatID != nil {
		k.ChatID, k.HasChat = *chatID, true
	}
	if userID != nil {
		k.UserID, k.HasUser = *userID, true
	}
	return k
}

// Chat returns the chat id component, or nil if not derivable.
func (k StorageKey) Chat() *int64 {
	if !k.HasChat {
		return nil
	}
	v := k.ChatID
	return &v
}

// User returns the user id component, or nil if not derivable.
func (k StorageKey) User() *int64 {
	if !k.HasUser {
		return nil
	}
	v := k.UserID
	return &v
}

// String renders the key as "<chat_id|_>:<user_id|_>", the remote backend's
// key layout (see fsm/redis and fsm/sql).
func (k StorageKey) String() string {
	return fmt.Sprintf("%s:%s", part(k.HasChat, k.ChatID), part(k.HasUser, k.UserID))
}

func part(has bool, v int64) string {
	if !has {
		return "_"
	}
	return fmt.Sprintf("%d", v)
}
