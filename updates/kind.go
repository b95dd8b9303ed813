package updates

// Kind discriminates the Update tagged union via the wire field
// "update_type".
type Kind string

const (
	KindMessageCreated     Kind = "message_created"
	KindMessageEdited      Kind = "message_edited"
	KindMessageRemoved     Kind = "message_removed"
	KindMessageCallback    Kind = "message_callback"
	KindMessageChatCreated Kind = "message_chat_created" // deprecated
	KindBotAdded           Kind = "bot_added"
	KindBotRemoved         Kind = "bot_removed"
	KindBotStarted         Kind = "bot_started"
	KindBotStopped         Kind = "bot_stopped"
	KindUserAdded          Kind = "user_added"
	KindUserRemoved        Kind = "user_removed"
	KindChatTitleChanged   Kind = "chat_title_changed"
	KindDialogCleared      Kind = "dialog_cleared"
	KindDialogMuted        Kind = "dialog_muted"
	KindDialogUnmuted      Kind = "dialog_unmuted"
	KindDialogRemoved      Kind = "dialog_removed"
)

// DeprecatedKinds holds the update kinds that still dispatch but emit a
// one-time registration warning.
var DeprecatedKinds = map[Kind]bool{
	KindMessageChatCreated: true,
}

// knownKinds is used by Decode to tell "not decoded" apart from a
// structurally invalid payload of a known kind.
var knownKinds = map[Kind]bool{
	KindMessageCreated:     true,
	KindMessageEdited:      true,
	KindMessageRemoved:     true,
	KindMessageCallback:    true,
	KindMessageChatCreated: true,
	KindBotAdded:           true,
	KindBotRemoved:         true,
	KindBotStarted:         true,
	KindBotStopped:         true,
	KindUserAdded:          true,
	KindUserRemoved:        true,
	KindChatTitleChanged:   true,
	KindDialogCleared:      true,
	KindDialogMuted:        true,
	KindDialogUnmuted:      true,
	KindDialogRemoved:      true,
}
