package shared

// Scope selects which chats a read query covers: a single chat or all
// chats the engine has ever seen.
type Scope struct {
	ChatID int64
	Global bool
}

// ChatScope builds a scope limited to one chat.
func ChatScope(chatID int64) Scope {
	return Scope{ChatID: chatID}
}

// GlobalScope builds a scope covering every chat.
func GlobalScope() Scope {
	return Scope{Global: true}
}

// IsGlobal reports whether the scope covers every chat.
func (s Scope) IsGlobal() bool {
	return s.Global
}

// Window selects the time range of a ranking query.
type Window int

const (
	// WindowToday covers only sessions attributed to the current business day.
	WindowToday Window = iota
	// WindowAllTime covers every session ever recorded.
	WindowAllTime
)

// String returns the string representation of the window.
func (w Window) String() string {
	if w == WindowAllTime {
		return "all"
	}
	return "today"
}
