package domain

// NoticeKind selects how a gateway renders a notice.
type NoticeKind string

const (
	NoticePanel   NoticeKind = "PANEL"
	NoticeWelcome NoticeKind = "WELCOME"
	NoticeClosing NoticeKind = "CLOSING"
)

// Interactive element identifiers shared by the gateway renderer and the
// inbound command adapter.
const (
	ActionOpenTicket  = "open_ticket"
	ActionCloseTicket = "close_ticket"
)

// Action is an interactive element attached to a notice.
type Action struct {
	ID    string
	Label string
}

// Notice is the platform-neutral content of a message posted by the broker.
type Notice struct {
	Kind           NoticeKind
	Title          string
	Body           string
	MentionUserIDs []string
	MentionRoleIDs []string
	Fields         []NoticeField
	Actions        []Action
}

// NoticeField is a labelled value shown alongside the body. When UserID is
// set the gateway renders a mention of that user instead of Value.
type NoticeField struct {
	Name   string
	Value  string
	UserID string
}
