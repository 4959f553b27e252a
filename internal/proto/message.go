package proto

const (
	StatusOK       = "ok"
	StatusTryAgain = "try again"

	InboundTypeSay    = "say"
	InboundTypeCursor = "cursor"

	OutboundTypeMessages = "messages"
	OutboundTypeReply    = "reply"
	OutboundTypeError    = "error"

	ErrCodeBadRequest  = "bad_request"
	ErrCodeRateLimited = "rate_limited"
)

// Message is a chat message as clients see it.
type Message struct {
	ID          string `json:"id"`
	From        string `json:"from"`
	Body        string `json:"body"`
	HTML        string `json:"html"`
	Avatar      string `json:"avatar"`
	AvatarSmall string `json:"avatar_small"`
	Time        string `json:"time"`
}

// LoginRequest introduces a nickname and an optional e-mail for the avatar.
type LoginRequest struct {
	Nick  string `json:"nick" form:"nick"`
	Email string `json:"email" form:"email"`
}

// NewMessageRequest is a chat line or a "/command".
type NewMessageRequest struct {
	Body string `json:"body" form:"body"`
}

// UpdatesRequest asks for messages after Cursor.
type UpdatesRequest struct {
	Cursor string `json:"cursor" form:"cursor"`
}

// UpdatesResponse answers a long-poll: either a batch or "try again".
type UpdatesResponse struct {
	Status   string    `json:"status"`
	Messages []Message `json:"messages,omitempty"`
}

// OnlineResponse lists the online nicknames.
type OnlineResponse struct {
	Count int      `json:"count"`
	Users []string `json:"users"`
}

// Profile is a remembered nickname. Avatar replaces the e-mail address.
type Profile struct {
	Nick       string `json:"nick"`
	Avatar     string `json:"avatar"`
	Online     bool   `json:"online"`
	Logins     int64  `json:"logins"`
	CreatedAt  string `json:"created_at"`
	LastSeenAt string `json:"last_seen_at"`
}

// Inbound is a frame sent by a WebSocket client.
type Inbound struct {
	Type   string `json:"type"`
	Body   string `json:"body,omitempty"`
	Cursor string `json:"cursor,omitempty"`
}

// Outbound is a frame sent to a WebSocket client.
type Outbound struct {
	Type     string    `json:"type"`
	Messages []Message `json:"messages,omitempty"`
	Reply    *Message  `json:"reply,omitempty"`
	Error    *Error    `json:"error,omitempty"`
}

// Error describes a protocol-level error response.
type Error struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}
