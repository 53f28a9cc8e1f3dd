package presence

// EventType names a live-channel frame.
type EventType string

const (
	EventJoin        EventType = "join"
	EventOnlineUsers EventType = "online-users"
	EventSend        EventType = "send"
	EventDeliver     EventType = "deliver"
	EventError       EventType = "error"
)

// Event is one frame on the live channel: {"type": ..., "payload": ...}.
type Event struct {
	Type    EventType `json:"type"`
	Payload any       `json:"payload,omitempty"`
}

// OnlineUsersPayload is the snapshot broadcast after every presence change.
type OnlineUsersPayload struct {
	UserIDs []int64 `json:"userIds"`
}

// MessagePayload is carried by send and deliver.
type MessagePayload struct {
	SenderID   int64  `json:"senderId"`
	ReceiverID int64  `json:"receiverId"`
	Content    string `json:"content"`
}

// ErrorPayload reports a rejected client frame.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
