package model

// Message types accepted by the server.
const (
	MessageTypeText  = "text"
	MessageTypeImage = "image"
)

// Message is a single chat message as returned by the server.
type Message struct {
	MessageID   int64       `json:"message_id"`
	SenderID    int64       `json:"sender_id"`
	ReceiverID  int64       `json:"receiver_id"`
	Content     string      `json:"content"`
	MessageType string      `json:"message_type"`
	FileURL     *string     `json:"file_url,omitempty"`
	IsRead      bool        `json:"is_read"`
	IsDeleted   bool        `json:"is_deleted"`
	CreatedAt   string      `json:"created_at"`
	UpdatedAt   string      `json:"updated_at"`
	Sender      *UserPublic `json:"sender,omitempty"`
}

// MessageCreate is the payload for sending a message. The receiver is never
// named: the server routes to the caller's partner.
type MessageCreate struct {
	Content     string `json:"content"`
	MessageType string `json:"message_type,omitempty"`
}

// Conversation is one page of history, most recent message first.
type Conversation struct {
	Messages    []Message  `json:"messages"`
	UnreadCount int        `json:"unread_count"`
	Partner     UserPublic `json:"partner"`
}

// MessageReadUpdate marks a batch of messages as read.
type MessageReadUpdate struct {
	MessageIDs []int64 `json:"message_ids"`
}
