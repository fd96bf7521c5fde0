package models

import "time"

// DefaultConversationTitle is used when a conversation is created without a title.
const DefaultConversationTitle = "New chat"

// MessageRole distinguishes the two sides of a chat.
type MessageRole string

const (
	MessageRoleUser      MessageRole = "user"
	MessageRoleAssistant MessageRole = "assistant"
)

// Conversation groups chat messages of a single owner.
type Conversation struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	OwnerID   string    `gorm:"type:varchar(36);not null;index" json:"owner_id"`
	Title     string    `gorm:"size:200;not null" json:"title"`
	CreatedAt time.Time `json:"created_at"`
}

// Message is one turn of a conversation. Listings are ordered by CreatedAt ascending.
type Message struct {
	ID             string      `gorm:"primaryKey;type:varchar(36)" json:"id"`
	ConversationID string      `gorm:"type:varchar(36);not null;index:idx_messages_conversation_created,priority:1" json:"conversation_id"`
	Role           MessageRole `gorm:"type:varchar(20);not null" json:"role"`
	Content        string      `gorm:"type:text;not null" json:"content"`
	CreatedAt      time.Time   `gorm:"index:idx_messages_conversation_created,priority:2" json:"created_at"`
}
