package models

import "time"

// Message is a chat message scoped to one request. Sender name, photo
// and role are denormalized at write time so later profile edits do not
// change historical display. Content is immutable once created; only
// the read flag is mutated afterwards.
type Message struct {
	ID          string         `db:"id" json:"id"`
	RequestID   string         `db:"request_id" json:"request_id"`
	UserID      string         `db:"user_id" json:"user_id"`
	SenderName  string         `db:"sender_name" json:"sender_name"`
	SenderPhoto *string        `db:"sender_photo" json:"sender_photo,omitempty"`
	SenderRole  string         `db:"sender_role" json:"sender_role"`
	Content     string         `db:"content" json:"content"`
	Attachments AttachmentList `db:"attachments" json:"attachments"`
	IsRead      bool           `db:"is_read" json:"is_read"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
}

// ChatSummary is the derived inbox view of a request: its latest
// message plus the unread count for the current viewer. Recomputed on
// each fetch, never cached durably.
type ChatSummary struct {
	RequestID       string    `db:"request_id" json:"request_id"`
	RequestTitle    string    `db:"request_title" json:"request_title"`
	RequestStatus   string    `db:"request_status" json:"request_status"`
	DealerName      string    `db:"dealer_name" json:"dealer_name,omitempty"`
	DealerCity      *string   `db:"dealer_city" json:"dealer_city,omitempty"`
	DealerCenter    *string   `db:"dealer_center" json:"dealer_center,omitempty"`
	LastMessage     string    `db:"last_message" json:"last_message"`
	LastMessageTime time.Time `db:"last_message_time" json:"last_message_time"`
	UnreadCount     int       `db:"unread_count" json:"unread_count"`
}

// ChatEvent is broadcasted through websockets.
type ChatEvent struct {
	Type      string   `json:"type"`
	Message   *Message `json:"message,omitempty"`
	Request   *Request `json:"request,omitempty"`
	RequestID string   `json:"request_id,omitempty"`
}
