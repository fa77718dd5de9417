package model

import "time"

// MessageKind identifies who sent a message.
type MessageKind string

const (
	MessageFromLawyer MessageKind = "lawyer"
	MessageFromClient MessageKind = "client"
)

// IsValid checks if the message kind is known.
func (k MessageKind) IsValid() bool {
	return k == MessageFromLawyer || k == MessageFromClient
}

// Message is one entry of a conversation. Stored messages never change once
// appended. Read is not stored; it is derived from the conversation's read
// marks when the conversation is loaded.
type Message struct {
	Kind   MessageKind `json:"kind"`
	Text   string      `json:"text"`
	SentAt time.Time   `json:"sent_at"`
	Read   bool        `json:"read"`
}

// Conversation is the ordered message history attached to one lead.
type Conversation struct {
	ID            string     `json:"id"`
	LeadID        string     `json:"lead_id"`
	OwnerID       string     `json:"-"`
	Messages      []Message  `json:"messages"`
	Active        bool       `json:"active"`
	LastMessageAt *time.Time `json:"last_message_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`

	// ClientReadThrough and LawyerReadThrough are read marks: messages of
	// that kind at positions below the mark have been read.
	ClientReadThrough int `json:"-"`
	LawyerReadThrough int `json:"-"`
}

// ReadThrough returns the read mark for messages of the given kind.
func (c *Conversation) ReadThrough(kind MessageKind) int {
	switch kind {
	case MessageFromClient:
		return c.ClientReadThrough
	case MessageFromLawyer:
		return c.LawyerReadThrough
	}
	return 0
}

// ApplyReadMarks sets Read on every message from the read marks.
func (c *Conversation) ApplyReadMarks() {
	for i := range c.Messages {
		c.Messages[i].Read = i < c.ReadThrough(c.Messages[i].Kind)
	}
}

// Unread counts messages of the given kind past its read mark.
func (c *Conversation) Unread(kind MessageKind) int {
	mark := c.ReadThrough(kind)
	n := 0
	for i, m := range c.Messages {
		if m.Kind == kind && i >= mark {
			n++
		}
	}
	return n
}
