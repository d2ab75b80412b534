package model

import "time"

// Message is immutable once stored: there is no edit or delete path.
type Message struct {
	ID         string    `json:"id"`
	SenderID   string    `json:"senderId"`
	ReceiverID string    `json:"receiverId"`
	PetID      string    `json:"petId"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"createdAt"`
}

// MessageView is a message with its participants and pet topic resolved.
// A nil field means the referenced record is gone.
type MessageView struct {
	Message
	Sender   *UserSummary `json:"sender"`
	Receiver *UserSummary `json:"receiver"`
	Pet      *PetSummary  `json:"pet"`
}

// Conversation is the derived grouping of messages about one pet with one
// counterpart. It is never stored.
type Conversation struct {
	ID          string        `json:"id"`
	Pet         *PetSummary   `json:"pet"`
	OtherPerson *UserSummary  `json:"otherPerson"`
	LastMessage MessageView   `json:"lastMessage"`
	Messages    []MessageView `json:"messages"`
}
