package models

import (
	"strings"
	"time"
)

// Custom-field keys the chat platform attaches to messages.
const (
	FieldInfo1 = "Info_1" // requesting account
	FieldInfo2 = "Info_2" // requester name
)

// Message is one inbound chat event. Immutable after enqueue.
type Message struct {
	ChatID       string
	Phone        string
	PhoneID      string
	Name         string
	Text         string
	MediaURL     string
	MediaType    string
	Attendant    string
	Source       WebhookKind
	CustomFields map[string]string
	ReceivedAt   time.Time
}

// HasMedia reports whether the message carries an attachment to process.
func (m Message) HasMedia() bool {
	return m.MediaURL != ""
}

// IsTranscribedAudio reports whether the text came from an audio message.
// Transcribed messages get stricter keyword extraction (more filler words,
// longer minimum token length).
func (m Message) IsTranscribedAudio() bool {
	mt := strings.ToLower(m.MediaType)
	return strings.Contains(mt, "audio") || strings.Contains(mt, "voice")
}

// Account returns the requesting account (Info_1), if present.
func (m Message) Account() string {
	return m.CustomFields[FieldInfo1]
}

// Requester returns the requester name (Info_2), if present.
func (m Message) Requester() string {
	return m.CustomFields[FieldInfo2]
}
