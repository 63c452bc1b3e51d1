package domain

import "time"

// PublishedMessage is the payload fanned out to every subscriber of a topic.
// It is built once per publish and never modified afterwards.
type PublishedMessage struct {
	Sender      string    `json:"sender"`
	ChannelName string    `json:"channel_name"`
	Content     string    `json:"content"`
	SentAt      time.Time `json:"sent_at"`
}

// NewPublishedMessage stamps a message with the given time in UTC.
func NewPublishedMessage(sender, channel, content string, now time.Time) PublishedMessage {
	return PublishedMessage{
		Sender:      sender,
		ChannelName: channel,
		Content:     content,
		SentAt:      now.UTC(),
	}
}
