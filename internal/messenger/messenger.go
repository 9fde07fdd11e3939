package messenger

import "context"

// MessageID uniquely identifies a message within a messenger platform.
type MessageID string

// Activity is a board change worth announcing in a team chat.
type Activity struct {
	Action    string // "created", "updated", "deleted"
	TaskID    int64
	ProjectID int64
	Title     string
	Status    string
	Priority  string
}

// Messenger abstracts a chat platform used as an activity feed.
type Messenger interface {
	// SendMessage posts a text message to a channel and returns its platform message ID.
	SendMessage(ctx context.Context, channelID, text string) (MessageID, error)

	// SendActivity posts a formatted activity entry to a channel.
	SendActivity(ctx context.Context, channelID string, a Activity) (MessageID, error)

	// Platform returns the messenger platform identifier (e.g. "slack").
	Platform() string
}
