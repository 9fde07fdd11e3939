package events

import (
	"encoding/json"
	"fmt"
)

// ClientMessageType names a client-to-server message.
type ClientMessageType string

const (
	ClientSubscribe   ClientMessageType = "subscribe"
	ClientUnsubscribe ClientMessageType = "unsubscribe"
	ClientPing        ClientMessageType = "ping"
)

// ClientMessage is the only frame shape clients send.
type ClientMessage struct {
	Type      ClientMessageType `json:"type"`
	ProjectID int64             `json:"project_id,omitempty"`
	Timestamp int64             `json:"timestamp,omitempty"`
}

func Subscribe(projectID int64) ClientMessage {
	return ClientMessage{Type: ClientSubscribe, ProjectID: projectID}
}

func Unsubscribe(projectID int64) ClientMessage {
	return ClientMessage{Type: ClientUnsubscribe, ProjectID: projectID}
}

// DecodeClientMessage parses a client frame.
func DecodeClientMessage(data []byte) (ClientMessage, error) {
	var msg ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return msg, fmt.Errorf("events.DecodeClientMessage: %w: %w", ErrMalformed, err)
	}
	switch msg.Type {
	case ClientSubscribe, ClientUnsubscribe:
		if msg.ProjectID <= 0 {
			return msg, fmt.Errorf("events.DecodeClientMessage: %w: missing project_id", ErrMalformed)
		}
	case ClientPing:
	default:
		return msg, fmt.Errorf("events.DecodeClientMessage: %q: %w", msg.Type, ErrUnknownType)
	}
	return msg, nil
}
