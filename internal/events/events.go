// Package events defines the push-channel wire protocol shared by the server
// hub and the client realtime manager.
//
// Every server message is an Envelope {type, payload}. Payloads decode into a
// closed set of typed events; clients never switch on raw strings.
package events

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gosuda/taskboard/internal/domain"
)

// Type names a server-to-client event.
type Type string

const (
	TypeConnectionEstablished Type = "connection_established"
	TypeSubscribed            Type = "subscribed"
	TypeUnsubscribed          Type = "unsubscribed"
	TypePong                  Type = "pong"
	TypeError                 Type = "error"

	TypeProjectCreated Type = "project_created"
	TypeProjectUpdated Type = "project_updated"
	TypeProjectDeleted Type = "project_deleted"

	TypeTaskCreated Type = "task_created"
	TypeTaskUpdated Type = "task_updated"
	TypeTaskDeleted Type = "task_deleted"

	TypeCommentCreated Type = "comment_created"
)

var (
	// ErrMalformed is returned for messages that are not a valid envelope.
	ErrMalformed = errors.New("events: malformed message")
	// ErrUnknownType is returned for envelopes whose type is not part of the protocol.
	ErrUnknownType = errors.New("events: unknown event type")
)

// Envelope is the wire form of every server-to-client message.
type Envelope struct {
	Type    Type            `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Event is implemented by every typed server event.
type Event interface {
	EventType() Type
}

type ConnectionEstablished struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
}

type Subscribed struct {
	ProjectID int64 `json:"project_id"`
}

type Unsubscribed struct {
	ProjectID int64 `json:"project_id"`
}

type Pong struct {
	Timestamp int64 `json:"timestamp,omitempty"`
}

// ErrorNotice reports a rejected client message (unknown project, bad frame).
type ErrorNotice struct {
	Message   string `json:"message"`
	ProjectID int64  `json:"project_id,omitempty"`
}

type ProjectCreated struct{ Project domain.Project }

type ProjectUpdated struct{ Project domain.Project }

type ProjectDeleted struct {
	ID             int64 `json:"id"`
	OrganizationID int64 `json:"organization_id"`
}

type TaskCreated struct{ Task domain.Task }

type TaskUpdated struct{ Task domain.Task }

type TaskDeleted struct {
	ID        int64 `json:"id"`
	ProjectID int64 `json:"project_id"`
}

type CommentCreated struct {
	Comment   domain.Comment `json:"comment"`
	ProjectID int64          `json:"project_id"`
}

func (ConnectionEstablished) EventType() Type { return TypeConnectionEstablished }
func (Subscribed) EventType() Type            { return TypeSubscribed }
func (Unsubscribed) EventType() Type          { return TypeUnsubscribed }
func (Pong) EventType() Type                  { return TypePong }
func (ErrorNotice) EventType() Type           { return TypeError }
func (ProjectCreated) EventType() Type        { return TypeProjectCreated }
func (ProjectUpdated) EventType() Type        { return TypeProjectUpdated }
func (ProjectDeleted) EventType() Type        { return TypeProjectDeleted }
func (TaskCreated) EventType() Type           { return TypeTaskCreated }
func (TaskUpdated) EventType() Type           { return TypeTaskUpdated }
func (TaskDeleted) EventType() Type           { return TypeTaskDeleted }
func (CommentCreated) EventType() Type        { return TypeCommentCreated }

// payload returns the value serialized as the envelope payload. Project and
// task events carry the bare resource so listeners see {id, ...}.
func payload(ev Event) any {
	switch e := ev.(type) {
	case ProjectCreated:
		return e.Project
	case ProjectUpdated:
		return e.Project
	case TaskCreated:
		return e.Task
	case TaskUpdated:
		return e.Task
	default:
		return ev
	}
}

// Encode serializes ev into its envelope form.
func Encode(ev Event) ([]byte, error) {
	body, err := json.Marshal(payload(ev))
	if err != nil {
		return nil, fmt.Errorf("events.Encode: %s: %w", ev.EventType(), err)
	}
	data, err := json.Marshal(Envelope{Type: ev.EventType(), Payload: body})
	if err != nil {
		return nil, fmt.Errorf("events.Encode: %w", err)
	}
	return data, nil
}

// Decode parses an envelope and its payload into a typed event.
func Decode(data []byte) (Event, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("events.Decode: %w: %w", ErrMalformed, err)
	}
	if env.Type == "" {
		return nil, fmt.Errorf("events.Decode: %w: missing type", ErrMalformed)
	}

	ev, err := decodePayload(env)
	if err != nil {
		return nil, fmt.Errorf("events.Decode: %s: %w", env.Type, err)
	}
	return ev, nil
}

func decodePayload(env Envelope) (Event, error) {
	switch env.Type {
	case TypeConnectionEstablished:
		return unmarshalAs[ConnectionEstablished](env.Payload)
	case TypeSubscribed:
		return unmarshalAs[Subscribed](env.Payload)
	case TypeUnsubscribed:
		return unmarshalAs[Unsubscribed](env.Payload)
	case TypePong:
		return unmarshalAs[Pong](env.Payload)
	case TypeError:
		return unmarshalAs[ErrorNotice](env.Payload)
	case TypeProjectCreated:
		p, err := unmarshalResource[domain.Project](env.Payload)
		return ProjectCreated{Project: p}, err
	case TypeProjectUpdated:
		p, err := unmarshalResource[domain.Project](env.Payload)
		return ProjectUpdated{Project: p}, err
	case TypeProjectDeleted:
		return unmarshalAs[ProjectDeleted](env.Payload)
	case TypeTaskCreated:
		t, err := unmarshalResource[domain.Task](env.Payload)
		return TaskCreated{Task: t}, err
	case TypeTaskUpdated:
		t, err := unmarshalResource[domain.Task](env.Payload)
		return TaskUpdated{Task: t}, err
	case TypeTaskDeleted:
		return unmarshalAs[TaskDeleted](env.Payload)
	case TypeCommentCreated:
		return unmarshalAs[CommentCreated](env.Payload)
	default:
		return nil, ErrUnknownType
	}
}

func unmarshalAs[T Event](raw json.RawMessage) (Event, error) {
	var v T
	if len(raw) == 0 {
		return v, nil
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	return v, nil
}

// unmarshalResource decodes a resource payload, which must carry a non-zero id.
func unmarshalResource[T domain.Project | domain.Task](raw json.RawMessage) (T, error) {
	var v T
	if len(raw) == 0 {
		return v, fmt.Errorf("%w: empty payload", ErrMalformed)
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	var probe struct {
		ID int64 `json:"id"`
	}
	_ = json.Unmarshal(raw, &probe)
	if probe.ID == 0 {
		return v, fmt.Errorf("%w: payload without id", ErrMalformed)
	}
	return v, nil
}
