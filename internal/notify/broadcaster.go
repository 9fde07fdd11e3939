package notify

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/taskboard/internal/events"
	"github.com/gosuda/taskboard/internal/messenger"
	redisstore "github.com/gosuda/taskboard/internal/store/redis"
)

const chatTimeout = 10 * time.Second

// EventBus publishes encoded events. *redisstore.PubSub implements it.
type EventBus interface {
	PublishEvent(ctx context.Context, channel string, ev events.Event) error
}

// Broadcaster fans mutations out to push subscribers and, when a notifier is
// set, mirrors task events to chat. Failures are logged and never reach the
// caller.
type Broadcaster struct {
	bus      EventBus
	notifier *Notifier
	log      zerolog.Logger
}

// NewBroadcaster creates a Broadcaster. notifier may be nil.
func NewBroadcaster(bus EventBus, notifier *Notifier) *Broadcaster {
	return &Broadcaster{
		bus:      bus,
		notifier: notifier,
		log:      log.Logger.With().Str("component", "broadcaster").Logger(),
	}
}

// PublishOrganization publishes a project event to the organization channel.
func (b *Broadcaster) PublishOrganization(ctx context.Context, organizationID int64, ev events.Event) {
	b.publish(ctx, redisstore.OrganizationChannel(organizationID), ev)
}

// PublishProject publishes a task or comment event to the project channel.
func (b *Broadcaster) PublishProject(ctx context.Context, projectID int64, ev events.Event) {
	b.publish(ctx, redisstore.ProjectChannel(projectID), ev)

	if b.notifier == nil {
		return
	}
	a, ok := activityOf(ev)
	if !ok {
		return
	}
	// Chat delivery outlives the request.
	chatCtx := context.WithoutCancel(ctx)
	go func() {
		ctx, cancel := context.WithTimeout(chatCtx, chatTimeout)
		defer cancel()
		if err := b.notifier.Notify(ctx, a); err != nil {
			b.log.Warn().Err(err).Int64("task_id", a.TaskID).Msg("chat notification failed")
		}
	}()
}

func (b *Broadcaster) publish(ctx context.Context, channel string, ev events.Event) {
	if err := b.bus.PublishEvent(ctx, channel, ev); err != nil {
		b.log.Error().Err(err).Str("channel", channel).Str("type", string(ev.EventType())).Msg("publish event")
	}
}

// activityOf converts task events into chat activity.
func activityOf(ev events.Event) (messenger.Activity, bool) {
	switch e := ev.(type) {
	case events.TaskCreated:
		return taskActivity("created", e.Task.ID, e.Task.ProjectID, e.Task.Title, string(e.Task.Status), string(e.Task.Priority)), true
	case events.TaskUpdated:
		return taskActivity("updated", e.Task.ID, e.Task.ProjectID, e.Task.Title, string(e.Task.Status), string(e.Task.Priority)), true
	case events.TaskDeleted:
		return messenger.Activity{Action: "deleted", TaskID: e.ID, ProjectID: e.ProjectID}, true
	default:
		return messenger.Activity{}, false
	}
}

func taskActivity(action string, id, projectID int64, title, status, priority string) messenger.Activity {
	return messenger.Activity{
		Action:    action,
		TaskID:    id,
		ProjectID: projectID,
		Title:     title,
		Status:    status,
		Priority:  priority,
	}
}
