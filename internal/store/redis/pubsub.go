package redis

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/gosuda/taskboard/internal/events"
)

type PubSub struct {
	client *redis.Client
}

func New(ctx context.Context, addr, password string, db int) (*PubSub, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis.New: ping: %w", err)
	}

	return &PubSub{client: client}, nil
}

// NewFromClient wraps an existing client. The caller keeps ownership of it.
func NewFromClient(client *redis.Client) *PubSub {
	return &PubSub{client: client}
}

// Client exposes the underlying client for stores sharing the connection.
func (ps *PubSub) Client() *redis.Client {
	return ps.client
}

func (ps *PubSub) Close() error {
	if err := ps.client.Close(); err != nil {
		return fmt.Errorf("redis.PubSub.Close: %w", err)
	}
	return nil
}

func (ps *PubSub) Publish(ctx context.Context, channel string, payload []byte) error {
	if err := ps.client.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("redis.PubSub.Publish: %w", err)
	}
	return nil
}

// PublishEvent encodes ev into its envelope form and publishes it.
func (ps *PubSub) PublishEvent(ctx context.Context, channel string, ev events.Event) error {
	data, err := events.Encode(ev)
	if err != nil {
		return fmt.Errorf("redis.PubSub.PublishEvent: %w", err)
	}
	return ps.Publish(ctx, channel, data)
}

func (ps *PubSub) Subscribe(ctx context.Context, channel string) (<-chan []byte, func(), error) {
	sub := ps.client.Subscribe(ctx, channel)

	// Wait for subscription confirmation.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, nil, fmt.Errorf("redis.PubSub.Subscribe: receive confirmation: %w", err)
	}

	out := make(chan []byte, 64)
	redisCh := sub.Channel()

	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-redisCh:
				if !ok {
					return
				}
				select {
				case out <- []byte(msg.Payload):
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	cleanup := func() {
		_ = sub.Close()
	}

	return out, cleanup, nil
}

// ProjectChannel returns the Redis channel name for task and comment events
// of one project.
func ProjectChannel(projectID int64) string {
	return "project:" + strconv.FormatInt(projectID, 10)
}

// OrganizationChannel returns the Redis channel name for organization-wide
// project events.
func OrganizationChannel(organizationID int64) string {
	return "org:" + strconv.FormatInt(organizationID, 10)
}
