package ws

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/taskboard/internal/domain"
	"github.com/gosuda/taskboard/internal/events"
	"github.com/gosuda/taskboard/internal/server/middleware"
	redisstore "github.com/gosuda/taskboard/internal/store/redis"
)

const (
	writeTimeout = 10 * time.Second
	sendBuffer   = 64
)

// Subscriber opens a channel subscription. *redisstore.PubSub implements it.
type Subscriber interface {
	Subscribe(ctx context.Context, channel string) (<-chan []byte, func(), error)
}

// ProjectFinder resolves projects for subscription checks.
type ProjectFinder interface {
	GetByID(ctx context.Context, id int64) (*domain.Project, error)
}

// Hub serves push connections. Each connection follows its organization
// channel and any project channels the client subscribes to.
type Hub struct {
	sub      Subscriber
	projects ProjectFinder
	opts     *websocket.AcceptOptions
	log      zerolog.Logger
}

// NewHub creates a hub. originPatterns are host patterns allowed to open
// cross-origin connections.
func NewHub(sub Subscriber, projects ProjectFinder, originPatterns []string) *Hub {
	return &Hub{
		sub:      sub,
		projects: projects,
		opts:     &websocket.AcceptOptions{OriginPatterns: originPatterns},
		log:      log.Logger.With().Str("component", "ws").Logger(),
	}
}

// ServeHTTP upgrades an authenticated request. The user must already be in
// the request context.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		http.Error(w, "authentication required", http.StatusUnauthorized)
		return
	}

	conn, err := websocket.Accept(w, r, h.opts)
	if err != nil {
		h.log.Error().Err(err).Msg("websocket accept")
		return
	}
	defer conn.CloseNow()

	c := &client{
		hub:  h,
		conn: conn,
		user: user,
		send: make(chan []byte, sendBuffer),
		subs: make(map[int64]func()),
		log:  h.log.With().Str("conn_id", uuid.NewString()).Int64("user_id", user.ID).Logger(),
	}
	c.run(r.Context())
}

// client is one accepted connection.
type client struct {
	hub  *Hub
	conn *websocket.Conn
	user *domain.User

	send chan []byte

	mu   sync.Mutex
	subs map[int64]func() // project ID -> unsubscribe

	log zerolog.Logger
}

func (c *client) run(parent context.Context) {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()
	defer c.closeSubscriptions()

	c.log.Debug().Msg("connection opened")

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		c.writeLoop(ctx)
	}()

	c.emit(ctx, events.ConnectionEstablished{UserID: c.user.ID, Username: c.user.Username})

	if orgID := c.user.OrgID(); orgID != 0 {
		if err := c.forward(ctx, redisstore.OrganizationChannel(orgID)); err != nil {
			c.log.Error().Err(err).Int64("organization_id", orgID).Msg("subscribe organization channel")
			_ = c.conn.Close(websocket.StatusInternalError, "subscribe failed")
			return
		}
	}

	c.readLoop(ctx)
	cancel()
	<-writerDone
}

func (c *client) readLoop(ctx context.Context) {
	for {
		_, data, err := c.conn.Read(ctx)
		if err != nil {
			switch status := websocket.CloseStatus(err); {
			case status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway:
				c.log.Debug().Msg("connection closed by client")
			case errors.Is(err, context.Canceled):
			default:
				c.log.Debug().Err(err).Msg("websocket read")
			}
			return
		}

		msg, err := events.DecodeClientMessage(data)
		if err != nil {
			c.log.Warn().Err(err).Msg("dropping client message")
			c.emit(ctx, events.ErrorNotice{Message: "invalid message"})
			continue
		}

		switch msg.Type {
		case events.ClientSubscribe:
			c.subscribe(ctx, msg.ProjectID)
		case events.ClientUnsubscribe:
			c.unsubscribe(msg.ProjectID)
			c.emit(ctx, events.Unsubscribed{ProjectID: msg.ProjectID})
		case events.ClientPing:
			c.emit(ctx, events.Pong{Timestamp: msg.Timestamp})
		}
	}
}

func (c *client) subscribe(ctx context.Context, projectID int64) {
	c.mu.Lock()
	_, exists := c.subs[projectID]
	c.mu.Unlock()
	if exists {
		c.emit(ctx, events.Subscribed{ProjectID: projectID})
		return
	}

	p, err := c.hub.projects.GetByID(ctx, projectID)
	if err != nil || !c.user.CanAccessOrganization(p.OrganizationID) {
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			c.log.Error().Err(err).Int64("project_id", projectID).Msg("load project")
		}
		c.emit(ctx, events.ErrorNotice{Message: "project not found", ProjectID: projectID})
		return
	}

	subCtx, stop := context.WithCancel(ctx)
	if err := c.forwardWith(subCtx, stop, projectID); err != nil {
		stop()
		c.log.Error().Err(err).Int64("project_id", projectID).Msg("subscribe project channel")
		c.emit(ctx, events.ErrorNotice{Message: "subscribe failed", ProjectID: projectID})
		return
	}
	c.emit(ctx, events.Subscribed{ProjectID: projectID})
}

func (c *client) unsubscribe(projectID int64) {
	c.mu.Lock()
	stop, ok := c.subs[projectID]
	delete(c.subs, projectID)
	c.mu.Unlock()
	if ok {
		stop()
	}
}

func (c *client) closeSubscriptions() {
	c.mu.Lock()
	subs := c.subs
	c.subs = make(map[int64]func())
	c.mu.Unlock()
	for _, stop := range subs {
		stop()
	}
}

// forwardWith subscribes to a project channel and records how to stop it.
func (c *client) forwardWith(ctx context.Context, stop context.CancelFunc, projectID int64) error {
	messages, cleanup, err := c.hub.sub.Subscribe(ctx, redisstore.ProjectChannel(projectID))
	if err != nil {
		return fmt.Errorf("ws.client.subscribe: %w", err)
	}

	c.mu.Lock()
	c.subs[projectID] = func() {
		stop()
		cleanup()
	}
	c.mu.Unlock()

	go c.pump(ctx, messages)
	return nil
}

// forward subscribes to channel for the lifetime of ctx.
func (c *client) forward(ctx context.Context, channel string) error {
	messages, cleanup, err := c.hub.sub.Subscribe(ctx, channel)
	if err != nil {
		return fmt.Errorf("ws.client.forward: %w", err)
	}
	go func() {
		defer cleanup()
		c.pump(ctx, messages)
	}()
	return nil
}

func (c *client) pump(ctx context.Context, messages <-chan []byte) {
	for msg := range messages {
		select {
		case c.send <- msg:
		case <-ctx.Done():
			return
		}
	}
}

func (c *client) emit(ctx context.Context, ev events.Event) {
	data, err := events.Encode(ev)
	if err != nil {
		c.log.Error().Err(err).Msg("encode event")
		return
	}
	select {
	case c.send <- data:
	case <-ctx.Done():
	}
}

func (c *client) writeLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			_ = c.conn.Close(websocket.StatusNormalClosure, "connection closed")
			return
		case msg := <-c.send:
			wctx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := c.conn.Write(wctx, websocket.MessageText, msg)
			cancel()
			if err != nil {
				c.log.Debug().Err(err).Msg("websocket write")
				_ = c.conn.CloseNow()
				return
			}
		}
	}
}
