// Package client ties the transport, router, roster and session store into
// the state object used by front ends.
package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/ashureev/chatline/internal/domain"
	"github.com/ashureev/chatline/internal/events"
	"github.com/ashureev/chatline/internal/roster"
	"github.com/ashureev/chatline/internal/router"
	"github.com/ashureev/chatline/internal/store"
	"github.com/ashureev/chatline/internal/transport"
	"github.com/ashureev/chatline/internal/wire"
	"github.com/google/uuid"
)

var (
	// ErrNotLoggedIn is returned by operations that need a session.
	ErrNotLoggedIn = errors.New("not logged in")
	// ErrEmptyName is returned when logging in with a blank name.
	ErrEmptyName = errors.New("display name is empty")
	// ErrEmptyBody is returned when sending a blank message.
	ErrEmptyBody = errors.New("message body is empty")
)

// Options configures a Client.
type Options struct {
	Policy      transport.Policy
	DialTimeout time.Duration
	// EventBuffer is the default subscriber buffer for Events.
	EventBuffer int
}

// Client is the chat session state. All methods are safe for concurrent use.
type Client struct {
	manager *transport.Manager
	router  *router.Router
	roster  *roster.Roster
	bus     *events.Bus[events.Event]
	store   store.SessionStore
	opts    Options
	logger  *slog.Logger
	now     func() time.Time

	mu      sync.RWMutex
	session *domain.Session
}

// New builds a client over dialer. sessions may be nil to disable persistence.
func New(dialer transport.Dialer, opts Options, sessions store.SessionStore, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	bus := events.NewBus[events.Event](logger)
	c := &Client{
		router: router.New(logger),
		roster: roster.New(logger),
		bus:    bus,
		store:  sessions,
		opts:   opts,
		logger: logger,
		now:    time.Now,
	}
	c.manager = transport.NewManager(dialer, transport.Options{
		Policy:      opts.Policy,
		DialTimeout: opts.DialTimeout,
		Handler:     c.handleFrame,
		Events:      bus,
		Logger:      logger,
	})
	return c
}

// Run restores a persisted session, then keeps the connection alive until
// ctx is cancelled or the reconnect policy gives up.
func (c *Client) Run(ctx context.Context) error {
	if err := c.restore(ctx); err != nil {
		c.logger.Warn("Failed to restore session", "error", err)
	}
	return c.manager.Run(ctx)
}

// restore adopts the persisted session unless Login already set one.
func (c *Client) restore(ctx context.Context) error {
	if c.store == nil || c.self() != "" {
		return nil
	}
	session, err := c.store.LoadSession(ctx)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	if session == nil {
		return nil
	}
	c.mu.Lock()
	if c.session != nil {
		c.mu.Unlock()
		return nil
	}
	c.session = session
	c.mu.Unlock()

	c.logger.Info("Session restored", "name", session.DisplayName)
	return c.announce(ctx, session.DisplayName)
}

// Close releases the event bus. Subscribers see their channels closed.
func (c *Client) Close() {
	c.bus.Close()
}

// Connected reports whether the transport is currently connected.
func (c *Client) Connected() bool {
	return c.manager.Connected()
}

// Login sets the local identity and announces it. While disconnected the
// announcement goes out on the next connection.
func (c *Client) Login(ctx context.Context, name string) (*domain.Session, error) {
	session := domain.NewSession(name, c.now())
	if session == nil {
		return nil, ErrEmptyName
	}

	c.mu.Lock()
	c.session = session
	c.mu.Unlock()

	if c.store != nil {
		if err := c.store.SaveSession(ctx, session); err != nil {
			c.logger.Warn("Failed to persist session", "error", err)
		}
	}

	c.logger.Info("Logged in", "name", session.DisplayName)
	if err := c.announce(ctx, session.DisplayName); err != nil {
		return session, err
	}
	return session, nil
}

func (c *Client) announce(ctx context.Context, name string) error {
	frame, err := wire.Encode(&wire.Login{Name: name})
	if err != nil {
		return fmt.Errorf("encode login: %w", err)
	}
	return c.manager.Announce(ctx, frame)
}

// Logout drops the session. Later reconnects no longer announce it.
func (c *Client) Logout(ctx context.Context) error {
	c.mu.Lock()
	c.session = nil
	c.mu.Unlock()

	c.manager.Retract()
	if c.store != nil {
		if err := c.store.ClearSession(ctx); err != nil {
			return fmt.Errorf("clear session: %w", err)
		}
	}
	c.logger.Info("Logged out")
	return nil
}

// Session returns a copy of the current session, or nil when logged out.
func (c *Client) Session() *domain.Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.session == nil {
		return nil
	}
	s := *c.session
	return &s
}

func (c *Client) self() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.session == nil {
		return ""
	}
	return c.session.DisplayName
}

// OpenThread starts a conversation with peer.
func (c *Client) OpenThread(peer string) (domain.Thread, error) {
	peer = strings.TrimSpace(peer)
	if peer == "" {
		return domain.Thread{}, fmt.Errorf("%w: peer", ErrEmptyName)
	}
	t := c.router.Open(peer)
	c.bus.Publish(events.ThreadOpened{Thread: t})
	return t, nil
}

// CloseThread removes a thread and its messages.
func (c *Client) CloseThread(id string) error {
	if err := c.router.Close(id); err != nil {
		return err
	}
	c.bus.Publish(events.ThreadClosed{ThreadID: id})
	return nil
}

// Threads returns open threads in the order they were opened.
func (c *Client) Threads() []domain.Thread {
	return c.router.Threads()
}

// Messages returns the messages of a thread in arrival order.
func (c *Client) Messages(threadID string) ([]domain.Message, error) {
	return c.router.Messages(threadID)
}

// Contacts returns online contacts in first-seen order.
func (c *Client) Contacts() []domain.Contact {
	return c.roster.Contacts()
}

// SubscribeThread registers fn for inbound messages of one thread.
func (c *Client) SubscribeThread(threadID string, fn router.Listener) func() {
	return c.router.Subscribe(threadID, fn)
}

// Events subscribes to client events. buffer <= 0 uses the configured default.
func (c *Client) Events(buffer int) *events.Subscription[events.Event] {
	if buffer <= 0 {
		buffer = c.opts.EventBuffer
	}
	return c.bus.Subscribe(buffer)
}

// Send records a message in an open thread and transmits it. The message is
// kept locally even when the transport rejects it.
func (c *Client) Send(ctx context.Context, threadID, body string) (domain.Message, error) {
	self := c.self()
	if self == "" {
		return domain.Message{}, ErrNotLoggedIn
	}
	body = strings.TrimSpace(body)
	if body == "" {
		return domain.Message{}, ErrEmptyBody
	}
	t, ok := c.router.Get(threadID)
	if !ok {
		return domain.Message{}, router.ErrThreadNotFound
	}

	msg := domain.Message{
		ID:       uuid.NewString(),
		ThreadID: t.ID,
		From:     self,
		To:       t.Peer,
		Body:     body,
		Outbound: true,
		At:       c.now(),
	}
	if _, err := c.router.Record(msg); err != nil {
		return domain.Message{}, err
	}

	frame, err := wire.Encode(&wire.Chat{
		ID:     msg.ID,
		Thread: msg.ThreadID,
		From:   msg.From,
		To:     msg.To,
		Body:   msg.Body,
	})
	if err != nil {
		return msg, fmt.Errorf("encode chat: %w", err)
	}
	if err := c.manager.Send(ctx, frame); err != nil {
		return msg, err
	}
	return msg, nil
}
