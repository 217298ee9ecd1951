package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ashureev/chatline/internal/events"
	"github.com/cenkalti/backoff/v4"
)

// Options configures a Manager.
type Options struct {
	Policy      Policy
	DialTimeout time.Duration
	Handler     Handler
	Events      *events.Bus[events.Event]
	Logger      *slog.Logger
}

// Manager keeps at most one open connection and reconnects it according to
// its Policy. The login announcement is replayed on every new connection
// before any inbound frame is handled.
type Manager struct {
	dialer  Dialer
	opts    Options
	logger  *slog.Logger
	running atomic.Bool

	// writeMu serializes writes so the announcement replay always precedes
	// sends on a fresh connection. Lock order: writeMu, then mu.
	writeMu      sync.Mutex
	mu           sync.Mutex
	conn         Conn
	announcement []byte
}

// NewManager creates a transport manager. It does not dial until Run.
func NewManager(dialer Dialer, opts Options) *Manager {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Policy.Kind == "" {
		opts.Policy = DefaultPolicy()
	}
	return &Manager{
		dialer: dialer,
		opts:   opts,
		logger: logger,
	}
}

// Connected reports whether a connection is currently open.
func (m *Manager) Connected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.conn != nil
}

// Run dials and serves connections until ctx is cancelled, reconnecting after
// each closure. It returns nil on cancellation and ErrRetriesExhausted once
// Policy.MaxAttempts consecutive dials failed.
func (m *Manager) Run(ctx context.Context) error {
	if !m.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer m.running.Store(false)

	policy := m.opts.Policy.NewBackOff()
	attempt := 0

	for {
		attempt++
		m.publish(events.Connecting{Attempt: attempt})

		conn, err := m.dial(ctx)
		if err == nil {
			policy.Reset()
			err = m.serve(ctx, conn, attempt)
			attempt = 0
		} else if ctx.Err() == nil {
			m.logger.Warn("Transport dial failed", "attempt", attempt, "error", err)
		}

		if ctx.Err() != nil {
			m.logger.Info("Transport stopped", "reason", ctx.Err())
			return nil
		}

		failed := attempt > 0 && m.opts.Policy.Exhausted(attempt)
		delay := policy.NextBackOff()
		if failed || delay == backoff.Stop {
			m.logger.Error("Transport giving up", "attempts", attempt, "error", err)
			m.publish(events.GaveUp{Attempts: attempt, Err: err})
			return fmt.Errorf("%w after %d attempts: %w", ErrRetriesExhausted, attempt, err)
		}

		m.logger.Info("Transport reconnect scheduled", "attempt", attempt+1, "delay", delay)
		m.publish(events.ReconnectScheduled{Attempt: attempt + 1, Delay: delay, Err: err})

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			m.logger.Info("Transport stopped", "reason", ctx.Err())
			return nil
		case <-timer.C:
		}
	}
}

// Send writes one frame on the open connection. While disconnected it
// returns ErrNotConnected and publishes an events.Error.
func (m *Manager) Send(ctx context.Context, frame []byte) error {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	conn := m.current()
	if conn == nil {
		m.logger.Warn("Send while disconnected", "bytes", len(frame))
		m.publish(events.Error{Op: "send", Err: ErrNotConnected})
		return ErrNotConnected
	}
	if err := conn.Write(ctx, frame); err != nil {
		m.publish(events.Error{Op: "send", Err: err})
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}

// Announce stores the identity announcement replayed on every reconnect and
// sends it right away if connected. While disconnected it returns nil: the
// frame goes out as soon as a connection opens.
func (m *Manager) Announce(ctx context.Context, frame []byte) error {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	m.mu.Lock()
	m.announcement = append([]byte(nil), frame...)
	conn := m.conn
	m.mu.Unlock()

	if conn == nil {
		m.logger.Debug("Announcement stored for replay on connect")
		return nil
	}
	if err := conn.Write(ctx, frame); err != nil {
		m.publish(events.Error{Op: "announce", Err: err})
		return fmt.Errorf("write announcement: %w", err)
	}
	return nil
}

// Retract forgets the announcement so later reconnects stay anonymous.
func (m *Manager) Retract() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.announcement = nil
}

func (m *Manager) dial(ctx context.Context) (Conn, error) {
	dialCtx := ctx
	if m.opts.DialTimeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, m.opts.DialTimeout)
		defer cancel()
	}
	return m.dialer.Dial(dialCtx)
}

// serve attaches conn, replays the announcement and pumps inbound frames to
// the handler until the connection fails.
func (m *Manager) serve(ctx context.Context, conn Conn, attempt int) error {
	announced, err := m.attach(ctx, conn)
	if err != nil {
		m.detach(conn)
		m.closeConn(conn)
		m.logger.Warn("Announcement replay failed", "error", err)
		m.publish(events.Disconnected{Err: err})
		return err
	}

	m.logger.Info("Transport connected", "attempt", attempt, "announced", announced)
	m.publish(events.Connected{Attempt: attempt, Announced: announced})

	for {
		frame, err := conn.Read(ctx)
		if err != nil {
			m.detach(conn)
			m.closeConn(conn)
			if ctx.Err() == nil {
				m.logger.Warn("Transport connection closed", "error", err)
			}
			m.publish(events.Disconnected{Err: err})
			return err
		}
		if m.opts.Handler != nil {
			m.opts.Handler(ctx, frame)
		}
	}
}

func (m *Manager) attach(ctx context.Context, conn Conn) (bool, error) {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	m.mu.Lock()
	m.conn = conn
	announcement := m.announcement
	m.mu.Unlock()

	if announcement == nil {
		return false, nil
	}
	if err := conn.Write(ctx, announcement); err != nil {
		return false, fmt.Errorf("replay announcement: %w", err)
	}
	return true, nil
}

func (m *Manager) detach(conn Conn) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.conn == conn {
		m.conn = nil
	}
}

func (m *Manager) current() Conn {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.conn
}

func (m *Manager) closeConn(conn Conn) {
	if err := conn.Close(); err != nil && !errors.Is(err, ErrConnClosed) {
		m.logger.Debug("Failed to close connection", "error", err)
	}
}

func (m *Manager) publish(evt events.Event) {
	if m.opts.Events != nil {
		m.opts.Events.Publish(evt)
	}
}
