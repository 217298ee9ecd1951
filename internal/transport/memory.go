package transport

import (
	"context"
	"sync"
	"time"
)

const memoryQueueSize = 64

// MemoryDialer is an in-process Dialer. Every successful Dial yields a
// MemoryPeer on Peers() that plays the server side of the connection.
type MemoryDialer struct {
	mu       sync.Mutex
	failures []error
	dials    []time.Time
	peers    chan *MemoryPeer
}

// NewMemoryDialer creates an in-memory dialer.
func NewMemoryDialer() *MemoryDialer {
	return &MemoryDialer{peers: make(chan *MemoryPeer, 16)}
}

// FailNext makes the next len(errs) dials fail with the given errors, in order.
func (d *MemoryDialer) FailNext(errs ...error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failures = append(d.failures, errs...)
}

// Dials returns the time of every dial attempt so far.
func (d *MemoryDialer) Dials() []time.Time {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]time.Time, len(d.dials))
	copy(out, d.dials)
	return out
}

// Peers yields the server side of each accepted connection.
func (d *MemoryDialer) Peers() <-chan *MemoryPeer {
	return d.peers
}

// Dial implements Dialer.
func (d *MemoryDialer) Dial(ctx context.Context) (Conn, error) {
	d.mu.Lock()
	d.dials = append(d.dials, time.Now())
	if len(d.failures) > 0 {
		err := d.failures[0]
		d.failures = d.failures[1:]
		d.mu.Unlock()
		return nil, err
	}
	d.mu.Unlock()

	p := &pipe{
		toClient: make(chan []byte, memoryQueueSize),
		toServer: make(chan []byte, memoryQueueSize),
		done:     make(chan struct{}),
	}
	select {
	case d.peers <- &MemoryPeer{p: p}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return &memoryConn{p: p}, nil
}

type pipe struct {
	toClient chan []byte
	toServer chan []byte
	done     chan struct{}
	once     sync.Once
}

func (p *pipe) close() {
	p.once.Do(func() { close(p.done) })
}

func recv(ctx context.Context, ch chan []byte, done chan struct{}) ([]byte, error) {
	// Frames already queued win over a concurrent close.
	select {
	case f := <-ch:
		return f, nil
	default:
	}
	select {
	case f := <-ch:
		return f, nil
	case <-done:
		return nil, ErrConnClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func send(ctx context.Context, ch chan []byte, done chan struct{}, frame []byte) error {
	select {
	case <-done:
		return ErrConnClosed
	default:
	}
	select {
	case ch <- append([]byte(nil), frame...):
		return nil
	case <-done:
		return ErrConnClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

type memoryConn struct {
	p *pipe
}

func (c *memoryConn) Read(ctx context.Context) ([]byte, error) {
	return recv(ctx, c.p.toClient, c.p.done)
}

func (c *memoryConn) Write(ctx context.Context, frame []byte) error {
	return send(ctx, c.p.toServer, c.p.done, frame)
}

func (c *memoryConn) Close() error {
	c.p.close()
	return nil
}

// MemoryPeer is the server end of a memory connection.
type MemoryPeer struct {
	p *pipe
}

// Send delivers a frame to the client.
func (s *MemoryPeer) Send(ctx context.Context, frame []byte) error {
	return send(ctx, s.p.toClient, s.p.done, frame)
}

// Recv returns the next frame written by the client.
func (s *MemoryPeer) Recv(ctx context.Context) ([]byte, error) {
	return recv(ctx, s.p.toServer, s.p.done)
}

// Close drops the connection; the client sees ErrConnClosed on its next read.
func (s *MemoryPeer) Close() {
	s.p.close()
}

// Done is closed once either side closed the connection.
func (s *MemoryPeer) Done() <-chan struct{} {
	return s.p.done
}
