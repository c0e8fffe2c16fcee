package postgres

import (
	"context"
	"fmt"
	"sync"
)

type State int

const (
	StateUnbound State = iota
	StateClosed
	StateOpen
)

func (s State) String() string {
	switch s {
	case StateUnbound:
		return "unbound"
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Session holds at most one pooled connection for a single request scope.
type Session struct {
	handle *Handle

	mu   sync.Mutex
	conn Conn
}

// Connect acquires a connection unless the session already holds one.
func (s *Session) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn != nil {
		return nil
	}

	b := s.handle.bound.Load()
	if b == nil {
		return ErrUnbound
	}

	conn, err := b.pool.Acquire(ctx)
	if err != nil {
		if b.metrics != nil {
			b.metrics.AcquireErrors.Inc()
		}
		return fmt.Errorf("failed to acquire database connection: %w", err)
	}

	s.conn = conn
	if b.metrics != nil {
		b.metrics.Acquires.Inc()
		b.metrics.OpenSessions.Inc()
	}
	return nil
}

// Close releases the held connection back to the pool. Closing a closed
// session does nothing.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil {
		return
	}

	s.conn.Release()
	s.conn = nil

	if b := s.handle.bound.Load(); b != nil && b.metrics != nil {
		b.metrics.OpenSessions.Dec()
		b.metrics.SessionsClosed.Inc()
	}
}

func (s *Session) IsClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn == nil
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case s.conn != nil:
		return StateOpen
	case s.handle.Bound():
		return StateClosed
	default:
		return StateUnbound
	}
}

// Conn returns the open connection or ErrSessionClosed.
func (s *Session) Conn() (Conn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil {
		return nil, ErrSessionClosed
	}
	return s.conn, nil
}

type sessionKey struct{}

func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

func SessionFromContext(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(sessionKey{}).(*Session)
	return s, ok && s != nil
}

// ConnFromContext returns the connection opened for the current request.
func ConnFromContext(ctx context.Context) (Conn, error) {
	s, ok := SessionFromContext(ctx)
	if !ok {
		return nil, ErrSessionClosed
	}
	return s.Conn()
}
