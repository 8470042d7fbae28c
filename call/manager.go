package call

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
)

// Manager owns the set of live sessions. Sessions never share mutable
// state; the manager only tracks them for status and shutdown.
type Manager struct {
	opts Options

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewManager(opts Options) *Manager {
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		opts:     opts,
		ctx:      ctx,
		cancel:   cancel,
		sessions: make(map[string]*Session),
	}
}

// Serve runs a new session on conn and blocks until it terminates.
func (m *Manager) Serve(conn Conn) error {
	s, err := NewSession(conn, m.opts)
	if err != nil {
		_ = conn.Close()
		return err
	}

	m.mu.Lock()
	if err := m.ctx.Err(); err != nil {
		m.mu.Unlock()
		_ = conn.Close()
		return err
	}
	m.wg.Add(1)
	m.sessions[s.ID] = s
	m.mu.Unlock()
	defer m.wg.Done()
	defer func() {
		m.mu.Lock()
		delete(m.sessions, s.ID)
		m.mu.Unlock()
	}()

	return s.Run(m.ctx)
}

// ActiveCount returns the number of sessions not yet terminated.
func (m *Manager) ActiveCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Session looks up a live session by id.
func (m *Manager) Session(id string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	return s, ok
}

// Shutdown stops accepting sessions, closes every live connection and waits
// for the sessions to terminate or ctx to expire.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	m.cancel()
	m.mu.Unlock()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		m.opts.Logger.Info("all media sessions terminated")
		return nil
	case <-ctx.Done():
		m.opts.Logger.WithField("active_sessions", m.ActiveCount()).Warn("shutdown deadline reached")
		return ctx.Err()
	}
}
