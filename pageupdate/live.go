package pageupdate

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/surgify/islandkit/errors"
)

// UpdateEvent is the notification mirrored to attached WebSocket sessions
// after an update is applied. Browser peers use it to refresh the named
// region or follow the navigation.
type UpdateEvent struct {
	Kind     string `json:"kind"` // "partial-update" or "navigate"
	Target   string `json:"target,omitempty"`
	Endpoint string `json:"endpoint,omitempty"`
	Path     string `json:"path,omitempty"`
}

// session tracks one attached WebSocket connection. writeMu protects
// concurrent writes to the same connection.
type session struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

// LiveUpdater decorates an Updater: every successfully applied update is
// mirrored to attached WebSocket sessions. Failed sessions are pruned on
// the next broadcast, never retried.
type LiveUpdater struct {
	next     Updater
	upgrader websocket.Upgrader
	sessions map[*session]struct{}
	mu       sync.Mutex
	logger   *slog.Logger
}

// NewLiveUpdater wraps an updater with WebSocket mirroring.
func NewLiveUpdater(next Updater, logger *slog.Logger) *LiveUpdater {
	if logger == nil {
		logger = slog.Default()
	}
	return &LiveUpdater{
		next: next,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
		sessions: make(map[*session]struct{}),
		logger:   logger.With("component", "live-updater"),
	}
}

// ApplyPartialUpdate delegates and, on success, mirrors the update.
func (l *LiveUpdater) ApplyPartialUpdate(ctx context.Context, target, endpoint string, payload any) error {
	if err := l.next.ApplyPartialUpdate(ctx, target, endpoint, payload); err != nil {
		return err
	}

	l.broadcast(UpdateEvent{Kind: "partial-update", Target: target, Endpoint: endpoint})
	return nil
}

// Navigate delegates and, on success, mirrors the navigation.
func (l *LiveUpdater) Navigate(ctx context.Context, path string) error {
	if err := l.next.Navigate(ctx, path); err != nil {
		return err
	}

	l.broadcast(UpdateEvent{Kind: "navigate", Path: path})
	return nil
}

// ServeHTTP upgrades the request to a WebSocket session and tracks it until
// the peer disconnects.
func (l *LiveUpdater) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := l.upgrader.Upgrade(w, r, nil)
	if err != nil {
		l.logger.Warn("WebSocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	s := &session{conn: conn}

	l.mu.Lock()
	l.sessions[s] = struct{}{}
	count := len(l.sessions)
	l.mu.Unlock()

	l.logger.Debug("Live session attached", "remote", r.RemoteAddr, "sessions", count)

	// Drain reads until the peer closes; inbound frames carry no meaning.
	go func() {
		defer l.detach(s)
		for {
			if _, _, rerr := conn.ReadMessage(); rerr != nil {
				return
			}
		}
	}()
}

// SessionCount returns the number of attached sessions.
func (l *LiveUpdater) SessionCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.sessions)
}

// Close detaches every session.
func (l *LiveUpdater) Close() error {
	l.mu.Lock()
	sessions := make([]*session, 0, len(l.sessions))
	for s := range l.sessions {
		sessions = append(sessions, s)
	}
	l.sessions = make(map[*session]struct{})
	l.mu.Unlock()

	for _, s := range sessions {
		if err := s.conn.Close(); err != nil {
			return errors.WrapTransient(err, "LiveUpdater", "Close", "session close")
		}
	}
	return nil
}

// broadcast mirrors an event to all sessions, pruning the ones that fail.
func (l *LiveUpdater) broadcast(event UpdateEvent) {
	l.mu.Lock()
	sessions := make([]*session, 0, len(l.sessions))
	for s := range l.sessions {
		sessions = append(sessions, s)
	}
	l.mu.Unlock()

	for _, s := range sessions {
		s.writeMu.Lock()
		_ = s.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		err := s.conn.WriteJSON(event)
		s.writeMu.Unlock()

		if err != nil {
			l.logger.Debug("Pruning dead live session", "error", err)
			l.detach(s)
		}
	}
}

// detach removes and closes a session. Idempotent.
func (l *LiveUpdater) detach(s *session) {
	l.mu.Lock()
	_, exists := l.sessions[s]
	delete(l.sessions, s)
	l.mu.Unlock()

	if exists {
		_ = s.conn.Close()
	}
}
