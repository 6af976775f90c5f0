package notify

import (
	"errors"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/example/ride-hailing/internal/models"
)

// ErrNoSession is returned when the rider has no connected session.
var ErrNoSession = errors.New("no ws session")

// WSSession is a connected rider session. Writes are serialized per
// connection; gorilla/websocket allows only one concurrent writer.
type WSSession struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (s *WSSession) send(v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteJSON(v)
}

// Registry tracks rider sessions so the core can push accept notices the
// moment a driver wins the ride.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*WSSession
}

func NewRegistry() *Registry { return &Registry{sessions: make(map[string]*WSSession)} }

func (r *Registry) Add(riderID string, conn *websocket.Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[riderID] = &WSSession{conn: conn}
}

func (r *Registry) Remove(riderID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, riderID)
}

// NotifyRideAccepted implements matching.Notifier.
func (r *Registry) NotifyRideAccepted(riderID string, result models.AcceptResult) error {
	r.mu.RLock()
	s, ok := r.sessions[riderID]
	r.mu.RUnlock()
	if !ok {
		return ErrNoSession
	}
	return s.send(result)
}
