package live

import (
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/example/locksmith-search/internal/models"
	"github.com/example/locksmith-search/internal/observability"
)

// Hub fans live provider positions out to watching search sessions so the
// map can move markers without polling. Providers publish over their own
// socket; watchers only receive.
type Hub struct {
	mu        sync.RWMutex
	providers map[string]*session
	watchers  map[*session]struct{}
	logger    *slog.Logger
}

type session struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (s *session) send(v interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteJSON(v)
}

func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		providers: make(map[string]*session),
		watchers:  make(map[*session]struct{}),
		logger:    logger,
	}
}

// RunProvider reads position reports from a sharing provider's socket and
// hands each one to publish. It returns when the socket closes.
func (h *Hub) RunProvider(providerID string, conn *websocket.Conn, publish func(models.LocationUpdate) error) {
	s := &session{conn: conn}
	h.mu.Lock()
	h.providers[providerID] = s
	h.mu.Unlock()
	observability.ProvidersLive.Inc()

	defer func() {
		h.mu.Lock()
		if h.providers[providerID] == s {
			delete(h.providers, providerID)
		}
		h.mu.Unlock()
		observability.ProvidersLive.Dec()
		_ = conn.Close()
	}()

	for {
		var u models.LocationUpdate
		if err := conn.ReadJSON(&u); err != nil {
			return
		}
		u.ProviderID = providerID
		if !u.Loc.Valid() {
			h.logger.Warn("dropping out-of-range live position", "provider_id", providerID)
			continue
		}
		if err := publish(u); err != nil {
			h.logger.Warn("live position publish failed", "provider_id", providerID, "error", err)
			continue
		}
		h.Broadcast(u)
	}
}

// AddWatcher registers a search session socket for marker updates and
// returns a removal func.
func (h *Hub) AddWatcher(conn *websocket.Conn) func() {
	s := &session{conn: conn}
	h.mu.Lock()
	h.watchers[s] = struct{}{}
	h.mu.Unlock()
	return func() {
		h.mu.Lock()
		delete(h.watchers, s)
		h.mu.Unlock()
		_ = conn.Close()
	}
}

// Broadcast pushes one position update to every watcher. Dead sockets are
// dropped on write failure.
func (h *Hub) Broadcast(u models.LocationUpdate) {
	h.mu.RLock()
	sessions := make([]*session, 0, len(h.watchers))
	for s := range h.watchers {
		sessions = append(sessions, s)
	}
	h.mu.RUnlock()

	for _, s := range sessions {
		if err := s.send(u); err != nil {
			h.mu.Lock()
			delete(h.watchers, s)
			h.mu.Unlock()
		}
	}
}

// ProvidersSharing reports how many provider sockets are currently open.
func (h *Hub) ProvidersSharing() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.providers)
}
