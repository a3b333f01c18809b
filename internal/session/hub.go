package session

import (
	"sync"

	"github.com/google/uuid"

	"github.com/stagelab/cuems-core/internal/metrics"
	"github.com/stagelab/cuems-core/internal/wsproto"
)

// Hub tracks every live session and, for each, the project uuid (if any)
// it currently has loaded. It is the process-local, transient registry
// section 4.8 describes: its role is letting a reconnecting client
// re-bind to a "currently loaded project" marker, nothing more — it is
// never written to the metadata store.
//
// CuemsWsServer mutates this same state from a single asyncio event loop
// thread and lets handler coroutines read it without locking; Go's
// dispatcher workers are real concurrent goroutines, so here the shared
// maps are guarded by a mutex instead of confined to one thread.
type Hub struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	loaded   map[string]string // session id -> loaded project uuid
}

// NewHub builds an empty session registry.
func NewHub() *Hub {
	return &Hub{
		sessions: make(map[string]*Session),
		loaded:   make(map[string]string),
	}
}

// Resume returns requestedID if it names a still-registered session,
// matching CuemsWsServer.check_session's uuid-reuse behavior; otherwise
// it mints a fresh time-ordered uuid.
func (h *Hub) Resume(requestedID string) (string, error) {
	if requestedID != "" {
		h.mu.RLock()
		_, ok := h.sessions[requestedID]
		h.mu.RUnlock()
		if ok {
			return requestedID, nil
		}
	}
	id, err := uuid.NewUUID()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// Register adds s to the registry and broadcasts the new user count.
func (h *Hub) Register(s *Session) {
	h.mu.Lock()
	h.sessions[s.ID] = s
	n := len(h.sessions)
	h.mu.Unlock()
	metrics.SetSessionsActive(n)
	h.BroadcastUsers()
}

// Unregister removes s and broadcasts the new user count.
func (h *Hub) Unregister(s *Session) {
	h.mu.Lock()
	delete(h.sessions, s.ID)
	delete(h.loaded, s.ID)
	n := len(h.sessions)
	h.mu.Unlock()
	metrics.SetSessionsActive(n)
	h.BroadcastUsers()
}

// LoadedProject returns the project uuid session id last loaded, if any —
// used on resume to immediately re-send the project it had open.
func (h *Hub) LoadedProject(id string) (string, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	p, ok := h.loaded[id]
	return p, ok
}

// SetLoadedProject records that session id now has projectUUID loaded.
func (h *Hub) SetLoadedProject(id, projectUUID string) {
	h.mu.Lock()
	h.loaded[id] = projectUUID
	h.mu.Unlock()
}

// Count returns the number of registered sessions.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// BroadcastListUpdate notifies every session but caller that listName
// (one of project_list, project_trash_list, file_list, file_trash_list)
// changed.
func (h *Hub) BroadcastListUpdate(caller *Session, listName string) {
	h.broadcastExcept(caller, wsproto.ListUpdate(listName))
}

// BroadcastProjectUpdate notifies every session but caller that is
// currently bound to projectUUID.
func (h *Hub) BroadcastProjectUpdate(caller *Session, projectUUID string) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	msg := wsproto.ProjectUpdate(projectUUID)
	for id, s := range h.sessions {
		if s == caller {
			continue
		}
		if h.loaded[id] != projectUUID {
			continue
		}
		s.Send(msg)
	}
}

// BroadcastUsers notifies every session of the current connection count.
func (h *Hub) BroadcastUsers() {
	h.mu.RLock()
	defer h.mu.RUnlock()
	msg := wsproto.Users(len(h.sessions))
	for _, s := range h.sessions {
		s.Send(msg)
	}
}

func (h *Hub) broadcastExcept(caller *Session, msg wsproto.Outbound) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, s := range h.sessions {
		if s == caller {
			continue
		}
		s.Send(msg)
	}
}
