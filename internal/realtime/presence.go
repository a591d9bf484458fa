package realtime

import "sync"

// Registry tracks which users currently hold open realtime connections. The
// hub drives it on connect and disconnect; other components read it to decide
// whether a user is reachable.
type Registry interface {
	Connect(userID string)
	Disconnect(userID string)
	IsOnline(userID string) bool
	Online() []string
}

// memoryRegistry is the process-local Registry. A user stays online while at
// least one of their connections is open.
type memoryRegistry struct {
	mu    sync.RWMutex
	conns map[string]int
}

// NewMemoryRegistry constructs an in-memory presence registry.
func NewMemoryRegistry() Registry {
	return &memoryRegistry{conns: make(map[string]int)}
}

func (r *memoryRegistry) Connect(userID string) {
	if userID == "" {
		return
	}
	r.mu.Lock()
	r.conns[userID]++
	r.mu.Unlock()
}

func (r *memoryRegistry) Disconnect(userID string) {
	if userID == "" {
		return
	}
	r.mu.Lock()
	if r.conns[userID] > 1 {
		r.conns[userID]--
	} else {
		delete(r.conns, userID)
	}
	r.mu.Unlock()
}

func (r *memoryRegistry) IsOnline(userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.conns[userID] > 0
}

func (r *memoryRegistry) Online() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	users := make([]string, 0, len(r.conns))
	for userID := range r.conns {
		users = append(users, userID)
	}
	return users
}
