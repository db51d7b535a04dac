package ws

import "sync"

// Registry maps each authenticated user to their single live signaling
// connection. Process-local only; a restart starts empty and every user
// is implicitly offline.
type Registry struct {
	mu      sync.RWMutex
	clients map[int64]*Client
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{clients: make(map[int64]*Client)}
}

// Register stores the client, replacing any previous connection for the
// same user. Returns the superseded client, if any; closing it is the
// caller's job.
func (r *Registry) Register(client *Client) *Client {
	r.mu.Lock()
	defer r.mu.Unlock()
	prev := r.clients[client.UserID]
	r.clients[client.UserID] = client
	return prev
}

// Lookup returns the user's live connection, if any.
func (r *Registry) Lookup(userID int64) (*Client, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	client, ok := r.clients[userID]
	return client, ok
}

// Unregister removes the user's entry only if it still holds this exact
// client, and reports whether it did. A stale disconnect callback must
// not evict the entry of a connection that reconnected in the meantime.
func (r *Registry) Unregister(client *Client) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.clients[client.UserID]
	if !ok || current != client {
		return false
	}
	delete(r.clients, client.UserID)
	return true
}

// Len reports the number of live connections.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}
