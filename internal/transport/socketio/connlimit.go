package socketio

import "sync"

// RemoteLimiter caps concurrent non-localhost controller connections.
// Localhost connections are always allowed and never counted. When a new
// remote connection exceeds the cap, the oldest remote is evicted.
type RemoteLimiter struct {
	mu         sync.Mutex
	maxRemotes int
	remotes    []string          // remote client IDs, oldest first
	byClient   map[string]string // clientID -> remote IP
}

// NewRemoteLimiter creates a limiter allowing up to maxRemotes concurrent
// non-localhost controllers.
func NewRemoteLimiter(maxRemotes int) *RemoteLimiter {
	return &RemoteLimiter{
		maxRemotes: maxRemotes,
		byClient:   make(map[string]string),
	}
}

// Add registers a connection and returns the ID of an evicted client, or
// empty when nothing was evicted.
func (l *RemoteLimiter) Add(clientID, remoteIP string) (evictedID string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, exists := l.byClient[clientID]; exists {
		return ""
	}
	l.byClient[clientID] = remoteIP

	if isLocalIP(remoteIP) {
		return ""
	}

	l.remotes = append(l.remotes, clientID)
	if len(l.remotes) > l.maxRemotes {
		evictedID = l.remotes[0]
		l.remotes = l.remotes[1:]
		delete(l.byClient, evictedID)
	}
	return evictedID
}

// Remove unregisters a connection on disconnect.
func (l *RemoteLimiter) Remove(clientID string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	ip, exists := l.byClient[clientID]
	if !exists {
		return
	}
	delete(l.byClient, clientID)

	if isLocalIP(ip) {
		return
	}
	for i, id := range l.remotes {
		if id == clientID {
			l.remotes = append(l.remotes[:i], l.remotes[i+1:]...)
			return
		}
	}
}

func isLocalIP(ip string) bool {
	return ip == "127.0.0.1" || ip == "::1"
}
