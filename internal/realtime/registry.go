package realtime

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/rajeshyg/SGSGitaAlumni-sub019/internal/infrastructure/metrics"
)

// Registry tracks live connections and room membership. A room is keyed by
// conversation public id; a user may hold several connections (one per
// device) and each joins rooms independently.
type Registry struct {
	mu sync.RWMutex

	// rooms maps conversation id -> connection id -> client
	rooms map[string]map[string]*Client
	// conns maps connection id -> client
	conns map[string]*Client
	// userConns maps user id -> set of connection ids
	userConns map[string]map[string]struct{}
	// joined maps connection id -> set of room ids, for bounded cleanup
	joined map[string]map[string]struct{}

	log zerolog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(log zerolog.Logger) *Registry {
	return &Registry{
		rooms:     make(map[string]map[string]*Client),
		conns:     make(map[string]*Client),
		userConns: make(map[string]map[string]struct{}),
		joined:    make(map[string]map[string]struct{}),
		log:       log.With().Str("component", "room-registry").Logger(),
	}
}

// Register adds a freshly authenticated connection.
func (r *Registry) Register(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.conns[c.ID] = c
	if r.userConns[c.UserID] == nil {
		r.userConns[c.UserID] = make(map[string]struct{})
	}
	r.userConns[c.UserID][c.ID] = struct{}{}
	r.joined[c.ID] = make(map[string]struct{})

	metrics.ActiveConnections.Set(float64(len(r.conns)))
	r.log.Debug().Str("conn_id", c.ID).Str("user_id", c.UserID).Msg("connection registered")
}

// Join adds the connection to a room. Membership authorization happens in
// the gateway before this is called.
func (r *Registry) Join(roomID string, c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.rooms[roomID] == nil {
		r.rooms[roomID] = make(map[string]*Client)
	}
	r.rooms[roomID][c.ID] = c
	if r.joined[c.ID] != nil {
		r.joined[c.ID][roomID] = struct{}{}
	}
	metrics.ActiveRooms.Set(float64(len(r.rooms)))
}

// Leave removes the connection from a room, dropping the room when empty.
func (r *Registry) Leave(roomID string, connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.leaveLocked(roomID, connID)
}

func (r *Registry) leaveLocked(roomID, connID string) {
	if members, ok := r.rooms[roomID]; ok {
		delete(members, connID)
		if len(members) == 0 {
			delete(r.rooms, roomID)
		}
	}
	if joined, ok := r.joined[connID]; ok {
		delete(joined, roomID)
	}
	metrics.ActiveRooms.Set(float64(len(r.rooms)))
}

// DropConnection removes the connection everywhere. Cleanup cost is bounded
// by the rooms the connection actually joined, not the total room count.
func (r *Registry) DropConnection(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.conns[connID]
	if !ok {
		return
	}

	for roomID := range r.joined[connID] {
		r.leaveLocked(roomID, connID)
	}
	delete(r.joined, connID)
	delete(r.conns, connID)

	if set, ok := r.userConns[c.UserID]; ok {
		delete(set, connID)
		if len(set) == 0 {
			delete(r.userConns, c.UserID)
		}
	}

	metrics.ActiveConnections.Set(float64(len(r.conns)))
	r.log.Debug().Str("conn_id", connID).Str("user_id", c.UserID).Msg("connection dropped")
}

// EvictUserFromRoom removes every connection the user holds from the room
// and returns the evicted clients. Membership revocation calls this so a
// removed participant's live subscriptions do not outlast their departure.
func (r *Registry) EvictUserFromRoom(roomID, userID string) []*Client {
	r.mu.Lock()
	defer r.mu.Unlock()

	members := r.rooms[roomID]
	evicted := make([]*Client, 0, len(r.userConns[userID]))
	for connID := range r.userConns[userID] {
		c, ok := members[connID]
		if !ok {
			continue
		}
		r.leaveLocked(roomID, connID)
		evicted = append(evicted, c)
	}
	return evicted
}

// Broadcast fans an event out to every connection in the room except those
// in the exclusion set. One call covers every delivery pattern: full-room
// with an empty set, everyone-but-sender-connection, or everyone-but-all-
// connections-of-a-user. The member list is snapshotted under the read lock;
// sends happen outside it.
func (r *Registry) Broadcast(roomID string, event *Event, exclude map[string]struct{}) {
	data, err := event.Marshal()
	if err != nil {
		r.log.Error().Err(err).Str("event", event.Event).Msg("marshal broadcast event")
		return
	}

	r.mu.RLock()
	members := r.rooms[roomID]
	targets := make([]*Client, 0, len(members))
	for connID, c := range members {
		if _, skip := exclude[connID]; skip {
			continue
		}
		targets = append(targets, c)
	}
	r.mu.RUnlock()

	for _, c := range targets {
		c.Send(data)
	}
	metrics.RecordBroadcast(event.Event)
}

// ConnectionsOfUser returns the ids of every live connection the user holds.
// Used to exclude all of a sender's devices from their own typing fanout.
func (r *Registry) ConnectionsOfUser(userID string) map[string]struct{} {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set := make(map[string]struct{}, len(r.userConns[userID]))
	for connID := range r.userConns[userID] {
		set[connID] = struct{}{}
	}
	return set
}

// InRoom reports whether the connection has joined the room.
func (r *Registry) InRoom(roomID, connID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.rooms[roomID][connID]
	return ok
}

// RoomSize returns the number of connections in the room.
func (r *Registry) RoomSize(roomID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms[roomID])
}

// OnlineUsers returns the distinct user ids present in the room.
func (r *Registry) OnlineUsers(roomID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]struct{})
	users := make([]string, 0)
	for _, c := range r.rooms[roomID] {
		if _, dup := seen[c.UserID]; dup {
			continue
		}
		seen[c.UserID] = struct{}{}
		users = append(users, c.UserID)
	}
	return users
}
