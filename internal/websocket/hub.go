package chatws

import "sync"

// Hub is the room membership registry: order id -> set of live clients.
// Rooms exist only while they have members. All three operations take the
// same lock, so join/leave/broadcast never observe a half-updated map.
type Hub struct {
	mu         sync.Mutex
	rooms      map[string]map[*Client]struct{}
	membership map[*Client]string
}

func NewHub() *Hub {
	return &Hub{
		rooms:      make(map[string]map[*Client]struct{}),
		membership: make(map[*Client]string),
	}
}

// Join adds the client to a room. A client already in another room is
// moved; at most one membership per client at a time. An evicted client
// can never re-enter a room: its send channel is dead.
func (h *Hub) Join(client *Client, roomID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if client.evicted() {
		return
	}

	h.removeLocked(client)

	set, ok := h.rooms[roomID]
	if !ok {
		set = make(map[*Client]struct{})
		h.rooms[roomID] = set
	}
	set[client] = struct{}{}
	h.membership[client] = roomID
}

// Leave drops the client from whichever room it belongs to. Safe to call
// for clients that never joined.
func (h *Hub) Leave(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.removeLocked(client)
}

// Broadcast delivers payload to every current member of the room. Delivery
// is best-effort per member: a client whose send buffer is full is evicted
// without blocking delivery to the rest.
func (h *Hub) Broadcast(roomID string, payload []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.rooms[roomID]
	if !ok {
		return
	}

	for client := range set {
		if !client.trySend(payload) {
			h.removeLocked(client)
			client.shutdown()
		}
	}
}

// RoomSize reports the current member count of a room.
func (h *Hub) RoomSize(roomID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	return len(h.rooms[roomID])
}

func (h *Hub) removeLocked(client *Client) {
	roomID, ok := h.membership[client]
	if !ok {
		return
	}

	delete(h.membership, client)
	set, ok := h.rooms[roomID]
	if !ok {
		return
	}
	delete(set, client)
	if len(set) == 0 {
		delete(h.rooms, roomID)
	}
}
