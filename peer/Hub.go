package peer

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// ErrLeft is returned when a Member that left its room sends a message
var ErrLeft = errors.New("member left the room")

// DefaultBuffer is the default number of undelivered messages a Member
// holds before further messages to it are dropped
const DefaultBuffer int = 64

// Hub is an in-process registry of rooms. Messages sent by a Member are
// delivered to every other Member of the same room.
type Hub struct {
	mu     sync.RWMutex
	rooms  map[string]map[string]*Member
	buffer int
}

// NewHub returns a new Hub whose Members buffer at most buffer
// undelivered messages
func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Hub{rooms: make(map[string]map[string]*Member), buffer: buffer}
}

// Join adds a new Member to a room. Empty room and user names are
// replaced by DefaultRoom and DefaultUser, and long names are
// truncated.
func (h *Hub) Join(room, user string) *Member {
	m := &Member{
		id:    uuid.NewString(),
		room:  Truncate(room, DefaultRoom),
		user:  Truncate(user, DefaultUser),
		hub:   h,
		inbox: make(chan Message, h.buffer),
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	members, ok := h.rooms[m.room]
	if !ok {
		members = make(map[string]*Member)
		h.rooms[m.room] = members
	}
	members[m.id] = m
	return m
}

// Rooms returns the sorted names of rooms with at least one Member
func (h *Hub) Rooms() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	rooms := make([]string, 0, len(h.rooms))
	for room := range h.rooms {
		rooms = append(rooms, room)
	}
	sort.Strings(rooms)
	return rooms
}

// Members returns the number of Members in a room
func (h *Hub) Members(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.rooms[room])
}

// broadcast delivers data to every Member of from's room except from.
// Members with full inboxes miss the message.
func (h *Hub) broadcast(from *Member, data []byte) (int, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	members, ok := h.rooms[from.room]
	if !ok || members[from.id] == nil {
		return 0, ErrLeft
	}

	delivered := 0
	for id, m := range members {
		if id == from.id {
			continue
		}

		// Each Member receives its own copy
		msg, err := Decode(data)
		if err != nil {
			return delivered, err
		}

		select {
		case m.inbox <- msg:
			delivered++
		default:
		}
	}
	return delivered, nil
}

// leave removes m from its room and closes its inbox
func (h *Hub) leave(m *Member) {
	h.mu.Lock()
	defer h.mu.Unlock()

	members := h.rooms[m.room]
	if members[m.id] == nil {
		return
	}
	delete(members, m.id)
	if len(members) == 0 {
		delete(h.rooms, m.room)
	}
	close(m.inbox)
}

// Member is a participant of a room
type Member struct {
	id    string
	room  string
	user  string
	hub   *Hub
	inbox chan Message
}

// ID returns the unique ID of the Member
func (m *Member) ID() string { return m.id }

// Room returns the name of the Member's room
func (m *Member) Room() string { return m.room }

// User returns the user name of the Member
func (m *Member) User() string { return m.user }

// Send validates msg and broadcasts it to the other Members of the
// room. It returns the number of Members the message was delivered to.
func (m *Member) Send(msg Message) (int, error) {
	msg.Sender = m.id
	if msg.User == "" {
		msg.User = m.user
	}
	if err := msg.Validate(); err != nil {
		return 0, fmt.Errorf("send: %w", err)
	}

	data, err := Encode(msg)
	if err != nil {
		return 0, fmt.Errorf("send: %w", err)
	}
	n, err := m.hub.broadcast(m, data)
	if err != nil {
		return n, fmt.Errorf("send: %w", err)
	}
	return n, nil
}

// Receive returns the channel of messages delivered to the Member. The
// channel is closed when the Member leaves the room.
func (m *Member) Receive() <-chan Message {
	return m.inbox
}

// Leave removes the Member from its room. Leave may be called more
// than once.
func (m *Member) Leave() {
	m.hub.leave(m)
}
