package relay

import (
	"sort"
	"sync"

	"go.uber.org/zap"
)

// Registry owns every room in the process. One instance is constructed in
// main and handed to each connection's session; all room lookups and
// mutations pass through it. Rooms are created lazily on first Join and
// never destroyed, so history survives periods with zero members.
type Registry struct {
	rooms sync.Map // roomID -> *room
}

// RoomInfo is the read-model row for one room, served by the REST surface.
type RoomInfo struct {
	ID       string `json:"id"`
	Members  int    `json:"members"`
	Messages int    `json:"messages"`
}

type room struct {
	mu      sync.Mutex
	members map[Channel]struct{}
	history []Message
}

func newRoom() *room { return &room{members: map[Channel]struct{}{}} }

func NewRegistry() *Registry { return &Registry{} }

// Join registers ch under roomID, creating the room if absent, and returns
// a snapshot of the history for the caller to replay. Registration and
// snapshot happen under the room lock, so every message appended after this
// call is delivered to ch and everything before it is in the snapshot:
// no gap, no duplicate.
func (reg *Registry) Join(roomID string, ch Channel) []Message {
	v, _ := reg.rooms.LoadOrStore(roomID, newRoom())
	r := v.(*room)

	r.mu.Lock()
	defer r.mu.Unlock()

	snapshot := make([]Message, len(r.history))
	copy(snapshot, r.history)
	r.members[ch] = struct{}{}
	return snapshot
}

// Leave removes ch from the room's membership. Idempotent: a member already
// gone, or a room never created, is a no-op. History is retained even when
// the last member leaves.
func (reg *Registry) Leave(roomID string, ch Channel) {
	v, ok := reg.rooms.Load(roomID)
	if !ok {
		return
	}
	r := v.(*room)

	r.mu.Lock()
	delete(r.members, ch)
	r.mu.Unlock()
}

// Broadcast appends msg to the room's history and delivers it to every
// current member, returning the number of members delivery was attempted
// to. A failed send prunes that member and closes its channel without
// aborting delivery to the rest. Append and fan-out hold the room lock
// together so each member observes broadcasts in history order.
func (reg *Registry) Broadcast(roomID string, msg Message) int {
	v, ok := reg.rooms.Load(roomID)
	if !ok {
		return 0
	}
	r := v.(*room)

	r.mu.Lock()
	defer r.mu.Unlock()

	r.history = append(r.history, msg)
	payload := msg.Encode()

	attempted := len(r.members)
	var failed []Channel
	for ch := range r.members {
		if err := ch.Send(payload); err != nil {
			failed = append(failed, ch)
		}
	}
	for _, ch := range failed {
		delete(r.members, ch)
		_ = ch.Close()
		zap.L().Debug("relay.member_pruned", zap.String("room", roomID))
	}
	return attempted
}

// Rooms lists every room created in this process, sorted by ID.
func (reg *Registry) Rooms() []RoomInfo {
	out := []RoomInfo{}
	reg.rooms.Range(func(k, v any) bool {
		out = append(out, v.(*room).info(k.(string)))
		return true
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Room reports a single room; ok is false if it was never created.
func (reg *Registry) Room(roomID string) (RoomInfo, bool) {
	v, ok := reg.rooms.Load(roomID)
	if !ok {
		return RoomInfo{}, false
	}
	return v.(*room).info(roomID), true
}

// History returns a copy of the room's message history in broadcast order;
// nil if the room was never created.
func (reg *Registry) History(roomID string) []Message {
	v, ok := reg.rooms.Load(roomID)
	if !ok {
		return nil
	}
	r := v.(*room)

	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Message, len(r.history))
	copy(out, r.history)
	return out
}

func (r *room) info(id string) RoomInfo {
	r.mu.Lock()
	defer r.mu.Unlock()
	return RoomInfo{ID: id, Members: len(r.members), Messages: len(r.history)}
}
