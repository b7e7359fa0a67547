package app

import (
	"slices"
	"sort"
	"sync"

	"github.com/dkeye/Mesh/internal/core"
	"github.com/dkeye/Mesh/internal/domain"
	"github.com/rs/zerolog/log"
)

// room serializes every membership change behind its own mutex.
// A closed room has been removed from the registry and must not be reused.
type room struct {
	mu      sync.Mutex
	members []domain.Member
	closed  bool
}

func (rm *room) indexOf(id domain.ConnectionID) int {
	return slices.IndexFunc(rm.members, func(m domain.Member) bool { return m.ID == id })
}

// RoomRegistry is a threadsafe in-memory room table. Rooms are created on
// first join and dropped as soon as they become empty.
type RoomRegistry struct {
	mu    sync.RWMutex
	rooms map[domain.RoomID]*room
}

func NewRoomRegistry() *RoomRegistry {
	return &RoomRegistry{rooms: make(map[domain.RoomID]*room)}
}

func (r *RoomRegistry) getOrCreate(id domain.RoomID) *room {
	r.mu.RLock()
	rm, ok := r.rooms[id]
	r.mu.RUnlock()
	if ok {
		return rm
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if rm, ok = r.rooms[id]; ok {
		return rm
	}
	rm = &room{}
	r.rooms[id] = rm
	log.Info().Str("module", "app.rooms").Str("room", string(id)).Msg("room created")
	return rm
}

func (r *RoomRegistry) lookup(id domain.RoomID) (*room, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rm, ok := r.rooms[id]
	return rm, ok
}

// Join adds the connection to the room and returns the members that were
// present before it, in join order. The joiner never appears in the result.
// An empty room id makes Join a no-op that reports false.
func (r *RoomRegistry) Join(id domain.ConnectionID, roomID domain.RoomID, name string) ([]domain.Member, bool) {
	roomID = domain.NormalizeRoomID(string(roomID))
	if roomID.IsZero() || id == "" {
		log.Warn().Str("module", "app.rooms").Str("conn", string(id)).Msg("join ignored: empty room or connection id")
		return nil, false
	}
	for {
		rm := r.getOrCreate(roomID)
		rm.mu.Lock()
		if rm.closed {
			// Lost a race with the last Leave; the registry entry is about to go.
			rm.mu.Unlock()
			continue
		}
		existing := make([]domain.Member, 0, len(rm.members))
		for _, m := range rm.members {
			if m.ID != id {
				existing = append(existing, m)
			}
		}
		if i := rm.indexOf(id); i >= 0 {
			rm.members[i].DisplayName = name
		} else {
			rm.members = append(rm.members, domain.Member{ID: id, DisplayName: name})
		}
		size := len(rm.members)
		rm.mu.Unlock()

		log.Info().
			Str("module", "app.rooms").
			Str("room", string(roomID)).
			Str("conn", string(id)).
			Int("members", size).
			Msg("member joined")
		return existing, true
	}
}

// Leave removes the connection and returns the members that remain.
// It reports false when the room or the entry does not exist.
func (r *RoomRegistry) Leave(id domain.ConnectionID, roomID domain.RoomID) ([]domain.Member, bool) {
	roomID = domain.NormalizeRoomID(string(roomID))
	rm, ok := r.lookup(roomID)
	if !ok {
		return nil, false
	}

	rm.mu.Lock()
	i := rm.indexOf(id)
	if i < 0 {
		rm.mu.Unlock()
		return nil, false
	}
	rm.members = slices.Delete(rm.members, i, i+1)
	remaining := slices.Clone(rm.members)
	empty := len(rm.members) == 0
	if empty {
		rm.closed = true
	}
	rm.mu.Unlock()

	log.Info().
		Str("module", "app.rooms").
		Str("room", string(roomID)).
		Str("conn", string(id)).
		Int("members", len(remaining)).
		Msg("member left")

	if empty {
		r.mu.Lock()
		if r.rooms[roomID] == rm {
			delete(r.rooms, roomID)
		}
		r.mu.Unlock()
		log.Info().Str("module", "app.rooms").Str("room", string(roomID)).Msg("room deleted")
	}
	return remaining, true
}

// MembersOf returns a snapshot of the room in join order.
func (r *RoomRegistry) MembersOf(roomID domain.RoomID) []domain.Member {
	rm, ok := r.lookup(domain.NormalizeRoomID(string(roomID)))
	if !ok {
		return nil
	}
	rm.mu.Lock()
	defer rm.mu.Unlock()
	return slices.Clone(rm.members)
}

func (r *RoomRegistry) List() []core.RoomInfo {
	r.mu.RLock()
	snapshot := make(map[domain.RoomID]*room, len(r.rooms))
	for id, rm := range r.rooms {
		snapshot[id] = rm
	}
	r.mu.RUnlock()

	out := make([]core.RoomInfo, 0, len(snapshot))
	for id, rm := range snapshot {
		rm.mu.Lock()
		n := len(rm.members)
		rm.mu.Unlock()
		if n == 0 {
			continue
		}
		out = append(out, core.RoomInfo{ID: id, MemberCount: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *RoomRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}
