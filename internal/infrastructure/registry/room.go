package registry

import (
	"time"

	"github.com/hilthontt/sketchroom/internal/domain"
	"github.com/hilthontt/sketchroom/internal/infrastructure/ws"
)

type memberEntry struct {
	member domain.Member
	conn   ws.Connection
}

// Room is the live state of one room. It is only reachable through
// Registry.Update and Registry.View, which hold the room's shard lock.
type Room struct {
	id        string
	createdAt time.Time
	members   []memberEntry
	chat      *History[domain.ChatEvent]
	strokes   *History[domain.StrokeEvent]
	owners    *ownerIndex
}

func (r *Room) ID() string {
	return r.id
}

func (r *Room) CreatedAt() time.Time {
	return r.createdAt
}

func (r *Room) Len() int {
	return len(r.members)
}

func (r *Room) Member(connectionID string) (domain.Member, bool) {
	for _, e := range r.members {
		if e.member.ConnectionID == connectionID {
			return e.member, true
		}
	}
	return domain.Member{}, false
}

// Members returns members in join order.
func (r *Room) Members() []domain.Member {
	out := make([]domain.Member, len(r.members))
	for i, e := range r.members {
		out[i] = e.member
	}
	return out
}

func (r *Room) Connections() []ws.Connection {
	out := make([]ws.Connection, len(r.members))
	for i, e := range r.members {
		out[i] = e.conn
	}
	return out
}

// AddMember claims the connection for this room. A connection that is
// already a member here or elsewhere is rejected with ErrAlreadyMember.
func (r *Room) AddMember(member domain.Member, conn ws.Connection) error {
	if !r.owners.claim(member.ConnectionID, r.id) {
		return domain.ErrAlreadyMember
	}

	r.members = append(r.members, memberEntry{member: member, conn: conn})
	return nil
}

func (r *Room) RemoveMember(connectionID string) (domain.Member, bool) {
	for i, e := range r.members {
		if e.member.ConnectionID != connectionID {
			continue
		}

		r.members = append(r.members[:i], r.members[i+1:]...)
		r.owners.release(connectionID, r.id)
		return e.member, true
	}
	return domain.Member{}, false
}

func (r *Room) AppendChat(event domain.ChatEvent) {
	r.chat.Append(event)
}

func (r *Room) ChatHistory() []domain.ChatEvent {
	return r.chat.Items()
}

func (r *Room) AppendStroke(event domain.StrokeEvent) {
	r.strokes.Append(event)
}

func (r *Room) Strokes() []domain.StrokeEvent {
	return r.strokes.Items()
}

// ClearStrokes truncates the stroke history and reports how many strokes
// were removed.
func (r *Room) ClearStrokes() int {
	n := r.strokes.Len()
	r.strokes.Clear()
	return n
}

func (r *Room) releaseAll() {
	for _, e := range r.members {
		r.owners.release(e.member.ConnectionID, r.id)
	}
	r.members = nil
}
