package registry

import "sync"

// ownerIndex maps a connection id to the single room it belongs to.
// It is always taken after a shard lock, never before.
type ownerIndex struct {
	mu     sync.Mutex
	owners map[string]string
}

func newOwnerIndex() *ownerIndex {
	return &ownerIndex{owners: make(map[string]string)}
}

func (o *ownerIndex) claim(connectionID, roomID string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	if _, taken := o.owners[connectionID]; taken {
		return false
	}
	o.owners[connectionID] = roomID
	return true
}

func (o *ownerIndex) release(connectionID, roomID string) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.owners[connectionID] == roomID {
		delete(o.owners, connectionID)
	}
}

func (o *ownerIndex) lookup(connectionID string) (string, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	roomID, ok := o.owners[connectionID]
	return roomID, ok
}
