package ws

import "fmt"

type Drop struct {
	ConnectionID string
	Err          error
}

// Delivery reports the outcome of one fan-out.
type Delivery struct {
	Delivered []string
	Dropped   []Drop
	// Faulted is set when a send panicked; Fault holds the recovered value.
	Faulted bool
	Fault   error
}

func (d Delivery) Attempted() int {
	return len(d.Delivered) + len(d.Dropped)
}

// Broadcast enqueues msg on every target except the one whose id equals
// exclude. Enqueueing never blocks, so it is safe to call while holding
// the room lock. A full or closed buffer only drops that recipient.
func Broadcast(targets []Connection, msg *WSMessage, exclude string) (d Delivery) {
	defer func() {
		if r := recover(); r != nil {
			d.Faulted = true
			d.Fault = fmt.Errorf("broadcast %s: %v", msg.Type, r)
		}
	}()

	for _, target := range targets {
		id := target.ID()
		if exclude != "" && id == exclude {
			continue
		}

		if err := target.Send(msg); err != nil {
			d.Dropped = append(d.Dropped, Drop{ConnectionID: id, Err: err})
			continue
		}
		d.Delivered = append(d.Delivered, id)
	}

	return d
}
