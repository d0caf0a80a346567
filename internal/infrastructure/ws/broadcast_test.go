package ws_test

import (
	"testing"

	"github.com/hilthontt/sketchroom/internal/infrastructure/ws"
	"github.com/hilthontt/sketchroom/internal/infrastructure/ws/wstest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBroadcast(t *testing.T) {
	tests := []struct {
		name          string
		setup         func() []*wstest.Conn
		exclude       string
		wantDelivered []string
		wantDropped   []string
		wantFaulted   bool
	}{
		{
			name: "all members",
			setup: func() []*wstest.Conn {
				return []*wstest.Conn{wstest.NewConn("a"), wstest.NewConn("b")}
			},
			wantDelivered: []string{"a", "b"},
		},
		{
			name: "excludes sender",
			setup: func() []*wstest.Conn {
				return []*wstest.Conn{wstest.NewConn("a"), wstest.NewConn("b")}
			},
			exclude:       "a",
			wantDelivered: []string{"b"},
		},
		{
			name: "full buffer drops only that recipient",
			setup: func() []*wstest.Conn {
				slow := wstest.NewConn("slow")
				slow.FailWith(ws.ErrBufferFull)
				return []*wstest.Conn{wstest.NewConn("a"), slow, wstest.NewConn("c")}
			},
			wantDelivered: []string{"a", "c"},
			wantDropped:   []string{"slow"},
		},
		{
			name: "panic is recovered",
			setup: func() []*wstest.Conn {
				bad := wstest.NewConn("bad")
				bad.Panic()
				return []*wstest.Conn{wstest.NewConn("a"), bad}
			},
			wantDelivered: []string{"a"},
			wantFaulted:   true,
		},
		{
			name:  "no targets",
			setup: func() []*wstest.Conn { return nil },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conns := tt.setup()
			targets := make([]ws.Connection, 0, len(conns))
			for _, c := range conns {
				targets = append(targets, c)
			}

			var delivery ws.Delivery
			require.NotPanics(t, func() {
				delivery = ws.Broadcast(targets, ws.NewClearCanvas("room1"), tt.exclude)
			})

			assert.ElementsMatch(t, tt.wantDelivered, delivery.Delivered)
			dropped := make([]string, 0, len(delivery.Dropped))
			for _, d := range delivery.Dropped {
				dropped = append(dropped, d.ConnectionID)
			}
			assert.ElementsMatch(t, tt.wantDropped, dropped)
			assert.Equal(t, tt.wantFaulted, delivery.Faulted)
			if tt.wantFaulted {
				assert.Error(t, delivery.Fault)
			}
		})
	}
}
