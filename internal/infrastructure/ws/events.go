package ws

// Inbound event types.
const (
	RoomJoin          = "room:join"
	RoomLeave         = "room:leave"
	ChatMessage       = "chat:message"
	ChatLoadHistory   = "chat:loadHistory"
	CanvasDraw        = "canvas:draw"
	CanvasClearCanvas = "canvas:clearCanvas"
	CanvasLoadDrawing = "canvas:loadDrawing"
)

// Outbound-only event types.
const (
	RoomUserJoined = "room:userJoined"
	RoomUserLeft   = "room:userLeft"
	ErrorEvent     = "error"
)

// UnknownEvent labels inbound frames whose type is not one of the above.
const UnknownEvent = "unknown"

var inboundEvents = map[string]struct{}{
	RoomJoin:          {},
	RoomLeave:         {},
	ChatMessage:       {},
	ChatLoadHistory:   {},
	CanvasDraw:        {},
	CanvasClearCanvas: {},
	CanvasLoadDrawing: {},
}

// IsInbound reports whether eventType is an event clients may send.
func IsInbound(eventType string) bool {
	_, ok := inboundEvents[eventType]
	return ok
}
