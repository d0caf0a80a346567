package ws

import "encoding/json"

// WSMessage is the envelope for every outbound frame.
type WSMessage struct {
	Type   string `json:"type"`
	RoomID string `json:"roomId,omitempty"`
	Data   any    `json:"data"`
}

// Envelope is an inbound frame with its payload left undecoded.
type Envelope struct {
	Type   string          `json:"type"`
	RoomID string          `json:"roomId,omitempty"`
	Data   json.RawMessage `json:"data,omitempty"`
}

type MemberPayload struct {
	UserID      int64  `json:"userId"`
	Username    string `json:"username"`
	MemberCount int    `json:"memberCount"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func NewMemberJoined(roomID string, member MemberPayload) *WSMessage {
	return &WSMessage{
		Type:   RoomUserJoined,
		RoomID: roomID,
		Data:   member,
	}
}

func NewMemberLeft(roomID string, member MemberPayload) *WSMessage {
	return &WSMessage{
		Type:   RoomUserLeft,
		RoomID: roomID,
		Data:   member,
	}
}

func NewChatMessage(roomID string, message any) *WSMessage {
	return &WSMessage{
		Type:   ChatMessage,
		RoomID: roomID,
		Data:   message,
	}
}

func NewChatHistory(roomID string, messages any) *WSMessage {
	return &WSMessage{
		Type:   ChatLoadHistory,
		RoomID: roomID,
		Data:   messages,
	}
}

func NewDraw(roomID string, drawData map[string]any) *WSMessage {
	return &WSMessage{
		Type:   CanvasDraw,
		RoomID: roomID,
		Data:   drawData,
	}
}

func NewClearCanvas(roomID string) *WSMessage {
	return &WSMessage{
		Type:   CanvasClearCanvas,
		RoomID: roomID,
		Data:   nil,
	}
}

func NewLoadDrawing(roomID string, strokes any) *WSMessage {
	return &WSMessage{
		Type:   CanvasLoadDrawing,
		RoomID: roomID,
		Data:   strokes,
	}
}

func NewError(roomID, code, message string) *WSMessage {
	return &WSMessage{
		Type:   ErrorEvent,
		RoomID: roomID,
		Data: ErrorPayload{
			Code:    code,
			Message: message,
		},
	}
}
