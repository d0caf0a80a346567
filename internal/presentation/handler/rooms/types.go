package rooms

import "time"

type createRoomRequest struct {
	RoomID string `json:"roomId"`
	Name   string `json:"name"`
}

type roomResponse struct {
	RoomID      string    `json:"roomId"`
	Name        string    `json:"name"`
	CreatedAt   time.Time `json:"createdAt"`
	MemberCount int       `json:"memberCount"`
}
