package messages

import "time"

type messageResponse struct {
	ID        string    `json:"id"`
	RoomID    string    `json:"roomId"`
	UserID    int64     `json:"userId"`
	Username  string    `json:"username"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

type listMessagesResponse struct {
	RoomID   string            `json:"roomId"`
	Messages []messageResponse `json:"messages"`
}
