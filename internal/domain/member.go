package domain

import "time"

// Member is one connection's membership record inside a room.
type Member struct {
	ConnectionID string    `json:"connectionId"`
	UserID       int64     `json:"userId"`
	DisplayName  string    `json:"username"`
	JoinedAt     time.Time `json:"joinedAt"`
}

func NewMember(connectionID string, userID int64, displayName string, joinedAt time.Time) Member {
	return Member{
		ConnectionID: connectionID,
		UserID:       userID,
		DisplayName:  displayName,
		JoinedAt:     joinedAt,
	}
}
