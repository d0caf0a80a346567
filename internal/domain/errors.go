package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput   = errors.New("invalid input")
	ErrRoomNotFound   = errors.New("room not found")
	ErrNotMember      = errors.New("not a member of this room")
	ErrAlreadyMember  = errors.New("already a member of this room")
	ErrMessageTooLong = errors.New("message is too long")
	ErrDeliveryFailed = errors.New("delivery failed")
	ErrRateLimited    = errors.New("rate limited")
)

// RejectError carries the message reported back to the originating
// connection. Kind is one of the sentinel errors above.
type RejectError struct {
	Kind    error
	Message string
}

func (e *RejectError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *RejectError) Unwrap() error {
	return e.Kind
}

func Reject(kind error, message string) error {
	return &RejectError{Kind: kind, Message: message}
}

// Code maps an error to the stable code sent in error frames.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrInvalidInput):
		return "INVALID_INPUT"
	case errors.Is(err, ErrRoomNotFound):
		return "ROOM_NOT_FOUND"
	case errors.Is(err, ErrNotMember):
		return "NOT_MEMBER"
	case errors.Is(err, ErrAlreadyMember):
		return "ALREADY_MEMBER"
	case errors.Is(err, ErrMessageTooLong):
		return "MESSAGE_TOO_LONG"
	case errors.Is(err, ErrDeliveryFailed):
		return "DELIVERY_FAILED"
	case errors.Is(err, ErrRateLimited):
		return "RATE_LIMITED"
	default:
		return "INTERNAL"
	}
}

// Message returns the client-facing text for err.
func Message(err error) string {
	var rej *RejectError
	if errors.As(err, &rej) {
		return rej.Message
	}

	switch {
	case errors.Is(err, ErrRoomNotFound):
		return "Room not found"
	case errors.Is(err, ErrNotMember):
		return "You are not in this room"
	case errors.Is(err, ErrAlreadyMember):
		return "You are already in this room"
	case errors.Is(err, ErrInvalidInput):
		return "Invalid input"
	case errors.Is(err, ErrDeliveryFailed):
		return "Failed to deliver event"
	case errors.Is(err, ErrRateLimited):
		return "Too many events, slow down"
	default:
		return "Failed to process event"
	}
}
