package domain

import "strings"

// RoomID is always stored lowercased.
type RoomID string

// NormalizeRoomID makes ids shared through URLs case-insensitive.
func NormalizeRoomID(raw string) RoomID {
	return RoomID(strings.ToLower(strings.TrimSpace(raw)))
}

func (id RoomID) IsZero() bool { return id == "" }
