// Package domain contains entity without logic, just meta-data
package domain

import (
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
)

const (
	MaxDisplayNameLen  = 36
	DefaultDisplayName = "guest"
)

// ConnectionID identifies one live client transport session.
// Rejoining from the same browser produces a new id.
type ConnectionID string

func NewConnectionID() ConnectionID {
	return ConnectionID(uuid.NewString())
}

// Participant is a connection that has joined a room.
type Participant struct {
	ConnectionID ConnectionID `json:"id"`
	RoomID       RoomID       `json:"roomId"`
	DisplayName  string       `json:"displayName"`
}

// SanitizeDisplayName trims the name, falls back to DefaultDisplayName
// and cuts it to MaxDisplayNameLen runes.
func SanitizeDisplayName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return DefaultDisplayName
	}
	if utf8.RuneCountInString(name) <= MaxDisplayNameLen {
		return name
	}
	runes := []rune(name)
	return string(runes[:MaxDisplayNameLen])
}
