package core

import "github.com/dkeye/Mesh/internal/domain"

// PublishResult reports delivery stats/backpressure of a fan-out.
type PublishResult struct {
	SendTo  int
	Dropped []domain.ConnectionID
}

// RoomInfo is a read-only view for APIs.
type RoomInfo struct {
	ID          domain.RoomID `json:"id"`
	MemberCount int           `json:"memberCount"`
}
