package domain

// Member is the public view of a room participant.
type Member struct {
	ID          ConnectionID `json:"id"`
	DisplayName string       `json:"displayName"`
}
