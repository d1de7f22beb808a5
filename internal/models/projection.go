package models

// ParticipantView is the client-facing subset of a participant.
type ParticipantView struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Slices int64  `json:"slices"`
}

// Meta carries group-level data shown next to the ranking.
type Meta struct {
	FoodType    FoodType `json:"foodType"`
	TotalSlices int64    `json:"totalSlices"`
	// LeaderID is empty while nobody has a positive count.
	LeaderID string `json:"leaderId,omitempty"`
}

// Projection is the ranked view of a group at one point in time.
//
// Version increases by one with every accepted mutation of the group, so two
// projections of the same group can be ordered without comparing contents.
type Projection struct {
	Code         string            `json:"code"`
	Version      uint64            `json:"version"`
	Participants []ParticipantView `json:"participants"`
	Meta         Meta              `json:"meta"`
}
