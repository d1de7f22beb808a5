// Package api declares the messages of the slicetally.v1 Connect API.
//
// Messages travel as JSON; field names match the plain HTTP endpoints so a
// browser client can use either surface.
package api

// Participant is one member of a group as seen by clients.
type Participant struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Slices int64  `json:"slices"`
}

// Meta carries group-level data shown next to the ranking.
type Meta struct {
	FoodType    string `json:"foodType"`
	TotalSlices int64  `json:"totalSlices"`
	LeaderID    string `json:"leaderId,omitempty"`
}

// GroupSnapshot is the ranked state of a group at one version.
// Participants are ordered by slices descending, earlier joiners first on ties.
type GroupSnapshot struct {
	Code         string        `json:"code"`
	Version      uint64        `json:"version"`
	Participants []Participant `json:"participants"`
	Meta         Meta          `json:"meta"`
}

type CreateGroupRequest struct {
	// Name and ParticipantID optionally seed the creator as first participant.
	Name          string `json:"name,omitempty"`
	ParticipantID string `json:"participantId,omitempty"`
	FoodType      string `json:"foodType,omitempty"`
}

type CreateGroupResponse struct {
	Code string `json:"code"`
}

type JoinGroupRequest struct {
	Code          string `json:"code"`
	Name          string `json:"name"`
	ParticipantID string `json:"participantId,omitempty"`
}

type JoinGroupResponse struct {
	Code          string        `json:"code"`
	ParticipantID string        `json:"participantId"`
	Participant   Participant   `json:"participant"`
	Participants  []Participant `json:"participants"`
	Meta          Meta          `json:"meta"`
}

type AdjustSlicesRequest struct {
	Code          string `json:"code"`
	ParticipantID string `json:"participantId"`
	// Delta must be non-zero. Negative values decrement; the count stops at zero.
	Delta int64 `json:"delta"`
}

type AdjustSlicesResponse struct {
	OK          bool        `json:"ok"`
	Participant Participant `json:"participant"`
}

type RenameParticipantRequest struct {
	Code          string `json:"code"`
	ParticipantID string `json:"participantId"`
	Name          string `json:"name"`
}

type RenameParticipantResponse struct {
	Participant Participant `json:"participant"`
}

type LeaveGroupRequest struct {
	Code          string `json:"code"`
	ParticipantID string `json:"participantId"`
}

type LeaveGroupResponse struct {
	OK bool `json:"ok"`
}

type GetGroupRequest struct {
	Code string `json:"code"`
}

type GetGroupResponse struct {
	Group GroupSnapshot `json:"group"`
}

type SubscribeRequest struct {
	Code          string `json:"code"`
	ParticipantID string `json:"participantId"`
	Name          string `json:"name,omitempty"`
}
