package service

import (
	"github.com/mmynk/slicetally/internal/models"
	"github.com/mmynk/slicetally/pkg/api"
)

func toAPIParticipant(p models.Participant) api.Participant {
	return api.Participant{ID: p.ID, Name: p.Name, Slices: p.Slices}
}

func toAPIParticipants(views []models.ParticipantView) []api.Participant {
	out := make([]api.Participant, len(views))
	for i, v := range views {
		out[i] = api.Participant{ID: v.ID, Name: v.Name, Slices: v.Slices}
	}
	return out
}

func toAPIMeta(m models.Meta) api.Meta {
	return api.Meta{
		FoodType:    string(m.FoodType),
		TotalSlices: m.TotalSlices,
		LeaderID:    m.LeaderID,
	}
}

// ToSnapshot converts a projection to its wire form.
func ToSnapshot(p models.Projection) api.GroupSnapshot {
	return api.GroupSnapshot{
		Code:         p.Code,
		Version:      p.Version,
		Participants: toAPIParticipants(p.Participants),
		Meta:         toAPIMeta(p.Meta),
	}
}
