// Package leaderboard holds the pure ranking and counter math behind group
// projections.
package leaderboard

import (
	"math"
	"sort"

	"github.com/mmynk/slicetally/internal/models"
)

// Rank orders participants for display.
//
// Order: slices descending, then joinedAt ascending (earlier joiners rank
// above later ones at equal counts), then ID ascending so the result is
// deterministic even for identical timestamps.
func Rank(participants map[string]models.Participant) []models.ParticipantView {
	ordered := make([]models.Participant, 0, len(participants))
	for _, p := range participants {
		ordered = append(ordered, p)
	}
	sort.Slice(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if a.Slices != b.Slices {
			return a.Slices > b.Slices
		}
		if !a.JoinedAt.Equal(b.JoinedAt) {
			return a.JoinedAt.Before(b.JoinedAt)
		}
		return a.ID < b.ID
	})

	views := make([]models.ParticipantView, len(ordered))
	for i, p := range ordered {
		views[i] = models.ParticipantView{ID: p.ID, Name: p.Name, Slices: p.Slices}
	}
	return views
}

// Summarize computes the group-level meta for an already ranked list.
func Summarize(foodType models.FoodType, ranked []models.ParticipantView) models.Meta {
	meta := models.Meta{FoodType: foodType}
	for _, v := range ranked {
		meta.TotalSlices = saturatingAdd(meta.TotalSlices, v.Slices)
	}
	if len(ranked) > 0 && ranked[0].Slices > 0 {
		meta.LeaderID = ranked[0].ID
	}
	return meta
}

// Project builds the projection of g at the given version.
func Project(g models.Group, version uint64) models.Projection {
	ranked := Rank(g.Participants)
	return models.Projection{
		Code:         g.Code,
		Version:      version,
		Participants: ranked,
		Meta:         Summarize(g.FoodType, ranked),
	}
}

// Apply returns the counter value after adding delta to current.
// The result is clamped at zero and saturates at math.MaxInt64; neither case
// is an error.
func Apply(current, delta int64) int64 {
	next := saturatingAdd(current, delta)
	if next < 0 {
		return 0
	}
	return next
}

func saturatingAdd(a, b int64) int64 {
	if b > 0 && a > math.MaxInt64-b {
		return math.MaxInt64
	}
	if b < 0 && a < math.MinInt64-b {
		return math.MinInt64
	}
	return a + b
}
