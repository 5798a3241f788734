package rules

import (
	"sort"

	"github.com/kashyap0729/good-will-hunting/internal/model"
)

// RankTotals orders donor totals by points descending. Ties go to the
// donor who reached the total first, then to the lower user id so the
// order is total.
func RankTotals(totals []model.DonorTotal) []model.DonorTotal {
	out := make([]model.DonorTotal, len(totals))
	copy(out, totals)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Points != b.Points {
			return a.Points > b.Points
		}
		if !a.ReachedOn.Equal(b.ReachedOn) {
			return a.ReachedOn.Before(b.ReachedOn)
		}
		return a.UserID < b.UserID
	})
	return out
}

// SelectLeader returns the top donor, or false when there are no totals
func SelectLeader(totals []model.DonorTotal) (model.DonorTotal, bool) {
	if len(totals) == 0 {
		return model.DonorTotal{}, false
	}
	return RankTotals(totals)[0], true
}

// Standings ranks totals for display. Equal points and equal reach time
// share a rank.
func Standings(totals []model.DonorTotal) []model.Standing {
	ranked := RankTotals(totals)
	out := make([]model.Standing, len(ranked))
	for i, t := range ranked {
		rank := i + 1
		if i > 0 && t.Points == ranked[i-1].Points && t.ReachedOn.Equal(ranked[i-1].ReachedOn) {
			rank = out[i-1].Rank
		}
		out[i] = model.Standing{Rank: rank, DonorTotal: t, IsLeader: i == 0}
	}
	return out
}
