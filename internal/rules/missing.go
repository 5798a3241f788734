package rules

import (
	"sort"
	"time"

	"github.com/kashyap0729/good-will-hunting/internal/model"
)

// AllocateFulfilment applies quantity donated units against the open
// requests, highest bonus first (oldest first on equal bonus). It returns
// copies of every request whose state changed; a request whose outstanding
// quantity reaches zero is marked fulfilled.
func AllocateFulfilment(requests []*model.MissingItemRequest, quantity int, now time.Time) []*model.MissingItemRequest {
	open := make([]*model.MissingItemRequest, 0, len(requests))
	for _, r := range requests {
		if r != nil && !r.Fulfilled {
			open = append(open, r)
		}
	}
	sort.SliceStable(open, func(i, j int) bool {
		if open[i].BonusPoints != open[j].BonusPoints {
			return open[i].BonusPoints > open[j].BonusPoints
		}
		return open[i].CreatedOn.Before(open[j].CreatedOn)
	})

	var changed []*model.MissingItemRequest
	remaining := quantity
	for _, r := range open {
		if remaining <= 0 {
			break
		}
		c := r.Clone()
		take := min(remaining, c.OutstandingQuantity)
		c.OutstandingQuantity -= take
		remaining -= take
		if c.OutstandingQuantity <= 0 {
			c.OutstandingQuantity = 0
			c.Fulfilled = true
			at := now
			c.FulfilledOn = &at
		}
		changed = append(changed, c)
	}
	return changed
}
