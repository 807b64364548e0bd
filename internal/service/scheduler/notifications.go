package scheduler

import (
	"time"

	"github.com/bitelog/bitelog-api/internal/models"
)

// filterRecentRequests drops requests younger than minAge.
func filterRecentRequests(requests []models.MealRequest, minAge time.Duration, now time.Time) []models.MealRequest {
	var filtered []models.MealRequest
	for _, r := range requests {
		if now.Sub(r.CreatedAt) >= minAge {
			filtered = append(filtered, r)
		}
	}
	return filtered
}
