package simulate

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"

	"tourguide/internal/models"
)

const historyLength = 3

// Population creates n users named internalUser0..internalUser<n-1>, each with
// three random locations from the last 30 days.
func Population(n int) []*models.User {
	users := make([]*models.User, 0, n)
	now := time.Now()
	for i := range n {
		u := models.NewUser(uuid.New(), fmt.Sprintf("internalUser%d", i))
		for range historyLength {
			u.AddVisitedLocation(models.VisitedLocation{
				UserID:      u.ID,
				Coordinates: RandomCoordinates(),
				VisitedAt:   now.Add(-rand.N(30 * 24 * time.Hour)),
			})
		}
		users = append(users, u)
	}
	return users
}
