package reservations

import (
	"time"

	"github.com/listenupapp/sortir/internal/domain"
)

// Classification partitions records around a point in time.
// Upcoming and Past are disjoint and together hold every record of All.
type Classification struct {
	All      []domain.ReservationRecord `json:"all"`
	Upcoming []domain.ReservationRecord `json:"upcoming"`
	Past     []domain.ReservationRecord `json:"past"`
}

// Classify splits records into upcoming (ScheduledAt >= now) and past, keeping input order.
func Classify(records []domain.ReservationRecord, now time.Time) Classification {
	c := Classification{
		All:      records,
		Upcoming: make([]domain.ReservationRecord, 0),
		Past:     make([]domain.ReservationRecord, 0),
	}
	for _, r := range records {
		if r.IsUpcoming(now) {
			c.Upcoming = append(c.Upcoming, r)
		} else {
			c.Past = append(c.Past, r)
		}
	}
	return c
}
