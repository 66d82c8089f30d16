package domain

import "time"

// EventRecord is a discoverable event. Only the fields the filter engine reads are modelled.
type EventRecord struct {
	Address       *string      `json:"address,omitempty"`
	AverageRating *float64     `json:"average_rating,omitempty"`
	Title         string       `json:"title"`
	Description   string       `json:"description"`
	Category      string       `json:"category"`
	Occurrences   []Occurrence `json:"occurrences"`
	ID            int64        `json:"id"`
}

// Occurrence is a single scheduled instance of an event.
type Occurrence struct {
	StartDate time.Time `json:"start_date"`
}

// EarliestOccurrence returns the occurrence with the smallest StartDate.
// The list is not assumed to be sorted. Returns false when there are none.
func (e EventRecord) EarliestOccurrence() (Occurrence, bool) {
	if len(e.Occurrences) == 0 {
		return Occurrence{}, false
	}
	earliest := e.Occurrences[0]
	for _, o := range e.Occurrences[1:] {
		if o.StartDate.Before(earliest.StartDate) {
			earliest = o
		}
	}
	return earliest, true
}

// Rating returns the average rating, treating a missing rating as 0.
func (e EventRecord) Rating() float64 {
	if e.AverageRating == nil {
		return 0
	}
	return *e.AverageRating
}
