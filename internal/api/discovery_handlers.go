package api

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/listenupapp/sortir/internal/discovery"
	"github.com/listenupapp/sortir/internal/domain"
	"github.com/listenupapp/sortir/internal/errors"
)

func (s *Server) registerDiscoveryRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "filterEvents",
		Method:      http.MethodPost,
		Path:        "/api/v1/events/filter",
		Summary:     "Filter events",
		Description: "Applies a discovery filter to the supplied events. Malformed optional fields are ignored and reported. " +
			"When the body sets no filter field, text, category, date, location and min_rating are read from the query string",
		Tags:        []string{"Discovery"},
	}, s.handleFilterEvents)
}

// === DTOs ===

// OccurrencePayload is one scheduled instance of an event.
type OccurrencePayload struct {
	StartDate time.Time `json:"start_date" doc:"Start of the occurrence"`
}

// EventPayload is an event as exchanged with the presentation layer.
type EventPayload struct {
	Address       *string             `json:"address,omitempty" doc:"Street address"`
	AverageRating *float64            `json:"average_rating,omitempty" doc:"Average rating, missing counts as 0"`
	Title         string              `json:"title" doc:"Event title"`
	Description   string              `json:"description,omitempty" doc:"Event description"`
	Category      string              `json:"category,omitempty" doc:"Event category"`
	Occurrences   []OccurrencePayload `json:"occurrences,omitempty" doc:"Scheduled occurrences, any order"`
	ID            int64               `json:"id" doc:"Event ID"`
}

// FilterPayload carries the filter fields. An absent field does not constrain;
// a present empty string does.
type FilterPayload struct {
	Text      *string  `json:"text,omitempty" doc:"Case-insensitive substring of title or description"`
	Category  *string  `json:"category,omitempty" doc:"Exact category"`
	Date      *string  `json:"date,omitempty" doc:"Calendar day YYYY-MM-DD of the earliest occurrence"`
	Location  *string  `json:"location,omitempty" doc:"Case-insensitive substring of the address"`
	MinRating *float64 `json:"min_rating,omitempty" doc:"Minimum average rating"`
}

// FilterEventsRequest is the request body for filtering events.
type FilterEventsRequest struct {
	Filter   FilterPayload  `json:"filter,omitempty" doc:"Filter to apply"`
	Timezone string         `json:"timezone,omitempty" doc:"IANA zone used to read calendar days (default local)"`
	Events   []EventPayload `json:"events" doc:"Candidate events"`
}

// FilterEventsInput wraps the filter request for Huma.
type FilterEventsInput struct {
	Body  FilterEventsRequest
	query url.Values
}

// Resolve keeps the raw query so that absent and empty parameters stay distinct.
func (i *FilterEventsInput) Resolve(ctx huma.Context) []error {
	u := ctx.URL()
	i.query = u.Query()
	return nil
}

// FilterIssue reports a filter field that was ignored.
type FilterIssue struct {
	Field  string `json:"field" doc:"Ignored field"`
	Reason string `json:"reason" doc:"Why it was ignored"`
}

// FilterEventsResponse contains the matching events.
type FilterEventsResponse struct {
	Events []EventPayload `json:"events" doc:"Matching events in input order"`
	Issues []FilterIssue  `json:"issues" doc:"Ignored filter fields"`
}

// FilterEventsOutput wraps the filter response for Huma.
type FilterEventsOutput struct {
	Body FilterEventsResponse
}

// === Handlers ===

func (s *Server) handleFilterEvents(_ context.Context, input *FilterEventsInput) (*FilterEventsOutput, error) {
	now := s.now()
	if tz := input.Body.Timezone; tz != "" {
		if err := s.validator.Var("timezone", tz, "timezone"); err != nil {
			return nil, toAPIError(err)
		}
		loc, err := time.LoadLocation(tz)
		if err != nil {
			return nil, toAPIError(errors.ValidationWithDetails("invalid timezone",
				map[string]string{"timezone": err.Error()}))
		}
		now = now.In(loc)
	}

	var (
		spec        = input.Body.Filter.spec()
		fieldIssues []discovery.FieldIssue
	)
	if spec.IsEmpty() {
		spec, fieldIssues = discovery.ParseQuery(input.query)
	} else {
		spec, fieldIssues = discovery.Normalize(spec)
	}

	events := make([]domain.EventRecord, len(input.Body.Events))
	for i, e := range input.Body.Events {
		events[i] = e.record()
	}

	matched := discovery.Filter(events, spec, now)

	resp := FilterEventsResponse{
		Events: make([]EventPayload, len(matched)),
		Issues: make([]FilterIssue, len(fieldIssues)),
	}
	for i, e := range matched {
		resp.Events[i] = eventPayload(e)
	}
	for i, issue := range fieldIssues {
		resp.Issues[i] = FilterIssue{Field: issue.Field, Reason: issue.Reason}
	}

	return &FilterEventsOutput{Body: resp}, nil
}

func (f FilterPayload) spec() domain.FilterSpec {
	return domain.FilterSpec{
		Text:      optional(f.Text),
		Category:  optional(f.Category),
		Date:      optional(f.Date),
		Location:  optional(f.Location),
		MinRating: optional(f.MinRating),
	}
}

func optional[T any](v *T) domain.Optional[T] {
	if v == nil {
		return domain.None[T]()
	}
	return domain.Some(*v)
}

func (e EventPayload) record() domain.EventRecord {
	occurrences := make([]domain.Occurrence, len(e.Occurrences))
	for i, o := range e.Occurrences {
		occurrences[i] = domain.Occurrence{StartDate: o.StartDate}
	}
	return domain.EventRecord{
		Address:       e.Address,
		AverageRating: e.AverageRating,
		Title:         e.Title,
		Description:   e.Description,
		Category:      e.Category,
		Occurrences:   occurrences,
		ID:            e.ID,
	}
}

func eventPayload(e domain.EventRecord) EventPayload {
	occurrences := make([]OccurrencePayload, len(e.Occurrences))
	for i, o := range e.Occurrences {
		occurrences[i] = OccurrencePayload{StartDate: o.StartDate}
	}
	return EventPayload{
		Address:       e.Address,
		AverageRating: e.AverageRating,
		Title:         e.Title,
		Description:   e.Description,
		Category:      e.Category,
		Occurrences:   occurrences,
		ID:            e.ID,
	}
}
