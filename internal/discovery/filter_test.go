package discovery

import (
	"math"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/listenupapp/sortir/internal/domain"
)

var now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func ptr[T any](v T) *T { return &v }

func at(s string) domain.Occurrence {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return domain.Occurrence{StartDate: t}
}

func ids(events []domain.EventRecord) []int64 {
	out := make([]int64, 0, len(events))
	for _, e := range events {
		out = append(out, e.ID)
	}
	return out
}

func catalog() []domain.EventRecord {
	return []domain.EventRecord{
		{
			ID: 1, Title: "Jazz Night", Description: "Live quartet", Category: "culturel",
			Address: ptr("12 Rue de la Paix, Paris"), AverageRating: ptr(4.6),
			Occurrences: []domain.Occurrence{at("2025-07-14T20:00:00Z"), at("2025-07-01T20:00:00Z")},
		},
		{
			ID: 2, Title: "Marché de Noël", Description: "Vin chaud et ÉPICES", Category: "festif",
			Address: ptr("Place Kléber, Strasbourg"),
			Occurrences: []domain.Occurrence{at("2025-12-01T10:00:00Z")},
		},
		{
			ID: 3, Title: "Open Air Cinema", Description: "Classic jazz films", Category: "culturel",
			AverageRating: ptr(3.9),
		},
		{
			ID: 4, Title: "Food Festival", Description: "", Category: "gastronomie",
			Address: ptr("Lyon"), AverageRating: ptr(4.9),
			Occurrences: []domain.Occurrence{at("2025-07-01T09:00:00Z")},
		},
	}
}

func TestFilter_CategoryAndMinRating(t *testing.T) {
	events := []domain.EventRecord{{ID: 1, Title: "Jazz Night", Category: "culturel", AverageRating: ptr(4.6)}}

	got := Filter(events, domain.FilterSpec{
		Category:  domain.Some("culturel"),
		MinRating: domain.Some(4.5),
	}, now)
	assert.Equal(t, []int64{1}, ids(got))

	got = Filter(events, domain.FilterSpec{MinRating: domain.Some(4.7)}, now)
	assert.Empty(t, got)
}

func TestFilter_EmptySpecIsIdentity(t *testing.T) {
	events := catalog()
	assert.Equal(t, events, Filter(events, domain.FilterSpec{}, now))
}

func TestFilter_Text(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []int64
	}{
		{"title case-insensitive", "JAZZ", []int64{1, 3}},
		{"description match", "quartet", []int64{1}},
		{"unicode folding", "épices", []int64{2}},
		{"accented title", "MARCHÉ", []int64{2}},
		{"empty string matches all", "", []int64{1, 2, 3, 4}},
		{"no match", "opera", []int64{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Filter(catalog(), domain.FilterSpec{Text: domain.Some(tt.text)}, now)
			assert.Equal(t, tt.want, ids(got))
		})
	}
}

func TestFilter_CategoryIsExact(t *testing.T) {
	got := Filter(catalog(), domain.FilterSpec{Category: domain.Some("Culturel")}, now)
	assert.Empty(t, got)
}

func TestFilter_MissingRatingCountsAsZero(t *testing.T) {
	got := Filter(catalog(), domain.FilterSpec{MinRating: domain.Some(0.0)}, now)
	assert.Equal(t, []int64{1, 2, 3, 4}, ids(got))

	got = Filter(catalog(), domain.FilterSpec{MinRating: domain.Some(0.1)}, now)
	assert.Equal(t, []int64{1, 3, 4}, ids(got))
}

func TestFilter_LocationExcludesMissingAddress(t *testing.T) {
	got := Filter(catalog(), domain.FilterSpec{Location: domain.Some("paris")}, now)
	assert.Equal(t, []int64{1}, ids(got))

	got = Filter(catalog(), domain.FilterSpec{Location: domain.Some("")}, now)
	assert.Equal(t, []int64{1, 2, 4}, ids(got), "record 3 has no address")

	got = Filter(catalog(), domain.FilterSpec{Location: domain.Some("KLÉBER")}, now)
	assert.Equal(t, []int64{2}, ids(got))
}

func TestFilter_DateUsesEarliestOccurrence(t *testing.T) {
	got := Filter(catalog(), domain.FilterSpec{Date: domain.Some("2025-07-01")}, now)
	assert.Equal(t, []int64{1, 4}, ids(got))

	got = Filter(catalog(), domain.FilterSpec{Date: domain.Some("2025-07-14")}, now)
	assert.Empty(t, got, "only the earliest occurrence counts")
}

func TestFilter_DateInNowLocation(t *testing.T) {
	// 2025-07-01T23:30Z is already July 2nd in Paris (UTC+2).
	paris := time.FixedZone("CEST", 2*60*60)
	events := []domain.EventRecord{{ID: 9, Occurrences: []domain.Occurrence{at("2025-07-01T23:30:00Z")}}}

	assert.Empty(t, Filter(events, domain.FilterSpec{Date: domain.Some("2025-07-01")}, now.In(paris)))
	assert.Len(t, Filter(events, domain.FilterSpec{Date: domain.Some("2025-07-02")}, now.In(paris)), 1)
	assert.Len(t, Filter(events, domain.FilterSpec{Date: domain.Some("2025-07-01")}, now), 1)
}

func TestFilter_MalformedDateIsIgnored(t *testing.T) {
	events := catalog()

	got := Filter(events, domain.FilterSpec{Date: domain.Some("01/07/2025")}, now)
	assert.Equal(t, ids(events), ids(got))

	got = Filter(events, domain.FilterSpec{Date: domain.Some("garbage"), Category: domain.Some("culturel")}, now)
	assert.Equal(t, []int64{1, 3}, ids(got))
}

func TestFilter_CombinedConstraintsAreConjunctive(t *testing.T) {
	got := Filter(catalog(), domain.FilterSpec{
		Text:      domain.Some("jazz"),
		Category:  domain.Some("culturel"),
		MinRating: domain.Some(4.0),
		Date:      domain.Some("2025-07-01"),
		Location:  domain.Some("rue"),
	}, now)
	assert.Equal(t, []int64{1}, ids(got))
}

func TestFilter_Monotonic(t *testing.T) {
	specs := []domain.FilterSpec{
		{},
		{Category: domain.Some("culturel")},
		{Category: domain.Some("culturel"), Text: domain.Some("jazz")},
		{Category: domain.Some("culturel"), Text: domain.Some("jazz"), MinRating: domain.Some(4.0)},
		{Category: domain.Some("culturel"), Text: domain.Some("jazz"), MinRating: domain.Some(4.0), Location: domain.Some("paris")},
		{Category: domain.Some("culturel"), Text: domain.Some("jazz"), MinRating: domain.Some(4.0), Location: domain.Some("paris"), Date: domain.Some("2025-07-02")},
	}

	prev := len(catalog())
	for i, spec := range specs {
		n := len(Filter(catalog(), spec, now))
		assert.LessOrEqual(t, n, prev, "step %d grew the result", i)
		prev = n
	}
}

func TestFilter_DoesNotMutateInput(t *testing.T) {
	events := catalog()
	_ = Filter(events, domain.FilterSpec{Text: domain.Some("jazz")}, now)
	assert.Equal(t, catalog(), events)
}

func TestNormalize(t *testing.T) {
	spec, issues := Normalize(domain.FilterSpec{
		Date:      domain.Some("2025-13-40"),
		MinRating: domain.Some(math.NaN()),
		Text:      domain.Some(""),
	})

	assert.False(t, spec.Date.IsSet())
	assert.False(t, spec.MinRating.IsSet())
	assert.True(t, spec.Text.IsSet())
	require.Len(t, issues, 2)
	assert.Equal(t, "date", issues[0].Field)
	assert.Equal(t, "min_rating", issues[1].Field)

	spec, issues = Normalize(domain.FilterSpec{Date: domain.Some(" 2025-07-01 ")})
	assert.Empty(t, issues)
	got, _ := spec.Date.Get()
	assert.Equal(t, "2025-07-01", got)
}

func TestParseQuery(t *testing.T) {
	values, err := url.ParseQuery("category=culturel&min_rating=4.5&location=&date=tomorrow")
	require.NoError(t, err)

	spec, issues := ParseQuery(values)

	category, _ := spec.Category.Get()
	assert.Equal(t, "culturel", category)
	rating, _ := spec.MinRating.Get()
	assert.Equal(t, 4.5, rating)
	assert.True(t, spec.Location.IsSet(), "present but empty stays set")
	assert.False(t, spec.Text.IsSet())
	assert.False(t, spec.Date.IsSet())
	require.Len(t, issues, 1)
	assert.Equal(t, "date", issues[0].Field)
}

func TestParseQuery_BadRating(t *testing.T) {
	spec, issues := ParseQuery(url.Values{"min_rating": {"high"}})

	assert.False(t, spec.MinRating.IsSet())
	require.Len(t, issues, 1)
	assert.Equal(t, ParamMinRating, issues[0].Field)
}
