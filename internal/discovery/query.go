package discovery

import (
	"net/url"
	"strconv"

	"github.com/listenupapp/sortir/internal/domain"
)

// Query parameter names.
const (
	ParamText      = "text"
	ParamCategory  = "category"
	ParamDate      = "date"
	ParamLocation  = "location"
	ParamMinRating = "min_rating"
)

// ParseQuery builds a FilterSpec from URL query parameters.
// A parameter that is absent stays unset; one that is present but empty is a set empty constraint.
// Unparseable values are dropped and reported.
func ParseQuery(values url.Values) (domain.FilterSpec, []FieldIssue) {
	var spec domain.FilterSpec

	str := func(name string) domain.Optional[string] {
		if !values.Has(name) {
			return domain.None[string]()
		}
		return domain.Some(values.Get(name))
	}

	spec.Text = str(ParamText)
	spec.Category = str(ParamCategory)
	spec.Date = str(ParamDate)
	spec.Location = str(ParamLocation)

	var issues []FieldIssue
	if values.Has(ParamMinRating) {
		r, err := strconv.ParseFloat(values.Get(ParamMinRating), 64)
		if err != nil {
			issues = append(issues, FieldIssue{Field: ParamMinRating, Reason: "must be a number"})
		} else {
			spec.MinRating = domain.Some(r)
		}
	}

	spec, more := Normalize(spec)
	return spec, append(issues, more...)
}
