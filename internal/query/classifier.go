// Package query implements the rule-based fallback query engine: free-text
// questions are classified into a fixed set of intents by regex and executed
// as tabular aggregations, producing a text answer and an optional abstract
// visualization request.
package query

import (
	"regexp"

	"github.com/KaramelBytes/datachat-cli/internal/dataset"
	"github.com/KaramelBytes/datachat-cli/internal/viz"
)

const dontUnderstand = "I'm sorry, I don't understand that query. Please try a simpler question about averages, counts, or maximums/minimums of properties in the dataset."

// numericProps are the numeric property names the aggregate intents bind to.
var numericProps = []string{"price", "sqft", "bedrooms", "bathrooms", "year_built", "lot_size"}

type intentFn func(h *Handler, q string, t *dataset.Table) (string, *viz.Request)

// intents are tested in order; the first match wins.
var intents = []struct {
	name string
	re   *regexp.Regexp
	fn   intentFn
}{
	{"average", regexp.MustCompile(`(?:average|avg|mean).*?(price|sqft|bedrooms|bathrooms|year_built|lot_size)`), (*Handler).handleAverage},
	{"maximum", regexp.MustCompile(`(?:maximum|max|highest).*?(price|sqft|bedrooms|bathrooms|year_built|lot_size)`), (*Handler).handleMax},
	{"minimum", regexp.MustCompile(`(?:minimum|min|lowest).*?(price|sqft|bedrooms|bathrooms|year_built|lot_size)`), (*Handler).handleMin},
	{"count", regexp.MustCompile(`(?:count|how many).*?(bedrooms|bathrooms|garage|fireplace|pool)`), (*Handler).handleCount},
	{"region", regexp.MustCompile(`region|area|location`), (*Handler).handleRegion},
	{"chart", regexp.MustCompile(`chart|plot|graph|visualize|visualization`), (*Handler).handleChart},
}

// Handler answers questions against one loaded table using its resolver.
type Handler struct {
	res *dataset.Resolver
}

// NewHandler binds a handler to the resolver of the current table.
func NewHandler(res *dataset.Resolver) *Handler {
	return &Handler{res: res}
}

// Handle classifies the question and executes the matching aggregation.
// Every branch recovers missing columns into a descriptive message; Handle
// never returns an error.
func (h *Handler) Handle(question string, t *dataset.Table, _ *dataset.Summary) (string, *viz.Request) {
	q := lower(question)
	for _, in := range intents {
		if in.re.MatchString(q) {
			return in.fn(h, q, t)
		}
	}
	return dontUnderstand, nil
}
