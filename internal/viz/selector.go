package viz

import (
	"fmt"
	"runtime/debug"
	"strings"

	"github.com/KaramelBytes/datachat-cli/internal/dataset"
)

// roleAliases drives heuristic column discovery: semantic roles in priority
// order, each with substrings matched case-insensitively against column names.
var roleAliases = []struct {
	role    string
	aliases []string
}{
	{"category", []string{"category", "type", "class", "segment", "group"}},
	{"region", []string{"region", "location", "area", "neighborhood", "city", "state", "country", "zone"}},
	{"product", []string{"product", "item", "sku", "name"}},
	{"status", []string{"status", "condition", "stage"}},
	{"value", []string{"value", "amount", "total", "revenue", "sales"}},
	{"quantity", []string{"quantity", "count", "qty", "units", "number"}},
	{"price", []string{"price", "cost"}},
	{"size", []string{"size", "sqft", "square"}},
	{"date", []string{"date", "time", "month", "day"}},
	{"year", []string{"year"}},
}

// discoverColumn scans table columns for a case-insensitive substring match
// against role aliases, in role priority order. wantKind restricts candidates
// ("" accepts any kind); used columns are skipped.
func discoverColumn(t *dataset.Table, wantKind dataset.Kind, used map[string]bool) string {
	for _, r := range roleAliases {
		for _, alias := range r.aliases {
			for i := range t.Columns {
				c := &t.Columns[i]
				if used[strings.ToLower(c.Name)] {
					continue
				}
				if wantKind != "" && c.Kind != wantKind {
					continue
				}
				if strings.Contains(strings.ToLower(c.Name), alias) {
					return c.Name
				}
			}
		}
	}
	return ""
}

// Render resolves the request's columns against the table, dispatches on the
// chart kind, and converts every failure into a Result with a placeholder
// figure. It never panics past this boundary and never returns a nil figure.
func Render(t *dataset.Table, res *dataset.Resolver, req Request) Result {
	if t == nil || t.RowCount() == 0 {
		return failure("no data loaded", "")
	}
	kind := Kind(strings.ToLower(strings.TrimSpace(string(req.Kind))))

	x, y, color := req.X, req.Y, req.Color
	if x != "" {
		x = res.Resolve(x)
	}
	if y != "" && y != CountSentinel {
		y = res.Resolve(y)
	}
	if color != "" {
		color = res.Resolve(color)
	}

	used := map[string]bool{
		strings.ToLower(x):     x != "",
		strings.ToLower(y):     y != "" && y != CountSentinel,
		strings.ToLower(color): color != "",
	}
	if x == "" {
		x = discoverColumn(t, "", used)
		used[strings.ToLower(x)] = x != ""
	}
	if y == "" && kind != KindCount {
		y = discoverColumn(t, dataset.KindNumeric, used)
		used[strings.ToLower(y)] = y != ""
	}
	if color == "" && kind != KindPie && kind != KindCount {
		color = discoverColumn(t, dataset.KindCategorical, used)
	}

	if x == "" {
		return failure("couldn't determine a column to chart", availableColumns(t))
	}
	if !t.HasColumn(x) {
		return failure(fmt.Sprintf("column %q not found in the data", x), availableColumns(t))
	}
	if y != "" && y != CountSentinel && !t.HasColumn(y) {
		return failure(fmt.Sprintf("column %q not found in the data", y), availableColumns(t))
	}
	if color != "" && !t.HasColumn(color) {
		// styling hint only, drop it rather than fail the chart
		color = ""
	}

	switch kind {
	case KindLine, KindArea, KindScatter, KindHeatmap:
		if y == "" {
			return failure(fmt.Sprintf("a %s chart requires a y-axis column", kind), availableColumns(t))
		}
	}
	if kind == KindScatter && (y == CountSentinel) {
		return failure("a scatter plot requires a y-axis column", availableColumns(t))
	}

	var build func() (option, error)
	var warning string
	switch kind {
	case KindBar:
		yy := y
		if yy == CountSentinel {
			yy = ""
		}
		build = func() (option, error) { return barOption(t, x, yy, color) }
	case KindLine:
		build = func() (option, error) { return lineOption(t, x, y, false) }
	case KindArea:
		if y == CountSentinel {
			return failure("an area chart requires a y-axis column", availableColumns(t))
		}
		build = func() (option, error) { return lineOption(t, x, y, true) }
	case KindScatter:
		build = func() (option, error) { return scatterOption(t, x, y, color) }
	case KindPie:
		yy := y
		if yy == CountSentinel {
			yy = ""
		}
		build = func() (option, error) { return pieOption(t, x, yy) }
	case KindHistogram:
		yy := y
		if yy == CountSentinel {
			yy = ""
		}
		build = func() (option, error) { return histogramOption(t, x, yy) }
	case KindBox:
		yy := y
		if yy == CountSentinel {
			yy = ""
		}
		build = func() (option, error) { return boxOption(t, x, yy) }
	case KindViolin:
		yy := y
		if yy == CountSentinel {
			yy = ""
		}
		warning = "violin charts are rendered as box-plot distributions"
		build = func() (option, error) { return boxOption(t, x, yy) }
	case KindHeatmap:
		if y == CountSentinel {
			return failure("a heatmap requires a y-axis column", availableColumns(t))
		}
		build = func() (option, error) { return heatmapOption(t, x, y, color) }
	case KindCount:
		variant := "bar"
		if v, ok := req.Params["variant"].(string); ok && v != "" {
			variant = v
		}
		if variant == "pie" {
			build = func() (option, error) { return pieOption(t, x, "") }
		} else {
			build = func() (option, error) { return barOption(t, x, "", "") }
		}
	default:
		return failure(fmt.Sprintf("unsupported visualization type %q", req.Kind), "")
	}

	opt, err := buildSafely(build)
	if err != nil {
		return failure(fmt.Sprintf("couldn't build the %s chart", kind), err.Error())
	}
	finalizeOption(opt, req.Title)
	fig, err := marshalOption(opt)
	if err != nil {
		return failure("couldn't encode the chart", err.Error())
	}
	return Result{Figure: fig, Warning: warning}
}

// buildSafely runs a chart builder, converting a panic into an error so bad
// data can never take down a caller.
func buildSafely(build func() (option, error)) (opt option, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("chart construction panicked: %v\n%s", r, debug.Stack())
		}
	}()
	return build()
}

// finalizeOption applies the uniform theme, dimensions, and title.
func finalizeOption(opt option, title string) {
	if title != "" {
		opt["title"] = option{"text": title, "left": "center"}
	}
	opt["color"] = themePalette
	opt["width"] = defaultWidth
	opt["height"] = defaultHeight
	opt["tooltip"] = option{"show": true}
}

func availableColumns(t *dataset.Table) string {
	return "available columns: " + strings.Join(t.ColumnNames(), ", ")
}
