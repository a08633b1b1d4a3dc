package query

import (
	"fmt"
	"strings"

	"github.com/KaramelBytes/datachat-cli/internal/dataset"
	"github.com/KaramelBytes/datachat-cli/internal/viz"
)

func lower(s string) string { return strings.ToLower(s) }

func missingColumn(logical string, t *dataset.Table) string {
	return fmt.Sprintf("I couldn't find the '%s' column in your data. Available columns are: %s",
		logical, strings.Join(t.ColumnNames(), ", "))
}

func missingColumnA(logical string, t *dataset.Table) string {
	return fmt.Sprintf("I couldn't find a '%s' column in your data. Available columns are: %s",
		logical, strings.Join(t.ColumnNames(), ", "))
}

func (h *Handler) handleAverage(q string, t *dataset.Table) (string, *viz.Request) {
	for _, prop := range numericProps {
		if !strings.Contains(q, prop) {
			continue
		}
		actual := h.res.Resolve(prop)
		if !t.HasColumn(actual) {
			return missingColumn(prop, t), nil
		}
		vals, _ := t.Floats(actual)
		if len(vals) == 0 {
			return fmt.Sprintf("The '%s' column has no numeric values to average.", actual), nil
		}
		avg := mean(vals)
		formatted := formatValue(prop, avg)

		if strings.Contains(q, "by region") || strings.Contains(q, "by area") {
			regionCol := h.res.Resolve("region")
			if !t.HasColumn(regionCol) {
				return fmt.Sprintf("The average %s overall is %s. I couldn't find a 'region' column in your data to group by. Available columns are: %s",
					prop, formatted, strings.Join(t.ColumnNames(), ", ")), nil
			}
			groups, err := groupMean(t, regionCol, actual)
			if err != nil {
				return fmt.Sprintf("The average %s overall is %s. I couldn't group by region due to an error.", prop, formatted), nil
			}
			var b strings.Builder
			fmt.Fprintf(&b, "The average %s overall is %s.\n\nBreakdown by region:\n", prop, formatted)
			for _, g := range groups {
				fmt.Fprintf(&b, "- %s: %s\n", g.Key, formatValue(prop, g.Mean))
			}
			return b.String(), &viz.Request{
				Kind:  viz.KindBar,
				X:     regionCol,
				Y:     actual,
				Title: fmt.Sprintf("Average %s by region", prop),
			}
		}
		return fmt.Sprintf("The average %s is %s.", prop, formatted), nil
	}
	return "Please specify what property you want the average of (price, sqft, bedrooms, etc.).", nil
}

func (h *Handler) handleMax(q string, t *dataset.Table) (string, *viz.Request) {
	return h.handleExtreme(q, t, "maximum", func(a, b float64) bool { return a > b })
}

func (h *Handler) handleMin(q string, t *dataset.Table) (string, *viz.Request) {
	return h.handleExtreme(q, t, "minimum", func(a, b float64) bool { return a < b })
}

// handleExtreme reports the max or min of a property plus a detail suffix
// built from whichever of id/bedrooms/bathrooms/region columns exist, taken
// from the first row achieving the extreme.
func (h *Handler) handleExtreme(q string, t *dataset.Table, label string, better func(a, b float64) bool) (string, *viz.Request) {
	for _, prop := range numericProps {
		if !strings.Contains(q, prop) {
			continue
		}
		actual := h.res.Resolve(prop)
		if !t.HasColumn(actual) {
			return missingColumn(prop, t), nil
		}
		c, _ := t.Column(actual)
		bestRow := -1
		var bestVal float64
		for i := 0; i < t.RowCount(); i++ {
			v, ok := c.Float(i)
			if !ok {
				continue
			}
			if bestRow < 0 || better(v, bestVal) {
				bestRow, bestVal = i, v
			}
		}
		if bestRow < 0 {
			return fmt.Sprintf("The '%s' column has no numeric values.", actual), nil
		}
		result := fmt.Sprintf("The %s %s is %s", label, prop, formatValue(prop, bestVal))
		var details []string
		if idCol := h.res.Resolve("id"); t.HasColumn(idCol) {
			dc, _ := t.Column(idCol)
			details = append(details, fmt.Sprintf("Property ID: %s", dc.Values[bestRow]))
		}
		if bedCol := h.res.Resolve("bedrooms"); t.HasColumn(bedCol) {
			dc, _ := t.Column(bedCol)
			details = append(details, fmt.Sprintf("%s bed", dc.Values[bestRow]))
		}
		if bathCol := h.res.Resolve("bathrooms"); t.HasColumn(bathCol) {
			dc, _ := t.Column(bathCol)
			details = append(details, fmt.Sprintf("%s bath", dc.Values[bestRow]))
		}
		if regionCol := h.res.Resolve("region"); t.HasColumn(regionCol) {
			dc, _ := t.Column(regionCol)
			details = append(details, fmt.Sprintf("%s region", dc.Values[bestRow]))
		}
		if len(details) > 0 {
			result += fmt.Sprintf(" (%s)", strings.Join(details, ", "))
		}
		return result + ".", nil
	}
	return fmt.Sprintf("Please specify what property you want the %s of (price, sqft, bedrooms, etc.).", label), nil
}

// countFeatures are checked in this fixed order.
var countFeatures = []struct {
	logical string
	noun    string
	title   string
}{
	{"bedrooms", "bedrooms", "Count of properties by bedroom count"},
	{"bathrooms", "bathrooms", "Count of properties by bathroom count"},
	{"garage", "garage spaces", "Count of properties by garage spaces"},
	{"fireplace", "fireplaces", "Count of properties by number of fireplaces"},
	{"pool", "", "Properties with/without pools"},
}

func (h *Handler) handleCount(q string, t *dataset.Table) (string, *viz.Request) {
	for _, f := range countFeatures {
		if !strings.Contains(q, f.logical) {
			continue
		}
		actual := h.res.Resolve(f.logical)
		if !t.HasColumn(actual) {
			return missingColumnA(f.logical, t), nil
		}
		if f.logical == "pool" {
			c, _ := t.Column(actual)
			var with, without int
			for i := 0; i < t.RowCount(); i++ {
				if v, ok := c.Float(i); ok {
					if v == 1 {
						with++
					} else if v == 0 {
						without++
					}
				}
			}
			req := &viz.Request{Kind: viz.KindPie, X: actual, Y: viz.CountSentinel, Title: f.title}
			return fmt.Sprintf("There are %d properties with a pool and %d properties without a pool.", with, without), req
		}
		counts := valueCounts(t, actual)
		var b strings.Builder
		fmt.Fprintf(&b, "%s:\n", f.title)
		for _, vc := range counts {
			fmt.Fprintf(&b, "- %s %s: %d properties\n", vc.Value, f.noun, vc.Count)
		}
		req := &viz.Request{Kind: viz.KindBar, X: actual, Y: viz.CountSentinel, Title: f.title}
		return b.String(), req
	}
	return "Please specify what feature you want to count (bedrooms, bathrooms, garage, fireplace, pool).", nil
}

func (h *Handler) handleRegion(q string, t *dataset.Table) (string, *viz.Request) {
	regionCol := h.res.Resolve("region")
	if !t.HasColumn(regionCol) {
		return missingColumnA("region", t), nil
	}
	switch {
	case strings.Contains(q, "count") || strings.Contains(q, "how many"):
		counts := valueCounts(t, regionCol)
		var b strings.Builder
		b.WriteString("Count of properties by region:\n")
		for _, vc := range counts {
			fmt.Fprintf(&b, "- %s: %d properties\n", vc.Value, vc.Count)
		}
		req := &viz.Request{Kind: viz.KindBar, X: regionCol, Y: viz.CountSentinel, Title: "Count of properties by region"}
		return b.String(), req
	case strings.Contains(q, "average price") || strings.Contains(q, "avg price"):
		priceCol := h.res.Resolve("price")
		if !t.HasColumn(priceCol) {
			return missingColumnA("price", t), nil
		}
		groups, err := groupMean(t, regionCol, priceCol)
		if err != nil {
			return "I couldn't calculate average prices by region due to an error.", nil
		}
		var b strings.Builder
		b.WriteString("Average price by region:\n")
		for _, g := range groups {
			fmt.Fprintf(&b, "- %s: %s\n", g.Key, money(g.Mean))
		}
		req := &viz.Request{Kind: viz.KindBar, X: regionCol, Y: priceCol, Title: "Average price by region"}
		return b.String(), req
	}
	return "The data contains properties in different regions. You can ask about counts or average prices by region.", nil
}

func (h *Handler) handleChart(q string, t *dataset.Table) (string, *viz.Request) {
	kind := viz.KindBar
	switch {
	case strings.Contains(q, "bar"):
		kind = viz.KindBar
	case strings.Contains(q, "pie"):
		kind = viz.KindPie
	case strings.Contains(q, "line"):
		kind = viz.KindLine
	case strings.Contains(q, "scatter"):
		kind = viz.KindScatter
	}

	// columns explicitly named in the question win
	var columns []string
	for _, name := range t.ColumnNames() {
		if strings.Contains(q, strings.ToLower(name)) {
			columns = append(columns, name)
			if len(columns) == 2 {
				break
			}
		}
	}

	if len(columns) == 0 {
		switch kind {
		case viz.KindBar, viz.KindPie:
			for i := range t.Columns {
				c := &t.Columns[i]
				if c.Kind != dataset.KindNumeric || len(t.DistinctValues(c.Name)) < 10 {
					columns = append(columns, c.Name)
					break
				}
			}
			if len(columns) == 1 && kind == viz.KindBar {
				for i := range t.Columns {
					c := &t.Columns[i]
					if c.Kind == dataset.KindNumeric && !strings.EqualFold(c.Name, columns[0]) {
						columns = append(columns, c.Name)
						break
					}
				}
			}
		case viz.KindLine, viz.KindScatter:
			for i := range t.Columns {
				if t.Columns[i].Kind == dataset.KindNumeric {
					columns = append(columns, t.Columns[i].Name)
					if len(columns) == 2 {
						break
					}
				}
			}
		}
		if len(columns) == 0 {
			names := t.ColumnNames()
			if len(names) > 2 {
				names = names[:2]
			}
			columns = names
		}
	}
	if len(columns) == 0 {
		return "The table has no columns to chart.", nil
	}

	req := &viz.Request{Kind: kind, X: columns[0]}
	if len(columns) > 1 {
		req.Y = columns[1]
	} else if kind == viz.KindBar || kind == viz.KindPie {
		// a single column charts its value distribution
		req.Y = viz.CountSentinel
	}
	req.Title = fmt.Sprintf("%s Chart of %s", capitalize(string(kind)), strings.Join(columns, " vs "))

	answer := fmt.Sprintf("Here's a %s chart visualizing ", kind)
	if len(columns) == 1 {
		answer += fmt.Sprintf("the distribution of %s.", columns[0])
	} else {
		answer += fmt.Sprintf("%s vs %s.", columns[0], columns[1])
	}
	return answer, req
}

// groupMean averages valCol per distinct groupCol value, sorted by the
// grouping column's natural order.
type groupAvg struct {
	Key  string
	Mean float64
}

func groupMean(t *dataset.Table, groupCol, valCol string) ([]groupAvg, error) {
	gc, ok := t.Column(groupCol)
	if !ok {
		return nil, fmt.Errorf("column %q not found", groupCol)
	}
	vc, ok := t.Column(valCol)
	if !ok {
		return nil, fmt.Errorf("column %q not found", valCol)
	}
	sums := make(map[string]float64)
	counts := make(map[string]int)
	for i, g := range gc.Values {
		if g == "" {
			continue
		}
		if v, okv := vc.Float(i); okv {
			sums[g] += v
			counts[g]++
		}
	}
	if len(counts) == 0 {
		return nil, fmt.Errorf("no numeric %q values to group by %q", valCol, groupCol)
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	dataset.SortNatural(keys)
	out := make([]groupAvg, len(keys))
	for i, k := range keys {
		out[i] = groupAvg{Key: k, Mean: sums[k] / float64(counts[k])}
	}
	return out, nil
}

func valueCounts(t *dataset.Table, col string) []dataset.ValueCount {
	c, _ := t.Column(col)
	counts := make(map[string]int)
	for _, v := range c.Values {
		if v != "" {
			counts[v]++
		}
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	dataset.SortNatural(keys)
	out := make([]dataset.ValueCount, len(keys))
	for i, k := range keys {
		out[i] = dataset.ValueCount{Value: k, Count: counts[k]}
	}
	return out
}

func mean(vals []float64) float64 {
	var sum float64
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
