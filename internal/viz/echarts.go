package viz

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"github.com/KaramelBytes/datachat-cli/internal/dataset"
)

const (
	defaultWidth  = 800
	defaultHeight = 500
)

// theme colors applied to every successful chart.
var themePalette = []string{"#4e79a7", "#f28e2b", "#e15759", "#76b7b4", "#59a14f", "#edc948", "#b07aa1"}

type option = map[string]any

func marshalOption(opt option) (json.RawMessage, error) {
	b, err := json.Marshal(opt)
	if err != nil {
		return nil, fmt.Errorf("marshal chart option: %w", err)
	}
	return b, nil
}

func categoryAxis(name string, labels []string) option {
	return option{"type": "category", "name": name, "data": labels}
}

func valueAxis(name string) option {
	return option{"type": "value", "name": name}
}

// valueCounts tallies occurrences per distinct value of a column, sorted by
// the column's natural order for deterministic output.
func valueCounts(t *dataset.Table, col string) ([]string, []float64) {
	c, ok := t.Column(col)
	if !ok {
		return nil, nil
	}
	counts := make(map[string]int)
	for _, v := range c.Values {
		if v != "" {
			counts[v]++
		}
	}
	labels := make([]string, 0, len(counts))
	for v := range counts {
		labels = append(labels, v)
	}
	dataset.SortNatural(labels)
	vals := make([]float64, len(labels))
	for i, l := range labels {
		vals[i] = float64(counts[l])
	}
	return labels, vals
}

// groupSum sums y per distinct x value, in x's natural order.
func groupSum(t *dataset.Table, xCol, yCol string) ([]string, []float64, error) {
	xc, ok := t.Column(xCol)
	if !ok {
		return nil, nil, fmt.Errorf("column %q not found", xCol)
	}
	yc, ok := t.Column(yCol)
	if !ok {
		return nil, nil, fmt.Errorf("column %q not found", yCol)
	}
	sums := make(map[string]float64)
	for i, xv := range xc.Values {
		if xv == "" {
			continue
		}
		if y, ok := yc.Float(i); ok {
			sums[xv] += y
		}
	}
	if len(sums) == 0 {
		return nil, nil, fmt.Errorf("no numeric %q values to aggregate over %q", yCol, xCol)
	}
	labels := make([]string, 0, len(sums))
	for v := range sums {
		labels = append(labels, v)
	}
	dataset.SortNatural(labels)
	vals := make([]float64, len(labels))
	for i, l := range labels {
		vals[i] = sums[l]
	}
	return labels, vals, nil
}

func barOption(t *dataset.Table, x, y, color string) (option, error) {
	if y == "" {
		labels, vals := valueCounts(t, x)
		return option{
			"xAxis":  categoryAxis(x, labels),
			"yAxis":  valueAxis("Count"),
			"series": []option{{"type": "bar", "data": vals}},
		}, nil
	}
	if color != "" {
		return groupedBarOption(t, x, y, color)
	}
	labels, vals, err := groupSum(t, x, y)
	if err != nil {
		return nil, err
	}
	return option{
		"xAxis":  categoryAxis(x, labels),
		"yAxis":  valueAxis(y),
		"series": []option{{"type": "bar", "data": vals}},
	}, nil
}

// groupedBarOption emits one bar series per distinct color value.
func groupedBarOption(t *dataset.Table, x, y, color string) (option, error) {
	xc, _ := t.Column(x)
	yc, ok := t.Column(y)
	if !ok {
		return nil, fmt.Errorf("column %q not found", y)
	}
	cc, ok := t.Column(color)
	if !ok {
		return nil, fmt.Errorf("column %q not found", color)
	}
	labels := t.DistinctValues(x)
	groups := t.DistinctValues(color)
	pos := make(map[string]int, len(labels))
	for i, l := range labels {
		pos[l] = i
	}
	series := make([]option, 0, len(groups))
	byGroup := make(map[string][]float64, len(groups))
	for _, g := range groups {
		byGroup[g] = make([]float64, len(labels))
	}
	for i, xv := range xc.Values {
		gv := cc.Values[i]
		if xv == "" || gv == "" {
			continue
		}
		if yv, ok := yc.Float(i); ok {
			byGroup[gv][pos[xv]] += yv
		}
	}
	for _, g := range groups {
		series = append(series, option{"type": "bar", "name": g, "data": byGroup[g]})
	}
	return option{
		"xAxis":  categoryAxis(x, labels),
		"yAxis":  valueAxis(y),
		"legend": option{"show": true},
		"series": series,
	}, nil
}

func lineOption(t *dataset.Table, x, y string, area bool) (option, error) {
	series := option{"type": "line"}
	if area {
		series["areaStyle"] = option{}
	}
	if y == CountSentinel {
		labels, vals := valueCounts(t, x)
		series["data"] = vals
		return option{
			"xAxis":  categoryAxis(x, labels),
			"yAxis":  valueAxis("Count"),
			"series": []option{series},
		}, nil
	}
	labels, vals, err := pairedValues(t, x, y)
	if err != nil {
		return nil, err
	}
	series["data"] = vals
	return option{
		"xAxis":  categoryAxis(x, labels),
		"yAxis":  valueAxis(y),
		"series": []option{series},
	}, nil
}

// pairedValues walks rows in x's natural order and returns (label, y) pairs.
func pairedValues(t *dataset.Table, xCol, yCol string) ([]string, []float64, error) {
	xc, ok := t.Column(xCol)
	if !ok {
		return nil, nil, fmt.Errorf("column %q not found", xCol)
	}
	yc, ok := t.Column(yCol)
	if !ok {
		return nil, nil, fmt.Errorf("column %q not found", yCol)
	}
	type pair struct {
		label string
		val   float64
	}
	var pairs []pair
	for i, xv := range xc.Values {
		if xv == "" {
			continue
		}
		if yv, ok := yc.Float(i); ok {
			pairs = append(pairs, pair{xv, yv})
		}
	}
	if len(pairs) == 0 {
		return nil, nil, fmt.Errorf("no numeric %q values paired with %q", yCol, xCol)
	}
	sort.SliceStable(pairs, func(i, j int) bool { return dataset.LessNatural(pairs[i].label, pairs[j].label) })
	labels := make([]string, len(pairs))
	vals := make([]float64, len(pairs))
	for i, p := range pairs {
		labels[i] = p.label
		vals[i] = p.val
	}
	return labels, vals, nil
}

func scatterOption(t *dataset.Table, x, y, color string) (option, error) {
	xc, ok := t.Column(x)
	if !ok {
		return nil, fmt.Errorf("column %q not found", x)
	}
	yc, ok := t.Column(y)
	if !ok {
		return nil, fmt.Errorf("column %q not found", y)
	}
	var cc *dataset.Column
	if color != "" {
		cc, _ = t.Column(color)
	}
	points := make(map[string][][2]float64)
	for i := range xc.Values {
		xv, okx := xc.Float(i)
		yv, oky := yc.Float(i)
		if !okx || !oky {
			continue
		}
		key := ""
		if cc != nil {
			key = cc.Values[i]
		}
		points[key] = append(points[key], [2]float64{xv, yv})
	}
	if len(points) == 0 {
		return nil, fmt.Errorf("no numeric point pairs for %q vs %q", x, y)
	}
	keys := make([]string, 0, len(points))
	for k := range points {
		keys = append(keys, k)
	}
	dataset.SortNatural(keys)
	series := make([]option, 0, len(keys))
	for _, k := range keys {
		s := option{"type": "scatter", "data": points[k]}
		if k != "" {
			s["name"] = k
		}
		series = append(series, s)
	}
	opt := option{
		"xAxis":  valueAxis(x),
		"yAxis":  valueAxis(y),
		"series": series,
	}
	if len(keys) > 1 {
		opt["legend"] = option{"show": true}
	}
	return opt, nil
}

func pieOption(t *dataset.Table, x, y string) (option, error) {
	var labels []string
	var vals []float64
	if y != "" {
		var err error
		labels, vals, err = groupSum(t, x, y)
		if err != nil {
			return nil, err
		}
	} else {
		labels, vals = valueCounts(t, x)
	}
	data := make([]option, len(labels))
	for i := range labels {
		data[i] = option{"name": labels[i], "value": vals[i]}
	}
	return option{
		"series": []option{{"type": "pie", "radius": "60%", "data": data}},
		"legend": option{"show": true},
	}, nil
}

func histogramOption(t *dataset.Table, x, y string) (option, error) {
	xc, ok := t.Column(x)
	if !ok {
		return nil, fmt.Errorf("column %q not found", x)
	}
	var yc *dataset.Column
	if y != "" {
		yc, _ = t.Column(y)
	}
	var xs []float64
	var ws []float64
	for i := range xc.Values {
		xv, okx := xc.Float(i)
		if !okx {
			continue
		}
		w := 1.0
		if yc != nil {
			if yv, oky := yc.Float(i); oky {
				w = yv
			} else {
				continue
			}
		}
		xs = append(xs, xv)
		ws = append(ws, w)
	}
	if len(xs) == 0 {
		return nil, fmt.Errorf("column %q has no numeric values to bin", x)
	}
	lo, hi := xs[0], xs[0]
	for _, v := range xs {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	bins := int(math.Sqrt(float64(len(xs))))
	if bins < 5 {
		bins = 5
	}
	if bins > 30 {
		bins = 30
	}
	width := (hi - lo) / float64(bins)
	if width == 0 {
		width = 1
		bins = 1
	}
	counts := make([]float64, bins)
	labels := make([]string, bins)
	for i := range labels {
		labels[i] = fmt.Sprintf("%.4g–%.4g", lo+float64(i)*width, lo+float64(i+1)*width)
	}
	for i, v := range xs {
		b := int((v - lo) / width)
		if b >= bins {
			b = bins - 1
		}
		counts[b] += ws[i]
	}
	yName := "Count"
	if y != "" {
		yName = y
	}
	return option{
		"xAxis":  categoryAxis(x, labels),
		"yAxis":  valueAxis(yName),
		"series": []option{{"type": "bar", "barWidth": "95%", "data": counts}},
	}, nil
}

// fiveNumber returns [min, q1, median, q3, max] for a sorted copy of vals.
func fiveNumber(vals []float64) [5]float64 {
	cp := make([]float64, len(vals))
	copy(cp, vals)
	sort.Float64s(cp)
	return [5]float64{cp[0], quantile(cp, 0.25), quantile(cp, 0.5), quantile(cp, 0.75), cp[len(cp)-1]}
}

func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	w := pos - float64(lo)
	return sorted[lo]*(1-w) + sorted[hi]*w
}

func boxOption(t *dataset.Table, x, y string) (option, error) {
	if y == "" {
		vals, ok := t.Floats(x)
		if !ok || len(vals) == 0 {
			return nil, fmt.Errorf("column %q has no numeric values for a distribution", x)
		}
		fn := fiveNumber(vals)
		return option{
			"xAxis":  categoryAxis("", []string{x}),
			"yAxis":  valueAxis(x),
			"series": []option{{"type": "boxplot", "data": [][5]float64{fn}}},
		}, nil
	}
	xc, ok := t.Column(x)
	if !ok {
		return nil, fmt.Errorf("column %q not found", x)
	}
	yc, ok := t.Column(y)
	if !ok {
		return nil, fmt.Errorf("column %q not found", y)
	}
	byGroup := make(map[string][]float64)
	for i, xv := range xc.Values {
		if xv == "" {
			continue
		}
		if yv, ok := yc.Float(i); ok {
			byGroup[xv] = append(byGroup[xv], yv)
		}
	}
	if len(byGroup) == 0 {
		return nil, fmt.Errorf("no numeric %q values to group by %q", y, x)
	}
	labels := make([]string, 0, len(byGroup))
	for k := range byGroup {
		labels = append(labels, k)
	}
	dataset.SortNatural(labels)
	data := make([][5]float64, len(labels))
	for i, l := range labels {
		data[i] = fiveNumber(byGroup[l])
	}
	return option{
		"xAxis":  categoryAxis(x, labels),
		"yAxis":  valueAxis(y),
		"series": []option{{"type": "boxplot", "data": data}},
	}, nil
}

func heatmapOption(t *dataset.Table, x, y, color string) (option, error) {
	xc, ok := t.Column(x)
	if !ok {
		return nil, fmt.Errorf("column %q not found", x)
	}
	yc, ok := t.Column(y)
	if !ok {
		return nil, fmt.Errorf("column %q not found", y)
	}
	var cc *dataset.Column
	if color != "" {
		cc, _ = t.Column(color)
	}
	xLabels := t.DistinctValues(x)
	yLabels := t.DistinctValues(y)
	xi := make(map[string]int, len(xLabels))
	yi := make(map[string]int, len(yLabels))
	for i, l := range xLabels {
		xi[l] = i
	}
	for i, l := range yLabels {
		yi[l] = i
	}
	sum := make(map[[2]int]float64)
	cnt := make(map[[2]int]int)
	for i, xv := range xc.Values {
		yv := yc.Values[i]
		if xv == "" || yv == "" {
			continue
		}
		key := [2]int{xi[xv], yi[yv]}
		if cc != nil {
			cv, okc := cc.Float(i)
			if !okc {
				continue
			}
			sum[key] += cv
		} else {
			sum[key]++
		}
		cnt[key]++
	}
	if len(cnt) == 0 {
		return nil, fmt.Errorf("no data to pivot %q by %q", x, y)
	}
	var data [][3]float64
	maxVal := math.Inf(-1)
	for key, s := range sum {
		v := s
		if cc != nil {
			v = s / float64(cnt[key])
		}
		data = append(data, [3]float64{float64(key[0]), float64(key[1]), v})
		if v > maxVal {
			maxVal = v
		}
	}
	sort.Slice(data, func(i, j int) bool {
		if data[i][0] != data[j][0] {
			return data[i][0] < data[j][0]
		}
		return data[i][1] < data[j][1]
	})
	return option{
		"xAxis":     categoryAxis(x, xLabels),
		"yAxis":     option{"type": "category", "name": y, "data": yLabels},
		"visualMap": option{"min": 0, "max": maxVal, "calculable": true},
		"series":    []option{{"type": "heatmap", "data": data}},
	}, nil
}
