package viz_test

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/KaramelBytes/datachat-cli/internal/dataset"
	"github.com/KaramelBytes/datachat-cli/internal/viz"
)

func load(t *testing.T, csv string) (*dataset.Table, *dataset.Resolver) {
	t.Helper()
	tbl, err := dataset.Load(strings.NewReader(csv), "test.csv")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	return tbl, dataset.NewResolver(tbl)
}

func decodeFigure(t *testing.T, res viz.Result) map[string]any {
	t.Helper()
	if len(res.Figure) == 0 {
		t.Fatal("result has a nil figure")
	}
	var opt map[string]any
	if err := json.Unmarshal(res.Figure, &opt); err != nil {
		t.Fatalf("figure is not valid JSON: %v", err)
	}
	return opt
}

func seriesData(t *testing.T, opt map[string]any, idx int) []any {
	t.Helper()
	series, ok := opt["series"].([]any)
	if !ok || len(series) <= idx {
		t.Fatalf("figure has no series[%d]: %v", idx, opt["series"])
	}
	s := series[idx].(map[string]any)
	data, ok := s["data"].([]any)
	if !ok {
		t.Fatalf("series[%d] has no data array", idx)
	}
	return data
}

// A table holding only one categorical column still produces a bar chart,
// falling back to per-value counts when no numeric y exists.
func TestRenderBarCountFallback(t *testing.T) {
	var b strings.Builder
	b.WriteString("Category\n")
	cats := []string{"alpha", "beta", "gamma", "delta", "epsilon"}
	for i := 0; i < 42; i++ {
		b.WriteString(cats[i%5] + "\n")
	}
	tbl, res := load(t, b.String())

	out := viz.Render(tbl, res, viz.Request{Kind: viz.KindBar})
	if !out.OK() {
		t.Fatalf("render failed: %s (%s)", out.Err, out.Details)
	}
	opt := decodeFigure(t, out)
	data := seriesData(t, opt, 0)
	if len(data) != 5 {
		t.Fatalf("got %d bars, want 5", len(data))
	}
	var sum float64
	for _, v := range data {
		sum += v.(float64)
	}
	if sum != 42 {
		t.Fatalf("bar counts sum to %v, want 42", sum)
	}
}

func TestRenderResolvesLogicalColumns(t *testing.T) {
	tbl, res := load(t, "Neighborhood,Listing_Price\nDowntown,100\nUptown,200\nDowntown,50\n")
	out := viz.Render(tbl, res, viz.Request{Kind: viz.KindBar, X: "region", Y: "price"})
	if !out.OK() {
		t.Fatalf("render failed: %s (%s)", out.Err, out.Details)
	}
	opt := decodeFigure(t, out)
	xAxis := opt["xAxis"].(map[string]any)
	if xAxis["name"] != "Neighborhood" {
		t.Fatalf("x axis = %v, want the resolved Neighborhood column", xAxis["name"])
	}
	data := seriesData(t, opt, 0)
	var sum float64
	for _, v := range data {
		sum += v.(float64)
	}
	if sum != 350 {
		t.Fatalf("grouped sums total %v, want 350", sum)
	}
}

func TestRenderMissingYAxisKinds(t *testing.T) {
	tbl, res := load(t, "Category,Status\nA,open\nB,closed\n")
	for _, kind := range []viz.Kind{viz.KindLine, viz.KindArea, viz.KindScatter, viz.KindHeatmap} {
		out := viz.Render(tbl, res, viz.Request{Kind: kind})
		if out.OK() {
			t.Fatalf("%s without a numeric column should fail", kind)
		}
		if !strings.Contains(out.Err, "y-axis") {
			t.Fatalf("%s error = %q", kind, out.Err)
		}
		opt := decodeFigure(t, out)
		if _, ok := opt["graphic"]; !ok {
			t.Fatalf("%s failure figure is not a placeholder: %v", kind, opt)
		}
	}
}

func TestRenderScatterRejectsCountSentinel(t *testing.T) {
	tbl, res := load(t, "Sqft,Price\n900,100\n1100,200\n")
	out := viz.Render(tbl, res, viz.Request{Kind: viz.KindScatter, X: "Sqft", Y: viz.CountSentinel})
	if out.OK() || !strings.Contains(out.Err, "y-axis") {
		t.Fatalf("result = %+v", out)
	}
}

func TestRenderLineCountSentinel(t *testing.T) {
	tbl, res := load(t, "Year\n2020\n2021\n2021\n2022\n")
	out := viz.Render(tbl, res, viz.Request{Kind: viz.KindLine, X: "Year", Y: viz.CountSentinel})
	if !out.OK() {
		t.Fatalf("render failed: %s (%s)", out.Err, out.Details)
	}
	opt := decodeFigure(t, out)
	data := seriesData(t, opt, 0)
	want := []float64{1, 2, 1}
	if len(data) != len(want) {
		t.Fatalf("got %d points, want %d", len(data), len(want))
	}
	for i, w := range want {
		if data[i].(float64) != w {
			t.Fatalf("point %d = %v, want %v", i, data[i], w)
		}
	}
}

func TestRenderPieCountsSumToRows(t *testing.T) {
	tbl, res := load(t, "Region\nNorth\nSouth\nNorth\nEast\n")
	out := viz.Render(tbl, res, viz.Request{Kind: viz.KindPie, X: "Region", Title: "Regions"})
	if !out.OK() {
		t.Fatalf("render failed: %s", out.Err)
	}
	opt := decodeFigure(t, out)
	data := seriesData(t, opt, 0)
	var sum float64
	for _, slice := range data {
		sum += slice.(map[string]any)["value"].(float64)
	}
	if sum != float64(tbl.RowCount()) {
		t.Fatalf("pie values sum to %v, want %d", sum, tbl.RowCount())
	}
	title := opt["title"].(map[string]any)
	if title["text"] != "Regions" {
		t.Fatalf("title = %v", title["text"])
	}
}

func TestRenderViolinFallsBackToBox(t *testing.T) {
	tbl, res := load(t, "Price\n100\n200\n300\n400\n")
	out := viz.Render(tbl, res, viz.Request{Kind: viz.KindViolin, X: "Price"})
	if !out.OK() {
		t.Fatalf("render failed: %s (%s)", out.Err, out.Details)
	}
	if out.Warning == "" || !strings.Contains(out.Warning, "box") {
		t.Fatalf("warning = %q, want a box-plot advisory", out.Warning)
	}
	opt := decodeFigure(t, out)
	s := opt["series"].([]any)[0].(map[string]any)
	if s["type"] != "boxplot" {
		t.Fatalf("series type = %v", s["type"])
	}
}

func TestRenderWeightedHistogram(t *testing.T) {
	tbl, res := load(t, "Sqft,Price\n900,100\n1100,200\n950,300\n")
	out := viz.Render(tbl, res, viz.Request{Kind: viz.KindHistogram, X: "Sqft", Y: "Price"})
	if !out.OK() {
		t.Fatalf("render failed: %s (%s)", out.Err, out.Details)
	}
	opt := decodeFigure(t, out)
	if name := opt["yAxis"].(map[string]any)["name"]; name != "Price" {
		t.Fatalf("weighted histogram y axis = %v, want Price", name)
	}
	var total float64
	for _, v := range seriesData(t, opt, 0) {
		total += v.(float64)
	}
	if total != 600 {
		t.Fatalf("bin weights sum to %v, want the total Price of 600", total)
	}
}

func TestRenderHeatmapCounts(t *testing.T) {
	tbl, res := load(t, "Region,Status\nNorth,open\nNorth,closed\nSouth,open\n")
	out := viz.Render(tbl, res, viz.Request{Kind: viz.KindHeatmap, X: "Region", Y: "Status"})
	if !out.OK() {
		t.Fatalf("render failed: %s (%s)", out.Err, out.Details)
	}
	opt := decodeFigure(t, out)
	var total float64
	for _, cell := range seriesData(t, opt, 0) {
		total += cell.([]any)[2].(float64)
	}
	if total != float64(tbl.RowCount()) {
		t.Fatalf("heatmap cell counts sum to %v, want %d", total, tbl.RowCount())
	}
}

func TestRenderHeatmapMeanOfColor(t *testing.T) {
	tbl, res := load(t, "Region,Status,Score\nNorth,open,10\nNorth,open,30\nSouth,closed,50\n")
	out := viz.Render(tbl, res, viz.Request{Kind: viz.KindHeatmap, X: "Region", Y: "Status", Color: "Score"})
	if !out.OK() {
		t.Fatalf("render failed: %s (%s)", out.Err, out.Details)
	}
	opt := decodeFigure(t, out)
	data := seriesData(t, opt, 0)
	if len(data) != 2 {
		t.Fatalf("got %d cells, want 2", len(data))
	}
	// cells sorted by x then y index: (North, open) then (South, closed)
	if v := data[0].([]any)[2].(float64); v != 20 {
		t.Fatalf("North/open cell = %v, want the mean Score 20", v)
	}
	if v := data[1].([]any)[2].(float64); v != 50 {
		t.Fatalf("South/closed cell = %v, want 50", v)
	}
}

func TestRenderUnsupportedKind(t *testing.T) {
	tbl, res := load(t, "Price\n100\n")
	out := viz.Render(tbl, res, viz.Request{Kind: "hologram", X: "Price"})
	if out.OK() || !strings.Contains(out.Err, "unsupported visualization type") {
		t.Fatalf("result = %+v", out)
	}
	decodeFigure(t, out)
}

func TestRenderUnknownColumn(t *testing.T) {
	tbl, res := load(t, "Price\n100\n")
	out := viz.Render(tbl, res, viz.Request{Kind: viz.KindBar, X: "mileage"})
	if out.OK() {
		t.Fatal("expected a failure for an unresolvable column")
	}
	if !strings.Contains(out.Details, "available columns") {
		t.Fatalf("details = %q", out.Details)
	}
}

func TestRenderEmptyTable(t *testing.T) {
	out := viz.Render(nil, nil, viz.Request{Kind: viz.KindBar})
	if out.OK() || !strings.Contains(out.Err, "no data") {
		t.Fatalf("result = %+v", out)
	}
	decodeFigure(t, out)
}

func TestRenderCountPieVariant(t *testing.T) {
	tbl, res := load(t, "has_pool\n1\n0\n1\n")
	out := viz.Render(tbl, res, viz.Request{
		Kind:   viz.KindCount,
		X:      "has_pool",
		Params: map[string]any{"variant": "pie"},
	})
	if !out.OK() {
		t.Fatalf("render failed: %s", out.Err)
	}
	opt := decodeFigure(t, out)
	s := opt["series"].([]any)[0].(map[string]any)
	if s["type"] != "pie" {
		t.Fatalf("series type = %v, want pie", s["type"])
	}
}

func TestDecodeRequestNamedShape(t *testing.T) {
	req, err := viz.DecodeRequest([]byte(`{"type":"Bar","x_column":"Region","y_column":"Price","color_by":"Status","title":"T"}`))
	if err != nil {
		t.Fatal(err)
	}
	if req.Kind != viz.KindBar || req.X != "Region" || req.Y != "Price" || req.Color != "Status" || req.Title != "T" {
		t.Fatalf("req = %+v", req)
	}
}

func TestDecodeRequestLegacyColumns(t *testing.T) {
	req, err := viz.DecodeRequest([]byte(`{"type":"bar","columns":["Region","Price"]}`))
	if err != nil {
		t.Fatal(err)
	}
	if req.X != "Region" || req.Y != "Price" {
		t.Fatalf("req = %+v", req)
	}

	req, err = viz.DecodeRequest([]byte(`{"type":"bar","columns":["Bedrooms","Count"]}`))
	if err != nil {
		t.Fatal(err)
	}
	if req.X != "Bedrooms" || req.Y != viz.CountSentinel {
		t.Fatalf("count sentinel must be preserved (case-normalized), got %+v", req)
	}
}

// The legacy positional count form must stay a count chart even when the
// table offers a numeric column that y-discovery could otherwise grab.
func TestRenderLegacyCountRequest(t *testing.T) {
	tbl, res := load(t, "Bedrooms,Price\n2,100\n3,200\n3,300\n")
	req, err := viz.DecodeRequest([]byte(`{"type":"bar","columns":["Bedrooms","count"]}`))
	if err != nil {
		t.Fatal(err)
	}
	out := viz.Render(tbl, res, *req)
	if !out.OK() {
		t.Fatalf("render failed: %s (%s)", out.Err, out.Details)
	}
	opt := decodeFigure(t, out)
	if name := opt["yAxis"].(map[string]any)["name"]; name != "Count" {
		t.Fatalf("y axis = %v, want Count", name)
	}
	var total float64
	for _, v := range seriesData(t, opt, 0) {
		total += v.(float64)
	}
	if total != float64(tbl.RowCount()) {
		t.Fatalf("bar heights sum to %v, want %d", total, tbl.RowCount())
	}
}

func TestDecodeRequestMissingType(t *testing.T) {
	if _, err := viz.DecodeRequest([]byte(`{"x_column":"Region"}`)); err == nil {
		t.Fatal("expected an error for a request without a type")
	}
}

func TestPlaceholderCarriesMessage(t *testing.T) {
	msg := "nothing to draw"
	fig := viz.Placeholder(msg)
	var opt map[string]any
	if err := json.Unmarshal(fig, &opt); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(fmt.Sprint(opt["graphic"]), msg) {
		t.Fatalf("placeholder does not carry the message: %v", opt)
	}
}
