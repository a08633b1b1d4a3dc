package query_test

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/KaramelBytes/datachat-cli/internal/dataset"
	"github.com/KaramelBytes/datachat-cli/internal/query"
	"github.com/KaramelBytes/datachat-cli/internal/viz"
)

func load(t *testing.T, csv string) (*dataset.Table, *dataset.Summary, *query.Handler) {
	t.Helper()
	tbl, err := dataset.Load(strings.NewReader(csv), "test.csv")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	return tbl, dataset.Summarize(tbl), query.NewHandler(dataset.NewResolver(tbl))
}

func TestAveragePriceByRegion(t *testing.T) {
	var b strings.Builder
	b.WriteString("Price,Region,Bedrooms\n")
	regions := []string{"East", "North", "West"}
	for i := 0; i < 30; i++ {
		fmt.Fprintf(&b, "%d,%s,%d\n", 100000+i*1000, regions[i%3], 2+i%3)
	}
	tbl, sum, h := load(t, b.String())

	answer, req := h.Handle("What is the average price by region?", tbl, sum)
	if !strings.Contains(answer, "average price overall") {
		t.Fatalf("answer missing overall average: %q", answer)
	}
	for _, r := range regions {
		if !strings.Contains(answer, "- "+r+": $") {
			t.Fatalf("answer missing breakdown for %s: %q", r, answer)
		}
	}
	if req == nil || req.Kind != viz.KindBar || req.X != "Region" || req.Y != "Price" {
		t.Fatalf("viz request = %+v, want bar of Price over Region", req)
	}
}

func TestAverageMoneyFormatting(t *testing.T) {
	tbl, sum, h := load(t, "Price\n450000.25\n450000.75\n")
	answer, _ := h.Handle("what is the average price?", tbl, sum)
	if !strings.Contains(answer, "$450,000.50") {
		t.Fatalf("expected currency formatting with grouping, got %q", answer)
	}
}

func TestAverageNonMonetaryFormatting(t *testing.T) {
	tbl, sum, h := load(t, "Sqft\n1000\n2000\n")
	answer, _ := h.Handle("average sqft of the properties", tbl, sum)
	if !strings.Contains(answer, "1500.00") || strings.Contains(answer, "$") {
		t.Fatalf("sqft should use plain two-decimal formatting, got %q", answer)
	}
}

func TestAverageMissingColumn(t *testing.T) {
	tbl, sum, h := load(t, "Region\nNorth\n")
	answer, req := h.Handle("what is the average price?", tbl, sum)
	if !strings.Contains(answer, "couldn't find the 'price' column") ||
		!strings.Contains(answer, "Available columns are: Region") {
		t.Fatalf("answer = %q", answer)
	}
	if req != nil {
		t.Fatalf("missing column must not produce a visualization")
	}
}

func TestMaxWithDetails(t *testing.T) {
	tbl, sum, h := load(t, "id,Price,Bedrooms,Bathrooms,Region\n1,100,2,1,North\n2,500,4,3,South\n3,300,3,2,East\n")
	answer, _ := h.Handle("what is the maximum price?", tbl, sum)
	for _, want := range []string{"maximum price is $500.00", "Property ID: 2", "4 bed", "3 bath", "South region"} {
		if !strings.Contains(answer, want) {
			t.Fatalf("answer %q missing %q", answer, want)
		}
	}
}

func TestMinAliasedColumn(t *testing.T) {
	tbl, sum, h := load(t, "Sale_Price\n250\n100\n900\n")
	answer, _ := h.Handle("lowest price in the data", tbl, sum)
	if !strings.Contains(answer, "minimum price is $100.00") {
		t.Fatalf("answer = %q", answer)
	}
}

func TestCountBedroomsSumsToRows(t *testing.T) {
	tbl, sum, h := load(t, "Bedrooms\n2\n3\n3\n4\n2\n2\n")
	answer, req := h.Handle("how many bedrooms do the properties have?", tbl, sum)
	if !strings.Contains(answer, "- 2 bedrooms: 3 properties") ||
		!strings.Contains(answer, "- 3 bedrooms: 2 properties") ||
		!strings.Contains(answer, "- 4 bedrooms: 1 properties") {
		t.Fatalf("answer = %q", answer)
	}
	// per-value counts sum to the row count
	total := 3 + 2 + 1
	if total != tbl.RowCount() {
		t.Fatalf("counts sum %d != rows %d", total, tbl.RowCount())
	}
	if req == nil || req.Kind != viz.KindBar || req.X != "Bedrooms" || req.Y != viz.CountSentinel {
		t.Fatalf("viz request = %+v, want a count bar", req)
	}
}

func TestCountPool(t *testing.T) {
	tbl, sum, h := load(t, "has_pool\n1\n0\n1\n1\n")
	answer, req := h.Handle("how many properties have a pool", tbl, sum)
	if !strings.Contains(answer, "3 properties with a pool") || !strings.Contains(answer, "1 properties without a pool") {
		t.Fatalf("answer = %q", answer)
	}
	if req == nil || req.Kind != viz.KindPie || req.X != "has_pool" || req.Y != viz.CountSentinel {
		t.Fatalf("viz request = %+v, want a count pie keyed on has_pool", req)
	}
}

func TestCountPoolMissing(t *testing.T) {
	tbl, sum, h := load(t, "Price,Region\n100,North\n")
	answer, req := h.Handle("how many properties have a pool", tbl, sum)
	if !strings.Contains(answer, "couldn't find a 'pool' column") ||
		!strings.Contains(answer, "Available columns are: Price, Region") {
		t.Fatalf("answer = %q", answer)
	}
	if req != nil {
		t.Fatalf("expected no visualization, got %+v", req)
	}
}

func TestRegionCounts(t *testing.T) {
	tbl, sum, h := load(t, "Location\nNorth\nSouth\nNorth\n")
	answer, req := h.Handle("how many properties are in each region?", tbl, sum)
	if !strings.Contains(answer, "- North: 2 properties") || !strings.Contains(answer, "- South: 1 properties") {
		t.Fatalf("answer = %q", answer)
	}
	if req == nil || req.Kind != viz.KindBar || req.X != "Location" || req.Y != viz.CountSentinel {
		t.Fatalf("viz request = %+v, want a count bar", req)
	}
}

// A count question on a table that also has a numeric column must chart the
// per-value counts, never a per-value sum of that numeric column.
func TestCountChartHeightsAreCounts(t *testing.T) {
	tbl, sum, h := load(t, "Bedrooms,Price\n2,100\n3,200\n3,300\n2,400\n2,500\n4,600\n")
	_, req := h.Handle("how many bedrooms do the properties have?", tbl, sum)
	if req == nil {
		t.Fatal("expected a visualization request")
	}
	out := viz.Render(tbl, dataset.NewResolver(tbl), *req)
	if !out.OK() {
		t.Fatalf("render failed: %s (%s)", out.Err, out.Details)
	}
	var opt map[string]any
	if err := json.Unmarshal(out.Figure, &opt); err != nil {
		t.Fatalf("figure is not valid JSON: %v", err)
	}
	if name := opt["yAxis"].(map[string]any)["name"]; name != "Count" {
		t.Fatalf("y axis = %v, want Count", name)
	}
	var total float64
	for _, v := range opt["series"].([]any)[0].(map[string]any)["data"].([]any) {
		total += v.(float64)
	}
	if total != float64(tbl.RowCount()) {
		t.Fatalf("bar heights sum to %v, want %d", total, tbl.RowCount())
	}
}

func TestPoolPieSlicesAreCounts(t *testing.T) {
	tbl, sum, h := load(t, "has_pool,Price\n1,100\n0,200\n1,300\n1,600\n")
	_, req := h.Handle("how many properties have a pool", tbl, sum)
	if req == nil {
		t.Fatal("expected a visualization request")
	}
	out := viz.Render(tbl, dataset.NewResolver(tbl), *req)
	if !out.OK() {
		t.Fatalf("render failed: %s (%s)", out.Err, out.Details)
	}
	var opt map[string]any
	if err := json.Unmarshal(out.Figure, &opt); err != nil {
		t.Fatalf("figure is not valid JSON: %v", err)
	}
	var total float64
	for _, slice := range opt["series"].([]any)[0].(map[string]any)["data"].([]any) {
		total += slice.(map[string]any)["value"].(float64)
	}
	if total != float64(tbl.RowCount()) {
		t.Fatalf("pie slices sum to %v, want %d", total, tbl.RowCount())
	}
}

func TestRegionGeneric(t *testing.T) {
	tbl, sum, h := load(t, "Region\nNorth\n")
	answer, req := h.Handle("tell me about the region data", tbl, sum)
	if !strings.Contains(answer, "different regions") || req != nil {
		t.Fatalf("answer = %q, req = %+v", answer, req)
	}
}

func TestChartExplicitColumns(t *testing.T) {
	tbl, sum, h := load(t, "Category,Price\nA,100\nB,200\n")
	answer, req := h.Handle("show me a bar chart of price by category", tbl, sum)
	if req == nil || req.Kind != viz.KindBar {
		t.Fatalf("viz request = %+v", req)
	}
	if req.X != "Category" || req.Y != "Price" {
		t.Fatalf("columns = (%q, %q), want Category/Price in table order", req.X, req.Y)
	}
	if !strings.Contains(answer, "bar chart") {
		t.Fatalf("answer = %q", answer)
	}
}

func TestChartSingleColumnIsDistribution(t *testing.T) {
	tbl, sum, h := load(t, "Bedrooms,Price\n2,100\n3,200\n")
	answer, req := h.Handle("show me a bar chart of bedrooms", tbl, sum)
	if req == nil || req.Kind != viz.KindBar || req.X != "Bedrooms" || req.Y != viz.CountSentinel {
		t.Fatalf("viz request = %+v, want a count bar of Bedrooms", req)
	}
	if !strings.Contains(answer, "distribution of Bedrooms") {
		t.Fatalf("answer = %q", answer)
	}
}

// a chart question naming a region column routes to the region intent first
func TestRegionIntentWinsOverChart(t *testing.T) {
	tbl, sum, h := load(t, "Region,Price\nNorth,100\nSouth,200\n")
	answer, _ := h.Handle("show me a bar chart of price by region", tbl, sum)
	if !strings.Contains(answer, "different regions") {
		t.Fatalf("answer = %q", answer)
	}
}

func TestChartHeuristicColumns(t *testing.T) {
	tbl, sum, h := load(t, "Neighborhood,Sqft\nA,900\nB,1100\n")
	_, req := h.Handle("can you graph this data?", tbl, sum)
	if req == nil || req.Kind != viz.KindBar {
		t.Fatalf("viz request = %+v", req)
	}
	if req.X != "Neighborhood" || req.Y != "Sqft" {
		t.Fatalf("heuristic columns = (%q, %q)", req.X, req.Y)
	}
}

func TestChartScatterNumericColumns(t *testing.T) {
	tbl, sum, h := load(t, "Name,Sqft,Price\nA,900,100\nB,1100,200\n")
	_, req := h.Handle("scatter plot please", tbl, sum)
	if req == nil || req.Kind != viz.KindScatter || req.X != "Sqft" || req.Y != "Price" {
		t.Fatalf("viz request = %+v, want scatter of first two numeric columns", req)
	}
}

func TestUnrecognizedQuestion(t *testing.T) {
	tbl, sum, h := load(t, "Price\n100\n")
	answer, req := h.Handle("what's the meaning of life?", tbl, sum)
	if !strings.Contains(answer, "I don't understand") || req != nil {
		t.Fatalf("answer = %q, req = %+v", answer, req)
	}
}
