package dataset_test

import (
	"strings"
	"testing"

	"github.com/KaramelBytes/datachat-cli/internal/dataset"
)

func TestResolveDirectCaseInsensitive(t *testing.T) {
	tbl := mustLoad(t, "PRICE,Location\n100,North\n")
	res := dataset.NewResolver(tbl)
	if got := res.Resolve("price"); got != "PRICE" {
		t.Fatalf("Resolve(price) = %q, want PRICE", got)
	}
}

func TestResolveAliases(t *testing.T) {
	tbl := mustLoad(t, "Listing_Price,Neighborhood,Square_Feet\n100,Downtown,900\n")
	res := dataset.NewResolver(tbl)
	cases := map[string]string{
		"price":  "Listing_Price",
		"region": "Neighborhood",
		"sqft":   "Square_Feet",
	}
	for logical, want := range cases {
		if got := res.Resolve(logical); got != want {
			t.Fatalf("Resolve(%s) = %q, want %q", logical, got, want)
		}
	}
}

func TestResolveMemoized(t *testing.T) {
	tbl := mustLoad(t, "Location\nNorth\n")
	res := dataset.NewResolver(tbl)
	first := res.Resolve("region")
	second := res.Resolve("region")
	if first != "Location" || second != first {
		t.Fatalf("memoized resolution differs: %q then %q", first, second)
	}
}

func TestResolveSoftFail(t *testing.T) {
	tbl := mustLoad(t, "Price\n100\n")
	res := dataset.NewResolver(tbl)
	if got := res.Resolve("region"); got != "region" {
		t.Fatalf("unmatched name should come back unchanged, got %q", got)
	}
	if res.Exists("region") {
		t.Fatalf("Exists(region) should be false")
	}
	if !res.Exists("price") {
		t.Fatalf("Exists(price) should be true")
	}
}

// Loading a new table must not reuse resolutions from a prior one.
func TestResolveNoStaleMappingAcrossTables(t *testing.T) {
	first := mustLoad(t, "Location,Price\nNorth,1\n")
	second := mustLoad(t, "Area,Price\nSouth,2\n")
	r1 := dataset.NewResolver(first)
	if got := r1.Resolve("region"); got != "Location" {
		t.Fatalf("first table: Resolve(region) = %q", got)
	}
	r2 := dataset.NewResolver(second)
	if got := r2.Resolve("region"); got != "Area" {
		t.Fatalf("second table: Resolve(region) = %q, stale mapping?", got)
	}
}

func TestResolveAliasOrder(t *testing.T) {
	// both "location" and "area" present: the earlier-declared alias wins
	tbl := mustLoad(t, "Area,Location\nA,B\n")
	res := dataset.NewResolver(tbl)
	if got := res.Resolve("region"); got != "Location" {
		t.Fatalf("Resolve(region) = %q, want Location (declared before area)", got)
	}
	if !strings.EqualFold(res.Resolve("REGION"), "Location") {
		t.Fatalf("expected alias lookup to be case-insensitive on the logical key")
	}
}
