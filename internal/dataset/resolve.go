package dataset

import (
	"strings"
	"sync"
)

// columnAliases maps a logical column key to its known spellings, tried in
// declared order.
var columnAliases = map[string][]string{
	"region":    {"region", "location", "area", "neighborhood", "city", "state", "country", "zone"},
	"sqft":      {"sqft", "square_feet", "sq_ft", "square_footage", "size"},
	"garage":    {"garage", "garage_spaces", "garages"},
	"fireplace": {"fireplace", "fireplaces"},
	"pool":      {"pool", "has_pool"},
	"price":     {"price", "listing_price", "sale_price", "value"},
}

// Resolver maps logical column names onto a single table's actual columns,
// memoizing results. A Resolver is bound to one table; build a fresh one
// whenever a new table is loaded so no stale mappings survive.
type Resolver struct {
	table *Table
	mu    sync.Mutex
	memo  map[string]string
}

// NewResolver builds a resolver for t.
func NewResolver(t *Table) *Resolver {
	return &Resolver{table: t, memo: make(map[string]string)}
}

// Resolve returns the actual column name for a logical name, tolerating case
// differences and known aliases. When nothing matches, the input comes back
// unchanged; callers detect that by re-checking membership, so a miss yields
// a descriptive message downstream rather than a crash.
func (r *Resolver) Resolve(name string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if actual, ok := r.memo[name]; ok {
		return actual
	}
	if c, ok := r.table.Column(name); ok {
		r.memo[name] = c.Name
		return c.Name
	}
	if aliases, ok := columnAliases[strings.ToLower(name)]; ok {
		for _, alias := range aliases {
			if c, ok := r.table.Column(alias); ok {
				r.memo[name] = c.Name
				return c.Name
			}
		}
	}
	return name
}

// Exists reports whether a logical name resolves to a real column.
func (r *Resolver) Exists(name string) bool {
	return r.table.HasColumn(r.Resolve(name))
}
