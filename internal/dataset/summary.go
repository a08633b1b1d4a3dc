package dataset

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// NumStats captures basic statistics for a numeric column.
type NumStats struct {
	Count          int
	Min, Max, Mean float64
}

// ValueCount pairs a categorical value with its occurrence count.
type ValueCount struct {
	Value string
	Count int
}

// Summary is a read-only snapshot of a loaded table's shape, regenerated on
// every load and never mutated afterward.
type Summary struct {
	Name        string
	Rows        int
	Cols        int
	ColumnNames []string
	Kinds       map[string]Kind
	Numeric     []string
	Categorical []string
	Stats       map[string]NumStats
	TopValues   map[string][]ValueCount
	SampleRows  [][]string
}

// sampleRowLimit bounds how many rows Describe shows.
const sampleRowLimit = 5

// Summarize derives a Summary from a table.
func Summarize(t *Table) *Summary {
	s := &Summary{
		Name:        t.Name,
		Rows:        t.RowCount(),
		Cols:        len(t.Columns),
		ColumnNames: t.ColumnNames(),
		Kinds:       make(map[string]Kind, len(t.Columns)),
		Stats:       make(map[string]NumStats),
		TopValues:   make(map[string][]ValueCount),
	}
	for i := range t.Columns {
		c := &t.Columns[i]
		s.Kinds[c.Name] = c.Kind
		switch c.Kind {
		case KindNumeric:
			s.Numeric = append(s.Numeric, c.Name)
			s.Stats[c.Name] = numStats(c)
		default:
			s.Categorical = append(s.Categorical, c.Name)
			s.TopValues[c.Name] = topValues(c, 8)
		}
	}
	n := t.RowCount()
	if n > sampleRowLimit {
		n = sampleRowLimit
	}
	for i := 0; i < n; i++ {
		row := make([]string, len(t.Columns))
		for j := range t.Columns {
			row[j] = t.Columns[j].Values[i]
		}
		s.SampleRows = append(s.SampleRows, row)
	}
	return s
}

func numStats(c *Column) NumStats {
	st := NumStats{Min: math.Inf(1), Max: math.Inf(-1)}
	var sum float64
	for _, x := range c.nums {
		if math.IsNaN(x) {
			continue
		}
		st.Count++
		sum += x
		if x < st.Min {
			st.Min = x
		}
		if x > st.Max {
			st.Max = x
		}
	}
	if st.Count == 0 {
		return NumStats{}
	}
	st.Mean = sum / float64(st.Count)
	return st
}

func topValues(c *Column, limit int) []ValueCount {
	counts := make(map[string]int)
	for _, v := range c.Values {
		if v != "" {
			counts[v]++
		}
	}
	out := make([]ValueCount, 0, len(counts))
	for v, n := range counts {
		out = append(out, ValueCount{Value: v, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count == out[j].Count {
			return out[i].Value < out[j].Value
		}
		return out[i].Count > out[j].Count
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Describe renders the summary as compact text suitable for prompts and for
// the inspect command.
func (s *Summary) Describe() string {
	var b strings.Builder
	b.WriteString("[DATASET SUMMARY]\n")
	if s.Name != "" {
		fmt.Fprintf(&b, "File: %s\n", s.Name)
	}
	fmt.Fprintf(&b, "Rows: %d\nColumns: %d\n\n[SCHEMA]\n", s.Rows, s.Cols)
	for _, name := range s.ColumnNames {
		kind := s.Kinds[name]
		fmt.Fprintf(&b, "- %s: %s", name, kind)
		switch kind {
		case KindNumeric:
			if st, ok := s.Stats[name]; ok && st.Count > 0 {
				fmt.Fprintf(&b, " — min %.4g, max %.4g, mean %.4g", st.Min, st.Max, st.Mean)
			}
		default:
			if tops := s.TopValues[name]; len(tops) > 0 {
				b.WriteString(" — top: ")
				for i, tv := range tops {
					if i > 0 {
						b.WriteString(", ")
					}
					fmt.Fprintf(&b, "%s(%d)", tv.Value, tv.Count)
				}
			}
		}
		b.WriteString("\n")
	}
	if len(s.Numeric) > 0 {
		fmt.Fprintf(&b, "\nNumeric columns: %s\n", strings.Join(s.Numeric, ", "))
	}
	if len(s.Categorical) > 0 {
		fmt.Fprintf(&b, "Categorical columns: %s\n", strings.Join(s.Categorical, ", "))
	}
	if len(s.SampleRows) > 0 {
		fmt.Fprintf(&b, "\n[SAMPLE ROWS]\n%s\n", strings.Join(s.ColumnNames, " | "))
		for _, row := range s.SampleRows {
			fmt.Fprintln(&b, strings.Join(row, " | "))
		}
	}
	return b.String()
}
