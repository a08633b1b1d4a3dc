package dataset

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
)

// DefaultMaxBytes caps uploaded CSV size at 25 MB.
const DefaultMaxBytes = 25 << 20

// Kind classifies an inferred column type.
type Kind string

const (
	KindNumeric     Kind = "numeric"
	KindCategorical Kind = "categorical"
)

// Column holds one named column of raw cell text plus parsed numeric values
// (NaN where a cell did not parse).
type Column struct {
	Name   string
	Kind   Kind
	Values []string
	nums   []float64
}

// Float returns the parsed numeric value at row i, if the cell parsed as a number.
func (c *Column) Float(i int) (float64, bool) {
	if i < 0 || i >= len(c.nums) || math.IsNaN(c.nums[i]) {
		return 0, false
	}
	return c.nums[i], true
}

// Table is an in-memory rectangular dataset loaded from a CSV-like source.
// Column names are case-preserving; all lookups are case-insensitive.
type Table struct {
	ID      string
	Name    string
	Columns []Column
	rows    int
	index   map[string]int // lowercased trimmed name -> column position
}

// Load reads a CSV from r with the default size cap.
func Load(r io.Reader, name string) (*Table, error) {
	return LoadLimit(r, name, DefaultMaxBytes)
}

// LoadLimit reads a CSV from r, enforcing a byte cap, trying UTF-8 (with BOM)
// first and falling back to Latin-1. Column-name whitespace is trimmed and
// duplicate or empty headers are rejected.
func LoadLimit(r io.Reader, name string, maxBytes int64) (*Table, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	raw, err := io.ReadAll(io.LimitReader(r, maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	if int64(len(raw)) > maxBytes {
		return nil, fmt.Errorf("input exceeds the size limit of %d bytes", maxBytes)
	}
	if len(raw) == 0 {
		return nil, errors.New("the file is empty")
	}
	raw = decodeText(raw)

	cr := csv.NewReader(bytes.NewReader(raw))
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.Comma = sniffDelimiter(raw)

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	t := &Table{
		ID:    uuid.NewString(),
		Name:  name,
		index: make(map[string]int, len(header)),
	}
	for i, h := range header {
		cn := strings.TrimSpace(h)
		if cn == "" {
			return nil, fmt.Errorf("column %d has an empty name", i+1)
		}
		key := strings.ToLower(cn)
		if _, dup := t.index[key]; dup {
			return nil, fmt.Errorf("duplicate column name %q", cn)
		}
		t.index[key] = i
		t.Columns = append(t.Columns, Column{Name: cn})
	}

	ncol := len(t.Columns)
	numCnt := make([]int, ncol)
	txtCnt := make([]int, ncol)
	for {
		rec, err := cr.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("read row %d: %w", t.rows+1, err)
		}
		t.rows++
		for j := 0; j < ncol; j++ {
			v := ""
			if j < len(rec) {
				v = strings.TrimSpace(rec[j])
			}
			c := &t.Columns[j]
			c.Values = append(c.Values, v)
			if v == "" {
				c.nums = append(c.nums, math.NaN())
				continue
			}
			if x, ok := parseNumeric(v); ok {
				c.nums = append(c.nums, x)
				numCnt[j]++
			} else {
				c.nums = append(c.nums, math.NaN())
				txtCnt[j]++
			}
		}
	}
	for j := range t.Columns {
		if numCnt[j] > 0 && numCnt[j] >= txtCnt[j] {
			t.Columns[j].Kind = KindNumeric
		} else {
			t.Columns[j].Kind = KindCategorical
		}
	}
	return t, nil
}

// RowCount reports the number of data rows, excluding the header.
func (t *Table) RowCount() int { return t.rows }

// ColumnNames returns the ordered column names as loaded.
func (t *Table) ColumnNames() []string {
	out := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		out[i] = c.Name
	}
	return out
}

// Column finds a column by name, case-insensitively.
func (t *Table) Column(name string) (*Column, bool) {
	i, ok := t.index[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, false
	}
	return &t.Columns[i], true
}

// HasColumn reports whether name matches a column, case-insensitively.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.Column(name)
	return ok
}

// Floats returns the non-null numeric values of a column in row order.
func (t *Table) Floats(name string) ([]float64, bool) {
	c, ok := t.Column(name)
	if !ok {
		return nil, false
	}
	out := make([]float64, 0, len(c.nums))
	for _, x := range c.nums {
		if !math.IsNaN(x) {
			out = append(out, x)
		}
	}
	return out, true
}

// DistinctValues returns the distinct raw values of a column in natural order.
func (t *Table) DistinctValues(name string) []string {
	c, ok := t.Column(name)
	if !ok {
		return nil
	}
	seen := make(map[string]struct{}, 16)
	var out []string
	for _, v := range c.Values {
		if v == "" {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	SortNatural(out)
	return out
}

// decodeText strips a UTF-8 BOM and transcodes Latin-1 input when the bytes
// are not valid UTF-8.
func decodeText(raw []byte) []byte {
	raw = bytes.TrimPrefix(raw, []byte{0xEF, 0xBB, 0xBF})
	if utf8.Valid(raw) {
		return raw
	}
	var b bytes.Buffer
	b.Grow(len(raw) + len(raw)/2)
	for _, c := range raw {
		b.WriteRune(rune(c))
	}
	return b.Bytes()
}

// sniffDelimiter picks the most frequent of ',', ';', '\t' in the first line.
func sniffDelimiter(raw []byte) rune {
	line := raw
	if i := bytes.IndexByte(raw, '\n'); i >= 0 {
		line = raw[:i]
	}
	best, bestN := ',', bytes.Count(line, []byte(","))
	for _, cand := range []byte{';', '\t'} {
		if n := bytes.Count(line, []byte{cand}); n > bestN {
			best, bestN = rune(cand), n
		}
	}
	return best
}

// parseNumeric parses a cell as a number, tolerating currency symbols,
// percent signs, and thousands separators.
func parseNumeric(s string) (float64, bool) {
	raw := strings.TrimSpace(s)
	raw = strings.TrimPrefix(raw, "$")
	raw = strings.TrimSuffix(raw, "%")
	raw = strings.ReplaceAll(raw, ",", "")
	raw = strings.ReplaceAll(raw, " ", "")
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// LessNatural orders strings numerically when both parse as numbers,
// lexicographically otherwise. Keeps grouped output deterministic.
func LessNatural(a, b string) bool {
	fa, errA := strconv.ParseFloat(a, 64)
	fb, errB := strconv.ParseFloat(b, 64)
	if errA == nil && errB == nil {
		if fa != fb {
			return fa < fb
		}
		return a < b
	}
	if errA == nil {
		return true
	}
	if errB == nil {
		return false
	}
	return a < b
}

// SortNatural sorts in place using LessNatural.
func SortNatural(vals []string) {
	sort.Slice(vals, func(i, j int) bool { return LessNatural(vals[i], vals[j]) })
}
