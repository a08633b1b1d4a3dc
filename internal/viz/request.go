package viz

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Kind names a chart family.
type Kind string

const (
	KindBar       Kind = "bar"
	KindLine      Kind = "line"
	KindScatter   Kind = "scatter"
	KindPie       Kind = "pie"
	KindHistogram Kind = "histogram"
	KindBox       Kind = "box"
	KindViolin    Kind = "violin"
	KindHeatmap   Kind = "heatmap"
	KindArea      Kind = "area"
	KindCount     Kind = "count"
)

// CountSentinel in a y-column slot means "no explicit y; aggregate by count".
// It must survive producer boundaries untouched: an empty y invites heuristic
// discovery, the sentinel forbids it.
const CountSentinel = "count"

// normalizeY canonicalizes the case of the count sentinel in a y-column slot.
func normalizeY(y string) string {
	if strings.EqualFold(strings.TrimSpace(y), CountSentinel) {
		return CountSentinel
	}
	return y
}

// Request is an abstract visualization request: a chart kind plus optional
// logical-or-actual column references and styling params. It is the only
// shape the renderer accepts; legacy positional forms are converted here.
type Request struct {
	Kind   Kind           `json:"type"`
	X      string         `json:"x_column,omitempty"`
	Y      string         `json:"y_column,omitempty"`
	Color  string         `json:"color_column,omitempty"`
	Title  string         `json:"title,omitempty"`
	Params map[string]any `json:"params,omitempty"`
}

// FromColumns converts the deprecated positional form (columns[0] -> x,
// columns[1] -> y, literal "count" meaning aggregate by count) into a Request.
func FromColumns(kind string, columns []string, title string, params map[string]any) Request {
	req := Request{Kind: Kind(strings.ToLower(strings.TrimSpace(kind))), Title: title, Params: params}
	if len(columns) > 0 {
		req.X = columns[0]
	}
	if len(columns) > 1 {
		req.Y = normalizeY(columns[1])
	}
	if params != nil {
		if cc, ok := params["color_column"].(string); ok {
			req.Color = cc
		}
	}
	return req
}

// DecodeRequest accepts either the named x_column/y_column shape or the
// legacy positional columns shape and returns a unified Request.
func DecodeRequest(data []byte) (*Request, error) {
	var raw struct {
		Type    string         `json:"type"`
		X       string         `json:"x_column"`
		Y       string         `json:"y_column"`
		Color   string         `json:"color_column"`
		ColorBy string         `json:"color_by"`
		Columns []string       `json:"columns"`
		Title   string         `json:"title"`
		Params  map[string]any `json:"params"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode visualization request: %w", err)
	}
	if raw.Type == "" {
		return nil, fmt.Errorf("visualization request is missing a type")
	}
	var req Request
	if raw.X == "" && len(raw.Columns) > 0 {
		req = FromColumns(raw.Type, raw.Columns, raw.Title, raw.Params)
	} else {
		req = Request{
			Kind:   Kind(strings.ToLower(strings.TrimSpace(raw.Type))),
			X:      raw.X,
			Y:      normalizeY(raw.Y),
			Title:  raw.Title,
			Params: raw.Params,
		}
	}
	if req.Color == "" {
		req.Color = raw.Color
	}
	if req.Color == "" {
		req.Color = raw.ColorBy
	}
	return &req, nil
}
