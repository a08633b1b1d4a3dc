package viz

import "encoding/json"

// Result is the outcome of a render attempt. Err set means Figure, if any,
// is a placeholder; Warning set means Figure is the intended chart plus an
// advisory note. Figure is ECharts option JSON and is never nil.
type Result struct {
	Figure  json.RawMessage `json:"figure"`
	Err     string          `json:"error,omitempty"`
	Details string          `json:"details,omitempty"`
	Warning string          `json:"warning,omitempty"`
}

// OK reports whether the render produced the intended chart.
func (r Result) OK() bool { return r.Err == "" }

// failure wraps an error message into a Result carrying a placeholder figure
// so callers never have to special-case a missing chart.
func failure(msg, details string) Result {
	return Result{Figure: Placeholder(msg), Err: msg, Details: details}
}

// Placeholder builds a minimal chart option containing only a centered
// error-message annotation and no axes decoration.
func Placeholder(msg string) json.RawMessage {
	opt := map[string]any{
		"graphic": []map[string]any{
			{
				"type": "text",
				"left": "center",
				"top":  "middle",
				"style": map[string]any{
					"text":     msg,
					"fontSize": 16,
					"fill":     "#cc3333",
				},
			},
		},
		"width":  defaultWidth,
		"height": defaultHeight,
	}
	b, err := json.Marshal(opt)
	if err != nil {
		return json.RawMessage(`{}`)
	}
	return b
}
