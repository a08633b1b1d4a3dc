package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/KaramelBytes/datachat-cli/internal/dataset"
	"github.com/KaramelBytes/datachat-cli/internal/query"
	"github.com/KaramelBytes/datachat-cli/internal/utils"
	"github.com/KaramelBytes/datachat-cli/internal/viz"
)

// schemaTokenBudget caps how much of the schema summary goes into the prompt.
const schemaTokenBudget = 1500

// OrchestratorConfig tunes the remote-answer loop.
type OrchestratorConfig struct {
	Model       string
	MaxTokens   int
	Temperature float64
	// Attempts and Backoff govern the orchestrator-level retry over the
	// whole Generate call; terminal failure falls back to the rule engine.
	Attempts int
	Backoff  time.Duration
	// AttemptTimeout bounds each individual attempt. The timeout is the
	// only cancellation mechanism exposed to callers.
	AttemptTimeout time.Duration
}

// Orchestrator sends the question plus table schema to a remote
// text-completion runtime, parses a structured answer out of the free-text
// reply, and falls back to the rule-based query handler on any failure.
type Orchestrator struct {
	rt       Runtime
	fallback *query.Handler
	cfg      OrchestratorConfig
}

// NewOrchestrator wires a runtime to its rule-based fallback.
func NewOrchestrator(rt Runtime, fallback *query.Handler, cfg OrchestratorConfig) *Orchestrator {
	if cfg.Attempts <= 0 {
		cfg.Attempts = 3
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = 2 * time.Second
	}
	if cfg.AttemptTimeout <= 0 {
		cfg.AttemptTimeout = 60 * time.Second
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = 0.5
	}
	return &Orchestrator{rt: rt, fallback: fallback, cfg: cfg}
}

// Answer processes a question end to end. It never returns an error: any
// terminal remote failure defers to the rule-based handler, and only if that
// also has nothing does the user see a generic message.
func (o *Orchestrator) Answer(ctx context.Context, question string, t *dataset.Table, sum *dataset.Summary) (string, *viz.Request) {
	prompt := o.buildPrompt(question, sum)
	req := GenerateRequest{
		Model:       o.cfg.Model,
		Messages:    []Message{{Role: "user", Content: prompt}},
		MaxTokens:   o.cfg.MaxTokens,
		Temperature: o.cfg.Temperature,
	}

	var resp *GenerateResponse
	var lastErr error
	for attempt := 1; attempt <= o.cfg.Attempts; attempt++ {
		actx, cancel := context.WithTimeout(ctx, o.cfg.AttemptTimeout)
		resp, lastErr = o.rt.Generate(actx, req)
		cancel()
		if lastErr == nil {
			break
		}
		if !Recoverable(lastErr) || attempt == o.cfg.Attempts {
			break
		}
		select {
		case <-time.After(o.cfg.Backoff):
		case <-ctx.Done():
			return o.fallbackAnswer(question, t, sum)
		}
	}
	if lastErr != nil {
		return o.fallbackAnswer(question, t, sum)
	}

	answer, vreq, err := parseCompletion(resp.Text())
	if err != nil {
		return o.fallbackAnswer(question, t, sum)
	}
	return answer, vreq
}

func (o *Orchestrator) fallbackAnswer(question string, t *dataset.Table, sum *dataset.Summary) (string, *viz.Request) {
	if o.fallback != nil {
		return o.fallback.Handle(question, t, sum)
	}
	return "I couldn't reach the language model and no fallback is configured. Please try again.", nil
}

// buildPrompt assembles the system context from the schema summary,
// truncated to a token budget, plus the question and the JSON contract.
func (o *Orchestrator) buildPrompt(question string, sum *dataset.Summary) string {
	schema := utils.TruncateToTokenLimit(sum.Describe(), schemaTokenBudget)
	var b strings.Builder
	b.WriteString("You are a data analysis assistant. You have access to a CSV file described below.\n\n")
	b.WriteString(schema)
	b.WriteString("\nYour task is to:\n")
	b.WriteString("1. Answer questions about the data briefly and precisely\n")
	b.WriteString("2. Suggest visualizations when appropriate\n")
	b.WriteString("3. Format responses as structured JSON\n\n")
	fmt.Fprintf(&b, "Question: %s\n\n", question)
	b.WriteString("Respond with JSON: {\n")
	b.WriteString("  \"answer\": \"brief answer\",\n")
	b.WriteString("  \"visualization_needed\": boolean,\n")
	b.WriteString("  \"viz_type\": \"type if needed\",\n")
	b.WriteString("  \"viz_columns\": [\"columns\"],\n")
	b.WriteString("  \"viz_title\": \"title\",\n")
	b.WriteString("  \"viz_params\": {}\n}\n")
	return b.String()
}

// remoteAnswer is the structured payload expected inside the completion.
// Fields are raw so values that come back as numbers or booleans still parse.
type remoteAnswer struct {
	Answer              json.RawMessage   `json:"answer"`
	VisualizationNeeded bool              `json:"visualization_needed"`
	VizType             json.RawMessage   `json:"viz_type"`
	VizColumns          []json.RawMessage `json:"viz_columns"`
	VizTitle            json.RawMessage   `json:"viz_title"`
	VizParams           map[string]any    `json:"viz_params"`
	// some models emit the named request shape directly
	XColumn json.RawMessage `json:"x_column"`
	YColumn json.RawMessage `json:"y_column"`
}

// parseCompletion extracts the first balanced JSON object from the
// completion text and normalizes it into the named visualization request
// shape, mapping the legacy positional columns form where needed.
func parseCompletion(text string) (string, *viz.Request, error) {
	payload, ok := extractJSON(text)
	if !ok {
		return "", nil, fmt.Errorf("no JSON object in completion")
	}
	var ra remoteAnswer
	if err := json.Unmarshal([]byte(payload), &ra); err != nil {
		return "", nil, fmt.Errorf("decode completion payload: %w", err)
	}
	answer := flexibleString(ra.Answer)
	if answer == "" {
		return "", nil, fmt.Errorf("completion payload has no answer")
	}
	vizType := flexibleString(ra.VizType)
	if !ra.VisualizationNeeded || vizType == "" {
		return answer, nil, nil
	}

	var req viz.Request
	if x := flexibleString(ra.XColumn); x != "" {
		y := flexibleString(ra.YColumn)
		if strings.EqualFold(y, viz.CountSentinel) {
			y = viz.CountSentinel
		}
		req = viz.Request{Kind: viz.Kind(strings.ToLower(vizType)), X: x, Y: y}
	} else {
		cols := make([]string, 0, len(ra.VizColumns))
		for _, rc := range ra.VizColumns {
			if s := flexibleString(rc); s != "" {
				cols = append(cols, s)
			}
		}
		req = viz.FromColumns(vizType, cols, "", ra.VizParams)
	}
	req.Title = flexibleString(ra.VizTitle)
	req.Params = ra.VizParams
	if req.Color == "" && ra.VizParams != nil {
		if cc, ok := ra.VizParams["color_column"].(string); ok {
			req.Color = cc
		}
	}
	return answer, &req, nil
}

// extractJSON returns the first balanced top-level JSON object in s.
func extractJSON(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}

// flexibleString converts a raw JSON value to a string, tolerating models
// that return numbers or booleans where strings are expected.
func flexibleString(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		if f == float64(int64(f)) {
			return fmt.Sprintf("%d", int64(f))
		}
		return fmt.Sprintf("%g", f)
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return fmt.Sprintf("%t", b)
	}
	return string(raw)
}
