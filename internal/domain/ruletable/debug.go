package ruletable

import (
	"time"

	"go_mock_dispatch/internal/domain/compiler"
)

// RuleView is the read-only summary of one installed rule.
type RuleView struct {
	Position    int      `json:"position"`
	MockID      string   `json:"mockId"`
	APIName     string   `json:"apiName"`
	Path        string   `json:"path"`
	Method      string   `json:"method"`
	Specificity int      `json:"specificity"`
	Temporary   bool     `json:"temporary"`
	Strategy    string   `json:"strategy"`
	LatencyMs   int      `json:"latencyMs"`
	Body        []string `json:"body,omitempty"`
	Headers     []string `json:"headers,omitempty"`
	Query       []string `json:"query,omitempty"`
}

type TableView struct {
	Generation uint64                    `json:"generation"`
	BuiltAt    time.Time                 `json:"builtAt"`
	Rules      []RuleView                `json:"rules"`
	Failures   []compiler.CompileFailure `json:"failures"`
}

// View renders the table for the debug endpoint.
func (t *Table) View() TableView {
	v := TableView{
		Generation: t.Generation,
		BuiltAt:    t.BuiltAt,
		Rules:      make([]RuleView, 0, len(t.Rules)),
		Failures:   t.Failures,
	}
	if v.Failures == nil {
		v.Failures = []compiler.CompileFailure{}
	}
	for i, r := range t.Rules {
		rv := RuleView{
			Position:    i,
			MockID:      r.DefinitionID,
			APIName:     r.APIName,
			Path:        r.Path.String(),
			Method:      r.Method,
			Specificity: r.Specificity,
			Temporary:   r.Temporary,
			Strategy:    r.Strategy.Kind.String(),
			LatencyMs:   r.LatencyMs,
		}
		for _, c := range r.Body {
			rv.Body = append(rv.Body, c.String())
		}
		for _, c := range r.Headers {
			rv.Headers = append(rv.Headers, c.String())
		}
		for _, c := range r.Query {
			rv.Query = append(rv.Query, c.String())
		}
		v.Rules = append(v.Rules, rv)
	}
	return v
}
