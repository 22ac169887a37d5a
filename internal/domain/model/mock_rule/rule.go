package model

import (
	"context"
	"text/template"
)

// ResponseStrategy is resolved once at compile time; the resolver only reads it.
type ResponseStrategy struct {
	Kind         StrategyKind
	FunctionName string
	InlineSource string
	Inline       *template.Template
	RemoteURL    string
	Headers      map[string]string
	Body         any
	Callback     *CallbackForwarder
}

// MatchRule 编译后的可执行规则，构建后只读
type MatchRule struct {
	DefinitionID string
	APIName      string
	Path         PathConstraint
	Method       string
	Body         []BodyConstraint
	Headers      []HeaderConstraint
	Query        []QueryConstraint
	Specificity  int
	Strategy     ResponseStrategy
	LatencyMs    int
	Temporary    bool
	CreatedUnix  int64

	// Definition is the normalized private copy the rule was compiled from.
	Definition *MockDefinition
}

// Matches evaluates constraints cheapest first and stops at the first miss.
func (m *MatchRule) Matches(ctx context.Context, req RequestInfo) bool {
	if !m.Path.Matches(req.GetPath()) {
		return false
	}
	if m.Method != req.GetMethod() {
		return false
	}
	if len(m.Body) > 0 {
		body, isJSON := req.GetBodyValue()
		for _, c := range m.Body {
			if !c.Matches(ctx, body, isJSON) {
				return false
			}
		}
	}
	if len(m.Headers) > 0 {
		headers := req.GetHeaders()
		for _, c := range m.Headers {
			if !c.Matches(headers) {
				return false
			}
		}
	}
	if len(m.Query) > 0 {
		query := req.GetQuery()
		for _, c := range m.Query {
			if !c.Matches(query) {
				return false
			}
		}
	}
	return true
}
