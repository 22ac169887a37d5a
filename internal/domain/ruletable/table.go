package ruletable

import (
	"context"
	"errors"
	"time"

	"go_mock_dispatch/internal/domain/compiler"
	model "go_mock_dispatch/internal/domain/model/mock_rule"
)

// Table is an immutable ordered rule set. Once installed nothing mutates it.
type Table struct {
	Generation uint64
	BuiltAt    time.Time
	Rules      []*model.MatchRule
	Failures   []compiler.CompileFailure

	byID map[string]*model.MatchRule
}

// Build ranks and compiles a definition snapshot. Definitions that fail to
// compile are recorded in Failures and left out.
func Build(generation uint64, persisted, temporary []*model.MockDefinition) *Table {
	t := &Table{
		Generation: generation,
		BuiltAt:    time.Now(),
		byID:       make(map[string]*model.MatchRule),
	}
	for _, d := range Layer(persisted, temporary) {
		rule, err := compiler.Compile(d)
		if err != nil {
			var failure *compiler.CompileFailure
			if !errors.As(err, &failure) {
				failure = &compiler.CompileFailure{DefinitionID: d.ID, APIName: d.APIName, Method: d.Method, Err: err, Reason: err.Error()}
			}
			t.Failures = append(t.Failures, *failure)
			continue
		}
		rule.Specificity = Specificity(d)
		t.Rules = append(t.Rules, rule)
		if _, dup := t.byID[rule.DefinitionID]; !dup && rule.DefinitionID != "" {
			t.byID[rule.DefinitionID] = rule
		}
	}
	return t
}

func emptyTable() *Table {
	return &Table{BuiltAt: time.Now(), byID: map[string]*model.MatchRule{}}
}

// Dispatch returns the first rule whose constraints all hold.
func (t *Table) Dispatch(ctx context.Context, req model.RequestInfo) (*model.MatchRule, bool) {
	for _, rule := range t.Rules {
		if rule.Matches(ctx, req) {
			return rule, true
		}
	}
	return nil, false
}

// Rule looks up a compiled rule by definition id. Temporary rules shadow
// persisted ones with the same id.
func (t *Table) Rule(id string) (*model.MatchRule, bool) {
	r, ok := t.byID[id]
	return r, ok
}

func (t *Table) Len() int {
	return len(t.Rules)
}
