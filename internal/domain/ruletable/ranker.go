package ruletable

import (
	"sort"

	model "go_mock_dispatch/internal/domain/model/mock_rule"
)

// Specificity counts the concrete predicate fields of a definition. A
// definition with none is a catch-all.
func Specificity(d *model.MockDefinition) int {
	return model.CountLeafFields(d.BodyPredicate()) +
		model.CountLeafFields(d.Predicate.Headers) +
		model.CountLeafFields(d.Predicate.Query)
}

type ranked struct {
	def         *model.MockDefinition
	specificity int
}

// Rank orders definitions most specific first, then newest first. Ties on
// both fall back to id so the order is total.
func Rank(defs []*model.MockDefinition) []*model.MockDefinition {
	items := make([]ranked, 0, len(defs))
	for _, d := range defs {
		if d == nil {
			continue
		}
		items = append(items, ranked{def: d, specificity: Specificity(d)})
	}
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if a.specificity != b.specificity {
			return a.specificity > b.specificity
		}
		if !a.def.CreatedAt.Equal(b.def.CreatedAt) {
			return a.def.CreatedAt.After(b.def.CreatedAt)
		}
		return a.def.ID < b.def.ID
	})
	out := make([]*model.MockDefinition, len(items))
	for i, it := range items {
		out[i] = it.def
	}
	return out
}

// Layer ranks temporary and persisted definitions separately and puts every
// temporary definition ahead of every persisted one.
func Layer(persisted, temporary []*model.MockDefinition) []*model.MockDefinition {
	out := make([]*model.MockDefinition, 0, len(persisted)+len(temporary))
	out = append(out, Rank(temporary)...)
	return append(out, Rank(persisted)...)
}
