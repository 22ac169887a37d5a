package compiler

import (
	"encoding/json"
	"sort"
	"strings"

	model "go_mock_dispatch/internal/domain/model/mock_rule"
)

// compileBody turns a body predicate into independent constraints.
//
// Pass 1 lifts every "regex:" leaf out into a RegexAt constraint.
// Pass 2 matches what remains: a single Contains when only strings are
// left, otherwise one PointEquals per non-empty leaf so that false, 0 and
// absent stay distinguishable.
func compileBody(pred map[string]any) ([]model.BodyConstraint, error) {
	if len(pred) == 0 {
		return nil, nil
	}

	var out []model.BodyConstraint
	remaining := pred
	if hasRegexMarker(pred) {
		var regexes []regexLeaf
		stripped, _ := extractRegex(pred, nil, &regexes)
		remaining, _ = stripped.(map[string]any)
		sort.Slice(regexes, func(i, j int) bool {
			return regexes[i].path.String() < regexes[j].path.String()
		})
		for _, r := range regexes {
			c, err := model.NewRegexAtConstraint(r.path, r.pattern)
			if err != nil {
				return nil, err
			}
			out = append(out, c)
		}
	}
	if len(remaining) == 0 {
		return out, nil
	}

	if !hasTypedLeaf(remaining) {
		return append(out, model.NewContainsConstraint(remaining)), nil
	}

	var leaves []valueLeaf
	collectLeaves(remaining, nil, &leaves)
	for _, l := range leaves {
		c, err := model.NewPointEqualsConstraint(l.path, l.value)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	if len(leaves) > 0 {
		return out, nil
	}

	// nothing safe to pin; fall back to the stripped object
	if subset, ok := stripForContainment(remaining).(map[string]any); ok && len(subset) > 0 {
		out = append(out, model.NewContainsConstraint(subset))
	}
	return out, nil
}

// hasRegexMarker is the cheap serialized scan that lets most predicates skip
// the recursive walk.
func hasRegexMarker(pred map[string]any) bool {
	raw, err := json.Marshal(pred)
	if err != nil {
		return true
	}
	return strings.Contains(string(raw), model.RegexMarker)
}

type regexLeaf struct {
	path    model.JSONPath
	pattern string
}

// extractRegex returns a copy of v without regex leaves and reports whether
// anything is left. Branches emptied by the removal are pruned.
func extractRegex(v any, path model.JSONPath, found *[]regexLeaf) (any, bool) {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, child := range t {
			if kept, ok := extractRegex(child, path.Key(k), found); ok {
				out[k] = kept
			}
		}
		return out, len(out) > 0 || len(t) == 0
	case []any:
		out := make([]any, 0, len(t))
		for i, child := range t {
			if kept, ok := extractRegex(child, path.Index(i), found); ok {
				out = append(out, kept)
			}
		}
		return out, len(out) > 0 || len(t) == 0
	case string:
		if strings.HasPrefix(t, model.RegexMarker) {
			*found = append(*found, regexLeaf{path: path, pattern: strings.TrimPrefix(t, model.RegexMarker)})
			return nil, false
		}
		return t, true
	default:
		return t, true
	}
}

// hasTypedLeaf reports a boolean or number anywhere below v.
func hasTypedLeaf(v any) bool {
	switch t := v.(type) {
	case map[string]any:
		for _, child := range t {
			if hasTypedLeaf(child) {
				return true
			}
		}
	case []any:
		for _, child := range t {
			if hasTypedLeaf(child) {
				return true
			}
		}
	case bool, float64, float32, int, int64, int32, json.Number:
		return true
	}
	return false
}

type valueLeaf struct {
	path  model.JSONPath
	value any
}

// collectLeaves gathers every non-empty leaf under a safe key. Arrays are a
// single leaf matched by containment.
func collectLeaves(v any, path model.JSONPath, out *[]valueLeaf) {
	switch t := v.(type) {
	case map[string]any:
		for _, k := range sortedKeys(t) {
			if model.IsUnsafeKey(k) {
				continue
			}
			collectLeaves(t[k], path.Key(k), out)
		}
	case []any:
		if len(t) > 0 && len(path) > 0 {
			*out = append(*out, valueLeaf{path: path, value: t})
		}
	case nil:
	case string:
		if t != "" && len(path) > 0 {
			*out = append(*out, valueLeaf{path: path, value: t})
		}
	default:
		if len(path) > 0 {
			*out = append(*out, valueLeaf{path: path, value: t})
		}
	}
}

// stripForContainment drops boolean/number leaves, empty strings and unsafe
// keys, then prunes emptied branches.
func stripForContainment(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, child := range t {
			if model.IsUnsafeKey(k) {
				continue
			}
			if kept := stripForContainment(child); kept != nil {
				out[k] = kept
			}
		}
		if len(out) == 0 {
			return nil
		}
		return out
	case []any:
		out := make([]any, 0, len(t))
		for _, child := range t {
			if kept := stripForContainment(child); kept != nil {
				out = append(out, kept)
			}
		}
		if len(out) == 0 {
			return nil
		}
		return out
	case string:
		if t == "" {
			return nil
		}
		return t
	default:
		return nil
	}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	// 固定顺序，保证两次编译得到同样的约束列表
	sort.Strings(keys)
	return keys
}
