package model

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strings"

	"github.com/PaesslerAG/jsonpath"
)

// PathConstraint matches the request path exactly or by anchored regex.
type PathConstraint struct {
	Pattern string
	Regex   *regexp.Regexp // nil for exact matching
}

func (c PathConstraint) Matches(path string) bool {
	if c.Regex != nil {
		return c.Regex.MatchString(path)
	}
	return path == c.Pattern
}

func (c PathConstraint) String() string {
	if c.Regex != nil {
		return "regex " + c.Regex.String()
	}
	return "exact " + c.Pattern
}

// BodyConstraintKind tags the BodyConstraint variant.
type BodyConstraintKind string

const (
	BodyContains    BodyConstraintKind = "contains"
	BodyPointEquals BodyConstraintKind = "point_equals"
	BodyRegexAt     BodyConstraintKind = "regex_at"
)

// pathLookup is a compiled JSONPath evaluable.
type pathLookup func(ctx context.Context, data interface{}) (interface{}, error)

// BodyConstraint is one independent requirement on the decoded JSON body.
type BodyConstraint struct {
	Kind     BodyConstraintKind
	Path     string // empty for BodyContains
	Expected any    // subset object, or the pinned value
	Regex    *regexp.Regexp

	lookup pathLookup
}

// NewContainsConstraint requires the body to structurally contain subset.
func NewContainsConstraint(subset map[string]any) BodyConstraint {
	return BodyConstraint{Kind: BodyContains, Expected: subset}
}

// NewPointEqualsConstraint pins value at path.
func NewPointEqualsConstraint(path JSONPath, value any) (BodyConstraint, error) {
	lookup, err := compileLookup(path)
	if err != nil {
		return BodyConstraint{}, err
	}
	return BodyConstraint{Kind: BodyPointEquals, Path: path.String(), Expected: value, lookup: lookup}, nil
}

// NewRegexAtConstraint requires the scalar at path to match pattern.
func NewRegexAtConstraint(path JSONPath, pattern string) (BodyConstraint, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return BodyConstraint{}, fmt.Errorf("invalid regex %q at %s: %w", pattern, path.String(), err)
	}
	lookup, err := compileLookup(path)
	if err != nil {
		return BodyConstraint{}, err
	}
	return BodyConstraint{Kind: BodyRegexAt, Path: path.String(), Expected: pattern, Regex: re, lookup: lookup}, nil
}

func compileLookup(path JSONPath) (pathLookup, error) {
	expr := path.Expression()
	eval, err := jsonpath.New(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid json path %s: %w", expr, err)
	}
	return pathLookup(eval), nil
}

// Matches evaluates the constraint against a decoded body. isJSON false
// means the body was opaque and no body constraint can hold.
func (c BodyConstraint) Matches(ctx context.Context, body any, isJSON bool) bool {
	if !isJSON {
		return false
	}
	switch c.Kind {
	case BodyContains:
		return ContainsValue(body, c.Expected)
	case BodyPointEquals:
		v, ok := c.valueAt(ctx, body)
		if !ok {
			return false
		}
		if _, isArr := c.Expected.([]any); isArr {
			return ContainsValue(v, c.Expected)
		}
		return ValuesEqual(v, c.Expected)
	case BodyRegexAt:
		v, ok := c.valueAt(ctx, body)
		if !ok {
			return false
		}
		s, ok := ScalarString(v)
		return ok && c.Regex.MatchString(s)
	default:
		return false
	}
}

func (c BodyConstraint) valueAt(ctx context.Context, body any) (any, bool) {
	if c.lookup == nil {
		return nil, false
	}
	v, err := c.lookup(ctx, body)
	if err != nil {
		return nil, false
	}
	return v, true
}

func (c BodyConstraint) String() string {
	switch c.Kind {
	case BodyContains:
		return fmt.Sprintf("contains %v", c.Expected)
	case BodyRegexAt:
		return fmt.Sprintf("%s =~ %s", c.Path, c.Regex.String())
	default:
		return fmt.Sprintf("%s == %v", c.Path, c.Expected)
	}
}

// HeaderConstraint 请求头约束：存在 或 忽略大小写相等
type HeaderConstraint struct {
	Name   string // lower-case
	Exists bool
	Value  string
}

func (c HeaderConstraint) Matches(headers map[string]string) bool {
	v, ok := headers[c.Name]
	if !ok {
		return false
	}
	if c.Exists {
		// "*" 要求非空值
		return strings.TrimSpace(v) != ""
	}
	return strings.EqualFold(v, c.Value)
}

func (c HeaderConstraint) String() string {
	if c.Exists {
		return c.Name + " exists"
	}
	return c.Name + " == " + c.Value
}

// QueryConstraint is either a single-parameter existence check or a group of
// parameters that must all carry the given values.
type QueryConstraint struct {
	Exists string
	Equals map[string]string
}

func (c QueryConstraint) Matches(query url.Values) bool {
	if c.Exists != "" {
		_, ok := query[c.Exists]
		return ok
	}
	for k, want := range c.Equals {
		values, ok := query[k]
		if !ok {
			return false
		}
		found := false
		for _, v := range values {
			if v == want {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func (c QueryConstraint) String() string {
	if c.Exists != "" {
		return c.Exists + " exists"
	}
	keys := make([]string, 0, len(c.Equals))
	for k := range c.Equals {
		keys = append(keys, k+"="+c.Equals[k])
	}
	sort.Strings(keys)
	return strings.Join(keys, "&")
}
