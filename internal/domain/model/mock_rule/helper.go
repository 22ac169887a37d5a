package model

import (
	"regexp"
	"strconv"
	"strings"
)

const regexMetaChars = `.*+?^${}()|[]\`

// HasRegexMeta reports whether a path pattern must be compiled as a regex.
//
//	/login          => false
//	/users/\d+      => true
//	/v1.0/orders    => true
func HasRegexMeta(pattern string) bool {
	return strings.ContainsAny(pattern, regexMetaChars)
}

// CountLeafFields counts scalar leaves in a nested JSON value. Arrays count
// element-wise; a top-level value that is neither object nor array counts 0.
func CountLeafFields(v any) int {
	switch t := v.(type) {
	case map[string]any:
		n := 0
		for _, child := range t {
			n += countNode(child)
		}
		return n
	case []any:
		n := 0
		for _, child := range t {
			n += countNode(child)
		}
		return n
	case map[string]string:
		return len(t)
	default:
		return 0
	}
}

func countNode(v any) int {
	switch v.(type) {
	case map[string]any, []any, map[string]string:
		return CountLeafFields(v)
	default:
		return 1
	}
}

// PathSegment is one step of a JSONPath: an object key or an array index.
type PathSegment struct {
	Key     string
	Index   int
	IsIndex bool
}

// JSONPath addresses a value from the body root.
type JSONPath []PathSegment

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Key returns a copy of p extended with an object key.
func (p JSONPath) Key(k string) JSONPath {
	out := make(JSONPath, len(p), len(p)+1)
	copy(out, p)
	return append(out, PathSegment{Key: k})
}

// Index returns a copy of p extended with an array index.
func (p JSONPath) Index(i int) JSONPath {
	out := make(JSONPath, len(p), len(p)+1)
	copy(out, p)
	return append(out, PathSegment{Index: i, IsIndex: true})
}

// String renders dot/bracket notation without the root marker, e.g.
// user.phones[0] or ["x-ns:id"].
func (p JSONPath) String() string {
	var sb strings.Builder
	for i, seg := range p {
		switch {
		case seg.IsIndex:
			sb.WriteString("[" + strconv.Itoa(seg.Index) + "]")
		case identRe.MatchString(seg.Key):
			if i > 0 {
				sb.WriteByte('.')
			}
			sb.WriteString(seg.Key)
		default:
			sb.WriteString("[" + strconv.Quote(seg.Key) + "]")
		}
	}
	return sb.String()
}

// Expression renders p as a $-rooted JSONPath expression.
func (p JSONPath) Expression() string {
	s := p.String()
	if s == "" || strings.HasPrefix(s, "[") {
		return "$" + s
	}
	return "$." + s
}

// IsUnsafeKey reports keys the containment matcher cannot handle reliably:
// attribute-style ("-id") and namespaced ("ns:name") keys.
func IsUnsafeKey(k string) bool {
	return strings.HasPrefix(k, "-") || strings.Contains(k, ":")
}
