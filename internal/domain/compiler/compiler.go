package compiler

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"text/template"

	model "go_mock_dispatch/internal/domain/model/mock_rule"
)

// CompileFailure records a definition left out of a rule table.
type CompileFailure struct {
	DefinitionID string `json:"mockId"`
	APIName      string `json:"apiName"`
	Method       string `json:"method"`
	Err          error  `json:"-"`
	Reason       string `json:"reason"`
}

func (f CompileFailure) Error() string {
	return fmt.Sprintf("compile %s %s (%s): %s", f.Method, f.APIName, f.DefinitionID, f.Reason)
}

func (f CompileFailure) Unwrap() error {
	return f.Err
}

func newFailure(def *model.MockDefinition, err error) *CompileFailure {
	return &CompileFailure{
		DefinitionID: def.ID,
		APIName:      def.APIName,
		Method:       def.Method,
		Err:          err,
		Reason:       err.Error(),
	}
}

// Compile turns one definition into an executable MatchRule. The definition
// is normalized on a private copy; the caller's value is never touched.
// Specificity is left for the ranker.
func Compile(def *model.MockDefinition) (*model.MatchRule, error) {
	if def == nil {
		return nil, fmt.Errorf("nil definition: %w", model.ErrInvalidDefinition)
	}
	d := def.Clone()
	d.Normalize()
	if err := d.Validate(); err != nil {
		return nil, newFailure(d, err)
	}

	path, err := compilePath(d.PathPattern())
	if err != nil {
		return nil, newFailure(d, err)
	}
	body, err := compileBody(d.BodyPredicate())
	if err != nil {
		return nil, newFailure(d, err)
	}
	strategy, err := compileStrategy(d)
	if err != nil {
		return nil, newFailure(d, err)
	}

	rule := &model.MatchRule{
		DefinitionID: d.ID,
		APIName:      d.APIName,
		Path:         path,
		Method:       d.Method,
		Body:         body,
		Headers:      compileHeaders(d.Predicate.Headers),
		Query:        compileQuery(d.Predicate.Query),
		Strategy:     strategy,
		LatencyMs:    d.LatencyMs,
		Temporary:    d.Source == model.SourceTemporary,
		CreatedUnix:  d.CreatedAt.UnixNano(),
		Definition:   d,
	}
	return rule, nil
}

func compilePath(pattern string) (model.PathConstraint, error) {
	if !model.HasRegexMeta(pattern) {
		return model.PathConstraint{Pattern: pattern}, nil
	}
	re, err := regexp.Compile("^" + pattern + "$")
	if err != nil {
		return model.PathConstraint{}, fmt.Errorf("invalid path pattern %q: %w", pattern, err)
	}
	return model.PathConstraint{Pattern: pattern, Regex: re}, nil
}

// compileHeaders 请求头 key 统一小写；"*" 表示只要求存在
func compileHeaders(headers map[string]any) []model.HeaderConstraint {
	if len(headers) == 0 {
		return nil
	}
	out := make([]model.HeaderConstraint, 0, len(headers))
	for k, v := range headers {
		name := strings.ToLower(strings.TrimSpace(k))
		value := stringify(v)
		if value == model.WildcardMarker {
			out = append(out, model.HeaderConstraint{Name: name, Exists: true})
			continue
		}
		out = append(out, model.HeaderConstraint{Name: name, Value: value})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func compileQuery(query map[string]any) []model.QueryConstraint {
	if len(query) == 0 {
		return nil
	}
	keys := make([]string, 0, len(query))
	for k := range query {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var out []model.QueryConstraint
	equals := make(map[string]string)
	for _, k := range keys {
		value := stringify(query[k])
		if value == model.WildcardMarker {
			out = append(out, model.QueryConstraint{Exists: k})
			continue
		}
		equals[k] = value
	}
	if len(equals) > 0 {
		out = append(out, model.QueryConstraint{Equals: equals})
	}
	return out
}

// compileStrategy fixes the response strategy in priority order: named
// function, remote content, inline function, static.
func compileStrategy(d *model.MockDefinition) (model.ResponseStrategy, error) {
	s := model.ResponseStrategy{
		Headers:  d.ResponseHeaders,
		Body:     d.ResponseBody,
		Callback: d.CallbackForwarder,
	}
	fn := d.ResponseFunction
	switch {
	case fn != nil && fn.Name != "":
		if _, ok := model.LookupGenerator(fn.Name); !ok {
			return s, fmt.Errorf("%w: %s", model.ErrUnknownGenerator, fn.Name)
		}
		s.Kind = model.StrategyNamedFunction
		s.FunctionName = fn.Name
	case d.RemoteURL != "":
		s.Kind = model.StrategyRemote
		s.RemoteURL = d.RemoteURL
	case fn != nil && fn.Source != "":
		tpl, err := template.New(d.APIName).Funcs(model.TemplateFuncs()).Parse(fn.Source)
		if err != nil {
			return s, fmt.Errorf("invalid inline response function: %w", err)
		}
		s.Kind = model.StrategyInline
		s.InlineSource = fn.Source
		s.Inline = tpl
	default:
		s.Kind = model.StrategyStatic
	}
	return s, nil
}

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case nil:
		return ""
	default:
		if s, ok := model.ScalarString(t); ok {
			return s
		}
		return fmt.Sprint(t)
	}
}
