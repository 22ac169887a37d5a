package model

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, s string) any {
	t.Helper()
	var v any
	require.NoError(t, json.Unmarshal([]byte(s), &v))
	return v
}

func TestHasRegexMeta(t *testing.T) {
	tests := []struct {
		path     string
		expected bool
	}{
		{"/login", false},
		{"/api/users", false},
		{"/users/\\d+", true},
		{"/v1.0/orders", true},
		{"/order/[0-9]+", true},
		{"/a-b_c", false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.expected, HasRegexMeta(tt.path))
		})
	}
}

func TestCountLeafFields(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected int
	}{
		{"empty object", `{}`, 0},
		{"flat", `{"a":1,"b":"x"}`, 2},
		{"nested", `{"user":{"id":"1","profile":{"age":3}},"x":true}`, 3},
		{"array elements", `{"tags":["a","b"],"n":null}`, 3},
		{"array of objects", `{"items":[{"id":1},{"id":2,"q":3}]}`, 3},
		{"scalar root", `"abc"`, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CountLeafFields(decode(t, tt.input)))
		})
	}
}

func TestJSONPath(t *testing.T) {
	var root JSONPath
	p := root.Key("user").Key("phones").Index(0)
	assert.Equal(t, "user.phones[0]", p.String())
	assert.Equal(t, "$.user.phones[0]", p.Expression())

	odd := root.Key("x-trace")
	assert.Equal(t, `["x-trace"]`, odd.String())
	assert.Equal(t, `$["x-trace"]`, odd.Expression())

	// Key must not alias the parent's backing array
	a := p.Key("a")
	b := p.Key("b")
	assert.Equal(t, "user.phones[0].a", a.String())
	assert.Equal(t, "user.phones[0].b", b.String())
	assert.Equal(t, "$", root.Expression())
}

func TestIsUnsafeKey(t *testing.T) {
	assert.True(t, IsUnsafeKey("-id"))
	assert.True(t, IsUnsafeKey("ns:name"))
	assert.False(t, IsUnsafeKey("name"))
	assert.False(t, IsUnsafeKey("a-b"))
}

func TestContainsValue(t *testing.T) {
	tests := []struct {
		name     string
		actual   string
		expected string
		match    bool
	}{
		{"subset object", `{"a":1,"b":{"c":"x","d":2}}`, `{"b":{"c":"x"}}`, true},
		{"missing key", `{"a":1}`, `{"b":1}`, false},
		{"number coercion", `{"n":1.0}`, `{"n":1}`, true},
		{"false vs absent", `{"x":1}`, `{"active":false}`, false},
		{"false vs false", `{"active":false}`, `{"active":false}`, true},
		{"zero vs false", `{"active":0}`, `{"active":false}`, false},
		{"empty string vs null", `{"s":null}`, `{"s":""}`, false},
		{"array subset", `{"tags":["a","b","c"]}`, `{"tags":["c","a"]}`, true},
		{"array missing element", `{"tags":["a"]}`, `{"tags":["a","z"]}`, false},
		{"array of objects", `{"items":[{"id":1,"q":2},{"id":3}]}`, `{"items":[{"id":3}]}`, true},
		{"type mismatch", `{"a":"1"}`, `{"a":1}`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.match, ContainsValue(decode(t, tt.actual), decode(t, tt.expected)))
		})
	}
}

func TestScalarString(t *testing.T) {
	s, ok := ScalarString(float64(1234567890))
	assert.True(t, ok)
	assert.Equal(t, "1234567890", s)

	s, ok = ScalarString(true)
	assert.True(t, ok)
	assert.Equal(t, "true", s)

	_, ok = ScalarString(map[string]any{})
	assert.False(t, ok)
}

func TestBodyConstraint(t *testing.T) {
	ctx := context.Background()
	var root JSONPath
	body := decode(t, `{"user":{"phone":"1234567890","active":false,"roles":["admin","dev"]}}`)

	re, err := NewRegexAtConstraint(root.Key("user").Key("phone"), `^\d{10}$`)
	require.NoError(t, err)
	assert.True(t, re.Matches(ctx, body, true))
	assert.False(t, re.Matches(ctx, decode(t, `{"user":{"phone":"12345"}}`), true))
	assert.False(t, re.Matches(ctx, decode(t, `{"user":{}}`), true))
	assert.False(t, re.Matches(ctx, body, false), "opaque body never matches")

	eq, err := NewPointEqualsConstraint(root.Key("user").Key("active"), false)
	require.NoError(t, err)
	assert.True(t, eq.Matches(ctx, body, true))
	assert.False(t, eq.Matches(ctx, decode(t, `{"user":{}}`), true))

	arr, err := NewPointEqualsConstraint(root.Key("user").Key("roles"), []any{"dev"})
	require.NoError(t, err)
	assert.True(t, arr.Matches(ctx, body, true))

	_, err = NewRegexAtConstraint(root.Key("x"), `(`)
	assert.Error(t, err)

	c := NewContainsConstraint(map[string]any{"user": map[string]any{"active": false}})
	assert.True(t, c.Matches(ctx, body, true))
}

func TestHeaderAndQueryConstraint(t *testing.T) {
	h := HeaderConstraint{Name: "x-token", Exists: true}
	assert.True(t, h.Matches(map[string]string{"x-token": "anything"}))
	assert.False(t, h.Matches(map[string]string{}))
	assert.False(t, h.Matches(map[string]string{"x-token": ""}))

	auth := HeaderConstraint{Name: "authorization", Exists: true}
	empty := httptest.NewRequest("GET", "/q", nil)
	empty.Header.Set("Authorization", "")
	info, err := NewHTTPRequest(empty, "")
	require.NoError(t, err)
	assert.False(t, auth.Matches(info.GetHeaders()), "empty authorization header")

	h = HeaderConstraint{Name: "x-env", Value: "Prod"}
	assert.True(t, h.Matches(map[string]string{"x-env": "prod"}))
	assert.False(t, h.Matches(map[string]string{"x-env": "dev"}))

	req := httptest.NewRequest("GET", "/q?a=1&a=2&b=x", nil)
	q := req.URL.Query()
	assert.True(t, QueryConstraint{Exists: "b"}.Matches(q))
	assert.False(t, QueryConstraint{Exists: "c"}.Matches(q))
	assert.True(t, QueryConstraint{Equals: map[string]string{"a": "2", "b": "x"}}.Matches(q))
	assert.False(t, QueryConstraint{Equals: map[string]string{"b": "X"}}.Matches(q))
}

func TestHTTPRequestInfo(t *testing.T) {
	r := httptest.NewRequest("POST", "/mock/login?x=1", strings.NewReader(`{"u":"a"}`))
	r.Header.Set("X-Trace", "abc")
	info, err := NewHTTPRequest(r, "/mock")
	require.NoError(t, err)

	assert.Equal(t, "/login", info.GetPath())
	assert.Equal(t, "abc", info.GetHeaders()["x-trace"])
	v, ok := info.GetBodyValue()
	assert.True(t, ok)
	assert.Equal(t, map[string]any{"u": "a"}, v)

	r = httptest.NewRequest("POST", "/login", strings.NewReader(`u=a`))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	info, err = NewHTTPRequest(r, "")
	require.NoError(t, err)
	_, ok = info.GetBodyValue()
	assert.False(t, ok)
	_, err = info.GetBodyJSON()
	assert.Error(t, err)
}

func TestMockDefinitionNormalizeValidate(t *testing.T) {
	d := &MockDefinition{APIName: " login ", Method: "get", LatencyMs: 40000, ResponseBody: map[string]any{}}
	d.Normalize()
	assert.Equal(t, "login", d.APIName)
	assert.Equal(t, "GET", d.Method)
	assert.Equal(t, MaxLatencyMs, d.LatencyMs)
	assert.NoError(t, d.Validate())
	assert.Equal(t, "/login", d.PathPattern())

	d = &MockDefinition{}
	d.Normalize()
	assert.Equal(t, DefaultMethod, d.Method)
	err := d.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidDefinition))
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Len(t, verr.Problems, 2)

	d = &MockDefinition{APIName: "x", Method: "TRACE", ResponseBody: "ok",
		CallbackForwarder: &CallbackForwarder{DelaySeconds: -1}}
	err = d.Validate()
	require.True(t, errors.As(err, &verr))
	assert.Len(t, verr.Problems, 4)
}

func TestBodyPredicatePrefersRequest(t *testing.T) {
	d := &MockDefinition{
		Predicate:      Predicate{Request: map[string]any{"a": 1}},
		RequestPayload: map[string]any{"b": 1, "c": 2},
	}
	assert.Equal(t, map[string]any{"a": 1}, d.BodyPredicate())
	d.Predicate.Request = nil
	assert.Equal(t, map[string]any{"b": 1, "c": 2}, d.BodyPredicate())
	d.RequestPayload = nil
	assert.Nil(t, d.BodyPredicate())
}

func TestResponseFunctionUnmarshal(t *testing.T) {
	var d MockDefinition
	require.NoError(t, json.Unmarshal([]byte(`{"apiName":"a","responseFunction":"echo"}`), &d))
	require.NotNil(t, d.ResponseFunction)
	assert.Equal(t, "echo", d.ResponseFunction.Name)

	d = MockDefinition{}
	require.NoError(t, json.Unmarshal([]byte(`{"apiName":"a","responseFunction":"{\"ok\":true}"}`), &d))
	assert.Equal(t, `{"ok":true}`, d.ResponseFunction.Source)

	d = MockDefinition{}
	require.NoError(t, json.Unmarshal([]byte(`{"apiName":"a","responseFunction":{"name":"uuid"}}`), &d))
	assert.Equal(t, "uuid", d.ResponseFunction.Name)
}

func TestBuiltinGenerators(t *testing.T) {
	assert.Subset(t, GeneratorNames(), []string{"echo", "request-info", "uuid"})

	r := httptest.NewRequest("POST", "/echo", strings.NewReader(`{"a":1}`))
	r.Header.Set("Content-Type", "application/json")
	info, err := NewHTTPRequest(r, "")
	require.NoError(t, err)

	g, ok := LookupGenerator("echo")
	require.True(t, ok)
	resp, err := g.Generate(context.Background(), info, &MockDefinition{ID: "m1"})
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(resp.GetBody()))
	assert.Equal(t, "application/json", resp.GetHeaders()["content-type"])

	g, _ = LookupGenerator("request-info")
	resp, err = g.Generate(context.Background(), info, &MockDefinition{ID: "m1"})
	require.NoError(t, err)
	out, err := resp.GetBodyJSON()
	require.NoError(t, err)
	assert.Equal(t, "/echo", out["path"])
	assert.Equal(t, "m1", out["mockId"])
}
