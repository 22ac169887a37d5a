package model

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Predicate holds the request attributes a definition requires.
type Predicate struct {
	Request map[string]any `json:"request,omitempty"`
	Headers map[string]any `json:"headers,omitempty"`
	Query   map[string]any `json:"query,omitempty"`
}

// ResponseFunction selects a generated response. Name refers to a generator in
// the registry; Source is an inline text/template rendered per request.
type ResponseFunction struct {
	Name   string `json:"name,omitempty"`
	Source string `json:"source,omitempty"`
}

// IsZero reports whether neither a name nor a source is set.
func (f *ResponseFunction) IsZero() bool {
	return f == nil || (strings.TrimSpace(f.Name) == "" && strings.TrimSpace(f.Source) == "")
}

// UnmarshalJSON accepts either an object or a bare string. A bare string that
// names a registered generator becomes Name, anything else becomes Source.
func (f *ResponseFunction) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if _, ok := LookupGenerator(s); ok {
			f.Name = s
		} else {
			f.Source = s
		}
		return nil
	}
	type alias ResponseFunction
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return fmt.Errorf("responseFunction must be a string or object: %w", err)
	}
	*f = ResponseFunction(a)
	return nil
}

// CallbackForwarder configures the deferred callback used by remote-content
// responses.
type CallbackForwarder struct {
	RedirectField     string `json:"redirectField"`
	CallbackURLSource string `json:"callbackUrlSource"`
	DelaySeconds      int    `json:"delaySeconds"`
	Payload           any    `json:"payload,omitempty"`
}

// MockDefinition Mock 定义（外部仓库持有，核心只读）
type MockDefinition struct {
	ID                string             `gorm:"primaryKey;type:varchar(36)" json:"id"`
	BusinessName      string             `gorm:"type:varchar(100)" json:"businessName,omitempty"`
	APIName           string             `gorm:"type:varchar(255);index:idx_api_method" json:"apiName"`
	Method            string             `gorm:"type:varchar(10);index:idx_api_method" json:"method"`
	Predicate         Predicate          `gorm:"serializer:json;type:json" json:"predicate"`
	RequestPayload    map[string]any     `gorm:"serializer:json;type:json" json:"requestPayload,omitempty"`
	ResponseHeaders   map[string]string  `gorm:"serializer:json;type:json" json:"responseHeaders,omitempty"`
	ResponseBody      any                `gorm:"serializer:json;type:json" json:"responseBody"`
	ResponseFunction  *ResponseFunction  `gorm:"serializer:json;type:json" json:"responseFunction,omitempty"`
	RemoteURL         string             `gorm:"type:varchar(512)" json:"remoteUrl,omitempty"`
	LatencyMs         int                `gorm:"default:0" json:"latencyMs"`
	CallbackForwarder *CallbackForwarder `gorm:"serializer:json;type:json" json:"callbackForwarder,omitempty"`
	Source            Source             `gorm:"-" json:"source,omitempty"`
	CreatedAt         time.Time          `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt         time.Time          `gorm:"autoUpdateTime" json:"updatedAt"`
}

// TableName keeps the gorm table name stable across renames.
func (MockDefinition) TableName() string {
	return "mock_definitions"
}

// Normalize applies defaults: trimmed api name, upper-case method (POST when
// empty), clamped latency.
func (d *MockDefinition) Normalize() {
	d.APIName = strings.TrimSpace(d.APIName)
	d.Method = strings.ToUpper(strings.TrimSpace(d.Method))
	if d.Method == "" {
		d.Method = DefaultMethod
	}
	d.LatencyMs = ClampLatency(d.LatencyMs)
	if d.ResponseFunction != nil && d.ResponseFunction.IsZero() {
		d.ResponseFunction = nil
	}
}

// Validate checks the invariants of a normalized definition.
func (d *MockDefinition) Validate() error {
	verr := &ValidationError{}
	if d.APIName == "" {
		verr.add("apiName is required")
	}
	if !IsAllowedMethod(d.Method) {
		verr.add(fmt.Sprintf("method %q is not one of GET, POST, PUT, DELETE, PATCH", d.Method))
	}
	if d.LatencyMs < MinLatencyMs || d.LatencyMs > MaxLatencyMs {
		verr.add(fmt.Sprintf("latencyMs must be within [%d, %d]", MinLatencyMs, MaxLatencyMs))
	}
	if d.ResponseBody == nil && d.ResponseFunction.IsZero() {
		verr.add("responseBody is required unless responseFunction is set")
	}
	if cf := d.CallbackForwarder; cf != nil {
		if strings.TrimSpace(cf.RedirectField) == "" {
			verr.add("callbackForwarder.redirectField is required")
		}
		if strings.TrimSpace(cf.CallbackURLSource) == "" {
			verr.add("callbackForwarder.callbackUrlSource is required")
		}
		if cf.DelaySeconds < 0 {
			verr.add("callbackForwarder.delaySeconds must not be negative")
		}
	}
	return verr.orNil()
}

// BodyPredicate returns predicate.request, or requestPayload when the former
// is empty. Nil when both are empty.
func (d *MockDefinition) BodyPredicate() map[string]any {
	if len(d.Predicate.Request) > 0 {
		return d.Predicate.Request
	}
	if len(d.RequestPayload) > 0 {
		return d.RequestPayload
	}
	return nil
}

// PathPattern is the request path the definition serves.
func (d *MockDefinition) PathPattern() string {
	return "/" + strings.TrimPrefix(d.APIName, "/")
}

// Clone returns a deep copy, so the compiled table never shares maps with a
// definition that a caller may still mutate.
func (d *MockDefinition) Clone() *MockDefinition {
	if d == nil {
		return nil
	}
	raw, err := json.Marshal(d)
	if err != nil {
		cp := *d
		return &cp
	}
	cp := &MockDefinition{}
	if err := json.Unmarshal(raw, cp); err != nil {
		shallow := *d
		return &shallow
	}
	cp.Source = d.Source
	return cp
}
