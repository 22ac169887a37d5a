package model

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// ResponseGenerator produces a response from the live request. Generators are
// registered by name and referenced from a definition's responseFunction.
type ResponseGenerator interface {
	Generate(ctx context.Context, req RequestInfo, def *MockDefinition) (ResponseInfo, error)
}

// GeneratorFunc adapts a plain function to ResponseGenerator.
type GeneratorFunc func(ctx context.Context, req RequestInfo, def *MockDefinition) (ResponseInfo, error)

func (f GeneratorFunc) Generate(ctx context.Context, req RequestInfo, def *MockDefinition) (ResponseInfo, error) {
	return f(ctx, req, def)
}

var (
	generatorMu       sync.RWMutex
	generatorRegistry = make(map[string]ResponseGenerator)
)

// RegisterGenerator adds or replaces a named generator.
func RegisterGenerator(name string, g ResponseGenerator) {
	generatorMu.Lock()
	defer generatorMu.Unlock()
	generatorRegistry[name] = g
}

func LookupGenerator(name string) (ResponseGenerator, bool) {
	generatorMu.RLock()
	defer generatorMu.RUnlock()
	g, ok := generatorRegistry[name]
	return g, ok
}

// GeneratorNames lists registered generators in name order.
func GeneratorNames() []string {
	generatorMu.RLock()
	defer generatorMu.RUnlock()
	names := make([]string, 0, len(generatorRegistry))
	for name := range generatorRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// 初始化时注册内置生成器
func init() {
	RegisterGenerator("echo", GeneratorFunc(echoGenerator))
	RegisterGenerator("request-info", GeneratorFunc(requestInfoGenerator))
	RegisterGenerator("uuid", GeneratorFunc(uuidGenerator))
}

// echoGenerator returns the request body unchanged.
func echoGenerator(_ context.Context, req RequestInfo, def *MockDefinition) (ResponseInfo, error) {
	headers := map[string]string{}
	if ct, ok := req.GetHeaders()["content-type"]; ok {
		headers["content-type"] = ct
	}
	for k, v := range def.ResponseHeaders {
		headers[k] = v
	}
	return NewResponse(http.StatusOK, headers, req.GetBody()), nil
}

func requestInfoGenerator(_ context.Context, req RequestInfo, def *MockDefinition) (ResponseInfo, error) {
	info := map[string]any{
		"method":  req.GetMethod(),
		"path":    req.GetPath(),
		"headers": req.GetHeaders(),
		"query":   req.GetQuery(),
		"mockId":  def.ID,
	}
	if v, ok := req.GetBodyValue(); ok {
		info["body"] = v
	} else {
		info["body"] = string(req.GetBody())
	}
	body, err := json.Marshal(info)
	if err != nil {
		return nil, err
	}
	return NewResponse(http.StatusOK, jsonHeaders(def.ResponseHeaders), body), nil
}

func uuidGenerator(_ context.Context, _ RequestInfo, def *MockDefinition) (ResponseInfo, error) {
	body, err := json.Marshal(map[string]string{"id": uuid.NewString()})
	if err != nil {
		return nil, err
	}
	return NewResponse(http.StatusOK, jsonHeaders(def.ResponseHeaders), body), nil
}

func jsonHeaders(extra map[string]string) map[string]string {
	headers := map[string]string{"content-type": "application/json"}
	for k, v := range extra {
		headers[k] = v
	}
	return headers
}
