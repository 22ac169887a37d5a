package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
)

type HTTPRequestInfo struct {
	req       *http.Request
	path      string
	bodyCache []byte

	headersOnce sync.Once
	headers     map[string]string

	bodyOnce  sync.Once
	bodyValue any
	bodyJSON  bool
}

var _ RequestInfo = (*HTTPRequestInfo)(nil)

// NewHTTPRequest 创建 HTTP RequestInfo，预读并缓存请求体。
// pathPrefix, when non-empty, is stripped from the request path.
func NewHTTPRequest(r *http.Request, pathPrefix string) (*HTTPRequestInfo, error) {
	var body []byte
	if r.Body != nil {
		var err error
		body, err = io.ReadAll(r.Body)
		r.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read request body: %w", err)
		}
		r.Body = io.NopCloser(bytes.NewReader(body))
	}

	path := r.URL.Path
	if pathPrefix != "" && strings.HasPrefix(path, pathPrefix) {
		path = strings.TrimPrefix(path, pathPrefix)
		if !strings.HasPrefix(path, "/") {
			path = "/" + path
		}
	}

	return &HTTPRequestInfo{
		req:       r,
		path:      path,
		bodyCache: body,
	}, nil
}

func (h *HTTPRequestInfo) GetMethod() string {
	return h.req.Method
}

func (h *HTTPRequestInfo) GetPath() string {
	return h.path
}

func (h *HTTPRequestInfo) GetHeaders() map[string]string {
	h.headersOnce.Do(func() {
		h.headers = make(map[string]string, len(h.req.Header))
		for k, v := range h.req.Header {
			h.headers[strings.ToLower(k)] = strings.Join(v, ",")
		}
	})
	return h.headers
}

func (h *HTTPRequestInfo) GetQuery() url.Values {
	return h.req.URL.Query()
}

func (h *HTTPRequestInfo) GetBody() []byte {
	return h.bodyCache
}

func (h *HTTPRequestInfo) GetBodyValue() (any, bool) {
	h.bodyOnce.Do(func() {
		if !looksLikeJSON(h.req.Header.Get("Content-Type"), h.bodyCache) {
			return
		}
		var v any
		if err := json.Unmarshal(h.bodyCache, &v); err != nil {
			return
		}
		h.bodyValue = v
		h.bodyJSON = true
	})
	return h.bodyValue, h.bodyJSON
}

func (h *HTTPRequestInfo) GetBodyJSON() (map[string]any, error) {
	v, ok := h.GetBodyValue()
	if !ok {
		return nil, fmt.Errorf("request body is not JSON")
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("request body is not a JSON object")
	}
	return m, nil
}

// looksLikeJSON: JSON content types are parsed; untyped bodies are parsed
// when they start with '{' or '['.
func looksLikeJSON(contentType string, body []byte) bool {
	if len(body) == 0 {
		return false
	}
	ct := strings.ToLower(contentType)
	if strings.Contains(ct, "json") {
		return true
	}
	if ct != "" {
		return false
	}
	trimmed := bytes.TrimSpace(body)
	return len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[')
}
