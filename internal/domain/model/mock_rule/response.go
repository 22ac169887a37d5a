package model

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// BaseResponse 实现 ResponseInfo 接口的具体类型
type BaseResponse struct {
	status  int
	headers map[string]string
	body    []byte
	delay   time.Duration
	err     error
}

var _ ResponseInfo = (*BaseResponse)(nil)

func NewResponse(status int, headers map[string]string, body []byte) *BaseResponse {
	if headers == nil {
		headers = map[string]string{}
	}
	return &BaseResponse{status: status, headers: headers, body: body}
}

// NewErrorResponse builds a JSON error body and keeps err for logging.
func NewErrorResponse(status int, err error) *BaseResponse {
	body, _ := json.Marshal(struct {
		Error string `json:"error"`
	}{Error: err.Error()})
	return &BaseResponse{
		status:  status,
		headers: map[string]string{"content-type": "application/json"},
		body:    body,
		err:     err,
	}
}

// WithDelay returns r with the response delay set.
func (r *BaseResponse) WithDelay(d time.Duration) *BaseResponse {
	r.delay = d
	return r
}

func (r *BaseResponse) GetStatus() int {
	if r.status == 0 { // 默认状态码处理
		return http.StatusOK
	}
	return r.status
}

func (r *BaseResponse) GetHeaders() map[string]string {
	return r.headers
}

func (r *BaseResponse) GetBody() []byte {
	return r.body
}

func (r *BaseResponse) GetBodyJSON() (map[string]any, error) {
	var result map[string]any
	if err := json.Unmarshal(r.body, &result); err != nil {
		return nil, fmt.Errorf("failed to decode response body: %w", err)
	}
	return result, nil
}

func (r *BaseResponse) GetDelay() time.Duration {
	return r.delay
}

func (r *BaseResponse) GetError() error {
	return r.err
}

func (r *BaseResponse) String() string {
	return fmt.Sprintf("Status: %d, Headers: %v, Body: %s, Delay: %v, Error: %v",
		r.GetStatus(),
		r.headers,
		string(r.body),
		r.delay,
		r.err)
}

// MarshalBody renders a definition response body: strings verbatim,
// raw JSON unchanged, anything else JSON-encoded.
func MarshalBody(body any) ([]byte, error) {
	switch b := body.(type) {
	case nil:
		return nil, nil
	case string:
		return []byte(b), nil
	case []byte:
		return b, nil
	case json.RawMessage:
		return b, nil
	default:
		out, err := json.Marshal(b)
		if err != nil {
			return nil, fmt.Errorf("failed to encode response body: %w", err)
		}
		return out, nil
	}
}
