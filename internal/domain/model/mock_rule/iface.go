package model

import (
	"net/url"
	"time"
)

type RequestInfo interface {
	GetMethod() string             // 请求方法
	GetPath() string               // 请求路径（已去除挂载前缀）
	GetHeaders() map[string]string // 小写 key，多值以逗号拼接
	GetQuery() url.Values
	GetBody() []byte
	// GetBodyValue returns the decoded JSON body and whether the body was
	// treated as JSON at all. Non-JSON bodies never satisfy body constraints.
	GetBodyValue() (any, bool)
	GetBodyJSON() (map[string]any, error)
}

type ResponseInfo interface {
	GetStatus() int                       // Get response status code
	GetHeaders() map[string]string        // Get response headers
	GetBody() []byte                      // Get response body as raw bytes
	GetBodyJSON() (map[string]any, error) // Get response body as JSON
	GetDelay() time.Duration              // Get configured response delay
	GetError() error                      // Get any error associated with the response
}
