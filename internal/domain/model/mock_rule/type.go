package model

import "strings"

// Source tells where a definition came from.
type Source string

const (
	SourcePersisted Source = "persisted"
	SourceTemporary Source = "temporary"
)

func (s Source) String() string {
	return string(s)
}

// DefaultMethod is used when a definition does not declare one.
const DefaultMethod = "POST"

// 允许的请求方法
var allowedMethods = map[string]struct{}{
	"GET":    {},
	"POST":   {},
	"PUT":    {},
	"DELETE": {},
	"PATCH":  {},
}

// IsAllowedMethod reports whether m (any case) is a supported definition method.
func IsAllowedMethod(m string) bool {
	_, ok := allowedMethods[strings.ToUpper(m)]
	return ok
}

// Latency bounds in milliseconds.
const (
	MinLatencyMs = 0
	MaxLatencyMs = 30000
)

// ClampLatency forces ms into [MinLatencyMs, MaxLatencyMs].
func ClampLatency(ms int) int {
	if ms < MinLatencyMs {
		return MinLatencyMs
	}
	if ms > MaxLatencyMs {
		return MaxLatencyMs
	}
	return ms
}

// Predicate markers.
const (
	RegexMarker    = "regex:"
	WildcardMarker = "*"
)

// StrategyKind 响应策略类型
type StrategyKind string

const (
	StrategyNamedFunction StrategyKind = "named_function"
	StrategyRemote        StrategyKind = "remote"
	StrategyInline        StrategyKind = "inline_function"
	StrategyStatic        StrategyKind = "static"
)

func (k StrategyKind) String() string {
	return string(k)
}
