package model

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"text/template"
	"time"

	"github.com/google/uuid"
)

// TemplateFuncs are the helpers available to inline response templates.
// Templates get no file, network or process access.
func TemplateFuncs() template.FuncMap {
	return template.FuncMap{
		"now": func() string {
			return time.Now().UTC().Format(time.RFC3339Nano)
		},
		"timestamp": func() int64 {
			return time.Now().UnixMilli()
		},
		"uuid": uuid.NewString,
		"json": func(v any) (string, error) {
			b, err := json.Marshal(v)
			if err != nil {
				return "", err
			}
			return string(b), nil
		},
		"quote": strconv.Quote,
		"upper": strings.ToUpper,
		"lower": strings.ToLower,
		"default": func(def, v any) any {
			if v == nil || fmt.Sprint(v) == "" {
				return def
			}
			return v
		},
	}
}

// TemplateData is the value an inline template executes against.
type TemplateData struct {
	Method  string
	Path    string
	Headers map[string]string
	Query   map[string]string
	Body    any
	RawBody string
	MockID  string
}

// NewTemplateData flattens the request for template access, e.g.
// {{ .Body.user.id }} or {{ index .Headers "x-trace" }}.
func NewTemplateData(req RequestInfo, def *MockDefinition) TemplateData {
	query := make(map[string]string)
	for k, v := range req.GetQuery() {
		if len(v) > 0 {
			query[k] = v[0]
		}
	}
	body, _ := req.GetBodyValue()
	data := TemplateData{
		Method:  req.GetMethod(),
		Path:    req.GetPath(),
		Headers: req.GetHeaders(),
		Query:   query,
		Body:    body,
		RawBody: string(req.GetBody()),
	}
	if def != nil {
		data.MockID = def.ID
	}
	return data
}
