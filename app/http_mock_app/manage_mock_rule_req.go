package http_mock_app

import (
	"fmt"
	"strings"

	model "go_mock_dispatch/internal/domain/model/mock_rule"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// SaveMockDefinitionRequest creates a definition, or updates it when ID is set.
type SaveMockDefinitionRequest struct {
	ID                string                  `json:"id" validate:"omitempty,max=36"`
	BusinessName      string                  `json:"businessName" validate:"max=100"`
	APIName           string                  `json:"apiName" validate:"required,max=255"`
	Method            string                  `json:"method" validate:"omitempty,oneof=GET POST PUT DELETE PATCH"`
	Predicate         model.Predicate         `json:"predicate"`
	RequestPayload    map[string]any          `json:"requestPayload,omitempty"`
	ResponseHeaders   map[string]string       `json:"responseHeaders,omitempty"`
	ResponseBody      any                     `json:"responseBody"`
	ResponseFunction  *model.ResponseFunction `json:"responseFunction,omitempty"`
	RemoteURL         string                  `json:"remoteUrl" validate:"omitempty,url,max=512"`
	LatencyMs         int                     `json:"latencyMs"`
	CallbackForwarder *CallbackForwarderDTO   `json:"callbackForwarder,omitempty"`
}

type CallbackForwarderDTO struct {
	RedirectField     string `json:"redirectField" validate:"required"`
	CallbackURLSource string `json:"callbackUrlSource" validate:"required"`
	DelaySeconds      int    `json:"delaySeconds" validate:"min=0"`
	Payload           any    `json:"payload,omitempty"`
}

// Validate performs validation on SaveMockDefinitionRequest. Method is
// upper-cased first so "get" is accepted.
func (req *SaveMockDefinitionRequest) Validate() error {
	req.Method = strings.ToUpper(strings.TrimSpace(req.Method))
	if err := validate.Struct(req); err != nil {
		return fmt.Errorf("invalid request: %w", err)
	}
	if req.ResponseBody == nil && req.ResponseFunction.IsZero() {
		return fmt.Errorf("invalid request: responseBody is required unless responseFunction is set")
	}
	return nil
}

// ConvertToDefinition converts the DTO to the model. Latency is clamped, not rejected.
func (req *SaveMockDefinitionRequest) ConvertToDefinition() *model.MockDefinition {
	def := &model.MockDefinition{
		ID:               strings.TrimSpace(req.ID),
		BusinessName:     req.BusinessName,
		APIName:          req.APIName,
		Method:           req.Method,
		Predicate:        req.Predicate,
		RequestPayload:   req.RequestPayload,
		ResponseHeaders:  req.ResponseHeaders,
		ResponseBody:     req.ResponseBody,
		ResponseFunction: req.ResponseFunction,
		RemoteURL:        req.RemoteURL,
		LatencyMs:        model.ClampLatency(req.LatencyMs),
	}
	if cf := req.CallbackForwarder; cf != nil {
		def.CallbackForwarder = &model.CallbackForwarder{
			RedirectField:     cf.RedirectField,
			CallbackURLSource: cf.CallbackURLSource,
			DelaySeconds:      cf.DelaySeconds,
			Payload:           cf.Payload,
		}
	}
	return def
}

// ImportMockDefinitionsRequest 批量导入; 单条的校验结果在返回值里逐条体现
type ImportMockDefinitionsRequest struct {
	Definitions []SaveMockDefinitionRequest `json:"definitions" validate:"required,min=1,max=1000"`
}

func (req *ImportMockDefinitionsRequest) Validate() error {
	if err := validate.Struct(req); err != nil {
		return fmt.Errorf("invalid request: %w", err)
	}
	return nil
}

func (req *ImportMockDefinitionsRequest) ConvertToDefinitions() []*model.MockDefinition {
	defs := make([]*model.MockDefinition, 0, len(req.Definitions))
	for i := range req.Definitions {
		req.Definitions[i].Method = strings.ToUpper(strings.TrimSpace(req.Definitions[i].Method))
		defs = append(defs, req.Definitions[i].ConvertToDefinition())
	}
	return defs
}

// UploadTemporaryRequest 临时 mock, 全部校验通过才会生效
type UploadTemporaryRequest struct {
	Definitions []SaveMockDefinitionRequest `json:"definitions" validate:"required,min=1,dive"`
}

func (req *UploadTemporaryRequest) Validate() error {
	for i := range req.Definitions {
		req.Definitions[i].Method = strings.ToUpper(strings.TrimSpace(req.Definitions[i].Method))
	}
	if err := validate.Struct(req); err != nil {
		return fmt.Errorf("invalid request: %w", err)
	}
	for i, d := range req.Definitions {
		if d.ResponseBody == nil && d.ResponseFunction.IsZero() {
			return fmt.Errorf("invalid request: definitions[%d]: responseBody is required unless responseFunction is set", i)
		}
	}
	return nil
}

func (req *UploadTemporaryRequest) ConvertToDefinitions() []*model.MockDefinition {
	defs := make([]*model.MockDefinition, 0, len(req.Definitions))
	for i := range req.Definitions {
		defs = append(defs, req.Definitions[i].ConvertToDefinition())
	}
	return defs
}

type DeleteTemporaryRequest struct {
	APIName string `validate:"required"`
	Method  string `validate:"omitempty,oneof=GET POST PUT DELETE PATCH"`
}

func (req *DeleteTemporaryRequest) Validate() error {
	req.Method = strings.ToUpper(strings.TrimSpace(req.Method))
	if err := validate.Struct(req); err != nil {
		return fmt.Errorf("invalid request: %w", err)
	}
	return nil
}
