package http_mock_app

import (
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"

	"go_mock_dispatch/internal/domain/compiler"
	"go_mock_dispatch/internal/domain/iface"
	model "go_mock_dispatch/internal/domain/model/mock_rule"
	"go_mock_dispatch/utils"

	rf "github.com/go-chassis/go-chassis/v2/server/restful"
)

const jsonContentType = "application/json"

// MockController is the admin REST schema for mock definitions.
type MockController struct {
	RuleManageService iface.RuleService
	Metrics           MetricsRecorder
}

func NewMockController(ruleManageService iface.RuleService, recorder MetricsRecorder) *MockController {
	if recorder == nil {
		recorder = NopMetrics{}
	}
	return &MockController{
		RuleManageService: ruleManageService,
		Metrics:           recorder,
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

type messageResponse struct {
	Message string `json:"message"`
	MockID  string `json:"mockId,omitempty"`
}

// handle wraps an admin endpoint with logging, metrics and panic recovery.
func (c *MockController) handle(b *rf.Context, name string, fn func() (int, any)) {
	logger := utils.GetLogger()
	logger.Debugf("%s Begin", name)
	req := b.ReadRequest()
	c.Metrics.CountAdmin(req.Method, req.URL.Path)

	defer func() {
		if err := recover(); err != nil {
			logger.WithFields(map[string]interface{}{
				"panic": err,
				"stack": string(debug.Stack()),
			}).Error("handle request panic")
			_ = b.WriteHeaderAndJSON(http.StatusInternalServerError, errorResponse{Error: "Internal server error"}, jsonContentType)
		}
	}()

	status, body := fn()
	if err := b.WriteHeaderAndJSON(status, body, jsonContentType); err != nil {
		logger.Errorf("%s write response err: %v", name, err)
	}
}

// fail maps service errors to status codes.
func fail(name string, err error) (int, any) {
	status := http.StatusInternalServerError
	var cf *compiler.CompileFailure
	switch {
	case errors.Is(err, model.ErrDefinitionNotFound):
		status = http.StatusNotFound
	case errors.Is(err, model.ErrInvalidDefinition), errors.As(err, &cf):
		status = http.StatusBadRequest
	}
	if status == http.StatusInternalServerError {
		utils.GetLogger().Errorf("%s err: %v", name, err)
	} else {
		utils.GetLogger().Infof("%s rejected: %v", name, err)
	}
	return status, errorResponse{Error: err.Error()}
}

func badRequest(name string, err error) (int, any) {
	utils.GetLogger().Infof("%s bad request: %v", name, err)
	return http.StatusBadRequest, errorResponse{Error: err.Error()}
}

func (c *MockController) SaveMockDefinition(b *rf.Context) {
	c.handle(b, "SaveMockDefinition", func() (int, any) {
		var req SaveMockDefinitionRequest
		if err := b.ReadEntity(&req); err != nil {
			return badRequest("SaveMockDefinition", fmt.Errorf("read request body: %w", err))
		}
		if err := req.Validate(); err != nil {
			return badRequest("SaveMockDefinition", err)
		}
		saved, err := c.RuleManageService.SaveOrUpdate(b.Ctx, req.ConvertToDefinition())
		if err != nil {
			return fail("SaveMockDefinition", err)
		}
		return http.StatusOK, messageResponse{Message: "success", MockID: saved.ID}
	})
}

func (c *MockController) ListMockDefinitions(b *rf.Context) {
	c.handle(b, "ListMockDefinitions", func() (int, any) {
		defs, err := c.RuleManageService.List(b.Ctx)
		if err != nil {
			return fail("ListMockDefinitions", err)
		}
		return http.StatusOK, defs
	})
}

func (c *MockController) GetMockDefinition(b *rf.Context) {
	c.handle(b, "GetMockDefinition", func() (int, any) {
		def, err := c.RuleManageService.Get(b.Ctx, b.ReadPathParameter("id"))
		if err != nil {
			return fail("GetMockDefinition", err)
		}
		return http.StatusOK, def
	})
}

func (c *MockController) DeleteMockDefinition(b *rf.Context) {
	c.handle(b, "DeleteMockDefinition", func() (int, any) {
		id := b.ReadPathParameter("id")
		if err := c.RuleManageService.Delete(b.Ctx, id); err != nil {
			return fail("DeleteMockDefinition", err)
		}
		return http.StatusOK, messageResponse{Message: "deleted", MockID: id}
	})
}

func (c *MockController) ImportMockDefinitions(b *rf.Context) {
	c.handle(b, "ImportMockDefinitions", func() (int, any) {
		var req ImportMockDefinitionsRequest
		if err := b.ReadEntity(&req); err != nil {
			return badRequest("ImportMockDefinitions", fmt.Errorf("read request body: %w", err))
		}
		if err := req.Validate(); err != nil {
			return badRequest("ImportMockDefinitions", err)
		}
		results, err := c.RuleManageService.ImportBatch(b.Ctx, req.ConvertToDefinitions())
		if err != nil {
			return fail("ImportMockDefinitions", err)
		}
		return http.StatusOK, results
	})
}

func (c *MockController) Reload(b *rf.Context) {
	c.handle(b, "Reload", func() (int, any) {
		res, err := c.RuleManageService.Reload(b.Ctx)
		if err != nil {
			return fail("Reload", err)
		}
		return http.StatusOK, res
	})
}

func (c *MockController) UploadTemporary(b *rf.Context) {
	c.handle(b, "UploadTemporary", func() (int, any) {
		var req UploadTemporaryRequest
		if err := b.ReadEntity(&req); err != nil {
			return badRequest("UploadTemporary", fmt.Errorf("read request body: %w", err))
		}
		if err := req.Validate(); err != nil {
			return badRequest("UploadTemporary", err)
		}
		stored, err := c.RuleManageService.UploadTemporary(b.Ctx, req.ConvertToDefinitions())
		if err != nil {
			return fail("UploadTemporary", err)
		}
		return http.StatusOK, stored
	})
}

func (c *MockController) DeleteTemporary(b *rf.Context) {
	c.handle(b, "DeleteTemporary", func() (int, any) {
		req := DeleteTemporaryRequest{
			APIName: b.ReadQueryParameter("apiName"),
			Method:  b.ReadQueryParameter("method"),
		}
		if err := req.Validate(); err != nil {
			return badRequest("DeleteTemporary", err)
		}
		removed, err := c.RuleManageService.DeleteTemporary(b.Ctx, req.APIName, req.Method)
		if err != nil {
			return fail("DeleteTemporary", err)
		}
		if !removed {
			return http.StatusNotFound, errorResponse{Error: "temporary mock definition not found"}
		}
		return http.StatusOK, messageResponse{Message: "deleted"}
	})
}

func (c *MockController) DebugTable(b *rf.Context) {
	c.handle(b, "DebugTable", func() (int, any) {
		return http.StatusOK, c.RuleManageService.DebugTable(b.Ctx)
	})
}

func (c *MockController) ListGenerators(b *rf.Context) {
	c.handle(b, "ListGenerators", func() (int, any) {
		return http.StatusOK, model.GeneratorNames()
	})
}

func (c *MockController) URLPatterns() []rf.Route {
	return []rf.Route{
		{Method: "POST", Path: "/mock/definitions", ResourceFunc: c.SaveMockDefinition,
			Returns: []*rf.Returns{{Code: 200}, {Code: 400}}},
		{Method: "GET", Path: "/mock/definitions", ResourceFunc: c.ListMockDefinitions,
			Returns: []*rf.Returns{{Code: 200}}},
		{Method: "GET", Path: "/mock/definitions/{id}", ResourceFunc: c.GetMockDefinition,
			Returns: []*rf.Returns{{Code: 200}, {Code: 404}}},
		{Method: "DELETE", Path: "/mock/definitions/{id}", ResourceFunc: c.DeleteMockDefinition,
			Returns: []*rf.Returns{{Code: 200}, {Code: 404}}},
		{Method: "POST", Path: "/mock/import", ResourceFunc: c.ImportMockDefinitions,
			Returns: []*rf.Returns{{Code: 200}, {Code: 400}}},
		{Method: "POST", Path: "/mock/reload", ResourceFunc: c.Reload,
			Returns: []*rf.Returns{{Code: 200}}},
		{Method: "POST", Path: "/mock/temporary", ResourceFunc: c.UploadTemporary,
			Returns: []*rf.Returns{{Code: 200}, {Code: 400}}},
		{Method: "DELETE", Path: "/mock/temporary", ResourceFunc: c.DeleteTemporary,
			Returns: []*rf.Returns{{Code: 200}, {Code: 404}}},
		{Method: "GET", Path: "/mock/debug/table", ResourceFunc: c.DebugTable,
			Returns: []*rf.Returns{{Code: 200}}},
		{Method: "GET", Path: "/mock/generators", ResourceFunc: c.ListGenerators,
			Returns: []*rf.Returns{{Code: 200}}},
	}
}
