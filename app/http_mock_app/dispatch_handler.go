package http_mock_app

import (
	"encoding/json"
	"net/http"
	"runtime/debug"
	"strings"

	"go_mock_dispatch/internal/domain/iface"
	model "go_mock_dispatch/internal/domain/model/mock_rule"
	"go_mock_dispatch/internal/domain/resolver"
	"go_mock_dispatch/utils"
)

// DispatchHandler serves every mocked endpoint. Requests under PathPrefix
// are matched against the installed rule table; the callback path is
// handed to the callback simulator.
type DispatchHandler struct {
	matcher    iface.RuleMatchService
	callbacks  http.Handler
	pathPrefix string
	metrics    MetricsRecorder
}

var _ http.Handler = (*DispatchHandler)(nil)

func NewDispatchHandler(matcher iface.RuleMatchService, callbacks http.Handler, pathPrefix string, recorder MetricsRecorder) *DispatchHandler {
	if recorder == nil {
		recorder = NopMetrics{}
	}
	return &DispatchHandler{
		matcher:    matcher,
		callbacks:  callbacks,
		pathPrefix: strings.TrimRight(pathPrefix, "/"),
		metrics:    recorder,
	}
}

type notFoundResponse struct {
	Error  string `json:"error"`
	Method string `json:"method"`
	Path   string `json:"path"`
}

func (h *DispatchHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	logger := utils.GetLogger()
	defer func() {
		if err := recover(); err != nil {
			logger.WithFields(map[string]interface{}{
				"panic": err,
				"stack": string(debug.Stack()),
			}).Error("dispatch panic")
			h.metrics.CountDispatch(r.Method, OutcomeError)
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Internal server error"})
		}
	}()

	if h.pathPrefix != "" && r.URL.Path != h.pathPrefix && !strings.HasPrefix(r.URL.Path, h.pathPrefix+"/") {
		h.notFound(w, r.Method, r.URL.Path)
		return
	}

	req, err := model.NewHTTPRequest(r, h.pathPrefix)
	if err != nil {
		logger.Warnf("dispatch read request %s %s: %v", r.Method, r.URL.Path, err)
		h.metrics.CountDispatch(r.Method, OutcomeError)
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	if req.GetPath() == resolver.CallbackPath && h.callbacks != nil {
		h.callbacks.ServeHTTP(w, r)
		return
	}

	rule, ok := h.matcher.MatchRule(r.Context(), req)
	if !ok {
		h.notFound(w, req.GetMethod(), req.GetPath())
		return
	}

	resp, err := h.matcher.ExecuteRuleAction(r.Context(), rule, req)
	if err != nil {
		// the caller went away during the latency wait
		logger.Infof("dispatch %s %s abandoned (mock %s): %v", req.GetMethod(), req.GetPath(), rule.DefinitionID, err)
		h.metrics.CountDispatch(req.GetMethod(), OutcomeError)
		return
	}
	if rerr := resp.GetError(); rerr != nil {
		logger.Errorf("dispatch %s %s via mock %s failed: %v", req.GetMethod(), req.GetPath(), rule.DefinitionID, rerr)
		h.metrics.CountDispatch(req.GetMethod(), OutcomeError)
	} else {
		logger.Debugf("dispatch %s %s matched mock %s", req.GetMethod(), req.GetPath(), rule.DefinitionID)
		h.metrics.CountDispatch(req.GetMethod(), OutcomeMatched)
	}
	writeResponse(w, resp)
}

func (h *DispatchHandler) notFound(w http.ResponseWriter, method, path string) {
	h.metrics.CountDispatch(method, OutcomeNotFound)
	writeJSON(w, http.StatusNotFound, notFoundResponse{
		Error:  "no mock definition matches the request",
		Method: method,
		Path:   path,
	})
}

func writeResponse(w http.ResponseWriter, resp model.ResponseInfo) {
	for k, v := range resp.GetHeaders() {
		w.Header().Set(k, v)
	}
	w.WriteHeader(resp.GetStatus())
	if _, err := w.Write(resp.GetBody()); err != nil {
		utils.GetLogger().Debugf("write mock response: %v", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", jsonContentType)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
