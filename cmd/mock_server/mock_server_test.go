package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	model "go_mock_dispatch/internal/domain/model/mock_rule"
	configs "go_mock_dispatch/internal/infra/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProvideResolverOptions(t *testing.T) {
	c := configs.Default()
	c.ServerConfig.PublicBaseURL = "http://mock.local:8081"
	c.ServerConfig.PathPrefix = "/mock"
	opts := provideResolverOptions(c)
	assert.Equal(t, "http://mock.local:8081/mock", opts.PublicBaseURL)
	assert.Equal(t, uint(3), opts.Fetch.Attempts)
}

func TestInitializeMockAppMemory(t *testing.T) {
	c := configs.Default()
	c.ServerConfig.PathPrefix = "/mock"
	app, cleanup, err := InitializeMockApp(c)
	require.NoError(t, err)
	defer cleanup()

	ctx := context.Background()
	_, err = app.RuleService.SaveOrUpdate(ctx, &model.MockDefinition{
		APIName:      "/ping",
		Method:       "GET",
		ResponseBody: "pong",
		LatencyMs:    20,
	})
	require.NoError(t, err)

	start := time.Now()
	rec := httptest.NewRecorder()
	app.Dispatch.Handler.ServeHTTP(rec, httptest.NewRequest("GET", "/mock/ping", strings.NewReader("")))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "pong", rec.Body.String())
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
	assert.Equal(t, c.ServerConfig.DispatchAddr, app.Dispatch.Addr)
}
