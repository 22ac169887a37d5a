package main

import (
	"net/http"
	"time"

	"go_mock_dispatch/app/http_mock_app"
	"go_mock_dispatch/internal/domain/callback"
	"go_mock_dispatch/internal/domain/iface"
	"go_mock_dispatch/internal/domain/resolver"
	configs "go_mock_dispatch/internal/infra/config"
)

// MockApp is everything serve needs.
type MockApp struct {
	Controller  *http_mock_app.MockController
	Dispatch    *http.Server
	RuleService iface.RuleService
	Simulator   *callback.Simulator
}

func NewMockApp(controller *http_mock_app.MockController, dispatch *http.Server, ruleService iface.RuleService, sim *callback.Simulator) *MockApp {
	return &MockApp{
		Controller:  controller,
		Dispatch:    dispatch,
		RuleService: ruleService,
		Simulator:   sim,
	}
}

func provideHTTPClient() *http.Client {
	return &http.Client{Transport: http.DefaultTransport}
}

// provideResolverOptions: callback redirects must come back through the
// dispatch prefix.
func provideResolverOptions(c *configs.MockConfig) resolver.Options {
	return resolver.Options{
		PublicBaseURL: c.ServerConfig.PublicBaseURL + c.ServerConfig.PathPrefix,
		Fetch: resolver.FetchOptions{
			Timeout:  c.RemoteConfig.Timeout,
			Attempts: uint(c.RemoteConfig.Attempts),
			Delay:    c.RemoteConfig.Delay,
		},
	}
}

func provideSimulator(finder callback.DefinitionFinder, client *http.Client, c *configs.MockConfig) (*callback.Simulator, func(), error) {
	sim, err := callback.NewSimulator(finder, client, callback.Options{
		PoolSize:       c.CallbackConfig.PoolSize,
		MaxDelay:       c.CallbackConfig.MaxDelay,
		RequestTimeout: c.CallbackConfig.RequestTimeout,
	})
	if err != nil {
		return nil, nil, err
	}
	return sim, sim.Close, nil
}

func provideDispatchHandler(c *configs.MockConfig, matcher iface.RuleMatchService, sim *callback.Simulator, recorder http_mock_app.MetricsRecorder) *http_mock_app.DispatchHandler {
	return http_mock_app.NewDispatchHandler(matcher, sim, c.ServerConfig.PathPrefix, recorder)
}

func provideDispatchServer(c *configs.MockConfig, handler *http_mock_app.DispatchHandler) *http.Server {
	return &http.Server{
		Addr:              c.ServerConfig.DispatchAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
