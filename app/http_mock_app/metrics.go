package http_mock_app

import (
	"sync"
	"sync/atomic"

	"go_mock_dispatch/utils"

	"github.com/go-chassis/go-chassis/v2/pkg/metrics"
)

const (
	adminRequestCounter = "request_counter"
	dispatchCounter     = "mock_dispatch_total"
)

// Dispatch outcomes.
const (
	OutcomeMatched  = "matched"
	OutcomeNotFound = "not_found"
	OutcomeError    = "error"
)

// MetricsRecorder counts admin and dispatch requests.
type MetricsRecorder interface {
	CountAdmin(method, endpoint string)
	CountDispatch(method, outcome string)
}

type chassisMetrics struct {
	once     sync.Once
	disabled atomic.Bool
}

// NewChassisMetrics returns a recorder backed by go-chassis metrics. The
// counters are created on first use, after chassis.Init has run.
func NewChassisMetrics() MetricsRecorder {
	return &chassisMetrics{}
}

func (m *chassisMetrics) register() {
	m.once.Do(func() {
		for _, opts := range []metrics.CounterOpts{
			{Name: adminRequestCounter, Help: "admin api requests", Labels: []string{"method", "endpoint"}},
			{Name: dispatchCounter, Help: "mock dispatch requests by outcome", Labels: []string{"method", "outcome"}},
		} {
			if err := metrics.CreateCounter(opts); err != nil {
				utils.GetLogger().Warnf("create counter %s: %v", opts.Name, err)
			}
		}
	})
}

// add switches counting off when the backend panics, which it does before
// chassis.Init has created the registry.
func (m *chassisMetrics) add(name string, labels map[string]string) {
	if m.disabled.Load() {
		return
	}
	defer func() {
		if p := recover(); p != nil {
			m.disabled.Store(true)
			utils.GetLogger().Warnf("metrics disabled: %v", p)
		}
	}()
	m.register()
	if err := metrics.CounterAdd(name, 1, labels); err != nil {
		utils.GetLogger().Debugf("count %s: %v", name, err)
	}
}

func (m *chassisMetrics) CountAdmin(method, endpoint string) {
	// Record request metrics
	m.add(adminRequestCounter, map[string]string{
		"method":   method,
		"endpoint": endpoint,
	})
}

func (m *chassisMetrics) CountDispatch(method, outcome string) {
	m.add(dispatchCounter, map[string]string{
		"method":  method,
		"outcome": outcome,
	})
}

// NopMetrics discards everything.
type NopMetrics struct{}

func (NopMetrics) CountAdmin(string, string)    {}
func (NopMetrics) CountDispatch(string, string) {}
