package callback

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	model "go_mock_dispatch/internal/domain/model/mock_rule"
	"go_mock_dispatch/utils"

	"github.com/panjf2000/ants/v2"
)

// Payload placeholders substituted when the callback fires.
const (
	PlaceholderNow       = "${NOW}"
	PlaceholderTimestamp = "${TIMESTAMP}"
)

var ErrClosed = errors.New("callback simulator closed")

// DefinitionFinder resolves the definition that owns a callback.
type DefinitionFinder interface {
	FindDefinition(ctx context.Context, id string) (*model.MockDefinition, error)
}

type Options struct {
	PoolSize       int
	MaxDelay       time.Duration
	RequestTimeout time.Duration
}

// Simulator answers a redirect immediately and POSTs the mock's callback
// payload to the caller later. Each callback fires once; failures are only
// logged.
type Simulator struct {
	finder DefinitionFinder
	client *http.Client
	pool   *ants.Pool
	opts   Options
	now    func() time.Time

	mu      sync.Mutex
	closed  bool
	nextID  uint64
	pending map[uint64]*time.Timer
	running sync.WaitGroup
}

func NewSimulator(finder DefinitionFinder, client *http.Client, opts Options) (*Simulator, error) {
	if opts.PoolSize <= 0 {
		opts.PoolSize = 16
	}
	if opts.MaxDelay <= 0 {
		opts.MaxDelay = time.Hour
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 10 * time.Second
	}
	if client == nil {
		client = &http.Client{}
	}
	pool, err := ants.NewPool(opts.PoolSize, ants.WithPanicHandler(func(p interface{}) {
		utils.GetLogger().Errorf("callback job panicked: %v", p)
	}))
	if err != nil {
		return nil, fmt.Errorf("failed to create callback pool: %w", err)
	}
	return &Simulator{
		finder:  finder,
		client:  client,
		pool:    pool,
		opts:    opts,
		now:     time.Now,
		pending: make(map[uint64]*time.Timer),
	}, nil
}

// Request is one parsed callback invocation.
type Request struct {
	CallbackURL string
	Delay       time.Duration
	MockID      string
}

// ParseRequest reads callbackUrl, delaySeconds and mockId from a query.
func ParseRequest(q url.Values) (Request, error) {
	var problems []string
	req := Request{
		CallbackURL: strings.TrimSpace(q.Get("callbackUrl")),
		MockID:      strings.TrimSpace(q.Get("mockId")),
	}
	if req.CallbackURL == "" {
		problems = append(problems, "callbackUrl is required")
	} else if u, err := url.Parse(req.CallbackURL); err != nil || u.Scheme == "" || u.Host == "" {
		problems = append(problems, "callbackUrl must be an absolute URL")
	}
	if req.MockID == "" {
		problems = append(problems, "mockId is required")
	}
	if raw := strings.TrimSpace(q.Get("delaySeconds")); raw != "" {
		secs, err := strconv.Atoi(raw)
		if err != nil || secs < 0 {
			problems = append(problems, "delaySeconds must be a non-negative integer")
		} else {
			req.Delay = time.Duration(secs) * time.Second
		}
	}
	if len(problems) > 0 {
		return req, errors.New(strings.Join(problems, "; "))
	}
	return req, nil
}

// ServeHTTP is the redirect target: acknowledge now, fire later.
func (s *Simulator) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	req, err := ParseRequest(r.URL.Query())
	if err != nil {
		writeText(w, http.StatusBadRequest, "Callback not scheduled: "+err.Error())
		return
	}
	delay, err := s.Schedule(req)
	if err != nil {
		writeText(w, http.StatusServiceUnavailable, "Callback not scheduled: "+err.Error())
		return
	}
	writeText(w, http.StatusOK, fmt.Sprintf(
		"Request accepted. A callback for mock %s will be sent to %s in %d second(s).",
		req.MockID, req.CallbackURL, int(delay/time.Second)))
}

func writeText(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, msg)
}

// Schedule arms the deferred callback and returns the effective delay.
func (s *Simulator) Schedule(req Request) (time.Duration, error) {
	delay := req.Delay
	if delay > s.opts.MaxDelay {
		delay = s.opts.MaxDelay
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, ErrClosed
	}
	s.nextID++
	id := s.nextID
	s.pending[id] = time.AfterFunc(delay, func() {
		s.mu.Lock()
		delete(s.pending, id)
		closed := s.closed
		if !closed {
			s.running.Add(1)
		}
		s.mu.Unlock()
		if closed {
			return
		}
		if err := s.pool.Submit(func() {
			defer s.running.Done()
			s.fire(req)
		}); err != nil {
			s.running.Done()
			utils.GetLogger().Errorf("failed to submit callback for mock %s: %v", req.MockID, err)
		}
	})
	utils.GetLogger().Infof("callback scheduled: mock=%s url=%s delay=%v", req.MockID, req.CallbackURL, delay)
	return delay, nil
}

// fire posts the payload once. It never returns an error to anyone.
func (s *Simulator) fire(req Request) {
	log := utils.GetLogger()
	defer func() {
		if p := recover(); p != nil {
			log.Errorf("callback for mock %s panicked: %v", req.MockID, p)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), s.opts.RequestTimeout)
	defer cancel()

	payload, err := s.payload(ctx, req.MockID)
	if err != nil {
		log.Errorf("callback payload for mock %s: %v", req.MockID, err)
		return
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, req.CallbackURL, bytes.NewReader(payload))
	if err != nil {
		log.Errorf("callback request for mock %s: %v", req.MockID, err)
		return
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(httpReq)
	if err != nil {
		log.Warnf("callback to %s for mock %s failed: %v", req.CallbackURL, req.MockID, err)
		return
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode >= 400 {
		log.Warnf("callback to %s for mock %s answered %d", req.CallbackURL, req.MockID, resp.StatusCode)
		return
	}
	log.Infof("callback to %s for mock %s delivered (%d)", req.CallbackURL, req.MockID, resp.StatusCode)
}

// payload renders the configured callback payload, or the default one when
// the mock is gone or has none.
func (s *Simulator) payload(ctx context.Context, mockID string) ([]byte, error) {
	var configured any
	if s.finder != nil {
		def, err := s.finder.FindDefinition(ctx, mockID)
		switch {
		case err == nil && def.CallbackForwarder != nil:
			configured = def.CallbackForwarder.Payload
		case err != nil && !errors.Is(err, model.ErrDefinitionNotFound):
			utils.GetLogger().Warnf("lookup mock %s for callback: %v", mockID, err)
		}
	}
	now := s.now()
	if configured == nil {
		configured = map[string]any{"status": "success", "timestamp": now.UnixMilli()}
	}
	return Render(configured, now)
}

// Render serializes payload and substitutes the time placeholders.
func Render(payload any, now time.Time) ([]byte, error) {
	var raw string
	switch p := payload.(type) {
	case string:
		raw = p
	default:
		b, err := json.Marshal(p)
		if err != nil {
			return nil, fmt.Errorf("encode callback payload: %w", err)
		}
		raw = string(b)
	}
	raw = strings.ReplaceAll(raw, PlaceholderNow, now.UTC().Format("2006-01-02T15:04:05.000Z"))
	raw = strings.ReplaceAll(raw, PlaceholderTimestamp, strconv.FormatInt(now.UnixMilli(), 10))
	return []byte(raw), nil
}

// Pending reports callbacks armed but not yet fired.
func (s *Simulator) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Close cancels armed callbacks and waits for running ones.
func (s *Simulator) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	for id, t := range s.pending {
		t.Stop()
		delete(s.pending, id)
	}
	s.mu.Unlock()

	s.running.Wait()
	s.pool.Release()
}
