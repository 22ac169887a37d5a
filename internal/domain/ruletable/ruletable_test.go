package ruletable

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	model "go_mock_dispatch/internal/domain/model/mock_rule"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSource struct {
	mu    sync.Mutex
	defs  []*model.MockDefinition
	err   error
	calls int
}

func (s *stubSource) Snapshot(context.Context) ([]*model.MockDefinition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	out := make([]*model.MockDefinition, 0, len(s.defs))
	for _, d := range s.defs {
		out = append(out, d.Clone())
	}
	return out, nil
}

func (s *stubSource) set(defs ...*model.MockDefinition) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.defs = defs
}

func def(t *testing.T, id string, created time.Time, raw string) *model.MockDefinition {
	t.Helper()
	d := &model.MockDefinition{}
	require.NoError(t, json.Unmarshal([]byte(raw), d))
	d.ID = id
	d.CreatedAt = created
	return d
}

func post(t *testing.T, path, body string, headers map[string]string) model.RequestInfo {
	t.Helper()
	r := httptest.NewRequest("POST", path, strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		r.Header.Set(k, v)
	}
	info, err := model.NewHTTPRequest(r, "")
	require.NoError(t, err)
	return info
}

func TestSpecificity(t *testing.T) {
	d := def(t, "a", time.Now(), `{"apiName":"x","predicate":{"request":{"u":{"n":"a","p":1}},"headers":{"h":"*"},"query":{"q":"1"}},"responseBody":{}}`)
	assert.Equal(t, 4, Specificity(d))

	d = def(t, "b", time.Now(), `{"apiName":"x","requestPayload":{"a":"1","b":"2"},"responseBody":{}}`)
	assert.Equal(t, 2, Specificity(d))
}

func TestRankOrder(t *testing.T) {
	now := time.Now()
	catchAll := def(t, "catch", now.Add(time.Hour), `{"apiName":"login","responseBody":{}}`)
	older := def(t, "older", now, `{"apiName":"login","predicate":{"request":{"u":"a"}},"responseBody":{}}`)
	newer := def(t, "newer", now.Add(time.Minute), `{"apiName":"login","predicate":{"request":{"u":"b"}},"responseBody":{}}`)
	two := def(t, "two", now.Add(-time.Hour), `{"apiName":"login","predicate":{"request":{"u":"a","p":"x"}},"responseBody":{}}`)

	ranked := Rank([]*model.MockDefinition{catchAll, older, newer, two})
	ids := make([]string, 0, len(ranked))
	for _, d := range ranked {
		ids = append(ids, d.ID)
	}
	assert.Equal(t, []string{"two", "newer", "older", "catch"}, ids)
}

// Scenario A: the more specific rule wins, the catch-all takes the rest.
func TestDispatchSpecificityWins(t *testing.T) {
	now := time.Now()
	specific := def(t, "admin", now.Add(-time.Hour), `{"apiName":"login","predicate":{"request":{"username":"admin"}},"responseBody":{"role":"admin"}}`)
	catchAll := def(t, "any", now, `{"apiName":"login","predicate":{"request":{}},"responseBody":{"role":"guest"}}`)

	table := Build(1, []*model.MockDefinition{catchAll, specific}, nil)
	require.Equal(t, 2, table.Len())

	ctx := context.Background()
	rule, ok := table.Dispatch(ctx, post(t, "/login", `{"username":"admin"}`, nil))
	require.True(t, ok)
	assert.Equal(t, "admin", rule.DefinitionID)

	rule, ok = table.Dispatch(ctx, post(t, "/login", `{"username":"guest"}`, nil))
	require.True(t, ok)
	assert.Equal(t, "any", rule.DefinitionID)

	_, ok = table.Dispatch(ctx, post(t, "/logout", `{}`, nil))
	assert.False(t, ok)

	table = Build(2, []*model.MockDefinition{specific}, nil)
	_, ok = table.Dispatch(ctx, post(t, "/login", `{"username":"guest"}`, nil))
	assert.False(t, ok, "no catch-all means not found")
}

// Scenario C: a temporary definition outranks any persisted one on the same path.
func TestTemporaryOutranksPersisted(t *testing.T) {
	now := time.Now()
	src := &stubSource{}
	src.set(def(t, "p1", now, `{"apiName":"orders","predicate":{"request":{"a":"1","b":"2","c":"3"}},"responseBody":{}}`))
	m := NewManager(src)

	m.PutTemporary(def(t, "", time.Time{}, `{"apiName":"orders","responseBody":{"tmp":true}}`))
	_, err := m.Reload(context.Background())
	require.NoError(t, err)

	req := post(t, "/orders", `{"a":"1","b":"2","c":"3"}`, nil)
	rule, ok := m.Dispatch(context.Background(), req)
	require.True(t, ok)
	assert.True(t, rule.Temporary)
	assert.True(t, strings.HasPrefix(rule.DefinitionID, "tmp-"))

	assert.True(t, m.DeleteTemporary("/orders", "post"))
	assert.False(t, m.DeleteTemporary("orders", "POST"))
	_, err = m.Reload(context.Background())
	require.NoError(t, err)

	rule, ok = m.Dispatch(context.Background(), req)
	require.True(t, ok)
	assert.Equal(t, "p1", rule.DefinitionID)
}

func TestTemporarySupersededByKey(t *testing.T) {
	m := NewManager(&stubSource{})
	m.PutTemporary(def(t, "t1", time.Time{}, `{"apiName":"orders","responseBody":{"v":1}}`))
	m.PutTemporary(def(t, "t2", time.Time{}, `{"apiName":"orders","method":"post","responseBody":{"v":2}}`))
	m.PutTemporary(def(t, "t3", time.Time{}, `{"apiName":"orders","method":"GET","responseBody":{"v":3}}`))

	temps := m.Temporaries()
	require.Len(t, temps, 2)
	ids := []string{temps[0].ID, temps[1].ID}
	assert.ElementsMatch(t, []string{"t2", "t3"}, ids)
	for _, d := range temps {
		assert.Equal(t, model.SourceTemporary, d.Source)
	}
	assert.Equal(t, 2, m.ClearTemporary())
}

func TestHeaderWildcard(t *testing.T) {
	d := def(t, "h", time.Now(), `{"apiName":"me","predicate":{"headers":{"authorization":"*"}},"responseBody":{}}`)
	table := Build(1, []*model.MockDefinition{d}, nil)
	ctx := context.Background()

	_, ok := table.Dispatch(ctx, post(t, "/me", `{}`, map[string]string{"Authorization": "Bearer t0k3n"}))
	assert.True(t, ok)
	_, ok = table.Dispatch(ctx, post(t, "/me", `{}`, nil))
	assert.False(t, ok)
}

func TestBuildExcludesFailures(t *testing.T) {
	good := def(t, "good", time.Now(), `{"apiName":"ok","responseBody":{}}`)
	bad := def(t, "bad", time.Now(), `{"apiName":"","responseBody":{}}`)
	badRegex := def(t, "re", time.Now(), `{"apiName":"r","predicate":{"request":{"x":"regex:["}},"responseBody":{}}`)

	table := Build(1, []*model.MockDefinition{good, bad, badRegex}, nil)
	assert.Equal(t, 1, table.Len())
	require.Len(t, table.Failures, 2)
	failed := []string{table.Failures[0].DefinitionID, table.Failures[1].DefinitionID}
	assert.ElementsMatch(t, []string{"bad", "re"}, failed)

	view := table.View()
	assert.Len(t, view.Rules, 1)
	assert.Len(t, view.Failures, 2)
}

func TestReloadIdempotent(t *testing.T) {
	now := time.Now()
	src := &stubSource{}
	src.set(
		def(t, "a", now, `{"apiName":"x","predicate":{"request":{"k":"v"}},"responseBody":{}}`),
		def(t, "b", now, `{"apiName":"x","predicate":{"request":{"k":"w"}},"responseBody":{}}`),
		def(t, "c", now, `{"apiName":"x","responseBody":{}}`),
	)
	m := NewManager(src)
	ctx := context.Background()

	first, err := m.Reload(ctx)
	require.NoError(t, err)
	second, err := m.Reload(ctx)
	require.NoError(t, err)
	assert.Greater(t, second.Generation, first.Generation)

	for _, body := range []string{`{"k":"v"}`, `{"k":"w"}`, `{"k":"z"}`, `{}`} {
		r1, ok1 := first.Dispatch(ctx, post(t, "/x", body, nil))
		r2, ok2 := second.Dispatch(ctx, post(t, "/x", body, nil))
		require.Equal(t, ok1, ok2)
		assert.Equal(t, r1.DefinitionID, r2.DefinitionID, body)
	}
}

func TestReloadFailureKeepsTable(t *testing.T) {
	src := &stubSource{}
	src.set(def(t, "a", time.Now(), `{"apiName":"x","responseBody":{}}`))
	m := NewManager(src)
	installed, err := m.Reload(context.Background())
	require.NoError(t, err)

	src.err = errors.New("db down")
	table, err := m.Reload(context.Background())
	assert.Error(t, err)
	assert.Same(t, installed, table)
	assert.Same(t, installed, m.Current())
}

func TestConcurrentReloadAndDispatch(t *testing.T) {
	src := &stubSource{}
	src.set(def(t, "a", time.Now(), `{"apiName":"x","responseBody":{}}`))
	m := NewManager(src)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := m.Reload(ctx)
			assert.NoError(t, err)
		}()
		go func() {
			defer wg.Done()
			m.Dispatch(ctx, post(t, "/x", `{}`, nil))
		}()
	}
	wg.Wait()

	// the last requested generation is always built
	assert.Equal(t, m.requested.Load(), m.Current().Generation)
	src.mu.Lock()
	calls := src.calls
	src.mu.Unlock()
	assert.LessOrEqual(t, calls, 20)

	rule, ok := m.Dispatch(ctx, post(t, "/x", `{}`, nil))
	require.True(t, ok)
	assert.Equal(t, "a", rule.DefinitionID)
}

func TestFindDefinition(t *testing.T) {
	src := &stubSource{}
	src.set(def(t, "a", time.Now(), `{"apiName":"x","responseBody":{},"callbackForwarder":{"redirectField":"url","callbackUrlSource":"cb","payload":{"s":"${NOW}"}}}`))
	m := NewManager(src)
	_, err := m.Reload(context.Background())
	require.NoError(t, err)

	d, err := m.FindDefinition(context.Background(), "a")
	require.NoError(t, err)
	require.NotNil(t, d.CallbackForwarder)
	assert.Equal(t, map[string]any{"s": "${NOW}"}, d.CallbackForwarder.Payload)

	_, err = m.FindDefinition(context.Background(), "missing")
	assert.True(t, errors.Is(err, model.ErrDefinitionNotFound))
}
