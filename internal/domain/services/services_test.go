package services

import (
	"context"
	"errors"
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	model "go_mock_dispatch/internal/domain/model/mock_rule"
	"go_mock_dispatch/internal/domain/resolver"
	"go_mock_dispatch/internal/domain/ruletable"
	configs "go_mock_dispatch/internal/infra/config"
	"go_mock_dispatch/internal/infra/repo"
	"go_mock_dispatch/internal/infra/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	manage *RuleManageService
	match  *RuleMatchService
}

func newFixture(t *testing.T) *fixture {
	return newFixtureWithCache(t, storage.NewDefinitionCache(nil, configs.Default()))
}

func newFixtureWithCache(t *testing.T, cache storage.DefinitionCacheIface) *fixture {
	t.Helper()
	cfg := configs.Default()
	cfg.DefinitionRepoConfig.SaveRetryDelay = time.Millisecond
	cfg.DefinitionRepoConfig.CacheRetryDelay = time.Millisecond

	r, cleanup, err := repo.NewDefinitionRepoImpl(
		storage.NewMemoryDefinitionStorage(),
		cache,
		repo.NewDefinitionRepoConfig(cfg),
	)
	require.NoError(t, err)
	t.Cleanup(cleanup)

	manager := ruletable.NewManager(r)
	res := resolver.NewResolver(resolver.Options{PublicBaseURL: "http://mock.test"}, nil)
	return &fixture{
		manage: NewRuleManageService(r, manager),
		match:  NewRuleMatchService(manager, res),
	}
}

func (f *fixture) dispatch(t *testing.T, method, path, body string) (model.ResponseInfo, bool) {
	t.Helper()
	r := httptest.NewRequest(method, path, strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	req, err := model.NewHTTPRequest(r, "")
	require.NoError(t, err)
	rule, ok := f.match.MatchRule(context.Background(), req)
	if !ok {
		return nil, false
	}
	resp, err := f.match.ExecuteRuleAction(context.Background(), rule, req)
	require.NoError(t, err)
	return resp, true
}

func loginDef(user string, body any) *model.MockDefinition {
	d := &model.MockDefinition{APIName: "/login", ResponseBody: body}
	if user != "" {
		d.Predicate.Request = map[string]any{"username": user}
	}
	return d
}

func TestSaveOrUpdateReloadsTable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	saved, err := f.manage.SaveOrUpdate(ctx, loginDef("admin", map[string]any{"role": "admin"}))
	require.NoError(t, err)
	assert.NotEmpty(t, saved.ID)
	assert.Equal(t, "POST", saved.Method)

	_, err = f.manage.SaveOrUpdate(ctx, loginDef("", map[string]any{"role": "guest"}))
	require.NoError(t, err)

	resp, ok := f.dispatch(t, "POST", "/login", `{"username":"admin"}`)
	require.True(t, ok)
	assert.JSONEq(t, `{"role":"admin"}`, string(resp.GetBody()))

	resp, ok = f.dispatch(t, "POST", "/login", `{"username":"guest"}`)
	require.True(t, ok)
	assert.JSONEq(t, `{"role":"guest"}`, string(resp.GetBody()))

	// update keeps the id and createdAt
	first, err := f.manage.Get(ctx, saved.ID)
	require.NoError(t, err)
	upd := first.Clone()
	upd.ResponseBody = map[string]any{"role": "root"}
	again, err := f.manage.SaveOrUpdate(ctx, upd)
	require.NoError(t, err)
	assert.Equal(t, saved.ID, again.ID)
	assert.True(t, first.CreatedAt.Equal(again.CreatedAt))

	resp, _ = f.dispatch(t, "POST", "/login", `{"username":"admin"}`)
	assert.JSONEq(t, `{"role":"root"}`, string(resp.GetBody()))
}

func TestSaveOrUpdateRejectsInvalid(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.manage.SaveOrUpdate(ctx, &model.MockDefinition{APIName: "/x"})
	assert.True(t, errors.Is(err, model.ErrInvalidDefinition))

	_, err = f.manage.SaveOrUpdate(ctx, &model.MockDefinition{APIName: "/x", Method: "TRACE", ResponseBody: "ok"})
	assert.True(t, errors.Is(err, model.ErrInvalidDefinition))

	bad := &model.MockDefinition{APIName: "/x", ResponseBody: "ok"}
	bad.Predicate.Request = map[string]any{"id": "regex:(["}
	_, err = f.manage.SaveOrUpdate(ctx, bad)
	assert.Error(t, err)

	list, err := f.manage.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestDeleteRemovesRule(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	saved, err := f.manage.SaveOrUpdate(ctx, loginDef("", "ok"))
	require.NoError(t, err)

	_, ok := f.dispatch(t, "POST", "/login", `{}`)
	require.True(t, ok)

	require.NoError(t, f.manage.Delete(ctx, saved.ID))
	_, ok = f.dispatch(t, "POST", "/login", `{}`)
	assert.False(t, ok)

	assert.True(t, errors.Is(f.manage.Delete(ctx, saved.ID), model.ErrDefinitionNotFound))
}

func TestImportBatchReportsPerItem(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	results, err := f.manage.ImportBatch(ctx, []*model.MockDefinition{
		loginDef("a", "A"),
		{APIName: "", ResponseBody: "x"},
		{APIName: "/orders", Method: "get", ResponseBody: "orders"},
	})
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.True(t, results[0].Success)
	assert.NotEmpty(t, results[0].MockID)
	assert.False(t, results[1].Success)
	assert.Contains(t, results[1].Error, "apiName is required")
	assert.True(t, results[2].Success)
	assert.Equal(t, "/orders", results[2].APIName)

	resp, ok := f.dispatch(t, "GET", "/orders", "")
	require.True(t, ok)
	assert.Equal(t, "orders", string(resp.GetBody()))

	view := f.manage.DebugTable(ctx)
	assert.Len(t, view.Rules, 2)
}

func TestTemporaryDefinitions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	persisted := &model.MockDefinition{APIName: "/orders", ResponseBody: "persisted"}
	persisted.Predicate.Request = map[string]any{"a": 1.0, "b": 2.0}
	_, err := f.manage.SaveOrUpdate(ctx, persisted)
	require.NoError(t, err)

	stored, err := f.manage.UploadTemporary(ctx, []*model.MockDefinition{
		{APIName: "/orders", ResponseBody: "temporary"},
	})
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, model.SourceTemporary, stored[0].Source)

	resp, ok := f.dispatch(t, "POST", "/orders", `{"a":1,"b":2}`)
	require.True(t, ok)
	assert.Equal(t, "temporary", string(resp.GetBody()))

	list, err := f.manage.List(ctx)
	require.NoError(t, err)
	sources := map[model.Source]int{}
	for _, d := range list {
		sources[d.Source]++
	}
	assert.Equal(t, map[model.Source]int{model.SourcePersisted: 1, model.SourceTemporary: 1}, sources)

	got, err := f.manage.Get(ctx, stored[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "temporary", got.ResponseBody)

	removed, err := f.manage.DeleteTemporary(ctx, "/orders", "post")
	require.NoError(t, err)
	assert.True(t, removed)
	resp, _ = f.dispatch(t, "POST", "/orders", `{"a":1,"b":2}`)
	assert.Equal(t, "persisted", string(resp.GetBody()))

	removed, err = f.manage.DeleteTemporary(ctx, "/orders", "POST")
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestUploadTemporaryIsAllOrNothing(t *testing.T) {
	f := newFixture(t)
	_, err := f.manage.UploadTemporary(context.Background(), []*model.MockDefinition{
		{APIName: "/ok", ResponseBody: "ok"},
		{APIName: "/bad"},
	})
	assert.True(t, errors.Is(err, model.ErrInvalidDefinition))
	list, _ := f.manage.List(context.Background())
	assert.Empty(t, list)
}

func TestReloadResult(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.manage.SaveOrUpdate(ctx, loginDef("", "ok"))
	require.NoError(t, err)

	res, err := f.manage.Reload(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Rules)
	assert.NotNil(t, res.Failures)
	assert.Greater(t, res.Generation, uint64(1))
}

func TestExecuteRuleActionRequiresRule(t *testing.T) {
	f := newFixture(t)
	_, err := f.match.ExecuteRuleAction(context.Background(), nil, nil)
	assert.Error(t, err)
}

// undeletableCache never holds anything and refuses deletes.
type undeletableCache struct{}

func (undeletableCache) GetDefinitionFromCache(_ context.Context, id string) (*model.MockDefinition, error) {
	return nil, fmt.Errorf("%w: %s", storage.ErrCacheMiss, id)
}

func (undeletableCache) SetDefinitionToCache(context.Context, *model.MockDefinition) error {
	return nil
}

func (undeletableCache) DeleteDefinitionFromCache(context.Context, string) error {
	return errors.New("cache unavailable")
}

func TestDeleteReloadsWhenCacheCleanupFails(t *testing.T) {
	f := newFixtureWithCache(t, undeletableCache{})
	ctx := context.Background()
	saved, err := f.manage.SaveOrUpdate(ctx, loginDef("", "ok"))
	require.NoError(t, err)
	_, ok := f.dispatch(t, "POST", "/login", `{}`)
	require.True(t, ok)

	err = f.manage.Delete(ctx, saved.ID)
	assert.True(t, errors.Is(err, repo.ErrStaleCache))

	_, ok = f.dispatch(t, "POST", "/login", `{}`)
	assert.False(t, ok, "deleted definition is no longer served")
}
