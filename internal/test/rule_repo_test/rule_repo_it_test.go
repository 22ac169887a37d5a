package rulerepotest

import (
	"context"
	"errors"
	"os"
	"testing"

	model "go_mock_dispatch/internal/domain/model/mock_rule"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupSuite(t *testing.T) *RepoDefinitionTestSuite {
	t.Helper()
	path := os.Getenv("MOCK_IT_CONFIG")
	if path == "" {
		t.Skip("MOCK_IT_CONFIG not set")
	}
	suite, cleanup, err := InitializeRepoTest(path)
	require.NoError(t, err)
	t.Cleanup(cleanup)
	return suite
}

func TestRepoSaveFindDelete(t *testing.T) {
	s := setupSuite(t)
	ctx := context.Background()
	def := &model.MockDefinition{
		ID:           uuid.NewString(),
		APIName:      "/it/login",
		Method:       "POST",
		Predicate:    model.Predicate{Request: map[string]any{"user": "alice"}},
		ResponseBody: map[string]any{"token": "t"},
	}

	require.NoError(t, s.Repo.SaveDefinition(ctx, def))
	t.Cleanup(func() { _ = s.Repo.DeleteDefinition(context.Background(), def.ID) })

	got, err := s.Repo.FindByID(ctx, def.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Predicate.Request["user"])

	// second read goes through the cache when redis is enabled
	got, err = s.Repo.FindByID(ctx, def.ID)
	require.NoError(t, err)
	assert.Equal(t, def.APIName, got.APIName)

	defs, err := s.Repo.BatchFind(ctx, []string{def.ID})
	require.NoError(t, err)
	assert.Len(t, defs, 1)

	all, err := s.Repo.ListAll(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, all)

	require.NoError(t, s.Repo.DeleteDefinition(ctx, def.ID))
	_, err = s.Repo.FindByID(ctx, def.ID)
	assert.True(t, errors.Is(err, model.ErrDefinitionNotFound))
}
