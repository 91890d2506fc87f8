package collections_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexora-app/lexora-sync/internal/client/client"
	"github.com/lexora-app/lexora-sync/internal/client/models"
	"github.com/lexora-app/lexora-sync/internal/dbx"

	_ "modernc.org/sqlite"
)

func newTestRepos(t *testing.T) *client.Repositories {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	repos, err := client.InitDatabase(context.Background(), dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = repos.DB.Close() })
	return repos
}

func TestCollectionRepository_CRUD(t *testing.T) {
	ctx := context.Background()
	repos := newTestRepos(t)
	repo := repos.Collections

	c := &models.Collection{ID: "col-a", Name: "Spanish", CreatedAt: "2026-01-01T00:00:00Z"}
	require.NoError(t, repo.Insert(ctx, c))

	got, err := repo.GetByID(ctx, "col-a")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, *c, *got)

	c.Name = "Spanish B1"
	c.UpdatedAt = "2026-01-02T00:00:00Z"
	require.NoError(t, repo.Update(ctx, c))

	got, err = repo.GetByID(ctx, "col-a")
	require.NoError(t, err)
	assert.Equal(t, "Spanish B1", got.Name)
	assert.Equal(t, "2026-01-02T00:00:00Z", got.UpdatedAt)

	require.NoError(t, repo.DeleteByID(ctx, "col-a"))
	got, err = repo.GetByID(ctx, "col-a")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestCollectionRepository_GetAllOrderedByID(t *testing.T) {
	ctx := context.Background()
	repos := newTestRepos(t)
	repo := repos.Collections

	require.NoError(t, repo.Insert(ctx, &models.Collection{ID: "col-b", Name: "B", CreatedAt: "2026-01-01T00:00:00Z"}))
	require.NoError(t, repo.Insert(ctx, &models.Collection{ID: "col-a", Name: "A", CreatedAt: "2026-01-01T00:00:00Z"}))

	all, err := repo.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "col-a", all[0].ID)
	assert.Equal(t, "col-b", all[1].ID)
}

func TestCollectionRepository_ReplaceAll(t *testing.T) {
	ctx := context.Background()
	repos := newTestRepos(t)
	repo := repos.Collections

	require.NoError(t, repo.Insert(ctx, &models.Collection{ID: "col-old", Name: "Old", CreatedAt: "2026-01-01T00:00:00Z"}))

	err := dbx.WithTx(ctx, repos.DB, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return repo.ReplaceAll(ctx, tx, []models.Collection{
			{ID: "col-new", Name: "New", CreatedAt: "2026-01-02T00:00:00Z"},
		})
	})
	require.NoError(t, err)

	all, err := repo.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "col-new", all[0].ID)
}
