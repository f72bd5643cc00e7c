package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/202030481266/FengWenServer/internal/domain"
)

func TestProductRepo_EnsureThree_Backfills(t *testing.T) {
	pool := setupTestDB(t)
	repo := NewProductRepo(pool)
	ctx := context.Background()

	products, err := repo.EnsureThree(ctx)
	require.NoError(t, err)
	require.Len(t, products, 3)
	assert.Equal(t, "Product 1", products[0].Name)
	assert.Equal(t, "Product 3", products[2].Name)

	// Second call must not create additional rows.
	again, err := repo.EnsureThree(ctx)
	require.NoError(t, err)
	require.Len(t, again, 3)

	all, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestProductRepo_Update_PartialFields(t *testing.T) {
	pool := setupTestDB(t)
	repo := NewProductRepo(pool)
	ctx := context.Background()

	products, err := repo.EnsureThree(ctx)
	require.NoError(t, err)

	name := "Crystal Pendant"
	updated, err := repo.Update(ctx, products[0].ID, &name, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "Crystal Pendant", updated.Name)
	assert.Equal(t, products[0].ImageURL, updated.ImageURL)
	assert.Equal(t, products[0].RedirectURL, updated.RedirectURL)
}

func TestProductRepo_Update_NotFound(t *testing.T) {
	pool := setupTestDB(t)
	repo := NewProductRepo(pool)

	name := "nope"
	_, err := repo.Update(context.Background(), 999999, &name, nil, nil)
	assert.ErrorIs(t, err, domain.ErrProductNotFound)
}

func TestTranslationRepo_CRUD(t *testing.T) {
	pool := setupTestDB(t)
	repo := NewTranslationRepo(pool)
	ctx := context.Background()

	created, err := repo.Create(ctx, "五行", "Five Elements")
	require.NoError(t, err)
	assert.NotZero(t, created.ID)

	updated, err := repo.Update(ctx, created.ID, "五行", "The Five Elements")
	require.NoError(t, err)
	assert.Equal(t, "The Five Elements", updated.EnglishText)

	pairs, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, pairs, 1)

	require.NoError(t, repo.Delete(ctx, created.ID))
	assert.ErrorIs(t, repo.Delete(ctx, created.ID), domain.ErrTranslationNotFound)
}

func TestSiteConfigRepo_Upsert(t *testing.T) {
	pool := setupTestDB(t)
	repo := NewSiteConfigRepo(pool)
	ctx := context.Background()

	_, err := repo.Get(ctx, "banner_text")
	assert.ErrorIs(t, err, domain.ErrConfigNotFound)

	created, err := repo.Set(ctx, "banner_text", "Welcome")
	require.NoError(t, err)
	assert.Equal(t, "Welcome", created.Value)

	updated, err := repo.Set(ctx, "banner_text", "New Year Sale")
	require.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, "New Year Sale", updated.Value)

	configs, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, configs, 1)
}
