package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/storage/memory"
)

func newStore(name, location string) domain.Store {
	now := time.Now().UTC()
	return domain.Store{ID: domain.NewID(), Name: name, Location: location, CreatedAt: now, UpdatedAt: now}
}

func TestStoreRepository_CreateGetList(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewStoreRepository()

	first := newStore("Fresh Mart", "5th Ave")
	second := newStore("Corner Shop", "Main St")
	require.NoError(t, repo.Create(ctx, first))
	require.NoError(t, repo.Create(ctx, second))

	stored, err := repo.Get(ctx, first.ID)
	require.NoError(t, err)
	require.Equal(t, first, stored)

	all, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.Equal(t, first.ID, all[0].ID)
	require.Equal(t, second.ID, all[1].ID)
}

func TestStoreRepository_FindByNameLocation(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewStoreRepository()
	store := newStore("Fresh Mart", "5th Ave")
	require.NoError(t, repo.Create(ctx, store))

	found, err := repo.FindByNameLocation(ctx, "Fresh Mart", "5th Ave")
	require.NoError(t, err)
	require.Equal(t, store.ID, found.ID)

	_, err = repo.FindByNameLocation(ctx, "Fresh Mart", "6th Ave")
	require.True(t, errors.Is(err, domain.ErrStoreNotFound))
}

func TestStoreRepository_UpdateDelete(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewStoreRepository()
	store := newStore("Fresh Mart", "5th Ave")
	require.NoError(t, repo.Create(ctx, store))

	store.Name = "Fresh Mart Express"
	store.UpdatedAt = store.UpdatedAt.Add(time.Minute)
	require.NoError(t, repo.Update(ctx, store))

	stored, err := repo.Get(ctx, store.ID)
	require.NoError(t, err)
	require.Equal(t, "Fresh Mart Express", stored.Name)
	require.Equal(t, store.UpdatedAt, stored.UpdatedAt)

	require.NoError(t, repo.Delete(ctx, store.ID))
	_, err = repo.Get(ctx, store.ID)
	require.ErrorIs(t, err, domain.ErrStoreNotFound)

	require.ErrorIs(t, repo.Delete(ctx, store.ID), domain.ErrStoreNotFound)
	require.ErrorIs(t, repo.Update(ctx, store), domain.ErrStoreNotFound)
}
