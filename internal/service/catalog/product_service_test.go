package catalog_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/service/catalog"
)

func floatPtr(v float64) *float64 { return &v }

func TestProductService_Create(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	store, err := f.storeSvc.Create(ctx, catalog.StoreInput{Name: "Fresh Mart", Location: "5th Ave"})
	require.NoError(t, err)

	apple, err := f.prodSvc.Create(ctx, store.ID, catalog.ProductInput{Name: "Apple", Price: floatPtr(1.5)})
	require.NoError(t, err)
	require.Equal(t, store.ID, apple.StoreID)
	require.Equal(t, 1.5, apple.Price)

	free, err := f.prodSvc.Create(ctx, store.ID, catalog.ProductInput{Name: "Sample", Price: floatPtr(0)})
	require.NoError(t, err)
	require.Zero(t, free.Price)

	cases := []struct {
		name    string
		storeID string
		in      catalog.ProductInput
		kind    error
		msg     string
	}{
		{name: "missing price", storeID: store.ID, in: catalog.ProductInput{Name: "Apple"}, kind: domain.ErrMissingField, msg: "Please provide name and price for the product"},
		{name: "missing name", storeID: store.ID, in: catalog.ProductInput{Price: floatPtr(1)}, kind: domain.ErrMissingField, msg: "Please provide name and price for the product"},
		{name: "negative price", storeID: store.ID, in: catalog.ProductInput{Name: "Apple", Price: floatPtr(-1)}, kind: domain.ErrInvalidValue, msg: "Price cannot be negative"},
		{name: "absent store", storeID: domain.NewID(), in: catalog.ProductInput{Name: "Apple", Price: floatPtr(1.5)}, kind: domain.ErrStoreNotFound},
		{name: "malformed store", storeID: "abc", in: catalog.ProductInput{Name: "Apple", Price: floatPtr(1.5)}, kind: domain.ErrStoreNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.prodSvc.Create(ctx, tc.storeID, tc.in)
			require.ErrorIs(t, err, tc.kind)
			if tc.msg != "" {
				require.EqualError(t, err, tc.msg)
			}
		})
	}
}

func TestProductService_ListByStore(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	empty, err := f.prodSvc.ListByStore(ctx, domain.NewID())
	require.NoError(t, err)
	require.Empty(t, empty)

	_, err = f.prodSvc.ListByStore(ctx, "not-an-id")
	require.ErrorIs(t, err, domain.ErrStoreNotFound)
}

func TestProductService_UpdateAndOwnership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	storeA, err := f.storeSvc.Create(ctx, catalog.StoreInput{Name: "A", Location: "1st"})
	require.NoError(t, err)
	storeB, err := f.storeSvc.Create(ctx, catalog.StoreInput{Name: "B", Location: "2nd"})
	require.NoError(t, err)
	apple, err := f.prodSvc.Create(ctx, storeA.ID, catalog.ProductInput{Name: "Apple", Price: floatPtr(1.5)})
	require.NoError(t, err)

	updated, err := f.prodSvc.Update(ctx, storeA.ID, apple.ID, catalog.ProductPatch{Price: floatPtr(0)})
	require.NoError(t, err)
	require.Zero(t, updated.Price)
	require.Equal(t, "Apple", updated.Name)

	_, err = f.prodSvc.Update(ctx, storeB.ID, apple.ID, catalog.ProductPatch{Name: strPtr("Stolen")})
	require.ErrorIs(t, err, domain.ErrForbidden)
	require.EqualError(t, err, "Forbidden: Product does not belong to this store")

	_, err = f.prodSvc.Update(ctx, storeA.ID, apple.ID, catalog.ProductPatch{})
	require.ErrorIs(t, err, domain.ErrNoFieldsToUpdate)

	_, err = f.prodSvc.Update(ctx, storeA.ID, apple.ID, catalog.ProductPatch{Price: floatPtr(-0.5)})
	require.ErrorIs(t, err, domain.ErrInvalidValue)

	_, err = f.prodSvc.Update(ctx, "bad", apple.ID, catalog.ProductPatch{Name: strPtr("x")})
	require.ErrorIs(t, err, domain.ErrInvalidIdentifier)

	_, err = f.prodSvc.Update(ctx, storeA.ID, domain.NewID(), catalog.ProductPatch{Name: strPtr("x")})
	require.ErrorIs(t, err, domain.ErrProductNotFound)

	stored, err := f.products.Get(ctx, apple.ID)
	require.NoError(t, err)
	require.Equal(t, "Apple", stored.Name)
}

func TestProductService_Delete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	storeA, err := f.storeSvc.Create(ctx, catalog.StoreInput{Name: "A", Location: "1st"})
	require.NoError(t, err)
	storeB, err := f.storeSvc.Create(ctx, catalog.StoreInput{Name: "B", Location: "2nd"})
	require.NoError(t, err)
	apple, err := f.prodSvc.Create(ctx, storeA.ID, catalog.ProductInput{Name: "Apple", Price: floatPtr(1.5)})
	require.NoError(t, err)

	_, err = f.prodSvc.Delete(ctx, storeB.ID, apple.ID)
	require.ErrorIs(t, err, domain.ErrForbidden)

	_, err = f.prodSvc.Delete(ctx, storeA.ID, "xyz")
	require.ErrorIs(t, err, domain.ErrInvalidIdentifier)

	deleted, err := f.prodSvc.Delete(ctx, storeA.ID, apple.ID)
	require.NoError(t, err)
	require.Equal(t, "Apple", deleted.Name)

	_, err = f.prodSvc.Delete(ctx, storeA.ID, apple.ID)
	require.ErrorIs(t, err, domain.ErrProductNotFound)
}
