package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/bizengo/internal/utils"
)

func TestReviewRequiresPurchase(t *testing.T) {
	db := newTestDB(t)
	reviews := NewReviewService(db)
	orders, _ := newTestOrders(db)
	ctx := context.Background()

	buyer := seedBuyer(t, db, "b@example.com")
	vendor := seedVendor(t, db, "v@example.com")
	product := seedProduct(t, db, vendor.ID, "Radio", "80.00", 5)

	order, err := orders.Create(ctx, buyer.ID, CreateOrderInput{Items: []LineRequest{{ProductID: product.ID, Quantity: 1}}})
	require.NoError(t, err)

	in := ReviewInput{OrderID: order.ID, ProductID: product.ID, Rating: 4, Comment: " solid "}

	_, err = reviews.Create(ctx, buyer.ID, in)
	requireKind(t, err, KindForbidden)

	markPaid(t, db, order.ID)

	_, err = reviews.Create(ctx, buyer.ID, ReviewInput{OrderID: order.ID, ProductID: product.ID, Rating: 6})
	requireKind(t, err, KindValidation)
	_, err = reviews.Create(ctx, uuid.New(), in)
	requireKind(t, err, KindForbidden)

	review, err := reviews.Create(ctx, buyer.ID, in)
	require.NoError(t, err)
	assert.Equal(t, "solid", review.Comment)

	_, err = reviews.Create(ctx, buyer.ID, in)
	requireKind(t, err, KindConflict)

	list, total, err := reviews.ListForProduct(ctx, product.ID, utils.NewPagination(1, 10))
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Len(t, list, 1)

	detail, err := newTestCatalog(db, nil).Product(ctx, product.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, detail.ReviewCount)
	assert.InDelta(t, 4.0, detail.AverageRating, 0.001)
}

func TestFavourites(t *testing.T) {
	db := newTestDB(t)
	favourites := NewFavouriteService(db)
	ctx := context.Background()

	buyer := seedBuyer(t, db, "b@example.com")
	vendor := seedVendor(t, db, "v@example.com")
	product := seedProduct(t, db, vendor.ID, "Radio", "80.00", 5)

	requireKind(t, favourites.Add(ctx, buyer.ID, uuid.New()), KindNotFound)
	require.NoError(t, favourites.Add(ctx, buyer.ID, product.ID))
	require.NoError(t, favourites.Add(ctx, buyer.ID, product.ID))

	list, err := favourites.List(ctx, buyer.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Radio", list[0].Name)
	assert.Equal(t, vendor.BusinessName, list[0].BusinessName)

	require.NoError(t, favourites.Remove(ctx, buyer.ID, product.ID))
	requireKind(t, favourites.Remove(ctx, buyer.ID, product.ID), KindNotFound)
}
