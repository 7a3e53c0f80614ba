package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/bizengo/internal/models"
)

func TestCartAddIncrementsQuantity(t *testing.T) {
	db := newTestDB(t)
	carts := NewCartService(db)
	ctx := context.Background()

	buyer := seedBuyer(t, db, "cart@example.com")
	vendor := seedVendor(t, db, "v@example.com")
	shoe := seedProduct(t, db, vendor.ID, "Shoe", "2500.00", 10)
	bag := seedProduct(t, db, vendor.ID, "Bag", "1000.50", -1)

	first, err := carts.AddItem(ctx, buyer.ID, shoe.ID, 2)
	require.NoError(t, err)
	item, err := carts.AddItem(ctx, buyer.ID, shoe.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, 5, item.Quantity)
	assert.Equal(t, first.ID, item.ID)

	var lines int64
	require.NoError(t, db.Model(&models.CartItem{}).Where("product_id = ?", shoe.ID).Count(&lines).Error)
	assert.EqualValues(t, 1, lines)

	_, err = carts.AddItem(ctx, buyer.ID, bag.ID, 0)
	require.NoError(t, err)

	view, err := carts.Get(ctx, buyer.ID)
	require.NoError(t, err)
	require.Len(t, view.Items, 2)
	assert.Equal(t, "Shoe", view.Items[0].ProductName)
	assert.Equal(t, 5, view.Items[0].Quantity)
	assert.Equal(t, 1, view.Items[1].Quantity)
	assert.Equal(t, "13500.5", view.Total.String())

	var cartsCount int64
	require.NoError(t, db.Model(&models.Cart{}).Count(&cartsCount).Error)
	assert.EqualValues(t, 1, cartsCount)
}

func TestCartRejectsBadInput(t *testing.T) {
	db := newTestDB(t)
	carts := NewCartService(db)
	ctx := context.Background()

	buyer := seedBuyer(t, db, "cart@example.com")
	vendor := seedVendor(t, db, "v@example.com")
	product := seedProduct(t, db, vendor.ID, "Lamp", "10.00", 5)

	_, err := carts.AddItem(ctx, buyer.ID, product.ID, -2)
	requireKind(t, err, KindValidation)

	_, err = carts.AddItem(ctx, buyer.ID, uuid.New(), 1)
	requireKind(t, err, KindNotFound)

	require.NoError(t, db.Model(&models.Product{}).Where("id = ?", product.ID).Update("status", models.ProductInactive).Error)
	_, err = carts.AddItem(ctx, buyer.ID, product.ID, 1)
	requireKind(t, err, KindNotFound)
}

func TestCartItemsAreScopedToOwner(t *testing.T) {
	db := newTestDB(t)
	carts := NewCartService(db)
	ctx := context.Background()

	owner := seedBuyer(t, db, "owner@example.com")
	other := seedBuyer(t, db, "other@example.com")
	vendor := seedVendor(t, db, "v@example.com")
	product := seedProduct(t, db, vendor.ID, "Lamp", "10.00", 5)

	item, err := carts.AddItem(ctx, owner.ID, product.ID, 1)
	require.NoError(t, err)

	_, err = carts.UpdateItem(ctx, other.ID, item.ID, 4)
	requireKind(t, err, KindNotFound)
	requireKind(t, carts.RemoveItem(ctx, other.ID, item.ID), KindNotFound)

	_, err = carts.UpdateItem(ctx, owner.ID, item.ID, 0)
	requireKind(t, err, KindValidation)

	updated, err := carts.UpdateItem(ctx, owner.ID, item.ID, 4)
	require.NoError(t, err)
	assert.Equal(t, 4, updated.Quantity)

	require.NoError(t, carts.RemoveItem(ctx, owner.ID, item.ID))
	view, err := carts.Get(ctx, owner.ID)
	require.NoError(t, err)
	assert.Empty(t, view.Items)
	assert.True(t, view.Total.IsZero())
}

func TestCartClearIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	carts := NewCartService(db)
	ctx := context.Background()

	buyer := seedBuyer(t, db, "cart@example.com")
	vendor := seedVendor(t, db, "v@example.com")
	product := seedProduct(t, db, vendor.ID, "Lamp", "10.00", 5)

	require.NoError(t, carts.Clear(ctx, buyer.ID))

	_, err := carts.AddItem(ctx, buyer.ID, product.ID, 2)
	require.NoError(t, err)
	require.NoError(t, carts.Clear(ctx, buyer.ID))
	require.NoError(t, carts.Clear(ctx, buyer.ID))

	var items int64
	require.NoError(t, db.Model(&models.CartItem{}).Count(&items).Error)
	assert.Zero(t, items)
}
