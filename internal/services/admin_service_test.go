package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/bizengo/internal/models"
	"github.com/example/bizengo/internal/utils"
)

func TestAdminStatsAndRevenue(t *testing.T) {
	db := newTestDB(t)
	admin := NewAdminService(db, zerolog.Nop())
	orders, _ := newTestOrders(db)
	ctx := context.Background()

	buyer := seedBuyer(t, db, "b@example.com")
	vendor := seedVendor(t, db, "v@example.com")
	product := seedProduct(t, db, vendor.ID, "Fan", "100.00", 10)
	line := []LineRequest{{ProductID: product.ID, Quantity: 2}}

	paid, err := orders.Create(ctx, buyer.ID, CreateOrderInput{Items: line})
	require.NoError(t, err)
	markPaid(t, db, paid.ID)
	_, err = orders.Create(ctx, buyer.ID, CreateOrderInput{Items: line})
	require.NoError(t, err)
	require.NoError(t, db.Model(&models.Vendor{}).Where("id = ?", vendor.ID).Update("kyc_status", models.KYCPending).Error)

	stats, err := admin.Stats(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, stats.TotalBuyers)
	assert.EqualValues(t, 1, stats.TotalVendors)
	assert.EqualValues(t, 1, stats.TotalProducts)
	assert.EqualValues(t, 2, stats.TotalOrders)
	assert.EqualValues(t, 1, stats.PendingKYC)
	assert.EqualValues(t, 1, stats.OrdersByStatus["paid"])
	assert.EqualValues(t, 1, stats.OrdersByStatus["pending"])
	assert.Equal(t, "200", stats.TotalRevenue.String())

	series, err := admin.Revenue(ctx, 7)
	require.NoError(t, err)
	require.Len(t, series, 7)
	today := series[len(series)-1]
	assert.Equal(t, time.Now().UTC().Format("2006-01-02"), today.Date)
	assert.Equal(t, "200", today.Revenue.String())
	assert.Equal(t, 1, today.Orders)
	assert.True(t, series[0].Revenue.IsZero())
}

func TestAdminListUsers(t *testing.T) {
	db := newTestDB(t)
	admin := NewAdminService(db, zerolog.Nop())
	orders, _ := newTestOrders(db)
	ctx := context.Background()

	buyer := seedBuyer(t, db, "alice@example.com")
	seedBuyer(t, db, "bob@example.com")
	vendor := seedVendor(t, db, "carol@example.com")
	product := seedProduct(t, db, vendor.ID, "Fan", "100.00", 10)

	order, err := orders.Create(ctx, buyer.ID, CreateOrderInput{Items: []LineRequest{{ProductID: product.ID, Quantity: 1}}})
	require.NoError(t, err)
	markPaid(t, db, order.ID)

	all, total, err := admin.ListUsers(ctx, "", "", utils.NewPagination(1, 10))
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	assert.Len(t, all, 3)

	page, total, err := admin.ListUsers(ctx, "", "", utils.NewPagination(2, 2))
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	assert.Len(t, page, 1)

	buyers, total, err := admin.ListUsers(ctx, "buyer", "ALICE", utils.NewPagination(1, 10))
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, buyers, 1)
	assert.EqualValues(t, 1, buyers[0].OrderCount)
	assert.Equal(t, "100", buyers[0].TotalSpent.String())

	_, _, err = admin.ListUsers(ctx, "robot", "", utils.NewPagination(1, 10))
	requireKind(t, err, KindValidation)
}

func TestAdminDeleteUser(t *testing.T) {
	db := newTestDB(t)
	admin := NewAdminService(db, zerolog.Nop())
	orders, _ := newTestOrders(db)
	ctx := context.Background()

	shopper := seedBuyer(t, db, "shopper@example.com")
	idle := seedBuyer(t, db, "idle@example.com")
	seller := seedVendor(t, db, "seller@example.com")
	newbie := seedVendor(t, db, "newbie@example.com")
	sold := seedProduct(t, db, seller.ID, "Fan", "100.00", 10)
	seedProduct(t, db, newbie.ID, "Unsold", "5.00", 1)

	_, err := orders.Create(ctx, shopper.ID, CreateOrderInput{Items: []LineRequest{{ProductID: sold.ID, Quantity: 1}}})
	require.NoError(t, err)
	_, err = NewCartService(db).AddItem(ctx, idle.ID, sold.ID, 1)
	require.NoError(t, err)

	suspended, err := admin.DeleteUser(ctx, uuid.New(), "buyer", shopper.ID)
	require.NoError(t, err)
	assert.True(t, suspended)
	var b models.Buyer
	require.NoError(t, db.Take(&b, "id = ?", shopper.ID).Error)
	assert.Equal(t, models.AccountSuspended, b.Status)

	suspended, err = admin.DeleteUser(ctx, uuid.New(), "buyer", idle.ID)
	require.NoError(t, err)
	assert.False(t, suspended)
	var count int64
	require.NoError(t, db.Model(&models.Buyer{}).Where("id = ?", idle.ID).Count(&count).Error)
	assert.Zero(t, count)
	require.NoError(t, db.Model(&models.Cart{}).Where("buyer_id = ?", idle.ID).Count(&count).Error)
	assert.Zero(t, count)

	suspended, err = admin.DeleteUser(ctx, uuid.New(), "vendor", seller.ID)
	require.NoError(t, err)
	assert.True(t, suspended)
	var p models.Product
	require.NoError(t, db.Take(&p, "id = ?", sold.ID).Error)
	assert.False(t, p.Visibility)

	suspended, err = admin.DeleteUser(ctx, uuid.New(), "vendor", newbie.ID)
	require.NoError(t, err)
	assert.False(t, suspended)
	require.NoError(t, db.Model(&models.Product{}).Where("vendor_id = ?", newbie.ID).Count(&count).Error)
	assert.Zero(t, count)
	require.NoError(t, db.Model(&models.Storefront{}).Where("vendor_id = ?", newbie.ID).Count(&count).Error)
	assert.Zero(t, count)

	_, err = admin.DeleteUser(ctx, uuid.New(), "vendor", newbie.ID)
	requireKind(t, err, KindNotFound)
}

func TestAdminCannotDeleteSelf(t *testing.T) {
	db := newTestDB(t)
	admin := NewAdminService(db, zerolog.Nop())
	ctx := context.Background()

	created, err := admin.CreateAdmin(ctx, AdminInput{Name: "Root", Email: "root@example.com", Password: "secret1"})
	require.NoError(t, err)

	_, err = admin.DeleteUser(ctx, created.ID, "admin", created.ID)
	requireKind(t, err, KindValidation)

	_, err = admin.CreateAdmin(ctx, AdminInput{Name: "Dup", Email: "ROOT@example.com", Password: "secret1"})
	requireKind(t, err, KindConflict)
}

func TestAdminSetUserStatus(t *testing.T) {
	db := newTestDB(t)
	admin := NewAdminService(db, zerolog.Nop())
	auth := newTestAuth(db, &fakeMailer{}, nil)
	ctx := context.Background()

	buyer := seedBuyer(t, db, "b@example.com")

	requireKind(t, admin.SetUserStatus(ctx, "buyer", buyer.ID, "banned"), KindValidation)
	requireKind(t, admin.SetUserStatus(ctx, "buyer", uuid.New(), "suspended"), KindNotFound)

	require.NoError(t, admin.SetUserStatus(ctx, "buyer", buyer.ID, "suspended"))
	_, err := auth.Login(ctx, "b@example.com", "secret1")
	requireKind(t, err, KindForbidden)

	require.NoError(t, admin.SetUserStatus(ctx, "buyer", buyer.ID, "active"))
	_, err = auth.Login(ctx, "b@example.com", "secret1")
	require.NoError(t, err)
}

func TestDecideKYCRequiresPendingSubmission(t *testing.T) {
	db := newTestDB(t)
	admin := NewAdminService(db, zerolog.Nop())
	ctx := context.Background()
	vendor := seedVendor(t, db, "v@example.com")

	requireKind(t, admin.DecideKYC(ctx, vendor.ID, "accepted"), KindValidation)
	requireKind(t, admin.DecideKYC(ctx, uuid.New(), "accepted"), KindNotFound)

	require.NoError(t, db.Model(&models.Vendor{}).Where("id = ?", vendor.ID).Update("kyc_status", models.KYCPending).Error)
	requireKind(t, admin.DecideKYC(ctx, vendor.ID, "maybe"), KindValidation)
	require.NoError(t, admin.DecideKYC(ctx, vendor.ID, "rejected"))

	var v models.Vendor
	require.NoError(t, db.Take(&v, "id = ?", vendor.ID).Error)
	assert.Equal(t, models.KYCRejected, v.KYCStatus)
}
