package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/bizengo/internal/models"
	"github.com/example/bizengo/internal/utils"
)

func buyerSignup(email string) BuyerSignup {
	return BuyerSignup{
		Name: "Chi",
		Contact: Contact{
			Email:    email,
			Phone:    "08011112222",
			State:    "Lagos",
			Country:  "Nigeria",
			Password: "secret1",
		},
	}
}

func TestBuyerSignupVerifyLogin(t *testing.T) {
	db := newTestDB(t)
	mailer := &fakeMailer{}
	auth := newTestAuth(db, mailer, nil)
	ctx := context.Background()

	require.NoError(t, auth.SignupBuyer(ctx, buyerSignup(" Chi@Example.com ")))

	sent := mailer.last(t)
	assert.Equal(t, "chi@example.com", sent.To)
	assert.Equal(t, PurposeSignup, sent.Purpose)

	_, err := auth.Login(ctx, "chi@example.com", "secret1")
	requireKind(t, err, KindUnauthorized)

	res, err := auth.VerifyEmail(ctx, "chi@example.com", sent.Code)
	require.NoError(t, err)
	assert.Equal(t, models.RoleBuyer, res.Role)

	id, err := utils.ParseToken(testSecret, res.Token)
	require.NoError(t, err)
	assert.Equal(t, res.SubjectID, id.SubjectID)
	assert.Equal(t, models.RoleBuyer, id.Role)

	var pending int64
	require.NoError(t, db.Model(&models.PendingBuyer{}).Count(&pending).Error)
	assert.Zero(t, pending)

	var buyer models.Buyer
	require.NoError(t, db.Take(&buyer, "id = ?", res.SubjectID).Error)
	assert.Equal(t, "Chi", buyer.Name)
	assert.Len(t, buyer.ReferralCode, 14)
	assert.Equal(t, models.AccountActive, buyer.Status)

	login, err := auth.Login(ctx, "CHI@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, res.SubjectID, login.SubjectID)

	_, err = auth.Login(ctx, "chi@example.com", "wrong-pass")
	requireKind(t, err, KindUnauthorized)
}

func TestVendorVerifyCreatesStorefront(t *testing.T) {
	db := newTestDB(t)
	mailer := &fakeMailer{}
	auth := newTestAuth(db, mailer, nil)
	ctx := context.Background()

	err := auth.SignupVendor(ctx, VendorSignup{
		Firstname:    "Ada",
		Lastname:     "Obi",
		BusinessName: "Ada Fabrics",
		BusinessType: "fashion",
		Contact:      Contact{Email: "ada@example.com", Phone: "0801", Password: "secret1"},
	})
	require.NoError(t, err)

	res, err := auth.VerifyEmail(ctx, "ada@example.com", mailer.last(t).Code)
	require.NoError(t, err)
	assert.Equal(t, models.RoleVendor, res.Role)

	var vendor models.Vendor
	require.NoError(t, db.Take(&vendor, "id = ?", res.SubjectID).Error)
	assert.Equal(t, models.KYCUnverified, vendor.KYCStatus)

	var store models.Storefront
	require.NoError(t, db.Take(&store, "vendor_id = ?", vendor.ID).Error)
	assert.Equal(t, "Ada Fabrics", store.BusinessName)
	assert.True(t, store.IsActive)
}

func TestSignupValidation(t *testing.T) {
	db := newTestDB(t)
	auth := newTestAuth(db, &fakeMailer{}, nil)
	ctx := context.Background()

	in := buyerSignup("a@example.com")
	in.Name = ""
	requireKind(t, auth.SignupBuyer(ctx, in), KindValidation)

	in = buyerSignup("not-an-email")
	requireKind(t, auth.SignupBuyer(ctx, in), KindValidation)

	in = buyerSignup("a@example.com")
	in.Password = "123"
	requireKind(t, auth.SignupBuyer(ctx, in), KindValidation)

	requireKind(t, auth.SignupVendor(ctx, VendorSignup{Contact: Contact{Email: "v@example.com"}}), KindValidation)
}

func TestSignupConflicts(t *testing.T) {
	db := newTestDB(t)
	auth := newTestAuth(db, &fakeMailer{}, nil)
	ctx := context.Background()

	seedVendor(t, db, "taken@example.com")
	err := auth.SignupBuyer(ctx, buyerSignup("taken@example.com"))
	requireKind(t, err, KindConflict)
	assert.Contains(t, err.Error(), "already exists")

	require.NoError(t, auth.SignupBuyer(ctx, buyerSignup("new@example.com")))
	err = auth.SignupVendor(ctx, VendorSignup{
		Firstname: "A", Lastname: "B", BusinessName: "C", BusinessType: "D",
		Contact: Contact{Email: "new@example.com", Phone: "1", Password: "secret1"},
	})
	requireKind(t, err, KindConflict)
	assert.Contains(t, err.Error(), "pending verification")
}

func TestVerifyEmailFailures(t *testing.T) {
	db := newTestDB(t)
	mailer := &fakeMailer{}
	auth := newTestAuth(db, mailer, nil)
	ctx := context.Background()

	_, err := auth.VerifyEmail(ctx, "ghost@example.com", "123456")
	requireKind(t, err, KindNotFound)

	require.NoError(t, auth.SignupBuyer(ctx, buyerSignup("late@example.com")))
	code := mailer.last(t).Code

	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}
	_, err = auth.VerifyEmail(ctx, "late@example.com", wrong)
	requireKind(t, err, KindInvalidCode)

	auth.now = func() time.Time { return time.Now().UTC().Add(11 * time.Minute) }
	_, err = auth.VerifyEmail(ctx, "late@example.com", code)
	requireKind(t, err, KindExpired)

	var pending int64
	require.NoError(t, db.Model(&models.PendingBuyer{}).Count(&pending).Error)
	assert.Zero(t, pending, "expired registration should be removed")

	_, err = auth.VerifyEmail(ctx, "late@example.com", code)
	requireKind(t, err, KindNotFound)
}

func TestResendVerificationRotatesCode(t *testing.T) {
	db := newTestDB(t)
	mailer := &fakeMailer{}
	auth := newTestAuth(db, mailer, nil)
	ctx := context.Background()

	requireKind(t, auth.ResendVerification(ctx, "nobody@example.com"), KindNotFound)

	require.NoError(t, auth.SignupBuyer(ctx, buyerSignup("resend@example.com")))
	require.NoError(t, auth.ResendVerification(ctx, "resend@example.com"))
	require.Len(t, mailer.sent, 2)

	res, err := auth.VerifyEmail(ctx, "resend@example.com", mailer.last(t).Code)
	require.NoError(t, err)
	assert.Equal(t, models.RoleBuyer, res.Role)
}

func TestSignupFallsBackToGeolocation(t *testing.T) {
	db := newTestDB(t)
	locator := &fakeLocator{state: "Oyo", country: "Nigeria"}
	auth := newTestAuth(db, &fakeMailer{}, locator)

	in := buyerSignup("geo@example.com")
	in.State, in.Country, in.ClientIP = "", "", "102.89.1.1"
	require.NoError(t, auth.SignupBuyer(context.Background(), in))

	var pending models.PendingBuyer
	require.NoError(t, db.Take(&pending, "email = ?", "geo@example.com").Error)
	assert.Equal(t, "Oyo", pending.State)
	assert.Equal(t, "Nigeria", pending.Country)
	assert.Equal(t, 1, locator.calls)
}

func TestSuspendedAccountCannotLogin(t *testing.T) {
	db := newTestDB(t)
	auth := newTestAuth(db, &fakeMailer{}, nil)

	buyer := seedBuyer(t, db, "sus@example.com")
	require.NoError(t, db.Model(&models.Buyer{}).Where("id = ?", buyer.ID).Update("status", models.AccountSuspended).Error)

	_, err := auth.Login(context.Background(), "sus@example.com", "secret1")
	requireKind(t, err, KindForbidden)
}

func TestPasswordReset(t *testing.T) {
	db := newTestDB(t)
	mailer := &fakeMailer{}
	auth := newTestAuth(db, mailer, nil)
	ctx := context.Background()

	require.NoError(t, auth.RequestPasswordReset(ctx, "unknown@example.com"))
	assert.Empty(t, mailer.sent, "unknown accounts must not receive mail")

	seedBuyer(t, db, "reset@example.com")
	require.NoError(t, auth.RequestPasswordReset(ctx, "reset@example.com"))
	first := mailer.last(t)
	assert.Equal(t, PurposePasswordReset, first.Purpose)

	require.NoError(t, auth.RequestPasswordReset(ctx, "reset@example.com"))
	code := mailer.last(t).Code

	var tokens int64
	require.NoError(t, db.Model(&models.PasswordResetToken{}).Count(&tokens).Error)
	assert.EqualValues(t, 1, tokens)

	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}
	requireKind(t, auth.ResetPassword(ctx, "reset@example.com", wrong, "newpass1"), KindInvalidCode)
	requireKind(t, auth.ResetPassword(ctx, "reset@example.com", code, "123"), KindValidation)

	require.NoError(t, auth.ResetPassword(ctx, "reset@example.com", code, "newpass1"))

	_, err := auth.Login(ctx, "reset@example.com", "secret1")
	requireKind(t, err, KindUnauthorized)
	_, err = auth.Login(ctx, "reset@example.com", "newpass1")
	require.NoError(t, err)

	requireKind(t, auth.ResetPassword(ctx, "reset@example.com", code, "another1"), KindInvalidCode)
}

func TestPasswordResetExpired(t *testing.T) {
	db := newTestDB(t)
	mailer := &fakeMailer{}
	auth := newTestAuth(db, mailer, nil)
	ctx := context.Background()

	seedBuyer(t, db, "slow@example.com")
	require.NoError(t, auth.RequestPasswordReset(ctx, "slow@example.com"))
	code := mailer.last(t).Code

	auth.now = func() time.Time { return time.Now().UTC().Add(7 * time.Hour) }
	requireKind(t, auth.ResetPassword(ctx, "slow@example.com", code, "newpass1"), KindExpired)

	var tokens int64
	require.NoError(t, db.Model(&models.PasswordResetToken{}).Count(&tokens).Error)
	assert.Zero(t, tokens)
}
