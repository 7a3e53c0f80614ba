package services

import (
	"context"
	"errors"
	"mime/multipart"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/example/bizengo/internal/models"
	"github.com/example/bizengo/internal/utils"
)

func TestProfileUpdate(t *testing.T) {
	db := newTestDB(t)
	profiles := NewProfileService(db, &fakeUploader{}, zerolog.Nop())
	ctx := context.Background()

	vendor := seedVendor(t, db, "v@example.com")
	seedBuyer(t, db, "taken@example.com")
	id := utils.Identity{SubjectID: vendor.ID, Role: models.RoleVendor}

	changed, err := profiles.Update(ctx, id, ProfilePatch{})
	require.NoError(t, err)
	assert.False(t, changed)

	_, err = profiles.Update(ctx, id, ProfilePatch{Email: "TAKEN@example.com"})
	requireKind(t, err, KindConflict)

	changed, err = profiles.Update(ctx, id, ProfilePatch{BusinessName: "New Name", Name: "ignored", State: "Kano"})
	require.NoError(t, err)
	assert.True(t, changed)

	profile, err := profiles.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "New Name", profile.BusinessName)
	assert.Equal(t, "Kano", profile.State)
	assert.Empty(t, profile.Name)

	var store models.Storefront
	require.NoError(t, db.Take(&store, "vendor_id = ?", vendor.ID).Error)
	assert.Equal(t, "New Name", store.BusinessName)
}

func TestSubmitKYC(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	vendor := seedVendor(t, db, "v@example.com")
	doc := &multipart.FileHeader{Filename: "passport.pdf"}
	proof := &multipart.FileHeader{Filename: "bill.png"}

	failing := NewProfileService(db, &fakeUploader{err: errors.New("host down")}, zerolog.Nop())
	_, err := failing.SubmitKYC(ctx, vendor.ID, doc, proof)
	requireKind(t, err, KindUpstream)

	profiles := NewProfileService(db, &fakeUploader{}, zerolog.Nop())
	status, err := profiles.KYCStatus(ctx, vendor.ID)
	require.NoError(t, err)
	assert.Equal(t, models.KYCUnverified, status)

	_, err = profiles.SubmitKYC(ctx, vendor.ID, nil, proof)
	requireKind(t, err, KindValidation)
	_, err = profiles.SubmitKYC(ctx, vendor.ID, doc, nil)
	requireKind(t, err, KindValidation)

	res, err := profiles.SubmitKYC(ctx, vendor.ID, doc, proof)
	require.NoError(t, err)
	assert.Equal(t, models.KYCPending, res.Status)
	assert.Equal(t, "https://files.test/kyc_documents/passport.pdf", res.IDDocumentURL)

	admin := NewAdminService(db, zerolog.Nop())
	require.NoError(t, admin.DecideKYC(ctx, vendor.ID, "accepted"))

	_, err = profiles.SubmitKYC(ctx, vendor.ID, doc, proof)
	requireKind(t, err, KindConflict)
}

func TestReferrals(t *testing.T) {
	db := newTestDB(t)
	profiles := NewProfileService(db, &fakeUploader{}, zerolog.Nop())
	ctx := context.Background()

	referrer := seedBuyer(t, db, "ref@example.com")
	for _, email := range []string{"a@example.com", "b@example.com"} {
		b := seedBuyer(t, db, email)
		require.NoError(t, db.Model(&models.Buyer{}).Where("id = ?", b.ID).Update("referred_by", referrer.ReferralCode).Error)
	}
	v := seedVendor(t, db, "v@example.com")
	require.NoError(t, db.Model(&models.Vendor{}).Where("id = ?", v.ID).Update("referred_by", referrer.ReferralCode).Error)

	stats, err := profiles.Referrals(ctx, utils.Identity{SubjectID: referrer.ID, Role: models.RoleBuyer})
	require.NoError(t, err)
	assert.Equal(t, referrer.ReferralCode, stats.ReferralCode)
	assert.EqualValues(t, 3, stats.ReferralCount)
}

func TestNotFoundAsKeepsMessageVerbatim(t *testing.T) {
	err := notFoundAs(gorm.ErrRecordNotFound, "Vendor 100% gone")
	requireKind(t, err, KindNotFound)
	assert.Equal(t, "Vendor 100% gone", err.Error())

	other := errors.New("connection reset")
	assert.Same(t, other, notFoundAs(other, "unused"))
}
