package services

import (
	"context"
	"mime/multipart"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/example/bizengo/internal/models"
	"github.com/example/bizengo/internal/utils"
)

// ProfileService reads and edits the caller's own account, including vendor KYC.
type ProfileService struct {
	db       *gorm.DB
	uploader Uploader
	log      zerolog.Logger
}

func NewProfileService(db *gorm.DB, uploader Uploader, log zerolog.Logger) *ProfileService {
	return &ProfileService{db: db, uploader: uploader, log: log.With().Str("component", "profile").Logger()}
}

// Profile is the role-specific view of an account.
type Profile struct {
	ID           uuid.UUID            `json:"id"`
	Role         models.Role          `json:"role"`
	Name         string               `json:"name,omitempty"`
	Firstname    string               `json:"firstname,omitempty"`
	Lastname     string               `json:"lastname,omitempty"`
	BusinessName string               `json:"business_name,omitempty"`
	BusinessType string               `json:"business_type,omitempty"`
	KYCStatus    models.KYCStatus     `json:"kyc_status,omitempty"`
	Email        string               `json:"email"`
	Phone        string               `json:"phone"`
	State        string               `json:"state"`
	Country      string               `json:"country"`
	ReferralCode string               `json:"referral_code"`
	ReferredBy   string               `json:"referred_by"`
	ProfilePic   string               `json:"profile_pic"`
	Status       models.AccountStatus `json:"status"`
}

func profileFromAccount(id uuid.UUID, role models.Role, acc models.Account) Profile {
	return Profile{
		ID:           id,
		Role:         role,
		Email:        acc.Email,
		Phone:        acc.Phone,
		State:        acc.State,
		Country:      acc.Country,
		ReferralCode: acc.ReferralCode,
		ReferredBy:   acc.ReferredBy,
		ProfilePic:   acc.ProfilePic,
		Status:       acc.Status,
	}
}

func (s *ProfileService) Get(ctx context.Context, id utils.Identity) (*Profile, error) {
	db := s.db.WithContext(ctx)
	var p Profile
	switch id.Role {
	case models.RoleBuyer:
		var buyer models.Buyer
		if err := db.Take(&buyer, "id = ?", id.SubjectID).Error; err != nil {
			return nil, notFoundAs(err, "User not found")
		}
		p = profileFromAccount(buyer.ID, id.Role, buyer.Account)
		p.Name = buyer.Name
	case models.RoleVendor:
		var vendor models.Vendor
		if err := db.Take(&vendor, "id = ?", id.SubjectID).Error; err != nil {
			return nil, notFoundAs(err, "User not found")
		}
		p = profileFromAccount(vendor.ID, id.Role, vendor.Account)
		p.Firstname = vendor.Firstname
		p.Lastname = vendor.Lastname
		p.BusinessName = vendor.BusinessName
		p.BusinessType = vendor.BusinessType
		p.KYCStatus = vendor.KYCStatus
	case models.RoleAdmin:
		var admin models.Admin
		if err := db.Take(&admin, "id = ?", id.SubjectID).Error; err != nil {
			return nil, notFoundAs(err, "User not found")
		}
		p = profileFromAccount(admin.ID, id.Role, admin.Account)
		p.Name = admin.Name
	default:
		return nil, newError(KindValidation, "Invalid user type")
	}
	return &p, nil
}

func notFoundAs(err error, message string) error {
	if isNotFound(err) {
		return newError(KindNotFound, "%s", message)
	}
	return err
}

// ProfilePatch lists editable profile fields; empty values are ignored.
type ProfilePatch struct {
	Name         string
	Firstname    string
	Lastname     string
	BusinessName string
	BusinessType string
	Email        string
	Phone        string
	State        string
	Country      string
}

// Update applies the non-empty fields that apply to the caller's role and
// reports whether anything changed.
func (s *ProfileService) Update(ctx context.Context, id utils.Identity, patch ProfilePatch) (bool, error) {
	updates := map[string]any{}
	set := func(column, value string) {
		if v := strings.TrimSpace(value); v != "" {
			updates[column] = v
		}
	}

	switch id.Role {
	case models.RoleBuyer, models.RoleAdmin:
		set("name", patch.Name)
	case models.RoleVendor:
		set("firstname", patch.Firstname)
		set("lastname", patch.Lastname)
		set("business_name", patch.BusinessName)
		set("business_type", patch.BusinessType)
	default:
		return false, newError(KindValidation, "Invalid user type")
	}
	set("phone", patch.Phone)
	set("state", patch.State)
	set("country", patch.Country)
	if email := utils.NormalizeEmail(patch.Email); email != "" {
		updates["email"] = email
	}
	if len(updates) == 0 {
		return false, nil
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(roleModel(id.Role)).Where("id = ?", id.SubjectID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return newError(KindNotFound, "User not found")
		}

		if email, ok := updates["email"].(string); ok {
			taken, err := emailTaken(tx, email, id.SubjectID)
			if err != nil {
				return err
			}
			pending, err := emailPending(tx, email)
			if err != nil {
				return err
			}
			if taken || pending {
				return newError(KindConflict, "Email already in use")
			}
		}

		if err := tx.Model(roleModel(id.Role)).Where("id = ?", id.SubjectID).Updates(updates).Error; err != nil {
			return err
		}
		if name, ok := updates["business_name"].(string); ok {
			return tx.Model(&models.Storefront{}).Where("vendor_id = ?", id.SubjectID).Update("business_name", name).Error
		}
		return nil
	})
	if err != nil {
		if isDuplicateKey(err) {
			return false, newError(KindConflict, "Email already in use")
		}
		return false, passThrough(err, "Error updating profile")
	}
	return true, nil
}

// UploadProfilePic stores a new avatar and records its URL.
func (s *ProfileService) UploadProfilePic(ctx context.Context, id utils.Identity, file *multipart.FileHeader) (string, error) {
	if file == nil || file.Filename == "" {
		return "", newError(KindValidation, "No image part in the request")
	}
	if !AllowedUpload(file.Filename) {
		return "", newError(KindValidation, "File type not allowed")
	}
	if _, err := s.Get(ctx, id); err != nil {
		return "", err
	}

	url, err := s.uploader.Upload(ctx, "profile_pics", file)
	if err != nil {
		return "", wrapError(KindUpstream, "Failed to save image", err)
	}

	if err := s.db.WithContext(ctx).Model(roleModel(id.Role)).
		Where("id = ?", id.SubjectID).Update("profile_pic", url).Error; err != nil {
		return "", err
	}
	return url, nil
}

type KYCResult struct {
	Status            models.KYCStatus `json:"kyc_status"`
	IDDocumentURL     string           `json:"id_document_url"`
	ProofOfAddressURL string           `json:"proof_of_address_url"`
}

// SubmitKYC uploads both documents; any upload failure aborts the submission.
func (s *ProfileService) SubmitKYC(ctx context.Context, vendorID uuid.UUID, idDocument, proofOfAddress *multipart.FileHeader) (*KYCResult, error) {
	db := s.db.WithContext(ctx)
	var vendor models.Vendor
	if err := db.Take(&vendor, "id = ?", vendorID).Error; err != nil {
		return nil, notFoundAs(err, "User not found")
	}
	if idDocument == nil {
		return nil, newError(KindValidation, "ID document is required")
	}
	if proofOfAddress == nil {
		return nil, newError(KindValidation, "Proof of address is needed")
	}
	if vendor.KYCStatus == models.KYCAccepted {
		return nil, newError(KindConflict, "KYC already accepted")
	}

	idURL, err := s.uploader.Upload(ctx, "kyc_documents", idDocument)
	if err != nil {
		return nil, wrapError(KindUpstream, "Upload failed", err)
	}
	proofURL, err := s.uploader.Upload(ctx, "kyc_documents", proofOfAddress)
	if err != nil {
		return nil, wrapError(KindUpstream, "Upload failed", err)
	}

	if err := db.Model(&models.Vendor{}).Where("id = ?", vendorID).Updates(map[string]any{
		"kyc_status":           models.KYCPending,
		"id_document_url":      idURL,
		"proof_of_address_url": proofURL,
	}).Error; err != nil {
		return nil, err
	}

	s.log.Info().Str("vendor_id", vendorID.String()).Msg("kyc submitted")
	return &KYCResult{Status: models.KYCPending, IDDocumentURL: idURL, ProofOfAddressURL: proofURL}, nil
}

func (s *ProfileService) KYCStatus(ctx context.Context, vendorID uuid.UUID) (models.KYCStatus, error) {
	var vendor models.Vendor
	if err := s.db.WithContext(ctx).Select("id", "kyc_status").Take(&vendor, "id = ?", vendorID).Error; err != nil {
		return "", notFoundAs(err, "Vendor not found")
	}
	return vendor.KYCStatus, nil
}

type ReferralStats struct {
	ReferralCode  string `json:"referral_code"`
	ReferralCount int64  `json:"referral_count"`
}

// Referrals counts accounts of any role that signed up with the caller's code.
func (s *ProfileService) Referrals(ctx context.Context, id utils.Identity) (*ReferralStats, error) {
	profile, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	stats := &ReferralStats{ReferralCode: profile.ReferralCode}
	db := s.db.WithContext(ctx)
	for _, model := range []any{&models.Buyer{}, &models.Vendor{}} {
		var n int64
		if err := db.Model(model).Where("referred_by = ?", profile.ReferralCode).Count(&n).Error; err != nil {
			return nil, err
		}
		stats.ReferralCount += n
	}
	return stats, nil
}
