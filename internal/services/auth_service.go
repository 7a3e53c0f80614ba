package services

import (
	"context"
	"crypto/subtle"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/example/bizengo/internal/models"
	"github.com/example/bizengo/internal/utils"
)

const minPasswordLength = 6

// AuthConfig carries token and code lifetimes.
type AuthConfig struct {
	JWTSecret    string
	TokenTTL     time.Duration
	SignupOTPTTL time.Duration
	ResetOTPTTL  time.Duration
}

// AuthService implements signup, verification, login and password reset.
type AuthService struct {
	db      *gorm.DB
	cfg     AuthConfig
	mailer  Mailer
	locator Locator
	log     zerolog.Logger
	now     func() time.Time
}

func NewAuthService(db *gorm.DB, cfg AuthConfig, mailer Mailer, locator Locator, log zerolog.Logger) *AuthService {
	if mailer == nil {
		mailer = LogMailer{Log: log}
	}
	return &AuthService{
		db:      db,
		cfg:     cfg,
		mailer:  mailer,
		locator: locator,
		log:     log.With().Str("component", "auth").Logger(),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Contact holds the signup fields shared by both roles.
type Contact struct {
	Email        string
	Phone        string
	State        string
	Country      string
	Password     string
	ReferralCode string
	ClientIP     string
}

type BuyerSignup struct {
	Name string
	Contact
}

type VendorSignup struct {
	Firstname    string
	Lastname     string
	BusinessName string
	BusinessType string
	Contact
}

// AuthResult is returned by every call that issues an access token.
type AuthResult struct {
	Token     string
	Role      models.Role
	SubjectID uuid.UUID
	Email     string
}

func (s *AuthService) SignupBuyer(ctx context.Context, in BuyerSignup) error {
	if blank(in.Name, in.Email, in.Phone, in.Password) {
		return newError(KindValidation, "All required fields must be filled")
	}
	staging, err := s.stage(ctx, in.Contact)
	if err != nil {
		return err
	}
	pending := models.PendingBuyer{Name: strings.TrimSpace(in.Name), Staging: *staging}
	if err := s.db.WithContext(ctx).Create(&pending).Error; err != nil {
		if isDuplicateKey(err) {
			return newError(KindConflict, "Account is pending verification")
		}
		return err
	}
	s.sendCode(ctx, pending.Email, pending.OTPCode, PurposeSignup)
	return nil
}

func (s *AuthService) SignupVendor(ctx context.Context, in VendorSignup) error {
	if blank(in.Firstname, in.Lastname, in.BusinessName, in.BusinessType, in.Email, in.Phone, in.Password) {
		return newError(KindValidation, "Missing required fields")
	}
	staging, err := s.stage(ctx, in.Contact)
	if err != nil {
		return err
	}
	pending := models.PendingVendor{
		Firstname:    strings.TrimSpace(in.Firstname),
		Lastname:     strings.TrimSpace(in.Lastname),
		BusinessName: strings.TrimSpace(in.BusinessName),
		BusinessType: strings.TrimSpace(in.BusinessType),
		Staging:      *staging,
	}
	if err := s.db.WithContext(ctx).Create(&pending).Error; err != nil {
		if isDuplicateKey(err) {
			return newError(KindConflict, "Account is pending verification")
		}
		return err
	}
	s.sendCode(ctx, pending.Email, pending.OTPCode, PurposeSignup)
	return nil
}

// stage validates the contact block and builds the staging columns with a fresh code.
func (s *AuthService) stage(ctx context.Context, in Contact) (*models.Staging, error) {
	email := utils.NormalizeEmail(in.Email)
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, newError(KindValidation, "Invalid email address")
	}
	if len(in.Password) < minPasswordLength {
		return nil, newError(KindValidation, "Password must be at least %d characters", minPasswordLength)
	}

	db := s.db.WithContext(ctx)
	s.purgeExpired(db)

	taken, err := emailTaken(db, email, uuid.Nil)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, newError(KindConflict, "Account with this email already exists")
	}
	pending, err := emailPending(db, email)
	if err != nil {
		return nil, err
	}
	if pending {
		return nil, newError(KindConflict, "Account is pending verification")
	}

	state, country := strings.TrimSpace(in.State), strings.TrimSpace(in.Country)
	if (state == "" || country == "") && s.locator != nil && in.ClientIP != "" {
		ipState, ipCountry, err := s.locator.Locate(ctx, in.ClientIP)
		if err != nil {
			s.log.Warn().Err(err).Str("ip", in.ClientIP).Msg("geolocation lookup failed")
		}
		if state == "" {
			state = ipState
		}
		if country == "" {
			country = ipCountry
		}
	}

	hash, err := utils.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	code, err := utils.GenerateOTP()
	if err != nil {
		return nil, err
	}

	return &models.Staging{
		Email:        email,
		Phone:        strings.TrimSpace(in.Phone),
		State:        state,
		Country:      country,
		PasswordHash: hash,
		ReferredBy:   strings.TrimSpace(in.ReferralCode),
		OTPCode:      code,
		OTPExpiresAt: s.now().Add(s.cfg.SignupOTPTTL),
	}, nil
}

// purgeExpired drops staged registrations whose code window has closed.
func (s *AuthService) purgeExpired(db *gorm.DB) {
	now := s.now()
	for _, model := range []any{&models.PendingBuyer{}, &models.PendingVendor{}} {
		if err := db.Where("otp_expires_at < ?", now).Delete(model).Error; err != nil {
			s.log.Warn().Err(err).Msg("failed to purge expired registrations")
		}
	}
}

// pendingRecord is whichever staged registration matched an email.
type pendingRecord struct {
	buyer  *models.PendingBuyer
	vendor *models.PendingVendor
}

func (p pendingRecord) role() models.Role {
	if p.buyer != nil {
		return models.RoleBuyer
	}
	return models.RoleVendor
}

func (p pendingRecord) staging() *models.Staging {
	if p.buyer != nil {
		return &p.buyer.Staging
	}
	return &p.vendor.Staging
}

func (p pendingRecord) model() any {
	if p.buyer != nil {
		return p.buyer
	}
	return p.vendor
}

func findPending(db *gorm.DB, email string) (*pendingRecord, error) {
	var buyer models.PendingBuyer
	if err := db.Where("email = ?", email).Take(&buyer).Error; err == nil {
		return &pendingRecord{buyer: &buyer}, nil
	} else if !isNotFound(err) {
		return nil, err
	}

	var vendor models.PendingVendor
	if err := db.Where("email = ?", email).Take(&vendor).Error; err == nil {
		return &pendingRecord{vendor: &vendor}, nil
	} else if !isNotFound(err) {
		return nil, err
	}
	return nil, nil
}

// VerifyEmail promotes a staged registration into an account and issues a token.
func (s *AuthService) VerifyEmail(ctx context.Context, email, code string) (*AuthResult, error) {
	email = utils.NormalizeEmail(email)
	code = strings.TrimSpace(code)
	if email == "" || code == "" {
		return nil, newError(KindValidation, "Email and OTP are required")
	}

	db := s.db.WithContext(ctx)
	pending, err := findPending(db, email)
	if err != nil {
		return nil, err
	}
	if pending == nil {
		return nil, newError(KindNotFound, "No pending registration found for this account")
	}

	staged := pending.staging()
	if s.now().After(staged.OTPExpiresAt) {
		if err := db.Delete(pending.model()).Error; err != nil {
			return nil, err
		}
		return nil, newError(KindExpired, "OTP expired. Please request a new one.")
	}
	if subtle.ConstantTimeCompare([]byte(staged.OTPCode), []byte(code)) != 1 {
		return nil, newError(KindInvalidCode, "Invalid OTP")
	}

	result := &AuthResult{Role: pending.role(), Email: email}
	err = db.Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(pending.model())
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return newError(KindNotFound, "No pending registration found for this account")
		}

		taken, err := emailTaken(tx, email, uuid.Nil)
		if err != nil {
			return err
		}
		if taken {
			return newError(KindConflict, "This email address is already in use by another account.")
		}

		account := models.Account{
			Email:        staged.Email,
			Phone:        staged.Phone,
			PasswordHash: staged.PasswordHash,
			ReferralCode: utils.GenerateReferralCode(),
			ReferredBy:   staged.ReferredBy,
			State:        staged.State,
			Country:      staged.Country,
			Status:       models.AccountActive,
		}

		if pending.buyer != nil {
			buyer := models.Buyer{Name: pending.buyer.Name, Account: account}
			if err := tx.Create(&buyer).Error; err != nil {
				return err
			}
			result.SubjectID = buyer.ID
			return nil
		}

		vendor := models.Vendor{
			Firstname:    pending.vendor.Firstname,
			Lastname:     pending.vendor.Lastname,
			BusinessName: pending.vendor.BusinessName,
			BusinessType: pending.vendor.BusinessType,
			KYCStatus:    models.KYCUnverified,
			Account:      account,
		}
		if err := tx.Create(&vendor).Error; err != nil {
			return err
		}
		storefront := models.Storefront{
			VendorID:       vendor.ID,
			BusinessName:   vendor.BusinessName,
			BusinessBanner: []string{},
			EstablishedAt:  s.now(),
			IsActive:       true,
		}
		if err := tx.Create(&storefront).Error; err != nil {
			return err
		}
		result.SubjectID = vendor.ID
		return nil
	})
	if err != nil {
		if isDuplicateKey(err) {
			return nil, newError(KindConflict, "This email address is already in use by another account.")
		}
		return nil, passThrough(err, "An internal error occurred.")
	}

	token, err := utils.GenerateToken(s.cfg.JWTSecret, utils.Identity{SubjectID: result.SubjectID, Role: result.Role}, s.cfg.TokenTTL)
	if err != nil {
		return nil, err
	}
	result.Token = token
	return result, nil
}

// ResendVerification refreshes the code and expiry of an existing staged registration.
func (s *AuthService) ResendVerification(ctx context.Context, email string) error {
	email = utils.NormalizeEmail(email)
	if email == "" {
		return newError(KindValidation, "Email is required")
	}

	db := s.db.WithContext(ctx)
	pending, err := findPending(db, email)
	if err != nil {
		return err
	}
	if pending == nil {
		return newError(KindNotFound, "No pending account found for this email")
	}

	code, err := utils.GenerateOTP()
	if err != nil {
		return err
	}
	if err := db.Model(pending.model()).Updates(map[string]any{
		"otp_code":       code,
		"otp_expires_at": s.now().Add(s.cfg.SignupOTPTTL),
	}).Error; err != nil {
		return err
	}

	s.sendCode(ctx, email, code, PurposeSignup)
	return nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = utils.NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, newError(KindValidation, "Email and password are required")
	}

	ref, err := findAccountByEmail(s.db.WithContext(ctx), email)
	if err != nil {
		return nil, err
	}
	if ref == nil || !utils.CheckPassword(ref.Account.PasswordHash, password) {
		return nil, newError(KindUnauthorized, "Invalid credentials")
	}
	if ref.Account.Status == models.AccountSuspended {
		return nil, newError(KindForbidden, "Account is suspended")
	}

	token, err := utils.GenerateToken(s.cfg.JWTSecret, utils.Identity{SubjectID: ref.ID, Role: ref.Role}, s.cfg.TokenTTL)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Token: token, Role: ref.Role, SubjectID: ref.ID, Email: ref.Account.Email}, nil
}

// RequestPasswordReset issues a reset code when the account exists and is silent otherwise.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	email = utils.NormalizeEmail(email)
	if email == "" {
		return newError(KindValidation, "Email is required")
	}

	db := s.db.WithContext(ctx)
	ref, err := findAccountByEmail(db, email)
	if err != nil {
		return err
	}
	if ref == nil {
		return nil
	}

	code, err := utils.GenerateOTP()
	if err != nil {
		return err
	}
	token := models.PasswordResetToken{
		Email:     email,
		OTPCode:   code,
		ExpiresAt: s.now().Add(s.cfg.ResetOTPTTL),
	}
	if err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "email"}},
		DoUpdates: clause.AssignmentColumns([]string{"otp_code", "expires_at", "updated_at"}),
	}).Create(&token).Error; err != nil {
		return err
	}

	s.sendCode(ctx, email, code, PurposePasswordReset)
	return nil
}

func (s *AuthService) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	email = utils.NormalizeEmail(email)
	code = strings.TrimSpace(code)
	if email == "" || code == "" || newPassword == "" {
		return newError(KindValidation, "Email, OTP, and new password are required")
	}
	if len(newPassword) < minPasswordLength {
		return newError(KindValidation, "Password must be at least %d characters", minPasswordLength)
	}

	db := s.db.WithContext(ctx)
	var token models.PasswordResetToken
	if err := db.Where("email = ?", email).Take(&token).Error; err != nil && !isNotFound(err) {
		return err
	}
	if token.ID == uuid.Nil || subtle.ConstantTimeCompare([]byte(token.OTPCode), []byte(code)) != 1 {
		return newError(KindInvalidCode, "Invalid OTP")
	}
	if s.now().After(token.ExpiresAt) {
		if err := db.Delete(&token).Error; err != nil {
			return err
		}
		return newError(KindExpired, "OTP expired")
	}

	ref, err := findAccountByEmail(db, email)
	if err != nil {
		return err
	}
	if ref == nil {
		return newError(KindNotFound, "Account not found")
	}

	hash, err := utils.HashPassword(newPassword)
	if err != nil {
		return err
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(roleModel(ref.Role)).Where("id = ?", ref.ID).Update("password_hash", hash).Error; err != nil {
			return err
		}
		return tx.Delete(&token).Error
	})
	return passThrough(err, "Failed to reset password")
}

func (s *AuthService) sendCode(ctx context.Context, email, code string, purpose OTPPurpose) {
	if err := s.mailer.SendOTP(ctx, email, code, purpose); err != nil {
		s.log.Error().Err(err).Str("email", email).Str("purpose", string(purpose)).Msg("failed to send otp email")
	}
}

func blank(values ...string) bool {
	for _, v := range values {
		if strings.TrimSpace(v) == "" {
			return true
		}
	}
	return false
}
