package models

import "time"

type AccountStatus string

const (
	AccountActive    AccountStatus = "active"
	AccountSuspended AccountStatus = "suspended"
)

type KYCStatus string

const (
	KYCUnverified KYCStatus = "unverified"
	KYCPending    KYCStatus = "pending"
	KYCAccepted   KYCStatus = "accepted"
	KYCRejected   KYCStatus = "rejected"
)

// Account holds the columns shared by buyers, vendors and admins.
type Account struct {
	Email        string        `gorm:"uniqueIndex;not null" json:"email"`
	Phone        string        `json:"phone"`
	PasswordHash string        `gorm:"not null" json:"-"`
	ReferralCode string        `gorm:"uniqueIndex;not null" json:"referral_code"`
	ReferredBy   string        `gorm:"index" json:"referred_by"`
	State        string        `json:"state"`
	Country      string        `json:"country"`
	ProfilePic   string        `json:"profile_pic"`
	Status       AccountStatus `gorm:"not null" json:"status"`
}

// Buyer is a promoted customer account.
type Buyer struct {
	BaseModel
	Name string `json:"name"`
	Account
}

// Vendor is a promoted seller account.
type Vendor struct {
	BaseModel
	Firstname         string      `json:"firstname"`
	Lastname          string      `json:"lastname"`
	BusinessName      string      `json:"business_name"`
	BusinessType      string      `json:"business_type"`
	KYCStatus         KYCStatus   `gorm:"column:kyc_status;not null" json:"kyc_status"`
	IDDocumentURL     string      `gorm:"column:id_document_url" json:"id_document_url,omitempty"`
	ProofOfAddressURL string      `json:"proof_of_address_url,omitempty"`
	Storefront        *Storefront `json:"storefront,omitempty"`
	Account
}

// Admin is created directly, never through signup.
type Admin struct {
	BaseModel
	Name string `json:"name"`
	Account
}

// Staging holds not-yet-verified signup data and its one-time code.
type Staging struct {
	Email        string    `gorm:"uniqueIndex;not null" json:"email"`
	Phone        string    `json:"phone"`
	State        string    `json:"state"`
	Country      string    `json:"country"`
	PasswordHash string    `gorm:"not null" json:"-"`
	ReferredBy   string    `json:"referred_by"`
	OTPCode      string    `gorm:"column:otp_code;not null" json:"-"`
	OTPExpiresAt time.Time `gorm:"column:otp_expires_at;index" json:"otp_expires_at"`
}

type PendingBuyer struct {
	BaseModel
	Name string `json:"name"`
	Staging
}

type PendingVendor struct {
	BaseModel
	Firstname    string `json:"firstname"`
	Lastname     string `json:"lastname"`
	BusinessName string `json:"business_name"`
	BusinessType string `json:"business_type"`
	Staging
}

// PasswordResetToken keeps the single outstanding reset code per email.
type PasswordResetToken struct {
	BaseModel
	Email     string    `gorm:"uniqueIndex;not null" json:"email"`
	OTPCode   string    `gorm:"column:otp_code;not null" json:"-"`
	ExpiresAt time.Time `json:"expires_at"`
}
