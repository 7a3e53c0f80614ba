package services

import (
	"context"
	"fmt"
	"mime/multipart"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/example/bizengo/internal/database/dbtest"
	"github.com/example/bizengo/internal/events"
	"github.com/example/bizengo/internal/models"
	"github.com/example/bizengo/internal/utils"
)

const testSecret = "test-secret"

type sentCode struct {
	To      string
	Code    string
	Purpose OTPPurpose
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentCode
	err  error
}

func (m *fakeMailer) SendOTP(_ context.Context, to, code string, purpose OTPPurpose) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentCode{To: to, Code: code, Purpose: purpose})
	return m.err
}

func (m *fakeMailer) last(t *testing.T) sentCode {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	require.NotEmpty(t, m.sent, "no code was sent")
	return m.sent[len(m.sent)-1]
}

type fakeLocator struct {
	state, country string
	calls          int
}

func (l *fakeLocator) Locate(_ context.Context, _ string) (string, string, error) {
	l.calls++
	return l.state, l.country, nil
}

type fakeUploader struct {
	err      error
	uploaded []string
}

func (u *fakeUploader) Upload(_ context.Context, folder string, file *multipart.FileHeader) (string, error) {
	if u.err != nil {
		return "", u.err
	}
	url := fmt.Sprintf("https://files.test/%s/%s", folder, file.Filename)
	u.uploaded = append(u.uploaded, url)
	return url, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Envelope
}

func (p *recordingPublisher) Publish(_ context.Context, env events.Envelope) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, env)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.EventType)
	}
	return out
}

type memoryMarks struct {
	mu   sync.Mutex
	keys map[string]bool
}

func newMemoryMarks() *memoryMarks { return &memoryMarks{keys: map[string]bool{}} }

func (m *memoryMarks) Exists(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.keys[key], nil
}

func (m *memoryMarks) Mark(_ context.Context, key string, _ time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.keys[key] {
		return false, nil
	}
	m.keys[key] = true
	return true, nil
}

func newTestAuth(db *gorm.DB, mailer Mailer, locator Locator) *AuthService {
	return NewAuthService(db, AuthConfig{
		JWTSecret:    testSecret,
		TokenTTL:     time.Hour,
		SignupOTPTTL: 10 * time.Minute,
		ResetOTPTTL:  6 * time.Hour,
	}, mailer, locator, zerolog.Nop())
}

func seedBuyer(t *testing.T, db *gorm.DB, email string) models.Buyer {
	t.Helper()
	hash, err := utils.HashPassword("secret1")
	require.NoError(t, err)
	buyer := models.Buyer{
		Name: "Test Buyer",
		Account: models.Account{
			Email:        email,
			Phone:        "08000000000",
			PasswordHash: hash,
			ReferralCode: utils.GenerateReferralCode(),
			State:        "Lagos",
			Country:      "Nigeria",
			Status:       models.AccountActive,
		},
	}
	require.NoError(t, db.Create(&buyer).Error)
	return buyer
}

func seedVendor(t *testing.T, db *gorm.DB, email string) models.Vendor {
	t.Helper()
	hash, err := utils.HashPassword("secret1")
	require.NoError(t, err)
	vendor := models.Vendor{
		Firstname:    "Ada",
		Lastname:     "Obi",
		BusinessName: "Ada Stores " + email,
		BusinessType: "retail",
		KYCStatus:    models.KYCUnverified,
		Account: models.Account{
			Email:        email,
			Phone:        "08000000001",
			PasswordHash: hash,
			ReferralCode: utils.GenerateReferralCode(),
			State:        "Lagos",
			Country:      "Nigeria",
			Status:       models.AccountActive,
		},
	}
	require.NoError(t, db.Create(&vendor).Error)
	require.NoError(t, db.Create(&models.Storefront{
		VendorID:       vendor.ID,
		BusinessName:   vendor.BusinessName,
		BusinessBanner: []string{},
		EstablishedAt:  time.Now().UTC(),
		IsActive:       true,
	}).Error)
	return vendor
}

// seedProduct creates an active, visible product; stock < 0 means untracked.
func seedProduct(t *testing.T, db *gorm.DB, vendorID uuid.UUID, name, price string, stock int) models.Product {
	t.Helper()
	product := models.Product{
		Name:       name,
		Price:      decimal.RequireFromString(price),
		Status:     models.ProductActive,
		Visibility: true,
		VendorID:   vendorID,
	}
	if stock >= 0 {
		product.Stock = &stock
	}
	require.NoError(t, db.Omit("Images", "Category", "Vendor").Create(&product).Error)
	require.NoError(t, db.Create(&models.ProductImage{ProductID: product.ID, VendorID: vendorID, URL: "https://img.test/" + name}).Error)
	return product
}

func stockOf(t *testing.T, db *gorm.DB, productID uuid.UUID) *int {
	t.Helper()
	var p models.Product
	require.NoError(t, db.Take(&p, "id = ?", productID).Error)
	return p.Stock
}

func newTestDB(t *testing.T) *gorm.DB {
	return dbtest.New(t)
}

func requireKind(t *testing.T, err error, kind Kind) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, kind, KindOf(err), "unexpected error: %v", err)
}
