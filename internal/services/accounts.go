package services

import (
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/bizengo/internal/models"
)

// accountRef locates a promoted account in one of the role tables.
type accountRef struct {
	Role    models.Role
	ID      uuid.UUID
	Account models.Account
}

func roleModel(role models.Role) any {
	switch role {
	case models.RoleBuyer:
		return &models.Buyer{}
	case models.RoleVendor:
		return &models.Vendor{}
	case models.RoleAdmin:
		return &models.Admin{}
	}
	return nil
}

// findAccountByEmail searches admins, then buyers, then vendors.
func findAccountByEmail(tx *gorm.DB, email string) (*accountRef, error) {
	var admin models.Admin
	if err := tx.Where("email = ?", email).Take(&admin).Error; err == nil {
		return &accountRef{Role: models.RoleAdmin, ID: admin.ID, Account: admin.Account}, nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	var buyer models.Buyer
	if err := tx.Where("email = ?", email).Take(&buyer).Error; err == nil {
		return &accountRef{Role: models.RoleBuyer, ID: buyer.ID, Account: buyer.Account}, nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	var vendor models.Vendor
	if err := tx.Where("email = ?", email).Take(&vendor).Error; err == nil {
		return &accountRef{Role: models.RoleVendor, ID: vendor.ID, Account: vendor.Account}, nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	return nil, nil
}

// emailTaken reports whether email belongs to any account other than exclude.
func emailTaken(tx *gorm.DB, email string, exclude uuid.UUID) (bool, error) {
	for _, model := range []any{&models.Buyer{}, &models.Vendor{}, &models.Admin{}} {
		var count int64
		if err := tx.Model(model).Where("email = ? AND id <> ?", email, exclude).Count(&count).Error; err != nil {
			return false, err
		}
		if count > 0 {
			return true, nil
		}
	}
	return false, nil
}

// emailPending reports whether a staged registration exists for email.
func emailPending(tx *gorm.DB, email string) (bool, error) {
	for _, model := range []any{&models.PendingBuyer{}, &models.PendingVendor{}} {
		var count int64
		if err := tx.Model(model).Where("email = ?", email).Count(&count).Error; err != nil {
			return false, err
		}
		if count > 0 {
			return true, nil
		}
	}
	return false, nil
}

func isDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "UNIQUE constraint failed")
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
