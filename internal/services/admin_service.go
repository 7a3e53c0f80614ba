package services

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/example/bizengo/internal/models"
	"github.com/example/bizengo/internal/utils"
)

// AdminService backs moderation and reporting endpoints.
type AdminService struct {
	db  *gorm.DB
	log zerolog.Logger
	now func() time.Time
}

func NewAdminService(db *gorm.DB, log zerolog.Logger) *AdminService {
	return &AdminService{
		db:  db,
		log: log.With().Str("component", "admin").Logger(),
		now: func() time.Time { return time.Now().UTC() },
	}
}

var purchasedStatuses = []models.OrderStatus{models.OrderPaid, models.OrderShipped, models.OrderDelivered}

type Stats struct {
	TotalBuyers          int64            `json:"total_buyers"`
	TotalVendors         int64            `json:"total_vendors"`
	TotalAdmins          int64            `json:"total_admins"`
	TotalProducts        int64            `json:"total_products"`
	TotalOrders          int64            `json:"total_orders"`
	PendingRegistrations int64            `json:"pending_registrations"`
	PendingKYC           int64            `json:"pending_kyc"`
	TotalRevenue         decimal.Decimal  `json:"total_revenue"`
	TodayRevenue         decimal.Decimal  `json:"today_revenue"`
	OrdersByStatus       map[string]int64 `json:"orders_by_status"`
}

func (s *AdminService) Stats(ctx context.Context) (*Stats, error) {
	db := s.db.WithContext(ctx)
	stats := &Stats{OrdersByStatus: map[string]int64{}}

	counts := []struct {
		model any
		where []any
		dest  *int64
	}{
		{&models.Buyer{}, nil, &stats.TotalBuyers},
		{&models.Vendor{}, nil, &stats.TotalVendors},
		{&models.Admin{}, nil, &stats.TotalAdmins},
		{&models.Product{}, []any{"status <> ?", models.ProductDeleted}, &stats.TotalProducts},
		{&models.Order{}, nil, &stats.TotalOrders},
		{&models.Vendor{}, []any{"kyc_status = ?", models.KYCPending}, &stats.PendingKYC},
	}
	for _, c := range counts {
		q := db.Model(c.model)
		if c.where != nil {
			q = q.Where(c.where[0], c.where[1:]...)
		}
		if err := q.Count(c.dest).Error; err != nil {
			return nil, err
		}
	}

	for _, model := range []any{&models.PendingBuyer{}, &models.PendingVendor{}} {
		var n int64
		if err := db.Model(model).Count(&n).Error; err != nil {
			return nil, err
		}
		stats.PendingRegistrations += n
	}

	var statusCounts []struct {
		Status string
		Count  int64
	}
	if err := db.Model(&models.Order{}).
		Select("status, count(*) as count").
		Group("status").
		Scan(&statusCounts).Error; err != nil {
		return nil, err
	}
	for _, sc := range statusCounts {
		stats.OrdersByStatus[sc.Status] = sc.Count
	}

	var err error
	if stats.TotalRevenue, err = s.revenueSince(db, time.Time{}); err != nil {
		return nil, err
	}
	now := s.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if stats.TodayRevenue, err = s.revenueSince(db, today); err != nil {
		return nil, err
	}
	return stats, nil
}

func (s *AdminService) revenueSince(db *gorm.DB, since time.Time) (decimal.Decimal, error) {
	var row struct {
		Total decimal.NullDecimal
	}
	q := db.Model(&models.Order{}).Where("status IN ?", purchasedStatuses)
	if !since.IsZero() {
		q = q.Where("created_at >= ?", since)
	}
	if err := q.Select("SUM(total_amount) AS total").Scan(&row).Error; err != nil {
		return decimal.Zero, err
	}
	return row.Total.Decimal, nil
}

type DailyRevenue struct {
	Date    string          `json:"date"`
	Revenue decimal.Decimal `json:"revenue"`
	Orders  int             `json:"orders"`
}

// Revenue rolls purchased orders up per UTC day for the last n days, oldest first.
func (s *AdminService) Revenue(ctx context.Context, days int) ([]DailyRevenue, error) {
	if days <= 0 {
		days = 30
	}
	if days > 366 {
		days = 366
	}
	now := s.now()
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, -(days - 1))

	var orders []models.Order
	if err := s.db.WithContext(ctx).
		Select("id", "total_amount", "created_at").
		Where("status IN ? AND created_at >= ?", purchasedStatuses, start).
		Find(&orders).Error; err != nil {
		return nil, err
	}

	series := make([]DailyRevenue, days)
	index := make(map[string]int, days)
	for i := range series {
		day := start.AddDate(0, 0, i).Format("2006-01-02")
		series[i] = DailyRevenue{Date: day, Revenue: decimal.Zero}
		index[day] = i
	}
	for _, o := range orders {
		if i, ok := index[o.CreatedAt.UTC().Format("2006-01-02")]; ok {
			series[i].Revenue = series[i].Revenue.Add(o.TotalAmount)
			series[i].Orders++
		}
	}
	return series, nil
}

type AdminUser struct {
	ID         uuid.UUID            `json:"id"`
	Role       models.Role          `json:"role"`
	Name       string               `json:"name"`
	Email      string               `json:"email"`
	Phone      string               `json:"phone"`
	Status     models.AccountStatus `json:"status"`
	KYCStatus  models.KYCStatus     `json:"kyc_status,omitempty"`
	CreatedAt  time.Time            `json:"created_at"`
	OrderCount int64                `json:"order_count"`
	TotalSpent decimal.Decimal      `json:"total_spent"`
}

// ListUsers merges the account tables newest first; role narrows to one table.
func (s *AdminService) ListUsers(ctx context.Context, role, search string, pg utils.Pagination) ([]AdminUser, int64, error) {
	db := s.db.WithContext(ctx)
	roles := []models.Role{models.RoleBuyer, models.RoleVendor, models.RoleAdmin}
	if role != "" {
		r := models.Role(role)
		if !r.Valid() {
			return nil, 0, newError(KindValidation, "Invalid role")
		}
		roles = []models.Role{r}
	}

	window := pg.Offset + pg.Limit
	var users []AdminUser
	var total int64
	for _, r := range roles {
		query := db.Model(roleModel(r))
		if q := strings.ToLower(strings.TrimSpace(search)); q != "" {
			like := "%" + q + "%"
			if r == models.RoleVendor {
				query = query.Where("LOWER(email) LIKE ? OR LOWER(business_name) LIKE ? OR LOWER(firstname) LIKE ? OR LOWER(lastname) LIKE ?", like, like, like, like)
			} else {
				query = query.Where("LOWER(email) LIKE ? OR LOWER(name) LIKE ?", like, like)
			}
		}
		var n int64
		if err := query.Count(&n).Error; err != nil {
			return nil, 0, err
		}
		total += n

		rows, err := s.loadUsers(query.Order("created_at desc").Limit(window), r)
		if err != nil {
			return nil, 0, err
		}
		users = append(users, rows...)
	}

	sort.SliceStable(users, func(i, j int) bool { return users[i].CreatedAt.After(users[j].CreatedAt) })
	if pg.Offset >= len(users) {
		return []AdminUser{}, total, nil
	}
	end := pg.Offset + pg.Limit
	if end > len(users) {
		end = len(users)
	}
	page := users[pg.Offset:end]

	if err := s.attachOrderStats(db, page); err != nil {
		return nil, 0, err
	}
	return page, total, nil
}

func (s *AdminService) loadUsers(query *gorm.DB, role models.Role) ([]AdminUser, error) {
	var out []AdminUser
	switch role {
	case models.RoleBuyer:
		var rows []models.Buyer
		if err := query.Find(&rows).Error; err != nil {
			return nil, err
		}
		for _, b := range rows {
			out = append(out, AdminUser{ID: b.ID, Role: role, Name: b.Name, Email: b.Email, Phone: b.Phone, Status: b.Status, CreatedAt: b.CreatedAt})
		}
	case models.RoleVendor:
		var rows []models.Vendor
		if err := query.Find(&rows).Error; err != nil {
			return nil, err
		}
		for _, v := range rows {
			out = append(out, AdminUser{ID: v.ID, Role: role, Name: strings.TrimSpace(v.Firstname + " " + v.Lastname), Email: v.Email, Phone: v.Phone, Status: v.Status, KYCStatus: v.KYCStatus, CreatedAt: v.CreatedAt})
		}
	case models.RoleAdmin:
		var rows []models.Admin
		if err := query.Find(&rows).Error; err != nil {
			return nil, err
		}
		for _, a := range rows {
			out = append(out, AdminUser{ID: a.ID, Role: role, Name: a.Name, Email: a.Email, Phone: a.Phone, Status: a.Status, CreatedAt: a.CreatedAt})
		}
	}
	return out, nil
}

func (s *AdminService) attachOrderStats(db *gorm.DB, users []AdminUser) error {
	var buyerIDs []uuid.UUID
	for i := range users {
		users[i].TotalSpent = decimal.Zero
		if users[i].Role == models.RoleBuyer {
			buyerIDs = append(buyerIDs, users[i].ID)
		}
	}
	if len(buyerIDs) == 0 {
		return nil
	}

	var orders []models.Order
	if err := db.Select("buyer_id", "total_amount", "status").
		Where("buyer_id IN ?", buyerIDs).
		Find(&orders).Error; err != nil {
		return err
	}
	type agg struct {
		count int64
		spent decimal.Decimal
	}
	byBuyer := map[uuid.UUID]*agg{}
	for _, o := range orders {
		a, ok := byBuyer[o.BuyerID]
		if !ok {
			a = &agg{spent: decimal.Zero}
			byBuyer[o.BuyerID] = a
		}
		a.count++
		if o.Status.Purchased() {
			a.spent = a.spent.Add(o.TotalAmount)
		}
	}
	for i := range users {
		if a, ok := byBuyer[users[i].ID]; ok {
			users[i].OrderCount = a.count
			users[i].TotalSpent = a.spent
		}
	}
	return nil
}

func parseRole(role string) (models.Role, error) {
	r := models.Role(role)
	if !r.Valid() {
		return "", newError(KindValidation, "Invalid role")
	}
	return r, nil
}

// SetUserStatus suspends or reactivates an account.
func (s *AdminService) SetUserStatus(ctx context.Context, role string, id uuid.UUID, status string) error {
	r, err := parseRole(role)
	if err != nil {
		return err
	}
	st := models.AccountStatus(status)
	if st != models.AccountActive && st != models.AccountSuspended {
		return newError(KindValidation, "Invalid status")
	}
	res := s.db.WithContext(ctx).Model(roleModel(r)).Where("id = ?", id).Update("status", st)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return newError(KindNotFound, "User not found")
	}
	return nil
}

// DeleteUser removes an account without order history, and suspends one that has it.
// It reports whether the account was only suspended.
func (s *AdminService) DeleteUser(ctx context.Context, actor uuid.UUID, role string, id uuid.UUID) (bool, error) {
	r, err := parseRole(role)
	if err != nil {
		return false, err
	}
	if r == models.RoleAdmin && id == actor {
		return false, newError(KindValidation, "You cannot delete your own account")
	}

	suspended := false
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var exists int64
		if err := tx.Model(roleModel(r)).Where("id = ?", id).Count(&exists).Error; err != nil {
			return err
		}
		if exists == 0 {
			return newError(KindNotFound, "User not found")
		}

		switch r {
		case models.RoleBuyer:
			var orders int64
			if err := tx.Model(&models.Order{}).Where("buyer_id = ?", id).Count(&orders).Error; err != nil {
				return err
			}
			if orders > 0 {
				suspended = true
				return tx.Model(&models.Buyer{}).Where("id = ?", id).Update("status", models.AccountSuspended).Error
			}
			cartIDs := tx.Model(&models.Cart{}).Select("id").Where("buyer_id = ?", id)
			if err := tx.Where("cart_id IN (?)", cartIDs).Delete(&models.CartItem{}).Error; err != nil {
				return err
			}
			if err := tx.Where("buyer_id = ?", id).Delete(&models.Cart{}).Error; err != nil {
				return err
			}
			if err := tx.Where("buyer_id = ?", id).Delete(&models.Favourite{}).Error; err != nil {
				return err
			}
			return tx.Delete(&models.Buyer{}, "id = ?", id).Error

		case models.RoleVendor:
			var lines int64
			if err := tx.Model(&models.OrderItem{}).Where("vendor_id = ?", id).Count(&lines).Error; err != nil {
				return err
			}
			if lines > 0 {
				suspended = true
				if err := tx.Model(&models.Product{}).Where("vendor_id = ?", id).Update("visibility", false).Error; err != nil {
					return err
				}
				return tx.Model(&models.Vendor{}).Where("id = ?", id).Update("status", models.AccountSuspended).Error
			}
			var productIDs []uuid.UUID
			if err := tx.Model(&models.Product{}).Where("vendor_id = ?", id).Pluck("id", &productIDs).Error; err != nil {
				return err
			}
			for _, pid := range productIDs {
				if _, err := purgeProduct(tx, pid); err != nil {
					return err
				}
			}
			if err := tx.Where("vendor_id = ?", id).Delete(&models.Storefront{}).Error; err != nil {
				return err
			}
			return tx.Delete(&models.Vendor{}, "id = ?", id).Error

		default:
			return tx.Delete(&models.Admin{}, "id = ?", id).Error
		}
	})
	if err != nil {
		return false, passThrough(err, "Error deleting user")
	}
	s.log.Info().Str("role", role).Str("user_id", id.String()).Bool("suspended", suspended).Msg("user removed")
	return suspended, nil
}

// DecideKYC accepts or rejects a vendor's pending KYC submission.
func (s *AdminService) DecideKYC(ctx context.Context, vendorID uuid.UUID, decision string) error {
	st := models.KYCStatus(decision)
	if st != models.KYCAccepted && st != models.KYCRejected {
		return newError(KindValidation, "Invalid KYC status")
	}
	db := s.db.WithContext(ctx)
	var vendor models.Vendor
	if err := db.Select("id", "kyc_status").Take(&vendor, "id = ?", vendorID).Error; err != nil {
		return notFoundAs(err, "Vendor not found")
	}
	if vendor.KYCStatus != models.KYCPending {
		return newError(KindValidation, "No pending KYC submission for this vendor")
	}
	return db.Model(&models.Vendor{}).Where("id = ?", vendorID).Update("kyc_status", st).Error
}

func (s *AdminService) ListOrders(ctx context.Context, status string, pg utils.Pagination) ([]models.Order, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Order{})
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var orders []models.Order
	if err := query.Preload("Items").Preload("Buyer").
		Order("created_at desc").
		Limit(pg.Limit).Offset(pg.Offset).
		Find(&orders).Error; err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

func (s *AdminService) RecentOrders(ctx context.Context) ([]models.Order, error) {
	var orders []models.Order
	if err := s.db.WithContext(ctx).Preload("Items").Preload("Buyer").
		Order("created_at desc").
		Limit(5).
		Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

type AdminInput struct {
	Name     string
	Email    string
	Password string
}

func (s *AdminService) CreateAdmin(ctx context.Context, in AdminInput) (*models.Admin, error) {
	email := utils.NormalizeEmail(in.Email)
	if strings.TrimSpace(in.Name) == "" || email == "" || in.Password == "" {
		return nil, newError(KindValidation, "Name, email and password are required")
	}
	if len(in.Password) < minPasswordLength {
		return nil, newError(KindValidation, "Password must be at least %d characters", minPasswordLength)
	}

	hash, err := utils.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	admin := models.Admin{
		Name: strings.TrimSpace(in.Name),
		Account: models.Account{
			Email:        email,
			PasswordHash: hash,
			ReferralCode: utils.GenerateReferralCode(),
			Status:       models.AccountActive,
		},
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		taken, err := emailTaken(tx, email, uuid.Nil)
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
		return tx.Create(&admin).Error
	})
	if err != nil {
		if isDuplicateKey(err) {
			return nil, newError(KindConflict, "Email already in use")
		}
		return nil, passThrough(err, "Error creating admin")
	}
	return &admin, nil
}
