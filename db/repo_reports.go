// db/repo_reports.go
package db

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"Gin_postgres_redis_lending/models"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // dialect registration
)

const dialectPostgres = "postgres"

var ErrBuildingQueryFailed = errors.New("building analytics query failed")

type DashboardStats struct {
	TotalBorrows       int64 `json:"total_borrows"`
	PendingBorrows     int64 `json:"pending_borrows"`
	ActiveBorrows      int64 `json:"active_borrows"`
	LateBorrows        int64 `json:"late_borrows"`
	ReturnedBorrows    int64 `json:"returned_borrows"`
	NotReturnedBorrows int64 `json:"not_returned_borrows"`
	RejectedBorrows    int64 `json:"rejected_borrows"`
	OverdueBorrows     int64 `json:"overdue_borrows"`
	TotalItems         int64 `json:"total_items" gorm:"-"`
	TotalInstances     int64 `json:"total_instances" gorm:"-"`
	AvailableInstances int64 `json:"available_instances" gorm:"-"`
	TotalUsers         int64 `json:"total_users" gorm:"-"`
	PendingUsers       int64 `json:"pending_users" gorm:"-"`
}

func (r *Repo) DashboardStats(ctx context.Context) (DashboardStats, error) {
	var s DashboardStats
	err := r.DB.WithContext(ctx).
		Model(&models.Borrow{}).
		Select(`
			COUNT(*) AS total_borrows,
			COUNT(*) FILTER (WHERE status = ?) AS pending_borrows,
			COUNT(*) FILTER (WHERE status = ?) AS active_borrows,
			COUNT(*) FILTER (WHERE status = ?) AS late_borrows,
			COUNT(*) FILTER (WHERE status = ?) AS returned_borrows,
			COUNT(*) FILTER (WHERE status = ?) AS not_returned_borrows,
			COUNT(*) FILTER (WHERE status = ?) AS rejected_borrows,
			COUNT(*) FILTER (WHERE status IN ? AND due_date < ?) AS overdue_borrows`,
			models.BorrowPending, models.BorrowActive, models.BorrowLate,
			models.BorrowReturned, models.BorrowNotReturned, models.BorrowRejected,
			[]models.BorrowStatus{models.BorrowActive, models.BorrowLate}, r.Clock.Now()).
		Scan(&s).Error
	if err != nil {
		return s, err
	}

	var inv struct {
		Items     int64
		Instances int64
		Available int64
	}
	if err := r.DB.WithContext(ctx).
		Model(&models.Item{}).
		Select("COUNT(*) AS items, COALESCE(SUM(quantity), 0) AS instances, COALESCE(SUM(available), 0) AS available").
		Scan(&inv).Error; err != nil {
		return s, err
	}
	s.TotalItems, s.TotalInstances, s.AvailableInstances = inv.Items, inv.Instances, inv.Available

	if err := r.DB.WithContext(ctx).Model(&models.User{}).Count(&s.TotalUsers).Error; err != nil {
		return s, err
	}
	if err := r.DB.WithContext(ctx).Model(&models.User{}).
		Where("is_approved = FALSE AND is_active = TRUE").
		Count(&s.PendingUsers).Error; err != nil {
		return s, err
	}
	return s, nil
}

type TopItem struct {
	ItemID      string `json:"item_id"`
	ItemName    string `json:"item_name"`
	BorrowCount int64  `json:"borrow_count"`
}

type TopBorrower struct {
	UserID      string      `json:"user_id"`
	Username    string      `json:"username"`
	Role        models.Role `json:"role"`
	BorrowCount int64       `json:"borrow_count"`
}

func buildTopItemsQuery(since time.Time, limit uint) (string, error) {
	q := goqu.Dialect(dialectPostgres).
		From(goqu.T(models.BorrowTable).As("b")).
		Join(goqu.T(models.ItemTable).As("i"), goqu.On(goqu.I("i.id").Eq(goqu.I("b.item_id")))).
		Select(
			goqu.I("i.id").As("item_id"),
			goqu.I("i.name").As("item_name"),
			goqu.COUNT(goqu.I("b.id")).As("borrow_count"),
		).
		Where(goqu.I("b.borrow_date").Gte(since)).
		GroupBy(goqu.I("i.id"), goqu.I("i.name")).
		Order(goqu.C("borrow_count").Desc(), goqu.I("i.name").Asc()).
		Limit(limit)
	sql, _, err := q.ToSQL()
	if err != nil {
		return "", errors.Join(ErrBuildingQueryFailed, err)
	}
	return sql, nil
}

func buildTopBorrowersQuery(since time.Time, limit uint) (string, error) {
	q := goqu.Dialect(dialectPostgres).
		From(goqu.T(models.BorrowTable).As("b")).
		Join(goqu.T(models.UserTable).As("u"), goqu.On(goqu.I("u.id").Eq(goqu.I("b.borrower_id")))).
		Select(
			goqu.I("u.id").As("user_id"),
			goqu.I("u.username").As("username"),
			goqu.I("u.role").As("role"),
			goqu.COUNT(goqu.I("b.id")).As("borrow_count"),
		).
		GroupBy(goqu.I("u.id"), goqu.I("u.username"), goqu.I("u.role")).
		Order(goqu.C("borrow_count").Desc(), goqu.I("u.username").Asc()).
		Limit(limit)
	if !since.IsZero() {
		q = q.Where(goqu.I("b.borrow_date").Gte(since))
	}
	sql, _, err := q.ToSQL()
	if err != nil {
		return "", errors.Join(ErrBuildingQueryFailed, err)
	}
	return sql, nil
}

// TopItems ranks items by borrows opened in the last `days` days.
func (r *Repo) TopItems(ctx context.Context, days int, limit uint) ([]TopItem, error) {
	sql, err := buildTopItemsQuery(r.Clock.Now().AddDate(0, 0, -days), limit)
	if err != nil {
		return nil, err
	}
	var out []TopItem
	if err := r.DB.WithContext(ctx).Raw(sql).Scan(&out).Error; err != nil {
		return nil, fmt.Errorf("top items: %w", err)
	}
	return out, nil
}

// TopBorrowers ranks accounts by borrows; days <= 0 means all time.
func (r *Repo) TopBorrowers(ctx context.Context, days int, limit uint) ([]TopBorrower, error) {
	var since time.Time
	if days > 0 {
		since = r.Clock.Now().AddDate(0, 0, -days)
	}
	sql, err := buildTopBorrowersQuery(since, limit)
	if err != nil {
		return nil, err
	}
	var out []TopBorrower
	if err := r.DB.WithContext(ctx).Raw(sql).Scan(&out).Error; err != nil {
		return nil, fmt.Errorf("top borrowers: %w", err)
	}
	return out, nil
}

type ItemUtilization struct {
	ItemID      string  `json:"item_id"`
	ItemName    string  `json:"item_name"`
	Category    string  `json:"category"`
	Quantity    int     `json:"quantity"`
	Available   int     `json:"available"`
	InUse       int     `json:"in_use"`
	Utilization float64 `json:"utilization"`
}

// UtilizationRate is the share of units not available, in percent.
func UtilizationRate(quantity, available int) float64 {
	if quantity <= 0 {
		return 0
	}
	return float64(quantity-available) / float64(quantity) * 100
}

// Utilization is UtilizationRate rounded to one decimal for display.
func Utilization(quantity, available int) float64 {
	return math.Round(UtilizationRate(quantity, available)*10) / 10
}

func (r *Repo) InventoryUtilization(ctx context.Context) ([]ItemUtilization, error) {
	var rows []struct {
		ItemID    string
		ItemName  string
		Category  *string
		Quantity  int
		Available int
	}
	if err := r.DB.WithContext(ctx).
		Table(models.ItemTable+" i").
		Select("i.id AS item_id, i.name AS item_name, c.name AS category, i.quantity, i.available").
		Joins("LEFT JOIN "+models.CategoryTable+" c ON c.id = i.category_id").
		Order("i.name").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]ItemUtilization, 0, len(rows))
	for _, row := range rows {
		cat := "N/A"
		if row.Category != nil {
			cat = models.CategoryType(*row.Category).DisplayName()
		}
		out = append(out, ItemUtilization{
			ItemID:      row.ItemID,
			ItemName:    row.ItemName,
			Category:    cat,
			Quantity:    row.Quantity,
			Available:   row.Available,
			InUse:       row.Quantity - row.Available,
			Utilization: Utilization(row.Quantity, row.Available),
		})
	}
	return out, nil
}

// ItemDemand pairs an item's stock with how often it was borrowed recently.
type ItemDemand struct {
	ItemID         string `json:"item_id"`
	ItemName       string `json:"item_name"`
	Quantity       int    `json:"quantity"`
	Available      int    `json:"available"`
	BorrowsInRange int64  `json:"borrows_in_range"`
}

func buildItemDemandQuery(since time.Time) (string, error) {
	q := goqu.Dialect(dialectPostgres).
		From(goqu.T(models.ItemTable).As("i")).
		LeftJoin(goqu.T(models.BorrowTable).As("b"), goqu.On(
			goqu.I("b.item_id").Eq(goqu.I("i.id")),
			goqu.I("b.borrow_date").Gte(since),
		)).
		Select(
			goqu.I("i.id").As("item_id"),
			goqu.I("i.name").As("item_name"),
			goqu.I("i.quantity"),
			goqu.I("i.available"),
			goqu.COUNT(goqu.I("b.id")).As("borrows_in_range"),
		).
		GroupBy(goqu.I("i.id"), goqu.I("i.name"), goqu.I("i.quantity"), goqu.I("i.available")).
		Order(goqu.C("borrows_in_range").Desc(), goqu.I("i.name").Asc())
	sql, _, err := q.ToSQL()
	if err != nil {
		return "", errors.Join(ErrBuildingQueryFailed, err)
	}
	return sql, nil
}

func (r *Repo) ItemDemand(ctx context.Context, days int) ([]ItemDemand, error) {
	sql, err := buildItemDemandQuery(r.Clock.Now().AddDate(0, 0, -days))
	if err != nil {
		return nil, err
	}
	var out []ItemDemand
	if err := r.DB.WithContext(ctx).Raw(sql).Scan(&out).Error; err != nil {
		return nil, fmt.Errorf("item demand: %w", err)
	}
	return out, nil
}
