package reports

import (
	"context"

	"Gin_postgres_redis_lending/db"
)

// Source is the slice of the repository the reports read from.
type Source interface {
	DashboardStats(ctx context.Context) (db.DashboardStats, error)
	TopItems(ctx context.Context, days int, limit uint) ([]db.TopItem, error)
	TopBorrowers(ctx context.Context, days int, limit uint) ([]db.TopBorrower, error)
	InventoryUtilization(ctx context.Context) ([]db.ItemUtilization, error)
	ItemDemand(ctx context.Context, days int) ([]db.ItemDemand, error)
}

const topN = 10

type ItemCount struct {
	ItemID   string `json:"item_id"`
	ItemName string `json:"item_name"`
	Count    int64  `json:"count"`
}

type BorrowerCount struct {
	BorrowerID string `json:"borrower_id"`
	Username   string `json:"username"`
	Count      int64  `json:"count"`
}

type ItemUsage struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Category    string  `json:"category"`
	Available   int     `json:"available"`
	Quantity    int     `json:"quantity"`
	Utilization float64 `json:"utilization"`
}

type BorrowStats struct {
	TotalBorrows       int64 `json:"total_borrows"`
	ActiveBorrows      int64 `json:"active_borrows"`
	ReturnedBorrows    int64 `json:"returned_borrows"`
	LateBorrows        int64 `json:"late_borrows"`
	NotReturnedBorrows int64 `json:"not_returned_borrows"`
}

type InventoryData struct {
	WeekItems  []ItemCount `json:"week_items"`
	MonthItems []ItemCount `json:"month_items"`
	YearItems  []ItemCount `json:"year_items"`
	Items      []ItemUsage `json:"items"`
}

type BorrowData struct {
	Stats        BorrowStats     `json:"stats"`
	TopBorrowers []BorrowerCount `json:"top_borrowers"`
}

// Analytics is the full report payload.
type Analytics struct {
	InventoryData
	BorrowData
}

func LoadInventoryData(ctx context.Context, src Source) (InventoryData, error) {
	var (
		d   InventoryData
		err error
	)
	if d.WeekItems, err = topItems(ctx, src, 7); err != nil {
		return d, err
	}
	if d.MonthItems, err = topItems(ctx, src, 30); err != nil {
		return d, err
	}
	if d.YearItems, err = topItems(ctx, src, 365); err != nil {
		return d, err
	}
	util, err := src.InventoryUtilization(ctx)
	if err != nil {
		return d, err
	}
	d.Items = make([]ItemUsage, 0, len(util))
	for _, u := range util {
		d.Items = append(d.Items, ItemUsage{
			ID:          u.ItemID,
			Name:        u.ItemName,
			Category:    u.Category,
			Available:   u.Available,
			Quantity:    u.Quantity,
			Utilization: u.Utilization,
		})
	}
	return d, nil
}

func topItems(ctx context.Context, src Source, days int) ([]ItemCount, error) {
	rows, err := src.TopItems(ctx, days, topN)
	if err != nil {
		return nil, err
	}
	out := make([]ItemCount, 0, len(rows))
	for _, r := range rows {
		out = append(out, ItemCount{ItemID: r.ItemID, ItemName: r.ItemName, Count: r.BorrowCount})
	}
	return out, nil
}

func LoadBorrowData(ctx context.Context, src Source) (BorrowData, error) {
	var d BorrowData
	s, err := src.DashboardStats(ctx)
	if err != nil {
		return d, err
	}
	d.Stats = BorrowStats{
		TotalBorrows:       s.TotalBorrows,
		ActiveBorrows:      s.ActiveBorrows,
		ReturnedBorrows:    s.ReturnedBorrows,
		LateBorrows:        s.LateBorrows,
		NotReturnedBorrows: s.NotReturnedBorrows,
	}
	rows, err := src.TopBorrowers(ctx, 0, topN)
	if err != nil {
		return d, err
	}
	d.TopBorrowers = make([]BorrowerCount, 0, len(rows))
	for _, r := range rows {
		d.TopBorrowers = append(d.TopBorrowers, BorrowerCount{BorrowerID: r.UserID, Username: r.Username, Count: r.BorrowCount})
	}
	return d, nil
}

func LoadAnalytics(ctx context.Context, src Source) (Analytics, error) {
	inv, err := LoadInventoryData(ctx, src)
	if err != nil {
		return Analytics{}, err
	}
	br, err := LoadBorrowData(ctx, src)
	if err != nil {
		return Analytics{}, err
	}
	return Analytics{InventoryData: inv, BorrowData: br}, nil
}
