package reports

import (
	"bytes"
	"context"
	"testing"
	"time"

	"Gin_postgres_redis_lending/db"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestRecommend(t *testing.T) {
	cases := []struct {
		name      string
		borrows   int64
		quantity  int
		available int
		priority  Priority
		action    Action
		reason    string
	}{
		{"critical", 12, 10, 1, PriorityCritical, ActionIncreaseStock,
			"High demand (12 borrows/month) with 90.0% utilization. Stock is running low."},
		{"high", 10, 10, 3, PriorityHigh, ActionIncreaseStock,
			"High demand (10 borrows/month) with 70.0% utilization. Consider adding more units."},
		{"just under critical", 12, 1999, 400, PriorityHigh, ActionIncreaseStock,
			"High demand (12 borrows/month) with 80.0% utilization. Consider adding more units."},
		{"popular", 15, 10, 8, PriorityMedium, ActionMonitor,
			"Popular item (15 borrows/month). Monitor stock levels."},
		{"moderate busy", 6, 10, 2, PriorityMedium, ActionIncreaseStock,
			"Moderate demand (6 borrows/month) with 80.0% utilization."},
		{"moderate", 5, 10, 9, PriorityLow, ActionMonitor,
			"Moderate demand (5 borrows/month). Current stock is adequate."},
		{"low healthy", 2, 2, 1, PriorityLow, ActionMonitor,
			"Low demand (2 borrows/month). Stock levels are healthy."},
		{"unused", 0, 4, 4, PriorityLow, ActionConsiderRemoval,
			"Very low demand (0 borrows/month). Consider if this item is still needed."},
		{"empty item", 0, 0, 0, PriorityLow, ActionConsiderRemoval,
			"Very low demand (0 borrows/month). Consider if this item is still needed."},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := Recommend(db.ItemDemand{
				ItemID: "i", ItemName: "Thing",
				Quantity: tc.quantity, Available: tc.available, BorrowsInRange: tc.borrows,
			})
			assert.Equal(t, tc.priority, rec.Priority)
			assert.Equal(t, tc.action, rec.Action)
			assert.Equal(t, tc.reason, rec.Reason)
			assert.Equal(t, tc.quantity, rec.TotalQuantity)
			assert.Equal(t, db.Utilization(tc.quantity, tc.available), rec.UtilizationRate)
		})
	}
}

type fakeSource struct {
	stats     db.DashboardStats
	top       map[int][]db.TopItem
	borrowers []db.TopBorrower
	util      []db.ItemUtilization
	demand    []db.ItemDemand
	days      []int
}

func (f *fakeSource) DashboardStats(context.Context) (db.DashboardStats, error) { return f.stats, nil }
func (f *fakeSource) TopItems(_ context.Context, days int, _ uint) ([]db.TopItem, error) {
	f.days = append(f.days, days)
	return f.top[days], nil
}
func (f *fakeSource) TopBorrowers(context.Context, int, uint) ([]db.TopBorrower, error) {
	return f.borrowers, nil
}
func (f *fakeSource) InventoryUtilization(context.Context) ([]db.ItemUtilization, error) {
	return f.util, nil
}
func (f *fakeSource) ItemDemand(context.Context, int) ([]db.ItemDemand, error) { return f.demand, nil }

func newFakeSource() *fakeSource {
	return &fakeSource{
		stats: db.DashboardStats{TotalBorrows: 20, ActiveBorrows: 4, LateBorrows: 3, ReturnedBorrows: 12, NotReturnedBorrows: 1},
		top: map[int][]db.TopItem{
			7:  {{ItemID: "a", ItemName: "Laptop", BorrowCount: 3}},
			30: {{ItemID: "a", ItemName: "Laptop", BorrowCount: 9}},
		},
		borrowers: []db.TopBorrower{{UserID: "u", Username: "alice", BorrowCount: 7}},
		util: []db.ItemUtilization{
			{ItemID: "a", ItemName: "Laptop", Category: "Devices", Quantity: 5, Available: 0, Utilization: 100},
		},
		demand: []db.ItemDemand{{ItemID: "a", ItemName: "Laptop", Quantity: 5, Available: 0, BorrowsInRange: 11}},
	}
}

func TestLoadAnalytics(t *testing.T) {
	src := newFakeSource()
	a, err := LoadAnalytics(context.Background(), src)
	require.NoError(t, err)

	assert.Equal(t, []int{7, 30, 365}, src.days)
	require.Len(t, a.WeekItems, 1)
	assert.EqualValues(t, 3, a.WeekItems[0].Count)
	assert.Empty(t, a.YearItems)
	assert.Equal(t, "Laptop", a.Items[0].Name)
	assert.EqualValues(t, 3, a.Stats.LateBorrows)
	assert.Equal(t, "alice", a.TopBorrowers[0].Username)

	recs, err := Recommendations(context.Background(), src)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, PriorityCritical, recs[0].Priority)
}

func TestWriteWorkbook(t *testing.T) {
	src := newFakeSource()
	a, err := LoadAnalytics(context.Background(), src)
	require.NoError(t, err)

	ref := "LAP001"
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	var buf bytes.Buffer
	require.NoError(t, WriteWorkbook(&buf, Export{
		GeneratedAt: now,
		Stats:       src.stats,
		Analytics:   a,
		Borrows: []db.BorrowView{{
			ID: "b1", ItemName: "Laptop", ItemReferenceID: &ref, BorrowerUsername: "alice",
			Status: "ACTIVE", BorrowDate: now, DueDate: now.Add(72 * time.Hour),
		}},
	}))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetSummary, SheetItems, SheetTopBorrowers, SheetBorrows}, f.GetSheetList())

	v, err := f.GetCellValue(SheetSummary, "B3")
	require.NoError(t, err)
	assert.Equal(t, "20", v)

	rows, err := f.GetRows(SheetBorrows)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "LAP001", rows[1][2])
	assert.Equal(t, "2025-03-04 10:00", rows[1][7])

	v, err = f.GetCellValue(SheetTopBorrowers, "A2")
	require.NoError(t, err)
	assert.Equal(t, "alice", v)
}

func TestExportFilename(t *testing.T) {
	assert.Equal(t, "lending-report-20250301-1000.xlsx",
		ExportFilename(time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)))
}
