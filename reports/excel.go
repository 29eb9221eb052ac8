package reports

import (
	"fmt"
	"io"
	"time"

	"Gin_postgres_redis_lending/db"

	"github.com/xuri/excelize/v2"
)

const (
	SheetSummary      = "Summary"
	SheetItems        = "Items"
	SheetTopBorrowers = "Top Borrowers"
	SheetBorrows      = "Borrows"
)

const dateLayout = "2006-01-02 15:04"

// Export is everything the workbook is built from.
type Export struct {
	GeneratedAt time.Time
	Stats       db.DashboardStats
	Analytics   Analytics
	Borrows     []db.BorrowView
}

// WriteWorkbook renders the export as an xlsx workbook into w.
func WriteWorkbook(w io.Writer, e Export) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		return err
	}
	for _, name := range []string{SheetItems, SheetTopBorrowers, SheetBorrows} {
		if _, err := f.NewSheet(name); err != nil {
			return err
		}
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}

	s := e.Stats
	summary := [][]any{
		{"Metric", "Value"},
		{"Generated at", e.GeneratedAt.UTC().Format(dateLayout)},
		{"Total borrows", s.TotalBorrows},
		{"Pending", s.PendingBorrows},
		{"Active", s.ActiveBorrows},
		{"Late", s.LateBorrows},
		{"Returned", s.ReturnedBorrows},
		{"Not returned", s.NotReturnedBorrows},
		{"Rejected", s.RejectedBorrows},
		{"Overdue", s.OverdueBorrows},
		{"Items", s.TotalItems},
		{"Instances", s.TotalInstances},
		{"Available instances", s.AvailableInstances},
		{"Users", s.TotalUsers},
		{"Pending registrations", s.PendingUsers},
	}
	if err := writeRows(f, SheetSummary, summary, bold); err != nil {
		return err
	}

	items := [][]any{{"Item", "Category", "Quantity", "Available", "Utilization %"}}
	for _, it := range e.Analytics.Items {
		items = append(items, []any{it.Name, it.Category, it.Quantity, it.Available, it.Utilization})
	}
	if err := writeRows(f, SheetItems, items, bold); err != nil {
		return err
	}

	top := [][]any{{"Username", "Borrows"}}
	for _, b := range e.Analytics.TopBorrowers {
		top = append(top, []any{b.Username, b.Count})
	}
	if err := writeRows(f, SheetTopBorrowers, top, bold); err != nil {
		return err
	}

	borrows := [][]any{{"ID", "Item", "Reference", "Borrower", "Handler", "Status", "Borrowed", "Due", "Returned", "Notes"}}
	for _, b := range e.Borrows {
		borrows = append(borrows, []any{
			b.ID,
			b.ItemName,
			deref(b.ItemReferenceID),
			b.BorrowerUsername,
			deref(b.HandlerUsername),
			string(b.Status),
			b.BorrowDate.UTC().Format(dateLayout),
			b.DueDate.UTC().Format(dateLayout),
			formatTime(b.ReturnDate),
			b.Notes,
		})
	}
	if err := writeRows(f, SheetBorrows, borrows, bold); err != nil {
		return err
	}

	f.SetActiveSheet(0)
	return f.Write(w)
}

func writeRows(f *excelize.File, sheet string, rows [][]any, headerStyle int) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		r := row
		if err := f.SetSheetRow(sheet, cell, &r); err != nil {
			return fmt.Errorf("%s row %d: %w", sheet, i+1, err)
		}
	}
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil
	}
	last, err := excelize.CoordinatesToCellName(len(rows[0]), 1)
	if err != nil {
		return err
	}
	return f.SetCellStyle(sheet, "A1", last, headerStyle)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(dateLayout)
}

// ExportFilename is the attachment name for a workbook generated at t.
func ExportFilename(t time.Time) string {
	return "lending-report-" + t.UTC().Format("20060102-1504") + ".xlsx"
}
