package ai

import (
	"fmt"
	"strings"

	"Gin_postgres_redis_lending/reports"

	jsoniter "github.com/json-iterator/go"
)

const (
	noDataText  = "Unable to generate analysis - no data available."
	genericText = "Analysis generated based on available data patterns."
)

// InventoryFallback is the rule-based inventory summary used when a provider fails.
func InventoryFallback(d reports.InventoryData) string {
	var high, low []reports.ItemUsage
	for _, it := range d.Items {
		if it.Utilization > 80 {
			high = append(high, it)
		}
		if it.Utilization < 20 && it.Quantity > 0 {
			low = append(low, it)
		}
	}

	out := []string{"📊 INVENTORY ANALYSIS\n"}
	if len(high) > 0 {
		out = append(out, fmt.Sprintf("⚠️ HIGH DEMAND ALERT: %d items are over 80%% utilized:", len(high)))
		for _, it := range head(high, 3) {
			out = append(out, fmt.Sprintf("  • %s: %s%% utilized - Consider increasing stock", it.Name, percent(it.Utilization)))
		}
	}
	if len(low) > 0 {
		out = append(out, fmt.Sprintf("\n💡 OPTIMIZATION OPPORTUNITY: %d items are underutilized:", len(low)))
		for _, it := range head(low, 3) {
			out = append(out, fmt.Sprintf("  • %s: Only %s%% utilized - Review necessity", it.Name, percent(it.Utilization)))
		}
	}
	if len(d.WeekItems) > 0 {
		out = append(out, "\n🔥 TRENDING THIS WEEK:")
		for _, it := range head(d.WeekItems, 3) {
			out = append(out, fmt.Sprintf("  • %s: %d borrows", it.ItemName, it.Count))
		}
	}

	out = append(out, "\n✅ RECOMMENDATIONS:")
	if len(high) > 0 {
		out = append(out, "  1. Increase stock for high-demand items to prevent shortages")
	}
	if len(low) > 0 {
		out = append(out, "  2. Consider reallocating budget from underutilized equipment")
	}
	if len(d.WeekItems) > 0 {
		out = append(out, "  3. Monitor trending items for potential stock increases")
	}
	return strings.Join(out, "\n")
}

// BorrowFallback is the rule-based borrow pattern summary.
func BorrowFallback(d reports.BorrowData) string {
	s := d.Stats
	out := []string{"📈 BORROW PATTERN ANALYSIS\n"}

	if s.TotalBorrows > 0 {
		lateRate := float64(s.LateBorrows) / float64(s.TotalBorrows) * 100
		lostRate := float64(s.NotReturnedBorrows) / float64(s.TotalBorrows) * 100

		out = append(out,
			"📊 SYSTEM HEALTH:",
			fmt.Sprintf("  • Total Borrows: %d", s.TotalBorrows),
			fmt.Sprintf("  • Currently Active: %d", s.ActiveBorrows),
			fmt.Sprintf("  • Late Return Rate: %.1f%%", lateRate),
			fmt.Sprintf("  • Not Returned Rate: %.1f%%", lostRate),
		)
		if lateRate > 10 {
			out = append(out,
				fmt.Sprintf("\n⚠️ CONCERN: Late return rate is %.1f%% (target: <10%%)", lateRate),
				"  Consider implementing reminder notifications or penalties")
		}
		if lostRate > 5 {
			out = append(out,
				fmt.Sprintf("\n🚨 ALERT: %.1f%% of items not returned", lostRate),
				"  Immediate follow-up required with borrowers")
		}
	}

	if len(d.TopBorrowers) > 0 {
		out = append(out, "\n👥 TOP BORROWERS:")
		for _, b := range head(d.TopBorrowers, 5) {
			out = append(out, fmt.Sprintf("  • %s: %d items", b.Username, b.Count))
		}
	}

	out = append(out, "\n✅ RECOMMENDATIONS:")
	if s.LateBorrows > 0 {
		out = append(out, "  1. Implement automated reminder system for due dates")
	}
	if s.NotReturnedBorrows > 0 {
		out = append(out, "  2. Contact users with unreturned items immediately")
	}
	out = append(out,
		"  3. Consider incentives for on-time returns",
		"  4. Review borrowing policies if issues persist")
	return strings.Join(out, "\n")
}

// GenericFallback inspects free-form data: inventory-shaped data gets the inventory
// summary, stats-shaped data the borrow summary.
func GenericFallback(data map[string]any) string {
	if len(data) == 0 {
		return noDataText
	}
	if _, ok := data["items"]; ok {
		var d reports.InventoryData
		if reshape(data, &d) == nil {
			return InventoryFallback(d)
		}
	}
	if _, ok := data["stats"]; ok {
		var d reports.BorrowData
		if reshape(data, &d) == nil {
			return BorrowFallback(d)
		}
	}
	return genericText
}

func reshape(in map[string]any, out any) error {
	b, err := jsoniter.ConfigFastest.Marshal(in)
	if err != nil {
		return err
	}
	return jsoniter.ConfigFastest.Unmarshal(b, out)
}

func head[T any](xs []T, n int) []T {
	if len(xs) > n {
		return xs[:n]
	}
	return xs
}
