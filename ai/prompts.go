package ai

import (
	"fmt"
	"strconv"
	"strings"

	"Gin_postgres_redis_lending/reports"

	jsoniter "github.com/json-iterator/go"
)

func lines[T any](xs []T, max int, f func(T) string) string {
	if len(xs) > max {
		xs = xs[:max]
	}
	out := make([]string, 0, len(xs))
	for _, x := range xs {
		out = append(out, f(x))
	}
	return strings.Join(out, "\n")
}

func itemCountLine(c reports.ItemCount) string {
	return fmt.Sprintf("- %s: %d borrows", c.ItemName, c.Count)
}

func InventoryPrompt(d reports.InventoryData) string {
	items := lines(d.Items, 10, func(it reports.ItemUsage) string {
		return fmt.Sprintf("- %s: %s%% utilized (%d/%d available)", it.Name, percent(it.Utilization), it.Available, it.Quantity)
	})
	week := lines(d.WeekItems, 5, itemCountLine)
	month := lines(d.MonthItems, 5, itemCountLine)

	return fmt.Sprintf(`Analyze the following equipment inventory and borrowing data, then provide strategic recommendations:

CURRENT INVENTORY STATUS:
%s

TOP BORROWED ITEMS (This Week):
%s

TOP BORROWED ITEMS (This Month):
%s

Based on this data, provide:
1. Items that need immediate stock increase
2. Items that are underutilized and could be removed
3. Predicted demand for the next month
4. Recommendations for inventory optimization
5. Risk assessment for equipment availability

Keep recommendations concise and actionable.`, items, week, month)
}

func BorrowPatternsPrompt(d reports.BorrowData) string {
	borrowers := lines(d.TopBorrowers, 5, func(b reports.BorrowerCount) string {
		return fmt.Sprintf("- %s: %d items borrowed", b.Username, b.Count)
	})
	s := d.Stats
	return fmt.Sprintf(`Analyze the following borrow patterns and provide insights:

BORROW STATISTICS:
- Total Borrows: %d
- Active: %d
- Returned: %d
- Late: %d
- Not Returned: %d

TOP BORROWERS:
%s

Provide analysis on:
1. Overall borrow health and trends
2. Late return patterns and potential issues
3. User behavior insights
4. Recommendations to improve return rates
5. Suggested policies or interventions

Keep analysis focused and actionable.`,
		s.TotalBorrows, s.ActiveBorrows, s.ReturnedBorrows, s.LateBorrows, s.NotReturnedBorrows, borrowers)
}

func UserBehaviorPrompt(data map[string]any) string {
	return fmt.Sprintf(`Analyze user borrowing behavior and provide insights:

USER DATA:
%s

Provide analysis on:
1. User borrowing patterns
2. Risk assessment for non-returns
3. Recommendations for user engagement
4. Suggested interventions or policies

Keep analysis concise and actionable.`, dump(data))
}

func CustomPrompt(analysisType string, data map[string]any) string {
	return fmt.Sprintf(`Perform %s analysis on the following data:

DATA:
%s

Provide detailed, actionable insights.`, analysisType, dump(data))
}

func dump(data map[string]any) string {
	b, err := jsoniter.ConfigCompatibleWithStandardLibrary.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprint(data)
	}
	return string(b)
}

// percent renders a utilization figure with at least one decimal, e.g. 100.0 or 33.3.
func percent(f float64) string {
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}
