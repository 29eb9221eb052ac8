package reports

import (
	"context"
	"fmt"

	"Gin_postgres_redis_lending/db"
)

type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"
	PriorityMedium   Priority = "medium"
	PriorityLow      Priority = "low"
)

type Action string

const (
	ActionIncreaseStock   Action = "increase_stock"
	ActionMonitor         Action = "monitor"
	ActionConsiderRemoval Action = "consider_removal"
)

// RecommendationWindowDays is how far back borrow demand is counted.
const RecommendationWindowDays = 30

type Recommendation struct {
	ItemID          string   `json:"item_id"`
	ItemName        string   `json:"item_name"`
	BorrowCount     int64    `json:"borrow_count"`
	UtilizationRate float64  `json:"utilization_rate"`
	Available       int      `json:"available"`
	TotalQuantity   int      `json:"total_quantity"`
	Priority        Priority `json:"priority"`
	Action          Action   `json:"action"`
	Reason          string   `json:"reason"`
}

// Recommend grades one item by monthly demand and current utilization.
func Recommend(d db.ItemDemand) Recommendation {
	n := d.BorrowsInRange
	// tiers use the raw rate; only the reported value is rounded
	util := db.UtilizationRate(d.Quantity, d.Available)
	rec := Recommendation{
		ItemID:          d.ItemID,
		ItemName:        d.ItemName,
		BorrowCount:     n,
		UtilizationRate: db.Utilization(d.Quantity, d.Available),
		Available:       d.Available,
		TotalQuantity:   d.Quantity,
	}

	switch {
	case n >= 10:
		switch {
		case util >= 80:
			rec.Priority, rec.Action = PriorityCritical, ActionIncreaseStock
			rec.Reason = fmt.Sprintf("High demand (%d borrows/month) with %.1f%% utilization. Stock is running low.", n, util)
		case util >= 60:
			rec.Priority, rec.Action = PriorityHigh, ActionIncreaseStock
			rec.Reason = fmt.Sprintf("High demand (%d borrows/month) with %.1f%% utilization. Consider adding more units.", n, util)
		default:
			rec.Priority, rec.Action = PriorityMedium, ActionMonitor
			rec.Reason = fmt.Sprintf("Popular item (%d borrows/month). Monitor stock levels.", n)
		}
	case n >= 5:
		if util >= 70 {
			rec.Priority, rec.Action = PriorityMedium, ActionIncreaseStock
			rec.Reason = fmt.Sprintf("Moderate demand (%d borrows/month) with %.1f%% utilization.", n, util)
		} else {
			rec.Priority, rec.Action = PriorityLow, ActionMonitor
			rec.Reason = fmt.Sprintf("Moderate demand (%d borrows/month). Current stock is adequate.", n)
		}
	default:
		if util >= 50 {
			rec.Priority, rec.Action = PriorityLow, ActionMonitor
			rec.Reason = fmt.Sprintf("Low demand (%d borrows/month). Stock levels are healthy.", n)
		} else {
			rec.Priority, rec.Action = PriorityLow, ActionConsiderRemoval
			rec.Reason = fmt.Sprintf("Very low demand (%d borrows/month). Consider if this item is still needed.", n)
		}
	}
	return rec
}

// Recommendations grades every item, most borrowed first.
func Recommendations(ctx context.Context, src Source) ([]Recommendation, error) {
	demand, err := src.ItemDemand(ctx, RecommendationWindowDays)
	if err != nil {
		return nil, err
	}
	out := make([]Recommendation, 0, len(demand))
	for _, d := range demand {
		out = append(out, Recommend(d))
	}
	return out, nil
}
