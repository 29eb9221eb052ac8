package db

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUtilization(t *testing.T) {
	cases := []struct {
		name      string
		quantity  int
		available int
		want      float64
	}{
		{"empty item", 0, 0, 0},
		{"all available", 4, 4, 0},
		{"all out", 4, 0, 100},
		{"one of three", 3, 2, 33.3},
		{"two of three", 3, 1, 66.7},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Utilization(tc.quantity, tc.available))
		})
	}

	raw := UtilizationRate(1999, 400)
	assert.Less(t, raw, 80.0)
	assert.Equal(t, 80.0, Utilization(1999, 400))
}

func TestBuildTopItemsQuery(t *testing.T) {
	since := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	sql, err := buildTopItemsQuery(since, 10)
	require.NoError(t, err)

	assert.Contains(t, sql, `FROM "lending_borrows" AS "b"`)
	assert.Contains(t, sql, `INNER JOIN "lending_items" AS "i"`)
	assert.Contains(t, sql, `"i"."id" = "b"."item_id"`)
	assert.Contains(t, sql, `COUNT("b"."id") AS "borrow_count"`)
	assert.Contains(t, sql, `GROUP BY "i"."id", "i"."name"`)
	assert.Contains(t, sql, `ORDER BY "borrow_count" DESC`)
	assert.Contains(t, sql, "LIMIT 10")
	assert.Contains(t, sql, "2025-01-01")
}

func TestBuildTopBorrowersQuery(t *testing.T) {
	sql, err := buildTopBorrowersQuery(time.Now(), 5)
	require.NoError(t, err)

	assert.Contains(t, sql, `INNER JOIN "lending_users" AS "u"`)
	assert.Contains(t, sql, `"u"."id" = "b"."borrower_id"`)
	assert.Contains(t, sql, `"u"."username" AS "username"`)
	assert.Contains(t, sql, "LIMIT 5")
	assert.Contains(t, sql, `"b"."borrow_date" >= `)

	allTime, err := buildTopBorrowersQuery(time.Time{}, 10)
	require.NoError(t, err)
	assert.NotContains(t, allTime, "WHERE")
}

func TestBuildItemDemandQuery(t *testing.T) {
	sql, err := buildItemDemandQuery(time.Now())
	require.NoError(t, err)

	// the date filter lives in the join so items without borrows still show up
	assert.Contains(t, sql, `LEFT JOIN "lending_borrows" AS "b" ON`)
	assert.Contains(t, sql, `"b"."borrow_date" >= `)
	assert.NotContains(t, sql, "WHERE")
}
