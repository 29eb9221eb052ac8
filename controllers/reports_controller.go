package controllers

import (
	"bytes"
	"context"
	"fmt"
	"net/http"

	"Gin_postgres_redis_lending/cache"
	"Gin_postgres_redis_lending/db"
	"Gin_postgres_redis_lending/reports"

	"github.com/gin-gonic/gin"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type ReportsController struct{ *Srv }

func NewReportsController(s *Srv) *ReportsController { return &ReportsController{Srv: s} }

func (rc *ReportsController) stats(ctx context.Context) (db.DashboardStats, error) {
	return cache.GetOrLoad(ctx, rc.Cache, cache.KeyDashboardStats, cache.StatsTTL, rc.Repo.DashboardStats)
}

func (rc *ReportsController) analytics(ctx context.Context) (reports.Analytics, error) {
	return cache.GetOrLoad(ctx, rc.Cache, cache.KeyAnalytics, cache.StatsTTL, func(ctx context.Context) (reports.Analytics, error) {
		return reports.LoadAnalytics(ctx, rc.Repo)
	})
}

// GET /api/admin/dashboard
func (rc *ReportsController) Dashboard(c *gin.Context) {
	s, err := rc.stats(c.Request.Context())
	if err != nil {
		respondError(c, rc.Log, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

// GET /api/admin/analytics
func (rc *ReportsController) Analytics(c *gin.Context) {
	a, err := rc.analytics(c.Request.Context())
	if err != nil {
		respondError(c, rc.Log, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

// GET /api/admin/inventory
func (rc *ReportsController) Utilization(c *gin.Context) {
	items, err := cache.GetOrLoad(c.Request.Context(), rc.Cache, cache.KeyUtilization, cache.StatsTTL, rc.Repo.InventoryUtilization)
	if err != nil {
		respondError(c, rc.Log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// GET /api/admin/reports/export
func (rc *ReportsController) Export(c *gin.Context) {
	ctx := c.Request.Context()
	s, err := rc.Repo.DashboardStats(ctx)
	if err != nil {
		respondError(c, rc.Log, err)
		return
	}
	a, err := reports.LoadAnalytics(ctx, rc.Repo)
	if err != nil {
		respondError(c, rc.Log, err)
		return
	}
	borrows, err := rc.Repo.ListAllBorrows(ctx)
	if err != nil {
		respondError(c, rc.Log, err)
		return
	}

	now := rc.Repo.Clock.Now()
	var buf bytes.Buffer
	if err := reports.WriteWorkbook(&buf, reports.Export{
		GeneratedAt: now,
		Stats:       s,
		Analytics:   a,
		Borrows:     borrows,
	}); err != nil {
		respondError(c, rc.Log, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, reports.ExportFilename(now)))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}
