package controllers

import (
	"errors"
	"net/http"

	"Gin_postgres_redis_lending/ai"
	"Gin_postgres_redis_lending/app"
	"Gin_postgres_redis_lending/reports"

	"github.com/gin-gonic/gin"
)

const (
	aiUnavailableInventory = "AI service not configured. Please set HUGGINGFACE_API_KEY environment variable."
	aiUnavailable          = "AI service not configured."
)

// AIController exposes the stock recommendations and the summarizer endpoints.
type AIController struct{ *Srv }

func NewAIController(s *Srv) *AIController { return &AIController{Srv: s} }

func (ac *AIController) unavailable(c *gin.Context, msg string) bool {
	if ac.AI != nil && ac.AI.Available() {
		return false
	}
	c.JSON(http.StatusOK, app.H{"ai_available": false, "message": msg})
	return true
}

// analysisError maps summarizer errors; a provider that disappeared mid-request reads as unavailable.
func (ac *AIController) analysisError(c *gin.Context, err error) {
	if errors.Is(err, ai.ErrUnavailable) {
		c.JSON(http.StatusOK, app.H{"ai_available": false, "message": aiUnavailable})
		return
	}
	respondError(c, ac.Log, err)
}

// GET /api/admin/ai/recommendations
func (ac *AIController) Recommendations(c *gin.Context) {
	recs, err := reports.Recommendations(c.Request.Context(), ac.Repo)
	if err != nil {
		respondError(c, ac.Log, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"recommendations": recs})
}

// GET /api/admin/ai/inventory-analysis
func (ac *AIController) InventoryAnalysis(c *gin.Context) {
	if ac.unavailable(c, aiUnavailableInventory) {
		return
	}
	ctx := c.Request.Context()
	data, err := reports.LoadInventoryData(ctx, ac.Repo)
	if err != nil {
		respondError(c, ac.Log, err)
		return
	}
	text, err := ac.AI.AnalyzeInventory(ctx, data)
	if err != nil {
		ac.analysisError(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"ai_available": true, "analytics": data, "ai_analysis": text})
}

// GET /api/admin/ai/borrow-analysis
func (ac *AIController) BorrowAnalysis(c *gin.Context) {
	if ac.unavailable(c, aiUnavailable) {
		return
	}
	ctx := c.Request.Context()
	data, err := reports.LoadBorrowData(ctx, ac.Repo)
	if err != nil {
		respondError(c, ac.Log, err)
		return
	}
	text, err := ac.AI.AnalyzeBorrowPatterns(ctx, data)
	if err != nil {
		ac.analysisError(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"ai_available": true, "borrow_data": data, "ai_analysis": text})
}

// GET /api/admin/ai/user-behavior
func (ac *AIController) UserBehavior(c *gin.Context) {
	if ac.unavailable(c, aiUnavailable) {
		return
	}
	ctx := c.Request.Context()
	top, err := ac.Repo.TopBorrowers(ctx, 0, 10)
	if err != nil {
		respondError(c, ac.Log, err)
		return
	}
	stats, err := ac.Repo.DashboardStats(ctx)
	if err != nil {
		respondError(c, ac.Log, err)
		return
	}
	data := map[string]any{
		"top_borrowers":        top,
		"late_borrows":         stats.LateBorrows,
		"not_returned_borrows": stats.NotReturnedBorrows,
		"total_users":          stats.TotalUsers,
	}
	text, err := ac.AI.AnalyzeUserBehavior(ctx, data)
	if err != nil {
		ac.analysisError(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"ai_available": true, "user_data": data, "ai_analysis": text})
}

// POST /api/admin/ai/custom-analysis
func (ac *AIController) CustomAnalysis(c *gin.Context) {
	if ac.unavailable(c, aiUnavailable) {
		return
	}
	var in struct {
		AnalysisType string         `json:"analysis_type"`
		Data         map[string]any `json:"data"`
	}
	_ = c.ShouldBindJSON(&in)
	if in.AnalysisType == "" {
		c.JSON(http.StatusBadRequest, app.H{"error": "analysis_type is required"})
		return
	}
	if in.Data == nil {
		in.Data = map[string]any{}
	}
	text, err := ac.AI.CustomAnalysis(c.Request.Context(), in.AnalysisType, in.Data)
	if err != nil {
		ac.analysisError(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"ai_available": true, "analysis_type": in.AnalysisType, "ai_analysis": text})
}
