package controllers

import (
	"net/http"
	"strconv"

	"Gin_postgres_redis_lending/app"
	"Gin_postgres_redis_lending/db"
	"Gin_postgres_redis_lending/models"

	"github.com/gin-gonic/gin"
)

type InventoryController struct{ *Srv }

func NewInventoryController(s *Srv) *InventoryController { return &InventoryController{Srv: s} }

func categoryParam(c *gin.Context) (uint, bool) {
	n, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusNotFound, app.H{"detail": "Category not found."})
		return 0, false
	}
	return uint(n), true
}

// GET /api/admin/categories
func (ic *InventoryController) AdminCategories(c *gin.Context) {
	cats, err := ic.Repo.ListCategorySummaries(c.Request.Context())
	if err != nil {
		respondError(c, ic.Log, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"categories": cats})
}

// GET /api/admin/categories/:id/items
func (ic *InventoryController) AdminCategoryItems(c *gin.Context) {
	id, ok := categoryParam(c)
	if !ok {
		return
	}
	cat, items, err := ic.Repo.ListCategoryItems(c.Request.Context(), id, true)
	if err != nil {
		respondError(c, ic.Log, err)
		return
	}
	c.JSON(http.StatusOK, app.H{
		"category": app.H{"id": cat.ID, "name": cat.Name, "display_name": cat.Name.DisplayName()},
		"items":    items,
	})
}

// POST /api/admin/categories/:id/items
func (ic *InventoryController) CreateItem(c *gin.Context) {
	id, ok := categoryParam(c)
	if !ok {
		return
	}
	var in struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	_ = c.ShouldBindJSON(&in)

	it, cat, err := ic.Repo.CreateItem(c.Request.Context(), id, in.Name, in.Description)
	if err != nil {
		respondError(c, ic.Log, err)
		return
	}
	ic.dropStats(c.Request.Context())
	c.JSON(http.StatusCreated, app.H{
		"id":          it.ID,
		"name":        it.Name,
		"description": it.Description,
		"category":    cat.Name,
		"message":     "Item created successfully",
	})
}

// POST /api/admin/items/:id/instances
func (ic *InventoryController) AddInstance(c *gin.Context) {
	itemID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var in struct {
		ReferenceID string `json:"reference_id"`
		Notes       string `json:"notes"`
	}
	_ = c.ShouldBindJSON(&in)

	inst, err := ic.Repo.AddInstance(c.Request.Context(), itemID, in.ReferenceID, in.Notes)
	if err != nil {
		respondError(c, ic.Log, err)
		return
	}
	ic.dropStats(c.Request.Context())
	c.JSON(http.StatusCreated, app.H{
		"id":           inst.ID,
		"reference_id": inst.ReferenceID,
		"status":       inst.Status,
		"notes":        inst.Notes,
		"message":      "Item instance added successfully",
	})
}

// PATCH /api/admin/instances/:id
func (ic *InventoryController) UpdateInstance(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var in struct {
		Status *models.InstanceStatus `json:"status"`
		Notes  *string                `json:"notes"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		bindError(c, err)
		return
	}
	inst, err := ic.Repo.UpdateInstance(c.Request.Context(), id, db.UpdateInstanceInput{Status: in.Status, Notes: in.Notes})
	if err != nil {
		respondError(c, ic.Log, err)
		return
	}
	ic.dropStats(c.Request.Context())
	c.JSON(http.StatusOK, app.H{
		"id":             inst.ID,
		"reference_id":   inst.ReferenceID,
		"status":         inst.Status,
		"status_display": inst.Status.DisplayName(),
		"notes":          inst.Notes,
		"message":        "Item instance updated successfully",
	})
}

// DELETE /api/admin/instances/:id
func (ic *InventoryController) DeleteInstance(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	if err := ic.Repo.DeleteInstance(c.Request.Context(), id); err != nil {
		respondError(c, ic.Log, err)
		return
	}
	ic.dropStats(c.Request.Context())
	c.JSON(http.StatusOK, app.H{"message": "Item instance deleted successfully"})
}

type borrowerCategory struct {
	ID             uint                `json:"id"`
	Name           models.CategoryType `json:"name"`
	DisplayName    string              `json:"display_name"`
	AvailableCount int64               `json:"available_count"`
	TotalInstances int64               `json:"total_instances"`
}

// GET /api/borrower/categories
func (ic *InventoryController) BorrowerCategories(c *gin.Context) {
	cats, err := ic.Repo.ListCategorySummaries(c.Request.Context())
	if err != nil {
		respondError(c, ic.Log, err)
		return
	}
	out := make([]borrowerCategory, 0, len(cats))
	for _, cs := range cats {
		out = append(out, borrowerCategory{
			ID:             cs.ID,
			Name:           cs.Name,
			DisplayName:    cs.DisplayName,
			AvailableCount: cs.AvailableInstances,
			TotalInstances: cs.TotalInstances,
		})
	}
	c.JSON(http.StatusOK, app.H{"categories": out})
}

// GET /api/borrower/categories/:id/items
func (ic *InventoryController) BorrowerCategoryItems(c *gin.Context) {
	id, ok := categoryParam(c)
	if !ok {
		return
	}
	_, items, err := ic.Repo.ListCategoryItems(c.Request.Context(), id, false)
	if err != nil {
		respondError(c, ic.Log, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"items": items})
}
