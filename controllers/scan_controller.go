package controllers

import (
	"net/http"

	"Gin_postgres_redis_lending/app"

	"github.com/gin-gonic/gin"
)

// ScanController resolves barcodes and badge scans at the counter.
type ScanController struct{ *Srv }

func NewScanController(s *Srv) *ScanController { return &ScanController{Srv: s} }

// GET /api/scan/item/:barcode
func (sc *ScanController) ScanItem(c *gin.Context) {
	inst, err := sc.Repo.ScanInstance(c.Request.Context(), c.Param("barcode"))
	if err != nil {
		respondError(c, sc.Log, err)
		return
	}
	c.JSON(http.StatusOK, inst)
}

// GET /api/scan/user/:rfid
// The badge currently carries the username.
func (sc *ScanController) ScanUser(c *gin.Context) {
	u, err := sc.Repo.FindApprovedUserByUsername(c.Request.Context(), c.Param("rfid"))
	if err != nil {
		respondError(c, sc.Log, err)
		return
	}
	c.JSON(http.StatusOK, app.H{
		"id":          u.ID,
		"username":    u.Username,
		"email":       u.Email,
		"role":        u.Role,
		"is_approved": u.IsApproved,
	})
}
