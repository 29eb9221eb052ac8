package routes

import (
	"time"

	"Gin_postgres_redis_lending/app"
	"Gin_postgres_redis_lending/controllers"

	"github.com/gin-gonic/gin"
)

const lastSeenThrottle = 5 * time.Minute

func RegisterRoutes(r *gin.Engine, a *app.App) {
	s := controllers.GetSrv(a)
	authCtl := controllers.NewAuthController(s)
	userCtl := controllers.NewUserController(s)
	invCtl := controllers.NewInventoryController(s)
	borrowCtl := controllers.NewBorrowController(s)
	borrowerCtl := controllers.NewBorrowerController(s)
	scanCtl := controllers.NewScanController(s)
	reportsCtl := controllers.NewReportsController(s)
	aiCtl := controllers.NewAIController(s)

	authMW := app.AuthRequired(a.Sessions, a.Signer, a.Repo)
	seenMW := app.TouchLastSeen(a.Repo, a.RDB, lastSeenThrottle)

	// ------------------------------
	// Accounts
	// ------------------------------
	auth := r.Group("/api/auth")
	{
		auth.POST("/register", authCtl.Register)
		auth.POST("/login", authCtl.Login)
	}
	session := r.Group("/api/auth", authMW, seenMW)
	{
		session.GET("/me", authCtl.Me)
		session.POST("/logout", authCtl.Logout)
	}

	// everything below needs an approved account
	api := r.Group("/api", authMW, app.ApprovedOnly(), seenMW)

	users := api.Group("/users", app.AdminOnly())
	{
		users.GET("", userCtl.ListUsers) // ?q=&page=&size=
		users.GET("/:id", userCtl.GetUser)
		users.DELETE("/:id", userCtl.DeleteUser)
		users.PUT("/:id/role", userCtl.SetRole)
	}

	regs := api.Group("/admin/registrations", app.AdminOnly())
	{
		regs.GET("/pending", userCtl.PendingRegistrations)
		regs.POST("/:id/approve", userCtl.ApproveRegistration)
		regs.POST("/:id/reject", userCtl.RejectRegistration)
	}

	// ------------------------------
	// Inventory
	// ------------------------------
	staff := api.Group("/admin", app.HandlerOrAdmin())
	{
		staff.GET("/categories", invCtl.AdminCategories)
		staff.GET("/categories/:id/items", invCtl.AdminCategoryItems)
		staff.GET("/inventory", reportsCtl.Utilization)
	}
	inventory := api.Group("/admin", app.AdminOnly())
	{
		inventory.POST("/categories/:id/items", invCtl.CreateItem)
		inventory.POST("/items/:id/instances", invCtl.AddInstance)
		inventory.PATCH("/instances/:id", invCtl.UpdateInstance)
		inventory.DELETE("/instances/:id", invCtl.DeleteInstance)
	}

	// ------------------------------
	// Borrows (staff)
	// ------------------------------
	{
		staff.GET("/borrows/active", borrowCtl.Active)
		staff.GET("/borrows/archived", borrowCtl.Archived) // ?status=
		staff.GET("/borrows/all", borrowCtl.All)
		staff.GET("/borrows/:id", borrowCtl.Detail)
	}
	requests := api.Group("/borrow-requests")
	{
		requests.POST("", borrowCtl.CreateRequest)
		requests.GET("/pending", app.HandlerOrAdmin(), borrowCtl.Pending)
		requests.POST("/:id/approve", app.HandlerOrAdmin(), borrowCtl.Approve)
		requests.POST("/:id/reject", app.HandlerOrAdmin(), borrowCtl.Reject)
	}
	borrows := api.Group("/borrows", app.HandlerOrAdmin())
	{
		borrows.POST("/walk-in", borrowCtl.WalkIn)
		borrows.POST("/:id/return", borrowCtl.Return)
		borrows.POST("/:id/mark-late", borrowCtl.MarkLate)
		borrows.POST("/:id/mark-not-returned", borrowCtl.MarkNotReturned)
		borrows.POST("/:id/extend-due", borrowCtl.ExtendDue)
		borrows.POST("/:id/notes", borrowCtl.AddNote)
	}
	scan := api.Group("/scan", app.HandlerOrAdmin())
	{
		scan.GET("/item/:barcode", scanCtl.ScanItem)
		scan.GET("/user/:rfid", scanCtl.ScanUser)
	}

	// ------------------------------
	// Borrower self-service
	// ------------------------------
	borrower := api.Group("/borrower", app.BorrowerOnly())
	{
		borrower.GET("/stats", borrowerCtl.Stats)
		borrower.GET("/borrows", borrowerCtl.MyBorrows) // ?status=active|pending|history&limit=
		borrower.GET("/categories", invCtl.BorrowerCategories)
		borrower.GET("/categories/:id/items", invCtl.BorrowerCategoryItems)
		borrower.POST("/request", borrowerCtl.RequestBorrow)
		borrower.GET("/notifications", borrowerCtl.Notifications)
		borrower.GET("/notifications/count", borrowerCtl.NotificationCount)
	}

	// ------------------------------
	// Reports and summaries
	// ------------------------------
	{
		staff.GET("/dashboard", reportsCtl.Dashboard)
		staff.GET("/analytics", reportsCtl.Analytics)
		staff.GET("/reports/export", reportsCtl.Export)

		staff.GET("/ai/recommendations", aiCtl.Recommendations)
		staff.GET("/ai/inventory-analysis", aiCtl.InventoryAnalysis)
		staff.GET("/ai/borrow-analysis", aiCtl.BorrowAnalysis)
		staff.GET("/ai/user-behavior", aiCtl.UserBehavior)
		staff.POST("/ai/custom-analysis", aiCtl.CustomAnalysis)
	}
}
