package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"pg-hostel/metrics"
	"pg-hostel/middleware"
)

// RouterOptions wiring for SetupRouter.
type RouterOptions struct {
	Metrics      *metrics.Metrics
	Gatherer     prometheus.Gatherer // nil uses the default gatherer
	CORSOrigins  []string
	LoginLimiter *middleware.IPRateLimiter
	UploadDir    string // served under /uploads when set
}

// SetupRouter builds the gin engine with every route.
func SetupRouter(h *Handler, opts RouterOptions) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.CORS(opts.CORSOrigins))
	if opts.Metrics != nil {
		r.Use(middleware.Metrics(opts.Metrics))
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "PG management backend is running",
		})
	})

	gatherer := opts.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	if opts.UploadDir != "" {
		r.Static("/uploads", opts.UploadDir)
	}

	api := r.Group("/api")
	{
		public := api.Group("/public")
		{
			login := []gin.HandlerFunc{h.Login}
			if opts.LoginLimiter != nil {
				login = append([]gin.HandlerFunc{middleware.RateLimit(opts.LoginLimiter)}, login...)
			}
			public.POST("/login", login...)
		}

		auth := api.Group("/auth")
		auth.Use(middleware.AuthMiddleware())
		{
			auth.GET("/notices", h.ListNotices)
			auth.GET("/notices/stream", h.NoticeStream)
			auth.GET("/rooms/available", h.GetAvailableRooms)
		}

		tenant := api.Group("/tenant")
		tenant.Use(middleware.AuthMiddleware(), middleware.TenantMiddleware())
		{
			tenant.GET("/me", h.Me)
			tenant.PUT("/password", h.ChangePassword)
			tenant.GET("/bills", h.GetMyBills)
			tenant.POST("/rent", h.SubmitRentProof)
			tenant.GET("/rent", h.GetMyRentProofs)
			tenant.POST("/complaints", h.LodgeComplaint)
			tenant.GET("/complaints", h.GetMyComplaints)
			tenant.POST("/payments/order", h.CreatePaymentOrder)
			tenant.POST("/payments/verify", h.VerifyPayment)
		}

		admin := api.Group("/admin")
		admin.Use(middleware.AuthMiddleware(), middleware.AdminMiddleware())
		{
			admin.POST("/tenants", h.CreateTenant)
			admin.GET("/tenants", h.ListTenants)
			admin.GET("/tenants/:id", h.GetTenant)
			admin.POST("/tenants/:id/checkout", h.CheckoutTenant)
			admin.POST("/tenants/transfer", h.TransferTenant)
			admin.GET("/history", h.GetHistory)

			admin.GET("/rooms", h.GetAllRooms)
			admin.POST("/rooms/seed", h.SeedRooms)
			admin.POST("/rooms/reconcile", h.ReconcileRooms)
			admin.PUT("/rooms/:room_no/price", h.UpdateRoomPrice)
			admin.GET("/rooms/:room_no/operations", h.GetRoomOperations)

			admin.GET("/bills", h.ListBills)
			admin.POST("/bills/generate", h.GenerateBills)
			admin.POST("/bills/electricity", h.CreateElectricityBills)

			admin.GET("/rent", h.ListRentProofs)
			admin.PUT("/rent/:id", h.ReviewRentProof)
			admin.GET("/rent/track", h.TrackRent)
			admin.GET("/rent/export", h.ExportRent)

			admin.GET("/complaints", h.ListComplaints)
			admin.PUT("/complaints/:id", h.UpdateComplaintStatus)
			admin.POST("/notices", h.PostNotice)

			admin.GET("/scheduler/status", h.GetSchedulerStatus)
		}
	}

	return r
}
