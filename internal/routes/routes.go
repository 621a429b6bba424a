package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mentorlink/backend/internal/handlers"
	"github.com/mentorlink/backend/internal/middleware"
	"github.com/mentorlink/backend/internal/models"
)

// SetupRoutes wires every handler onto the router
func SetupRoutes(
	router *gin.Engine,
	bookingHandler *handlers.BookingHandler,
	referralHandler *handlers.ReferralHandler,
	paymentHandler *handlers.PaymentHandler,
	sessionHandler *handlers.SessionHandler,
	purchaseHandler *handlers.PurchaseHandler,
	rateLimiter *middleware.RateLimiter,
) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Gateway callbacks authenticate themselves with signatures, not JWTs
	webhooks := router.Group("/api/webhooks")
	{
		webhooks.POST("/payment", paymentHandler.GatewayCallback)
	}

	api := router.Group("/api")
	api.Use(rateLimiter.Middleware(), middleware.AuthMiddleware())
	{
		bookings := api.Group("/bookings")
		{
			bookings.POST("", bookingHandler.CreateBooking)
			bookings.GET("", bookingHandler.ListMyBookings)
			bookings.GET("/:id", bookingHandler.GetBooking)
			bookings.PUT("/:id", bookingHandler.UpdateBooking)
			bookings.DELETE("/:id", bookingHandler.CancelBooking)
		}

		purchases := api.Group("/purchases")
		{
			purchases.POST("", purchaseHandler.CreatePurchase)
			purchases.GET("", purchaseHandler.ListMyPurchases)
			purchases.GET("/:id", purchaseHandler.GetPurchase)
		}

		payments := api.Group("/payments")
		{
			payments.POST("/collect", paymentHandler.CreateGatewayPayment)
			payments.GET("/:id", paymentHandler.GetPayment)
		}

		referrals := api.Group("/referrals")
		{
			referrals.POST("/apply", referralHandler.ApplyReferralCode)
			referrals.POST("/codes", middleware.RoleMiddleware(models.RoleAffiliator, models.RoleAdmin), referralHandler.CreateReferralCode)
			referrals.GET("/codes", referralHandler.ListMyReferralCodes)
			referrals.GET("/codes/:id/balance", referralHandler.GetBalance)
			referrals.GET("/codes/:id/withdrawals", referralHandler.ListWithdrawals)
			referrals.GET("/commissions", referralHandler.ListMyCommissions)
			referrals.POST("/withdrawals", referralHandler.RequestWithdrawal)
		}

		sessions := api.Group("/sessions")
		{
			sessions.GET("", middleware.RoleMiddleware(models.RoleMentor, models.RoleAdmin), sessionHandler.ListMySessions)
			sessions.GET("/:id", sessionHandler.GetSession)
			sessions.PUT("/:id", middleware.RoleMiddleware(models.RoleMentor), sessionHandler.UpdateSession)
		}
	}

	admin := router.Group("/api/admin")
	admin.Use(rateLimiter.Middleware(), middleware.AuthMiddleware(), middleware.AdminMiddleware())
	{
		admin.GET("/bookings", bookingHandler.AdminListBookings)
		admin.PUT("/bookings/:id/status", bookingHandler.AdminUpdateBookingStatus)
		admin.PUT("/withdrawals/:id", referralHandler.AdminUpdateWithdrawal)
	}
}
