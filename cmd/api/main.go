package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-co-op/gocron"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"github.com/mentorlink/backend/internal/config"
	"github.com/mentorlink/backend/internal/database"
	"github.com/mentorlink/backend/internal/handlers"
	"github.com/mentorlink/backend/internal/jobs"
	"github.com/mentorlink/backend/internal/middleware"
	"github.com/mentorlink/backend/internal/queue"
	"github.com/mentorlink/backend/internal/routes"
	"github.com/mentorlink/backend/internal/services/booking"
	"github.com/mentorlink/backend/internal/services/payment"
	"github.com/mentorlink/backend/internal/services/payment/providers/duitku"
	"github.com/mentorlink/backend/internal/services/purchase"
	"github.com/mentorlink/backend/internal/services/referral"
	"github.com/mentorlink/backend/internal/services/session"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}

	cfg := config.LoadConfig()

	db, err := database.InitDB(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.URL,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}

	// Services
	bookingSvc := booking.NewBookingService(db, booking.WithSerializableTransactions())
	purchaseSvc := purchase.NewPurchaseService(db, purchase.WithSerializableTransactions())
	referralSvc := referral.NewReferralService(db)
	sessionSvc := session.NewSessionService(db)

	gateway := duitku.NewClient(duitku.Config{
		MerchantCode: cfg.Gateway.MerchantCode,
		APIKey:       cfg.Gateway.APIKey,
		BaseURL:      cfg.Gateway.BaseURL,
		CallbackURL:  cfg.Gateway.CallbackURL,
		ReturnURL:    cfg.Gateway.ReturnURL,
		ExpiryPeriod: cfg.Gateway.ExpiryPeriod,
	})
	paymentSvc := payment.NewPaymentService(db, gateway)

	// Background jobs
	jobQueue := queue.NewQueue(redisClient)
	notification := jobs.RegisterAllJobHandlers(jobQueue, db)
	go jobQueue.StartWorker(context.Background())

	scheduler := gocron.NewScheduler(time.UTC)
	bookingTTL := time.Duration(cfg.Booking.ExpiryHours) * time.Hour
	if err := jobs.ScheduleRecurringJobs(scheduler, bookingSvc, notification, bookingTTL); err != nil {
		log.Fatalf("Failed to schedule recurring jobs: %v", err)
	}
	scheduler.StartAsync()

	// HTTP surface
	router := gin.Default()
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
	}))

	rateLimiter := middleware.NewRateLimiter(20, 40)
	defer rateLimiter.Stop()

	routes.SetupRoutes(
		router,
		handlers.NewBookingHandler(bookingSvc, notification),
		handlers.NewReferralHandler(referralSvc),
		handlers.NewPaymentHandler(paymentSvc),
		handlers.NewSessionHandler(sessionSvc),
		handlers.NewPurchaseHandler(purchaseSvc),
		rateLimiter,
	)

	fmt.Printf("MentorLink API server running on port %s\n", cfg.Server.Port)
	if err := router.Run(":" + cfg.Server.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
