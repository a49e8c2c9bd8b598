package main

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	appConfig "github.com/cyclopick/cyclopick-api/config"
	"github.com/cyclopick/cyclopick-api/controllers"
	"github.com/cyclopick/cyclopick-api/middleware"
	"github.com/cyclopick/cyclopick-api/models"
	"github.com/cyclopick/cyclopick-api/services"
)

func main() {
	// Basic logging
	log.Println("Starting CycloPick service API...")

	// Load configuration
	cfg, err := appConfig.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	appConfig.SetConfig(cfg)

	// Connect to database
	if err := appConfig.ConnectDatabase(); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Auto-migrate database models
	db := appConfig.GetDB()
	if err := db.AutoMigrate(&models.Technician{}, &models.Order{}, &models.OrderImage{}); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}
	log.Println("Database migration completed successfully")

	// Initialize the object store
	s3Service, err := services.InitS3Service()
	if err != nil {
		log.Fatalf("Failed to initialize S3 service: %v", err)
	}

	// Initialize services
	services.InitWorkflowService(db, services.NewGormTransitionApplier(db))
	services.InitImageUploadService(db, s3Service, services.NewUploader(), services.CompressionOptions{
		MaxWidth:  cfg.ImageMaxWidth,
		MaxHeight: cfg.ImageMaxHeight,
		Quality:   cfg.ImageQuality,
		Format:    "jpeg",
	})

	router := setupRouter(cfg)

	// Start server
	port := ":" + cfg.Port
	log.Printf("Server is running on http://localhost%s", port)
	if err := router.Run(port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// setupRouter creates the Gin engine with all routes registered. Staff
// routes are protected by the Auth0 JWT middleware when Auth0 is
// configured; without it they stay open, which is only acceptable for
// local development and tests.
func setupRouter(cfg *appConfig.Config) *gin.Engine {
	router := gin.Default()

	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"https://cyclopick.com", "http://localhost:4200"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		// Health check endpoint
		v1.GET("/health", healthCheck)

		// Database status endpoint
		v1.GET("/database/status", databaseStatus)

		// Public booking surface
		v1.POST("/orders", controllers.CreateReservation)
		v1.GET("/orders/:id", controllers.GetOrder)
	}

	// Staff surface
	staff := router.Group("/api/v1")
	if cfg != nil && cfg.Auth0Domain != "" {
		staff.Use(middleware.EnsureValidToken(cfg))
	} else {
		log.Println("WARNING: Auth0 not configured, staff endpoints are unprotected")
	}
	{
		staff.GET("/orders", controllers.GetWeekOrders)
		staff.POST("/orders/walk-in", controllers.CreateWalkIn)
		staff.PUT("/orders/:id", controllers.UpdateOrder)
		staff.PUT("/orders/:id/status", controllers.UpdateOrderStatus)
		staff.POST("/orders/:id/actions", controllers.PerformOrderAction)
		staff.DELETE("/orders/:id", controllers.DeleteOrder)

		staff.POST("/orders/:id/images", controllers.InitiateImageUpload)
		staff.POST("/orders/:id/images/upload", controllers.UploadOrderImages)
		staff.POST("/orders/:id/images/:imageId/confirm", controllers.ConfirmImageUpload)
		staff.GET("/orders/:id/images", controllers.ListOrderImages)
		staff.DELETE("/orders/:id/images/:imageId", controllers.DeleteOrderImage)
	}

	return router
}

// healthCheck handles the health check endpoint
func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "CycloPick API is running",
	})
}

// databaseStatus checks database connectivity and returns table information
func databaseStatus(c *gin.Context) {
	db := appConfig.GetDB()

	// Get the underlying SQL database to check connection
	sqlDB, err := db.DB()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to get database instance",
			},
		})
		return
	}

	// Ping the database to verify connection
	if err := sqlDB.Ping(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_CONNECTION_ERROR",
				"message": "Database connection failed",
			},
		})
		return
	}

	// Get list of tables
	var tables []string
	if err := db.Raw("SELECT tablename FROM pg_tables WHERE schemaname = 'public'").Scan(&tables).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_QUERY_ERROR",
				"message": "Failed to query tables",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Database connected",
		"tables":  tables,
	})
}
