package main

import (
	"log"
	"os"

	_ "oryon/api/swagger" // swagger docs
	"oryon/internal/client"
	"oryon/internal/database"
	"oryon/internal/handler"
	"oryon/internal/middleware"
	"oryon/internal/repository"
	"oryon/internal/service"
	"oryon/internal/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title           Oryon App API
// @version         1.0
// @description     Multi-branch repair shop backend: repair orders, inventory and invoicing.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	if err := godotenv.Load("configs/.env"); err != nil {
		log.Println("No configs/.env file found or error loading it")
	}

	dbHost := os.Getenv("DB_HOST")
	dbPort := os.Getenv("DB_PORT")
	dbUser := os.Getenv("DB_USER")
	dbPassword := os.Getenv("DB_PASSWORD")
	dbName := os.Getenv("DB_NAME")
	dbSslMode := os.Getenv("DB_SSLMODE")

	if dbHost == "" {
		dbHost = "localhost"
	}
	if dbPort == "" {
		dbPort = "5432"
	}
	if dbUser == "" {
		dbUser = "postgres"
	}
	if dbPassword == "" {
		dbPassword = "postgres"
	}
	if dbName == "" {
		dbName = "oryon"
	}
	if dbSslMode == "" {
		dbSslMode = "disable"
	}

	dsn := "postgres://" + dbUser + ":" + dbPassword + "@" + dbHost + ":" + dbPort + "/" + dbName + "?sslmode=" + dbSslMode

	db, err := database.NewConnection(dsn)
	if err != nil {
		log.Fatalf("Database connection failed: %v", err)
	}
	log.Println("Connected to PostgreSQL successfully.")

	// Set up WebSocket Hub
	wsHub := websocket.NewHub()
	go wsHub.Run()

	// External services
	assets := client.NewAssetStore(os.Getenv("ASSET_STORE_URL"))
	printer := client.NewTicketPrinter(os.Getenv("PRINT_SERVICE_URL"))

	// Set up dependencies (Repository -> Service -> Handler)
	txManager := repository.NewTransactionManager(db)
	userRepo := repository.NewUserRepository(db)
	branchRepo := repository.NewBranchRepository(db)
	customerRepo := repository.NewCustomerRepository(db)
	repairRepo := repository.NewRepairRepository(db)
	productRepo := repository.NewProductRepository(db)
	unitRepo := repository.NewUnitRepository(db)
	variantRepo := repository.NewVariantRepository(db)
	transactionRepo := repository.NewTransactionRepository(db)
	saleRepo := repository.NewSaleRepository(db)

	userService := service.NewUserService(userRepo)
	branchService := service.NewBranchService(branchRepo)
	customerService := service.NewCustomerService(customerRepo)
	repairService := service.NewRepairService(repairRepo, customerRepo, saleRepo, txManager, assets, printer, wsHub)
	inventoryService := service.NewInventoryService(productRepo, unitRepo, variantRepo, transactionRepo, txManager, wsHub,
		os.Getenv("STRICT_VARIANT_DELETE") == "true")
	transactionService := service.NewTransactionService(transactionRepo)
	saleService := service.NewSaleService(saleRepo)

	// Initialize Handlers
	userHandler := handler.NewUserHandler(userService)
	branchHandler := handler.NewBranchHandler(branchService)
	customerHandler := handler.NewCustomerHandler(customerService)
	repairHandler := handler.NewRepairHandler(repairService)
	inventoryHandler := handler.NewInventoryHandler(inventoryService)
	transactionHandler := handler.NewTransactionHandler(transactionService)
	saleHandler := handler.NewSaleHandler(saleService)

	// Set up Gin Router
	router := gin.Default()

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{"http://localhost:5173", "http://127.0.0.1:5173"}
	if origins := os.Getenv("CORS_ORIGINS"); origins != "" {
		corsConfig.AllowOrigins = append(corsConfig.AllowOrigins, origins)
	}
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	// Swagger route
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "OK"})
	})

	// WebSocket endpoint
	router.GET("/ws", func(c *gin.Context) {
		websocket.ServeWs(wsHub, c, middleware.GetJWTSecret())
	})

	// Register API Routes
	userHandler.RegisterRoutes(router.Group(""))
	branchHandler.RegisterRoutes(router.Group(""))
	customerHandler.RegisterRoutes(router.Group(""))
	repairHandler.RegisterRoutes(router.Group(""))
	inventoryHandler.RegisterRoutes(router.Group(""))
	transactionHandler.RegisterRoutes(router.Group(""))
	saleHandler.RegisterRoutes(router.Group(""))

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("Server listening on :%s", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
