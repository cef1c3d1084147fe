package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"reward-collect-system/handlers"
	"reward-collect-system/middleware"
	"reward-collect-system/models"
	"reward-collect-system/services"
	"reward-collect-system/storage"
	"reward-collect-system/utils"
	"reward-collect-system/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}

	app := fiber.New(fiber.Config{
		BodyLimit: 10 * 1024 * 1024, // 10MB for collection import documents
	})

	// 🔐 GLOBAL: Only Gateway requests allowed — no exceptions
	app.Use(middleware.GatewayAuthMiddleware())

	// Load allowed origins from environment variable
	allowedOriginsEnv := os.Getenv("ALLOWED_ORIGINS")
	if allowedOriginsEnv == "" {
		log.Println("⚠️  ALLOWED_ORIGINS environment variable not set, using default: http://localhost:3000")
		allowedOriginsEnv = "http://localhost:3000"
	}
	allowedOriginsList := strings.Split(allowedOriginsEnv, ",")
	for i, origin := range allowedOriginsList {
		allowedOriginsList[i] = strings.TrimSpace(origin)
	}
	allowedOriginsString := strings.Join(allowedOriginsList, ",")

	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOriginsString,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, User-Agent, Cache-Control, X-User-ID, X-Device-ID",
		ExposeHeaders:    "Content-Length, Content-Type, Authorization, X-Request-ID",
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
	}))

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}

	backupsEnabled := true
	if err := utils.InitR2(); err != nil {
		log.Printf("⚠️  R2 not configured, collection backups disabled: %v", err)
		backupsEnabled = false
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	if err := db.AutoMigrate(
		&storage.Entry{},
		&models.ScanCode{},
		&models.CheckinLocation{},
		&models.CatalogVideo{},
	); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	store := storage.NewGormStore(db)
	ledgerService := services.NewLedgerService(store)
	cooldownService := services.NewCooldownService(store)
	watchService := services.NewWatchService(store)
	catalogService := services.NewCatalogService(db)

	if err := catalogService.SeedCatalog(); err != nil {
		log.Fatal("failed to seed catalog:", err)
	}

	actionService := services.NewActionService(ledgerService, cooldownService, watchService, catalogService)
	collectionService := services.NewCollectionService(ledgerService)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	flushWorker := workers.NewFlushWorker(ledgerService, cooldownService, watchService)
	go workers.PollFlush(ctx, flushWorker, 10*time.Second)

	var backup func()
	if backupsEnabled {
		backup = func() {
			for _, userID := range ledgerService.Users() {
				payload, err := ledgerService.Export(userID)
				if err != nil {
					log.Printf("[Backup] export failed for %s: %v", userID, err)
					continue
				}
				key := "backups/" + userID + "/" + time.Now().Format("2006-01-02") + ".json"
				if _, err := utils.UploadBackupToR2(payload, key); err != nil {
					log.Printf("[Backup] upload failed for %s: %v", userID, err)
				}
			}
		}
	}
	services.StartMaintenanceScheduler(watchService, backup)

	handlers.SetupActionRoutes(app, actionService)
	handlers.SetupCollectionRoutes(app, collectionService)

	go func() {
		if err := app.Listen(":5300"); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Println("✅ Server running on http://localhost:5300")
	log.Println("✅ Flush worker running (every 10s)")
	log.Println("✅ GatewayAuthMiddleware enforced globally — all requests must come from Gateway")
	log.Printf("✅ CORS configured for origins: %s", allowedOriginsString)

	<-ctx.Done()
	log.Println("Shutting down server...")
	_ = app.ShutdownWithTimeout(5 * time.Second)
}
