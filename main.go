package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/PatGaj/SnakeCoder-sub000/handlers"
	"github.com/PatGaj/SnakeCoder-sub000/middleware"
	"github.com/PatGaj/SnakeCoder-sub000/models"
	"github.com/PatGaj/SnakeCoder-sub000/services"
	"github.com/PatGaj/SnakeCoder-sub000/utils"
	"github.com/PatGaj/SnakeCoder-sub000/workers"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}

	app := fiber.New(fiber.Config{
		BodyLimit: 1 * 1024 * 1024, // 1MB — code submissions only
	})

	// 🔐❗ GLOBAL: Only Gateway requests allowed — no exceptions
	app.Use(middleware.GatewayAuthMiddleware())

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
		AllowHeaders:     "Origin, Content-Type, Accept, Accept-Language, Authorization, X-Requested-With, X-Request-ID, X-User-ID",
		ExposeHeaders:    "Content-Length, Content-Type, X-Request-ID",
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
	}))

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}

	if err := utils.InitR2(); err != nil {
		log.Fatal("failed to initialize R2 client:", err)
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.Module{},
		&models.Sprint{},
		&models.Mission{},
		&models.TaskDetail{},
		&models.TaskTestCase{},
		&models.QuizQuestion{},
		&models.QuizOption{},
		&models.ArticleDetail{},
		&models.UserMissionProgress{},
		&models.TaskSubmission{},
		&models.QuizAttempt{},
		&models.TaskReview{},
		&models.AnalyticsLog{},
	); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	executorURL := os.Getenv("EXECUTOR_BASE_URL")
	if executorURL == "" {
		log.Fatal("EXECUTOR_BASE_URL environment variable not set")
	}
	executorSecret := os.Getenv("EXECUTOR_JWT_SECRET")
	if executorSecret == "" {
		log.Fatal("EXECUTOR_JWT_SECRET environment variable not set")
	}
	executor := services.NewExecutorClient(executorURL, executorSecret, os.Getenv("EXECUTOR_TASK_ID_PREFIX"))

	reviewModel := os.Getenv("OPENAI_REVIEW_MODEL")
	var reviewer services.Reviewer
	openAIKey := os.Getenv("OPENAI_API_KEY")
	if openAIKey == "" {
		log.Println("⚠️  OPENAI_API_KEY not set — code reviews disabled")
	} else {
		openAIReviewer := services.NewOpenAIReviewer(openAIKey, reviewModel)
		reviewer = openAIReviewer
		reviewModel = openAIReviewer.Model
	}

	missionService := services.NewMissionService(db)
	executionService := services.NewExecutionService(db, executor)
	quizService := services.NewQuizService(db)
	reviewService := services.NewReviewService(db, reviewer, reviewModel)
	dashboardService := services.NewDashboardService(db)
	userService := services.NewUserService(db)
	analyticsService := services.NewAnalyticsService(db)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	resetScheduler, err := workers.StartXPResetWorker(db)
	if err != nil {
		log.Fatal("failed to start XP reset worker:", err)
	}
	defer func() {
		if err := resetScheduler.Shutdown(); err != nil {
			log.Printf("XP reset worker shutdown: %v", err)
		}
	}()

	// ✅ Setup routes — gateway auth enforced globally above
	handlers.SetupMissionRoutes(app, missionService, executionService, quizService, reviewService)
	handlers.SetupDashboardRoutes(app, dashboardService)
	handlers.SetupUserRoutes(app, userService, analyticsService)

	go func() {
		if err := app.Listen(":5300"); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Println("✅ Server running on http://localhost:5300")
	log.Println("✅ XP reset worker running")
	log.Println("✅ GatewayAuthMiddleware enforced globally — all requests must come from Gateway")
	log.Printf("✅ CORS configured for origins: %s", allowedOriginsString)

	<-ctx.Done()
	log.Println("Shutting down server...")
	if err := app.Shutdown(); err != nil {
		log.Printf("Server shutdown: %v", err)
	}
}
