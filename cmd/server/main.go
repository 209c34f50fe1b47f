package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/robfig/cron"
	config "github.com/rosterline/backstage/configs"
	"github.com/rosterline/backstage/internal/api/handlers"
	"github.com/rosterline/backstage/internal/api/middleware"
	job "github.com/rosterline/backstage/internal/jobs"
	"github.com/rosterline/backstage/internal/queue"
	"github.com/rosterline/backstage/internal/repository"
	"github.com/rosterline/backstage/internal/service"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Failed to load environment variables", err)
	}

	cfg := config.LoadConfig()

	db, err := sql.Open("postgres", cfg.PostgresURI)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer closeDB(db)

	if err := db.Ping(); err != nil {
		log.Fatalf("Database is unreachable: %v", err)
	}

	redisConn := asynq.RedisClientOpt{Addr: cfg.RedisURI}
	client := asynq.NewClient(redisConn)
	defer client.Close()

	app := fiber.New(fiber.Config{
		ReadTimeout:  10 * time.Minute,
		WriteTimeout: 10 * time.Minute,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			log.Printf("Error: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		},
	})

	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOriginsFunc: func(origin string) bool {
			return true
		},
		AllowMethods:     "GET,POST,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
		MaxAge:           3600,
	}))

	postRepo := repository.NewPostRepository(db)
	artistRepo := repository.NewArtistRepository(db)
	credentialRepo := repository.NewCredentialRepository(db)
	snapshotRepo := repository.NewSnapshotRepository(db)

	archiveService, err := service.NewArchiveService(*cfg)
	if err != nil {
		log.Fatalf("Failed to configure archive storage: %v", err)
	}
	snapshotWriter := service.NewSnapshotWriter(snapshotRepo, archiveService)
	tiktokService := service.NewTiktokService(*cfg, credentialRepo, snapshotWriter)
	instagramService := service.NewInstagramService(*cfg, credentialRepo, snapshotWriter)
	youtubeService := service.NewYoutubeService(*cfg, credentialRepo, artistRepo, snapshotWriter)
	collectorService := service.NewCollectorService(postRepo, snapshotRepo, tiktokService, instagramService, youtubeService)

	cronMiddleware := middleware.NewCronMiddleware(*cfg)

	auth := handlers.NewAuthHandler(tiktokService, youtubeService, *cfg)
	app.Get("/auth/tiktok", auth.TiktokAuthStart)
	app.Get("/auth/tiktok/callback", auth.TiktokAuthCallback)
	app.Get("/auth/youtube", auth.YoutubeAuthStart)
	app.Get("/auth/youtube/callback", auth.YoutubeAuthCallback)

	metrics := handlers.NewMetricsHandler(collectorService, *cfg)
	api := app.Group("/api/metrics")

	batchAuth := cronMiddleware.RequireSecret(false)
	api.Get("/instagram-batch", batchAuth, metrics.InstagramBatch)
	api.Post("/instagram-batch", batchAuth, metrics.InstagramBatch)
	api.Get("/tiktok-batch", batchAuth, metrics.TiktokBatch)
	api.Post("/tiktok-batch", batchAuth, metrics.TiktokBatch)
	api.Get("/youtube-batch", batchAuth, metrics.YoutubeBatch)

	manualAuth := cronMiddleware.RequireSecret(true)
	api.Get("/instagram-single", manualAuth, metrics.InstagramSingle)
	api.Get("/tiktok-single", manualAuth, metrics.TiktokSingle)
	api.Get("/youtube-single", manualAuth, metrics.YoutubeSingle)
	api.Get("/collect-all", manualAuth, metrics.CollectAll)

	// cron jobs
	collectJob := job.NewCollectMetricsJob(client)

	// queue
	queueW := queue.NewQueue(collectorService)

	c := cron.New()
	c.AddFunc("@every 06h00m00s", collectJob.EnqueueAll)
	c.Start()

	go func() {
		server := asynq.NewServer(redisConn, asynq.Config{
			Concurrency: 3,
		})

		mux := asynq.NewServeMux()
		mux.HandleFunc(queue.TaskTypeCollectMetrics, queueW.HandleCollectMetricsTask)

		log.Println("Starting the Asynq server...")
		if err := server.Run(mux); err != nil {
			log.Fatalf("Could not start Asynq server: %v", err)
		}
	}()

	go func() {
		if err := app.Listen(":3000"); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()
	log.Println("Server is running on http://localhost:3000")

	gracefulShutdown(app, db)
}

func closeDB(db *sql.DB) {
	fmt.Fprint(os.Stdout, "Closing database connection... ")
	if err := db.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to close database: %v", err)
		return
	}
	fmt.Fprintln(os.Stdout, "Done")
}

func gracefulShutdown(app *fiber.App, db *sql.DB) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	<-quit
	log.Println("Shutting down server...")

	if err := app.Shutdown(); err != nil {
		log.Fatalf("Failed to shut down server: %v", err)
	}

	closeDB(db)
	log.Println("Server shutdown complete.")
}
