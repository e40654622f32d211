package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	config "github.com/declanh/threadcast/configs"
	job "github.com/declanh/threadcast/internal/jobs"
	"github.com/declanh/threadcast/internal/pipeline"
	"github.com/declanh/threadcast/internal/queue"
	"github.com/declanh/threadcast/internal/repository"
	"github.com/declanh/threadcast/internal/service"
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/robfig/cron"
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

	postRepo := repository.NewPostRepository(db)
	accountRepo := repository.NewAccountRepository(db)

	threadsService := service.NewThreadsService(*cfg, accountRepo)
	aiService, err := service.NewAIService(context.Background(), *cfg)
	if err != nil {
		log.Fatalf("Failed to create AI service: %v", err)
	}
	defer aiService.Close()

	runner := pipeline.NewRunner(postRepo, aiService, threadsService, cfg.Worker.MaxAttempts)

	schedulerJob := job.NewSchedulerJob(postRepo, runner, cfg.Worker.BatchSize, cfg.Worker.Concurrency)
	reaperJob := job.NewReaperJob(postRepo, cfg.Worker.ClaimTTL)
	refreshTokenJob := job.NewTokenRefreshJob(accountRepo, threadsService)

	c := cron.New()
	c.AddFunc(fmt.Sprintf("@every %s", cfg.Worker.TickInterval), schedulerJob.Tick)
	c.AddFunc(fmt.Sprintf("@every %s", cfg.Worker.TickInterval), reaperJob.Reap)
	c.AddFunc("@every 00h10m00s", refreshTokenJob.RefreshTokens)
	c.Start()
	log.Println("Scheduler started")

	redisConn := asynq.RedisClientOpt{Addr: cfg.RedisURI}
	server := asynq.NewServer(redisConn, asynq.Config{
		Concurrency: cfg.Worker.Concurrency,
	})

	mux := asynq.NewServeMux()
	queueW := queue.NewQueue(postRepo, runner)
	mux.HandleFunc(queue.TaskTypePublishPost, queueW.HandlePublishPostTask)

	go func() {
		log.Println("Starting the Asynq server...")
		if err := server.Run(mux); err != nil {
			log.Fatalf("Could not start Asynq server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	<-quit
	log.Println("Shutting down worker...")

	c.Stop()
	server.Shutdown()
	closeDB(db)
	log.Println("Worker shutdown complete.")
}

func closeDB(db *sql.DB) {
	fmt.Fprint(os.Stdout, "Closing database connection... ")
	if err := db.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to close database: %v", err)
		return
	}
	fmt.Fprintln(os.Stdout, "Done")
}
