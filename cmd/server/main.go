package main // Entry point package

import (
	"context"   // root context for background workers
	"errors"    // server-closed check
	"log"       // Logging library
	"net/http"  // ErrServerClosed
	"os"        // signal source
	"os/signal" // graceful shutdown
	"syscall"   // SIGTERM
	"time"      // shutdown deadline

	"github.com/labstack/echo/v4"                   // Echo web framework
	echomw "github.com/labstack/echo/v4/middleware" // Recover and RequestID

	"github.com/iliyamo/wellness-api/internal/auth"       // token issuing and session resolution
	"github.com/iliyamo/wellness-api/internal/clock"      // wall clock and local calendar
	"github.com/iliyamo/wellness-api/internal/config"     // Internal config loader
	"github.com/iliyamo/wellness-api/internal/database"   // MySQL connection and schema
	"github.com/iliyamo/wellness-api/internal/handler"    // HTTP handlers
	"github.com/iliyamo/wellness-api/internal/middleware" // request log
	"github.com/iliyamo/wellness-api/internal/queue"      // meal events
	"github.com/iliyamo/wellness-api/internal/repository" // data access
	"github.com/iliyamo/wellness-api/internal/router"     // Internal router setup
	"github.com/iliyamo/wellness-api/internal/service"    // business logic
	"github.com/iliyamo/wellness-api/internal/storage"    // S3 uploads
	"github.com/iliyamo/wellness-api/internal/upstream"   // food classifier client
)

func main() {
	cfg := config.Load() // Load environment config

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()
	if err := database.Migrate(ctx, db); err != nil { // create tables and seed the food catalog
		log.Fatalf("migrate: %v", err)
	}

	clk := clock.System{}
	cal := clock.NewCalendar(cfg.Location())

	issuer, err := auth.NewIssuer(cfg.JWTSecret, cfg.JWTAlgorithm, cfg.AccessTTL(), cfg.RefreshTTL())
	if err != nil {
		log.Fatalf("jwt: %v", err)
	}

	users := repository.NewUserRepo(db)
	creds := repository.NewCredentialRepo(db)
	recRepo := repository.NewRecommendationRepo(db)
	totals := repository.NewDailyTotalRepo(db)
	mealRepo := repository.NewMealLogRepo(db)
	foods := repository.NewFoodRepo(db)
	requestLogs := repository.NewRequestLogRepo(db)

	resolver := auth.NewResolver(db, issuer, creds, users, clk)
	recs := service.NewRecommendationService(users, recRepo, clk)
	intake := service.NewIntakeService(db, totals, recs, cal, clk)
	accounts := service.NewAccountService(db, users, creds, issuer, recs, intake, clk, cfg.BcryptCost)

	store, err := storage.NewS3Store(ctx, cfg.S3Region, cfg.S3PublicBaseURL)
	if err != nil {
		log.Fatalf("s3: %v", err)
	}
	classifier := upstream.NewClassifierClient(cfg.ClassifierURL, cfg.ClassifierTimeout, cfg.ClassifierRPS)
	publisher := queue.NewPublisher(cfg.RabbitURL)
	meals := service.NewMealService(db, mealRepo, foods, recs, intake, store, cfg.S3Bucket, classifier, publisher, cal, clk)

	consumer := queue.NewMealConsumer(cfg.RabbitURL, "")
	go func() { // meal event log writer; reconnects until ctx is done
		if err := consumer.Run(ctx); err != nil && ctx.Err() == nil {
			log.Printf("consumer: stopped: %v", err)
		}
	}()

	archiver := service.NewLogArchiver(requestLogs, store, cfg.S3Bucket, cal, clk, cfg.LogRetentionDays)
	scheduler, err := archiver.Start(cfg.LogArchiveSchedule)
	if err != nil {
		log.Fatalf("log archive: %v", err)
	}
	defer scheduler.Stop()

	rdb := config.NewRedisClient() // nil when redis is unreachable
	if rdb != nil {
		defer rdb.Close()
	}

	e := echo.New() // Create Echo instance
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(middleware.RequestLog(requestLogs, clk)) // persisted for the nightly export

	router.RegisterRoutes(e, router.Handlers{
		Health:    handler.Health(db),
		Auth:      handler.NewAuthHandler(accounts, resolver),
		Meals:     handler.NewMealHandler(meals, intake),
		Nutrients: handler.NewNutrientHandler(intake),
		Foods:     handler.NewFoodHandler(foods),
	}, resolver, rdb, config.LoadRateLimitConfig(), config.LoadCacheConfig())

	addr := ":" + cfg.Port                                                    // Address string with port
	log.Printf("listening on %s (env=%s tz=%s)", addr, cfg.Env, cfg.TimeZone) // Print startup info

	go func() {
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) { // Start HTTP server
			log.Fatal(err) // Log and exit if server fails
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}
