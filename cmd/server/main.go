package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/uptrace/bun/migrate"

	"github.com/quantdesk/usdthub/db"
	"github.com/quantdesk/usdthub/db/migrations"
	"github.com/quantdesk/usdthub/lib"
	"github.com/quantdesk/usdthub/lib/service"
	"github.com/quantdesk/usdthub/lib/tokens"
	"github.com/quantdesk/usdthub/lib/transport"
	"github.com/quantdesk/usdthub/tron"
	"github.com/quantdesk/usdthub/wallet"
)

func main() {
	c := &service.Config{}

	// Load configuration from environment variables
	err := godotenv.Load(".env")
	if err != nil {
		fmt.Println("Failed to load .env file")
	}
	err = envconfig.Process("", c)
	if err != nil {
		log.Fatalf("Error loading environment variables: %v", err)
	}

	// Setup logging to STDOUT or a configured log file
	logger := lib.Logger(c.LogFilePath)

	// Open a DB connection based on the configured DATABASE_URI
	dbConn, err := db.Open(c)
	if err != nil {
		logger.Fatalf("Error initializing db connection: %v", err)
	}

	// Migrate the DB
	startupCtx := context.Background()
	migrator := migrate.NewMigrator(dbConn, migrations.Migrations)
	err = migrator.Init(startupCtx)
	if err != nil {
		logger.Fatalf("Error initializing db migrator: %v", err)
	}
	_, err = migrator.Migrate(startupCtx)
	if err != nil {
		logger.Fatalf("Error migrating database: %v", err)
	}

	// Setup exception tracking with Sentry if configured
	// sentry init needs to happen before the echo middlewares are added
	if c.SentryDSN != "" {
		if err = sentry.Init(sentry.ClientOptions{
			Dsn:              c.SentryDSN,
			IgnoreErrors:     []string{"401"},
			EnableTracing:    c.SentryTracesSampleRate > 0,
			TracesSampleRate: c.SentryTracesSampleRate,
		}); err != nil {
			logger.Errorf("sentry init error: %v", err)
		}
	}

	// A bad extended public key is a deployment problem. Deriving the first
	// index proves the whole allocation path before any order is accepted.
	allocator, err := wallet.NewAllocator(c.Xpub)
	if err != nil {
		logger.Fatalf("Error loading extended public key: %v", err)
	}
	firstAddr, err := allocator.Derive(0)
	if err != nil {
		logger.Fatalf("Error validating address derivation: %v", err)
	}
	logger.Infof("Address allocation ready, index 0 derives %s", firstAddr)

	oracle := tron.NewTronGridClient(c.TronGridBaseUrl, c.UsdtContractAddress,
		tron.WithAPIKey(c.TronGridApiKey),
		tron.WithHTTPTimeout(time.Duration(c.OracleTimeout)*time.Second),
		tron.WithTronGridLogger(logger),
	)

	plans, err := c.MembershipPlans()
	if err != nil {
		logger.Fatalf("Error loading membership plans: %v", err)
	}

	svc := &service.PaymentService{
		Config:    c,
		DB:        dbConn,
		Allocator: allocator,
		Oracle:    oracle,
		Logger:    logger,
		Plans:     plans,
	}

	// init echo server
	e := transport.InitEcho(c, logger)

	logMw := transport.CreateLoggingMiddleware(logger)
	// strict rate limit for order-mutating requests
	strictRateLimitMiddleware := transport.CreateRateLimitMiddleware(c.StrictRateLimit, c.BurstRateLimit)

	secured := e.Group("", tokens.Middleware(c.JWTSecret), logMw)
	securedWithStrictRateLimit := e.Group("", tokens.Middleware(c.JWTSecret), strictRateLimitMiddleware, logMw)

	transport.RegisterEndpoints(svc, e, secured, securedWithStrictRateLimit, strictRateLimitMiddleware, tokens.AdminTokenMiddleware(c.AdminToken), logMw)

	var backgroundWg sync.WaitGroup
	backGroundCtx, _ := signal.NotifyContext(context.Background(), os.Interrupt)

	// Periodically reconcile open orders against the chain
	backgroundWg.Add(1)
	go func() {
		err = svc.StartReconcilerRoutine(backGroundCtx)
		if err != nil && err != context.Canceled {
			sentry.CaptureException(err)
			svc.Logger.Error(err)
		}
		svc.Logger.Info("Reconciler routine done")
		backgroundWg.Done()
	}()

	// Periodically expire stale pending orders
	backgroundWg.Add(1)
	go func() {
		err = svc.StartExpirySweeperRoutine(backGroundCtx)
		if err != nil && err != context.Canceled {
			sentry.CaptureException(err)
			svc.Logger.Error(err)
		}
		svc.Logger.Info("Expiry sweeper routine done")
		backgroundWg.Done()
	}()

	// Start server
	go func() {
		if err := e.Start(fmt.Sprintf(":%v", c.Port)); err != nil && err != http.ErrServerClosed {
			e.Logger.Fatal("shutting down the server")
		}
	}()

	<-backGroundCtx.Done()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		e.Logger.Fatal(err)
	}
	// Wait for graceful shutdown of background routines
	backgroundWg.Wait()
	svc.Logger.Info("usdthub exiting gracefully. Goodbye.")
}
