package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/quantdesk/usdthub/db"
	"github.com/quantdesk/usdthub/lib"
	"github.com/quantdesk/usdthub/lib/service"
	"github.com/quantdesk/usdthub/tron"
	"github.com/quantdesk/usdthub/wallet"
)

// one-shot job to reconcile open orders and expire stale ones, for ops use
// alongside (or instead of) the server's background routines
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

	allocator, err := wallet.NewAllocator(c.Xpub)
	if err != nil {
		logger.Fatalf("Error loading extended public key: %v", err)
	}

	plans, err := c.MembershipPlans()
	if err != nil {
		logger.Fatalf("Error loading membership plans: %v", err)
	}

	svc := &service.PaymentService{
		Config:    c,
		DB:        dbConn,
		Allocator: allocator,
		Oracle: tron.NewTronGridClient(c.TronGridBaseUrl, c.UsdtContractAddress,
			tron.WithAPIKey(c.TronGridApiKey),
			tron.WithHTTPTimeout(time.Duration(c.OracleTimeout)*time.Second),
			tron.WithTronGridLogger(logger),
		),
		Logger: logger,
		Plans:  plans,
	}

	ctx := context.Background()
	expired, err := svc.ExpirePendingOrders(ctx)
	if err != nil {
		sentry.CaptureException(err)
		svc.Logger.Error(err)
	} else if expired > 0 {
		svc.Logger.Infof("Expired %d stale orders", expired)
	}
	if err := svc.ReconcileAll(ctx); err != nil {
		sentry.CaptureException(err)
		svc.Logger.Error(err)
	}
}
