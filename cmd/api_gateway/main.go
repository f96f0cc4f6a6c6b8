package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/shopspring/decimal"

	"github.com/lendhub/loan-engine/internal/api_gateway"
	"github.com/lendhub/loan-engine/internal/api_gateway/service"
	"github.com/lendhub/loan-engine/internal/config"
	"github.com/lendhub/loan-engine/internal/data/mongo"
	"github.com/lendhub/loan-engine/internal/data/postgres"
	"github.com/lendhub/loan-engine/internal/lending/amortization"
	"github.com/lendhub/loan-engine/internal/lending/capacity"
	"github.com/lendhub/loan-engine/internal/lending/guarantee"
	"github.com/lendhub/loan-engine/internal/lending/register"
	"github.com/lendhub/loan-engine/internal/logger"
	"github.com/lendhub/loan-engine/internal/platform/messaging/producers"
	"github.com/lendhub/loan-engine/internal/platform/persistence"
)

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	// Initialize configuration
	cfg, err := config.LoadConfig("api_gateway")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.NewLogger(cfg)

	// Initialize databases with app context
	postgresDB, err := persistence.NewPostgresDB(appCtx, log, &cfg.Postgres)
	if err != nil {
		log.Error("Failed to initialize PostgreSQL", "error", err)
		os.Exit(1)
	}

	mongoDB, err := persistence.NewMongoDB(appCtx, log, &cfg.MongoDB)
	if err != nil {
		log.Error("Failed to initialize MongoDB", "error", err)
		os.Exit(1)
	}

	// Initialize Kafka producers (repayment requests into the processor,
	// capacity alerts out of the threshold allocator)
	kafkaProducer, err := producers.NewRepaymentReqMessageProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize repayment Kafka producer", "error", err)
		os.Exit(1)
	}

	notificationProducer, err := producers.NewNotificationProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize notification Kafka producer", "error", err)
		os.Exit(1)
	}

	// Initialize repositories
	memberRepo := postgres.NewMemberRepository(log, postgresDB)
	loanRepo := postgres.NewLoanRepository(log, postgresDB)
	thresholdRepo := postgres.NewThresholdRepository(log, postgresDB)
	registerRepo := postgres.NewRegisterRepository(log, postgresDB)
	receiptRepo := mongo.NewReceiptRepository(log, mongoDB.Database())

	// Initialize services
	calculator := amortization.NewCalculator(decimal.NewFromFloat(cfg.Lending.PrincipalCeiling))

	services := api_gateway.Services{
		Members:    service.NewMemberService(memberRepo),
		Loans:      service.NewLoanService(log, postgresDB, loanRepo, thresholdRepo, registerRepo, calculator, nil),
		Repayments: service.NewRepaymentService(log, receiptRepo, kafkaProducer),
		Guarantors: guarantee.NewLedger(postgresDB, memberRepo, log),
		Thresholds: capacity.NewAllocator(postgresDB, thresholdRepo, notificationProducer, nil, log),
		Register:   register.NewRegister(postgresDB, registerRepo, nil, log),
	}

	// Initialize REST server
	server := api_gateway.NewServer(log, cfg, services)
	log.Info("REST server initialized")

	// Create error channel for server errors
	errChan := make(chan error, 1)

	// Start server in goroutine
	go func() {
		log.Info("Starting HTTP server", "port", cfg.Server.Port)
		if err := server.Start(); err != nil {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// Set up signal handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	// Wait for a shutdown signal or error
	var serverErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Server error occurred", "error", err)
		serverErr = err
	}

	// Cancel the application context
	cancelAppCtx()

	// Create a shutdown context with timeout
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()

	// Graceful shutdown sequence
	log.Info("Starting graceful shutdown...")

	// Shutdown postgres connection pool
	postgresDB.Close()

	// Shutdown HTTP server
	if err = server.Stop(shutdownCtx); err != nil {
		log.Error("Error during server shutdown", "error", err)
	}

	if err = kafkaProducer.Close(); err != nil {
		log.Error("Error closing repayment Kafka producer", "error", err)
	}

	if err = notificationProducer.Close(); err != nil {
		log.Error("Error closing notification Kafka producer", "error", err)
	}

	if err = mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
	}

	// Final status
	if serverErr != nil {
		log.Error("HTTP server shutdown with errors", "error", serverErr)
	}
	if err != nil {
		log.Error("Server shutdown completed with errors")
	} else {
		log.Info("Server shutdown completed successfully")
	}
}
