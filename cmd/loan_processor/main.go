package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/shopspring/decimal"

	"github.com/lendhub/loan-engine/internal/config"
	"github.com/lendhub/loan-engine/internal/data/mongo"
	"github.com/lendhub/loan-engine/internal/data/postgres"
	"github.com/lendhub/loan-engine/internal/lending/capacity"
	"github.com/lendhub/loan-engine/internal/lending/delinquency"
	"github.com/lendhub/loan-engine/internal/loan_processor/batch"
	"github.com/lendhub/loan-engine/internal/loan_processor/components"
	"github.com/lendhub/loan-engine/internal/loan_processor/consumer"
	"github.com/lendhub/loan-engine/internal/loan_processor/outbox_poller"
	"github.com/lendhub/loan-engine/internal/loan_processor/service"
	"github.com/lendhub/loan-engine/internal/logger"
	"github.com/lendhub/loan-engine/internal/platform/messaging/consumers"
	"github.com/lendhub/loan-engine/internal/platform/messaging/producers"
	"github.com/lendhub/loan-engine/internal/platform/persistence"
)

// Cap on overdue loans swept per delinquency run.
const delinquencySweepLimit = 1000

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	// Initialize configuration
	cfg, err := config.LoadConfig("loan_processor")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.NewLogger(cfg)

	log.Info("Starting Loan Processor",
		"app_name", cfg.Application.Name,
		"env", cfg.Application.Env,
	)

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

	// Initialize repositories
	loanRepo := postgres.NewLoanRepository(log, postgresDB)
	thresholdRepo := postgres.NewThresholdRepository(log, postgresDB)
	outboxRepo := postgres.NewOutboxRepository(log, postgresDB)
	receiptRepo := mongo.NewReceiptRepository(log, mongoDB.Database())
	historyRepo := mongo.NewDelinquencyRepository(log, mongoDB.Database())

	if err := historyRepo.EnsureIndexes(appCtx); err != nil {
		log.Error("Failed to ensure delinquency history indexes", "error", err)
		os.Exit(1)
	}

	// Initialize Kafka consumer
	kafkaConsumer := consumers.NewKafkaConsumer(appCtx, log, &cfg.Kafka)

	// Initialize Kafka DLQ producer
	dlqProducer, err := producers.NewDLQProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize DLQ Kafka producer", "error", err)
		os.Exit(1)
	}
	// dlqProducer might be nil if DLQTopic is not configured. Handler should be nil-safe.

	// Initialize Kafka notification producer for delinquency reminders and
	// capacity alerts
	notificationProducer, err := producers.NewNotificationProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize notification Kafka producer", "error", err)
		os.Exit(1)
	}

	// Initialize processing service with separated concerns
	processingService := components.CreateProcessingService(
		postgresDB,
		loanRepo,
		outboxRepo,
		receiptRepo,
		log,
		cfg,
	)

	// Initialize repayment event handler
	repaymentEventHandler := consumer.NewRepaymentEventHandler(
		log,
		processingService,
		dlqProducer, // Pass the DLQ producer
	)

	// Initialize outbox poller
	receiptPublisher := outbox_poller.NewReceiptPublisher(
		outboxRepo,
		receiptRepo,
		log,
	)
	poller := outbox_poller.NewPoller(
		&cfg.Outbox,
		outboxRepo,
		receiptPublisher,
		log,
	)

	// Initialize delinquency batch machinery
	engine := delinquency.NewEngine(decimal.NewFromFloat(cfg.Lending.DailyPenaltyRatePct))
	runner, err := batch.NewDelinquencyRunner(
		postgresDB,
		loanRepo,
		historyRepo,
		engine,
		notificationProducer,
		batch.RunnerConfig{
			PoolSize:  cfg.WorkerPool.Size,
			BatchSize: delinquencySweepLimit,
		},
		log.With("component", "delinquency_runner"),
	)
	if err != nil {
		log.Error("Failed to create delinquency runner", "error", err)
		os.Exit(1)
	}

	allocator := capacity.NewAllocator(postgresDB, thresholdRepo, notificationProducer, nil, log)
	scheduler := batch.NewScheduler(
		runner,
		allocator,
		cfg.Lending.DelinquencyHour,
		cfg.Lending.DelinquencyInterval,
		log.With("component", "batch_scheduler"),
	)

	// Create error channel for service errors
	errChan := make(chan error, 2)

	// Create wait group for graceful shutdown
	var wg sync.WaitGroup

	// Start Kafka consumer in a goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info("Starting Kafka consumer",
			"topic", cfg.Kafka.RepaymentTopic,
			"group", cfg.Kafka.ConsumerGroup,
		)
		if err := kafkaConsumer.Subscribe(appCtx, cfg.Kafka.RepaymentTopic, cfg.Kafka.ConsumerGroup, repaymentEventHandler.HandleMessage); err != nil {
			errChan <- fmt.Errorf("kafka consumer error: %w", err)
		}
	}()

	// Start outbox poller in a goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info("Starting Outbox Poller",
			"interval", cfg.Outbox.PollingInterval.String(),
			"batch_size", cfg.Outbox.BatchSize,
		)
		poller.Start(appCtx)
	}()

	// Start the daily delinquency sweep scheduler in a goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()
		scheduler.Start(appCtx)
	}()

	// Set up signal handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	// Wait for a shutdown signal or error
	var serviceErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Service error occurred", "error", err)
		serviceErr = err
	}

	// Cancel the application context
	cancelAppCtx()

	// Shutdown the worker pool if it's a WorkerPoolProcessingService
	if wpService, ok := processingService.(*service.WorkerPoolProcessingService); ok {
		log.Info("Shutting down worker pool", "running_workers", wpService.Running())
		wpService.Shutdown()
	}
	runner.Shutdown()

	// Create a shutdown context with timeout
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()

	// Graceful shutdown sequence
	log.Info("Starting graceful shutdown...")

	// Wait for all goroutines to finish
	log.Info("Waiting for services to stop...")
	wgChan := make(chan struct{})
	go func() {
		wg.Wait()
		close(wgChan)
	}()

	select {
	case <-wgChan:
		log.Info("All services stopped successfully")
	case <-shutdownCtx.Done():
		log.Warn("Shutdown timeout reached, forcing exit")
	}

	// Close DLQ Kafka producer
	if dlqProducer != nil { // dlqProducer can be nil if DLQTopic was not configured
		if err = dlqProducer.Close(); err != nil {
			log.Error("Error closing DLQ Kafka producer", "error", err)
		}
	}

	if err = notificationProducer.Close(); err != nil {
		log.Error("Error closing notification Kafka producer", "error", err)
	}

	// Close Kafka consumer
	if err = kafkaConsumer.Close(); err != nil {
		log.Error("Error closing Kafka consumer", "error", err)
	}

	// Shutdown postgres connection pool
	postgresDB.Close()

	// Close MongoDB connection
	if err = mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
	}

	// Final status
	if serviceErr != nil {
		log.Error("Loan Processor shutdown with errors", "error", serviceErr)
	}
	if err != nil {
		log.Error("Loan Processor shutdown completed with errors")
	} else {
		log.Info("Loan Processor shutdown completed successfully")
	}
}
