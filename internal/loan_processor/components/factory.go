package components

import (
	"log/slog"

	"github.com/lendhub/loan-engine/internal/config"
	"github.com/lendhub/loan-engine/internal/domain/loan"
	"github.com/lendhub/loan-engine/internal/domain/outbox"
	"github.com/lendhub/loan-engine/internal/domain/receipt"
	"github.com/lendhub/loan-engine/internal/lending/repayment"
	"github.com/lendhub/loan-engine/internal/loan_processor/service"
	"github.com/lendhub/loan-engine/internal/platform/persistence"
)

// CreateProcessingService creates a new ProcessingService with all its dependencies.
func CreateProcessingService(
	pgDB *persistence.PostgresDB,
	loanRepo loan.Repository,
	outboxRepo outbox.Repository,
	receiptRepo receipt.Repository,
	logger *slog.Logger,
	cfg *config.Config,
) service.ProcessingService {
	validator := NewRepaymentValidator(receiptRepo, logger)
	loanManager := NewLoanManager(loanRepo, repayment.NewProcessor(), logger)
	outboxManager := NewOutboxManager(outboxRepo, logger)
	failureRecorder := NewFailureRecorder(receiptRepo, logger)

	baseService := service.NewProcessingService(
		pgDB,
		validator,
		loanManager,
		outboxManager,
		failureRecorder,
		logger,
	)

	workerPoolService, err := service.NewWorkerPoolProcessingService(
		baseService,
		service.WorkerPoolConfig{
			Size: cfg.WorkerPool.Size,
		},
		logger.With("component", "worker_pool"),
	)

	if err != nil {
		logger.Error("Failed to create worker pool service, falling back to base service", "error", err)
		return baseService
	}

	logger.Info("Created worker pool processing service", "pool_size", cfg.WorkerPool.Size)
	return workerPoolService
}
