package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/lendhub/loan-engine/internal/domain/shared"
	"github.com/lendhub/loan-engine/internal/loan_processor/service"
	"github.com/lendhub/loan-engine/internal/platform/messaging/producers"
)

// RepaymentEventHandler handles incoming repayment request messages from Kafka
type RepaymentEventHandler struct {
	processingService service.ProcessingService
	producer          producers.DeadLetterPublisher
	logger            *slog.Logger
}

// NewRepaymentEventHandler creates a new handler
func NewRepaymentEventHandler(
	logger *slog.Logger,
	processingService service.ProcessingService,
	producer producers.DeadLetterPublisher,
) *RepaymentEventHandler {
	return &RepaymentEventHandler{
		processingService: processingService,
		producer:          producer,
		logger:            logger,
	}
}

// HandleMessage processes Kafka messages
func (h *RepaymentEventHandler) HandleMessage(ctx context.Context, key []byte, value []byte) error {
	var request shared.RepaymentRequest
	if err := json.Unmarshal(value, &request); err != nil {
		unmarshalErrorMsg := "Failed to unmarshal repayment request from Kafka message"
		h.logger.Error(unmarshalErrorMsg,
			"error", err,
			"message_key", string(key),
		)

		// Send to DLQ if available
		if h.producer != nil {
			dlqReason := fmt.Sprintf("%s: %s", unmarshalErrorMsg, err.Error())
			if dlqErr := h.producer.PublishToDLQ(ctx, string(key), value, dlqReason); dlqErr != nil {
				h.logger.Error("Failed to publish message to DLQ after unmarshal error",
					"dlq_error", dlqErr,
					"original_error", err,
					"message_key", string(key),
				)
				// Return original error if DLQ fails
			} else {
				h.logger.Info("Successfully published unprocessable message to DLQ", "message_key", string(key), "reason", dlqReason)
				// Message handled, commit offset
				return nil
			}
		}
		// Allow Kafka retries
		return fmt.Errorf("failed to unmarshal message value: %w", err)
	}

	// Add correlation ID to logger
	logger := h.logger
	if request.CorrelationID != "" {
		logger = h.logger.With("correlation_id", request.CorrelationID)
	}

	logger.Info("Received repayment request for processing",
		"repayment_id", request.RepaymentID.String(),
		"loan_id", request.LoanID.String(),
		"method", request.Method,
		"amount", request.Amount,
	)

	if err := h.processingService.ProcessRepayment(ctx, &request); err != nil {
		logger.Error("Failed to process repayment",
			"repayment_id", request.RepaymentID.String(),
			"loan_id", request.LoanID.String(),
			"error", err,
		)
		return fmt.Errorf("processing repayment %s failed: %w", request.RepaymentID.String(), err)
	}

	logger.Info("Successfully processed repayment", "repayment_id", request.RepaymentID.String())
	return nil // Success, commit offset
}
