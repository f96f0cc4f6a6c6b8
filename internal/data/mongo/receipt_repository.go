package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/lendhub/loan-engine/internal/domain/receipt"
	"github.com/lendhub/loan-engine/internal/domain/shared"
)

const (
	// ReceiptCollectionName is the name of the receipts collection in MongoDB
	ReceiptCollectionName = "repayment_receipts"
)

// ReceiptRepository implements the receipt.Repository interface for MongoDB
type ReceiptRepository struct {
	db     *mongo.Database
	logger *slog.Logger
}

// NewReceiptRepository creates a new MongoDB receipt repository
func NewReceiptRepository(logger *slog.Logger, db *mongo.Database) receipt.Repository {
	return &ReceiptRepository{
		db:     db,
		logger: logger,
	}
}

// Create stores a new receipt after checking for duplicates.
// Returns ErrDuplicateReceipt if a receipt with the same repayment ID exists.
func (r *ReceiptRepository) Create(ctx context.Context, rc *receipt.Receipt) error {
	collection := r.db.Collection(ReceiptCollectionName)

	// Check if receipt already exists
	existing, err := r.GetByRepaymentID(ctx, rc.RepaymentID)
	if err != nil && !errors.Is(err, receipt.ErrReceiptNotFound{RepaymentID: rc.RepaymentID}) {
		r.logger.Error("Failed to check for existing receipt",
			"repayment_id", rc.RepaymentID.String(),
			"error", err)
		return fmt.Errorf("failed to check for existing receipt: %w", err)
	}

	if existing != nil {
		return receipt.ErrDuplicateReceipt{RepaymentID: rc.RepaymentID}
	}

	_, err = collection.InsertOne(ctx, rc)
	if err != nil {
		r.logger.Error("Failed to create receipt",
			"repayment_id", rc.RepaymentID.String(),
			"error", err)
		return fmt.Errorf("failed to create receipt: %w", err)
	}

	return nil
}

// GetByRepaymentID retrieves a receipt by its repayment ID.
// Returns ErrReceiptNotFound if no receipt exists for the repayment.
func (r *ReceiptRepository) GetByRepaymentID(ctx context.Context, repaymentID uuid.UUID) (*receipt.Receipt, error) {
	collection := r.db.Collection(ReceiptCollectionName)

	filter := bson.M{"repayment_id": repaymentID}
	var rc receipt.Receipt
	err := collection.FindOne(ctx, filter).Decode(&rc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, receipt.ErrReceiptNotFound{RepaymentID: repaymentID}
		}
		r.logger.Error("Failed to get receipt",
			"repayment_id", repaymentID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to get receipt: %w", err)
	}

	return &rc, nil
}

// GetByReference looks a receipt up by the caller-supplied payment reference.
// Returns nil if no receipt exists, enabling idempotent repayment submission.
func (r *ReceiptRepository) GetByReference(ctx context.Context, reference string) (*receipt.Receipt, error) {
	if reference == "" {
		return nil, errors.New("payment reference cannot be empty")
	}

	collection := r.db.Collection(ReceiptCollectionName)

	filter := bson.M{"reference": reference}
	var rc receipt.Receipt
	err := collection.FindOne(ctx, filter).Decode(&rc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil // No receipt recorded under this reference
		}
		r.logger.Error("Failed to get receipt by reference",
			"reference", reference,
			"error", err)
		return nil, fmt.Errorf("failed to get receipt by reference: %w", err)
	}

	return &rc, nil
}

// GetByLoanID retrieves paginated receipts for a loan.
// Results are sorted by creation time in descending order (newest first).
func (r *ReceiptRepository) GetByLoanID(ctx context.Context, loanID uuid.UUID, limit, offset int) ([]*receipt.Receipt, error) {
	collection := r.db.Collection(ReceiptCollectionName)

	filter := bson.M{"loan_id": loanID}
	opts := options.Find().
		SetSort(bson.M{"created_at": -1}). // Sort by created_at in descending order
		SetSkip(int64(offset)).
		SetLimit(int64(limit))

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		r.logger.Error("Failed to get receipts",
			"loan_id", loanID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to get receipts: %w", err)
	}
	defer cursor.Close(ctx)

	var receipts []*receipt.Receipt
	if err := cursor.All(ctx, &receipts); err != nil {
		r.logger.Error("Failed to decode receipts",
			"loan_id", loanID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to decode receipts: %w", err)
	}

	return receipts, nil
}

// CountByLoanID counts the total number of receipts for a loan
func (r *ReceiptRepository) CountByLoanID(ctx context.Context, loanID uuid.UUID) (int64, error) {
	collection := r.db.Collection(ReceiptCollectionName)

	filter := bson.M{"loan_id": loanID}
	count, err := collection.CountDocuments(ctx, filter)
	if err != nil {
		r.logger.Error("Failed to count receipts",
			"loan_id", loanID.String(),
			"error", err)
		return 0, fmt.Errorf("failed to count receipts: %w", err)
	}

	return count, nil
}

// UpdateStatus updates the receipt's status, failure reason, and processed timestamp.
// Returns ErrReceiptNotFound if the receipt doesn't exist.
func (r *ReceiptRepository) UpdateStatus(ctx context.Context, repaymentID uuid.UUID, status shared.ReceiptStatus, reason string) error {
	collection := r.db.Collection(ReceiptCollectionName)

	filter := bson.M{"repayment_id": repaymentID}
	update := bson.M{
		"$set": bson.M{
			"status":         status,
			"failure_reason": reason,
			"processed_at":   time.Now(),
		},
	}

	result, err := collection.UpdateOne(ctx, filter, update)
	if err != nil {
		r.logger.Error("Failed to update receipt status",
			"repayment_id", repaymentID.String(),
			"status", string(status),
			"error", err)
		return fmt.Errorf("failed to update receipt status: %w", err)
	}

	if result.MatchedCount == 0 {
		return receipt.ErrReceiptNotFound{RepaymentID: repaymentID}
	}

	return nil
}
