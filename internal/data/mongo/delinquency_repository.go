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

	"github.com/lendhub/loan-engine/internal/domain/delinquency"
)

const (
	// DelinquencyCollectionName is the name of the delinquency history collection in MongoDB
	DelinquencyCollectionName = "delinquency_records"
)

// DelinquencyRepository implements the delinquency.Repository interface for MongoDB
type DelinquencyRepository struct {
	db     *mongo.Database
	logger *slog.Logger
}

// NewDelinquencyRepository creates a new MongoDB delinquency history repository
func NewDelinquencyRepository(logger *slog.Logger, db *mongo.Database) *DelinquencyRepository {
	return &DelinquencyRepository{
		db:     db,
		logger: logger,
	}
}

// EnsureIndexes creates the unique (loan_id, check_date) index that makes the
// daily delinquency run idempotent across concurrent workers.
func (r *DelinquencyRepository) EnsureIndexes(ctx context.Context) error {
	collection := r.db.Collection(DelinquencyCollectionName)

	_, err := collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "loan_id", Value: 1},
			{Key: "check_date", Value: 1},
		},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		r.logger.Error("Failed to create delinquency indexes", "error", err)
		return fmt.Errorf("failed to create delinquency indexes: %w", err)
	}

	return nil
}

// Create appends a delinquency record. Returns ErrDuplicateRecord if the
// loan was already checked on this date.
func (r *DelinquencyRepository) Create(ctx context.Context, record *delinquency.Record) error {
	collection := r.db.Collection(DelinquencyCollectionName)

	_, err := collection.InsertOne(ctx, record)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return delinquency.ErrDuplicateRecord{LoanID: record.LoanID}
		}
		r.logger.Error("Failed to create delinquency record",
			"loan_id", record.LoanID.String(),
			"error", err)
		return fmt.Errorf("failed to create delinquency record: %w", err)
	}

	return nil
}

// ExistsForDate reports whether the loan already has a record for the check date
func (r *DelinquencyRepository) ExistsForDate(ctx context.Context, loanID uuid.UUID, checkDate time.Time) (bool, error) {
	collection := r.db.Collection(DelinquencyCollectionName)

	filter := bson.M{"loan_id": loanID, "check_date": checkDate}
	count, err := collection.CountDocuments(ctx, filter)
	if err != nil {
		r.logger.Error("Failed to check for delinquency record",
			"loan_id", loanID.String(),
			"error", err)
		return false, fmt.Errorf("failed to check for delinquency record: %w", err)
	}

	return count > 0, nil
}

// GetByLoanID retrieves paginated delinquency history for a loan.
// Results are sorted by check date in descending order (newest first).
func (r *DelinquencyRepository) GetByLoanID(ctx context.Context, loanID uuid.UUID, limit, offset int) ([]*delinquency.Record, error) {
	collection := r.db.Collection(DelinquencyCollectionName)

	filter := bson.M{"loan_id": loanID}
	opts := options.Find().
		SetSort(bson.M{"check_date": -1}). // Sort by check_date in descending order
		SetSkip(int64(offset)).
		SetLimit(int64(limit))

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		r.logger.Error("Failed to get delinquency records",
			"loan_id", loanID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to get delinquency records: %w", err)
	}
	defer cursor.Close(ctx)

	var records []*delinquency.Record
	if err := cursor.All(ctx, &records); err != nil {
		r.logger.Error("Failed to decode delinquency records",
			"loan_id", loanID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to decode delinquency records: %w", err)
	}

	return records, nil
}

// GetLatest returns the most recent delinquency record for a loan.
// Returns ErrRecordNotFound if the loan has no history.
func (r *DelinquencyRepository) GetLatest(ctx context.Context, loanID uuid.UUID) (*delinquency.Record, error) {
	collection := r.db.Collection(DelinquencyCollectionName)

	filter := bson.M{"loan_id": loanID}
	opts := options.FindOne().SetSort(bson.M{"check_date": -1})

	var record delinquency.Record
	err := collection.FindOne(ctx, filter, opts).Decode(&record)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, delinquency.ErrRecordNotFound{LoanID: loanID}
		}
		r.logger.Error("Failed to get latest delinquency record",
			"loan_id", loanID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to get latest delinquency record: %w", err)
	}

	return &record, nil
}
