package delinquency

import (
	"time"

	"github.com/google/uuid"
	"github.com/lendhub/loan-engine/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Record is a point-in-time snapshot of one loan's delinquency position,
// appended once per loan per check date.
type Record struct {
	LoanID                 uuid.UUID               `json:"loan_id" bson:"loan_id"`
	CheckDate              time.Time               `json:"check_date" bson:"check_date"`
	DaysOverdue            int                     `json:"days_overdue" bson:"days_overdue"`
	Classification         shared.Classification   `json:"classification" bson:"classification"`
	PreviousClassification shared.Classification   `json:"previous_classification" bson:"previous_classification"`
	ClassificationChanged  bool                    `json:"classification_changed" bson:"classification_changed"`
	OverdueAmount          decimal.Decimal         `json:"overdue_amount" bson:"overdue_amount"`
	PenaltyApplied         decimal.Decimal         `json:"penalty_applied" bson:"penalty_applied"`
	NotificationType       shared.NotificationType `json:"notification_type" bson:"notification_type"`
	CreatedAt              time.Time               `json:"created_at" bson:"created_at"`
}
