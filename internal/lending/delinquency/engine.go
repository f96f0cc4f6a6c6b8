// Package delinquency classifies overdue loans and decides penalties and
// reminder notifications. The engine is pure computation over a loan and
// its schedule; the batch runner owns locking, persistence, and dispatch.
package delinquency

import (
	"time"

	history "github.com/lendhub/loan-engine/internal/domain/delinquency"
	"github.com/lendhub/loan-engine/internal/domain/loan"
	"github.com/lendhub/loan-engine/internal/domain/shared"
	"github.com/lendhub/loan-engine/internal/lending/amortization"
	"github.com/shopspring/decimal"
)

// Classify maps a days-overdue count onto the regulatory bucket ladder.
// Classification is recomputed fresh on every run; there is no hysteresis,
// so a loan that catches up drops straight back to PERFORMING.
func Classify(daysOverdue int) shared.Classification {
	switch {
	case daysOverdue <= 30:
		return shared.ClassificationPerforming
	case daysOverdue <= 90:
		return shared.ClassificationSpecialMention
	case daysOverdue <= 180:
		return shared.ClassificationSubstandard
	case daysOverdue <= 360:
		return shared.ClassificationDoubtful
	default:
		return shared.ClassificationLoss
	}
}

// NotificationFor selects the reminder tier for a days-overdue count.
func NotificationFor(daysOverdue int) shared.NotificationType {
	switch {
	case daysOverdue >= 30:
		return shared.NotificationFinalNotice
	case daysOverdue >= 7:
		return shared.NotificationReminder7
	case daysOverdue >= 3:
		return shared.NotificationReminder3
	default:
		return shared.NotificationNone
	}
}

// Engine assesses one loan's delinquency position per daily run
type Engine struct {
	dailyPenaltyRatePct decimal.Decimal
}

// NewEngine creates an engine charging the given daily penalty rate
// (percent per day) on overdue amounts.
func NewEngine(dailyPenaltyRatePct decimal.Decimal) *Engine {
	return &Engine{dailyPenaltyRatePct: dailyPenaltyRatePct}
}

// Assessment is the outcome of one delinquency check for one loan.
type Assessment struct {
	DaysOverdue            int
	OverdueAmount          decimal.Decimal
	Classification         shared.Classification
	PreviousClassification shared.Classification
	ClassificationChanged  bool
	Penalty                decimal.Decimal
	Notification           shared.NotificationType
}

// Assess computes the loan's overdue position from its open schedule items
// as of now. It does not mutate the loan; callers that accept the outcome
// apply it with Apply inside their transaction.
func (e *Engine) Assess(l *loan.Loan, items []*loan.ScheduleItem, now time.Time) *Assessment {
	a := &Assessment{
		OverdueAmount:          decimal.Zero,
		Penalty:                decimal.Zero,
		PreviousClassification: l.Classification,
		Notification:           shared.NotificationNone,
	}

	for _, item := range items {
		if item.Open() && item.DueDate.Before(now) {
			a.OverdueAmount = a.OverdueAmount.Add(item.Remaining())
			if a.DaysOverdue == 0 {
				// items arrive oldest-first; the first open overdue
				// item anchors the day count
				a.DaysOverdue = int(now.Sub(item.DueDate).Hours() / 24)
			}
		}
	}

	a.Classification = Classify(a.DaysOverdue)
	a.ClassificationChanged = a.Classification != a.PreviousClassification

	if a.DaysOverdue > 0 {
		a.Penalty = amortization.Penalty(a.OverdueAmount, a.DaysOverdue, e.dailyPenaltyRatePct)
		a.Notification = NotificationFor(a.DaysOverdue)
	}

	return a
}

// Apply records the assessment on the loan and returns the history record
// to append. The penalty raises both the loan's penalty amount and its
// outstanding balance.
func (e *Engine) Apply(l *loan.Loan, a *Assessment, checkDate time.Time) *history.Record {
	if a.Penalty.IsPositive() {
		l.ApplyPenalty(a.Penalty)
	}
	l.MarkArrears(a.DaysOverdue, a.OverdueAmount, a.Classification)

	return &history.Record{
		LoanID:                 l.ID,
		CheckDate:              checkDate,
		DaysOverdue:            a.DaysOverdue,
		Classification:         a.Classification,
		PreviousClassification: a.PreviousClassification,
		ClassificationChanged:  a.ClassificationChanged,
		OverdueAmount:          a.OverdueAmount,
		PenaltyApplied:         a.Penalty,
		NotificationType:       a.Notification,
		CreatedAt:              time.Now(),
	}
}
