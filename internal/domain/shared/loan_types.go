package shared

// LoanStatus defines the lifecycle states of a loan
type LoanStatus string

const (
	LoanStatusPending    LoanStatus = "PENDING"
	LoanStatusDisbursed  LoanStatus = "DISBURSED"
	LoanStatusActive     LoanStatus = "ACTIVE"
	LoanStatusClosed     LoanStatus = "CLOSED"
	LoanStatusWrittenOff LoanStatus = "WRITTEN_OFF"
)

// Payable reports whether a loan in this status can accept repayments
func (s LoanStatus) Payable() bool {
	return s == LoanStatusActive || s == LoanStatusDisbursed
}

// Classification defines the regulatory delinquency buckets in increasing severity
type Classification string

const (
	ClassificationPerforming     Classification = "PERFORMING"
	ClassificationSpecialMention Classification = "SPECIAL_MENTION"
	ClassificationSubstandard    Classification = "SUBSTANDARD"
	ClassificationDoubtful       Classification = "DOUBTFUL"
	ClassificationLoss           Classification = "LOSS"
	ClassificationClosed         Classification = "CLOSED"
)

// Severity maps a classification onto an ordinal scale so buckets can be compared
func (c Classification) Severity() int {
	switch c {
	case ClassificationPerforming:
		return 0
	case ClassificationSpecialMention:
		return 1
	case ClassificationSubstandard:
		return 2
	case ClassificationDoubtful:
		return 3
	case ClassificationLoss:
		return 4
	default:
		return -1
	}
}

// ScheduleItemStatus defines installment states
type ScheduleItemStatus string

const (
	ScheduleItemStatusPending       ScheduleItemStatus = "PENDING"
	ScheduleItemStatusPartiallyPaid ScheduleItemStatus = "PARTIALLY_PAID"
	ScheduleItemStatusPaid          ScheduleItemStatus = "PAID"
	ScheduleItemStatusWrittenOff    ScheduleItemStatus = "WRITTEN_OFF"
)

// ConsentStatus defines guarantor consent states
type ConsentStatus string

const (
	ConsentStatusPending  ConsentStatus = "PENDING"
	ConsentStatusApproved ConsentStatus = "APPROVED"
	ConsentStatusRejected ConsentStatus = "REJECTED"
)

// AllocationStatus defines threshold allocation states for a loan application
type AllocationStatus string

const (
	AllocationStatusQueued               AllocationStatus = "QUEUED"
	AllocationStatusReadyForDisbursement AllocationStatus = "READY_FOR_DISBURSEMENT"
	AllocationStatusDisbursed            AllocationStatus = "DISBURSED"
	AllocationStatusReleased             AllocationStatus = "RELEASED"
)

// NotificationType defines delinquency notification tiers
type NotificationType string

const (
	NotificationNone        NotificationType = "NONE"
	NotificationReminder3   NotificationType = "REMINDER_3_DAYS"
	NotificationReminder7   NotificationType = "REMINDER_7_DAYS"
	NotificationFinalNotice NotificationType = "FINAL_NOTICE"
)

// CapacityAlertLevel defines threshold utilization alert levels
type CapacityAlertLevel string

const (
	CapacityAlertNone     CapacityAlertLevel = "NONE"
	CapacityAlertWarning  CapacityAlertLevel = "WARNING"
	CapacityAlertCritical CapacityAlertLevel = "CRITICAL"
)

// ReceiptStatus defines repayment receipt processing states
type ReceiptStatus string

const (
	ReceiptStatusProcessing ReceiptStatus = "PROCESSING"
	ReceiptStatusCompleted  ReceiptStatus = "COMPLETED"
	ReceiptStatusFailed     ReceiptStatus = "FAILED"
)

// FailureReason defines repayment failure categories
type FailureReason string

const (
	FailureReasonLoanNotFound     FailureReason = "LOAN_NOT_FOUND"
	FailureReasonInvalidLoanState FailureReason = "INVALID_LOAN_STATE"
	FailureReasonInvalidAmount    FailureReason = "INVALID_AMOUNT"
	FailureReasonOverpayment      FailureReason = "OVERPAYMENT"
	FailureReasonCommitFailed     FailureReason = "TRANSACTION_COMMIT_FAILED"
	FailureReasonUnknownError     FailureReason = "UNKNOWN_ERROR"
)

// OutboxStatus defines receipt outbox publishing states
type OutboxStatus string

const (
	OutboxStatusPending         OutboxStatus = "PENDING"
	OutboxStatusProcessed       OutboxStatus = "PROCESSED"
	OutboxStatusFailedToPublish OutboxStatus = "FAILED_TO_PUBLISH"
)
