package handler

// CreateMemberRequest represents a request to register a new member
type CreateMemberRequest struct {
	Name         string `json:"name" binding:"required"`
	MemberNumber string `json:"member_number" binding:"required"`
	Equity       string `json:"equity" binding:"required"`
}

// MemberResponse represents a member in API responses
type MemberResponse struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	MemberNumber string `json:"member_number"`
	FreeEquity   string `json:"free_equity"`
	LockedEquity string `json:"locked_equity"`
	TotalEquity  string `json:"total_equity"`
	CreatedAt    string `json:"created_at"`
	UpdatedAt    string `json:"updated_at"`
}

// SchedulePreviewRequest represents a request to preview an amortization schedule
type SchedulePreviewRequest struct {
	Principal     string `json:"principal" binding:"required"`
	AnnualRatePct string `json:"annual_rate_pct" binding:"required"`
	TermMonths    int    `json:"term_months" binding:"required,gt=0"`
	StartDate     string `json:"start_date,omitempty"`
}

// SchedulePreviewResponse represents a computed schedule in API responses
type SchedulePreviewResponse struct {
	EMI      string                `json:"emi"`
	Schedule []ScheduleRowResponse `json:"schedule"`
}

// ScheduleRowResponse represents one installment of a computed schedule
type ScheduleRowResponse struct {
	Installment         int    `json:"installment"`
	DueDate             string `json:"due_date"`
	OpeningBalance      string `json:"opening_balance"`
	EMI                 string `json:"emi"`
	InterestAmount      string `json:"interest_amount"`
	PrincipalAmount     string `json:"principal_amount"`
	ClosingBalance      string `json:"closing_balance"`
	CumulativeInterest  string `json:"cumulative_interest"`
	CumulativePrincipal string `json:"cumulative_principal"`
}

// DisburseLoanRequest represents a request to disburse an approved loan
type DisburseLoanRequest struct {
	MemberID      string `json:"member_id" binding:"required,uuid"`
	ApplicationID string `json:"application_id" binding:"required,uuid"`
	Principal     string `json:"principal" binding:"required"`
	AnnualRatePct string `json:"annual_rate_pct" binding:"required"`
	TermMonths    int    `json:"term_months" binding:"required,gt=0"`
}

// LoanResponse represents a loan in API responses
type LoanResponse struct {
	ID              string `json:"id"`
	MemberID        string `json:"member_id"`
	ApplicationID   string `json:"application_id"`
	SerialNumber    string `json:"serial_number,omitempty"`
	Principal       string `json:"principal"`
	AnnualRatePct   string `json:"annual_rate_pct"`
	TermMonths      int    `json:"term_months"`
	EMI             string `json:"emi"`
	TotalRepayable  string `json:"total_repayable"`
	Outstanding     string `json:"outstanding_balance"`
	PrincipalPaid   string `json:"principal_paid"`
	InterestPaid    string `json:"interest_paid"`
	PenaltyPaid     string `json:"penalty_paid"`
	Classification  string `json:"classification"`
	DaysInArrears   int    `json:"days_in_arrears"`
	ArrearsAmount   string `json:"arrears_amount"`
	Status          string `json:"status"`
	DisbursedAt     string `json:"disbursed_at,omitempty"`
	NextPaymentDate string `json:"next_payment_date,omitempty"`
	LastPaymentDate string `json:"last_payment_date,omitempty"`
	CreatedAt       string `json:"created_at"`
}

// ScheduleItemResponse represents a persisted installment in API responses
type ScheduleItemResponse struct {
	ID              string `json:"id"`
	InstallmentNo   int    `json:"installment_no"`
	DueDate         string `json:"due_date"`
	PrincipalAmount string `json:"principal_amount"`
	InterestAmount  string `json:"interest_amount"`
	PaidAmount      string `json:"paid_amount"`
	Status          string `json:"status"`
}

// EarlyRepaymentQuoteRequest represents a request to price a lump-sum prepayment
type EarlyRepaymentQuoteRequest struct {
	Amount string `json:"amount" binding:"required"`
}

// EarlyRepaymentQuoteResponse represents prepayment economics in API responses
type EarlyRepaymentQuoteResponse struct {
	InterestSaved  string `json:"interest_saved"`
	NewOutstanding string `json:"new_outstanding"`
	NewEMI         string `json:"new_emi"`
	FullyPaid      bool   `json:"fully_paid"`
}

// CreateRepaymentRequest represents a request to submit a repayment
type CreateRepaymentRequest struct {
	LoanID    string `json:"loan_id" binding:"required,uuid"`
	Amount    string `json:"amount" binding:"required"`
	Method    string `json:"method" binding:"required,oneof=CASH BANK_TRANSFER MOBILE_MONEY PAYROLL_DEDUCTION"`
	Reference string `json:"reference,omitempty"`
}

// ReceiptResponse represents a repayment receipt in API responses
type ReceiptResponse struct {
	RepaymentID      string `json:"repayment_id"`
	LoanID           string `json:"loan_id"`
	Amount           string `json:"amount"`
	PenaltyPaid      string `json:"penalty_paid"`
	InterestPaid     string `json:"interest_paid"`
	PrincipalPaid    string `json:"principal_paid"`
	RemainingBalance string `json:"remaining_balance"`
	LoanClosed       bool   `json:"loan_closed"`
	NextPaymentDate  string `json:"next_payment_date,omitempty"`
	NextPaymentDue   string `json:"next_payment_due"`
	Method           string `json:"method"`
	Reference        string `json:"reference,omitempty"`
	Status           string `json:"status"`
	FailureReason    string `json:"failure_reason,omitempty"`
	CreatedAt        string `json:"created_at"`
	ProcessedAt      string `json:"processed_at,omitempty"`
}

// AddGuarantorRequest represents a request to attach a guarantor to an application
type AddGuarantorRequest struct {
	MemberID      string `json:"member_id" binding:"required,uuid"`
	ApplicationID string `json:"application_id" binding:"required,uuid"`
	Amount        string `json:"amount" binding:"required"`
}

// EligibilityCheckRequest represents a guarantor eligibility query
type EligibilityCheckRequest struct {
	MemberID string `json:"member_id" binding:"required,uuid"`
	Amount   string `json:"amount" binding:"required"`
}

// GuarantorResponse represents a guarantor in API responses
type GuarantorResponse struct {
	ID              string `json:"id"`
	MemberID        string `json:"member_id"`
	ApplicationID   string `json:"application_id"`
	GuaranteeAmount string `json:"guarantee_amount"`
	ConsentStatus   string `json:"consent_status"`
	LockedEquity    string `json:"locked_equity"`
	CreatedAt       string `json:"created_at"`
}

// ThresholdCheckParams represents a capacity query for a given month
type ThresholdCheckParams struct {
	Amount string `form:"amount" binding:"required"`
	Month  int    `form:"month" binding:"omitempty,min=1,max=12"`
	Year   int    `form:"year" binding:"omitempty,min=2000"`
}

// ThresholdCheckResponse represents where a requested amount fits
type ThresholdCheckResponse struct {
	Fits      bool   `json:"fits"`
	Month     int    `json:"month,omitempty"`
	Year      int    `json:"year,omitempty"`
	Deferred  bool   `json:"deferred"`
	Remaining string `json:"remaining"`
}

// AllocateCapacityRequest represents a request to reserve threshold capacity
type AllocateCapacityRequest struct {
	ApplicationID string `json:"application_id" binding:"required,uuid"`
	Amount        string `json:"amount" binding:"required"`
}

// AllocationResponse represents a threshold allocation in API responses
type AllocationResponse struct {
	ID            string `json:"id"`
	ApplicationID string `json:"application_id"`
	Amount        string `json:"amount"`
	Month         int    `json:"month"`
	Year          int    `json:"year"`
	Status        string `json:"status"`
	ApprovedAt    string `json:"approved_at"`
}

// RegisterEntryResponse represents a loan register entry in API responses
type RegisterEntryResponse struct {
	ID           string `json:"id"`
	LoanID       string `json:"loan_id"`
	Year         int    `json:"year"`
	Sequence     int    `json:"sequence"`
	SerialNumber string `json:"serial_number"`
	RegisteredAt string `json:"registered_at"`
}

// RegisterStatsResponse represents yearly register statistics in API responses
type RegisterStatsResponse struct {
	Year       int            `json:"year"`
	TotalLoans int            `json:"total_loans"`
	ByStatus   map[string]int `json:"by_status"`
}

// PaginationParams represents pagination parameters for list endpoints
type PaginationParams struct {
	Page    int `form:"page,default=1" binding:"min=1"`
	PerPage int `form:"per_page,default=10" binding:"min=1,max=100"`
}
