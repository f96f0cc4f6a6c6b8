package api_gateway

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lendhub/loan-engine/internal/api_gateway/handler"
	"github.com/lendhub/loan-engine/internal/api_gateway/middleware"
)

// setupRouter configures API routes and middleware for the application
func setupRouter(
	logger *slog.Logger,
	r *gin.Engine,
	memberHandler *handler.MemberHandler,
	loanHandler *handler.LoanHandler,
	repaymentHandler *handler.RepaymentHandler,
	guarantorHandler *handler.GuarantorHandler,
	thresholdHandler *handler.ThresholdHandler,
	registerHandler *handler.RegisterHandler,
) {
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CorrelationID())

	// API v1 endpoints
	v1 := r.Group("/api/v1")
	{
		// Member operations
		members := v1.Group("/members")
		{
			members.POST("", memberHandler.Create)
			members.GET("/:id", memberHandler.GetByID)
		}

		// Loan lifecycle operations
		loans := v1.Group("/loans")
		{
			loans.POST("/schedule-preview", loanHandler.PreviewSchedule)
			loans.POST("", loanHandler.Disburse)
			loans.GET("/:id", loanHandler.GetByID)
			loans.GET("/:id/schedule", loanHandler.GetSchedule)
			loans.POST("/:id/early-repayment-quote", loanHandler.QuoteEarlyRepayment)
			loans.GET("/:id/repayments", repaymentHandler.GetByLoanID)
			loans.GET("/:id/register-entry", registerHandler.GetByLoanID)
		}

		// Repayment operations
		repayments := v1.Group("/repayments")
		{
			repayments.POST("", repaymentHandler.Create)
			repayments.GET("/:id", repaymentHandler.GetByID)
		}

		// Guarantor equity operations
		guarantors := v1.Group("/guarantors")
		{
			guarantors.POST("/eligibility-check", guarantorHandler.CheckEligibility)
			guarantors.POST("", guarantorHandler.Add)
			guarantors.POST("/:id/lock", guarantorHandler.Lock)
			guarantors.POST("/:id/unlock", guarantorHandler.Unlock)
			guarantors.DELETE("/:id", guarantorHandler.Remove)
		}

		// Monthly capacity operations
		thresholds := v1.Group("/thresholds")
		{
			thresholds.GET("/check", thresholdHandler.Check)
			thresholds.POST("/allocations", thresholdHandler.Allocate)
			thresholds.DELETE("/allocations/:application_id", thresholdHandler.Release)
		}

		// Loan register queries
		register := v1.Group("/register")
		{
			register.GET("/:year", registerHandler.ListByYear)
			register.GET("/:year/stats", registerHandler.Stats)
		}
	}

	// Health check endpoint for monitoring
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC()})
	})
}
