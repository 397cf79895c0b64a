package http

import (
	"github.com/labstack/echo/v4"
)

// Handlers groups everything the router needs.
type Handlers struct {
	Base       *Handler
	Loan       *LoanHandler
	Evaluation *EvaluationHandler
	Funding    *FundingHandler
	Repayment  *RepaymentHandler
	Admin      *AdminHandler
}

// Register wires every route. Mutating routes get the supplied extra
// middleware (idempotency in prod, nothing in tests).
func Register(e *echo.Echo, h Handlers, mutating ...echo.MiddlewareFunc) {
	e.Validator = NewValidator()

	e.GET("/health", h.Base.Health)

	e.POST("/loans", h.Loan.Submit, mutating...)
	e.GET("/loans/:loan_id", h.Loan.Get)

	e.POST("/loans/:loan_id/evaluation", h.Evaluation.Request, mutating...)
	e.PUT("/loans/:loan_id/evaluation", h.Evaluation.Complete, mutating...)
	e.GET("/loans/:loan_id/evaluation", h.Evaluation.Get)

	e.POST("/loans/:loan_id/fund", h.Funding.Fund, mutating...)
	e.POST("/loans/:loan_id/disburse", h.Funding.Disburse, mutating...)
	e.POST("/loans/:loan_id/interest", h.Funding.DistributeInterest, mutating...)
	e.GET("/loans/:loan_id/pool", h.Funding.GetPool)

	e.POST("/loans/:loan_id/payments", h.Repayment.Pay, mutating...)
	e.POST("/loans/:loan_id/default", h.Repayment.MarkAsDefaulted, mutating...)
	e.GET("/loans/:loan_id/schedule", h.Repayment.GetSchedule)

	e.GET("/borrowers/:id", h.Loan.GetBorrowerProfile)
	e.GET("/lenders/:id", h.Loan.GetLenderProfile)
	e.GET("/marketplace/stats", h.Loan.GetMarketplaceStats)

	e.GET("/policy", h.Admin.GetPolicy)
	e.PUT("/policy", h.Admin.UpdatePolicy, mutating...)
	e.POST("/roles/:role/:principal", h.Admin.GrantRole, mutating...)
	e.DELETE("/roles/:role/:principal", h.Admin.RevokeRole, mutating...)
}
