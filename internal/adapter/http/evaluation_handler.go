package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"microloan-bazaar/internal/usecase/evaluation"
)

type EvaluationHandler struct{ uc *evaluation.Usecase }

func NewEvaluationHandler(uc *evaluation.Usecase) *EvaluationHandler {
	return &EvaluationHandler{uc: uc}
}

func (h *EvaluationHandler) Request(c echo.Context) error {
	analystID, ok := principalID(c)
	if !ok {
		return missingPrincipal(c)
	}
	out, err := h.uc.Request(c.Request().Context(), analystID, c.Param("loan_id"))
	if err != nil {
		return domainError(c, err)
	}
	return c.JSON(http.StatusAccepted, out)
}

type completeEvaluationReq struct {
	CreditScore      uint32 `json:"credit_score"`
	RiskTier         string `json:"risk_tier" validate:"required"`
	ApprovedAmount   uint64 `json:"approved_amount"`
	InterestRateBps  uint32 `json:"interest_rate_bps"`
	ApprovedTermDays uint32 `json:"approved_term_days"`
	TotalRepayment   uint64 `json:"total_repayment"`
}

func (h *EvaluationHandler) Complete(c echo.Context) error {
	analystID, ok := principalID(c)
	if !ok {
		return missingPrincipal(c)
	}
	var req completeEvaluationReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "validation failed", Details: ToFieldErrors(err)})
	}
	dto, err := h.uc.Complete(c.Request().Context(), analystID, c.Param("loan_id"), evaluation.CompleteInput{
		CreditScore:      req.CreditScore,
		RiskTier:         req.RiskTier,
		ApprovedAmount:   req.ApprovedAmount,
		InterestRateBps:  req.InterestRateBps,
		ApprovedTermDays: req.ApprovedTermDays,
		TotalRepayment:   req.TotalRepayment,
	})
	if err != nil {
		return domainError(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}

func (h *EvaluationHandler) Get(c echo.Context) error {
	dto, err := h.uc.Get(c.Request().Context(), c.Param("loan_id"))
	if err != nil {
		return domainError(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}
