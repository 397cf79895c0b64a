package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"microloan-bazaar/internal/usecase/repayment"
)

type RepaymentHandler struct{ uc *repayment.Usecase }

func NewRepaymentHandler(uc *repayment.Usecase) *RepaymentHandler {
	return &RepaymentHandler{uc: uc}
}

type makePaymentReq struct {
	Amount ciphertextReq `json:"amount" validate:"required"`
}

func (h *RepaymentHandler) Pay(c echo.Context) error {
	borrowerID, ok := principalID(c)
	if !ok {
		return missingPrincipal(c)
	}
	var req makePaymentReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "validation failed", Details: ToFieldErrors(err)})
	}
	dto, err := h.uc.MakePayment(c.Request().Context(), borrowerID, c.Param("loan_id"), req.Amount.ext())
	if err != nil {
		return domainError(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}

func (h *RepaymentHandler) MarkAsDefaulted(c echo.Context) error {
	agentID, ok := principalID(c)
	if !ok {
		return missingPrincipal(c)
	}
	out, err := h.uc.MarkAsDefaulted(c.Request().Context(), agentID, c.Param("loan_id"))
	if err != nil {
		return domainError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *RepaymentHandler) GetSchedule(c echo.Context) error {
	dto, err := h.uc.GetSchedule(c.Request().Context(), c.Param("loan_id"))
	if err != nil {
		return domainError(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}
