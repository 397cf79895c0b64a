package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"microloan-bazaar/internal/usecase/funding"
)

type FundingHandler struct{ uc *funding.Usecase }

func NewFundingHandler(uc *funding.Usecase) *FundingHandler { return &FundingHandler{uc: uc} }

type fundLoanReq struct {
	Amount ciphertextReq `json:"amount" validate:"required"`
}

func (h *FundingHandler) Fund(c echo.Context) error {
	lenderID, ok := principalID(c)
	if !ok {
		return missingPrincipal(c)
	}
	var req fundLoanReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "validation failed", Details: ToFieldErrors(err)})
	}
	dto, err := h.uc.Contribute(c.Request().Context(), lenderID, c.Param("loan_id"), req.Amount.ext())
	if err != nil {
		return domainError(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}

func (h *FundingHandler) Disburse(c echo.Context) error {
	officerID, ok := principalID(c)
	if !ok {
		return missingPrincipal(c)
	}
	out, err := h.uc.Disburse(c.Request().Context(), officerID, c.Param("loan_id"))
	if err != nil {
		return domainError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *FundingHandler) DistributeInterest(c echo.Context) error {
	officerID, ok := principalID(c)
	if !ok {
		return missingPrincipal(c)
	}
	dto, err := h.uc.DistributeInterest(c.Request().Context(), officerID, c.Param("loan_id"))
	if err != nil {
		return domainError(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}

func (h *FundingHandler) GetPool(c echo.Context) error {
	dto, err := h.uc.GetPool(c.Request().Context(), c.Param("loan_id"))
	if err != nil {
		return domainError(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}
