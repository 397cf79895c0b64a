package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"microloan-bazaar/internal/fhe"
	"microloan-bazaar/internal/usecase/loan"
)

type LoanHandler struct{ uc *loan.Usecase }

func NewLoanHandler(uc *loan.Usecase) *LoanHandler { return &LoanHandler{uc: uc} }

type ciphertextReq struct {
	Handle string `json:"handle" validate:"required"`
	Proof  string `json:"proof" validate:"required"`
}

func (r ciphertextReq) ext() fhe.ExternalCiphertext {
	return fhe.ExternalCiphertext{Handle: r.Handle, Proof: r.Proof}
}

type submitLoanReq struct {
	Amount         ciphertextReq `json:"amount" validate:"required"`
	Term           ciphertextReq `json:"term" validate:"required"`
	CreditScore    ciphertextReq `json:"credit_score" validate:"required"`
	Revenue        ciphertextReq `json:"revenue" validate:"required"`
	PaymentHistory ciphertextReq `json:"payment_history" validate:"required"`
	PastDefaults   ciphertextReq `json:"past_defaults" validate:"required"`
	CommunityScore ciphertextReq `json:"community_score" validate:"required"`
	Purpose        string        `json:"purpose" validate:"required"`
}

func (h *LoanHandler) Submit(c echo.Context) error {
	borrowerID, ok := principalID(c)
	if !ok {
		return missingPrincipal(c)
	}
	var req submitLoanReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "validation failed", Details: ToFieldErrors(err)})
	}
	dto, err := h.uc.Submit(c.Request().Context(), loan.SubmitInput{
		BorrowerID:     borrowerID,
		Amount:         req.Amount.ext(),
		Term:           req.Term.ext(),
		CreditScore:    req.CreditScore.ext(),
		Revenue:        req.Revenue.ext(),
		PaymentHistory: req.PaymentHistory.ext(),
		PastDefaults:   req.PastDefaults.ext(),
		CommunityScore: req.CommunityScore.ext(),
		Purpose:        req.Purpose,
	})
	if err != nil {
		return domainError(c, err)
	}
	return c.JSON(http.StatusCreated, dto)
}

func (h *LoanHandler) Get(c echo.Context) error {
	dto, err := h.uc.Get(c.Request().Context(), c.Param("loan_id"))
	if err != nil {
		return domainError(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}

func (h *LoanHandler) GetBorrowerProfile(c echo.Context) error {
	dto, err := h.uc.GetBorrowerProfile(c.Request().Context(), c.Param("id"))
	if err != nil {
		return domainError(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}

func (h *LoanHandler) GetLenderProfile(c echo.Context) error {
	dto, err := h.uc.GetLenderProfile(c.Request().Context(), c.Param("id"))
	if err != nil {
		return domainError(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}

func (h *LoanHandler) GetMarketplaceStats(c echo.Context) error {
	dto, err := h.uc.GetMarketplaceStats(c.Request().Context())
	if err != nil {
		return domainError(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}
