package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"microloan-bazaar/internal/domain/access"
	"microloan-bazaar/internal/domain/evaluation"
	"microloan-bazaar/internal/domain/loan"
	"microloan-bazaar/internal/domain/policy"
	"microloan-bazaar/internal/domain/pool"
	"microloan-bazaar/internal/domain/profile"
	"microloan-bazaar/internal/domain/schedule"
	"microloan-bazaar/internal/fhe"
)

const principalHeader = "Ax-Principal-Id"

// principalID pulls the caller identity header. Handlers that mutate state
// refuse to run without it.
func principalID(c echo.Context) (string, bool) {
	id := strings.TrimSpace(c.Request().Header.Get(principalHeader))
	if !reHex32.MatchString(id) {
		return "", false
	}
	return id, true
}

func missingPrincipal(c echo.Context) error {
	return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "missing or invalid " + principalHeader})
}

// domainError maps domain sentinels onto HTTP codes. The body names the
// failure class so clients can branch without parsing messages.
func domainError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, access.ErrNotOwner),
		errors.Is(err, access.ErrNotCreditAnalyst),
		errors.Is(err, access.ErrNotLoanOfficer),
		errors.Is(err, access.ErrNotCollectionAgent),
		errors.Is(err, loan.ErrNotBorrower),
		errors.Is(err, fhe.ErrNotAuthorized):
		return c.JSON(http.StatusForbidden, ErrorResponse{Error: err.Error(), Code: "authorization"})

	case errors.Is(err, loan.ErrInvalidStatus),
		errors.Is(err, evaluation.ErrAlreadyComplete),
		errors.Is(err, pool.ErrAlreadyDistributed),
		errors.Is(err, pool.ErrNothingToDistribute),
		errors.Is(err, schedule.ErrScheduleTerminated):
		return c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error(), Code: "invalid_state"})

	case errors.Is(err, schedule.ErrGracePeriodActive):
		return c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error(), Code: "timing"})

	case errors.Is(err, fhe.ErrInvalidProof), errors.Is(err, fhe.ErrWidthMismatch):
		return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Error: err.Error(), Code: "invalid_proof"})

	case errors.Is(err, policy.ErrInvalidBounds):
		return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Error: err.Error(), Code: "policy_violation"})

	case errors.Is(err, loan.ErrNotFound),
		errors.Is(err, evaluation.ErrNotFound),
		errors.Is(err, pool.ErrNotFound),
		errors.Is(err, schedule.ErrNotFound),
		errors.Is(err, profile.ErrNotFound),
		errors.Is(err, fhe.ErrUnknownHandle):
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error(), Code: "not_found"})

	case errors.Is(err, loan.ErrInvalidPurpose),
		errors.Is(err, evaluation.ErrInvalidRiskTier),
		errors.Is(err, access.ErrUnknownRole):
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	}
	return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
}

func containsFieldMsg(list []FieldError, field, substr string) bool {
	for _, e := range list {
		if e.Field == field && strings.Contains(e.Message, substr) {
			return true
		}
	}
	return false
}
