package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"microloan-bazaar/internal/domain/policy"
	"microloan-bazaar/internal/usecase/access"
)

type AdminHandler struct{ uc *access.Usecase }

func NewAdminHandler(uc *access.Usecase) *AdminHandler { return &AdminHandler{uc: uc} }

func (h *AdminHandler) GetPolicy(c echo.Context) error {
	p, err := h.uc.GetPolicy(c.Request().Context())
	if err != nil {
		return domainError(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *AdminHandler) UpdatePolicy(c echo.Context) error {
	callerID, ok := principalID(c)
	if !ok {
		return missingPrincipal(c)
	}
	var next policy.Policy
	if err := c.Bind(&next); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	p, err := h.uc.UpdatePolicy(c.Request().Context(), callerID, next)
	if err != nil {
		return domainError(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *AdminHandler) GrantRole(c echo.Context) error {
	callerID, ok := principalID(c)
	if !ok {
		return missingPrincipal(c)
	}
	principal := c.Param("principal")
	if !reHex32.MatchString(principal) {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid principal id"})
	}
	if err := h.uc.GrantRole(c.Request().Context(), callerID, principal, c.Param("role")); err != nil {
		return domainError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"principal_id": principal, "role": c.Param("role"), "granted": "true"})
}

func (h *AdminHandler) RevokeRole(c echo.Context) error {
	callerID, ok := principalID(c)
	if !ok {
		return missingPrincipal(c)
	}
	principal := c.Param("principal")
	if !reHex32.MatchString(principal) {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid principal id"})
	}
	if err := h.uc.RevokeRole(c.Request().Context(), callerID, principal, c.Param("role")); err != nil {
		return domainError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"principal_id": principal, "role": c.Param("role"), "granted": "false"})
}
