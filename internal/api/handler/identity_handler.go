package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/unionportal/ballot-system/internal/core/ports"
)

// IdentityHandler serves administrative identity changes.
type IdentityHandler struct {
	service ports.IdentityService
}

func NewIdentityHandler(service ports.IdentityService) *IdentityHandler {
	return &IdentityHandler{service: service}
}

// SetApproval approves or unapproves an identity.
//
// @Summary      Change identity approval
// @Tags         identities
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string              true  "Identity ID"
// @Param        body  body      setApprovalRequest  true  "Approval flag"
// @Success      200   {object}  domain.Identity
// @Failure      400   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Router       /v1/identities/{id}/approval [patch]
func (h *IdentityHandler) SetApproval(c echo.Context) error {
	_, actor, err := ctxSession(c)
	if err != nil {
		return err
	}

	var req setApprovalRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	identity, err := h.service.SetApproval(c.Request().Context(), actor.Role, c.Param("id"), *req.Approved)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, identity)
}
