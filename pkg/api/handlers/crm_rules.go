package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jordanlanch/leadsync/pkg/api/errors"
	"github.com/jordanlanch/leadsync/pkg/models"
	"github.com/labstack/echo/v4"
)

// RuleService stores the CRM rule table and derives assignment rules from it
type RuleService interface {
	Rows(ctx context.Context) ([]models.CRMRuleRow, error)
	Save(ctx context.Context, rows []models.CRMRuleRow) (models.RuleSyncSummary, error)
	AssignmentRules(ctx context.Context) ([]*models.AssignmentRule, error)
}

// CRMRuleHandler handles the lead source routing table
type CRMRuleHandler struct {
	rules     RuleService
	validator *validator.Validate
}

// NewCRMRuleHandler creates a new CRM rule handler
func NewCRMRuleHandler(rules RuleService) *CRMRuleHandler {
	return &CRMRuleHandler{rules: rules, validator: validator.New()}
}

// GetRules godoc
// @Summary Get the CRM rule table
// @Tags Admin CRM Rules
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.CRMRuleRequest
// @Router /admin/crm-rules [get]
func (h *CRMRuleHandler) GetRules(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	rows, err := h.rules.Rows(ctx)
	if err != nil {
		return errors.DatabaseError(c, err)
	}
	if rows == nil {
		rows = []models.CRMRuleRow{}
	}
	return c.JSON(http.StatusOK, models.CRMRuleRequest{Rows: rows})
}

// SaveRules godoc
// @Summary Replace the CRM rule table and sync assignment rules
// @Tags Admin CRM Rules
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body models.CRMRuleRequest true "Rows"
// @Success 200 {object} models.RuleSyncSummary
// @Failure 400 {object} models.ErrorResponse
// @Router /admin/crm-rules [put]
func (h *CRMRuleHandler) SaveRules(c echo.Context) error {
	var req models.CRMRuleRequest
	if err := c.Bind(&req); err != nil {
		return errors.ValidationError(c, err)
	}
	if err := h.validator.Struct(req); err != nil {
		return errors.ValidationError(c, err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 30*time.Second)
	defer cancel()

	summary, err := h.rules.Save(ctx, req.Rows)
	if err != nil {
		return errors.FromDomain(c, err)
	}
	return c.JSON(http.StatusOK, summary)
}

// ListAssignmentRules godoc
// @Summary List the assignment rules derived from the CRM rule table
// @Tags Admin CRM Rules
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Router /admin/assignment-rules [get]
func (h *CRMRuleHandler) ListAssignmentRules(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	list, err := h.rules.AssignmentRules(ctx)
	if err != nil {
		return errors.DatabaseError(c, err)
	}
	if list == nil {
		list = []*models.AssignmentRule{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"data":  list,
		"total": len(list),
	})
}
