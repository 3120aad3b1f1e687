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

// LeadService creates, loads and edits leads through the save hooks
type LeadService interface {
	Get(ctx context.Context, id string) (*models.Lead, error)
	Create(ctx context.Context, req models.LeadRequest) (*models.Lead, error)
	Update(ctx context.Context, id string, req models.LeadRequest) (*models.Lead, error)
}

// LeadHandler handles admin lead endpoints
type LeadHandler struct {
	leads     LeadService
	validator *validator.Validate
}

// NewLeadHandler creates a new lead handler
func NewLeadHandler(leads LeadService) *LeadHandler {
	return &LeadHandler{
		leads:     leads,
		validator: validator.New(),
	}
}

func (h *LeadHandler) bindRequest(c echo.Context) (models.LeadRequest, error) {
	var req models.LeadRequest
	if err := c.Bind(&req); err != nil {
		return req, err
	}
	return req, h.validator.Struct(req)
}

// CreateLead godoc
// @Summary Create a lead by hand
// @Description Runs assignment and owner reconciliation like any other save
// @Tags Admin Leads
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body models.LeadRequest true "Lead"
// @Success 201 {object} models.Lead
// @Failure 400 {object} models.ErrorResponse
// @Router /admin/leads [post]
func (h *LeadHandler) CreateLead(c echo.Context) error {
	req, err := h.bindRequest(c)
	if err != nil {
		return errors.ValidationError(c, err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	lead, err := h.leads.Create(ctx, req)
	if err != nil {
		return errors.FromDomain(c, err)
	}
	return c.JSON(http.StatusCreated, lead)
}

// GetLead godoc
// @Summary Get a lead
// @Tags Admin Leads
// @Produce json
// @Security BearerAuth
// @Param id path string true "Lead ID"
// @Success 200 {object} models.Lead
// @Failure 404 {object} models.ErrorResponse
// @Router /admin/leads/{id} [get]
func (h *LeadHandler) GetLead(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	lead, err := h.leads.Get(ctx, c.Param("id"))
	if err != nil {
		return errors.FromDomain(c, err)
	}
	return c.JSON(http.StatusOK, lead)
}

// UpdateLead godoc
// @Summary Edit a lead
// @Description Omitted fields are left unchanged. Setting change_lead_owner keeps a manual owner.
// @Tags Admin Leads
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Lead ID"
// @Param body body models.LeadRequest true "Changes"
// @Success 200 {object} models.Lead
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /admin/leads/{id} [put]
func (h *LeadHandler) UpdateLead(c echo.Context) error {
	req, err := h.bindRequest(c)
	if err != nil {
		return errors.ValidationError(c, err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	lead, err := h.leads.Update(ctx, c.Param("id"), req)
	if err != nil {
		return errors.FromDomain(c, err)
	}
	return c.JSON(http.StatusOK, lead)
}
