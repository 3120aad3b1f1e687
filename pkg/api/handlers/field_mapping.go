package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jordanlanch/leadsync/pkg/api/errors"
	"github.com/jordanlanch/leadsync/pkg/fieldmap"
	"github.com/jordanlanch/leadsync/pkg/models"
	"github.com/labstack/echo/v4"
)

// MappingStore reads and replaces named field mappings
type MappingStore interface {
	GetFieldMappings(ctx context.Context, name string) ([]models.FieldMapping, error)
	ReplaceFieldMappings(ctx context.Context, name string, rows []models.FieldMapping) error
}

// FieldMappingHandler handles the CRM-to-lead field mapping endpoints
type FieldMappingHandler struct {
	store     MappingStore
	name      string
	validator *validator.Validate
}

// NewFieldMappingHandler creates a handler for the mapping called name
func NewFieldMappingHandler(store MappingStore, name string) *FieldMappingHandler {
	return &FieldMappingHandler{
		store:     store,
		name:      name,
		validator: validator.New(),
	}
}

type fieldMappingResponse struct {
	Name      string                `json:"name"`
	Mappings  []models.FieldMapping `json:"mappings"`
	IsDefault bool                  `json:"is_default"`
}

// GetMappings godoc
// @Summary Get the active field mapping
// @Description Falls back to the built-in rows when none are stored
// @Tags Admin Field Mappings
// @Produce json
// @Security BearerAuth
// @Success 200 {object} fieldMappingResponse
// @Router /admin/field-mappings [get]
func (h *FieldMappingHandler) GetMappings(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	rows, err := h.store.GetFieldMappings(ctx, h.name)
	if err != nil {
		return errors.DatabaseError(c, err)
	}
	resp := fieldMappingResponse{Name: h.name, Mappings: rows}
	if len(rows) == 0 {
		resp.Mappings = fieldmap.DefaultMappings()
		resp.IsDefault = true
	}
	return c.JSON(http.StatusOK, resp)
}

// ReplaceMappings godoc
// @Summary Replace the field mapping rows
// @Tags Admin Field Mappings
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body models.FieldMappingRequest true "Rows"
// @Success 200 {object} fieldMappingResponse
// @Failure 400 {object} models.ErrorResponse
// @Router /admin/field-mappings [put]
func (h *FieldMappingHandler) ReplaceMappings(c echo.Context) error {
	var req models.FieldMappingRequest
	if err := c.Bind(&req); err != nil {
		return errors.ValidationError(c, err)
	}
	if err := h.validator.Struct(req); err != nil {
		return errors.ValidationError(c, err)
	}
	if err := fieldmap.ValidateMappings(req.Mappings); err != nil {
		return errors.FromDomain(c, err)
	}
	for i := range req.Mappings {
		req.Mappings[i].Idx = i + 1
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	if err := h.store.ReplaceFieldMappings(ctx, h.name, req.Mappings); err != nil {
		return errors.DatabaseError(c, err)
	}
	return c.JSON(http.StatusOK, fieldMappingResponse{Name: h.name, Mappings: req.Mappings})
}

// ListFields godoc
// @Summary List the lead fields a mapping row may target
// @Tags Admin Field Mappings
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Router /admin/field-mappings/fields [get]
func (h *FieldMappingHandler) ListFields(c echo.Context) error {
	fields := models.LeadFieldNames()
	return c.JSON(http.StatusOK, map[string]interface{}{
		"fields": fields,
		"total":  len(fields),
	})
}

// SeedDefault godoc
// @Summary Overwrite the mapping with the built-in rows
// @Tags Admin Field Mappings
// @Produce json
// @Security BearerAuth
// @Success 200 {object} fieldMappingResponse
// @Router /admin/field-mappings/default [post]
func (h *FieldMappingHandler) SeedDefault(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	rows := fieldmap.DefaultMappings()
	if err := h.store.ReplaceFieldMappings(ctx, h.name, rows); err != nil {
		return errors.DatabaseError(c, err)
	}
	return c.JSON(http.StatusOK, fieldMappingResponse{Name: h.name, Mappings: rows})
}
