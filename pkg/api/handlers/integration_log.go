package handlers

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jordanlanch/leadsync/pkg/api/errors"
	"github.com/jordanlanch/leadsync/pkg/export"
	"github.com/jordanlanch/leadsync/pkg/leadsync"
	"github.com/jordanlanch/leadsync/pkg/models"
	"github.com/labstack/echo/v4"
)

const defaultLogPageSize = 50

// LogReader reads the integration log
type LogReader interface {
	ListLogs(ctx context.Context, filter models.IntegrationLogFilter) ([]*models.IntegrationLog, error)
	GetLog(ctx context.Context, id string) (*models.IntegrationLog, error)
	CountLogs(ctx context.Context, status string) (int, error)
}

// LogProcessor reprocesses integration log entries on demand
type LogProcessor interface {
	Retry(ctx context.Context, logID string) (*models.IntegrationLog, leadsync.Outcome, error)
	MarkFailed(ctx context.Context, logID, message string) (*models.IntegrationLog, error)
	RetryPending(ctx context.Context) (models.SweepResult, error)
}

// IntegrationLogHandler handles integration log admin endpoints
type IntegrationLogHandler struct {
	logs      LogReader
	processor LogProcessor
	validator *validator.Validate
}

// NewIntegrationLogHandler creates a new integration log handler
func NewIntegrationLogHandler(logs LogReader, processor LogProcessor) *IntegrationLogHandler {
	return &IntegrationLogHandler{
		logs:      logs,
		processor: processor,
		validator: validator.New(),
	}
}

// ListLogs godoc
// @Summary List integration log entries
// @Tags Admin Integration Logs
// @Produce json
// @Security BearerAuth
// @Param status query string false "Pending, Success or Failed"
// @Param limit query integer false "Page size" default(50)
// @Param offset query integer false "Offset"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} models.ErrorResponse
// @Router /admin/integration-logs [get]
func (h *IntegrationLogHandler) ListLogs(c echo.Context) error {
	var filter models.IntegrationLogFilter
	if err := c.Bind(&filter); err != nil {
		return errors.ValidationError(c, err)
	}
	if err := h.validator.Struct(filter); err != nil {
		return errors.ValidationError(c, err)
	}
	if filter.Limit == 0 {
		filter.Limit = defaultLogPageSize
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	logs, err := h.logs.ListLogs(ctx, filter)
	if err != nil {
		return errors.DatabaseError(c, err)
	}
	total, err := h.logs.CountLogs(ctx, filter.Status)
	if err != nil {
		return errors.DatabaseError(c, err)
	}
	if logs == nil {
		logs = []*models.IntegrationLog{}
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"data":   logs,
		"total":  total,
		"limit":  filter.Limit,
		"offset": filter.Offset,
	})
}

// GetLog godoc
// @Summary Get an integration log entry
// @Tags Admin Integration Logs
// @Produce json
// @Security BearerAuth
// @Param id path string true "Log ID"
// @Success 200 {object} models.IntegrationLog
// @Failure 404 {object} models.ErrorResponse
// @Router /admin/integration-logs/{id} [get]
func (h *IntegrationLogHandler) GetLog(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	entry, err := h.logs.GetLog(ctx, c.Param("id"))
	if err != nil {
		return errors.FromDomain(c, err)
	}
	return c.JSON(http.StatusOK, entry)
}

// RetryLog godoc
// @Summary Reprocess one Pending or Failed entry now
// @Tags Admin Integration Logs
// @Produce json
// @Security BearerAuth
// @Param id path string true "Log ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} models.ErrorResponse
// @Router /admin/integration-logs/{id}/retry [post]
func (h *IntegrationLogHandler) RetryLog(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 60*time.Second)
	defer cancel()

	entry, outcome, err := h.processor.Retry(ctx, c.Param("id"))
	if err != nil {
		return errors.FromDomain(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"outcome": outcome,
		"log":     entry,
	})
}

// FailLog godoc
// @Summary Mark an entry Failed so the sweep stops retrying it
// @Tags Admin Integration Logs
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Log ID"
// @Param body body models.FailLogRequest true "Reason"
// @Success 200 {object} models.IntegrationLog
// @Failure 409 {object} models.ErrorResponse "Entry already succeeded"
// @Router /admin/integration-logs/{id}/fail [post]
func (h *IntegrationLogHandler) FailLog(c echo.Context) error {
	var req models.FailLogRequest
	if err := c.Bind(&req); err != nil {
		return errors.ValidationError(c, err)
	}
	if err := h.validator.Struct(req); err != nil {
		return errors.ValidationError(c, err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	entry, err := h.processor.MarkFailed(ctx, c.Param("id"), req.Message)
	if err != nil {
		return errors.FromDomain(c, err)
	}
	return c.JSON(http.StatusOK, entry)
}

// SweepLogs godoc
// @Summary Run one retry sweep over Pending entries now
// @Tags Admin Integration Logs
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.SweepResult
// @Router /admin/integration-logs/sweep [post]
func (h *IntegrationLogHandler) SweepLogs(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Minute)
	defer cancel()

	result, err := h.processor.RetryPending(ctx)
	if err != nil {
		return errors.InternalError(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

// ExportLogs godoc
// @Summary Download integration log entries as xlsx or csv
// @Tags Admin Integration Logs
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Produce text/csv
// @Security BearerAuth
// @Param format query string false "xlsx or csv" default(xlsx)
// @Param status query string false "Pending, Success or Failed"
// @Success 200 {file} file
// @Failure 400 {object} models.ErrorResponse
// @Router /admin/integration-logs/export [get]
func (h *IntegrationLogHandler) ExportLogs(c echo.Context) error {
	format := c.QueryParam("format")
	if format == "" {
		format = export.FormatExcel
	}
	mime, ext, err := export.ContentType(format)
	if err != nil {
		return errors.FromDomain(c, err)
	}

	filter := models.IntegrationLogFilter{Status: c.QueryParam("status")}
	if err := h.validator.Struct(filter); err != nil {
		return errors.ValidationError(c, err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Minute)
	defer cancel()

	logs, err := h.logs.ListLogs(ctx, filter)
	if err != nil {
		return errors.DatabaseError(c, err)
	}

	// buffer so a failed render can still answer with an error
	var buf bytes.Buffer
	if err := export.WriteLogs(&buf, format, logs); err != nil {
		return errors.InternalError(c, err)
	}

	filename := fmt.Sprintf("integration-logs-%s.%s", time.Now().UTC().Format("20060102-150405"), ext)
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	return c.Blob(http.StatusOK, mime, buf.Bytes())
}
