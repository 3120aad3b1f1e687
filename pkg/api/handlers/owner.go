package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/jordanlanch/leadsync/pkg/models"
	"github.com/labstack/echo/v4"
)

// OwnerSyncer runs the admin owner maintenance jobs
type OwnerSyncer interface {
	ResyncAll(ctx context.Context) models.SyncSummary
	BackfillOwnerNames(ctx context.Context) models.SyncSummary
	SyncFromAssignment(ctx context.Context, leadID string) models.OwnerSyncResult
}

// OwnerHandler handles lead owner maintenance endpoints
type OwnerHandler struct {
	owners OwnerSyncer
}

// NewOwnerHandler creates a new owner handler
func NewOwnerHandler(owners OwnerSyncer) *OwnerHandler {
	return &OwnerHandler{owners: owners}
}

func summaryStatus(ok bool) int {
	if ok {
		return http.StatusOK
	}
	return http.StatusInternalServerError
}

// ResyncOwners godoc
// @Summary Re-derive every lead owner from its assignment
// @Description Leads in manual owner mode are skipped
// @Tags Admin Owners
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.SyncSummary
// @Failure 500 {object} models.SyncSummary
// @Router /admin/leads/owners/resync [post]
func (h *OwnerHandler) ResyncOwners(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Minute)
	defer cancel()

	summary := h.owners.ResyncAll(ctx)
	return c.JSON(summaryStatus(summary.Success), summary)
}

// BackfillOwnerNames godoc
// @Summary Fill lead_owner_name from lead_owner on every lead
// @Tags Admin Owners
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.SyncSummary
// @Failure 500 {object} models.SyncSummary
// @Router /admin/leads/owners/backfill-names [post]
func (h *OwnerHandler) BackfillOwnerNames(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Minute)
	defer cancel()

	summary := h.owners.BackfillOwnerNames(ctx)
	return c.JSON(summaryStatus(summary.Success), summary)
}

// SyncLeadOwner godoc
// @Summary Set one lead's owner to its assignment target
// @Tags Admin Owners
// @Produce json
// @Security BearerAuth
// @Param id path string true "Lead ID"
// @Success 200 {object} models.OwnerSyncResult
// @Router /admin/leads/{id}/owner/sync [post]
func (h *OwnerHandler) SyncLeadOwner(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 30*time.Second)
	defer cancel()

	// failures are reported in the body, like the bulk jobs
	return c.JSON(http.StatusOK, h.owners.SyncFromAssignment(ctx, c.Param("id")))
}
