package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/service"
)

// DashboardHandler serves aggregate ticket counts.
type DashboardHandler struct {
	reports *service.ReportService
}

// NewDashboardHandler constructs handler.
func NewDashboardHandler(reportService *service.ReportService) *DashboardHandler {
	return &DashboardHandler{reports: reportService}
}

// Stats handles GET /api/dashboard/stats.
func (h *DashboardHandler) Stats(c *fiber.Ctx) error {
	stats, err := h.reports.Stats(c.UserContext())
	if err != nil {
		return err
	}
	return ok(c, "General stats retrieved successfully", stats)
}

// ByCategory handles GET /api/dashboard/stats/by-category.
func (h *DashboardHandler) ByCategory(c *fiber.Ctx) error {
	groups, err := h.reports.StatsByCategory(c.UserContext())
	if err != nil {
		return err
	}
	return ok(c, "Category stats retrieved successfully", dto.NewCategoryCounts(groups))
}

// ByPriority handles GET /api/dashboard/stats/by-priority.
func (h *DashboardHandler) ByPriority(c *fiber.Ctx) error {
	groups, err := h.reports.StatsByPriority(c.UserContext())
	if err != nil {
		return err
	}
	return ok(c, "Priority stats retrieved successfully", dto.NewPriorityCounts(groups))
}

// Workload handles GET /api/dashboard/workload.
func (h *DashboardHandler) Workload(c *fiber.Ctx) error {
	caller, err := currentUser(c)
	if err != nil {
		return err
	}
	workload, err := h.reports.Workload(c.UserContext(), caller)
	if err != nil {
		return err
	}
	return ok(c, "Workload stats retrieved successfully", workload)
}
