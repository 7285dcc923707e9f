package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/service"
)

// AdminHandler exposes bulk operations and reports.
type AdminHandler struct {
	admin   *service.AdminService
	reports *service.ReportService
}

// NewAdminHandler constructs handler.
func NewAdminHandler(adminService *service.AdminService, reportService *service.ReportService) *AdminHandler {
	return &AdminHandler{admin: adminService, reports: reportService}
}

// BulkAssign handles POST /api/admin/tickets/bulk-assign.
func (h *AdminHandler) BulkAssign(c *fiber.Ctx) error {
	caller, err := currentUser(c)
	if err != nil {
		return err
	}
	var req dto.BulkAssignRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	res, err := h.admin.BulkAssign(c.UserContext(), caller, req.TicketIDs, req.TechnicianID)
	if err != nil {
		return err
	}
	return ok(c, "Tickets assigned successfully", dto.BulkResponse{Matched: res.Matched, Modified: res.Modified})
}

// BulkStatus handles PATCH /api/admin/tickets/bulk-status.
func (h *AdminHandler) BulkStatus(c *fiber.Ctx) error {
	caller, err := currentUser(c)
	if err != nil {
		return err
	}
	var req dto.BulkStatusRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	res, err := h.admin.BulkStatusUpdate(c.UserContext(), caller, req.TicketIDs, domain.TicketStatus(req.Status))
	if err != nil {
		return err
	}
	return ok(c, "Tickets status updated successfully", dto.BulkResponse{Matched: res.Matched, Modified: res.Modified})
}

// GenerateReport handles POST /api/admin/reports/generate.
func (h *AdminHandler) GenerateReport(c *fiber.Ctx) error {
	caller, err := currentUser(c)
	if err != nil {
		return err
	}
	var req dto.GenerateReportRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	report, err := h.reports.GenerateReport(c.UserContext(), caller, service.ReportRequest{
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
		Type:      req.Type,
	})
	if err != nil {
		return err
	}
	return ok(c, "Report generated successfully", dto.ReportResponse{
		Filter: dto.ReportFilter{
			StartDate: report.Filter.StartDate,
			EndDate:   report.Filter.EndDate,
			Type:      report.Filter.Type,
		},
		Data:        report.Data,
		GeneratedAt: report.GeneratedAt,
	})
}
