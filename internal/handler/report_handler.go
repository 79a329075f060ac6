package handler

import (
	"go-pos-ledger/internal/service"

	"github.com/gofiber/fiber/v2"
)

type ReportHandler struct {
	service service.ReportService
}

func NewReportHandler(s service.ReportService) *ReportHandler {
	return &ReportHandler{service: s}
}

func (h *ReportHandler) query(c *fiber.Ctx) (service.ReportQuery, error) {
	var q service.ReportQuery
	err := c.QueryParser(&q)
	return q, err
}

// report wraps one ReportService method as a handler that answers in JSON or
// CSV.
func report[R service.CSVReport](h *ReportHandler, build func(service.Actor, service.ReportQuery) (R, error)) fiber.Handler {
	return func(c *fiber.Ctx) error {
		q, err := h.query(c)
		if err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "Invalid query"})
		}
		r, err := build(actorOf(c), q)
		if err != nil {
			return fail(c, err)
		}
		return sendReport(c, r)
	}
}

// GET /api/v1/reports/summary?start=&end=&sellerId=&payment=&format=csv
func (h *ReportHandler) GetSummary() fiber.Handler { return report(h, h.service.Summary) }

// GET /api/v1/reports/detailed
func (h *ReportHandler) GetDetailed() fiber.Handler { return report(h, h.service.Detailed) }

// GET /api/v1/reports/credit
func (h *ReportHandler) GetCredit() fiber.Handler { return report(h, h.service.Credit) }

// GET /api/v1/reports/transfer
func (h *ReportHandler) GetTransfer() fiber.Handler { return report(h, h.service.Transfer) }

// GET /api/v1/reports/history (admin)
func (h *ReportHandler) GetHistory() fiber.Handler { return report(h, h.service.History) }
