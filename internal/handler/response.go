package handler

import (
	"errors"
	"strconv"

	"go-pos-ledger/internal/middleware"
	"go-pos-ledger/internal/model"
	"go-pos-ledger/internal/service"

	"github.com/gofiber/fiber/v2"
)

// fail writes err as {"error": ...} with the status its class maps to.
func fail(c *fiber.Ctx, err error) error {
	return c.Status(statusFor(err)).JSON(fiber.Map{"error": err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		return fiber.StatusUnauthorized
	case errors.Is(err, service.ErrNotFound), errors.Is(err, service.ErrNoMatchingRecords):
		return fiber.StatusNotFound
	case errors.Is(err, service.ErrForbidden):
		return fiber.StatusForbidden
	case errors.Is(err, service.ErrStorage):
		return fiber.StatusInternalServerError
	default:
		return fiber.StatusBadRequest
	}
}

func invalidJSON(c *fiber.Ctx) error {
	return c.Status(400).JSON(fiber.Map{"error": "Invalid JSON"})
}

// Helper to get the caller set by the auth middleware
func actorOf(c *fiber.Ctx) service.Actor {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		// unreachable behind RequireAuth
		return service.Actor{}
	}
	return actor
}

func idParam(c *fiber.Ctx) model.ID {
	return model.ID(c.Params("id"))
}

func indexParam(c *fiber.Ctx) (int, error) {
	return strconv.Atoi(c.Params("index"))
}

// sendFile sends body as a download named name.
func sendFile(c *fiber.Ctx, name, contentType string, body []byte) error {
	c.Attachment(name)
	c.Set(fiber.HeaderContentType, contentType)
	return c.Send(body)
}

// sendReport answers with JSON, or with the CSV rendering when the request
// asks for ?format=csv.
func sendReport(c *fiber.Ctx, report service.CSVReport) error {
	if c.Query("format") == "csv" {
		return sendFile(c, report.FileName(), "text/csv; charset=utf-8", report.Table().Bytes())
	}
	return c.JSON(report)
}
