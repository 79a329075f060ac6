package handler

import (
	"net/url"
	"path/filepath"
	"strings"

	"go-pos-ledger/internal/service"

	"github.com/gofiber/fiber/v2"
)

type TrackerHandler struct {
	service service.TrackerService
}

func NewTrackerHandler(s service.TrackerService) *TrackerHandler {
	return &TrackerHandler{service: s}
}

type nameRequest struct {
	Name string `json:"name"`
}

type copyDayRequest struct {
	From string `json:"from"`
	Date string `json:"date"`
}

// nameParam decodes a path segment. Account and type names are usually Thai.
func nameParam(c *fiber.Ctx, key string) string {
	raw := c.Params(key)
	if s, err := url.PathUnescape(raw); err == nil {
		return s
	}
	return raw
}

// fileFormat takes ?format= first, then the uploaded file's extension.
func fileFormat(c *fiber.Ctx, filename, fallback string) string {
	if f := strings.ToLower(c.Query("format")); f != "" {
		return f
	}
	if ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), "."); ext != "" {
		return ext
	}
	return fallback
}

func sendTrackerFile(c *fiber.Ctx, f *service.TrackerFile) error {
	return sendFile(c, f.Name, f.ContentType, f.Body)
}

// Accounts

func (h *TrackerHandler) GetAccounts(c *fiber.Ctx) error {
	return c.JSON(h.service.Accounts())
}

func (h *TrackerHandler) CreateAccount(c *fiber.Ctx) error {
	var req nameRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidJSON(c)
	}
	if err := h.service.AddAccount(c.UserContext(), req.Name); err != nil {
		return fail(c, err)
	}
	return c.Status(201).JSON(fiber.Map{"message": "Account created"})
}

func (h *TrackerHandler) RenameAccount(c *fiber.Ctx) error {
	var req nameRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidJSON(c)
	}
	if err := h.service.RenameAccount(c.UserContext(), nameParam(c, "account"), req.Name); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "Account renamed"})
}

func (h *TrackerHandler) DeleteAccount(c *fiber.Ctx) error {
	if err := h.service.DeleteAccount(c.UserContext(), nameParam(c, "account")); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "Account deleted"})
}

// Types

func (h *TrackerHandler) GetTypes(c *fiber.Ctx) error {
	return c.JSON(h.service.Types())
}

func (h *TrackerHandler) CreateType(c *fiber.Ctx) error {
	var req nameRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidJSON(c)
	}
	if err := h.service.AddType(c.UserContext(), req.Name); err != nil {
		return fail(c, err)
	}
	return c.Status(201).JSON(fiber.Map{"message": "Type created"})
}

// RenameType also renames the type on every existing record.
func (h *TrackerHandler) RenameType(c *fiber.Ctx) error {
	var req nameRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidJSON(c)
	}
	if err := h.service.RenameType(c.UserContext(), nameParam(c, "type"), req.Name); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "Type renamed"})
}

func (h *TrackerHandler) DeleteType(c *fiber.Ctx) error {
	if err := h.service.DeleteType(c.UserContext(), nameParam(c, "type")); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "Type deleted"})
}

// Entries

// GET /api/v1/tracker/accounts/:account/entries?date=YYYY-MM-DD
func (h *TrackerHandler) GetEntries(c *fiber.Ctx) error {
	entries, err := h.service.Entries(nameParam(c, "account"), c.Query("date"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(entries)
}

func (h *TrackerHandler) CreateEntry(c *fiber.Ctx) error {
	var req service.EntryRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidJSON(c)
	}
	if err := h.service.AddEntry(c.UserContext(), nameParam(c, "account"), &req); err != nil {
		return fail(c, err)
	}
	return c.Status(201).JSON(fiber.Map{"message": "Entry recorded"})
}

func (h *TrackerHandler) UpdateEntry(c *fiber.Ctx) error {
	index, err := indexParam(c)
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid entry index"})
	}
	var req service.EntryRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidJSON(c)
	}
	if err := h.service.UpdateEntry(c.UserContext(), nameParam(c, "account"), index, &req); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "Entry updated"})
}

func (h *TrackerHandler) DeleteEntry(c *fiber.Ctx) error {
	index, err := indexParam(c)
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid entry index"})
	}
	if err := h.service.DeleteEntry(c.UserContext(), nameParam(c, "account"), index); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "Entry deleted"})
}

// DELETE /api/v1/tracker/accounts/:account/entries?date=YYYY-MM-DD
func (h *TrackerHandler) DeleteEntriesOnDate(c *fiber.Ctx) error {
	n, err := h.service.DeleteEntriesOnDate(c.UserContext(), nameParam(c, "account"), c.Query("date"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "Entries deleted", "deleted": n})
}

// CopyDay copies one day of another account into this one, skipping
// records that are already present.
func (h *TrackerHandler) CopyDay(c *fiber.Ctx) error {
	var req copyDayRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidJSON(c)
	}
	res, err := h.service.CopyDayFromAccount(c.UserContext(), req.From, nameParam(c, "account"), req.Date)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "Day copied", "data": res})
}

// MergeDay merges a single-day JSON or CSV file into the account.
func (h *TrackerHandler) MergeDay(c *fiber.Ctx) error {
	raw, filename, err := uploadedBody(c)
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Failed to read uploaded file"})
	}
	res, err := h.service.MergeDay(c.UserContext(), nameParam(c, "account"), raw, fileFormat(c, filename, service.FormatJSON))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "Day merged", "data": res})
}

// GET /api/v1/tracker/accounts/:account/export?date=&format=csv
func (h *TrackerHandler) ExportAccount(c *fiber.Ctx) error {
	f, err := h.service.ExportAccount(nameParam(c, "account"), c.Query("date"), fileFormat(c, "", service.FormatJSON))
	if err != nil {
		return fail(c, err)
	}
	return sendTrackerFile(c, f)
}

// GET /api/v1/tracker/accounts/:account/summary?start=&end=&format=xlsx
func (h *TrackerHandler) GetSummary(c *fiber.Ctx) error {
	sum, err := h.service.Summarize(nameParam(c, "account"), c.Query("start"), c.Query("end"))
	if err != nil {
		return fail(c, err)
	}
	if c.Query("format") != service.FormatXLSX {
		return c.JSON(sum)
	}
	f, err := h.service.SummaryWorkbook(sum)
	if err != nil {
		return fail(c, err)
	}
	return sendTrackerFile(c, f)
}

// Whole-tracker files

// GET /api/v1/tracker/export?format=json|csv|xlsx
func (h *TrackerHandler) Export(c *fiber.Ctx) error {
	f, err := h.service.Export(fileFormat(c, "", service.FormatJSON))
	if err != nil {
		return fail(c, err)
	}
	return sendTrackerFile(c, f)
}

// Import replaces every account with the uploaded file's contents.
// POST /api/v1/tracker/import
func (h *TrackerHandler) Import(c *fiber.Ctx) error {
	raw, filename, err := uploadedBody(c)
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Failed to read uploaded file"})
	}
	res, err := h.service.Import(c.UserContext(), raw, fileFormat(c, filename, service.FormatJSON))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "Tracker imported", "data": res})
}

func (h *TrackerHandler) PasswordStatus(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"set": h.service.HasBackupPassword()})
}

func (h *TrackerHandler) SetPassword(c *fiber.Ctx) error {
	var req passwordRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidJSON(c)
	}
	if err := h.service.SetBackupPassword(c.UserContext(), req.Password); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "Backup password updated", "set": req.Password != ""})
}
