package handler

import (
	"io"
	"time"

	"go-pos-ledger/internal/service"

	"github.com/gofiber/fiber/v2"
)

type BackupHandler struct {
	backup service.BackupService
	reset  service.ResetService
	loc    *time.Location
}

func NewBackupHandler(backup service.BackupService, reset service.ResetService, loc *time.Location) *BackupHandler {
	return &BackupHandler{backup: backup, reset: reset, loc: loc}
}

type passwordRequest struct {
	Password string `json:"password"`
}

// uploadedBody reads a multipart "file" field, or the raw body when the
// request carries none.
func uploadedBody(c *fiber.Ctx) ([]byte, string, error) {
	fh, err := c.FormFile("file")
	if err != nil {
		return c.Body(), "", nil
	}
	f, err := fh.Open()
	if err != nil {
		return nil, "", err
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	return data, fh.Filename, err
}

// Export downloads the whole pos dataset.
// GET /api/v1/backup
func (h *BackupHandler) Export(c *fiber.Ctx) error {
	body, err := h.backup.Export(c.UserContext())
	if err != nil {
		return fail(c, err)
	}
	name := service.BackupFileName(actorOf(c).Username, time.Now().In(h.loc))
	return sendFile(c, name, fiber.MIMEApplicationJSONCharsetUTF8, body)
}

// Import merges an uploaded backup into the dataset.
// POST /api/v1/backup
func (h *BackupHandler) Import(c *fiber.Ctx) error {
	raw, _, err := uploadedBody(c)
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Failed to read uploaded file"})
	}
	if len(raw) == 0 {
		return c.Status(400).JSON(fiber.Map{"error": "Backup file is empty"})
	}

	result, err := h.backup.Import(c.UserContext(), actorOf(c), raw)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "Backup merged", "data": result})
}

// GET /api/v1/backup/password
func (h *BackupHandler) PasswordStatus(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"set": h.backup.HasBackupPassword()})
}

// PUT /api/v1/backup/password
func (h *BackupHandler) SetPassword(c *fiber.Ctx) error {
	var req passwordRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidJSON(c)
	}
	if err := h.backup.SetBackupPassword(c.UserContext(), actorOf(c), req.Password); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "Backup password updated", "set": req.Password != ""})
}

// Reset clears the selected collections.
// POST /api/v1/reset
func (h *BackupHandler) Reset(c *fiber.Ctx) error {
	var req service.ResetOptions
	if err := c.BodyParser(&req); err != nil {
		return invalidJSON(c)
	}
	if err := h.reset.Reset(c.UserContext(), actorOf(c), req); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "Data reset"})
}
