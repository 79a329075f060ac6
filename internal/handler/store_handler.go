package handler

import (
	"go-pos-ledger/internal/service"

	"github.com/gofiber/fiber/v2"
)

type StoreHandler struct {
	service service.StoreService
}

func NewStoreHandler(s service.StoreService) *StoreHandler {
	return &StoreHandler{service: s}
}

func (h *StoreHandler) GetStores(c *fiber.Ctx) error {
	return c.JSON(h.service.ListStores())
}

func (h *StoreHandler) CreateStore(c *fiber.Ctx) error {
	var req service.StoreRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidJSON(c)
	}

	store, err := h.service.CreateStore(c.UserContext(), actorOf(c), &req)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(201).JSON(fiber.Map{"message": "Store created", "data": store})
}

func (h *StoreHandler) RenameStore(c *fiber.Ctx) error {
	var req service.StoreRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidJSON(c)
	}

	store, err := h.service.RenameStore(c.UserContext(), actorOf(c), idParam(c), &req)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "Store updated", "data": store})
}

// DeleteStore refuses while any user is still assigned to the store.
func (h *StoreHandler) DeleteStore(c *fiber.Ctx) error {
	if err := h.service.DeleteStore(c.UserContext(), actorOf(c), idParam(c)); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "Store deleted"})
}
