package handler

import (
	"go-pos-ledger/internal/service"

	"github.com/gofiber/fiber/v2"
)

type SaleHandler struct {
	service service.SaleService
}

func NewSaleHandler(s service.SaleService) *SaleHandler {
	return &SaleHandler{service: s}
}

// Checkout records a sale from the cart.
// POST /api/v1/sales
func (h *SaleHandler) Checkout(c *fiber.Ctx) error {
	var req service.CheckoutRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidJSON(c)
	}

	sale, err := h.service.Checkout(c.UserContext(), actorOf(c), &req)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(201).JSON(fiber.Map{"message": "Sale recorded", "data": sale})
}

// AmendSale replaces a sale's lines and payment details.
// PUT /api/v1/sales/:id
func (h *SaleHandler) AmendSale(c *fiber.Ctx) error {
	var req service.CheckoutRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidJSON(c)
	}

	sale, err := h.service.AmendSale(c.UserContext(), actorOf(c), idParam(c), &req)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "Sale updated", "data": sale})
}

func (h *SaleHandler) DeleteSale(c *fiber.Ctx) error {
	if err := h.service.DeleteSale(c.UserContext(), actorOf(c), idParam(c)); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "Sale deleted"})
}

func (h *SaleHandler) GetSale(c *fiber.Ctx) error {
	sale, err := h.service.GetSale(actorOf(c), idParam(c))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(sale)
}

// GetSales lists every sale, newest first.
// GET /api/v1/sales
func (h *SaleHandler) GetSales(c *fiber.Ctx) error {
	return c.JSON(h.service.ListSales())
}

// GetHistory returns the caller's own sales for today, a day or a range.
// GET /api/v1/sales/history?mode=by_range&start=...&end=...
func (h *SaleHandler) GetHistory(c *fiber.Ctx) error {
	var q service.HistoryQuery
	if err := c.QueryParser(&q); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid query"})
	}

	sales, err := h.service.SellerHistory(actorOf(c), q)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(sales)
}
