package handler

import (
	"go-pos-ledger/internal/service"

	"github.com/gofiber/fiber/v2"
)

type InventoryHandler struct {
	service service.InventoryService
}

func NewInventoryHandler(s service.InventoryService) *InventoryHandler {
	return &InventoryHandler{service: s}
}

// GetProducts lists products. Sellers only see the products assigned to them.
func (h *InventoryHandler) GetProducts(c *fiber.Ctx) error {
	products, err := h.service.ListProducts(actorOf(c))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(products)
}

func (h *InventoryHandler) GetProduct(c *fiber.Ctx) error {
	product, err := h.service.GetProduct(idParam(c))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(product)
}

func (h *InventoryHandler) CreateProduct(c *fiber.Ctx) error {
	var req service.ProductRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidJSON(c)
	}

	product, err := h.service.CreateProduct(c.UserContext(), actorOf(c), &req)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(201).JSON(fiber.Map{"message": "Product created", "data": product})
}

func (h *InventoryHandler) UpdateProduct(c *fiber.Ctx) error {
	var req service.ProductRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidJSON(c)
	}

	updated, err := h.service.UpdateProduct(c.UserContext(), actorOf(c), idParam(c), &req)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "Product updated", "data": updated})
}

func (h *InventoryHandler) DeleteProduct(c *fiber.Ctx) error {
	if err := h.service.DeleteProduct(c.UserContext(), actorOf(c), idParam(c)); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "Product deleted"})
}

func (h *InventoryHandler) GetStockIns(c *fiber.Ctx) error {
	return c.JSON(h.service.ListStockIns())
}

func (h *InventoryHandler) CreateStockIn(c *fiber.Ctx) error {
	var req service.StockInRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidJSON(c)
	}

	rec, err := h.service.RecordStockIn(c.UserContext(), actorOf(c), &req)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(201).JSON(fiber.Map{"message": "Stock-in recorded", "data": rec})
}

func (h *InventoryHandler) UpdateStockIn(c *fiber.Ctx) error {
	var req service.StockInRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidJSON(c)
	}

	rec, err := h.service.UpdateStockIn(c.UserContext(), actorOf(c), idParam(c), &req)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "Stock-in updated", "data": rec})
}

func (h *InventoryHandler) DeleteStockIn(c *fiber.Ctx) error {
	if err := h.service.DeleteStockIn(c.UserContext(), actorOf(c), idParam(c)); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "Stock-in deleted"})
}

func (h *InventoryHandler) GetStockOuts(c *fiber.Ctx) error {
	return c.JSON(h.service.ListStockOuts())
}

func (h *InventoryHandler) CreateStockOut(c *fiber.Ctx) error {
	var req service.StockOutRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidJSON(c)
	}

	rec, err := h.service.RecordStockOut(c.UserContext(), actorOf(c), &req)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(201).JSON(fiber.Map{"message": "Stock-out recorded", "data": rec})
}

func (h *InventoryHandler) DeleteStockOut(c *fiber.Ctx) error {
	if err := h.service.DeleteStockOut(c.UserContext(), actorOf(c), idParam(c)); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "Stock-out deleted"})
}

// GetStockReport compares each product's cached stock with the ledger.
// GET /api/v1/reports/stock
func (h *InventoryHandler) GetStockReport(c *fiber.Ctx) error {
	report := h.service.StockReport()
	return c.JSON(fiber.Map{"data": report, "drifted": len(report.Drifted())})
}

// RecalculateStock rewrites every cached stock value from the ledger.
// POST /api/v1/products/recalculate
func (h *InventoryHandler) RecalculateStock(c *fiber.Ctx) error {
	report, err := h.service.RecalculateStock(c.UserContext(), actorOf(c))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "Stock recalculated", "data": report})
}
