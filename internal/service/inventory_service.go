package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"go-pos-ledger/internal/model"
	"go-pos-ledger/internal/ws"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

var (
	ErrProductNotFound   = fmt.Errorf("product %w", ErrNotFound)
	ErrStockInNotFound   = fmt.Errorf("stock-in record %w", ErrNotFound)
	ErrStockOutNotFound  = fmt.Errorf("stock-out record %w", ErrNotFound)
	ErrInsufficientStock = errors.New("insufficient stock remaining")
)

type ProductRequest struct {
	Name string `json:"name" validate:"required"`
	Unit string `json:"unit" validate:"required"`
}

type StockInRequest struct {
	ProductID    model.ID        `json:"productId" validate:"required"`
	Quantity     int             `json:"quantity" validate:"gt=0"`
	CostPrice    decimal.Decimal `json:"costPrice" validate:"gte=0"`
	SellingPrice decimal.Decimal `json:"sellingPrice" validate:"gte=0"`
	Date         *time.Time      `json:"date"`
}

type StockOutRequest struct {
	ProductID model.ID   `json:"productId" validate:"required"`
	Quantity  int        `json:"quantity" validate:"gt=0"`
	Reason    string     `json:"reason" validate:"required"`
	Date      *time.Time `json:"date"`
}

type InventoryService interface {
	ListProducts(actor Actor) ([]model.Product, error)
	GetProduct(id model.ID) (*model.Product, error)
	CreateProduct(ctx context.Context, actor Actor, req *ProductRequest) (*model.Product, error)
	UpdateProduct(ctx context.Context, actor Actor, id model.ID, req *ProductRequest) (*model.Product, error)
	DeleteProduct(ctx context.Context, actor Actor, id model.ID) error

	ListStockIns() []model.StockIn
	RecordStockIn(ctx context.Context, actor Actor, req *StockInRequest) (*model.StockIn, error)
	UpdateStockIn(ctx context.Context, actor Actor, id model.ID, req *StockInRequest) (*model.StockIn, error)
	DeleteStockIn(ctx context.Context, actor Actor, id model.ID) error

	ListStockOuts() []model.StockOut
	RecordStockOut(ctx context.Context, actor Actor, req *StockOutRequest) (*model.StockOut, error)
	DeleteStockOut(ctx context.Context, actor Actor, id model.ID) error

	StockReport() StockReport
	RecalculateStock(ctx context.Context, actor Actor) (StockReport, error)
}

type inventoryService struct {
	ws     *PosWorkspace
	events Publisher
	log    logrus.FieldLogger
}

func NewInventoryService(w *PosWorkspace, events Publisher, log logrus.FieldLogger) InventoryService {
	return &inventoryService{ws: w, events: events, log: log}
}

func (s *inventoryService) ListProducts(actor Actor) ([]model.Product, error) {
	var products []model.Product
	err := s.ws.View(func(st *model.PosState) error {
		user, err := actorUser(st, actor)
		if err != nil {
			return err
		}
		for _, p := range st.Products {
			if user == nil || user.CanSell(p.ID) {
				products = append(products, p)
			}
		}
		return nil
	})
	return products, err
}

func (s *inventoryService) GetProduct(id model.ID) (*model.Product, error) {
	var product *model.Product
	err := s.ws.View(func(st *model.PosState) error {
		p := st.Product(id)
		if p == nil {
			return ErrProductNotFound
		}
		cp := *p
		product = &cp
		return nil
	})
	return product, err
}

func (s *inventoryService) CreateProduct(ctx context.Context, actor Actor, req *ProductRequest) (*model.Product, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	product := model.Product{
		ID:           model.NewID(),
		Name:         strings.TrimSpace(req.Name),
		Unit:         strings.TrimSpace(req.Unit),
		CostPrice:    decimal.Zero,
		SellingPrice: decimal.Zero,
	}
	err := s.ws.Mutate(ctx, func(st *model.PosState) error {
		st.Products = append(st.Products, product)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(actor, "product_created", product, fmt.Sprintf("%s created product '%s'", actor.Username, product.Name))
	return &product, nil
}

// UpdateProduct renames a product. The new name is copied into every sale
// line, stock-in and stock-out that references it.
func (s *inventoryService) UpdateProduct(ctx context.Context, actor Actor, id model.ID, req *ProductRequest) (*model.Product, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	var updated model.Product
	err := s.ws.Mutate(ctx, func(st *model.PosState) error {
		p := st.Product(id)
		if p == nil {
			return ErrProductNotFound
		}
		p.Name = strings.TrimSpace(req.Name)
		p.Unit = strings.TrimSpace(req.Unit)
		renameProductReferences(st, id, p.Name)
		updated = *p
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(actor, "product_updated", updated, fmt.Sprintf("%s updated product '%s'", actor.Username, updated.Name))
	return &updated, nil
}

func renameProductReferences(st *model.PosState, id model.ID, name string) {
	for i := range st.Sales {
		for j := range st.Sales[i].Items {
			if st.Sales[i].Items[j].ProductID == id {
				st.Sales[i].Items[j].Name = name
			}
		}
	}
	for i := range st.StockIns {
		if st.StockIns[i].ProductID == id {
			st.StockIns[i].ProductName = name
		}
	}
	for i := range st.StockOuts {
		if st.StockOuts[i].ProductID == id {
			st.StockOuts[i].ProductName = name
		}
	}
}

// DeleteProduct removes the product only; its history stays for reporting.
func (s *inventoryService) DeleteProduct(ctx context.Context, actor Actor, id model.ID) error {
	err := s.ws.Mutate(ctx, func(st *model.PosState) error {
		idx := slices.IndexFunc(st.Products, func(p model.Product) bool { return p.ID == id })
		if idx < 0 {
			return ErrProductNotFound
		}
		st.Products = slices.Delete(st.Products, idx, idx+1)
		return nil
	})
	if err != nil {
		return err
	}
	s.publish(actor, "product_deleted", map[string]any{"id": id}, "")
	return nil
}

func (s *inventoryService) ListStockIns() []model.StockIn {
	var out []model.StockIn
	s.ws.View(func(st *model.PosState) error {
		out = slices.Clone(st.StockIns)
		return nil
	})
	slices.SortStableFunc(out, func(a, b model.StockIn) int { return b.Date.Compare(a.Date) })
	return out
}

// RecordStockIn receives goods and takes the request's prices as the
// product's new cost and selling price.
func (s *inventoryService) RecordStockIn(ctx context.Context, actor Actor, req *StockInRequest) (*model.StockIn, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	var record model.StockIn
	var newStock int
	err := s.ws.Mutate(ctx, func(st *model.PosState) error {
		p := st.Product(req.ProductID)
		if p == nil {
			return ErrProductNotFound
		}
		p.Stock += req.Quantity
		p.CostPrice = req.CostPrice
		p.SellingPrice = req.SellingPrice
		newStock = p.Stock

		record = model.StockIn{
			ID:          model.NewID(),
			Date:        s.eventTime(req.Date),
			ProductID:   p.ID,
			ProductName: p.Name,
			Quantity:    req.Quantity,
			CostPerUnit: req.CostPrice,
		}
		st.StockIns = append(st.StockIns, record)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publishStock(actor, "stock_in_recorded", record.ProductID, record.ProductName, record.Quantity, newStock)
	return &record, nil
}

// UpdateStockIn edits a receipt and moves the quantity difference into the
// product's stock. Moving a receipt to another product takes the old
// quantity off the old product.
func (s *inventoryService) UpdateStockIn(ctx context.Context, actor Actor, id model.ID, req *StockInRequest) (*model.StockIn, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	var record model.StockIn
	var newStock int
	err := s.ws.Mutate(ctx, func(st *model.PosState) error {
		si := st.StockIn(id)
		if si == nil {
			return ErrStockInNotFound
		}
		p := st.Product(req.ProductID)
		if p == nil {
			return ErrProductNotFound
		}

		if si.ProductID == p.ID {
			p.Stock += req.Quantity - si.Quantity
		} else {
			if old := st.Product(si.ProductID); old != nil {
				old.Stock -= si.Quantity
			}
			p.Stock += req.Quantity
		}
		p.CostPrice = req.CostPrice
		p.SellingPrice = req.SellingPrice
		newStock = p.Stock

		si.ProductID = p.ID
		si.ProductName = p.Name
		si.Quantity = req.Quantity
		si.CostPerUnit = req.CostPrice
		if req.Date != nil {
			si.Date = req.Date.In(s.ws.Location())
		}
		record = *si
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publishStock(actor, "stock_in_updated", record.ProductID, record.ProductName, record.Quantity, newStock)
	return &record, nil
}

func (s *inventoryService) DeleteStockIn(ctx context.Context, actor Actor, id model.ID) error {
	var removed model.StockIn
	newStock := -1
	err := s.ws.Mutate(ctx, func(st *model.PosState) error {
		idx := slices.IndexFunc(st.StockIns, func(si model.StockIn) bool { return si.ID == id })
		if idx < 0 {
			return ErrStockInNotFound
		}
		removed = st.StockIns[idx]
		if p := st.Product(removed.ProductID); p != nil {
			p.Stock -= removed.Quantity
			newStock = p.Stock
		}
		st.StockIns = slices.Delete(st.StockIns, idx, idx+1)
		return nil
	})
	if err != nil {
		return err
	}
	s.publishStock(actor, "stock_in_deleted", removed.ProductID, removed.ProductName, removed.Quantity, newStock)
	return nil
}

func (s *inventoryService) ListStockOuts() []model.StockOut {
	var out []model.StockOut
	s.ws.View(func(st *model.PosState) error {
		out = slices.Clone(st.StockOuts)
		return nil
	})
	slices.SortStableFunc(out, func(a, b model.StockOut) int { return b.Date.Compare(a.Date) })
	return out
}

func (s *inventoryService) RecordStockOut(ctx context.Context, actor Actor, req *StockOutRequest) (*model.StockOut, error) {
	req.Reason = strings.TrimSpace(req.Reason)
	if err := validate(req); err != nil {
		return nil, err
	}

	var record model.StockOut
	var newStock int
	err := s.ws.Mutate(ctx, func(st *model.PosState) error {
		p := st.Product(req.ProductID)
		if p == nil {
			return ErrProductNotFound
		}
		if req.Quantity > p.Stock {
			return ErrInsufficientStock
		}
		p.Stock -= req.Quantity
		newStock = p.Stock

		record = model.StockOut{
			ID:          model.NewID(),
			Date:        s.eventTime(req.Date),
			ProductID:   p.ID,
			ProductName: p.Name,
			Quantity:    req.Quantity,
			Reason:      req.Reason,
		}
		st.StockOuts = append(st.StockOuts, record)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publishStock(actor, "stock_out_recorded", record.ProductID, record.ProductName, record.Quantity, newStock)
	return &record, nil
}

// DeleteStockOut reverses an adjustment and returns the quantity to stock.
func (s *inventoryService) DeleteStockOut(ctx context.Context, actor Actor, id model.ID) error {
	var removed model.StockOut
	newStock := -1
	err := s.ws.Mutate(ctx, func(st *model.PosState) error {
		idx := slices.IndexFunc(st.StockOuts, func(so model.StockOut) bool { return so.ID == id })
		if idx < 0 {
			return ErrStockOutNotFound
		}
		removed = st.StockOuts[idx]
		if p := st.Product(removed.ProductID); p != nil {
			p.Stock += removed.Quantity
			newStock = p.Stock
		}
		st.StockOuts = slices.Delete(st.StockOuts, idx, idx+1)
		return nil
	})
	if err != nil {
		return err
	}
	s.publishStock(actor, "stock_out_deleted", removed.ProductID, removed.ProductName, removed.Quantity, newStock)
	return nil
}

// StockReport compares cached stock with the ledger. Drift is only
// reported; RecalculateStock repairs it.
func (s *inventoryService) StockReport() StockReport {
	var report StockReport
	s.ws.View(func(st *model.PosState) error {
		report = BuildStockReport(st)
		return nil
	})
	if drifted := report.Drifted(); len(drifted) > 0 {
		s.log.WithField("products", len(drifted)).Warn("Stock drift detected")
	}
	return report
}

func (s *inventoryService) RecalculateStock(ctx context.Context, actor Actor) (StockReport, error) {
	var report StockReport
	err := s.ws.Mutate(ctx, func(st *model.PosState) error {
		RecalculateAll(st)
		report = BuildStockReport(st)
		return nil
	})
	if err != nil {
		return StockReport{}, err
	}

	s.log.WithField("products", len(report.Lines)).Info("Stock recalculated from history")
	s.events.Publish(ws.Event{
		Type:    ws.TypeStockUpdate,
		Action:  "stock_recalculated",
		User:    actor.eventUser(),
		Message: fmt.Sprintf("%s recalculated stock for all products", actor.Username),
	})
	return report, nil
}

func (s *inventoryService) eventTime(at *time.Time) time.Time {
	if at != nil {
		return at.In(s.ws.Location())
	}
	return s.ws.Now()
}

func (s *inventoryService) publish(actor Actor, action string, data any, msg string) {
	s.events.Publish(ws.Event{
		Type:    ws.TypeStockUpdate,
		Action:  action,
		Data:    data,
		User:    actor.eventUser(),
		Message: msg,
	})
}

func (s *inventoryService) publishStock(actor Actor, action string, productID model.ID, name string, qty, newStock int) {
	s.publish(actor, action, map[string]any{
		"product_id": productID,
		"name":       name,
		"quantity":   qty,
		"new_stock":  newStock,
	}, fmt.Sprintf("%s %s: %d × '%s'", actor.Username, strings.ReplaceAll(action, "_", " "), qty, name))
}
