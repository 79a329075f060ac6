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
	ErrSaleNotFound         = fmt.Errorf("sale %w", ErrNotFound)
	ErrBuyerNameRequired    = fmt.Errorf("%w: buyer name is required for credit sales", ErrValidation)
	ErrTransferorRequired   = fmt.Errorf("%w: transferor name is required for transfer sales", ErrValidation)
	ErrNegativePrice        = fmt.Errorf("%w: price must not be negative", ErrValidation)
	ErrProductNotAssigned   = fmt.Errorf("%w: product is not assigned to this seller", ErrForbidden)
	ErrOutsideSalesWindow   = fmt.Errorf("%w: sale date is outside the seller's sales period", ErrForbidden)
	ErrNotOwnSale           = fmt.Errorf("%w: sellers may only change their own sales", ErrForbidden)
	ErrHistoryWindow        = fmt.Errorf("%w: requested history is older than the seller may view", ErrForbidden)
	ErrInvalidHistoryFilter = fmt.Errorf("%w: invalid history filter", ErrValidation)
)

// CartItem is one requested line. Price, when set, overrides the product's
// selling price and marks the line as a special price.
type CartItem struct {
	ProductID model.ID         `json:"productId" validate:"required"`
	Quantity  int              `json:"quantity" validate:"gt=0"`
	Price     *decimal.Decimal `json:"price"`
}

type CheckoutRequest struct {
	Items          []CartItem          `json:"items" validate:"required,min=1,dive"`
	PaymentMethod  model.PaymentMethod `json:"paymentMethod" validate:"omitempty,payment_method"`
	BuyerName      string              `json:"buyerName"`
	CreditDays     *int                `json:"creditDays"`
	TransferorName string              `json:"transferorName"`
	// Date backdates the sale; empty means now.
	Date *time.Time `json:"date"`
}

// History filter modes.
const (
	HistoryToday   = "today"
	HistoryByDate  = "by_date"
	HistoryByRange = "by_range"
)

type HistoryQuery struct {
	Mode  string `json:"mode" query:"mode"`
	Date  string `json:"date" query:"date"`
	Start string `json:"start" query:"start"`
	End   string `json:"end" query:"end"`
}

type SaleService interface {
	Checkout(ctx context.Context, actor Actor, req *CheckoutRequest) (*model.Sale, error)
	AmendSale(ctx context.Context, actor Actor, id model.ID, req *CheckoutRequest) (*model.Sale, error)
	DeleteSale(ctx context.Context, actor Actor, id model.ID) error
	GetSale(actor Actor, id model.ID) (*model.Sale, error)
	ListSales() []model.Sale
	SellerHistory(actor Actor, q HistoryQuery) ([]model.Sale, error)
}

type saleService struct {
	ws     *PosWorkspace
	events Publisher
	log    logrus.FieldLogger
}

func NewSaleService(w *PosWorkspace, events Publisher, log logrus.FieldLogger) SaleService {
	return &saleService{ws: w, events: events, log: log}
}

// Checkout records a sale for the caller. Every line is validated against
// stock before any stock is taken, so a rejected cart changes nothing.
func (s *saleService) Checkout(ctx context.Context, actor Actor, req *CheckoutRequest) (*model.Sale, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	var sale model.Sale
	err := s.ws.Mutate(ctx, func(st *model.PosState) error {
		user, err := actorUser(st, actor)
		if err != nil {
			return err
		}

		sale, err = s.buildSale(st, user, req, nil, s.ws.Now())
		if err != nil {
			return err
		}
		sale.ID = model.NewID()
		sale.SellerID = actor.ID
		sale.SellerName = actor.Username
		if user != nil {
			sale.SellerName = user.Username
			if user.StoreID != nil {
				if store := st.Store(*user.StoreID); store != nil {
					sale.StoreID = &store.ID
					sale.StoreName = &store.Name
				}
			}
		}

		debitStock(st, sale.Items)
		st.Sales = append(st.Sales, sale)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"sale_id": sale.ID,
		"seller":  sale.SellerName,
		"total":   sale.Total.String(),
		"method":  sale.PaymentMethod,
	}).Info("Sale recorded")
	s.publish(actor, "sale_created", sale)
	return &sale, nil
}

// AmendSale replaces a sale's lines and payment details in one step. The
// old lines are returned to stock and the new ones taken; if the new cart
// is rejected the original sale is left exactly as it was. The sale keeps
// its id, seller and store.
func (s *saleService) AmendSale(ctx context.Context, actor Actor, id model.ID, req *CheckoutRequest) (*model.Sale, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	var amended model.Sale
	err := s.ws.Mutate(ctx, func(st *model.PosState) error {
		user, err := actorUser(st, actor)
		if err != nil {
			return err
		}
		existing := st.Sale(id)
		if existing == nil {
			return ErrSaleNotFound
		}
		if user != nil && user.IsSeller() && existing.SellerID != user.ID {
			return ErrNotOwnSale
		}

		restoreStock(st, existing.Items)

		at := existing.Date
		if req.Date != nil {
			at = req.Date.In(s.ws.Location())
		}
		dated := *req
		dated.Date = &at
		next, err := s.buildSale(st, user, &dated, existing.Items, s.ws.Now())
		if err != nil {
			return err
		}
		next.ID = existing.ID
		next.SellerID = existing.SellerID
		next.SellerName = existing.SellerName
		next.StoreID = existing.StoreID
		next.StoreName = existing.StoreName

		debitStock(st, next.Items)
		*existing = next
		amended = next
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(actor, "sale_amended", amended)
	return &amended, nil
}

// DeleteSale removes a sale and returns its quantities to stock. Lines whose
// product no longer exists are dropped without a stock change.
func (s *saleService) DeleteSale(ctx context.Context, actor Actor, id model.ID) error {
	var removed model.Sale
	err := s.ws.Mutate(ctx, func(st *model.PosState) error {
		user, err := actorUser(st, actor)
		if err != nil {
			return err
		}
		idx := slices.IndexFunc(st.Sales, func(sale model.Sale) bool { return sale.ID == id })
		if idx < 0 {
			return ErrSaleNotFound
		}
		removed = st.Sales[idx]
		if user != nil && user.IsSeller() && removed.SellerID != user.ID {
			return ErrNotOwnSale
		}
		restoreStock(st, removed.Items)
		st.Sales = slices.Delete(st.Sales, idx, idx+1)
		return nil
	})
	if err != nil {
		return err
	}

	s.publish(actor, "sale_deleted", map[string]any{"id": removed.ID, "total": removed.Total})
	return nil
}

func (s *saleService) GetSale(actor Actor, id model.ID) (*model.Sale, error) {
	var sale model.Sale
	err := s.ws.View(func(st *model.PosState) error {
		found := st.Sale(id)
		if found == nil {
			return ErrSaleNotFound
		}
		if !actor.IsAdmin() && found.SellerID != actor.ID {
			return ErrNotOwnSale
		}
		sale = *found
		sale.Items = slices.Clone(found.Items)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &sale, nil
}

// ListSales returns every sale, newest first.
func (s *saleService) ListSales() []model.Sale {
	sales := s.ws.Snapshot().Sales
	sortNewestFirst(sales)
	return sales
}

// SellerHistory lists the caller's own sales for a day or range, newest
// first. Sellers with a visible-days limit cannot query before the cutoff.
func (s *saleService) SellerHistory(actor Actor, q HistoryQuery) ([]model.Sale, error) {
	loc := s.ws.Location()
	now := s.ws.Now()

	var start, end time.Time
	switch q.Mode {
	case HistoryToday, "":
		start, end = model.StartOfDay(now), model.EndOfDay(now)
	case HistoryByDate:
		day, err := model.ParseDay(q.Date, loc)
		if err != nil {
			return nil, ErrInvalidHistoryFilter
		}
		start, end = day, model.EndOfDay(day)
	case HistoryByRange:
		from, err1 := model.ParseDay(q.Start, loc)
		to, err2 := model.ParseDay(q.End, loc)
		if err := errors.Join(err1, err2); err != nil || to.Before(from) {
			return nil, ErrInvalidHistoryFilter
		}
		start, end = from, model.EndOfDay(to)
	default:
		return nil, ErrInvalidHistoryFilter
	}

	var out []model.Sale
	err := s.ws.View(func(st *model.PosState) error {
		user, err := actorUser(st, actor)
		if err != nil {
			return err
		}
		if user != nil {
			if cutoff := user.HistoryCutoff(now, loc); cutoff != nil && start.Before(*cutoff) {
				return fmt.Errorf("%w (earliest %s)", ErrHistoryWindow, cutoff.Format(model.DateLayout))
			}
		}
		for _, sale := range st.Sales {
			if !actor.IsAdmin() && sale.SellerID != actor.ID {
				continue
			}
			if sale.Date.Before(start) || sale.Date.After(end) {
				continue
			}
			sale.Items = slices.Clone(sale.Items)
			out = append(out, sale)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sortNewestFirst(out)
	return out, nil
}

// buildSale prices a cart against the current state without modifying it.
// Lines for a product already in prev keep that line's price snapshot, so
// amending a sale never re-costs it.
func (s *saleService) buildSale(st *model.PosState, user *model.User, req *CheckoutRequest, prev []model.SaleItem, now time.Time) (model.Sale, error) {
	snapshots := make(map[model.ID]model.SaleItem, len(prev))
	for _, item := range prev {
		if _, ok := snapshots[item.ProductID]; !ok {
			snapshots[item.ProductID] = item
		}
	}

	method := req.PaymentMethod.Normalize()
	sale := model.Sale{PaymentMethod: method, Date: now}
	if req.Date != nil {
		sale.Date = req.Date.In(s.ws.Location())
	}

	switch method {
	case model.PaymentCredit:
		buyer := strings.TrimSpace(req.BuyerName)
		if buyer == "" {
			return sale, ErrBuyerNameRequired
		}
		sale.BuyerName = &buyer
		if req.CreditDays != nil && *req.CreditDays >= 0 {
			due := sale.Date.AddDate(0, 0, *req.CreditDays)
			sale.CreditDueDate = &due
		}
	case model.PaymentTransfer:
		name := strings.TrimSpace(req.TransferorName)
		if name == "" {
			return sale, ErrTransferorRequired
		}
		sale.TransferorName = &name
	}

	if user != nil && user.IsSeller() {
		if start, end, ok := user.SellableWindow(s.ws.Location()); ok {
			if sale.Date.Before(start) || sale.Date.After(end) {
				return sale, ErrOutsideSalesWindow
			}
		}
	}

	demand := make(map[model.ID]int, len(req.Items))
	totalCost := decimal.Zero
	sale.Total = decimal.Zero
	for _, item := range req.Items {
		p := st.Product(item.ProductID)
		if p == nil {
			return sale, fmt.Errorf("%w: %s", ErrProductNotFound, item.ProductID)
		}
		if user != nil && !user.CanSell(p.ID) {
			return sale, fmt.Errorf("%w: %s", ErrProductNotAssigned, p.Name)
		}

		line := model.SaleItem{
			ProductID:     p.ID,
			Name:          p.Name,
			Quantity:      item.Quantity,
			Price:         p.SellingPrice,
			Cost:          p.CostPrice,
			OriginalPrice: p.SellingPrice,
		}
		if old, ok := snapshots[p.ID]; ok {
			line.Price = old.Price
			line.Cost = old.Cost
			line.OriginalPrice = old.OriginalPrice
			line.IsSpecialPrice = old.IsSpecialPrice
		}
		if item.Price != nil {
			if item.Price.IsNegative() {
				return sale, ErrNegativePrice
			}
			line.Price = *item.Price
			line.IsSpecialPrice = !item.Price.Equal(line.OriginalPrice)
		}

		demand[p.ID] += item.Quantity
		if demand[p.ID] > p.Stock {
			return sale, fmt.Errorf("%w: %s", ErrInsufficientStock, p.Name)
		}

		qty := decimal.NewFromInt(int64(item.Quantity))
		sale.Total = sale.Total.Add(line.Price.Mul(qty))
		totalCost = totalCost.Add(line.Cost.Mul(qty))
		sale.Items = append(sale.Items, line)
	}
	sale.Profit = sale.Total.Sub(totalCost)
	return sale, nil
}

func debitStock(st *model.PosState, items []model.SaleItem) {
	for _, item := range items {
		if p := st.Product(item.ProductID); p != nil {
			p.Stock -= item.Quantity
		}
	}
}

func restoreStock(st *model.PosState, items []model.SaleItem) {
	for _, item := range items {
		if p := st.Product(item.ProductID); p != nil {
			p.Stock += item.Quantity
		}
	}
}

func sortNewestFirst(sales []model.Sale) {
	slices.SortStableFunc(sales, func(a, b model.Sale) int { return b.Date.Compare(a.Date) })
}

func (s *saleService) publish(actor Actor, action string, data any) {
	s.events.Publish(ws.Event{
		Type:   ws.TypeSaleUpdate,
		Action: action,
		Data:   data,
		User:   actor.eventUser(),
	})
}
