package service

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"go-pos-ledger/internal/model"

	"github.com/shopspring/decimal"
)

// Placeholders for sales recorded without a seller.
const (
	UnknownSellerID   model.ID = "unknown"
	UnknownSellerName          = "ไม่ระบุ"
	DefaultUnit                = "หน่วย"
)

// SummaryFilter selects the sales a summary covers. Start and End are
// inclusive instants; SellerID "all" or empty means every seller. An empty
// PaymentTypes list means every payment method.
type SummaryFilter struct {
	Start        time.Time
	End          time.Time
	SellerID     string
	PaymentTypes []model.PaymentMethod
}

func (f SummaryFilter) allSellers() bool {
	return f.SellerID == "" || f.SellerID == "all"
}

// Totals are payment-method sums over a set of sales.
type Totals struct {
	Sales    decimal.Decimal `json:"totalSales"`
	Profit   decimal.Decimal `json:"totalProfit"`
	Cash     decimal.Decimal `json:"totalCash"`
	Transfer decimal.Decimal `json:"totalTransfer"`
	Credit   decimal.Decimal `json:"totalCredit"`
}

func (t *Totals) add(sale *model.Sale) {
	t.Sales = t.Sales.Add(sale.Total)
	t.Profit = t.Profit.Add(sale.Profit)
	switch sale.Method() {
	case model.PaymentCredit:
		t.Credit = t.Credit.Add(sale.Total)
	case model.PaymentTransfer:
		t.Transfer = t.Transfer.Add(sale.Total)
	default:
		t.Cash = t.Cash.Add(sale.Total)
	}
}

// ByMethod returns the total recorded under one payment method.
func (t Totals) ByMethod(m model.PaymentMethod) decimal.Decimal {
	switch m {
	case model.PaymentCredit:
		return t.Credit
	case model.PaymentTransfer:
		return t.Transfer
	default:
		return t.Cash
	}
}

// ProductSummary is one product's quantities within a seller block. Stock is
// nil when the product has since been deleted.
type ProductSummary struct {
	ProductID   model.ID        `json:"productId"`
	Name        string          `json:"name"`
	Unit        string          `json:"unit"`
	Stock       *int            `json:"stock"`
	CashQty     int             `json:"cashQty"`
	TransferQty int             `json:"transferQty"`
	CreditQty   int             `json:"creditQty"`
	TotalQty    int             `json:"totalQty"`
	TotalValue  decimal.Decimal `json:"totalValue"`
}

// Commission is a seller's commission for the summarized period.
// Configured with no Sources means the seller has a rate but no payment
// method selected, so Amount is zero.
type Commission struct {
	Configured bool                  `json:"configured"`
	Rate       decimal.Decimal       `json:"rate"`
	Sources    []model.PaymentMethod `json:"sources"`
	Base       decimal.Decimal       `json:"base"`
	Amount     decimal.Decimal       `json:"amount"`
}

// Label is the report caption for the commission row.
func (c Commission) Label() string {
	if !c.Configured || len(c.Sources) == 0 {
		return "คอมมิชชั่น (บาท)"
	}
	names := make([]string, len(c.Sources))
	for i, s := range c.Sources {
		names[i] = string(s)
	}
	return fmt.Sprintf("คอมมิชชั่น (%s%% จาก %s) (บาท)", c.Rate.String(), strings.Join(names, "+"))
}

func commissionFor(u *model.User, t Totals) Commission {
	if u == nil || !u.CommissionRate.IsPositive() {
		return Commission{Rate: decimal.Zero, Base: decimal.Zero, Amount: decimal.Zero}
	}
	c := Commission{Configured: true, Rate: u.CommissionRate, Sources: u.CommissionSources(), Base: decimal.Zero}
	for _, src := range c.Sources {
		c.Base = c.Base.Add(t.ByMethod(src))
	}
	c.Amount = c.Base.Mul(c.Rate).Div(decimal.NewFromInt(100))
	return c
}

type SellerSummary struct {
	SellerID    model.ID         `json:"sellerId"`
	SellerName  string           `json:"sellerName"`
	Totals      Totals           `json:"totals"`
	SalesCount  int              `json:"salesCount"`
	SellingDays int              `json:"sellingDays"`
	Products    []ProductSummary `json:"products"`
	Commission  Commission       `json:"commission"`
}

type SummaryResult struct {
	Start            time.Time       `json:"start"`
	End              time.Time       `json:"end"`
	GrandTotals      Totals          `json:"grandTotals"`
	SalesCount       int             `json:"salesCount"`
	TotalSellingDays int             `json:"totalSellingDays"`
	Sellers          []SellerSummary `json:"sellers"`
}

// SingleDay reports whether the summary covers one calendar day.
func (r *SummaryResult) SingleDay() bool {
	return model.StartOfDay(r.Start).Equal(model.StartOfDay(r.End))
}

func zeroTotals() Totals {
	return Totals{Sales: decimal.Zero, Profit: decimal.Zero, Cash: decimal.Zero, Transfer: decimal.Zero, Credit: decimal.Zero}
}

// Summarize aggregates sales by seller and product. Filters apply in this
// order: date range, seller, payment type, then the seller's own sellable
// window. Selling days are distinct calendar days in loc.
func Summarize(st *model.PosState, f SummaryFilter, loc *time.Location) (*SummaryResult, error) {
	if len(f.PaymentTypes) == 0 {
		f.PaymentTypes = model.PaymentMethods
	}
	sales := slices.Clone(st.Sales)
	slices.SortStableFunc(sales, func(a, b model.Sale) int { return a.Date.Compare(b.Date) })

	res := &SummaryResult{Start: f.Start, End: f.End, GrandTotals: zeroTotals()}
	bySeller := map[model.ID]int{}
	sellerDays := map[model.ID]map[string]struct{}{}
	productIdx := map[model.ID]map[model.ID]int{}
	days := map[string]struct{}{}

	for i := range sales {
		sale := &sales[i]
		if sale.Date.Before(f.Start) || sale.Date.After(f.End) {
			continue
		}
		if !f.allSellers() && sale.SellerID.String() != f.SellerID {
			continue
		}
		if !slices.Contains(f.PaymentTypes, sale.Method()) {
			continue
		}
		if seller := st.User(sale.SellerID); seller != nil && !withinSellerWindow(seller, sale.Date, loc) {
			continue
		}

		sellerID, sellerName := sale.SellerID, sale.SellerName
		if sellerID.IsZero() {
			sellerID = UnknownSellerID
		}
		if sellerName == "" {
			sellerName = UnknownSellerName
		}
		idx, ok := bySeller[sellerID]
		if !ok {
			idx = len(res.Sellers)
			bySeller[sellerID] = idx
			res.Sellers = append(res.Sellers, SellerSummary{SellerID: sellerID, SellerName: sellerName, Totals: zeroTotals()})
			sellerDays[sellerID] = map[string]struct{}{}
			productIdx[sellerID] = map[model.ID]int{}
		}
		block := &res.Sellers[idx]
		block.Totals.add(sale)
		block.SalesCount++
		res.GrandTotals.add(sale)
		res.SalesCount++

		day := sale.Date.In(loc).Format(model.DateLayout)
		days[day] = struct{}{}
		sellerDays[sellerID][day] = struct{}{}

		method := sale.Method()
		for _, item := range sale.Items {
			pi, ok := productIdx[sellerID][item.ProductID]
			if !ok {
				ps := ProductSummary{ProductID: item.ProductID, Name: item.Name, Unit: DefaultUnit, TotalValue: decimal.Zero}
				if p := st.Product(item.ProductID); p != nil {
					stock := p.Stock
					ps.Stock = &stock
					if p.Unit != "" {
						ps.Unit = p.Unit
					}
				}
				pi = len(block.Products)
				productIdx[sellerID][item.ProductID] = pi
				block.Products = append(block.Products, ps)
			}
			ps := &block.Products[pi]
			switch method {
			case model.PaymentCredit:
				ps.CreditQty += item.Quantity
			case model.PaymentTransfer:
				ps.TransferQty += item.Quantity
			default:
				ps.CashQty += item.Quantity
			}
			ps.TotalQty += item.Quantity
			ps.TotalValue = ps.TotalValue.Add(item.LineTotal())
		}
	}

	if res.SalesCount == 0 {
		return nil, ErrNoMatchingRecords
	}
	res.TotalSellingDays = len(days)
	for i := range res.Sellers {
		block := &res.Sellers[i]
		block.SellingDays = len(sellerDays[block.SellerID])
		block.Commission = commissionFor(st.User(block.SellerID), block.Totals)
	}
	return res, nil
}

// withinSellerWindow checks each configured bound of a seller's sales period
// independently; a missing or unparsable bound does not restrict.
func withinSellerWindow(u *model.User, at time.Time, loc *time.Location) bool {
	if !u.IsSeller() {
		return true
	}
	if u.SalesStartDate != nil {
		if start, err := model.ParseDay(*u.SalesStartDate, loc); err == nil && at.Before(start) {
			return false
		}
	}
	if u.SalesEndDate != nil {
		if end, err := model.ParseDay(*u.SalesEndDate, loc); err == nil && at.After(model.EndOfDay(end)) {
			return false
		}
	}
	return true
}

// SalesFilter selects rows for the detailed, credit and transfer lists.
// Search matches the buyer or transferor name, case-insensitively.
type SalesFilter struct {
	Start        time.Time
	End          time.Time
	SellerID     string
	PaymentTypes []model.PaymentMethod
	Search       string
}

// FilterSales returns copies of the matching sales, newest first.
func FilterSales(st *model.PosState, f SalesFilter) []model.Sale {
	search := strings.ToLower(strings.TrimSpace(f.Search))
	var out []model.Sale
	for _, sale := range st.Sales {
		if sale.Date.Before(f.Start) || sale.Date.After(f.End) {
			continue
		}
		if f.SellerID != "" && f.SellerID != "all" && sale.SellerID.String() != f.SellerID {
			continue
		}
		if len(f.PaymentTypes) > 0 && !slices.Contains(f.PaymentTypes, sale.Method()) {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(sale.PaymentDetail()), search) {
			continue
		}
		sale.Items = slices.Clone(sale.Items)
		out = append(out, sale)
	}
	sortNewestFirst(out)
	return out
}

// PaymentReport is a filtered list of sales of one payment method.
type PaymentReport struct {
	Method model.PaymentMethod `json:"paymentMethod"`
	Sales  []model.Sale        `json:"sales"`
	Total  decimal.Decimal     `json:"total"`
}

func paymentReport(st *model.PosState, f SalesFilter, m model.PaymentMethod) (*PaymentReport, error) {
	f.PaymentTypes = []model.PaymentMethod{m}
	rows := FilterSales(st, f)
	if len(rows) == 0 {
		return nil, ErrNoMatchingRecords
	}
	rep := &PaymentReport{Method: m, Sales: rows, Total: decimal.Zero}
	for _, s := range rows {
		rep.Total = rep.Total.Add(s.Total)
	}
	return rep, nil
}

// CreditReport lists credit sales with their buyers and due dates.
func CreditReport(st *model.PosState, f SalesFilter) (*PaymentReport, error) {
	return paymentReport(st, f, model.PaymentCredit)
}

// TransferReport lists transfer sales with their transferors.
func TransferReport(st *model.PosState, f SalesFilter) (*PaymentReport, error) {
	return paymentReport(st, f, model.PaymentTransfer)
}
