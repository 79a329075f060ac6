package service

import (
	"fmt"
	"strings"
	"time"

	"go-pos-ledger/internal/export"
	"go-pos-ledger/internal/model"

	"github.com/shopspring/decimal"
)

var ErrInvalidDateRange = fmt.Errorf("%w: start date must not be after end date", ErrValidation)

// ReportQuery is the common filter of every sales report. Payment is a
// comma-separated list of payment methods; empty means all of them.
type ReportQuery struct {
	Start    string `query:"start" validate:"required,day"`
	End      string `query:"end" validate:"required,day"`
	SellerID string `query:"sellerId"`
	Payment  string `query:"payment"`
	Search   string `query:"q"`
}

// CSVReport is a report that can be downloaded as a spreadsheet.
type CSVReport interface {
	Table() *export.Table
	FileName() string
}

type reportMeta struct {
	Title       string    `json:"title"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	SellerID    string    `json:"sellerId"`
	SellerName  string    `json:"sellerName"`
	GeneratedBy string    `json:"generatedBy"`
	GeneratedAt time.Time `json:"generatedAt"`

	loc   *time.Location
	units map[model.ID]string
}

func (m reportMeta) singleSeller() bool {
	return m.SellerID != "" && m.SellerID != "all"
}

func (m reportMeta) fullRange() string {
	return fmt.Sprintf("%s ถึง %s", export.FullDate(m.Start, m.loc), export.FullDate(m.End, m.loc))
}

func (m reportMeta) period() string {
	return fmt.Sprintf("%s_%s_to_%s", m.SellerID, m.Start.Format(model.DateLayout), m.End.Format(model.DateLayout))
}

func (m reportMeta) unit(id model.ID) string {
	if u, ok := m.units[id]; ok && u != "" {
		return u
	}
	return DefaultUnit
}

func (m reportMeta) itemsList(sale model.Sale, sep string) string {
	parts := make([]string, len(sale.Items))
	for i, item := range sale.Items {
		parts[i] = fmt.Sprintf("%s(%s %s)", item.Name, export.Int(item.Quantity), m.unit(item.ProductID))
	}
	return strings.Join(parts, sep)
}

// SummaryReport is the aggregated per-seller summary.
type SummaryReport struct {
	reportMeta
	Result       *SummaryResult `json:"result"`
	ShowOverview bool           `json:"showOverview"`
}

func (r *SummaryReport) FileName() string {
	return fmt.Sprintf("POS_Summary_Aggregated_%s_%d.csv", r.period(), r.GeneratedAt.UnixMilli())
}

func (r *SummaryReport) Table() *export.Table {
	var t export.Table
	res := r.Result
	dates := export.ShortDate(r.Start, r.loc)
	if !res.SingleDay() {
		dates = fmt.Sprintf("%s ถึง %s", dates, export.ShortDate(r.End, r.loc))
	}
	generated := fmt.Sprintf("%s %s น.", export.FullDate(r.GeneratedAt, r.loc), export.Clock(r.GeneratedAt, r.loc))
	t.Row("สรุปโดย :", r.GeneratedBy).
		Row("สรุปเมื่อ :", generated).
		Row(strings.Replace(r.Title, "ข้อมูล", "ข้อมูลทั้งหมด", 1)+":", dates).
		Blank()

	if r.ShowOverview {
		g := res.GrandTotals
		t.Row("--- ภาพรวมทั้งหมด ---").
			Row("ยอดเงินสด (บาท)", export.Number(g.Cash)).
			Row("ยอดเงินโอน (บาท)", export.Number(g.Transfer)).
			Row("ยอดเครดิต (บาท)", export.Number(g.Credit)).
			Row("ยอดขายรวมทั้งหมด (บาท)", export.Number(g.Sales))
		if !res.SingleDay() {
			t.Row("จำนวนวันขายทั้งหมด (วัน)", export.Int(res.TotalSellingDays))
		}
		t.Row("กำไรสุทธิรวม (บาท)", export.Number(g.Profit)).Blank()
	}

	for _, s := range res.Sellers {
		if len(t.Rows()) > 5 && !r.singleSeller() {
			t.Blank()
		}
		t.Row(fmt.Sprintf("--- สรุปยอดขาย: %s ---", s.SellerName)).
			Row("ยอดขายรวม (บาท)", export.Number(s.Totals.Sales)).
			Row("ยอดเงินสด (บาท)", export.Number(s.Totals.Cash)).
			Row("ยอดเงินโอน (บาท)", export.Number(s.Totals.Transfer)).
			Row("ยอดเครดิต (บาท)", export.Number(s.Totals.Credit))
		if !res.SingleDay() {
			t.Row("จำนวนวันขายทั้งหมด (วัน)", export.Int(s.SellingDays))
		}
		if r.singleSeller() {
			t.Row(s.Commission.Label(), export.Number(s.Commission.Amount))
		} else {
			t.Row("กำไรรวม (บาท)", export.Number(s.Totals.Profit))
		}

		t.Blank().Row("สินค้า", "ขาย(เงินสด)", "ขาย(เงินโอน)", "ขาย(เครดิต)", "รวม(หน่วย)", "ยอดขาย(บาท)", "สต็อกคงเหลือ")
		for _, p := range s.Products {
			stock := "N/A"
			if p.Stock != nil {
				stock = export.Int(*p.Stock)
			}
			t.Row(
				p.Name,
				export.Int(p.CashQty)+" "+p.Unit,
				export.Int(p.TransferQty)+" "+p.Unit,
				export.Int(p.CreditQty)+" "+p.Unit,
				export.Int(p.TotalQty)+" "+p.Unit,
				export.Number(p.TotalValue),
				stock+" "+p.Unit,
			)
		}
	}
	return &t
}

// DetailedReport lists every sale line in the range. Profit is only shown
// to admins; Commission is set when the report covers one seller with a
// commission rate.
type DetailedReport struct {
	reportMeta
	Sales         []model.Sale    `json:"sales"`
	TotalSales    decimal.Decimal `json:"totalSales"`
	TotalProfit   decimal.Decimal `json:"totalProfit"`
	IncludeProfit bool            `json:"includeProfit"`
	Commission    *Commission     `json:"commission,omitempty"`

	totals Totals
}

func (r *DetailedReport) FileName() string {
	return fmt.Sprintf("Detailed_Report_%s_%d.csv", r.period(), r.GeneratedAt.UnixMilli())
}

func (r *DetailedReport) Table() *export.Table {
	var t export.Table
	t.Row(r.Title).
		Row("ช่วงวันที่:", r.fullRange()).
		Row("สรุปเมื่อ:", export.Timestamp(r.GeneratedAt, r.loc)).
		Blank()

	headers := []string{"วันที่", "เวลา", "รายการสินค้า (ชื่อ)", "ราคาต่อหน่วย", "จำนวน", "ราคารวมต่อรายการ", "ยอดขายรวม (บาท)"}
	if r.IncludeProfit {
		headers = append(headers, "กำไรรวม (บาท)")
	}
	headers = append(headers, "ประเภทชำระ", "รายละเอียดชำระ", "กำหนดชำระ", "ผู้ขาย", "ร้านค้า")
	t.Row(headers...)

	for _, sale := range r.Sales {
		for i, item := range sale.Items {
			first := i == 0
			name := item.Name
			if item.IsSpecialPrice {
				name += " (พิเศษ)"
			}
			row := []string{
				when(first, export.ShortDate(sale.Date, r.loc)),
				when(first, export.Clock(sale.Date, r.loc)),
				name,
				export.Number(item.Price),
				export.Int(item.Quantity),
				export.Number(item.LineTotal()),
				when(first, export.Number(sale.Total)),
			}
			if r.IncludeProfit {
				row = append(row, when(first, export.Number(sale.Profit)))
			}
			row = append(row, saleTail(sale, first, r.loc)...)
			t.Row(row...)
		}
	}

	t.Blank()
	footer := []string{"", "", "", "", "", "ยอดรวมทั้งหมด", export.Number(r.TotalSales)}
	if r.IncludeProfit {
		footer = append(footer, export.Number(r.TotalProfit))
	}
	t.Row(footer...)

	if c := r.Commission; c != nil && len(c.Sources) > 0 {
		var lines [][]string
		total := decimal.Zero
		for _, src := range c.Sources {
			base := r.totals.ByMethod(src)
			if !base.IsPositive() {
				continue
			}
			amount := base.Mul(c.Rate).Div(decimal.NewFromInt(100))
			total = total.Add(amount)
			lines = append(lines, []string{"", "", "", "", "",
				fmt.Sprintf("ยอดขาย%s: %s บาท", src, export.Number(base)),
				fmt.Sprintf("ค่าคอมฯ: %s บาท", export.Number(amount)),
			})
		}
		if len(lines) > 0 {
			t.Blank().Row(fmt.Sprintf("คำนวณค่าคอมมิชชั่น (%s%%)", c.Rate.String()))
			for _, l := range lines {
				t.Row(l...)
			}
			t.Row("", "", "", "", "", "รวมค่าคอมมิชชั่นทั้งหมด", export.Number(total))
		}
	}
	return &t
}

func when(ok bool, s string) string {
	if ok {
		return s
	}
	return ""
}

// saleTail renders the payment, due date, seller and store columns shared by
// the detailed list and the sales history.
func saleTail(sale model.Sale, first bool, loc *time.Location) []string {
	if !first {
		return []string{"", "", "", "", ""}
	}
	detail := export.Dash
	if d := sale.PaymentDetail(); d != "" {
		detail = d
	}
	store := export.Dash
	if sale.StoreName != nil && *sale.StoreName != "" {
		store = *sale.StoreName
	}
	seller := export.Dash
	if sale.SellerName != "" {
		seller = sale.SellerName
	}
	return []string{string(sale.Method()), detail, export.ShortDatePtr(sale.CreditDueDate, loc), seller, store}
}

// PaymentListReport is the credit (debtor) or transfer list.
type PaymentListReport struct {
	reportMeta
	*PaymentReport
}

func (r *PaymentListReport) FileName() string {
	prefix := "Transfer_Summary"
	if r.Method == model.PaymentCredit {
		prefix = "Credit_Summary"
	}
	return fmt.Sprintf("%s_%s_%d.csv", prefix, r.period(), r.GeneratedAt.UnixMilli())
}

func (r *PaymentListReport) Table() *export.Table {
	var t export.Table
	t.Row("สรุปโดย:", r.GeneratedBy).Row("สรุปเมื่อ:", export.Timestamp(r.GeneratedAt, r.loc))

	if r.Method == model.PaymentCredit {
		t.Row(fmt.Sprintf("สรุปรายการลูกหนี้ของ %s:", r.SellerName), r.fullRange()).
			Blank().
			Row("วันที่", "ผู้ซื้อ", "ผู้ขาย", "รายการสินค้า", "ยอดเงิน (บาท)", "กำหนดชำระ")
		for _, s := range r.Sales {
			t.Row(export.ShortDate(s.Date, r.loc), orDash(s.PaymentDetail()), orDash(s.SellerName),
				r.itemsList(s, "; "), export.Number(s.Total), export.ShortDatePtr(s.CreditDueDate, r.loc))
		}
		t.Blank().Row("", "", "", "", "ยอดรวมลูกหนี้ทั้งหมด (บาท)", export.Number(r.Total))
		return &t
	}

	t.Row(fmt.Sprintf("สรุปรายการเงินโอนของ %s:", r.SellerName), r.fullRange()).
		Blank().
		Row("วันที่", "ผู้โอน", "ผู้ขาย", "รายการสินค้า", "ยอดเงิน (บาท)")
	for _, s := range r.Sales {
		t.Row(export.ShortDate(s.Date, r.loc), orDash(s.PaymentDetail()), orDash(s.SellerName),
			r.itemsList(s, "; "), export.Number(s.Total))
	}
	t.Blank().Row("", "", "", "ยอดรวมเงินโอนทั้งหมด (บาท)", export.Number(r.Total))
	return &t
}

func orDash(s string) string {
	if s == "" {
		return export.Dash
	}
	return s
}

// HistoryReport is the admin sales-history export.
type HistoryReport struct {
	reportMeta
	Sales []model.Sale `json:"sales"`
}

func (r *HistoryReport) FileName() string {
	return fmt.Sprintf("Sales_History_%s_to_%s.csv", r.Start.Format(model.DateLayout), r.End.Format(model.DateLayout))
}

func (r *HistoryReport) Table() *export.Table {
	var t export.Table
	t.Row("วันที่", "เวลา", "รายการสินค้า", "ราคาต่อหน่วย", "จำนวน", "ราคารวมต่อรายการ", "ยอดขายรวม (บาท)", "กำไรรวม (บาท)", "ประเภทชำระ", "รายละเอียดชำระ", "กำหนดชำระ", "ผู้ขาย", "ร้านค้า")
	for _, sale := range r.Sales {
		for i, item := range sale.Items {
			first := i == 0
			name := item.Name
			if item.IsSpecialPrice {
				name += " (พิเศษ)"
			}
			row := []string{
				when(first, export.ShortDate(sale.Date, r.loc)),
				when(first, export.Clock(sale.Date, r.loc)),
				name,
				export.Number(item.Price),
				export.Int(item.Quantity),
				export.Number(item.LineTotal()),
				when(first, export.Number(sale.Total)),
				when(first, export.Number(sale.Profit)),
			}
			t.Row(append(row, saleTail(sale, first, r.loc)...)...)
		}
	}
	return &t
}

type ReportService interface {
	Summary(actor Actor, q ReportQuery) (*SummaryReport, error)
	Detailed(actor Actor, q ReportQuery) (*DetailedReport, error)
	Credit(actor Actor, q ReportQuery) (*PaymentListReport, error)
	Transfer(actor Actor, q ReportQuery) (*PaymentListReport, error)
	History(actor Actor, q ReportQuery) (*HistoryReport, error)
}

type reportService struct {
	ws *PosWorkspace
}

func NewReportService(w *PosWorkspace) ReportService {
	return &reportService{ws: w}
}

// prepare validates q, scopes sellers to their own sales and captures the
// report header fields.
func (s *reportService) prepare(st *model.PosState, actor Actor, q *ReportQuery, title string) (reportMeta, []model.PaymentMethod, error) {
	var meta reportMeta
	if err := validate(q); err != nil {
		return meta, nil, err
	}
	loc := s.ws.Location()
	start, err := model.ParseDay(q.Start, loc)
	if err != nil {
		return meta, nil, invalid("start must be YYYY-MM-DD")
	}
	end, err := model.ParseDay(q.End, loc)
	if err != nil {
		return meta, nil, invalid("end must be YYYY-MM-DD")
	}
	if end.Before(start) {
		return meta, nil, ErrInvalidDateRange
	}
	methods, err := parsePaymentList(q.Payment)
	if err != nil {
		return meta, nil, err
	}

	if !actor.IsAdmin() {
		q.SellerID = actor.ID.String()
	}
	if q.SellerID == "" {
		q.SellerID = "all"
	}

	sellerName := "ผู้ขายทั้งหมด"
	if q.SellerID != "all" {
		sellerName = "ไม่พบผู้ขาย"
		if u := st.User(model.ID(q.SellerID)); u != nil {
			sellerName = u.Username
		}
	}

	units := make(map[model.ID]string, len(st.Products))
	for _, p := range st.Products {
		units[p.ID] = p.Unit
	}

	meta = reportMeta{
		Title:       fmt.Sprintf(title, sellerName),
		Start:       start,
		End:         model.EndOfDay(end),
		SellerID:    q.SellerID,
		SellerName:  sellerName,
		GeneratedBy: actor.Username,
		GeneratedAt: s.ws.Now(),
		loc:         loc,
		units:       units,
	}
	return meta, methods, nil
}

func parsePaymentList(raw string) ([]model.PaymentMethod, error) {
	var out []model.PaymentMethod
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		m := model.PaymentMethod(part)
		if !m.Valid() {
			return nil, invalid(fmt.Sprintf("unknown payment method %q", part))
		}
		out = append(out, m)
	}
	return out, nil
}

func (s *reportService) Summary(actor Actor, q ReportQuery) (*SummaryReport, error) {
	var rep *SummaryReport
	err := s.ws.View(func(st *model.PosState) error {
		meta, methods, err := s.prepare(st, actor, &q, "สรุปภาพรวม: %s")
		if err != nil {
			return err
		}
		res, err := Summarize(st, SummaryFilter{Start: meta.Start, End: meta.End, SellerID: meta.SellerID, PaymentTypes: methods}, meta.loc)
		if err != nil {
			return err
		}
		rep = &SummaryReport{reportMeta: meta, Result: res, ShowOverview: actor.IsAdmin() && !meta.singleSeller()}
		return nil
	})
	return rep, err
}

func (s *reportService) Detailed(actor Actor, q ReportQuery) (*DetailedReport, error) {
	var rep *DetailedReport
	err := s.ws.View(func(st *model.PosState) error {
		meta, methods, err := s.prepare(st, actor, &q, "รายงานการขายของ %s")
		if err != nil {
			return err
		}
		sales := FilterSales(st, SalesFilter{Start: meta.Start, End: meta.End, SellerID: meta.SellerID, PaymentTypes: methods, Search: q.Search})
		if len(sales) == 0 {
			return ErrNoMatchingRecords
		}

		rep = &DetailedReport{reportMeta: meta, Sales: sales, IncludeProfit: actor.IsAdmin(), totals: zeroTotals()}
		for i := range sales {
			rep.totals.add(&sales[i])
		}
		rep.TotalSales = rep.totals.Sales
		if rep.IncludeProfit {
			rep.TotalProfit = rep.totals.Profit
		} else {
			rep.TotalProfit = decimal.Zero
		}
		if meta.singleSeller() {
			if u := st.User(model.ID(meta.SellerID)); u != nil && u.IsSeller() {
				if c := commissionFor(u, rep.totals); c.Configured {
					rep.Commission = &c
				}
			}
		}
		return nil
	})
	return rep, err
}

func (s *reportService) Credit(actor Actor, q ReportQuery) (*PaymentListReport, error) {
	return s.paymentList(actor, q, "สรุปรายการลูกหนี้ของ %s", CreditReport)
}

func (s *reportService) Transfer(actor Actor, q ReportQuery) (*PaymentListReport, error) {
	return s.paymentList(actor, q, "สรุปรายการเงินโอนของ %s", TransferReport)
}

func (s *reportService) paymentList(actor Actor, q ReportQuery, title string, build func(*model.PosState, SalesFilter) (*PaymentReport, error)) (*PaymentListReport, error) {
	var rep *PaymentListReport
	err := s.ws.View(func(st *model.PosState) error {
		meta, _, err := s.prepare(st, actor, &q, title)
		if err != nil {
			return err
		}
		pr, err := build(st, SalesFilter{Start: meta.Start, End: meta.End, SellerID: meta.SellerID, Search: q.Search})
		if err != nil {
			return err
		}
		rep = &PaymentListReport{reportMeta: meta, PaymentReport: pr}
		return nil
	})
	return rep, err
}

// History is the admin export of every sale in the range, all sellers.
func (s *reportService) History(actor Actor, q ReportQuery) (*HistoryReport, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	var rep *HistoryReport
	err := s.ws.View(func(st *model.PosState) error {
		q.SellerID = "all"
		meta, methods, err := s.prepare(st, actor, &q, "ประวัติการขาย %s")
		if err != nil {
			return err
		}
		sales := FilterSales(st, SalesFilter{Start: meta.Start, End: meta.End, PaymentTypes: methods, Search: q.Search})
		if len(sales) == 0 {
			return ErrNoMatchingRecords
		}
		rep = &HistoryReport{reportMeta: meta, Sales: sales}
		return nil
	})
	return rep, err
}
