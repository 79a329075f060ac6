package service

import "go-pos-ledger/internal/model"

// ledgerTotals sums the three stock histories per product id.
type ledgerTotals struct {
	in, sold, out map[model.ID]int
}

func sumLedger(s *model.PosState) ledgerTotals {
	t := ledgerTotals{
		in:   make(map[model.ID]int),
		sold: make(map[model.ID]int),
		out:  make(map[model.ID]int),
	}
	for _, si := range s.StockIns {
		t.in[si.ProductID] += si.Quantity
	}
	for _, sale := range s.Sales {
		for _, item := range sale.Items {
			t.sold[item.ProductID] += item.Quantity
		}
	}
	for _, so := range s.StockOuts {
		t.out[so.ProductID] += so.Quantity
	}
	return t
}

func (t ledgerTotals) stock(id model.ID) int {
	return t.in[id] - t.sold[id] - t.out[id]
}

// RecalculateAll overwrites every product's cached stock with
// stock-in − sold − stock-out. Running it twice changes nothing.
func RecalculateAll(s *model.PosState) {
	totals := sumLedger(s)
	for i := range s.Products {
		s.Products[i].Stock = totals.stock(s.Products[i].ID)
	}
}

// StockLine compares one product's cached stock with its ledger.
type StockLine struct {
	ProductID model.ID `json:"productId"`
	Name      string   `json:"name"`
	Unit      string   `json:"unit"`
	TotalIn   int      `json:"totalIn"`
	TotalSold int      `json:"totalSold"`
	TotalOut  int      `json:"totalOut"`
	Computed  int      `json:"computed"`
	Cached    int      `json:"cached"`
	Matched   bool     `json:"matched"`
}

type StockReport struct {
	Lines []StockLine `json:"lines"`
}

// Drifted lists the products whose cache disagrees with the ledger.
func (r StockReport) Drifted() []StockLine {
	var out []StockLine
	for _, l := range r.Lines {
		if !l.Matched {
			out = append(out, l)
		}
	}
	return out
}

// BuildStockReport computes the ledger for every product without touching
// the state.
func BuildStockReport(s *model.PosState) StockReport {
	totals := sumLedger(s)
	report := StockReport{Lines: make([]StockLine, 0, len(s.Products))}
	for _, p := range s.Products {
		computed := totals.stock(p.ID)
		report.Lines = append(report.Lines, StockLine{
			ProductID: p.ID,
			Name:      p.Name,
			Unit:      p.Unit,
			TotalIn:   totals.in[p.ID],
			TotalSold: totals.sold[p.ID],
			TotalOut:  totals.out[p.ID],
			Computed:  computed,
			Cached:    p.Stock,
			Matched:   computed == p.Stock,
		})
	}
	return report
}
