package service

import (
	"time"

	"go-pos-ledger/internal/model"

	"github.com/shopspring/decimal"
)

// LowStockThreshold is the stock level below which a product counts as low.
const LowStockThreshold = 10

// StockMovementData is one day of the stock movement chart. Outbound counts
// sold units and stock-outs together.
type StockMovementData struct {
	Date     string `json:"date"`
	Inbound  int    `json:"inbound"`
	Outbound int    `json:"outbound"`
}

// DashboardStats is the overview shown on the admin landing page.
type DashboardStats struct {
	TotalProducts  int             `json:"totalProducts"`
	LowStockCount  int             `json:"lowStockCount"`
	LowStock       []model.Product `json:"lowStock"`
	TotalValuation decimal.Decimal `json:"totalValuation"`
	TodaySales     Totals          `json:"todaySales"`
	TodaySaleCount int             `json:"todaySaleCount"`
}

type DashboardService interface {
	GetStockMovement(days int) []StockMovementData
	GetDashboardStats() *DashboardStats
}

type dashboardService struct {
	ws *PosWorkspace
}

func NewDashboardService(w *PosWorkspace) DashboardService {
	return &dashboardService{ws: w}
}

// GetStockMovement returns one entry per calendar day for the last days
// days, today included, oldest first. Days without movement are zero.
func (s *dashboardService) GetStockMovement(days int) []StockMovementData {
	if days <= 0 {
		days = 7
	}
	loc := s.ws.Location()
	today := model.StartOfDay(s.ws.Now())

	out := make([]StockMovementData, days)
	index := make(map[string]int, days)
	for i := range out {
		day := today.AddDate(0, 0, i-days+1).Format(model.DateLayout)
		out[i].Date = day
		index[day] = i
	}
	bucket := func(t time.Time) (int, bool) {
		i, ok := index[t.In(loc).Format(model.DateLayout)]
		return i, ok
	}

	s.ws.View(func(st *model.PosState) error {
		for _, si := range st.StockIns {
			if i, ok := bucket(si.Date); ok {
				out[i].Inbound += si.Quantity
			}
		}
		for _, so := range st.StockOuts {
			if i, ok := bucket(so.Date); ok {
				out[i].Outbound += so.Quantity
			}
		}
		for _, sale := range st.Sales {
			i, ok := bucket(sale.Date)
			if !ok {
				continue
			}
			for _, item := range sale.Items {
				out[i].Outbound += item.Quantity
			}
		}
		return nil
	})
	return out
}

// GetDashboardStats values stock at cost price and totals today's sales.
func (s *dashboardService) GetDashboardStats() *DashboardStats {
	stats := &DashboardStats{TotalValuation: decimal.Zero, TodaySales: zeroTotals(), LowStock: []model.Product{}}
	start := model.StartOfDay(s.ws.Now())
	end := model.EndOfDay(start)

	s.ws.View(func(st *model.PosState) error {
		stats.TotalProducts = len(st.Products)
		for _, p := range st.Products {
			if p.Stock < LowStockThreshold {
				stats.LowStock = append(stats.LowStock, p)
			}
			if p.Stock > 0 {
				stats.TotalValuation = stats.TotalValuation.Add(p.CostPrice.Mul(decimal.NewFromInt(int64(p.Stock))))
			}
		}
		for i := range st.Sales {
			sale := &st.Sales[i]
			if sale.Date.Before(start) || sale.Date.After(end) {
				continue
			}
			stats.TodaySales.add(sale)
			stats.TodaySaleCount++
		}
		return nil
	})
	stats.LowStockCount = len(stats.LowStock)
	return stats
}
