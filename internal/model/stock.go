package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// StockIn records goods received. ProductName is a snapshot taken at
// recording time and follows product renames.
type StockIn struct {
	ID          ID              `json:"id"`
	Date        time.Time       `json:"date"`
	ProductID   ID              `json:"productId"`
	ProductName string          `json:"productName"`
	Quantity    int             `json:"quantity"`
	CostPerUnit decimal.Decimal `json:"costPerUnit"`
}

// StockOut records shrinkage or a manual adjustment; it always decreases stock.
type StockOut struct {
	ID          ID        `json:"id"`
	Date        time.Time `json:"date"`
	ProductID   ID        `json:"productId"`
	ProductName string    `json:"productName"`
	Quantity    int       `json:"quantity"`
	Reason      string    `json:"reason"`
}
