package model

import (
	"github.com/shopspring/decimal"
)

// Product is a sellable item. Stock is a cache of the stock ledger and may
// drift from it until the ledger is recomputed.
type Product struct {
	ID           ID              `json:"id"`
	Name         string          `json:"name"`
	Unit         string          `json:"unit"`
	CostPrice    decimal.Decimal `json:"costPrice"`
	SellingPrice decimal.Decimal `json:"sellingPrice"`
	Stock        int             `json:"stock"`
}
