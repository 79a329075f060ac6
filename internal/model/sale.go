package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type SaleItem struct {
	ProductID      ID              `json:"productId"`
	Name           string          `json:"name"`
	Quantity       int             `json:"quantity"`
	Price          decimal.Decimal `json:"price"`
	Cost           decimal.Decimal `json:"cost"`
	IsSpecialPrice bool            `json:"isSpecialPrice"`
	OriginalPrice  decimal.Decimal `json:"originalPrice"`
}

// LineTotal is price × quantity.
func (i SaleItem) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Sale is a completed checkout. Total and Profit are snapshots computed at
// checkout and are never recomputed from later product price changes.
type Sale struct {
	ID             ID              `json:"id"`
	Date           time.Time       `json:"date"`
	Items          []SaleItem      `json:"items"`
	Total          decimal.Decimal `json:"total"`
	Profit         decimal.Decimal `json:"profit"`
	PaymentMethod  PaymentMethod   `json:"paymentMethod"`
	BuyerName      *string         `json:"buyerName"`
	CreditDueDate  *time.Time      `json:"creditDueDate"`
	TransferorName *string         `json:"transferorName"`
	SellerID       ID              `json:"sellerId"`
	SellerName     string          `json:"sellerName"`
	StoreID        *ID             `json:"storeId"`
	StoreName      *string         `json:"storeName"`
}

// Method returns the payment method, treating a missing one as cash.
func (s *Sale) Method() PaymentMethod {
	return s.PaymentMethod.Normalize()
}

// PaymentDetail is the buyer for credit sales, the transferor for transfers,
// and empty otherwise.
func (s *Sale) PaymentDetail() string {
	switch s.Method() {
	case PaymentCredit:
		if s.BuyerName != nil {
			return *s.BuyerName
		}
	case PaymentTransfer:
		if s.TransferorName != nil {
			return *s.TransferorName
		}
	}
	return ""
}

func (s Sale) clone() Sale {
	s.Items = append([]SaleItem(nil), s.Items...)
	return s
}
