package model

import (
	"crypto/subtle"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

// DateLayout is the calendar-day format used for seller windows and the
// money tracker.
const DateLayout = "2006-01-02"

// User is an operator account. Seller-only fields are cleared when the role
// changes away from seller.
type User struct {
	ID                   ID              `json:"id"`
	Username             string          `json:"username"`
	Password             string          `json:"password"`
	Role                 Role            `json:"role"`
	StoreID              *ID             `json:"storeId"`
	AssignedProductIDs   []ID            `json:"assignedProductIds,omitempty"`
	SalesStartDate       *string         `json:"salesStartDate,omitempty"`
	SalesEndDate         *string         `json:"salesEndDate,omitempty"`
	CommissionRate       decimal.Decimal `json:"commissionRate"`
	CommissionOnCash     bool            `json:"commissionOnCash"`
	CommissionOnTransfer bool            `json:"commissionOnTransfer"`
	CommissionOnCredit   bool            `json:"commissionOnCredit"`
	VisibleSalesDays     *int            `json:"visibleSalesDays"`
}

func (u *User) IsAdmin() bool  { return u.Role == RoleAdmin }
func (u *User) IsSeller() bool { return u.Role == RoleSeller }

// SetPassword hashes and sets the user's password
func (u *User) SetPassword(password string) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.Password = string(hashedPassword)
	return nil
}

// CheckPassword verifies a password against the stored value. Snapshots from
// older clients hold plaintext passwords, which are compared directly.
func (u *User) CheckPassword(password string) bool {
	if strings.HasPrefix(u.Password, "$2") {
		return bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(u.Password), []byte(password)) == 1
}

// CanSell reports whether the user may see and sell a product.
func (u *User) CanSell(productID ID) bool {
	if !u.IsSeller() {
		return true
	}
	return slices.Contains(u.AssignedProductIDs, productID)
}

// SellableWindow returns the seller's window as [start 00:00, end 23:59:59.999]
// in loc. ok is false when the user has no complete window.
func (u *User) SellableWindow(loc *time.Location) (start, end time.Time, ok bool) {
	if !u.IsSeller() || u.SalesStartDate == nil || u.SalesEndDate == nil {
		return time.Time{}, time.Time{}, false
	}
	s, err := time.ParseInLocation(DateLayout, *u.SalesStartDate, loc)
	if err != nil {
		return time.Time{}, time.Time{}, false
	}
	e, err := time.ParseInLocation(DateLayout, *u.SalesEndDate, loc)
	if err != nil {
		return time.Time{}, time.Time{}, false
	}
	return s, EndOfDay(e), true
}

// HistoryCutoff is the earliest instant a seller may look back to, or nil
// when unrestricted.
func (u *User) HistoryCutoff(now time.Time, loc *time.Location) *time.Time {
	if !u.IsSeller() || u.VisibleSalesDays == nil || *u.VisibleSalesDays < 0 {
		return nil
	}
	cutoff := StartOfDay(now.In(loc)).AddDate(0, 0, -*u.VisibleSalesDays)
	return &cutoff
}

// ClearSellerFields drops everything that only applies to sellers.
func (u *User) ClearSellerFields() {
	u.StoreID = nil
	u.AssignedProductIDs = nil
	u.SalesStartDate = nil
	u.SalesEndDate = nil
	u.CommissionRate = decimal.Zero
	u.CommissionOnCash = false
	u.CommissionOnTransfer = false
	u.CommissionOnCredit = false
	u.VisibleSalesDays = nil
}

// CommissionSources lists the payment methods the seller earns commission on.
func (u *User) CommissionSources() []PaymentMethod {
	var sources []PaymentMethod
	if u.CommissionOnCash {
		sources = append(sources, PaymentCash)
	}
	if u.CommissionOnTransfer {
		sources = append(sources, PaymentTransfer)
	}
	if u.CommissionOnCredit {
		sources = append(sources, PaymentCredit)
	}
	return sources
}

func (u User) clone() User {
	u.AssignedProductIDs = slices.Clone(u.AssignedProductIDs)
	return u
}

// UserResponse is used for API responses (without the password)
type UserResponse struct {
	ID                   ID              `json:"id"`
	Username             string          `json:"username"`
	Role                 Role            `json:"role"`
	StoreID              *ID             `json:"storeId"`
	AssignedProductIDs   []ID            `json:"assignedProductIds"`
	SalesStartDate       *string         `json:"salesStartDate"`
	SalesEndDate         *string         `json:"salesEndDate"`
	CommissionRate       decimal.Decimal `json:"commissionRate"`
	CommissionOnCash     bool            `json:"commissionOnCash"`
	CommissionOnTransfer bool            `json:"commissionOnTransfer"`
	CommissionOnCredit   bool            `json:"commissionOnCredit"`
	VisibleSalesDays     *int            `json:"visibleSalesDays"`
}

// ToResponse converts User to UserResponse
func (u *User) ToResponse() UserResponse {
	return UserResponse{
		ID:                   u.ID,
		Username:             u.Username,
		Role:                 u.Role,
		StoreID:              u.StoreID,
		AssignedProductIDs:   u.AssignedProductIDs,
		SalesStartDate:       u.SalesStartDate,
		SalesEndDate:         u.SalesEndDate,
		CommissionRate:       u.CommissionRate,
		CommissionOnCash:     u.CommissionOnCash,
		CommissionOnTransfer: u.CommissionOnTransfer,
		CommissionOnCredit:   u.CommissionOnCredit,
		VisibleSalesDays:     u.VisibleSalesDays,
	}
}
