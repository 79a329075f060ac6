package service

import (
	"context"
	"slices"

	"go-pos-ledger/internal/model"
	"go-pos-ledger/internal/ws"

	"github.com/sirupsen/logrus"
)

// ResetConfirmation must be echoed back in ResetOptions.Confirm.
const ResetConfirmation = "5555"

var (
	ErrNothingToReset    = invalid("select at least one collection to reset")
	ErrResetNotConfirmed = invalid("reset requires the confirmation code")
)

// ResetOptions chooses which collections Reset clears. Sellers removes every
// non-admin account; StockHistory covers both stock-ins and stock-outs.
type ResetOptions struct {
	Sales        bool `json:"sales"`
	StockHistory bool `json:"stockHistory"`
	Products     bool `json:"products"`
	Sellers      bool `json:"sellers"`
	Stores       bool `json:"stores"`

	Confirm string `json:"confirm"`
}

func (o ResetOptions) any() bool {
	return o.Sales || o.StockHistory || o.Products || o.Sellers || o.Stores
}

type ResetService interface {
	Reset(ctx context.Context, actor Actor, opts ResetOptions) error
}

type resetService struct {
	ws     *PosWorkspace
	events Publisher
	log    logrus.FieldLogger
}

func NewResetService(w *PosWorkspace, events Publisher, log logrus.FieldLogger) ResetService {
	return &resetService{ws: w, events: events, log: log}
}

// Reset clears the selected collections in one step. When history is
// cleared but products remain, stock is recomputed from what is left.
func (s *resetService) Reset(ctx context.Context, actor Actor, opts ResetOptions) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	if !opts.any() {
		return ErrNothingToReset
	}
	if opts.Confirm != ResetConfirmation {
		return ErrResetNotConfirmed
	}

	err := s.ws.Mutate(ctx, func(st *model.PosState) error {
		if opts.Sales {
			st.Sales = []model.Sale{}
		}
		if opts.StockHistory {
			st.StockIns = []model.StockIn{}
			st.StockOuts = []model.StockOut{}
		}
		if opts.Products {
			st.Products = []model.Product{}
		}
		if opts.Sellers {
			st.Users = slices.DeleteFunc(st.Users, func(u model.User) bool { return !u.IsAdmin() })
		}
		if opts.Stores {
			st.Stores = []model.Store{}
			for i := range st.Users {
				st.Users[i].StoreID = nil
			}
		}
		if (opts.Sales || opts.StockHistory) && len(st.Products) > 0 {
			RecalculateAll(st)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.log.WithFields(logrus.Fields{
		"sales":         opts.Sales,
		"stock_history": opts.StockHistory,
		"products":      opts.Products,
		"sellers":       opts.Sellers,
		"stores":        opts.Stores,
		"by":            actor.Username,
	}).Warn("State reset")
	s.events.Publish(ws.Event{Type: ws.TypeStateUpdate, Action: "reset", Data: opts, User: actor.eventUser()})
	return nil
}
