package service

import (
	"go-pos-ledger/internal/model"

	"github.com/sirupsen/logrus"
)

// CollectionMerge counts what happened to one collection during a merge.
type CollectionMerge struct {
	Added   int `json:"added"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
}

type MergeResult struct {
	Users                CollectionMerge `json:"users"`
	Stores               CollectionMerge `json:"stores"`
	Products             CollectionMerge `json:"products"`
	Sales                CollectionMerge `json:"sales"`
	StockIns             CollectionMerge `json:"stockIns"`
	StockOuts            CollectionMerge `json:"stockOuts"`
	AdminPasswordUpdated bool            `json:"adminPasswordUpdated"`
}

// NamedMerge is one collection's counts with its name.
type NamedMerge struct {
	Name string
	CollectionMerge
}

// Collections lists the per-collection counts in document order.
func (r MergeResult) Collections() []NamedMerge {
	return []NamedMerge{
		{"users", r.Users},
		{"stores", r.Stores},
		{"products", r.Products},
		{"sales", r.Sales},
		{"stockIns", r.StockIns},
		{"stockOuts", r.StockOuts},
	}
}

// MergeSnapshot folds incoming into local by record id. Existing records
// are overwritten and unknown ones appended. The admin account only takes
// the incoming admin's password. Products only take name, unit and prices,
// so cached stock is untouched; callers recompute it from the merged
// history afterwards.
func MergeSnapshot(local, incoming *model.PosState, log logrus.FieldLogger) MergeResult {
	var res MergeResult

	local.Users, res.Users, res.AdminPasswordUpdated = mergeUsers(local.Users, incoming.Users, log)

	local.Stores, res.Stores = mergeByID(local.Stores, incoming.Stores, "stores", log,
		func(s model.Store) model.ID { return s.ID },
		func(dst *model.Store, src model.Store) { *dst = src })

	local.Products, res.Products = mergeByID(local.Products, incoming.Products, "products", log,
		func(p model.Product) model.ID { return p.ID },
		func(dst *model.Product, src model.Product) {
			dst.Name = src.Name
			dst.CostPrice = src.CostPrice
			dst.SellingPrice = src.SellingPrice
			dst.Unit = src.Unit
		})

	local.Sales, res.Sales = mergeByID(local.Sales, incoming.Sales, "sales", log,
		func(s model.Sale) model.ID { return s.ID },
		func(dst *model.Sale, src model.Sale) { *dst = src })

	local.StockIns, res.StockIns = mergeByID(local.StockIns, incoming.StockIns, "stockIns", log,
		func(si model.StockIn) model.ID { return si.ID },
		func(dst *model.StockIn, src model.StockIn) { *dst = src })

	local.StockOuts, res.StockOuts = mergeByID(local.StockOuts, incoming.StockOuts, "stockOuts", log,
		func(so model.StockOut) model.ID { return so.ID },
		func(dst *model.StockOut, src model.StockOut) { *dst = src })

	return res
}

func mergeByID[T any](local, incoming []T, collection string, log logrus.FieldLogger, idOf func(T) model.ID, overwrite func(dst *T, src T)) ([]T, CollectionMerge) {
	var res CollectionMerge
	index := make(map[model.ID]int, len(local))
	for i, rec := range local {
		index[idOf(rec)] = i
	}
	for _, rec := range incoming {
		id := idOf(rec)
		if id.IsZero() {
			res.Skipped++
			log.WithField("collection", collection).Warn("Skipping merged record without id")
			continue
		}
		if i, ok := index[id]; ok {
			overwrite(&local[i], rec)
			res.Updated++
			continue
		}
		index[id] = len(local)
		local = append(local, rec)
		res.Added++
	}
	return local, res
}

// mergeUsers never adds, replaces or removes the local admin. Incoming
// users that would collide with the admin's id or with another account's
// username are skipped.
func mergeUsers(local, incoming []model.User, log logrus.FieldLogger) ([]model.User, CollectionMerge, bool) {
	var res CollectionMerge
	adminUpdated := false

	var others []model.User
	for _, u := range incoming {
		if !u.IsAdmin() {
			others = append(others, u)
			continue
		}
		for i := range local {
			if local[i].IsAdmin() {
				local[i].Password = u.Password
				adminUpdated = true
				break
			}
		}
	}

	accepted := others[:0]
	claimed := make(map[string]model.ID)
	for _, u := range others {
		if u.ID.IsZero() {
			accepted = append(accepted, u)
			continue
		}
		owner, taken := claimed[u.Username]
		conflict := taken && owner != u.ID
		for _, l := range local {
			if l.ID == u.ID && l.IsAdmin() {
				conflict = true
			}
			if l.ID != u.ID && l.Username == u.Username {
				conflict = true
			}
		}
		if conflict {
			res.Skipped++
			log.WithFields(logrus.Fields{"collection": "users", "username": u.Username}).Warn("Skipping merged user that conflicts with an existing account")
			continue
		}
		claimed[u.Username] = u.ID
		accepted = append(accepted, u)
	}

	merged, counts := mergeByID(local, accepted, "users", log,
		func(u model.User) model.ID { return u.ID },
		func(dst *model.User, src model.User) { *dst = src })
	counts.Skipped += res.Skipped
	return merged, counts, adminUpdated
}
