package models

import (
	"context"

	"bitbucket.org/mmdatafocus/intellitrace_backend/config"
)

// LedgerSnapshot is the read side of one scan: every detector works off the
// same snapshot so the engines stay read-independent of each other.
type LedgerSnapshot struct {
	Entities    map[int]*Entity
	Invoices    []*Invoice
	Collections []*CashCollection
	Edges       []*SupplyChainEdge
}

func (s *LedgerSnapshot) InvoiceById(id int) *Invoice {
	for _, inv := range s.Invoices {
		if inv.ID == id {
			return inv
		}
	}
	return nil
}

func (s *LedgerSnapshot) PendingInvoices() []*Invoice {
	var pending []*Invoice
	for _, inv := range s.Invoices {
		if inv.Status == InvoiceStatusPending {
			pending = append(pending, inv)
		}
	}
	return pending
}

func (s *LedgerSnapshot) InvoicesBySupplier() map[int][]*Invoice {
	bySupplier := map[int][]*Invoice{}
	for _, inv := range s.Invoices {
		bySupplier[inv.SupplierId] = append(bySupplier[inv.SupplierId], inv)
	}
	return bySupplier
}

func LoadLedgerSnapshot(ctx context.Context) (*LedgerSnapshot, error) {

	db := config.GetDB()
	snapshot := LedgerSnapshot{Entities: map[int]*Entity{}}

	var entities []*Entity
	if err := db.WithContext(ctx).Find(&entities).Error; err != nil {
		return nil, err
	}
	for _, e := range entities {
		snapshot.Entities[e.ID] = e
	}

	if err := db.WithContext(ctx).Order("invoice_date, id").Find(&snapshot.Invoices).Error; err != nil {
		return nil, err
	}
	if err := db.WithContext(ctx).Find(&snapshot.Collections).Error; err != nil {
		return nil, err
	}
	if err := db.WithContext(ctx).Find(&snapshot.Edges).Error; err != nil {
		return nil, err
	}
	return &snapshot, nil
}

// LoadFlagKeys returns the dedup keys of every flag ever raised, for the
// detectors' pre-check index.
func LoadFlagKeys(ctx context.Context) ([]FlagKey, error) {

	db := config.GetDB()
	var flags []*FraudFlag
	if err := db.WithContext(ctx).Select("invoice_id", "fraud_type", "engine").Find(&flags).Error; err != nil {
		return nil, err
	}
	keys := make([]FlagKey, 0, len(flags))
	for _, f := range flags {
		keys = append(keys, f.Key())
	}
	return keys, nil
}
