package engines

import (
	"time"

	"bitbucket.org/mmdatafocus/intellitrace_backend/models"
	"github.com/shopspring/decimal"
)

func testEntity(id int, name string, entityType models.EntityType, revenue int64) *models.Entity {
	return &models.Entity{
		ID:            id,
		Name:          name,
		EntityType:    entityType,
		Tier:          models.TierTwo,
		AnnualRevenue: decimal.NewFromInt(revenue),
	}
}

func testInvoice(id int, supplierId, buyerId int, amount int64, date string) *models.Invoice {
	invoiceDate, _ := time.Parse("2006-01-02", date)
	amt := decimal.NewFromInt(amount)
	return &models.Invoice{
		ID:            id,
		InvoiceNumber: "INV-" + date,
		Fingerprint:   models.ComputeFingerprint("INV", supplierId, buyerId, amt, invoiceDate),
		SupplierId:    supplierId,
		BuyerId:       buyerId,
		Tier:          models.TierTwo,
		Amount:        amt,
		Currency:      "USD",
		InvoiceDate:   invoiceDate,
		DueDate:       invoiceDate.AddDate(0, 2, 0),
		Status:        models.InvoiceStatusPending,
	}
}

func testSnapshot(invoices ...*models.Invoice) *models.LedgerSnapshot {
	return &models.LedgerSnapshot{
		Entities: map[int]*models.Entity{},
		Invoices: invoices,
	}
}

func emptyIndex() *FlagIndex {
	return NewFlagIndex(nil)
}
