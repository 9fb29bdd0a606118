package models

import (
	"context"
	"time"

	"bitbucket.org/mmdatafocus/intellitrace_backend/config"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type FraudFlag struct {
	ID          int          `gorm:"primary_key" json:"id"`
	InvoiceId   int          `gorm:"not null;index" json:"invoice_id"`
	FraudType   FraudType    `gorm:"size:30;not null;index" json:"fraud_type"`
	Engine      string       `gorm:"size:50;not null" json:"engine"`
	Confidence  float64      `gorm:"not null" json:"confidence"`
	Severity    FlagSeverity `gorm:"size:10;not null" json:"severity"`
	Description string       `gorm:"size:500" json:"description"`
	DetectedAt  time.Time    `gorm:"autoCreateTime" json:"detected_at"`
	Resolved    bool         `gorm:"not null;default:false" json:"resolved"`
}

// FlagKey is the dedup key: one finding per (invoice, fraud type, engine).
type FlagKey struct {
	InvoiceId int
	FraudType FraudType
	Engine    string
}

func (f *FraudFlag) Key() FlagKey {
	return FlagKey{InvoiceId: f.InvoiceId, FraudType: f.FraudType, Engine: f.Engine}
}

// CreateFraudFlag writes one flag inside the caller's transaction. Dedup is
// enforced upstream: detectors pre-check the flag index, and scans are
// mutually exclusive, so check-then-insert cannot race. There is no unique
// constraint on the dedup triple because the invoice validator legitimately
// raises more than one finding per (invoice, fraud type, engine).
func CreateFraudFlag(tx *gorm.DB, flag *FraudFlag) error {
	return tx.Create(flag).Error
}

func GetFraudFlag(ctx context.Context, id int) (*FraudFlag, error) {

	db := config.GetDB()
	var flag FraudFlag
	err := db.WithContext(ctx).First(&flag, id).Error
	if err != nil {
		return nil, err
	}
	return &flag, nil
}

func GetFraudFlags(ctx context.Context, fraudType *FraudType, minConfidence *float64) ([]*FraudFlag, error) {

	db := config.GetDB()
	var results []*FraudFlag

	dbCtx := db.WithContext(ctx)
	if fraudType != nil {
		dbCtx = dbCtx.Where("fraud_type = ?", *fraudType)
	}
	if minConfidence != nil {
		dbCtx = dbCtx.Where("confidence >= ?", *minConfidence)
	}
	err := dbCtx.Order("detected_at DESC, id DESC").Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

func GetFraudFlagsByInvoice(ctx context.Context, invoiceId int) ([]*FraudFlag, error) {

	db := config.GetDB()
	var results []*FraudFlag
	err := db.WithContext(ctx).Where("invoice_id = ?", invoiceId).
		Order("detected_at DESC, id DESC").Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

type FraudExposure struct {
	FraudType    FraudType       `json:"fraud_type"`
	InvoiceCount int             `json:"invoice_count"`
	TotalAmount  decimal.Decimal `json:"total_amount"`
}

// GetFraudExposure reports, per fraud type, how many distinct invoices are
// flagged and the sum of their amounts.
func GetFraudExposure(ctx context.Context) ([]*FraudExposure, error) {

	db := config.GetDB()
	var flags []*FraudFlag
	if err := db.WithContext(ctx).Find(&flags).Error; err != nil {
		return nil, err
	}

	// distinct invoice ids per fraud type
	invoicesByType := map[FraudType]map[int]bool{}
	for _, f := range flags {
		if invoicesByType[f.FraudType] == nil {
			invoicesByType[f.FraudType] = map[int]bool{}
		}
		invoicesByType[f.FraudType][f.InvoiceId] = true
	}

	var results []*FraudExposure
	for fraudType, invoiceIds := range invoicesByType {
		ids := make([]int, 0, len(invoiceIds))
		for id := range invoiceIds {
			ids = append(ids, id)
		}
		var invoices []*Invoice
		if err := db.WithContext(ctx).Where("id IN ?", ids).Find(&invoices).Error; err != nil {
			return nil, err
		}
		exposure := FraudExposure{FraudType: fraudType, InvoiceCount: len(invoices)}
		for _, inv := range invoices {
			exposure.TotalAmount = exposure.TotalAmount.Add(inv.Amount)
		}
		results = append(results, &exposure)
	}
	return results, nil
}
