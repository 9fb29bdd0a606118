package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/intellitrace_backend/config"
	"bitbucket.org/mmdatafocus/intellitrace_backend/utils"
	"github.com/shopspring/decimal"
)

type CashCollection struct {
	ID              int             `gorm:"primary_key" json:"id"`
	InvoiceId       int             `gorm:"not null;index" json:"invoice_id"`
	ExpectedAmount  decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"expected_amount"`
	CollectedAmount decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"collected_amount"`
	DilutionRatio   float64         `gorm:"not null" json:"dilution_ratio"`
	CollectionDate  time.Time       `gorm:"not null" json:"collection_date"`
	CreatedAt       time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

type NewCashCollection struct {
	InvoiceId       int    `json:"invoice_id" binding:"required"`
	ExpectedAmount  string `json:"expected_amount" binding:"required"`
	CollectedAmount string `json:"collected_amount" binding:"required"`
	CollectionDate  string `json:"collection_date" binding:"required"`
}

// DilutionRatioOf derives the collection shortfall as a share of the
// expected amount. A zero expected amount yields zero, not a division error.
func DilutionRatioOf(expected, collected decimal.Decimal) float64 {
	if !expected.IsPositive() {
		return 0
	}
	ratio, _ := expected.Sub(collected).Div(expected).Float64()
	return ratio
}

func CreateCashCollection(ctx context.Context, input *NewCashCollection) (*CashCollection, error) {

	expected, err := utils.ParseDecimal(input.ExpectedAmount)
	if err != nil {
		return nil, errors.New("invalid expected amount")
	}
	collected, err := utils.ParseDecimal(input.CollectedAmount)
	if err != nil {
		return nil, errors.New("invalid collected amount")
	}
	collectionDate, err := time.Parse("2006-01-02", input.CollectionDate)
	if err != nil {
		return nil, errors.New("invalid collection date, expected yyyy-mm-dd")
	}
	if _, err := GetInvoice(ctx, input.InvoiceId); err != nil {
		return nil, errors.New("invoice not found")
	}

	collection := CashCollection{
		InvoiceId:       input.InvoiceId,
		ExpectedAmount:  expected,
		CollectedAmount: collected,
		DilutionRatio:   DilutionRatioOf(expected, collected),
		CollectionDate:  collectionDate,
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&collection).Error; err != nil {
		return nil, err
	}
	return &collection, nil
}

func GetCashCollections(ctx context.Context, minDilutionRatio *float64) ([]*CashCollection, error) {

	db := config.GetDB()
	var results []*CashCollection

	dbCtx := db.WithContext(ctx)
	if minDilutionRatio != nil {
		dbCtx = dbCtx.Where("dilution_ratio > ?", *minDilutionRatio)
	}
	err := dbCtx.Order("collection_date DESC, id DESC").Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}
