package models

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"time"

	"bitbucket.org/mmdatafocus/intellitrace_backend/config"
	"bitbucket.org/mmdatafocus/intellitrace_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Invoice struct {
	ID                int             `gorm:"primary_key" json:"id"`
	InvoiceNumber     string          `gorm:"size:100;not null;index" json:"invoice_number"`
	Fingerprint       string          `gorm:"size:64;not null;index" json:"fingerprint"`
	SupplierId        int             `gorm:"not null;index" json:"supplier_id"`
	BuyerId           int             `gorm:"not null;index" json:"buyer_id"`
	LenderId          *int            `gorm:"index" json:"lender_id"`
	Tier              Tier            `gorm:"size:10;not null;default:none" json:"tier"`
	Amount            decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"amount"`
	Currency          string          `gorm:"size:3;not null;default:USD" json:"currency"`
	InvoiceDate       time.Time       `gorm:"not null" json:"invoice_date"`
	DueDate           time.Time       `gorm:"not null" json:"due_date"`
	Status            InvoiceStatus   `gorm:"size:20;not null;default:pending;index" json:"status"`
	PoNumber          *string         `gorm:"size:100" json:"po_number"`
	PoValidated       bool            `gorm:"not null;default:false" json:"po_validated"`
	GrnNumber         *string         `gorm:"size:100" json:"grn_number"`
	GrnValidated      bool            `gorm:"not null;default:false" json:"grn_validated"`
	DeliveryConfirmed bool            `gorm:"not null;default:false" json:"delivery_confirmed"`
	RiskScore         float64         `gorm:"not null;default:0" json:"risk_score"`
	CascadeGroup      *string         `gorm:"size:100;index" json:"cascade_group"`
	CreatedAt         time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewInvoice struct {
	InvoiceNumber     string  `json:"invoice_number" binding:"required"`
	SupplierId        int     `json:"supplier_id" binding:"required"`
	BuyerId           int     `json:"buyer_id" binding:"required"`
	LenderId          *int    `json:"lender_id"`
	Tier              string  `json:"tier"`
	Amount            string  `json:"amount" binding:"required"`
	Currency          string  `json:"currency"`
	InvoiceDate       string  `json:"invoice_date" binding:"required"`
	DueDate           string  `json:"due_date" binding:"required"`
	PoNumber          *string `json:"po_number"`
	GrnNumber         *string `json:"grn_number"`
	DeliveryConfirmed bool    `json:"delivery_confirmed"`
	CascadeGroup      *string `json:"cascade_group"`
}

// ComputeFingerprint hashes the identity-defining fields of an invoice.
// Amount is fixed to 2 decimals and the date to yyyy-mm-dd before hashing
// so representation differences never change the digest.
func ComputeFingerprint(invoiceNumber string, supplierId int, buyerId int, amount decimal.Decimal, invoiceDate time.Time) string {
	payload := fmt.Sprintf("%s|%d|%d|%s|%s",
		invoiceNumber, supplierId, buyerId,
		amount.StringFixed(2), invoiceDate.Format("2006-01-02"))
	digest := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(digest[:])
}

// validate input and resolve it into a persistable Invoice. (no db writes)
func (input *NewInvoice) validate(ctx context.Context) (*Invoice, error) {

	tier := Tier(input.Tier)
	if input.Tier == "" {
		tier = TierNone
	}
	if !tier.IsValid() {
		return nil, errors.New("invalid tier")
	}

	amount, err := utils.ParseDecimal(input.Amount)
	if err != nil {
		return nil, errors.New("invalid amount")
	}
	if !amount.IsPositive() {
		return nil, errors.New("amount must be positive")
	}

	invoiceDate, err := time.Parse("2006-01-02", input.InvoiceDate)
	if err != nil {
		return nil, errors.New("invalid invoice date, expected yyyy-mm-dd")
	}
	dueDate, err := time.Parse("2006-01-02", input.DueDate)
	if err != nil {
		return nil, errors.New("invalid due date, expected yyyy-mm-dd")
	}
	if dueDate.Before(invoiceDate) {
		return nil, errors.New("due date must not precede invoice date")
	}

	if _, err := GetEntity(ctx, input.SupplierId); err != nil {
		return nil, errors.New("supplier not found")
	}
	if _, err := GetEntity(ctx, input.BuyerId); err != nil {
		return nil, errors.New("buyer not found")
	}
	if input.LenderId != nil {
		if _, err := GetEntity(ctx, *input.LenderId); err != nil {
			return nil, errors.New("lender not found")
		}
	}

	currency := input.Currency
	if currency == "" {
		currency = "USD"
	}

	// normalize empty document numbers to NULL so presence checks stay honest
	poNumber := utils.NilIfEmpty(utils.DereferencePtr(input.PoNumber))
	grnNumber := utils.NilIfEmpty(utils.DereferencePtr(input.GrnNumber))
	cascadeGroup := utils.NilIfEmpty(utils.DereferencePtr(input.CascadeGroup))

	invoice := Invoice{
		InvoiceNumber:     input.InvoiceNumber,
		Fingerprint:       ComputeFingerprint(input.InvoiceNumber, input.SupplierId, input.BuyerId, amount, invoiceDate),
		SupplierId:        input.SupplierId,
		BuyerId:           input.BuyerId,
		LenderId:          input.LenderId,
		Tier:              tier,
		Amount:            amount,
		Currency:          currency,
		InvoiceDate:       invoiceDate,
		DueDate:           dueDate,
		Status:            InvoiceStatusPending,
		PoNumber:          poNumber,
		PoValidated:       poNumber != nil,
		GrnNumber:         grnNumber,
		GrnValidated:      grnNumber != nil,
		DeliveryConfirmed: input.DeliveryConfirmed,
		CascadeGroup:      cascadeGroup,
	}
	return &invoice, nil
}

// BuildInvoice resolves the input into an unsaved Invoice; the caller owns
// persistence so creation and real-time scoring share one transaction.
func BuildInvoice(ctx context.Context, input *NewInvoice) (*Invoice, error) {
	return input.validate(ctx)
}

// ApplyFlagConfidence folds one flag confidence into the invoice's risk
// score: score = max(current, round(confidence*100, 1)), status becomes
// flagged once the score passes 50 and never reverts.
func (inv *Invoice) ApplyFlagConfidence(confidence float64) {
	score := math.Round(confidence*100*10) / 10
	if score > 100 {
		score = 100
	}
	if score > inv.RiskScore {
		inv.RiskScore = score
	}
	if inv.RiskScore > 50 {
		inv.Status = InvoiceStatusFlagged
	}
}

func GetInvoice(ctx context.Context, id int) (*Invoice, error) {

	db := config.GetDB()
	var invoice Invoice
	err := db.WithContext(ctx).First(&invoice, id).Error
	if err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	return &invoice, nil
}

// InvoiceFilter narrows an invoice listing; nil fields are ignored.
type InvoiceFilter struct {
	Status     *InvoiceStatus
	Tier       *Tier
	SupplierId *int
	DateFrom   *time.Time
	DateTo     *time.Time
	MinRisk    *float64
}

func GetInvoices(ctx context.Context, filter *InvoiceFilter) ([]*Invoice, error) {

	db := config.GetDB()
	var results []*Invoice

	dbCtx := db.WithContext(ctx)
	if filter != nil {
		if filter.Status != nil {
			dbCtx = dbCtx.Where("status = ?", *filter.Status)
		}
		if filter.Tier != nil {
			dbCtx = dbCtx.Where("tier = ?", *filter.Tier)
		}
		if filter.SupplierId != nil {
			dbCtx = dbCtx.Where("supplier_id = ?", *filter.SupplierId)
		}
		if filter.DateFrom != nil {
			dbCtx = dbCtx.Where("invoice_date >= ?", *filter.DateFrom)
		}
		if filter.DateTo != nil {
			dbCtx = dbCtx.Where("invoice_date <= ?", *filter.DateTo)
		}
		if filter.MinRisk != nil {
			dbCtx = dbCtx.Where("risk_score >= ?", *filter.MinRisk)
		}
	}
	err := dbCtx.Order("invoice_date DESC, id DESC").Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

type InvoiceStatsSummary struct {
	TotalInvoices int             `json:"total_invoices"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	ByStatus      map[string]int  `json:"by_status"`
	ByTier        map[string]int  `json:"by_tier"`
	FlaggedCount  int             `json:"flagged_count"`
	FlaggedAmount decimal.Decimal `json:"flagged_amount"`
}

func GetInvoiceStatsSummary(ctx context.Context) (*InvoiceStatsSummary, error) {

	db := config.GetDB()
	var invoices []*Invoice
	if err := db.WithContext(ctx).Find(&invoices).Error; err != nil {
		return nil, err
	}

	summary := InvoiceStatsSummary{
		TotalAmount:   decimal.Zero,
		FlaggedAmount: decimal.Zero,
		ByStatus:      map[string]int{},
		ByTier:        map[string]int{},
	}
	for _, inv := range invoices {
		summary.TotalInvoices++
		summary.TotalAmount = summary.TotalAmount.Add(inv.Amount)
		summary.ByStatus[string(inv.Status)]++
		summary.ByTier[string(inv.Tier)]++
		if inv.Status == InvoiceStatusFlagged {
			summary.FlaggedCount++
			summary.FlaggedAmount = summary.FlaggedAmount.Add(inv.Amount)
		}
	}
	return &summary, nil
}

// UpdateInvoiceRisk persists the folded risk score and status inside the
// caller's transaction.
func UpdateInvoiceRisk(tx *gorm.DB, invoice *Invoice) error {
	return tx.Model(&Invoice{}).Where("id = ?", invoice.ID).
		Updates(map[string]interface{}{
			"risk_score": invoice.RiskScore,
			"status":     invoice.Status,
		}).Error
}
