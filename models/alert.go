package models

import (
	"context"
	"time"

	"bitbucket.org/mmdatafocus/intellitrace_backend/config"
	"bitbucket.org/mmdatafocus/intellitrace_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Alert struct {
	ID                int             `gorm:"primary_key" json:"id"`
	Title             string          `gorm:"size:255;not null" json:"title"`
	Description       string          `gorm:"size:1000" json:"description"`
	Severity          FlagSeverity    `gorm:"size:10;not null" json:"severity"`
	Status            AlertStatus     `gorm:"size:20;not null;default:open;index" json:"status"`
	FraudType         FraudType       `gorm:"size:30;not null;index" json:"fraud_type"`
	RelatedInvoiceIds []int           `gorm:"serializer:json" json:"related_invoice_ids"`
	RelatedEntityIds  []int           `gorm:"serializer:json" json:"related_entity_ids"`
	TotalExposure     decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"total_exposure"`
	ScanId            string          `gorm:"size:20;index" json:"scan_id"`
	CreatedAt         time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// CreateAlert writes the alert inside the caller's transaction so scan
// alerts commit atomically with the flags that justify them.
func CreateAlert(tx *gorm.DB, alert *Alert) error {
	if alert.Status == "" {
		alert.Status = AlertStatusOpen
	}
	return tx.Create(alert).Error
}

func GetAlert(ctx context.Context, id int) (*Alert, error) {

	db := config.GetDB()
	var alert Alert
	err := db.WithContext(ctx).First(&alert, id).Error
	if err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	return &alert, nil
}

func GetAlerts(ctx context.Context, status *AlertStatus, severity *FlagSeverity) ([]*Alert, error) {

	db := config.GetDB()
	var results []*Alert

	dbCtx := db.WithContext(ctx)
	if status != nil {
		dbCtx = dbCtx.Where("status = ?", *status)
	}
	if severity != nil {
		dbCtx = dbCtx.Where("severity = ?", *severity)
	}
	err := dbCtx.Order("created_at DESC, id DESC").Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

func UpdateAlertStatus(ctx context.Context, id int, status AlertStatus) (*Alert, error) {

	alert, err := GetAlert(ctx, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Model(alert).Update("status", status).Error
	if err != nil {
		return nil, err
	}
	return alert, nil
}

type AlertStatsSummary struct {
	TotalAlerts  int            `json:"total_alerts"`
	ByStatus     map[string]int `json:"by_status"`
	BySeverity   map[string]int `json:"by_severity"`
	ByFraudType  map[string]int `json:"by_fraud_type"`
	OpenCritical int            `json:"open_critical"`
}

func GetAlertStatsSummary(ctx context.Context) (*AlertStatsSummary, error) {

	db := config.GetDB()
	var alerts []*Alert
	if err := db.WithContext(ctx).Find(&alerts).Error; err != nil {
		return nil, err
	}

	summary := AlertStatsSummary{
		ByStatus:    map[string]int{},
		BySeverity:  map[string]int{},
		ByFraudType: map[string]int{},
	}
	for _, a := range alerts {
		summary.TotalAlerts++
		summary.ByStatus[string(a.Status)]++
		summary.BySeverity[string(a.Severity)]++
		summary.ByFraudType[string(a.FraudType)]++
		if a.Status == AlertStatusOpen && a.Severity == FlagSeverityCritical {
			summary.OpenCritical++
		}
	}
	return &summary, nil
}
