package models

import (
	"context"

	"bitbucket.org/mmdatafocus/intellitrace_backend/config"
	"bitbucket.org/mmdatafocus/intellitrace_backend/utils"
	"github.com/shopspring/decimal"
)

type MonthlyTrendPoint struct {
	Month        string          `json:"month"`
	InvoiceCount int             `json:"invoice_count"`
	TotalAmount  decimal.Decimal `json:"total_amount"`
	FlaggedCount int             `json:"flagged_count"`
}

type DashboardStats struct {
	TotalInvoices    int                  `json:"total_invoices"`
	TotalAmount      decimal.Decimal      `json:"total_amount"`
	FlaggedInvoices  int                  `json:"flagged_invoices"`
	FlaggedAmount    decimal.Decimal      `json:"flagged_amount"`
	FlaggedShare     float64              `json:"flagged_share"`
	TotalEntities    int                  `json:"total_entities"`
	TotalFlags       int                  `json:"total_flags"`
	OpenAlerts       int                  `json:"open_alerts"`
	FraudByType      map[string]int       `json:"fraud_by_type"`
	TierBreakdown    map[string]int       `json:"tier_breakdown"`
	RiskDistribution map[string]int       `json:"risk_distribution"`
	MonthlyTrend     []*MonthlyTrendPoint `json:"monthly_trend"`
	RecentAlerts     []*Alert             `json:"recent_alerts"`
}

func riskBucket(score float64) string {
	switch {
	case score >= 75:
		return "critical"
	case score >= 50:
		return "high"
	case score >= 25:
		return "medium"
	default:
		return "low"
	}
}

func GetDashboardStats(ctx context.Context) (*DashboardStats, error) {

	db := config.GetDB()
	stats := DashboardStats{
		FraudByType:      map[string]int{},
		TierBreakdown:    map[string]int{},
		RiskDistribution: map[string]int{},
	}

	var invoices []*Invoice
	if err := db.WithContext(ctx).Find(&invoices).Error; err != nil {
		return nil, err
	}
	for _, inv := range invoices {
		stats.TotalInvoices++
		stats.TotalAmount = stats.TotalAmount.Add(inv.Amount)
		stats.TierBreakdown[string(inv.Tier)]++
		stats.RiskDistribution[riskBucket(inv.RiskScore)]++
		if inv.Status == InvoiceStatusFlagged {
			stats.FlaggedInvoices++
			stats.FlaggedAmount = stats.FlaggedAmount.Add(inv.Amount)
		}
	}
	if stats.TotalInvoices > 0 {
		stats.FlaggedShare = float64(stats.FlaggedInvoices) / float64(stats.TotalInvoices)
	}

	var entityCount int64
	if err := db.WithContext(ctx).Model(&Entity{}).Count(&entityCount).Error; err != nil {
		return nil, err
	}
	stats.TotalEntities = int(entityCount)

	var flags []*FraudFlag
	if err := db.WithContext(ctx).Find(&flags).Error; err != nil {
		return nil, err
	}
	stats.TotalFlags = len(flags)
	for _, f := range flags {
		stats.FraudByType[string(f.FraudType)]++
	}

	var openAlerts int64
	if err := db.WithContext(ctx).Model(&Alert{}).Where("status = ?", AlertStatusOpen).Count(&openAlerts).Error; err != nil {
		return nil, err
	}
	stats.OpenAlerts = int(openAlerts)

	// MySQL DATE_FORMAT keeps the grouping in the database; the trend
	// window covers the last twelve months
	type trendRow struct {
		Month        string
		InvoiceCount int
		TotalAmount  decimal.Decimal
		FlaggedCount int
	}
	trendStart, _ := utils.GetLastMonthsRange(12)
	var rows []trendRow
	err := db.WithContext(ctx).Model(&Invoice{}).
		Select("DATE_FORMAT(invoice_date, '%Y-%m') AS month, "+
			"COUNT(*) AS invoice_count, "+
			"SUM(amount) AS total_amount, "+
			"SUM(CASE WHEN status = 'flagged' THEN 1 ELSE 0 END) AS flagged_count").
		Where("invoice_date >= ?", trendStart).
		Group("month").Order("month").Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		stats.MonthlyTrend = append(stats.MonthlyTrend, &MonthlyTrendPoint{
			Month:        row.Month,
			InvoiceCount: row.InvoiceCount,
			TotalAmount:  row.TotalAmount,
			FlaggedCount: row.FlaggedCount,
		})
	}

	if err := db.WithContext(ctx).Order("created_at DESC, id DESC").Limit(5).Find(&stats.RecentAlerts).Error; err != nil {
		return nil, err
	}
	return &stats, nil
}
