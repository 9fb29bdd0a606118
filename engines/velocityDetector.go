package engines

import (
	"fmt"
	"sort"

	"bitbucket.org/mmdatafocus/intellitrace_backend/models"
	"github.com/shopspring/decimal"
)

// sameDayBurstThreshold is the amount above which a second invoice on the
// same day counts as a burst.
var sameDayBurstThreshold = decimal.NewFromInt(50000)

// DetectVelocityAnomalies runs two independent per-supplier checks over the
// date-ordered invoice sequence: same-day bursts above a fixed amount, and a
// volume spike of the most recent three invoices against the earlier mean.
// The two checks use distinct engine tags so their flags can coexist on the
// same invoice.
func DetectVelocityAnomalies(snapshot *models.LedgerSnapshot, index *FlagIndex) []*models.FraudFlag {

	var flags []*models.FraudFlag
	for supplierId, invoices := range snapshot.InvoicesBySupplier() {
		if len(invoices) < 3 {
			continue
		}
		ordered := make([]*models.Invoice, len(invoices))
		copy(ordered, invoices)
		sort.Slice(ordered, func(i, j int) bool {
			if ordered[i].InvoiceDate.Equal(ordered[j].InvoiceDate) {
				return ordered[i].ID < ordered[j].ID
			}
			return ordered[i].InvoiceDate.Before(ordered[j].InvoiceDate)
		})

		flags = append(flags, detectSameDayBursts(supplierId, ordered, index)...)
		flags = append(flags, detectVolumeSpike(supplierId, ordered, index)...)
	}
	return flags
}

func detectSameDayBursts(supplierId int, ordered []*models.Invoice, index *FlagIndex) []*models.FraudFlag {

	var flags []*models.FraudFlag
	for i := 1; i < len(ordered); i++ {
		prev, curr := ordered[i-1], ordered[i]
		sameDay := prev.InvoiceDate.Format("2006-01-02") == curr.InvoiceDate.Format("2006-01-02")
		if !sameDay || !curr.Amount.GreaterThan(sameDayBurstThreshold) {
			continue
		}
		flags = index.emit(flags, &models.FraudFlag{
			InvoiceId:  curr.ID,
			FraudType:  models.FraudTypeVelocityAnomaly,
			Engine:     EngineVelocityDetector,
			Confidence: 0.70,
			Severity:   models.FlagSeverityHigh,
			Description: fmt.Sprintf("supplier %d issued %s on the same day as invoice %s",
				supplierId, curr.Amount.StringFixed(2), prev.InvoiceNumber),
		})
	}
	return flags
}

func detectVolumeSpike(supplierId int, ordered []*models.Invoice, index *FlagIndex) []*models.FraudFlag {

	if len(ordered) < 6 {
		return nil
	}

	recent := ordered[len(ordered)-3:]
	earlier := ordered[:len(ordered)-3]

	recentMean := meanAmount(recent)
	earlierMean := meanAmount(earlier)
	if !earlierMean.IsPositive() {
		return nil
	}
	if !recentMean.GreaterThan(earlierMean.Mul(decimal.NewFromInt(3))) {
		return nil
	}

	latest := ordered[len(ordered)-1]
	var flags []*models.FraudFlag
	flags = index.emit(flags, &models.FraudFlag{
		InvoiceId:  latest.ID,
		FraudType:  models.FraudTypeVelocityAnomaly,
		Engine:     EngineVelocitySpikeDetector,
		Confidence: 0.80,
		Severity:   models.FlagSeverityHigh,
		Description: fmt.Sprintf("supplier %d recent mean %s exceeds 3x historical mean %s",
			supplierId, recentMean.StringFixed(2), earlierMean.StringFixed(2)),
	})
	return flags
}

func meanAmount(invoices []*models.Invoice) decimal.Decimal {
	if len(invoices) == 0 {
		return decimal.Zero
	}
	sum := decimal.Zero
	for _, inv := range invoices {
		sum = sum.Add(inv.Amount)
	}
	return sum.Div(decimal.NewFromInt(int64(len(invoices))))
}
