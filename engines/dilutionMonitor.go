package engines

import (
	"fmt"
	"math"

	"bitbucket.org/mmdatafocus/intellitrace_backend/models"
)

// DetectDilution flags collections whose shortfall exceeds 20% of the
// expected amount. The band floor is strict: ratio exactly 0.20 passes.
// A collection referencing a missing invoice is skipped as a data
// inconsistency.
func DetectDilution(snapshot *models.LedgerSnapshot, index *FlagIndex) []*models.FraudFlag {

	var flags []*models.FraudFlag
	for _, collection := range snapshot.Collections {
		if collection.DilutionRatio <= 0.20 {
			continue
		}
		if snapshot.InvoiceById(collection.InvoiceId) == nil {
			continue
		}

		severity := models.FlagSeverityMedium
		switch {
		case collection.DilutionRatio >= 0.50:
			severity = models.FlagSeverityCritical
		case collection.DilutionRatio >= 0.35:
			severity = models.FlagSeverityHigh
		}

		flags = index.emit(flags, &models.FraudFlag{
			InvoiceId:  collection.InvoiceId,
			FraudType:  models.FraudTypeDilution,
			Engine:     EngineDilutionMonitor,
			Confidence: math.Min(0.5+collection.DilutionRatio, 0.99),
			Severity:   severity,
			Description: fmt.Sprintf("collected %s of expected %s, dilution ratio %.2f",
				collection.CollectedAmount.StringFixed(2),
				collection.ExpectedAmount.StringFixed(2),
				collection.DilutionRatio),
		})
	}
	return flags
}
