package engines

import (
	"fmt"
	"math"

	"bitbucket.org/mmdatafocus/intellitrace_backend/models"
	"github.com/shopspring/decimal"
)

// ValidateInvoice runs the documentation, feasibility and over-invoicing
// checks for one invoice. The checks are independent; none short-circuits
// another. The documentation checks can raise several findings under the
// same (invoice, fraud type, engine) triple, so they skip the dedup index;
// callers only validate invoices that have never been flagged.
func ValidateInvoice(snapshot *models.LedgerSnapshot, invoice *models.Invoice, index *FlagIndex) []*models.FraudFlag {

	var flags []*models.FraudFlag

	hasPo := invoice.PoNumber != nil && *invoice.PoNumber != ""
	hasGrn := invoice.GrnNumber != nil && *invoice.GrnNumber != ""

	if hasPo && !invoice.PoValidated {
		flags = append(flags, &models.FraudFlag{
			InvoiceId:   invoice.ID,
			FraudType:   models.FraudTypePhantomInvoice,
			Engine:      EngineInvoiceValidator,
			Confidence:  0.60,
			Severity:    models.FlagSeverityMedium,
			Description: fmt.Sprintf("PO %s declared but not validated", *invoice.PoNumber),
		})
	}
	if hasGrn && !invoice.GrnValidated {
		flags = append(flags, &models.FraudFlag{
			InvoiceId:   invoice.ID,
			FraudType:   models.FraudTypePhantomInvoice,
			Engine:      EngineInvoiceValidator,
			Confidence:  0.65,
			Severity:    models.FlagSeverityMedium,
			Description: fmt.Sprintf("GRN %s declared but not validated", *invoice.GrnNumber),
		})
	}
	if !invoice.DeliveryConfirmed {
		flags = append(flags, &models.FraudFlag{
			InvoiceId:   invoice.ID,
			FraudType:   models.FraudTypePhantomInvoice,
			Engine:      EngineInvoiceValidator,
			Confidence:  0.70,
			Severity:    models.FlagSeverityHigh,
			Description: "delivery not confirmed for invoiced goods",
		})
	}
	if !hasPo && !hasGrn {
		flags = append(flags, &models.FraudFlag{
			InvoiceId:   invoice.ID,
			FraudType:   models.FraudTypePhantomInvoice,
			Engine:      EngineInvoiceValidator,
			Confidence:  0.85,
			Severity:    models.FlagSeverityHigh,
			Description: "no purchase order and no goods received note on record",
		})
	}

	if flag := checkFeasibility(snapshot, invoice); flag != nil {
		flags = index.emit(flags, flag)
	}
	if flag := checkOverInvoicing(snapshot, invoice); flag != nil {
		flags = index.emit(flags, flag)
	}
	return flags
}

// checkFeasibility compares the invoice amount against the supplier's
// declared annual revenue. Missing supplier is a data inconsistency; the
// check skips rather than failing the scan.
func checkFeasibility(snapshot *models.LedgerSnapshot, invoice *models.Invoice) *models.FraudFlag {

	supplier := snapshot.Entities[invoice.SupplierId]
	if supplier == nil || !supplier.AnnualRevenue.IsPositive() {
		return nil
	}
	ratio, _ := invoice.Amount.Div(supplier.AnnualRevenue).Float64()
	if ratio <= 0.25 {
		return nil
	}

	severity := models.FlagSeverityHigh
	if ratio > 0.5 {
		severity = models.FlagSeverityCritical
	}
	return &models.FraudFlag{
		InvoiceId:  invoice.ID,
		FraudType:  models.FraudTypePhantomInvoice,
		Engine:     EngineFeasibilityChecker,
		Confidence: math.Min(0.5+ratio, 0.99),
		Severity:   severity,
		Description: fmt.Sprintf("invoice amount %s is %.0f%% of supplier %s annual revenue",
			invoice.Amount.StringFixed(2), ratio*100, supplier.Name),
	}
}

// checkOverInvoicing flags an amount above 2.5x the historical mean for the
// same supplier/buyer pair; needs at least 3 prior invoices.
func checkOverInvoicing(snapshot *models.LedgerSnapshot, invoice *models.Invoice) *models.FraudFlag {

	var prior []decimal.Decimal
	for _, other := range snapshot.Invoices {
		if other.ID == invoice.ID {
			continue
		}
		if other.SupplierId == invoice.SupplierId && other.BuyerId == invoice.BuyerId {
			prior = append(prior, other.Amount)
		}
	}
	if len(prior) < 3 {
		return nil
	}

	mean := decimal.Avg(prior[0], prior[1:]...)
	if !invoice.Amount.GreaterThan(mean.Mul(decimal.NewFromFloat(2.5))) {
		return nil
	}

	return &models.FraudFlag{
		InvoiceId:  invoice.ID,
		FraudType:  models.FraudTypeOverInvoicing,
		Engine:     EngineOverInvoiceDetector,
		Confidence: 0.75,
		Severity:   models.FlagSeverityHigh,
		Description: fmt.Sprintf("amount %s exceeds 2.5x the pair's historical mean %s over %d invoices",
			invoice.Amount.StringFixed(2), mean.StringFixed(2), len(prior)),
	}
}
