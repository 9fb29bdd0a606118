package engines

import (
	"fmt"

	"bitbucket.org/mmdatafocus/intellitrace_backend/models"
	"github.com/shopspring/decimal"
)

// duplicateGroupFlags emits one flag per member of a duplicate group.
// Confidence and severity depend on whether more than one lender financed
// the same underlying invoice.
func duplicateGroupFlags(group []*models.Invoice, exposure decimal.Decimal, index *FlagIndex) []*models.FraudFlag {

	lenders := map[int]bool{}
	for _, inv := range group {
		if inv.LenderId != nil {
			lenders[*inv.LenderId] = true
		}
	}
	multiLender := len(lenders) > 1

	confidence := 0.80
	severity := models.FlagSeverityHigh
	if multiLender {
		confidence = 0.95
		severity = models.FlagSeverityCritical
	}

	var flags []*models.FraudFlag
	for _, inv := range group {
		flags = index.emit(flags, &models.FraudFlag{
			InvoiceId:  inv.ID,
			FraudType:  models.FraudTypeDuplicateFinance,
			Engine:     EngineDuplicateDetector,
			Confidence: confidence,
			Severity:   severity,
			Description: fmt.Sprintf("fingerprint shared by %d invoices across %d lender(s), total exposure %s",
				len(group), len(lenders), exposure.StringFixed(2)),
		})
	}
	return flags
}

// DetectDuplicatesFull groups every invoice by fingerprint and flags each
// member of every group larger than one.
func DetectDuplicatesFull(snapshot *models.LedgerSnapshot, index *FlagIndex) []*models.FraudFlag {

	byFingerprint := map[string][]*models.Invoice{}
	for _, inv := range snapshot.Invoices {
		byFingerprint[inv.Fingerprint] = append(byFingerprint[inv.Fingerprint], inv)
	}

	var flags []*models.FraudFlag
	for _, group := range byFingerprint {
		if len(group) < 2 {
			continue
		}
		exposure := decimal.Zero
		for _, inv := range group {
			exposure = exposure.Add(inv.Amount)
		}
		flags = append(flags, duplicateGroupFlags(group, exposure, index)...)
	}
	return flags
}

// DetectDuplicatesTargeted checks one invoice against the rest of the
// snapshot. Exposure counts the duplicates plus the triggering invoice's
// own amount, once.
func DetectDuplicatesTargeted(snapshot *models.LedgerSnapshot, invoice *models.Invoice, index *FlagIndex) []*models.FraudFlag {

	var duplicates []*models.Invoice
	for _, other := range snapshot.Invoices {
		if other.ID != invoice.ID && other.Fingerprint == invoice.Fingerprint {
			duplicates = append(duplicates, other)
		}
	}
	if len(duplicates) == 0 {
		return nil
	}

	exposure := invoice.Amount
	for _, dup := range duplicates {
		exposure = exposure.Add(dup.Amount)
	}
	group := append(duplicates, invoice)

	lenders := map[int]bool{}
	for _, inv := range group {
		if inv.LenderId != nil {
			lenders[*inv.LenderId] = true
		}
	}
	confidence := 0.80
	severity := models.FlagSeverityHigh
	if len(lenders) > 1 {
		confidence = 0.95
		severity = models.FlagSeverityCritical
	}

	var flags []*models.FraudFlag
	flags = index.emit(flags, &models.FraudFlag{
		InvoiceId:  invoice.ID,
		FraudType:  models.FraudTypeDuplicateFinance,
		Engine:     EngineDuplicateDetector,
		Confidence: confidence,
		Severity:   severity,
		Description: fmt.Sprintf("fingerprint matches %d existing invoice(s), total exposure %s",
			len(duplicates), exposure.StringFixed(2)),
	})
	return flags
}
