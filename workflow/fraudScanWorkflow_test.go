package workflow

import (
	"testing"
	"time"

	"bitbucket.org/mmdatafocus/intellitrace_backend/engines"
	"bitbucket.org/mmdatafocus/intellitrace_backend/models"
	"github.com/shopspring/decimal"
)

func scanInvoice(id int, supplierId, buyerId int, amount int64, date string) *models.Invoice {
	invoiceDate, _ := time.Parse("2006-01-02", date)
	amt := decimal.NewFromInt(amount)
	return &models.Invoice{
		ID:            id,
		InvoiceNumber: "INV",
		Fingerprint:   models.ComputeFingerprint("INV", supplierId, buyerId, amt, invoiceDate),
		SupplierId:    supplierId,
		BuyerId:       buyerId,
		Tier:          models.TierTwo,
		Amount:        amt,
		InvoiceDate:   invoiceDate,
		DueDate:       invoiceDate.AddDate(0, 2, 0),
		Status:        models.InvoiceStatusPending,
		PoNumber:      strPtr("PO-1"),
		PoValidated:   true,
		GrnNumber:     strPtr("GRN-1"),
		GrnValidated:  true,
	}
}

func strPtr(s string) *string { return &s }

func fraudulentSnapshot() *models.LedgerSnapshot {
	// two duplicate-financed invoices plus a diluted collection
	a := scanInvoice(1, 10, 20, 85_000, "2026-05-10")
	b := scanInvoice(2, 10, 20, 85_000, "2026-05-10")
	a.DeliveryConfirmed = true
	b.DeliveryConfirmed = true

	snapshot := &models.LedgerSnapshot{
		Entities: map[int]*models.Entity{
			10: {ID: 10, Name: "supplier", EntityType: models.EntityTypeSupplier, AnnualRevenue: decimal.NewFromInt(50_000_000)},
			20: {ID: 20, Name: "buyer", EntityType: models.EntityTypeBuyer, AnnualRevenue: decimal.NewFromInt(90_000_000)},
		},
		Invoices: []*models.Invoice{a, b},
		Collections: []*models.CashCollection{{
			ID: 1, InvoiceId: 1,
			ExpectedAmount:  decimal.NewFromInt(85_000),
			CollectedAmount: decimal.NewFromInt(40_000),
			DilutionRatio:   0.53,
			CollectionDate:  time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC),
		}},
	}
	return snapshot
}

func TestCollectScanFlagsIsIdempotentAgainstIndex(t *testing.T) {
	snapshot := fraudulentSnapshot()
	index := engines.NewFlagIndex(nil)
	errs := map[string]string{}

	first := CollectScanFlags(snapshot, index, errs)
	if len(errs) != 0 {
		t.Fatalf("unexpected engine errors: %v", errs)
	}
	if len(first) == 0 {
		t.Fatalf("expected flags from the seeded snapshot")
	}

	// fold the first run so previously-flagged invoices leave pending
	FoldFlags(snapshot, first)

	second := CollectScanFlags(snapshot, index, errs)
	if len(second) != 0 {
		t.Fatalf("re-running the scan must raise zero new flags, got %d", len(second))
	}
}

func TestCollectScanFlagsWithReloadedIndex(t *testing.T) {
	// simulates a fresh scan run: index rebuilt from the persisted keys
	snapshot := fraudulentSnapshot()
	first := CollectScanFlags(snapshot, engines.NewFlagIndex(nil), map[string]string{})
	FoldFlags(snapshot, first)

	var keys []models.FlagKey
	for _, flag := range first {
		keys = append(keys, flag.Key())
	}

	second := CollectScanFlags(snapshot, engines.NewFlagIndex(keys), map[string]string{})
	if len(second) != 0 {
		t.Fatalf("an unchanged dataset must not raise new flags, got %d", len(second))
	}
}

func TestOversizedGraphSkipIsReported(t *testing.T) {
	snapshot := &models.LedgerSnapshot{Entities: map[int]*models.Entity{}}
	for id := 1; id <= engines.MaxCycleSearchNodes+1; id++ {
		snapshot.Entities[id] = &models.Entity{
			ID: id, Name: "entity", EntityType: models.EntityTypeSupplier,
			AnnualRevenue: decimal.NewFromInt(1_000_000),
		}
	}

	errs := map[string]string{}
	flags := CollectScanFlags(snapshot, engines.NewFlagIndex(nil), errs)
	if len(flags) != 0 {
		t.Fatalf("no ledger activity must raise no flags, got %d", len(flags))
	}
	if errs[engines.EngineGraphAnalytics] == "" {
		t.Fatalf("skipping cycle enumeration must leave a note in the engine errors")
	}
}

func TestFoldFlagsRiskAndStatus(t *testing.T) {
	snapshot := fraudulentSnapshot()
	flags := []*models.FraudFlag{
		{InvoiceId: 1, FraudType: models.FraudTypeDilution, Engine: engines.EngineDilutionMonitor, Confidence: 0.99},
		{InvoiceId: 1, FraudType: models.FraudTypeDuplicateFinance, Engine: engines.EngineDuplicateDetector, Confidence: 0.80},
		{InvoiceId: 2, FraudType: models.FraudTypeDuplicateFinance, Engine: engines.EngineDuplicateDetector, Confidence: 0.80},
	}

	touched := FoldFlags(snapshot, flags)
	if len(touched) != 2 {
		t.Fatalf("expected both invoices touched, got %d", len(touched))
	}
	one := snapshot.InvoiceById(1)
	if one.RiskScore != 99 {
		t.Fatalf("risk must fold to the max confidence, got %v", one.RiskScore)
	}
	if one.Status != models.InvoiceStatusFlagged {
		t.Fatalf("risk 99 must flag")
	}
	two := snapshot.InvoiceById(2)
	if two.RiskScore != 80 {
		t.Fatalf("want risk 80, got %v", two.RiskScore)
	}
}

func TestFoldFlagsSkipsUnknownInvoices(t *testing.T) {
	snapshot := fraudulentSnapshot()
	flags := []*models.FraudFlag{
		{InvoiceId: 999, FraudType: models.FraudTypeDilution, Engine: engines.EngineDilutionMonitor, Confidence: 0.99},
	}
	touched := FoldFlags(snapshot, flags)
	if len(touched) != 0 {
		t.Fatalf("flags on unknown invoices must be ignored, got %d", len(touched))
	}
}

func TestBuildScanAlertsOnePerFraudType(t *testing.T) {
	snapshot := fraudulentSnapshot()
	flags := []*models.FraudFlag{
		{InvoiceId: 1, FraudType: models.FraudTypeDuplicateFinance, Engine: engines.EngineDuplicateDetector, Confidence: 0.80, Severity: models.FlagSeverityHigh},
		{InvoiceId: 2, FraudType: models.FraudTypeDuplicateFinance, Engine: engines.EngineDuplicateDetector, Confidence: 0.80, Severity: models.FlagSeverityHigh},
		{InvoiceId: 1, FraudType: models.FraudTypeDilution, Engine: engines.EngineDilutionMonitor, Confidence: 0.99, Severity: models.FlagSeverityCritical},
	}

	alerts := BuildScanAlerts(snapshot, flags, "scan1234")
	if len(alerts) != 2 {
		t.Fatalf("expected one alert per fraud type, got %d", len(alerts))
	}
	byType := map[models.FraudType]*models.Alert{}
	for _, alert := range alerts {
		byType[alert.FraudType] = alert
		if alert.ScanId != "scan1234" {
			t.Fatalf("alert must carry the scan id, got %q", alert.ScanId)
		}
	}

	duplicate := byType[models.FraudTypeDuplicateFinance]
	if duplicate == nil {
		t.Fatalf("missing duplicate financing alert")
	}
	if len(duplicate.RelatedInvoiceIds) != 2 {
		t.Fatalf("duplicate alert must relate both invoices, got %v", duplicate.RelatedInvoiceIds)
	}
	// both invoices share one supplier and one buyer
	if len(duplicate.RelatedEntityIds) != 2 {
		t.Fatalf("related entity ids must be distinct, got %v", duplicate.RelatedEntityIds)
	}
	if !duplicate.TotalExposure.Equal(decimal.NewFromInt(170_000)) {
		t.Fatalf("want exposure 170000, got %s", duplicate.TotalExposure)
	}

	dilution := byType[models.FraudTypeDilution]
	if dilution == nil || dilution.Severity != models.FlagSeverityCritical {
		t.Fatalf("dilution alert must carry the worst severity")
	}
}
