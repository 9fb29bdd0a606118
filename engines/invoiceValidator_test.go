package engines

import (
	"testing"

	"bitbucket.org/mmdatafocus/intellitrace_backend/models"
	"github.com/shopspring/decimal"
)

func TestValidateInvoiceDocumentationChecks(t *testing.T) {
	po := "PO-1"
	invoice := testInvoice(1, 10, 20, 1000, "2026-01-05")
	invoice.PoNumber = &po
	invoice.PoValidated = false
	invoice.DeliveryConfirmed = false

	snapshot := testSnapshot(invoice)
	snapshot.Entities[10] = testEntity(10, "supplier", models.EntityTypeSupplier, 10_000_000)

	flags := ValidateInvoice(snapshot, invoice, emptyIndex())
	if len(flags) != 2 {
		t.Fatalf("expected exactly the PO flag and the delivery flag, got %d flags", len(flags))
	}
	confidences := map[float64]bool{}
	for _, flag := range flags {
		if flag.FraudType != models.FraudTypePhantomInvoice {
			t.Fatalf("unexpected fraud type %s", flag.FraudType)
		}
		if flag.Engine != EngineInvoiceValidator {
			t.Fatalf("unexpected engine %s", flag.Engine)
		}
		confidences[flag.Confidence] = true
	}
	if !confidences[0.60] || !confidences[0.70] {
		t.Fatalf("expected confidences 0.60 and 0.70, got %v", confidences)
	}
}

func TestValidateInvoiceMissingBothDocuments(t *testing.T) {
	invoice := testInvoice(1, 10, 20, 1000, "2026-01-05")
	invoice.DeliveryConfirmed = true

	snapshot := testSnapshot(invoice)
	snapshot.Entities[10] = testEntity(10, "supplier", models.EntityTypeSupplier, 10_000_000)

	flags := ValidateInvoice(snapshot, invoice, emptyIndex())
	if len(flags) != 1 {
		t.Fatalf("expected one flag, got %d", len(flags))
	}
	if flags[0].Confidence != 0.85 || flags[0].Severity != models.FlagSeverityHigh {
		t.Fatalf("expected 0.85/high for missing PO and GRN, got %v/%s", flags[0].Confidence, flags[0].Severity)
	}
}

func TestFeasibilityCheck(t *testing.T) {
	tests := []struct {
		name         string
		amount       int64
		revenue      int64
		wantFlag     bool
		wantSeverity models.FlagSeverity
	}{
		{"under 25 percent", 200_000, 1_000_000, false, ""},
		{"over 25 percent", 300_000, 1_000_000, true, models.FlagSeverityHigh},
		{"over 50 percent", 600_000, 1_000_000, true, models.FlagSeverityCritical},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			invoice := testInvoice(1, 10, 20, tc.amount, "2026-01-05")
			snapshot := testSnapshot(invoice)
			snapshot.Entities[10] = testEntity(10, "supplier", models.EntityTypeSupplier, tc.revenue)

			flag := checkFeasibility(snapshot, invoice)
			if (flag != nil) != tc.wantFlag {
				t.Fatalf("wantFlag=%v, got %v", tc.wantFlag, flag)
			}
			if flag == nil {
				return
			}
			if flag.Severity != tc.wantSeverity {
				t.Fatalf("want severity %s, got %s", tc.wantSeverity, flag.Severity)
			}
			ratio, _ := invoice.Amount.Div(snapshot.Entities[10].AnnualRevenue).Float64()
			want := 0.5 + ratio
			if want > 0.99 {
				want = 0.99
			}
			if flag.Confidence != want {
				t.Fatalf("want confidence %v, got %v", want, flag.Confidence)
			}
			if flag.Engine != EngineFeasibilityChecker {
				t.Fatalf("unexpected engine %s", flag.Engine)
			}
		})
	}
}

func TestOverInvoicingNeedsThreePriorInvoices(t *testing.T) {
	target := testInvoice(4, 10, 20, 100_000, "2026-03-01")
	prior1 := testInvoice(1, 10, 20, 10_000, "2026-01-01")
	prior2 := testInvoice(2, 10, 20, 11_000, "2026-01-15")

	snapshot := testSnapshot(prior1, prior2, target)
	if flag := checkOverInvoicing(snapshot, target); flag != nil {
		t.Fatalf("expected no flag with only two prior invoices")
	}

	prior3 := testInvoice(3, 10, 20, 12_000, "2026-02-01")
	snapshot = testSnapshot(prior1, prior2, prior3, target)
	flag := checkOverInvoicing(snapshot, target)
	if flag == nil {
		t.Fatalf("expected over-invoicing flag")
	}
	if flag.Confidence != 0.75 || flag.Severity != models.FlagSeverityHigh {
		t.Fatalf("want 0.75/high, got %v/%s", flag.Confidence, flag.Severity)
	}
	if flag.FraudType != models.FraudTypeOverInvoicing || flag.Engine != EngineOverInvoiceDetector {
		t.Fatalf("unexpected identity %s/%s", flag.FraudType, flag.Engine)
	}

	// mean is 11k, 2.5x is 27.5k: an amount at the mean must not flag
	target.Amount = decimal.NewFromInt(27_000)
	if flag := checkOverInvoicing(snapshot, target); flag != nil {
		t.Fatalf("amount below 2.5x mean must not flag")
	}
}

func TestFeasibilityRespectsDedupIndex(t *testing.T) {
	invoice := testInvoice(1, 10, 20, 600_000, "2026-01-05")
	invoice.DeliveryConfirmed = true
	po, grn := "PO-1", "GRN-1"
	invoice.PoNumber, invoice.PoValidated = &po, true
	invoice.GrnNumber, invoice.GrnValidated = &grn, true

	snapshot := testSnapshot(invoice)
	snapshot.Entities[10] = testEntity(10, "supplier", models.EntityTypeSupplier, 1_000_000)

	index := NewFlagIndex([]models.FlagKey{{
		InvoiceId: 1,
		FraudType: models.FraudTypePhantomInvoice,
		Engine:    EngineFeasibilityChecker,
	}})
	flags := ValidateInvoice(snapshot, invoice, index)
	if len(flags) != 0 {
		t.Fatalf("expected the indexed feasibility flag to be suppressed, got %d flags", len(flags))
	}
}
