package engines

import (
	"testing"

	"bitbucket.org/mmdatafocus/intellitrace_backend/models"
)

func lenderPtr(id int) *int { return &id }

func TestDuplicateFullScanMultiLender(t *testing.T) {
	a := testInvoice(1, 10, 20, 85_000, "2026-05-10")
	b := testInvoice(2, 10, 20, 85_000, "2026-05-10")
	c := testInvoice(3, 10, 20, 85_000, "2026-05-10")
	a.LenderId = lenderPtr(100)
	b.LenderId = lenderPtr(100)
	c.LenderId = lenderPtr(200)
	if a.Fingerprint != b.Fingerprint || b.Fingerprint != c.Fingerprint {
		t.Fatalf("test setup: fingerprints must match")
	}

	flags := DetectDuplicatesFull(testSnapshot(a, b, c), emptyIndex())
	if len(flags) != 3 {
		t.Fatalf("expected 3 flags, got %d", len(flags))
	}
	for _, flag := range flags {
		if flag.Confidence != 0.95 || flag.Severity != models.FlagSeverityCritical {
			t.Fatalf("multi-lender group must flag 0.95/critical, got %v/%s", flag.Confidence, flag.Severity)
		}
		if flag.FraudType != models.FraudTypeDuplicateFinance || flag.Engine != EngineDuplicateDetector {
			t.Fatalf("unexpected identity %s/%s", flag.FraudType, flag.Engine)
		}
	}
}

func TestDuplicateFullScanSingleLender(t *testing.T) {
	a := testInvoice(1, 10, 20, 85_000, "2026-05-10")
	b := testInvoice(2, 10, 20, 85_000, "2026-05-10")
	a.LenderId = lenderPtr(100)
	b.LenderId = lenderPtr(100)

	flags := DetectDuplicatesFull(testSnapshot(a, b), emptyIndex())
	if len(flags) != 2 {
		t.Fatalf("expected 2 flags, got %d", len(flags))
	}
	for _, flag := range flags {
		if flag.Confidence != 0.80 || flag.Severity != models.FlagSeverityHigh {
			t.Fatalf("single-lender group must flag 0.80/high, got %v/%s", flag.Confidence, flag.Severity)
		}
	}
}

func TestDuplicateFullScanIgnoresUniqueFingerprints(t *testing.T) {
	a := testInvoice(1, 10, 20, 85_000, "2026-05-10")
	b := testInvoice(2, 10, 20, 90_000, "2026-05-11")

	flags := DetectDuplicatesFull(testSnapshot(a, b), emptyIndex())
	if len(flags) != 0 {
		t.Fatalf("expected no flags for distinct fingerprints, got %d", len(flags))
	}
}

func TestDuplicateTargetedFlagsOnlyTrigger(t *testing.T) {
	existing := testInvoice(1, 10, 20, 85_000, "2026-05-10")
	existing.LenderId = lenderPtr(100)
	submitted := testInvoice(2, 10, 20, 85_000, "2026-05-10")
	submitted.LenderId = lenderPtr(200)

	flags := DetectDuplicatesTargeted(testSnapshot(existing, submitted), submitted, emptyIndex())
	if len(flags) != 1 {
		t.Fatalf("targeted mode flags only the trigger, got %d flags", len(flags))
	}
	if flags[0].InvoiceId != submitted.ID {
		t.Fatalf("flag must sit on the submitted invoice, got invoice %d", flags[0].InvoiceId)
	}
	if flags[0].Confidence != 0.95 {
		t.Fatalf("two distinct lenders means 0.95, got %v", flags[0].Confidence)
	}
}

func TestDuplicateDetectorRespectsDedupIndex(t *testing.T) {
	a := testInvoice(1, 10, 20, 85_000, "2026-05-10")
	b := testInvoice(2, 10, 20, 85_000, "2026-05-10")
	snapshot := testSnapshot(a, b)

	index := emptyIndex()
	first := DetectDuplicatesFull(snapshot, index)
	if len(first) != 2 {
		t.Fatalf("expected 2 flags on first run, got %d", len(first))
	}
	second := DetectDuplicatesFull(snapshot, index)
	if len(second) != 0 {
		t.Fatalf("expected zero flags on re-run, got %d", len(second))
	}
}
