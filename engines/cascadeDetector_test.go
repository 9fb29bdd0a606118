package engines

import (
	"math"
	"testing"

	"bitbucket.org/mmdatafocus/intellitrace_backend/models"
)

func cascadeInvoice(id int, tier models.Tier, amount int64, group string) *models.Invoice {
	inv := testInvoice(id, 10, 20, amount, "2026-05-15")
	inv.Tier = tier
	inv.CascadeGroup = &group
	return inv
}

func TestCascadeMultiplier(t *testing.T) {
	// tier totals {10k, 15k, 30k}: root 10k, total 55k, multiplier 5.5
	a := cascadeInvoice(1, models.TierThree, 10_000, "CG-1")
	b := cascadeInvoice(2, models.TierTwo, 15_000, "CG-1")
	c := cascadeInvoice(3, models.TierOne, 30_000, "CG-1")

	flags := DetectCascades(testSnapshot(a, b, c), emptyIndex())
	if len(flags) != 3 {
		t.Fatalf("every group member must be flagged, got %d flags", len(flags))
	}
	for _, flag := range flags {
		if flag.Severity != models.FlagSeverityCritical {
			t.Fatalf("multiplier 5.5 must be critical, got %s", flag.Severity)
		}
		if math.Abs(flag.Confidence-0.99) > 1e-9 {
			t.Fatalf("confidence must cap at 0.99, got %v", flag.Confidence)
		}
		if flag.FraudType != models.FraudTypeCascadeFraud || flag.Engine != EngineCascadeDetector {
			t.Fatalf("unexpected identity %s/%s", flag.FraudType, flag.Engine)
		}
	}
}

func TestCascadeBelowThresholdNotFlagged(t *testing.T) {
	// the root is the smallest tier total; equal tiers sum to exactly 2x,
	// and the comparison is strict, so nothing is flagged
	a := cascadeInvoice(1, models.TierThree, 10_000, "CG-2")
	b := cascadeInvoice(2, models.TierTwo, 10_000, "CG-2")

	flags := DetectCascades(testSnapshot(a, b), emptyIndex())
	if len(flags) != 0 {
		t.Fatalf("expected no flags at or below 2x, got %d", len(flags))
	}
}

func TestCascadeRootIsSmallestTierTotal(t *testing.T) {
	// root 8k, total 18k: multiplier 2.25 against the smaller tier
	a := cascadeInvoice(1, models.TierThree, 10_000, "CG-5")
	b := cascadeInvoice(2, models.TierTwo, 8_000, "CG-5")

	flags := DetectCascades(testSnapshot(a, b), emptyIndex())
	if len(flags) != 2 {
		t.Fatalf("expected both invoices flagged, got %d", len(flags))
	}
	if math.Abs(flags[0].Confidence-0.5375) > 1e-9 {
		t.Fatalf("want confidence 0.5375 at 2.25x, got %v", flags[0].Confidence)
	}
	if flags[0].Severity != models.FlagSeverityHigh {
		t.Fatalf("multiplier 2.25 must be high, got %s", flags[0].Severity)
	}
}

func TestCascadeHighSeverityBand(t *testing.T) {
	// root 10k, total 25k: multiplier 2.5, confidence 0.5 + 0.5*0.15
	a := cascadeInvoice(1, models.TierThree, 10_000, "CG-3")
	b := cascadeInvoice(2, models.TierTwo, 15_000, "CG-3")

	flags := DetectCascades(testSnapshot(a, b), emptyIndex())
	if len(flags) != 2 {
		t.Fatalf("expected 2 flags, got %d", len(flags))
	}
	if flags[0].Severity != models.FlagSeverityHigh {
		t.Fatalf("multiplier 2.5 must be high, got %s", flags[0].Severity)
	}
	if math.Abs(flags[0].Confidence-0.575) > 1e-9 {
		t.Fatalf("want confidence 0.575, got %v", flags[0].Confidence)
	}
}

func TestCascadeIgnoresUngroupedAndSingletons(t *testing.T) {
	ungrouped := testInvoice(1, 10, 20, 50_000, "2026-05-15")
	singleton := cascadeInvoice(2, models.TierTwo, 50_000, "CG-4")

	flags := DetectCascades(testSnapshot(ungrouped, singleton), emptyIndex())
	if len(flags) != 0 {
		t.Fatalf("expected no flags, got %d", len(flags))
	}
}
