package engines

import (
	"fmt"
	"math"

	"bitbucket.org/mmdatafocus/intellitrace_backend/models"
	"github.com/shopspring/decimal"
)

// DetectCascades groups invoices by cascade-group tag (untagged invoices are
// excluded) and flags groups whose summed tier totals exceed twice the
// smallest tier total. The smallest tier total stands in for the root
// financing amount; the multiplier measures value inflation across tiers.
func DetectCascades(snapshot *models.LedgerSnapshot, index *FlagIndex) []*models.FraudFlag {

	groups := map[string][]*models.Invoice{}
	for _, inv := range snapshot.Invoices {
		if inv.CascadeGroup == nil || *inv.CascadeGroup == "" {
			continue
		}
		groups[*inv.CascadeGroup] = append(groups[*inv.CascadeGroup], inv)
	}

	var flags []*models.FraudFlag
	for tag, group := range groups {
		if len(group) < 2 {
			continue
		}

		tierTotals := map[models.Tier]decimal.Decimal{}
		for _, inv := range group {
			tierTotals[inv.Tier] = tierTotals[inv.Tier].Add(inv.Amount)
		}

		root := decimal.Zero
		total := decimal.Zero
		for _, tierTotal := range tierTotals {
			total = total.Add(tierTotal)
			if root.IsZero() || tierTotal.LessThan(root) {
				root = tierTotal
			}
		}
		if !root.IsPositive() {
			continue
		}
		if !total.GreaterThan(root.Mul(decimal.NewFromInt(2))) {
			continue
		}

		multiplier, _ := total.Div(root).Float64()
		confidence := math.Min(0.5+(multiplier-2)*0.15, 0.99)
		severity := models.FlagSeverityHigh
		if multiplier > 3 {
			severity = models.FlagSeverityCritical
		}

		for _, inv := range group {
			flags = index.emit(flags, &models.FraudFlag{
				InvoiceId:  inv.ID,
				FraudType:  models.FraudTypeCascadeFraud,
				Engine:     EngineCascadeDetector,
				Confidence: confidence,
				Severity:   severity,
				Description: fmt.Sprintf("cascade group %s inflated %.1fx from root financing %s across %d tiers",
					tag, multiplier, root.StringFixed(2), len(tierTotals)),
			})
		}
	}
	return flags
}
