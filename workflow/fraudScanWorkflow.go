package workflow

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"bitbucket.org/mmdatafocus/intellitrace_backend/config"
	"bitbucket.org/mmdatafocus/intellitrace_backend/engines"
	"bitbucket.org/mmdatafocus/intellitrace_backend/models"
	"bitbucket.org/mmdatafocus/intellitrace_backend/utils"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const moduleName = "FraudScanWorkflow"

// Broadcaster pushes a committed alert to live subscribers. Injected so the
// scan path carries no process-wide subscriber registry.
type Broadcaster interface {
	BroadcastAlert(alert *models.Alert)
}

// NopBroadcaster drops alerts; used when no stream hub is attached.
type NopBroadcaster struct{}

func (NopBroadcaster) BroadcastAlert(*models.Alert) {}

type ScanResult struct {
	ScanId          string              `json:"scan_id"`
	Timestamp       time.Time           `json:"timestamp"`
	InvoicesScanned int                 `json:"invoices_scanned"`
	FlagsRaised     int                 `json:"flags_raised"`
	Flags           []*models.FraudFlag `json:"flags"`
	SummaryByType   map[string]int      `json:"summary_by_type"`
	EngineErrors    map[string]string   `json:"engine_errors,omitempty"`
}

// scans are mutually exclusive within one process; utils.ScanLock extends
// that across replicas on a best-effort basis.
var scanMutex sync.Mutex

// runEngine isolates one engine so a panic degrades to a per-engine error
// instead of aborting the scan.
func runEngine(name string, errs map[string]string, fn func() []*models.FraudFlag) (flags []*models.FraudFlag) {
	defer func() {
		if r := recover(); r != nil {
			logger := config.GetLogger()
			config.LogError(logger, moduleName, "runEngine", "engine panicked", name, fmt.Errorf("%v", r))
			errs[name] = fmt.Sprintf("%v", r)
			flags = nil
		}
	}()
	return fn()
}

// FoldFlags returns every new flag's effect on the snapshot's invoices:
// risk = max(current, round(maxConfidence*100, 1)), status flagged above 50.
// Pure over the snapshot so the fold is testable without a database.
func FoldFlags(snapshot *models.LedgerSnapshot, flags []*models.FraudFlag) []*models.Invoice {

	maxConfidence := map[int]float64{}
	for _, flag := range flags {
		if flag.Confidence > maxConfidence[flag.InvoiceId] {
			maxConfidence[flag.InvoiceId] = flag.Confidence
		}
	}

	var touched []*models.Invoice
	for invoiceId, confidence := range maxConfidence {
		invoice := snapshot.InvoiceById(invoiceId)
		if invoice == nil {
			continue
		}
		invoice.ApplyFlagConfidence(confidence)
		touched = append(touched, invoice)
	}
	return touched
}

// CollectScanFlags runs every detection engine over the snapshot, folding
// per-engine failures into errs instead of aborting.
func CollectScanFlags(snapshot *models.LedgerSnapshot, index *engines.FlagIndex, errs map[string]string) []*models.FraudFlag {

	var flags []*models.FraudFlag

	flags = append(flags, runEngine(engines.EngineInvoiceValidator, errs, func() []*models.FraudFlag {
		var validatorFlags []*models.FraudFlag
		for _, invoice := range snapshot.PendingInvoices() {
			validatorFlags = append(validatorFlags, engines.ValidateInvoice(snapshot, invoice, index)...)
		}
		return validatorFlags
	})...)

	flags = append(flags, runEngine(engines.EngineDuplicateDetector, errs, func() []*models.FraudFlag {
		return engines.DetectDuplicatesFull(snapshot, index)
	})...)

	flags = append(flags, runEngine(engines.EngineVelocityDetector, errs, func() []*models.FraudFlag {
		return engines.DetectVelocityAnomalies(snapshot, index)
	})...)

	flags = append(flags, runEngine(engines.EngineCascadeDetector, errs, func() []*models.FraudFlag {
		return engines.DetectCascades(snapshot, index)
	})...)

	flags = append(flags, runEngine(engines.EngineDilutionMonitor, errs, func() []*models.FraudFlag {
		return engines.DetectDilution(snapshot, index)
	})...)

	// a skipped carousel pass must be visible in the scan summary
	if len(snapshot.Entities) > engines.MaxCycleSearchNodes {
		errs[engines.EngineGraphAnalytics] = fmt.Sprintf(
			"cycle enumeration skipped: %d entities exceed the %d-node search bound",
			len(snapshot.Entities), engines.MaxCycleSearchNodes)
	}
	flags = append(flags, runEngine(engines.EngineGraphAnalytics, errs, func() []*models.FraudFlag {
		graph := engines.BuildNetwork(snapshot)
		cycles := graph.DetectCarouselCycles()
		return engines.DetectCarouselFraud(snapshot, cycles, index)
	})...)

	return flags
}

var severityRank = map[models.FlagSeverity]int{
	models.FlagSeverityLow:      1,
	models.FlagSeverityMedium:   2,
	models.FlagSeverityHigh:     3,
	models.FlagSeverityCritical: 4,
}

// BuildScanAlerts rolls the scan's flags up into one alert per fraud type,
// carrying the worst severity and the distinct invoices' total exposure.
func BuildScanAlerts(snapshot *models.LedgerSnapshot, flags []*models.FraudFlag, scanId string) []*models.Alert {

	byType := map[models.FraudType][]*models.FraudFlag{}
	for _, flag := range flags {
		byType[flag.FraudType] = append(byType[flag.FraudType], flag)
	}

	var alerts []*models.Alert
	for fraudType, typeFlags := range byType {
		severity := models.FlagSeverityLow
		var invoiceIds, entityIds []int
		for _, flag := range typeFlags {
			if severityRank[flag.Severity] > severityRank[severity] {
				severity = flag.Severity
			}
			invoiceIds = append(invoiceIds, flag.InvoiceId)
		}
		invoiceIds = utils.UniqueSlice(invoiceIds)

		exposure := decimal.Zero
		for _, invoiceId := range invoiceIds {
			if invoice := snapshot.InvoiceById(invoiceId); invoice != nil {
				exposure = exposure.Add(invoice.Amount)
				entityIds = append(entityIds, invoice.SupplierId, invoice.BuyerId)
			}
		}

		alerts = append(alerts, &models.Alert{
			Title:             string(fraudType) + " detected",
			Description:       scanAlertDescription(fraudType, len(invoiceIds)),
			Severity:          severity,
			Status:            models.AlertStatusOpen,
			FraudType:         fraudType,
			RelatedInvoiceIds: invoiceIds,
			RelatedEntityIds:  utils.UniqueSlice(entityIds),
			TotalExposure:     exposure,
			ScanId:            scanId,
		})
	}
	return alerts
}

func scanAlertDescription(fraudType models.FraudType, invoiceCount int) string {
	switch invoiceCount {
	case 1:
		return "fraud scan raised " + string(fraudType) + " findings on 1 invoice"
	default:
		return "fraud scan raised " + string(fraudType) + " findings on multiple invoices"
	}
}

// RunFullScan executes every engine over one ledger snapshot and commits
// flags, risk updates and alerts as a unit before broadcasting.
func RunFullScan(ctx context.Context, broadcaster Broadcaster) (*ScanResult, error) {

	logger := config.GetLogger()

	if !scanMutex.TryLock() {
		return nil, utils.ErrorScanInProgress
	}
	defer scanMutex.Unlock()

	scanId := uuid.NewString()[:8]
	ctx = utils.SetScanIdInContext(ctx, scanId)

	release, err := utils.ScanLock(ctx, "fraud_scan", 5*time.Minute, moduleName, "RunFullScan")
	if err != nil {
		return nil, err
	}
	defer release()

	snapshot, err := models.LoadLedgerSnapshot(ctx)
	if err != nil {
		config.LogError(logger, moduleName, "RunFullScan", "failed to load ledger snapshot", nil, err)
		return nil, err
	}
	flagKeys, err := models.LoadFlagKeys(ctx)
	if err != nil {
		config.LogError(logger, moduleName, "RunFullScan", "failed to load flag keys", nil, err)
		return nil, err
	}
	index := engines.NewFlagIndex(flagKeys)

	engineErrors := map[string]string{}
	flags := CollectScanFlags(snapshot, index, engineErrors)
	touched := FoldFlags(snapshot, flags)

	alerts := BuildScanAlerts(snapshot, flags, scanId)

	db := config.GetDB()
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, flag := range flags {
			if err := models.CreateFraudFlag(tx, flag); err != nil {
				return err
			}
		}
		for _, invoice := range touched {
			if err := models.UpdateInvoiceRisk(tx, invoice); err != nil {
				return err
			}
		}
		for _, alert := range alerts {
			if err := models.CreateAlert(tx, alert); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		config.LogError(logger, moduleName, "RunFullScan", "scan write phase failed", scanId, err)
		return nil, err
	}

	if broadcaster == nil {
		broadcaster = NopBroadcaster{}
	}
	for _, alert := range alerts {
		broadcaster.BroadcastAlert(alert)
	}

	cid, _ := utils.GetCorrelationIdFromContext(ctx)
	logger.WithFields(logrus.Fields{
		"module":         moduleName,
		"scan_id":        scanId,
		"correlation_id": cid,
		"flags_raised":   len(flags),
		"alerts_created": len(alerts),
	}).Info("fraud scan committed")

	result := ScanResult{
		ScanId:          scanId,
		Timestamp:       time.Now().UTC(),
		InvoicesScanned: len(snapshot.Invoices),
		FlagsRaised:     len(flags),
		SummaryByType:   map[string]int{},
	}
	for _, flag := range flags {
		result.SummaryByType[string(flag.FraudType)]++
	}
	if len(flags) > 50 {
		result.Flags = flags[:50]
	} else {
		result.Flags = flags
	}
	if len(engineErrors) > 0 {
		result.EngineErrors = engineErrors
	}
	return &result, nil
}

// ValidateAndScore creates the invoice and runs the real-time checks
// (validator plus targeted duplicate detection) in the same transaction, so
// a submission is never visible without the flags that score it.
func ValidateAndScore(ctx context.Context, input *models.NewInvoice) (*models.Invoice, []*models.FraudFlag, error) {

	logger := config.GetLogger()

	invoice, err := models.BuildInvoice(ctx, input)
	if err != nil {
		return nil, nil, err
	}

	snapshot, err := models.LoadLedgerSnapshot(ctx)
	if err != nil {
		return nil, nil, err
	}
	flagKeys, err := models.LoadFlagKeys(ctx)
	if err != nil {
		return nil, nil, err
	}
	index := engines.NewFlagIndex(flagKeys)

	var flags []*models.FraudFlag
	db := config.GetDB()
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(invoice).Error; err != nil {
			return err
		}
		snapshot.Invoices = append(snapshot.Invoices, invoice)

		flags = engines.ValidateInvoice(snapshot, invoice, index)
		flags = append(flags, engines.DetectDuplicatesTargeted(snapshot, invoice, index)...)

		for _, flag := range flags {
			if err := models.CreateFraudFlag(tx, flag); err != nil {
				return err
			}
			invoice.ApplyFlagConfidence(flag.Confidence)
		}
		if len(flags) > 0 {
			if err := models.UpdateInvoiceRisk(tx, invoice); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		config.LogError(logger, moduleName, "ValidateAndScore", "invoice submission failed", input.InvoiceNumber, err)
		return nil, nil, err
	}
	return invoice, flags, nil
}

// RecomputeEntityRiskScores replaces every entity's stored risk score with
// the centrality-based score; the write is one transaction.
func RecomputeEntityRiskScores(ctx context.Context) (map[int]float64, error) {

	logger := config.GetLogger()

	snapshot, err := models.LoadLedgerSnapshot(ctx)
	if err != nil {
		return nil, err
	}

	graph := engines.BuildNetwork(snapshot)
	cycles := graph.DetectCarouselCycles()
	scores := graph.ComputeEntityRiskScores(cycles)

	db := config.GetDB()
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for entityId, score := range scores {
			err := tx.Model(&models.Entity{}).Where("id = ?", entityId).
				Update("risk_score", math.Min(score, 100)).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		config.LogError(logger, moduleName, "RecomputeEntityRiskScores", "risk score write failed", nil, err)
		return nil, err
	}
	return scores, nil
}
