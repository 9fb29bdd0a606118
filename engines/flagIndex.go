package engines

import (
	"bitbucket.org/mmdatafocus/intellitrace_backend/models"
)

// Wire-stable engine names. Changing one silently re-raises every flag it
// ever produced, because the name is part of the dedup key.
const (
	EngineInvoiceValidator      = "invoice_validator"
	EngineFeasibilityChecker    = "feasibility_checker"
	EngineOverInvoiceDetector   = "over_invoice_detector"
	EngineDuplicateDetector     = "duplicate_detector"
	EngineCascadeDetector       = "cascade_detector"
	EngineDilutionMonitor       = "dilution_monitor"
	EngineVelocityDetector      = "velocity_detector"
	EngineVelocitySpikeDetector = "velocity_spike_detector"
	EngineGraphAnalytics        = "graph_analytics"
)

// FlagIndex is the detectors' dedup pre-check: one flag ever per
// (invoice, fraud type, engine). Detectors add to it as they emit so a
// single scan cannot double-flag either.
type FlagIndex struct {
	seen map[models.FlagKey]bool
}

func NewFlagIndex(keys []models.FlagKey) *FlagIndex {
	index := FlagIndex{seen: make(map[models.FlagKey]bool, len(keys))}
	for _, key := range keys {
		index.seen[key] = true
	}
	return &index
}

func (idx *FlagIndex) Has(key models.FlagKey) bool {
	return idx.seen[key]
}

func (idx *FlagIndex) Add(key models.FlagKey) {
	idx.seen[key] = true
}

// emit appends the flag unless its dedup key is already taken.
func (idx *FlagIndex) emit(flags []*models.FraudFlag, flag *models.FraudFlag) []*models.FraudFlag {
	key := flag.Key()
	if idx.Has(key) {
		return flags
	}
	idx.Add(key)
	return append(flags, flag)
}
