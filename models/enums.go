package models

import "errors"

type EntityType string

const (
	EntityTypeBuyer    EntityType = "buyer"
	EntityTypeSupplier EntityType = "supplier"
	EntityTypeLender   EntityType = "lender"
)

func (t EntityType) IsValid() bool {
	switch t {
	case EntityTypeBuyer, EntityTypeSupplier, EntityTypeLender:
		return true
	}
	return false
}

type Tier string

const (
	TierOne   Tier = "tier_1"
	TierTwo   Tier = "tier_2"
	TierThree Tier = "tier_3"
	TierNone  Tier = "none"
)

func (t Tier) IsValid() bool {
	switch t {
	case TierOne, TierTwo, TierThree, TierNone:
		return true
	}
	return false
}

type InvoiceStatus string

const (
	InvoiceStatusPending   InvoiceStatus = "pending"
	InvoiceStatusValidated InvoiceStatus = "validated"
	InvoiceStatusFlagged   InvoiceStatus = "flagged"
	InvoiceStatusRejected  InvoiceStatus = "rejected"
	InvoiceStatusFinanced  InvoiceStatus = "financed"
)

func (s InvoiceStatus) IsValid() bool {
	switch s {
	case InvoiceStatusPending, InvoiceStatusValidated, InvoiceStatusFlagged,
		InvoiceStatusRejected, InvoiceStatusFinanced:
		return true
	}
	return false
}

type FraudType string

const (
	FraudTypePhantomInvoice   FraudType = "phantom_invoice"
	FraudTypeDuplicateFinance FraudType = "duplicate_financing"
	FraudTypeOverInvoicing    FraudType = "over_invoicing"
	FraudTypeCarouselTrade    FraudType = "carousel_trade"
	FraudTypeDilution         FraudType = "dilution"
	FraudTypeVelocityAnomaly  FraudType = "velocity_anomaly"
	FraudTypeCascadeFraud     FraudType = "cascade_fraud"
)

func (t FraudType) IsValid() bool {
	switch t {
	case FraudTypePhantomInvoice, FraudTypeDuplicateFinance, FraudTypeOverInvoicing,
		FraudTypeCarouselTrade, FraudTypeDilution, FraudTypeVelocityAnomaly,
		FraudTypeCascadeFraud:
		return true
	}
	return false
}

type FlagSeverity string

const (
	FlagSeverityLow      FlagSeverity = "low"
	FlagSeverityMedium   FlagSeverity = "medium"
	FlagSeverityHigh     FlagSeverity = "high"
	FlagSeverityCritical FlagSeverity = "critical"
)

func (s FlagSeverity) IsValid() bool {
	switch s {
	case FlagSeverityLow, FlagSeverityMedium, FlagSeverityHigh, FlagSeverityCritical:
		return true
	}
	return false
}

type AlertStatus string

const (
	AlertStatusOpen          AlertStatus = "open"
	AlertStatusInvestigating AlertStatus = "investigating"
	AlertStatusResolved      AlertStatus = "resolved"
	AlertStatusDismissed     AlertStatus = "dismissed"
)

func (s AlertStatus) IsValid() bool {
	switch s {
	case AlertStatusOpen, AlertStatusInvestigating, AlertStatusResolved, AlertStatusDismissed:
		return true
	}
	return false
}

// ParseAlertStatus resolves user input once at the boundary so the rest of
// the code branches on the typed value only.
func ParseAlertStatus(str string) (AlertStatus, error) {
	s := AlertStatus(str)
	if !s.IsValid() {
		return "", errors.New("invalid alert status")
	}
	return s, nil
}

func ParseFraudType(str string) (FraudType, error) {
	t := FraudType(str)
	if !t.IsValid() {
		return "", errors.New("invalid fraud type")
	}
	return t, nil
}
