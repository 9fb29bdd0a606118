package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/intellitrace_backend/config"
	"bitbucket.org/mmdatafocus/intellitrace_backend/utils"
	"github.com/shopspring/decimal"
)

type Entity struct {
	ID            int             `gorm:"primary_key" json:"id"`
	Name          string          `gorm:"size:255;not null" json:"name"`
	EntityType    EntityType      `gorm:"size:20;not null" json:"entity_type"`
	Tier          Tier            `gorm:"size:10;not null;default:none" json:"tier"`
	AnnualRevenue decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"annual_revenue"`
	Country       string          `gorm:"size:100" json:"country"`
	RiskScore     float64         `gorm:"not null;default:0" json:"risk_score"`
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewEntity struct {
	Name          string `json:"name" binding:"required"`
	EntityType    string `json:"entity_type" binding:"required"`
	Tier          string `json:"tier"`
	AnnualRevenue string `json:"annual_revenue" binding:"required"`
	Country       string `json:"country"`
}

func (input *NewEntity) validate() (EntityType, Tier, decimal.Decimal, error) {
	entityType := EntityType(input.EntityType)
	if !entityType.IsValid() {
		return "", "", decimal.Zero, errors.New("invalid entity type")
	}
	tier := Tier(input.Tier)
	if input.Tier == "" {
		tier = TierNone
	}
	if !tier.IsValid() {
		return "", "", decimal.Zero, errors.New("invalid tier")
	}
	revenue, err := utils.ParseDecimal(input.AnnualRevenue)
	if err != nil {
		return "", "", decimal.Zero, errors.New("invalid annual revenue")
	}
	if revenue.IsNegative() {
		return "", "", decimal.Zero, errors.New("annual revenue must not be negative")
	}
	return entityType, tier, revenue, nil
}

func CreateEntity(ctx context.Context, input *NewEntity) (*Entity, error) {

	entityType, tier, revenue, err := input.validate()
	if err != nil {
		return nil, err
	}

	entity := Entity{
		Name:          input.Name,
		EntityType:    entityType,
		Tier:          tier,
		AnnualRevenue: revenue,
		Country:       input.Country,
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&entity).Error; err != nil {
		return nil, err
	}
	return &entity, nil
}

func GetEntity(ctx context.Context, id int) (*Entity, error) {

	db := config.GetDB()
	var entity Entity
	err := db.WithContext(ctx).First(&entity, id).Error
	if err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	return &entity, nil
}

func GetEntities(ctx context.Context, entityType *EntityType, tier *Tier) ([]*Entity, error) {

	db := config.GetDB()
	var results []*Entity

	dbCtx := db.WithContext(ctx)
	if entityType != nil {
		dbCtx = dbCtx.Where("entity_type = ?", *entityType)
	}
	if tier != nil {
		dbCtx = dbCtx.Where("tier = ?", *tier)
	}
	err := dbCtx.Order("name").Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}
