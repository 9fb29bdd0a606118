package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/intellitrace_backend/config"
	"bitbucket.org/mmdatafocus/intellitrace_backend/utils"
	"github.com/shopspring/decimal"
)

type SupplyChainEdge struct {
	ID               int             `gorm:"primary_key" json:"id"`
	FromEntityId     int             `gorm:"not null;index" json:"from_entity_id"`
	ToEntityId       int             `gorm:"not null;index" json:"to_entity_id"`
	Relationship     string          `gorm:"size:50;not null;default:trades_with" json:"relationship"`
	TotalVolume      decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"total_volume"`
	TransactionCount int             `gorm:"not null;default:0" json:"transaction_count"`
	RiskScore        float64         `gorm:"not null;default:0" json:"risk_score"`
	CreatedAt        time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

type NewSupplyChainEdge struct {
	FromEntityId     int    `json:"from_entity_id" binding:"required"`
	ToEntityId       int    `json:"to_entity_id" binding:"required"`
	Relationship     string `json:"relationship"`
	TotalVolume      string `json:"total_volume" binding:"required"`
	TransactionCount int    `json:"transaction_count"`
}

func CreateSupplyChainEdge(ctx context.Context, input *NewSupplyChainEdge) (*SupplyChainEdge, error) {

	if input.FromEntityId == input.ToEntityId {
		return nil, errors.New("edge endpoints must differ")
	}
	if _, err := GetEntity(ctx, input.FromEntityId); err != nil {
		return nil, errors.New("from entity not found")
	}
	if _, err := GetEntity(ctx, input.ToEntityId); err != nil {
		return nil, errors.New("to entity not found")
	}
	volume, err := utils.ParseDecimal(input.TotalVolume)
	if err != nil {
		return nil, errors.New("invalid total volume")
	}
	relationship := input.Relationship
	if relationship == "" {
		relationship = "trades_with"
	}

	edge := SupplyChainEdge{
		FromEntityId:     input.FromEntityId,
		ToEntityId:       input.ToEntityId,
		Relationship:     relationship,
		TotalVolume:      volume,
		TransactionCount: input.TransactionCount,
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&edge).Error; err != nil {
		return nil, err
	}
	return &edge, nil
}

func GetSupplyChainEdges(ctx context.Context) ([]*SupplyChainEdge, error) {

	db := config.GetDB()
	var results []*SupplyChainEdge
	err := db.WithContext(ctx).Order("id").Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}
