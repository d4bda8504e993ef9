package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/BigDeckClub/BigDeckAppV3-sub000/pkg/enums"
)

// AutobuyRun is a batch of buying decisions. Actual totals are filled in when
// the purchase outcome is recorded.
type AutobuyRun struct {
	ID             uuid.UUID              `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Status         enums.AutobuyRunStatus `gorm:"column:status;not null" json:"status"`
	Items          []AutobuyRunItem       `gorm:"foreignKey:RunID" json:"items,omitempty"`
	PredictedTotal decimal.Decimal        `gorm:"column:predicted_total;type:numeric(12,2);not null" json:"predicted_total"`
	ActualTotal    *decimal.Decimal       `gorm:"column:actual_total;type:numeric(12,2)" json:"actual_total,omitempty"`
	PurchasedCount int                    `gorm:"column:purchased_count;not null;default:0" json:"purchased_count"`
	ItemCount      int                    `gorm:"column:item_count;not null;default:0" json:"item_count"`
	CreatedAt      time.Time              `gorm:"column:created_at;autoCreateTime;index:idx_autobuy_runs_created_at,sort:desc" json:"created_at"`
}

// AutobuyRunItem is one purchasing decision inside a run. DominantWeight names
// the IPS factor that contributed most to the item's score at run time, so
// suggestion lift can be attributed later. SoldQty is maintained by manual
// status updates and feeds sell-through.
type AutobuyRunItem struct {
	ID             uuid.UUID        `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	RunID          uuid.UUID        `gorm:"column:run_id;type:uuid;not null;index" json:"run_id"`
	CardID         string           `gorm:"column:card_id;not null" json:"card_id"`
	CardName       *string          `gorm:"column:card_name" json:"card_name,omitempty"`
	PredictedUnit  decimal.Decimal  `gorm:"column:predicted_unit;type:numeric(12,2);not null" json:"predicted_unit"`
	PredictedQty   int              `gorm:"column:predicted_qty;not null" json:"predicted_qty"`
	ActualUnit     *decimal.Decimal `gorm:"column:actual_unit;type:numeric(12,2)" json:"actual_unit,omitempty"`
	ActualQty      *int             `gorm:"column:actual_qty" json:"actual_qty,omitempty"`
	SoldQty        int              `gorm:"column:sold_qty;not null;default:0" json:"sold_qty"`
	SoldAt         *time.Time       `gorm:"column:sold_at" json:"sold_at,omitempty"`
	DominantWeight *string          `gorm:"column:dominant_weight" json:"dominant_weight,omitempty"`
}

// PredictedLineTotal multiplies unit price by predicted quantity.
func (i AutobuyRunItem) PredictedLineTotal() decimal.Decimal {
	return i.PredictedUnit.Mul(decimal.NewFromInt(int64(i.PredictedQty)))
}

// ActualLineTotal multiplies actual unit price by actual quantity when both
// are recorded.
func (i AutobuyRunItem) ActualLineTotal() *decimal.Decimal {
	if i.ActualUnit == nil || i.ActualQty == nil {
		return nil
	}
	total := i.ActualUnit.Mul(decimal.NewFromInt(int64(*i.ActualQty)))
	return &total
}
