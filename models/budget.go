package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ktirsdata/ntr_backend/config"
	"github.com/ktirsdata/ntr_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RevenueSourceBudget is the yearly target for a single revenue source.
// One row per (source, year).
type RevenueSourceBudget struct {
	ID              int             `gorm:"primary_key" json:"id"`
	MdaId           int             `gorm:"index;not null" json:"mda_id"`
	RevenueSourceId int             `gorm:"uniqueIndex:idx_source_budget_year;not null" json:"revenue_source_id"`
	BudgetYear      int             `gorm:"uniqueIndex:idx_source_budget_year;not null" json:"budget_year"`
	Amount          decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"amount"`
	CreatedAt       time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// MdaBudget is the yearly target for a whole MDA, set independently of the
// per-source budgets (the two need not reconcile).
type MdaBudget struct {
	ID         int             `gorm:"primary_key" json:"id"`
	MdaId      int             `gorm:"uniqueIndex:idx_mda_budget_year;not null" json:"mda_id"`
	BudgetYear int             `gorm:"uniqueIndex:idx_mda_budget_year;not null" json:"budget_year"`
	Amount     decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"amount"`
	CreatedAt  time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewSourceBudget struct {
	RevenueSourceId int    `json:"revenue_source_id" binding:"required"`
	BudgetYear      int    `json:"budget_year" binding:"required"`
	Amount          string `json:"amount" binding:"required"`
}

type NewMdaBudget struct {
	MdaId      int    `json:"mda_id" binding:"required"`
	BudgetYear int    `json:"budget_year" binding:"required"`
	Amount     string `json:"amount" binding:"required"`
}

func validateBudgetAmount(value string) (decimal.Decimal, error) {
	amount, err := utils.ParseDecimal(value)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: invalid budget amount", utils.ErrorValidation)
	}
	if amount.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: budget amount cannot be negative", utils.ErrorValidation)
	}
	return amount, nil
}

// SetSourceBudget upserts the yearly budget for a revenue source. Re-posting
// the same (source, year) replaces the amount rather than duplicating a row.
func SetSourceBudget(ctx context.Context, input *NewSourceBudget) (*RevenueSourceBudget, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	if !utils.IsValidReportingYear(input.BudgetYear) {
		return nil, fmt.Errorf("%w: budget year out of range", utils.ErrorValidation)
	}
	amount, err := validateBudgetAmount(input.Amount)
	if err != nil {
		return nil, err
	}
	source, err := utils.FetchSingleModel[RevenueSource](ctx, input.RevenueSourceId)
	if err != nil {
		return nil, errors.New("revenue source not found")
	}

	budget := RevenueSourceBudget{
		MdaId:           source.MdaId,
		RevenueSourceId: input.RevenueSourceId,
		BudgetYear:      input.BudgetYear,
		Amount:          amount,
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "revenue_source_id"}, {Name: "budget_year"}},
			DoUpdates: clause.AssignmentColumns([]string{"amount", "updated_at"}),
		}).Create(&budget).Error
		if err != nil {
			return err
		}
		// OnConflict updates leave the struct ID at zero, re-read the row
		err = tx.Where("revenue_source_id = ? AND budget_year = ?",
			input.RevenueSourceId, input.BudgetYear).Take(&budget).Error
		if err != nil {
			return err
		}
		return createHistory(tx, ActionTypeUpdate, budget.ID, ReferenceTypeSourceBudget, nil, budget,
			fmt.Sprintf("set %d budget for source %s", input.BudgetYear, source.Code))
	})
	if err != nil {
		return nil, err
	}
	return &budget, nil
}

// SetMdaBudget upserts the yearly budget for an MDA.
func SetMdaBudget(ctx context.Context, input *NewMdaBudget) (*MdaBudget, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	if !utils.IsValidReportingYear(input.BudgetYear) {
		return nil, fmt.Errorf("%w: budget year out of range", utils.ErrorValidation)
	}
	amount, err := validateBudgetAmount(input.Amount)
	if err != nil {
		return nil, err
	}
	if err := utils.ValidateResourceId[Mda](ctx, 0, input.MdaId); err != nil {
		return nil, errors.New("mda not found")
	}

	budget := MdaBudget{
		MdaId:      input.MdaId,
		BudgetYear: input.BudgetYear,
		Amount:     amount,
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "mda_id"}, {Name: "budget_year"}},
			DoUpdates: clause.AssignmentColumns([]string{"amount", "updated_at"}),
		}).Create(&budget).Error
		if err != nil {
			return err
		}
		err = tx.Where("mda_id = ? AND budget_year = ?", input.MdaId, input.BudgetYear).
			Take(&budget).Error
		if err != nil {
			return err
		}
		return createHistory(tx, ActionTypeUpdate, budget.ID, ReferenceTypeMdaBudget, nil, budget,
			fmt.Sprintf("set %d mda budget", input.BudgetYear))
	})
	if err != nil {
		return nil, err
	}
	return &budget, nil
}

func GetSourceBudgets(ctx context.Context, mdaId int, year int) ([]*RevenueSourceBudget, error) {
	db := config.GetDB()
	var results []*RevenueSourceBudget
	err := db.WithContext(ctx).Model(&RevenueSourceBudget{}).
		Where("mda_id = ? AND budget_year = ?", mdaId, year).
		Order("revenue_source_id").Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

func GetMdaBudget(ctx context.Context, mdaId int, year int) (*MdaBudget, error) {
	db := config.GetDB()
	var result MdaBudget
	err := db.WithContext(ctx).Model(&MdaBudget{}).
		Where("mda_id = ? AND budget_year = ?", mdaId, year).Take(&result).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrorRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}
