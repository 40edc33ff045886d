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

// RevenueDailyEntry is one day's collection for a revenue source within a
// branch partition. Exactly one row per (mda, source, branch, date); a
// re-post for the same day replaces the amount.
type RevenueDailyEntry struct {
	ID              int             `gorm:"primary_key" json:"id"`
	MdaId           int             `gorm:"uniqueIndex:idx_daily_cell_date;not null" json:"mda_id"`
	RevenueSourceId int             `gorm:"uniqueIndex:idx_daily_cell_date;not null" json:"revenue_source_id"`
	BranchScopeKey  int             `gorm:"uniqueIndex:idx_daily_cell_date;not null;default:0" json:"branch_scope_key"`
	BranchId        *int            `json:"branch_id"`
	EntryDate       time.Time       `gorm:"uniqueIndex:idx_daily_cell_date;type:date;not null" json:"entry_date"`
	Amount          decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"amount"`
	RecordedBy      int             `gorm:"index" json:"recorded_by"`
	CreatedAt       time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// MonthlySummary is the reporting figure for one (mda, source, branch, year,
// month) cell. While IsManual is false the amount tracks the sum of the
// cell's daily entries; once an override pins the month, daily posts keep
// landing in the ledger but stop moving the summary.
type MonthlySummary struct {
	ID              int             `gorm:"primary_key" json:"id"`
	MdaId           int             `gorm:"uniqueIndex:idx_summary_cell;not null" json:"mda_id"`
	RevenueSourceId int             `gorm:"uniqueIndex:idx_summary_cell;not null" json:"revenue_source_id"`
	BranchScopeKey  int             `gorm:"uniqueIndex:idx_summary_cell;not null;default:0" json:"branch_scope_key"`
	BranchId        *int            `json:"branch_id"`
	RevenueYear     int             `gorm:"uniqueIndex:idx_summary_cell;not null" json:"revenue_year"`
	RevenueMonth    int             `gorm:"uniqueIndex:idx_summary_cell;not null" json:"revenue_month"`
	Amount          decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"amount"`
	IsManual        bool            `gorm:"not null;default:false" json:"is_manual"`
	CreatedAt       time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewDailyRevenue struct {
	MdaId           int    `json:"mda_id" binding:"required"`
	RevenueSourceId int    `json:"revenue_source_id" binding:"required"`
	BranchId        int    `json:"branch_id"`
	EntryDate       string `json:"entry_date" binding:"required"`
	Amount          string `json:"amount" binding:"required"`
}

type NewMonthlyOverride struct {
	MdaId           int    `json:"mda_id" binding:"required"`
	RevenueSourceId int    `json:"revenue_source_id" binding:"required"`
	BranchId        int    `json:"branch_id"`
	RevenueYear     int    `json:"revenue_year" binding:"required"`
	RevenueMonth    int    `json:"revenue_month" binding:"required"`
	Amount          string `json:"amount" binding:"required"`
}

// DailyRevenueResult echoes the recorded day plus the month's figure after
// reconciliation, so the caller can refresh its view without a second read.
type DailyRevenueResult struct {
	Entry         *RevenueDailyEntry `json:"entry"`
	MonthTotal    decimal.Decimal    `json:"month_total"`
	MonthIsManual bool               `json:"month_is_manual"`
}

func (input *NewDailyRevenue) validate(ctx context.Context) (*RevenueSource, time.Time, decimal.Decimal, error) {
	amount, err := utils.ParseDecimal(input.Amount)
	if err != nil {
		return nil, time.Time{}, decimal.Zero, fmt.Errorf("%w: invalid amount", utils.ErrorValidation)
	}
	if amount.IsNegative() {
		return nil, time.Time{}, decimal.Zero, fmt.Errorf("%w: amount cannot be negative", utils.ErrorValidation)
	}

	entryDate, err := utils.ParseRevenueDate(input.EntryDate)
	if err != nil {
		return nil, time.Time{}, decimal.Zero, fmt.Errorf("%w: entry date must be YYYY-MM-DD", utils.ErrorValidation)
	}
	if !utils.IsValidReportingYear(entryDate.Year()) {
		return nil, time.Time{}, decimal.Zero, fmt.Errorf("%w: entry date year out of range", utils.ErrorValidation)
	}

	source, err := utils.FetchSingleModel[RevenueSource](ctx, input.RevenueSourceId)
	if err != nil {
		return nil, time.Time{}, decimal.Zero, fmt.Errorf("%w: revenue source not found", utils.ErrorIntegrity)
	}
	if source.MdaId != input.MdaId {
		return nil, time.Time{}, decimal.Zero, fmt.Errorf("%w: revenue source does not belong to mda", utils.ErrorIntegrity)
	}
	if !*source.IsActive {
		return nil, time.Time{}, decimal.Zero, fmt.Errorf("%w: revenue source is inactive", utils.ErrorIntegrity)
	}
	if input.BranchId > 0 {
		if err := utils.ValidateResourceId[MdaBranch](ctx, input.MdaId, input.BranchId); err != nil {
			return nil, time.Time{}, decimal.Zero, fmt.Errorf("%w: branch not found for mda", utils.ErrorIntegrity)
		}
	}
	return source, entryDate, amount, nil
}

// RecordDailyRevenue upserts one day's collection and reconciles the month's
// summary in the same transaction. The summary amount is recomputed from the
// daily ledger unless a manual override has pinned the month, in which case
// the pinned figure stays untouched.
func RecordDailyRevenue(ctx context.Context, input *NewDailyRevenue) (*DailyRevenueResult, error) {
	_, entryDate, amount, err := input.validate(ctx)
	if err != nil {
		return nil, err
	}

	branchScopeKey := input.BranchId // 0 means headquarters
	year := entryDate.Year()
	month := int(entryDate.Month())

	entry := RevenueDailyEntry{
		MdaId:           input.MdaId,
		RevenueSourceId: input.RevenueSourceId,
		BranchScopeKey:  branchScopeKey,
		BranchId:        utils.NilIfZero(input.BranchId),
		EntryDate:       entryDate,
		Amount:          amount,
	}
	if userId, ok := utils.GetUserIdFromContext(ctx); ok {
		entry.RecordedBy = userId
	}

	var result DailyRevenueResult

	db := config.GetDB()
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := AcquireMonthPostingLock(tx, input.MdaId, input.RevenueSourceId, branchScopeKey, year, month); err != nil {
			return err
		}
		defer ReleaseMonthPostingLock(tx, input.MdaId, input.RevenueSourceId, branchScopeKey, year, month)

		err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "mda_id"}, {Name: "revenue_source_id"},
				{Name: "branch_scope_key"}, {Name: "entry_date"},
			},
			DoUpdates: clause.AssignmentColumns([]string{"amount", "recorded_by", "updated_at"}),
		}).Create(&entry).Error
		if err != nil {
			return err
		}
		err = tx.Where("mda_id = ? AND revenue_source_id = ? AND branch_scope_key = ? AND entry_date = ?",
			input.MdaId, input.RevenueSourceId, branchScopeKey, entryDate).Take(&entry).Error
		if err != nil {
			return err
		}

		summary, isManual, err := reconcileMonthlySummary(tx, &entry, year, month)
		if err != nil {
			return err
		}
		result.MonthTotal = summary.Amount
		result.MonthIsManual = isManual

		return createRevenueHistory(tx, ActionTypeCreate, entry.ID, ReferenceTypeDailyEntry,
			input.MdaId, year, month, nil, entry,
			fmt.Sprintf("recorded %s for %s", amount.StringFixed(2), input.EntryDate))
	})
	if err != nil {
		return nil, err
	}

	result.Entry = &entry
	return &result, nil
}

func sumDailyEntries(tx *gorm.DB, mdaId, sourceId, branchScopeKey, year int, month time.Month) (decimal.Decimal, error) {
	start, end := utils.MonthRange(year, month)
	var total decimal.Decimal
	err := tx.Model(&RevenueDailyEntry{}).
		Where("mda_id = ? AND revenue_source_id = ? AND branch_scope_key = ? AND entry_date >= ? AND entry_date < ?",
			mdaId, sourceId, branchScopeKey, start, end).
		Select("COALESCE(SUM(amount), 0)").Scan(&total).Error
	if err != nil {
		return decimal.Zero, err
	}
	return total, nil
}

// reconcileMonthlySummary recomputes the month's figure for one cell unless
// the cell is pinned. The summary row is seeded if missing and locked FOR
// UPDATE before the daily ledger is summed; the row lock is held to commit,
// so the sum runs after any concurrent post to the same cell has committed
// its entry. Returns the cell as it stands after the write, manual or not.
func reconcileMonthlySummary(tx *gorm.DB, entry *RevenueDailyEntry, year, month int) (*MonthlySummary, bool, error) {
	seed := MonthlySummary{
		MdaId:           entry.MdaId,
		RevenueSourceId: entry.RevenueSourceId,
		BranchScopeKey:  entry.BranchScopeKey,
		BranchId:        entry.BranchId,
		RevenueYear:     year,
		RevenueMonth:    month,
		Amount:          decimal.Zero,
		IsManual:        false,
	}
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&seed).Error; err != nil {
		return nil, false, err
	}

	var summary MonthlySummary
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("mda_id = ? AND revenue_source_id = ? AND branch_scope_key = ? AND revenue_year = ? AND revenue_month = ?",
			entry.MdaId, entry.RevenueSourceId, entry.BranchScopeKey, year, month).
		Take(&summary).Error
	if err != nil {
		return nil, false, err
	}

	if summary.IsManual {
		// pinned month: the ledger keeps growing but the figure stands
		return &summary, true, nil
	}

	monthTotal, err := sumDailyEntries(tx, entry.MdaId, entry.RevenueSourceId, entry.BranchScopeKey, year, time.Month(month))
	if err != nil {
		return nil, false, err
	}
	if err := tx.Model(&summary).UpdateColumn("Amount", monthTotal).Error; err != nil {
		return nil, false, err
	}
	summary.Amount = monthTotal
	return &summary, false, nil
}

// SetMonthlyOverride pins a month's figure. This is the officer's monthly
// save path (scope-checked at the handler, like daily posting); the override
// wins over any past or future daily recomputation until product ships an
// explicit un-pin.
func SetMonthlyOverride(ctx context.Context, input *NewMonthlyOverride) (*MonthlySummary, error) {
	amount, err := utils.ParseDecimal(input.Amount)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid amount", utils.ErrorValidation)
	}
	if amount.IsNegative() {
		return nil, fmt.Errorf("%w: amount cannot be negative", utils.ErrorValidation)
	}
	if !utils.IsValidReportingYear(input.RevenueYear) {
		return nil, fmt.Errorf("%w: revenue year out of range", utils.ErrorValidation)
	}
	if input.RevenueMonth < 1 || input.RevenueMonth > 12 {
		return nil, fmt.Errorf("%w: revenue month out of range", utils.ErrorValidation)
	}

	source, err := utils.FetchSingleModel[RevenueSource](ctx, input.RevenueSourceId)
	if err != nil {
		return nil, fmt.Errorf("%w: revenue source not found", utils.ErrorIntegrity)
	}
	if source.MdaId != input.MdaId {
		return nil, fmt.Errorf("%w: revenue source does not belong to mda", utils.ErrorIntegrity)
	}
	if !*source.IsActive {
		return nil, fmt.Errorf("%w: revenue source is inactive", utils.ErrorIntegrity)
	}
	if input.BranchId > 0 {
		if err := utils.ValidateResourceId[MdaBranch](ctx, input.MdaId, input.BranchId); err != nil {
			return nil, fmt.Errorf("%w: branch not found for mda", utils.ErrorIntegrity)
		}
	}

	branchScopeKey := input.BranchId
	summary := MonthlySummary{
		MdaId:           input.MdaId,
		RevenueSourceId: input.RevenueSourceId,
		BranchScopeKey:  branchScopeKey,
		BranchId:        utils.NilIfZero(input.BranchId),
		RevenueYear:     input.RevenueYear,
		RevenueMonth:    input.RevenueMonth,
		Amount:          amount,
		IsManual:        true,
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := AcquireMonthPostingLock(tx, input.MdaId, input.RevenueSourceId, branchScopeKey,
			input.RevenueYear, input.RevenueMonth); err != nil {
			return err
		}
		defer ReleaseMonthPostingLock(tx, input.MdaId, input.RevenueSourceId, branchScopeKey,
			input.RevenueYear, input.RevenueMonth)

		var before MonthlySummary
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("mda_id = ? AND revenue_source_id = ? AND branch_scope_key = ? AND revenue_year = ? AND revenue_month = ?",
				input.MdaId, input.RevenueSourceId, branchScopeKey, input.RevenueYear, input.RevenueMonth).
			Take(&before).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			err := tx.Clauses(clause.OnConflict{
				Columns: []clause.Column{
					{Name: "mda_id"}, {Name: "revenue_source_id"}, {Name: "branch_scope_key"},
					{Name: "revenue_year"}, {Name: "revenue_month"},
				},
				DoUpdates: clause.AssignmentColumns([]string{"amount", "is_manual", "updated_at"}),
			}).Create(&summary).Error
			if err != nil {
				return err
			}
			// OnConflict leaves the struct ID zero; re-read for the audit row
			err = tx.Where("mda_id = ? AND revenue_source_id = ? AND branch_scope_key = ? AND revenue_year = ? AND revenue_month = ?",
				input.MdaId, input.RevenueSourceId, branchScopeKey, input.RevenueYear, input.RevenueMonth).
				Take(&summary).Error
			if err != nil {
				return err
			}
		case err != nil:
			return err
		default:
			summary.ID = before.ID
			err = tx.Model(&before).UpdateColumns(map[string]interface{}{
				"Amount":   amount,
				"IsManual": true,
			}).Error
			if err != nil {
				return err
			}
		}

		return createRevenueHistory(tx, ActionTypeUpdate, summary.ID, ReferenceTypeMonthlySummary,
			input.MdaId, input.RevenueYear, input.RevenueMonth, before, summary,
			fmt.Sprintf("pinned %d-%02d at %s", input.RevenueYear, input.RevenueMonth, amount.StringFixed(2)))
	})
	if err != nil {
		return nil, err
	}
	return &summary, nil
}

// ReadMonthlySummary returns the month's cell, or a zero non-manual figure
// when no daily entry or override ever touched it.
func ReadMonthlySummary(ctx context.Context, mdaId, sourceId, branchScopeKey, year, month int) (*MonthlySummary, error) {
	db := config.GetDB()
	var summary MonthlySummary
	err := db.WithContext(ctx).Model(&MonthlySummary{}).
		Where("mda_id = ? AND revenue_source_id = ? AND branch_scope_key = ? AND revenue_year = ? AND revenue_month = ?",
			mdaId, sourceId, branchScopeKey, year, month).
		Take(&summary).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &MonthlySummary{
			MdaId:           mdaId,
			RevenueSourceId: sourceId,
			BranchScopeKey:  branchScopeKey,
			RevenueYear:     year,
			RevenueMonth:    month,
			Amount:          decimal.Zero,
		}, nil
	}
	if err != nil {
		return nil, err
	}
	return &summary, nil
}

// ReadDailyEntries lists the month's ledger for one cell, oldest first.
func ReadDailyEntries(ctx context.Context, mdaId, sourceId, branchScopeKey, year, month int) ([]*RevenueDailyEntry, error) {
	if !utils.IsValidReportingYear(year) {
		return nil, fmt.Errorf("%w: year out of range", utils.ErrorValidation)
	}
	if month < 1 || month > 12 {
		return nil, fmt.Errorf("%w: month out of range", utils.ErrorValidation)
	}
	start, end := utils.MonthRange(year, time.Month(month))
	db := config.GetDB()
	var results []*RevenueDailyEntry
	err := db.WithContext(ctx).Model(&RevenueDailyEntry{}).
		Where("mda_id = ? AND revenue_source_id = ? AND branch_scope_key = ? AND entry_date >= ? AND entry_date < ?",
			mdaId, sourceId, branchScopeKey, start, end).
		Order("entry_date").Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

// ReadMdaMonthlyTotal rolls the month up across every source and branch of
// the MDA. Pinned cells contribute their pinned figure.
func ReadMdaMonthlyTotal(ctx context.Context, mdaId, year, month int) (decimal.Decimal, error) {
	db := config.GetDB()
	var total decimal.Decimal
	err := db.WithContext(ctx).Model(&MonthlySummary{}).
		Where("mda_id = ? AND revenue_year = ? AND revenue_month = ?", mdaId, year, month).
		Select("COALESCE(SUM(amount), 0)").Scan(&total).Error
	if err != nil {
		return decimal.Zero, err
	}
	return total, nil
}

// RecomputeMonthlySummary rebuilds one cell from its daily ledger, skipping
// pinned cells. Used by the backfill command after imports or repairs.
func RecomputeMonthlySummary(ctx context.Context, mdaId, sourceId, branchScopeKey, year, month int) (*MonthlySummary, error) {
	var summary *MonthlySummary
	db := config.GetDB()
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := AcquireMonthPostingLock(tx, mdaId, sourceId, branchScopeKey, year, month); err != nil {
			return err
		}
		defer ReleaseMonthPostingLock(tx, mdaId, sourceId, branchScopeKey, year, month)

		entry := RevenueDailyEntry{
			MdaId:           mdaId,
			RevenueSourceId: sourceId,
			BranchScopeKey:  branchScopeKey,
			BranchId:        utils.NilIfZero(branchScopeKey),
		}
		var err error
		summary, _, err = reconcileMonthlySummary(tx, &entry, year, month)
		return err
	})
	if err != nil {
		return nil, err
	}
	return summary, nil
}
