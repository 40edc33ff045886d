package reports

import (
	"context"
	"errors"
	"time"

	"github.com/ktirsdata/ntr_backend/config"
	"github.com/ktirsdata/ntr_backend/models"
	"github.com/ktirsdata/ntr_backend/utils"
	"github.com/shopspring/decimal"
)

type MdaComparisonRow struct {
	MdaId       int                 `json:"mda_id"`
	MdaName     string              `json:"mda_name"`
	Monthly     [12]decimal.Decimal `json:"monthly"`
	Total       decimal.Decimal     `json:"total"`
	Budget      decimal.Decimal     `json:"budget"`
	Variance    decimal.Decimal     `json:"variance"`
	Performance decimal.Decimal     `json:"performance"`
}

type mdaMonthlyCell struct {
	MdaId        int             `json:"mda_id"`
	RevenueMonth int             `json:"revenue_month"`
	Amount       decimal.Decimal `json:"amount"`
}

// GetMdaComparisonReport lays selected MDAs side by side for one year.
func GetMdaComparisonReport(ctx context.Context, year int, mdaIds []int) ([]*MdaComparisonRow, error) {
	started := time.Now()
	defer logSlowReport(ctx, "mdaComparison", started, map[string]any{"year": year, "mdas": len(mdaIds)})

	if !utils.IsValidReportingYear(year) {
		return nil, errors.New("year out of range")
	}
	mdaIds = utils.UniqueSlice(mdaIds)
	if len(mdaIds) < 2 {
		return nil, errors.New("at least two mdas are required")
	}
	if err := utils.ValidateResourcesId[models.Mda](ctx, 0, mdaIds); err != nil {
		return nil, errors.New("mda not found")
	}

	sql := `
SELECT
    mda_id,
    revenue_month,
    SUM(amount) AS amount
FROM
    monthly_summaries
WHERE
    revenue_year = @year AND mda_id IN @mdaIds
GROUP BY mda_id , revenue_month;
`
	var cells []*mdaMonthlyCell
	db := config.GetDB()
	if err := db.WithContext(ctx).Raw(sql, map[string]interface{}{
		"year":   year,
		"mdaIds": mdaIds,
	}).Scan(&cells).Error; err != nil {
		return nil, err
	}

	cellByMda := make(map[int][12]decimal.Decimal)
	for _, c := range cells {
		if c.RevenueMonth < 1 || c.RevenueMonth > 12 {
			continue
		}
		row := cellByMda[c.MdaId]
		row[c.RevenueMonth-1] = row[c.RevenueMonth-1].Add(c.Amount)
		cellByMda[c.MdaId] = row
	}

	var rows []*MdaComparisonRow
	for _, mdaId := range mdaIds {
		mda, err := models.GetMda(ctx, mdaId)
		if err != nil {
			return nil, err
		}
		row := MdaComparisonRow{
			MdaId:   mdaId,
			MdaName: mda.Name,
			Monthly: cellByMda[mdaId],
		}
		for _, m := range row.Monthly {
			row.Total = row.Total.Add(m)
		}
		budget, err := models.GetMdaBudget(ctx, mdaId, year)
		switch {
		case err == nil:
			row.Budget = budget.Amount
		case errors.Is(err, utils.ErrorRecordNotFound):
			// no budget set, compare on collections alone
		default:
			return nil, err
		}
		row.Variance = Variance(row.Total, row.Budget)
		row.Performance = PerformanceRatio(row.Total, row.Budget)
		rows = append(rows, &row)
	}
	return rows, nil
}
