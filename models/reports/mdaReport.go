package reports

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ktirsdata/ntr_backend/config"
	"github.com/ktirsdata/ntr_backend/models"
	"github.com/ktirsdata/ntr_backend/utils"
	"github.com/shopspring/decimal"
)

// MdaPerformanceRow is one revenue source's full year: twelve monthly cells,
// the year's total, its budget and how the collection tracks against it.
type MdaPerformanceRow struct {
	RevenueSourceId int                 `json:"revenue_source_id"`
	SourceCode      string              `json:"source_code"`
	SourceName      string              `json:"source_name"`
	Monthly         [12]decimal.Decimal `json:"monthly"`
	Total           decimal.Decimal     `json:"total"`
	Budget          decimal.Decimal     `json:"budget"`
	Variance        decimal.Decimal     `json:"variance"`
	Performance     decimal.Decimal     `json:"performance"`
}

type MdaPerformanceResponse struct {
	MdaId       int                  `json:"mda_id"`
	MdaName     string               `json:"mda_name"`
	Year        int                  `json:"year"`
	Rows        []*MdaPerformanceRow `json:"rows"`
	Total       decimal.Decimal      `json:"total"`
	Budget      decimal.Decimal      `json:"budget"`
	Variance    decimal.Decimal      `json:"variance"`
	Performance decimal.Decimal      `json:"performance"`
}

type monthlyCellRow struct {
	RevenueSourceId int             `json:"revenue_source_id"`
	RevenueMonth    int             `json:"revenue_month"`
	Amount          decimal.Decimal `json:"amount"`
}

// PerformanceRatio is collected over budget as a percentage. A zero budget
// reads as 0%, never a division error.
func PerformanceRatio(collected, budget decimal.Decimal) decimal.Decimal {
	if budget.IsZero() {
		return decimal.Zero
	}
	return collected.Div(budget).Mul(decimal.NewFromInt(100)).Round(2)
}

// Variance is budget minus collected: positive while under target.
func Variance(collected, budget decimal.Decimal) decimal.Decimal {
	return budget.Sub(collected)
}

// GetMdaPerformanceReport builds the per-source yearly grid for one MDA.
// Branch partitions roll up into each month's cell.
func GetMdaPerformanceReport(ctx context.Context, mdaId int, year int) (*MdaPerformanceResponse, error) {
	started := time.Now()
	defer logSlowReport(ctx, "mdaPerformance", started, map[string]any{"mda_id": mdaId, "year": year})

	if !utils.IsValidReportingYear(year) {
		return nil, errors.New("year out of range")
	}
	mda, err := models.GetMda(ctx, mdaId)
	if err != nil {
		return nil, errors.New("mda not found")
	}

	cacheKey := fmt.Sprintf("Report:MdaPerformance:%d:%d", mdaId, year)
	if reportCacheEnabled() {
		var cached MdaPerformanceResponse
		if ok, err := cacheGet(cacheKey, &cached); err == nil && ok {
			return &cached, nil
		}
	}

	sources, err := models.GetRevenueSources(ctx, mdaId)
	if err != nil {
		return nil, err
	}
	budgets, err := models.GetSourceBudgets(ctx, mdaId, year)
	if err != nil {
		return nil, err
	}
	budgetBySource := make(map[int]decimal.Decimal, len(budgets))
	for _, b := range budgets {
		budgetBySource[b.RevenueSourceId] = b.Amount
	}

	sql := `
SELECT
    revenue_source_id,
    revenue_month,
    SUM(amount) AS amount
FROM
    monthly_summaries
WHERE
    mda_id = @mdaId AND revenue_year = @year
GROUP BY revenue_source_id , revenue_month;
`
	var cells []*monthlyCellRow
	db := config.GetDB()
	if err := db.WithContext(ctx).Raw(sql, map[string]interface{}{
		"mdaId": mdaId,
		"year":  year,
	}).Scan(&cells).Error; err != nil {
		return nil, err
	}

	cellBySourceMonth := make(map[int][12]decimal.Decimal)
	for _, c := range cells {
		if c.RevenueMonth < 1 || c.RevenueMonth > 12 {
			continue
		}
		row := cellBySourceMonth[c.RevenueSourceId]
		row[c.RevenueMonth-1] = row[c.RevenueMonth-1].Add(c.Amount)
		cellBySourceMonth[c.RevenueSourceId] = row
	}

	response := MdaPerformanceResponse{
		MdaId:   mdaId,
		MdaName: mda.Name,
		Year:    year,
	}
	for _, source := range sources {
		row := MdaPerformanceRow{
			RevenueSourceId: source.ID,
			SourceCode:      source.Code,
			SourceName:      source.Name,
			Monthly:         cellBySourceMonth[source.ID],
			Budget:          budgetBySource[source.ID],
		}
		for _, m := range row.Monthly {
			row.Total = row.Total.Add(m)
		}
		row.Variance = Variance(row.Total, row.Budget)
		row.Performance = PerformanceRatio(row.Total, row.Budget)

		response.Rows = append(response.Rows, &row)
		response.Total = response.Total.Add(row.Total)
	}

	// the MDA line tracks the MDA budget when set, else the source budgets
	mdaBudget, err := models.GetMdaBudget(ctx, mdaId, year)
	switch {
	case err == nil:
		response.Budget = mdaBudget.Amount
	case errors.Is(err, utils.ErrorRecordNotFound):
		for _, row := range response.Rows {
			response.Budget = response.Budget.Add(row.Budget)
		}
	default:
		return nil, err
	}
	response.Variance = Variance(response.Total, response.Budget)
	response.Performance = PerformanceRatio(response.Total, response.Budget)

	if reportCacheEnabled() {
		_ = cacheSet(cacheKey, &response, reportCacheTTL())
	}
	return &response, nil
}
