package reports

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ktirsdata/ntr_backend/config"
	"github.com/ktirsdata/ntr_backend/utils"
	"github.com/shopspring/decimal"
)

// RevenueBySourceRow is one revenue source across the whole service: its MDA,
// the collected figure for the selected window and how it tracks its budget.
type RevenueBySourceRow struct {
	MdaId           int             `json:"mda_id"`
	MdaName         string          `json:"mda_name"`
	RevenueSourceId int             `json:"revenue_source_id"`
	SourceCode      string          `json:"source_code"`
	SourceName      string          `json:"source_name"`
	Amount          decimal.Decimal `json:"amount"`
	Budget          decimal.Decimal `json:"budget"`
	Variance        decimal.Decimal `json:"variance"`
	Performance     decimal.Decimal `json:"performance"`
}

type RevenueBySourceResponse struct {
	Year  int                   `json:"year"`
	Month int                   `json:"month"` // 0 means year to date
	MdaId int                   `json:"mda_id"`
	Rows  []*RevenueBySourceRow `json:"rows"`
	Total decimal.Decimal       `json:"total"`
}

// GetRevenueBySourceReport lists every revenue source across all MDAs with
// its collected figure for one month, or year-to-date when month is 0.
// Optional filters: a single MDA and a free-text search over source name and
// code. Admin console "revenue by source" view.
func GetRevenueBySourceReport(ctx context.Context, year, month, mdaId int, search string) (*RevenueBySourceResponse, error) {
	started := time.Now()
	defer logSlowReport(ctx, "revenueBySource", started, map[string]any{"year": year, "month": month, "mda_id": mdaId})

	if !utils.IsValidReportingYear(year) {
		return nil, errors.New("year out of range")
	}
	if month < 0 || month > 12 {
		return nil, errors.New("month out of range")
	}
	search = strings.TrimSpace(search)

	// free-text searches are not cached, the keyspace would be unbounded
	cacheKey := fmt.Sprintf("Report:RevenueBySource:%d:%d:%d", year, month, mdaId)
	cacheable := reportCacheEnabled() && search == ""
	if cacheable {
		var cached RevenueBySourceResponse
		if ok, err := cacheGet(cacheKey, &cached); err == nil && ok {
			return &cached, nil
		}
	}

	// MAX over the budget join: one budget row per (source, year), repeated
	// once per joined summary row
	sql := `
SELECT
    s.id AS revenue_source_id,
    s.code AS source_code,
    s.name AS source_name,
    m.id AS mda_id,
    m.name AS mda_name,
    COALESCE(SUM(ms.amount), 0) AS amount,
    COALESCE(MAX(b.amount), 0) AS budget
FROM
    revenue_sources s
        JOIN mdas m ON m.id = s.mda_id
        LEFT JOIN monthly_summaries ms ON ms.revenue_source_id = s.id
            AND ms.revenue_year = @year
            AND (@month = 0 OR ms.revenue_month = @month)
        LEFT JOIN revenue_source_budgets b ON b.revenue_source_id = s.id
            AND b.budget_year = @year
WHERE
    (@mdaId = 0 OR m.id = @mdaId)
        AND (@search = '' OR s.name LIKE @like OR s.code LIKE @like)
GROUP BY s.id , s.code , s.name , m.id , m.name
ORDER BY m.name , s.name;
`
	var rows []*RevenueBySourceRow
	db := config.GetDB()
	if err := db.WithContext(ctx).Raw(sql, map[string]interface{}{
		"year":   year,
		"month":  month,
		"mdaId":  mdaId,
		"search": search,
		"like":   "%" + search + "%",
	}).Scan(&rows).Error; err != nil {
		return nil, err
	}

	response := RevenueBySourceResponse{
		Year:  year,
		Month: month,
		MdaId: mdaId,
		Rows:  rows,
	}
	for _, row := range rows {
		row.Variance = Variance(row.Amount, row.Budget)
		row.Performance = PerformanceRatio(row.Amount, row.Budget)
		response.Total = response.Total.Add(row.Amount)
	}

	if cacheable {
		_ = cacheSet(cacheKey, &response, reportCacheTTL())
	}
	return &response, nil
}
