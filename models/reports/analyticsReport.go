package reports

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/ktirsdata/ntr_backend/config"
	"github.com/ktirsdata/ntr_backend/utils"
	"github.com/shopspring/decimal"
)

type MonthlyTrendPoint struct {
	Month  int             `json:"month"`
	Amount decimal.Decimal `json:"amount"`
}

type MdaYearTotal struct {
	MdaId       int             `json:"mda_id"`
	MdaName     string          `json:"mda_name"`
	Total       decimal.Decimal `json:"total"`
	Budget      decimal.Decimal `json:"budget"`
	Variance    decimal.Decimal `json:"variance"`
	Performance decimal.Decimal `json:"performance"`
}

type AnalyticsResponse struct {
	Year         int                 `json:"year"`
	TotalRevenue decimal.Decimal     `json:"total_revenue"`
	TotalBudget  decimal.Decimal     `json:"total_budget"`
	MonthlyTrend []MonthlyTrendPoint `json:"monthly_trend"`
	TopMdas      []*MdaYearTotal     `json:"top_mdas"`
	HighestMda   *MdaYearTotal       `json:"highest_mda,omitempty"`
	LowestMda    *MdaYearTotal       `json:"lowest_mda,omitempty"`
}

// RankMdaTotals orders MDAs by collected total, highest first. Ties keep
// their incoming (name) order so the ranking is stable across refreshes.
func RankMdaTotals(totals []*MdaYearTotal) {
	sort.SliceStable(totals, func(i, j int) bool {
		return totals[i].Total.GreaterThan(totals[j].Total)
	})
}

// GetAnalyticsReport rolls the whole service up for one year: the grand
// total, the month-by-month trend and an MDA ranking.
func GetAnalyticsReport(ctx context.Context, year int, topN int) (*AnalyticsResponse, error) {
	started := time.Now()
	defer logSlowReport(ctx, "analytics", started, map[string]any{"year": year})

	if !utils.IsValidReportingYear(year) {
		return nil, errors.New("year out of range")
	}
	if topN <= 0 {
		topN = 5
	}

	cacheKey := fmt.Sprintf("Report:Analytics:%d:%d", year, topN)
	if reportCacheEnabled() {
		var cached AnalyticsResponse
		if ok, err := cacheGet(cacheKey, &cached); err == nil && ok {
			return &cached, nil
		}
		// best-effort fill lock to keep concurrent misses from stampeding;
		// on contention we just compute anyway
		if locker := config.GetRedisLock(); locker != nil {
			if lock, err := locker.Obtain(ctx, cacheKey+":fill", 10*time.Second, nil); err == nil {
				defer lock.Release(ctx)
			}
		}
	}

	db := config.GetDB()

	trendSql := `
SELECT
    revenue_month AS month,
    SUM(amount) AS amount
FROM
    monthly_summaries
WHERE
    revenue_year = @year
GROUP BY revenue_month
ORDER BY revenue_month;
`
	var trendRows []MonthlyTrendPoint
	if err := db.WithContext(ctx).Raw(trendSql, map[string]interface{}{"year": year}).
		Scan(&trendRows).Error; err != nil {
		return nil, err
	}

	response := AnalyticsResponse{Year: year}
	trendByMonth := make(map[int]decimal.Decimal, len(trendRows))
	for _, p := range trendRows {
		trendByMonth[p.Month] = p.Amount
		response.TotalRevenue = response.TotalRevenue.Add(p.Amount)
	}
	for month := 1; month <= 12; month++ {
		response.MonthlyTrend = append(response.MonthlyTrend, MonthlyTrendPoint{
			Month:  month,
			Amount: trendByMonth[month],
		})
	}

	mdaSql := `
SELECT
    mdas.id AS mda_id,
    mdas.name AS mda_name,
    COALESCE(ms.total, 0) AS total,
    COALESCE(mb.amount, 0) AS budget
FROM
    mdas
        LEFT JOIN
    (SELECT
        mda_id, SUM(amount) AS total
    FROM
        monthly_summaries
    WHERE
        revenue_year = @year
    GROUP BY mda_id) AS ms ON ms.mda_id = mdas.id
        LEFT JOIN
    mda_budgets AS mb ON mb.mda_id = mdas.id AND mb.budget_year = @year
ORDER BY mdas.name;
`
	var mdaTotals []*MdaYearTotal
	if err := db.WithContext(ctx).Raw(mdaSql, map[string]interface{}{"year": year}).
		Scan(&mdaTotals).Error; err != nil {
		return nil, err
	}

	for _, m := range mdaTotals {
		m.Variance = Variance(m.Total, m.Budget)
		m.Performance = PerformanceRatio(m.Total, m.Budget)
		response.TotalBudget = response.TotalBudget.Add(m.Budget)
	}

	RankMdaTotals(mdaTotals)
	if len(mdaTotals) > 0 {
		response.HighestMda = mdaTotals[0]
		response.LowestMda = mdaTotals[len(mdaTotals)-1]
	}
	if len(mdaTotals) > topN {
		response.TopMdas = mdaTotals[:topN]
	} else {
		response.TopMdas = mdaTotals
	}

	if reportCacheEnabled() {
		_ = cacheSet(cacheKey, &response, reportCacheTTL())
	}
	return &response, nil
}
