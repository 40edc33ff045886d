package reports

import (
	"context"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/ktirsdata/ntr_backend/config"
	"github.com/ktirsdata/ntr_backend/models"
	"github.com/shopspring/decimal"
)

type DashboardResponse struct {
	MdaCount          int64               `json:"mda_count"`
	ActiveSourceCount int64               `json:"active_source_count"`
	OfficerCount      int64               `json:"officer_count"`
	YearTotal         decimal.Decimal     `json:"year_total"`
	MonthTotal        decimal.Decimal     `json:"month_total"`
	MonthlyTrend      []MonthlyTrendPoint `json:"monthly_trend"`
	RecentActivity    []*models.History   `json:"recent_activity"`
}

// GetDashboardReport backs the admin landing page: register counts, the
// running year and month totals, and the latest audit activity.
func GetDashboardReport(ctx context.Context) (*DashboardResponse, error) {
	started := time.Now()
	defer logSlowReport(ctx, "dashboard", started, nil)

	now := time.Now().UTC()
	year := now.Year()
	month := int(now.Month())

	db := config.GetDB()
	var response DashboardResponse

	if err := db.WithContext(ctx).Model(&models.Mda{}).
		Where("is_active = ?", true).Count(&response.MdaCount).Error; err != nil {
		return nil, err
	}
	if err := db.WithContext(ctx).Model(&models.RevenueSource{}).
		Where("is_active = ?", true).Count(&response.ActiveSourceCount).Error; err != nil {
		return nil, err
	}
	if err := db.WithContext(ctx).Model(&models.Profile{}).
		Where("role = ? AND is_active = ?", models.GlobalRoleMdaUser, true).
		Count(&response.OfficerCount).Error; err != nil {
		return nil, err
	}

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
	trendByMonth := make(map[int]decimal.Decimal, len(trendRows))
	for _, p := range trendRows {
		trendByMonth[p.Month] = p.Amount
		response.YearTotal = response.YearTotal.Add(p.Amount)
	}
	for m := 1; m <= 12; m++ {
		response.MonthlyTrend = append(response.MonthlyTrend, MonthlyTrendPoint{
			Month:  m,
			Amount: trendByMonth[m],
		})
	}
	response.MonthTotal = trendByMonth[month]

	if err := db.WithContext(ctx).Model(&models.History{}).
		Order("id DESC").Limit(10).Find(&response.RecentActivity).Error; err != nil {
		return nil, err
	}

	return &response, nil
}
