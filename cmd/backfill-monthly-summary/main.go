// backfill-monthly-summary rebuilds monthly summaries from the daily ledger.
// Pinned (manual) months are left untouched; everything else is recomputed
// cell by cell under the same posting lock the API uses.
//
// Usage:
//
//	DB_USER=... DB_PASSWORD=... DB_HOST=... DB_PORT=... DB_NAME=... \
//	  go run ./cmd/backfill-monthly-summary -year 2024 [-mda-id 3]
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/ktirsdata/ntr_backend/config"
	"github.com/ktirsdata/ntr_backend/models"
	"github.com/ktirsdata/ntr_backend/utils"
)

type dailyCell struct {
	MdaId           int `json:"mda_id"`
	RevenueSourceId int `json:"revenue_source_id"`
	BranchScopeKey  int `json:"branch_scope_key"`
	RevenueYear     int `json:"revenue_year"`
	RevenueMonth    int `json:"revenue_month"`
}

func main() {
	year := flag.Int("year", 0, "Reporting year to rebuild (required)")
	mdaID := flag.Int("mda-id", 0, "Optional: rebuild only one MDA")
	flag.Parse()

	if *year == 0 || !utils.IsValidReportingYear(*year) {
		fmt.Fprintln(os.Stderr, "-year is required and must be within the reporting range")
		os.Exit(1)
	}

	ctx := context.Background()
	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil)")
		os.Exit(1)
	}

	models.MigrateTable()

	// Bypass the mda guard; this walks every MDA's ledger.
	ctx = utils.SetUserIdInContext(ctx, 0)
	ctx = utils.SetUserNameInContext(ctx, "BackfillMonthlySummary")
	ctx = utils.SetIsAdminInContext(ctx, true)

	query := db.WithContext(ctx).Model(&models.RevenueDailyEntry{}).
		Select("DISTINCT mda_id, revenue_source_id, branch_scope_key, YEAR(entry_date) AS revenue_year, MONTH(entry_date) AS revenue_month").
		Where("YEAR(entry_date) = ?", *year)
	if *mdaID > 0 {
		query = query.Where("mda_id = ?", *mdaID)
	}

	var cells []dailyCell
	if err := query.Order("mda_id, revenue_source_id, branch_scope_key, revenue_month").
		Scan(&cells).Error; err != nil {
		fmt.Fprintf(os.Stderr, "failed to list cells: %v\n", err)
		os.Exit(1)
	}
	if len(cells) == 0 {
		fmt.Println("nothing to rebuild")
		return
	}

	rebuilt, skipped := 0, 0
	for _, cell := range cells {
		summary, err := models.RecomputeMonthlySummary(ctx,
			cell.MdaId, cell.RevenueSourceId, cell.BranchScopeKey, cell.RevenueYear, cell.RevenueMonth)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed cell mda=%d source=%d branch=%d %d-%02d: %v\n",
				cell.MdaId, cell.RevenueSourceId, cell.BranchScopeKey, cell.RevenueYear, cell.RevenueMonth, err)
			os.Exit(1)
		}
		if summary.IsManual {
			skipped++
			continue
		}
		rebuilt++
	}
	fmt.Printf("rebuilt %d summaries, skipped %d pinned months\n", rebuilt, skipped)
}
