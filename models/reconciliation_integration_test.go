package models_test

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ktirsdata/ntr_backend/config"
	"github.com/ktirsdata/ntr_backend/models"
	"github.com/ktirsdata/ntr_backend/models/reports"
	"github.com/ktirsdata/ntr_backend/utils"
	"github.com/shopspring/decimal"
)

// Core reconciliation behavior: daily posts accumulate into the month's
// summary, a re-post for the same day replaces rather than duplicates, and
// a manual override pins the month against any further daily activity.
func TestRecordDailyRevenue_ReconcilesMonthlySummary(t *testing.T) {
	ctx := setupIntegration(t)

	mda, source := seedMdaWithSource(t, ctx, "MOH", "Ministry of Health", "MOH-001")

	// first post creates the summary
	res, err := models.RecordDailyRevenue(ctx, &models.NewDailyRevenue{
		MdaId:           mda.ID,
		RevenueSourceId: source.ID,
		EntryDate:       "2024-03-05",
		Amount:          "1000.00",
	})
	if err != nil {
		t.Fatalf("RecordDailyRevenue: %v", err)
	}
	if !res.MonthTotal.Equal(decimal.RequireFromString("1000.00")) {
		t.Fatalf("month total after first post = %s, want 1000.00", res.MonthTotal)
	}
	if res.MonthIsManual {
		t.Fatalf("month should not be manual after a daily post")
	}

	// second day accumulates
	res, err = models.RecordDailyRevenue(ctx, &models.NewDailyRevenue{
		MdaId:           mda.ID,
		RevenueSourceId: source.ID,
		EntryDate:       "2024-03-06",
		Amount:          "250.50",
	})
	if err != nil {
		t.Fatalf("RecordDailyRevenue day 2: %v", err)
	}
	if !res.MonthTotal.Equal(decimal.RequireFromString("1250.50")) {
		t.Fatalf("month total after second post = %s, want 1250.50", res.MonthTotal)
	}

	// re-posting the same day replaces the amount, not adds to it
	res, err = models.RecordDailyRevenue(ctx, &models.NewDailyRevenue{
		MdaId:           mda.ID,
		RevenueSourceId: source.ID,
		EntryDate:       "2024-03-05",
		Amount:          "1500.00",
	})
	if err != nil {
		t.Fatalf("RecordDailyRevenue re-post: %v", err)
	}
	if !res.MonthTotal.Equal(decimal.RequireFromString("1750.50")) {
		t.Fatalf("month total after re-post = %s, want 1750.50", res.MonthTotal)
	}

	// the summary always equals the sum of the month's daily entries
	entries, err := models.ReadDailyEntries(ctx, mda.ID, source.ID, 0, 2024, 3)
	if err != nil {
		t.Fatalf("ReadDailyEntries: %v", err)
	}
	sum := decimal.Zero
	for _, e := range entries {
		sum = sum.Add(e.Amount)
	}
	summary, err := models.ReadMonthlySummary(ctx, mda.ID, source.ID, 0, 2024, 3)
	if err != nil {
		t.Fatalf("ReadMonthlySummary: %v", err)
	}
	if !summary.Amount.Equal(sum) {
		t.Fatalf("summary %s != sum of daily entries %s", summary.Amount, sum)
	}

	// pin the month; the summary takes the pinned figure
	pinned, err := models.SetMonthlyOverride(ctx, &models.NewMonthlyOverride{
		MdaId:           mda.ID,
		RevenueSourceId: source.ID,
		RevenueYear:     2024,
		RevenueMonth:    3,
		Amount:          "9999.99",
	})
	if err != nil {
		t.Fatalf("SetMonthlyOverride: %v", err)
	}
	if !pinned.IsManual {
		t.Fatalf("override did not set is_manual")
	}

	// daily posts keep landing in the ledger but no longer move the summary
	res, err = models.RecordDailyRevenue(ctx, &models.NewDailyRevenue{
		MdaId:           mda.ID,
		RevenueSourceId: source.ID,
		EntryDate:       "2024-03-07",
		Amount:          "100.00",
	})
	if err != nil {
		t.Fatalf("RecordDailyRevenue after pin: %v", err)
	}
	if !res.MonthIsManual {
		t.Fatalf("post after pin should report the month as manual")
	}
	if !res.MonthTotal.Equal(decimal.RequireFromString("9999.99")) {
		t.Fatalf("pinned month moved to %s, want 9999.99", res.MonthTotal)
	}

	entries, err = models.ReadDailyEntries(ctx, mda.ID, source.ID, 0, 2024, 3)
	if err != nil {
		t.Fatalf("ReadDailyEntries after pin: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("daily ledger len = %d, want 3 (pin must not drop entries)", len(entries))
	}

	// the override wins even when re-applied over the pin
	pinned, err = models.SetMonthlyOverride(ctx, &models.NewMonthlyOverride{
		MdaId:           mda.ID,
		RevenueSourceId: source.ID,
		RevenueYear:     2024,
		RevenueMonth:    3,
		Amount:          "5000.00",
	})
	if err != nil {
		t.Fatalf("SetMonthlyOverride second: %v", err)
	}
	if !pinned.Amount.Equal(decimal.RequireFromString("5000.00")) || !pinned.IsManual {
		t.Fatalf("second override = %s manual=%v, want 5000.00 manual=true", pinned.Amount, pinned.IsManual)
	}
}

func TestRecordDailyRevenue_Validation(t *testing.T) {
	ctx := setupIntegration(t)

	mda, source := seedMdaWithSource(t, ctx, "MOE", "Ministry of Education", "MOE-001")

	// negative amounts never reach the ledger
	_, err := models.RecordDailyRevenue(ctx, &models.NewDailyRevenue{
		MdaId:           mda.ID,
		RevenueSourceId: source.ID,
		EntryDate:       "2024-01-10",
		Amount:          "-5.00",
	})
	if err == nil || !strings.Contains(err.Error(), "negative") {
		t.Fatalf("negative amount accepted: %v", err)
	}

	// malformed date
	_, err = models.RecordDailyRevenue(ctx, &models.NewDailyRevenue{
		MdaId:           mda.ID,
		RevenueSourceId: source.ID,
		EntryDate:       "10/01/2024",
		Amount:          "5.00",
	})
	if err == nil {
		t.Fatalf("malformed date accepted")
	}

	// a source from another MDA is an integrity failure
	otherMda, otherSource := seedMdaWithSource(t, ctx, "MOW", "Ministry of Works", "MOW-001")
	_ = otherMda
	_, err = models.RecordDailyRevenue(ctx, &models.NewDailyRevenue{
		MdaId:           mda.ID,
		RevenueSourceId: otherSource.ID,
		EntryDate:       "2024-01-10",
		Amount:          "5.00",
	})
	if err == nil || !strings.Contains(err.Error(), "belong") {
		t.Fatalf("cross-mda source accepted: %v", err)
	}

	// inactive sources stop accepting posts
	if _, err := models.ToggleActiveRevenueSource(ctx, source.ID, false); err != nil {
		t.Fatalf("ToggleActiveRevenueSource: %v", err)
	}
	_, err = models.RecordDailyRevenue(ctx, &models.NewDailyRevenue{
		MdaId:           mda.ID,
		RevenueSourceId: source.ID,
		EntryDate:       "2024-01-10",
		Amount:          "5.00",
	})
	if err == nil || !strings.Contains(err.Error(), "inactive") {
		t.Fatalf("inactive source accepted a post: %v", err)
	}

	// the override path holds the same integrity bar as daily posting
	_, err = models.SetMonthlyOverride(ctx, &models.NewMonthlyOverride{
		MdaId:           mda.ID,
		RevenueSourceId: source.ID,
		RevenueYear:     2024,
		RevenueMonth:    1,
		Amount:          "5.00",
	})
	if err == nil || !strings.Contains(err.Error(), "inactive") {
		t.Fatalf("inactive source accepted an override: %v", err)
	}
	_, err = models.SetMonthlyOverride(ctx, &models.NewMonthlyOverride{
		MdaId:           mda.ID,
		RevenueSourceId: otherSource.ID,
		RevenueYear:     2024,
		RevenueMonth:    1,
		Amount:          "5.00",
	})
	if err == nil || !strings.Contains(err.Error(), "belong") {
		t.Fatalf("cross-mda override accepted: %v", err)
	}
}

// Branch partitions keep independent ledgers and summaries; the MDA rollup
// crosses them explicitly.
func TestBranchPartitionsStayIndependent(t *testing.T) {
	ctx := setupIntegration(t)

	mda, source := seedMdaWithSource(t, ctx, "MOT", "Ministry of Transport", "MOT-001")
	branch, err := models.CreateMdaBranch(ctx, &models.NewMdaBranch{
		MdaId: mda.ID,
		Name:  "Zonal Office",
	})
	if err != nil {
		t.Fatalf("CreateMdaBranch: %v", err)
	}

	// same source, same day, headquarters and branch
	if _, err := models.RecordDailyRevenue(ctx, &models.NewDailyRevenue{
		MdaId:           mda.ID,
		RevenueSourceId: source.ID,
		EntryDate:       "2024-06-01",
		Amount:          "100.00",
	}); err != nil {
		t.Fatalf("headquarters post: %v", err)
	}
	if _, err := models.RecordDailyRevenue(ctx, &models.NewDailyRevenue{
		MdaId:           mda.ID,
		RevenueSourceId: source.ID,
		BranchId:        branch.ID,
		EntryDate:       "2024-06-01",
		Amount:          "40.00",
	}); err != nil {
		t.Fatalf("branch post: %v", err)
	}

	hq, err := models.ReadMonthlySummary(ctx, mda.ID, source.ID, 0, 2024, 6)
	if err != nil {
		t.Fatalf("ReadMonthlySummary hq: %v", err)
	}
	br, err := models.ReadMonthlySummary(ctx, mda.ID, source.ID, branch.ID, 2024, 6)
	if err != nil {
		t.Fatalf("ReadMonthlySummary branch: %v", err)
	}
	if !hq.Amount.Equal(decimal.RequireFromString("100.00")) || !br.Amount.Equal(decimal.RequireFromString("40.00")) {
		t.Fatalf("partitions bled: hq=%s branch=%s", hq.Amount, br.Amount)
	}

	total, err := models.ReadMdaMonthlyTotal(ctx, mda.ID, 2024, 6)
	if err != nil {
		t.Fatalf("ReadMdaMonthlyTotal: %v", err)
	}
	if !total.Equal(decimal.RequireFromString("140.00")) {
		t.Fatalf("mda rollup = %s, want 140.00", total)
	}
}

// A month with no rows reads as a zero, non-manual figure.
func TestReadMonthlySummary_EmptyMonthIsZero(t *testing.T) {
	ctx := setupIntegration(t)

	mda, source := seedMdaWithSource(t, ctx, "MOJ", "Ministry of Justice", "MOJ-001")

	summary, err := models.ReadMonthlySummary(ctx, mda.ID, source.ID, 0, 2024, 11)
	if err != nil {
		t.Fatalf("ReadMonthlySummary: %v", err)
	}
	if !summary.Amount.IsZero() || summary.IsManual {
		t.Fatalf("empty month = %s manual=%v, want 0 manual=false", summary.Amount, summary.IsManual)
	}
}

// An override on an untouched month creates the pinned cell outright, and
// later daily posts cannot move it.
func TestSetMonthlyOverride_BeforeAnyDailyEntry(t *testing.T) {
	ctx := setupIntegration(t)

	mda, source := seedMdaWithSource(t, ctx, "MOF", "Ministry of Finance", "MOF-001")

	pinned, err := models.SetMonthlyOverride(ctx, &models.NewMonthlyOverride{
		MdaId:           mda.ID,
		RevenueSourceId: source.ID,
		RevenueYear:     2024,
		RevenueMonth:    8,
		Amount:          "777.00",
	})
	if err != nil {
		t.Fatalf("SetMonthlyOverride: %v", err)
	}
	if !pinned.IsManual || !pinned.Amount.Equal(decimal.RequireFromString("777.00")) {
		t.Fatalf("pin on empty month = %s manual=%v", pinned.Amount, pinned.IsManual)
	}

	res, err := models.RecordDailyRevenue(ctx, &models.NewDailyRevenue{
		MdaId:           mda.ID,
		RevenueSourceId: source.ID,
		EntryDate:       "2024-08-15",
		Amount:          "50.00",
	})
	if err != nil {
		t.Fatalf("RecordDailyRevenue: %v", err)
	}
	if !res.MonthTotal.Equal(decimal.RequireFromString("777.00")) || !res.MonthIsManual {
		t.Fatalf("pre-pinned month moved: %s manual=%v", res.MonthTotal, res.MonthIsManual)
	}
}

func TestBackfillSkipsPinnedMonths(t *testing.T) {
	ctx := setupIntegration(t)

	mda, source := seedMdaWithSource(t, ctx, "MOA", "Ministry of Agriculture", "MOA-001")

	if _, err := models.RecordDailyRevenue(ctx, &models.NewDailyRevenue{
		MdaId:           mda.ID,
		RevenueSourceId: source.ID,
		EntryDate:       "2024-02-01",
		Amount:          "300.00",
	}); err != nil {
		t.Fatalf("RecordDailyRevenue: %v", err)
	}
	if _, err := models.SetMonthlyOverride(ctx, &models.NewMonthlyOverride{
		MdaId:           mda.ID,
		RevenueSourceId: source.ID,
		RevenueYear:     2024,
		RevenueMonth:    2,
		Amount:          "1234.00",
	}); err != nil {
		t.Fatalf("SetMonthlyOverride: %v", err)
	}

	summary, err := models.RecomputeMonthlySummary(ctx, mda.ID, source.ID, 0, 2024, 2)
	if err != nil {
		t.Fatalf("RecomputeMonthlySummary: %v", err)
	}
	if !summary.IsManual || !summary.Amount.Equal(decimal.RequireFromString("1234.00")) {
		t.Fatalf("recompute broke the pin: %s manual=%v", summary.Amount, summary.IsManual)
	}
}

func TestHistoryRecordsRevenueActivity(t *testing.T) {
	ctx := setupIntegration(t)

	mda, source := seedMdaWithSource(t, ctx, "MOI", "Ministry of Information", "MOI-001")

	if _, err := models.RecordDailyRevenue(ctx, &models.NewDailyRevenue{
		MdaId:           mda.ID,
		RevenueSourceId: source.ID,
		EntryDate:       "2024-04-10",
		Amount:          "42.00",
	}); err != nil {
		t.Fatalf("RecordDailyRevenue: %v", err)
	}

	page, err := models.GetHistoryPage(ctx, &models.HistoryFilter{
		MdaId: mda.ID,
		Year:  2024,
		Month: 4,
	})
	if err != nil {
		t.Fatalf("GetHistoryPage: %v", err)
	}
	if page.TotalCount == 0 {
		t.Fatalf("no audit rows for the revenue post")
	}
	found := false
	for _, h := range page.Records {
		if h.ReferenceType == models.ReferenceTypeDailyEntry && h.RevenueMonth == 4 {
			found = true
			break
		}
	}
	if !found {
		t.Fatalf("audit rows missing the daily entry reference")
	}
}

// Near-simultaneous posts to the same cell must serialize: the final summary
// reflects every entry, never a partial interleaving.
func TestConcurrentDailyPostsReconcile(t *testing.T) {
	ctx := setupIntegration(t)

	mda, source := seedMdaWithSource(t, ctx, "MLG", "Ministry of Local Government", "MLG-001")

	amounts := map[string]string{
		"2024-05-01": "10.00",
		"2024-05-02": "20.00",
		"2024-05-03": "30.00",
		"2024-05-04": "40.00",
		"2024-05-05": "50.00",
		"2024-05-06": "60.00",
	}

	var wg sync.WaitGroup
	errs := make(chan error, len(amounts))
	for date, amount := range amounts {
		wg.Add(1)
		go func(date, amount string) {
			defer wg.Done()
			_, err := models.RecordDailyRevenue(ctx, &models.NewDailyRevenue{
				MdaId:           mda.ID,
				RevenueSourceId: source.ID,
				EntryDate:       date,
				Amount:          amount,
			})
			if err != nil {
				errs <- fmt.Errorf("post %s: %w", date, err)
			}
		}(date, amount)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent RecordDailyRevenue: %v", err)
	}

	summary, err := models.ReadMonthlySummary(ctx, mda.ID, source.ID, 0, 2024, 5)
	if err != nil {
		t.Fatalf("ReadMonthlySummary: %v", err)
	}
	if !summary.Amount.Equal(decimal.RequireFromString("210.00")) {
		t.Fatalf("month total after concurrent posts = %s, want 210.00", summary.Amount)
	}

	entries, err := models.ReadDailyEntries(ctx, mda.ID, source.ID, 0, 2024, 5)
	if err != nil {
		t.Fatalf("ReadDailyEntries: %v", err)
	}
	sum := decimal.Zero
	for _, e := range entries {
		sum = sum.Add(e.Amount)
	}
	if !summary.Amount.Equal(sum) {
		t.Fatalf("summary %s != sum of daily entries %s", summary.Amount, sum)
	}
}

// Officers post and pin months for their own MDA without admin rights.
func TestOfficerPostsAndPinsOwnMda(t *testing.T) {
	ctx := setupIntegration(t)

	mda, source := seedMdaWithSource(t, ctx, "MCD", "Ministry of Community Development", "MCD-001")

	officer := context.Background()
	officer = utils.SetUserIdInContext(officer, 7)
	officer = utils.SetUserNameInContext(officer, "Desk Officer")
	officer = utils.SetEmailInContext(officer, "officer@local")
	officer = utils.SetIsAdminInContext(officer, false)
	officer = utils.SetMdaIdInContext(officer, mda.ID)

	res, err := models.RecordDailyRevenue(officer, &models.NewDailyRevenue{
		MdaId:           mda.ID,
		RevenueSourceId: source.ID,
		EntryDate:       "2024-07-03",
		Amount:          "120.00",
	})
	if err != nil {
		t.Fatalf("officer RecordDailyRevenue: %v", err)
	}
	if !res.MonthTotal.Equal(decimal.RequireFromString("120.00")) {
		t.Fatalf("officer post total = %s, want 120.00", res.MonthTotal)
	}

	pinned, err := models.SetMonthlyOverride(officer, &models.NewMonthlyOverride{
		MdaId:           mda.ID,
		RevenueSourceId: source.ID,
		RevenueYear:     2024,
		RevenueMonth:    7,
		Amount:          "4444.00",
	})
	if err != nil {
		t.Fatalf("officer SetMonthlyOverride: %v", err)
	}
	if !pinned.IsManual || !pinned.Amount.Equal(decimal.RequireFromString("4444.00")) {
		t.Fatalf("officer pin = %s manual=%v, want 4444.00 manual=true", pinned.Amount, pinned.IsManual)
	}

	res, err = models.RecordDailyRevenue(officer, &models.NewDailyRevenue{
		MdaId:           mda.ID,
		RevenueSourceId: source.ID,
		EntryDate:       "2024-07-04",
		Amount:          "5.00",
	})
	if err != nil {
		t.Fatalf("officer RecordDailyRevenue after pin: %v", err)
	}
	if !res.MonthIsManual || !res.MonthTotal.Equal(decimal.RequireFromString("4444.00")) {
		t.Fatalf("officer pin moved: %s manual=%v", res.MonthTotal, res.MonthIsManual)
	}
}

func TestRevenueBySourceReport(t *testing.T) {
	ctx := setupIntegration(t)

	mdaA, sourceA := seedMdaWithSource(t, ctx, "MOH", "Ministry of Health", "MOH-001")
	mdaB, sourceB := seedMdaWithSource(t, ctx, "MOE", "Ministry of Education", "MOE-001")

	if _, err := models.RecordDailyRevenue(ctx, &models.NewDailyRevenue{
		MdaId:           mdaA.ID,
		RevenueSourceId: sourceA.ID,
		EntryDate:       "2024-03-10",
		Amount:          "600.00",
	}); err != nil {
		t.Fatalf("RecordDailyRevenue A: %v", err)
	}
	if _, err := models.RecordDailyRevenue(ctx, &models.NewDailyRevenue{
		MdaId:           mdaB.ID,
		RevenueSourceId: sourceB.ID,
		EntryDate:       "2024-05-10",
		Amount:          "400.00",
	}); err != nil {
		t.Fatalf("RecordDailyRevenue B: %v", err)
	}
	if _, err := models.SetSourceBudget(ctx, &models.NewSourceBudget{
		RevenueSourceId: sourceA.ID,
		BudgetYear:      2024,
		Amount:          "1200.00",
	}); err != nil {
		t.Fatalf("SetSourceBudget: %v", err)
	}

	// year to date sees both sources
	report, err := reports.GetRevenueBySourceReport(ctx, 2024, 0, 0, "")
	if err != nil {
		t.Fatalf("GetRevenueBySourceReport ytd: %v", err)
	}
	if len(report.Rows) != 2 {
		t.Fatalf("ytd rows = %d, want 2", len(report.Rows))
	}
	if !report.Total.Equal(decimal.RequireFromString("1000.00")) {
		t.Fatalf("ytd total = %s, want 1000.00", report.Total)
	}
	for _, row := range report.Rows {
		if row.RevenueSourceId == sourceA.ID {
			if !row.Budget.Equal(decimal.RequireFromString("1200.00")) {
				t.Fatalf("source A budget = %s, want 1200.00", row.Budget)
			}
			if !row.Performance.Equal(decimal.RequireFromString("50")) {
				t.Fatalf("source A performance = %s, want 50", row.Performance)
			}
		}
	}

	// a single month drops the other month's figure
	report, err = reports.GetRevenueBySourceReport(ctx, 2024, 3, 0, "")
	if err != nil {
		t.Fatalf("GetRevenueBySourceReport month: %v", err)
	}
	if !report.Total.Equal(decimal.RequireFromString("600.00")) {
		t.Fatalf("march total = %s, want 600.00", report.Total)
	}

	// MDA filter
	report, err = reports.GetRevenueBySourceReport(ctx, 2024, 0, mdaB.ID, "")
	if err != nil {
		t.Fatalf("GetRevenueBySourceReport mda filter: %v", err)
	}
	if len(report.Rows) != 1 || report.Rows[0].RevenueSourceId != sourceB.ID {
		t.Fatalf("mda filter returned wrong rows")
	}

	// text search over source name
	report, err = reports.GetRevenueBySourceReport(ctx, 2024, 0, 0, "Health")
	if err != nil {
		t.Fatalf("GetRevenueBySourceReport search: %v", err)
	}
	if len(report.Rows) != 1 || report.Rows[0].RevenueSourceId != sourceA.ID {
		t.Fatalf("search returned wrong rows")
	}
}

// A corrupt stored hash must read as a failed login, never a pass-through.
func TestLoginRejectsCorruptPasswordHash(t *testing.T) {
	ctx := setupIntegration(t)

	email := "broken@local"
	if _, err := models.CreateProfile(ctx, &models.NewProfile{
		Email:    email,
		FullName: "Broken Hash",
		Password: "correct-horse-1",
		Role:     string(models.GlobalRoleAdmin),
	}); err != nil {
		t.Fatalf("CreateProfile: %v", err)
	}

	db := config.GetDB()
	if err := db.Exec("UPDATE profiles SET password = ? WHERE email = ?", "not-a-bcrypt-hash", email).Error; err != nil {
		t.Fatalf("corrupt hash: %v", err)
	}
	_ = config.RemoveRedisKey("Profile:" + email)

	if _, err := models.Login(ctx, email, "correct-horse-1"); err == nil {
		t.Fatalf("login succeeded against a corrupt hash")
	}
}

// --- shared test plumbing ---

func setupIntegration(t *testing.T) context.Context {
	t.Helper()
	if strings.TrimSpace(os.Getenv("INTEGRATION_TESTS")) == "" {
		t.Skip("set INTEGRATION_TESTS=1 to run integration tests (requires docker)")
	}

	ctx := context.Background()

	redisName, redisPort := startRedisContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(redisName) })

	mysqlName, mysqlPort := startMySQLContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(mysqlName) })

	t.Setenv("REDIS_ADDRESS", fmt.Sprintf("127.0.0.1:%s", redisPort))
	t.Setenv("DB_USER", "root")
	t.Setenv("DB_PASSWORD", "testpw")
	t.Setenv("DB_HOST", "127.0.0.1")
	t.Setenv("DB_PORT", mysqlPort)
	t.Setenv("DB_NAME", "ntr_test")

	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()
	models.MigrateTable()

	ctx = utils.SetUserIdInContext(ctx, 1)
	ctx = utils.SetUserNameInContext(ctx, "Test Admin")
	ctx = utils.SetEmailInContext(ctx, "test@local")
	ctx = utils.SetIsAdminInContext(ctx, true)

	return ctx
}

func seedMdaWithSource(t *testing.T, ctx context.Context, code, name, sourceCode string) (*models.Mda, *models.RevenueSource) {
	t.Helper()
	mda, err := models.CreateMda(ctx, &models.NewMda{Code: code, Name: name, Sector: "General"})
	if err != nil {
		t.Fatalf("CreateMda %s: %v", code, err)
	}
	source, err := models.CreateRevenueSource(ctx, &models.NewRevenueSource{
		MdaId: mda.ID,
		Code:  sourceCode,
		Name:  name + " Fees",
	})
	if err != nil {
		t.Fatalf("CreateRevenueSource %s: %v", sourceCode, err)
	}
	return mda, source
}

func startRedisContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("ntr-test-redis-%d", time.Now().UnixNano())
	out, err := dockerRun(
		"run", "-d", "--name", name,
		"-p", "127.0.0.1:0:6379",
		"redis:7-alpine",
	)
	if err != nil {
		t.Fatalf("start redis container: %v\n%s", err, out)
	}
	port, err := dockerHostPort(name, "6379/tcp")
	if err != nil {
		t.Fatalf("redis docker port: %v", err)
	}
	// wait until ready
	deadline := time.Now().Add(60 * time.Second)
	for time.Now().Before(deadline) {
		_, err := dockerRun("exec", name, "redis-cli", "ping")
		if err == nil {
			return name, port
		}
		time.Sleep(250 * time.Millisecond)
	}
	t.Fatalf("redis did not become ready")
	return "", ""
}

func startMySQLContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("ntr-test-mysql-%d", time.Now().UnixNano())
	out, err := dockerRun(
		"run", "-d", "--name", name,
		"-e", "MYSQL_ROOT_PASSWORD=testpw",
		"-e", "MYSQL_DATABASE=ntr_test",
		"-p", "127.0.0.1:0:3306",
		"mysql:8.0",
		"--default-authentication-plugin=mysql_native_password",
	)
	if err != nil {
		t.Fatalf("start mysql container: %v\n%s", err, out)
	}
	port, err := dockerHostPort(name, "3306/tcp")
	if err != nil {
		t.Fatalf("mysql docker port: %v", err)
	}
	// wait until ready
	deadline := time.Now().Add(120 * time.Second)
	for time.Now().Before(deadline) {
		_, err := dockerRun("exec", name, "mysqladmin", "ping", "-h", "127.0.0.1", "-ptestpw", "--silent")
		if err == nil {
			return name, port
		}
		time.Sleep(500 * time.Millisecond)
	}
	t.Fatalf("mysql did not become ready")
	return "", ""
}

func dockerHostPort(container, portProto string) (string, error) {
	out, err := dockerRun("port", container, portProto)
	if err != nil {
		return "", fmt.Errorf("docker port: %w: %s", err, out)
	}
	// Example: "127.0.0.1:49154\n"
	re := regexp.MustCompile(`:(\d+)`)
	m := re.FindStringSubmatch(out)
	if len(m) != 2 {
		return "", fmt.Errorf("unexpected docker port output: %q", out)
	}
	return m[1], nil
}

func dockerRmForce(container string) error {
	if strings.TrimSpace(container) == "" {
		return nil
	}
	_, err := dockerRun("rm", "-f", container)
	return err
}

func dockerRun(args ...string) (string, error) {
	cmd := exec.Command("docker", args...)
	b, err := cmd.CombinedOutput()
	return string(b), err
}
