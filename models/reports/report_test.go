package reports_test

import (
	"testing"

	"github.com/ktirsdata/ntr_backend/models/reports"
	"github.com/shopspring/decimal"
)

func TestPerformanceRatio(t *testing.T) {
	cases := []struct {
		name      string
		collected string
		budget    string
		want      string
	}{
		{"on target", "1000", "1000", "100"},
		{"half way", "500", "1000", "50"},
		{"over target", "1500", "1000", "150"},
		{"zero budget reads as zero", "1234.56", "0", "0"},
		{"zero collected", "0", "1000", "0"},
		{"rounds to two places", "1", "3", "33.33"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := reports.PerformanceRatio(
				decimal.RequireFromString(tc.collected),
				decimal.RequireFromString(tc.budget),
			)
			if !got.Equal(decimal.RequireFromString(tc.want)) {
				t.Fatalf("PerformanceRatio(%s, %s) = %s, want %s", tc.collected, tc.budget, got, tc.want)
			}
		})
	}
}

func TestVariance(t *testing.T) {
	got := reports.Variance(decimal.RequireFromString("800"), decimal.RequireFromString("1000"))
	if !got.Equal(decimal.RequireFromString("200")) {
		t.Fatalf("under target variance = %s, want 200", got)
	}
	got = reports.Variance(decimal.RequireFromString("1200"), decimal.RequireFromString("1000"))
	if !got.Equal(decimal.RequireFromString("-200")) {
		t.Fatalf("over target variance = %s, want -200", got)
	}
}

// Ties must keep their incoming order so a refresh never reshuffles the
// ranking table.
func TestRankMdaTotals_StableOnTies(t *testing.T) {
	totals := []*reports.MdaYearTotal{
		{MdaId: 1, MdaName: "Agriculture", Total: decimal.RequireFromString("100")},
		{MdaId: 2, MdaName: "Education", Total: decimal.RequireFromString("300")},
		{MdaId: 3, MdaName: "Health", Total: decimal.RequireFromString("100")},
		{MdaId: 4, MdaName: "Works", Total: decimal.RequireFromString("300")},
	}
	reports.RankMdaTotals(totals)

	wantOrder := []int{2, 4, 1, 3}
	for i, want := range wantOrder {
		if totals[i].MdaId != want {
			t.Fatalf("rank %d = mda %d, want %d", i, totals[i].MdaId, want)
		}
	}
}
