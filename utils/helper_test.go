package utils_test

import (
	"errors"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/ktirsdata/ntr_backend/utils"
)

// Only validator errors map to a field breakdown; anything else (a JSON
// syntax error, say) must come back nil instead of panicking.
func TestProcessValidationErrors(t *testing.T) {
	v := validator.New()
	err := v.Struct(struct {
		Name string `validate:"required"`
	}{})
	fields := utils.ProcessValidationErrors(err)
	if fields["Name"] != "required" {
		t.Fatalf("fields = %v, want Name:required", fields)
	}

	if fields := utils.ProcessValidationErrors(errors.New("unexpected EOF")); fields != nil {
		t.Fatalf("non-validator error mapped to fields: %v", fields)
	}
}

func TestParseRevenueDate(t *testing.T) {
	d, err := utils.ParseRevenueDate("2024-02-29")
	if err != nil {
		t.Fatalf("ParseRevenueDate: %v", err)
	}
	if d.Year() != 2024 || d.Month() != time.February || d.Day() != 29 {
		t.Fatalf("parsed %v, want 2024-02-29", d)
	}
	if d.Location() != time.UTC {
		t.Fatalf("dates must be UTC, got %v", d.Location())
	}

	for _, bad := range []string{"2024-13-01", "2024-02-30", "01/02/2024", "2024-2-1", ""} {
		if _, err := utils.ParseRevenueDate(bad); err == nil {
			t.Fatalf("ParseRevenueDate(%q) accepted", bad)
		}
	}
}

func TestIsValidReportingYear(t *testing.T) {
	for _, y := range []int{1900, 2024, 2200} {
		if !utils.IsValidReportingYear(y) {
			t.Fatalf("year %d rejected", y)
		}
	}
	for _, y := range []int{1899, 2201, 0, -5} {
		if utils.IsValidReportingYear(y) {
			t.Fatalf("year %d accepted", y)
		}
	}
}

func TestMonthRange(t *testing.T) {
	start, end := utils.MonthRange(2024, time.February)
	if !start.Equal(time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("start = %v", start)
	}
	// leap year: end is exclusive, first instant of March
	if !end.Equal(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("end = %v", end)
	}

	// December rolls into the next year
	start, end = utils.MonthRange(2023, time.December)
	if !start.Equal(time.Date(2023, 12, 1, 0, 0, 0, 0, time.UTC)) || !end.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("december range = [%v, %v)", start, end)
	}
}

func TestDaysInMonth(t *testing.T) {
	cases := map[time.Month]int{
		time.January:  31,
		time.February: 29, // 2024 is a leap year
		time.April:    30,
	}
	for month, want := range cases {
		if got := utils.DaysInMonth(2024, month); got != want {
			t.Fatalf("DaysInMonth(2024, %v) = %d, want %d", month, got, want)
		}
	}
	if got := utils.DaysInMonth(2023, time.February); got != 28 {
		t.Fatalf("DaysInMonth(2023, February) = %d, want 28", got)
	}
}

func TestParseDecimal(t *testing.T) {
	d, err := utils.ParseDecimal("1234.56")
	if err != nil {
		t.Fatalf("ParseDecimal: %v", err)
	}
	if d.StringFixed(2) != "1234.56" {
		t.Fatalf("got %s", d.StringFixed(2))
	}
	if _, err := utils.ParseDecimal("12,34"); err == nil {
		t.Fatalf("ParseDecimal accepted garbage")
	}
	if _, err := utils.ParseDecimal(""); err == nil {
		t.Fatalf("ParseDecimal accepted empty string")
	}
}
