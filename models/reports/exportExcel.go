package reports

import (
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"
)

var monthHeaders = [12]string{
	"Jan", "Feb", "Mar", "Apr", "May", "Jun",
	"Jul", "Aug", "Sep", "Oct", "Nov", "Dec",
}

// ExportMdaPerformanceExcel renders the MDA performance grid as a workbook:
// one row per revenue source, months across, totals and budget tracking at
// the right edge, a grand-total row at the bottom.
func ExportMdaPerformanceExcel(ctx context.Context, mdaId int, year int) (*excelize.File, error) {
	report, err := GetMdaPerformanceReport(ctx, mdaId, year)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	sheet := "Sheet1"
	if _, err := f.NewSheet(sheet); err != nil {
		return nil, err
	}

	f.SetCellValue(sheet, "A1", fmt.Sprintf("%s — %d Revenue Performance", report.MdaName, report.Year))

	// header row
	f.SetCellValue(sheet, "A3", "Revenue Source")
	for i, m := range monthHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+2, 3)
		f.SetCellValue(sheet, cell, m)
	}
	for i, h := range []string{"Total", "Budget", "Variance", "Performance %"} {
		cell, _ := excelize.CoordinatesToCellName(14+i, 3)
		f.SetCellValue(sheet, cell, h)
	}

	row := 4
	for _, r := range report.Rows {
		cell, _ := excelize.CoordinatesToCellName(1, row)
		f.SetCellValue(sheet, cell, r.SourceName)
		for i, m := range r.Monthly {
			cell, _ := excelize.CoordinatesToCellName(i+2, row)
			f.SetCellValue(sheet, cell, m.InexactFloat64())
		}
		for i, v := range []float64{
			r.Total.InexactFloat64(),
			r.Budget.InexactFloat64(),
			r.Variance.InexactFloat64(),
			r.Performance.InexactFloat64(),
		} {
			cell, _ := excelize.CoordinatesToCellName(14+i, row)
			f.SetCellValue(sheet, cell, v)
		}
		row++
	}

	cell, _ := excelize.CoordinatesToCellName(1, row)
	f.SetCellValue(sheet, cell, "Total")
	for i, v := range []float64{
		report.Total.InexactFloat64(),
		report.Budget.InexactFloat64(),
		report.Variance.InexactFloat64(),
		report.Performance.InexactFloat64(),
	} {
		cell, _ := excelize.CoordinatesToCellName(14+i, row)
		f.SetCellValue(sheet, cell, v)
	}

	return f, nil
}
