package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/ktirsdata/ntr_backend/models/reports"
)

func MdaPerformanceReportHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		mdaId, ok := intParam(c, "id")
		if !ok {
			return
		}
		year := intQuery(c, "year", 0)
		if year <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "year is required"})
			return
		}
		report, err := reports.GetMdaPerformanceReport(c.Request.Context(), mdaId, year)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, report)
	}
}

func AnalyticsReportHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		year := intQuery(c, "year", 0)
		if year <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "year is required"})
			return
		}
		topN := intQuery(c, "top", 5)
		report, err := reports.GetAnalyticsReport(c.Request.Context(), year, topN)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, report)
	}
}

func MdaComparisonReportHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		year := intQuery(c, "year", 0)
		if year <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "year is required"})
			return
		}
		var mdaIds []int
		for _, part := range strings.Split(c.Query("mda_ids"), ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			id, err := strconv.Atoi(part)
			if err != nil || id <= 0 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid mda_ids"})
				return
			}
			mdaIds = append(mdaIds, id)
		}
		rows, err := reports.GetMdaComparisonReport(c.Request.Context(), year, mdaIds)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, rows)
	}
}

func RevenueBySourceReportHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		year := intQuery(c, "year", 0)
		if year <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "year is required"})
			return
		}
		month := intQuery(c, "month", 0) // 0 = year to date
		mdaId := intQuery(c, "mda_id", 0)
		report, err := reports.GetRevenueBySourceReport(c.Request.Context(), year, month, mdaId, c.Query("search"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, report)
	}
}

func DashboardReportHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		report, err := reports.GetDashboardReport(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, report)
	}
}

func ExportMdaPerformanceHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		mdaId, ok := intParam(c, "id")
		if !ok {
			return
		}
		year := intQuery(c, "year", 0)
		if year <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "year is required"})
			return
		}
		f, err := reports.ExportMdaPerformanceExcel(c.Request.Context(), mdaId, year)
		if err != nil {
			respondError(c, err)
			return
		}
		filename := fmt.Sprintf("mda-%d-performance-%d.xlsx", mdaId, year)
		c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		c.Header("Content-Disposition", "attachment; filename="+filename)
		if err := f.Write(c.Writer); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to write file"})
		}
	}
}
