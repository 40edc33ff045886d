package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ktirsdata/ntr_backend/models"
	"github.com/ktirsdata/ntr_backend/utils"
)

func CreateRevenueSourceHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewRevenueSource
		if err := c.ShouldBindJSON(&input); err != nil {
			respondBindingError(c, err)
			return
		}
		source, err := models.CreateRevenueSource(c.Request.Context(), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, source)
	}
}

func UpdateRevenueSourceHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := intParam(c, "id")
		if !ok {
			return
		}
		var input models.NewRevenueSource
		if err := c.ShouldBindJSON(&input); err != nil {
			respondBindingError(c, err)
			return
		}
		source, err := models.UpdateRevenueSource(c.Request.Context(), id, &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, source)
	}
}

func DeleteRevenueSourceHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := intParam(c, "id")
		if !ok {
			return
		}
		source, err := models.DeleteRevenueSource(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, source)
	}
}

func GetRevenueSourcesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		mdaId, ok := intParam(c, "id")
		if !ok {
			return
		}
		sources, err := models.GetRevenueSources(c.Request.Context(), mdaId)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, sources)
	}
}

func ToggleActiveRevenueSourceHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := intParam(c, "id")
		if !ok {
			return
		}
		var req toggleActiveRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindingError(c, err)
			return
		}
		source, err := models.ToggleActiveRevenueSource(c.Request.Context(), id, *req.IsActive)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, source)
	}
}

// requireRevenueScope pins non-admin sessions to their assigned MDA (and
// branch, when the scope names one). Admin sessions pass for any MDA.
// Responds 403 and returns false when the target is out of scope.
func requireRevenueScope(c *gin.Context, mdaId, branchId int) bool {
	ctx := c.Request.Context()
	if isAdmin, _ := utils.GetIsAdminFromContext(ctx); isAdmin {
		return true
	}
	scopeMda, ok := utils.GetMdaIdFromContext(ctx)
	if !ok || scopeMda != mdaId {
		c.JSON(http.StatusForbidden, gin.H{"error": "mda out of scope"})
		return false
	}
	if scopeBranch, ok := utils.GetBranchIdFromContext(ctx); ok && scopeBranch > 0 && scopeBranch != branchId {
		c.JSON(http.StatusForbidden, gin.H{"error": "branch out of scope"})
		return false
	}
	return true
}

// RecordDailyRevenueHandler is the officer's daily posting endpoint.
func RecordDailyRevenueHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewDailyRevenue
		if err := c.ShouldBindJSON(&input); err != nil {
			respondBindingError(c, err)
			return
		}
		if !requireRevenueScope(c, input.MdaId, input.BranchId) {
			return
		}
		result, err := models.RecordDailyRevenue(c.Request.Context(), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

// SetMonthlyOverrideHandler is the officer's monthly save endpoint, scoped
// the same way daily posting is.
func SetMonthlyOverrideHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewMonthlyOverride
		if err := c.ShouldBindJSON(&input); err != nil {
			respondBindingError(c, err)
			return
		}
		if !requireRevenueScope(c, input.MdaId, input.BranchId) {
			return
		}
		summary, err := models.SetMonthlyOverride(c.Request.Context(), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, summary)
	}
}

func ReadMonthlySummaryHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		mdaId := intQuery(c, "mda_id", 0)
		sourceId := intQuery(c, "revenue_source_id", 0)
		branch := intQuery(c, "branch_id", 0)
		year := intQuery(c, "year", 0)
		month := intQuery(c, "month", 0)
		if mdaId <= 0 || sourceId <= 0 || year <= 0 || month < 1 || month > 12 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "mda_id, revenue_source_id, year and month are required"})
			return
		}
		summary, err := models.ReadMonthlySummary(c.Request.Context(), mdaId, sourceId, branch, year, month)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, summary)
	}
}

func ReadDailyEntriesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		mdaId := intQuery(c, "mda_id", 0)
		sourceId := intQuery(c, "revenue_source_id", 0)
		branch := intQuery(c, "branch_id", 0)
		year := intQuery(c, "year", 0)
		month := intQuery(c, "month", 0)
		if mdaId <= 0 || sourceId <= 0 || year <= 0 || month < 1 || month > 12 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "mda_id, revenue_source_id, year and month are required"})
			return
		}
		entries, err := models.ReadDailyEntries(c.Request.Context(), mdaId, sourceId, branch, year, month)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, entries)
	}
}

func ReadMdaMonthlyTotalHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		mdaId := intQuery(c, "mda_id", 0)
		year := intQuery(c, "year", 0)
		month := intQuery(c, "month", 0)
		if mdaId <= 0 || year <= 0 || month < 1 || month > 12 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "mda_id, year and month are required"})
			return
		}
		total, err := models.ReadMdaMonthlyTotal(c.Request.Context(), mdaId, year, month)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"mda_id": mdaId, "year": year, "month": month, "total": total})
	}
}
