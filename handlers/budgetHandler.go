package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ktirsdata/ntr_backend/models"
)

func SetSourceBudgetHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewSourceBudget
		if err := c.ShouldBindJSON(&input); err != nil {
			respondBindingError(c, err)
			return
		}
		budget, err := models.SetSourceBudget(c.Request.Context(), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, budget)
	}
}

func SetMdaBudgetHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewMdaBudget
		if err := c.ShouldBindJSON(&input); err != nil {
			respondBindingError(c, err)
			return
		}
		budget, err := models.SetMdaBudget(c.Request.Context(), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, budget)
	}
}

func GetSourceBudgetsHandler() gin.HandlerFunc {
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
		budgets, err := models.GetSourceBudgets(c.Request.Context(), mdaId, year)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, budgets)
	}
}

func GetMdaBudgetHandler() gin.HandlerFunc {
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
		budget, err := models.GetMdaBudget(c.Request.Context(), mdaId, year)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, budget)
	}
}
