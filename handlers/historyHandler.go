package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ktirsdata/ntr_backend/models"
)

func GetHistoryPageHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var filter models.HistoryFilter
		if err := c.ShouldBindQuery(&filter); err != nil {
			respondBindingError(c, err)
			return
		}
		page, err := models.GetHistoryPage(c.Request.Context(), &filter)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, page)
	}
}
