package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ktirsdata/ntr_backend/models"
)

func CreateProfileHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewProfile
		if err := c.ShouldBindJSON(&input); err != nil {
			respondBindingError(c, err)
			return
		}
		profile, err := models.CreateProfile(c.Request.Context(), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, profile)
	}
}

func GetProfilesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		profiles, err := models.GetProfiles(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, profiles)
	}
}

func ToggleActiveProfileHandler() gin.HandlerFunc {
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
		profile, err := models.ToggleActiveProfile(c.Request.Context(), id, *req.IsActive)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, profile)
	}
}

func AssignUserScopeHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewUserScope
		if err := c.ShouldBindJSON(&input); err != nil {
			respondBindingError(c, err)
			return
		}
		scope, err := models.AssignUserScope(c.Request.Context(), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, scope)
	}
}

func RemoveUserScopeHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := intParam(c, "id")
		if !ok {
			return
		}
		success, err := models.RemoveUserScope(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": success})
	}
}

func GetUserScopesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		profileId, ok := intParam(c, "id")
		if !ok {
			return
		}
		scopes, err := models.GetUserScopes(c.Request.Context(), profileId)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, scopes)
	}
}
