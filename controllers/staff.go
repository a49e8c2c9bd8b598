package controllers

import (
	"net/http"

	"github.com/cyclopick/cyclopick-api/config"
	"github.com/cyclopick/cyclopick-api/middleware"
	"github.com/cyclopick/cyclopick-api/models"
	"github.com/gin-gonic/gin"
)

// requireTechnician resolves the authenticated staff member for the request.
// It writes the error response itself when the caller is not an active
// technician, so handlers can simply return on !ok.
func requireTechnician(c *gin.Context) (*models.Technician, bool) {
	auth0ID, err := middleware.GetUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "UNAUTHORIZED",
				"message": "Could not extract user information",
			},
		})
		return nil, false
	}

	db := config.GetDB()
	var technician models.Technician
	if err := db.Where("auth0_id = ? AND active = ?", auth0ID, true).First(&technician).Error; err != nil {
		c.JSON(http.StatusForbidden, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "FORBIDDEN",
				"message": "Staff profile not found or inactive",
			},
		})
		return nil, false
	}

	return &technician, true
}
