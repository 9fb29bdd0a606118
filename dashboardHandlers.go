package main

import (
	"net/http"

	"bitbucket.org/mmdatafocus/intellitrace_backend/models"
	"github.com/gin-gonic/gin"
)

func dashboardStatsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		stats, err := models.GetDashboardStats(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, stats)
	}
}
