package main

import (
	"net/http"
	"strconv"

	"bitbucket.org/mmdatafocus/intellitrace_backend/models"
	"github.com/gin-gonic/gin"
)

func listAlertsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var status *models.AlertStatus
		if raw := c.Query("status"); raw != "" {
			parsed, err := models.ParseAlertStatus(raw)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			status = &parsed
		}
		var severity *models.FlagSeverity
		if raw := c.Query("severity"); raw != "" {
			parsed := models.FlagSeverity(raw)
			if !parsed.IsValid() {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid severity"})
				return
			}
			severity = &parsed
		}

		alerts, err := models.GetAlerts(c.Request.Context(), status, severity)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"count": len(alerts), "alerts": alerts})
	}
}

func getAlertHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid alert id"})
			return
		}
		alert, err := models.GetAlert(c.Request.Context(), id)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "alert not found"})
			return
		}
		c.JSON(http.StatusOK, alert)
	}
}

type updateAlertStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

func updateAlertStatusHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid alert id"})
			return
		}
		var req updateAlertStatusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "status is required"})
			return
		}
		status, err := models.ParseAlertStatus(req.Status)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		alert, err := models.UpdateAlertStatus(c.Request.Context(), id, status)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "alert not found"})
			return
		}
		c.JSON(http.StatusOK, alert)
	}
}

func alertStatsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		summary, err := models.GetAlertStatsSummary(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, summary)
	}
}
