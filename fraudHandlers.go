package main

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"bitbucket.org/mmdatafocus/intellitrace_backend/models"
	"bitbucket.org/mmdatafocus/intellitrace_backend/utils"
	"bitbucket.org/mmdatafocus/intellitrace_backend/workflow"
	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"
)

func healthHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "time": time.Now().UTC()})
	}
}

func runScanHandler(hub *AlertHub) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracer.Start(c.Request.Context(), "fraud.scan")
		defer span.End()

		result, err := workflow.RunFullScan(ctx, hub)
		if err != nil {
			if errors.Is(err, utils.ErrorScanInProgress) {
				c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

func listFlagsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var fraudType *models.FraudType
		if raw := c.Query("fraud_type"); raw != "" {
			parsed, err := models.ParseFraudType(raw)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			fraudType = &parsed
		}
		var minConfidence *float64
		if raw := c.Query("min_confidence"); raw != "" {
			var value float64
			if _, err := fmt.Sscanf(raw, "%f", &value); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid min_confidence"})
				return
			}
			minConfidence = &value
		}

		flags, err := models.GetFraudFlags(c.Request.Context(), fraudType, minConfidence)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"count": len(flags), "flags": flags})
	}
}

func fraudExposureHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		exposure, err := models.GetFraudExposure(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"exposure": exposure})
	}
}

// exportFlagsHandler streams the current flag list as an xlsx workbook.
func exportFlagsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		flags, err := models.GetFraudFlags(c.Request.Context(), nil, nil)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		f := excelize.NewFile()
		defer f.Close()
		sheet := "Fraud Flags"
		f.SetSheetName("Sheet1", sheet)

		headers := []string{"ID", "Invoice ID", "Fraud Type", "Engine", "Confidence", "Severity", "Description", "Detected At", "Resolved"}
		for i, header := range headers {
			cell, _ := excelize.CoordinatesToCellName(i+1, 1)
			f.SetCellValue(sheet, cell, header)
		}
		for row, flag := range flags {
			values := []interface{}{
				flag.ID, flag.InvoiceId, string(flag.FraudType), flag.Engine,
				flag.Confidence, string(flag.Severity), flag.Description,
				flag.DetectedAt.Format(time.RFC3339), flag.Resolved,
			}
			for col, value := range values {
				cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
				f.SetCellValue(sheet, cell, value)
			}
		}

		c.Header("Content-Disposition", `attachment; filename="fraud_flags.xlsx"`)
		c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		if err := f.Write(c.Writer); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
	}
}
