package main

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"bitbucket.org/mmdatafocus/intellitrace_backend/models"
	"bitbucket.org/mmdatafocus/intellitrace_backend/utils"
	"bitbucket.org/mmdatafocus/intellitrace_backend/workflow"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

func createInvoiceHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewInvoice
		if err := c.ShouldBindJSON(&input); err != nil {
			var validationErrors validator.ValidationErrors
			if errors.As(err, &validationErrors) {
				c.JSON(http.StatusBadRequest, gin.H{"errors": utils.ProcessValidationErrors(err)})
				return
			}
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}

		invoice, flags, err := workflow.ValidateAndScore(c.Request.Context(), &input)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusCreated, gin.H{"invoice": invoice, "flags": flags})
	}
}

func listInvoicesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var filter models.InvoiceFilter
		if raw := c.Query("status"); raw != "" {
			parsed := models.InvoiceStatus(raw)
			if !parsed.IsValid() {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
				return
			}
			filter.Status = &parsed
		}
		if raw := c.Query("tier"); raw != "" {
			parsed := models.Tier(raw)
			if !parsed.IsValid() {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid tier"})
				return
			}
			filter.Tier = &parsed
		}
		if raw := c.Query("supplier_id"); raw != "" {
			id, err := strconv.Atoi(raw)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid supplier_id"})
				return
			}
			filter.SupplierId = &id
		}
		if raw := c.Query("date_from"); raw != "" {
			parsed, err := time.Parse("2006-01-02", raw)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date_from, expected yyyy-mm-dd"})
				return
			}
			filter.DateFrom = &parsed
		}
		if raw := c.Query("date_to"); raw != "" {
			parsed, err := time.Parse("2006-01-02", raw)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date_to, expected yyyy-mm-dd"})
				return
			}
			filter.DateTo = &parsed
		}
		if raw := c.Query("min_risk"); raw != "" {
			value, err := strconv.ParseFloat(raw, 64)
			if err != nil || value < 0 || value > 100 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid min_risk"})
				return
			}
			filter.MinRisk = &value
		}

		invoices, err := models.GetInvoices(c.Request.Context(), &filter)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"count": len(invoices), "invoices": invoices})
	}
}

func getInvoiceHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid invoice id"})
			return
		}
		invoice, err := models.GetInvoice(c.Request.Context(), id)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "invoice not found"})
			return
		}
		flags, err := models.GetFraudFlagsByInvoice(c.Request.Context(), id)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"invoice": invoice, "flags": flags})
	}
}

func invoiceStatsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		summary, err := models.GetInvoiceStatsSummary(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, summary)
	}
}
