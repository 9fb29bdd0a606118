package main

import (
	"net/http"
	"strconv"
	"time"

	"bitbucket.org/mmdatafocus/intellitrace_backend/config"
	"bitbucket.org/mmdatafocus/intellitrace_backend/engines"
	"bitbucket.org/mmdatafocus/intellitrace_backend/models"
	"bitbucket.org/mmdatafocus/intellitrace_backend/workflow"
	"github.com/gin-gonic/gin"
)

const networkCacheKey = "analytics:network"

// networkHandler serves the graph payload, cached in Redis until the next
// risk-score recompute invalidates it.
func networkHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var cached engines.NetworkData
		if exists, err := config.GetRedisObject(networkCacheKey, &cached); err == nil && exists {
			c.JSON(http.StatusOK, &cached)
			return
		}

		snapshot, err := models.LoadLedgerSnapshot(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		network := engines.ComputeNetwork(snapshot)

		_ = config.SetRedisObject(networkCacheKey, network, 5*time.Minute)
		c.JSON(http.StatusOK, network)
	}
}

func listEntitiesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var entityType *models.EntityType
		if raw := c.Query("entity_type"); raw != "" {
			parsed := models.EntityType(raw)
			if !parsed.IsValid() {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid entity type"})
				return
			}
			entityType = &parsed
		}
		var tier *models.Tier
		if raw := c.Query("tier"); raw != "" {
			parsed := models.Tier(raw)
			if !parsed.IsValid() {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid tier"})
				return
			}
			tier = &parsed
		}

		entities, err := models.GetEntities(c.Request.Context(), entityType, tier)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"count": len(entities), "entities": entities})
	}
}

func createEntityHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewEntity
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		entity, err := models.CreateEntity(c.Request.Context(), &input)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		_ = config.RemoveRedisKey(networkCacheKey)
		c.JSON(http.StatusCreated, entity)
	}
}

func createEdgeHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewSupplyChainEdge
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		edge, err := models.CreateSupplyChainEdge(c.Request.Context(), &input)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		_ = config.RemoveRedisKey(networkCacheKey)
		c.JSON(http.StatusCreated, edge)
	}
}

func listEdgesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		edges, err := models.GetSupplyChainEdges(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"count": len(edges), "edges": edges})
	}
}

func listCollectionsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var minDilutionRatio *float64
		if raw := c.Query("min_dilution_ratio"); raw != "" {
			value, err := strconv.ParseFloat(raw, 64)
			if err != nil || value < 0 || value >= 1 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid min_dilution_ratio"})
				return
			}
			minDilutionRatio = &value
		}

		collections, err := models.GetCashCollections(c.Request.Context(), minDilutionRatio)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"count": len(collections), "collections": collections})
	}
}

func createCollectionHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewCashCollection
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		collection, err := models.CreateCashCollection(c.Request.Context(), &input)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusCreated, collection)
	}
}

func recomputeRiskScoresHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		scores, err := workflow.RecomputeEntityRiskScores(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		_ = config.RemoveRedisKey(networkCacheKey)
		c.JSON(http.StatusOK, gin.H{"entity_risk_scores": scores})
	}
}
