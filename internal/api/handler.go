package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"deal-feed-service/internal/models"
	"deal-feed-service/internal/service"
	"deal-feed-service/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ReadinessCheck reports whether a dependency is usable
type ReadinessCheck func(ctx context.Context) error

// CommandPublisher sends feed commands to the command topic
type CommandPublisher interface {
	PublishUpdateRequested(ctx context.Context, event *models.FeedUpdateRequestedEvent) error
}

// Handler contains HTTP handlers
type Handler struct {
	productService *service.ProductService
	scheduler      *service.Scheduler
	commands       CommandPublisher
	checks         map[string]ReadinessCheck
}

// NewHandler creates a new HTTP handler
func NewHandler(productService *service.ProductService, scheduler *service.Scheduler) *Handler {
	return &Handler{
		productService: productService,
		scheduler:      scheduler,
		checks:         map[string]ReadinessCheck{},
	}
}

// WithCommandPublisher enables queued update requests, which any replica consuming the command topic may serve
func (h *Handler) WithCommandPublisher(p CommandPublisher) *Handler {
	h.commands = p
	return h
}

// AddReadinessCheck registers a dependency checked by /ready
func (h *Handler) AddReadinessCheck(name string, check ReadinessCheck) {
	h.checks[name] = check
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.GET("/products", h.listProducts)
		v1.GET("/products/stats", h.getStats)
		v1.GET("/products/brand/:brand", h.listProductsByBrand)
		v1.POST("/products/update", h.triggerUpdate)
		v1.POST("/products/update/queue", h.queueUpdate)
		v1.GET("/brands", h.listBrands)
		v1.GET("/scheduler", h.schedulerStatus)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck reports unready when any registered dependency fails
func (h *Handler) readinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	failures := gin.H{}
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			failures[name] = err.Error()
		}
	}

	if len(failures) > 0 {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":   "not ready",
			"failures": failures,
			"time":     time.Now().Unix(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// triggerUpdate starts a feed run in the background and acknowledges the trigger
func (h *Handler) triggerUpdate(c *gin.Context) {
	outcome := h.scheduler.TriggerAsync()

	c.JSON(http.StatusAccepted, gin.H{
		"message": "Product update triggered",
		"status":  outcome,
	})
}

// queueUpdate publishes a FeedUpdateRequested command instead of triggering locally
func (h *Handler) queueUpdate(c *gin.Context) {
	if h.commands == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "Command publishing not configured",
		})
		return
	}

	event := &models.FeedUpdateRequestedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeFeedUpdateRequested,
			Timestamp: time.Now(),
		},
		RequestedBy: c.DefaultQuery("requested_by", "http"),
	}

	if err := h.commands.PublishUpdateRequested(c.Request.Context(), event); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{
			"error":   "Failed to queue product update",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"message":  "Product update queued",
		"status":   "queued",
		"event_id": event.EventID,
	})
}

// schedulerStatus returns the scheduler state
func (h *Handler) schedulerStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.scheduler.Status())
}

// getStats handles discount statistics requests
func (h *Handler) getStats(c *gin.Context) {
	stats, err := h.productService.GetDiscountStats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to fetch discount stats",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, stats)
}

// listProducts handles product listing
func (h *Handler) listProducts(c *gin.Context) {
	limit, ok := queryInt(c, "limit", 50)
	if !ok {
		return
	}
	offset, ok := queryInt(c, "offset", 0)
	if !ok {
		return
	}

	products, err := h.productService.ListProducts(c.Request.Context(), limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to fetch products",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"products": products,
		"count":    len(products),
	})
}

// listProductsByBrand handles product listing for one brand
func (h *Handler) listProductsByBrand(c *gin.Context) {
	limit, ok := queryInt(c, "limit", 50)
	if !ok {
		return
	}

	brand := c.Param("brand")
	products, err := h.productService.ListProductsByBrand(c.Request.Context(), brand, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to fetch products",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"brand":    brand,
		"products": products,
		"count":    len(products),
	})
}

// listBrands handles brand popularity requests
func (h *Handler) listBrands(c *gin.Context) {
	brands, err := h.productService.ListBrands(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to fetch brands",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, brands)
}

// queryInt reads an integer query parameter, writing a 400 response if it is invalid
func queryInt(c *gin.Context, name string, def int) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return def, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid " + name,
		})
		return 0, false
	}
	return v, true
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
