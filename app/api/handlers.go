package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lysyi3m/eyes-on-docs/app/cfg"
	"github.com/lysyi3m/eyes-on-docs/app/feed"
	"github.com/lysyi3m/eyes-on-docs/app/tasks"
	"github.com/lysyi3m/eyes-on-docs/app/usage"
)

// NewHandler wires the HTTP handlers. visitRepo and scheduler may be nil, in
// which case visits are not recorded and the usage view is unavailable.
func NewHandler(service FeedService, catalog *feed.Catalog, visitRepo usage.VisitRepository,
	gate *usage.Gate, scheduler tasks.TaskSchedulerInterface, store, baseURL string) *Handler {
	return &Handler{
		service:   service,
		generator: feed.NewGenerator(cfg.GetVersion()),
		catalog:   catalog,
		visitRepo: visitRepo,
		gate:      gate,
		scheduler: scheduler,
		store:     store,
		baseURL:   strings.TrimSuffix(baseURL, "/"),
	}
}

func feedRequest(c *gin.Context) feed.Request {
	return feed.Request{
		Product:    c.Query("product"),
		Language:   c.Query("language"),
		Page:       feed.ParsePage(c.Query("page")),
		UpdateType: feed.UpdateType(c.Query("updateType")),
	}
}

func respondFeedError(c *gin.Context, err error) {
	if errors.Is(err, feed.ErrInvalidRequest) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid parameters",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusInternalServerError, gin.H{
		"error":   "Failed to fetch updates",
		"details": err.Error(),
	})
}

func (h *Handler) GetUpdates(c *gin.Context) {
	resp, err := h.service.Fetch(c.Request.Context(), feedRequest(c))
	if err != nil {
		respondFeedError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *Handler) SearchUpdates(c *gin.Context) {
	result, err := h.service.Search(c.Request.Context(), feed.SearchRequest{
		Keyword:  c.Query("keyword"),
		Product:  c.Query("product"),
		Language: c.Query("language"),
	})
	if err != nil {
		respondFeedError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *Handler) GetProducts(c *gin.Context) {
	c.JSON(http.StatusOK, h.catalog.Snapshot())
}

func (h *Handler) GetFeedRSS(c *gin.Context) {
	product := c.Param("product")
	if product == "" {
		c.Status(http.StatusBadRequest)
		return
	}

	req := feed.Request{
		Product:    product,
		Language:   c.Query("language"),
		Page:       1,
		UpdateType: feed.UpdateType(c.Query("updateType")),
	}.Normalize()

	resp, err := h.service.Fetch(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, feed.ErrInvalidRequest) {
			c.Status(http.StatusBadRequest)
			return
		}
		c.Status(http.StatusInternalServerError)
		return
	}

	channel := feed.Channel{
		Product:    req.Product,
		Language:   req.Language,
		UpdateType: req.UpdateType,
	}
	if h.baseURL != "" {
		channel.SelfLink = h.baseURL + c.Request.URL.RequestURI()
	}

	rss, err := h.generator.Run(channel, resp.Updates)
	if err != nil {
		slog.Error("RSS generation error", "product", product, "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	c.Header("Content-Type", "application/rss+xml; charset=utf-8")
	c.Header("X-Feed-Items", strconv.Itoa(len(resp.Updates)))
	c.Header("X-Feed-Total", strconv.Itoa(resp.Pagination.TotalItems))

	c.String(http.StatusOK, rss)
}

func (h *Handler) UsageAuth(c *gin.Context) {
	var req usageAuthRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	token, err := h.gate.Authenticate(req.Password)
	switch {
	case errors.Is(err, usage.ErrPasswordNotConfigured):
		slog.Error("Usage password not configured")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Admin password is not configured"})
	case errors.Is(err, usage.ErrInvalidPassword):
		slog.Warn("Usage authentication failed", "client_ip", c.ClientIP())
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid password"})
	case err != nil:
		slog.Error("Usage authentication error", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Authentication failed"})
	default:
		c.JSON(http.StatusOK, gin.H{
			"success":   true,
			"token":     token,
			"expiresIn": int(usage.TokenTTL.Seconds()),
		})
	}
}

func (h *Handler) GetUsage(c *gin.Context) {
	if h.visitRepo == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Usage tracking is not configured"})
		return
	}

	start, err := parseTimeParam(c.Query("startTime"), false)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid startTime", "details": err.Error()})
		return
	}
	end, err := parseTimeParam(c.Query("endTime"), true)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid endTime", "details": err.Error()})
		return
	}

	visits, err := h.visitRepo.ListVisits(c.Request.Context(), start, end)
	if err != nil {
		slog.Error("Database error", "operation", "list_visits", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to fetch usage statistics",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, usage.Aggregate(visits, splitList(c.Query("excludeUsers"))))
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
		"store":     h.store,
		"version":   cfg.GetVersion(),
	}

	products := h.catalog.Snapshot()
	health["products"] = len(products.Products)
	health["products_source"] = products.Source

	c.JSON(http.StatusOK, health)
}

// parseTimeParam accepts RFC 3339 timestamps and plain dates. A plain date
// used as an upper bound covers the whole day.
func parseTimeParam(raw string, upper bool) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}

	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}

	t, err := time.ParseInLocation("2006-01-02", raw, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("expected RFC 3339 time or YYYY-MM-DD date, got %q", raw)
	}
	if upper {
		t = t.AddDate(0, 0, 1)
	}
	return t, nil
}

func splitList(raw string) []string {
	var items []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
