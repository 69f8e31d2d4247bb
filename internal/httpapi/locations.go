package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"address-validator/internal/address"
	"address-validator/internal/locality"
	"address-validator/pkg/logger"

	"github.com/gin-gonic/gin"
)

const locationsCacheControl = "public, s-maxage=300, stale-while-revalidate=600"

// nullable returns nil for an absent query parameter so it renders as JSON null.
func nullable(c *gin.Context, key string) any {
	if v, ok := c.GetQuery(key); ok && v != "" {
		return v
	}
	return nil
}

// SearchLocations proxies a locality search to the upstream service.
func (h Handlers) SearchLocations(c *gin.Context) {
	if h.Lookup == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "lookup not configured"})
		return
	}
	q := c.Query("q")
	if q == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": msgQueryRequired})
		return
	}

	locs, err := h.Lookup.Lookup(c.Request.Context(), q, c.Query("state"))
	if err != nil {
		abortLookupError(c, err)
		return
	}

	c.Header("Cache-Control", locationsCacheControl)
	c.JSON(http.StatusOK, gin.H{
		"locations": locs,
		"count":     len(locs),
		"query":     q,
		"state":     nullable(c, "state"),
	})
}

// SearchSuburbs is the source search: lookup plus category filtering, with activity recorded.
func (h Handlers) SearchSuburbs(c *gin.Context) {
	if h.Address == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "address service not configured"})
		return
	}
	q := c.Query("q")
	if q == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": msgQueryRequired})
		return
	}

	var cats []string
	for _, raw := range c.QueryArray("category") {
		for _, part := range strings.Split(raw, ",") {
			if part = strings.TrimSpace(part); part != "" {
				cats = append(cats, part)
			}
		}
	}

	locs, err := h.Address.Search(c.Request.Context(), address.SearchRequest{
		Query:      q,
		State:      c.Query("state"),
		Categories: cats,
		Session:    c.Query("session"),
	})
	if err != nil {
		if errors.Is(err, address.ErrInvalidInput) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": msgQueryRequired})
			return
		}
		abortLookupError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"locations":  locs,
		"count":      len(locs),
		"categories": locality.UniqueCategories(locs),
		"query":      q,
		"state":      nullable(c, "state"),
	})
}

// ValidateAddress returns the verdict for a postcode, suburb and state.
func (h Handlers) ValidateAddress(c *gin.Context) {
	if h.Address == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "address service not configured"})
		return
	}
	var req address.ValidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	verdict, err := h.Address.Validate(c.Request.Context(), req)
	if err != nil {
		logger.FromGin(c).Info("validation input rejected", "err", err)
		c.AbortWithStatusJSON(http.StatusBadRequest, verdict)
		return
	}
	c.JSON(http.StatusOK, verdict)
}

type selectionRequest struct {
	Session  string            `json:"session"`
	Location locality.Location `json:"location"`
}

// RecordSelection notes a location picked from source search results.
func (h Handlers) RecordSelection(c *gin.Context) {
	if h.Address == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "address service not configured"})
		return
	}
	var req selectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if err := h.Address.RecordSelection(c.Request.Context(), req.Session, req.Location); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "session required"})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "recorded"})
}
