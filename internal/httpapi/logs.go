package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"address-validator/internal/activitylog"
	"address-validator/pkg/logger"

	"github.com/gin-gonic/gin"
)

type logRequest struct {
	Tab     string         `json:"tab"`
	Action  string         `json:"action"`
	Session string         `json:"user_session"`
	Input   map[string]any `json:"input"`
	Output  map[string]any `json:"output"`
}

// RecordLog appends a client-reported activity entry.
func (h Handlers) RecordLog(c *gin.Context) {
	if h.Activity == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "activity log not configured"})
		return
	}
	var req logRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.Tab == "" || req.Action == "" || req.Session == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Missing required fields: tab, action, or user_session"})
		return
	}

	e, err := h.Activity.Record(c.Request.Context(), activitylog.Entry{
		Tab:     activitylog.Tab(req.Tab),
		Action:  activitylog.Action(req.Action),
		Session: req.Session,
		Input:   req.Input,
		Output:  req.Output,
	})
	if err != nil {
		if errors.Is(err, activitylog.ErrInvalidEntry) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid tab or action", "details": err.Error()})
			return
		}
		logger.FromGin(c).Error("activity record failed", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to log data", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"logId":     e.ID,
		"timestamp": h.now().Format(time.RFC3339Nano),
	})
}

// RecentLogs lists activity entries, newest first.
func (h Handlers) RecentLogs(c *gin.Context) {
	if h.Activity == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "activity log not configured", "logs": []any{}, "count": 0})
		return
	}

	q, err := parseLogQuery(c)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error(), "logs": []any{}, "count": 0})
		return
	}

	logs, err := h.Activity.Recent(c.Request.Context(), q)
	if err != nil {
		if errors.Is(err, activitylog.ErrInvalidQuery) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error(), "logs": []any{}, "count": 0})
			return
		}
		logger.FromGin(c).Error("activity search failed", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch logs", "logs": []any{}, "count": 0})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"logs":      logs,
		"count":     len(logs),
		"timestamp": h.now().Format(time.RFC3339Nano),
	})
}

func parseLogQuery(c *gin.Context) (activitylog.Query, error) {
	q := activitylog.Query{
		Tab:    activitylog.Tab(c.Query("tab")),
		Action: activitylog.Action(c.Query("action")),
	}
	if v := c.Query("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return q, errors.New("from must be an RFC 3339 timestamp")
		}
		q.From = t
	}
	if v := c.Query("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return q, errors.New("to must be an RFC 3339 timestamp")
		}
		q.To = t
	}
	if v := c.Query("size"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return q, errors.New("size must be a positive integer")
		}
		q.Size = n
	}
	return q, nil
}
