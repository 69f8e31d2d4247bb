package httpapi

import (
	"errors"
	"net/http"

	"address-validator/internal/locality"
	"address-validator/pkg/logger"

	"github.com/gin-gonic/gin"
)

const (
	msgQueryRequired      = `Query parameter "q" is required`
	msgMissingCredentials = "Server configuration error - missing API credentials"
	msgInvalidUpstream    = "Invalid response format from Australia Post API"
	msgSearchFailed       = "Failed to search locations"
)

// lookupErrorResponse maps a lookup failure to the status and body returned to clients.
// Upstream 5xx and transport failures are 500, other upstream statuses are 400.
func lookupErrorResponse(err error) (int, gin.H) {
	var upErr *locality.UpstreamError
	var fmtErr *locality.UpstreamFormatError

	switch {
	case errors.Is(err, locality.ErrEmptyQuery):
		return http.StatusBadRequest, gin.H{"error": msgQueryRequired}
	case errors.Is(err, locality.ErrNotConfigured):
		return http.StatusInternalServerError, gin.H{"error": msgMissingCredentials}
	case errors.As(err, &fmtErr):
		return http.StatusBadGateway, gin.H{"error": msgInvalidUpstream}
	case errors.As(err, &upErr) && !upErr.Transport():
		status := http.StatusBadRequest
		if upErr.StatusCode >= 500 {
			status = http.StatusInternalServerError
		}
		return status, gin.H{"error": upErr.Error(), "details": upErr.Body}
	default:
		return http.StatusInternalServerError, gin.H{"error": msgSearchFailed, "details": err.Error()}
	}
}

func abortLookupError(c *gin.Context, err error) {
	status, body := lookupErrorResponse(err)
	log := logger.FromGin(c)
	if status >= 500 {
		log.Error("locality lookup failed", "status", status, "err", err)
	} else {
		log.Warn("locality lookup rejected", "status", status, "err", err)
	}
	c.AbortWithStatusJSON(status, body)
}
