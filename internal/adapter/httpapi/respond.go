package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"buildingops/internal/shared"
)

// httpStatus maps an error's kind onto an HTTP status code. Unknown kinds
// stay 500 so internals never leak a misleading status.
func httpStatus(err error) int {
	switch shared.KindOf(err) {
	case shared.KindValidation:
		return http.StatusBadRequest
	case shared.KindNotFound:
		return http.StatusNotFound
	case shared.KindConflict:
		return http.StatusConflict
	case shared.KindUnauthorized:
		return http.StatusUnauthorized
	case shared.KindTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, log *slog.Logger, err error) {
	status := httpStatus(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		log.Error("request failed", "path", c.FullPath(), "err", err)
		msg = "internal error"
	}
	c.JSON(status, gin.H{"error": msg})
}
