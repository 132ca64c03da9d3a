package api

import (
	"net/http"
	"voucher-api/internal/response"
	"voucher-api/internal/services"
	"voucher-api/pkg/logging"

	"github.com/gin-gonic/gin"
)

// RunReaperHandler executes one bounded reaper sweep. Triggered by the
// external scheduler; duplicate or overlapping triggers are harmless since
// the sweep's release and expire steps are idempotent.
func RunReaperHandler(reaper *services.ReaperService) gin.HandlerFunc {
	return func(c *gin.Context) {
		stats, err := reaper.Run()
		if err != nil {
			// Partial progress is still progress; report what happened.
			logging.Errorf("Reaper sweep failed: %v", err)
			response.ErrorJSON(c, http.StatusInternalServerError, "Reaper sweep failed")
			return
		}

		response.SuccessJSON(c, stats)
	}
}
