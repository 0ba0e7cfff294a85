package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vit0-9/netecho/models"
)

type HealthHandler struct {
	appVersion string
}

func NewHealthHandler(appVersion string) *HealthHandler {
	return &HealthHandler{appVersion: appVersion}
}

// HealthCheckHandler godoc
// @Summary      Health Check
// @Description  Checks the health of the service.
// @Tags         Monitoring
// @Produce      json
// @Success      200  {object}  models.HealthResponse
// @Router       /health [get]
func (h *HealthHandler) HealthCheckHandler(c *gin.Context) {
	c.JSON(http.StatusOK, models.HealthResponse{
		Status:  "UP",
		Version: h.appVersion,
	})
}
