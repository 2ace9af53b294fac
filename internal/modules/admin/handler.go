package admin

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"villabook/internal/middleware"
	"villabook/internal/pkg/response"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes expects an authenticated group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	admin := rg.Group("/admin", middleware.AdminOnly())
	admin.GET("/stats", h.GetStats)
}

func (h *Handler) GetStats(c *gin.Context) {
	stats, err := h.service.GetStatistics(c.Request.Context())
	if err != nil {
		log.Printf("level=error msg=admin stats failed err=%v", err)
		_ = c.Error(err)
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
		return
	}
	response.Success(c, http.StatusOK, stats)
}
