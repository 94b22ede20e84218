package handlers

import (
	"net/http"

	"swap-backend/internal/services"

	"github.com/gin-gonic/gin"
)

// AdminHandler exposes the operator surface
type AdminHandler struct {
	orderService *services.OrderService
}

// NewAdminHandler creates a new AdminHandler instance
func NewAdminHandler(orderService *services.OrderService) *AdminHandler {
	return &AdminHandler{orderService: orderService}
}

// GetStalledOrdersHandler handles GET /admin/stalled-orders
// Lists assignments stuck at src_deployed past their destination
// timelock: resolver capital locked with no destination leg confirmed
func (h *AdminHandler) GetStalledOrdersHandler(c *gin.Context) {
	stalled, err := h.orderService.GetStalledAssignments(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to list stalled orders",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"count":   len(stalled),
		"stalled": stalled,
	})
}
