package handlers

import (
	"errors"
	"net/http"

	"swap-backend/internal/dto"
	"swap-backend/internal/models"
	"swap-backend/internal/services"

	"github.com/gin-gonic/gin"
)

// OrderHandler handles the order book API requests
type OrderHandler struct {
	orderService *services.OrderService
}

// NewOrderHandler creates a new OrderHandler instance
func NewOrderHandler(orderService *services.OrderService) *OrderHandler {
	return &OrderHandler{orderService: orderService}
}

// CreateOrderHandler handles POST /orders
// Accepts a maker's signed order and opens its Dutch auction
func (h *OrderHandler) CreateOrderHandler(c *gin.Context) {
	var req dto.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	resp, err := h.orderService.CreateOrder(c.Request.Context(), &req)
	if err != nil {
		respondOrderError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// GetOrdersHandler handles GET /orders?status=pending_auction
// Lists live auctions with their current decayed amounts
func (h *OrderHandler) GetOrdersHandler(c *gin.Context) {
	status := c.DefaultQuery("status", string(models.OrderStatusPendingAuction))
	if status != string(models.OrderStatusPendingAuction) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Only status=pending_auction is supported",
		})
		return
	}

	pending, err := h.orderService.GetPendingAuctions(c.Request.Context())
	if err != nil {
		respondOrderError(c, err)
		return
	}

	c.JSON(http.StatusOK, pending)
}

// GetOrderHandler handles GET /orders/:id
func (h *OrderHandler) GetOrderHandler(c *gin.Context) {
	detail, err := h.orderService.GetOrderDetails(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondOrderError(c, err)
		return
	}

	c.JSON(http.StatusOK, detail)
}

// AssignOrderHandler handles POST /orders/:id/assign
// Exactly one resolver wins; concurrent losers get a conflict error
func (h *OrderHandler) AssignOrderHandler(c *gin.Context) {
	var req dto.AssignOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	resp, err := h.orderService.AssignOrder(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		respondOrderError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// FeedAssignmentHandler handles POST /orders/:id/feed-assignment
// Accepts any subset of escrow progress fields from the winning resolver
func (h *OrderHandler) FeedAssignmentHandler(c *gin.Context) {
	var req dto.FeedAssignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	if err := h.orderService.FeedAssignment(c.Request.Context(), c.Param("id"), &req); err != nil {
		respondOrderError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.SuccessResponse{Success: true})
}

// CompleteOrderHandler handles POST /orders/:id/complete
func (h *OrderHandler) CompleteOrderHandler(c *gin.Context) {
	var req dto.CompleteOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	if err := h.orderService.CompleteOrder(c.Request.Context(), c.Param("id"), &req); err != nil {
		respondOrderError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.SuccessResponse{Success: true})
}

// UploadSecretHandler handles POST /orders/:id/upload-secret
// Called by the maker-facing client after claiming the destination escrow
func (h *OrderHandler) UploadSecretHandler(c *gin.Context) {
	var req dto.UploadSecretRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	if err := h.orderService.UploadSecret(c.Request.Context(), c.Param("id"), &req); err != nil {
		respondOrderError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.SuccessResponse{Success: true})
}

// GetSecretHandler handles GET /orders/:id/get-secret
func (h *OrderHandler) GetSecretHandler(c *gin.Context) {
	secret, err := h.orderService.GetSecret(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondOrderError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.GetSecretResponse{Secret: secret})
}

// GetRevealedOrdersHandler handles GET /orders/revealed/:resolverAddress
// The resolver's polling endpoint for claimable source escrows
func (h *OrderHandler) GetRevealedOrdersHandler(c *gin.Context) {
	revealed, err := h.orderService.GetRevealedOrders(c.Request.Context(), c.Param("resolverAddress"))
	if err != nil {
		respondOrderError(c, err)
		return
	}

	c.JSON(http.StatusOK, revealed)
}

// respondOrderError maps service errors onto HTTP statuses. State
// conflicts are client errors: the store was left untouched and the
// caller must re-read before retrying.
func respondOrderError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrOrderNotFound),
		errors.Is(err, services.ErrAssignmentNotFound),
		errors.Is(err, services.ErrSecretNotRevealed):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrInvalidOrder),
		errors.Is(err, services.ErrDuplicateNonce),
		errors.Is(err, services.ErrOrderNotAvailable),
		errors.Is(err, services.ErrOrderExpired),
		errors.Is(err, services.ErrAlreadyAssigned),
		errors.Is(err, services.ErrInvalidTransition),
		errors.Is(err, services.ErrSecretMismatch),
		errors.Is(err, services.ErrSecretImmutable):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Internal server error",
			"details": err.Error(),
		})
	}
}
