package dto

import "swap-backend/internal/models"

// CreateOrderRequest is the maker's order submission.
type CreateOrderRequest struct {
	MakerAddress     string        `json:"makerAddress" binding:"required"`
	TakerAddress     string        `json:"takerAddress" binding:"required"`
	MakerChain       string        `json:"makerChain" binding:"required"`
	TakerChain       string        `json:"takerChain" binding:"required"`
	MakerAsset       string        `json:"makerAsset" binding:"required"`
	TakerAsset       string        `json:"takerAsset" binding:"required"`
	MakingAmount     string        `json:"makingAmount" binding:"required"`
	TakingAmount     string        `json:"takingAmount" binding:"required"`
	EthereumHashlock string        `json:"ethereumHashlock" binding:"required"`
	StarknetHashlock string        `json:"starknetHashlock" binding:"required"`
	Auction          AuctionParams `json:"auction" binding:"required"`
	Timelocks        Timelocks     `json:"timelocks" binding:"required"`
	OrderNonce       string        `json:"orderNonce" binding:"required"`
	Signature        string        `json:"signature"`
}

// AuctionParams is the linear decay window.
type AuctionParams struct {
	StartTime int64 `json:"startTime" binding:"required"`
	Duration  int64 `json:"duration" binding:"required"`
}

// Timelocks are the per-escrow refund delays in seconds.
type Timelocks struct {
	SrcWithdrawal int64 `json:"srcWithdrawal" binding:"required"`
	DstWithdrawal int64 `json:"dstWithdrawal" binding:"required"`
}

// CreateOrderResponse acknowledges order creation.
type CreateOrderResponse struct {
	OrderID string `json:"orderId"`
	Status  string `json:"status"`
}

// PendingOrder is one row of the live auction listing.
type PendingOrder struct {
	OrderID       string        `json:"orderId"`
	MakerAddress  string        `json:"makerAddress"`
	MakingAmount  string        `json:"makingAmount"`
	TakingAmount  string        `json:"takingAmount"`
	Auction       AuctionParams `json:"auction"`
	CurrentAmount string        `json:"currentAmount"`
	Status        string        `json:"status"`
}

// OrderDetail is the full order view with assignment and recent events.
type OrderDetail struct {
	Order      *models.Order              `json:"order"`
	Assignment *models.ResolverAssignment `json:"assignment"`
	Events     []*models.OrderEvent       `json:"events"`
}

// AssignOrderRequest is a resolver's bid to win an order.
type AssignOrderRequest struct {
	ResolverAddress string `json:"resolverAddress" binding:"required"`
	EffectiveAmount string `json:"effectiveAmount" binding:"required"`
}

// AssignOrderResponse confirms the winning assignment.
type AssignOrderResponse struct {
	OrderID          string `json:"orderId"`
	AssignedResolver string `json:"assignedResolver"`
	EffectiveAmount  string `json:"effectiveAmount"`
	Status           string `json:"status"`
}

// FeedAssignmentRequest carries any subset of progress fields fed back by
// the resolver as escrow orchestration advances.
type FeedAssignmentRequest struct {
	SrcEscrowAddress *string `json:"srcEscrowAddress,omitempty"`
	DstEscrowAddress *string `json:"dstEscrowAddress,omitempty"`
	SrcTimelock      *int64  `json:"srcTimelock,omitempty"`
	DstTimelock      *int64  `json:"dstTimelock,omitempty"`
	FillAmount       *string `json:"fillAmount,omitempty"`
	TakeAmount       *string `json:"takeAmount,omitempty"`
	Status           *string `json:"status,omitempty"`
}

// CompleteOrderRequest finishes an order in a terminal status.
type CompleteOrderRequest struct {
	Status  string                 `json:"status" binding:"required"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// UploadSecretRequest records the secret the maker revealed by claiming
// the destination escrow.
type UploadSecretRequest struct {
	Secret            string `json:"secret" binding:"required"`
	DestinationTxHash string `json:"destinationTxHash,omitempty"`
}

// GetSecretResponse returns a revealed secret.
type GetSecretResponse struct {
	Secret string `json:"secret"`
}

// RevealedOrder pairs an order with its revealed assignment for the
// resolver's claim loop.
type RevealedOrder struct {
	Order      *models.Order              `json:"order"`
	Assignment *models.ResolverAssignment `json:"assignment"`
}

// SuccessResponse is the generic mutation acknowledgement.
type SuccessResponse struct {
	Success bool `json:"success"`
}

// StalledAssignment is one operator-surface row: resolver capital locked
// on the source chain with no destination leg in sight.
type StalledAssignment struct {
	Order      *models.Order              `json:"order"`
	Assignment *models.ResolverAssignment `json:"assignment"`
	StalledFor int64                      `json:"stalledForSeconds"`
}
