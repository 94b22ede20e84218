package models

import (
	"time"
)

// OrderStatus mirrors the latest confirmed leg of protocol progress.
// `secret_revealed` replaces the legacy `claimed_src` name: it is set when
// the maker claims the destination escrow and the secret becomes known.
type OrderStatus string

const (
	OrderStatusPendingAuction OrderStatus = "pending_auction" // created, auction running
	OrderStatusAssigned       OrderStatus = "assigned"        // resolver won the auction
	OrderStatusSrcDeployed    OrderStatus = "src_deployed"    // source escrow funded
	OrderStatusDstDeployed    OrderStatus = "dst_deployed"    // destination escrow funded
	OrderStatusSecretRevealed OrderStatus = "secret_revealed" // maker claimed dst, secret known
	OrderStatusCompleted      OrderStatus = "completed"       // resolver claimed src
	OrderStatusFailed         OrderStatus = "failed"
	OrderStatusRefundedSrc    OrderStatus = "refunded_src" // source escrow refunded after timelock
	OrderStatusRefundedDst    OrderStatus = "refunded_dst" // destination escrow refunded after timelock
)

// AssignmentStatus carries the same progress at finer granularity than the
// order status.
type AssignmentStatus string

const (
	AssignmentStatusAssigned       AssignmentStatus = "assigned"
	AssignmentStatusSrcDeployed    AssignmentStatus = "src_deployed"
	AssignmentStatusDstDeployed    AssignmentStatus = "dst_deployed"
	AssignmentStatusSecretRevealed AssignmentStatus = "secret_revealed"
	AssignmentStatusCompleted      AssignmentStatus = "completed"
	AssignmentStatusFailed         AssignmentStatus = "failed"
)

// orderStatusRank orders the happy-path states. Terminal and refund states
// are handled separately: they are reachable from any non-terminal state.
var orderStatusRank = map[OrderStatus]int{
	OrderStatusPendingAuction: 0,
	OrderStatusAssigned:       1,
	OrderStatusSrcDeployed:    2,
	OrderStatusDstDeployed:    3,
	OrderStatusSecretRevealed: 4,
	OrderStatusCompleted:      5,
}

var assignmentStatusRank = map[AssignmentStatus]int{
	AssignmentStatusAssigned:       0,
	AssignmentStatusSrcDeployed:    1,
	AssignmentStatusDstDeployed:    2,
	AssignmentStatusSecretRevealed: 3,
	AssignmentStatusCompleted:      4,
}

// IsTerminal reports whether no further transition is allowed from s.
func (s OrderStatus) IsTerminal() bool {
	switch s {
	case OrderStatusCompleted, OrderStatusFailed, OrderStatusRefundedSrc, OrderStatusRefundedDst:
		return true
	}
	return false
}

// CanTransitionTo enforces the no-regress rule for order statuses.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	if s.IsTerminal() {
		return false
	}
	if next == OrderStatusFailed || next == OrderStatusRefundedSrc || next == OrderStatusRefundedDst {
		return true
	}
	cur, ok := orderStatusRank[s]
	if !ok {
		return false
	}
	nxt, ok := orderStatusRank[next]
	if !ok {
		return false
	}
	return nxt > cur
}

// IsTerminal reports whether the assignment has reached a final state.
func (s AssignmentStatus) IsTerminal() bool {
	return s == AssignmentStatusCompleted || s == AssignmentStatusFailed
}

// CanTransitionTo enforces the no-regress rule for assignment statuses.
func (s AssignmentStatus) CanTransitionTo(next AssignmentStatus) bool {
	if s.IsTerminal() {
		return false
	}
	if next == AssignmentStatusFailed {
		return true
	}
	cur, ok := assignmentStatusRank[s]
	if !ok {
		return false
	}
	nxt, ok := assignmentStatusRank[next]
	if !ok {
		return false
	}
	return nxt > cur
}

// Order is one requested swap. Amounts are decimal strings in the smallest
// unit of the respective asset; they are never parsed as floats.
type Order struct {
	ID           string `json:"orderId" gorm:"primaryKey"` // UUID
	MakerAddress string `json:"makerAddress" gorm:"not null;index"`
	TakerAddress string `json:"takerAddress" gorm:"not null"` // maker's destination-chain identity
	MakerChain   string `json:"makerChain" gorm:"not null"`
	TakerChain   string `json:"takerChain" gorm:"not null"`
	MakerAsset   string `json:"makerAsset" gorm:"not null"`
	TakerAsset   string `json:"takerAsset" gorm:"not null"`
	MakingAmount string `json:"makingAmount" gorm:"not null"`
	TakingAmount string `json:"takingAmount" gorm:"not null"`

	// One secret, two encodings. EthereumHashlock is keccak256(secret);
	// StarknetHashlock is the same digest with reversed byte order.
	EthereumHashlock string `json:"ethereumHashlock" gorm:"not null;index"`
	StarknetHashlock string `json:"starknetHashlock" gorm:"not null"`
	SecretRevealed   bool   `json:"secretRevealed" gorm:"default:false"`

	AuctionStartTime int64 `json:"auctionStartTime" gorm:"not null"` // unix seconds
	AuctionDuration  int64 `json:"auctionDuration" gorm:"not null"`  // seconds

	SrcWithdrawal int64 `json:"srcWithdrawal" gorm:"not null"` // seconds until src escrow refundable
	DstWithdrawal int64 `json:"dstWithdrawal" gorm:"not null"` // seconds until dst escrow refundable

	OrderNonce string `json:"orderNonce" gorm:"not null;uniqueIndex"` // maker idempotency key
	Signature  string `json:"signature" gorm:"type:text"`             // stored, not verified

	Status    OrderStatus `json:"status" gorm:"not null;index;default:'pending_auction'"`
	CreatedAt time.Time   `json:"createdAt"`
	UpdatedAt time.Time   `json:"updatedAt"`
}

// ResolverAssignment binds the winning resolver to an order. The unique
// index on OrderID is what makes the single-winner guarantee hold under
// concurrent assign attempts.
type ResolverAssignment struct {
	ID              string    `json:"id" gorm:"primaryKey"` // UUID
	OrderID         string    `json:"orderId" gorm:"not null;uniqueIndex"`
	ResolverAddress string    `json:"resolverAddress" gorm:"not null;index"`
	EffectiveAmount string    `json:"effectiveAmount" gorm:"not null"` // auction price at assignment time
	AssignedAt      time.Time `json:"assignedAt" gorm:"not null"`

	SrcEscrowAddress string `json:"srcEscrowAddress,omitempty"`
	DstEscrowAddress string `json:"dstEscrowAddress,omitempty"`
	SrcTimelock      int64  `json:"srcTimelock,omitempty"`
	DstTimelock      int64  `json:"dstTimelock,omitempty"`
	FillAmount       string `json:"fillAmount,omitempty"`
	TakeAmount       string `json:"takeAmount,omitempty"`

	// Secret is set at most once, by the upload-secret operation.
	Secret      string `json:"secret,omitempty" gorm:"type:text"`
	ClaimTxHash string `json:"claimTxHash,omitempty"` // maker's destination claim tx

	Status    AssignmentStatus `json:"status" gorm:"not null;index;default:'assigned'"`
	CreatedAt time.Time        `json:"createdAt"`
	UpdatedAt time.Time        `json:"updatedAt"`
}

// OrderEvent is the append-only audit record. Rows are never updated or
// deleted; the newest event per order drives progress display.
type OrderEvent struct {
	ID        string    `json:"id" gorm:"primaryKey"` // UUID
	OrderID   string    `json:"orderId" gorm:"not null;index:idx_order_events_order_ts,priority:1"`
	Type      string    `json:"type" gorm:"not null"`
	Payload   string    `json:"payload" gorm:"type:jsonb;not null"`
	Timestamp time.Time `json:"timestamp" gorm:"not null;index:idx_order_events_order_ts,priority:2"`
}

// Event types appended by the order service.
const (
	EventOrderCreated      = "order_created"
	EventOrderAssigned     = "order_assigned"
	EventAssignmentUpdated = "assignment_updated"
	EventSecretRevealed    = "secret_revealed"
	EventOrderCompleted    = "order_completed"
	EventStallDetected     = "stall_detected"
)
