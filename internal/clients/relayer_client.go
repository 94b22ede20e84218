package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"swap-backend/internal/dto"
)

// RelayerClient is the resolver's view of the order book HTTP API. Every
// call maps onto one endpoint; none of them retry internally because the
// orchestrator retries at whole-scan granularity.
type RelayerClient struct {
	BaseURL string
	Client  *http.Client
}

// NewRelayerClient creates a new RelayerClient instance
func NewRelayerClient(baseURL string, timeoutSeconds int) *RelayerClient {
	timeout := 30 * time.Second
	if timeoutSeconds > 0 {
		timeout = time.Duration(timeoutSeconds) * time.Second
	}
	return &RelayerClient{
		BaseURL: baseURL,
		Client:  &http.Client{Timeout: timeout},
	}
}

// GetPendingOrders lists live auctions.
func (c *RelayerClient) GetPendingOrders(ctx context.Context) ([]*dto.PendingOrder, error) {
	var out []*dto.PendingOrder
	if err := c.get(ctx, "/orders?status=pending_auction", &out); err != nil {
		return nil, fmt.Errorf("failed to fetch pending orders: %w", err)
	}
	return out, nil
}

// GetOrderDetail fetches one order with its assignment and events.
func (c *RelayerClient) GetOrderDetail(ctx context.Context, orderID string) (*dto.OrderDetail, error) {
	var out dto.OrderDetail
	if err := c.get(ctx, "/orders/"+orderID, &out); err != nil {
		return nil, fmt.Errorf("failed to fetch order %s: %w", orderID, err)
	}
	return &out, nil
}

// AssignOrder attempts to win an order. A non-2xx response means another
// resolver won or the auction expired; the caller treats it as a skip.
func (c *RelayerClient) AssignOrder(ctx context.Context, orderID string, req *dto.AssignOrderRequest) (*dto.AssignOrderResponse, error) {
	var out dto.AssignOrderResponse
	if err := c.post(ctx, "/orders/"+orderID+"/assign", req, &out); err != nil {
		return nil, fmt.Errorf("failed to assign order %s: %w", orderID, err)
	}
	return &out, nil
}

// FeedAssignment reports escrow progress back to the order book.
func (c *RelayerClient) FeedAssignment(ctx context.Context, orderID string, req *dto.FeedAssignmentRequest) error {
	var out dto.SuccessResponse
	if err := c.post(ctx, "/orders/"+orderID+"/feed-assignment", req, &out); err != nil {
		return fmt.Errorf("failed to feed assignment for order %s: %w", orderID, err)
	}
	return nil
}

// CompleteOrder finishes an order in a terminal status.
func (c *RelayerClient) CompleteOrder(ctx context.Context, orderID string, req *dto.CompleteOrderRequest) error {
	var out dto.SuccessResponse
	if err := c.post(ctx, "/orders/"+orderID+"/complete", req, &out); err != nil {
		return fmt.Errorf("failed to complete order %s: %w", orderID, err)
	}
	return nil
}

// GetRevealedOrders lists this resolver's claimable source escrows.
func (c *RelayerClient) GetRevealedOrders(ctx context.Context, resolverAddress string) ([]*dto.RevealedOrder, error) {
	var out []*dto.RevealedOrder
	if err := c.get(ctx, "/orders/revealed/"+resolverAddress, &out); err != nil {
		return nil, fmt.Errorf("failed to fetch revealed orders: %w", err)
	}
	return out, nil
}

func (c *RelayerClient) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *RelayerClient) post(ctx context.Context, path string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *RelayerClient) do(req *http.Request, out interface{}) error {
	resp, err := c.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("order book returned %d: %s", resp.StatusCode, string(data))
	}
	return json.Unmarshal(data, out)
}
