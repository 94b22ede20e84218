// Package starkgate talks to the Starknet gateway sidecar. Cairo account
// signing lives in the sidecar; this process only ever sees escrow
// addresses and transaction hashes.
package starkgate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"swap-backend/internal/chains"
	"swap-backend/internal/config"

	"github.com/sirupsen/logrus"
)

// Client implements chains.Adapter against the gateway's HTTP API.
type Client struct {
	name           string
	baseURL        string
	accountAddress string
	httpClient     *http.Client
	logger         *logrus.Logger
}

// New creates a gateway client for one Starknet network.
func New(name string, cfg config.NetworkConfig, logger *logrus.Logger) (*Client, error) {
	if cfg.GatewayURL == "" {
		return nil, fmt.Errorf("gatewayUrl is required for starkgate chain %q", name)
	}
	if logger == nil {
		logger = logrus.New()
	}

	timeout := 120 * time.Second
	if cfg.GatewayTimeout > 0 {
		timeout = time.Duration(cfg.GatewayTimeout) * time.Second
	}

	return &Client{
		name:           name,
		baseURL:        cfg.GatewayURL,
		accountAddress: cfg.AccountAddress,
		httpClient:     &http.Client{Timeout: timeout},
		logger:         logger,
	}, nil
}

// Name returns the configured chain name.
func (c *Client) Name() string {
	return c.name
}

// Family identifies the hashlock encoding this chain expects.
func (c *Client) Family() string {
	return "starkgate"
}

type deployEscrowRequest struct {
	Account    string `json:"account"`
	Maker      string `json:"maker"`
	Taker      string `json:"taker"`
	Token      string `json:"token"`
	Amount     string `json:"amount"`
	SecretHash string `json:"secretHash"`
	Timelock   int64  `json:"timelock"`
}

type deployEscrowResponse struct {
	EscrowAddress string `json:"escrowAddress"`
	TxHash        string `json:"txHash"`
}

type txRequest struct {
	Account string `json:"account"`
	Secret  string `json:"secret,omitempty"`
	Token   string `json:"token,omitempty"`
	Amount  string `json:"amount,omitempty"`
}

type txResponse struct {
	TxHash string `json:"txHash"`
}

// DeployEscrow asks the gateway to deploy and fund an HTLC escrow.
func (c *Client) DeployEscrow(ctx context.Context, params chains.EscrowParams) (string, error) {
	req := deployEscrowRequest{
		Account:    c.accountAddress,
		Maker:      params.Maker,
		Taker:      params.Taker,
		Token:      params.Token,
		Amount:     params.Amount,
		SecretHash: params.SecretHash,
		Timelock:   params.Timelock,
	}

	var resp deployEscrowResponse
	if err := c.post(ctx, "/escrows", req, &resp); err != nil {
		return "", fmt.Errorf("gateway deploy failed: %w", err)
	}
	if resp.EscrowAddress == "" {
		return "", fmt.Errorf("gateway returned no escrow address")
	}

	c.logger.WithFields(logrus.Fields{
		"chain":  c.name,
		"escrow": resp.EscrowAddress,
		"tx":     resp.TxHash,
	}).Info("Starknet escrow deployed")
	return resp.EscrowAddress, nil
}

// Claim reveals the secret to the escrow via the gateway.
func (c *Client) Claim(ctx context.Context, escrowAddress, secret string) (string, error) {
	var resp txResponse
	path := fmt.Sprintf("/escrows/%s/claim", escrowAddress)
	if err := c.post(ctx, path, txRequest{Account: c.accountAddress, Secret: secret}, &resp); err != nil {
		return "", fmt.Errorf("gateway claim failed: %w", err)
	}

	c.logger.WithFields(logrus.Fields{
		"chain":  c.name,
		"escrow": escrowAddress,
		"tx":     resp.TxHash,
	}).Info("Starknet escrow claimed")
	return resp.TxHash, nil
}

// Refund triggers the timelock refund path via the gateway.
func (c *Client) Refund(ctx context.Context, escrowAddress string) (string, error) {
	var resp txResponse
	path := fmt.Sprintf("/escrows/%s/refund", escrowAddress)
	if err := c.post(ctx, path, txRequest{Account: c.accountAddress}, &resp); err != nil {
		return "", fmt.Errorf("gateway refund failed: %w", err)
	}
	return resp.TxHash, nil
}

// Approve grants the escrow factory a token allowance via the gateway.
func (c *Client) Approve(ctx context.Context, token, amount string) (string, error) {
	var resp txResponse
	req := txRequest{Account: c.accountAddress, Token: token, Amount: amount}
	if err := c.post(ctx, "/approvals", req, &resp); err != nil {
		return "", fmt.Errorf("gateway approve failed: %w", err)
	}
	return resp.TxHash, nil
}

func (c *Client) post(ctx context.Context, path string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("gateway request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read gateway response: %w", err)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("gateway returned %d: %s", resp.StatusCode, string(data))
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode gateway response: %w", err)
	}
	return nil
}
