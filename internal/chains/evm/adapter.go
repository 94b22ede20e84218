package evm

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"
	"time"

	"swap-backend/internal/chains"
	"swap-backend/internal/config"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/sirupsen/logrus"
)

// Contract ABIs for the fixed escrow/factory interface. The contracts are
// an external collaborator; only the entrypoints used here are declared.
const factoryABI = `[
	{"type":"function","name":"deployEscrow","stateMutability":"nonpayable","inputs":[
		{"name":"maker","type":"address"},
		{"name":"taker","type":"address"},
		{"name":"token","type":"address"},
		{"name":"amount","type":"uint256"},
		{"name":"secretHash","type":"bytes32"},
		{"name":"timelock","type":"uint256"},
		{"name":"salt","type":"bytes32"}],
	"outputs":[{"name":"escrow","type":"address"}]},
	{"type":"event","name":"EscrowDeployed","inputs":[
		{"name":"escrow","type":"address","indexed":true},
		{"name":"maker","type":"address","indexed":true},
		{"name":"taker","type":"address","indexed":true}],"anonymous":false}
]`

const escrowABI = `[
	{"type":"function","name":"claim","stateMutability":"nonpayable","inputs":[
		{"name":"secret","type":"bytes32"}],"outputs":[]},
	{"type":"function","name":"refund","stateMutability":"nonpayable","inputs":[],"outputs":[]}
]`

const erc20ABI = `[
	{"type":"function","name":"approve","stateMutability":"nonpayable","inputs":[
		{"name":"spender","type":"address"},
		{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]}
]`

// Adapter executes escrow operations against one EVM network.
type Adapter struct {
	name       string
	client     *ethclient.Client
	privateKey *ecdsa.PrivateKey
	chainID    *big.Int
	factory    common.Address
	gasLimit   uint64
	factoryABI abi.ABI
	escrowABI  abi.ABI
	erc20ABI   abi.ABI
	logger     *logrus.Logger
}

// New connects to the network and prepares the signer and ABIs.
func New(name string, cfg config.NetworkConfig, logger *logrus.Logger) (*Adapter, error) {
	if logger == nil {
		logger = logrus.New()
	}

	client, err := ethclient.Dial(cfg.RPCEndpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s RPC: %w", name, err)
	}

	privateKey, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.PrivateKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid private key for %s: %w", name, err)
	}

	parsedFactory, err := abi.JSON(strings.NewReader(factoryABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse factory ABI: %w", err)
	}
	parsedEscrow, err := abi.JSON(strings.NewReader(escrowABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse escrow ABI: %w", err)
	}
	parsedERC20, err := abi.JSON(strings.NewReader(erc20ABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse erc20 ABI: %w", err)
	}

	gasLimit := cfg.GasLimit
	if gasLimit == 0 {
		gasLimit = 1_000_000
	}

	return &Adapter{
		name:       name,
		client:     client,
		privateKey: privateKey,
		chainID:    big.NewInt(cfg.ChainID),
		factory:    common.HexToAddress(cfg.FactoryContract),
		gasLimit:   gasLimit,
		factoryABI: parsedFactory,
		escrowABI:  parsedEscrow,
		erc20ABI:   parsedERC20,
		logger:     logger,
	}, nil
}

// Name returns the configured chain name.
func (a *Adapter) Name() string {
	return a.name
}

// Family identifies the hashlock encoding this chain expects.
func (a *Adapter) Family() string {
	return "evm"
}

// DeployEscrow calls the factory and returns the escrow address from the
// EscrowDeployed event.
func (a *Adapter) DeployEscrow(ctx context.Context, params chains.EscrowParams) (string, error) {
	amount, ok := new(big.Int).SetString(params.Amount, 10)
	if !ok {
		return "", fmt.Errorf("invalid escrow amount %q", params.Amount)
	}
	secretHash, err := hashFromHex(params.SecretHash)
	if err != nil {
		return "", fmt.Errorf("invalid secret hash: %w", err)
	}
	salt := crypto.Keccak256Hash([]byte(fmt.Sprintf("%s-%d", params.SecretHash, time.Now().UnixNano())))

	a.logger.WithFields(logrus.Fields{
		"chain":  a.name,
		"maker":  params.Maker,
		"taker":  params.Taker,
		"amount": params.Amount,
	}).Info("Deploying EVM escrow")

	contract := bind.NewBoundContract(a.factory, a.factoryABI, a.client, a.client, a.client)
	opts, err := a.transactOpts(ctx)
	if err != nil {
		return "", err
	}

	tx, err := contract.Transact(opts, "deployEscrow",
		common.HexToAddress(params.Maker),
		common.HexToAddress(params.Taker),
		common.HexToAddress(params.Token),
		amount,
		secretHash,
		big.NewInt(params.Timelock),
		salt,
	)
	if err != nil {
		return "", fmt.Errorf("deployEscrow transaction failed: %w", err)
	}

	receipt, err := a.waitMined(ctx, tx)
	if err != nil {
		return "", err
	}

	deployedTopic := a.factoryABI.Events["EscrowDeployed"].ID
	for _, entry := range receipt.Logs {
		if entry.Address != a.factory || len(entry.Topics) < 2 || entry.Topics[0] != deployedTopic {
			continue
		}
		escrow := common.BytesToAddress(entry.Topics[1].Bytes())
		a.logger.WithFields(logrus.Fields{
			"chain":  a.name,
			"escrow": escrow.Hex(),
			"tx":     tx.Hash().Hex(),
		}).Info("EVM escrow deployed")
		return escrow.Hex(), nil
	}
	return "", fmt.Errorf("EscrowDeployed event not found in tx %s", tx.Hash().Hex())
}

// Claim reveals the secret to the escrow and releases its funds.
func (a *Adapter) Claim(ctx context.Context, escrowAddress, secret string) (string, error) {
	secretWord, err := hashFromHex(secret)
	if err != nil {
		return "", fmt.Errorf("invalid secret: %w", err)
	}

	contract := bind.NewBoundContract(common.HexToAddress(escrowAddress), a.escrowABI, a.client, a.client, a.client)
	opts, err := a.transactOpts(ctx)
	if err != nil {
		return "", err
	}

	tx, err := contract.Transact(opts, "claim", secretWord)
	if err != nil {
		return "", fmt.Errorf("claim transaction failed: %w", err)
	}
	if _, err := a.waitMined(ctx, tx); err != nil {
		return "", err
	}

	a.logger.WithFields(logrus.Fields{
		"chain":  a.name,
		"escrow": escrowAddress,
		"tx":     tx.Hash().Hex(),
	}).Info("EVM escrow claimed")
	return tx.Hash().Hex(), nil
}

// Refund returns escrow funds to the funder after the timelock.
func (a *Adapter) Refund(ctx context.Context, escrowAddress string) (string, error) {
	contract := bind.NewBoundContract(common.HexToAddress(escrowAddress), a.escrowABI, a.client, a.client, a.client)
	opts, err := a.transactOpts(ctx)
	if err != nil {
		return "", err
	}

	tx, err := contract.Transact(opts, "refund")
	if err != nil {
		return "", fmt.Errorf("refund transaction failed: %w", err)
	}
	if _, err := a.waitMined(ctx, tx); err != nil {
		return "", err
	}

	a.logger.WithFields(logrus.Fields{
		"chain":  a.name,
		"escrow": escrowAddress,
		"tx":     tx.Hash().Hex(),
	}).Info("EVM escrow refunded")
	return tx.Hash().Hex(), nil
}

// Approve grants the escrow factory an ERC-20 allowance.
func (a *Adapter) Approve(ctx context.Context, token, amount string) (string, error) {
	value, ok := new(big.Int).SetString(amount, 10)
	if !ok {
		return "", fmt.Errorf("invalid approval amount %q", amount)
	}

	contract := bind.NewBoundContract(common.HexToAddress(token), a.erc20ABI, a.client, a.client, a.client)
	opts, err := a.transactOpts(ctx)
	if err != nil {
		return "", err
	}

	tx, err := contract.Transact(opts, "approve", a.factory, value)
	if err != nil {
		return "", fmt.Errorf("approve transaction failed: %w", err)
	}
	if _, err := a.waitMined(ctx, tx); err != nil {
		return "", err
	}
	return tx.Hash().Hex(), nil
}

func (a *Adapter) transactOpts(ctx context.Context) (*bind.TransactOpts, error) {
	opts, err := bind.NewKeyedTransactorWithChainID(a.privateKey, a.chainID)
	if err != nil {
		return nil, fmt.Errorf("failed to build transactor: %w", err)
	}
	opts.Context = ctx
	opts.GasLimit = a.gasLimit

	gasPrice, err := a.client.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch gas price: %w", err)
	}
	opts.GasPrice = gasPrice
	return opts, nil
}

func (a *Adapter) waitMined(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
	receipt, err := bind.WaitMined(ctx, a.client, tx)
	if err != nil {
		return nil, fmt.Errorf("failed waiting for tx %s: %w", tx.Hash().Hex(), err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return nil, fmt.Errorf("transaction %s reverted", tx.Hash().Hex())
	}
	return receipt, nil
}

func hashFromHex(value string) ([32]byte, error) {
	var out [32]byte
	cleaned := strings.TrimPrefix(value, "0x")
	if len(cleaned) != 64 {
		return out, fmt.Errorf("expected 32-byte hex value, got %d chars", len(cleaned))
	}
	copy(out[:], common.FromHex(value))
	return out, nil
}
