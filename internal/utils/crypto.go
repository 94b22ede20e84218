package utils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
)

// One secret backs two hashlocks: the EVM escrow commits to
// keccak256(secret) and the Starknet escrow to the same digest with the
// byte order reversed. The two values are one logical commitment, never
// two independently verifiable secrets.

// GenerateSecret returns a 32-byte random secret as a 0x-prefixed hex
// string. The maker normally generates this in their wallet; the helper
// exists for tests and the operator tooling.
func GenerateSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate secret: %w", err)
	}
	return "0x" + hex.EncodeToString(buf), nil
}

// EthereumHashlock computes the EVM-convention hashlock for a secret.
func EthereumHashlock(secret string) (string, error) {
	raw, err := decodeHex(secret)
	if err != nil {
		return "", err
	}
	return "0x" + hex.EncodeToString(crypto.Keccak256(raw)), nil
}

// StarknetHashlock computes the Starknet-convention hashlock: the keccak256
// digest with reversed byte order.
func StarknetHashlock(secret string) (string, error) {
	raw, err := decodeHex(secret)
	if err != nil {
		return "", err
	}
	digest := crypto.Keccak256(raw)
	reversed := make([]byte, len(digest))
	for i, b := range digest {
		reversed[len(digest)-1-i] = b
	}
	return "0x" + hex.EncodeToString(reversed), nil
}

// VerifySecret checks a revealed secret against both hashlock encodings.
// Both must match: the commitment is a single value with two
// serializations.
func VerifySecret(secret, ethereumHashlock, starknetHashlock string) (bool, error) {
	eth, err := EthereumHashlock(secret)
	if err != nil {
		return false, err
	}
	stark, err := StarknetHashlock(secret)
	if err != nil {
		return false, err
	}
	return strings.EqualFold(eth, ethereumHashlock) && strings.EqualFold(stark, starknetHashlock), nil
}

func decodeHex(s string) ([]byte, error) {
	trimmed := strings.TrimPrefix(s, "0x")
	raw, err := hex.DecodeString(trimmed)
	if err != nil {
		return nil, fmt.Errorf("invalid hex value %q: %w", s, err)
	}
	return raw, nil
}
