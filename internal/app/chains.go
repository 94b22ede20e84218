package app

import (
	"fmt"

	"swap-backend/internal/chains"
	"swap-backend/internal/chains/evm"
	"swap-backend/internal/chains/starkgate"
	"swap-backend/internal/config"

	"github.com/sirupsen/logrus"
)

// BuildChainRegistry instantiates one adapter per enabled network. The
// registry is passed to whoever needs it; no adapter is reachable through
// package state.
func BuildChainRegistry(cfg *config.ChainsConfig, logger *logrus.Logger) (*chains.Registry, error) {
	registry := chains.NewRegistry()

	for name, network := range cfg.Networks {
		if !network.Enabled {
			continue
		}

		var (
			adapter chains.Adapter
			err     error
		)
		switch network.Family {
		case "evm":
			adapter, err = evm.New(name, network, logger)
		case "starkgate":
			adapter, err = starkgate.New(name, network, logger)
		default:
			return nil, fmt.Errorf("unknown chain family %q for network %q", network.Family, name)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to build adapter for %q: %w", name, err)
		}

		registry.Register(adapter)
		logger.WithFields(logrus.Fields{
			"chain":  name,
			"family": network.Family,
		}).Info("Chain adapter registered")
	}

	if len(registry.Names()) == 0 {
		return nil, fmt.Errorf("no enabled networks configured")
	}
	return registry, nil
}
