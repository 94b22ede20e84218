// refund-escrow is the operator tool for the timelock refund path. It is
// the manual remediation for assignments stalled at src_deployed once the
// escrow's timelock has passed.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/sirupsen/logrus"

	"swap-backend/internal/app"
	"swap-backend/internal/config"
)

func main() {
	configPath := flag.String("config", "", "path to config file (default: config.yaml, config.local.yaml preferred)")
	chain := flag.String("chain", "", "chain name the escrow lives on (required)")
	escrow := flag.String("escrow", "", "escrow contract address (required)")
	timeout := flag.Duration("timeout", 5*time.Minute, "how long to wait for confirmation")
	flag.Parse()

	if *chain == "" || *escrow == "" {
		log.Fatalf("Usage: refund-escrow -chain <name> -escrow <address> [-config <path>]")
	}

	if err := config.LoadConfig(*configPath); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	registry, err := app.BuildChainRegistry(&config.AppConfig.Chains, logger)
	if err != nil {
		log.Fatalf("Failed to build chain adapters: %v", err)
	}

	adapter, err := registry.Get(*chain)
	if err != nil {
		log.Fatalf("Unknown chain %q (configured: %v)", *chain, registry.Names())
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	log.Printf("🔁 Refunding escrow %s on %s...", *escrow, *chain)
	txHash, err := adapter.Refund(ctx, *escrow)
	if err != nil {
		log.Fatalf("❌ Refund failed: %v", err)
	}
	log.Printf("✅ Refund confirmed: %s", txHash)
}
