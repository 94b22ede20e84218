package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"swap-backend/internal/app"
	"swap-backend/internal/clients"
	"swap-backend/internal/config"
	"swap-backend/internal/services"
)

func main() {
	configPath := flag.String("config", "", "path to config file (default: config.yaml, config.local.yaml preferred)")
	flag.Parse()

	if err := config.LoadConfig(*configPath); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	cfg := config.AppConfig

	if cfg.Resolver.RelayerURL == "" {
		log.Fatalf("resolver.relayerUrl is required")
	}
	if cfg.Resolver.ResolverAddress == "" {
		log.Fatalf("resolver.resolverAddress is required")
	}

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	registry, err := app.BuildChainRegistry(&cfg.Chains, logger)
	if err != nil {
		log.Fatalf("Failed to build chain adapters: %v", err)
	}

	relayer := clients.NewRelayerClient(cfg.Resolver.RelayerURL, cfg.Resolver.HTTPTimeout)

	orchestrator := services.NewResolverOrchestrator(relayer, registry, services.ResolverOrchestratorConfig{
		ResolverAddress:  cfg.Resolver.ResolverAddress,
		PendingInterval:  time.Duration(cfg.Resolver.PendingInterval) * time.Second,
		RevealedInterval: time.Duration(cfg.Resolver.RevealedInterval) * time.Second,
	}, logger)

	orchestrator.Start()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("🛑 Shutting down resolver...")
	orchestrator.Stop()
	log.Println("✅ Shutdown complete")
}
