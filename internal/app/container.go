package app

import (
	"fmt"
	"log"
	"sync"

	"swap-backend/internal/config"
	"swap-backend/internal/db"
	"swap-backend/internal/events"
	"swap-backend/internal/repository"
	"swap-backend/internal/services"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ServiceContainer wires the order book service graph
type ServiceContainer struct {
	DB     *gorm.DB
	Logger *logrus.Logger

	// Repositories
	OrderRepo      repository.OrderRepository
	AssignmentRepo repository.AssignmentRepository
	EventRepo      repository.EventRepository

	// Event telemetry (optional)
	Publisher *events.Publisher

	// Core Services
	OrderService *services.OrderService
	StallMonitor *services.StallMonitorService
}

// Global service container instance
var Container *ServiceContainer
var containerOnce sync.Once

// InitializeContainer builds the container once
func InitializeContainer() (*ServiceContainer, error) {
	var initErr error

	containerOnce.Do(func() {
		log.Println("🚀 Initializing Service Container...")

		logger := logrus.New()
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

		container := &ServiceContainer{
			DB:     db.DB,
			Logger: logger,
		}

		if err := container.initRepositories(); err != nil {
			initErr = fmt.Errorf("failed to initialize repositories: %w", err)
			return
		}

		// NATS is optional telemetry, its absence never blocks startup.
		container.initPublisher()

		if err := container.initServices(); err != nil {
			initErr = fmt.Errorf("failed to initialize services: %w", err)
			return
		}

		Container = container
		log.Println("✅ Service Container initialized successfully")
	})

	return Container, initErr
}

func (c *ServiceContainer) initRepositories() error {
	log.Println("📦 Initializing Repositories...")

	if c.DB == nil {
		return fmt.Errorf("database not initialized")
	}
	c.OrderRepo = repository.NewOrderRepository(c.DB)
	c.AssignmentRepo = repository.NewAssignmentRepository(c.DB)
	c.EventRepo = repository.NewEventRepository(c.DB)
	return nil
}

func (c *ServiceContainer) initPublisher() {
	if config.AppConfig == nil || config.AppConfig.NATS.URL == "" {
		log.Println("ℹ️ NATS not configured, event telemetry disabled")
		return
	}

	publisher, err := events.NewPublisher(&config.AppConfig.NATS)
	if err != nil {
		log.Printf("⚠️ NATS connection failed, continuing without event telemetry: %v", err)
		return
	}
	c.Publisher = publisher
}

func (c *ServiceContainer) initServices() error {
	log.Println("🔧 Initializing Services...")

	eventLimit := 10
	stallInterval := 0
	if config.AppConfig != nil {
		eventLimit = config.AppConfig.Relayer.EventLimit
		stallInterval = config.AppConfig.Relayer.StallMonitorInterval
	}

	c.OrderService = services.NewOrderService(
		c.OrderRepo,
		c.AssignmentRepo,
		c.EventRepo,
		c.Publisher,
		c.Logger,
		eventLimit,
	)

	if stallInterval > 0 {
		c.StallMonitor = services.NewStallMonitorService(
			c.AssignmentRepo,
			c.EventRepo,
			c.Publisher,
			c.Logger,
			stallInterval,
		)
	}
	return nil
}

// Shutdown stops background services and releases external connections.
func (c *ServiceContainer) Shutdown() {
	if c.StallMonitor != nil {
		c.StallMonitor.Stop()
	}
	if c.Publisher != nil {
		c.Publisher.Close()
	}
}
