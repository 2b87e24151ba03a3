package main

import (
	"context"
	"errors"

	"labbook/internal/audit/consumer"
	"labbook/internal/audit/handler"
	"labbook/internal/audit/repository"
	"labbook/internal/audit/service"
	"labbook/pkg/app"
	"labbook/pkg/config"
	"labbook/pkg/kafka"
	kafka_config "labbook/pkg/kafka/config"
	kafka_middleware "labbook/pkg/kafka/middleware"
)

const (
	ServiceName     = "audit"
	consumerGroupID = "labbook-audit"
)

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetMongo()
	defer cfg.GracefulShutdown()

	cfg.Log.Info("Starting Audit service")

	auditRepo := repository.NewMongoAuditRepository(cfg)

	kafkaCfg := kafka_config.Load()
	if kafkaCfg.Enabled() {
		stop := startConsumer(cfg, kafkaCfg, auditRepo)
		defer stop()
	} else {
		cfg.Log.Warn("Kafka brokers not configured, audit trail will not receive new events")
	}

	auditService := service.NewAuditService(auditRepo, cfg)
	serverApp := app.NewApplication(cfg)
	serverApp.SetApp(handler.NewAuditHandler(auditService, cfg.Log))
	serverApp.Run()
}

func startConsumer(cfg *config.Config, kafkaCfg *kafka_config.Config, repo repository.AuditRepository) func() {
	recorder := consumer.NewRecorder(repo, cfg.Log)

	c, err := kafka.NewConsumer(
		kafkaCfg,
		kafka_config.TopicBookingEvents,
		consumerGroupID,
		kafka_config.TopicBookingEventsDLQ,
		recorder.Handle,
		cfg.Log,
	)
	if err != nil {
		cfg.Log.Fatal("Failed to initialize audit consumer", "error", err)
	}
	c.Use(kafka_middleware.LoggingConsumerMiddleware(cfg.Log))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		if err := c.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			cfg.Log.Error("Audit consumer stopped", "error", err)
		}
	}()
	cfg.Log.Info("Audit consumer started",
		"topic", kafka_config.TopicBookingEvents,
		"group_id", consumerGroupID,
	)

	return func() {
		cancel()
		if err := c.Close(); err != nil {
			cfg.Log.Error("Failed to close audit consumer", "error", err)
		}
	}
}
