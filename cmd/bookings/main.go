package main

import (
	"labbook/internal/bookings/events"
	"labbook/internal/bookings/handler"
	"labbook/internal/bookings/repository"
	"labbook/internal/bookings/service"
	"labbook/internal/bookings/validator"
	"labbook/pkg/app"
	"labbook/pkg/config"
	kafka_config "labbook/pkg/kafka/config"
)

const ServiceName = "bookings"

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetMongo()
	defer cfg.GracefulShutdown()

	cfg.Log.Info("Starting Bookings service")

	publisher, err := events.NewPublisher(kafka_config.Load(), cfg.Log)
	if err != nil {
		cfg.Log.Fatal("Failed to initialize event publisher", "error", err)
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			cfg.Log.Error("Failed to close event publisher", "error", err)
		}
	}()

	bookingService := initServices(cfg, publisher)
	serverApp := app.NewApplication(cfg)
	serverApp.SetApp(handler.NewBookingHandler(bookingService, cfg.Log))
	serverApp.Run()
}

func initServices(cfg *config.Config, publisher events.Publisher) service.BookingService {
	bookingValidator := validator.NewBookingValidator(cfg.Log)
	bookingRepo := repository.NewMongoBookingRepository(cfg)
	lockRepo := repository.NewBookingLockRepository(cfg)
	machineFinder := repository.NewMachineFinder(cfg)

	bookingService := service.NewBookingService(
		bookingRepo,
		lockRepo,
		machineFinder,
		publisher,
		bookingValidator,
		cfg,
	)

	cfg.Log.Info("Booking service initialized", "database", cfg.MongoDatabaseName)
	return bookingService
}
