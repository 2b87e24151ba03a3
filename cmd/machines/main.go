package main

import (
	"labbook/internal/machines/handler"
	"labbook/internal/machines/repository"
	"labbook/internal/machines/service"
	"labbook/internal/machines/validator"
	"labbook/pkg/app"
	"labbook/pkg/config"
)

const ServiceName = "machines"

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetMongo()
	defer cfg.GracefulShutdown()

	cfg.Log.Info("Starting Machines service")

	machineService := initServices(cfg)
	serverApp := app.NewApplication(cfg)
	serverApp.SetApp(handler.NewMachineHandler(machineService, cfg.Log))
	serverApp.Run()
}

func initServices(cfg *config.Config) service.MachineService {
	machineValidator := validator.NewMachineValidator(cfg.Log)
	machineRepo := repository.NewMongoMachineRepository(cfg)
	machineService := service.NewMachineService(machineRepo, machineValidator, cfg)

	cfg.Log.Info("Machine service initialized", "database", cfg.MongoDatabaseName)
	return machineService
}
