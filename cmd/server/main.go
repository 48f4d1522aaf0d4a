package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"salonpos-backend/internal/config"
	"salonpos-backend/internal/db"
	"salonpos-backend/internal/handler"
	"salonpos-backend/internal/repository"
	"salonpos-backend/internal/server"
	"salonpos-backend/internal/service"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pg, err := db.New(ctx, cfg)
	if err != nil {
		logger.Error("failed to connect database", "err", err)
		os.Exit(1)
	}
	defer pg.Close()

	// repositories
	userRepo := repository.UserRepository{DB: pg}
	professionalRepo := repository.ProfessionalRepository{DB: pg}
	clientRepo := repository.ClientRepository{DB: pg}
	catalogRepo := repository.CatalogRepository{DB: pg}
	advanceRepo := repository.AdvanceRepository{DB: pg}
	appointmentRepo := repository.AppointmentRepository{DB: pg}
	closureRepo := repository.ClosureRepository{DB: pg}
	settingsRepo := repository.SettingsRepository{DB: pg}
	notificationRepo := repository.NotificationRepository{DB: pg}

	// services
	authSvc := service.AuthService{Config: cfg, Users: userRepo, Logger: logger}
	closureSvc := service.NewClosureService(closureRepo, &notificationRepo, logger, cfg.ClosureConfirmTimeout)

	// handlers
	healthHandler := handler.HealthHandler{DB: pg}
	authHandler := handler.AuthHandler{Service: &authSvc}
	professionalHandler := handler.ProfessionalHandler{Repo: professionalRepo}
	clientHandler := handler.ClientHandler{Repo: clientRepo}
	catalogHandler := handler.CatalogHandler{Repo: catalogRepo, Currency: cfg.DefaultCurrency}
	advanceHandler := handler.AdvanceHandler{Repo: advanceRepo}
	appointmentHandler := handler.AppointmentHandler{Repo: appointmentRepo, Professionals: professionalRepo, Settings: settingsRepo}
	bookingHandler := handler.BookingHandler{
		Appointments:  appointmentRepo,
		Professionals: professionalRepo,
		Clients:       clientRepo,
		Catalog:       catalogRepo,
		Settings:      settingsRepo,
		Wizards:       handler.NewWizardStore(),
	}
	closureHandler := handler.ClosureHandler{Service: closureSvc, Repo: closureRepo}
	settingsHandler := handler.SettingsHandler{Repo: settingsRepo, DefaultCurrency: cfg.DefaultCurrency}
	notificationHandler := handler.NotificationHandler{Repo: notificationRepo}

	router := server.NewRouter(cfg, logger,
		healthHandler, authHandler, professionalHandler, clientHandler, catalogHandler,
		advanceHandler, appointmentHandler, bookingHandler, closureHandler, settingsHandler, notificationHandler)

	if err := server.Start(ctx, cfg, router, logger); err != nil {
		logger.Error("server error", "err", err)
		os.Exit(1)
	}
}
