package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hydrolink-monitor/internal/config"
	"hydrolink-monitor/internal/database"
	devicemodel "hydrolink-monitor/internal/device/model"
	devicerepository "hydrolink-monitor/internal/device/repository"
	deviceservice "hydrolink-monitor/internal/device/service"
	"hydrolink-monitor/internal/history"
	"hydrolink-monitor/internal/logger"
	"hydrolink-monitor/internal/mirror"
	"hydrolink-monitor/internal/notification"
	"hydrolink-monitor/internal/presence"
	"hydrolink-monitor/internal/routes"
	"hydrolink-monitor/internal/telemetry"
	usermodel "hydrolink-monitor/internal/user/model"
	userrepository "hydrolink-monitor/internal/user/repository"
	userservice "hydrolink-monitor/internal/user/service"
	pkgmqtt "hydrolink-monitor/pkg/mqtt"

	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("Failed to load configuration: " + err.Error() + "\n")
		os.Exit(1)
	}

	env := cfg.Server.Environment
	if env == "" {
		env = "development"
	}
	if err := logger.Init(env); err != nil {
		os.Stderr.WriteString("Failed to initialize logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting hydrolink monitor", zap.String("environment", env))

	if cfg.Database.Host == "" || cfg.Database.DBName == "" {
		logger.Fatal("Database configuration is missing. Please set DB_HOST and DB_NAME environment variables.")
	}
	if cfg.JWT.Secret == "" {
		logger.Fatal("JWT secret is missing. Please set JWT_SECRET environment variable.")
	}

	db, err := database.NewDatabase(cfg)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("Failed to close database connection", zap.Error(err))
		}
	}()

	if err := db.Migrate(
		&usermodel.User{},
		&usermodel.Address{},
		&devicemodel.Device{},
		&devicemodel.Settings{},
		&devicemodel.Link{},
		&devicemodel.MacRegistration{},
		&history.Record{},
		&notification.Notification{},
		&notification.BatteryLatch{},
		&mirror.Document{},
	); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}

	deviceRepo := devicerepository.NewRepository(db)
	userRepo := userrepository.NewRepository(db)
	historyRepo := history.NewRepository(db)
	notificationStore := notification.NewStore(db)
	mirrorStore := mirror.NewGormStore(db)

	statusMirror := mirror.New(mirrorStore, logger.Logger)
	deriver := notification.NewDeriver(notificationStore, historyRepo, logger.Logger)

	evaluator := presence.NewEvaluator(
		cfg.Monitor.StalenessTimeout,
		cfg.Monitor.PollInterval,
		logger.Logger,
		func(deviceID string, state presence.State) {
			logger.Info("device presence changed",
				zap.String("device_id", deviceID),
				zap.String("state", string(state)))
		},
	)
	evaluator.Start()
	defer evaluator.Stop()

	processor := telemetry.NewProcessor(deviceRepo, evaluator, statusMirror, deriver, historyRepo, 4, 512, logger.Logger)
	processor.Start()
	defer processor.Stop()

	subscriber, err := telemetry.NewSubscriber(&telemetry.SubscriberConfig{
		ClientConfig: &pkgmqtt.Config{
			Broker:               cfg.MQTT.Broker,
			ClientID:             cfg.MQTT.ClientID,
			Username:             cfg.MQTT.Username,
			Password:             cfg.MQTT.Password,
			CleanSession:         true,
			KeepAlive:            cfg.MQTT.KeepAlive,
			ConnectTimeout:       cfg.MQTT.ConnectTimeout,
			AutoReconnect:        true,
			MaxReconnectInterval: time.Minute,
		},
		TopicPrefix: cfg.MQTT.TopicPrefix,
		QoS:         byte(cfg.MQTT.QoS),
	}, processor, logger.Logger)
	if err != nil {
		logger.Fatal("Failed to build MQTT subscriber", zap.Error(err))
	}

	if err := subscriber.Start(); err != nil {
		logger.Fatal("Failed to start MQTT subscriber", zap.Error(err))
	}
	defer subscriber.Stop()

	userService := userservice.NewUserService(userRepo, &cfg.JWT)
	deviceService := deviceservice.NewDeviceService(deviceRepo, historyRepo, evaluator, subscriber.Client(), cfg.MQTT.TopicPrefix)

	router := routes.SetupRoutes(&routes.Dependencies{
		Config:            cfg,
		DB:                db,
		UserService:       userService,
		DeviceRepo:        deviceRepo,
		DeviceService:     deviceService,
		HistoryRepo:       historyRepo,
		NotificationStore: notificationStore,
		Processor:         processor,
	})

	host := cfg.Server.Host
	if host == "" {
		host = "0.0.0.0"
	}
	port := cfg.Server.Port
	if port == "" {
		port = "8080"
	}
	addr := net.JoinHostPort(host, port)

	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("Server starting", zap.String("address", addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down ...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal("Failed to shutdown server", zap.Error(err))
	}

	logger.Info("Server exited properly")
}
