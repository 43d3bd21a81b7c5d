package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/handlers"

	"glove-backend/internal/aggregator"
	"glove-backend/internal/api"
	"glove-backend/internal/database"
	"glove-backend/internal/history"
	"glove-backend/internal/interpret"
	"glove-backend/internal/logging"
	"glove-backend/internal/metrics"
	"glove-backend/internal/mqtt"
	"glove-backend/internal/realtime"
	"glove-backend/internal/sensor"
	"glove-backend/internal/services"
	"glove-backend/pkg/config"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("glove-backend: %v", err)
	}
}

func run() error {
	// Load configuration
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		var cfgErr *config.ConfigurationError
		if errors.As(err, &cfgErr) && cfgErr.Key == "OPENAI_API_KEY" {
			return fmt.Errorf("%w (set SIMULATION_ONLY=true to run without external inference)", err)
		}
		return err
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}
	defer logger.Close()
	logger.Info("starting glove backend", "addr", cfg.HTTPAddr, "history_backend", cfg.HistoryBackend, "mqtt", cfg.MQTTEnabled)

	// Create context for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()

	// === History store ===
	var store history.Store
	var db *database.ClickHouseDB
	switch cfg.HistoryBackend {
	case "clickhouse":
		db, err = database.NewClickHouseDB(ctx, cfg.ClickHouseAddr, cfg.ClickHouseDB, cfg.ClickHouseUser, cfg.ClickHousePass,
			logger.With("component", "clickhouse"))
		if err != nil {
			return fmt.Errorf("initializing ClickHouse: %w", err)
		}
		defer db.Close()
		store = db
	default:
		store = history.NewMemoryStore()
	}

	// === Interpretation strategies ===
	catalog := interpret.DefaultCatalog()
	if cfg.CatalogPath != "" {
		var seeded bool
		catalog, seeded, err = interpret.LoadOrSeedCatalog(cfg.CatalogPath)
		if err != nil {
			return fmt.Errorf("loading catalog: %w", err)
		}
		logger.Info("catalog_loaded", "path", cfg.CatalogPath, "entries", len(catalog), "seeded", seeded)
	}
	simulator, err := interpret.NewSimulator(catalog, nil)
	if err != nil {
		return fmt.Errorf("building simulator: %w", err)
	}

	var external interpret.Interpreter
	if err := cfg.RequireInferenceKey(); err == nil {
		external = interpret.NewOpenAI(interpret.OpenAIConfig{
			APIKey:    cfg.OpenAIAPIKey,
			BaseURL:   cfg.OpenAIBaseURL,
			Model:     cfg.OpenAIModel,
			MaxTokens: cfg.OpenAIMaxTokens,
		}, nil)
	} else {
		logger.Warn("external inference disabled", "reason", err)
	}
	interpreter := interpret.NewService(simulator, external)

	// === Realtime hub and generator ===
	hub := realtime.NewHub(logger.With("component", "hub"), m)

	var source sensor.Source = sensor.NewRandomSource(nil)
	var publisher *mqtt.Publisher
	if cfg.MQTTEnabled {
		mqttLogger := logger.With("component", "mqtt")
		mqttClient, err := mqtt.NewClient(mqtt.ClientConfig{
			Broker:   cfg.MQTTBroker,
			ClientID: cfg.MQTTClientID,
			Username: cfg.MQTTUsername,
			Password: cfg.MQTTPassword,
		}, mqttLogger)
		if err != nil {
			return fmt.Errorf("initializing MQTT client: %w", err)
		}
		defer mqttClient.Close()

		buffer := aggregator.NewSensorBuffer(logger.With("component", "glove_buffer"))
		source = sensor.NewHardwareSource(buffer, cfg.HardwareStaleAfter, source)

		var registry services.GloveRegistry
		if db != nil {
			registry = db
		}
		gloveService := services.NewGloveService(buffer, registry, services.DefaultGloveChannelSize,
			logger.With("component", "glove_ingest"))
		go gloveService.Start(ctx)

		subscriber := mqtt.NewSubscriber(mqttClient.GetNativeClient(), mqtt.SubscriberConfig{
			GloveFlexTopic: cfg.MQTTTopicGloveFlex,
			SelfTopics:     []string{cfg.MQTTTopicSensorMirror, cfg.MQTTTopicInterpretation},
		}, gloveService.GloveChan, mqttLogger)
		if err := subscriber.SubscribeAll(); err != nil {
			return fmt.Errorf("subscribing to MQTT topics: %w", err)
		}
		mqttClient.OnConnect(func() {
			if err := subscriber.SubscribeAll(); err != nil {
				mqttLogger.Warn("mqtt_resubscribe_failed", "error", err)
			}
		})

		publisher = mqtt.NewPublisher(mqttClient.GetNativeClient(), mqtt.PublisherConfig{
			SampleTopic:         cfg.MQTTTopicSensorMirror,
			InterpretationTopic: cfg.MQTTTopicInterpretation,
		}, mqttLogger)
		go publisher.Start(ctx)
	}

	broadcastConfig := services.BroadcastServiceConfig{Interval: cfg.SensorTick, Observer: m}
	apiConfig := api.Config{
		DefaultLimit:     cfg.HistoryListDefault,
		InferenceTimeout: cfg.InferenceTimeout,
		Observer:         m,
	}
	if publisher != nil {
		broadcastConfig.Mirror = publisher
		apiConfig.Notifier = publisher
	}

	broadcaster := services.NewBroadcastService(sensor.NewGenerator(source), hub, broadcastConfig,
		logger.With("component", "broadcast"))
	go broadcaster.Start(ctx)

	// === HTTP server ===
	handler := api.NewHandler(store, interpreter, hub, apiConfig, logger.With("component", "api"))
	router := api.NewRouter(handler, hub.ServeWS, m.Handler())

	var root http.Handler = router
	root = handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type"}),
	)(root)
	root = handlers.RecoveryHandler(handlers.PrintRecoveryStack(true))(root)
	root = handlers.CombinedLoggingHandler(logger.Writer, root)

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           root,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("http_listening", "addr", cfg.HTTPAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	// === Wait for interrupt signal ===
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}
	stop()

	// === Graceful shutdown ===
	hub.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http_shutdown_failed", "error", err)
	}

	logger.Info("shutdown complete")
	return nil
}
