package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nerrad567/cinnamon-core/migrations"

	"github.com/nerrad567/cinnamon-core/internal/api"
	"github.com/nerrad567/cinnamon-core/internal/audit"
	"github.com/nerrad567/cinnamon-core/internal/bridge"
	"github.com/nerrad567/cinnamon-core/internal/experience"
	"github.com/nerrad567/cinnamon-core/internal/infrastructure/config"
	"github.com/nerrad567/cinnamon-core/internal/infrastructure/database"
	"github.com/nerrad567/cinnamon-core/internal/infrastructure/influxdb"
	"github.com/nerrad567/cinnamon-core/internal/infrastructure/logging"
	"github.com/nerrad567/cinnamon-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/cinnamon-core/internal/motion"
	"github.com/nerrad567/cinnamon-core/internal/sequence"
	"github.com/nerrad567/cinnamon-core/internal/timeline"
)

// shutdownTimeout bounds the time spent stopping the experience.
const shutdownTimeout = 5 * time.Second

func serveCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the experience controller",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, getConfigPath(configPath))
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Config file (default $CINNAMON_CONFIG or "+defaultConfigPath+")")
	return cmd
}

// run is the actual application logic, separated from the command for testability.
func run(ctx context.Context, configPath string) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting Cinnamon Core",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log = logging.New(cfg.Logging, version).With("site", cfg.Site.ID)
	log.Info("configuration loaded", "path", configPath, "level", cfg.Logging.Level)

	script, err := experience.LoadScript(cfg.Experience.Script)
	if err != nil {
		return fmt.Errorf("loading experience script: %w", err)
	}
	log.Info("experience script loaded",
		"path", cfg.Experience.Script,
		"name", script.Name,
		"stages", len(script.Stages),
	)

	tracer, shutdownTracing := newTracer(cfg.Tracing, log.Component("tracing"))
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			log.Error("error shutting down tracing", "error", err)
		}
	}()

	// Open database
	db, err := database.Open(ctx, database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	if migrateErr := db.Migrate(ctx, migrations.FS, migrations.Dir); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database ready", "path", cfg.Database.Path)

	// Connect to MQTT broker
	mqttClient, err := mqtt.Connect(cfg.MQTT)
	if err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
	}
	defer func() {
		log.Info("disconnecting from MQTT")
		if closeErr := mqttClient.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}()
	mqttClient.SetLogger(log.Component("mqtt"))
	mqttClient.SetOnConnect(func() { log.Info("MQTT reconnected") })
	mqttClient.SetOnDisconnect(func(err error) { log.Warn("MQTT disconnected", "error", err) })
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)

	// Connect to InfluxDB (optional)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			st := influxClient.Stats()
			log.Info("closing InfluxDB connection", "points", st.Points, "write_errors", st.WriteErrors)
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetSite(cfg.Site.ID)
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		log.Info("InfluxDB connected", "url", cfg.InfluxDB.URL, "bucket", cfg.InfluxDB.Bucket)
	} else {
		log.Info("InfluxDB disabled")
	}

	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}

	// The loop outlives ctx so the experience can be stopped on it.
	loopCtx, stopLoop := context.WithCancel(context.Background())
	defer stopLoop()

	outbox := bridge.NewOutbox(mqttClient, bridge.DefaultOutboxSize, log.Component("bridge"))
	go outbox.Run(loopCtx)

	sched := timeline.NewScheduler(time.Now(), cfg.Engine.FrameInterval)
	loop := timeline.NewLoop(sched, timeline.LoopConfig{
		Tick:      cfg.Engine.TickInterval,
		InboxSize: cfg.Engine.InboxSize,
	}, log.Component("timeline"))
	loopDone := make(chan error, 1)
	go func() { loopDone <- loop.Run(loopCtx) }()

	hub := api.NewHub(cfg.WebSocket, log.Component("websocket"))
	runs := sequence.NewSQLiteRepository(db.DB)
	outcomes := motion.NewSQLiteRepository(db.DB)

	deps := experience.Deps{
		Loop:         loop,
		Out:          outbox,
		SequenceRepo: runs,
		MotionRepo:   outcomes,
		Hub:          hub,
		Tracer:       tracer,
		Logger:       log.Component("experience"),
		Radius:       cfg.Engine.TriggerRadius,
	}
	if influxClient != nil {
		deps.Samples = influxClient
		deps.Timings = influxClient
	}

	exp, err := experience.New(script, deps)
	if err != nil {
		return fmt.Errorf("building experience: %w", err)
	}
	if err := exp.Subscribe(mqttClient, mqttClient.QoS()); err != nil {
		return fmt.Errorf("subscribing to headset and sensors: %w", err)
	}

	server, err := api.New(api.Deps{
		Config:     cfg.API,
		WS:         cfg.WebSocket,
		Security:   cfg.Security,
		Logger:     log.Component("api"),
		Experience: exp,
		Runs:       runs,
		Outcomes:   outcomes,
		Audit:      audit.NewSQLiteRepository(db.DB),
		Hub:        hub,
		Tracer:     tracer,
		Version:    version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	if err := exp.Start(ctx, cfg.Experience.AutoStart); err != nil {
		return fmt.Errorf("starting experience: %w", err)
	}
	log.Info("initialisation complete, waiting for shutdown signal", "auto_start", cfg.Experience.AutoStart)

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, cleaning up")
	case err := <-loopDone:
		return fmt.Errorf("timeline loop exited: %w", err)
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := exp.Shutdown(stopCtx); err != nil && !errors.Is(err, timeline.ErrLoopStopped) {
		log.Warn("experience did not stop cleanly", "error", err)
	}
	stopLoop()
	<-loopDone

	dropped, failed := outbox.Stats()
	mq := mqttClient.Stats()
	log.Info("Cinnamon Core stopped",
		"commands_dropped", dropped,
		"commands_failed", failed,
		"mqtt_received", mq.Received,
		"mqtt_handler_errors", mq.HandlerErrors,
		"mqtt_reconnects", mq.Reconnects,
	)
	return nil
}

// healthCheck verifies all infrastructure connections are healthy.
// influxClient may be nil when InfluxDB is disabled.
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := mqttClient.HealthCheck(ctx); err != nil {
		return fmt.Errorf("mqtt: %w", err)
	}
	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}
	return nil
}
