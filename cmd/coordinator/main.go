package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/url"
	"os"
	"time"

	"github.com/absmach/flcoord"
	"github.com/absmach/flcoord/coordinator"
	"github.com/absmach/flcoord/coordinator/api"
	"github.com/absmach/flcoord/coordinator/middleware"
	"github.com/absmach/flcoord/pkg/auth"
	"github.com/absmach/flcoord/pkg/broadcast"
	"github.com/absmach/flcoord/pkg/checkpoint"
	"github.com/absmach/flcoord/pkg/fl"
	"github.com/absmach/flcoord/pkg/mqtt"
	"github.com/absmach/flcoord/pkg/registry"
	"github.com/absmach/flcoord/pkg/round"
	"github.com/absmach/flcoord/pkg/selector"
	"github.com/absmach/flcoord/pkg/storage"
	"github.com/absmach/supermq/pkg/jaeger"
	"github.com/absmach/supermq/pkg/prometheus"
	"github.com/absmach/supermq/pkg/server"
	httpserver "github.com/absmach/supermq/pkg/server/http"
	"github.com/caarlos0/env/v11"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	promclient "github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/sync/errgroup"
)

const (
	svcName       = "flcoord"
	defHTTPPort   = "8080"
	envPrefixHTTP = "FLCOORD_HTTP_"
	pathEnv       = ".env"
)

type envConfig struct {
	LogLevel      string        `env:"FLCOORD_LOG_LEVEL"       envDefault:"info"`
	InstanceID    string        `env:"FLCOORD_INSTANCE_ID"`
	ConfigPath    string        `env:"FLCOORD_CONFIG_PATH"`
	CheckpointDir string        `env:"FLCOORD_CHECKPOINT_DIR"  envDefault:"./data"`
	StartCron     string        `env:"FLCOORD_START_CRON"`
	AggregateCron string        `env:"FLCOORD_AGGREGATE_CRON"`
	MQTTAddress   string        `env:"FLCOORD_MQTT_ADDRESS"`
	MQTTQoS       uint8         `env:"FLCOORD_MQTT_QOS"        envDefault:"2"`
	MQTTTimeout   time.Duration `env:"FLCOORD_MQTT_TIMEOUT"    envDefault:"30s"`
	OTELURL       url.URL       `env:"FLCOORD_OTEL_URL"`
	TraceRatio    float64       `env:"FLCOORD_TRACE_RATIO"     envDefault:"0"`
	Storage       storage.Config
	Auth          auth.Config
	S3            checkpoint.S3Config
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	g, ctx := errgroup.WithContext(ctx)

	if _, err := os.Stat(pathEnv); err == nil {
		_ = godotenv.Load(pathEnv)
	}

	cfg := envConfig{}
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("failed to load configuration : %s", err.Error())
	}

	if cfg.InstanceID == "" {
		cfg.InstanceID = uuid.NewString()
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		log.Fatalf("failed to parse log level: %s", err.Error())
	}
	logHandler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	})
	logger := slog.New(logHandler)
	slog.SetDefault(logger)

	fileCfg := flcoord.DefaultConfig()
	if cfg.ConfigPath != "" {
		c, err := flcoord.LoadConfig(cfg.ConfigPath)
		if err != nil {
			logger.Error("failed to load config file", slog.String("path", cfg.ConfigPath), slog.Any("error", err))

			return
		}
		fileCfg = c
	}
	shape := fileCfg.ModelShape()

	var tp trace.TracerProvider
	switch {
	case cfg.OTELURL == (url.URL{}):
		tp = noop.NewTracerProvider()
	default:
		sdktp, err := jaeger.NewProvider(ctx, svcName, cfg.OTELURL, "", cfg.TraceRatio)
		if err != nil {
			logger.Error("failed to initialize opentelemetry", slog.String("error", err.Error()))

			return
		}
		defer func() {
			if err := sdktp.Shutdown(ctx); err != nil {
				logger.Error("error shutting down tracer provider", slog.Any("error", err))
			}
		}()
		tp = sdktp
	}
	tracer := tp.Tracer(svcName)

	store, err := storage.NewRoundStore(cfg.Storage, shape.Size())
	if err != nil {
		logger.Error("failed to initialize round store", slog.String("type", cfg.Storage.Type), slog.Any("error", err))

		return
	}

	var mirror checkpoint.Mirror
	if cfg.S3.Bucket != "" {
		m, err := checkpoint.NewS3Mirror(ctx, cfg.S3)
		if err != nil {
			logger.Error("failed to initialize checkpoint mirror", slog.Any("error", err))

			return
		}
		mirror = m
	}

	checkpoints, err := checkpoint.NewStore(cfg.CheckpointDir, mirror, logger)
	if err != nil {
		logger.Error("failed to initialize checkpoint store", slog.Any("error", err))

		return
	}

	startRound, err := recoverRound(ctx, checkpoints)
	if err != nil {
		logger.Error("failed to recover round counter", slog.Any("error", err))

		return
	}

	sel, err := selector.New(fileCfg.Fraction(), selector.CryptoSeed)
	if err != nil {
		logger.Error("failed to initialize selector", slog.Any("error", err))

		return
	}

	identifier, err := auth.New(cfg.Auth)
	if err != nil {
		logger.Error("failed to initialize client identification", slog.Any("error", err))

		return
	}

	gauges, err := coordinator.NewGauges(promclient.DefaultRegisterer)
	if err != nil {
		logger.Error("failed to register gauges", slog.Any("error", err))

		return
	}

	reg := registry.New(logger)
	ctrl := round.NewController(round.Config{
		Registry:    reg,
		Selector:    sel,
		Notifier:    broadcast.New(logger),
		Store:       store,
		Aggregator:  fl.NewMeanAggregator(),
		Checkpoints: checkpoints,
		Shape:       shape,
		StartRound:  startRound,
	}, logger)

	var pubsub mqtt.PubSub
	if cfg.MQTTAddress != "" {
		cc := fileCfg.Coordinator
		pubsub, err = mqtt.NewPubSub(cfg.MQTTAddress, cfg.MQTTQoS, svcName, cc.ClientID, cc.ClientKey, cc.DomainID, cc.ChannelID, cfg.MQTTTimeout, logger)
		if err != nil {
			logger.Error("failed to initialize mqtt pubsub", slog.String("error", err.Error()))

			return
		}
	}

	svc := coordinator.NewService(coordinator.Config{
		Registry:    reg,
		Controller:  ctrl,
		Store:       store,
		Checkpoints: checkpoints,
		PubSub:      pubsub,
		DomainID:    fileCfg.Coordinator.DomainID,
		ChannelID:   fileCfg.Coordinator.ChannelID,
		Gauges:      gauges,
	}, logger)
	svc = middleware.Logging(logger, svc)
	svc = middleware.Tracing(tracer, svc)
	counter, latency := prometheus.MakeMetrics(svcName, "api")
	svc = middleware.Metrics(counter, latency, svc)

	if err := svc.Subscribe(ctx); err != nil {
		logger.Error("failed to subscribe to coordinator channel", slog.String("error", err.Error()))

		return
	}

	logger.Info("Coordinator initialized",
		slog.String("model", shape.Name),
		slog.Int("parameters", shape.Size()),
		slog.Float64("fraction", sel.Fraction()),
		slog.Uint64("round", startRound),
		slog.String("storage", cfg.Storage.Type),
		slog.Bool("mqtt", pubsub != nil),
	)

	scheduler, err := coordinator.NewScheduler(svc, cfg.StartCron, cfg.AggregateCron, logger)
	if err != nil {
		logger.Error("failed to initialize round scheduler", slog.Any("error", err))

		return
	}
	if scheduler.Enabled() {
		g.Go(func() error {
			if err := scheduler.Start(ctx); err != nil && ctx.Err() == nil {
				return err
			}

			return nil
		})
	}

	httpServerConfig := server.Config{Port: defHTTPPort}
	if err := env.ParseWithOptions(&httpServerConfig, env.Options{Prefix: envPrefixHTTP}); err != nil {
		logger.Error(fmt.Sprintf("failed to load %s HTTP server configuration : %s", svcName, err.Error()))

		return
	}

	hs := httpserver.NewServer(ctx, cancel, svcName, httpServerConfig, api.MakeHandler(svc, identifier, logger, cfg.InstanceID), logger)

	g.Go(func() error {
		return hs.Start()
	})

	g.Go(func() error {
		return server.StopSignalHandler(ctx, cancel, logger, svcName, hs)
	})

	if err := g.Wait(); err != nil {
		logger.Error(fmt.Sprintf("%s service exited with error: %s", svcName, err))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := svc.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shut down coordinator", slog.Any("error", err))
	}
}

// recoverRound resumes after the newest aggregated round.
func recoverRound(ctx context.Context, checkpoints *checkpoint.Store) (uint64, error) {
	latest, ok, err := checkpoints.LatestRound(ctx)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}

	return latest + 1, nil
}
