package main

import (
	"context"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/oLauand/subtitlesforall/internal/api/ws"
	"github.com/oLauand/subtitlesforall/internal/app"
	"github.com/oLauand/subtitlesforall/internal/config"
	"github.com/oLauand/subtitlesforall/internal/events"
	"github.com/oLauand/subtitlesforall/internal/observability"
	"github.com/oLauand/subtitlesforall/internal/observability/logging"
	"github.com/oLauand/subtitlesforall/internal/observability/metrics"
	"github.com/oLauand/subtitlesforall/internal/service/session"
	"github.com/oLauand/subtitlesforall/internal/service/stt"
	"github.com/oLauand/subtitlesforall/internal/service/stt/alignatt"
	"github.com/oLauand/subtitlesforall/internal/service/stt/google"
	"github.com/oLauand/subtitlesforall/internal/service/stt/mock"
	"github.com/oLauand/subtitlesforall/internal/streaming"
)

func main() {
	// Local development overrides; absent in deployment.
	_ = godotenv.Load()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	logCfg := logging.DefaultConfig()
	logCfg.Level = cfg.Observability.LogLevel
	if os.Getenv("ENV") == "dev" {
		logCfg.Format = "console"
	}
	logging.Init(logCfg)

	application := app.New(cfg)
	if err := application.Start(); err != nil {
		log.Fatal().Err(err).Msg("Application start failed")
	}

	// Kafka publisher with separate topics for partials and segments
	publisher := events.New(&events.Config{
		Enabled:      cfg.Kafka.Enabled,
		Brokers:      cfg.Kafka.Brokers,
		TopicPartial: cfg.Kafka.PartialTopic,
		TopicSegment: cfg.Kafka.SegmentTopic,
		Principal:    cfg.Kafka.Principal,
		WriteTimeout: cfg.Kafka.WriteTimeout,
		BatchTimeout: cfg.Kafka.BatchTimeout,
	})
	defer publisher.Close()

	limits := session.Limits{
		MaxAudioBytes: cfg.SessionLimits.MaxAudioBytes,
		MaxDuration:   cfg.SessionLimits.MaxDuration,
		MaxPartials:   cfg.SessionLimits.MaxPartials,
	}

	factory := adapterFactory(cfg)

	wsServer := ws.NewServer(":"+cfg.Service.WSPort, factory, publisher, limits, cfg.STT.Provider)
	wsServer.Start()

	obsServer := observability.NewServer(":" + cfg.Service.HTTPPort)
	obsServer.Start()

	// gRPC plane carries health checks and reflection for ops tooling.
	lis, err := net.Listen("tcp", ":"+cfg.Service.GRPCPort)
	if err != nil {
		log.Fatal().Err(err).Str("port", cfg.Service.GRPCPort).Msg("Failed to listen")
	}

	grpcServer := grpc.NewServer(
		grpc.UnaryInterceptor(observability.UnaryServerInterceptor()),
		grpc.StreamInterceptor(observability.StreamServerInterceptor(metrics.DefaultMetrics)),
	)

	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus("subtitlesforall.TranscriptionService", grpc_health_v1.HealthCheckResponse_SERVING)

	reflection.Register(grpcServer)

	go func() {
		log.Info().Str("port", cfg.Service.GRPCPort).Msg("gRPC server started")
		if err := grpcServer.Serve(lis); err != nil {
			log.Fatal().Err(err).Msg("gRPC serve failed")
		}
	}()

	log.Info().
		Str("wsPort", cfg.Service.WSPort).
		Str("httpPort", cfg.Service.HTTPPort).
		Str("provider", cfg.STT.Provider).
		Msg("Subtitles service started")

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	log.Info().Msg("Shutting down")
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_NOT_SERVING)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := wsServer.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("WebSocket shutdown failed")
	}
	if err := obsServer.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Observability shutdown failed")
	}
	grpcServer.GracefulStop()
	application.Shutdown()
}

// adapterFactory builds a per-session adapter for the configured
// provider. The client's config frame can narrow language, task and
// VAD per session.
func adapterFactory(cfg *config.Config) ws.AdapterFactory {
	return func(sessionID string, opts ws.SessionOptions) (stt.Adapter, error) {
		switch cfg.STT.Provider {
		case "google":
			gc := google.DefaultConfig()
			gc.SampleRateHz = cfg.Streaming.SampleRateHz
			if opts.Language != "" {
				gc.LanguageCode = opts.Language
			} else {
				gc.LanguageCode = cfg.STT.LanguageCode
			}
			return google.New(context.Background(), gc)
		case "mock":
			return mock.New(), nil
		default:
			sc := streaming.Config{
				SampleRate:       cfg.Streaming.SampleRateHz,
				StepMs:           cfg.Streaming.StepMs,
				LengthMs:         cfg.Streaming.LengthMs,
				KeepMs:           cfg.Streaming.KeepMs,
				FrameThreshold:   cfg.Streaming.FrameThreshold,
				FrameStrideMs:    cfg.Streaming.FrameStrideMs,
				UseVAD:           cfg.Streaming.UseVAD || opts.UseVAD,
				Language:         cfg.Streaming.Language,
				Translate:        cfg.Streaming.Translate || opts.Translate,
				Timestamps:       cfg.Streaming.Timestamps,
				MaxContextTokens: cfg.Streaming.MaxContextTokens,
			}
			if opts.Language != "" {
				sc.Language = opts.Language
			}
			engine, err := alignatt.NewEngine("mock", sc)
			if err != nil {
				return nil, err
			}
			return alignatt.New(engine, alignatt.Config{Streaming: sc}), nil
		}
	}
}
