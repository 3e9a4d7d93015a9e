package main

import (
	"context"
	"net"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	flag "github.com/spf13/pflag"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	grpcapi "podcast-voice-service/internal/api/grpc"
	"podcast-voice-service/internal/app"
	"podcast-voice-service/internal/config"
	httpapi "podcast-voice-service/internal/http"
	"podcast-voice-service/internal/models"
	"podcast-voice-service/internal/observability"
	"podcast-voice-service/internal/observability/logging"
	"podcast-voice-service/internal/observability/metrics"
)

func main() {
	envFile := flag.String("env", ".env", "optional dotenv file loaded before the environment is read")
	connect := flag.Bool("connect", true, "join the voice room on startup when token credentials are configured")
	flag.Parse()

	if err := config.LoadEnvFile(*envFile); err != nil {
		log.Fatal().Err(err).Str("file", *envFile).Msg("Failed to load env file")
	}
	cfg := config.Load()

	logging.Init(logging.Config{
		Level:      cfg.Observability.LogLevel,
		Format:     cfg.Observability.LogFormat,
		TimeFormat: time.RFC3339,
	})

	application, err := app.New(cfg, metrics.DefaultMetrics)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build application")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := application.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to start application")
	}

	if *connect && application.Session != nil {
		application.Session.OnResponse(func(text string) {
			log.Info().Str("text", text).Msg("Voice response")
		})
		application.Session.OnResult(func(cmd models.VoiceCommand) {
			log.Info().Str("commandId", cmd.ID).Str("intent", string(cmd.Intent.Type)).Msg("Voice command handled")
		})
		if err := application.Session.Connect(ctx, cfg.Voice.Room, cfg.Voice.Participant, nil); err != nil {
			log.Warn().Err(err).Str("url", cfg.Voice.URL).Msg("Voice session unavailable, serving APIs only")
		} else if err := application.Session.StartListening(ctx); err != nil {
			log.Warn().Err(err).Msg("Failed to start listening")
		}
	}

	lis, err := net.Listen("tcp", ":"+cfg.Service.GRPCPort)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to listen")
	}

	server := grpc.NewServer(grpc.UnaryInterceptor(observability.UnaryServerInterceptor(metrics.DefaultMetrics)))

	// Register gRPC health check service
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(server, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(grpcapi.ServiceName, grpc_health_v1.HealthCheckResponse_SERVING)

	// Register application services
	grpcapi.Register(server, application)

	// Enable gRPC reflection for debugging tools like grpcurl
	reflection.Register(server)

	go func() {
		log.Info().Str("port", cfg.Service.GRPCPort).Msg("Podcast voice gRPC server started")
		if err := server.Serve(lis); err != nil {
			log.Fatal().Err(err).Msg("grpc serve failed")
		}
	}()

	httpServer := observability.NewServer(":"+cfg.Service.HTTPPort, httpapi.NewRouter(application))
	if err := httpServer.Start(); err != nil {
		log.Fatal().Err(err).Msg("failed to start HTTP server")
	}

	<-ctx.Done()

	log.Info().Msg("shutting down")
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_NOT_SERVING)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("HTTP server shutdown")
	}
	server.GracefulStop()
	application.Shutdown(shutdownCtx)
}
