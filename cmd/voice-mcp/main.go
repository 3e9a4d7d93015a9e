// Command voice-mcp exposes a running podcast voice service as MCP tools
// over stdio.
package main

import (
	"os"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog/log"
	flag "github.com/spf13/pflag"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	grpcapi "podcast-voice-service/internal/api/grpc"
	"podcast-voice-service/internal/config"
	"podcast-voice-service/internal/observability/logging"
)

const version = "0.1.0"

func main() {
	envFile := flag.String("env", ".env", "optional dotenv file")
	addr := flag.String("addr", "", "voice service gRPC address (default localhost:$GRPC_PORT)")
	flag.Parse()

	if err := config.LoadEnvFile(*envFile); err != nil {
		log.Fatal().Err(err).Msg("Failed to load env file")
	}
	cfg := config.Load()

	// stdout carries the MCP protocol.
	logging.Init(logging.Config{
		Level:      cfg.Observability.LogLevel,
		Format:     "console",
		TimeFormat: time.RFC3339,
		Output:     os.Stderr,
	})

	target := *addr
	if target == "" {
		target = "localhost:" + cfg.Service.GRPCPort
	}
	conn, err := grpc.NewClient(target, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		log.Fatal().Err(err).Str("addr", target).Msg("failed to create gRPC client")
	}
	defer conn.Close()

	log.Info().Str("addr", target).Msg("Serving voice tools over stdio")
	if err := server.ServeStdio(newMCPServer(grpcapi.NewClient(conn), version)); err != nil {
		log.Error().Err(err).Msg("MCP server stopped")
	}
}
