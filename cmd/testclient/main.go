package main

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	flag "github.com/spf13/pflag"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	grpcapi "podcast-voice-service/internal/api/grpc"
	"podcast-voice-service/internal/models"
	"podcast-voice-service/internal/observability/logging"
)

var defaultUtterances = []string{
	"pause",
	"resume",
	"skip ahead fifteen seconds",
	"next chapter",
	"bookmark this",
	"play at 1.5x speed",
	"what did they just say",
	"jump to 2:30",
	"sing me a song",
}

func main() {
	addr := flag.String("addr", "localhost:50051", "voice service gRPC address")
	episode := flag.String("episode", "ep-demo", "episode loaded before the utterances run")
	utterances := flag.StringSlice("say", defaultUtterances, "utterances to execute in order")
	flag.Parse()

	logging.Init(logging.Config{Level: "info", Format: "console"})

	conn, err := grpc.NewClient(*addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect")
	}
	defer conn.Close()

	log.Info().Str("addr", *addr).Msg("Connected to server")

	client := grpcapi.NewClient(conn)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	ps, err := client.SetPlayback(ctx, grpcapi.PlaybackRequest{
		EpisodeID:  *episode,
		DurationMs: 3600000,
		PositionMs: 60000,
		Chapters: []models.Chapter{
			{StartTime: 0, Title: "Intro"},
			{StartTime: 120000, Title: "Main topic"},
			{StartTime: 1800000, Title: "Listener questions"},
		},
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load episode")
	}
	log.Info().Str("episodeId", ps.EpisodeID).Int64("positionMs", ps.Position).Msg("Episode loaded")

	for _, u := range *utterances {
		cmd, err := client.ExecuteUtterance(ctx, u)
		if err != nil {
			log.Error().Err(err).Str("utterance", u).Msg("command failed")
			continue
		}
		ev := log.Info().
			Str("utterance", u).
			Str("intent", string(cmd.Intent.Type)).
			Float64("confidence", cmd.Intent.Confidence)
		if cmd.Result != nil {
			ev = ev.Bool("success", cmd.Result.Success).
				Str("message", cmd.Result.Message).
				Bool("needsServerProcessing", cmd.Result.NeedsServerProcessing)
		}
		if cmd.Error != "" {
			ev = ev.Str("error", cmd.Error)
		}
		ev.Msg("Command executed")
		time.Sleep(100 * time.Millisecond)
	}

	cmds, err := client.ListCommands(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to list commands")
	}
	log.Info().Int("commands", len(cmds)).Msg("History")

	bookmarks, err := client.ListBookmarks(ctx, *episode)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to list bookmarks")
	}
	for _, b := range bookmarks {
		log.Info().Str("id", b.ID).Int64("timestampMs", b.Timestamp).Msg("Bookmark")
	}
}
