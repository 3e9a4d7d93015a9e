// Command transcriptclient uploads a transcript file to the voice service and
// runs queries against it.
package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	flag "github.com/spf13/pflag"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	grpcapi "podcast-voice-service/internal/api/grpc"
	"podcast-voice-service/internal/models"
	"podcast-voice-service/internal/observability/logging"
)

func main() {
	addr := flag.String("addr", "localhost:50051", "voice service gRPC address")
	episode := flag.String("episode", "ep-demo", "episode id the transcript belongs to")
	file := flag.StringP("file", "f", "", "transcript file (.srt, .vtt or .json)")
	format := flag.String("format", "", "transcript format; inferred from the file extension when empty")
	query := flag.StringP("query", "q", "", "phrase to search for")
	at := flag.Int64("at", -1, "timestamp in ms for segment-at and near queries")
	window := flag.Int64("window", 0, "window in ms for the near query (0 uses the server default)")
	flag.Parse()

	logging.Init(logging.Config{Level: "info", Format: "console"})

	conn, err := grpc.NewClient(*addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect")
	}
	defer conn.Close()

	client := grpcapi.NewClient(conn)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if *file != "" {
		raw, err := os.ReadFile(*file)
		if err != nil {
			log.Fatal().Err(err).Str("file", *file).Msg("failed to read transcript")
		}
		f := *format
		if f == "" {
			f = strings.TrimPrefix(filepath.Ext(*file), ".")
		}
		resp, err := client.LoadTranscript(ctx, *episode, f, string(raw))
		if err != nil {
			log.Fatal().Err(err).Msg("failed to load transcript")
		}
		log.Info().
			Str("episodeId", resp.EpisodeID).
			Str("format", string(resp.Format)).
			Int("segments", resp.Segments).
			Msg("Transcript loaded")
	}

	if *query != "" {
		segs, err := client.SearchTranscript(ctx, *episode, *query)
		if err != nil {
			log.Fatal().Err(err).Msg("search failed")
		}
		log.Info().Str("query", *query).Int("matches", len(segs)).Msg("Search")
		printSegments(segs)
	}

	if *at >= 0 {
		seg, ok, err := client.SegmentAt(ctx, *episode, *at)
		if err != nil {
			log.Fatal().Err(err).Msg("segment lookup failed")
		}
		if ok {
			printSegments([]models.TranscriptSegment{seg})
		} else {
			log.Info().Int64("at", *at).Msg("No segment at timestamp")
		}

		near, err := client.SegmentsNear(ctx, *episode, *at, *window)
		if err != nil {
			log.Fatal().Err(err).Msg("near query failed")
		}
		log.Info().Int64("at", *at).Int("segments", len(near)).Msg("Segments near")
		printSegments(near)
	}
}

func printSegments(segs []models.TranscriptSegment) {
	for _, s := range segs {
		log.Info().
			Int64("startMs", s.StartTime).
			Int64("endMs", s.EndTime).
			Str("speaker", s.Speaker).
			Msg(s.Text)
	}
}
