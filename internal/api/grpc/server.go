// Package grpcapi exposes the voice pipeline as the gRPC service
// podcast.voice.v1.VoiceService. Messages are google.protobuf.Struct values
// carrying the JSON shapes of the models package.
package grpcapi

import (
	"context"
	"encoding/json"
	"errors"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"podcast-voice-service/internal/app"
	"podcast-voice-service/internal/models"
	"podcast-voice-service/internal/service/command"
	"podcast-voice-service/internal/service/transcript"
)

// ServiceName is the fully-qualified gRPC service name.
const ServiceName = "podcast.voice.v1.VoiceService"

// VoiceServiceServer is the server API of the voice service.
type VoiceServiceServer interface {
	ParseIntent(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ExecuteUtterance(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListCommands(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ClearCommands(context.Context, *structpb.Struct) (*structpb.Struct, error)
	LoadTranscript(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SearchTranscript(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SegmentAt(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SegmentsNear(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SetPlayback(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListBookmarks(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// ServiceDesc describes VoiceService for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*VoiceServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("ParseIntent", VoiceServiceServer.ParseIntent),
		unary("ExecuteUtterance", VoiceServiceServer.ExecuteUtterance),
		unary("ListCommands", VoiceServiceServer.ListCommands),
		unary("ClearCommands", VoiceServiceServer.ClearCommands),
		unary("LoadTranscript", VoiceServiceServer.LoadTranscript),
		unary("SearchTranscript", VoiceServiceServer.SearchTranscript),
		unary("SegmentAt", VoiceServiceServer.SegmentAt),
		unary("SegmentsNear", VoiceServiceServer.SegmentsNear),
		unary("SetPlayback", VoiceServiceServer.SetPlayback),
		unary("ListBookmarks", VoiceServiceServer.ListBookmarks),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "podcast/voice/v1/voice.proto",
}

type method func(VoiceServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unary(name string, fn method) grpc.MethodDesc {
	fullMethod := "/" + ServiceName + "/" + name
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			s := srv.(VoiceServiceServer)
			if interceptor == nil {
				return fn(s, ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return fn(s, ctx, req.(*structpb.Struct))
			})
		},
	}
}

// Server implements VoiceServiceServer over the application.
type Server struct {
	app *app.Application
}

var _ VoiceServiceServer = (*Server)(nil)

// Register registers the voice service on g.
func Register(g *grpc.Server, a *app.Application) {
	g.RegisterService(&ServiceDesc, &Server{app: a})
}

// Request and response shapes.

type UtteranceRequest struct {
	Utterance string `json:"utterance"`
}

type IntentResponse struct {
	Intent models.VoiceIntent `json:"intent"`
}

type CommandResponse struct {
	Command models.VoiceCommand `json:"command"`
}

type CommandsResponse struct {
	Commands []models.VoiceCommand `json:"commands"`
}

type ClearResponse struct {
	Cleared int `json:"cleared"`
}

type LoadTranscriptRequest struct {
	EpisodeID string `json:"episodeId"`
	Format    string `json:"format"`
	Content   string `json:"content"`
}

type LoadTranscriptResponse struct {
	EpisodeID   string                  `json:"episodeId"`
	Format      models.TranscriptFormat `json:"format"`
	Segments    int                     `json:"segments"`
	LastUpdated int64                   `json:"lastUpdated"`
}

type SearchRequest struct {
	EpisodeID string `json:"episodeId"`
	Query     string `json:"query"`
}

type TimestampRequest struct {
	EpisodeID   string `json:"episodeId"`
	TimestampMs int64  `json:"timestampMs"`
	WindowMs    int64  `json:"windowMs,omitempty"`
}

type SegmentsResponse struct {
	Segments []models.TranscriptSegment `json:"segments"`
}

type SegmentResponse struct {
	Found   bool                      `json:"found"`
	Segment *models.TranscriptSegment `json:"segment,omitempty"`
}

type PlaybackRequest struct {
	EpisodeID  string           `json:"episodeId"`
	DurationMs int64            `json:"durationMs,omitempty"`
	PositionMs int64            `json:"positionMs"`
	Chapters   []models.Chapter `json:"chapters,omitempty"`
}

type PlaybackResponse struct {
	Playback models.PlaybackState `json:"playback"`
}

type EpisodeRequest struct {
	EpisodeID string `json:"episodeId"`
}

type BookmarksResponse struct {
	Bookmarks []models.Bookmark `json:"bookmarks"`
}

func (s *Server) ParseIntent(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req UtteranceRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	return encode(IntentResponse{Intent: s.app.ParseIntent(req.Utterance)})
}

// ExecuteUtterance runs an utterance through the pipeline. Capability
// failures are reported in the returned command's error field.
func (s *Server) ExecuteUtterance(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req UtteranceRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	cmd, err := s.app.HandleUtterance(ctx, req.Utterance)
	var capErr *command.CapabilityError
	if err != nil && !errors.As(err, &capErr) {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return encode(CommandResponse{Command: cmd})
}

func (s *Server) ListCommands(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return encode(CommandsResponse{Commands: s.app.Executor.History().Records()})
}

func (s *Server) ClearCommands(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	h := s.app.Executor.History()
	n := h.Len()
	h.Clear()
	s.app.Metrics.SetHistorySize(0)
	return encode(ClearResponse{Cleared: n})
}

func (s *Server) LoadTranscript(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req LoadTranscriptRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	if req.EpisodeID == "" {
		return nil, status.Error(codes.InvalidArgument, "episodeId is required")
	}
	format, err := models.ParseFormat(req.Format)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	t, err := s.app.Transcripts.Load(req.EpisodeID, req.Content, format)
	if err != nil {
		if errors.Is(err, transcript.ErrUnrecognizedFormat) {
			return nil, status.Error(codes.InvalidArgument, err.Error())
		}
		return nil, status.Error(codes.Internal, err.Error())
	}
	return encode(LoadTranscriptResponse{
		EpisodeID:   t.EpisodeID,
		Format:      t.Format,
		Segments:    len(t.Segments),
		LastUpdated: t.LastUpdated,
	})
}

func (s *Server) SearchTranscript(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req SearchRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	return encode(SegmentsResponse{Segments: nonNil(s.app.Transcripts.Search(req.EpisodeID, req.Query))})
}

func (s *Server) SegmentAt(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req TimestampRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	seg, ok := s.app.Transcripts.SegmentAt(req.EpisodeID, req.TimestampMs)
	if !ok {
		return encode(SegmentResponse{})
	}
	return encode(SegmentResponse{Found: true, Segment: &seg})
}

func (s *Server) SegmentsNear(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req TimestampRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	segs := s.app.Transcripts.SegmentsNear(req.EpisodeID, req.TimestampMs, req.WindowMs)
	return encode(SegmentsResponse{Segments: nonNil(segs)})
}

func (s *Server) SetPlayback(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req PlaybackRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	ps, err := s.app.SetPlayback(ctx, app.EpisodeSetup{
		EpisodeID:  req.EpisodeID,
		DurationMs: req.DurationMs,
		PositionMs: req.PositionMs,
		Chapters:   req.Chapters,
	})
	if err != nil {
		if errors.Is(err, app.ErrNoEpisode) {
			return nil, status.Error(codes.InvalidArgument, err.Error())
		}
		return nil, status.Error(codes.Internal, err.Error())
	}
	return encode(PlaybackResponse{Playback: ps})
}

func (s *Server) ListBookmarks(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req EpisodeRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	var (
		bookmarks []models.Bookmark
		err       error
	)
	if req.EpisodeID == "" {
		bookmarks, err = s.app.Bookmarks.AllBookmarks(ctx)
	} else {
		bookmarks, err = s.app.Bookmarks.BookmarksByEpisode(ctx, req.EpisodeID)
	}
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return encode(BookmarksResponse{Bookmarks: nonNil(bookmarks)})
}

func decode(in *structpb.Struct, v any) error {
	if in == nil {
		return nil
	}
	raw, err := protojson.Marshal(in)
	if err != nil {
		return status.Error(codes.InvalidArgument, err.Error())
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return status.Errorf(codes.InvalidArgument, "decode request: %v", err)
	}
	return nil
}

func encode(v any) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	out := new(structpb.Struct)
	if err := protojson.Unmarshal(raw, out); err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	return out, nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
