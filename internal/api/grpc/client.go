package grpcapi

import (
	"context"
	"encoding/json"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"podcast-voice-service/internal/models"
)

// Client is a typed client for VoiceService.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient wraps an established connection.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) call(ctx context.Context, name string, req, resp any, opts ...grpc.CallOption) error {
	in, err := toStruct(req)
	if err != nil {
		return err
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/"+name, in, out, opts...); err != nil {
		return err
	}
	if resp == nil {
		return nil
	}
	raw, err := protojson.Marshal(out)
	if err != nil {
		return fmt.Errorf("%s: marshal response: %w", name, err)
	}
	if err := json.Unmarshal(raw, resp); err != nil {
		return fmt.Errorf("%s: decode response: %w", name, err)
	}
	return nil
}

func toStruct(v any) (*structpb.Struct, error) {
	if v == nil {
		return &structpb.Struct{}, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	s := new(structpb.Struct)
	if err := protojson.Unmarshal(raw, s); err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	return s, nil
}

// ParseIntent classifies an utterance without executing it.
func (c *Client) ParseIntent(ctx context.Context, utterance string) (models.VoiceIntent, error) {
	var resp IntentResponse
	err := c.call(ctx, "ParseIntent", UtteranceRequest{Utterance: utterance}, &resp)
	return resp.Intent, err
}

// ExecuteUtterance parses and executes an utterance.
func (c *Client) ExecuteUtterance(ctx context.Context, utterance string) (models.VoiceCommand, error) {
	var resp CommandResponse
	err := c.call(ctx, "ExecuteUtterance", UtteranceRequest{Utterance: utterance}, &resp)
	return resp.Command, err
}

// ListCommands returns the command history oldest first.
func (c *Client) ListCommands(ctx context.Context) ([]models.VoiceCommand, error) {
	var resp CommandsResponse
	err := c.call(ctx, "ListCommands", nil, &resp)
	return resp.Commands, err
}

// ClearCommands empties the command history and returns how many records it held.
func (c *Client) ClearCommands(ctx context.Context) (int, error) {
	var resp ClearResponse
	err := c.call(ctx, "ClearCommands", nil, &resp)
	return resp.Cleared, err
}

// LoadTranscript parses content and stores it for an episode.
func (c *Client) LoadTranscript(ctx context.Context, episodeID, format, content string) (LoadTranscriptResponse, error) {
	var resp LoadTranscriptResponse
	err := c.call(ctx, "LoadTranscript", LoadTranscriptRequest{EpisodeID: episodeID, Format: format, Content: content}, &resp)
	return resp, err
}

// SearchTranscript returns segments containing query.
func (c *Client) SearchTranscript(ctx context.Context, episodeID, query string) ([]models.TranscriptSegment, error) {
	var resp SegmentsResponse
	err := c.call(ctx, "SearchTranscript", SearchRequest{EpisodeID: episodeID, Query: query}, &resp)
	return resp.Segments, err
}

// SegmentAt returns the segment active at timestampMs.
func (c *Client) SegmentAt(ctx context.Context, episodeID string, timestampMs int64) (models.TranscriptSegment, bool, error) {
	var resp SegmentResponse
	if err := c.call(ctx, "SegmentAt", TimestampRequest{EpisodeID: episodeID, TimestampMs: timestampMs}, &resp); err != nil {
		return models.TranscriptSegment{}, false, err
	}
	if !resp.Found || resp.Segment == nil {
		return models.TranscriptSegment{}, false, nil
	}
	return *resp.Segment, true, nil
}

// SegmentsNear returns segments fully inside the window around timestampMs.
func (c *Client) SegmentsNear(ctx context.Context, episodeID string, timestampMs, windowMs int64) ([]models.TranscriptSegment, error) {
	var resp SegmentsResponse
	err := c.call(ctx, "SegmentsNear", TimestampRequest{EpisodeID: episodeID, TimestampMs: timestampMs, WindowMs: windowMs}, &resp)
	return resp.Segments, err
}

// SetPlayback loads an episode into the player.
func (c *Client) SetPlayback(ctx context.Context, req PlaybackRequest) (models.PlaybackState, error) {
	var resp PlaybackResponse
	err := c.call(ctx, "SetPlayback", req, &resp)
	return resp.Playback, err
}

// ListBookmarks returns an episode's bookmarks, or all bookmarks for an empty id.
func (c *Client) ListBookmarks(ctx context.Context, episodeID string) ([]models.Bookmark, error) {
	var resp BookmarksResponse
	err := c.call(ctx, "ListBookmarks", EpisodeRequest{EpisodeID: episodeID}, &resp)
	return resp.Bookmarks, err
}
