package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	grpcapi "podcast-voice-service/internal/api/grpc"
	"podcast-voice-service/internal/models"
)

// voiceAPI is the subset of the VoiceService client the tools call.
type voiceAPI interface {
	ParseIntent(ctx context.Context, utterance string) (models.VoiceIntent, error)
	ExecuteUtterance(ctx context.Context, utterance string) (models.VoiceCommand, error)
	ListCommands(ctx context.Context) ([]models.VoiceCommand, error)
	LoadTranscript(ctx context.Context, episodeID, format, content string) (grpcapi.LoadTranscriptResponse, error)
	SearchTranscript(ctx context.Context, episodeID, query string) ([]models.TranscriptSegment, error)
}

var _ voiceAPI = (*grpcapi.Client)(nil)

type tools struct {
	api voiceAPI
}

func newMCPServer(api voiceAPI, version string) *server.MCPServer {
	t := &tools{api: api}
	s := server.NewMCPServer("podcast-voice", version, server.WithToolCapabilities(false))

	s.AddTool(mcp.NewTool("parse_intent",
		mcp.WithDescription("Classify a spoken podcast command without executing it"),
		mcp.WithString("utterance", mcp.Required(), mcp.Description("Transcribed user speech")),
	), t.parseIntent)

	s.AddTool(mcp.NewTool("execute_voice_command",
		mcp.WithDescription("Parse and execute a spoken podcast command against the player"),
		mcp.WithString("utterance", mcp.Required(), mcp.Description("Transcribed user speech")),
	), t.executeVoiceCommand)

	s.AddTool(mcp.NewTool("load_transcript",
		mcp.WithDescription("Load an SRT, VTT or JSON transcript for an episode"),
		mcp.WithString("episode_id", mcp.Required()),
		mcp.WithString("format", mcp.Required(), mcp.Description("srt, vtt, json or a MIME type")),
		mcp.WithString("content", mcp.Required(), mcp.Description("Raw transcript text")),
	), t.loadTranscript)

	s.AddTool(mcp.NewTool("search_transcript",
		mcp.WithDescription("Find transcript segments containing a phrase (case-insensitive)"),
		mcp.WithString("episode_id", mcp.Required()),
		mcp.WithString("query", mcp.Required()),
	), t.searchTranscript)

	s.AddTool(mcp.NewTool("command_history",
		mcp.WithDescription("List executed voice commands, newest last"),
		mcp.WithNumber("limit", mcp.Description("Return at most this many of the latest commands")),
	), t.commandHistory)

	return s
}

func (t *tools) parseIntent(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	utterance, err := req.RequireString("utterance")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	in, err := t.api.ParseIntent(ctx, utterance)
	if err != nil {
		return mcp.NewToolResultErrorFromErr("parse intent", err), nil
	}
	return jsonResult(in)
}

func (t *tools) executeVoiceCommand(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	utterance, err := req.RequireString("utterance")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	cmd, err := t.api.ExecuteUtterance(ctx, utterance)
	if err != nil {
		return mcp.NewToolResultErrorFromErr("execute command", err), nil
	}
	return jsonResult(cmd)
}

func (t *tools) loadTranscript(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	episodeID, err := req.RequireString("episode_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	format, err := req.RequireString("format")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	resp, err := t.api.LoadTranscript(ctx, episodeID, format, content)
	if err != nil {
		return mcp.NewToolResultErrorFromErr("load transcript", err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Loaded %d segments (%s) for %s", resp.Segments, resp.Format, resp.EpisodeID)), nil
}

func (t *tools) searchTranscript(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	episodeID, err := req.RequireString("episode_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	segs, err := t.api.SearchTranscript(ctx, episodeID, query)
	if err != nil {
		return mcp.NewToolResultErrorFromErr("search transcript", err), nil
	}
	if segs == nil {
		segs = []models.TranscriptSegment{}
	}
	return jsonResult(segs)
}

func (t *tools) commandHistory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cmds, err := t.api.ListCommands(ctx)
	if err != nil {
		return mcp.NewToolResultErrorFromErr("list commands", err), nil
	}
	if limit := req.GetInt("limit", 0); limit > 0 && limit < len(cmds) {
		cmds = cmds[len(cmds)-limit:]
	}
	if cmds == nil {
		cmds = []models.VoiceCommand{}
	}
	return jsonResult(cmds)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}
	return mcp.NewToolResultText(string(raw)), nil
}
