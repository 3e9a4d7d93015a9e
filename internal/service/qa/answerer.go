// Package qa answers commands that need server-side processing (summaries,
// explanations, questions) with a chat completion over the transcript window.
package qa

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openai "github.com/openai/openai-go/v3"
	"github.com/rs/zerolog"

	"podcast-voice-service/internal/models"
	"podcast-voice-service/internal/observability/logging"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gpt-4o-mini"

// ErrNoContext is returned for commands without a server context.
var ErrNoContext = errors.New("command has no server context")

const systemPrompt = `You are a podcast listening assistant.
You receive the transcript lines around the listener's current position and a request.
Answer in at most three short sentences suitable for text-to-speech.
Use only the transcript when summarizing. If the transcript is empty, say you have no transcript for this part.`

// Answerer implements session.Responder with the OpenAI chat API.
type Answerer struct {
	client openai.Client
	model  string
	logger zerolog.Logger
}

// NewAnswerer creates an answerer. An empty model uses DefaultModel.
func NewAnswerer(client openai.Client, model string) *Answerer {
	if model == "" {
		model = DefaultModel
	}
	return &Answerer{
		client: client,
		model:  model,
		logger: logging.WithComponent("qa"),
	}
}

// Answer returns a spoken-length answer for cmd.
func (a *Answerer) Answer(ctx context.Context, cmd models.VoiceCommand) (string, error) {
	if cmd.Result == nil || cmd.Result.Context == nil {
		return "", ErrNoContext
	}

	prompt := BuildPrompt(cmd.Intent, *cmd.Result.Context)
	resp, err := a.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(prompt),
		},
		Model: openai.ChatModel(a.model),
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("no choices in response")
	}

	answer := strings.TrimSpace(resp.Choices[0].Message.Content)
	if answer == "" {
		return "", errors.New("empty message content")
	}

	a.logger.Debug().
		Str("commandId", cmd.ID).
		Str("intent", string(cmd.Intent.Type)).
		Int("chars", len(answer)).
		Msg("Answered server request")
	return answer, nil
}

// BuildPrompt renders the request and transcript window as the user message.
func BuildPrompt(intent models.VoiceIntent, sc models.ServerContext) string {
	var b strings.Builder

	switch {
	case sc.Request == models.RequestSummarizeLastMinute:
		b.WriteString("Request: summarize the last minute of the episode.\n")
	case sc.Query != "":
		fmt.Fprintf(&b, "Request (%s): %s\n", intent.Type, sc.Query)
	default:
		fmt.Fprintf(&b, "Request (%s): %s\n", intent.Type, intent.Utterance)
	}
	fmt.Fprintf(&b, "Listener position: %s\n", formatClock(sc.PlayheadMs))

	if len(sc.TranscriptWindow) == 0 {
		b.WriteString("Transcript: (none)\n")
		return b.String()
	}
	b.WriteString("Transcript:\n")
	for _, seg := range sc.TranscriptWindow {
		b.WriteString("[")
		b.WriteString(formatClock(seg.StartTime))
		b.WriteString("] ")
		if seg.Speaker != "" {
			b.WriteString(seg.Speaker)
			b.WriteString(": ")
		}
		b.WriteString(seg.Text)
		b.WriteString("\n")
	}
	return b.String()
}

func formatClock(ms int64) string {
	s := ms / 1000
	return fmt.Sprintf("%d:%02d", s/60, s%60)
}
