// Package command executes parsed voice intents against playback and
// application state and records every execution in a history log.
package command

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"podcast-voice-service/internal/models"
	"podcast-voice-service/internal/observability/logging"
	"podcast-voice-service/internal/observability/metrics"
	"podcast-voice-service/internal/service/intent"
	"podcast-voice-service/internal/service/playback"
	"podcast-voice-service/internal/service/transcript"
)

// DefaultSeekIntervalMs is the distance of seek_backward, seek_forward and rewind_and_play.
const DefaultSeekIntervalMs int64 = 15000

// State is the slice of application state the executor reads and mutates.
type State interface {
	Playback() models.PlaybackState
	ApplyPlayback(u models.PlaybackUpdate) models.PlaybackState
	Chapters(episodeID string) []models.Chapter
}

// Bookmarks is the bookmark collection keyed by episode.
type Bookmarks interface {
	AddBookmark(ctx context.Context, b models.Bookmark) error
	BookmarksByEpisode(ctx context.Context, episodeID string) ([]models.Bookmark, error)
}

// Transcripts supplies the transcript window attached to server-processing requests.
type Transcripts interface {
	SegmentsNear(episodeID string, timestampMs, windowMs int64) []models.TranscriptSegment
}

// EventSink receives command outcomes. Implementations may be slow; the
// executor never waits for them.
type EventSink interface {
	PublishCommand(ctx context.Context, ev models.CommandEvent) error
	PublishServerRequest(ctx context.Context, ev models.ServerRequestEvent) error
}

// Config wires an Executor. Player, State and Bookmarks are required.
type Config struct {
	Player      playback.Control
	State       State
	Bookmarks   Bookmarks
	Transcripts Transcripts // optional
	History     *Log        // created when nil
	Events      EventSink   // optional
	Tasks       *Tasks      // created when nil
	Metrics     *metrics.Metrics

	SeekIntervalMs  int64
	ContextWindowMs int64
	Now             func() time.Time
}

// Executor resolves intents into playback actions.
// Commands for one playback session must be executed sequentially; the
// executor does not serialise them itself.
type Executor struct {
	player      playback.Control
	state       State
	bookmarks   Bookmarks
	transcripts Transcripts
	history     *Log
	events      EventSink
	tasks       *Tasks
	metrics     *metrics.Metrics
	logger      zerolog.Logger

	seekIntervalMs  int64
	contextWindowMs int64
	now             func() time.Time
}

// NewExecutor creates an executor from cfg, filling defaults.
func NewExecutor(cfg Config) *Executor {
	logger := logging.WithComponent("executor")

	e := &Executor{
		player:          cfg.Player,
		state:           cfg.State,
		bookmarks:       cfg.Bookmarks,
		transcripts:     cfg.Transcripts,
		history:         cfg.History,
		events:          cfg.Events,
		tasks:           cfg.Tasks,
		metrics:         cfg.Metrics,
		logger:          logger,
		seekIntervalMs:  cfg.SeekIntervalMs,
		contextWindowMs: cfg.ContextWindowMs,
		now:             cfg.Now,
	}
	if e.history == nil {
		e.history = NewLog()
	}
	if e.tasks == nil {
		e.tasks = NewTasks(logger)
	}
	if e.metrics == nil {
		e.metrics = metrics.DefaultMetrics
	}
	if e.seekIntervalMs <= 0 {
		e.seekIntervalMs = DefaultSeekIntervalMs
	}
	if e.contextWindowMs <= 0 {
		e.contextWindowMs = transcript.DefaultContextWindowMs
	}
	if e.now == nil {
		e.now = time.Now
	}
	return e
}

// History returns the executor's command history.
func (e *Executor) History() *Log { return e.history }

// Flush waits for outstanding event publishes.
func (e *Executor) Flush(ctx context.Context) error { return e.tasks.Flush(ctx) }

// Execute runs one intent. Exactly one history record is appended per call.
// Precondition failures are reported in the result with Success=false; a
// capability failure is recorded and returned as a *CapabilityError.
func (e *Executor) Execute(ctx context.Context, in models.VoiceIntent) (models.CommandResult, error) {
	cmd, err := e.run(ctx, in)
	if cmd.Result == nil {
		return models.CommandResult{}, err
	}
	return *cmd.Result, err
}

// Handle parses an utterance, executes it and returns the history record.
func (e *Executor) Handle(ctx context.Context, utterance string) (models.VoiceCommand, error) {
	return e.run(ctx, intent.Parse(utterance))
}

func (e *Executor) run(ctx context.Context, in models.VoiceIntent) (models.VoiceCommand, error) {
	start := e.now()
	cmd := models.VoiceCommand{
		ID:        uuid.NewString(),
		Intent:    in,
		Timestamp: start.UnixMilli(),
		Executed:  false,
	}
	episodeID := e.state.Playback().EpisodeID

	logger := e.logger.With().
		Str("commandId", cmd.ID).
		Str("intent", string(in.Type)).
		Logger()

	result, err := e.dispatch(ctx, in)
	cmd.Duration = e.now().Sub(start)

	outcome := "success"
	if err != nil {
		cmd.Error = err.Error()
		outcome = "error"
	} else {
		cmd.Executed = true
		cmd.Result = &result
		if !result.Success {
			outcome = "failure"
		}
	}

	size := e.history.Append(cmd)
	e.metrics.RecordCommand(string(in.Type), outcome, cmd.Duration.Seconds())
	e.metrics.SetHistorySize(size)
	if in.Type == models.IntentUnknown {
		e.metrics.RecordUnrecognized()
	}

	e.publish(ctx, cmd, episodeID)

	if err != nil {
		logger.Error().Err(err).Str("utterance", in.Utterance).Msg("Command failed")
		return cmd, &CapabilityError{Intent: in.Type, Err: err}
	}

	logger.Info().
		Bool("success", result.Success).
		Str("message", result.Message).
		Bool("needsServerProcessing", result.NeedsServerProcessing).
		Dur("duration", cmd.Duration).
		Msg("Command executed")
	return cmd, nil
}

func (e *Executor) dispatch(ctx context.Context, in models.VoiceIntent) (models.CommandResult, error) {
	switch in.Type {
	case models.IntentPause:
		if err := e.player.Pause(ctx); err != nil {
			return models.CommandResult{}, err
		}
		e.state.ApplyPlayback(models.PlaybackUpdate{IsPlaying: ptr(false)})
		return ok("Paused"), nil

	case models.IntentResume:
		if err := e.player.Play(ctx); err != nil {
			return models.CommandResult{}, err
		}
		e.state.ApplyPlayback(models.PlaybackUpdate{IsPlaying: ptr(true)})
		return ok("Playing"), nil

	case models.IntentSeekBackward:
		if err := e.player.JumpBackward(ctx); err != nil {
			return models.CommandResult{}, err
		}
		return ok("Rewound " + formatSeconds(e.seekIntervalMs) + " seconds"), nil

	case models.IntentSeekForward:
		if err := e.player.JumpForward(ctx); err != nil {
			return models.CommandResult{}, err
		}
		return ok("Forwarded " + formatSeconds(e.seekIntervalMs) + " seconds"), nil

	case models.IntentSetSpeed:
		rate, found := in.Float(models.ParamRate)
		if !found || rate == 0 {
			rate = 1.0
		}
		if err := e.player.SetRate(ctx, rate); err != nil {
			return models.CommandResult{}, err
		}
		e.state.ApplyPlayback(models.PlaybackUpdate{Rate: &rate})
		return ok("Speed set to " + strconv.FormatFloat(rate, 'f', -1, 64) + "x"), nil

	case models.IntentNextChapter:
		return e.navigateChapter(ctx, true)

	case models.IntentPreviousChapter:
		return e.navigateChapter(ctx, false)

	case models.IntentBookmark:
		return e.createBookmark(ctx)

	case models.IntentShowBookmarks:
		p := e.state.Playback()
		if !p.HasEpisode() {
			return fail("No episode playing"), nil
		}
		bookmarks, err := e.bookmarks.BookmarksByEpisode(ctx, p.EpisodeID)
		if err != nil {
			return models.CommandResult{}, err
		}
		// An empty list is still a list.
		if bookmarks == nil {
			bookmarks = []models.Bookmark{}
		}
		return models.CommandResult{Success: true, Bookmarks: bookmarks}, nil

	case models.IntentRewindAndPlay:
		if err := e.player.SeekBy(ctx, -e.seekIntervalMs); err != nil {
			return models.CommandResult{}, err
		}
		if err := e.player.Play(ctx); err != nil {
			return models.CommandResult{}, err
		}
		e.state.ApplyPlayback(models.PlaybackUpdate{IsPlaying: ptr(true)})
		return ok("Rewinding and playing"), nil

	case models.IntentSummarize:
		sc := e.serverContext()
		sc.Request = models.RequestSummarizeLastMinute
		return serverResult(sc), nil

	case models.IntentExplain, models.IntentQuestion:
		query, _ := in.String(models.ParamTopic)
		if query == "" {
			query = in.Utterance
		}
		sc := e.serverContext()
		sc.Query = query
		return serverResult(sc), nil

	case models.IntentJumpTo:
		ts, _ := in.Int64(models.ParamTimestampMs)
		if err := e.player.SeekTo(ctx, ts); err != nil {
			return models.CommandResult{}, err
		}
		e.state.ApplyPlayback(models.PlaybackUpdate{Position: &ts})
		return ok("Jumped to " + FormatTimestamp(ts)), nil

	default:
		return models.CommandResult{
			Success:               false,
			Message:               "Unknown command",
			NeedsServerProcessing: true,
		}, nil
	}
}

// navigateChapter assumes chapters are sorted ascending by start time.
func (e *Executor) navigateChapter(ctx context.Context, next bool) (models.CommandResult, error) {
	p := e.state.Playback()
	chapters := e.state.Chapters(p.EpisodeID)
	if len(chapters) == 0 {
		return fail("No chapters available"), nil
	}

	var (
		target models.Chapter
		found  bool
	)
	if next {
		for _, ch := range chapters {
			if ch.StartTime > p.Position {
				target, found = ch, true
				break
			}
		}
		if !found {
			return fail("No next chapter"), nil
		}
	} else {
		for _, ch := range chapters {
			if ch.StartTime < p.Position {
				target, found = ch, true
			}
		}
		if !found {
			return fail("No previous chapter"), nil
		}
	}

	if err := e.player.SeekTo(ctx, target.StartTime); err != nil {
		return models.CommandResult{}, err
	}
	e.state.ApplyPlayback(models.PlaybackUpdate{Position: ptr(target.StartTime)})

	if next {
		return ok("Skipped to: " + target.Title), nil
	}
	return ok("Returned to: " + target.Title), nil
}

func (e *Executor) createBookmark(ctx context.Context) (models.CommandResult, error) {
	p := e.state.Playback()
	if !p.HasEpisode() {
		return fail("No episode playing"), nil
	}

	createdAt := e.now().UnixMilli()
	b := models.Bookmark{
		ID:        models.BookmarkID(p.EpisodeID, createdAt),
		EpisodeID: p.EpisodeID,
		Timestamp: p.Position,
		CreatedAt: createdAt,
	}
	if err := e.bookmarks.AddBookmark(ctx, b); err != nil {
		return models.CommandResult{}, err
	}
	return ok("Bookmark created"), nil
}

func (e *Executor) serverContext() *models.ServerContext {
	p := e.state.Playback()
	sc := &models.ServerContext{
		EpisodeID:  p.EpisodeID,
		PlayheadMs: p.Position,
	}
	if e.transcripts != nil && p.HasEpisode() {
		sc.TranscriptWindow = e.transcripts.SegmentsNear(p.EpisodeID, p.Position, e.contextWindowMs)
	}
	return sc
}

func (e *Executor) publish(ctx context.Context, cmd models.VoiceCommand, episodeID string) {
	if cmd.Result != nil && cmd.Result.NeedsServerProcessing && cmd.Result.Context != nil {
		e.metrics.RecordServerProcessing(string(cmd.Intent.Type))
	}
	if e.events == nil {
		return
	}

	ev := models.NewCommandEvent(cmd, episodeID)
	e.tasks.Go(ctx, "publish-command", func(ctx context.Context) error {
		return e.events.PublishCommand(ctx, ev)
	})

	if cmd.Result != nil && cmd.Result.NeedsServerProcessing && cmd.Result.Context != nil {
		req := models.ServerRequestEvent{
			EventType: models.EventServerRequested,
			CommandID: cmd.ID,
			Intent:    cmd.Intent.Type,
			Context:   *cmd.Result.Context,
			Timestamp: cmd.Timestamp,
		}
		e.tasks.Go(ctx, "publish-server-request", func(ctx context.Context) error {
			return e.events.PublishServerRequest(ctx, req)
		})
	}
}

// formatSeconds renders milliseconds as seconds without truncating fractions.
func formatSeconds(ms int64) string {
	return strconv.FormatFloat(float64(ms)/1000, 'f', -1, 64)
}

// FormatTimestamp renders milliseconds as m:ss with floor division.
func FormatTimestamp(ms int64) string {
	totalSeconds := ms / 1000
	return fmt.Sprintf("%d:%02d", totalSeconds/60, totalSeconds%60)
}

func ok(message string) models.CommandResult {
	return models.CommandResult{Success: true, Message: message}
}

func fail(message string) models.CommandResult {
	return models.CommandResult{Success: false, Message: message}
}

func serverResult(sc *models.ServerContext) models.CommandResult {
	return models.CommandResult{Success: true, NeedsServerProcessing: true, Context: sc}
}

func ptr[T any](v T) *T { return &v }
