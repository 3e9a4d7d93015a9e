package command

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"podcast-voice-service/internal/models"
)

func TestTasks_CompletionObservable(t *testing.T) {
	g := NewTasks(zerolog.Nop())
	boom := errors.New("boom")

	ok := g.Go(context.Background(), "ok", func(context.Context) error { return nil })
	failed := g.Go(context.Background(), "failed", func(context.Context) error { return boom })

	if err := ok.Err(); err != nil {
		t.Errorf("expected nil error, got %v", err)
	}
	if err := failed.Err(); !errors.Is(err, boom) {
		t.Errorf("expected boom, got %v", err)
	}
	select {
	case <-failed.Done():
	default:
		t.Error("expected Done closed after Err returned")
	}
}

func TestTasks_DetachedFromCallerCancellation(t *testing.T) {
	g := NewTasks(zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	release := make(chan struct{})

	task := g.Go(ctx, "publish", func(ctx context.Context) error {
		<-release
		return ctx.Err()
	})
	cancel()
	close(release)

	if err := task.Err(); err != nil {
		t.Errorf("expected task context to survive caller cancellation, got %v", err)
	}
}

func TestTasks_Flush(t *testing.T) {
	g := NewTasks(zerolog.Nop())
	release := make(chan struct{})
	g.Go(context.Background(), "slow", func(context.Context) error {
		<-release
		return nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := g.Flush(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline while task pending, got %v", err)
	}

	close(release)
	if err := g.Flush(context.Background()); err != nil {
		t.Errorf("expected flush to complete, got %v", err)
	}
}

func TestLog_AppendAndClear(t *testing.T) {
	l := NewLog()
	l.Append(models.VoiceCommand{ID: "a"})
	l.Append(models.VoiceCommand{ID: "b"})

	records := l.Records()
	if len(records) != 2 || records[0].ID != "a" || records[1].ID != "b" {
		t.Fatalf("expected oldest-first records, got %+v", records)
	}

	records[0].ID = "mutated"
	if l.Records()[0].ID != "a" {
		t.Error("expected Records to return a copy")
	}

	l.Clear()
	if l.Len() != 0 {
		t.Errorf("expected empty log, got %d", l.Len())
	}
}
