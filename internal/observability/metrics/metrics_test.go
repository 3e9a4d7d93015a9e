package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordCommand(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.RecordCommand("pause", "success", 0.01)
	m.RecordCommand("pause", "success", 0.02)
	m.RecordCommand("jump_to", "capability_error", 0.5)

	if got := testutil.ToFloat64(m.CommandsTotal.WithLabelValues("pause", "success")); got != 2 {
		t.Errorf("expected 2 pause commands, got %v", got)
	}
	if got := testutil.CollectAndCount(m.CommandDuration); got != 2 {
		t.Errorf("expected 2 duration series, got %d", got)
	}
}

func TestRecordTranscriptLoaded(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.RecordTranscriptLoaded("srt", 0)
	m.RecordTranscriptLoaded("srt", 3)

	if got := testutil.ToFloat64(m.TranscriptsLoaded.WithLabelValues("srt")); got != 2 {
		t.Errorf("expected 2 loads, got %v", got)
	}
	if got := testutil.ToFloat64(m.SegmentsSkipped.WithLabelValues("srt")); got != 3 {
		t.Errorf("expected 3 skipped, got %v", got)
	}
}

func TestRecordKafkaPublish(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.RecordKafkaPublish("voice.command.events", "voice.command.executed", nil, 0.01)
	m.RecordKafkaPublish("voice.command.events", "voice.command.executed", errors.New("broker down"), 0.2)

	if got := testutil.ToFloat64(m.KafkaPublishTotal.WithLabelValues("voice.command.events", "voice.command.executed")); got != 2 {
		t.Errorf("expected 2 publishes, got %v", got)
	}
	if got := testutil.ToFloat64(m.KafkaPublishErrors.WithLabelValues("voice.command.events", "voice.command.executed")); got != 1 {
		t.Errorf("expected 1 error, got %v", got)
	}
}

func TestNewMetrics_IsolatedRegistries(t *testing.T) {
	// Registering twice on separate registries must not panic.
	a := NewMetrics(prometheus.NewRegistry())
	b := NewMetrics(prometheus.NewRegistry())

	a.SetHistorySize(5)
	if got := testutil.ToFloat64(b.CommandHistory); got != 0 {
		t.Errorf("expected isolated gauge, got %v", got)
	}
}
