package command

import (
	"sync"

	"podcast-voice-service/internal/models"
)

// Log is the append-only command history. It grows without eviction until
// Clear is called. Safe for concurrent use.
type Log struct {
	mu      sync.RWMutex
	records []models.VoiceCommand
}

// NewLog creates an empty history.
func NewLog() *Log {
	return &Log{}
}

// Append adds a finished record.
func (l *Log) Append(cmd models.VoiceCommand) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = append(l.records, cmd)
	return len(l.records)
}

// Records returns a copy of the history, oldest first.
func (l *Log) Records() []models.VoiceCommand {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]models.VoiceCommand(nil), l.records...)
}

// Len returns the number of records.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.records)
}

// Clear empties the history.
func (l *Log) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = nil
}
