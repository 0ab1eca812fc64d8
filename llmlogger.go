package studymcq

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// GenerationLogger records every generator exchange of one ingestion run in its own file.
// A nil *GenerationLogger discards everything.
type GenerationLogger struct {
	file  *os.File
	mu    sync.Mutex
	runID string
}

// NewGenerationLogger creates a log file for one ingestion run under dir
func NewGenerationLogger(dir string, owner int64, source string, chunks int) (*GenerationLogger, error) {
	// Ensure log directory exists
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	runID := uuid.NewString()
	filename := filepath.Join(dir, fmt.Sprintf("%s.log", runID))
	file, err := os.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to create log file: %w", err)
	}

	logger := &GenerationLogger{
		file:  file,
		runID: runID,
	}

	logger.Logf("=== Ingestion Log ===\n")
	logger.Logf("Run ID: %s\n", runID)
	logger.Logf("User: %d\n", owner)
	logger.Logf("Source: %s\n", source)
	logger.Logf("Chunks: %d\n", chunks)
	logger.Logf("Started: %s\n", time.Now().Format(time.RFC3339))
	logger.Logf("=====================\n\n")

	return logger, nil
}

// RunID returns the id naming this run's log file
func (ll *GenerationLogger) RunID() string {
	if ll == nil {
		return ""
	}
	return ll.runID
}

// Logf writes a formatted log entry with timestamp
func (ll *GenerationLogger) Logf(format string, args ...interface{}) {
	if ll == nil {
		return
	}
	ll.mu.Lock()
	defer ll.mu.Unlock()
	ll.write(format, args...)
}

func (ll *GenerationLogger) write(format string, args ...interface{}) {
	if ll.file == nil {
		return
	}
	timestamp := time.Now().Format("15:04:05.000")
	fmt.Fprintf(ll.file, "[%s] %s", timestamp, fmt.Sprintf(format, args...))
	ll.file.Sync()
}

// LogLLMRequest logs a generator request
func (ll *GenerationLogger) LogLLMRequest(chunk int, prompt string) {
	ll.Logf("=== LLM REQUEST (chunk %d) ===\n", chunk)
	ll.Logf("Prompt:\n%s\n", prompt)
	ll.Logf("=====================\n\n")
}

// LogLLMResponse logs a generator response
func (ll *GenerationLogger) LogLLMResponse(chunk int, response string) {
	ll.Logf("=== LLM RESPONSE (chunk %d) ===\n", chunk)
	ll.Logf("Response:\n%s\n", response)
	ll.Logf("======================\n\n")
}

// LogQuestionResult logs the checker's verdict on one candidate
func (ll *GenerationLogger) LogQuestionResult(chunk, index int, action ValidationAction, reason string) {
	ll.Logf("Chunk %d candidate %d: %s - %s\n", chunk, index, action, reason)
}

// LogChunkResult logs how a chunk ended
func (ll *GenerationLogger) LogChunkResult(chunk, saved int, err error) {
	if err != nil {
		ll.Logf("Chunk %d: FAILED - %v\n", chunk, err)
		return
	}
	ll.Logf("Chunk %d: saved %d questions\n", chunk, saved)
}

// Close writes the footer and closes the log file
func (ll *GenerationLogger) Close(total int) error {
	if ll == nil {
		return nil
	}
	ll.mu.Lock()
	defer ll.mu.Unlock()

	if ll.file == nil {
		return nil
	}
	ll.write("=== Ingestion Complete ===\n")
	ll.write("Questions saved: %d\n", total)
	ll.write("Completed: %s\n", time.Now().Format(time.RFC3339))
	ll.write("==========================\n")
	err := ll.file.Close()
	ll.file = nil
	return err
}
