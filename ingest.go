package studymcq

import (
	"context"
	"fmt"
	"log"
	"time"
)

// IngestOptions tunes an Ingestor.
type IngestOptions struct {
	ChunkSizeWords int
	// ChunkTimeout bounds one generator call. Zero means no limit.
	ChunkTimeout time.Duration
	// LogDir receives one generation log per run. Empty disables run logs.
	LogDir string
}

// Ingestor turns study material into stored questions, chunk by chunk.
type Ingestor struct {
	store     Store
	generator Generator
	checker   *QuestionChecker
	opts      IngestOptions
}

// NewIngestor creates an ingestor
func NewIngestor(store Store, generator Generator, opts IngestOptions) *Ingestor {
	if opts.ChunkSizeWords <= 0 {
		opts.ChunkSizeWords = 1000
	}
	return &Ingestor{
		store:     store,
		generator: generator,
		checker:   NewQuestionChecker(),
		opts:      opts,
	}
}

// Ingest saves content to the owner's knowledge base, then generates and stores
// questions for each chunk of it. A failed chunk contributes nothing and does not
// stop the others; only store failures and cancellation end the run early.
// It returns the number of questions stored.
func (ig *Ingestor) Ingest(ctx context.Context, owner int64, content, source string) (int, error) {
	chunks := ChunkText(content, ig.opts.ChunkSizeWords)
	if len(chunks) == 0 {
		return 0, nil
	}

	if err := ig.store.SaveKnowledge(ctx, owner, content, source); err != nil {
		return 0, err
	}

	log.Printf("[INFO] Ingesting %q for user %d: %d chunks", source, owner, len(chunks))

	var logger *GenerationLogger
	if ig.opts.LogDir != "" {
		var err error
		logger, err = NewGenerationLogger(ig.opts.LogDir, owner, source, len(chunks))
		if err != nil {
			log.Printf("[WARN] Generation log disabled: %v", err)
		}
	}

	total := 0
	defer func() {
		if err := logger.Close(total); err != nil {
			log.Printf("[WARN] Failed to close generation log: %v", err)
		}
	}()

	for i, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		n := i + 1

		// settings are read fresh for every chunk
		settings, err := ig.store.GetSettings(ctx, owner)
		if err != nil {
			return total, err
		}

		candidates, err := ig.generate(ctx, GenerationRequest{
			Content:      chunk,
			MinQuestions: settings.MinPerChunk,
			MaxQuestions: settings.MaxPerChunk,
			Chunk:        n,
		}, logger)
		if err != nil {
			log.Printf("[WARN] Generation failed for %s chunk %d: %v", source, n, err)
			logger.LogChunkResult(n, 0, err)
			continue
		}

		label := fmt.Sprintf("%s - Chunk %d", source, n)
		saved := 0
		for j, candidate := range candidates {
			result := ig.checker.CheckQuestion(candidate)
			logger.LogQuestionResult(n, j+1, result.Action, result.Reason)
			if result.Action != ActionAccept {
				continue
			}
			if _, err := ig.store.CreateQuestion(ctx, owner, result.Question, label); err != nil {
				return total, err
			}
			saved++
			total++
		}
		logger.LogChunkResult(n, saved, nil)
		VerboseLog("Chunk %d/%d: %d of %d candidates saved", n, len(chunks), saved, len(candidates))
	}

	log.Printf("[INFO] Ingestion of %q for user %d complete: %d questions", source, owner, total)
	return total, nil
}

func (ig *Ingestor) generate(ctx context.Context, req GenerationRequest, logger *GenerationLogger) ([]Candidate, error) {
	if ig.opts.ChunkTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, ig.opts.ChunkTimeout)
		defer cancel()
	}
	return ig.generator.Generate(ctx, req, logger)
}
