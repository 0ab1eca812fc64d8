package studymcq

import (
	"fmt"
	"log"
)

// App holds the wired components shared by every binary.
type App struct {
	Config    Config
	DB        *DB
	States    *StateStore
	Quiz      *QuizManager
	Ingestor  *Ingestor
	Assistant *Assistant
}

// NewApp opens the database and wires the conversational core around it.
func NewApp(cfg Config, generator Generator) (*App, error) {
	db, err := OpenDB(cfg.DBPath, cfg.Defaults)
	if err != nil {
		return nil, err
	}
	if err := db.CreateTables(); err != nil {
		db.CloseDB()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	if generator == nil {
		generator = NewQuestionMaker(cfg.LLM, cfg.MaxContentChars)
	}

	states := NewStateStore(cfg.StateIdleTTL)
	quiz := NewQuizManager(db, NewSelector(cfg.Weights, nil))
	flows := NewFlowEngine(db, quiz, cfg.Defaults)
	ingestor := NewIngestor(db, generator, IngestOptions{
		ChunkSizeWords: cfg.ChunkSizeWords,
		ChunkTimeout:   cfg.LLM.Timeout,
		LogDir:         cfg.GenerationLogs,
	})

	log.Printf("[INFO] Using database %s, model %s", cfg.DBPath, cfg.LLM.Model)

	return &App{
		Config:    cfg,
		DB:        db,
		States:    states,
		Quiz:      quiz,
		Ingestor:  ingestor,
		Assistant: NewAssistant(db, states, quiz, flows, ingestor, DocumentExtractor{}, cfg.Defaults),
	}, nil
}

// Close releases the database.
func (a *App) Close() error {
	return a.DB.CloseDB()
}
