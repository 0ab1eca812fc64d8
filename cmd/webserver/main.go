package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"studymcq"
)

// inboxNotifier queues reminders for GET /api/reminders.
type inboxNotifier struct{ inbox *reminderInbox }

func (n inboxNotifier) Notify(_ context.Context, owner int64, text string) error {
	log.Printf("[INFO] Reminder for user %d", owner)
	n.inbox.push(owner, text)
	return nil
}

func main() {
	var (
		configPath = flag.String("config", "", "Path to a YAML config file (or set CONFIG_FILE)")
		verbose    = flag.Bool("verbose", false, "Enable verbose debugging output")
	)
	flag.Parse()

	studymcq.SetVerbose(*verbose)

	cfg, err := studymcq.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if cfg.LLM.APIKey == "" {
		log.Fatal("LLM_API_KEY or GROQ_API_KEY environment variable is required")
	}
	if cfg.SessionSecret == "" {
		log.Fatal("SESSION_SECRET environment variable is required")
	}

	app, err := studymcq.NewApp(cfg, nil)
	if err != nil {
		log.Fatalf("Failed to start: %v", err)
	}
	defer app.Close()

	if cfg.BotToken == "" {
		log.Println("[WARN] BOT_TOKEN not set, only guest login is available")
	}
	server := NewServer(app.Assistant, cfg.SessionSecret, cfg.BotToken)

	reminder := studymcq.NewReminder(app.DB, inboxNotifier{inbox: server.inbox}, app.States)
	if err := reminder.Start(); err != nil {
		log.Fatalf("Failed to start reminders: %v", err)
	}
	defer reminder.Stop()

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("[ERROR] Shutting down server: %v", err)
		}
	}()

	log.Printf("Starting server on port %s", cfg.Port)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("Server failed: %v", err)
	}
}
