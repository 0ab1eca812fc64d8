package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"

	"studymcq"
)

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
	if cfg.BotToken == "" {
		log.Fatal("BOT_TOKEN environment variable is required")
	}
	if cfg.LLM.APIKey == "" {
		log.Fatal("LLM_API_KEY or GROQ_API_KEY environment variable is required")
	}

	app, err := studymcq.NewApp(cfg, nil)
	if err != nil {
		log.Fatalf("Failed to start: %v", err)
	}
	defer app.Close()

	bot, err := NewBot(cfg.BotToken, app.Assistant)
	if err != nil {
		log.Fatalf("Failed to connect to Telegram: %v", err)
	}

	reminder := studymcq.NewReminder(app.DB, bot, app.States)
	if err := reminder.Start(); err != nil {
		log.Fatalf("Failed to start reminders: %v", err)
	}
	defer reminder.Stop()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Println("🤖 Bot is starting...")
	bot.Run(ctx)
	log.Println("Bot stopped")
}
