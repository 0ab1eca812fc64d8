package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"studymcq"
)

func main() {
	var (
		configPath = flag.String("config", "", "Path to a YAML config file (or set CONFIG_FILE)")
		userID     = flag.Int64("user", 0, "Owner of the generated questions (required)")
		file       = flag.String("file", "", "Study material to ingest (.pdf, .docx, .txt or .md)")
		source     = flag.String("source", "", "Source label (default: the file name)")
		play       = flag.Int("play", 0, "Play a quiz of this many questions from the bank afterwards")
		verbose    = flag.Bool("verbose", false, "Enable verbose debugging output")
	)

	flag.Parse()

	studymcq.SetVerbose(*verbose)

	if *userID <= 0 {
		log.Fatal("User is required. Use -user flag.")
	}
	if *file == "" && *play == 0 {
		log.Fatal("Nothing to do. Use -file and/or -play.")
	}

	cfg, err := studymcq.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	app, err := studymcq.NewApp(cfg, nil)
	if err != nil {
		log.Fatalf("Failed to start: %v", err)
	}
	defer app.Close()

	ctx := context.Background()
	if err := app.DB.EnsureUser(ctx, *userID, ""); err != nil {
		log.Fatalf("Failed to register user: %v", err)
	}

	if *file != "" {
		if cfg.LLM.APIKey == "" {
			log.Fatal("LLM_API_KEY or GROQ_API_KEY environment variable is required")
		}
		ingestFile(ctx, app, *userID, *file, *source)
	}

	if *play > 0 {
		playQuiz(ctx, app, *userID, *play)
	}
}

func ingestFile(ctx context.Context, app *studymcq.App, owner int64, path, source string) {
	data, err := os.ReadFile(path)
	if err != nil {
		log.Fatalf("Failed to read %s: %v", path, err)
	}
	if source == "" {
		source = filepath.Base(path)
	}

	content, err := studymcq.DocumentExtractor{}.Extract(data, path)
	if err != nil {
		log.Fatalf("Failed to extract %s: %v", path, err)
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Minute)
	defer cancel()

	start := time.Now()
	count, err := app.Ingestor.Ingest(ctx, owner, content, source)
	if err != nil {
		log.Fatalf("Failed to ingest %s: %v", path, err)
	}
	log.Printf("Generated %d questions from %s in %s", count, source, time.Since(start).Round(time.Second))
}

func playQuiz(ctx context.Context, app *studymcq.App, owner int64, count int) {
	session, err := app.Quiz.Start(ctx, owner, count)
	if err != nil {
		log.Fatalf("Failed to start quiz: %v", err)
	}

	fmt.Printf("🎯 Starting a quiz with %d questions\n\n", len(session.Questions))
	scanner := bufio.NewScanner(os.Stdin)

	for q := session.Current(); q != nil; q = session.Current() {
		fmt.Printf("Question %d/%d:\n%s\n\n", session.Index+1, len(session.Questions), q.Text)
		for _, opt := range q.Options {
			fmt.Println(opt)
		}
		fmt.Println()

		var answer string
		for {
			fmt.Print("Your answer (A/B/C/D, Q to quit): ")
			if !scanner.Scan() {
				session.End()
				break
			}
			answer = strings.ToUpper(strings.TrimSpace(scanner.Text()))
			if answer == "Q" {
				session.End()
				break
			}
			if studymcq.IsOptionLabel(answer) {
				break
			}
			fmt.Println("Please enter A, B, C, or D")
		}
		if !session.Active() {
			break
		}

		res, err := app.Quiz.ProcessAnswer(ctx, owner, session, answer)
		if err != nil {
			log.Fatalf("Failed to record answer: %v", err)
		}
		if res.Correct {
			fmt.Println("✅ Correct!")
		} else {
			fmt.Printf("❌ Incorrect. The correct answer is %s\n", res.CorrectAnswer)
		}
		if res.Explanation != "" {
			fmt.Printf("💡 Explanation: %s\n", res.Explanation)
		}
		fmt.Println()
		fmt.Println(strings.Repeat("─", 50))
		fmt.Println()
		session.Advance()
	}

	p := session.Progress()
	fmt.Printf("🎉 Score: %d/%d (%.1f%%)\n", p.Score, p.Answered, p.Percentage)
}
