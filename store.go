package studymcq

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

// Store is the durable record of questions, answer history and user settings.
type Store interface {
	EnsureUser(ctx context.Context, owner int64, username string) error

	CreateQuestion(ctx context.Context, owner int64, c Candidate, source string) (int64, error)
	GetQuestions(ctx context.Context, owner int64) ([]Question, error)
	GetQuestion(ctx context.Context, id, owner int64) (*Question, error)
	CountQuestions(ctx context.Context, owner int64) (int, error)
	RecordAnswer(ctx context.Context, questionID int64, correct bool) error
	UpdateQuestion(ctx context.Context, id, owner int64, upd QuestionUpdate) (bool, error)
	DeleteQuestion(ctx context.Context, id, owner int64) (bool, error)
	ClearQuestions(ctx context.Context, owner int64) error

	SaveKnowledge(ctx context.Context, owner int64, content, source string) error
	ClearKnowledge(ctx context.Context, owner int64) error

	GetSettings(ctx context.Context, owner int64) (Settings, error)
	SaveSettings(ctx context.Context, owner int64, upd SettingsUpdate) error
	ListSchedules(ctx context.Context) ([]UserSchedule, error)

	RecordQuizResult(ctx context.Context, owner, questionID int64, givenAnswer string, correct bool) error
	GetUserStats(ctx context.Context, owner int64) (UserStats, error)
	GetBankStats(ctx context.Context, owner int64) (BankStats, error)
}

// DB is the SQLite implementation of Store.
type DB struct {
	db       *sql.DB
	defaults SettingsDefaults
}

var _ Store = (*DB)(nil)

// OpenDB opens a new database connection
func OpenDB(dbPath string, defaults SettingsDefaults) (*DB, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite allows one writer; a single connection also keeps ":memory:" databases shared.
	db.SetMaxOpenConns(1)

	// Test the connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{db: db, defaults: defaults}, nil
}

// CloseDB closes the database connection
func (db *DB) CloseDB() error {
	return db.db.Close()
}

// CreateTables creates the necessary tables if they don't exist
func (db *DB) CreateTables() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS users (
			user_id INTEGER PRIMARY KEY,
			username TEXT,
			daily_questions INTEGER,
			quiz_time TEXT,
			timezone TEXT,
			min_questions_per_chunk INTEGER,
			max_questions_per_chunk INTEGER
		)`,
		`CREATE TABLE IF NOT EXISTS knowledge_base (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER NOT NULL,
			content TEXT NOT NULL,
			source TEXT,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (user_id) REFERENCES users(user_id)
		)`,
		`CREATE TABLE IF NOT EXISTS question_bank (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER NOT NULL,
			question TEXT NOT NULL,
			options TEXT NOT NULL,
			correct_answer TEXT NOT NULL,
			explanation TEXT,
			source TEXT,
			times_asked INTEGER NOT NULL DEFAULT 0,
			times_correct INTEGER NOT NULL DEFAULT 0,
			accuracy REAL NOT NULL DEFAULT 0,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (user_id) REFERENCES users(user_id)
		)`,
		`CREATE TABLE IF NOT EXISTS quiz_history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER NOT NULL,
			question_id INTEGER NOT NULL,
			user_answer TEXT,
			is_correct BOOLEAN NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (user_id) REFERENCES users(user_id),
			FOREIGN KEY (question_id) REFERENCES question_bank(id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_question_bank_user ON question_bank(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_quiz_history_user ON quiz_history(user_id)`,
	}

	for _, query := range queries {
		if _, err := db.db.Exec(query); err != nil {
			return fmt.Errorf("failed to execute %s: %w", query, err)
		}
	}
	return nil
}

// EnsureUser creates the user row if needed and refreshes the username.
func (db *DB) EnsureUser(ctx context.Context, owner int64, username string) error {
	_, err := db.db.ExecContext(ctx,
		`INSERT INTO users (user_id, username) VALUES (?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET username = excluded.username`,
		owner, username,
	)
	if err != nil {
		return fmt.Errorf("failed to ensure user: %w", err)
	}
	return nil
}

func (db *DB) ensureUserRow(ctx context.Context, exec interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
}, owner int64) error {
	if _, err := exec.ExecContext(ctx, "INSERT OR IGNORE INTO users (user_id) VALUES (?)", owner); err != nil {
		return fmt.Errorf("failed to create user row: %w", err)
	}
	return nil
}

// CreateQuestion stores a question and returns its id
func (db *DB) CreateQuestion(ctx context.Context, owner int64, c Candidate, source string) (int64, error) {
	optionsJSON, err := OptionsToJSON(c.Options)
	if err != nil {
		return 0, err
	}
	if err := db.ensureUserRow(ctx, db.db, owner); err != nil {
		return 0, err
	}

	res, err := db.db.ExecContext(ctx,
		`INSERT INTO question_bank (user_id, question, options, correct_answer, explanation, source)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		owner, c.Question, optionsJSON, c.CorrectAnswer, c.Explanation, source,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to create question: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read question id: %w", err)
	}
	return id, nil
}

const questionColumns = `id, user_id, question, options, correct_answer, explanation, source,
	times_asked, times_correct, accuracy, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanQuestion(row rowScanner) (Question, error) {
	var (
		q           Question
		optionsJSON string
		explanation sql.NullString
		source      sql.NullString
	)
	err := row.Scan(&q.ID, &q.OwnerID, &q.Text, &optionsJSON, &q.CorrectAnswer, &explanation, &source,
		&q.TimesAsked, &q.TimesCorrect, &q.Accuracy, &q.CreatedAt)
	if err != nil {
		return Question{}, err
	}
	q.Explanation = explanation.String
	q.Source = source.String
	if q.Options, err = JSONToOptions(optionsJSON); err != nil {
		return Question{}, err
	}
	return q, nil
}

// GetQuestions retrieves all questions for a user
func (db *DB) GetQuestions(ctx context.Context, owner int64) ([]Question, error) {
	rows, err := db.db.QueryContext(ctx,
		"SELECT "+questionColumns+" FROM question_bank WHERE user_id = ? ORDER BY id",
		owner,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get questions: %w", err)
	}
	defer rows.Close()

	var questions []Question
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan question: %w", err)
		}
		questions = append(questions, q)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating questions: %w", err)
	}

	return questions, nil
}

// GetQuestion retrieves one question owned by the user
func (db *DB) GetQuestion(ctx context.Context, id, owner int64) (*Question, error) {
	row := db.db.QueryRowContext(ctx,
		"SELECT "+questionColumns+" FROM question_bank WHERE id = ? AND user_id = ?",
		id, owner,
	)
	q, err := scanQuestion(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%w: id=%d", ErrQuestionNotFound, id)
		}
		return nil, fmt.Errorf("failed to get question: %w", err)
	}
	return &q, nil
}

// CountQuestions returns the size of a user's bank
func (db *DB) CountQuestions(ctx context.Context, owner int64) (int, error) {
	var count int
	if err := db.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM question_bank WHERE user_id = ?", owner).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count questions: %w", err)
	}
	return count, nil
}

// RecordAnswer increments the counters and recomputes accuracy in a single statement.
// Right-hand expressions see the pre-update row, so concurrent answers cannot lose updates.
func (db *DB) RecordAnswer(ctx context.Context, questionID int64, correct bool) error {
	inc := 0
	if correct {
		inc = 1
	}
	_, err := db.db.ExecContext(ctx,
		`UPDATE question_bank
		 SET times_asked = times_asked + 1,
		     times_correct = times_correct + ?,
		     accuracy = CAST(times_correct + ? AS REAL) / (times_asked + 1)
		 WHERE id = ?`,
		inc, inc, questionID,
	)
	if err != nil {
		return fmt.Errorf("failed to record answer: %w", err)
	}
	return nil
}

// UpdateQuestion overwrites the supplied fields and resets the performance counters.
// It reports false when the question does not exist or is owned by someone else.
func (db *DB) UpdateQuestion(ctx context.Context, id, owner int64, upd QuestionUpdate) (bool, error) {
	tx, err := db.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin update: %w", err)
	}
	defer tx.Rollback()

	var exists bool
	err = tx.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM question_bank WHERE id = ? AND user_id = ?)", id, owner,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check question owner: %w", err)
	}
	if !exists {
		return false, nil
	}

	sets := []string{"times_asked = 0", "times_correct = 0", "accuracy = 0"}
	var args []any
	if upd.Text != nil {
		sets = append(sets, "question = ?")
		args = append(args, *upd.Text)
	}
	if upd.Options != nil {
		optionsJSON, err := OptionsToJSON(upd.Options)
		if err != nil {
			return false, err
		}
		sets = append(sets, "options = ?")
		args = append(args, optionsJSON)
	}
	if upd.CorrectAnswer != nil {
		sets = append(sets, "correct_answer = ?")
		args = append(args, *upd.CorrectAnswer)
	}
	if upd.Explanation != nil {
		sets = append(sets, "explanation = ?")
		args = append(args, *upd.Explanation)
	}
	args = append(args, id, owner)

	query := "UPDATE question_bank SET " + strings.Join(sets, ", ") + " WHERE id = ? AND user_id = ?"
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return false, fmt.Errorf("failed to update question: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit question update: %w", err)
	}
	return true, nil
}

// DeleteQuestion removes one question; false when not found or not owned.
func (db *DB) DeleteQuestion(ctx context.Context, id, owner int64) (bool, error) {
	result, err := db.db.ExecContext(ctx, "DELETE FROM question_bank WHERE id = ? AND user_id = ?", id, owner)
	if err != nil {
		return false, fmt.Errorf("failed to delete question: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

// ClearQuestions deletes a user's whole bank
func (db *DB) ClearQuestions(ctx context.Context, owner int64) error {
	if _, err := db.db.ExecContext(ctx, "DELETE FROM question_bank WHERE user_id = ?", owner); err != nil {
		return fmt.Errorf("failed to clear questions: %w", err)
	}
	return nil
}

// SaveKnowledge appends raw ingested content
func (db *DB) SaveKnowledge(ctx context.Context, owner int64, content, source string) error {
	if err := db.ensureUserRow(ctx, db.db, owner); err != nil {
		return err
	}
	_, err := db.db.ExecContext(ctx,
		"INSERT INTO knowledge_base (user_id, content, source) VALUES (?, ?, ?)",
		owner, content, source,
	)
	if err != nil {
		return fmt.Errorf("failed to save knowledge: %w", err)
	}
	return nil
}

// ClearKnowledge deletes a user's raw content, leaving the bank intact
func (db *DB) ClearKnowledge(ctx context.Context, owner int64) error {
	if _, err := db.db.ExecContext(ctx, "DELETE FROM knowledge_base WHERE user_id = ?", owner); err != nil {
		return fmt.Errorf("failed to clear knowledge: %w", err)
	}
	return nil
}

type settingsRow struct {
	DailyQuestions sql.NullInt64
	QuizTime       sql.NullString
	Timezone       sql.NullString
	MinPerChunk    sql.NullInt64
	MaxPerChunk    sql.NullInt64
}

// Resolve fills every unset column of a stored settings row with its default.
func (d SettingsDefaults) Resolve(row settingsRow) Settings {
	s := Settings{
		DailyQuestions: d.DailyQuestions,
		QuizTime:       d.QuizTime,
		Timezone:       d.Timezone,
		MinPerChunk:    d.MinPerChunk,
		MaxPerChunk:    d.MaxPerChunk,
	}
	if row.DailyQuestions.Valid {
		s.DailyQuestions = int(row.DailyQuestions.Int64)
	}
	if row.QuizTime.Valid && row.QuizTime.String != "" {
		s.QuizTime = row.QuizTime.String
	}
	if row.Timezone.Valid && row.Timezone.String != "" {
		s.Timezone = row.Timezone.String
	}
	if row.MinPerChunk.Valid {
		s.MinPerChunk = int(row.MinPerChunk.Int64)
	}
	if row.MaxPerChunk.Valid {
		s.MaxPerChunk = int(row.MaxPerChunk.Int64)
	}
	return s
}

// GetSettings returns the user's settings with defaults for anything unset
func (db *DB) GetSettings(ctx context.Context, owner int64) (Settings, error) {
	var row settingsRow
	err := db.db.QueryRowContext(ctx,
		`SELECT daily_questions, quiz_time, timezone, min_questions_per_chunk, max_questions_per_chunk
		 FROM users WHERE user_id = ?`, owner,
	).Scan(&row.DailyQuestions, &row.QuizTime, &row.Timezone, &row.MinPerChunk, &row.MaxPerChunk)
	if err != nil && err != sql.ErrNoRows {
		return Settings{}, fmt.Errorf("failed to get settings: %w", err)
	}
	return db.defaults.Resolve(row), nil
}

// SaveSettings writes all supplied fields in one statement
func (db *DB) SaveSettings(ctx context.Context, owner int64, upd SettingsUpdate) error {
	var (
		sets []string
		args []any
	)
	if upd.DailyQuestions != nil {
		sets = append(sets, "daily_questions = ?")
		args = append(args, *upd.DailyQuestions)
	}
	if upd.QuizTime != nil {
		sets = append(sets, "quiz_time = ?")
		args = append(args, *upd.QuizTime)
	}
	if upd.Timezone != nil {
		sets = append(sets, "timezone = ?")
		args = append(args, *upd.Timezone)
	}
	if upd.MinPerChunk != nil {
		sets = append(sets, "min_questions_per_chunk = ?")
		args = append(args, *upd.MinPerChunk)
	}
	if upd.MaxPerChunk != nil {
		sets = append(sets, "max_questions_per_chunk = ?")
		args = append(args, *upd.MaxPerChunk)
	}

	tx, err := db.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin settings update: %w", err)
	}
	defer tx.Rollback()

	if err := db.ensureUserRow(ctx, tx, owner); err != nil {
		return err
	}
	if len(sets) > 0 {
		args = append(args, owner)
		query := "UPDATE users SET " + strings.Join(sets, ", ") + " WHERE user_id = ?"
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("failed to save settings: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit settings: %w", err)
	}
	return nil
}

// ListSchedules returns every user's resolved reminder time
func (db *DB) ListSchedules(ctx context.Context) ([]UserSchedule, error) {
	rows, err := db.db.QueryContext(ctx,
		`SELECT user_id, daily_questions, quiz_time, timezone, min_questions_per_chunk, max_questions_per_chunk
		 FROM users ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var schedules []UserSchedule
	for rows.Next() {
		var (
			owner int64
			row   settingsRow
		)
		if err := rows.Scan(&owner, &row.DailyQuestions, &row.QuizTime, &row.Timezone, &row.MinPerChunk, &row.MaxPerChunk); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		s := db.defaults.Resolve(row)
		schedules = append(schedules, UserSchedule{OwnerID: owner, QuizTime: s.QuizTime, Timezone: s.Timezone})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}
	return schedules, nil
}

// RecordQuizResult appends one answer to the history log
func (db *DB) RecordQuizResult(ctx context.Context, owner, questionID int64, givenAnswer string, correct bool) error {
	if err := db.ensureUserRow(ctx, db.db, owner); err != nil {
		return err
	}
	_, err := db.db.ExecContext(ctx,
		"INSERT INTO quiz_history (user_id, question_id, user_answer, is_correct) VALUES (?, ?, ?, ?)",
		owner, questionID, givenAnswer, correct,
	)
	if err != nil {
		return fmt.Errorf("failed to record quiz result: %w", err)
	}
	return nil
}

// GetUserStats aggregates the user's answer history
func (db *DB) GetUserStats(ctx context.Context, owner int64) (UserStats, error) {
	var (
		total   int
		correct sql.NullInt64
	)
	err := db.db.QueryRowContext(ctx,
		"SELECT COUNT(*), SUM(is_correct) FROM quiz_history WHERE user_id = ?", owner,
	).Scan(&total, &correct)
	if err != nil {
		return UserStats{}, fmt.Errorf("failed to get user stats: %w", err)
	}
	return UserStats{TotalAnswered: total, TotalCorrect: int(correct.Int64)}, nil
}

// GetBankStats aggregates the user's question bank
func (db *DB) GetBankStats(ctx context.Context, owner int64) (BankStats, error) {
	var (
		sources  int
		avgAsked sql.NullFloat64
		accuracy sql.NullFloat64
	)
	err := db.db.QueryRowContext(ctx,
		`SELECT COUNT(DISTINCT source),
		        AVG(times_asked),
		        SUM(times_correct) * 1.0 / NULLIF(SUM(times_asked), 0) * 100
		 FROM question_bank WHERE user_id = ?`, owner,
	).Scan(&sources, &avgAsked, &accuracy)
	if err != nil {
		return BankStats{}, fmt.Errorf("failed to get bank stats: %w", err)
	}
	return BankStats{
		DistinctSources: sources,
		AvgTimesAsked:   avgAsked.Float64,
		AccuracyPercent: accuracy.Float64,
	}, nil
}

// Helper function to convert options slice to JSON string
func OptionsToJSON(options []string) (string, error) {
	data, err := json.Marshal(options)
	if err != nil {
		return "", fmt.Errorf("failed to marshal options: %w", err)
	}
	return string(data), nil
}

// Helper function to convert JSON string to options slice
func JSONToOptions(optionsJSON string) ([]string, error) {
	var options []string
	err := json.Unmarshal([]byte(optionsJSON), &options)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal options: %w", err)
	}
	return options, nil
}
