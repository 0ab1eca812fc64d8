package studymcq

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := OpenDB(filepath.Join(t.TempDir(), "test.db"), DefaultSettings())
	require.NoError(t, err)
	require.NoError(t, db.CreateTables())
	t.Cleanup(func() { db.CloseDB() })
	return db
}

func sampleCandidate(i int) Candidate {
	return Candidate{
		Question: fmt.Sprintf("Question %d?", i),
		Options: []string{
			FormatOption("A", fmt.Sprintf("first %d", i)),
			FormatOption("B", fmt.Sprintf("second %d", i)),
			FormatOption("C", fmt.Sprintf("third %d", i)),
			FormatOption("D", fmt.Sprintf("fourth %d", i)),
		},
		CorrectAnswer: "A",
		Explanation:   fmt.Sprintf("Because %d.", i),
	}
}

func seedQuestions(t *testing.T, db *DB, owner int64, n int, source string) []int64 {
	t.Helper()
	ids := make([]int64, 0, n)
	for i := 1; i <= n; i++ {
		id, err := db.CreateQuestion(context.Background(), owner, sampleCandidate(i), source)
		require.NoError(t, err)
		ids = append(ids, id)
	}
	return ids
}

func TestCreateAndGetQuestion(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	id, err := db.CreateQuestion(ctx, 1, sampleCandidate(1), "notes.txt - Chunk 1")
	require.NoError(t, err)

	q, err := db.GetQuestion(ctx, id, 1)
	require.NoError(t, err)
	assert.Equal(t, "Question 1?", q.Text)
	assert.Equal(t, []string{"A) first 1", "B) second 1", "C) third 1", "D) fourth 1"}, q.Options)
	assert.Equal(t, "A", q.CorrectAnswer)
	assert.Equal(t, "notes.txt - Chunk 1", q.Source)
	assert.Zero(t, q.TimesAsked)
	assert.Zero(t, q.Accuracy)
	assert.False(t, q.CreatedAt.IsZero())

	_, err = db.GetQuestion(ctx, id, 2)
	assert.ErrorIs(t, err, ErrQuestionNotFound)
}

func TestRecordAnswerAccuracy(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	id := seedQuestions(t, db, 1, 1, "src")[0]

	for _, correct := range []bool{true, true, false, true, false} {
		require.NoError(t, db.RecordAnswer(ctx, id, correct))
	}

	q, err := db.GetQuestion(ctx, id, 1)
	require.NoError(t, err)
	assert.Equal(t, 5, q.TimesAsked)
	assert.Equal(t, 3, q.TimesCorrect)
	assert.InDelta(t, 0.6, q.Accuracy, 1e-9)
}

func TestUpdateQuestionResetsCounters(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	id := seedQuestions(t, db, 1, 1, "src")[0]
	require.NoError(t, db.RecordAnswer(ctx, id, true))
	require.NoError(t, db.RecordAnswer(ctx, id, false))

	text := "Rewritten?"
	answer := "C"
	ok, err := db.UpdateQuestion(ctx, id, 1, QuestionUpdate{Text: &text, CorrectAnswer: &answer})
	require.NoError(t, err)
	require.True(t, ok)

	q, err := db.GetQuestion(ctx, id, 1)
	require.NoError(t, err)
	assert.Equal(t, "Rewritten?", q.Text)
	assert.Equal(t, "C", q.CorrectAnswer)
	assert.Equal(t, "Because 1.", q.Explanation)
	assert.Equal(t, "A) first 1", q.Options[0])
	assert.Zero(t, q.TimesAsked)
	assert.Zero(t, q.TimesCorrect)
	assert.Zero(t, q.Accuracy)
}

func TestUpdateAndDeleteRespectOwnership(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	id := seedQuestions(t, db, 1, 1, "src")[0]

	text := "Hijacked?"
	ok, err := db.UpdateQuestion(ctx, id, 2, QuestionUpdate{Text: &text})
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = db.DeleteQuestion(ctx, id, 2)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = db.DeleteQuestion(ctx, id, 1)
	require.NoError(t, err)
	assert.True(t, ok)

	count, err := db.CountQuestions(ctx, 1)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestClearQuestionsIsPerUser(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	seedQuestions(t, db, 1, 3, "src")
	seedQuestions(t, db, 2, 2, "src")

	require.NoError(t, db.ClearQuestions(ctx, 1))

	mine, err := db.CountQuestions(ctx, 1)
	require.NoError(t, err)
	theirs, err := db.CountQuestions(ctx, 2)
	require.NoError(t, err)
	assert.Zero(t, mine)
	assert.Equal(t, 2, theirs)
}

func TestKnowledgeBase(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.SaveKnowledge(ctx, 1, "some study text", "notes.txt"))
	require.NoError(t, db.ClearKnowledge(ctx, 1))

	var n int
	require.NoError(t, db.db.QueryRow("SELECT COUNT(*) FROM knowledge_base WHERE user_id = 1").Scan(&n))
	assert.Zero(t, n)
}

func TestGetSettingsDefaults(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	s, err := db.GetSettings(ctx, 99)
	require.NoError(t, err)
	assert.Equal(t, Settings{DailyQuestions: 5, QuizTime: "09:00", Timezone: "UTC", MinPerChunk: 3, MaxPerChunk: 5}, s)

	require.NoError(t, db.EnsureUser(ctx, 99, "alice"))
	s, err = db.GetSettings(ctx, 99)
	require.NoError(t, err)
	assert.Equal(t, 5, s.DailyQuestions)
	assert.Equal(t, 3, s.MinPerChunk)
}

func TestSaveSettingsPartial(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	minQ, maxQ := 4, 6
	require.NoError(t, db.SaveSettings(ctx, 7, SettingsUpdate{MinPerChunk: &minQ, MaxPerChunk: &maxQ}))

	s, err := db.GetSettings(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, 4, s.MinPerChunk)
	assert.Equal(t, 6, s.MaxPerChunk)
	assert.Equal(t, 5, s.DailyQuestions)
	assert.Equal(t, "09:00", s.QuizTime)

	quizTime := "18:30"
	require.NoError(t, db.SaveSettings(ctx, 7, SettingsUpdate{QuizTime: &quizTime}))
	s, err = db.GetSettings(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, "18:30", s.QuizTime)
	assert.Equal(t, 4, s.MinPerChunk)
}

func TestBankStats(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	ids := seedQuestions(t, db, 1, 2, "a.txt - Chunk 1")
	seedQuestions(t, db, 1, 1, CustomQuestionSource)

	require.NoError(t, db.RecordAnswer(ctx, ids[0], true))
	require.NoError(t, db.RecordAnswer(ctx, ids[0], false))
	require.NoError(t, db.RecordAnswer(ctx, ids[1], true))

	stats, err := db.GetBankStats(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.DistinctSources)
	assert.InDelta(t, 1.0, stats.AvgTimesAsked, 1e-9)
	assert.InDelta(t, 66.666, stats.AccuracyPercent, 0.01)

	empty, err := db.GetBankStats(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, BankStats{}, empty)
}

func TestUserStats(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	stats, err := db.GetUserStats(ctx, 1)
	require.NoError(t, err)
	assert.Zero(t, stats.TotalAnswered)
	assert.Zero(t, stats.AccuracyPercent())

	id := seedQuestions(t, db, 1, 1, "src")[0]
	require.NoError(t, db.RecordQuizResult(ctx, 1, id, "A", true))
	require.NoError(t, db.RecordQuizResult(ctx, 1, id, "B", false))
	require.NoError(t, db.RecordQuizResult(ctx, 1, id, "A", true))
	require.NoError(t, db.RecordQuizResult(ctx, 1, id, "A", true))

	stats, err = db.GetUserStats(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 4, stats.TotalAnswered)
	assert.Equal(t, 3, stats.TotalCorrect)
	assert.InDelta(t, 75.0, stats.AccuracyPercent(), 1e-9)
}

func TestListSchedules(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.EnsureUser(ctx, 1, "alice"))
	quizTime, tz := "07:15", "Europe/Berlin"
	require.NoError(t, db.SaveSettings(ctx, 2, SettingsUpdate{QuizTime: &quizTime, Timezone: &tz}))

	schedules, err := db.ListSchedules(ctx)
	require.NoError(t, err)
	assert.Equal(t, []UserSchedule{
		{OwnerID: 1, QuizTime: "09:00", Timezone: "UTC"},
		{OwnerID: 2, QuizTime: "07:15", Timezone: "Europe/Berlin"},
	}, schedules)
}
