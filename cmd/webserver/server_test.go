package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studymcq"
)

const (
	testSecret   = "0123456789abcdef0123456789abcdef"
	testBotToken = "123456:test-token"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type idleGenerator struct{}

func (idleGenerator) Generate(context.Context, studymcq.GenerationRequest, *studymcq.GenerationLogger) ([]studymcq.Candidate, error) {
	return nil, nil
}

func newTestServer(t *testing.T) (*Server, *studymcq.App) {
	t.Helper()
	cfg := studymcq.DefaultConfig()
	cfg.DBPath = filepath.Join(t.TempDir(), "web.db")
	cfg.GenerationLogs = ""

	app, err := studymcq.NewApp(cfg, idleGenerator{})
	require.NoError(t, err)
	t.Cleanup(func() { app.Close() })

	s := NewServer(app.Assistant, testSecret, testBotToken)
	s.now = func() time.Time { return testNow }
	return s, app
}

func seedBank(t *testing.T, db *studymcq.DB, owner int64, n int) {
	t.Helper()
	for i := 1; i <= n; i++ {
		_, err := db.CreateQuestion(context.Background(), owner, studymcq.Candidate{
			Question:      fmt.Sprintf("Question %d?", i),
			Options:       []string{"A) one", "B) two", "C) three", "D) four"},
			CorrectAnswer: "A",
			Explanation:   "Because.",
		}, "notes.txt - Chunk 1")
		require.NoError(t, err)
	}
}

type apiReplies struct {
	Replies []struct {
		Text    string `json:"text"`
		Buttons [][]struct {
			Text   string `json:"text"`
			Action string `json:"action"`
		} `json:"buttons"`
	} `json:"replies"`
}

func call(t *testing.T, h http.Handler, method, path string, body any, cookies []*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeReplies(t *testing.T, rec *httptest.ResponseRecorder) apiReplies {
	t.Helper()
	var out apiReplies
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))
	return out
}

func signedLogin(id int64, username string) telegramLogin {
	l := telegramLogin{ID: id, Username: username, FirstName: "Sam", AuthDate: testNow.Add(-time.Minute).Unix()}
	l.Hash = signTelegramLogin(testBotToken, l)
	return l
}

func TestRoutesRequireSession(t *testing.T) {
	s, _ := newTestServer(t)
	router := s.Router()

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{"health", http.MethodGet, "/health", nil, http.StatusOK},
		{"message", http.MethodPost, "/api/message", messageRequest{Text: "/bank"}, http.StatusUnauthorized},
		{"action", http.MethodPost, "/api/action", actionRequest{Data: "clrqb::0"}, http.StatusUnauthorized},
		{"upload", http.MethodPost, "/api/upload", nil, http.StatusUnauthorized},
		{"reminders", http.MethodGet, "/api/reminders", nil, http.StatusUnauthorized},
		{"client chosen id", http.MethodPost, "/api/login", map[string]any{"user_id": 123456789}, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := call(t, router, tt.method, tt.path, tt.body, nil)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestForgedLoginCannotReachAnotherBank(t *testing.T) {
	s, app := newTestServer(t)
	router := s.Router()
	const victim = int64(123456789)
	seedBank(t, app.DB, victim, 3)

	unsigned := telegramLogin{ID: victim, AuthDate: testNow.Unix()}
	rec := call(t, router, http.MethodPost, "/api/login/telegram", unsigned, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, rec.Result().Cookies())

	forged := signedLogin(victim, "victim")
	forged.Hash = signTelegramLogin("999:other-bot", forged)
	rec = call(t, router, http.MethodPost, "/api/login/telegram", forged, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = call(t, router, http.MethodPost, "/api/login/guest", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	guest := rec.Result().Cookies()
	require.NotEmpty(t, guest)

	rec = call(t, router, http.MethodPost, "/api/action", actionRequest{Data: "clrqb::0"}, guest)
	require.Equal(t, http.StatusOK, rec.Code)

	count, err := app.DB.CountQuestions(context.Background(), victim)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestGuestLoginKeepsIdentity(t *testing.T) {
	s, app := newTestServer(t)
	router := s.Router()
	ctx := context.Background()

	rec := call(t, router, http.MethodPost, "/api/login/guest", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	cookies := rec.Result().Cookies()

	rec = call(t, router, http.MethodPost, "/api/login/guest", nil, cookies)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Result().Cookies())

	rec = call(t, router, http.MethodPost, "/api/message", messageRequest{Text: "/bank"}, cookies)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, decodeReplies(t, rec).Replies[0].Text, "empty")

	schedules, err := app.DB.ListSchedules(ctx)
	require.NoError(t, err)
	require.Len(t, schedules, 1)
	assert.Less(t, schedules[0].OwnerID, int64(0))
}

func TestTelegramLoginRoundTrip(t *testing.T) {
	s, app := newTestServer(t)
	router := s.Router()
	const owner = int64(42)
	seedBank(t, app.DB, owner, 3)

	rec := call(t, router, http.MethodPost, "/api/login/telegram", signedLogin(owner, "sam"), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)
	assert.Contains(t, decodeReplies(t, rec).Replies[0].Text, "Welcome")

	rec = call(t, router, http.MethodPost, "/api/message", messageRequest{Text: "/bank"}, cookies)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, decodeReplies(t, rec).Replies[0].Text, "Total questions: 3")

	rec = call(t, router, http.MethodPost, "/api/message", messageRequest{Text: "/clear_questions"}, cookies)
	require.Equal(t, http.StatusOK, rec.Code)
	replies := decodeReplies(t, rec).Replies
	require.Len(t, replies, 1)
	require.NotEmpty(t, replies[0].Buttons)
	confirm := replies[0].Buttons[0][0].Action
	assert.Equal(t, "clrqb::0", confirm)

	rec = call(t, router, http.MethodPost, "/api/action", actionRequest{Data: confirm}, cookies)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, decodeReplies(t, rec).Replies[0].Text, "cleared")

	count, err := app.DB.CountQuestions(context.Background(), owner)
	require.NoError(t, err)
	assert.Zero(t, count)

	rec = call(t, router, http.MethodPost, "/api/logout", nil, cookies)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestRemindersAreDrainedOnce(t *testing.T) {
	s, _ := newTestServer(t)
	router := s.Router()

	rec := call(t, router, http.MethodPost, "/api/login/telegram", signedLogin(7, "kim"), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	cookies := rec.Result().Cookies()

	require.NoError(t, inboxNotifier{inbox: s.inbox}.Notify(context.Background(), 7, "quiz time"))
	require.NoError(t, inboxNotifier{inbox: s.inbox}.Notify(context.Background(), 8, "not yours"))

	rec = call(t, router, http.MethodGet, "/api/reminders", nil, cookies)
	require.Equal(t, http.StatusOK, rec.Code)
	replies := decodeReplies(t, rec).Replies
	require.Len(t, replies, 1)
	assert.Equal(t, "quiz time", replies[0].Text)

	rec = call(t, router, http.MethodGet, "/api/reminders", nil, cookies)
	assert.Empty(t, decodeReplies(t, rec).Replies)
}
