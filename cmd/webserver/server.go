package main

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/sessions"

	"studymcq"
)

const (
	sessionName     = "studymcq"
	maxUploadBytes  = 5 << 20
	maxMessageBytes = 64 << 10
)

// Server exposes the assistant as a JSON API. The logged-in user lives in a
// signed cookie session and is only ever set by the server: either from a
// verified Telegram login or as a freshly minted guest.
type Server struct {
	assistant *studymcq.Assistant
	store     *sessions.CookieStore
	inbox     *reminderInbox
	botToken  string
	now       func() time.Time
}

type messageRequest struct {
	Text string `json:"text"`
}

type actionRequest struct {
	Data string `json:"data"`
}

type repliesResponse struct {
	Replies []studymcq.Reply `json:"replies"`
}

// NewServer creates the server. An empty botToken disables Telegram login.
func NewServer(assistant *studymcq.Assistant, secret, botToken string) *Server {
	store := sessions.NewCookieStore([]byte(secret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 30,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	return &Server{
		assistant: assistant,
		store:     store,
		inbox:     newReminderInbox(),
		botToken:  botToken,
		now:       time.Now,
	}
}

// Router registers every route.
func (s *Server) Router() *mux.Router {
	router := mux.NewRouter()
	router.Use(jsonMiddleware)

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/login/telegram", s.handleTelegramLogin).Methods(http.MethodPost)
	api.HandleFunc("/login/guest", s.handleGuestLogin).Methods(http.MethodPost)
	api.HandleFunc("/logout", s.handleLogout).Methods(http.MethodPost)
	api.HandleFunc("/message", s.withUser(s.handleMessage)).Methods(http.MethodPost)
	api.HandleFunc("/action", s.withUser(s.handleAction)).Methods(http.MethodPost)
	api.HandleFunc("/upload", s.withUser(s.handleUpload)).Methods(http.MethodPost)
	api.HandleFunc("/reminders", s.withUser(s.handleReminders)).Methods(http.MethodGet)
	return router
}

func (s *Server) handleTelegramLogin(w http.ResponseWriter, r *http.Request) {
	var req telegramLogin
	if err := json.NewDecoder(io.LimitReader(r.Body, maxMessageBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON payload")
		return
	}
	if err := verifyTelegramLogin(s.botToken, req, s.now()); err != nil {
		log.Printf("[WARN] Telegram login for id %d: %v", req.ID, err)
		writeError(w, http.StatusUnauthorized, "Telegram login could not be verified")
		return
	}
	s.login(w, r, studymcq.User{ID: req.ID, Username: req.Username})
}

// handleGuestLogin keeps an existing session user, or mints a guest one.
func (s *Server) handleGuestLogin(w http.ResponseWriter, r *http.Request) {
	if user, ok := s.sessionUser(r); ok {
		writeJSON(w, http.StatusOK, repliesResponse{Replies: s.assistant.HandleCommand(r.Context(), user, "start")})
		return
	}
	s.login(w, r, studymcq.User{ID: newGuestID(), Username: "guest"})
}

func (s *Server) login(w http.ResponseWriter, r *http.Request, user studymcq.User) {
	session, _ := s.store.Get(r, sessionName)
	session.Values["user_id"] = user.ID
	session.Values["username"] = user.Username
	if err := session.Save(r, w); err != nil {
		log.Printf("[ERROR] Saving session: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to save session")
		return
	}
	log.Printf("[INFO] User %d logged in", user.ID)
	writeJSON(w, http.StatusOK, repliesResponse{Replies: s.assistant.HandleCommand(r.Context(), user, "start")})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	session, _ := s.store.Get(r, sessionName)
	session.Options.MaxAge = -1
	if err := session.Save(r, w); err != nil {
		log.Printf("[ERROR] Clearing session: %v", err)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request, user studymcq.User) {
	var req messageRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxMessageBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON payload")
		return
	}

	var replies []studymcq.Reply
	if command, ok := strings.CutPrefix(strings.TrimSpace(req.Text), "/"); ok && command != "" {
		name, _, _ := strings.Cut(command, " ")
		replies = s.assistant.HandleCommand(r.Context(), user, name)
	} else {
		replies = s.assistant.HandleText(r.Context(), user, req.Text)
	}
	writeJSON(w, http.StatusOK, repliesResponse{Replies: replies})
}

func (s *Server) handleAction(w http.ResponseWriter, r *http.Request, user studymcq.User) {
	var req actionRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxMessageBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON payload")
		return
	}
	writeJSON(w, http.StatusOK, repliesResponse{Replies: s.assistant.HandleAction(r.Context(), user, req.Data)})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request, user studymcq.User) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "File too large or malformed upload")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Missing file")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		log.Printf("[ERROR] Reading upload from user %d: %v", user.ID, err)
		writeError(w, http.StatusInternalServerError, "Failed to read upload")
		return
	}

	log.Printf("[INFO] Upload %s (%d bytes) from user %d", header.Filename, len(data), user.ID)
	writeJSON(w, http.StatusOK, repliesResponse{Replies: s.assistant.HandleDocument(r.Context(), user, header.Filename, data)})
}

func (s *Server) handleReminders(w http.ResponseWriter, r *http.Request, user studymcq.User) {
	texts := s.inbox.drain(user.ID)
	replies := make([]studymcq.Reply, 0, len(texts))
	for _, t := range texts {
		replies = append(replies, studymcq.Reply{Text: t})
	}
	writeJSON(w, http.StatusOK, repliesResponse{Replies: replies})
}

// withUser resolves the session user or answers 401.
func (s *Server) withUser(h func(http.ResponseWriter, *http.Request, studymcq.User)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := s.sessionUser(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "Not logged in")
			return
		}
		h(w, r, user)
	}
}

func (s *Server) sessionUser(r *http.Request) (studymcq.User, bool) {
	session, err := s.store.Get(r, sessionName)
	if err != nil {
		studymcq.VerboseLog("Invalid session cookie: %v", err)
	}
	id, ok := session.Values["user_id"].(int64)
	if !ok {
		return studymcq.User{}, false
	}
	username, _ := session.Values["username"].(string)
	return studymcq.User{ID: id, Username: username}, true
}

func jsonMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("[ERROR] Encoding response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// reminderInbox buffers reminders until the user polls for them.
type reminderInbox struct {
	mu      sync.Mutex
	pending map[int64][]string
}

func newReminderInbox() *reminderInbox {
	return &reminderInbox{pending: make(map[int64][]string)}
}

func (i *reminderInbox) push(owner int64, text string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.pending[owner] = append(i.pending[owner], text)
}

func (i *reminderInbox) drain(owner int64) []string {
	i.mu.Lock()
	defer i.mu.Unlock()
	texts := i.pending[owner]
	delete(i.pending, owner)
	return texts
}
