package studymcq

import (
	"context"
	"fmt"
	"log"

	"github.com/samber/lo"
)

// SessionState is the lifecycle position of a quiz session.
type SessionState int

const (
	SessionNotStarted SessionState = iota
	SessionInProgress
	SessionCompleted
	SessionEndedEarly
)

func (s SessionState) String() string {
	switch s {
	case SessionNotStarted:
		return "not_started"
	case SessionInProgress:
		return "in_progress"
	case SessionCompleted:
		return "completed"
	case SessionEndedEarly:
		return "ended_early"
	}
	return fmt.Sprintf("SessionState(%d)", int(s))
}

// QuizSession is one quiz attempt over a fixed snapshot of questions.
type QuizSession struct {
	Questions []Question
	Index     int
	Score     int
	State     SessionState
}

// NewQuizSession starts a session over a copy of questions.
func NewQuizSession(questions []Question) *QuizSession {
	s := &QuizSession{
		Questions: append([]Question(nil), questions...),
		State:     SessionInProgress,
	}
	if len(s.Questions) == 0 {
		s.State = SessionCompleted
	}
	return s
}

// Current returns the question at the cursor, or nil once the snapshot is exhausted.
func (s *QuizSession) Current() *Question {
	if s.IsComplete() {
		return nil
	}
	return &s.Questions[s.Index]
}

// IsComplete reports whether every question has been passed.
func (s *QuizSession) IsComplete() bool {
	return s.Index >= len(s.Questions)
}

// Active reports whether the session still accepts answers.
func (s *QuizSession) Active() bool {
	return s.State == SessionInProgress && !s.IsComplete()
}

// Advance moves the cursor to the next question.
func (s *QuizSession) Advance() {
	if s.State != SessionInProgress {
		return
	}
	if s.Index < len(s.Questions) {
		s.Index++
	}
	if s.IsComplete() {
		s.State = SessionCompleted
	}
}

// End terminates the session early. Completed sessions stay completed.
func (s *QuizSession) End() {
	if s.State == SessionInProgress {
		s.State = SessionEndedEarly
	}
}

// Summary is the final result, scored against the whole snapshot.
type Summary struct {
	Score      int
	Total      int
	Percentage float64
}

// Summary divides the score by the snapshot length.
func (s *QuizSession) Summary() Summary {
	sum := Summary{Score: s.Score, Total: len(s.Questions)}
	if sum.Total > 0 {
		sum.Percentage = float64(s.Score) / float64(sum.Total) * 100
	}
	return sum
}

// Progress is the partial result used when a quiz ends early.
type Progress struct {
	Score      int
	Answered   int
	Total      int
	Percentage float64
}

// Progress divides the score by the number of questions passed so far.
func (s *QuizSession) Progress() Progress {
	p := Progress{Score: s.Score, Answered: s.Index, Total: len(s.Questions)}
	if p.Answered > 0 {
		p.Percentage = float64(s.Score) / float64(p.Answered) * 100
	}
	return p
}

// RemoveQuestion drops a question from the snapshot by id.
// The cursor moves back only when the removed position is strictly before it,
// so the same question stays current. Removing the current question leaves the
// cursor where it is and its successor slides into place; callers present the
// current question again rather than calling Advance, which shows every
// remaining question exactly once.
func (s *QuizSession) RemoveQuestion(id int64) bool {
	_, pos, ok := lo.FindIndexOf(s.Questions, func(q Question) bool { return q.ID == id })
	if !ok {
		return false
	}
	s.Questions = append(s.Questions[:pos], s.Questions[pos+1:]...)
	if pos < s.Index {
		s.Index--
	}
	if s.State == SessionInProgress && s.IsComplete() {
		s.State = SessionCompleted
	}
	return true
}

// PatchQuestion applies an edit to the snapshot entry with the given id.
// Identity, position and the performance counters of the snapshot are left alone.
func (s *QuizSession) PatchQuestion(id int64, upd QuestionUpdate) bool {
	for i := range s.Questions {
		if s.Questions[i].ID == id {
			upd.Apply(&s.Questions[i])
			return true
		}
	}
	return false
}

// AnswerResult is the outcome of one answer.
type AnswerResult struct {
	Correct       bool
	Given         string
	CorrectAnswer string
	Explanation   string
}

// QuizManager starts sessions and records answers against the store.
type QuizManager struct {
	store    Store
	selector *Selector
}

// NewQuizManager creates a quiz manager.
func NewQuizManager(store Store, selector *Selector) *QuizManager {
	return &QuizManager{store: store, selector: selector}
}

// Start draws count questions for owner and opens a session over them.
func (qm *QuizManager) Start(ctx context.Context, owner int64, count int) (*QuizSession, error) {
	total, err := qm.store.CountQuestions(ctx, owner)
	if err != nil {
		return nil, err
	}
	if total == 0 {
		return nil, ErrEmptyBank
	}
	if count < 1 || count > total {
		return nil, fmt.Errorf("%w: %d not in [1, %d]", ErrInvalidCount, count, total)
	}

	pool, err := qm.store.GetQuestions(ctx, owner)
	if err != nil {
		return nil, err
	}
	selected := qm.selector.Select(pool, count)
	if len(selected) == 0 {
		return nil, ErrLoadError
	}

	VerboseLog("Started quiz for user %d with %d of %d questions", owner, len(selected), total)
	return NewQuizSession(selected), nil
}

// ProcessAnswer grades label against the current question and records the attempt.
// The cursor is not moved.
func (qm *QuizManager) ProcessAnswer(ctx context.Context, owner int64, s *QuizSession, label string) (AnswerResult, error) {
	if s == nil || !s.Active() {
		return AnswerResult{}, ErrNoActiveSession
	}
	q := s.Current()
	result := AnswerResult{
		Correct:       label == q.CorrectAnswer,
		Given:         label,
		CorrectAnswer: q.CorrectAnswer,
		Explanation:   q.Explanation,
	}

	if err := qm.store.RecordAnswer(ctx, q.ID, result.Correct); err != nil {
		return AnswerResult{}, err
	}
	if err := qm.store.RecordQuizResult(ctx, owner, q.ID, label, result.Correct); err != nil {
		// counters are already committed
		log.Printf("[WARN] Failed to record quiz history for question %d: %v", q.ID, err)
	}
	if result.Correct {
		s.Score++
	}
	return result, nil
}
