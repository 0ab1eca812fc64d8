package studymcq

import "time"

// OptionLabels are the answer labels in display order.
var OptionLabels = []string{"A", "B", "C", "D"}

// Question is a multiple choice question stored in a user's bank.
type Question struct {
	ID            int64     `json:"id"`
	OwnerID       int64     `json:"owner_id"`
	Text          string    `json:"question"`
	Options       []string  `json:"options"`        // "A) text" ... "D) text"
	CorrectAnswer string    `json:"correct_answer"` // one of A, B, C, D
	Explanation   string    `json:"explanation"`
	Source        string    `json:"source"`
	TimesAsked    int       `json:"times_asked"`
	TimesCorrect  int       `json:"times_correct"`
	Accuracy      float64   `json:"accuracy"`
	CreatedAt     time.Time `json:"created_at"`
}

// Candidate is a question proposed by the generator before validation.
type Candidate struct {
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correct_answer"`
	Explanation   string   `json:"explanation"`
}

// QuestionUpdate carries the fields an edit actually changed. Nil means unchanged.
type QuestionUpdate struct {
	Text          *string
	Options       []string
	CorrectAnswer *string
	Explanation   *string
}

// IsEmpty reports whether the update changes no field.
func (u QuestionUpdate) IsEmpty() bool {
	return u.Text == nil && u.Options == nil && u.CorrectAnswer == nil && u.Explanation == nil
}

// Apply patches q with the supplied fields, leaving identity untouched.
func (u QuestionUpdate) Apply(q *Question) {
	if u.Text != nil {
		q.Text = *u.Text
	}
	if u.Options != nil {
		q.Options = append([]string(nil), u.Options...)
	}
	if u.CorrectAnswer != nil {
		q.CorrectAnswer = *u.CorrectAnswer
	}
	if u.Explanation != nil {
		q.Explanation = *u.Explanation
	}
}

// Settings is a user's fully resolved configuration.
type Settings struct {
	DailyQuestions int    `json:"daily_questions"`
	QuizTime       string `json:"quiz_time"`
	Timezone       string `json:"timezone"`
	MinPerChunk    int    `json:"min_questions_per_chunk"`
	MaxPerChunk    int    `json:"max_questions_per_chunk"`
}

// SettingsUpdate carries the settings fields to overwrite. Nil means unchanged.
type SettingsUpdate struct {
	DailyQuestions *int
	QuizTime       *string
	Timezone       *string
	MinPerChunk    *int
	MaxPerChunk    *int
}

// UserStats summarizes a user's quiz history.
type UserStats struct {
	TotalAnswered int `json:"total_answered"`
	TotalCorrect  int `json:"total_correct"`
}

// AccuracyPercent returns correct/answered as a percentage, 0 with no history.
func (s UserStats) AccuracyPercent() float64 {
	if s.TotalAnswered == 0 {
		return 0
	}
	return float64(s.TotalCorrect) / float64(s.TotalAnswered) * 100
}

// BankStats summarizes a user's question bank.
type BankStats struct {
	DistinctSources int     `json:"distinct_sources"`
	AvgTimesAsked   float64 `json:"avg_times_asked"`
	AccuracyPercent float64 `json:"overall_accuracy_percent"`
}

// UserSchedule is the reminder-relevant slice of a user's settings.
type UserSchedule struct {
	OwnerID  int64
	QuizTime string
	Timezone string
}

// User identifies the person talking to the assistant.
type User struct {
	ID       int64
	Username string
}
