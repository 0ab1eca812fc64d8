package studymcq

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// CustomQuestionSource labels questions written by the user.
const CustomQuestionSource = "Custom question"

// FlowKind identifies which multi-step input flow is open.
type FlowKind int

const (
	FlowEditQuestion FlowKind = iota + 1
	FlowCreateQuestion
	FlowChunkSettings
	FlowDailyQuestions
	FlowQuizTime
	FlowQuizCount
)

func (k FlowKind) String() string {
	switch k {
	case FlowEditQuestion:
		return "edit_question"
	case FlowCreateQuestion:
		return "create_question"
	case FlowChunkSettings:
		return "chunk_settings"
	case FlowDailyQuestions:
		return "daily_questions"
	case FlowQuizTime:
		return "quiz_time"
	case FlowQuizCount:
		return "quiz_count"
	}
	return fmt.Sprintf("FlowKind(%d)", int(k))
}

// Step is the position inside a flow. Each step belongs to exactly one kind.
type Step int

const (
	StepAskEditQuestion Step = iota + 1
	StepEnterQuestion
	StepAskEditOptions
	StepEnterOptions
	StepAskEditAnswer
	StepChooseAnswer
	StepAskEditExplanation
	StepEnterExplanation
	StepConfirmDelete

	StepCreateText
	StepCreateOptions
	StepCreateAnswer
	StepCreateExplanation

	StepEnterMin
	StepEnterMax

	StepEnterDailyCount
	StepEnterQuizTime
	StepEnterQuizCount
)

// Flow is the open input flow of one user plus the values collected so far.
type Flow struct {
	Kind FlowKind
	Step Step

	// edit
	QuestionID int64
	Original   Question
	Update     QuestionUpdate

	// create
	Draft Candidate

	// chunk settings
	Min int

	// quiz count
	BankSize int
}

func (f *Flow) moveTo(step Step) FlowResult {
	f.Step = step
	return FlowResult{Event: EventPrompt, Flow: f}
}

func (f *Flow) reject(err error) FlowResult {
	return FlowResult{Event: EventInvalid, Flow: f, Err: err}
}

// Choice is a button press, as opposed to typed text.
type Choice int

const (
	ChoiceNone Choice = iota
	ChoiceYes
	ChoiceNo
	ChoiceLabel
	ChoiceDelete
	ChoiceConfirmDelete
	ChoiceCancel
)

// Input is one user turn fed to a flow.
type Input struct {
	Text   string
	Choice Choice
	Label  string
	// QuestionID, when set, must match the flow's question.
	QuestionID int64
}

// TextInput wraps typed text.
func TextInput(text string) Input { return Input{Text: text} }

// ChoiceInput wraps a button press.
func ChoiceInput(c Choice) Input { return Input{Choice: c} }

// LabelInput wraps an A-D answer selection.
func LabelInput(label string) Input { return Input{Choice: ChoiceLabel, Label: label} }

func (in Input) choice() Choice {
	if in.Choice != ChoiceNone {
		return in.Choice
	}
	switch strings.ToLower(strings.TrimSpace(in.Text)) {
	case "yes", "y":
		return ChoiceYes
	case "no", "n":
		return ChoiceNo
	}
	return ChoiceNone
}

func (in Input) label() string {
	if in.Choice == ChoiceLabel {
		return strings.ToUpper(in.Label)
	}
	return strings.ToUpper(strings.TrimSpace(in.Text))
}

// FlowEvent tells the caller what a transition produced.
type FlowEvent int

const (
	// EventPrompt means the flow is open at Flow.Step and its prompt should be shown.
	EventPrompt FlowEvent = iota
	// EventInvalid means the input was rejected; the step is unchanged and Err says why.
	EventInvalid
	EventCancelled
	EventQuestionUpdated
	EventQuestionDeleted
	EventQuestionCreated
	EventChunkSettingsSaved
	EventDailyQuestionsSaved
	EventQuizTimeSaved
	EventQuizStarted
)

// FlowResult is the outcome of starting or advancing a flow.
type FlowResult struct {
	Event FlowEvent
	// Flow is the still-open flow, nil once it finished.
	Flow       *Flow
	Err        error
	QuestionID int64
	Settings   SettingsUpdate
}

type stepHandler func(fe *FlowEngine, ctx context.Context, owner int64, st *UserState, in Input) (FlowResult, error)

// flowTable maps each step of each flow kind to its transition.
var flowTable = map[FlowKind]map[Step]stepHandler{
	FlowEditQuestion: {
		StepAskEditQuestion:    (*FlowEngine).editAskQuestion,
		StepEnterQuestion:      (*FlowEngine).editEnterQuestion,
		StepAskEditOptions:     (*FlowEngine).editAskOptions,
		StepEnterOptions:       (*FlowEngine).editEnterOptions,
		StepAskEditAnswer:      (*FlowEngine).editAskAnswer,
		StepChooseAnswer:       (*FlowEngine).editChooseAnswer,
		StepAskEditExplanation: (*FlowEngine).editAskExplanation,
		StepEnterExplanation:   (*FlowEngine).editEnterExplanation,
		StepConfirmDelete:      (*FlowEngine).editConfirmDelete,
	},
	FlowCreateQuestion: {
		StepCreateText:        (*FlowEngine).createText,
		StepCreateOptions:     (*FlowEngine).createOptions,
		StepCreateAnswer:      (*FlowEngine).createAnswer,
		StepCreateExplanation: (*FlowEngine).createExplanation,
	},
	FlowChunkSettings: {
		StepEnterMin: (*FlowEngine).settingsMin,
		StepEnterMax: (*FlowEngine).settingsMax,
	},
	FlowDailyQuestions: {
		StepEnterDailyCount: (*FlowEngine).dailyCount,
	},
	FlowQuizTime: {
		StepEnterQuizTime: (*FlowEngine).quizTime,
	},
	FlowQuizCount: {
		StepEnterQuizCount: (*FlowEngine).quizCount,
	},
}

// FlowEngine runs the conversational input flows.
type FlowEngine struct {
	store    Store
	quiz     *QuizManager
	defaults SettingsDefaults
}

// NewFlowEngine creates a flow engine.
func NewFlowEngine(store Store, quiz *QuizManager, defaults SettingsDefaults) *FlowEngine {
	return &FlowEngine{store: store, quiz: quiz, defaults: defaults}
}

// StartEdit opens the edit flow for one of the owner's questions, replacing any open flow.
func (fe *FlowEngine) StartEdit(ctx context.Context, owner int64, st *UserState, questionID int64) (FlowResult, error) {
	q, err := fe.store.GetQuestion(ctx, questionID, owner)
	if err != nil {
		st.Flow = nil
		return FlowResult{}, err
	}
	st.Flow = &Flow{Kind: FlowEditQuestion, QuestionID: q.ID, Original: *q}
	return st.Flow.moveTo(StepAskEditQuestion), nil
}

// StartDelete opens the edit flow directly at the delete confirmation.
func (fe *FlowEngine) StartDelete(ctx context.Context, owner int64, st *UserState, questionID int64) (FlowResult, error) {
	res, err := fe.StartEdit(ctx, owner, st, questionID)
	if err != nil {
		return res, err
	}
	return st.Flow.moveTo(StepConfirmDelete), nil
}

// StartCreate opens the custom question flow.
func (fe *FlowEngine) StartCreate(st *UserState) FlowResult {
	st.Flow = &Flow{Kind: FlowCreateQuestion}
	return st.Flow.moveTo(StepCreateText)
}

// StartChunkSettings opens the min/max questions per chunk flow.
func (fe *FlowEngine) StartChunkSettings(st *UserState) FlowResult {
	st.Flow = &Flow{Kind: FlowChunkSettings}
	return st.Flow.moveTo(StepEnterMin)
}

// StartDailyQuestions opens the daily question count flow.
func (fe *FlowEngine) StartDailyQuestions(st *UserState) FlowResult {
	st.Flow = &Flow{Kind: FlowDailyQuestions}
	return st.Flow.moveTo(StepEnterDailyCount)
}

// StartQuizTime opens the quiz time flow.
func (fe *FlowEngine) StartQuizTime(st *UserState) FlowResult {
	st.Flow = &Flow{Kind: FlowQuizTime}
	return st.Flow.moveTo(StepEnterQuizTime)
}

// StartQuizCount asks how many questions the next quiz should have.
func (fe *FlowEngine) StartQuizCount(ctx context.Context, owner int64, st *UserState) (FlowResult, error) {
	total, err := fe.store.CountQuestions(ctx, owner)
	if err != nil {
		return FlowResult{}, err
	}
	if total == 0 {
		st.Flow = nil
		return FlowResult{}, ErrEmptyBank
	}
	st.Flow = &Flow{Kind: FlowQuizCount, BankSize: total}
	return st.Flow.moveTo(StepEnterQuizCount), nil
}

// Handle feeds one input to the user's open flow.
// Validation failures come back as EventInvalid with the flow unchanged;
// a returned error always closes the flow.
func (fe *FlowEngine) Handle(ctx context.Context, owner int64, st *UserState, in Input) (FlowResult, error) {
	f := st.Flow
	if f == nil {
		return FlowResult{}, ErrFlowExpired
	}
	if in.QuestionID != 0 && in.QuestionID != f.QuestionID {
		return FlowResult{}, ErrFlowExpired
	}
	if in.Choice == ChoiceCancel {
		st.Flow = nil
		return FlowResult{Event: EventCancelled, QuestionID: f.QuestionID}, nil
	}

	handler, ok := flowTable[f.Kind][f.Step]
	if !ok {
		st.Flow = nil
		return FlowResult{}, fmt.Errorf("%w: no step %d in %s flow", ErrFlowExpired, f.Step, f.Kind)
	}

	res, err := handler(fe, ctx, owner, st, in)
	if err != nil {
		st.Flow = nil
		return FlowResult{}, err
	}
	st.Flow = res.Flow
	return res, nil
}

// gate implements the yes/no/delete question asked before each editable field.
func gate(f *Flow, in Input, yes Step, no func() (FlowResult, error)) (FlowResult, error) {
	switch in.choice() {
	case ChoiceYes:
		return f.moveTo(yes), nil
	case ChoiceNo:
		return no()
	case ChoiceDelete:
		return f.moveTo(StepConfirmDelete), nil
	}
	return f.reject(ErrInvalidChoice), nil
}

func requireText(in Input) (string, error) {
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return "", ErrEmptyInput
	}
	return text, nil
}

func (fe *FlowEngine) editAskQuestion(ctx context.Context, owner int64, st *UserState, in Input) (FlowResult, error) {
	f := st.Flow
	return gate(f, in, StepEnterQuestion, func() (FlowResult, error) {
		return f.moveTo(StepAskEditOptions), nil
	})
}

func (fe *FlowEngine) editEnterQuestion(ctx context.Context, owner int64, st *UserState, in Input) (FlowResult, error) {
	f := st.Flow
	text, err := requireText(in)
	if err != nil {
		return f.reject(err), nil
	}
	f.Update.Text = &text
	return f.moveTo(StepAskEditOptions), nil
}

func (fe *FlowEngine) editAskOptions(ctx context.Context, owner int64, st *UserState, in Input) (FlowResult, error) {
	f := st.Flow
	return gate(f, in, StepEnterOptions, func() (FlowResult, error) {
		return f.moveTo(StepAskEditAnswer), nil
	})
}

func (fe *FlowEngine) editEnterOptions(ctx context.Context, owner int64, st *UserState, in Input) (FlowResult, error) {
	f := st.Flow
	options, err := ParseOptionLines(in.Text)
	if err != nil {
		return f.reject(err), nil
	}
	f.Update.Options = options
	return f.moveTo(StepAskEditAnswer), nil
}

func (fe *FlowEngine) editAskAnswer(ctx context.Context, owner int64, st *UserState, in Input) (FlowResult, error) {
	f := st.Flow
	return gate(f, in, StepChooseAnswer, func() (FlowResult, error) {
		return f.moveTo(StepAskEditExplanation), nil
	})
}

func (fe *FlowEngine) editChooseAnswer(ctx context.Context, owner int64, st *UserState, in Input) (FlowResult, error) {
	f := st.Flow
	label := in.label()
	if !IsOptionLabel(label) {
		return f.reject(ErrInvalidChoice), nil
	}
	f.Update.CorrectAnswer = &label
	return f.moveTo(StepAskEditExplanation), nil
}

func (fe *FlowEngine) editAskExplanation(ctx context.Context, owner int64, st *UserState, in Input) (FlowResult, error) {
	f := st.Flow
	return gate(f, in, StepEnterExplanation, func() (FlowResult, error) {
		return fe.finishEdit(ctx, owner, st)
	})
}

func (fe *FlowEngine) editEnterExplanation(ctx context.Context, owner int64, st *UserState, in Input) (FlowResult, error) {
	f := st.Flow
	text, err := requireText(in)
	if err != nil {
		return f.reject(err), nil
	}
	f.Update.Explanation = &text
	return fe.finishEdit(ctx, owner, st)
}

func (fe *FlowEngine) editConfirmDelete(ctx context.Context, owner int64, st *UserState, in Input) (FlowResult, error) {
	f := st.Flow
	switch in.choice() {
	case ChoiceConfirmDelete, ChoiceYes:
		return fe.finishDelete(ctx, owner, st)
	case ChoiceNo:
		return FlowResult{Event: EventCancelled, QuestionID: f.QuestionID}, nil
	}
	return f.reject(ErrInvalidChoice), nil
}

// finishEdit saves the changed fields, which also resets the question's history,
// and patches the running quiz so it shows the new version.
func (fe *FlowEngine) finishEdit(ctx context.Context, owner int64, st *UserState) (FlowResult, error) {
	f := st.Flow
	ok, err := fe.store.UpdateQuestion(ctx, f.QuestionID, owner, f.Update)
	if err != nil {
		return FlowResult{}, err
	}
	if !ok {
		return FlowResult{}, fmt.Errorf("%w: id=%d", ErrQuestionNotFound, f.QuestionID)
	}
	if st.Session != nil {
		st.Session.PatchQuestion(f.QuestionID, f.Update)
	}
	VerboseLog("User %d edited question %d", owner, f.QuestionID)
	return FlowResult{Event: EventQuestionUpdated, QuestionID: f.QuestionID}, nil
}

func (fe *FlowEngine) finishDelete(ctx context.Context, owner int64, st *UserState) (FlowResult, error) {
	f := st.Flow
	ok, err := fe.store.DeleteQuestion(ctx, f.QuestionID, owner)
	if err != nil {
		return FlowResult{}, err
	}
	if !ok {
		return FlowResult{}, fmt.Errorf("%w: id=%d", ErrQuestionNotFound, f.QuestionID)
	}
	if st.Session != nil {
		st.Session.RemoveQuestion(f.QuestionID)
	}
	VerboseLog("User %d deleted question %d", owner, f.QuestionID)
	return FlowResult{Event: EventQuestionDeleted, QuestionID: f.QuestionID}, nil
}

func (fe *FlowEngine) createText(ctx context.Context, owner int64, st *UserState, in Input) (FlowResult, error) {
	f := st.Flow
	text, err := requireText(in)
	if err != nil {
		return f.reject(err), nil
	}
	f.Draft.Question = text
	return f.moveTo(StepCreateOptions), nil
}

func (fe *FlowEngine) createOptions(ctx context.Context, owner int64, st *UserState, in Input) (FlowResult, error) {
	f := st.Flow
	options, err := ParseOptionLines(in.Text)
	if err != nil {
		return f.reject(err), nil
	}
	f.Draft.Options = options
	return f.moveTo(StepCreateAnswer), nil
}

func (fe *FlowEngine) createAnswer(ctx context.Context, owner int64, st *UserState, in Input) (FlowResult, error) {
	f := st.Flow
	label := in.label()
	if !IsOptionLabel(label) {
		return f.reject(ErrInvalidChoice), nil
	}
	f.Draft.CorrectAnswer = label
	return f.moveTo(StepCreateExplanation), nil
}

func (fe *FlowEngine) createExplanation(ctx context.Context, owner int64, st *UserState, in Input) (FlowResult, error) {
	f := st.Flow
	text, err := requireText(in)
	if err != nil {
		return f.reject(err), nil
	}
	f.Draft.Explanation = text

	id, err := fe.store.CreateQuestion(ctx, owner, f.Draft, CustomQuestionSource)
	if err != nil {
		return FlowResult{}, err
	}
	return FlowResult{Event: EventQuestionCreated, QuestionID: id}, nil
}

func (fe *FlowEngine) settingsMin(ctx context.Context, owner int64, st *UserState, in Input) (FlowResult, error) {
	f := st.Flow
	n, err := strconv.Atoi(strings.TrimSpace(in.Text))
	if err != nil || n < 1 {
		return f.reject(ErrInvalidMinQuestions), nil
	}
	f.Min = n
	return f.moveTo(StepEnterMax), nil
}

func (fe *FlowEngine) settingsMax(ctx context.Context, owner int64, st *UserState, in Input) (FlowResult, error) {
	f := st.Flow
	n, err := strconv.Atoi(strings.TrimSpace(in.Text))
	if err != nil || n < f.Min {
		return f.reject(fmt.Errorf("%w (%d)", ErrInvalidMaxQuestions, f.Min)), nil
	}

	minQ, maxQ := f.Min, n
	upd := SettingsUpdate{MinPerChunk: &minQ, MaxPerChunk: &maxQ}
	if err := fe.store.SaveSettings(ctx, owner, upd); err != nil {
		return FlowResult{}, err
	}
	return FlowResult{Event: EventChunkSettingsSaved, Settings: upd}, nil
}

func (fe *FlowEngine) dailyCount(ctx context.Context, owner int64, st *UserState, in Input) (FlowResult, error) {
	f := st.Flow
	n, err := strconv.Atoi(strings.TrimSpace(in.Text))
	if err != nil || n < fe.defaults.MinDailyQuestions || n > fe.defaults.MaxDailyQuestions {
		return f.reject(ErrInvalidNumber), nil
	}
	upd := SettingsUpdate{DailyQuestions: &n}
	if err := fe.store.SaveSettings(ctx, owner, upd); err != nil {
		return FlowResult{}, err
	}
	return FlowResult{Event: EventDailyQuestionsSaved, Settings: upd}, nil
}

func (fe *FlowEngine) quizTime(ctx context.Context, owner int64, st *UserState, in Input) (FlowResult, error) {
	f := st.Flow
	text := strings.TrimSpace(in.Text)
	if !validQuizTime(text) {
		return f.reject(ErrInvalidTime), nil
	}
	upd := SettingsUpdate{QuizTime: &text}
	if err := fe.store.SaveSettings(ctx, owner, upd); err != nil {
		return FlowResult{}, err
	}
	return FlowResult{Event: EventQuizTimeSaved, Settings: upd}, nil
}

func (fe *FlowEngine) quizCount(ctx context.Context, owner int64, st *UserState, in Input) (FlowResult, error) {
	f := st.Flow
	n, err := strconv.Atoi(strings.TrimSpace(in.Text))
	if err != nil {
		return f.reject(ErrInvalidCount), nil
	}
	session, err := fe.quiz.Start(ctx, owner, n)
	if errors.Is(err, ErrInvalidCount) {
		// the bank may have changed since the prompt
		if total, cerr := fe.store.CountQuestions(ctx, owner); cerr == nil && total > 0 {
			f.BankSize = total
		}
		return f.reject(err), nil
	}
	if err != nil {
		return FlowResult{}, err
	}
	st.Session = session
	return FlowResult{Event: EventQuizStarted}, nil
}

// validQuizTime accepts 24-hour "HH:MM".
func validQuizTime(s string) bool {
	if len(s) != 5 {
		return false
	}
	_, err := time.Parse("15:04", s)
	return err == nil
}
