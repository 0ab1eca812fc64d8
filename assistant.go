package studymcq

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
)

// TextMessageSource labels material pasted as a chat message.
const TextMessageSource = "Text message"

// Assistant is the conversational core shared by every transport.
// Each call handles one user turn and returns the messages to send back.
type Assistant struct {
	store     Store
	states    *StateStore
	quiz      *QuizManager
	flows     *FlowEngine
	ingestor  *Ingestor
	extractor Extractor
	defaults  SettingsDefaults
}

// NewAssistant wires the conversational core.
func NewAssistant(store Store, states *StateStore, quiz *QuizManager, flows *FlowEngine, ingestor *Ingestor, extractor Extractor, defaults SettingsDefaults) *Assistant {
	return &Assistant{
		store:     store,
		states:    states,
		quiz:      quiz,
		flows:     flows,
		ingestor:  ingestor,
		extractor: extractor,
		defaults:  defaults,
	}
}

func plain(s string) Reply { return Reply{Text: s} }

func markdown(s string) Reply { return Reply{Text: s, Markdown: true} }

func button(label string, a Action) Button { return Button{Text: label, Action: a} }

// HandleCommand handles a slash command. command has no leading slash.
func (a *Assistant) HandleCommand(ctx context.Context, user User, command string) []Reply {
	st, release := a.states.Acquire(user.ID)
	defer release()

	switch strings.ToLower(command) {
	case "start", "help":
		if err := a.store.EnsureUser(ctx, user.ID, user.Username); err != nil {
			return a.failure("ensure user", err)
		}
		return []Reply{markdown(msgWelcome)}

	case "upload":
		st.UploadMode = true
		return []Reply{markdown(msgUploadInstructions)}

	case "custom_qn":
		return a.renderFlow(ctx, st, a.flows.StartCreate(st), nil)

	case "quiz":
		res, err := a.flows.StartQuizCount(ctx, user.ID, st)
		return a.renderFlow(ctx, st, res, err)

	case "settings":
		return a.settings(ctx, user)

	case "stats":
		stats, err := a.store.GetUserStats(ctx, user.ID)
		if err != nil {
			return a.failure("user stats", err)
		}
		if stats.TotalAnswered == 0 {
			return []Reply{plain(msgNoQuizHistory)}
		}
		return []Reply{markdown(fmt.Sprintf(msgStats, stats.TotalAnswered, stats.TotalCorrect, stats.AccuracyPercent()))}

	case "bank":
		return a.bank(ctx, user)

	case "clear_knowledge":
		return []Reply{{Text: msgConfirmClearKnowledge, Markdown: true, Buttons: [][]Button{
			{button("✅ Yes, clear knowledge base", Action{Kind: ActClearKnowledge})},
			{button("❌ Cancel", Action{Kind: ActClose})},
		}}}

	case "clear_questions":
		return []Reply{{Text: msgConfirmClearQuestions, Markdown: true, Buttons: [][]Button{
			{button("✅ Yes, clear question bank", Action{Kind: ActClearQuestions})},
			{button("❌ Cancel", Action{Kind: ActClose})},
		}}}

	case "cancel":
		st.Flow = nil
		st.UploadMode = false
		return []Reply{plain(msgCancelled)}
	}

	return []Reply{markdown(msgWelcome)}
}

// HandleText handles a free-text message. An open flow takes it first,
// then upload mode; otherwise the user gets a hint.
func (a *Assistant) HandleText(ctx context.Context, user User, message string) []Reply {
	st, release := a.states.Acquire(user.ID)
	defer release()

	if st.Flow != nil {
		res, err := a.flows.Handle(ctx, user.ID, st, TextInput(message))
		return a.renderFlow(ctx, st, res, err)
	}
	if !st.UploadMode {
		return []Reply{plain(msgUploadHint)}
	}

	count, err := a.ingestor.Ingest(ctx, user.ID, message, TextMessageSource)
	if err != nil {
		log.Printf("[ERROR] Ingesting text for user %d: %v", user.ID, err)
		return []Reply{plain(msgProcessingError)}
	}
	st.UploadMode = false
	return []Reply{plain(msgDocumentSaved), plain(fmt.Sprintf(msgTextComplete, count))}
}

// HandleDocument handles an uploaded file.
func (a *Assistant) HandleDocument(ctx context.Context, user User, filename string, data []byte) []Reply {
	st, release := a.states.Acquire(user.ID)
	defer release()

	if !st.UploadMode {
		return []Reply{plain(msgDocumentHint)}
	}

	content, err := a.extractor.Extract(data, filename)
	if errors.Is(err, ErrUnsupportedFormat) {
		return []Reply{plain(msgUnsupportedFormat)}
	}
	if err != nil {
		log.Printf("[ERROR] Extracting %s for user %d: %v", filename, user.ID, err)
		return []Reply{plain(msgProcessingError)}
	}

	count, err := a.ingestor.Ingest(ctx, user.ID, content, filename)
	if err != nil {
		log.Printf("[ERROR] Ingesting %s for user %d: %v", filename, user.ID, err)
		return []Reply{plain(msgProcessingError)}
	}
	st.UploadMode = false
	return []Reply{
		plain(msgDocumentSaved),
		markdown(fmt.Sprintf(msgGenerationComplete, count, escapeMarkdown(filename))),
	}
}

// HandleAction handles a button press carrying encoded action data.
func (a *Assistant) HandleAction(ctx context.Context, user User, data string) []Reply {
	act, err := DecodeAction(data)
	if err != nil {
		log.Printf("[WARN] Bad action from user %d: %v", user.ID, err)
		return []Reply{plain(msgFlowExpired)}
	}

	st, release := a.states.Acquire(user.ID)
	defer release()

	switch act.Kind {
	case ActAnswer:
		return a.answer(ctx, user, st, act.Label)
	case ActRetry, ActNext:
		if st.Session == nil {
			return []Reply{plain(msgNoActiveQuiz)}
		}
		return a.presentCurrent(st)
	case ActShowSolution:
		return a.showSolution(st)
	case ActEnd:
		return a.endQuiz(st)

	case ActEdit:
		res, err := a.flows.StartEdit(ctx, user.ID, st, act.QuestionID)
		return a.renderFlow(ctx, st, res, err)
	case ActDelete:
		if f := st.Flow; f != nil && f.Kind == FlowEditQuestion && f.QuestionID == act.QuestionID {
			res, err := a.flows.Handle(ctx, user.ID, st, Input{Choice: ChoiceDelete, QuestionID: act.QuestionID})
			return a.renderFlow(ctx, st, res, err)
		}
		res, err := a.flows.StartDelete(ctx, user.ID, st, act.QuestionID)
		return a.renderFlow(ctx, st, res, err)
	case ActConfirmDelete, ActYes, ActNo, ActPickLabel, ActCancel:
		if act.Kind == ActCancel && st.Flow == nil {
			return []Reply{plain(msgCancelled)}
		}
		res, err := a.flows.Handle(ctx, user.ID, st, flowInput(act))
		return a.renderFlow(ctx, st, res, err)

	case ActSetDaily:
		return a.renderFlow(ctx, st, a.flows.StartDailyQuestions(st), nil)
	case ActSetTime:
		return a.renderFlow(ctx, st, a.flows.StartQuizTime(st), nil)
	case ActSetChunk:
		return a.renderFlow(ctx, st, a.flows.StartChunkSettings(st), nil)

	case ActClearKnowledge:
		if err := a.store.ClearKnowledge(ctx, user.ID); err != nil {
			return a.failure("clear knowledge", err)
		}
		return []Reply{plain(msgKnowledgeCleared)}
	case ActClearQuestions:
		if err := a.store.ClearQuestions(ctx, user.ID); err != nil {
			return a.failure("clear questions", err)
		}
		st.Session = nil
		st.Flow = nil
		return []Reply{plain(msgQuestionsCleared)}
	case ActClose:
		return nil
	}
	return []Reply{plain(msgFlowExpired)}
}

func flowInput(act Action) Input {
	in := Input{QuestionID: act.QuestionID}
	switch act.Kind {
	case ActConfirmDelete:
		in.Choice = ChoiceConfirmDelete
	case ActYes:
		in.Choice = ChoiceYes
	case ActNo:
		in.Choice = ChoiceNo
	case ActPickLabel:
		in.Choice = ChoiceLabel
		in.Label = act.Label
	case ActCancel:
		in.Choice = ChoiceCancel
	}
	return in
}

func (a *Assistant) settings(ctx context.Context, user User) []Reply {
	s, err := a.store.GetSettings(ctx, user.ID)
	if err != nil {
		return a.failure("get settings", err)
	}
	return []Reply{{
		Text:     fmt.Sprintf(msgCurrentSettings, s.DailyQuestions, s.QuizTime, escapeMarkdown(s.Timezone), s.MinPerChunk, s.MaxPerChunk),
		Markdown: true,
		Buttons: [][]Button{
			{button("Set Daily Questions", Action{Kind: ActSetDaily})},
			{button("Set Quiz Time", Action{Kind: ActSetTime})},
			{button("Set Questions per Chunk", Action{Kind: ActSetChunk})},
			{button("Close", Action{Kind: ActClose})},
		},
	}}
}

func (a *Assistant) bank(ctx context.Context, user User) []Reply {
	count, err := a.store.CountQuestions(ctx, user.ID)
	if err != nil {
		return a.failure("count questions", err)
	}
	if count == 0 {
		return []Reply{plain(msgEmptyQuestionBank)}
	}
	stats, err := a.store.GetBankStats(ctx, user.ID)
	if err != nil {
		return a.failure("bank stats", err)
	}
	return []Reply{markdown(fmt.Sprintf(msgBankStats, count, stats.DistinctSources, stats.AvgTimesAsked, stats.AccuracyPercent))}
}

func (a *Assistant) answer(ctx context.Context, user User, st *UserState, label string) []Reply {
	s := st.Session
	if s == nil || !s.Active() {
		return []Reply{plain(msgNoActiveQuiz)}
	}
	q := *s.Current()

	res, err := a.quiz.ProcessAnswer(ctx, user.ID, s, label)
	if err != nil {
		return a.failure("process answer", err)
	}

	if !res.Correct {
		return []Reply{{
			Text:     fmt.Sprintf(msgIncorrectAnswer, escapeMarkdown(label)),
			Markdown: true,
			Buttons: [][]Button{
				{button("🔄 Retry", Action{Kind: ActRetry})},
				{button("💡 Show Solution", Action{Kind: ActShowSolution})},
			},
		}}
	}

	s.Advance()
	reply := markdown(fmt.Sprintf(msgCorrectAnswer, escapeMarkdown(res.Explanation)))
	if s.IsComplete() {
		return append([]Reply{reply}, a.finishQuiz(st)...)
	}
	reply.Buttons = [][]Button{
		{button("Next Question ➡️", Action{Kind: ActNext}), button("🛑 End Quiz", Action{Kind: ActEnd})},
		{button("✏️ Edit", Action{Kind: ActEdit, QuestionID: q.ID}), button("🗑 Delete", Action{Kind: ActDelete, QuestionID: q.ID})},
	}
	return []Reply{reply}
}

func (a *Assistant) showSolution(st *UserState) []Reply {
	s := st.Session
	if s == nil || !s.Active() {
		return []Reply{plain(msgNoActiveQuiz)}
	}
	q := s.Current()
	reply := markdown(fmt.Sprintf(msgSolution, q.CorrectAnswer, escapeMarkdown(q.Explanation)))

	s.Advance()
	if s.IsComplete() {
		return append([]Reply{reply}, a.finishQuiz(st)...)
	}
	reply.Buttons = [][]Button{
		{button("Next Question ➡️", Action{Kind: ActNext}), button("🛑 End Quiz", Action{Kind: ActEnd})},
	}
	return []Reply{reply}
}

func (a *Assistant) endQuiz(st *UserState) []Reply {
	s := st.Session
	if s == nil {
		return []Reply{plain(msgNoActiveQuiz)}
	}
	p := s.Progress()
	s.End()
	st.Session = nil
	return []Reply{markdown(fmt.Sprintf(msgQuizEndedEarly, p.Answered, p.Total, p.Score, p.Answered, p.Percentage))}
}

func (a *Assistant) finishQuiz(st *UserState) []Reply {
	sum := st.Session.Summary()
	st.Session = nil
	return []Reply{markdown(fmt.Sprintf(msgQuizCompleted, sum.Score, sum.Total, sum.Percentage))}
}

// presentCurrent shows the question at the cursor, or the summary once none are left.
func (a *Assistant) presentCurrent(st *UserState) []Reply {
	s := st.Session
	if s == nil {
		return nil
	}
	if s.IsComplete() {
		return a.finishQuiz(st)
	}
	q := s.Current()

	rows := make([][]Button, 0, len(q.Options)+2)
	for i, opt := range q.Options {
		label := OptionLabels[i]
		if m := optionLineRe.FindStringSubmatch(opt); m != nil {
			label = strings.ToUpper(m[1])
		}
		rows = append(rows, []Button{button(opt, Action{Kind: ActAnswer, Label: label})})
	}
	rows = append(rows,
		[]Button{button("✏️ Edit", Action{Kind: ActEdit, QuestionID: q.ID}), button("🗑 Delete", Action{Kind: ActDelete, QuestionID: q.ID})},
		[]Button{button("🛑 End Quiz", Action{Kind: ActEnd})},
	)
	return []Reply{{
		Text:    fmt.Sprintf(msgQuizQuestion, s.Index+1, len(s.Questions), q.Text, q.Source),
		Buttons: rows,
	}}
}

// renderFlow turns a flow transition into replies.
func (a *Assistant) renderFlow(ctx context.Context, st *UserState, res FlowResult, err error) []Reply {
	if err != nil {
		switch {
		case errors.Is(err, ErrFlowExpired):
			return []Reply{plain(msgFlowExpired)}
		case errors.Is(err, ErrQuestionNotFound):
			return []Reply{plain(msgQuestionNotFound)}
		case errors.Is(err, ErrEmptyBank):
			return []Reply{plain(msgEmptyBankError)}
		case errors.Is(err, ErrLoadError):
			return []Reply{plain(msgQuizLoadError)}
		}
		return a.failure("flow", err)
	}

	switch res.Event {
	case EventPrompt:
		return a.prompt(res.Flow)
	case EventInvalid:
		return append([]Reply{plain(a.invalidText(res.Flow, res.Err))}, a.repromptButtons(res.Flow)...)
	case EventCancelled:
		replies := []Reply{plain(msgCancelled)}
		if res.QuestionID != 0 {
			replies = append(replies, a.presentCurrent(st)...)
		}
		return replies
	case EventQuestionUpdated:
		return append([]Reply{plain(msgEditComplete)}, a.presentCurrent(st)...)
	case EventQuestionDeleted:
		return append([]Reply{plain(msgQuestionDeleted)}, a.presentCurrent(st)...)
	case EventQuestionCreated:
		return []Reply{plain(msgCustomSaved)}
	case EventChunkSettingsSaved:
		minQ, maxQ := *res.Settings.MinPerChunk, *res.Settings.MaxPerChunk
		return []Reply{plain(fmt.Sprintf(msgChunkSettingsSet, minQ, maxQ, minQ, maxQ))}
	case EventDailyQuestionsSaved:
		return []Reply{plain(fmt.Sprintf(msgDailyQuestionsSet, *res.Settings.DailyQuestions))}
	case EventQuizTimeSaved:
		return []Reply{plain(fmt.Sprintf(msgQuizTimeSet, *res.Settings.QuizTime))}
	case EventQuizStarted:
		start := plain(fmt.Sprintf(msgQuizStart, len(st.Session.Questions)))
		return append([]Reply{start}, a.presentCurrent(st)...)
	}
	return nil
}

func (a *Assistant) invalidText(f *Flow, err error) string {
	switch {
	case errors.Is(err, ErrInvalidFormat):
		return msgInvalidOptions
	case errors.Is(err, ErrInvalidMinQuestions):
		return msgInvalidMin
	case errors.Is(err, ErrInvalidMaxQuestions):
		return fmt.Sprintf(msgInvalidMax, f.Min)
	case errors.Is(err, ErrInvalidNumber):
		return fmt.Sprintf(msgInvalidNumber, a.defaults.MinDailyQuestions, a.defaults.MaxDailyQuestions)
	case errors.Is(err, ErrInvalidTime):
		return msgInvalidTime
	case errors.Is(err, ErrInvalidCount):
		return fmt.Sprintf(msgInvalidQuizCount, f.BankSize)
	case errors.Is(err, ErrEmptyInput):
		return msgEmptyInput
	case errors.Is(err, ErrInvalidChoice):
		if f.Step == StepChooseAnswer || f.Step == StepCreateAnswer {
			return msgInvalidAnswer
		}
		return msgInvalidChoice
	}
	return msgGenericError
}

// repromptButtons repeats the prompt of steps answered with buttons.
func (a *Assistant) repromptButtons(f *Flow) []Reply {
	switch f.Step {
	case StepAskEditQuestion, StepAskEditOptions, StepAskEditAnswer, StepAskEditExplanation,
		StepChooseAnswer, StepCreateAnswer, StepConfirmDelete:
		return a.prompt(f)
	}
	return nil
}

func (a *Assistant) prompt(f *Flow) []Reply {
	id := f.QuestionID
	yesNo := [][]Button{
		{button("Yes", Action{Kind: ActYes, QuestionID: id}), button("No", Action{Kind: ActNo, QuestionID: id})},
		{button("🗑 Delete", Action{Kind: ActDelete, QuestionID: id}), button("Cancel", Action{Kind: ActCancel, QuestionID: id})},
	}

	edited := f.Original
	f.Update.Apply(&edited)

	switch f.Step {
	case StepAskEditQuestion:
		return []Reply{{Text: fmt.Sprintf(msgEditQuestionStart, edited.Text), Buttons: yesNo}}
	case StepEnterQuestion:
		return []Reply{plain(msgEnterNewQuestion)}
	case StepAskEditOptions:
		return []Reply{{Text: fmt.Sprintf(msgEditOptionsStart, strings.Join(edited.Options, "\n")), Buttons: yesNo}}
	case StepEnterOptions, StepCreateOptions:
		return []Reply{plain(msgEnterOptions)}
	case StepAskEditAnswer:
		return []Reply{{Text: fmt.Sprintf(msgEditAnswerStart, edited.CorrectAnswer), Buttons: yesNo}}
	case StepChooseAnswer:
		return []Reply{{Text: msgSelectAnswer, Buttons: labelButtons(edited.Options, id)}}
	case StepAskEditExplanation:
		return []Reply{{Text: fmt.Sprintf(msgEditExplanationStart, edited.Explanation), Buttons: yesNo}}
	case StepEnterExplanation:
		return []Reply{plain(msgEnterNewExplanation)}
	case StepConfirmDelete:
		return []Reply{{Text: msgConfirmDelete, Markdown: true, Buttons: [][]Button{
			{button("✅ Yes, delete", Action{Kind: ActConfirmDelete, QuestionID: id})},
			{button("❌ Keep it", Action{Kind: ActNo, QuestionID: id})},
		}}}

	case StepCreateText:
		return []Reply{markdown(msgCustomStart)}
	case StepCreateAnswer:
		return []Reply{{Text: msgSelectAnswer, Buttons: labelButtons(f.Draft.Options, 0)}}
	case StepCreateExplanation:
		return []Reply{plain(msgCustomExplanation)}

	case StepEnterMin:
		return []Reply{plain(msgSetMinQuestions)}
	case StepEnterMax:
		return []Reply{plain(fmt.Sprintf(msgSetMaxQuestions, f.Min))}
	case StepEnterDailyCount:
		return []Reply{plain(fmt.Sprintf(msgSetDailyQuestions, a.defaults.MinDailyQuestions, a.defaults.MaxDailyQuestions))}
	case StepEnterQuizTime:
		return []Reply{plain(msgSetQuizTime)}
	case StepEnterQuizCount:
		return []Reply{markdown(fmt.Sprintf(msgAskQuizCount, f.BankSize, f.BankSize))}
	}
	return nil
}

func labelButtons(options []string, questionID int64) [][]Button {
	rows := make([][]Button, 0, len(OptionLabels))
	for i, label := range OptionLabels {
		caption := label
		if i < len(options) {
			caption = options[i]
		}
		rows = append(rows, []Button{button(caption, Action{Kind: ActPickLabel, Label: label, QuestionID: questionID})})
	}
	return rows
}

func (a *Assistant) failure(op string, err error) []Reply {
	log.Printf("[ERROR] %s: %v", op, err)
	return []Reply{plain(msgGenericError)}
}
