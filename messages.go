package studymcq

import "strings"

// User-facing texts. Templates marked Markdown are sent with Telegram's legacy Markdown,
// so any user or generated text inserted into them goes through escapeMarkdown.
const (
	msgWelcome = `🌵 Welcome to StudyMCQ!

I turn your study material into multiple choice questions and quiz you on them, favouring the ones you get wrong.

📚 *How to use:*
• /upload, then send text or a PDF, DOCX or TXT file
• /quiz to practice from your question bank
• /settings to tune daily quizzes and question generation

*Commands:*
/start - Show this manual
/upload - Upload study material
/custom\_qn - Write your own question
/quiz - Start a quiz
/settings - Daily quiz and generation settings
/stats - Your answer history
/bank - Question bank statistics
/clear\_knowledge - Clear uploaded material
/clear\_questions - Clear the question bank
/cancel - Cancel the current input
/help - Show this message`

	msgUploadInstructions = `📤 *Upload Study Material*

Send me a document (PDF, DOCX, TXT) or paste text directly.

I will:
1️⃣ Save it to your knowledge base
2️⃣ Split it into chunks
3️⃣ Generate questions for each chunk
4️⃣ Add them to your question bank`

	msgUploadHint   = "💬 To add study material, use /upload first. See /help for all commands."
	msgDocumentHint = "📄 To upload documents, use /upload first."

	msgEmptyQuestionBank = "📊 Your question bank is empty!\n\nUpload study material to generate questions."
	msgBankStats         = `📊 *Your Question Bank*

Total questions: %d
From %d source(s)
Average times asked: %.1f
Overall accuracy: %.1f%%

Ready to quiz! Use /quiz to practice. 🎯`

	msgCurrentSettings = `⚙️ *Current Settings*

Daily quiz:
• Questions per quiz: %d
• Quiz time: %s (%s)

Question generation:
• Min questions per chunk: %d
• Max questions per chunk: %d

Select an option to update:`

	msgSetMinQuestions = "Enter the minimum number of questions to generate per chunk of content.\n\nAny positive number works, but more than 10 per chunk rarely helps."
	msgSetMaxQuestions = "Now enter the maximum number of questions per chunk (at least %d)."
	msgInvalidMin      = "Please enter a positive number greater than 0."
	msgInvalidMax      = "The maximum must be greater than or equal to the minimum (%d)."
	msgChunkSettingsSet = `✅ Question generation updated:
• Minimum: %d questions
• Maximum: %d questions

Each chunk of content will yield %d-%d questions depending on how much it holds.`

	msgSetDailyQuestions = "How many questions would you like daily? (Send a number between %d and %d)"
	msgSetQuizTime       = "What time would you like your daily quiz? (24-hour format, e.g. 09:00)"
	msgDailyQuestionsSet = "✅ Daily questions set to %d"
	msgQuizTimeSet       = "✅ Quiz time set to %s"
	msgInvalidNumber     = "Please send a number between %d and %d."
	msgInvalidTime       = "Please send the time as HH:MM (e.g. 09:00)."

	msgEmptyBankError = "❌ Your question bank is empty! Upload study material or write a question with /custom_qn first."
	msgAskQuizCount   = `🎯 *Start a Quiz*

You have %d questions in your bank.

How many would you like in this quiz? Send a number between 1 and %d.`
	msgQuizStart        = "🎯 Starting a quiz with %d questions from your bank!"
	msgQuizLoadError    = "❌ Failed to load questions. Please try /quiz again."
	msgInvalidQuizCount = "❌ Please send a number between 1 and %d."
	msgNoActiveQuiz     = "There is no quiz running. Use /quiz to start one."

	msgQuizCompleted = `✅ *Quiz Completed!*

Score: %d/%d (%.1f%%)

Keep studying to improve further! 🎓

Use /quiz to practice more questions.`
	msgQuizEndedEarly = `🛑 *Quiz Ended*

You answered %d of %d questions.
Score: %d/%d (%.1f%%)

Use /quiz to start a new quiz!`
	msgQuizQuestion = "📝 Question %d/%d\n\n%s\n\nSource: %s"

	msgCorrectAnswer   = "✅ *Correct!*\n\n%s"
	msgIncorrectAnswer = "❌ *Incorrect*\n\nYour answer: %s\n\nRetry or see the solution?"
	msgSolution        = "💡 *Solution*\n\nCorrect answer: *%s*\n\n%s"

	msgEditQuestionStart    = "📝 Current question:\n%s\n\nEdit the question text?"
	msgEditOptionsStart     = "Current options:\n%s\n\nEdit the options?"
	msgEditAnswerStart      = "Current correct answer: %s\n\nChoose a different correct answer?"
	msgEditExplanationStart = "Current explanation:\n%s\n\nEdit the explanation?"
	msgEnterNewQuestion     = "Please enter the new question text:"
	msgEnterNewExplanation  = "Please enter the new explanation:"
	msgSelectAnswer         = "Select the correct answer:"
	msgEnterOptions         = `Enter exactly 4 options, one per line, each starting with A, B, C or D:
A) First option
B) Second option
C) Third option
D) Fourth option`
	msgInvalidOptions = "❌ Invalid option format.\n\n" + msgEnterOptions
	msgInvalidChoice  = "Please use one of the buttons."
	msgInvalidAnswer  = "Please select a valid answer (A, B, C or D)."
	msgEmptyInput     = "Please send some text."
	msgEditComplete   = "✅ Question updated. Its statistics start over."

	msgConfirmDelete   = "⚠️ *Delete Question*\n\nThis permanently removes the question from your bank. Are you sure?"
	msgQuestionDeleted = "✅ Question deleted."

	msgCustomStart       = "📝 *Create Your Own Question*\n\nPlease enter your question:"
	msgCustomExplanation = "Please enter an explanation for the correct answer:"
	msgCustomSaved       = "✅ Your question was added to the bank!"
	msgCancelled         = "Cancelled."
	msgFlowExpired       = "⌛ That conversation has expired. Please start again."
	msgQuestionNotFound  = "❌ That question no longer exists."
	msgGenericError      = "❌ Something went wrong. Please try again."

	msgNoQuizHistory = "📊 No quiz history yet! Start practicing with /quiz"
	msgStats         = `📊 *Your Statistics*

Questions answered: %d
Correct answers: %d
Accuracy: %.1f%%

Keep up the great work! 🎯`

	msgConfirmClearKnowledge = `⚠️ *Clear Knowledge Base*

This deletes all your uploaded material.
Your question bank stays intact.

Are you sure?`
	msgConfirmClearQuestions = `⚠️ *Clear Question Bank*

This deletes all your questions.
Your knowledge base stays intact.

Are you sure?`
	msgKnowledgeCleared = "✅ Your knowledge base has been cleared!"
	msgQuestionsCleared = "✅ Your question bank has been cleared!"

	msgDocumentSaved      = "✅ Saved! Generating questions..."
	msgUnsupportedFormat  = "❌ Unsupported file format. Please send a PDF, DOCX, TXT or MD file."
	msgProcessingError    = "❌ Error processing your material. Please try again."
	msgGenerationComplete = "🎉 *Complete!*\n\nGenerated %d questions from '%s'\n\nUse /quiz to start practicing!"
	msgTextComplete       = "🎉 Generated %d questions from your text!\n\nUse /quiz to start practicing!"

	msgDailyReminder = "🔔 Time for your daily quiz! Use /quiz to start practicing."
)

var markdownEscaper = strings.NewReplacer("_", `\_`, "*", `\*`, "[", `\[`, "`", "\\`")

// escapeMarkdown protects dynamic text inside Markdown templates.
func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}
