package studymcq

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/samber/lo"
	"golang.org/x/text/unicode/norm"
)

// ValidationAction is the checker's verdict on a candidate
type ValidationAction string

const (
	ActionAccept ValidationAction = "accept"
	ActionReject ValidationAction = "reject"
)

// ValidationResult holds the verdict and, when accepted, the cleaned question
type ValidationResult struct {
	Action   ValidationAction
	Reason   string
	Question Candidate
}

// QuestionChecker validates generated candidates and normalizes their text
type QuestionChecker struct {
	replacer *strings.Replacer
}

// NewQuestionChecker creates a new question checker
func NewQuestionChecker() *QuestionChecker {
	return &QuestionChecker{
		replacer: strings.NewReplacer(
			"\u2018", "'", "\u2019", "'",
			"\u201c", `"`, "\u201d", `"`,
			"\u2013", "-", "\u2014", "-",
			"\u2022", "*",
			"\t", " ",
		),
	}
}

var optionPrefixRe = regexp.MustCompile(`^\(?([A-Da-d])\s*[).:\-]\s*`)

// CheckQuestion cleans a candidate and decides whether it is usable.
// A usable candidate has question text, exactly four options, an answer in A-D and an explanation.
func (qc *QuestionChecker) CheckQuestion(c Candidate) ValidationResult {
	cleaned := Candidate{
		Question:    qc.cleanText(c.Question),
		Explanation: qc.cleanText(c.Explanation),
		Options: lo.Map(c.Options, func(opt string, i int) string {
			text := optionPrefixRe.ReplaceAllString(qc.cleanText(opt), "")
			if i < len(OptionLabels) {
				return FormatOption(OptionLabels[i], text)
			}
			return text
		}),
		CorrectAnswer: cleanAnswer(c.CorrectAnswer),
	}

	reject := func(format string, args ...any) ValidationResult {
		reason := fmt.Sprintf(format, args...)
		VerboseLog("Rejected candidate: %s", reason)
		return ValidationResult{Action: ActionReject, Reason: reason}
	}

	if cleaned.Question == "" {
		return reject("missing question text")
	}
	if len(c.Options) != len(OptionLabels) {
		return reject("expected %d options, got %d", len(OptionLabels), len(c.Options))
	}
	for i, opt := range cleaned.Options {
		if strings.TrimSpace(OptionText(opt)) == "" {
			return reject("option %s is empty", OptionLabels[i])
		}
	}
	if !IsOptionLabel(cleaned.CorrectAnswer) {
		return reject("invalid correct answer %q", c.CorrectAnswer)
	}
	if cleaned.Explanation == "" {
		return reject("missing explanation")
	}

	return ValidationResult{Action: ActionAccept, Reason: "structurally valid", Question: cleaned}
}

// cleanText applies NFKC, drops invisible characters and collapses spaces.
// Line breaks survive so numbered statements stay on their own lines.
func (qc *QuestionChecker) cleanText(s string) string {
	s = qc.replacer.Replace(norm.NFKC.String(s))
	s = strings.Map(func(r rune) rune {
		switch {
		case r == '\n':
			return r
		case unicode.IsControl(r), unicode.Is(unicode.Cf, r):
			return -1
		}
		return r
	}, s)

	lines := lo.FilterMap(strings.Split(s, "\n"), func(line string, _ int) (string, bool) {
		line = strings.Join(strings.Fields(line), " ")
		return line, line != ""
	})
	return strings.Join(lines, "\n")
}

func cleanAnswer(answer string) string {
	answer = strings.TrimSpace(answer)
	if m := optionPrefixRe.FindStringSubmatch(answer); m != nil {
		answer = m[1]
	}
	return strings.ToUpper(answer)
}
