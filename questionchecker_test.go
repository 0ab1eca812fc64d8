package studymcq

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheckQuestionAcceptsAndCleans(t *testing.T) {
	qc := NewQuestionChecker()

	res := qc.CheckQuestion(Candidate{
		Question:      "  Which statements are \u201ctrue\u201d?\n(i) one\u200b\n\n(ii)   two ",
		Options:       []string{"(a) Only (i)", "B. Only (ii)", "Both", "d: Neither"},
		CorrectAnswer: " c) ",
		Explanation:   "It\u2019s both \u2013 see section 2.",
	})

	assert.Equal(t, ActionAccept, res.Action)
	assert.Equal(t, "Which statements are \"true\"?\n(i) one\n(ii) two", res.Question.Question)
	assert.Equal(t, []string{"A) Only (i)", "B) Only (ii)", "C) Both", "D) Neither"}, res.Question.Options)
	assert.Equal(t, "C", res.Question.CorrectAnswer)
	assert.Equal(t, "It's both - see section 2.", res.Question.Explanation)
}

func TestCheckQuestionRejects(t *testing.T) {
	valid := func() Candidate {
		return Candidate{
			Question:      "What is 2 + 2?",
			Options:       []string{"3", "4", "5", "6"},
			CorrectAnswer: "B",
			Explanation:   "Arithmetic.",
		}
	}

	tests := []struct {
		name   string
		mutate func(c *Candidate)
	}{
		{"missing question", func(c *Candidate) { c.Question = " \u200b " }},
		{"three options", func(c *Candidate) { c.Options = c.Options[:3] }},
		{"five options", func(c *Candidate) { c.Options = append(c.Options, "7") }},
		{"empty option", func(c *Candidate) { c.Options[2] = "C) " }},
		{"answer out of range", func(c *Candidate) { c.CorrectAnswer = "E" }},
		{"missing answer", func(c *Candidate) { c.CorrectAnswer = "" }},
		{"missing explanation", func(c *Candidate) { c.Explanation = "\t" }},
	}

	qc := NewQuestionChecker()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(&c)
			res := qc.CheckQuestion(c)
			assert.Equal(t, ActionReject, res.Action)
			assert.NotEmpty(t, res.Reason)
		})
	}

	assert.Equal(t, ActionAccept, qc.CheckQuestion(valid()).Action)
}
