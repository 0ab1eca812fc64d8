package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studymcq"
)

func TestKeyboardEncodesActions(t *testing.T) {
	buttons := [][]studymcq.Button{
		{
			{Text: "A", Action: studymcq.Action{Kind: studymcq.ActAnswer, Label: "A", QuestionID: 12}},
			{Text: "B", Action: studymcq.Action{Kind: studymcq.ActAnswer, Label: "B", QuestionID: 12}},
		},
		{
			{Text: "End", Action: studymcq.Action{Kind: studymcq.ActEnd}},
		},
	}

	kb := keyboard(buttons)
	require.Len(t, kb.InlineKeyboard, 2)
	require.Len(t, kb.InlineKeyboard[0], 2)
	require.Len(t, kb.InlineKeyboard[1], 1)

	first := kb.InlineKeyboard[0][0]
	assert.Equal(t, "A", first.Text)
	require.NotNil(t, first.CallbackData)
	assert.Equal(t, "ans:A:12", *first.CallbackData)

	for _, row := range kb.InlineKeyboard {
		for _, btn := range row {
			require.NotNil(t, btn.CallbackData)
			assert.LessOrEqual(t, len(*btn.CallbackData), 64)
			decoded, err := studymcq.DecodeAction(*btn.CallbackData)
			require.NoError(t, err)
			assert.NotZero(t, decoded.Kind)
		}
	}
	assert.Equal(t, "end::0", *kb.InlineKeyboard[1][0].CallbackData)
}

func TestKeyboardEmpty(t *testing.T) {
	assert.Empty(t, keyboard(nil).InlineKeyboard)
}
