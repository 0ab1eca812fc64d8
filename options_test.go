package studymcq

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOptionLines(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []string
		wantErr bool
	}{
		{
			name:  "ordered with parentheses",
			input: "A) Paris\nB) London\nC) Rome\nD) Madrid",
			want:  []string{"A) Paris", "B) London", "C) Rome", "D) Madrid"},
		},
		{
			name:  "mixed separators, case and order",
			input: "b. London\n  D: Madrid\na) Paris\nC - Rome",
			want:  []string{"A) Paris", "B) London", "C) Rome", "D) Madrid"},
		},
		{
			name:  "blank lines ignored",
			input: "\nA) 1\n\nB) 2\nC) 3\n\nD) 4\n",
			want:  []string{"A) 1", "B) 2", "C) 3", "D) 4"},
		},
		{
			name:  "space separator",
			input: "A one\nB two\nC three\nD four",
			want:  []string{"A) one", "B) two", "C) three", "D) four"},
		},
		{
			name:    "three lines",
			input:   "A) 1\nB) 2\nC) 3",
			wantErr: true,
		},
		{
			name:    "five lines",
			input:   "A) 1\nB) 2\nC) 3\nD) 4\nD) 5",
			wantErr: true,
		},
		{
			name:    "duplicate label",
			input:   "A) 1\nA) 2\nC) 3\nD) 4",
			wantErr: true,
		},
		{
			name:    "label out of range",
			input:   "A) 1\nB) 2\nC) 3\nE) 4",
			wantErr: true,
		},
		{
			name:    "missing label",
			input:   "A) 1\nB) 2\nC) 3\nApple",
			wantErr: true,
		},
		{
			name:    "empty option text",
			input:   "A) 1\nB) 2\nC) 3\nD)",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseOptionLines(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidFormat)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestOptionText(t *testing.T) {
	assert.Equal(t, "Paris", OptionText("A) Paris"))
	assert.Equal(t, "no label", OptionText("no label"))
}

func TestIsOptionLabel(t *testing.T) {
	assert.True(t, IsOptionLabel("D"))
	assert.False(t, IsOptionLabel("d"))
	assert.False(t, IsOptionLabel("E"))
	assert.False(t, IsOptionLabel(""))
}
