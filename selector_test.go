package studymcq

import (
	"math/rand"
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
)

func TestWeights(t *testing.T) {
	w := DefaultWeights()

	tests := []struct {
		name string
		q    Question
		want float64
	}{
		{"never asked", Question{TimesAsked: 0}, 0.6},
		{"always wrong", Question{TimesAsked: 4, Accuracy: 0}, 1.2},
		{"always right", Question{TimesAsked: 4, Accuracy: 1}, 0.2},
		{"half right", Question{TimesAsked: 2, Accuracy: 0.5}, 0.7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, w.Weight(tt.q), 1e-9)
		})
	}
}

func TestSelectEdgeCases(t *testing.T) {
	s := NewSelector(DefaultWeights(), rand.New(rand.NewSource(7)))
	pool := questionsWithIDs(1, 2, 3)

	assert.Empty(t, s.Select(pool, 0))
	assert.Empty(t, s.Select(pool, -1))
	assert.Empty(t, s.Select(nil, 2))

	all := s.Select(pool, 5)
	assert.Equal(t, pool, all)
	all[0].Text = "mutated"
	assert.Equal(t, "q", pool[0].Text)
}

func TestSelectDistinctAndPoolUntouched(t *testing.T) {
	s := NewSelector(DefaultWeights(), rand.New(rand.NewSource(42)))
	pool := questionsWithIDs(1, 2, 3, 4, 5, 6, 7, 8)
	before := append([]Question(nil), pool...)

	for i := 0; i < 50; i++ {
		got := s.Select(pool, 5)
		assert.Len(t, got, 5)
		assert.Len(t, lo.UniqBy(got, func(q Question) int64 { return q.ID }), 5)
	}
	assert.Equal(t, before, pool)
}

func TestSelectFavoursWeakQuestions(t *testing.T) {
	s := NewSelector(DefaultWeights(), rand.New(rand.NewSource(3)))
	pool := []Question{
		{ID: 1, TimesAsked: 10, Accuracy: 0},
		{ID: 2, TimesAsked: 10, Accuracy: 1},
	}

	const draws = 4000
	weak := 0
	for i := 0; i < draws; i++ {
		if s.Select(pool, 1)[0].ID == 1 {
			weak++
		}
	}
	// expected share is 1.2 / 1.4
	share := float64(weak) / draws
	assert.InDelta(t, 0.857, share, 0.05)
}
