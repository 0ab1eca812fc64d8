package studymcq

import (
	"math/rand"
	"sync"
	"time"

	"github.com/samber/lo"
)

// Weights tunes how strongly the selector favours weak and unseen questions.
type Weights struct {
	Unattempted float64 `yaml:"unattempted"`
	Offset      float64 `yaml:"offset"`
}

// DefaultWeights returns the standard weighting: 0.6 for unseen questions,
// (1 - accuracy) + 0.2 otherwise.
func DefaultWeights() Weights {
	return Weights{Unattempted: 0.6, Offset: 0.2}
}

// Weight returns the selection weight of q. Always positive.
func (w Weights) Weight(q Question) float64 {
	if q.TimesAsked == 0 {
		return w.Unattempted
	}
	return 1 - q.Accuracy + w.Offset
}

// Selector draws weighted samples without replacement.
type Selector struct {
	weights Weights

	mu  sync.Mutex
	rng *rand.Rand
}

// NewSelector creates a selector. A nil rng is seeded from the clock.
func NewSelector(weights Weights, rng *rand.Rand) *Selector {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Selector{weights: weights, rng: rng}
}

// Select picks k distinct questions from pool, each draw proportional to weight
// among those not yet drawn. The pool is never modified.
func (s *Selector) Select(pool []Question, k int) []Question {
	if k <= 0 || len(pool) == 0 {
		return []Question{}
	}
	if k >= len(pool) {
		return append([]Question(nil), pool...)
	}

	remaining := append([]Question(nil), pool...)
	weights := lo.Map(remaining, func(q Question, _ int) float64 {
		return s.weights.Weight(q)
	})

	s.mu.Lock()
	defer s.mu.Unlock()

	selected := make([]Question, 0, k)
	for len(selected) < k {
		total := lo.Sum(weights)
		target := s.rng.Float64() * total

		idx := len(remaining) - 1
		var acc float64
		for i, w := range weights {
			acc += w
			if target < acc {
				idx = i
				break
			}
		}

		selected = append(selected, remaining[idx])
		remaining = append(remaining[:idx], remaining[idx+1:]...)
		weights = append(weights[:idx], weights[idx+1:]...)
	}
	return selected
}
