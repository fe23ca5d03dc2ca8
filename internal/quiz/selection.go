package quiz

import "math/rand"

// Shuffler permutes n elements through swap.
type Shuffler interface {
	Shuffle(n int, swap func(i, j int))
}

// ShufflerFunc adapts a function to Shuffler.
type ShufflerFunc func(n int, swap func(i, j int))

// Shuffle calls f.
func (f ShufflerFunc) Shuffle(n int, swap func(i, j int)) {
	f(n, swap)
}

// RandomShuffler draws from the runtime-seeded math/rand source.
func RandomShuffler() Shuffler {
	return ShufflerFunc(rand.Shuffle)
}

// selectQuestions draws min(count, len(pool)) distinct questions. The result
// is always shuffled, including when the whole pool is taken.
func selectQuestions(pool []Question, count int, shuffler Shuffler) []Question {
	drawn := append([]Question(nil), pool...)
	shuffler.Shuffle(len(drawn), func(i, j int) {
		drawn[i], drawn[j] = drawn[j], drawn[i]
	})
	if count < 0 {
		count = 0
	}
	if count < len(drawn) {
		drawn = drawn[:count]
	}
	return drawn
}

// project permutes the four options independently for one question.
func project(q Question, shuffler Shuffler) QuestionView {
	opts := q.Options()
	shuffler.Shuffle(len(opts), func(i, j int) {
		opts[i], opts[j] = opts[j], opts[i]
	})
	return QuestionView{
		ID:      q.ID,
		Text:    q.Text,
		OptionA: opts[0],
		OptionB: opts[1],
		OptionC: opts[2],
		OptionD: opts[3],
	}
}
