package quiz

import (
	"fmt"
	"testing"
)

func benchPool(n int) []Question {
	pool := make([]Question, n)
	for i := range pool {
		pool[i] = Question{
			ID:            int64(i + 1),
			Text:          fmt.Sprintf("question %d", i),
			OptionA:       "a",
			OptionB:       "b",
			OptionC:       "c",
			OptionD:       "d",
			CorrectOption: OptionB,
		}
	}
	return pool
}

func BenchmarkStartSelection(b *testing.B) {
	pool := benchPool(500)
	shuffler := RandomShuffler()
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		for _, q := range selectQuestions(pool, 30, shuffler) {
			_ = project(q, shuffler)
		}
	}
}

func BenchmarkGradeAnswers(b *testing.B) {
	pool := benchPool(100)
	questions := make(map[int64]Question, len(pool))
	answers := make([]Answer, 0, len(pool))
	for i, q := range pool {
		questions[q.ID] = q
		text := "b"
		if i%3 == 0 {
			text = "a"
		}
		answers = append(answers, Answer{QuestionID: q.ID, Text: text})
	}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = gradeAnswers(answers, questions)
	}
}

func TestSelectionDrawsDistinctQuestionsFromLargePool(t *testing.T) {
	pool := benchPool(500)
	for n := 0; n < 50; n++ {
		seen := map[int64]bool{}
		drawn := selectQuestions(pool, 30, RandomShuffler())
		if len(drawn) != 30 {
			t.Fatalf("expected 30 questions, got %d", len(drawn))
		}
		for _, q := range drawn {
			if seen[q.ID] {
				t.Fatalf("question %d drawn twice", q.ID)
			}
			seen[q.ID] = true
		}
	}
}
