package quiz_test

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/campusquiz/campusquiz/internal/quiz"
	"github.com/campusquiz/campusquiz/internal/shared"
)

type memoryRepo struct {
	mu        sync.Mutex
	quizzes   map[int64]quiz.Quiz
	pools     map[int64][]int64
	questions map[int64]quiz.Question
	members   map[int64]quiz.CohortMember
	answers   []quiz.UserAnswer
	results   []quiz.Result
	failWrite error
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		quizzes:   make(map[int64]quiz.Quiz),
		pools:     make(map[int64][]int64),
		questions: make(map[int64]quiz.Question),
		members:   make(map[int64]quiz.CohortMember),
	}
}

func ptr[T any](v T) *T { return &v }

func (m *memoryRepo) addQuiz(q quiz.Quiz, questions ...quiz.Question) {
	m.quizzes[q.ID] = q
	for _, question := range questions {
		if question.CorrectOption == "" {
			question.CorrectOption = quiz.OptionA
		}
		m.questions[question.ID] = question
		m.pools[q.ID] = append(m.pools[q.ID], question.ID)
	}
}

func (m *memoryRepo) addMember(userID int64, groupID *int64) {
	m.members[userID] = quiz.CohortMember{UserID: userID, GroupID: groupID}
}

func (m *memoryRepo) GetQuiz(ctx context.Context, id int64) (quiz.Quiz, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.quizzes[id]
	if !ok {
		return quiz.Quiz{}, shared.ErrNotFound
	}
	return q, nil
}

func (m *memoryRepo) GetQuizWithPool(ctx context.Context, id int64) (quiz.Quiz, []quiz.Question, error) {
	q, err := m.GetQuiz(ctx, id)
	if err != nil {
		return quiz.Quiz{}, nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	pool := make([]quiz.Question, 0, len(m.pools[id]))
	for _, qid := range m.pools[id] {
		pool = append(pool, m.questions[qid])
	}
	return q, pool, nil
}

func (m *memoryRepo) FindCohortMember(ctx context.Context, userID int64) (*quiz.CohortMember, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	member, ok := m.members[userID]
	if !ok {
		return nil, nil
	}
	return &member, nil
}

func (m *memoryRepo) QuestionsByIDs(ctx context.Context, ids []int64) (map[int64]quiz.Question, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[int64]quiz.Question, len(ids))
	for _, id := range ids {
		if q, ok := m.questions[id]; ok {
			out[id] = q
		}
	}
	return out, nil
}

func (m *memoryRepo) RecordAttempt(ctx context.Context, rec quiz.AttemptRecord) (quiz.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWrite != nil {
		return quiz.Result{}, m.failWrite
	}
	now := time.Now()
	for _, a := range rec.Answers {
		m.answers = append(m.answers, quiz.UserAnswer{
			ID:         int64(len(m.answers) + 1),
			UserID:     ptr(rec.UserID),
			QuizID:     ptr(rec.QuizID),
			QuestionID: ptr(a.QuestionID),
			Answer:     a.Text,
			IsCorrect:  a.IsCorrect,
			CreatedAt:  now,
		})
	}
	res := quiz.Result{
		ID:             int64(len(m.results) + 1),
		UserID:         ptr(rec.UserID),
		QuizID:         ptr(rec.QuizID),
		SubjectID:      rec.SubjectID,
		GroupID:        rec.GroupID,
		CorrectAnswers: rec.Outcome.Correct,
		WrongAnswers:   rec.Outcome.Wrong,
		Grade:          rec.Outcome.Grade,
		CreatedAt:      now,
	}
	m.results = append(m.results, res)
	return res, nil
}

func (m *memoryRepo) ListQuizzes(ctx context.Context, filter quiz.QuizFilter) ([]quiz.Quiz, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []quiz.Quiz
	for _, q := range m.quizzes {
		if filter.IsActive != nil && q.IsActive != *filter.IsActive {
			continue
		}
		if filter.Cohort != nil && q.GroupID != nil {
			if filter.Cohort.GroupID == nil || *filter.Cohort.GroupID != *q.GroupID {
				continue
			}
		}
		out = append(out, q)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, len(out), nil
}

func (m *memoryRepo) ListResults(ctx context.Context, filter quiz.ResultFilter) ([]quiz.Result, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]quiz.Result(nil), m.results...), len(m.results), nil
}

func (m *memoryRepo) ListUserAnswers(ctx context.Context, filter quiz.AnswerFilter) ([]quiz.UserAnswer, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]quiz.UserAnswer(nil), m.answers...), len(m.answers), nil
}

// reverseShuffler reverses order deterministically and counts invocations.
type reverseShuffler struct {
	calls int
}

func (s *reverseShuffler) Shuffle(n int, swap func(i, j int)) {
	s.calls++
	for i, j := 0, n-1; i < j; i, j = i+1, j-1 {
		swap(i, j)
	}
}

type recordingPublisher struct {
	events []quiz.ResultRecorded
	err    error
}

func (p *recordingPublisher) PublishResultRecorded(ctx context.Context, event quiz.ResultRecorded) error {
	p.events = append(p.events, event)
	return p.err
}

type stageCounter map[string]int

func (c stageCounter) ObserveQuizAttempt(stage string) { c[stage]++ }

var errDiskFull = errors.New("disk full")
