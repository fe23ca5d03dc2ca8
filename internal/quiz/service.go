package quiz

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/campusquiz/campusquiz/internal/shared"
)

// Attempt stages reported to an AttemptRecorder.
const (
	StageStarted       = "started"
	StageStartRejected = "start_rejected"
	StageSubmitted     = "submitted"
	StageSubmitFailed  = "submit_failed"
)

// AttemptRecorder receives attempt lifecycle events for metrics.
type AttemptRecorder interface {
	ObserveQuizAttempt(stage string)
}

// ResultRecorded is published after a submission commits.
type ResultRecorded struct {
	ResultID   int64     `json:"result_id"`
	QuizID     int64     `json:"quiz_id"`
	UserID     int64     `json:"user_id"`
	Grade      int       `json:"grade"`
	Correct    int       `json:"correct"`
	Total      int       `json:"total"`
	RecordedAt time.Time `json:"recorded_at"`
}

// ResultPublisher forwards committed results to downstream consumers.
type ResultPublisher interface {
	PublishResultRecorded(ctx context.Context, event ResultRecorded) error
}

// LeaderboardReader reads the ranked best grades of a quiz.
type LeaderboardReader interface {
	Top(ctx context.Context, quizID int64, limit int) ([]LeaderboardEntry, error)
}

// Options carries optional collaborators for Service.
type Options struct {
	Shuffler    Shuffler
	Publisher   ResultPublisher
	Leaderboard LeaderboardReader
	Recorder    AttemptRecorder
	Logger      *slog.Logger
}

// Service runs quiz attempts.
type Service struct {
	repo        Repository
	shuffler    Shuffler
	publisher   ResultPublisher
	leaderboard LeaderboardReader
	recorder    AttemptRecorder
	logger      *slog.Logger
}

// NewService constructs a Service.
func NewService(repo Repository, opts Options) *Service {
	shuffler := opts.Shuffler
	if shuffler == nil {
		shuffler = RandomShuffler()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:        repo,
		shuffler:    shuffler,
		publisher:   opts.Publisher,
		leaderboard: opts.Leaderboard,
		recorder:    opts.Recorder,
		logger:      logger,
	}
}

// StartAttempt checks eligibility and returns a freshly randomized question set.
func (s *Service) StartAttempt(ctx context.Context, in StartInput) (Attempt, error) {
	attempt, err := s.startAttempt(ctx, in)
	if err != nil {
		s.observe(StageStartRejected)
		return Attempt{}, err
	}
	s.observe(StageStarted)
	return attempt, nil
}

func (s *Service) startAttempt(ctx context.Context, in StartInput) (Attempt, error) {
	q, pool, err := s.repo.GetQuizWithPool(ctx, in.QuizID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return Attempt{}, shared.Errorf(shared.ErrNotFound, "quiz not found")
		}
		return Attempt{}, err
	}
	if !q.IsActive {
		return Attempt{}, shared.Errorf(shared.ErrInvalidState, "quiz is not active")
	}
	if in.PIN != q.PIN {
		return Attempt{}, shared.Errorf(shared.ErrForbidden, "invalid PIN")
	}
	if err := s.checkCohort(ctx, q, in.PrincipalID); err != nil {
		return Attempt{}, err
	}

	selected := selectQuestions(pool, q.QuestionNumber, s.shuffler)
	views := make([]QuestionView, 0, len(selected))
	for _, question := range selected {
		views = append(views, project(question, s.shuffler))
	}
	return Attempt{QuizID: q.ID, Title: q.Title, Duration: q.Duration, Questions: views}, nil
}

// checkCohort applies the group restriction. Users without a student record
// are never restricted, and open quizzes admit everyone.
func (s *Service) checkCohort(ctx context.Context, q Quiz, principalID int64) error {
	if q.Open() {
		return nil
	}
	member, err := s.repo.FindCohortMember(ctx, principalID)
	if err != nil {
		return err
	}
	if member == nil {
		return nil
	}
	if member.GroupID == nil || *member.GroupID != *q.GroupID {
		return shared.Errorf(shared.ErrForbidden, "this quiz is not available for your group")
	}
	return nil
}

// SubmitAttempt grades answers and records them together with a result.
func (s *Service) SubmitAttempt(ctx context.Context, in SubmitInput) (Outcome, error) {
	q, err := s.repo.GetQuiz(ctx, in.QuizID)
	if err != nil {
		s.observe(StageSubmitFailed)
		if errors.Is(err, shared.ErrNotFound) {
			return Outcome{}, shared.Errorf(shared.ErrNotFound, "quiz not found")
		}
		return Outcome{}, err
	}

	questions, err := s.repo.QuestionsByIDs(ctx, uniqueQuestionIDs(in.Answers))
	if err != nil {
		s.observe(StageSubmitFailed)
		return Outcome{}, err
	}
	for _, a := range in.Answers {
		if _, ok := questions[a.QuestionID]; !ok {
			s.observe(StageSubmitFailed)
			return Outcome{}, shared.Errorf(shared.ErrInvalidInput, "invalid question_id: %d", a.QuestionID)
		}
	}

	graded, outcome := gradeAnswers(in.Answers, questions)
	res, err := s.repo.RecordAttempt(ctx, AttemptRecord{
		UserID:    in.PrincipalID,
		QuizID:    q.ID,
		SubjectID: q.SubjectID,
		GroupID:   q.GroupID,
		Answers:   graded,
		Outcome:   outcome,
	})
	if err != nil {
		s.observe(StageSubmitFailed)
		s.logger.Error("record attempt",
			slog.Int64("quiz_id", q.ID),
			slog.Int64("user_id", in.PrincipalID),
			slog.Any("error", err))
		if !errors.Is(err, shared.ErrInternal) {
			err = shared.WrapInternal("quiz: record attempt", err)
		}
		return Outcome{}, err
	}
	s.observe(StageSubmitted)
	s.publish(ctx, res, outcome)
	return outcome, nil
}

func (s *Service) publish(ctx context.Context, res Result, outcome Outcome) {
	if s.publisher == nil {
		return
	}
	event := ResultRecorded{
		ResultID:   res.ID,
		QuizID:     derefID(res.QuizID),
		UserID:     derefID(res.UserID),
		Grade:      outcome.Grade,
		Correct:    outcome.Correct,
		Total:      outcome.Total,
		RecordedAt: res.CreatedAt,
	}
	if err := s.publisher.PublishResultRecorded(ctx, event); err != nil {
		s.logger.Warn("publish result recorded",
			slog.Int64("result_id", res.ID),
			slog.Any("error", err))
	}
}

// ListQuizzes lists quizzes visible to the principal.
func (s *Service) ListQuizzes(ctx context.Context, principalID int64, filter QuizFilter) ([]Quiz, shared.Pagination, error) {
	member, err := s.repo.FindCohortMember(ctx, principalID)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	filter.Cohort = member
	filter.Page, filter.Limit = shared.NormalizePage(filter.Page, filter.Limit)
	quizzes, total, err := s.repo.ListQuizzes(ctx, filter)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return quizzes, shared.NewPagination(filter.Page, filter.Limit, total), nil
}

// GetQuiz returns quiz metadata if the principal's cohort may see it.
func (s *Service) GetQuiz(ctx context.Context, principalID, quizID int64) (Quiz, error) {
	q, err := s.repo.GetQuiz(ctx, quizID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return Quiz{}, shared.Errorf(shared.ErrNotFound, "quiz not found")
		}
		return Quiz{}, err
	}
	if err := s.checkCohort(ctx, q, principalID); err != nil {
		return Quiz{}, err
	}
	return q, nil
}

// ListResults lists recorded results.
func (s *Service) ListResults(ctx context.Context, filter ResultFilter) ([]Result, shared.Pagination, error) {
	filter.Page, filter.Limit = shared.NormalizePage(filter.Page, filter.Limit)
	results, total, err := s.repo.ListResults(ctx, filter)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return results, shared.NewPagination(filter.Page, filter.Limit, total), nil
}

// ListUserAnswers lists recorded answers.
func (s *Service) ListUserAnswers(ctx context.Context, filter AnswerFilter) ([]UserAnswer, shared.Pagination, error) {
	filter.Page, filter.Limit = shared.NormalizePage(filter.Page, filter.Limit)
	answers, total, err := s.repo.ListUserAnswers(ctx, filter)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return answers, shared.NewPagination(filter.Page, filter.Limit, total), nil
}

// Leaderboard returns the best grades for a quiz.
func (s *Service) Leaderboard(ctx context.Context, quizID int64, limit int) ([]LeaderboardEntry, error) {
	if _, err := s.repo.GetQuiz(ctx, quizID); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.Errorf(shared.ErrNotFound, "quiz not found")
		}
		return nil, err
	}
	if s.leaderboard == nil {
		return []LeaderboardEntry{}, nil
	}
	_, limit = shared.NormalizePage(1, limit)
	entries, err := s.leaderboard.Top(ctx, quizID, limit)
	if err != nil {
		return nil, shared.WrapInternal("quiz: leaderboard", err)
	}
	return entries, nil
}

func (s *Service) observe(stage string) {
	if s.recorder != nil {
		s.recorder.ObserveQuizAttempt(stage)
	}
}

func uniqueQuestionIDs(answers []Answer) []int64 {
	seen := make(map[int64]struct{}, len(answers))
	ids := make([]int64, 0, len(answers))
	for _, a := range answers {
		if _, ok := seen[a.QuestionID]; ok {
			continue
		}
		seen[a.QuestionID] = struct{}{}
		ids = append(ids, a.QuestionID)
	}
	return ids
}

func derefID(id *int64) int64 {
	if id == nil {
		return 0
	}
	return *id
}
