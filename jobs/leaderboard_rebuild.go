package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	jobmetrics "github.com/campusquiz/campusquiz/internal/jobs"
	"github.com/campusquiz/campusquiz/internal/quiz"
)

// TaskLeaderboardRebuild replays stored results into the leaderboard.
const TaskLeaderboardRebuild = "leaderboard:rebuild"

// LeaderboardRebuildPayload limits a rebuild to one quiz when QuizID is set.
type LeaderboardRebuildPayload struct {
	QuizID int64 `json:"quiz_id,omitempty"`
}

// NewLeaderboardRebuildTask constructs the rebuild task.
func NewLeaderboardRebuildTask(quizID int64) (*asynq.Task, error) {
	data, err := json.Marshal(LeaderboardRebuildPayload{QuizID: quizID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLeaderboardRebuild, data), nil
}

// BestGradeSource yields each user's best stored grade per quiz.
type BestGradeSource interface {
	BestGrades(ctx context.Context, quizID int64) ([]quiz.ResultRecorded, error)
}

// PGBestGrades reads best grades from the results table.
type PGBestGrades struct {
	pool *pgxpool.Pool
}

// NewPGBestGrades constructs a PostgreSQL BestGradeSource.
func NewPGBestGrades(pool *pgxpool.Pool) *PGBestGrades {
	return &PGBestGrades{pool: pool}
}

// BestGrades returns one row per (quiz, user); quizID 0 means every quiz.
func (s *PGBestGrades) BestGrades(ctx context.Context, quizID int64) ([]quiz.ResultRecorded, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT quiz_id, user_id, MAX(grade)
		FROM results
		WHERE quiz_id IS NOT NULL AND user_id IS NOT NULL
		  AND ($1::bigint = 0 OR quiz_id = $1::bigint)
		GROUP BY quiz_id, user_id`, quizID)
	if err != nil {
		return nil, fmt.Errorf("best grades: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (quiz.ResultRecorded, error) {
		var ev quiz.ResultRecorded
		err := row.Scan(&ev.QuizID, &ev.UserID, &ev.Grade)
		return ev, err
	})
}

// LeaderboardRebuildJob repairs leaderboards after lost result events.
type LeaderboardRebuildJob struct {
	Source  BestGradeSource
	Board   *Leaderboard
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewLeaderboardRebuildJob wires dependencies for the rebuild handler.
func NewLeaderboardRebuildJob(source BestGradeSource, board *Leaderboard, logger *slog.Logger, metrics *jobmetrics.Metrics) *LeaderboardRebuildJob {
	return &LeaderboardRebuildJob{Source: source, Board: board, Logger: logger, Metrics: metrics}
}

// Handle processes a rebuild task. Grades only ever rise on the board, so
// replaying is safe alongside live updates.
func (j *LeaderboardRebuildJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	if j == nil || j.Source == nil || j.Board == nil {
		return errors.New("leaderboard rebuild: handler not configured")
	}
	var payload LeaderboardRebuildPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return fmt.Errorf("leaderboard rebuild: decode payload: %v: %w", err, asynq.SkipRetry)
		}
	}

	tracker := j.Metrics.Track(TaskLeaderboardRebuild)
	defer func() {
		err = tracker.End(err)
	}()

	logger := j.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.Int64("quiz_id", payload.QuizID))

	grades, err := j.Source.BestGrades(ctx, payload.QuizID)
	if err != nil {
		logger.Error("load best grades", slog.Any("error", err))
		return err
	}
	for _, g := range grades {
		if err = j.Board.Record(ctx, g); err != nil {
			logger.Error("replay grade", slog.Int64("user_id", g.UserID), slog.Any("error", err))
			return err
		}
	}
	logger.Info("leaderboard rebuilt", slog.Int("entries", len(grades)))
	return nil
}
