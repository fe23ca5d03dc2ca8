package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	jobmetrics "github.com/campusquiz/campusquiz/internal/jobs"
	"github.com/campusquiz/campusquiz/internal/quiz"
)

const leaderboardKeyPrefix = "campusquiz:leaderboard:quiz:"

// Leaderboard keeps each user's best grade per quiz in a Redis sorted set.
type Leaderboard struct {
	client redis.Cmdable
	ttl    time.Duration
}

// NewLeaderboard constructs a Leaderboard. A zero ttl keeps boards forever.
func NewLeaderboard(client redis.Cmdable, ttl time.Duration) *Leaderboard {
	return &Leaderboard{client: client, ttl: ttl}
}

func leaderboardKey(quizID int64) string {
	return leaderboardKeyPrefix + strconv.FormatInt(quizID, 10)
}

// Record stores grade for the user unless a higher grade is already present.
func (l *Leaderboard) Record(ctx context.Context, event quiz.ResultRecorded) error {
	key := leaderboardKey(event.QuizID)
	_, err := l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZAddGT(ctx, key, redis.Z{
			Score:  float64(event.Grade),
			Member: strconv.FormatInt(event.UserID, 10),
		})
		if l.ttl > 0 {
			pipe.Expire(ctx, key, l.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("leaderboard: record quiz %d: %w", event.QuizID, err)
	}
	return nil
}

// Top returns the best grades of a quiz in descending order.
func (l *Leaderboard) Top(ctx context.Context, quizID int64, limit int) ([]quiz.LeaderboardEntry, error) {
	if limit <= 0 {
		return []quiz.LeaderboardEntry{}, nil
	}
	members, err := l.client.ZRevRangeWithScores(ctx, leaderboardKey(quizID), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("leaderboard: read quiz %d: %w", quizID, err)
	}
	entries := make([]quiz.LeaderboardEntry, 0, len(members))
	for i, m := range members {
		member, _ := m.Member.(string)
		userID, err := strconv.ParseInt(member, 10, 64)
		if err != nil {
			continue
		}
		entries = append(entries, quiz.LeaderboardEntry{Rank: i + 1, UserID: userID, Grade: int(m.Score)})
	}
	return entries, nil
}

var _ quiz.LeaderboardReader = (*Leaderboard)(nil)

// ResultRecordedJob applies quiz:result_recorded tasks to the leaderboard.
type ResultRecordedJob struct {
	Board   *Leaderboard
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewResultRecordedJob wires dependencies for the handler.
func NewResultRecordedJob(board *Leaderboard, logger *slog.Logger, metrics *jobmetrics.Metrics) *ResultRecordedJob {
	return &ResultRecordedJob{Board: board, Logger: logger, Metrics: metrics}
}

// Handle processes a single result event.
func (j *ResultRecordedJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	if j == nil || j.Board == nil {
		return errors.New("result recorded: handler not configured")
	}
	var event quiz.ResultRecorded
	if err := json.Unmarshal(t.Payload(), &event); err != nil {
		return fmt.Errorf("result recorded: decode payload: %v: %w", err, asynq.SkipRetry)
	}
	if event.QuizID <= 0 || event.UserID <= 0 {
		return fmt.Errorf("result recorded: result %d has no quiz or user: %w", event.ResultID, asynq.SkipRetry)
	}

	tracker := j.Metrics.Track(TaskResultRecorded)
	defer func() {
		err = tracker.End(err)
	}()

	if err = j.Board.Record(ctx, event); err != nil {
		j.logger().Error("update leaderboard",
			slog.Int64("result_id", event.ResultID),
			slog.Int64("quiz_id", event.QuizID),
			slog.Any("error", err))
		return err
	}
	j.logger().Debug("leaderboard updated",
		slog.Int64("quiz_id", event.QuizID),
		slog.Int64("user_id", event.UserID),
		slog.Int("grade", event.Grade))
	return nil
}

func (j *ResultRecordedJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
