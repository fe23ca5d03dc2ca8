package jobs

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/campusquiz/campusquiz/internal/quiz"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskResultRecorded fans a committed quiz result out to the leaderboard.
	TaskResultRecorded = "quiz:result_recorded"
)

// NewResultRecordedTask encodes event as an Asynq task.
func NewResultRecordedTask(event quiz.ResultRecorded) (*asynq.Task, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskResultRecorded, data), nil
}

// resultTaskID makes a second enqueue for the same result a no-op.
func resultTaskID(resultID int64) string {
	return fmt.Sprintf("result:%d", resultID)
}
