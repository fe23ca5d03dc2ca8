package quiz

import "time"

// Option identifies one of the four answer slots of a question.
type Option string

const (
	OptionA Option = "a"
	OptionB Option = "b"
	OptionC Option = "c"
	OptionD Option = "d"
)

// Valid reports whether o names an existing slot.
func (o Option) Valid() bool {
	switch o {
	case OptionA, OptionB, OptionC, OptionD:
		return true
	}
	return false
}

// Quiz is a PIN protected set of questions, optionally restricted to a group.
type Quiz struct {
	ID             int64     `json:"id"`
	OwnerID        *int64    `json:"owner_id,omitempty"`
	GroupID        *int64    `json:"group_id,omitempty"`
	SubjectID      *int64    `json:"subject_id,omitempty"`
	Title          string    `json:"title"`
	QuestionNumber int       `json:"question_number"`
	Duration       int       `json:"duration"`
	PIN            string    `json:"-"`
	IsActive       bool      `json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
}

// Open reports whether the quiz admits every cohort.
func (q Quiz) Open() bool {
	return q.GroupID == nil
}

// Question is a stored multiple choice question.
type Question struct {
	ID            int64
	SubjectID     *int64
	OwnerID       *int64
	Text          string
	OptionA       string
	OptionB       string
	OptionC       string
	OptionD       string
	CorrectOption Option
}

// Options returns the four option texts in storage order.
func (q Question) Options() [4]string {
	return [4]string{q.OptionA, q.OptionB, q.OptionC, q.OptionD}
}

// CorrectText returns the text of the correct option.
func (q Question) CorrectText() string {
	switch q.CorrectOption {
	case OptionB:
		return q.OptionB
	case OptionC:
		return q.OptionC
	case OptionD:
		return q.OptionD
	default:
		return q.OptionA
	}
}

// QuestionView is the projection shown to a participant. It never carries
// the correct option.
type QuestionView struct {
	ID      int64  `json:"id"`
	Text    string `json:"text"`
	OptionA string `json:"option_a"`
	OptionB string `json:"option_b"`
	OptionC string `json:"option_c"`
	OptionD string `json:"option_d"`
}

// CohortMember is the student record that activates group restrictions.
type CohortMember struct {
	UserID  int64
	GroupID *int64
}

// StartInput carries the StartAttempt request.
type StartInput struct {
	QuizID      int64
	PIN         string
	PrincipalID int64
}

// Attempt is the randomized question set handed to a participant.
type Attempt struct {
	QuizID    int64          `json:"quiz_id"`
	Title     string         `json:"title"`
	Duration  int            `json:"duration"`
	Questions []QuestionView `json:"questions"`
}

// Answer is one submitted answer.
type Answer struct {
	QuestionID int64  `json:"question_id" validate:"required,gt=0"`
	Text       string `json:"answer"`
}

// SubmitInput carries the SubmitAttempt request.
type SubmitInput struct {
	QuizID      int64
	PrincipalID int64
	Answers     []Answer
}

// GradedAnswer is an answer together with its computed correctness.
type GradedAnswer struct {
	QuestionID int64
	Text       string
	IsCorrect  bool
}

// Outcome summarises a graded submission.
type Outcome struct {
	Total   int `json:"total_questions"`
	Correct int `json:"correct_answers"`
	Wrong   int `json:"wrong_answers"`
	Grade   int `json:"grade"`
}

// AttemptRecord is everything persisted for one submission.
type AttemptRecord struct {
	UserID    int64
	QuizID    int64
	SubjectID *int64
	GroupID   *int64
	Answers   []GradedAnswer
	Outcome   Outcome
}

// Result is a persisted submission summary.
type Result struct {
	ID             int64     `json:"id"`
	UserID         *int64    `json:"user_id"`
	QuizID         *int64    `json:"quiz_id"`
	SubjectID      *int64    `json:"subject_id,omitempty"`
	GroupID        *int64    `json:"group_id,omitempty"`
	CorrectAnswers int       `json:"correct_answers"`
	WrongAnswers   int       `json:"wrong_answers"`
	Grade          int       `json:"grade"`
	CreatedAt      time.Time `json:"created_at"`
}

// UserAnswer is a persisted graded answer.
type UserAnswer struct {
	ID         int64     `json:"id"`
	UserID     *int64    `json:"user_id"`
	QuizID     *int64    `json:"quiz_id"`
	QuestionID *int64    `json:"question_id"`
	Answer     string    `json:"answer"`
	IsCorrect  bool      `json:"is_correct"`
	CreatedAt  time.Time `json:"created_at"`
}

// QuizFilter narrows ListQuizzes.
type QuizFilter struct {
	IsActive  *bool
	GroupID   *int64
	SubjectID *int64
	Title     string
	// Cohort, when set, limits results to open quizzes and those of the group.
	Cohort *CohortMember
	Page   int
	Limit  int
}

// ResultFilter narrows ListResults.
type ResultFilter struct {
	UserID    *int64
	QuizID    *int64
	GroupID   *int64
	SubjectID *int64
	Page      int
	Limit     int
}

// AnswerFilter narrows ListUserAnswers.
type AnswerFilter struct {
	UserID     *int64
	QuizID     *int64
	QuestionID *int64
	Page       int
	Limit      int
}

// LeaderboardEntry is one ranked participant of a quiz.
type LeaderboardEntry struct {
	Rank   int   `json:"rank"`
	UserID int64 `json:"user_id"`
	Grade  int   `json:"grade"`
}
