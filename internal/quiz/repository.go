package quiz

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/campusquiz/campusquiz/internal/platform/db"
	"github.com/campusquiz/campusquiz/internal/shared"
)

// Repository defines the persistence operations used by Service.
type Repository interface {
	GetQuiz(ctx context.Context, id int64) (Quiz, error)
	GetQuizWithPool(ctx context.Context, id int64) (Quiz, []Question, error)
	FindCohortMember(ctx context.Context, userID int64) (*CohortMember, error)
	QuestionsByIDs(ctx context.Context, ids []int64) (map[int64]Question, error)
	RecordAttempt(ctx context.Context, rec AttemptRecord) (Result, error)
	ListQuizzes(ctx context.Context, filter QuizFilter) ([]Quiz, int, error)
	ListResults(ctx context.Context, filter ResultFilter) ([]Result, int, error)
	ListUserAnswers(ctx context.Context, filter AnswerFilter) ([]UserAnswer, int, error)
}

// PGRepository implements Repository on PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PGRepository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const quizColumns = `id, user_id, group_id, subject_id, title, question_number, duration, pin, is_active, created_at`

func scanQuiz(row pgx.Row) (Quiz, error) {
	var q Quiz
	err := row.Scan(&q.ID, &q.OwnerID, &q.GroupID, &q.SubjectID, &q.Title, &q.QuestionNumber, &q.Duration, &q.PIN, &q.IsActive, &q.CreatedAt)
	return q, err
}

// GetQuiz loads a quiz without its questions.
func (r *PGRepository) GetQuiz(ctx context.Context, id int64) (Quiz, error) {
	q, err := scanQuiz(r.pool.QueryRow(ctx, `SELECT `+quizColumns+` FROM quizzes WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Quiz{}, fmt.Errorf("quiz %d: %w", id, shared.ErrNotFound)
		}
		return Quiz{}, shared.WrapInternal("quiz: get quiz", err)
	}
	return q, nil
}

// GetQuizWithPool loads a quiz and every question linked to it.
func (r *PGRepository) GetQuizWithPool(ctx context.Context, id int64) (Quiz, []Question, error) {
	q, err := r.GetQuiz(ctx, id)
	if err != nil {
		return Quiz{}, nil, err
	}
	rows, err := r.pool.Query(ctx, `
		SELECT q.id, q.subject_id, q.user_id, q.text, q.option_a, q.option_b, q.option_c, q.option_d, q.correct_option
		FROM quiz_questions qq
		JOIN questions q ON q.id = qq.question_id
		WHERE qq.quiz_id = $1
		ORDER BY q.id`, id)
	if err != nil {
		return Quiz{}, nil, shared.WrapInternal("quiz: load pool", err)
	}
	questions, err := pgx.CollectRows(rows, scanQuestion)
	if err != nil {
		return Quiz{}, nil, shared.WrapInternal("quiz: scan pool", err)
	}
	return q, questions, nil
}

func scanQuestion(row pgx.CollectableRow) (Question, error) {
	var (
		q       Question
		correct string
	)
	err := row.Scan(&q.ID, &q.SubjectID, &q.OwnerID, &q.Text, &q.OptionA, &q.OptionB, &q.OptionC, &q.OptionD, &correct)
	q.CorrectOption = Option(strings.ToLower(strings.TrimSpace(correct)))
	return q, err
}

// FindCohortMember returns nil when the user has no student record.
func (r *PGRepository) FindCohortMember(ctx context.Context, userID int64) (*CohortMember, error) {
	member := CohortMember{UserID: userID}
	err := r.pool.QueryRow(ctx, `SELECT group_id FROM students WHERE user_id = $1`, userID).Scan(&member.GroupID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, shared.WrapInternal("quiz: find cohort member", err)
	}
	return &member, nil
}

// QuestionsByIDs batch loads questions. Unknown ids are simply absent.
func (r *PGRepository) QuestionsByIDs(ctx context.Context, ids []int64) (map[int64]Question, error) {
	out := make(map[int64]Question, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, subject_id, user_id, text, option_a, option_b, option_c, option_d, correct_option
		FROM questions WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, shared.WrapInternal("quiz: load questions", err)
	}
	questions, err := pgx.CollectRows(rows, scanQuestion)
	if err != nil {
		return nil, shared.WrapInternal("quiz: scan questions", err)
	}
	for _, q := range questions {
		out[q.ID] = q
	}
	return out, nil
}

// RecordAttempt writes every answer row and the result row in one transaction.
func (r *PGRepository) RecordAttempt(ctx context.Context, rec AttemptRecord) (Result, error) {
	var res Result
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if len(rec.Answers) > 0 {
			batch := &pgx.Batch{}
			for _, a := range rec.Answers {
				batch.Queue(`
					INSERT INTO user_answers (user_id, quiz_id, question_id, answer, is_correct)
					VALUES ($1, $2, $3, $4, $5)`, rec.UserID, rec.QuizID, a.QuestionID, a.Text, a.IsCorrect)
			}
			if err := tx.SendBatch(ctx, batch).Close(); err != nil {
				return fmt.Errorf("insert user answers: %w", err)
			}
		}
		err := tx.QueryRow(ctx, `
			INSERT INTO results (user_id, quiz_id, subject_id, group_id, correct_answers, wrong_answers, grade)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING id, user_id, quiz_id, subject_id, group_id, correct_answers, wrong_answers, grade, created_at`,
			rec.UserID, rec.QuizID, rec.SubjectID, rec.GroupID, rec.Outcome.Correct, rec.Outcome.Wrong, rec.Outcome.Grade,
		).Scan(&res.ID, &res.UserID, &res.QuizID, &res.SubjectID, &res.GroupID, &res.CorrectAnswers, &res.WrongAnswers, &res.Grade, &res.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert result: %w", err)
		}
		return nil
	})
	if err != nil {
		return Result{}, shared.WrapInternal("quiz: record attempt", err)
	}
	return res, nil
}

// where accumulates positional predicates.
type where struct {
	clauses []string
	args    []any
}

func (w *where) add(format string, arg any) {
	w.args = append(w.args, arg)
	w.clauses = append(w.clauses, fmt.Sprintf(format, len(w.args)))
}

func (w *where) raw(clause string) {
	w.clauses = append(w.clauses, clause)
}

func (w *where) String() string {
	if len(w.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.clauses, " AND ")
}

func (w *where) page(page, limit int) string {
	page, limit = shared.NormalizePage(page, limit)
	w.args = append(w.args, limit, shared.Offset(page, limit))
	return fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(w.args)-1, len(w.args))
}

func (r *PGRepository) count(ctx context.Context, table string, w *where) (int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM `+table+w.String(), w.args...).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

// ListQuizzes returns a page of quizzes and the unpaged total.
func (r *PGRepository) ListQuizzes(ctx context.Context, filter QuizFilter) ([]Quiz, int, error) {
	w := &where{}
	if filter.IsActive != nil {
		w.add("is_active = $%d", *filter.IsActive)
	}
	if filter.GroupID != nil {
		w.add("group_id = $%d", *filter.GroupID)
	}
	if filter.SubjectID != nil {
		w.add("subject_id = $%d", *filter.SubjectID)
	}
	if title := strings.TrimSpace(filter.Title); title != "" {
		w.add("title ILIKE $%d", "%"+title+"%")
	}
	if filter.Cohort != nil {
		if filter.Cohort.GroupID == nil {
			w.raw("group_id IS NULL")
		} else {
			w.add("(group_id IS NULL OR group_id = $%d)", *filter.Cohort.GroupID)
		}
	}
	total, err := r.count(ctx, "quizzes", w)
	if err != nil {
		return nil, 0, shared.WrapInternal("quiz: count quizzes", err)
	}
	query := `SELECT ` + quizColumns + ` FROM quizzes` + w.String() + ` ORDER BY id DESC` + w.page(filter.Page, filter.Limit)
	rows, err := r.pool.Query(ctx, query, w.args...)
	if err != nil {
		return nil, 0, shared.WrapInternal("quiz: list quizzes", err)
	}
	quizzes, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Quiz, error) {
		return scanQuiz(row)
	})
	if err != nil {
		return nil, 0, shared.WrapInternal("quiz: scan quizzes", err)
	}
	return quizzes, total, nil
}

// ListResults returns a page of results and the unpaged total.
func (r *PGRepository) ListResults(ctx context.Context, filter ResultFilter) ([]Result, int, error) {
	w := &where{}
	if filter.UserID != nil {
		w.add("user_id = $%d", *filter.UserID)
	}
	if filter.QuizID != nil {
		w.add("quiz_id = $%d", *filter.QuizID)
	}
	if filter.GroupID != nil {
		w.add("group_id = $%d", *filter.GroupID)
	}
	if filter.SubjectID != nil {
		w.add("subject_id = $%d", *filter.SubjectID)
	}
	total, err := r.count(ctx, "results", w)
	if err != nil {
		return nil, 0, shared.WrapInternal("quiz: count results", err)
	}
	query := `SELECT id, user_id, quiz_id, subject_id, group_id, correct_answers, wrong_answers, grade, created_at
		FROM results` + w.String() + ` ORDER BY id DESC` + w.page(filter.Page, filter.Limit)
	rows, err := r.pool.Query(ctx, query, w.args...)
	if err != nil {
		return nil, 0, shared.WrapInternal("quiz: list results", err)
	}
	results, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Result, error) {
		var res Result
		err := row.Scan(&res.ID, &res.UserID, &res.QuizID, &res.SubjectID, &res.GroupID, &res.CorrectAnswers, &res.WrongAnswers, &res.Grade, &res.CreatedAt)
		return res, err
	})
	if err != nil {
		return nil, 0, shared.WrapInternal("quiz: scan results", err)
	}
	return results, total, nil
}

// ListUserAnswers returns a page of graded answers and the unpaged total.
func (r *PGRepository) ListUserAnswers(ctx context.Context, filter AnswerFilter) ([]UserAnswer, int, error) {
	w := &where{}
	if filter.UserID != nil {
		w.add("user_id = $%d", *filter.UserID)
	}
	if filter.QuizID != nil {
		w.add("quiz_id = $%d", *filter.QuizID)
	}
	if filter.QuestionID != nil {
		w.add("question_id = $%d", *filter.QuestionID)
	}
	total, err := r.count(ctx, "user_answers", w)
	if err != nil {
		return nil, 0, shared.WrapInternal("quiz: count user answers", err)
	}
	query := `SELECT id, user_id, quiz_id, question_id, COALESCE(answer, ''), is_correct, created_at
		FROM user_answers` + w.String() + ` ORDER BY id DESC` + w.page(filter.Page, filter.Limit)
	rows, err := r.pool.Query(ctx, query, w.args...)
	if err != nil {
		return nil, 0, shared.WrapInternal("quiz: list user answers", err)
	}
	answers, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (UserAnswer, error) {
		var a UserAnswer
		err := row.Scan(&a.ID, &a.UserID, &a.QuizID, &a.QuestionID, &a.Answer, &a.IsCorrect, &a.CreatedAt)
		return a, err
	})
	if err != nil {
		return nil, 0, shared.WrapInternal("quiz: scan user answers", err)
	}
	return answers, total, nil
}

var _ Repository = (*PGRepository)(nil)
