package quiz

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/campusquiz/campusquiz/internal/platform/httpx"
	"github.com/campusquiz/campusquiz/internal/rbac"
	"github.com/campusquiz/campusquiz/internal/shared"
)

// Handler exposes quiz endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	rbac      rbac.Middleware
	validator *validator.Validate
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac, validator: validator.New()}
}

// MountRoutes registers every quiz route on r. Each guarded route declares
// its permission while mounting.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/quiz", func(r chi.Router) {
		r.With(h.rbac.Require(shared.PermQuizRead)).Get("/", h.listQuizzes)
		r.With(h.rbac.Require(shared.PermQuizRead)).Get("/{id}", h.getQuiz)
		r.With(h.rbac.Require(shared.PermResultRead)).Get("/{id}/leaderboard", h.leaderboard)
	})
	r.Route("/quiz_process", func(r chi.Router) {
		r.With(h.rbac.Require(shared.PermQuizProcessStart)).Post("/start_quiz", h.startQuiz)
		r.With(h.rbac.Require(shared.PermQuizProcessEnd)).Post("/end_quiz", h.endQuiz)
	})
	r.With(h.rbac.Require(shared.PermResultRead)).Get("/results", h.listResults)
	r.With(h.rbac.Require(shared.PermUserAnswersRead)).Get("/user_answers", h.listUserAnswers)
}

type startQuizRequest struct {
	QuizID int64  `json:"quiz_id" validate:"required,gt=0"`
	PIN    string `json:"pin" validate:"required"`
}

type endQuizRequest struct {
	QuizID  int64    `json:"quiz_id" validate:"required,gt=0"`
	Answers []Answer `json:"answers" validate:"dive"`
}

type listResponse[T any] struct {
	Items      []T               `json:"items"`
	Pagination shared.Pagination `json:"pagination"`
}

func (h *Handler) startQuiz(w http.ResponseWriter, r *http.Request) {
	var req startQuizRequest
	if !h.decode(w, r, &req) {
		return
	}
	principalID, _ := shared.PrincipalIDFromContext(r.Context())
	attempt, err := h.service.StartAttempt(r.Context(), StartInput{QuizID: req.QuizID, PIN: req.PIN, PrincipalID: principalID})
	if err != nil {
		h.fail(w, "start quiz", err)
		return
	}
	httpx.JSON(w, http.StatusOK, attempt)
}

func (h *Handler) endQuiz(w http.ResponseWriter, r *http.Request) {
	var req endQuizRequest
	if !h.decode(w, r, &req) {
		return
	}
	principalID, _ := shared.PrincipalIDFromContext(r.Context())
	outcome, err := h.service.SubmitAttempt(r.Context(), SubmitInput{QuizID: req.QuizID, PrincipalID: principalID, Answers: req.Answers})
	if err != nil {
		h.fail(w, "end quiz", err)
		return
	}
	httpx.JSON(w, http.StatusOK, outcome)
}

func (h *Handler) listQuizzes(w http.ResponseWriter, r *http.Request) {
	principalID, _ := shared.PrincipalIDFromContext(r.Context())
	filter := QuizFilter{
		IsActive:  httpx.QueryBoolPtr(r, "is_active"),
		GroupID:   httpx.QueryInt64Ptr(r, "group_id"),
		SubjectID: httpx.QueryInt64Ptr(r, "subject_id"),
		Title:     strings.TrimSpace(r.URL.Query().Get("title")),
		Page:      httpx.QueryInt(r, "page", 1),
		Limit:     httpx.QueryInt(r, "limit", 0),
	}
	quizzes, page, err := h.service.ListQuizzes(r.Context(), principalID, filter)
	if err != nil {
		h.fail(w, "list quizzes", err)
		return
	}
	httpx.JSON(w, http.StatusOK, listResponse[Quiz]{Items: nonNil(quizzes), Pagination: page})
}

func (h *Handler) getQuiz(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	principalID, _ := shared.PrincipalIDFromContext(r.Context())
	q, err := h.service.GetQuiz(r.Context(), principalID, id)
	if err != nil {
		h.fail(w, "get quiz", err)
		return
	}
	httpx.JSON(w, http.StatusOK, q)
}

func (h *Handler) leaderboard(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	entries, err := h.service.Leaderboard(r.Context(), id, httpx.QueryInt(r, "limit", 10))
	if err != nil {
		h.fail(w, "leaderboard", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"quiz_id": id, "items": nonNil(entries)})
}

func (h *Handler) listResults(w http.ResponseWriter, r *http.Request) {
	filter := ResultFilter{
		UserID:    httpx.QueryInt64Ptr(r, "user_id"),
		QuizID:    httpx.QueryInt64Ptr(r, "quiz_id"),
		GroupID:   httpx.QueryInt64Ptr(r, "group_id"),
		SubjectID: httpx.QueryInt64Ptr(r, "subject_id"),
		Page:      httpx.QueryInt(r, "page", 1),
		Limit:     httpx.QueryInt(r, "limit", 0),
	}
	results, page, err := h.service.ListResults(r.Context(), filter)
	if err != nil {
		h.fail(w, "list results", err)
		return
	}
	httpx.JSON(w, http.StatusOK, listResponse[Result]{Items: nonNil(results), Pagination: page})
}

func (h *Handler) listUserAnswers(w http.ResponseWriter, r *http.Request) {
	filter := AnswerFilter{
		UserID:     httpx.QueryInt64Ptr(r, "user_id"),
		QuizID:     httpx.QueryInt64Ptr(r, "quiz_id"),
		QuestionID: httpx.QueryInt64Ptr(r, "question_id"),
		Page:       httpx.QueryInt(r, "page", 1),
		Limit:      httpx.QueryInt(r, "limit", 0),
	}
	answers, page, err := h.service.ListUserAnswers(r.Context(), filter)
	if err != nil {
		h.fail(w, "list user answers", err)
		return
	}
	httpx.JSON(w, http.StatusOK, listResponse[UserAnswer]{Items: nonNil(answers), Pagination: page})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, target any) bool {
	if err := httpx.DecodeJSON(r, target); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Input", "malformed request body")
		return false
	}
	if err := h.validator.Struct(target); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			httpx.Problem(w, http.StatusBadRequest, "Invalid Input", verrs[0].Namespace()+" failed "+verrs[0].Tag())
			return false
		}
		httpx.Problem(w, http.StatusBadRequest, "Invalid Input", err.Error())
		return false
	}
	return true
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	if errors.Is(err, shared.ErrInternal) && h.logger != nil {
		h.logger.Error(op, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Input", "invalid id")
		return 0, false
	}
	return id, true
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
