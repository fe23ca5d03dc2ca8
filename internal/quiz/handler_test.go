package quiz_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/campusquiz/campusquiz/internal/quiz"
	"github.com/campusquiz/campusquiz/internal/rbac"
	"github.com/campusquiz/campusquiz/internal/shared"
	_ "github.com/campusquiz/campusquiz/testing"
)

// adminDirectory resolves every principal to a privileged role.
type adminDirectory struct{}

func (adminDirectory) LoadPrincipalWithRoles(ctx context.Context, id int64) (rbac.Principal, error) {
	return rbac.Principal{ID: id, Username: "admin", Roles: []rbac.Role{{ID: 1, Name: rbac.RoleAdmin, IsPrivileged: true}}}, nil
}

func (adminDirectory) FindPermission(ctx context.Context, name string) (rbac.Permission, error) {
	return rbac.Permission{}, shared.ErrNotFound
}

func (adminDirectory) CreatePermission(ctx context.Context, name string) (rbac.Permission, bool, error) {
	return rbac.Permission{ID: 1, Name: name}, true, nil
}

func (adminDirectory) HasRolePermission(ctx context.Context, roleIDs []int64, permissionID int64) (bool, error) {
	return false, nil
}

func (adminDirectory) ListPermissions(ctx context.Context) ([]rbac.Permission, error) {
	return nil, nil
}

func newQuizRouter(repo *memoryRepo, registry *rbac.Registry) http.Handler {
	mw := rbac.Middleware{Service: rbac.NewService(adminDirectory{}, nil, nil), Registry: registry}
	handler := quiz.NewHandler(nil, quiz.NewService(repo, quiz.Options{}), mw)
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(shared.ContextWithPrincipalID(req.Context(), 7)))
		})
	})
	handler.MountRoutes(r)
	return r
}

func doJSON(router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)
	return res
}

func TestMountRoutesDeclaresPermissions(t *testing.T) {
	registry := rbac.NewRegistry()
	newQuizRouter(newMemoryRepo(), registry)

	got := registry.Discover()
	want := []string{
		shared.PermQuizProcessEnd,
		shared.PermQuizProcessStart,
		shared.PermQuizRead,
		shared.PermResultRead,
		shared.PermUserAnswersRead,
	}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestStartQuizEndpoint(t *testing.T) {
	router := newQuizRouter(seededRepo(2, nil, 4), rbac.NewRegistry())

	res := doJSON(router, http.MethodPost, "/quiz_process/start_quiz", `{"quiz_id":1,"pin":"4821"}`)
	if res.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", res.Code, res.Body.String())
	}
	var attempt quiz.Attempt
	if err := json.Unmarshal(res.Body.Bytes(), &attempt); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if attempt.QuizID != 1 || len(attempt.Questions) != 2 {
		t.Fatalf("unexpected attempt %+v", attempt)
	}
	if strings.Contains(res.Body.String(), "correct") || strings.Contains(res.Body.String(), "4821") {
		t.Fatalf("response leaks answer key or pin: %s", res.Body.String())
	}
}

func TestStartQuizEndpointErrors(t *testing.T) {
	repo := seededRepo(2, nil, 4)
	inactive := activeQuiz(2, 1, nil)
	inactive.IsActive = false
	repo.addQuiz(inactive)
	router := newQuizRouter(repo, rbac.NewRegistry())

	cases := []struct {
		body   string
		status int
	}{
		{`{"quiz_id":1,"pin":"0000"}`, http.StatusForbidden},
		{`{"quiz_id":9,"pin":"4821"}`, http.StatusNotFound},
		{`{"quiz_id":2,"pin":"4821"}`, http.StatusConflict},
		{`{"quiz_id":1}`, http.StatusBadRequest},
		{`{"quiz_id":1,"pin":"4821","extra":true}`, http.StatusBadRequest},
	}
	for _, tc := range cases {
		res := doJSON(router, http.MethodPost, "/quiz_process/start_quiz", tc.body)
		if res.Code != tc.status {
			t.Fatalf("%s: expected status %d, got %d", tc.body, tc.status, res.Code)
		}
	}
}

func TestEndQuizEndpoint(t *testing.T) {
	repo := seededRepo(2, nil, 2)
	router := newQuizRouter(repo, rbac.NewRegistry())

	res := doJSON(router, http.MethodPost, "/quiz_process/end_quiz",
		`{"quiz_id":1,"answers":[{"question_id":101,"answer":"right-101"},{"question_id":102,"answer":"nope"}]}`)
	if res.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", res.Code, res.Body.String())
	}
	var out map[string]int
	if err := json.Unmarshal(res.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out["total_questions"] != 2 || out["correct_answers"] != 1 || out["wrong_answers"] != 1 || out["grade"] != 50 {
		t.Fatalf("unexpected outcome %v", out)
	}

	res = doJSON(router, http.MethodPost, "/quiz_process/end_quiz",
		`{"quiz_id":1,"answers":[{"question_id":555,"answer":"x"}]}`)
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 for unknown question, got %d", res.Code)
	}
	if !strings.Contains(res.Body.String(), "invalid question_id: 555") {
		t.Fatalf("expected question id in problem detail, got %s", res.Body.String())
	}
}

func TestListEndpoints(t *testing.T) {
	repo := seededRepo(1, nil, 1)
	router := newQuizRouter(repo, rbac.NewRegistry())
	doJSON(router, http.MethodPost, "/quiz_process/end_quiz", `{"quiz_id":1,"answers":[{"question_id":101,"answer":"right-101"}]}`)

	for _, path := range []string{"/quiz", "/quiz/1", "/results", "/user_answers", "/quiz/1/leaderboard"} {
		res := doJSON(router, http.MethodGet, path, "")
		if res.Code != http.StatusOK {
			t.Fatalf("%s: expected status 200, got %d: %s", path, res.Code, res.Body.String())
		}
		if strings.Contains(res.Body.String(), "4821") {
			t.Fatalf("%s leaks pin", path)
		}
	}

	res := doJSON(router, http.MethodGet, "/quiz/abc", "")
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 for bad id, got %d", res.Code)
	}
}
