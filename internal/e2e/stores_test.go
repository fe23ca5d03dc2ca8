package e2e

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/campusquiz/campusquiz/internal/auth"
	"github.com/campusquiz/campusquiz/internal/quiz"
	"github.com/campusquiz/campusquiz/internal/rbac"
	"github.com/campusquiz/campusquiz/internal/shared"
)

// campus is an in-memory stand-in for the PostgreSQL schema, shared by the
// auth, rbac and quiz ports.
type campus struct {
	mu sync.Mutex

	users      map[string]auth.User
	userRoles  map[int64][]string
	roles      map[string]rbac.Role
	perms      map[string]rbac.Permission
	grants     map[int64]map[int64]bool
	nextRoleID int64
	nextPermID int64

	quizzes   map[int64]quiz.Quiz
	pools     map[int64][]int64
	questions map[int64]quiz.Question
	members   map[int64]quiz.CohortMember
	answers   []quiz.UserAnswer
	results   []quiz.Result
}

func newCampus() *campus {
	return &campus{
		users:     map[string]auth.User{},
		userRoles: map[int64][]string{},
		roles:     map[string]rbac.Role{},
		perms:     map[string]rbac.Permission{},
		grants:    map[int64]map[int64]bool{},
		quizzes:   map[int64]quiz.Quiz{},
		pools:     map[int64][]int64{},
		questions: map[int64]quiz.Question{},
		members:   map[int64]quiz.CohortMember{},
	}
}

// auth.Repository

func (c *campus) FindByUsername(ctx context.Context, username string) (*auth.User, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	u, ok := c.users[username]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &u, nil
}

// rbac.Repository and rbac.SeedStore

func (c *campus) LoadPrincipalWithRoles(ctx context.Context, id int64) (rbac.Principal, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, u := range c.users {
		if u.ID != id {
			continue
		}
		p := rbac.Principal{ID: u.ID, Username: u.Username}
		for _, name := range c.userRoles[id] {
			if role, ok := c.roles[name]; ok {
				p.Roles = append(p.Roles, role)
			}
		}
		return p, nil
	}
	return rbac.Principal{}, shared.ErrNotFound
}

func (c *campus) FindPermission(ctx context.Context, name string) (rbac.Permission, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.perms[name]
	if !ok {
		return rbac.Permission{}, shared.ErrNotFound
	}
	return p, nil
}

func (c *campus) CreatePermission(ctx context.Context, name string) (rbac.Permission, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if p, ok := c.perms[name]; ok {
		return p, false, nil
	}
	return c.insertPermission(name), true, nil
}

func (c *campus) insertPermission(name string) rbac.Permission {
	c.nextPermID++
	p := rbac.Permission{ID: c.nextPermID, Name: name, CreatedAt: time.Now()}
	c.perms[name] = p
	return p
}

func (c *campus) HasRolePermission(ctx context.Context, roleIDs []int64, permissionID int64) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range roleIDs {
		if c.grants[id][permissionID] {
			return true, nil
		}
	}
	return false, nil
}

func (c *campus) ListPermissions(ctx context.Context) ([]rbac.Permission, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]rbac.Permission, 0, len(c.perms))
	for _, p := range c.perms {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (c *campus) ApplySeed(ctx context.Context, plan rbac.SeedPlan) (rbac.SeedReport, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var report rbac.SeedReport
	for _, name := range plan.Permissions {
		if _, ok := c.perms[name]; !ok {
			c.insertPermission(name)
			report.PermissionsCreated++
		}
	}
	for _, grant := range plan.Roles {
		role, ok := c.roles[grant.Role]
		if !ok {
			c.nextRoleID++
			role = rbac.Role{ID: c.nextRoleID, Name: grant.Role}
		}
		role.IsPrivileged = role.IsPrivileged || grant.Privileged
		c.roles[grant.Role] = role
		report.RolesEnsured++
		if c.grants[role.ID] == nil {
			c.grants[role.ID] = map[int64]bool{}
		}
		for _, name := range grant.Permissions {
			p := c.perms[name]
			if !c.grants[role.ID][p.ID] {
				c.grants[role.ID][p.ID] = true
				report.GrantsCreated++
			}
		}
	}
	return report, nil
}

// quiz.Repository

func (c *campus) GetQuiz(ctx context.Context, id int64) (quiz.Quiz, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	q, ok := c.quizzes[id]
	if !ok {
		return quiz.Quiz{}, shared.ErrNotFound
	}
	return q, nil
}

func (c *campus) GetQuizWithPool(ctx context.Context, id int64) (quiz.Quiz, []quiz.Question, error) {
	q, err := c.GetQuiz(ctx, id)
	if err != nil {
		return quiz.Quiz{}, nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	var pool []quiz.Question
	for _, qid := range c.pools[id] {
		pool = append(pool, c.questions[qid])
	}
	return q, pool, nil
}

func (c *campus) FindCohortMember(ctx context.Context, userID int64) (*quiz.CohortMember, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	m, ok := c.members[userID]
	if !ok {
		return nil, nil
	}
	return &m, nil
}

func (c *campus) QuestionsByIDs(ctx context.Context, ids []int64) (map[int64]quiz.Question, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := map[int64]quiz.Question{}
	for _, id := range ids {
		if q, ok := c.questions[id]; ok {
			out[id] = q
		}
	}
	return out, nil
}

func (c *campus) RecordAttempt(ctx context.Context, rec quiz.AttemptRecord) (quiz.Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now()
	userID, quizID := rec.UserID, rec.QuizID
	for _, a := range rec.Answers {
		questionID := a.QuestionID
		c.answers = append(c.answers, quiz.UserAnswer{
			ID: int64(len(c.answers) + 1), UserID: &userID, QuizID: &quizID, QuestionID: &questionID,
			Answer: a.Text, IsCorrect: a.IsCorrect, CreatedAt: now,
		})
	}
	res := quiz.Result{
		ID: int64(len(c.results) + 1), UserID: &userID, QuizID: &quizID,
		SubjectID: rec.SubjectID, GroupID: rec.GroupID,
		CorrectAnswers: rec.Outcome.Correct, WrongAnswers: rec.Outcome.Wrong, Grade: rec.Outcome.Grade,
		CreatedAt: now,
	}
	c.results = append(c.results, res)
	return res, nil
}

func (c *campus) ListQuizzes(ctx context.Context, filter quiz.QuizFilter) ([]quiz.Quiz, int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []quiz.Quiz
	for _, q := range c.quizzes {
		if filter.Cohort != nil && q.GroupID != nil &&
			(filter.Cohort.GroupID == nil || *filter.Cohort.GroupID != *q.GroupID) {
			continue
		}
		out = append(out, q)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, len(out), nil
}

func (c *campus) ListResults(ctx context.Context, filter quiz.ResultFilter) ([]quiz.Result, int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]quiz.Result(nil), c.results...), len(c.results), nil
}

func (c *campus) ListUserAnswers(ctx context.Context, filter quiz.AnswerFilter) ([]quiz.UserAnswer, int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]quiz.UserAnswer(nil), c.answers...), len(c.answers), nil
}
