package rbac

import (
	"context"
	"log/slog"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Role archetypes created by seeding, in canonical (title-cased) form.
var (
	RoleAdmin   = archetype("admin")
	RoleTeacher = archetype("teacher")
	RoleStudent = archetype("student")
	RoleUser    = archetype("user")
)

var teacherKeywords = []string{"question", "quiz", "statistics", "result", "teacher", "subject"}

var studentPermissions = map[string]struct{}{
	"read:quiz":         {},
	"read:result":       {},
	"user_answers:read": {},
}

const studentPrefix = "quiz_process:"

func archetype(name string) string {
	return cases.Title(language.English).String(strings.ToLower(name))
}

// RoleGrant lists the permissions one role should hold after seeding.
type RoleGrant struct {
	Role        string
	Privileged  bool
	Permissions []string
}

// SeedPlan is the full additive change applied by a SeedStore.
type SeedPlan struct {
	Permissions []string
	Roles       []RoleGrant
}

// SeedReport counts rows actually inserted.
type SeedReport struct {
	PermissionsCreated int64
	RolesEnsured       int
	GrantsCreated      int64
}

// Classify builds the seeding plan for the discovered permission names.
func Classify(discovered []string) SeedPlan {
	admin := RoleGrant{Role: RoleAdmin, Privileged: true}
	teacher := RoleGrant{Role: RoleTeacher}
	student := RoleGrant{Role: RoleStudent}
	user := RoleGrant{Role: RoleUser}

	for _, name := range discovered {
		admin.Permissions = append(admin.Permissions, name)
		if isTeacherPermission(name) {
			teacher.Permissions = append(teacher.Permissions, name)
		}
		if isStudentPermission(name) {
			student.Permissions = append(student.Permissions, name)
		}
	}
	return SeedPlan{
		Permissions: append([]string(nil), discovered...),
		Roles:       []RoleGrant{admin, teacher, student, user},
	}
}

func isTeacherPermission(name string) bool {
	for _, kw := range teacherKeywords {
		if strings.Contains(name, kw) {
			return true
		}
	}
	return false
}

func isStudentPermission(name string) bool {
	if _, ok := studentPermissions[name]; ok {
		return true
	}
	return strings.HasPrefix(name, studentPrefix)
}

// Seeder synchronises the permission store with the guarded routes.
type Seeder struct {
	store  SeedStore
	logger *slog.Logger
}

// NewSeeder constructs a Seeder.
func NewSeeder(store SeedStore, logger *slog.Logger) *Seeder {
	return &Seeder{store: store, logger: logger}
}

// Seed applies the plan for discovered. It is safe to run on every startup.
func (s *Seeder) Seed(ctx context.Context, discovered []string) (SeedReport, error) {
	report, err := s.store.ApplySeed(ctx, Classify(discovered))
	if err != nil {
		return SeedReport{}, err
	}
	if s.logger != nil {
		s.logger.Info("rbac seeded",
			slog.Int("discovered", len(discovered)),
			slog.Int64("permissions_created", report.PermissionsCreated),
			slog.Int("roles", report.RolesEnsured),
			slog.Int64("grants_created", report.GrantsCreated),
		)
	}
	return report, nil
}
