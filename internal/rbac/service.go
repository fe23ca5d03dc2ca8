package rbac

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/campusquiz/campusquiz/internal/shared"
)

// Decision outcomes reported to a DecisionRecorder.
const (
	OutcomeAllowed           = "allowed"
	OutcomePrivileged        = "privileged"
	OutcomePermissionCreated = "permission_created"
	OutcomeNotAssigned       = "not_assigned"
	OutcomeUnknownPrincipal  = "unknown_principal"
	OutcomeError             = "error"
)

// permissionCreateTimeout bounds the detached auto-create insert.
const permissionCreateTimeout = 5 * time.Second

// DecisionRecorder receives one outcome per resolution.
type DecisionRecorder interface {
	ObserveAuthzDecision(outcome string)
}

// Service resolves permissions against the store on every call.
type Service struct {
	repo     Repository
	logger   *slog.Logger
	recorder DecisionRecorder
	creates  singleflight.Group
}

// NewService constructs a Service. logger and recorder may be nil.
func NewService(repo Repository, logger *slog.Logger, recorder DecisionRecorder) *Service {
	return &Service{repo: repo, logger: logger, recorder: recorder}
}

type createResult struct {
	perm    Permission
	created bool
}

// Resolve decides whether principalID holds permission. The loaded principal
// is returned alongside so callers need not load it again.
func (s *Service) Resolve(ctx context.Context, principalID int64, permission string) (Decision, Principal, error) {
	permission = strings.TrimSpace(permission)
	if permission == "" {
		return Decision{}, Principal{}, fmt.Errorf("rbac: empty permission: %w", shared.ErrInvalidInput)
	}

	principal, err := s.repo.LoadPrincipalWithRoles(ctx, principalID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			s.observe(OutcomeUnknownPrincipal)
		} else {
			s.observe(OutcomeError)
		}
		return Decision{}, Principal{}, err
	}

	if principal.Privileged() {
		s.observe(OutcomePrivileged)
		return Allow(permission), principal, nil
	}

	perm, err := s.repo.FindPermission(ctx, permission)
	if err != nil {
		if !errors.Is(err, shared.ErrNotFound) {
			s.observe(OutcomeError)
			return Decision{}, Principal{}, err
		}
		var justCreated bool
		perm, justCreated, err = s.createPermission(ctx, permission)
		if err != nil {
			s.observe(OutcomeError)
			return Decision{}, Principal{}, err
		}
		if justCreated {
			s.log().Info("permission auto-created",
				slog.String("permission", permission),
				slog.Int64("principal_id", principalID))
			s.observe(OutcomePermissionCreated)
			return Deny(permission, ReasonPermissionJustCreated), principal, nil
		}
	}

	linked, err := s.repo.HasRolePermission(ctx, principal.RoleIDs(), perm.ID)
	if err != nil {
		s.observe(OutcomeError)
		return Decision{}, Principal{}, err
	}
	if !linked {
		s.observe(OutcomeNotAssigned)
		return Deny(permission, ReasonNotAssigned), principal, nil
	}
	s.observe(OutcomeAllowed)
	return Allow(permission), principal, nil
}

// createPermission collapses concurrent in-process creations of one name.
// Only the caller whose function ran and whose insert won reports creation;
// everyone else treats the row as pre-existing. The shared insert is detached
// from the leader's cancellation since followers wait on its result.
func (s *Service) createPermission(ctx context.Context, name string) (Permission, bool, error) {
	leader := false
	v, err, _ := s.creates.Do(name, func() (any, error) {
		leader = true
		createCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), permissionCreateTimeout)
		defer cancel()
		perm, created, err := s.repo.CreatePermission(createCtx, name)
		if err != nil {
			return nil, err
		}
		return createResult{perm: perm, created: created}, nil
	})
	if err != nil {
		return Permission{}, false, err
	}
	res := v.(createResult)
	return res.perm, res.created && leader, nil
}

// Authorize resolves and converts a denial into a *DeniedError.
func (s *Service) Authorize(ctx context.Context, principalID int64, permission string) (Principal, error) {
	decision, principal, err := s.Resolve(ctx, principalID, permission)
	if err != nil {
		return Principal{}, err
	}
	if !decision.Allowed {
		return principal, &DeniedError{Permission: decision.Permission, Reason: decision.Reason}
	}
	return principal, nil
}

// ListPermissions returns the stored permissions.
func (s *Service) ListPermissions(ctx context.Context) ([]Permission, error) {
	return s.repo.ListPermissions(ctx)
}

func (s *Service) observe(outcome string) {
	if s.recorder != nil {
		s.recorder.ObserveAuthzDecision(outcome)
	}
}

func (s *Service) log() *slog.Logger {
	if s.logger != nil {
		return s.logger
	}
	return slog.Default()
}
