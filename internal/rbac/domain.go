package rbac

import (
	"errors"
	"fmt"
	"time"

	"github.com/campusquiz/campusquiz/internal/shared"
)

// Role groups permissions. A privileged role bypasses permission checks.
type Role struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	IsPrivileged bool   `json:"is_privileged"`
}

// Permission represents an atomic capability.
type Permission struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Principal is the authenticated actor together with its held roles.
type Principal struct {
	ID       int64
	Username string
	Roles    []Role
}

// Privileged reports whether any held role carries the privilege flag.
func (p Principal) Privileged() bool {
	for _, role := range p.Roles {
		if role.IsPrivileged {
			return true
		}
	}
	return false
}

// RoleIDs returns the identifiers of the held roles.
func (p Principal) RoleIDs() []int64 {
	ids := make([]int64, 0, len(p.Roles))
	for _, role := range p.Roles {
		ids = append(ids, role.ID)
	}
	return ids
}

// DenyReason explains a negative decision.
type DenyReason string

const (
	// ReasonNone is used for allowed decisions.
	ReasonNone DenyReason = ""
	// ReasonPermissionJustCreated means the permission did not exist and was created by this request.
	ReasonPermissionJustCreated DenyReason = "permission_just_created"
	// ReasonNotAssigned means no held role is linked to the permission.
	ReasonNotAssigned DenyReason = "not_assigned"
)

// Decision is the outcome of resolving one permission for one principal.
type Decision struct {
	Allowed    bool
	Reason     DenyReason
	Permission string
}

// Allow builds a positive decision.
func Allow(permission string) Decision {
	return Decision{Allowed: true, Permission: permission}
}

// Deny builds a negative decision.
func Deny(permission string, reason DenyReason) Decision {
	return Decision{Permission: permission, Reason: reason}
}

// Message renders the client facing text for a denial.
func (d Decision) Message() string {
	switch d.Reason {
	case ReasonPermissionJustCreated:
		return fmt.Sprintf("Permission '%s' created. Assign it to a role.", d.Permission)
	case ReasonNotAssigned:
		return fmt.Sprintf("Access denied: user lacks '%s' permission", d.Permission)
	}
	return ""
}

// DeniedError is returned by Service.Authorize for negative decisions.
type DeniedError struct {
	Permission string
	Reason     DenyReason
}

func (e *DeniedError) Error() string {
	return Decision{Permission: e.Permission, Reason: e.Reason}.Message()
}

// Unwrap lets callers match shared.ErrForbidden.
func (e *DeniedError) Unwrap() error {
	return shared.ErrForbidden
}

// AsDenied extracts a DeniedError from err.
func AsDenied(err error) (*DeniedError, bool) {
	var denied *DeniedError
	if errors.As(err, &denied) {
		return denied, true
	}
	return nil, false
}
