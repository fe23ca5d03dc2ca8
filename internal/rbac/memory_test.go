package rbac_test

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/campusquiz/campusquiz/internal/rbac"
	"github.com/campusquiz/campusquiz/internal/shared"
)

type memoryStore struct {
	mu          sync.Mutex
	nextID      int64
	principals  map[int64]rbac.Principal
	roles       map[string]rbac.Role
	permissions map[string]rbac.Permission
	links       map[[2]int64]struct{}

	createCalls int
	// raceOnCreate simulates another process inserting the row first.
	raceOnCreate bool
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		principals:  make(map[int64]rbac.Principal),
		roles:       make(map[string]rbac.Role),
		permissions: make(map[string]rbac.Permission),
		links:       make(map[[2]int64]struct{}),
	}
}

func (m *memoryStore) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *memoryStore) addRole(name string, privileged bool) rbac.Role {
	m.mu.Lock()
	defer m.mu.Unlock()
	if role, ok := m.roles[name]; ok {
		return role
	}
	role := rbac.Role{ID: m.id(), Name: name, IsPrivileged: privileged}
	m.roles[name] = role
	return role
}

func (m *memoryStore) addPrincipal(id int64, username string, roles ...rbac.Role) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.principals[id] = rbac.Principal{ID: id, Username: username, Roles: roles}
}

func (m *memoryStore) addPermission(name string) rbac.Permission {
	m.mu.Lock()
	defer m.mu.Unlock()
	if perm, ok := m.permissions[name]; ok {
		return perm
	}
	perm := rbac.Permission{ID: m.id(), Name: name, CreatedAt: time.Now()}
	m.permissions[name] = perm
	return perm
}

func (m *memoryStore) link(role rbac.Role, perm rbac.Permission) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.links[[2]int64{role.ID, perm.ID}] = struct{}{}
}

func (m *memoryStore) hasLink(roleName, permName string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	role, ok := m.roles[roleName]
	if !ok {
		return false
	}
	perm, ok := m.permissions[permName]
	if !ok {
		return false
	}
	_, ok = m.links[[2]int64{role.ID, perm.ID}]
	return ok
}

func (m *memoryStore) LoadPrincipalWithRoles(ctx context.Context, principalID int64) (rbac.Principal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.principals[principalID]
	if !ok {
		return rbac.Principal{}, fmt.Errorf("principal %d: %w", principalID, shared.ErrNotFound)
	}
	return p, nil
}

func (m *memoryStore) FindPermission(ctx context.Context, name string) (rbac.Permission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	perm, ok := m.permissions[name]
	if !ok {
		return rbac.Permission{}, fmt.Errorf("permission %q: %w", name, shared.ErrNotFound)
	}
	return perm, nil
}

func (m *memoryStore) CreatePermission(ctx context.Context, name string) (rbac.Permission, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createCalls++
	if perm, ok := m.permissions[name]; ok {
		return perm, false, nil
	}
	perm := rbac.Permission{ID: m.id(), Name: name, CreatedAt: time.Now()}
	m.permissions[name] = perm
	if m.raceOnCreate {
		return perm, false, nil
	}
	return perm, true, nil
}

func (m *memoryStore) HasRolePermission(ctx context.Context, roleIDs []int64, permissionID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range roleIDs {
		if _, ok := m.links[[2]int64{id, permissionID}]; ok {
			return true, nil
		}
	}
	return false, nil
}

func (m *memoryStore) ListPermissions(ctx context.Context) ([]rbac.Permission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]rbac.Permission, 0, len(m.permissions))
	for _, p := range m.permissions {
		out = append(out, p)
	}
	return out, nil
}

func (m *memoryStore) ApplySeed(ctx context.Context, plan rbac.SeedPlan) (rbac.SeedReport, error) {
	var report rbac.SeedReport
	for _, name := range plan.Permissions {
		m.mu.Lock()
		_, exists := m.permissions[name]
		m.mu.Unlock()
		if !exists {
			m.addPermission(name)
			report.PermissionsCreated++
		}
	}
	for _, grant := range plan.Roles {
		role := m.addRole(grant.Role, grant.Privileged)
		if grant.Privileged && !role.IsPrivileged {
			m.mu.Lock()
			role.IsPrivileged = true
			m.roles[grant.Role] = role
			m.mu.Unlock()
		}
		report.RolesEnsured++
		for _, name := range grant.Permissions {
			if m.hasLink(grant.Role, name) {
				continue
			}
			m.link(role, m.addPermission(name))
			report.GrantsCreated++
		}
	}
	return report, nil
}

type countingRecorder struct {
	mu       sync.Mutex
	outcomes map[string]int
}

func (c *countingRecorder) ObserveAuthzDecision(outcome string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.outcomes == nil {
		c.outcomes = make(map[string]int)
	}
	c.outcomes[outcome]++
}

func (c *countingRecorder) count(outcome string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.outcomes[outcome]
}
