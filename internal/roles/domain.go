package roles

import "time"

// Role is a role together with the permissions granted to it.
type Role struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	IsPrivileged bool      `json:"is_privileged"`
	Permissions  []string  `json:"permissions"`
	Members      int       `json:"members"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// RoleListFilters controls ordering of the role listing.
type RoleListFilters struct {
	SortBy  string
	SortDir string
}
