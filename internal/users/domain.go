package users

import "time"

// User is an account as shown to administrators. Password hashes never leave
// the auth package.
type User struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Roles     []string  `json:"roles"`
	GroupID   *int64    `json:"group_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ListFilter narrows the user listing.
type ListFilter struct {
	Username string
	Role     string
	Page     int
	Limit    int
}
