package domain

// StaffIdentity identifies a staff member by either username or transport
// user id. Either field alone is sufficient for a membership match.
type StaffIdentity struct {
	Username string `json:"username,omitempty"`
	UserID   int64  `json:"user_id,omitempty"`
}
