package session

// User is the identity record held by the [Store]. It is synthesized at login
// from the token response plus the submitted username; fields the backend does
// not return stay zero.
type User struct {
	ID          int64  `json:"id"`
	Username    string `json:"username"`
	Email       string `json:"email,omitempty"`
	FirstName   string `json:"first_name,omitempty"`
	LastName    string `json:"last_name,omitempty"`
	IsStaff     bool   `json:"is_staff,omitempty"`
	IsSuperuser bool   `json:"is_superuser,omitempty"`
	IsActive    bool   `json:"is_active,omitempty"`
}

// Record is the persisted session schema. It is a deliberately separate struct
// from the live store state so the on-disk shape stays stable across in-memory
// refactors; transient fields (loading) never appear here.
type Record struct {
	User          *User  `json:"user,omitempty"`
	AccessToken   string `json:"access_token,omitempty"`
	RefreshToken  string `json:"refresh_token,omitempty"`
	Authenticated bool   `json:"authenticated"`
}

// Credentials are the login inputs forwarded verbatim to the token endpoint.
// This SDK never hashes or stores passwords.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}
