package model

const RoleUser = "user"

// Identity is the authenticated caller, resolved once by the auth middleware.
type Identity struct {
	Username string
	Email    string
	Role     string
}

type User struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}

type AuthResult struct {
	User  User   `json:"user"`
	Token string `json:"token"`
}
