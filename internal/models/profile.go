package models

// Role represents a user role in the application.
type Role string

const (
	RoleTeacher Role = "teacher"
	RoleBuyer   Role = "buyer"
)

// ParseRole maps free-form metadata onto a Role, defaulting to buyer.
func ParseRole(s string) Role {
	if Role(s) == RoleTeacher {
		return RoleTeacher
	}
	return RoleBuyer
}

// Profile is the stored counterpart of an authenticated user.
type Profile struct {
	ID        string `json:"id"`
	FullName  string `json:"full_name"`
	Role      Role   `json:"role"`
	Email     string `json:"email,omitempty"`
	AvatarURL string `json:"avatar_url,omitempty"`
	CreatedAt string `json:"created_at"`
}
