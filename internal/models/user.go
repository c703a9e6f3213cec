package models

// UserMetadata is the free-form part of a user captured at sign-up.
type UserMetadata struct {
	FullName string `json:"full_name,omitempty"`
	Role     string `json:"role,omitempty"`
}

// User is the identity snapshot held by a session.
type User struct {
	ID           string       `json:"id"`
	Email        string       `json:"email"`
	UserMetadata UserMetadata `json:"user_metadata"`
}

// Session is the single active authenticated identity.
type Session struct {
	User        User   `json:"user"`
	ExpiresAt   int64  `json:"expires_at"`
	AccessToken string `json:"access_token,omitempty"`
}

// Expired reports whether the session is no longer valid at unix time now.
func (s *Session) Expired(now int64) bool {
	return s.ExpiresAt != 0 && now >= s.ExpiresAt
}
