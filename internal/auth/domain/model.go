package domain

// User is the signed-in identity as reported by the authentication provider.
// The application never mutates it.
type User struct {
	ID          string  `json:"id"`
	Email       *string `json:"email,omitempty"`
	DisplayName *string `json:"display_name,omitempty"`
	AvatarURL   *string `json:"avatar_url,omitempty"`
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// NewUser builds a User, leaving empty profile fields unset.
func NewUser(id, email, displayName, avatarURL string) *User {
	return &User{
		ID:          id,
		Email:       optional(email),
		DisplayName: optional(displayName),
		AvatarURL:   optional(avatarURL),
	}
}

// Value dereferences an optional profile field.
func Value(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
