package authkit

import "time"

// Built-in role values the backend assigns to accounts
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User is the account record as the backend returns it. The Store treats
// it as immutable: every identity-bearing response replaces the whole
// value, fields are never patched in place.
type User struct {
	ID              int64             `json:"id"`
	FirstName       string            `json:"firstName"`
	LastName        string            `json:"lastName"`
	EmailID         string            `json:"emailId"`
	Role            string            `json:"role"`
	IsPremium       bool              `json:"isPremium"`
	Avatar          string            `json:"avatar,omitempty"`
	Preferences     map[string]any    `json:"preferences,omitempty"`
	SocialLinks     map[string]string `json:"socialLinks,omitempty"`
	DailyChallenges *DailyChallenges  `json:"dailyChallenges,omitempty"`
}

// DailyChallenges tracks the user's practice streak
type DailyChallenges struct {
	Streak          int       `json:"streak"`
	LongestStreak   int       `json:"longestStreak"`
	LastCompletedAt time.Time `json:"lastCompletedAt,omitzero"`
}

// FullName joins first and last name for display
func (u *User) FullName() string {
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

// IsAdmin returns true if the account carries the admin role
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}
