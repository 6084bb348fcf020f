package authkit

import (
	"fmt"
	"regexp"
	"strings"
)

// MinPasswordLength is the weakest password the client will submit
const MinPasswordLength = 8

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// Registration is the signup payload. The same payload drives both direct
// registration and the OTP flow (send, then resend with the original copy).
type Registration struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	EmailID   string `json:"emailId"`
	Password  string `json:"password"`
}

// Validate checks the signup form client-side. Failures never reach the
// Store or the network.
func (r Registration) Validate() error {
	if strings.TrimSpace(r.FirstName) == "" {
		return NewValidationError("First name is required", "firstName")
	}
	if strings.TrimSpace(r.EmailID) == "" {
		return NewValidationError("Email is required", "emailId")
	}
	if !emailRegex.MatchString(r.EmailID) {
		return NewValidationError("Invalid email format", "emailId")
	}
	if r.Password == "" {
		return NewValidationError("Password is required", "password")
	}
	if len(r.Password) < MinPasswordLength {
		return NewValidationError(fmt.Sprintf("Password must be at least %d characters", MinPasswordLength), "password")
	}
	return nil
}

// Credentials is the login payload
type Credentials struct {
	EmailID  string `json:"emailId"`
	Password string `json:"password"`
}

// Validate checks the login form client-side
func (c Credentials) Validate() error {
	if strings.TrimSpace(c.EmailID) == "" {
		return NewValidationError("Email is required", "emailId")
	}
	if !emailRegex.MatchString(c.EmailID) {
		return NewValidationError("Invalid email format", "emailId")
	}
	if c.Password == "" {
		return NewValidationError("Password is required", "password")
	}
	return nil
}

// PasswordChange is the settings-panel payload for PUT /user/password
type PasswordChange struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
	ConfirmPassword string `json:"confirmPassword"`
}

// Validate checks the change-password form client-side. A mismatch between
// the new password and its confirmation never issues a network call.
func (p PasswordChange) Validate() error {
	if p.CurrentPassword == "" {
		return NewValidationError("Current password is required", "currentPassword")
	}
	if len(p.NewPassword) < MinPasswordLength {
		return NewValidationError(fmt.Sprintf("Password must be at least %d characters", MinPasswordLength), "newPassword")
	}
	if p.NewPassword != p.ConfirmPassword {
		return NewValidationError("Passwords do not match", "confirmPassword")
	}
	return nil
}

// ProfileUpdate is the payload for PUT /user/profile. Zero-valued fields
// are omitted so the backend only touches what the form submitted.
type ProfileUpdate struct {
	FirstName   string            `json:"firstName,omitempty"`
	LastName    string            `json:"lastName,omitempty"`
	Avatar      string            `json:"avatar,omitempty"`
	Preferences map[string]any    `json:"preferences,omitempty"`
	SocialLinks map[string]string `json:"socialLinks,omitempty"`
}

// Validate checks the profile form client-side
func (p ProfileUpdate) Validate() error {
	if p.FirstName == "" && p.LastName == "" && p.Avatar == "" &&
		len(p.Preferences) == 0 && len(p.SocialLinks) == 0 {
		return NewValidationError("Nothing to update", "")
	}
	return nil
}
