package authkit

import "context"

// Backend is the contract the Store holds against the /user REST API. The
// rest subpackage implements it; tests substitute fakes. Every method that
// can fail returns either an *Error (normalized by the adapter) or a plain
// error, which the Store folds into its network fallback.
type Backend interface {
	// Register creates an account directly (no OTP) and signs it in
	Register(ctx context.Context, reg Registration) (*User, error)

	// SendOTP asks the backend to email a one-time code for reg.EmailID
	SendOTP(ctx context.Context, reg Registration) error

	// VerifyOTP completes registration with the emailed 6-digit code
	VerifyOTP(ctx context.Context, emailID, otp string) (*User, error)

	// Login exchanges credentials for a session cookie
	Login(ctx context.Context, creds Credentials) (*User, error)

	// Check probes whether the current session cookie is still valid
	Check(ctx context.Context) (*User, error)

	// Logout notifies the server; local state is the Store's concern
	Logout(ctx context.Context) error

	// GoogleExchange trades a Google authorization code for a session
	GoogleExchange(ctx context.Context, code string) (*User, error)

	// GithubExchange trades a GitHub authorization code for a session
	GithubExchange(ctx context.Context, code string) (*User, error)

	// GithubAuthorizeURL asks the backend where to send the browser to
	// start the GitHub flow
	GithubAuthorizeURL(ctx context.Context) (string, error)

	// ChangePassword updates the password for the signed-in user
	ChangePassword(ctx context.Context, change PasswordChange) error

	// DeleteAccount removes the signed-in user's account
	DeleteAccount(ctx context.Context, password string) error

	// UpdateProfile saves profile fields and returns the updated user
	UpdateProfile(ctx context.Context, update ProfileUpdate) (*User, error)
}

// SessionHinter is optionally implemented by backends that can tell,
// without a round-trip, whether a session credential might still be live.
// The Store uses it to gate warm-starting from a cached profile.
type SessionHinter interface {
	SessionAlive() bool
}

// ProfileCache persists the last-known user profile between runs so the UI
// can render a signed-in shell before the first session probe resolves.
type ProfileCache interface {
	// Load returns the cached profile, or nil when there is none
	Load() (*User, error)

	// Store replaces the cached profile
	Store(u *User) error

	// Clear removes the cached profile
	Clear() error
}
