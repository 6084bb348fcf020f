package authkit

import (
	"context"
	"log/slog"
	"sync"

	"github.com/codeprac/authkit/oauth"
)

// OTPState is the registration sub-state. It lives beside the session, not
// inside it: nothing here implies the user is signed in.
type OTPState struct {
	// Sent is true once the backend has accepted a send request
	Sent bool
	// Loading is true only while a send or resend call is in flight
	Loading bool
	// Email is the address the outstanding code was issued to. It is
	// non-empty exactly when Sent is true or a send is in flight.
	Email string
}

// State is a snapshot of the session. IsAuthenticated is always derived
// from User in the same mutation step, so IsAuthenticated == (User != nil)
// holds after every settle.
type State struct {
	User            *User
	IsAuthenticated bool
	Loading         bool
	Err             *Error
	OTP             OTPState
}

// StoreOption configures a Store
type StoreOption func(*Store)

// WithProfileCache enables warm starts from, and writes through to, a
// persistent profile cache
func WithProfileCache(c ProfileCache) StoreOption {
	return func(s *Store) {
		s.cache = c
	}
}

// WithGoogleProvider lets the Store build Google consent URLs locally.
// GitHub's initiate URL comes from the backend instead.
func WithGoogleProvider(p *oauth.Provider) StoreOption {
	return func(s *Store) {
		s.google = p
	}
}

// Store is the single source of truth for session state. All mutation
// funnels through one mutex-guarded step, so each action's
// pending/settled pair is atomic from the reader's perspective. The Store
// does not serialize calls themselves: a second Login while one is
// pending is the caller's problem (disable the submit button while
// Loading), matching the stateless-per-call contract.
type Store struct {
	mu        sync.Mutex
	backend   Backend
	cache     ProfileCache
	google    *oauth.Provider
	state     State
	listeners map[int]func(State)
	nextID    int
}

// NewStore creates a Store over the given backend. With a cache configured
// and a live-looking session credential, the last-known profile is loaded
// so the UI renders signed-in immediately; the first CheckAuth corrects it
// if the server disagrees.
func NewStore(backend Backend, opts ...StoreOption) *Store {
	s := &Store{
		backend:   backend,
		listeners: make(map[int]func(State)),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.cache != nil && sessionAlive(backend) {
		if u, err := s.cache.Load(); err == nil && u != nil {
			s.state.User = u
			s.state.IsAuthenticated = true
		}
	}
	return s
}

func sessionAlive(backend Backend) bool {
	if h, ok := backend.(SessionHinter); ok {
		return h.SessionAlive()
	}
	return false
}

// Snapshot returns a copy of the current state
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Subscribe registers fn to run after every state change with the new
// snapshot. The returned func unsubscribes.
func (s *Store) Subscribe(fn func(State)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// mutate applies fn as one atomic step and notifies subscribers with the
// resulting snapshot. Listeners run outside the lock.
func (s *Store) mutate(fn func(*State)) {
	s.mu.Lock()
	fn(&s.state)
	snap := s.state
	fns := make([]func(State), 0, len(s.listeners))
	for _, l := range s.listeners {
		fns = append(fns, l)
	}
	s.mu.Unlock()
	for _, l := range fns {
		l(snap)
	}
}

// begin marks an auth-resolving action pending: loading on, previous
// error cleared
func (s *Store) begin() {
	s.mutate(func(st *State) {
		st.Loading = true
		st.Err = nil
	})
}

// settleIdentity applies the shared fulfilled rule: the user is replaced
// wholesale and isAuthenticated derives from it in the same step
func (s *Store) settleIdentity(u *User, err error, fallback string) (*User, error) {
	if err != nil {
		return nil, s.fail(err, fallback)
	}
	s.mutate(func(st *State) {
		st.User = u
		st.IsAuthenticated = u != nil
		st.Loading = false
		st.Err = nil
	})
	s.cacheUser(u)
	return u, nil
}

// fail applies the shared rejected rule: loading off, error recorded,
// session untouched
func (s *Store) fail(err error, fallback string) error {
	e := asError(err, fallback)
	s.mutate(func(st *State) {
		st.Loading = false
		st.Err = e
	})
	return e
}

func (s *Store) cacheUser(u *User) {
	if s.cache == nil {
		return
	}
	var err error
	if u == nil {
		err = s.cache.Clear()
	} else {
		err = s.cache.Store(u)
	}
	if err != nil {
		slog.Warn("profile cache write failed", "error", err)
	}
}

// Register creates an account directly and signs it in. On failure the
// session is left as it was.
func (s *Store) Register(ctx context.Context, reg Registration) (*User, error) {
	if err := reg.Validate(); err != nil {
		return nil, err
	}
	s.begin()
	u, err := s.backend.Register(ctx, reg)
	return s.settleIdentity(u, err, "Registration failed")
}

// Login exchanges credentials for a session. On failure the session is
// left as it was (in practice logged-out, since login is only offered
// pre-auth).
func (s *Store) Login(ctx context.Context, creds Credentials) (*User, error) {
	if err := creds.Validate(); err != nil {
		return nil, err
	}
	s.begin()
	u, err := s.backend.Login(ctx, creds)
	return s.settleIdentity(u, err, "Login failed")
}

// GoogleLogin exchanges a Google authorization code for a session
func (s *Store) GoogleLogin(ctx context.Context, code string) (*User, error) {
	if code == "" {
		return nil, NewValidationError("Missing authorization code", "code")
	}
	s.begin()
	u, err := s.backend.GoogleExchange(ctx, code)
	return s.settleIdentity(u, err, "Google sign-in failed")
}

// GithubLogin exchanges a GitHub authorization code for a session
func (s *Store) GithubLogin(ctx context.Context, code string) (*User, error) {
	if code == "" {
		return nil, NewValidationError("Missing authorization code", "code")
	}
	s.begin()
	u, err := s.backend.GithubExchange(ctx, code)
	return s.settleIdentity(u, err, "GitHub sign-in failed")
}

// GithubAuthorizeURL asks the backend where to send the browser to start
// the GitHub flow. Pure navigation helper, no state change.
func (s *Store) GithubAuthorizeURL(ctx context.Context) (string, error) {
	return s.backend.GithubAuthorizeURL(ctx)
}

// GoogleAuthorizeURL builds the Google consent URL locally along with the
// state value the callback must echo. Requires WithGoogleProvider.
func (s *Store) GoogleAuthorizeURL() (url, state string, err error) {
	if s.google == nil {
		return "", "", NewValidationError("Google sign-in is not configured", "")
	}
	state, err = oauth.NewState()
	if err != nil {
		return "", "", NewNetworkError("Google sign-in failed")
	}
	return s.google.AuthCodeURL(state), state, nil
}

// CheckAuth probes the session cookie. This is the one action whose
// rejection actively clears the session: a failed probe cannot be assumed
// benign, so the user is forced logged-out regardless of prior state.
func (s *Store) CheckAuth(ctx context.Context) (*User, error) {
	s.begin()
	u, err := s.backend.Check(ctx)
	if err != nil {
		e := asError(err, "Session expired")
		s.mutate(func(st *State) {
			st.User = nil
			st.IsAuthenticated = false
			st.Loading = false
			st.Err = e
		})
		s.cacheUser(nil)
		return nil, e
	}
	return s.settleIdentity(u, nil, "")
}

// FetchUser re-fetches the current user for optional refreshes (e.g.
// after a payment redirect). Unlike CheckAuth, failure only records an
// error and leaves the session alone.
func (s *Store) FetchUser(ctx context.Context) (*User, error) {
	s.begin()
	u, err := s.backend.Check(ctx)
	if err != nil {
		return nil, s.fail(err, "Could not refresh profile")
	}
	return s.settleIdentity(u, nil, "")
}

// Logout notifies the server and clears the local session. The local
// session is cleared even when the server call fails: a client that still
// looks signed in after the server dropped it is worse than a surfaced
// error.
func (s *Store) Logout(ctx context.Context) error {
	s.begin()
	err := s.backend.Logout(ctx)
	var e *Error
	if err != nil {
		e = asError(err, "Logout failed")
	}
	s.mutate(func(st *State) {
		st.User = nil
		st.IsAuthenticated = false
		st.Loading = false
		st.Err = e
	})
	s.cacheUser(nil)
	if e != nil {
		return e
	}
	return nil
}

// SendOTP asks the backend to email a one-time code for the registration
// payload. Only the OTP sub-state is touched; the session and the global
// loading flag stay as they are.
func (s *Store) SendOTP(ctx context.Context, reg Registration) error {
	if err := reg.Validate(); err != nil {
		return err
	}
	s.mutate(func(st *State) {
		st.OTP.Loading = true
		st.OTP.Email = reg.EmailID
		st.Err = nil
	})
	if err := s.backend.SendOTP(ctx, reg); err != nil {
		e := asError(err, "Could not send verification code")
		s.mutate(func(st *State) {
			st.OTP = OTPState{}
			st.Err = e
		})
		return e
	}
	s.mutate(func(st *State) {
		st.OTP.Loading = false
		st.OTP.Sent = true
		st.Err = nil
	})
	return nil
}

// VerifyOTP completes registration with the emailed code. Success
// establishes the session and discards the OTP sub-state in the same
// step; failure records the error and keeps the sub-state so the caller
// can retry without resending.
func (s *Store) VerifyOTP(ctx context.Context, emailID, otp string) (*User, error) {
	if len(otp) != OTPDigits || !allDigits(otp) {
		return nil, NewValidationError("Enter the 6-digit code", "otp")
	}
	s.begin()
	u, err := s.backend.VerifyOTP(ctx, emailID, otp)
	if err != nil {
		return nil, s.fail(err, "Verification failed")
	}
	s.mutate(func(st *State) {
		st.User = u
		st.IsAuthenticated = u != nil
		st.Loading = false
		st.Err = nil
		st.OTP = OTPState{}
	})
	s.cacheUser(u)
	return u, nil
}

// ResetOTP abandons any outstanding OTP registration state
func (s *Store) ResetOTP() {
	s.mutate(func(st *State) {
		st.OTP = OTPState{}
	})
}

// ClearError drops the surfaced error, e.g. when the toast is dismissed
func (s *Store) ClearError() {
	s.mutate(func(st *State) {
		st.Err = nil
	})
}

// ChangePassword updates the password for the signed-in user. The
// confirm-mismatch check fails fast without a network call.
func (s *Store) ChangePassword(ctx context.Context, change PasswordChange) error {
	if err := change.Validate(); err != nil {
		return err
	}
	s.begin()
	if err := s.backend.ChangePassword(ctx, change); err != nil {
		return s.fail(err, "Password change failed")
	}
	s.mutate(func(st *State) {
		st.Loading = false
	})
	return nil
}

// DeleteAccount removes the account and, on success, clears the local
// session just like a logout
func (s *Store) DeleteAccount(ctx context.Context, password string) error {
	if password == "" {
		return NewValidationError("Password is required", "password")
	}
	s.begin()
	if err := s.backend.DeleteAccount(ctx, password); err != nil {
		return s.fail(err, "Account deletion failed")
	}
	s.mutate(func(st *State) {
		st.User = nil
		st.IsAuthenticated = false
		st.Loading = false
	})
	s.cacheUser(nil)
	return nil
}

// UpdateProfile saves profile fields; the response replaces the session
// user wholesale like any other identity-bearing success
func (s *Store) UpdateProfile(ctx context.Context, update ProfileUpdate) (*User, error) {
	if err := update.Validate(); err != nil {
		return nil, err
	}
	s.begin()
	u, err := s.backend.UpdateProfile(ctx, update)
	return s.settleIdentity(u, err, "Profile update failed")
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
