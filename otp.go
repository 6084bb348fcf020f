package authkit

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// OTPDigits is the length of the emailed code
const OTPDigits = 6

// DefaultResendWindow is how long resend stays disabled after a send
const DefaultResendWindow = 300 * time.Second

// OTPPhase enumerates the signup verification flow states
type OTPPhase int

const (
	// OTPIdle means no verification is in progress (the signup form)
	OTPIdle OTPPhase = iota
	// OTPSending means a send or resend call is in flight
	OTPSending
	// OTPSent means a code is outstanding and the countdown is running
	OTPSent
	// OTPVerifying means a verify call is in flight
	OTPVerifying
	// OTPVerified means the session was established; the flow is spent
	OTPVerified
)

func (p OTPPhase) String() string {
	switch p {
	case OTPIdle:
		return "idle"
	case OTPSending:
		return "sending"
	case OTPSent:
		return "sent"
	case OTPVerifying:
		return "verifying"
	case OTPVerified:
		return "verified"
	}
	return "unknown"
}

// OTPFlowOption configures an OTPFlow
type OTPFlowOption func(*OTPFlow)

// WithClock substitutes the countdown clock (fake clocks in tests)
func WithClock(c clockwork.Clock) OTPFlowOption {
	return func(f *OTPFlow) {
		f.clock = c
	}
}

// WithResendWindow overrides the resend lockout duration
func WithResendWindow(d time.Duration) OTPFlowOption {
	return func(f *OTPFlow) {
		f.window = d
	}
}

// WithTick registers a callback invoked once per second with the time
// remaining until resend unlocks, for rendering the countdown
func WithTick(fn func(remaining time.Duration)) OTPFlowOption {
	return func(f *OTPFlow) {
		f.onTick = fn
	}
}

// OTPFlow is the signup verification state machine layered on a Store:
// Idle -> Sending -> Sent -> Verifying -> Verified, with failures falling
// back to Sent or Idle. It owns the resend countdown; the ticker goroutine
// is released on verify, abandon or Close, never leaked.
type OTPFlow struct {
	mu      sync.Mutex
	store   *Store
	clock   clockwork.Clock
	window  time.Duration
	onTick  func(time.Duration)
	phase   OTPPhase
	payload Registration
	digits  [OTPDigits]byte
	cursor  int
	// resendAt is when the resend lockout ends; zero outside Sent/Verifying
	resendAt time.Time
	// stop closes the countdown goroutine; nil when none is running
	stop chan struct{}
}

// NewOTPFlow creates an idle flow over the given store
func NewOTPFlow(store *Store, opts ...OTPFlowOption) *OTPFlow {
	f := &OTPFlow{
		store:  store,
		clock:  clockwork.NewRealClock(),
		window: DefaultResendWindow,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Phase returns the current flow state
func (f *OTPFlow) Phase() OTPPhase {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.phase
}

// Start requests a code for the registration payload and, on success,
// moves to Sent with a fresh countdown. The payload is kept for resends.
func (f *OTPFlow) Start(ctx context.Context, reg Registration) error {
	f.mu.Lock()
	if f.phase != OTPIdle {
		f.mu.Unlock()
		return NewValidationError("Verification already in progress", "")
	}
	f.phase = OTPSending
	f.payload = reg
	f.mu.Unlock()

	if err := f.store.SendOTP(ctx, reg); err != nil {
		f.mu.Lock()
		f.phase = OTPIdle
		f.payload = Registration{}
		f.mu.Unlock()
		return err
	}

	f.mu.Lock()
	f.phase = OTPSent
	f.armCountdownLocked()
	f.mu.Unlock()
	return nil
}

// Remaining is the time until resend unlocks; zero once it is allowed
func (f *OTPFlow) Remaining() time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.remainingLocked()
}

func (f *OTPFlow) remainingLocked() time.Duration {
	if f.resendAt.IsZero() {
		return 0
	}
	rem := f.resendAt.Sub(f.clock.Now())
	if rem < 0 {
		return 0
	}
	return rem
}

// CanResend reports whether a resend would be accepted right now
func (f *OTPFlow) CanResend() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.phase == OTPSent && f.remainingLocked() == 0
}

// EnterDigit records d in the next open slot, mirroring the form's focus
// auto-advance
func (f *OTPFlow) EnterDigit(d byte) error {
	if d < '0' || d > '9' {
		return NewValidationError("Only digits are allowed", "otp")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.phase != OTPSent {
		return NewValidationError("No verification in progress", "otp")
	}
	if f.cursor >= OTPDigits {
		return NewValidationError("Code is already complete", "otp")
	}
	f.digits[f.cursor] = d
	f.cursor++
	return nil
}

// Backspace clears the slot behind the cursor, matching the form's
// focus-moves-back-on-backspace behavior. Backspace on an empty code is a
// no-op.
func (f *OTPFlow) Backspace() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cursor > 0 {
		f.cursor--
		f.digits[f.cursor] = 0
	}
}

// Code returns the digits entered so far
func (f *OTPFlow) Code() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return string(f.digits[:f.cursor])
}

// Verify submits the entered code. Fewer than six digits fails fast
// locally with no network call. On failure the flow returns to Sent with
// the countdown still running and the digits kept, so the user can retry
// without resending.
func (f *OTPFlow) Verify(ctx context.Context) (*User, error) {
	f.mu.Lock()
	if f.phase != OTPSent {
		f.mu.Unlock()
		return nil, NewValidationError("No verification in progress", "otp")
	}
	if f.cursor < OTPDigits {
		f.mu.Unlock()
		return nil, NewValidationError("Enter the 6-digit code", "otp")
	}
	code := string(f.digits[:])
	email := f.payload.EmailID
	f.phase = OTPVerifying
	f.mu.Unlock()

	u, err := f.store.VerifyOTP(ctx, email, code)

	f.mu.Lock()
	defer f.mu.Unlock()
	if err != nil {
		f.phase = OTPSent
		return nil, err
	}
	f.phase = OTPVerified
	f.resendAt = time.Time{}
	f.stopCountdownLocked()
	return u, nil
}

// Resend reissues a code with the original registration payload. It is
// rejected locally, without a network call, while the countdown is still
// positive. Success resets the countdown and clears the entered digits.
func (f *OTPFlow) Resend(ctx context.Context) error {
	f.mu.Lock()
	if f.phase != OTPSent {
		f.mu.Unlock()
		return NewValidationError("No verification in progress", "otp")
	}
	if f.remainingLocked() > 0 {
		f.mu.Unlock()
		return NewValidationError("Wait for the countdown before resending", "otp")
	}
	reg := f.payload
	f.phase = OTPSending
	f.mu.Unlock()

	if err := f.store.SendOTP(ctx, reg); err != nil {
		f.mu.Lock()
		// window already elapsed, so resend stays enabled for a retry
		f.phase = OTPSent
		f.mu.Unlock()
		return err
	}

	f.mu.Lock()
	f.phase = OTPSent
	f.clearDigitsLocked()
	f.armCountdownLocked()
	f.mu.Unlock()
	return nil
}

// Abandon is the "go back" action: the flow returns to Idle, digits and
// countdown are discarded, and the store's OTP binding is reset
func (f *OTPFlow) Abandon() {
	f.mu.Lock()
	f.stopCountdownLocked()
	f.clearDigitsLocked()
	f.phase = OTPIdle
	f.payload = Registration{}
	f.resendAt = time.Time{}
	f.mu.Unlock()
	f.store.ResetOTP()
}

// Close releases the countdown goroutine without touching flow or store
// state. Call it when the owning view unmounts mid-flow.
func (f *OTPFlow) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopCountdownLocked()
}

func (f *OTPFlow) clearDigitsLocked() {
	f.digits = [OTPDigits]byte{}
	f.cursor = 0
}

// armCountdownLocked resets the resend deadline and replaces any running
// ticker goroutine with a fresh one
func (f *OTPFlow) armCountdownLocked() {
	f.stopCountdownLocked()
	f.resendAt = f.clock.Now().Add(f.window)
	stop := make(chan struct{})
	f.stop = stop
	go f.runCountdown(stop, f.resendAt)
}

func (f *OTPFlow) stopCountdownLocked() {
	if f.stop != nil {
		close(f.stop)
		f.stop = nil
	}
}

// runCountdown ticks once per second until the deadline passes or the
// flow stops it. The deadline, not tick counting, is the source of truth,
// so a slow ticker cannot stretch the lockout.
func (f *OTPFlow) runCountdown(stop chan struct{}, deadline time.Time) {
	ticker := f.clock.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case now := <-ticker.Chan():
			rem := deadline.Sub(now)
			if rem < 0 {
				rem = 0
			}
			if f.onTick != nil {
				f.onTick(rem)
			}
			if rem == 0 {
				return
			}
		}
	}
}
