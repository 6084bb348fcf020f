// Package authkit is the client-side session layer for the codeprac
// platform. It holds the single source of truth for who is signed in,
// runs the OTP signup flow, and decides where navigation is allowed to
// go. Everything the UI needs short of rendering lives here.
//
// # Architecture
//
// Store: owns the session State (user, isAuthenticated, loading, error,
// OTP sub-state) and exposes one method per backend round-trip. Every
// method settles through the same two rules: a pending action turns
// loading on and clears the previous error; an identity-bearing success
// replaces the user wholesale and derives isAuthenticated from it in the
// same step. State updates are serialized, so concurrent in-flight calls
// never interleave partial state.
//
// OTPFlow: the signup state machine layered on the Store. Request a
// code, count down the resend window, collect six digits, verify.
//
// Guard: the navigation decision table. Given the current State and a
// route class it answers allow, redirect, or "still loading".
//
// The rest subpackage is the HTTP adapter for the backend's /user API;
// the oauth subpackage builds provider consent URLs; the cache
// subpackage persists the last-known profile for warm starts.
//
// # Basic Usage
//
// Wire the adapter to a Store and probe the session on startup:
//
//	cfg, err := authkit.LoadConfig()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	backend, err := rest.FromConfig(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	store := authkit.NewStore(backend)
//	unsub := store.Subscribe(func(st authkit.State) {
//	    // re-render from st
//	})
//	defer unsub()
//	store.CheckAuth(ctx)
//
// Signup with email verification:
//
//	flow := authkit.NewOTPFlow(store)
//	if err := flow.Start(ctx, reg); err != nil {
//	    // show err
//	}
//	// user types the emailed code...
//	flow.EnterDigit('4')
//	// ...
//	user, err := flow.Verify(ctx)
//
// # Errors
//
// Every failure surfaces as an *Error carrying a Kind (validation,
// network, auth) and a human-readable Message. Server-supplied messages
// are passed through verbatim; validation failures are caught before any
// network call is made.
package authkit
