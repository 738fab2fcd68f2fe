// Package auth provides pluggable bearer-token authentication for the
// prompt-tester gateway.
//
// Authentication uses a chain-of-responsibility pattern with three-outcome
// voting: each authenticator returns Yes (identity found), No (credentials
// invalid), or Abstain (can't handle). A configurable default voter decides
// when all authenticators abstain.
//
// Auth is implemented as HTTP middleware, keeping it decoupled from the
// gateway handlers. The middleware also enforces the per-user rate limit
// and injects the caller's identity into the request context.
package auth
