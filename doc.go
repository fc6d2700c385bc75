// Package authgate provides a session and token lifecycle engine for
// multi-user services: account registration, credential verification,
// session creation, JWT access/refresh token issuance, and sliding
// refresh-token rotation with an optional MFA gate.
//
// The package is designed for concurrent server workloads: Engine methods
// are safe to call from multiple goroutines after initialization through
// [Builder.Build]. The engine itself is stateless per call; all durable
// state lives in the injected [UserProvider] and [SessionStore].
//
// # Architecture boundaries
//
// authgate is the public surface. It exposes [Engine], [Builder], [Config],
// the store interfaces, and the typed error taxonomy. Token signing lives in
// the jwt sub-package, session persistence in the session sub-package, and
// password hashing in the password sub-package. None of the sub-packages
// import authgate.
//
// # What this package must NOT do
//
//   - Parse HTTP requests, cookies, or any other wire transport.
//   - Send email; verification-code delivery belongs to the caller.
//   - Retry store failures; every failure is surfaced as a typed error and
//     retry policy is the caller's decision.
package authgate
