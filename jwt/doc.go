// Package jwt signs and verifies the compact tokens issued by the engine:
// short-lived access tokens carrying {uid, sid} and longer-lived refresh
// tokens carrying {sid} only.
//
// The two kinds are signed under distinct key material. That separation is
// a hard invariant: an access token must never verify under the refresh
// configuration or vice versa, so [NewManager] rejects configurations where
// the key material is shared.
//
// # Architecture boundaries
//
// This package is pure computation. It performs no I/O, holds no session
// state, and does not decide whether a verified token still has authority —
// that is the Engine's job against its session store.
package jwt
