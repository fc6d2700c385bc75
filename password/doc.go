// Package password provides Argon2id credential hashing in PHC string
// format. It is the hashing black box the engine calls into: the engine
// never sees raw key material, only opaque encoded hashes.
package password
