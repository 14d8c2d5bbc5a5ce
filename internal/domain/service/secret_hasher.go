// Package service defines interfaces for core, stateless domain logic.
// These services encapsulate business rules that don't naturally fit within a single entity.
package service

// SecretHasher defines one-way hashing and fixed-time comparison of secrets.
// There is no decode operation.
type SecretHasher interface {
	// Hash returns the hex digest of a refresh token secret.
	Hash(secret string) string

	// ConstantTimeEquals compares two digests without leaking matching prefixes.
	ConstantTimeEquals(a, b string) bool

	// Matches verifies a presented applicant secret against its stored digest.
	Matches(secret, storedDigest string) bool
}
