// Package uniuri generates cryptographically secure random strings.
// The oidcauth package draws its state and nonce values from it.
package uniuri
