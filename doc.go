// Package main provides the entry point of the oidcfiber demo service.
// It reads etc/main.toml, sets up zerolog and serves a fiber app whose
// routes are protected by the oidcauth middleware: a public landing page,
// the logged in user's claims and an entitlement guarded premium route.
package main
