// Package persistence stores issued payload records and keyring files.
//
// Issued records live in SQLite: each holds the payload text, its
// signature, a creation time and an optional expiry, and is returned by id
// or newest first. Keyrings are YAML files written with owner-only
// permissions.
package persistence
