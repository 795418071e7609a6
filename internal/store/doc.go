// Package store persists saved clips in SQLite.
//
// Saved clips are the only durable user data in the service: everything
// else is session-scoped and expires. The store enforces per-owner name
// uniqueness and the per-owner count quota before any row is written.
//
// Two SQLite drivers are supported, selected at build time:
//
//	CGO_ENABLED=0 go build -tags "purego" ./...   (modernc.org/sqlite)
//	CGO_ENABLED=1 go build -tags "cgo_sqlite" ./... (mattn/go-sqlite3)
package store
