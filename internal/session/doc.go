// Package session keeps per-user ephemeral state: the last search and
// the last produced clip. Entries expire after a fixed TTL, checked
// lazily on read; writes are last-write-wins and always replace the
// whole value.
package session
