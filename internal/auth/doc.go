// Package auth enforces permission tiers and per-identity request rate
// limits. Both checks run before any command executes; neither mutates
// user state.
package auth
