// Package clip resolves selectors into renderable clip specifications
// and compiles ordered selections into composite clips.
//
// A selector is a 1-based position into the user's current search
// session, a fresh quote, or explicit episode/time coordinates. The
// resolver validates every spec before committing it as the user's
// current clip; an invalid selector never leaves partial state behind.
package clip
