// Package search turns free-text quotes into ordered segment lists.
//
// The Index interface is the port to the external full-text/semantic
// engine; this package never manages the index itself. The Searcher
// wraps an Index and enforces the ordering contract that makes numeric
// positions addressable: relevance descending, ties broken
// chronologically by (season, episode, start). That ordering never
// depends on index implementation details.
package search
