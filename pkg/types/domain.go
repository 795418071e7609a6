package types

import (
	"fmt"
	"time"
)

// EpisodeRef identifies one episode within a series. It always resolves
// to a unique video file in the active corpus.
type EpisodeRef struct {
	Series  string `json:"series"`
	Season  int    `json:"season"`
	Episode int    `json:"episode"`
}

// Code returns the SxxEyy form, e.g. "S05E12".
func (e EpisodeRef) Code() string {
	return fmt.Sprintf("S%02dE%02d", e.Season, e.Episode)
}

// FileRef returns the video file the episode resolves to. Every episode
// of the active series maps to exactly one file.
func (e EpisodeRef) FileRef() string {
	return fmt.Sprintf("%s/%s.mp4", e.Series, e.Code())
}

// Segment is a single hit from the series index: one dialogue line with
// its episode and time range. Segments are immutable once returned; the
// index owns them.
type Segment struct {
	ID      string     `json:"id"`
	Episode EpisodeRef `json:"episode"`
	Text    string     `json:"text"`
	Start   float64    `json:"start"` // seconds from episode start
	End     float64    `json:"end"`
	Speaker string     `json:"speaker,omitempty"`
	FileRef string     `json:"file_ref"` // video file the times refer to
}

// Duration returns the segment length in seconds.
func (s Segment) Duration() float64 {
	return s.End - s.Start
}

// ClipPart is one renderable (file, start, end) tuple.
type ClipPart struct {
	FileRef string  `json:"file_ref"`
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
}

// Duration returns the part length in seconds.
func (p ClipPart) Duration() float64 {
	return p.End - p.Start
}

// ClipSpec is an internal, renderable description of a clip. A user has
// at most one live ClipSpec at a time; every clip-producing command
// replaces it wholesale.
type ClipSpec struct {
	Parts         []ClipPart `json:"parts"`
	IsCompilation bool       `json:"is_compilation"`
	// SourceText describes where the clip came from, for listings.
	SourceText string `json:"source_text,omitempty"`
}

// Duration returns the summed duration of all parts in seconds.
func (c ClipSpec) Duration() float64 {
	var total float64
	for _, p := range c.Parts {
		total += p.Duration()
	}
	return total
}

// Validate checks the end-after-start invariant on every part.
func (c ClipSpec) Validate() error {
	if len(c.Parts) == 0 {
		return NewError(KindValidation, "clip has no parts")
	}
	for _, p := range c.Parts {
		if p.End <= p.Start {
			return NewError(KindValidation, "clip end must be after start")
		}
	}
	return nil
}

// SearchSession holds a user's last search and its ordered results.
// Position i is 1-based into Results and stays stable for the session's
// lifetime.
type SearchSession struct {
	UserID    string    `json:"user_id"`
	Query     string    `json:"query"`
	Results   []Segment `json:"results"`
	CreatedAt time.Time `json:"created_at"`
}

// SavedClip is a durably persisted, user-named clip with its rendered
// bytes. Saved clips never expire on TTL; they live until deleted or
// evicted by quota.
type SavedClip struct {
	ID         string     `json:"id"`
	OwnerID    string     `json:"owner_id"`
	Name       string     `json:"name"`
	Video      []byte     `json:"-"`
	Parts      []ClipPart `json:"parts"`
	Duration   float64    `json:"duration_seconds"`
	SourceText string     `json:"source_text,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}
