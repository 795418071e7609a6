// Package types provides shared type definitions for the RanchBot clip
// service.
//
// This package defines the domain types used across components: index
// segments, episode references, clip specifications, saved clips, user
// identities with permission tiers, and the error taxonomy shared by
// every transport.
//
// # Core Types
//
// Segment is a single timestamped hit from the series index:
//
//	seg := types.Segment{
//	    ID:      "ranczo-s05e12-00311",
//	    Episode: types.EpisodeRef{Series: "ranczo", Season: 5, Episode: 12},
//	    Text:    "a geniusz to ja jestem",
//	    Start:   411.2,
//	    End:     414.9,
//	}
//
// ClipSpec describes one or more renderable (file, start, end) parts:
//
//	spec := types.ClipSpec{
//	    Parts: []types.ClipPart{{FileRef: seg.FileRef, Start: seg.Start, End: seg.End}},
//	}
//
// # Errors
//
// Every caller-visible failure is a *types.Error carrying a Kind from
// the fixed taxonomy. Transports map the Kind to a status code and
// expose only the short reason string:
//
//	if e := types.AsError(err); e != nil {
//	    status = e.Kind.HTTPStatus()
//	}
package types
