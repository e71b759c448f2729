// Package matcher implements nearest-neighbor matching of face embeddings
// against a gallery of enrolled students. Matching is a pure function of the
// query and the gallery snapshot: no I/O, no shared state, safe to call from
// any number of goroutines.
package matcher

import (
	"errors"
	"fmt"
	"log"
	"math"
)

// ErrDimensionMismatch is returned when the query embedding length does not
// match the gallery dimension. It is a client input error and must not be
// treated as a failed match.
var ErrDimensionMismatch = errors.New("embedding dimension mismatch")

// Candidate is one enrolled student visible to a single match call.
type Candidate struct {
	StudentUID string
	Embedding  []float32
}

// Gallery is a read-only snapshot of enrolled embeddings, fetched fresh per
// match request. The matcher borrows it for the duration of one call and
// never mutates it.
type Gallery struct {
	Dim        int
	Candidates []Candidate
}

// Outcome classifies the result of a match call.
type Outcome string

const (
	// Accepted means the closest candidate was strictly below the threshold.
	Accepted Outcome = "accepted"
	// RejectedNoMatch means the scan completed but no candidate was close enough.
	RejectedNoMatch Outcome = "no_match"
	// RejectedEmptyGallery means there was nothing to compare against.
	RejectedEmptyGallery Outcome = "empty_gallery"
)

// Result is the outcome of one match call. StudentUID, Distance and Score
// are only meaningful when Outcome is Accepted.
type Result struct {
	Outcome    Outcome
	StudentUID string
	Distance   float64
	Score      float64 // 1 - Distance; decreases monotonically as distance grows
	Skipped    int     // gallery entries skipped because their embedding length was wrong
}

// Distance computes the Euclidean L2 distance between two embeddings.
// Both arguments must have the same length; callers validate lengths before
// comparing. Distance(e, e) == 0 and Distance(a, b) == Distance(b, a).
func Distance(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}

// Match scans the gallery for the enrolled embedding closest to query and
// accepts it when its distance is strictly below threshold.
//
// The scan is a deterministic linear pass in gallery order: on a tie the
// first candidate encountered wins (strict < comparison). A candidate whose
// embedding length does not match the gallery dimension is skipped and
// logged; one bad record must not deny service to everyone else.
func Match(query []float32, gallery Gallery, threshold float64) (Result, error) {
	if len(query) != gallery.Dim {
		return Result{}, fmt.Errorf("%w: query has %d values, gallery expects %d",
			ErrDimensionMismatch, len(query), gallery.Dim)
	}
	if len(gallery.Candidates) == 0 {
		return Result{Outcome: RejectedEmptyGallery}, nil
	}

	best := math.Inf(1)
	bestUID := ""
	skipped := 0

	for _, c := range gallery.Candidates {
		if len(c.Embedding) != gallery.Dim {
			log.Printf("matcher: skipping malformed gallery entry for student %s: %d values, expected %d",
				c.StudentUID, len(c.Embedding), gallery.Dim)
			skipped++
			continue
		}
		if d := Distance(query, c.Embedding); d < best {
			best = d
			bestUID = c.StudentUID
		}
	}

	if bestUID == "" || best >= threshold {
		return Result{Outcome: RejectedNoMatch, Skipped: skipped}, nil
	}

	return Result{
		Outcome:    Accepted,
		StudentUID: bestUID,
		Distance:   best,
		Score:      1 - best,
		Skipped:    skipped,
	}, nil
}
