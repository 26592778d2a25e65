// Package facematch decides whether a probe template belongs to an enrolled identity.
package facematch

import (
	"math"

	"github.com/kozaktomas/spyhole/internal/biometric"
	"github.com/kozaktomas/spyhole/internal/gallery"
)

// Rejection reasons reported in Verdict.Reason.
const (
	ReasonNoKnownFaces   = "no known faces"
	ReasonAboveThreshold = "distance above threshold"
)

// Verdict is the outcome of matching one probe against the gallery.
type Verdict struct {
	Accepted bool
	Label    string  // set when accepted
	Reason   string  // set when rejected
	Distance float64 // distance to the nearest entry, +Inf for an empty gallery
	Index    int     // position of the nearest entry, -1 for an empty gallery
}

// Subject returns the accepted label or the rejection reason.
func (v Verdict) Subject() string {
	if v.Accepted {
		return v.Label
	}
	return v.Reason
}

// Rejected builds a rejection verdict for a probe that never reached the gallery.
func Rejected(reason string) Verdict {
	return Verdict{Reason: reason, Distance: math.Inf(1), Index: -1}
}

// Match finds the entry nearest to probe by Euclidean distance and accepts it
// when the distance is strictly below threshold. On equal distances the earliest
// entry wins. Entries whose dimension differs from the probe never match.
func Match(probe biometric.Embedding, entries []gallery.Entry, threshold float64) Verdict {
	if len(entries) == 0 {
		return Rejected(ReasonNoKnownFaces)
	}

	best := -1
	bestDist := math.Inf(1)
	for i, e := range entries {
		d, err := biometric.Distance(probe, e.Embedding)
		if err != nil {
			continue
		}
		if d < bestDist {
			best = i
			bestDist = d
		}
	}

	if best >= 0 && bestDist < threshold {
		return Verdict{
			Accepted: true,
			Label:    entries[best].Label,
			Distance: bestDist,
			Index:    best,
		}
	}
	return Verdict{
		Reason:   ReasonAboveThreshold,
		Distance: bestDist,
		Index:    best,
	}
}
