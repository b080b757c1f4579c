// Package plate selects the license plate among OCR detections and scores
// a detected plate against a reference plate.
//
// Everything here is pure: no I/O, no logging, no shared mutable state.
// Callers may use it from any number of goroutines.
package plate

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"gopkg.in/guregu/null.v4"
)

// minCandidateLength is the shortest normalized text still considered a plate.
const minCandidateLength = 6

var (
	plateCharset = regexp.MustCompile(`^[A-Z0-9]+$`)

	// Text commonly found on plates and vehicles that is never the plate itself.
	ignoredTexts = map[string]struct{}{
		"BRASIL": {},
		"BR":     {},
	}

	normalizer = strings.NewReplacer("-", "", " ", "")
)

// BoundingBox locates a detection inside the image, as fractions of the
// image width and height.
type BoundingBox struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Detection is one text region reported by a recognition engine.
type Detection struct {
	Box        BoundingBox `json:"box"`
	Text       string      `json:"text"`
	Confidence float64     `json:"confidence"`
}

// Candidate is the detection chosen as the most plausible plate.
// Plate is invalid when no detection qualified.
type Candidate struct {
	Plate      null.String `json:"plate"`
	Confidence float64     `json:"confidence"`
}

// Found reports whether a plate was selected.
func (c Candidate) Found() bool {
	return c.Plate.Valid
}

// Normalize removes dashes and spaces and upper-cases the text.
func Normalize(text string) string {
	return strings.ToUpper(strings.TrimSpace(normalizer.Replace(text)))
}

// IsPlausible reports whether normalized text may be a plate: long enough,
// not a known banner, letters and digits only.
func IsPlausible(normalized string) bool {
	if utf8.RuneCountInString(normalized) < minCandidateLength {
		return false
	}
	if _, ignored := ignoredTexts[normalized]; ignored {
		return false
	}
	return plateCharset.MatchString(normalized)
}

// SelectCandidate returns the highest-confidence plausible detection.
// Ties keep the detection seen first. An empty or fully filtered input
// yields a Candidate with no plate and zero confidence.
func SelectCandidate(detections []Detection) Candidate {
	var best Candidate
	for _, d := range detections {
		text := Normalize(d.Text)
		if !IsPlausible(text) {
			continue
		}
		if !best.Found() || d.Confidence > best.Confidence {
			best = Candidate{Plate: null.StringFrom(text), Confidence: d.Confidence}
		}
	}
	return best
}
