package plate

import (
	"fmt"
	"math"
	"unicode"
)

const (
	perfectScore = 100
	baseCost     = 70

	streakBonus      = 5
	confusionPenalty = 3
	mismatchPenalty  = 5
	classPenalty     = 10
)

// PositionDetail explains how one plate position contributed to the score.
// Position is 1-based; 0 marks an entry describing an input failure.
type PositionDetail struct {
	Position    int    `json:"position"`
	Expected    string `json:"expected"`
	Obtained    string `json:"obtained"`
	Explanation string `json:"explanation"`
}

// Score is the outcome of comparing a detected plate to a reference plate.
type Score struct {
	Similarity        float64          `json:"similarity"`
	SimilarityPercent float64          `json:"similarity_pct"`
	TotalCost         int              `json:"total_cost"`
	Details           []PositionDetail `json:"details"`
}

// Compare scores detected against reference.
//
// Starting from a base of 70, every position adds or subtracts points:
// an exact match adds 5 when the previous position also matched exactly,
// a known OCR confusion costs 3, a letter read as a non-letter (or the
// reverse) costs 10 and any other miss costs 5. The total over 100 is the
// similarity, clamped to [0,1].
//
// Empty or wrongly sized inputs never fail; they score zero with a single
// explanatory detail.
func Compare(reference, detected string) Score {
	if detected == "" {
		return failure(PositionDetail{
			Expected:    "N/A",
			Obtained:    "N/A",
			Explanation: "recognition produced no text",
		})
	}

	ref, got := []rune(reference), []rune(detected)
	if len(ref) != PlateLength || len(got) != PlateLength {
		return failure(PositionDetail{
			Expected: reference,
			Obtained: detected,
			Explanation: fmt.Sprintf("incorrect length: reference has %d characters, detected has %d, want %d",
				len(ref), len(got), PlateLength),
		})
	}

	cost := baseCost
	previousMatched := false
	details := make([]PositionDetail, 0, PlateLength)

	for i := 0; i < PlateLength; i++ {
		v, o := ref[i], got[i]
		var explanation string

		switch {
		case v == o:
			points := 0
			if previousMatched {
				points = streakBonus
			}
			cost += points
			explanation = fmt.Sprintf("correct character (+%d)", points)
			previousMatched = true
		case IsConfusion(v, o):
			cost -= confusionPenalty
			explanation = fmt.Sprintf("light error: typical OCR confusion (%c->%c) (-%d)", v, o, confusionPenalty)
			previousMatched = false
		case unicode.IsLetter(v) != unicode.IsLetter(o):
			cost -= classPenalty
			explanation = fmt.Sprintf("severe error: wrong character class (%s -> %s) (-%d)",
				className(v), className(o), classPenalty)
			previousMatched = false
		default:
			cost -= mismatchPenalty
			explanation = fmt.Sprintf("light error: wrong character, correct class (%c->%c) (-%d)", v, o, mismatchPenalty)
			previousMatched = false
		}

		details = append(details, PositionDetail{
			Position:    i + 1,
			Expected:    string(v),
			Obtained:    string(o),
			Explanation: explanation,
		})
	}

	similarity := clamp(float64(cost)/perfectScore, 0, 1)
	return Score{
		Similarity:        similarity,
		SimilarityPercent: math.Round(similarity*1000) / 10,
		TotalCost:         cost,
		Details:           details,
	}
}

func failure(detail PositionDetail) Score {
	return Score{Details: []PositionDetail{detail}}
}

func className(r rune) string {
	switch {
	case unicode.IsLetter(r):
		return "letter"
	case unicode.IsDigit(r):
		return "digit"
	default:
		return "symbol"
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
