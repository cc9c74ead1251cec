package postprocess

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Confident keeps results scoring strictly above threshold, in input order.
func Confident(results []Result, threshold float32) []Result {
	kept := make([]Result, 0, len(results))
	for _, r := range results {
		if r.Score > threshold {
			kept = append(kept, r)
		}
	}
	return kept
}

// PlateScore weighs confidence by the side of a square of equal area, so a
// large fairly confident box beats a tiny very confident one.
func PlateScore(r Result) float64 {
	return float64(r.Score) * math.Sqrt(r.Box.Width()*r.Box.Height())
}

// SelectPlate picks the single best plate among the confident results.
//
// Arguments:
//   - results: Detections of one image.
//   - threshold: Results must score strictly above it to be considered.
//
// Returns:
//   - The result with the highest PlateScore. The first one wins a tie.
//   - false if no result is confident, which is not an error.
func SelectPlate(results []Result, threshold float32) (Result, bool) {
	confident := Confident(results, threshold)
	if len(confident) == 0 {
		return Result{}, false
	}

	weighted := make([]float64, len(confident))
	for i, r := range confident {
		weighted[i] = PlateScore(r)
	}
	return confident[floats.MaxIdx(weighted)], true
}
