package labels

import (
	"encoding/json"
	"math"
	"sort"

	"photo-annotation-pipeline/vision"
)

// ConfidenceThreshold is the fixed cutoff below which detections are dropped.
// Detections must be strictly above it to be retained.
const ConfidenceThreshold = 0.5

// RankedLabel is a deduplicated detection retained for output. Confidence is
// rounded to 2 decimal places. At most one RankedLabel exists per name.
type RankedLabel struct {
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"`
}

// Rank filters, deduplicates and sorts raw detections.
//
// Detections with confidence <= ConfidenceThreshold are dropped. Survivors
// have their confidence rounded to 2 decimal places, then are grouped by
// exact name keeping the highest-confidence entry per group; on equal
// confidence the first occurrence wins. The result is sorted by confidence
// descending, ties keeping first-occurrence order.
//
// Returns nil when nothing clears the threshold.
func Rank(detections []vision.Detection) []RankedLabel {
	var ranked []RankedLabel
	index := make(map[string]int)

	for _, det := range detections {
		if det.Name == "" || det.Confidence <= ConfidenceThreshold {
			continue
		}
		confidence := round2(det.Confidence)

		if i, seen := index[det.Name]; seen {
			if confidence > ranked[i].Confidence {
				ranked[i].Confidence = confidence
			}
			continue
		}
		index[det.Name] = len(ranked)
		ranked = append(ranked, RankedLabel{Name: det.Name, Confidence: confidence})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Confidence > ranked[j].Confidence
	})

	return ranked
}

// EncodeJSON serializes ranked labels as a JSON array. The second return
// value is false when there is nothing to encode: "nothing detected" is an
// absent result, never the string "[]", so callers can tell it apart from a
// present-but-empty value.
func EncodeJSON(ranked []RankedLabel) (string, bool) {
	if len(ranked) == 0 {
		return "", false
	}

	// Marshal of RankedLabel cannot fail.
	data, err := json.Marshal(ranked)
	if err != nil {
		return "", false
	}

	return string(data), true
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
