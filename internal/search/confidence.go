package search

// Confidence grades how much trust the fused score distribution earns.
type Confidence string

const (
	ConfidenceStrong Confidence = "strong"
	ConfidenceMedium Confidence = "medium"
	ConfidenceWeak   Confidence = "weak"
)

// Thresholds holds the calibrated cutoffs for confidence grading.
type Thresholds struct {
	// Strong tier needs at least two results above this score.
	Strong float64
	// Medium tier needs one result above this score.
	Medium float64
	// Medium tier alternative: ClusterCount results above ClusterMin.
	ClusterMin   float64
	ClusterCount int
}

// Grade computes the confidence tier from the final (boosted) scores of
// a ranked result list. Weak is the default: absence of evidence reads
// as weak, never as an error.
func Grade(scores []float64, t Thresholds) Confidence {
	var aboveStrong, aboveMedium, aboveCluster int
	for _, s := range scores {
		if s >= t.Strong {
			aboveStrong++
		}
		if s >= t.Medium {
			aboveMedium++
		}
		if s >= t.ClusterMin {
			aboveCluster++
		}
	}

	if aboveStrong >= 2 {
		return ConfidenceStrong
	}
	if aboveMedium >= 1 {
		return ConfidenceMedium
	}
	if t.ClusterCount > 0 && aboveCluster >= t.ClusterCount {
		return ConfidenceMedium
	}
	return ConfidenceWeak
}
