package face

// DefaultThreshold is the distance below which two descriptors are the same person.
const DefaultThreshold = 0.6

// Decision describes the comparison of two embeddings.
type Decision struct {
	Match      bool
	Distance   float64
	Similarity float64
}

// Matcher applies a distance threshold to pairs of embeddings.
type Matcher struct {
	threshold float64
}

// NewMatcher creates a Matcher. Non-positive thresholds fall back to DefaultThreshold.
func NewMatcher(threshold float64) *Matcher {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Matcher{threshold: threshold}
}

// Threshold returns the configured maximum distance (exclusive).
func (m *Matcher) Threshold() float64 {
	return m.threshold
}

// Decide compares two embeddings. Similarity is 1 - distance and may be negative.
func (m *Matcher) Decide(a, b Embedding) (Decision, error) {
	distance, err := EuclideanDistance(a, b)
	if err != nil {
		return Decision{}, err
	}
	return m.DecideDistance(distance), nil
}

// DecideDistance applies the threshold to a precomputed distance.
func (m *Matcher) DecideDistance(distance float64) Decision {
	return Decision{
		Match:      distance < m.threshold,
		Distance:   distance,
		Similarity: 1 - distance,
	}
}
