package quantile

// Loss computes the pinball loss of a predicted q-quantile against the true value. Over
// prediction is weighted by 1-q and under prediction by q.
func Loss(q, actual, predicted float64) float64 {
	if actual < predicted {
		return (1 - q) * (predicted - actual)
	}
	return q * (actual - predicted)
}

// Covered reports whether the true value falls at or below the predicted quantile
func Covered(actual, predicted float64) bool {
	return actual <= predicted
}
